package redfish

import (
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

const (
	managerURL      = testHost + "/redfish/v1/Managers/iDRAC.Embedded.1"
	exportActionGen9URL  = testHost + "/redfish/v1/Managers/iDRAC.Embedded.1/Actions/Oem/EID_674_Manager.ExportSystemConfiguration"
	exportActionGen10URL = testHost + "/redfish/v1/Managers/iDRAC.Embedded.1/Actions/Oem/OemManager.ExportSystemConfiguration"
)

func makeTestExporter(t *testing.T) Exporter {
	t.Helper()
	conn := testConnOptions()
	return Exporter{
		Client:  makeTestClient(t, conn),
		Dialect: DellDialect{},
		Conn:    conn,
	}
}

func registerManager(model string) {
	httpmock.RegisterResponder("GET", managerURL,
		httpmock.NewStringResponder(200, `{"Model":"`+model+`"}`))
}

func TestExportHappyPath(t *testing.T) {
	e := makeTestExporter(t)
	registerManager("15G Monolithic")

	var submitted []byte
	httpmock.RegisterResponder("POST", exportActionGen9URL,
		func(req *http.Request) (*http.Response, error) {
			submitted, _ = io.ReadAll(req.Body)
			res := httpmock.NewStringResponse(202, "")
			res.Header.Set("Location", "/redfish/v1/TaskService/Tasks/JID_1")
			return res, nil
		})
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200,
			`{"TaskState":"Completed","Messages":[{"Oem":{"Dell":{"ServerConfigurationProfile":"<SystemConfiguration Model=\"R750\"></SystemConfiguration>"}}}]}`))

	doc, err := e.Export(entity.ExportOptions{Target: "ALL", Format: "XML", Include: "IncludeReadOnly"})
	if !assert.Nil(t, err) {
		return
	}
	assert.Contains(t, string(doc), "<SystemConfiguration")

	// gen9 accepts IncludeInExport
	assert.Equal(t, "IncludeReadOnly", gjson.GetBytes(submitted, "IncludeInExport").String())
	assert.Equal(t, "ALL", gjson.GetBytes(submitted, "ShareParameters.Target").String())
	assert.Equal(t, "XML", gjson.GetBytes(submitted, "ExportFormat").String())
}

func TestExportOmitsIncludeOnOldGenerations(t *testing.T) {
	e := makeTestExporter(t)
	registerManager("13G Monolithic")

	var submitted []byte
	httpmock.RegisterResponder("POST", exportActionGen9URL,
		func(req *http.Request) (*http.Response, error) {
			submitted, _ = io.ReadAll(req.Body)
			res := httpmock.NewStringResponse(202, "")
			res.Header.Set("Location", "/redfish/v1/TaskService/Tasks/JID_1")
			return res, nil
		})
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200,
			`{"TaskState":"Completed","Messages":[{"Message":"<SystemConfiguration></SystemConfiguration>"}]}`))

	_, err := e.Export(entity.ExportOptions{Target: "ALL", Format: "XML", Include: "IncludeReadOnly"})
	if !assert.Nil(t, err) {
		return
	}
	assert.False(t, gjson.GetBytes(submitted, "IncludeInExport").Exists())
}

func TestExportUsesOemManagerOnGen10(t *testing.T) {
	e := makeTestExporter(t)
	registerManager("17G Monolithic")

	httpmock.RegisterResponder("POST", exportActionGen10URL,
		func(req *http.Request) (*http.Response, error) {
			res := httpmock.NewStringResponse(202, "")
			res.Header.Set("Location", "/redfish/v1/TaskService/Tasks/JID_1")
			return res, nil
		})
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200,
			`{"TaskState":"Completed","Messages":[{"Message":"<SystemConfiguration></SystemConfiguration>"}]}`))

	doc, err := e.Export(entity.ExportOptions{Target: "ALL", Format: "XML", Include: "Default"})
	assert.Nil(t, err)
	assert.NotEmpty(t, doc)
}

func TestExportFailsWhenJobFails(t *testing.T) {
	e := makeTestExporter(t)
	registerManager("15G Monolithic")

	httpmock.RegisterResponder("POST", exportActionGen9URL,
		func(req *http.Request) (*http.Response, error) {
			res := httpmock.NewStringResponse(202, "")
			res.Header.Set("Location", "/redfish/v1/TaskService/Tasks/JID_1")
			return res, nil
		})
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200, `{"TaskState":"Failed","Messages":[{"Message":"export blocked"}]}`))

	_, err := e.Export(entity.ExportOptions{Target: "ALL", Format: "XML"})
	assert.NotNil(t, err)

	var jobErr *goldenerrors.JobFailedError
	assert.True(t, errors.As(err, &jobErr))
}

func TestExportNeverReturnsEmptyDocumentAsSuccess(t *testing.T) {
	e := makeTestExporter(t)
	registerManager("15G Monolithic")

	httpmock.RegisterResponder("POST", exportActionGen9URL,
		func(req *http.Request) (*http.Response, error) {
			res := httpmock.NewStringResponse(202, "")
			res.Header.Set("Location", "/redfish/v1/TaskService/Tasks/JID_1")
			return res, nil
		})
	// completed but with no payload anywhere
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200, `{"TaskState":"Completed","Messages":[{"Message":"done"}]}`))

	_, err := e.Export(entity.ExportOptions{Target: "ALL", Format: "XML"})
	assert.NotNil(t, err)

	var jobErr *goldenerrors.JobFailedError
	if !assert.True(t, errors.As(err, &jobErr)) {
		return
	}
	assert.Contains(t, jobErr.Message, "no configuration data")
}

func TestExportSubmitRejected(t *testing.T) {
	e := makeTestExporter(t)
	registerManager("15G Monolithic")

	httpmock.RegisterResponder("POST", exportActionGen9URL,
		httpmock.NewStringResponder(400, `{"error":"bad ShareParameters"}`))

	_, err := e.Export(entity.ExportOptions{Target: "BOGUS", Format: "XML"})
	assert.NotNil(t, err)

	var jobErr *goldenerrors.JobFailedError
	assert.True(t, errors.As(err, &jobErr))
}

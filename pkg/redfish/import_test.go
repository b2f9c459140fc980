package redfish

import (
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

const importActionGen9URL = testHost + "/redfish/v1/Managers/iDRAC.Embedded.1/Actions/Oem/EID_674_Manager.ImportSystemConfiguration"

var testDoc = entity.ProfileDocument(`<SystemConfiguration Model="R750">
  <Component FQDD="BIOS.Setup.1-1">
    <Attribute Name="BootMode">Uefi</Attribute>
  </Component>
</SystemConfiguration>`)

func makeTestImporter(t *testing.T) Importer {
	t.Helper()
	conn := testConnOptions()
	return Importer{
		Client:  makeTestClient(t, conn),
		Dialect: DellDialect{},
		Conn:    conn,
	}
}

func registerImportSubmit(capture *[]byte) {
	httpmock.RegisterResponder("POST", importActionGen9URL,
		func(req *http.Request) (*http.Response, error) {
			if capture != nil {
				*capture, _ = io.ReadAll(req.Body)
			}
			res := httpmock.NewStringResponse(202, "")
			res.Header.Set("Location", "/redfish/v1/TaskService/Tasks/JID_1")
			return res, nil
		})
}

func TestImportHappyPath(t *testing.T) {
	i := makeTestImporter(t)
	registerManager("15G Monolithic")

	var submitted []byte
	registerImportSubmit(&submitted)
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200, `{"TaskState":"Completed","Messages":[{"Message":"Successfully imported"}]}`))

	err := i.Import(testDoc, entity.ImportOptions{Target: "ALL", ShutdownType: "Graceful", HostPowerState: "On"})
	assert.Nil(t, err)

	buffer := gjson.GetBytes(submitted, "ImportBuffer").String()
	assert.NotContains(t, buffer, "\n")
	assert.Contains(t, buffer, `<Component FQDD="BIOS.Setup.1-1"><Attribute`)
	assert.Equal(t, "Graceful", gjson.GetBytes(submitted, "ShutdownType").String())
	assert.Equal(t, "On", gjson.GetBytes(submitted, "HostPowerState").String())
}

func TestImportRejectsEmptyDocument(t *testing.T) {
	i := makeTestImporter(t)
	err := i.Import(nil, entity.ImportOptions{Target: "ALL"})
	assert.NotNil(t, err)
}

func TestImportJobVanishesThenControllerRecovers(t *testing.T) {
	i := makeTestImporter(t)

	// manager answers for generation detection, then the import reboots
	// the controller: the job 404s and the manager is briefly down too
	var managerCalls int32
	httpmock.RegisterResponder("GET", managerURL,
		func(req *http.Request) (*http.Response, error) {
			n := atomic.AddInt32(&managerCalls, 1)
			if n >= 2 && n <= 3 {
				return nil, errors.New("connection refused")
			}
			return httpmock.NewStringResponse(200, `{"Model":"15G Monolithic"}`), nil
		})
	registerImportSubmit(nil)
	httpmock.RegisterResponder("GET", taskURL, httpmock.NewStringResponder(404, ""))

	err := i.Import(testDoc, entity.ImportOptions{Target: "ALL", ShutdownType: "Graceful", HostPowerState: "On"})
	assert.Nil(t, err)
}

func TestImportAmbiguousWhenControllerNeverReturns(t *testing.T) {
	i := makeTestImporter(t)

	var managerCalls int32
	httpmock.RegisterResponder("GET", managerURL,
		func(req *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&managerCalls, 1) == 1 {
				return httpmock.NewStringResponse(200, `{"Model":"15G Monolithic"}`), nil
			}
			return nil, errors.New("connection refused")
		})
	registerImportSubmit(nil)
	httpmock.RegisterResponder("GET", taskURL, httpmock.NewStringResponder(404, ""))

	err := i.Import(testDoc, entity.ImportOptions{Target: "ALL", ShutdownType: "Graceful", HostPowerState: "On"})
	assert.NotNil(t, err)

	var ambiguousErr *goldenerrors.AmbiguousOutcomeError
	assert.True(t, errors.As(err, &ambiguousErr))
}

func TestImportExplicitJobFailure(t *testing.T) {
	i := makeTestImporter(t)
	registerManager("15G Monolithic")
	registerImportSubmit(nil)
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200, `{"TaskState":"Failed","Messages":[{"Message":"Import of Server Configuration Profile failed"}]}`))

	err := i.Import(testDoc, entity.ImportOptions{Target: "ALL", ShutdownType: "Graceful", HostPowerState: "On"})
	assert.NotNil(t, err)

	var jobErr *goldenerrors.JobFailedError
	assert.True(t, errors.As(err, &jobErr))
}

func TestCollapseProfile(t *testing.T) {
	collapsed := CollapseProfile(testDoc)
	assert.NotContains(t, collapsed, "\n")
	assert.Contains(t, collapsed, "><Component")
	assert.Contains(t, collapsed, "Uefi")
}

func TestRoundTripSelfApply(t *testing.T) {
	// export then immediately import the same document back to the host
	// that produced it
	conn := testConnOptions()
	client := makeTestClient(t, conn)
	e := Exporter{Client: client, Dialect: DellDialect{}, Conn: conn}
	i := Importer{Client: client, Dialect: DellDialect{}, Conn: conn}

	registerManager("15G Monolithic")
	httpmock.RegisterResponder("POST", exportActionGen9URL,
		func(req *http.Request) (*http.Response, error) {
			res := httpmock.NewStringResponse(202, "")
			res.Header.Set("Location", "/redfish/v1/TaskService/Tasks/JID_1")
			return res, nil
		})
	registerImportSubmit(nil)
	httpmock.RegisterResponder("GET", taskURL,
		httpmock.NewStringResponder(200,
			`{"TaskState":"Completed","Messages":[{"Oem":{"Dell":{"ServerConfigurationProfile":"<SystemConfiguration Model=\"R750\"></SystemConfiguration>"}}}]}`))

	doc, err := e.Export(entity.ExportOptions{Target: "ALL", Format: "XML"})
	if !assert.Nil(t, err) {
		return
	}
	err = i.Import(doc, entity.ImportOptions{Target: "ALL", ShutdownType: "Graceful", HostPowerState: "On"})
	assert.Nil(t, err)
}

package redfish

import (
	"fmt"
	"net/http"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

// Exporter pulls the full configuration profile off one source
// controller: submit the OEM export action, drive the job to completion,
// then dig the document out of the completed task.
type Exporter struct {
	Client  *Client
	Dialect Dialect
	Conn    entity.ConnectionOptions
	Observe func(job entity.Job)
}

func (e Exporter) Export(opts entity.ExportOptions) (entity.ProfileDocument, error) {
	generation, err := e.detectGeneration()
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(err)
	}

	payload := map[string]interface{}{
		"ExportFormat": opts.Format,
		"ShareParameters": map[string]string{
			"Target": opts.Target,
		},
	}
	// IncludeInExport is only understood by generation 9 and newer
	if opts.Include != "" && opts.Include != "Default" && generation >= 9 {
		payload["IncludeInExport"] = opts.Include
	}

	status, body, headers, err := e.Client.DoWithHeaders(http.MethodPost, e.Dialect.ExportActionPath(generation), payload)
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(err)
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
			Host:    e.Client.Host(),
			State:   fmt.Sprintf("HTTP %d", status),
			Message: "export request rejected: " + truncate(string(body), 500),
		})
	}

	jobID, err := e.Dialect.ExtractJobID(headers.Get("Location"), body)
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(err, "export submit on", e.Client.Host())
	}

	job := &entity.Job{ID: jobID, Kind: entity.JobKindExport, State: entity.JobStateQueued}
	poller := Poller{Client: e.Client, Dialect: e.Dialect, Conn: e.Conn, Observe: e.Observe}
	outcome := poller.Poll(job)
	switch outcome.Outcome {
	case OutcomeCompleted:
	case OutcomeAmbiguous:
		// export never reboots the controller, so a vanished job is a failure
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
			Host:  e.Client.Host(),
			JobID: jobID,
			State: "NotFound",
		})
	default:
		return nil, goldenerrors.WrapAndTrace(outcome.Err)
	}

	doc := e.Dialect.ExtractProfile(outcome.TaskBody, opts.Format)
	if len(doc) == 0 {
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
			Host:    e.Client.Host(),
			JobID:   jobID,
			State:   "Completed",
			Message: "export job completed but returned no configuration data",
		})
	}
	return doc, nil
}

func (e Exporter) detectGeneration() (int, error) {
	return Probe(e.Client, e.Dialect)
}

// Probe reads the manager resource to learn which OEM action namespace
// and payload options the firmware understands. It is also the read-only
// health check behind validate: no job is ever submitted.
func Probe(client *Client, dialect Dialect) (int, error) {
	status, body, err := client.Do(http.MethodGet, dialect.ManagerPath(), nil)
	if err != nil {
		return 0, goldenerrors.WrapAndTrace(err)
	}
	if status != http.StatusOK {
		return 0, goldenerrors.WrapAndTrace(&goldenerrors.TransportError{
			Host:       client.Host(),
			StatusCode: status,
			Body:       truncate(string(body), 300),
			Attempts:   1,
		}, "manager resource unavailable")
	}
	return dialect.DetectGeneration(body), nil
}

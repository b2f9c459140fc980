package redfish

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

// Importer pushes a golden template onto one target controller. Imports
// routinely reboot the controller and the host, so completion tracking
// leans on the poller's reboot tolerance, and an ambiguous end state is
// only promoted to success after the controller answers a confirmatory
// re-query.
type Importer struct {
	Client  *Client
	Dialect Dialect
	Conn    entity.ConnectionOptions
	Observe func(job entity.Job)
}

func (i Importer) Import(doc entity.ProfileDocument, opts entity.ImportOptions) error {
	if len(doc) == 0 {
		return goldenerrors.NewValidationError("profile document is empty")
	}

	generation, err := i.detectGeneration()
	if err != nil {
		return goldenerrors.WrapAndTrace(err)
	}

	payload := map[string]interface{}{
		"ImportBuffer":   CollapseProfile(doc),
		"ShutdownType":   opts.ShutdownType,
		"HostPowerState": opts.HostPowerState,
		"ShareParameters": map[string]string{
			"Target": opts.Target,
		},
	}

	status, body, headers, err := i.Client.DoWithHeaders(http.MethodPost, i.Dialect.ImportActionPath(generation), payload)
	if err != nil {
		return goldenerrors.WrapAndTrace(err)
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
			Host:    i.Client.Host(),
			State:   fmt.Sprintf("HTTP %d", status),
			Message: "import request rejected: " + truncate(string(body), 500),
		})
	}

	jobID, err := i.Dialect.ExtractJobID(headers.Get("Location"), body)
	if err != nil {
		return goldenerrors.WrapAndTrace(err, "import submit on", i.Client.Host())
	}

	job := &entity.Job{ID: jobID, Kind: entity.JobKindImport, State: entity.JobStateQueued}
	poller := Poller{Client: i.Client, Dialect: i.Dialect, Conn: i.Conn, Observe: i.Observe}
	outcome := poller.Poll(job)
	switch outcome.Outcome {
	case OutcomeCompleted:
		return nil
	case OutcomeAmbiguous:
		return i.confirmAfterReboot(jobID)
	default:
		return goldenerrors.WrapAndTrace(outcome.Err)
	}
}

// confirmAfterReboot resolves a vanished import job: if the controller
// comes back healthy within the grace window the import is taken as
// applied; if it never answers, the outcome stays ambiguous and is
// reported as failure, never success.
func (i Importer) confirmAfterReboot(jobID string) error {
	deadline := time.Now().Add(i.Conn.RebootGrace)
	for {
		status, _, err := i.Client.Do(http.MethodGet, i.Dialect.ManagerPath(), nil)
		if err == nil && status == http.StatusOK {
			return nil
		}
		if time.Now().After(deadline) {
			return goldenerrors.WrapAndTrace(&goldenerrors.AmbiguousOutcomeError{
				Host:   i.Client.Host(),
				JobID:  jobID,
				Reason: "job resource disappeared and the controller did not answer the confirmatory check in time",
			})
		}
		time.Sleep(i.Conn.PollInterval)
	}
}

func (i Importer) detectGeneration() (int, error) {
	return Probe(i.Client, i.Dialect)
}

var (
	interTagWhitespaceRe = regexp.MustCompile(`>\s+<`)
	newlineRe            = regexp.MustCompile(`\r?\n`)
)

// CollapseProfile flattens an exported document into the single-line
// string the ImportBuffer field expects.
func CollapseProfile(doc entity.ProfileDocument) string {
	content := interTagWhitespaceRe.ReplaceAllString(string(doc), "><")
	content = newlineRe.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

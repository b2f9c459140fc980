package redfish

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

// Dialect isolates the response-shape variance between controller vendors
// and firmware generations: resource paths, OEM action names, where the
// job handle lives in a submit response, which task-state strings are
// terminal, and where a completed export hides its payload. Callers never
// hardcode any of this.
type Dialect interface {
	ManagerPath() string
	SessionPath() string
	TaskPath(jobID string) string
	ExportActionPath(generation int) string
	ImportActionPath(generation int) string

	// DetectGeneration maps the manager resource body to a firmware
	// generation used to pick OEM action names and payload options.
	DetectGeneration(managerBody []byte) int

	// ExtractJobID pulls the job handle out of a submit response,
	// preferring the Location header over body fields.
	ExtractJobID(location string, body []byte) (string, error)

	// TaskState reads state, message and percent-complete out of a job
	// status body. ok is false when the body is not a readable task
	// resource (truncated or empty during a controller reboot).
	TaskState(body []byte) (state, message string, percent int, ok bool)

	IsSuccessState(state string) bool
	IsFailureState(state string) bool

	// ExtractProfile digs the exported configuration document out of a
	// completed export task. Empty result means the job produced no
	// usable payload.
	ExtractProfile(taskBody []byte, format string) []byte
}

// DellDialect covers iDRAC firmware. Generations 8/9 use the
// EID_674_Manager OEM namespace, 10+ uses OemManager; everything else is
// standard Redfish task plumbing.
type DellDialect struct{}

var _ Dialect = DellDialect{}

const (
	dellManagerPath = "/redfish/v1/Managers/iDRAC.Embedded.1"
	dellTaskPath    = "/redfish/v1/TaskService/Tasks"
	dellSessionPath = "/redfish/v1/SessionService/Sessions"
)

func (DellDialect) ManagerPath() string { return dellManagerPath }
func (DellDialect) SessionPath() string { return dellSessionPath }

func (DellDialect) TaskPath(jobID string) string {
	return fmt.Sprintf("%s/%s", dellTaskPath, jobID)
}

func (d DellDialect) ExportActionPath(generation int) string {
	return fmt.Sprintf("%s/Actions/Oem/%s.ExportSystemConfiguration", dellManagerPath, d.oemPrefix(generation))
}

func (d DellDialect) ImportActionPath(generation int) string {
	return fmt.Sprintf("%s/Actions/Oem/%s.ImportSystemConfiguration", dellManagerPath, d.oemPrefix(generation))
}

func (DellDialect) oemPrefix(generation int) string {
	if generation >= 10 {
		return "OemManager"
	}
	return "EID_674_Manager"
}

// Model strings carry the server generation (12G/13G => iDRAC8,
// 14G-16G => iDRAC9, newer => iDRAC10).
func (DellDialect) DetectGeneration(managerBody []byte) int {
	model := gjson.GetBytes(managerBody, "Model").String()
	switch {
	case strings.Contains(model, "12") || strings.Contains(model, "13"):
		return 8
	case strings.Contains(model, "14") || strings.Contains(model, "15") || strings.Contains(model, "16"):
		return 9
	default:
		return 10
	}
}

func (DellDialect) ExtractJobID(location string, body []byte) (string, error) {
	candidate := location
	if candidate == "" {
		candidate = gjson.GetBytes(body, "@odata\\.id").String()
	}
	if candidate != "" {
		parts := strings.Split(strings.TrimRight(candidate, "/"), "/")
		return parts[len(parts)-1], nil
	}
	if id := gjson.GetBytes(body, "Id").String(); id != "" {
		return id, nil
	}
	return "", goldenerrors.New("no job handle in submit response")
}

func (DellDialect) TaskState(body []byte) (string, string, int, bool) {
	if !gjson.ValidBytes(body) {
		return "", "", 0, false
	}
	state := gjson.GetBytes(body, "TaskState")
	if !state.Exists() {
		return "", "", 0, false
	}
	message := gjson.GetBytes(body, "Messages.0.Message").String()
	percent := int(gjson.GetBytes(body, "PercentComplete").Int())
	return state.String(), message, percent, true
}

var dellSuccessStates = []string{"completed"}

var dellFailureStates = []string{"failed", "exception", "completedwitherrors", "rollbackfailed", "killed", "cancelled"}

func (DellDialect) IsSuccessState(state string) bool {
	return containsFold(dellSuccessStates, state)
}

func (DellDialect) IsFailureState(state string) bool {
	return containsFold(dellFailureStates, state)
}

func containsFold(set []string, state string) bool {
	lowered := strings.ToLower(state)
	for _, s := range set {
		if s == lowered {
			return true
		}
	}
	return false
}

var systemConfigurationRe = regexp.MustCompile(`(?s)(<SystemConfiguration.*</SystemConfiguration>)`)

// ExtractProfile follows the firmware-version fallbacks observed in the
// field: the profile rides inside Messages[].Oem.Dell, or as a raw
// message body, or embedded somewhere in the task JSON.
func (DellDialect) ExtractProfile(taskBody []byte, format string) []byte {
	wantJSON := strings.EqualFold(format, "JSON")

	for _, msg := range gjson.GetBytes(taskBody, "Messages").Array() {
		scp := msg.Get("Oem.Dell.ServerConfigurationProfile")
		if !scp.Exists() {
			continue
		}
		if wantJSON {
			if pretty, err := json.MarshalIndent(scp.Value(), "", "  "); err == nil {
				return pretty
			}
		}
		return []byte(scp.String())
	}

	for _, msg := range gjson.GetBytes(taskBody, "Messages").Array() {
		content := strings.TrimSpace(msg.Get("Message").String())
		if wantJSON && strings.HasPrefix(content, "{") {
			return []byte(content)
		}
		if !wantJSON && strings.HasPrefix(content, "<") {
			return []byte(content)
		}
	}

	if !wantJSON {
		if match := systemConfigurationRe.FindSubmatch(taskBody); match != nil {
			return match[1]
		}
	}
	return nil
}

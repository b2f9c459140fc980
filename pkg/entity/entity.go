package entity

import (
	"fmt"
	"time"
)

// HostEndpoint identifies one management controller. Immutable for the
// duration of an operation; credentials are injected from the environment
// and must never be logged or written to disk.
type HostEndpoint struct {
	IP        string
	Username  string
	Password  string
	VerifySSL bool
}

func (h HostEndpoint) BaseURL() string {
	return fmt.Sprintf("https://%s", h.IP)
}

// Session is an authenticated handle to one controller. Token-based when
// the controller supports Redfish sessions, otherwise basic auth for the
// life of the operation. Never shared across hosts.
type Session struct {
	Token    string
	Location string
	Basic    bool
}

type JobKind string

const (
	JobKindExport JobKind = "export"
	JobKindImport JobKind = "import"
)

type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Job is one asynchronous controller-side task, created when a submit
// call returns a task location.
type Job struct {
	ID              string
	Kind            JobKind
	State           JobState
	PercentComplete int
	Message         string
}

// ProfileDocument is the exported server configuration. The tool only
// transports and persists it; it is never interpreted.
type ProfileDocument []byte

// Group is one named unit of work: a source controller, a stable template
// path, and zero or more targets. Targets already expanded from ranges.
type Group struct {
	Name         string
	Source       HostEndpoint
	TemplatePath string
	Targets      []HostEndpoint
}

type GroupState string

const (
	GroupPending   GroupState = "Pending"
	GroupExporting GroupState = "Exporting"
	GroupExported  GroupState = "Exported"
	GroupImporting GroupState = "Importing"
	GroupDone      GroupState = "Done"
	GroupFailed    GroupState = "Failed"
)

type HostRole string

const (
	RoleSource HostRole = "source"
	RoleTarget HostRole = "target"
)

// OperationResult is the per-host outcome record. A failure on one host
// never aborts processing of another.
type OperationResult struct {
	Group     string
	Host      string
	Role      HostRole
	Succeeded bool
	Err       error
	Duration  time.Duration
}

type ConnectionOptions struct {
	VerifySSL    bool
	Timeout      time.Duration
	Retries      int
	PollInterval time.Duration
	JobTimeout   time.Duration
	// RebootGrace bounds how long consecutive unreadable or missing job
	// responses are treated as a controller reboot in progress rather
	// than a dead host.
	RebootGrace time.Duration
}

type ExportOptions struct {
	Target  string
	Format  string
	Include string
}

type ImportOptions struct {
	Target         string
	ShutdownType   string
	HostPowerState string
}

type Credentials struct {
	Username string
	Password string
}

// RunConfig is everything a single invocation needs, fully resolved: the
// group list (legacy configs already normalized to a "default" group),
// option blocks, and credentials.
type RunConfig struct {
	Groups      []Group
	Export      ExportOptions
	Import      ImportOptions
	Connection  ConnectionOptions
	Credentials Credentials
	Pipeline    []string
}

func (c RunConfig) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		names = append(names, g.Name)
	}
	return names
}

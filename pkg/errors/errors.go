package errors

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
)

type GoldenError interface {
	// Error returns a user-facing string explaining the error
	Error() string

	// Directive returns a user-facing string explaining how to overcome the error
	Directive() string
}

type ValidationError struct {
	Message string
}

func NewValidationError(message string) ValidationError {
	return ValidationError{Message: message}
}

var _ error = ValidationError{}

func (v ValidationError) Error() string {
	return v.Message
}

// AuthError means the controller rejected our credentials. It is never
// retried so a bad password does not burn the transport retry budget.
type AuthError struct {
	Host       string
	StatusCode int
}

var _ error = &AuthError{}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s (HTTP %d)", e.Host, e.StatusCode)
}

func (e *AuthError) Directive() string {
	return "check IDRAC_USERNAME and IDRAC_PASSWORD"
}

// TransportError is a network or transient HTTP failure that survived the
// full retry budget. Attempts counts every request made including the first.
type TransportError struct {
	Host       string
	StatusCode int
	Body       string
	Attempts   int
	Cause      error
}

var _ error = &TransportError{}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("request to %s failed after %d attempts: %v", e.Host, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("request to %s failed after %d attempts: HTTP %d", e.Host, e.Attempts, e.StatusCode)
}

func (e *TransportError) Directive() string {
	return "verify the controller is reachable and not mid-reset, then re-run"
}

// JobFailedError means the controller explicitly reported a terminal
// failure state for an export or import job.
type JobFailedError struct {
	Host    string
	JobID   string
	State   string
	Message string
}

var _ error = &JobFailedError{}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s on %s finished with state %q: %s", e.JobID, e.Host, e.State, e.Message)
}

func (e *JobFailedError) Directive() string {
	return "inspect the controller's lifecycle log for the failing attribute"
}

type JobTimeoutError struct {
	Host    string
	JobID   string
	Elapsed string
}

var _ error = &JobTimeoutError{}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job %s on %s did not reach a terminal state within %s", e.JobID, e.Host, e.Elapsed)
}

func (e *JobTimeoutError) Directive() string {
	return "raise connection.job_timeout or check the controller console"
}

// AmbiguousOutcomeError is a reboot-induced uncertainty (job resource
// disappeared) that the confirmatory re-query could not resolve. It is
// always reported as failure, never success.
type AmbiguousOutcomeError struct {
	Host   string
	JobID  string
	Reason string
}

var _ error = &AmbiguousOutcomeError{}

func (e *AmbiguousOutcomeError) Error() string {
	return fmt.Sprintf("outcome of job %s on %s is ambiguous: %s", e.JobID, e.Host, e.Reason)
}

func (e *AmbiguousOutcomeError) Directive() string {
	return "verify the configuration on the controller manually before trusting this host"
}

type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

var _ error = &PersistenceError{}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not %s profile %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Directive() string {
	return "check the template path and filesystem permissions"
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Kind returns the taxonomy name for a failure so verbose summaries can
// surface it; wrapped errors are unwrapped first.
func Kind(err error) string {
	var (
		authErr      *AuthError
		transportErr *TransportError
		jobErr       *JobFailedError
		timeoutErr   *JobTimeoutError
		ambiguousErr *AmbiguousOutcomeError
		persistErr   *PersistenceError
	)
	switch {
	case errors.As(err, &authErr):
		return "AuthError"
	case errors.As(err, &transportErr):
		return "TransportError"
	case errors.As(err, &jobErr):
		return "JobFailedError"
	case errors.As(err, &timeoutErr):
		return "JobTimeoutError"
	case errors.As(err, &ambiguousErr):
		return "AmbiguousOutcomeError"
	case errors.As(err, &persistErr):
		return "PersistenceError"
	default:
		return "Error"
	}
}

func WrapAndTrace(err error, messages ...string) error {
	message := ""
	for _, m := range messages {
		message += fmt.Sprintf(" %s", m)
	}
	return errors.Wrap(err, MakeErrorMessage(message))
}

func MakeErrorMessage(message string) string {
	_, fn, line, _ := runtime.Caller(2)
	return fmt.Sprintf("[error] %s:%d %s\n\t", fn, line, message)
}

func New(message string) error {
	return errors.New(message)
}

var NetworkErrorMessage = "possible network connection problem"

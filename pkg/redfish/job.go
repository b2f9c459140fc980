package redfish

import (
	"net/http"
	"time"

	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
	OutcomeTimedOut
	// OutcomeAmbiguous means the job resource disappeared while a
	// controller reboot was plausible. Only import jobs may treat this
	// as potential success, and only after a confirmatory check.
	OutcomeAmbiguous
)

type JobOutcome struct {
	Outcome  Outcome
	TaskBody []byte
	Err      error
}

// Poller drives one asynchronous controller job to a terminal state,
// terminal failure, or wall-clock timeout. It tolerates the reboot window
// an import triggers: truncated bodies, empty responses and transport
// errors count as "still running" for at most RebootGrace, so a
// permanently broken host fails long before JobTimeout.
type Poller struct {
	Client  *Client
	Dialect Dialect
	Conn    entity.ConnectionOptions

	// Observe is called after every successful status read; nil is fine.
	Observe func(job entity.Job)
}

func (p Poller) Poll(job *entity.Job) JobOutcome {
	start := time.Now()
	deadline := start.Add(p.Conn.JobTimeout)
	var graceStart time.Time

	for {
		if time.Now().After(deadline) {
			return JobOutcome{Outcome: OutcomeTimedOut, Err: goldenerrors.WrapAndTrace(&goldenerrors.JobTimeoutError{
				Host:    p.Client.Host(),
				JobID:   job.ID,
				Elapsed: p.Conn.JobTimeout.String(),
			})}
		}

		status, body, err := p.Client.Do(http.MethodGet, p.Dialect.TaskPath(job.ID), nil)
		switch {
		case err != nil:
			// transient transport errors and even auth errors can be a
			// controller reset invalidating the session; tolerated only
			// inside the grace window
			if !p.inGrace(&graceStart) {
				return JobOutcome{Outcome: OutcomeFailed, Err: err}
			}

		case status == http.StatusNotFound:
			if job.Kind == entity.JobKindImport {
				return JobOutcome{Outcome: OutcomeAmbiguous}
			}
			return JobOutcome{Outcome: OutcomeFailed, Err: goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
				Host:    p.Client.Host(),
				JobID:   job.ID,
				State:   "NotFound",
				Message: "job resource disappeared from the controller",
			})}

		case status == http.StatusOK || status == http.StatusAccepted:
			state, message, percent, ok := p.Dialect.TaskState(body)
			if !ok {
				// truncated or empty body mid-reboot
				if !p.inGrace(&graceStart) {
					return JobOutcome{Outcome: OutcomeFailed, Err: goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
						Host:    p.Client.Host(),
						JobID:   job.ID,
						State:   "Unreadable",
						Message: "controller kept returning unreadable job status",
					})}
				}
				break
			}
			graceStart = time.Time{}
			job.State = entity.JobStateRunning
			job.PercentComplete = percent
			job.Message = message
			if p.Observe != nil {
				p.Observe(*job)
			}

			if p.Dialect.IsSuccessState(state) {
				job.State = entity.JobStateCompleted
				return JobOutcome{Outcome: OutcomeCompleted, TaskBody: body}
			}
			if p.Dialect.IsFailureState(state) {
				job.State = entity.JobStateFailed
				return JobOutcome{Outcome: OutcomeFailed, Err: goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
					Host:    p.Client.Host(),
					JobID:   job.ID,
					State:   state,
					Message: message,
				})}
			}

		default:
			// unexpected status, same tolerance as a garbled body
			if !p.inGrace(&graceStart) {
				return JobOutcome{Outcome: OutcomeFailed, Err: goldenerrors.WrapAndTrace(&goldenerrors.JobFailedError{
					Host:    p.Client.Host(),
					JobID:   job.ID,
					State:   "Unexpected",
					Message: "controller kept returning an unexpected job status code",
				})}
			}
		}

		time.Sleep(p.Conn.PollInterval)
	}
}

// inGrace starts or continues the reboot-tolerance window. It returns
// true while the window still has budget left.
func (p Poller) inGrace(graceStart *time.Time) bool {
	if graceStart.IsZero() {
		*graceStart = time.Now()
		return true
	}
	return time.Since(*graceStart) <= p.Conn.RebootGrace
}

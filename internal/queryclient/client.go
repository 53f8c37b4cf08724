package queryclient

import (
	"context"
	"fmt"
	"time"

	"github.com/Sarvajeet2003/dune-1inch-mcp-server/internal/models"

	"github.com/sirupsen/logrus"
)

// JobState is the lifecycle state of one analytics query job. A job starts
// pending and ends in exactly one of the three terminal states, each with
// its own exit path and error type.
type JobState int

const (
	StatePending JobState = iota
	StateCompleted
	StateFailed
	StateTimedOut
)

func (s JobState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Job is one in-flight analysis request. It lives for the duration of a
// single Execute call and is owned exclusively by that call.
type Job struct {
	ID    string
	State JobState
}

// ProviderState is the normalized status a provider reports for a job.
type ProviderState string

const (
	ProviderPending   ProviderState = "pending"
	ProviderCompleted ProviderState = "completed"
	ProviderFailed    ProviderState = "failed"
)

// JobStatus is one poll response from the analytics provider.
type JobStatus struct {
	State ProviderState
	// Rows is populated only when State is ProviderCompleted. May be empty
	// for wallets with no history.
	Rows []models.TransactionRecord
	// ErrMessage is populated only when State is ProviderFailed.
	ErrMessage string
}

// Provider is the analytics backend capability: it executes wallet queries
// out-of-band and exposes them as asynchronous jobs. Concrete adapters
// (Dune, fakes in tests) satisfy this interface.
type Provider interface {
	// Submit starts a wallet-analysis job and returns its opaque job id.
	Submit(ctx context.Context, wallet string) (string, error)

	// Status reports the current state of a previously submitted job.
	Status(ctx context.Context, jobID string) (*JobStatus, error)
}

// SubmissionError wraps a transport failure while creating the job.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit analytics query: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// StatusError wraps a transport failure while polling, or a provider-reported
// job failure.
type StatusError struct {
	JobID string
	Err   error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analytics query %s failed: %v", e.JobID, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// TimeoutError means the attempt cap was exhausted while the job was still
// pending on the provider side. The provider-side job is left to complete
// or expire on its own.
type TimeoutError struct {
	JobID    string
	Attempts int
	Waited   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("analytics query %s still pending after %d attempts (%s)", e.JobID, e.Attempts, e.Waited)
}

// Config holds poll-loop tuning for the client.
type Config struct {
	PollInterval time.Duration // default 2s
	MaxAttempts  int           // default 30
	Logger       *logrus.Logger
}

// Client runs wallet-analysis queries against an asynchronous Provider.
// The provider executes queries out-of-band (seconds to tens of seconds),
// so Execute submits a job and polls at a fixed interval with a hard
// attempt cap. The cap is what bounds worst-case latency and guarantees
// the loop terminates.
type Client struct {
	provider     Provider
	pollInterval time.Duration
	maxAttempts  int
	logger       *logrus.Logger
}

// NewClient creates a query-execution client over the given provider.
func NewClient(provider Provider, cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		provider:     provider,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
		logger:       cfg.Logger,
	}
}

// Execute submits a wallet query and polls until the job reaches a terminal
// state. Rows come back newest-first, exactly as the provider returns them;
// an empty slice means the wallet has no history. Transport failures and
// provider-reported failures are terminal; there is no retry beyond the
// poll cadence itself.
func (c *Client) Execute(ctx context.Context, wallet string) ([]models.TransactionRecord, error) {
	jobID, err := c.provider.Submit(ctx, wallet)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}

	job := &Job{ID: jobID, State: StatePending}
	c.logger.WithFields(logrus.Fields{
		"wallet": wallet,
		"job_id": job.ID,
	}).Debug("submitted analytics query")

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		status, err := c.provider.Status(ctx, job.ID)
		if err != nil {
			job.State = StateFailed
			return nil, &StatusError{JobID: job.ID, Err: err}
		}

		switch status.State {
		case ProviderCompleted:
			job.State = StateCompleted
			c.logger.WithFields(logrus.Fields{
				"job_id":   job.ID,
				"state":    job.State.String(),
				"attempts": attempt,
				"rows":     len(status.Rows),
			}).Info("analytics query completed")
			if status.Rows == nil {
				return []models.TransactionRecord{}, nil
			}
			return status.Rows, nil

		case ProviderFailed:
			job.State = StateFailed
			return nil, &StatusError{JobID: job.ID, Err: fmt.Errorf("provider reported failure: %s", status.ErrMessage)}

		default:
			// Still pending: sleep one interval before the next attempt,
			// unless this was the last one or the caller gave up.
			if attempt == c.maxAttempts {
				continue
			}
			select {
			case <-ctx.Done():
				job.State = StateFailed
				return nil, &StatusError{JobID: job.ID, Err: ctx.Err()}
			case <-time.After(c.pollInterval):
			}
		}
	}

	job.State = StateTimedOut
	c.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"state":  job.State.String(),
	}).Warn("analytics query timed out")
	return nil, &TimeoutError{
		JobID:    job.ID,
		Attempts: c.maxAttempts,
		Waited:   time.Duration(c.maxAttempts) * c.pollInterval,
	}
}

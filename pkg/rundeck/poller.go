package rundeck

import (
	"context"
	"errors"
	"time"

	"rundeck/pkg/apperrors"
)

var errNoExecutionID = errors.New("run response carries no execution id")

// Poll defaults, applied when PollConfig is the zero value.
const (
	DefaultPollTimeout  = 60 * time.Second
	DefaultPollInterval = 3 * time.Second
)

// PollConfig bounds a run-and-wait call. A zero value gets the defaults; a
// non-zero value is taken as-is, so an explicit zero interval means polling
// without pause and a negative timeout means no polling at all.
type PollConfig struct {
	Timeout  time.Duration
	Interval time.Duration
}

func (pc PollConfig) withDefaults() PollConfig {
	if pc == (PollConfig{}) {
		return PollConfig{Timeout: DefaultPollTimeout, Interval: DefaultPollInterval}
	}
	return pc
}

// executionAPI is the slice of the client the poller needs.
type executionAPI interface {
	RunJob(ctx context.Context, jobID string, opts RunJobOptions) (*Execution, error)
	Execution(ctx context.Context, executionID string) (*Execution, error)
}

// RunJobAndWait submits a job run and polls its execution until it reaches a
// terminal status or the timeout elapses. The returned bool reports a timeout;
// the execution then carries the last observed state and err is nil. Transport
// and server errors during polling abort the wait.
func (c *Client) RunJobAndWait(ctx context.Context, jobID string, opts RunJobOptions, pc PollConfig) (*Execution, bool, error) {
	start := time.Now()
	exec, timedOut, err := runJobAndWait(ctx, c, jobID, opts, pc)
	if err != nil {
		return exec, timedOut, err
	}
	if timedOut {
		c.logger.Warn("Execution wait timed out", "executionId", exec.ID, "status", exec.Status)
	} else {
		c.logger.Info("Execution finished", "executionId", exec.ID, "status", exec.Status)
	}
	if c.metrics != nil {
		c.metrics.RecordExecutionWait(ctx, string(exec.Status), timedOut, time.Since(start).Seconds())
	}
	return exec, timedOut, nil
}

func runJobAndWait(ctx context.Context, api executionAPI, jobID string, opts RunJobOptions, pc PollConfig) (*Execution, bool, error) {
	pc = pc.withDefaults()

	exec, err := api.RunJob(ctx, jobID, opts)
	if err != nil {
		return nil, false, err
	}
	if exec.ID == "" {
		return nil, false, apperrors.MalformedResponse("job.run", errNoExecutionID)
	}
	if exec.Status.Terminal() {
		return exec, false, nil
	}

	deadline := time.Now().Add(pc.Timeout)
	grace := true
	for time.Now().Before(deadline) {
		cur, err := api.Execution(ctx, exec.ID)
		if err != nil {
			return nil, false, err
		}
		if cur.ID == "" {
			cur.ID = exec.ID
		}
		exec = cur

		if exec.Status.Terminal() {
			return exec, false, nil
		}
		// A status can be briefly missing right after submission while the
		// server registers the execution. Allow one immediate re-fetch on the
		// first poll only; a missing status later waits like any other
		// non-terminal state.
		if exec.Status == "" && grace {
			grace = false
			continue
		}
		grace = false
		if err := sleepCtx(ctx, pc.Interval); err != nil {
			return nil, false, err
		}
	}
	return exec, true, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package rundeck

import (
	"context"
	"errors"
	"testing"
	"time"

	"rundeck/pkg/apperrors"
)

// fakeExecutionAPI scripts a submission result and a sequence of poll replies.
type fakeExecutionAPI struct {
	submitted *Execution
	submitErr error

	polls    []*Execution
	pollErrs []error
	fetches  int
}

func (f *fakeExecutionAPI) RunJob(ctx context.Context, jobID string, opts RunJobOptions) (*Execution, error) {
	return f.submitted, f.submitErr
}

func (f *fakeExecutionAPI) Execution(ctx context.Context, executionID string) (*Execution, error) {
	i := f.fetches
	f.fetches++
	if i >= len(f.polls) {
		i = len(f.polls) - 1
	}
	if f.pollErrs != nil && f.pollErrs[i] != nil {
		return nil, f.pollErrs[i]
	}
	return f.polls[i], nil
}

func running(id string) *Execution {
	return &Execution{ID: id, Status: StatusRunning, Attrs: map[string]string{"id": id}}
}

func done(id string, s Status) *Execution {
	return &Execution{ID: id, Status: s, Attrs: map[string]string{"id": id}}
}

func TestRunJobAndWaitSucceeds(t *testing.T) {
	t.Parallel()
	api := &fakeExecutionAPI{
		submitted: running("42"),
		polls: []*Execution{
			running("42"),
			running("42"),
			done("42", StatusSucceeded),
		},
	}

	exec, timedOut, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{},
		PollConfig{Timeout: time.Second, Interval: time.Nanosecond})
	if err != nil {
		t.Fatalf("runJobAndWait failed: %v", err)
	}
	if timedOut {
		t.Error("Expected no timeout")
	}
	if exec.Status != StatusSucceeded {
		t.Errorf("Expected succeeded, got %q", exec.Status)
	}
	if api.fetches != 3 {
		t.Errorf("Expected 3 status fetches, got %d", api.fetches)
	}
}

func TestRunJobAndWaitTerminalAtSubmit(t *testing.T) {
	t.Parallel()
	api := &fakeExecutionAPI{submitted: done("42", StatusFailed)}

	exec, timedOut, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{},
		PollConfig{Timeout: time.Second, Interval: time.Nanosecond})
	if err != nil {
		t.Fatalf("runJobAndWait failed: %v", err)
	}
	if timedOut {
		t.Error("Expected no timeout")
	}
	if exec.Status != StatusFailed {
		t.Errorf("Expected failed, got %q", exec.Status)
	}
	if api.fetches != 0 {
		t.Errorf("Expected no status fetches, got %d", api.fetches)
	}
}

func TestRunJobAndWaitGraceRetryOnMissingStatus(t *testing.T) {
	t.Parallel()
	// The first status fetch right after submission can come back empty while
	// the server registers the execution. The second fetch happens without
	// waiting a full interval.
	api := &fakeExecutionAPI{
		submitted: running("42"),
		polls: []*Execution{
			{ID: "42", Attrs: map[string]string{"id": "42"}},
			running("42"),
			done("42", StatusFailed),
		},
	}

	exec, timedOut, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{},
		PollConfig{Timeout: time.Second, Interval: time.Nanosecond})
	if err != nil {
		t.Fatalf("runJobAndWait failed: %v", err)
	}
	if timedOut {
		t.Error("Expected no timeout")
	}
	if exec.Status != StatusFailed {
		t.Errorf("Expected failed, got %q", exec.Status)
	}
	if api.fetches != 3 {
		t.Errorf("Expected 3 status fetches, got %d", api.fetches)
	}
}

func TestRunJobAndWaitMissingStatusMidLoopWaits(t *testing.T) {
	t.Parallel()
	// Only the first poll gets the immediate re-fetch on a missing status.
	// A status that goes missing later must wait a full interval like any
	// other non-terminal state, here pushing the loop past its deadline
	// before the terminal reply is ever fetched.
	api := &fakeExecutionAPI{
		submitted: running("42"),
		polls: []*Execution{
			running("42"),
			{ID: "42", Attrs: map[string]string{"id": "42"}},
			done("42", StatusFailed),
		},
	}

	exec, timedOut, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{},
		PollConfig{Timeout: 500 * time.Millisecond, Interval: 300 * time.Millisecond})
	if err != nil {
		t.Fatalf("runJobAndWait failed: %v", err)
	}
	if !timedOut {
		t.Fatal("Expected timeout, the missing status must not skip the wait")
	}
	if exec.Status.Terminal() {
		t.Errorf("Expected a non-terminal execution, got %q", exec.Status)
	}
	if api.fetches != 2 {
		t.Errorf("Expected 2 status fetches, got %d", api.fetches)
	}
}

func TestRunJobAndWaitTimeout(t *testing.T) {
	t.Parallel()
	api := &fakeExecutionAPI{
		submitted: running("42"),
		polls:     []*Execution{running("42")},
	}

	exec, timedOut, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{},
		PollConfig{Timeout: 200 * time.Millisecond, Interval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Expected no error on timeout, got %v", err)
	}
	if !timedOut {
		t.Fatal("Expected timeout to be reported")
	}
	if exec == nil || exec.Status != StatusRunning {
		t.Errorf("Expected last observed execution, got %v", exec)
	}
	if api.fetches == 0 {
		t.Error("Expected at least one status fetch before timing out")
	}
}

func TestRunJobAndWaitNegativeTimeout(t *testing.T) {
	t.Parallel()
	api := &fakeExecutionAPI{
		submitted: running("42"),
		polls:     []*Execution{running("42")},
	}

	exec, timedOut, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{},
		PollConfig{Timeout: -time.Second, Interval: time.Nanosecond})
	if err != nil {
		t.Fatalf("runJobAndWait failed: %v", err)
	}
	if !timedOut {
		t.Error("Expected timeout with a negative timeout")
	}
	if api.fetches != 0 {
		t.Errorf("Expected no status fetches, got %d", api.fetches)
	}
	if exec.ID != "42" {
		t.Errorf("Expected the submitted execution back, got %v", exec)
	}
}

func TestRunJobAndWaitMissingSubmitID(t *testing.T) {
	t.Parallel()
	api := &fakeExecutionAPI{submitted: &Execution{Status: StatusRunning}}

	_, _, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{}, PollConfig{})
	if !errors.Is(err, apperrors.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestRunJobAndWaitPollError(t *testing.T) {
	t.Parallel()
	pollErr := apperrors.HTTPStatus(500)
	api := &fakeExecutionAPI{
		submitted: running("42"),
		polls:     []*Execution{nil},
		pollErrs:  []error{pollErr},
	}

	_, _, err := runJobAndWait(context.Background(), api, "j-1", RunJobOptions{},
		PollConfig{Timeout: time.Second, Interval: time.Nanosecond})
	if !errors.Is(err, apperrors.ErrHTTP) {
		t.Errorf("Expected ErrHTTP, got %v", err)
	}
}

func TestRunJobAndWaitContextCancel(t *testing.T) {
	t.Parallel()
	api := &fakeExecutionAPI{
		submitted: running("42"),
		polls:     []*Execution{running("42")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := runJobAndWait(ctx, api, "j-1", RunJobOptions{},
		PollConfig{Timeout: time.Minute, Interval: time.Minute})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPollConfigDefaults(t *testing.T) {
	t.Parallel()
	got := PollConfig{}.withDefaults()
	if got.Timeout != DefaultPollTimeout || got.Interval != DefaultPollInterval {
		t.Errorf("Expected defaults, got %+v", got)
	}

	explicit := PollConfig{Timeout: time.Second, Interval: 0}
	if got := explicit.withDefaults(); got != explicit {
		t.Errorf("Expected explicit config untouched, got %+v", got)
	}
}

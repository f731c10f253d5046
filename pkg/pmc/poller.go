package pmc

import (
	"fmt"
	"time"
)

// Default polling settings.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 10 * time.Minute
)

// PollOptions configures PollUntil. A nil options value means defaults; a
// non-nil value is taken literally, so a zero Interval really is a busy
// loop and a zero Timeout expires after the first probe.
type PollOptions[S any] struct {
	// Interval is the sleep between probes.
	Interval time.Duration

	// Timeout bounds the whole poll, wall-clock, measured from the call's
	// own start.
	Timeout time.Duration

	// Progress extracts a completion percentage for observability. It never
	// influences termination.
	Progress func(S) *int

	// OnUpdate is invoked with every observed status. It is trusted caller
	// code: whatever it does, including panicking, is the caller's problem.
	OnUpdate func(S)
}

// DefaultPollOptions returns the standard polling configuration.
func DefaultPollOptions[S any]() *PollOptions[S] {
	return &PollOptions[S]{
		Interval: DefaultPollInterval,
		Timeout:  DefaultPollTimeout,
	}
}

// PollUntil blocks the calling goroutine, repeatedly invoking getStatus
// until isDone approves a status or the timeout elapses. The final status is
// returned in both cases; on timeout the error is a *PollTimeoutError
// carrying the timeout and the last observed status, which is distinct from
// a definitive failure: the remote operation may still be running.
//
// The poller has no notion of "failed", only "done"; interpreting terminal
// success versus failure is the caller's job. There is likewise no built-in
// cancellation beyond the timeout: callers needing it express cancellation
// through getStatus (typically a closure over a context whose transport
// call fails once canceled) or through isDone. Errors from getStatus
// propagate immediately.
func PollUntil[S any](getStatus func() (S, error), isDone func(S) bool, opts *PollOptions[S]) (S, error) {
	var zero S

	if getStatus == nil {
		return zero, ErrNilStatusFunc
	}

	if isDone == nil {
		return zero, ErrNilDoneFunc
	}

	if opts == nil {
		opts = DefaultPollOptions[S]()
	}

	start := time.Now()

	for {
		status, err := getStatus()
		if err != nil {
			return zero, fmt.Errorf("getting status: %w", err)
		}

		if opts.OnUpdate != nil {
			opts.OnUpdate(status)
		}

		if opts.Progress != nil {
			_ = opts.Progress(status)
		}

		if isDone(status) {
			return status, nil
		}

		if time.Since(start) > opts.Timeout {
			return status, &PollTimeoutError{Timeout: opts.Timeout, LastStatus: status}
		}

		time.Sleep(opts.Interval)
	}
}

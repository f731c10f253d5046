package pmc

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Default coordinator settings.
const (
	DefaultMaxRetries  = 3
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultBatchPath   = "/$batch"
)

// DefaultRetryStatuses returns the statuses treated as transient.
func DefaultRetryStatuses() map[int]bool {
	return map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}
}

// SendOptions configures batch-level retry behavior. Batch retry is distinct
// from transport retry: the transport retries whole HTTP calls that failed,
// the coordinator retries individual operations that came back transient
// inside an otherwise successful response.
type SendOptions struct {
	// MaxRetries is the per-operation retry budget. Zero means a single
	// round with no retries.
	MaxRetries int

	// RetryStatuses are the per-operation statuses considered transient.
	RetryStatuses map[int]bool

	// BaseBackoff is the first inter-round sleep; it doubles each round.
	BaseBackoff time.Duration

	// Path is the batch endpoint posted to.
	Path string
}

// DefaultSendOptions returns the standard coordinator configuration.
func DefaultSendOptions() *SendOptions {
	return &SendOptions{
		MaxRetries:    DefaultMaxRetries,
		RetryStatuses: DefaultRetryStatuses(),
		BaseBackoff:   DefaultBaseBackoff,
		Path:          DefaultBatchPath,
	}
}

// SendBatch drives repeated encode/send/decode rounds until every operation
// has a final outcome.
//
// Each round encodes the still-pending operations in their original relative
// order and posts them as one multipart request. Operations whose decoded
// status is transient are requeued, unmodified, until their retry budget is
// spent; everything else is final on first sight. A pending operation with
// no decoded counterpart is finalized as MissingResponse, and one whose
// budget ran out as RetryExhausted. The returned result holds exactly one
// entry per input operation, sorted by operation index, together with the
// retry counts of retried operations and the number of rounds executed.
//
// Per-operation failure is represented as data; SendBatch only returns an
// error for programmer mistakes or when the transport itself fails, in which
// case the transport error propagates unmodified beneath the wrap.
func SendBatch(ctx context.Context, transport Transport, ops []Operation, opts *SendOptions) (*BatchSendResult, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	if opts == nil {
		opts = DefaultSendOptions()
	}

	retryStatuses := opts.RetryStatuses
	if retryStatuses == nil {
		retryStatuses = DefaultRetryStatuses()
	}

	path := opts.Path
	if path == "" {
		path = DefaultBatchPath
	}

	final := make(map[int]OperationResult, len(ops))
	retryCounts := map[int]int{}

	pending := make([]int, len(ops))
	for i := range ops {
		pending[i] = i
	}

	attempts := 0

	for len(pending) > 0 {
		attempts++

		pendingOps := make([]Operation, len(pending))
		for k, idx := range pending {
			pendingOps[k] = ops[idx]
		}

		boundary, body, err := BuildBatch(pendingOps)
		if err != nil {
			return nil, err
		}

		headers := map[string]string{
			"Content-Type": BatchContentType(boundary),
			"Accept":       "application/json",
		}

		resp, err := transport.Post(ctx, path, headers, body)
		if err != nil {
			return nil, fmt.Errorf("posting batch round %d: %w", attempts, err)
		}

		decoded := ParseBatchResponse(resp.Headers.Get("Content-Type"), resp.Body)
		resolved := correlate(decoded, len(pending))

		var next []int

		for k, idx := range pending {
			result := resolved[k]

			switch {
			case result == nil:
				final[idx] = OperationResult{
					OperationIndex: idx,
					Reason:         ReasonMissingResponse,
				}
			case retryStatuses[result.StatusCode]:
				if retryCounts[idx] < opts.MaxRetries {
					retryCounts[idx]++
					next = append(next, idx)

					continue
				}

				final[idx] = OperationResult{
					OperationIndex: idx,
					Reason:         ReasonRetryExhausted,
				}
			default:
				result.OperationIndex = idx
				final[idx] = *result
			}
		}

		pending = next

		if len(pending) > 0 && opts.BaseBackoff > 0 {
			time.Sleep(backoffDelay(opts.BaseBackoff, attempts))
		}
	}

	ordered := make([]OperationResult, len(ops))
	for i := range ops {
		ordered[i] = final[i]
	}

	return &BatchSendResult{
		Operations:  ordered,
		RetryCounts: retryCounts,
		Attempts:    attempts,
	}, nil
}

// correlate maps decoded results back onto the round-local pending set.
//
// When every part carries a Content-ID, results are matched authoritatively:
// the k-th pending operation was encoded with Content-ID k+1, so a server
// that reorders parts cannot mis-attribute an outcome. If any part lacks a
// Content-ID the whole round falls back to a positional zip of arrival
// order against the pending set as submitted. Pending positions with no
// counterpart resolve to nil.
func correlate(decoded []OperationResult, pendingCount int) []*OperationResult {
	resolved := make([]*OperationResult, pendingCount)

	byID := true

	for i := range decoded {
		if decoded[i].ContentID == nil {
			byID = false

			break
		}
	}

	if byID && len(decoded) > 0 {
		byContentID := make(map[int]*OperationResult, len(decoded))
		for i := range decoded {
			byContentID[*decoded[i].ContentID] = &decoded[i]
		}

		for k := 0; k < pendingCount; k++ {
			resolved[k] = byContentID[k+1]
		}

		return resolved
	}

	for k := 0; k < pendingCount && k < len(decoded); k++ {
		resolved[k] = &decoded[k]
	}

	return resolved
}

// backoffDelay returns BaseBackoff * 2^(round-1).
func backoffDelay(base time.Duration, round int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(round-1)))
}

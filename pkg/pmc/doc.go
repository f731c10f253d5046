// Package pmc provides the core building blocks of the pmctl administration
// client: the multipart batch wire protocol, the partial-failure retry
// coordinator on top of it, a generic long-running-operation poller, and a
// pluggable metadata cache.
//
// # Batching
//
// Platform-management APIs accept many logical operations bundled into a
// single multipart/mixed request. BuildBatch serializes an ordered operation
// list into that wire format, grouping adjacent writes into atomic
// changesets; ParseBatchResponse decodes the multipart response into
// per-operation outcomes, tolerating malformed or dropped parts. SendBatch
// ties the two together, retrying only the operations that failed
// transiently while preserving caller-visible ordering and identity:
//
//	ops := []pmc.Operation{
//	  {Method: "PATCH", URL: "/api/data/v9.2/accounts(1)", Body: map[string]string{"name": "Contoso"}},
//	  {Method: "GET", URL: "/api/data/v9.2/accounts?$top=1"},
//	}
//	result, err := pmc.SendBatch(ctx, transport, ops, nil)
//	if err != nil { /* transport failed */ }
//	for _, r := range result.Operations { _ = r.StatusCode }
//
// Per-operation failure is data, not an error: callers aggregate
// OperationResult values into success/failure counts, and a single failing
// sub-operation never aborts the whole batch.
//
// # Polling
//
// PollUntil blocks until a caller-supplied predicate approves a status or a
// wall-clock timeout elapses, returning a *PollTimeoutError in the latter
// case. It underpins the operation monitor in the client package but is
// generic over any status type.
//
// # Errors
//
// Expected partial failure never surfaces as an error. Errors are reserved
// for programmer mistakes and for transport-level failures, which propagate
// unmodified beneath a wrap. Helpers such as IsNotFound and IsPollTimeout
// make it easy to branch on common cases.
package pmc

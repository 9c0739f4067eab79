// Package scheduler orchestrates batches of tool calls on behalf of the
// reasoning loop. Each call advances through a per-call state machine
// (scheduled, validating, awaiting approval, executing, then exactly one
// terminal state), with policy hooks fired around execution and approval
// handled as a genuine suspension point that never blocks other in-flight
// calls.
//
// Responses come back one per request, in submission order, regardless of
// completion order. Contiguous read-only calls run concurrently up to a
// configured limit; mutating calls run exclusively. A shared context cancels
// the whole batch cooperatively: calls that have not started resolve
// cancelled without executing, approval waiters are released, and running
// shell commands get a graceful grace period before forceful termination.
package scheduler

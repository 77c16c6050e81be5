package domain

import "errors"

// Sentinel errors for the conditions that must escalate past a single source
// task. Everything else is reported as a per-source error string and downgrades
// the scan to partial without aborting it.
var (
	// ErrQuotaExceeded signals a 429 from the aggregation API.
	ErrQuotaExceeded = errors.New("aggregation API quota exceeded")

	// ErrSequenceConflictExhausted signals that counter assignment lost the
	// insert race more times than the retry budget allows.
	ErrSequenceConflictExhausted = errors.New("sequence assignment retries exhausted")

	// ErrLedgerUnavailable signals that the durable store itself is unreachable.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

package domain

import "errors"

// Error taxonomy for the pricing core. Validation errors are rejected at
// write time and never stored; ledger errors are the only faults that
// propagate to callers as failures.
var (
	// ErrNotFound indicates a rule, segment, or resolution does not exist
	// for the tenant.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRule indicates a rule failed write-time validation
	// (bad priority, percentage out of bounds, inverted date window,
	// fields that do not belong to the rule kind).
	ErrInvalidRule = errors.New("invalid pricing rule")

	// ErrMalformedCriterion indicates a structurally broken criterion,
	// e.g. a between without exactly two bounds.
	ErrMalformedCriterion = errors.New("malformed criterion")

	// ErrInvalidOperatorForType indicates an operator applied to an
	// incompatible field type. Rejected at validation, never coerced.
	ErrInvalidOperatorForType = errors.New("invalid operator for field type")

	// ErrUnknownField indicates a criterion references a field outside the
	// known attribute set. Caught at validation so criteria cannot silently
	// never-match at evaluation time.
	ErrUnknownField = errors.New("unknown attribute field")

	// ErrApprovalPending indicates a commit attempt on a resolution still
	// waiting for an approval decision.
	ErrApprovalPending = errors.New("resolution approval pending")

	// ErrApprovalRejected indicates a commit attempt on a rejected
	// resolution. The order proceeds at full price.
	ErrApprovalRejected = errors.New("resolution was rejected")

	// ErrApprovalDecided indicates an approve/reject attempt on a
	// resolution that already reached a terminal approval state.
	ErrApprovalDecided = errors.New("resolution already decided")

	// ErrDuplicateCommit indicates the resolution id was already committed.
	// Detected at the ledger and swallowed as success at the API boundary.
	ErrDuplicateCommit = errors.New("duplicate ledger commit")

	// ErrLedgerUnavailable indicates the backing store rejected the commit.
	// The discount application is left unresolved; the caller may retry.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

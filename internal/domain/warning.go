package domain

import "time"

// WarningKind classifies non-fatal findings.
type WarningKind string

const (
	WarningAmbiguousReconciliation WarningKind = "AMBIGUOUS_RECONCILIATION"
	WarningUnmatchedSell           WarningKind = "UNMATCHED_SELL"
	WarningDuplicateAttachment     WarningKind = "DUPLICATE_ATTACHMENT"
	WarningUnmatchedWithholding    WarningKind = "UNMATCHED_WITHHOLDING"
	WarningUnknownLinkage          WarningKind = "UNKNOWN_LINKAGE"
	WarningStaleRate               WarningKind = "STALE_RATE"
	WarningConflictingDuplicate    WarningKind = "CONFLICTING_DUPLICATE"
)

// Warning is a recovered condition reported for audit. It never aborts an
// operation.
type Warning struct {
	Kind    WarningKind
	Message string
	Symbol  string
	Date    time.Time
	// Refs lists the identities involved, resolved choice first.
	Refs []string
}

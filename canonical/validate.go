package canonical

import "strings"

// ValidStatuses lists every legal Status token, in declaration order.
var ValidStatuses = []Status{
	StatusDraft, StatusReady, StatusReadyForReview, StatusNeedsWork,
	StatusApproved, StatusDeprecated,
}

// ValidPriorities lists every legal Priority token, in declaration order.
var ValidPriorities = []Priority{
	PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow,
}

// ValidExecutionStatuses lists every legal ExecutionStatus token.
var ValidExecutionStatuses = []ExecutionStatus{
	ExecutionPassed, ExecutionFailed, ExecutionBlocked,
	ExecutionNotApplicable, ExecutionOpen,
}

// NormalizeStatus returns s if it is one of ValidStatuses, else DefaultStatus.
// Every mapper must route vendor status tokens through this (or an
// equivalent per-vendor enum table) rather than assigning an unchecked
// string, so the status field invariant in spec.md §3 always holds.
func NormalizeStatus(s Status) Status {
	for _, v := range ValidStatuses {
		if v == s {
			return s
		}
	}
	return DefaultStatus
}

// NormalizePriority returns p if it is one of ValidPriorities, else DefaultPriority.
func NormalizePriority(p Priority) Priority {
	for _, v := range ValidPriorities {
		if v == p {
			return p
		}
	}
	return DefaultPriority
}

// NormalizeExecutionStatus returns s if valid, else DefaultExecutionStatus.
func NormalizeExecutionStatus(s ExecutionStatus) ExecutionStatus {
	for _, v := range ValidExecutionStatuses {
		if v == s {
			return s
		}
	}
	return DefaultExecutionStatus
}

// NewTestCase constructs a TestCase with every required default filled in,
// so a mapper can build one field-by-field and never produce a value that
// fails the canonical invariants (Mapper Rule 1 — Total).
func NewTestCase(id string) *TestCase {
	return &TestCase{
		ID:       id,
		Status:   DefaultStatus,
		Priority: DefaultPriority,
	}
}

// Renumber reassigns Sequence 1..n in the existing slice order, restoring
// the step-ordering invariant after edits (e.g. a deleted step).
func Renumber(steps []TestStep) []TestStep {
	for i := range steps {
		steps[i].Sequence = i + 1
	}
	return steps
}

// FolderPath joins ancestor names the way Folder.Path must be built:
// slash-delimited, root first, no leading slash.
func FolderPath(ancestorNamesRootFirst ...string) string {
	return strings.Join(ancestorNamesRootFirst, "/")
}

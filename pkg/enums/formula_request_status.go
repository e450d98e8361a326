package enums

import "fmt"

// FormulaRequestStatus tracks a pending formula request through review.
// PENDING moves to APPROVED or REJECTED; both are terminal.
type FormulaRequestStatus string

const (
	FormulaRequestStatusPending  FormulaRequestStatus = "PENDING"
	FormulaRequestStatusApproved FormulaRequestStatus = "APPROVED"
	FormulaRequestStatusRejected FormulaRequestStatus = "REJECTED"
)

var validFormulaRequestStatuses = []FormulaRequestStatus{
	FormulaRequestStatusPending,
	FormulaRequestStatusApproved,
	FormulaRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s FormulaRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known FormulaRequestStatus.
func (s FormulaRequestStatus) IsValid() bool {
	for _, candidate := range validFormulaRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s FormulaRequestStatus) IsTerminal() bool {
	return s == FormulaRequestStatusApproved || s == FormulaRequestStatusRejected
}

// ParseFormulaRequestStatus converts raw input into a FormulaRequestStatus.
func ParseFormulaRequestStatus(value string) (FormulaRequestStatus, error) {
	for _, candidate := range validFormulaRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid formula request status %q", value)
}

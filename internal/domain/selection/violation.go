package selection

import (
	"fmt"
	"strings"
)

// Kind classifies a selection violation.
type Kind string

const (
	// KindConstraint reports a group whose required/min/max rules are not met.
	KindConstraint Kind = "constraint_violation"
	// KindInvalidOption reports an option that is unknown to, or unavailable
	// in, the group it was submitted under.
	KindInvalidOption Kind = "invalid_option_reference"
)

// Reasons attached to violations.
const (
	ReasonBelowMinimum    = "below minimum"
	ReasonAboveMaximum    = "above maximum"
	ReasonDuplicateOption = "duplicate option"
	ReasonUnknownOption   = "option not in group"
	ReasonUnavailable     = "option unavailable"
)

// Violation is a single non-fatal problem with a submitted selection.
// OptionID is empty for group-level constraint violations.
type Violation struct {
	Kind     Kind
	GroupID  string
	OptionID string
	Reason   string
}

func (v Violation) String() string {
	if v.OptionID == "" {
		return fmt.Sprintf("group %s: %s", v.GroupID, v.Reason)
	}
	return fmt.Sprintf("group %s option %s: %s", v.GroupID, v.OptionID, v.Reason)
}

// Violations is the complete, ordered batch of problems found in one
// validation pass. It is returned as an error.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid selection: %s", strings.Join(parts, "; "))
}

func constraint(groupID, reason string) Violation {
	return Violation{Kind: KindConstraint, GroupID: groupID, Reason: reason}
}

func invalidOption(groupID, optionID, reason string) Violation {
	return Violation{Kind: KindInvalidOption, GroupID: groupID, OptionID: optionID, Reason: reason}
}

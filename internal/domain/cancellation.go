package domain

import "strings"

// ReasonKind tags where a cancellation reason came from.
type ReasonKind string

const (
	ReasonKindPredefined ReasonKind = "predefined"
	ReasonKindCustom     ReasonKind = "custom"
)

// PredefinedReasons maps the fixed reason codes to their display text.
var PredefinedReasons = map[string]string{
	"vehicle_breakdown":       "Vehicle breakdown",
	"weather":                 "Bad weather conditions",
	"personal_emergency":      "Personal emergency",
	"road_closure":            "Road closure",
	"insufficient_passengers": "Not enough passengers",
	"schedule_change":         "Schedule change",
}

// CancellationReason is a resolved, non-empty cancellation reason.
type CancellationReason struct {
	Kind ReasonKind
	Code string // set for predefined reasons
	Text string
}

// ReasonSelection is the raw reason input. Exactly one of Predefined and
// Custom must be non-blank.
type ReasonSelection struct {
	Predefined string
	Custom     string
}

// Resolve validates the selection and returns the resolved reason.
// The boolean result is false when the selection is empty, ambiguous or
// names an unknown predefined code.
func (s ReasonSelection) Resolve() (CancellationReason, bool) {
	code := strings.TrimSpace(s.Predefined)
	custom := strings.TrimSpace(s.Custom)

	switch {
	case code != "" && custom != "":
		return CancellationReason{}, false
	case code != "":
		text, ok := PredefinedReasons[code]
		if !ok {
			return CancellationReason{}, false
		}
		return CancellationReason{Kind: ReasonKindPredefined, Code: code, Text: text}, true
	case custom != "":
		return CancellationReason{Kind: ReasonKindCustom, Text: custom}, true
	default:
		return CancellationReason{}, false
	}
}

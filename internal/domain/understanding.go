package domain

import (
	"encoding/json"
	"strings"
)

// UnderstandingKind is the base self-assessment category of an answer.
type UnderstandingKind int

const (
	Unset UnderstandingKind = iota
	Understood
	Ambiguous
	NotUnderstood
)

// Legacy labels as they appear in persisted data. The ambiguous label may be
// followed by ":<reason>" in its stored form.
const (
	LabelUnderstood    = "理解○"
	LabelAmbiguous     = "曖昧△"
	LabelNotUnderstood = "理解できていない×"
)

// Understanding is the parsed form of the stored understanding string.
// Reason is only meaningful for Ambiguous.
type Understanding struct {
	Kind   UnderstandingKind
	Reason string
}

// ParseUnderstanding splits a stored understanding string into its base
// category and optional reason. The base is matched by prefix, not equality,
// because some persisted records carry trailing annotation on the label
// itself. Unknown or empty strings parse as Unset.
func ParseUnderstanding(s string) Understanding {
	base := s
	reason := ""
	if idx := strings.Index(s, ":"); idx >= 0 {
		base = s[:idx]
		reason = s[idx+1:]
	}
	base = strings.TrimSpace(base)

	switch {
	case strings.HasPrefix(base, LabelUnderstood):
		return Understanding{Kind: Understood}
	case strings.HasPrefix(base, LabelAmbiguous):
		return Understanding{Kind: Ambiguous, Reason: reason}
	case strings.HasPrefix(base, LabelNotUnderstood):
		return Understanding{Kind: NotUnderstood}
	default:
		return Understanding{Kind: Unset}
	}
}

// String composes the legacy wire form: "<base>" or "<base>:<reason>".
// Unset composes to the empty string.
func (u Understanding) String() string {
	switch u.Kind {
	case Understood:
		return LabelUnderstood
	case Ambiguous:
		if u.Reason != "" {
			return LabelAmbiguous + ":" + u.Reason
		}
		return LabelAmbiguous
	case NotUnderstood:
		return LabelNotUnderstood
	default:
		return ""
	}
}

func (u Understanding) IsSet() bool { return u.Kind != Unset }

func (u Understanding) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *Understanding) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*u = ParseUnderstanding(s)
	return nil
}

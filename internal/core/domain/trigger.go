package domain

// TriggerMode selects how a target's outdatedness is decided beyond the
// default fingerprint comparison.
type TriggerMode string

const (
	// TriggerDefault applies the standard fingerprint comparison only.
	TriggerDefault TriggerMode = ""
	// TriggerAlways marks the target outdated on every run.
	TriggerAlways TriggerMode = "always"
	// TriggerNever marks the target up to date as long as any cache entry exists.
	TriggerNever TriggerMode = "never"
	// TriggerExpr evaluates a custom expression; the target is outdated when
	// the fingerprint of the expression's value differs from the last run.
	TriggerExpr TriggerMode = "expr"
)

// Trigger is a custom rebuild rule attached to a target.
type Trigger struct {
	Mode TriggerMode
	Expr string
}

// ParseTrigger interprets a plan trigger column. The keywords "always" and
// "never" select the degenerate modes; anything else is treated as a custom
// expression whose syntax the config resolver validates.
func ParseTrigger(s string) Trigger {
	switch s {
	case "":
		return Trigger{Mode: TriggerDefault}
	case string(TriggerAlways):
		return Trigger{Mode: TriggerAlways}
	case string(TriggerNever):
		return Trigger{Mode: TriggerNever}
	default:
		return Trigger{Mode: TriggerExpr, Expr: s}
	}
}

package pipeline

import "github.com/kailas-cloud/expatscout/internal/domain/intent"

// Policy selects the pipeline stages applied to one intent's records.
type Policy struct {
	ValidateLinks   bool
	RequireDate     bool
	DropPast        bool
	Dedupe          bool
	DedupeByCompany bool
}

// Override replaces individual Policy fields. Nil fields keep the base value.
type Override struct {
	ValidateLinks   *bool
	RequireDate     *bool
	DropPast        *bool
	Dedupe          *bool
	DedupeByCompany *bool
}

// Apply returns p with o's non-nil fields applied.
func (p Policy) Apply(o Override) Policy {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.ValidateLinks, o.ValidateLinks)
	set(&p.RequireDate, o.RequireDate)
	set(&p.DropPast, o.DropPast)
	set(&p.Dedupe, o.Dedupe)
	set(&p.DedupeByCompany, o.DedupeByCompany)
	return p
}

// DefaultPolicies returns the built-in policy per intent.
//
// Job postings carry relative dates ("3 days ago"), so date requirements
// would discard every one of them.
func DefaultPolicies() map[intent.Intent]Policy {
	return map[intent.Intent]Policy{
		intent.Event: {
			ValidateLinks: true,
			RequireDate:   true,
			DropPast:      true,
			Dedupe:        true,
		},
		intent.Job: {
			ValidateLinks:   true,
			Dedupe:          true,
			DedupeByCompany: true,
		},
		intent.General: {},
	}
}

// Policies merges overrides keyed by intent name into the defaults.
// Unknown intent names are ignored.
func Policies(overrides map[string]Override) map[intent.Intent]Policy {
	out := DefaultPolicies()
	for name, o := range overrides {
		in := intent.Intent(name)
		if !in.IsValid() {
			continue
		}
		out[in] = out[in].Apply(o)
	}
	return out
}

package syncer

import "github.com/cdd-platform/cdd/internal/project"

// EntityKind distinguishes the two kinds of synchronized entities.
type EntityKind string

const (
	KindRecord  EntityKind = "record"
	KindRequest EntityKind = "request"
)

// ActionType is the directive sent to an adaptor.
type ActionType string

const (
	// ActionDelete removes an entity the specification no longer declares.
	ActionDelete ActionType = "delete"
	// ActionUpsert inserts or updates an entity; the adaptor decides which.
	ActionUpsert ActionType = "upsert"
)

// Action is one planned adaptor call.
type Action struct {
	Type ActionType `json:"type"`
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`

	// Exists reports whether the adaptor already has an entity with this
	// name. Only meaningful for upserts.
	Exists bool `json:"exists"`

	Record  *project.DataRecord `json:"-"`
	Request *project.Request    `json:"-"`
}

// Counts tallies actions by effect.
type Counts struct {
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

func (c *Counts) add(a Action) {
	switch {
	case a.Type == ActionDelete:
		c.Deleted++
	case a.Exists:
		c.Updated++
	default:
		c.Inserted++
	}
}

// Total returns the number of counted actions.
func (c Counts) Total() int {
	return c.Deleted + c.Inserted + c.Updated
}

// Plan is the ordered list of calls that brings an adaptor in line with the
// specification.
type Plan struct {
	Actions []Action `json:"actions"`
	Summary Counts   `json:"summary"`
}

func newPlan(actions []Action) *Plan {
	plan := &Plan{Actions: actions}
	for _, a := range actions {
		plan.Summary.add(a)
	}
	return plan
}

// diff computes the three-way difference for one entity kind: deletes for
// live-only names in live order, then upserts for spec-only names, then
// upserts for names present on both sides, each in spec order.
func diff[T any](kind EntityKind, spec, live []T, name func(T) string, attach func(*Action, T)) []Action {
	specNames := make(map[string]bool, len(spec))
	for _, s := range spec {
		specNames[name(s)] = true
	}
	liveNames := make(map[string]bool, len(live))
	for _, l := range live {
		liveNames[name(l)] = true
	}

	var actions []Action
	deleted := make(map[string]bool)
	for _, l := range live {
		n := name(l)
		if specNames[n] || deleted[n] {
			continue
		}
		deleted[n] = true
		actions = append(actions, Action{Type: ActionDelete, Kind: kind, Name: n})
	}

	for _, exists := range []bool{false, true} {
		for _, s := range spec {
			if liveNames[name(s)] != exists {
				continue
			}
			a := Action{Type: ActionUpsert, Kind: kind, Name: name(s), Exists: exists}
			attach(&a, s)
			actions = append(actions, a)
		}
	}

	return actions
}

func recordName(r project.DataRecord) string { return r.Name }
func requestName(r project.Request) string   { return r.Name }

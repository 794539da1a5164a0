package migrations

import "sort"

var registered []Step

// register appends a step to the module-level registry. Called from each
// migration file's init so that the ordered list can be assembled without
// a hand-maintained aggregator (mirrors the teacher's migrationsList, but
// built via init() instead of a literal slice so each file is
// self-contained).
func register(s Step) {
	registered = append(registered, s)
}

// All returns every registered migration step, sorted by version.
func All() []Step {
	out := make([]Step, len(registered))
	copy(out, registered)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

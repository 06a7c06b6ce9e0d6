package form

// State is a session's persisted answers, keyed by flattened field name.
// Repeater pages store a []any of item maps under the repeat name; file
// upload pages store the upload bookkeeping map under the page path.
type State map[string]any

// Merge returns a new state with the update applied on top of s. Nested
// maps merge key-by-key; arrays and scalars overwrite. Neither input is
// mutated.
func (s State) Merge(update map[string]any) State {
	out := make(State, len(s)+len(update))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range update {
		existing, haveExisting := out[k]
		existingMap, existingIsMap := existing.(map[string]any)
		updateMap, updateIsMap := v.(map[string]any)
		if haveExisting && existingIsMap && updateIsMap {
			out[k] = mergeMaps(existingMap, updateMap)
			continue
		}
		out[k] = v
	}
	return out
}

func mergeMaps(base, update map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(update))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range update {
		baseMap, baseIsMap := out[k].(map[string]any)
		updateMap, updateIsMap := v.(map[string]any)
		if baseIsMap && updateIsMap {
			out[k] = mergeMaps(baseMap, updateMap)
			continue
		}
		out[k] = v
	}
	return out
}

// Copy returns a shallow copy of the state.
func (s State) Copy() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

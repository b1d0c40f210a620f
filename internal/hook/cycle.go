package hook

import "sort"

// detectCycle runs a depth-first traversal over the dependency edges,
// tracking both a "currently visiting" stack and a "fully visited" set.
// It returns the IDs forming the first cycle found, reconstructed via
// parent links so callers get the complete membership rather than just
// the offending edge. Returns nil when the graph is acyclic.
func detectCycle(deps map[string][]string) []string {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	parent := make(map[string]string)

	var dfs func(id string) []string
	dfs = func(id string) []string {
		visited[id] = true
		visiting[id] = true

		for _, depID := range deps[id] {
			if !visited[depID] {
				parent[depID] = id
				if cycle := dfs(depID); cycle != nil {
					return cycle
				}
			} else if visiting[depID] {
				// Found a back edge; walk the parent chain to rebuild
				// the full cycle membership.
				cycle := []string{depID}
				current := id
				for current != depID {
					cycle = append([]string{current}, cycle...)
					current = parent[current]
				}
				cycle = append([]string{depID}, cycle...)
				return cycle
			}
		}

		visiting[id] = false
		return nil
	}

	// Deterministic traversal order keeps error messages stable.
	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !visited[id] {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// cycleMembers returns the unique IDs participating in a cycle path.
// The path returned by detectCycle repeats the entry node at both ends.
func cycleMembers(cycle []string) []string {
	seen := make(map[string]bool, len(cycle))
	var members []string
	for _, id := range cycle {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	sort.Strings(members)
	return members
}

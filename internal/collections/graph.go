// Package collections implements nested collections of books and other
// collections, including the rules that keep the nesting acyclic.
package collections

import (
	"context"
	"fmt"
)

// maxDepth bounds the walk so a corrupt graph cannot loop forever.
const maxDepth = 64

// ChildLookup returns the IDs of collections nested directly inside collID.
type ChildLookup interface {
	ChildCollections(ctx context.Context, collID string) ([]string, error)
}

// WouldCycle reports whether nesting child inside parent would make parent
// reachable from itself.
func WouldCycle(ctx context.Context, lookup ChildLookup, parentID, childID string) (bool, error) {
	if parentID == childID {
		return true, nil
	}
	visited := map[string]bool{childID: true}
	frontier := []string{childID}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= maxDepth {
			return false, fmt.Errorf("collection nesting deeper than %d levels", maxDepth)
		}
		var next []string
		for _, id := range frontier {
			children, err := lookup.ChildCollections(ctx, id)
			if err != nil {
				return false, fmt.Errorf("load children of %s: %w", id, err)
			}
			for _, c := range children {
				if c == parentID {
					return true, nil
				}
				if !visited[c] {
					visited[c] = true
					next = append(next, c)
				}
			}
		}
		frontier = next
	}
	return false, nil
}

package collections

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string][]string

func (m mapLookup) ChildCollections(_ context.Context, id string) ([]string, error) {
	if id == "broken" {
		return nil, errors.New("read failed")
	}
	return m[id], nil
}

func TestWouldCycle(t *testing.T) {
	// a -> b -> c, d is standalone, e <-> f already cyclic (corrupt data).
	graph := mapLookup{
		"a": {"b"},
		"b": {"c"},
		"e": {"f"},
		"f": {"e"},
	}
	ctx := context.Background()

	tests := []struct {
		name          string
		parent, child string
		want          bool
	}{
		{"self", "a", "a", true},
		{"direct back edge", "b", "a", true},
		{"transitive back edge", "c", "a", true},
		{"sibling", "d", "a", false},
		{"downward add", "a", "c", false},
		{"existing loop elsewhere terminates", "a", "e", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WouldCycle(ctx, graph, tt.parent, tt.child)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWouldCyclePropagatesLookupErrors(t *testing.T) {
	_, err := WouldCycle(context.Background(), mapLookup{"x": {"broken"}}, "p", "x")
	assert.ErrorContains(t, err, "read failed")
}

func TestWouldCycleDepthLimit(t *testing.T) {
	chain := mapLookup{}
	prev := "n0"
	for i := 1; i <= maxDepth+2; i++ {
		id := fmt.Sprintf("n%d", i)
		chain[prev] = []string{id}
		prev = id
	}
	_, err := WouldCycle(context.Background(), chain, "root", "n0")
	assert.Error(t, err)
}

package objinfo

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("A")
	assert.False(t, ok)

	m := Metadata{Name: "A", Category: "image", Output: []string{"IMAGE"}}
	c.Put("A", m)

	got, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, m, got)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Known("A"))
}

func TestCacheSnapshotIsCopy(t *testing.T) {
	c := NewCache()
	c.Put("A", Metadata{Name: "A"})

	snap := c.Snapshot()
	snap["B"] = Metadata{Name: "B"}
	delete(snap, "A")

	_, ok := c.Get("A")
	assert.True(t, ok)
	_, ok = c.Get("B")
	assert.False(t, ok)
}

func TestCacheFailedAndReady(t *testing.T) {
	c := NewCache()
	assert.False(t, c.IsReady())
	assert.False(t, c.Known("B"))

	c.MarkFailed("B")
	assert.True(t, c.Failed("B"))
	assert.True(t, c.Known("B"))
	_, ok := c.Get("B")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	c.MarkReady()
	assert.True(t, c.IsReady())
}

func TestCacheConcurrentWritersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "writers")
		categories := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), n, n).Draw(t, "categories")

		c := NewCache()
		var mismatches atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("node-%d", i)
				m := Metadata{Name: id, Category: categories[i]}
				c.Put(id, m)
				got, ok := c.Get(id)
				if !ok || got.Category != categories[i] {
					mismatches.Add(1)
				}
				_ = c.Snapshot()
			}(i)
		}
		wg.Wait()

		if mismatches.Load() != 0 {
			t.Fatalf("%d reads after put returned a different value", mismatches.Load())
		}
		snap := c.Snapshot()
		if len(snap) != n {
			t.Fatalf("snapshot has %d entries, want %d", len(snap), n)
		}
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("node-%d", i)
			if snap[id].Name != id || snap[id].Category != categories[i] {
				t.Fatalf("entry %s corrupted: %+v", id, snap[id])
			}
		}
	})
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInsertGroupUpdatesIndexAndLocation(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := New(now)

	later := now.Add(time.Hour)
	g := NewGroup(later, "Work")
	require.NoError(t, tr.InsertGroup(later, tr.Root, g))

	found, ok := tr.FindGroup(g.UUID)
	require.True(t, ok)
	require.Same(t, g, found)
	require.Equal(t, later, g.Times.LocationChanged)

	parent, ok := tr.ParentGroup(g.UUID)
	require.True(t, ok)
	require.Same(t, tr.Root, parent)
}

func TestDuplicateUUIDRejected(t *testing.T) {
	now := time.Now()
	tr := New(now)
	g := NewGroup(now, "A")
	require.NoError(t, tr.InsertGroup(now, tr.Root, g))

	dup := *g
	require.Error(t, tr.InsertGroup(now, tr.Root, &dup))
}

func TestTrashSemanticsMoveWhenEnabled(t *testing.T) {
	now := time.Now()
	tr := New(now)
	tr.Meta.RecycleBinEnabled = true

	e := NewEntry(now)
	require.NoError(t, tr.InsertEntry(now, tr.Root, e))

	later := now.Add(time.Minute)
	require.NoError(t, tr.DeleteEntry(later, e))

	parent, ok := tr.ParentGroup(e.UUID)
	require.True(t, ok)
	require.Equal(t, tr.Meta.RecycleBinUUID, parent.UUID)
	require.Equal(t, later, e.Times.LocationChanged)
	require.Empty(t, tr.Deleted.Items)
}

func TestTrashSemanticsHardDeleteWhenDisabled(t *testing.T) {
	now := time.Now()
	tr := New(now)
	tr.Meta.RecycleBinEnabled = false

	e := NewEntry(now)
	require.NoError(t, tr.InsertEntry(now, tr.Root, e))

	later := now.Add(time.Minute)
	require.NoError(t, tr.DeleteEntry(later, e))

	_, ok := tr.FindEntry(e.UUID)
	require.False(t, ok)
	when, ok := tr.Deleted.Get(e.UUID)
	require.True(t, ok)
	require.Equal(t, later, when)
}

// TestHistoryBoundsDropOldest implements spec.md §8 scenario S5: 100
// password mutations with historyMaxItems=10 leaves a length-10
// history whose oldest entry is the 91st prior password (counting the
// initial empty one), i.e. the value set by iteration 89.
func TestHistoryBoundsDropOldest(t *testing.T) {
	now := time.Now()
	tr := New(now)
	tr.Meta.HistoryMaxItems = 10
	tr.Meta.HistoryMaxSize = -1

	e := NewEntry(now)
	require.NoError(t, tr.InsertEntry(now, tr.Root, e))

	for i := 0; i < 100; i++ {
		at := now.Add(time.Duration(i+1) * time.Second)
		tr.MutateEntry(at, e, func(at time.Time, e *Entry) {
			e.SetString(at, "Password", passwordForIteration(i))
		})
	}

	require.Len(t, e.History, 10)
	require.Equal(t, passwordForIteration(89), e.History[0].Password())
	require.Equal(t, passwordForIteration(98), e.History[9].Password())
	require.Equal(t, passwordForIteration(99), e.Password())
}

func passwordForIteration(i int) string {
	return string(rune('a' + i%26))
}

func TestHistoryDisabledWhenMaxItemsZero(t *testing.T) {
	now := time.Now()
	tr := New(now)
	tr.Meta.HistoryMaxItems = 0

	e := NewEntry(now)
	require.NoError(t, tr.InsertEntry(now, tr.Root, e))
	tr.MutateEntry(now.Add(time.Second), e, func(at time.Time, e *Entry) {
		e.SetString(at, "Password", "x")
	})
	require.Empty(t, e.History)
}

// TestMergeLaterTimestampWins implements spec.md §8 scenario S6.
func TestMergeLaterTimestampWins(t *testing.T) {
	base := time.Now()
	a := New(base)
	e := NewEntry(base)
	require.NoError(t, a.InsertEntry(base, a.Root, e))

	b := New(base)
	b.Root.UUID = a.Root.UUID
	b.reindex()
	be := *e
	be.Strings = map[string]StringField{"Title": {Value: e.Title()}}
	bClone := be.clone()
	bClone.UUID = e.UUID
	require.NoError(t, b.InsertEntry(base, b.Root, bClone))

	aTime := base.Add(time.Minute)
	a.MutateEntry(aTime, e, func(at time.Time, e *Entry) { e.SetString(at, "Title", "A-title") })

	bTime := base.Add(2 * time.Minute)
	bClone.SetString(bTime, "Title", "B-title")

	Merge(a, b, base.Add(3*time.Minute))

	merged, ok := a.FindEntry(e.UUID)
	require.True(t, ok)
	require.Equal(t, "B-title", merged.Title())
	require.NotEmpty(t, merged.History)
	found := false
	for _, h := range merged.History {
		if h.Title() == "A-title" {
			found = true
		}
	}
	require.True(t, found, "earlier-timestamped title should survive in history")
}

// TestMergeNestedNewSubtreePreservesParent guards against merging b's
// new groups in map-iteration order: a child group whose parent is
// also new in this merge must land under that new parent in a, not
// fall back to Root because the parent hadn't been inserted yet.
func TestMergeNestedNewSubtreePreservesParent(t *testing.T) {
	base := time.Now()
	a := New(base)

	b := New(base)
	b.Root.UUID = a.Root.UUID
	b.reindex()

	parent := NewGroup(base, "Parent")
	require.NoError(t, b.InsertGroup(base, b.Root, parent))
	child := NewGroup(base, "Child")
	require.NoError(t, b.InsertGroup(base, parent, child))
	grandchild := NewGroup(base, "Grandchild")
	require.NoError(t, b.InsertGroup(base, child, grandchild))

	Merge(a, b, base.Add(time.Minute))

	mergedChild, ok := a.FindGroup(child.UUID)
	require.True(t, ok)
	mergedParent, ok := a.ParentGroup(mergedChild.UUID)
	require.True(t, ok)
	require.Equal(t, parent.UUID, mergedParent.UUID)

	mergedGrandchild, ok := a.FindGroup(grandchild.UUID)
	require.True(t, ok)
	mergedChildAsParent, ok := a.ParentGroup(mergedGrandchild.UUID)
	require.True(t, ok)
	require.Equal(t, child.UUID, mergedChildAsParent.UUID)
}

// TestMergeIdempotent implements spec.md §8 property 7.
func TestMergeIdempotent(t *testing.T) {
	base := time.Now()
	a := New(base)
	e := NewEntry(base)
	require.NoError(t, a.InsertEntry(base, a.Root, e))

	b := New(base)
	b.Root.UUID = a.Root.UUID
	g := NewGroup(base, "Shared")
	require.NoError(t, b.InsertGroup(base, b.Root, g))

	Merge(a, b, base.Add(time.Minute))
	firstGroupCount := len(a.groupIndex)
	firstEntryCount := len(a.entryIndex)

	Merge(a, b, base.Add(2*time.Minute))
	require.Equal(t, firstGroupCount, len(a.groupIndex))
	require.Equal(t, firstEntryCount, len(a.entryIndex))
}

func TestBinaryPoolDedup(t *testing.T) {
	tr := New(time.Now())
	b1 := tr.AddBinary([]byte("same content"))
	b2 := tr.AddBinary([]byte("same content"))
	require.Same(t, b1, b2)
	require.Len(t, tr.Binaries(), 1)
}

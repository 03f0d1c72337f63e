// Package model is the in-memory KDBX object model: Tree, Group,
// Entry, MetaData, Binary, CustomIcon and DeletedObjects, plus the
// mutation operations and invariants from spec.md §3/§4.8. It is
// grounded on the teacher's trie/ package (a node tree with hashing
// and controlled mutation) and core/state's changeset-style
// modification recording, generalized from Ethereum accounts to
// KeePass nodes.
package model

import (
	"time"

	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// Tree owns exactly one root Group and the tree-wide MetaData
// (spec.md §3). Parent back-references are never owning pointers
// (spec.md §9): Tree keeps a UUID->parent-UUID index instead, so
// ownership flows strictly root -> children.
type Tree struct {
	Root *Group
	Meta MetaData
	Deleted DeletedObjects

	groupIndex map[common.UUID]*Group
	entryIndex map[common.UUID]*Entry
	parentOf   map[common.UUID]common.UUID // node UUID -> owning group UUID
	binaries   map[BinaryHash]*Binary
}

// New constructs a Tree with a fresh root group and default metadata.
func New(now time.Time) *Tree {
	root := NewGroup(now, "New Database")
	t := &Tree{
		Root: root,
		Meta: DefaultMetaData(now, nil),
	}
	t.reindex()
	return t
}

// reindex rebuilds every lookup index from Root by walking the tree;
// called once after Load and after any structural mutation that this
// package's own API doesn't maintain incrementally (merge does not
// need it: it attaches nodes through InsertGroup/InsertEntry, which
// patch the indices).
func (t *Tree) reindex() {
	t.groupIndex = map[common.UUID]*Group{}
	t.entryIndex = map[common.UUID]*Entry{}
	t.parentOf = map[common.UUID]common.UUID{}
	if t.Root == nil {
		return
	}
	var walk func(g *Group)
	walk = func(g *Group) {
		t.groupIndex[g.UUID] = g
		for _, child := range g.Groups {
			t.parentOf[child.UUID] = g.UUID
			walk(child)
		}
		for _, e := range g.Entries {
			t.entryIndex[e.UUID] = e
			t.parentOf[e.UUID] = g.UUID
		}
	}
	walk(t.Root)
}

// Reindex is the exported form of reindex, called by the orchestrator
// after constructing a Tree from parsed XML.
func (t *Tree) Reindex() { t.reindex() }

// FindGroup looks up a group by UUID.
func (t *Tree) FindGroup(id common.UUID) (*Group, bool) {
	g, ok := t.groupIndex[id]
	return g, ok
}

// FindEntry looks up an entry by UUID (live entries only, not history
// snapshots, which are not independently addressable).
func (t *Tree) FindEntry(id common.UUID) (*Entry, bool) {
	e, ok := t.entryIndex[id]
	return e, ok
}

// ParentGroup returns the group a node is currently attached under.
func (t *Tree) ParentGroup(nodeUUID common.UUID) (*Group, bool) {
	parentID, ok := t.parentOf[nodeUUID]
	if !ok {
		return nil, false
	}
	return t.FindGroup(parentID)
}

// checkUUIDFree enforces invariant 1: UUIDs unique across all nodes
// and custom icons.
func (t *Tree) checkUUIDFree(id common.UUID) error {
	if _, ok := t.groupIndex[id]; ok {
		return kderr.New(kderr.WriteFailed, "duplicate group UUID")
	}
	if _, ok := t.entryIndex[id]; ok {
		return kderr.New(kderr.WriteFailed, "duplicate entry UUID")
	}
	if _, ok := t.Meta.FindCustomIcon(id); ok {
		return kderr.New(kderr.WriteFailed, "UUID collides with a custom icon")
	}
	return nil
}

// InsertGroup attaches a newly-constructed group as a child of parent,
// updating LocationChanged and the index (spec.md §3's lifecycle
// note: "attachment to a parent Group is an explicit operation that
// updates locationChanged").
func (t *Tree) InsertGroup(now time.Time, parent *Group, g *Group) error {
	if err := t.checkUUIDFree(g.UUID); err != nil {
		return err
	}
	parent.Groups = append(parent.Groups, g)
	g.markLocationChanged(now)
	t.groupIndex[g.UUID] = g
	t.parentOf[g.UUID] = parent.UUID
	return nil
}

// InsertEntry attaches a newly-constructed entry as a child of parent.
func (t *Tree) InsertEntry(now time.Time, parent *Group, e *Entry) error {
	if err := t.checkUUIDFree(e.UUID); err != nil {
		return err
	}
	parent.Entries = append(parent.Entries, e)
	e.markLocationChanged(now)
	t.entryIndex[e.UUID] = e
	t.parentOf[e.UUID] = parent.UUID
	return nil
}

// MoveEntry reparents an existing, already-attached entry.
func (t *Tree) MoveEntry(now time.Time, e *Entry, newParent *Group) error {
	oldParent, ok := t.ParentGroup(e.UUID)
	if !ok {
		return kderr.New(kderr.WriteFailed, "entry is not attached to the tree")
	}
	oldParent.Entries = removeEntry(oldParent.Entries, e.UUID)
	newParent.Entries = append(newParent.Entries, e)
	t.parentOf[e.UUID] = newParent.UUID
	e.markLocationChanged(now)
	return nil
}

// MoveGroup reparents an existing, already-attached group.
func (t *Tree) MoveGroup(now time.Time, g *Group, newParent *Group) error {
	oldParent, ok := t.ParentGroup(g.UUID)
	if !ok {
		return kderr.New(kderr.WriteFailed, "group is not attached to the tree")
	}
	oldParent.Groups = removeGroup(oldParent.Groups, g.UUID)
	newParent.Groups = append(newParent.Groups, g)
	t.parentOf[g.UUID] = newParent.UUID
	g.markLocationChanged(now)
	return nil
}

func removeEntry(list []*Entry, id common.UUID) []*Entry {
	out := list[:0]
	for _, e := range list {
		if e.UUID != id {
			out = append(out, e)
		}
	}
	return out
}

func removeGroup(list []*Group, id common.UUID) []*Group {
	out := list[:0]
	for _, g := range list {
		if g.UUID != id {
			out = append(out, g)
		}
	}
	return out
}

// EnsureTrash creates the recycle-bin group under Root if it doesn't
// exist yet, returning it either way (spec.md §3 invariant 3). It does
// not check RecycleBinEnabled itself.
func (t *Tree) EnsureTrash(now time.Time) *Group {
	if !t.Meta.RecycleBinUUID.IsZero() {
		if g, ok := t.FindGroup(t.Meta.RecycleBinUUID); ok {
			return g
		}
	}
	trash := NewGroup(now, "Recycle Bin")
	_ = t.InsertGroup(now, t.Root, trash)
	t.Meta.RecycleBinUUID = trash.UUID
	t.Meta.RecycleBinChanged = now
	return trash
}

// DeleteEntry removes e per spec.md §4.8/§8 scenario S6's trash
// semantics: if Meta.RecycleBinEnabled, move it under the recycle bin (UUID stays
// live); otherwise hard-delete it and record a DeletedObjects entry.
func (t *Tree) DeleteEntry(now time.Time, e *Entry) error {
	parent, ok := t.ParentGroup(e.UUID)
	if !ok {
		return kderr.New(kderr.WriteFailed, "entry is not attached to the tree")
	}
	if t.Meta.RecycleBinEnabled {
		trash := t.EnsureTrash(now)
		if parent.UUID == trash.UUID {
			return nil // already in trash
		}
		return t.MoveEntry(now, e, trash)
	}
	parent.Entries = removeEntry(parent.Entries, e.UUID)
	delete(t.entryIndex, e.UUID)
	delete(t.parentOf, e.UUID)
	t.Deleted.Add(e.UUID, now)
	return nil
}

// DeleteGroup removes g and its entire subtree, per the same trash
// policy as DeleteEntry. Hard-deletion records a DeletedObjects entry
// for every node in the subtree, not just the group itself.
func (t *Tree) DeleteGroup(now time.Time, g *Group) error {
	if g == t.Root {
		return kderr.New(kderr.WriteFailed, "cannot delete the root group")
	}
	parent, ok := t.ParentGroup(g.UUID)
	if !ok {
		return kderr.New(kderr.WriteFailed, "group is not attached to the tree")
	}
	if t.Meta.RecycleBinEnabled {
		trash := t.EnsureTrash(now)
		if parent.UUID == trash.UUID || g.UUID == trash.UUID {
			return nil
		}
		return t.MoveGroup(now, g, trash)
	}
	parent.Groups = removeGroup(parent.Groups, g.UUID)
	t.hardDeleteSubtree(now, g)
	return nil
}

func (t *Tree) hardDeleteSubtree(now time.Time, g *Group) {
	for _, child := range g.Groups {
		t.hardDeleteSubtree(now, child)
	}
	for _, e := range g.Entries {
		delete(t.entryIndex, e.UUID)
		delete(t.parentOf, e.UUID)
		t.Deleted.Add(e.UUID, now)
	}
	delete(t.groupIndex, g.UUID)
	delete(t.parentOf, g.UUID)
	t.Deleted.Add(g.UUID, now)
}

// AddBinary interns data into the tree's binary pool, returning the
// existing Binary if content with the same hash is already pooled
// (spec.md §3 invariant 2).
func (t *Tree) AddBinary(data []byte) *Binary {
	if t.binaries == nil {
		t.binaries = map[BinaryHash]*Binary{}
	}
	b := NewBinary(data)
	if existing, ok := t.binaries[b.Hash]; ok {
		return existing
	}
	t.binaries[b.Hash] = b
	return b
}

// Binaries returns every Binary currently in the pool, in no
// particular order; the XML codec assigns pool indices on save.
func (t *Tree) Binaries() []*Binary {
	out := make([]*Binary, 0, len(t.binaries))
	for _, b := range t.binaries {
		out = append(out, b)
	}
	return out
}

// SetBinaryPool replaces the pool wholesale, used by the orchestrator
// when reconstructing a Tree from a parsed file (binaries are read
// before entries reference them).
func (t *Tree) SetBinaryPool(pool []*Binary) {
	t.binaries = map[BinaryHash]*Binary{}
	for _, b := range pool {
		t.binaries[b.Hash] = b
	}
}

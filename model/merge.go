package model

import (
	"sort"
	"time"

	"github.com/ledgerwatch/kdbxcore/common"
)

// Merge reconciles tree b into tree a in place, per spec.md §4.8: a
// node absent from a is cloned in at its mirrored location (falling
// back to Root if its parent is missing there too); a node present in
// both keeps whichever side has the later Modified timestamp live,
// pushing the other side into history. b's DeletedObjects records are
// merged into a's first, and a node of b is skipped when that merged
// log records its deletion no earlier than its Modified time; a node
// already live in a is not removed by a deletion record. Repeated
// application is idempotent (spec.md §8 property 7): once a reflects
// b, nothing compares strictly later on a second pass.
func Merge(a, b *Tree, now time.Time) {
	for _, bin := range b.Binaries() {
		a.AddBinary(bin.Data)
	}
	for _, ci := range b.Meta.CustomIcons {
		a.Meta.AddCustomIcon(ci)
	}
	for _, do := range b.Deleted.Items {
		a.Deleted.Add(do.UUID, do.When)
	}

	for _, g := range walkGroupsRootToLeaf(b.Root) {
		mergeGroupNode(a, b, g, now)
	}
	for _, e := range b.Root.Entries {
		mergeEntryNode(a, b, e, now)
	}
	for _, g := range walkGroupsRootToLeaf(b.Root) {
		for _, e := range g.Entries {
			mergeEntryNode(a, b, e, now)
		}
	}
}

// walkGroupsRootToLeaf returns every group under root (root excluded)
// in parent-before-child order. Merge relies on this ordering so that
// mirrorParent always finds an already-merged parent in a for a group
// whose parent was itself new in this same merge — iterating b's
// group/entry indices directly would visit them in Go's unspecified
// map order and could silently misfile a freshly added subtree under
// Root instead of its real new parent.
func walkGroupsRootToLeaf(root *Group) []*Group {
	var out []*Group
	queue := append([]*Group(nil), root.Groups...)
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		out = append(out, g)
		queue = append(queue, g.Groups...)
	}
	return out
}

// deletedAfter reports whether a records uuid as deleted strictly no
// earlier than modified — the "deletion wins" rule.
func deletedAfter(a *Tree, uuid common.UUID, modified time.Time) bool {
	when, ok := a.Deleted.Get(uuid)
	return ok && !when.Before(modified)
}

func mirrorParent(a, b *Tree, nodeUUID common.UUID) *Group {
	parentID, ok := b.parentOf[nodeUUID]
	if ok {
		if pg, ok := a.FindGroup(parentID); ok {
			return pg
		}
	}
	return a.Root
}

func mergeGroupNode(a, b *Tree, bg *Group, now time.Time) {
	if deletedAfter(a, bg.UUID, bg.Times.Modified) {
		return
	}
	if ag, ok := a.FindGroup(bg.UUID); ok {
		if bg.Times.Modified.After(ag.Times.Modified) {
			children, entries := ag.Groups, ag.Entries
			*ag = *bg
			ag.Groups, ag.Entries = children, entries
		}
		return
	}
	parent := mirrorParent(a, b, bg.UUID)
	clone := *bg
	clone.Groups = nil
	clone.Entries = nil
	_ = a.InsertGroup(now, parent, &clone)
}

func mergeEntryNode(a, b *Tree, be *Entry, now time.Time) {
	if deletedAfter(a, be.UUID, be.Times.Modified) {
		return
	}
	if ae, ok := a.FindEntry(be.UUID); ok {
		if be.Times.Modified.After(ae.Times.Modified) {
			loser := ae.clone()
			winner := be.clone()
			winner.History = mergeHistories(ae.History, be.History, loser)
			*ae = *winner
		}
		return
	}
	parent := mirrorParent(a, b, be.UUID)
	clone := be.clone()
	clone.History = append([]*Entry(nil), be.History...)
	_ = a.InsertEntry(now, parent, clone)
}

// mergeHistories unions two history lists plus the losing live
// revision, deduplicated by Modified timestamp and sorted oldest
// first so invariant 4 (history strictly precedes the live entry)
// keeps holding after the merge.
func mergeHistories(aHist, bHist []*Entry, loser *Entry) []*Entry {
	seen := map[time.Time]bool{}
	var out []*Entry
	add := func(e *Entry) {
		if seen[e.Times.Modified] {
			return
		}
		seen[e.Times.Modified] = true
		out = append(out, e)
	}
	for _, e := range aHist {
		add(e)
	}
	for _, e := range bHist {
		add(e)
	}
	add(loser)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Times.Modified.Before(out[j].Times.Modified)
	})
	return out
}

package model

import "time"

// PushHistory snapshots e's current state onto its own History list
// *before* the caller applies a mutation, then trims the list to the
// tree's history policy (spec.md §4.8). Call this immediately before
// any mutating setter on an already-inserted entry; NewEntry/unattached
// entries have no history to push.
//
// historyMaxItems == -1 disables the item-count bound; historyMaxSize
// == -1 disables the byte-size bound; historyMaxItems == 0 disables
// history outright (every push is dropped immediately).
func (t *Tree) PushHistory(e *Entry) {
	if t.Meta.HistoryMaxItems == 0 {
		return
	}
	snapshot := e.clone()
	e.History = append(e.History, snapshot)
	t.trimHistory(e)
}

func (t *Tree) trimHistory(e *Entry) {
	maxItems := t.Meta.HistoryMaxItems
	maxSize := t.Meta.HistoryMaxSize

	for maxItems >= 0 && int32(len(e.History)) > maxItems {
		e.History = e.History[1:]
	}
	if maxSize < 0 {
		return
	}
	for totalHistorySize(e.History) > maxSize && len(e.History) > 0 {
		e.History = e.History[1:]
	}
}

func totalHistorySize(history []*Entry) int64 {
	var n int64
	for _, snap := range history {
		n += snap.serializedSize()
	}
	return n
}

// MutateEntry runs fn against e after pushing a history snapshot of
// its pre-mutation state, the single funnel every Entry-mutating
// operation should go through per spec.md §9's modification-recording
// note — callers that push explicitly call PushHistory directly
// instead.
func (t *Tree) MutateEntry(now time.Time, e *Entry, fn func(now time.Time, e *Entry)) {
	t.PushHistory(e)
	fn(now, e)
}

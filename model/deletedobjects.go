package model

import (
	"time"

	"github.com/ledgerwatch/kdbxcore/common"
)

// DeletedObject is one hard-deletion record: a UUID and the time it
// was removed, used by Merge to resolve delete-vs-edit conflicts
// (spec.md §3, §4.8).
type DeletedObject struct {
	UUID common.UUID
	When time.Time
}

// DeletedObjects is the tree-wide log of hard-deleted node UUIDs.
type DeletedObjects struct {
	Items []DeletedObject
}

// Add records uuid as deleted at when, replacing any existing record
// for the same UUID (a UUID is only ever "deleted" once logically,
// but a later delete timestamp can supersede an earlier one after a
// merge re-creates and re-deletes it).
func (d *DeletedObjects) Add(uuid common.UUID, when time.Time) {
	for i := range d.Items {
		if d.Items[i].UUID == uuid {
			if when.After(d.Items[i].When) {
				d.Items[i].When = when
			}
			return
		}
	}
	d.Items = append(d.Items, DeletedObject{UUID: uuid, When: when})
}

// Get returns the deletion time recorded for uuid, if any.
func (d *DeletedObjects) Get(uuid common.UUID) (time.Time, bool) {
	for _, it := range d.Items {
		if it.UUID == uuid {
			return it.When, true
		}
	}
	return time.Time{}, false
}

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
)

// Times holds the five node timestamps from spec.md §3. Invariant 5
// requires Modified >= Created and Accessed >= Created at all times;
// every setter in this package maintains that.
type Times struct {
	Created          time.Time
	Modified         time.Time
	Accessed         time.Time
	LocationChanged  time.Time
	Expires          bool
	ExpiryTime       time.Time
}

func newTimes(now time.Time) Times {
	return Times{Created: now, Modified: now, Accessed: now, LocationChanged: now}
}

// touch stamps Modified and, if accessed is true, Accessed too — the
// single funnel every exported setter routes through (spec.md §9:
// "avoid scattering timestamp-update logic across setters").
func (t *Times) touch(now time.Time, accessed bool) {
	t.Modified = now
	if accessed {
		t.Accessed = now
	}
}

// NodeHeader is the header record shared by Group and Entry (spec.md
// §9: "tagged variant with a shared header record, not a class
// hierarchy"). It carries everything groups and entries share, leaving
// out the payload that differs between them.
type NodeHeader struct {
	UUID            common.UUID
	Name            string
	IconID          int32
	CustomIconUUID  common.UUID
	ForegroundColor string
	BackgroundColor string
	Times           Times
	UsageCount      uint32
	CustomData      map[string]CustomDataItem
}

// CustomDataItem is one entry of a node's custom string/data map,
// carrying the value and the time it was last touched (MetaData's
// CustomData carries the same shape at the tree level).
type CustomDataItem struct {
	Value      string
	LastModified time.Time
}

func newNodeHeader(now time.Time, name string) NodeHeader {
	return NodeHeader{
		UUID:       common.NewUUID(),
		Name:       name,
		Times:      newTimes(now),
		CustomData: map[string]CustomDataItem{},
	}
}

// SetName renames the node, stamping Modified (not Accessed — a
// rename is a logical edit, matching the teacher's state-writer
// distinguishing value changes from touch-only reads).
func (h *NodeHeader) SetName(now time.Time, name string) {
	h.Name = name
	h.Times.touch(now, false)
}

// SetIcon sets the built-in icon index, clearing any custom icon
// reference (a node has one or the other, never both).
func (h *NodeHeader) SetIcon(now time.Time, iconID int32) {
	h.IconID = iconID
	h.CustomIconUUID = common.UUID{}
	h.Times.touch(now, false)
}

// SetCustomIcon points the node at a CustomIcon by UUID.
func (h *NodeHeader) SetCustomIcon(now time.Time, iconUUID common.UUID) {
	h.CustomIconUUID = iconUUID
	h.Times.touch(now, false)
}

// SetCustomData upserts one custom string/data key.
func (h *NodeHeader) SetCustomData(now time.Time, key, value string) {
	if h.CustomData == nil {
		h.CustomData = map[string]CustomDataItem{}
	}
	h.CustomData[key] = CustomDataItem{Value: value, LastModified: now}
	h.Times.touch(now, false)
}

// Touch records an access (e.g. the entry was viewed/used) without
// changing any value, bumping UsageCount per spec.md §3 and, through
// touch, stamping both Accessed and Modified.
func (h *NodeHeader) Touch(now time.Time) {
	h.UsageCount++
	h.Times.touch(now, true)
}

// SetExpiry sets or clears the expiry timestamp.
func (h *NodeHeader) SetExpiry(now time.Time, expires bool, at time.Time) {
	h.Times.Expires = expires
	h.Times.ExpiryTime = at
	h.Times.touch(now, false)
}

// markLocationChanged is called by Tree whenever a node is
// (re)attached to a parent Group, per spec.md §3's lifecycle note.
func (h *NodeHeader) markLocationChanged(now time.Time) {
	h.Times.LocationChanged = now
}

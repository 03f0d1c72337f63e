package model

import (
	"time"

	"github.com/ledgerwatch/kdbxcore/common"
)

// Group is a container node: an ordered list of child groups and
// entries plus group-level defaults (spec.md §3).
type Group struct {
	NodeHeader

	Groups  []*Group
	Entries []*Entry

	// EnableAutoType and EnableSearching are tri-state: nil means
	// "inherit from the parent group" (KDBX's `null` group default),
	// matching the XML codec's True/False/null encoding (spec.md §4.7).
	EnableAutoType *bool
	EnableSearching *bool

	Notes                   string
	LastTopVisibleEntry     common.UUID
	IsExpanded              bool
	DefaultAutoTypeSequence string
}

// NewGroup constructs a Group with a fresh UUID and "now" timestamps.
func NewGroup(now time.Time, name string) *Group {
	return &Group{NodeHeader: newNodeHeader(now, name)}
}

// SetNotes updates the group's free-text notes field.
func (g *Group) SetNotes(now time.Time, notes string) {
	g.Notes = notes
	g.Times.touch(now, false)
}


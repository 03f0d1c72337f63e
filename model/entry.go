package model

import (
	"time"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
)

// StringField is one value of an Entry's string map: the value itself
// plus the protect hint the I/O layer uses to route it through the
// inner-stream cipher (spec.md §3 invariant 6: the flag never changes
// the logical value).
type StringField struct {
	Value     string
	Protected bool
}

// AutoTypeAssociation binds an auto-type keystroke sequence to a
// target window title pattern.
type AutoTypeAssociation struct {
	Window            string
	KeystrokeSequence string
}

// AutoType is an entry's auto-type configuration block (spec.md §3).
type AutoType struct {
	Enabled          bool
	ObfuscationLevel int32
	DefaultSequence  string
	Associations     []AutoTypeAssociation
}

// Entry is a credential record: canonical string fields (Title,
// UserName, Password, URL, Notes) plus any custom-named fields,
// attachments, auto-type config and a bounded history of prior
// revisions (spec.md §3).
type Entry struct {
	NodeHeader

	Strings  map[string]StringField
	Binaries []EntryBinary
	AutoType AutoType

	// History holds prior snapshots of this Entry, oldest first. Every
	// snapshot's UUID matches Entry.UUID and its Modified timestamp is
	// strictly less than the live entry's (spec.md §3 invariant 4).
	History []*Entry
}

// NewEntry constructs an Entry with a fresh UUID, "now" timestamps and
// the five canonical string fields present (empty, unprotected, except
// Password which defaults protected — matching the convention every
// KDBX-writing application follows).
func NewEntry(now time.Time) *Entry {
	e := &Entry{
		NodeHeader: newNodeHeader(now, ""),
		Strings:    map[string]StringField{},
	}
	e.Strings[dbutils.FieldTitle] = StringField{}
	e.Strings[dbutils.FieldUserName] = StringField{}
	e.Strings[dbutils.FieldPassword] = StringField{Protected: true}
	e.Strings[dbutils.FieldURL] = StringField{}
	e.Strings[dbutils.FieldNotes] = StringField{}
	return e
}

// GetString returns the named field's current value, ok=false if unset.
func (e *Entry) GetString(key string) (StringField, bool) {
	f, ok := e.Strings[key]
	return f, ok
}

// SetString upserts a string field's value, preserving its existing
// protect flag unless protected is explicitly overridden by the
// caller via SetStringProtected. Stamps Modified, not Accessed.
func (e *Entry) SetString(now time.Time, key, value string) {
	f := e.Strings[key]
	f.Value = value
	e.Strings[key] = f
	e.Times.touch(now, false)
}

// SetStringProtected sets both the value and the protect hint.
func (e *Entry) SetStringProtected(now time.Time, key, value string, protected bool) {
	e.Strings[key] = StringField{Value: value, Protected: protected}
	e.Times.touch(now, false)
}

// Title, UserName, Password, URL, Notes are convenience readers over
// the canonical string-field keys.
func (e *Entry) Title() string    { return e.Strings[dbutils.FieldTitle].Value }
func (e *Entry) UserName() string { return e.Strings[dbutils.FieldUserName].Value }
func (e *Entry) Password() string { return e.Strings[dbutils.FieldPassword].Value }
func (e *Entry) URL() string      { return e.Strings[dbutils.FieldURL].Value }
func (e *Entry) Notes() string    { return e.Strings[dbutils.FieldNotes].Value }

// SetName overrides NodeHeader.SetName to keep the Title string field
// and the node header's display Name in lockstep (KDBX stores the
// title only once, as the Title string field; NodeHeader.Name mirrors
// it for the common Node-level API).
func (e *Entry) SetName(now time.Time, name string) {
	e.NodeHeader.SetName(now, name)
	e.SetString(now, dbutils.FieldTitle, name)
}

// AddBinary attaches a named reference to a pooled Binary.
func (e *Entry) AddBinary(now time.Time, name string, b *Binary, protected bool) {
	e.Binaries = append(e.Binaries, EntryBinary{Name: name, Binary: b, Protected: protected})
	e.Times.touch(now, false)
}

// clone returns a deep-enough copy of e suitable for pushing onto a
// history list: a snapshot whose later mutation of the live entry
// cannot alias back into the copy.
func (e *Entry) clone() *Entry {
	cp := *e
	cp.Strings = make(map[string]StringField, len(e.Strings))
	for k, v := range e.Strings {
		cp.Strings[k] = v
	}
	cp.Binaries = append([]EntryBinary(nil), e.Binaries...)
	cp.AutoType.Associations = append([]AutoTypeAssociation(nil), e.AutoType.Associations...)
	cp.CustomData = make(map[string]CustomDataItem, len(e.CustomData))
	for k, v := range e.CustomData {
		cp.CustomData[k] = v
	}
	cp.History = nil // a snapshot never carries its own history
	return &cp
}

// serializedSize estimates a history snapshot's contribution to
// MetaData.HistoryMaxSize (spec.md §4.8): the sum of string and
// binary payload bytes, which is what actually bloats a saved
// database — not an exact XML byte count, but the policy is a size
// *bound*, not a byte-for-byte accounting requirement.
func (e *Entry) serializedSize() int64 {
	var n int64
	for k, v := range e.Strings {
		n += int64(len(k) + len(v.Value))
	}
	for _, b := range e.Binaries {
		n += int64(len(b.Name) + len(b.Binary.Data))
	}
	return n
}

package model

import "github.com/ledgerwatch/kdbxcore/cryptoutil"

// BinaryHash identifies a Binary by the SHA-256 of its content, used
// for pool deduplication (spec.md §3 invariant 2: "no two distinct
// Binary objects with equal content").
type BinaryHash [32]byte

// Binary is an immutable attachment payload. It is owned by the
// Tree's binary pool, never by an Entry directly; entries hold an
// EntryBinary reference into the pool.
type Binary struct {
	Hash BinaryHash
	Data []byte
}

// NewBinary wraps data as a pool-ready Binary, computing its content
// hash once up front.
func NewBinary(data []byte) *Binary {
	b := &Binary{Data: data}
	copy(b.Hash[:], cryptoutil.SHA256(data))
	return b
}

// EntryBinary is one (name, Binary) association on an Entry, carrying
// its own protect flag independent of the pooled content (spec.md
// §3's "ordered list of Binary references").
type EntryBinary struct {
	Name      string
	Binary    *Binary
	Protected bool
}

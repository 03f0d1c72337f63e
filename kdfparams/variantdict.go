// Package kdfparams implements the variant dictionary codec (spec.md
// §4.2) and the KDF parameter variant built on top of it (spec.md §6).
package kdfparams

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// ValueKind tags the dynamic type stored in a Dict entry.
type ValueKind byte

// Dict is a typed key/value map, serialized as a 2-byte version
// followed by a sequence of (type, key, value) TLV entries terminated
// by a 0x00 type tag. Used for KDF parameters and MetaData's public
// custom data (spec.md §4.2).
type Dict struct {
	Version uint16
	entries map[string]entry
	order   []string // insertion order, preserved on round-trip
}

type entry struct {
	kind  byte
	value []byte
}

// NewDict returns an empty dictionary at the current wire version.
func NewDict() *Dict {
	return &Dict{Version: dbutils.VariantDictVersion, entries: map[string]entry{}}
}

func (d *Dict) ensure() {
	if d.entries == nil {
		d.entries = map[string]entry{}
	}
}

func (d *Dict) set(key string, kind byte, value []byte) {
	d.ensure()
	if _, exists := d.entries[key]; !exists {
		d.order = append(d.order, key)
	}
	d.entries[key] = entry{kind: kind, value: value}
}

func (d *Dict) SetUInt32(key string, v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	d.set(key, dbutils.VDTypeUInt32, b)
}

func (d *Dict) SetUInt64(key string, v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	d.set(key, dbutils.VDTypeUInt64, b)
}

func (d *Dict) SetInt32(key string, v int32) { d.SetUInt32(key, uint32(v)) }
func (d *Dict) SetInt64(key string, v int64) { d.SetUInt64(key, uint64(v)) }

func (d *Dict) SetBool(key string, v bool) {
	b := byte(0)
	if v {
		b = 1
	}
	d.set(key, dbutils.VDTypeBool, []byte{b})
}

func (d *Dict) SetString(key, v string) {
	d.set(key, dbutils.VDTypeString, []byte(v))
}

func (d *Dict) SetBytes(key string, v []byte) {
	d.set(key, dbutils.VDTypeBytes, append([]byte(nil), v...))
}

func (d *Dict) GetUInt32(key string) (uint32, bool) {
	e, ok := d.entries[key]
	if !ok || len(e.value) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(e.value), true
}

func (d *Dict) GetUInt64(key string) (uint64, bool) {
	e, ok := d.entries[key]
	if !ok || len(e.value) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(e.value), true
}

func (d *Dict) GetBool(key string) (bool, bool) {
	e, ok := d.entries[key]
	if !ok || len(e.value) != 1 {
		return false, false
	}
	return e.value[0] != 0, true
}

func (d *Dict) GetString(key string) (string, bool) {
	e, ok := d.entries[key]
	if !ok {
		return "", false
	}
	return string(e.value), true
}

func (d *Dict) GetBytes(key string) ([]byte, bool) {
	e, ok := d.entries[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool {
	_, ok := d.entries[key]
	return ok
}

// Keys returns the keys in insertion/read order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Encode serializes d per spec.md §4.2.
func (d *Dict) Encode(w io.Writer) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, d.Version); err != nil {
		return err
	}
	keys := d.order
	for _, k := range keys {
		e := d.entries[k]
		buf.WriteByte(e.kind)
		kb := []byte(k)
		if err := binary.Write(&buf, binary.LittleEndian, int32(len(kb))); err != nil {
			return err
		}
		buf.Write(kb)
		if err := binary.Write(&buf, binary.LittleEndian, int32(len(e.value))); err != nil {
			return err
		}
		buf.Write(e.value)
	}
	buf.WriteByte(dbutils.VDTypeEnd)
	_, err := w.Write(buf.Bytes())
	return err
}

// Decode parses a variant dictionary from r per spec.md §4.2. Unknown
// type tags fail with UnsupportedVariantType; duplicate keys fail with
// CorruptVariantDict.
func Decode(r io.Reader) (*Dict, error) {
	d := NewDict()
	if err := binary.Read(r, binary.LittleEndian, &d.Version); err != nil {
		return nil, kderr.Wrap(kderr.CorruptVariantDict, err)
	}
	if d.Version>>8 != dbutils.VariantDictVersion>>8 {
		return nil, kderr.New(kderr.CorruptVariantDict, fmt.Sprintf("unsupported variant dict major version %#x", d.Version))
	}
	for {
		var kind byte
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, kderr.Wrap(kderr.CorruptVariantDict, err)
		}
		if kind == dbutils.VDTypeEnd {
			break
		}
		switch kind {
		case dbutils.VDTypeUInt32, dbutils.VDTypeUInt64, dbutils.VDTypeBool,
			dbutils.VDTypeInt32, dbutils.VDTypeInt64, dbutils.VDTypeString, dbutils.VDTypeBytes:
		default:
			return nil, kderr.New(kderr.UnsupportedVariantType, fmt.Sprintf("unknown variant type tag %#x", kind))
		}
		key, err := readLenPrefixed(r)
		if err != nil {
			return nil, kderr.Wrap(kderr.CorruptVariantDict, err)
		}
		val, err := readLenPrefixed(r)
		if err != nil {
			return nil, kderr.Wrap(kderr.CorruptVariantDict, err)
		}
		keyStr := string(key)
		if _, exists := d.entries[keyStr]; exists {
			return nil, kderr.New(kderr.CorruptVariantDict, fmt.Sprintf("duplicate key %q", keyStr))
		}
		d.set(keyStr, kind, val)
	}
	return d, nil
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// SortedKeys is a helper for deterministic test output.
func (d *Dict) SortedKeys() []string {
	keys := d.Keys()
	sort.Strings(keys)
	return keys
}

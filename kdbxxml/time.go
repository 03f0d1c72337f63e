// Package kdbxxml parses and emits the KDBX XML body: Meta, the Group
// tree, Entries (with History), DeletedObjects and the v3 Binaries
// pool (spec.md §4.7). It builds on encoding/xml the way the teacher's
// key-file parser (compositekey/keyfile.go) and the rest of the corpus
// use plain tagged structs rather than a DOM, and uses
// golang.org/x/text/encoding/unicode at the BOM-sniffing boundary
// (spec.md §4.7's one legitimate home for that teacher dependency).
package kdbxxml

import (
	"encoding/base64"
	"encoding/binary"
	"time"

	"github.com/ledgerwatch/kdbxcore/kderr"
)

// kdbxEpoch is the KDBX4 timestamp base: 0001-01-01T00:00:00Z.
var kdbxEpoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

// encodeTime renders t per spec.md §4.7: ISO-8601 UTC for v3, base64
// of a signed 64-bit little-endian seconds-since-kdbxEpoch count for
// v4.
func encodeTime(major int, t time.Time) string {
	if t.IsZero() {
		t = kdbxEpoch
	}
	if major < 4 {
		return t.UTC().Format("2006-01-02T15:04:05Z")
	}
	seconds := t.Unix() - kdbxEpoch.Unix()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(seconds))
	return base64.StdEncoding.EncodeToString(buf)
}

// decodeTime reverses encodeTime.
func decodeTime(major int, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if major < 4 {
		t, err := time.Parse("2006-01-02T15:04:05Z", s)
		if err != nil {
			// Some writers emit fractional seconds; tolerate them.
			t, err = time.Parse(time.RFC3339, s)
			if err != nil {
				return time.Time{}, kderr.Wrap(kderr.XMLParseFailed, err)
			}
		}
		return t.UTC(), nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) != 8 {
		return time.Time{}, kderr.New(kderr.XMLParseFailed, "bad base64 time value")
	}
	seconds := int64(binary.LittleEndian.Uint64(raw))
	return time.Unix(kdbxEpoch.Unix()+seconds, 0).UTC(), nil
}

// encodeBool renders a Go bool as KDBX's True/False literal.
func encodeBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func decodeBool(s string) bool { return s == "True" }

// encodeTriState renders a *bool as True/False/null (spec.md §4.7).
func encodeTriState(b *bool) string {
	if b == nil {
		return "null"
	}
	return encodeBool(*b)
}

func decodeTriState(s string) *bool {
	switch s {
	case "True":
		v := true
		return &v
	case "False":
		v := false
		return &v
	default:
		return nil
	}
}

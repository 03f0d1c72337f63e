package kdb

import (
	"bytes"
	"testing"

	check "gopkg.in/check.v1"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// Test hooks gopkg.in/check.v1 into `go test`, the suite-style harness
// the teacher corpus uses alongside testify for its older packages.
func Test(t *testing.T) { check.TestingT(t) }

type LegacySuite struct{}

var _ = check.Suite(&LegacySuite{})

func (s *LegacySuite) TestOpenRejectsKDB(c *check.C) {
	buf := append(append([]byte{}, dbutils.Magic1[:]...), dbutils.Magic2KDB[:]...)
	err := Open(bytes.NewReader(buf))
	c.Assert(err, check.NotNil)
	c.Assert(kderr.Is(err, kderr.LegacyUnsupported), check.Equals, true)
}

func (s *LegacySuite) TestOpenRejectsKDBXAsNotKDB(c *check.C) {
	buf := append(append([]byte{}, dbutils.Magic1[:]...), dbutils.Magic2KDBX[:]...)
	err := Open(bytes.NewReader(buf))
	c.Assert(err, check.NotNil)
	c.Assert(kderr.Is(err, kderr.UnknownFileFormat), check.Equals, true)
}

func (s *LegacySuite) TestOpenRejectsGarbage(c *check.C) {
	err := Open(bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7}))
	c.Assert(err, check.NotNil)
	c.Assert(kderr.Is(err, kderr.UnknownFileFormat), check.Equals, true)
}

func (s *LegacySuite) TestIsLegacy(c *check.C) {
	c.Assert(IsLegacy(dbutils.Magic1, dbutils.Magic2KDB), check.Equals, true)
	c.Assert(IsLegacy(dbutils.Magic1, dbutils.Magic2KDBX), check.Equals, false)
}

package compositekey

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDeterministic(t *testing.T) {
	c := Components{Password: HashPassword("hunter2")}
	k1 := Build(c)
	k2 := Build(c)
	require.Equal(t, k1, k2)
	require.Len(t, k1, 32)
}

func TestBuildDiffersWithKeyFile(t *testing.T) {
	pw := HashPassword("hunter2")
	kf, err := LoadKeyFile(bytes.Repeat([]byte("0"), 64))
	require.NoError(t, err)

	withoutKF := Build(Components{Password: pw})
	withKF := Build(Components{Password: pw, KeyFile: kf})
	require.NotEqual(t, withoutKF, withKF)
}

func TestLoadKeyFileHexForm(t *testing.T) {
	hex64 := strings.Repeat("ab", 32)
	key, err := LoadKeyFile([]byte(hex64))
	require.NoError(t, err)
	require.Len(t, key, 32)
}

func TestLoadKeyFileRawForm(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, 32)
	key, err := LoadKeyFile(raw)
	require.NoError(t, err)
	require.Equal(t, raw, key)
}

func TestLoadKeyFileArbitraryFallsBackToSHA256(t *testing.T) {
	key, err := LoadKeyFile([]byte("not a key file at all, just some text"))
	require.NoError(t, err)
	require.Len(t, key, 32)
}

func TestLoadKeyFileXMLForm(t *testing.T) {
	xmlDoc := `<KeyFile><Meta><Version>2.0</Version></Meta><Key><Data Hash="66687aad">` +
		strings.Repeat("00", 32) + `</Data></Key></KeyFile>`
	key, err := LoadKeyFile([]byte(xmlDoc))
	require.NoError(t, err)
	require.Len(t, key, 32)
}

func TestLoadKeyFileXMLBadHashRejected(t *testing.T) {
	xmlDoc := `<KeyFile><Meta><Version>2.0</Version></Meta><Key><Data Hash="FFFFFFFF">` +
		strings.Repeat("00", 32) + `</Data></Key></KeyFile>`
	_, err := LoadKeyFile([]byte(xmlDoc))
	require.Error(t, err)
}

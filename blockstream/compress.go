package blockstream

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// Compress gzips data when flags requests it; otherwise returns data
// unchanged. Compression is stdlib compress/gzip — no third-party gzip
// implementation appears anywhere in the corpus, and the format
// mandates gzip specifically (not a pluggable codec), so stdlib is the
// correct choice here per the ambient-crypto carve-out in DESIGN.md.
func Compress(data []byte, flags uint32) ([]byte, error) {
	if flags == dbutils.CompressionNone {
		return data, nil
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. DecompressionFailed is returned for
// any gzip framing error.
func Decompress(data []byte, flags uint32) ([]byte, error) {
	if flags == dbutils.CompressionNone {
		return data, nil
	}
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, kderr.Wrap(kderr.DecompressionFailed, err)
	}
	defer gr.Close()
	out, err := ioutil.ReadAll(gr)
	if err != nil {
		return nil, kderr.Wrap(kderr.DecompressionFailed, err)
	}
	return out, nil
}

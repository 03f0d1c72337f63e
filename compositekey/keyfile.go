package compositekey

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"

	"github.com/ledgerwatch/kdbxcore/cryptoutil"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// keyFileXML mirrors the KDBX4 key-file format (spec.md §4.3):
//
//	<KeyFile><Meta><Version>2.0</Version></Meta>
//	         <Key><Data Hash="HHHHHHHH">...hex...</Data></Key></KeyFile>
type keyFileXML struct {
	XMLName xml.Name `xml:"KeyFile"`
	Meta    struct {
		Version string `xml:"Version"`
	} `xml:"Meta"`
	Key struct {
		Data struct {
			Hash  string `xml:"Hash,attr"`
			Value string `xml:",chardata"`
		} `xml:"Data"`
	} `xml:"Key"`
}

// LoadKeyFile reduces raw key-file bytes to the 32-byte digest spec.md
// §4.3 requires, trying each accepted form in order:
//  1. KDBX4 XML key file (with the Hash attribute check),
//  2. 64 hex characters (accepted as the raw key directly),
//  3. exactly 32 raw bytes (accepted directly),
//  4. otherwise, SHA-256 of the whole file.
func LoadKeyFile(raw []byte) ([]byte, error) {
	if key, err, ok := tryXMLKeyFile(raw); ok {
		return key, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 64 {
		if key, err := hex.DecodeString(string(trimmed)); err == nil && len(key) == 32 {
			return key, nil
		}
	}
	if len(raw) == 32 {
		return append([]byte(nil), raw...), nil
	}
	return cryptoutil.SHA256(raw), nil
}

// tryXMLKeyFile attempts the XML form; ok is false if raw does not
// parse as a KeyFile element at all (fall through to the other forms).
func tryXMLKeyFile(raw []byte) (key []byte, err error, ok bool) {
	var kf keyFileXML
	if xml.Unmarshal(raw, &kf) != nil {
		return nil, nil, false
	}
	if kf.Key.Data.Value == "" {
		return nil, nil, false
	}
	hexData := bytes.TrimSpace([]byte(kf.Key.Data.Value))
	data, decErr := hex.DecodeString(string(hexData))
	if decErr != nil {
		// Some key files carry the key as raw base64/binary; only the
		// documented hex+Hash form is validated here.
		return nil, nil, false
	}
	if kf.Key.Data.Hash != "" {
		want := bytes.ToLower([]byte(kf.Key.Data.Hash))
		gotFull := cryptoutil.SHA256(data)
		got := []byte(hex.EncodeToString(gotFull[:4]))
		if !bytes.Equal(want, got) {
			return nil, kderr.New(kderr.KeyFileParseFailed, "key-file Hash attribute does not match key data"), true
		}
	}
	return data, nil, true
}

package model

import "github.com/ledgerwatch/kdbxcore/common"

// CustomIcon is a user-supplied icon image, referenced by nodes via
// NodeHeader.CustomIconUUID instead of the built-in IconID index.
type CustomIcon struct {
	UUID common.UUID
	Data []byte
}

// NewCustomIcon assigns a fresh UUID to raw image bytes.
func NewCustomIcon(data []byte) *CustomIcon {
	return &CustomIcon{UUID: common.NewUUID(), Data: data}
}

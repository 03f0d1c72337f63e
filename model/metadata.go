package model

import (
	"time"

	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kdfparams"
)

// MetaData is the tree's non-structural state: database identity,
// trash/history policy, the chosen cipher/KDF and compression, and
// custom data maps (spec.md §3).
type MetaData struct {
	Generator string

	DatabaseName               string
	DatabaseNameChanged        time.Time
	DatabaseDescription        string
	DatabaseDescriptionChanged time.Time
	DefaultUserName            string
	DefaultUserNameChanged     time.Time

	RecycleBinEnabled bool
	RecycleBinUUID    common.UUID
	RecycleBinChanged time.Time

	EntryTemplatesGroup        common.UUID
	EntryTemplatesGroupChanged time.Time

	// HistoryMaxItems and HistoryMaxSize bound an entry's History list
	// (spec.md §4.8). -1 disables the respective bound; HistoryMaxItems
	// == 0 disables history outright.
	HistoryMaxItems int32
	HistoryMaxSize  int64 // bytes

	MasterKeyChangeRec   int32
	MasterKeyChangeForce int32
	SettingsChanged      time.Time

	Color string

	CustomData       map[string]CustomDataItem
	CustomPublicData *kdfparams.Dict

	CipherUUID common.UUID
	KDFParams  kdfparams.KDFParams

	CompressionFlags uint32

	MaintenanceHistoryDays uint32
	LastSelectedGroup      common.UUID
	LastTopVisibleGroup    common.UUID

	CustomIcons []*CustomIcon
}

// DefaultMetaData returns MetaData for a freshly created database:
// AES-256 cipher, Argon2id KDF, GZip compression, a 10-item history
// bound and no size bound — the defaults the KDBX reference
// applications write for a brand-new file (spec.md §8 scenario S1).
func DefaultMetaData(now time.Time, salt []byte) MetaData {
	return MetaData{
		Generator:           "kdbxcore",
		DatabaseName:        "New Database",
		DatabaseNameChanged: now,
		SettingsChanged:     now,
		RecycleBinEnabled:   true,
		HistoryMaxItems:     10,
		HistoryMaxSize:      -1,
		CipherUUID:          dbutils.CipherAES256,
		KDFParams:           kdfparams.DefaultArgon2id(salt),
		CompressionFlags:    dbutils.CompressionGZip,
		CustomData:          map[string]CustomDataItem{},
	}
}

// SetCustomData upserts one tree-level custom data key.
func (m *MetaData) SetCustomData(now time.Time, key, value string) {
	if m.CustomData == nil {
		m.CustomData = map[string]CustomDataItem{}
	}
	m.CustomData[key] = CustomDataItem{Value: value, LastModified: now}
}

// FindCustomIcon looks up a custom icon by UUID.
func (m *MetaData) FindCustomIcon(id common.UUID) (*CustomIcon, bool) {
	for _, ci := range m.CustomIcons {
		if ci.UUID == id {
			return ci, true
		}
	}
	return nil, false
}

// AddCustomIcon appends ci, deduplicating by content the way the
// binary pool does (spec.md §4.8: "Custom icons and binaries
// deduplicate by content hash").
func (m *MetaData) AddCustomIcon(ci *CustomIcon) *CustomIcon {
	for _, existing := range m.CustomIcons {
		if string(existing.Data) == string(ci.Data) {
			return existing
		}
	}
	m.CustomIcons = append(m.CustomIcons, ci)
	return ci
}

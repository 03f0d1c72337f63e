package kdbxxml

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"
	"io/ioutil"
	"sort"
	"strconv"

	"golang.org/x/text/encoding/unicode"

	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/innerstream"
	"github.com/ledgerwatch/kdbxcore/kderr"
	"github.com/ledgerwatch/kdbxcore/model"
)

// Options carries the version and inner-stream cipher the codec binds
// every protected field traversal to (spec.md §4.6/§4.7).
type Options struct {
	Major  int
	Cipher innerstream.Cipher
}

// --- Encode -----------------------------------------------------------

// Encode serializes tree as the KDBX XML body. For v4, the returned
// binary slice is the pool in the exact order entries referenced it;
// the orchestrator writes it to the inner header. For v3 the pool is
// embedded directly in Meta/Binaries and the returned slice is nil.
func Encode(w io.Writer, tree *model.Tree, opts Options) ([]*model.Binary, error) {
	enc := &encoder{major: opts.Major, cipher: opts.Cipher, poolIndex: map[model.BinaryHash]int{}}

	doc := fileXML{
		Meta: enc.buildMeta(tree),
		Root: rootXML{
			Group:          enc.buildGroup(tree.Root),
			DeletedObjects: buildDeletedObjects(opts.Major, tree.Deleted),
		},
	}

	if opts.Major < 4 {
		doc.Meta.Binaries = &binariesXML{}
		for i, b := range enc.pool {
			doc.Meta.Binaries.Binaries = append(doc.Meta.Binaries.Binaries, binaryPoolItemXML{
				ID:    i,
				Value: base64.StdEncoding.EncodeToString(b.Data),
			})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, kderr.Wrap(kderr.WriteFailed, err)
	}
	out, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return nil, kderr.Wrap(kderr.WriteFailed, err)
	}
	if _, err := w.Write(out); err != nil {
		return nil, kderr.Wrap(kderr.WriteFailed, err)
	}

	if opts.Major >= 4 {
		return enc.pool, nil
	}
	return nil, nil
}

type encoder struct {
	major     int
	cipher    innerstream.Cipher
	pool      []*model.Binary
	poolIndex map[model.BinaryHash]int
}

// poolRef interns b into the pool, assigning it the next free index on
// first reference. Binary content is never run through the
// inner-stream cipher: the format's per-pool-item "protected" bit
// exists (spec.md §4.4) but no known KDBX writer sets it, and doing so
// here would require consuming the shared keystream at pool-build time
// — before the XML codec's string traversal even begins — which would
// break the single, fragile, document-order coupling spec.md §9 calls
// out. The protect flag is preserved as entry metadata only; see
// DESIGN.md.
func (enc *encoder) poolRef(b *model.Binary) int {
	if idx, ok := enc.poolIndex[b.Hash]; ok {
		return idx
	}
	idx := len(enc.pool)
	enc.poolIndex[b.Hash] = idx
	enc.pool = append(enc.pool, b)
	return idx
}

func (enc *encoder) buildMeta(tree *model.Tree) metaXML {
	m := &tree.Meta
	mx := metaXML{
		Generator:                  m.Generator,
		DatabaseName:               m.DatabaseName,
		DatabaseNameChanged:        encodeTime(enc.major, m.DatabaseNameChanged),
		DatabaseDescription:        m.DatabaseDescription,
		DatabaseDescriptionChanged: encodeTime(enc.major, m.DatabaseDescriptionChanged),
		DefaultUserName:            m.DefaultUserName,
		DefaultUserNameChanged:     encodeTime(enc.major, m.DefaultUserNameChanged),
		MaintenanceHistoryDays:     m.MaintenanceHistoryDays,
		Color:                      m.Color,
		MasterKeyChangeRec:         m.MasterKeyChangeRec,
		MasterKeyChangeForce:       m.MasterKeyChangeForce,
		RecycleBinEnabled:          encodeBool(m.RecycleBinEnabled),
		RecycleBinUUID:             uuidOrEmpty(m.RecycleBinUUID),
		RecycleBinChanged:          encodeTime(enc.major, m.RecycleBinChanged),
		EntryTemplatesGroup:        uuidOrEmpty(m.EntryTemplatesGroup),
		EntryTemplatesGroupChanged: encodeTime(enc.major, m.EntryTemplatesGroupChanged),
		HistoryMaxItems:            m.HistoryMaxItems,
		HistoryMaxSize:             m.HistoryMaxSize,
		LastSelectedGroup:          uuidOrEmpty(m.LastSelectedGroup),
		LastTopVisibleGroup:        uuidOrEmpty(m.LastTopVisibleGroup),
		SettingsChanged:            encodeTime(enc.major, m.SettingsChanged),
	}
	for _, k := range sortedCustomDataKeys(m.CustomData) {
		v := m.CustomData[k]
		mx.CustomData.Items = append(mx.CustomData.Items, customDataItemXML{
			Key: k, Value: v.Value, LastModificationTime: encodeTime(enc.major, v.LastModified),
		})
	}
	for _, ci := range m.CustomIcons {
		mx.CustomIcons.Icons = append(mx.CustomIcons.Icons, customIconXML{
			UUID: ci.UUID.Base64(), Data: base64.StdEncoding.EncodeToString(ci.Data),
		})
	}
	return mx
}

func (enc *encoder) buildGroup(g *model.Group) groupXML {
	gx := groupXML{
		UUID:                    g.UUID.Base64(),
		Name:                    g.Name,
		Notes:                   g.Notes,
		IconID:                  g.IconID,
		CustomIconUUID:          uuidOrEmpty(g.CustomIconUUID),
		Times:                   enc.buildTimes(g.Times, g.UsageCount),
		IsExpanded:              encodeBool(g.IsExpanded),
		DefaultAutoTypeSequence: g.DefaultAutoTypeSequence,
		EnableAutoType:          encodeTriState(g.EnableAutoType),
		EnableSearching:         encodeTriState(g.EnableSearching),
		LastTopVisibleEntry:     uuidOrEmpty(g.LastTopVisibleEntry),
	}
	for _, k := range sortedCustomDataKeys(g.CustomData) {
		v := g.CustomData[k]
		gx.CustomData.Items = append(gx.CustomData.Items, customDataItemXML{
			Key: k, Value: v.Value, LastModificationTime: encodeTime(enc.major, v.LastModified),
		})
	}
	for _, child := range g.Groups {
		gx.Groups = append(gx.Groups, enc.buildGroup(child))
	}
	for _, e := range g.Entries {
		gx.Entries = append(gx.Entries, enc.buildEntry(e))
	}
	return gx
}

// buildEntry walks e in the canonical order the inner-stream cipher
// is bound to: the live entry's own string/binary fields, then each
// history snapshot oldest-first, each consuming its own fields in the
// same order (spec.md §9).
func (enc *encoder) buildEntry(e *model.Entry) entryXML {
	ex := entryXML{
		UUID:            e.UUID.Base64(),
		IconID:          e.IconID,
		CustomIconUUID:  uuidOrEmpty(e.CustomIconUUID),
		ForegroundColor: e.ForegroundColor,
		BackgroundColor: e.BackgroundColor,
		Times:           enc.buildTimes(e.Times, e.UsageCount),
		AutoType:        enc.buildAutoType(e.AutoType),
	}
	for _, k := range sortedCustomDataKeys(e.CustomData) {
		v := e.CustomData[k]
		ex.CustomData.Items = append(ex.CustomData.Items, customDataItemXML{
			Key: k, Value: v.Value, LastModificationTime: encodeTime(enc.major, v.LastModified),
		})
	}
	for _, key := range sortedStringKeys(e.Strings) {
		f := e.Strings[key]
		text := f.Value
		protected := ""
		if f.Protected {
			ct := enc.cipher.XOR([]byte(text))
			text = base64.StdEncoding.EncodeToString(ct)
			protected = "True"
		}
		ex.Strings = append(ex.Strings, stringXML{Key: key, Value: stringValueXML{Protected: protected, Text: text}})
	}
	for _, eb := range e.Binaries {
		idx := enc.poolRef(eb.Binary)
		ex.Binaries = append(ex.Binaries, entryBinaryXML{Key: eb.Name, Value: entryBinaryValueXML{Ref: strconv.Itoa(idx)}})
	}
	if len(e.History) > 0 {
		h := &historyXML{}
		for _, snap := range e.History {
			h.Entries = append(h.Entries, enc.buildEntry(snap))
		}
		ex.History = h
	}
	return ex
}

func (enc *encoder) buildTimes(t model.Times, usageCount uint32) timesXML {
	return timesXML{
		LastModificationTime: encodeTime(enc.major, t.Modified),
		CreationTime:          encodeTime(enc.major, t.Created),
		LastAccessTime:         encodeTime(enc.major, t.Accessed),
		ExpiryTime:             encodeTime(enc.major, t.ExpiryTime),
		Expires:                encodeBool(t.Expires),
		UsageCount:             usageCount,
		LocationChanged:        encodeTime(enc.major, t.LocationChanged),
	}
}

func (enc *encoder) buildAutoType(a model.AutoType) autoTypeXML {
	ax := autoTypeXML{
		Enabled:                 encodeBool(a.Enabled),
		DataTransferObfuscation: a.ObfuscationLevel,
		DefaultSequence:         a.DefaultSequence,
	}
	for _, assoc := range a.Associations {
		ax.Associations = append(ax.Associations, assocXML{Window: assoc.Window, KeystrokeSequence: assoc.KeystrokeSequence})
	}
	return ax
}

func buildDeletedObjects(major int, d model.DeletedObjects) deletedObjsXML {
	var dx deletedObjsXML
	for _, it := range d.Items {
		dx.Items = append(dx.Items, deletedObjXML{UUID: it.UUID.Base64(), DeletionTime: encodeTime(major, it.When)})
	}
	return dx
}

func uuidOrEmpty(u common.UUID) string {
	if u.IsZero() {
		return ""
	}
	return u.Base64()
}

func sortedCustomDataKeys(m map[string]model.CustomDataItem) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]model.StringField) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- Decode -------------------------------------------------------------

// Decode parses an XML body into a Tree. v4BinaryPool must be supplied
// by the caller for v4 files (decoded from the inner header, in pool
// order); it is ignored for v3, where the pool travels inside
// Meta/Binaries.
func Decode(r io.Reader, opts Options, v4BinaryPool []*model.Binary) (*model.Tree, error) {
	clean, err := sniffAndStripBOM(r)
	if err != nil {
		return nil, err
	}

	var doc fileXML
	if err := xml.NewDecoder(bytes.NewReader(clean)).Decode(&doc); err != nil {
		return nil, kderr.Wrap(kderr.XMLParseFailed, err)
	}

	dec := &decoder{major: opts.Major, cipher: opts.Cipher}
	dec.pool = v4BinaryPool
	if opts.Major < 4 && doc.Meta.Binaries != nil {
		dec.pool = make([]*model.Binary, len(doc.Meta.Binaries.Binaries))
		for _, item := range doc.Meta.Binaries.Binaries {
			data, err := base64.StdEncoding.DecodeString(item.Value)
			if err != nil {
				return nil, kderr.Wrap(kderr.XMLParseFailed, err)
			}
			if item.ID >= 0 && item.ID < len(dec.pool) {
				dec.pool[item.ID] = model.NewBinary(data)
			}
		}
	}

	tree := &model.Tree{}
	if err := dec.fillMeta(&tree.Meta, doc.Meta); err != nil {
		return nil, err
	}
	root, err := dec.parseGroup(doc.Root.Group)
	if err != nil {
		return nil, err
	}
	tree.Root = root
	for _, item := range doc.Root.DeletedObjects.Items {
		u, err := common.ParseUUIDBase64(item.UUID)
		if err != nil {
			return nil, kderr.Wrap(kderr.XMLParseFailed, err)
		}
		when, err := decodeTime(opts.Major, item.DeletionTime)
		if err != nil {
			return nil, err
		}
		tree.Deleted.Add(u, when)
	}
	tree.SetBinaryPool(dec.pool)
	tree.Reindex()
	return tree, nil
}

type decoder struct {
	major  int
	cipher innerstream.Cipher
	pool   []*model.Binary
}

func (dec *decoder) fillMeta(m *model.MetaData, mx metaXML) error {
	var err error
	m.Generator = mx.Generator
	m.DatabaseName = mx.DatabaseName
	if m.DatabaseNameChanged, err = decodeTime(dec.major, mx.DatabaseNameChanged); err != nil {
		return err
	}
	m.DatabaseDescription = mx.DatabaseDescription
	if m.DatabaseDescriptionChanged, err = decodeTime(dec.major, mx.DatabaseDescriptionChanged); err != nil {
		return err
	}
	m.DefaultUserName = mx.DefaultUserName
	if m.DefaultUserNameChanged, err = decodeTime(dec.major, mx.DefaultUserNameChanged); err != nil {
		return err
	}
	m.MaintenanceHistoryDays = mx.MaintenanceHistoryDays
	m.Color = mx.Color
	m.MasterKeyChangeRec = mx.MasterKeyChangeRec
	m.MasterKeyChangeForce = mx.MasterKeyChangeForce
	m.RecycleBinEnabled = decodeBool(mx.RecycleBinEnabled)
	if m.RecycleBinUUID, err = parseUUIDOrZero(mx.RecycleBinUUID); err != nil {
		return err
	}
	if m.RecycleBinChanged, err = decodeTime(dec.major, mx.RecycleBinChanged); err != nil {
		return err
	}
	if m.EntryTemplatesGroup, err = parseUUIDOrZero(mx.EntryTemplatesGroup); err != nil {
		return err
	}
	if m.EntryTemplatesGroupChanged, err = decodeTime(dec.major, mx.EntryTemplatesGroupChanged); err != nil {
		return err
	}
	m.HistoryMaxItems = mx.HistoryMaxItems
	m.HistoryMaxSize = mx.HistoryMaxSize
	if m.LastSelectedGroup, err = parseUUIDOrZero(mx.LastSelectedGroup); err != nil {
		return err
	}
	if m.LastTopVisibleGroup, err = parseUUIDOrZero(mx.LastTopVisibleGroup); err != nil {
		return err
	}
	if m.SettingsChanged, err = decodeTime(dec.major, mx.SettingsChanged); err != nil {
		return err
	}
	m.CustomData = map[string]model.CustomDataItem{}
	for _, it := range mx.CustomData.Items {
		when, err := decodeTime(dec.major, it.LastModificationTime)
		if err != nil {
			return err
		}
		m.CustomData[it.Key] = model.CustomDataItem{Value: it.Value, LastModified: when}
	}
	for _, ci := range mx.CustomIcons.Icons {
		u, err := common.ParseUUIDBase64(ci.UUID)
		if err != nil {
			return kderr.Wrap(kderr.XMLParseFailed, err)
		}
		data, err := base64.StdEncoding.DecodeString(ci.Data)
		if err != nil {
			return kderr.Wrap(kderr.XMLParseFailed, err)
		}
		m.CustomIcons = append(m.CustomIcons, &model.CustomIcon{UUID: u, Data: data})
	}
	return nil
}

func (dec *decoder) parseGroup(gx groupXML) (*model.Group, error) {
	g := &model.Group{}
	var err error
	if g.UUID, err = common.ParseUUIDBase64(gx.UUID); err != nil {
		return nil, kderr.Wrap(kderr.XMLParseFailed, err)
	}
	g.Name = gx.Name
	g.Notes = gx.Notes
	g.IconID = gx.IconID
	if g.CustomIconUUID, err = parseUUIDOrZero(gx.CustomIconUUID); err != nil {
		return nil, err
	}
	if g.Times, err = dec.parseTimes(gx.Times); err != nil {
		return nil, err
	}
	g.UsageCount = parseUsageCount(gx.Times)
	g.IsExpanded = decodeBool(gx.IsExpanded)
	g.DefaultAutoTypeSequence = gx.DefaultAutoTypeSequence
	g.EnableAutoType = decodeTriState(gx.EnableAutoType)
	g.EnableSearching = decodeTriState(gx.EnableSearching)
	if g.LastTopVisibleEntry, err = parseUUIDOrZero(gx.LastTopVisibleEntry); err != nil {
		return nil, err
	}
	g.CustomData = map[string]model.CustomDataItem{}
	for _, it := range gx.CustomData.Items {
		when, err := decodeTime(dec.major, it.LastModificationTime)
		if err != nil {
			return nil, err
		}
		g.CustomData[it.Key] = model.CustomDataItem{Value: it.Value, LastModified: when}
	}
	for _, childX := range gx.Groups {
		child, err := dec.parseGroup(childX)
		if err != nil {
			return nil, err
		}
		g.Groups = append(g.Groups, child)
	}
	for _, ex := range gx.Entries {
		e, err := dec.parseEntry(ex)
		if err != nil {
			return nil, err
		}
		g.Entries = append(g.Entries, e)
	}
	return g, nil
}

func (dec *decoder) parseEntry(ex entryXML) (*model.Entry, error) {
	e := &model.Entry{Strings: map[string]model.StringField{}}
	var err error
	if e.UUID, err = common.ParseUUIDBase64(ex.UUID); err != nil {
		return nil, kderr.Wrap(kderr.XMLParseFailed, err)
	}
	e.IconID = ex.IconID
	if e.CustomIconUUID, err = parseUUIDOrZero(ex.CustomIconUUID); err != nil {
		return nil, err
	}
	e.ForegroundColor = ex.ForegroundColor
	e.BackgroundColor = ex.BackgroundColor
	if e.Times, err = dec.parseTimes(ex.Times); err != nil {
		return nil, err
	}
	e.UsageCount = parseUsageCount(ex.Times)
	e.CustomData = map[string]model.CustomDataItem{}
	for _, it := range ex.CustomData.Items {
		when, err := decodeTime(dec.major, it.LastModificationTime)
		if err != nil {
			return nil, err
		}
		e.CustomData[it.Key] = model.CustomDataItem{Value: it.Value, LastModified: when}
	}
	for _, sx := range ex.Strings {
		protected := sx.Value.Protected == "True"
		text := sx.Value.Text
		if protected {
			raw, err := base64.StdEncoding.DecodeString(text)
			if err != nil {
				return nil, kderr.Wrap(kderr.XMLParseFailed, err)
			}
			text = string(dec.cipher.XOR(raw))
		}
		e.Strings[sx.Key] = model.StringField{Value: text, Protected: protected}
	}
	for _, bx := range ex.Binaries {
		idx, err := strconv.Atoi(bx.Value.Ref)
		if err != nil || idx < 0 || idx >= len(dec.pool) || dec.pool[idx] == nil {
			return nil, kderr.New(kderr.XMLParseFailed, "binary Ref out of range")
		}
		e.Binaries = append(e.Binaries, model.EntryBinary{Name: bx.Key, Binary: dec.pool[idx]})
	}
	e.AutoType = dec.parseAutoType(ex.AutoType)
	if ex.History != nil {
		for _, hx := range ex.History.Entries {
			snap, err := dec.parseEntry(hx)
			if err != nil {
				return nil, err
			}
			e.History = append(e.History, snap)
		}
	}
	return e, nil
}

func (dec *decoder) parseAutoType(ax autoTypeXML) model.AutoType {
	a := model.AutoType{
		Enabled:          decodeBool(ax.Enabled),
		ObfuscationLevel: ax.DataTransferObfuscation,
		DefaultSequence:  ax.DefaultSequence,
	}
	for _, assoc := range ax.Associations {
		a.Associations = append(a.Associations, model.AutoTypeAssociation{Window: assoc.Window, KeystrokeSequence: assoc.KeystrokeSequence})
	}
	return a
}

func (dec *decoder) parseTimes(tx timesXML) (model.Times, error) {
	var t model.Times
	var err error
	if t.Modified, err = decodeTime(dec.major, tx.LastModificationTime); err != nil {
		return t, err
	}
	if t.Created, err = decodeTime(dec.major, tx.CreationTime); err != nil {
		return t, err
	}
	if t.Accessed, err = decodeTime(dec.major, tx.LastAccessTime); err != nil {
		return t, err
	}
	if t.ExpiryTime, err = decodeTime(dec.major, tx.ExpiryTime); err != nil {
		return t, err
	}
	t.Expires = decodeBool(tx.Expires)
	if t.LocationChanged, err = decodeTime(dec.major, tx.LocationChanged); err != nil {
		return t, err
	}
	return t, nil
}

// parseUsageCount reads the Times element's UsageCount, which belongs
// to NodeHeader rather than model.Times on the Go side.
func parseUsageCount(tx timesXML) uint32 { return tx.UsageCount }

func parseUUIDOrZero(s string) (common.UUID, error) {
	if s == "" {
		return common.UUID{}, nil
	}
	u, err := common.ParseUUIDBase64(s)
	if err != nil {
		return common.UUID{}, kderr.Wrap(kderr.XMLParseFailed, err)
	}
	return u, nil
}

// sniffAndStripBOM transcodes a UTF-8 byte stream that may carry a BOM
// (some KDBX writers emit one even though the XML declaration always
// asserts utf-8) using golang.org/x/text/encoding/unicode, the
// teacher's own x/text dependency — its one legitimate home in this
// module (spec.md §4.7).
func sniffAndStripBOM(r io.Reader) ([]byte, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, kderr.Wrap(kderr.XMLParseFailed, err)
	}
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, kderr.Wrap(kderr.XMLParseFailed, err)
		}
		return decoded, nil
	}
	return raw, nil
}

package typeface

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// Capability describes the color glyph sources an emoji font carries. Only
// the CBDT/CBLC pair (embedded PNG bitmaps) is used for drawing; the other
// flags are reported for diagnostics.
type Capability struct {
	CBDT    bool
	Sbix    bool
	COLR    bool
	SVG     bool
	Strikes []int
}

// emojiFont shapes emoji clusters into glyphs and serves their PNG bitmaps.
type emojiFont struct {
	capability Capability
	bitmaps    *bitmapFont
	shapeFont  *font.Font

	// shapers pools HarfbuzzShaper instances: they carry mutable buffers
	// and are not safe for concurrent use.
	shapers sync.Pool

	mu     sync.Mutex
	images map[imageKey][]image.Image
}

// imageKey caches decoded bitmaps per cluster and strike. A nil cached value
// records that the font cannot draw the cluster.
type imageKey struct {
	cluster string
	ppem    int
}

func newEmojiFont(data []byte) (*emojiFont, error) {
	tables, err := sfntTables(data)
	if err != nil {
		return nil, err
	}
	capability := Capability{
		CBDT: tables["CBDT"] != nil && tables["CBLC"] != nil,
		Sbix: tables["sbix"] != nil,
		COLR: tables["COLR"] != nil,
		SVG:  tables["SVG "] != nil,
	}
	if !capability.CBDT {
		return nil, fmt.Errorf("font has no CBDT/CBLC tables (sbix=%t colr=%t svg=%t)",
			capability.Sbix, capability.COLR, capability.SVG)
	}
	bitmaps, err := newBitmapFont(tables["CBDT"], tables["CBLC"])
	if err != nil {
		return nil, fmt.Errorf("parsing CBDT/CBLC: %w", err)
	}
	for _, strike := range bitmaps.strikes {
		capability.Strikes = append(capability.Strikes, strike.ppem)
	}
	parsed, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing emoji font for shaping: %w", err)
	}
	return &emojiFont{
		capability: capability,
		bitmaps:    bitmaps,
		shapeFont:  parsed.Font,
		shapers:    sync.Pool{New: func() any { return &shaping.HarfbuzzShaper{} }},
		images:     make(map[imageKey][]image.Image),
	}, nil
}

// Images returns the decoded bitmaps for a cluster, one per shaped glyph, or
// false when the font cannot draw the cluster in color.
func (e *emojiFont) Images(cluster string, ppem int) ([]image.Image, bool) {
	key := imageKey{cluster: cluster, ppem: e.bitmaps.selectStrike(ppem).ppem}
	e.mu.Lock()
	cached, ok := e.images[key]
	e.mu.Unlock()
	if ok {
		return cached, cached != nil
	}

	images := e.extract(cluster, key.ppem)
	e.mu.Lock()
	e.images[key] = images
	e.mu.Unlock()
	return images, images != nil
}

func (e *emojiFont) extract(cluster string, ppem int) []image.Image {
	var images []image.Image
	for _, glyphID := range e.shape(cluster, ppem) {
		bitmap, err := e.bitmaps.glyph(glyphID, ppem)
		if err != nil {
			return nil
		}
		decoded, err := png.Decode(bytes.NewReader(bitmap.png))
		if err != nil {
			return nil
		}
		images = append(images, decoded)
	}
	return images
}

// shape maps a cluster to glyph IDs through HarfBuzz shaping, so joiner and
// selector sequences ligate into their combined glyph when the font has one.
// A notdef glyph anywhere makes the whole cluster undrawable.
func (e *emojiFont) shape(cluster string, ppem int) []uint16 {
	runes := []rune(cluster)
	if len(runes) == 0 {
		return nil
	}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(e.shapeFont),
		Size:      fixed.I(ppem),
		Script:    language.LookupScript(runes[0]),
		Language:  language.NewLanguage("en"),
	}
	shaper := e.shapers.Get().(*shaping.HarfbuzzShaper)
	output := shaper.Shape(input)
	e.shapers.Put(shaper)

	glyphs := make([]uint16, 0, len(output.Glyphs))
	for _, glyph := range output.Glyphs {
		if glyph.GlyphID == 0 {
			return nil
		}
		glyphs = append(glyphs, uint16(glyph.GlyphID))
	}
	return glyphs
}

// sfntTables indexes the raw table data of a single-font sfnt file.
func sfntTables(data []byte) (map[string][]byte, error) {
	if len(data) < 12 {
		return nil, errors.New("font file too short")
	}
	version := binary.BigEndian.Uint32(data[0:4])
	switch version {
	case 0x00010000, 0x4F54544F, 0x74727565: // TrueType, 'OTTO', 'true'
	case 0x74746366: // 'ttcf'
		return nil, errors.New("font collections are not supported")
	default:
		return nil, fmt.Errorf("unrecognized font version %#08x", version)
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	if 12+numTables*16 > len(data) {
		return nil, errors.New("font table directory out of bounds")
	}
	tables := make(map[string][]byte, numTables)
	for i := 0; i < numTables; i++ {
		record := data[12+i*16:]
		tag := string(record[0:4])
		offset := int(binary.BigEndian.Uint32(record[8:12]))
		length := int(binary.BigEndian.Uint32(record[12:16]))
		if offset+length > len(data) {
			return nil, fmt.Errorf("table %q out of bounds", tag)
		}
		tables[tag] = data[offset : offset+length]
	}
	return tables, nil
}

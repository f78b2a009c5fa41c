package typeface

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	errMalformedBitmapTable = errors.New("malformed color bitmap table")
	errGlyphNotInBitmap     = errors.New("glyph has no bitmap")
)

// bitmapFont reads PNG glyphs out of a font's CBDT/CBLC table pair. CBLC
// locates glyph records per strike (one strike per rendered pixel size),
// CBDT holds the image data. Both tables are parsed up front so a malformed
// font is rejected at probe time rather than mid-request.
type bitmapFont struct {
	cbdt    []byte
	strikes []bitmapStrike
}

type bitmapStrike struct {
	startGlyph uint16
	endGlyph   uint16
	ppem       int
	subtables  []bitmapSubtable
}

type bitmapSubtable struct {
	firstGlyph  uint16
	lastGlyph   uint16
	indexFormat uint16
	imageFormat uint16
	dataOffset  uint32

	offsets32  []uint32          // index format 1
	offsets16  []uint16          // index format 3
	glyphPairs []glyphOffsetPair // index format 4
	glyphIDs   []uint16          // index format 5
	imageSize  uint32            // index formats 2 and 5
	width      int               // index formats 2 and 5
	height     int               // index formats 2 and 5
}

// glyphOffsetPair maps a sparse glyph ID to its data offset. The trailing
// sentinel pair delimits the final glyph's extent.
type glyphOffsetPair struct {
	glyphID uint16
	offset  uint16
}

// bitmapGlyph is one extracted PNG image and its nominal dimensions.
type bitmapGlyph struct {
	png    []byte
	ppem   int
	width  int
	height int
}

// Index subtable and image data formats, per the OpenType CBLC/CBDT
// specification. Only the PNG image formats are supported.
const (
	indexFormatOffsets32      = 1
	indexFormatConstant       = 2
	indexFormatOffsets16      = 3
	indexFormatSparseOffsets  = 4
	indexFormatSparseConstant = 5

	imageFormatSmallPNG = 17
	imageFormatBigPNG   = 18
	imageFormatBarePNG  = 19
)

func newBitmapFont(cbdt, cblc []byte) (*bitmapFont, error) {
	if len(cblc) < 8 {
		return nil, errMalformedBitmapTable
	}
	if major := binary.BigEndian.Uint16(cblc[0:2]); major != 3 {
		return nil, fmt.Errorf("unsupported CBLC version %d", major)
	}
	numStrikes := int(binary.BigEndian.Uint32(cblc[4:8]))

	// BitmapSize records are 48 bytes each, following the 8-byte header.
	const recordSize = 48
	if 8+numStrikes*recordSize > len(cblc) {
		return nil, errMalformedBitmapTable
	}

	font := &bitmapFont{cbdt: cbdt}
	for i := 0; i < numStrikes; i++ {
		record := cblc[8+i*recordSize:]
		strike := bitmapStrike{
			startGlyph: binary.BigEndian.Uint16(record[40:42]),
			endGlyph:   binary.BigEndian.Uint16(record[42:44]),
			ppem:       int(record[44]),
		}
		listOffset := int(binary.BigEndian.Uint32(record[0:4]))
		listCount := int(binary.BigEndian.Uint32(record[8:12]))
		if err := strike.parseSubtables(cblc, listOffset, listCount); err != nil {
			return nil, err
		}
		font.strikes = append(font.strikes, strike)
	}
	if len(font.strikes) == 0 {
		return nil, errMalformedBitmapTable
	}
	return font, nil
}

// parseSubtables reads the strike's IndexSubtableArray and each subtable it
// points at.
func (s *bitmapStrike) parseSubtables(cblc []byte, listOffset, count int) error {
	if listOffset+count*8 > len(cblc) {
		return errMalformedBitmapTable
	}
	for i := 0; i < count; i++ {
		record := cblc[listOffset+i*8:]
		subtable := bitmapSubtable{
			firstGlyph: binary.BigEndian.Uint16(record[0:2]),
			lastGlyph:  binary.BigEndian.Uint16(record[2:4]),
		}
		offset := listOffset + int(binary.BigEndian.Uint32(record[4:8]))
		if err := subtable.parse(cblc, offset); err != nil {
			return err
		}
		s.subtables = append(s.subtables, subtable)
	}
	return nil
}

func (t *bitmapSubtable) parse(cblc []byte, offset int) error {
	if offset+8 > len(cblc) {
		return errMalformedBitmapTable
	}
	t.indexFormat = binary.BigEndian.Uint16(cblc[offset : offset+2])
	t.imageFormat = binary.BigEndian.Uint16(cblc[offset+2 : offset+4])
	t.dataOffset = binary.BigEndian.Uint32(cblc[offset+4 : offset+8])

	body := offset + 8
	numGlyphs := int(t.lastGlyph) - int(t.firstGlyph) + 1

	switch t.indexFormat {
	case indexFormatOffsets32:
		// One 32-bit offset per glyph plus an end sentinel.
		count := numGlyphs + 1
		if body+count*4 > len(cblc) {
			return errMalformedBitmapTable
		}
		t.offsets32 = make([]uint32, count)
		for i := range t.offsets32 {
			t.offsets32[i] = binary.BigEndian.Uint32(cblc[body+i*4:])
		}

	case indexFormatConstant:
		// All glyphs share one image size and one set of metrics.
		if body+12 > len(cblc) {
			return errMalformedBitmapTable
		}
		t.imageSize = binary.BigEndian.Uint32(cblc[body : body+4])
		t.height = int(cblc[body+4])
		t.width = int(cblc[body+5])

	case indexFormatOffsets16:
		count := numGlyphs + 1
		if body+count*2 > len(cblc) {
			return errMalformedBitmapTable
		}
		t.offsets16 = make([]uint16, count)
		for i := range t.offsets16 {
			t.offsets16[i] = binary.BigEndian.Uint16(cblc[body+i*2:])
		}

	case indexFormatSparseOffsets:
		// Sparse glyph IDs, each paired with a 16-bit offset, plus an end
		// sentinel pair.
		if body+4 > len(cblc) {
			return errMalformedBitmapTable
		}
		count := int(binary.BigEndian.Uint32(cblc[body:body+4])) + 1
		if body+4+count*4 > len(cblc) {
			return errMalformedBitmapTable
		}
		t.glyphPairs = make([]glyphOffsetPair, count)
		for i := range t.glyphPairs {
			t.glyphPairs[i] = glyphOffsetPair{
				glyphID: binary.BigEndian.Uint16(cblc[body+4+i*4:]),
				offset:  binary.BigEndian.Uint16(cblc[body+6+i*4:]),
			}
		}

	case indexFormatSparseConstant:
		// Sparse glyph IDs sharing one image size and one set of metrics.
		if body+16 > len(cblc) {
			return errMalformedBitmapTable
		}
		t.imageSize = binary.BigEndian.Uint32(cblc[body : body+4])
		t.height = int(cblc[body+4])
		t.width = int(cblc[body+5])
		count := int(binary.BigEndian.Uint32(cblc[body+12 : body+16]))
		if body+16+count*2 > len(cblc) {
			return errMalformedBitmapTable
		}
		t.glyphIDs = make([]uint16, count)
		for i := range t.glyphIDs {
			t.glyphIDs[i] = binary.BigEndian.Uint16(cblc[body+16+i*2:])
		}

	default:
		return fmt.Errorf("unsupported CBLC index format %d", t.indexFormat)
	}
	return nil
}

// selectStrike returns the strike best matching the requested pixel size:
// the smallest strike at least as large, or the largest available.
func (f *bitmapFont) selectStrike(ppem int) *bitmapStrike {
	var atLeast, largest *bitmapStrike
	for i := range f.strikes {
		strike := &f.strikes[i]
		if largest == nil || strike.ppem > largest.ppem {
			largest = strike
		}
		if strike.ppem >= ppem && (atLeast == nil || strike.ppem < atLeast.ppem) {
			atLeast = strike
		}
	}
	if atLeast != nil {
		return atLeast
	}
	return largest
}

// glyph extracts the PNG bitmap for a glyph at the strike closest to ppem.
func (f *bitmapFont) glyph(glyphID uint16, ppem int) (*bitmapGlyph, error) {
	strike := f.selectStrike(ppem)
	if glyphID < strike.startGlyph || glyphID > strike.endGlyph {
		return nil, errGlyphNotInBitmap
	}
	for i := range strike.subtables {
		subtable := &strike.subtables[i]
		if glyphID >= subtable.firstGlyph && glyphID <= subtable.lastGlyph {
			return f.extract(glyphID, subtable, strike)
		}
	}
	return nil, errGlyphNotInBitmap
}

func (f *bitmapFont) extract(glyphID uint16, subtable *bitmapSubtable, strike *bitmapStrike) (*bitmapGlyph, error) {
	index := int(glyphID) - int(subtable.firstGlyph)

	var offset, size uint32
	glyph := &bitmapGlyph{ppem: strike.ppem}
	switch subtable.indexFormat {
	case indexFormatOffsets32:
		offset = subtable.dataOffset + subtable.offsets32[index]
		size = subtable.offsets32[index+1] - subtable.offsets32[index]
	case indexFormatConstant:
		offset = subtable.dataOffset + uint32(index)*subtable.imageSize
		size = subtable.imageSize
		glyph.width, glyph.height = subtable.width, subtable.height
	case indexFormatOffsets16:
		offset = subtable.dataOffset + uint32(subtable.offsets16[index])
		size = uint32(subtable.offsets16[index+1] - subtable.offsets16[index])
	case indexFormatSparseOffsets:
		found := false
		for i := 0; i+1 < len(subtable.glyphPairs); i++ {
			if subtable.glyphPairs[i].glyphID != glyphID {
				continue
			}
			offset = subtable.dataOffset + uint32(subtable.glyphPairs[i].offset)
			size = uint32(subtable.glyphPairs[i+1].offset - subtable.glyphPairs[i].offset)
			found = true
			break
		}
		if !found {
			return nil, errGlyphNotInBitmap
		}
	case indexFormatSparseConstant:
		found := false
		for i, id := range subtable.glyphIDs {
			if id != glyphID {
				continue
			}
			offset = subtable.dataOffset + uint32(i)*subtable.imageSize
			size = subtable.imageSize
			glyph.width, glyph.height = subtable.width, subtable.height
			found = true
			break
		}
		if !found {
			return nil, errGlyphNotInBitmap
		}
	}
	if size == 0 {
		return nil, errGlyphNotInBitmap
	}
	if int(offset)+int(size) > len(f.cbdt) {
		return nil, errMalformedBitmapTable
	}
	record := f.cbdt[offset : offset+size]

	// The glyph record embeds metrics ahead of the PNG payload, except for
	// format 19 where metrics live in the CBLC subtable.
	var metricsLen int
	switch subtable.imageFormat {
	case imageFormatSmallPNG:
		metricsLen = 5
	case imageFormatBigPNG:
		metricsLen = 8
	case imageFormatBarePNG:
		metricsLen = 0
	default:
		return nil, fmt.Errorf("unsupported CBDT image format %d", subtable.imageFormat)
	}
	if len(record) < metricsLen+4 {
		return nil, errMalformedBitmapTable
	}
	if metricsLen > 0 {
		glyph.height = int(record[0])
		glyph.width = int(record[1])
	}
	dataLen := binary.BigEndian.Uint32(record[metricsLen : metricsLen+4])
	payload := record[metricsLen+4:]
	if int(dataLen) > len(payload) {
		return nil, errMalformedBitmapTable
	}
	glyph.png = payload[:dataLen]
	return glyph, nil
}

// Package canonicalize repairs user-supplied strings into displayable form.
package canonicalize

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// maxDisplayNameRunes caps a display name after decoding.
const maxDisplayNameRunes = 128

var (
	// artifactRunes are characters typical of UTF-8 bytes mistakenly decoded
	// as Latin-1.
	artifactRunes = map[rune]bool{
		'Ã': true, 'Â': true, 'å': true, 'æ': true, 'ç': true,
		'ð': true, 'ñ': true, 'â': true, 'ä': true, 'ö': true,
		'ü': true, 'ì': true, 'í': true, 'ï': true, 'î': true,
	}

	// repairEncodings are tried in order against the Latin-1 byte projection
	// of garbled text. UTF-8 is tried first, separately.
	repairEncodings = []encoding.Encoding{
		simplifiedchinese.GB18030,
		traditionalchinese.Big5,
	}
)

// DisplayName decodes and repairs a user-supplied display name. It URL-decodes
// names that still carry an escaped layer, repairs mojibake left by a
// wrong-charset decode, and caps the result at maxDisplayNameRunes code
// points. Best effort: a name that cannot be improved is returned unchanged,
// never an error.
func DisplayName(name string) string {
	if strings.ContainsAny(name, "%+") {
		if decoded, err := url.QueryUnescape(name); err == nil && decoded != name {
			name = decoded
		}
	}
	name = repairMojibake(name)
	if runes := []rune(name); len(runes) > maxDisplayNameRunes {
		name = string(runes[:maxDisplayNameRunes])
	}
	return name
}

// repairMojibake re-decodes text that was some multi-byte encoding mistakenly
// read as Latin-1. It projects the text back to its original bytes and
// accepts the first re-interpretation that decodes cleanly and no longer
// looks garbled.
func repairMojibake(name string) string {
	if !looksGarbled(name) {
		return name
	}
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(name))
	if err != nil {
		// A code point above U+00FF means the Latin-1 assumption is wrong.
		return name
	}
	if !hasMultibyteRun(raw) {
		// Multi-byte text read as Latin-1 leaves runs of consecutive high
		// bytes. Isolated accents are a legitimate name, not a garble.
		return name
	}
	if utf8.Valid(raw) {
		if candidate := string(raw); !looksGarbled(candidate) {
			return candidate
		}
	}
	for _, enc := range repairEncodings {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		if candidate := string(decoded); !looksGarbled(candidate) {
			return candidate
		}
	}
	return name
}

// hasMultibyteRun reports whether raw contains two consecutive bytes >= 0x80.
func hasMultibyteRun(raw []byte) bool {
	for i := 1; i < len(raw); i++ {
		if raw[i-1] >= 0x80 && raw[i] >= 0x80 {
			return true
		}
	}
	return false
}

// looksGarbled reports whether text shows signs of a wrong-charset decode:
// any replacement character, or at least two Latin-1 artifact characters.
func looksGarbled(name string) bool {
	if strings.ContainsRune(name, utf8.RuneError) {
		return true
	}
	count := 0
	for _, r := range name {
		if artifactRunes[r] {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}

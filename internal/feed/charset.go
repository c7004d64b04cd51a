package feed

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Encoding represents a feed text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1253 Encoding = "windows-1253"
	EncodingISO88597    Encoding = "iso-8859-7"
)

var xmlDeclEncodingRe = regexp.MustCompile(`<\?xml[^?]*encoding=["']([^"']+)["'][^?]*\?>`)

// DetectEncoding detects the encoding of a feed buffer. Greek feeds
// commonly arrive as Windows-1253 or ISO-8859-7 without a declaration.
func DetectEncoding(data []byte) Encoding {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return EncodingUTF8
	}

	head := data
	if len(head) > 200 {
		head = head[:200]
	}
	if match := xmlDeclEncodingRe.FindSubmatch(head); len(match) > 1 {
		switch strings.ToLower(string(match[1])) {
		case "windows-1253", "cp1253":
			return EncodingWindows1253
		case "iso-8859-7", "iso8859-7", "greek":
			return EncodingISO88597
		case "utf-8", "utf8":
			return EncodingUTF8
		}
	}

	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1253
}

// Decode converts a feed buffer from the given encoding to a UTF-8
// string. Data that is already valid UTF-8 is returned directly.
func Decode(data []byte, enc Encoding) (string, error) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if enc == EncodingUTF8 || enc == "" || utf8.Valid(data) {
		return string(data), nil
	}

	var decoder *encoding.Decoder
	switch enc {
	case EncodingWindows1253:
		decoder = charmap.Windows1253.NewDecoder()
	case EncodingISO88597:
		decoder = charmap.ISO8859_7.NewDecoder()
	default:
		return string(data), nil
	}

	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data), nil
	}
	return string(decoded), nil
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics removes combining marks so accented text compares equal
// to its unaccented form.
func FoldDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

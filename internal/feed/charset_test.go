package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestDetectEncoding(t *testing.T) {
	greek1253, err := charmap.Windows1253.NewEncoder().Bytes([]byte("τηλεόραση"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		content  []byte
		expected Encoding
	}{
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("<products/>")...), EncodingUTF8},
		{"declared windows-1253", []byte(`<?xml version="1.0" encoding="windows-1253"?><products/>`), EncodingWindows1253},
		{"declared iso-8859-7", []byte(`<?xml version="1.0" encoding="ISO-8859-7"?><products/>`), EncodingISO88597},
		{"declared utf-8", []byte(`<?xml version="1.0" encoding="UTF-8"?><products/>`), EncodingUTF8},
		{"no declaration valid utf8", []byte("<products><product><title>τηλεόραση</title></product></products>"), EncodingUTF8},
		{"no declaration invalid utf8", append([]byte("<products>"), greek1253...), EncodingWindows1253},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectEncoding(tt.content))
		})
	}
}

func TestDecodeWindows1253(t *testing.T) {
	encoded, err := charmap.Windows1253.NewEncoder().Bytes([]byte("Διαθέσιμο"))
	require.NoError(t, err)

	decoded, err := Decode(encoded, EncodingWindows1253)
	require.NoError(t, err)
	assert.Equal(t, "Διαθέσιμο", decoded)
}

func TestFoldDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"tiléorasi", "tileorasi"},
		{"café", "cafe"},
		{"über", "uber"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FoldDiacritics(tt.input))
	}
}

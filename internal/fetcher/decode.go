package fetcher

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DecodeText converts a playlist body to UTF-8. A leading UTF-8 BOM is
// removed; bodies that are not valid UTF-8 are decoded as ISO-8859-1, the
// usual encoding of legacy European provider lists.
func DecodeText(body []byte) ([]byte, error) {
	if utf8.Valid(body) {
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("strip BOM: %w", err)
		}
		return out, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode ISO-8859-1: %w", err)
	}
	return out, nil
}

// Parse decodes body and parses it as M3U.
func Parse(body []byte) (*Result, error) {
	text, err := DecodeText(body)
	if err != nil {
		return nil, err
	}
	return ParseM3U(bytes.NewReader(text))
}

package utils

import (
	"bytes"
	"unicode/utf8"
)

// binarySniffLength bounds the prefix searched for NUL bytes.
const binarySniffLength = 8000

// IsBinary reports whether content cannot be exported as text: it carries a
// NUL byte near the start or is not valid UTF-8 anywhere.
func IsBinary(content []byte) bool {
	sniffed := content
	if len(sniffed) > binarySniffLength {
		sniffed = sniffed[:binarySniffLength]
	}
	if bytes.IndexByte(sniffed, 0) >= 0 {
		return true
	}
	return !utf8.Valid(content)
}

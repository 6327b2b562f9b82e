// Package encoding decodes the EUC-KR fixed-size strings embedded in RSM model files.
package encoding

import (
	"bytes"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to a UTF-8 string.
// Returns the input unchanged if it is not valid EUC-KR.
func EUCKRToUTF8(data []byte) string {
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR converts a UTF-8 string to EUC-KR bytes.
// Returns the input bytes unchanged if a rune has no EUC-KR form.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// FixedString decodes a NUL-padded EUC-KR field.
func FixedString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return EUCKRToUTF8(data)
}

// PutFixedString encodes s as a NUL-padded EUC-KR field of the given size.
// Longer names are truncated.
func PutFixedString(s string, size int) []byte {
	out := make([]byte, size)
	copy(out, UTF8ToEUCKR(s))
	return out
}

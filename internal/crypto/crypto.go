// Package crypto holds the credential obfuscation used for persisted API keys.
//
// The encoding is reversible and keyless: base64 followed by reversing the
// encoded string. It keeps a key from being readable at a glance in a config
// file or document, nothing more. Anyone with the stored value can recover the
// credential, so it must not be described as encryption.
package crypto

import (
	"encoding/base64"
	"unicode/utf8"
)

// Encode obfuscates a plaintext credential. Encode("") returns "".
func Encode(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	return reverse(base64.StdEncoding.EncodeToString([]byte(plaintext)))
}

// Decode recovers a credential produced by Encode. Malformed input yields ""
// rather than an error; callers treat "" as "no usable credential".
func Decode(encoded string) string {
	if encoded == "" {
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(reverse(encoded))
	if err != nil {
		return ""
	}
	if !utf8.Valid(decoded) {
		return ""
	}

	return string(decoded)
}

// IsEncoded checks if a value decodes to a non-empty credential
func IsEncoded(value string) bool {
	return Decode(value) != ""
}

// reverse reverses a string byte-wise. Base64 output is ASCII, so bytes and
// runes coincide for every value this package reverses on the decode path.
func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

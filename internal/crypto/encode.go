package crypto

import "encoding/base64"

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// B64URL returns unpadded URL-safe base64.
func B64URL(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

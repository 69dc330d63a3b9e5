// Package base32x implements the RFC 4648 Base32 alphabet without padding.
//
// It exists because TOTP secrets are transcribed by humans: Decode is
// deliberately lenient and skips characters outside the alphabet (spaces,
// dashes, lookalike typos) instead of rejecting the whole input. The
// standard library's encoding/base32 has no equivalent mode.
package base32x

import "strings"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// Encode maps every 5-bit group of src to one alphabet symbol. A partial
// final group is zero-padded on the right; no '=' padding is emitted.
func Encode(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	// ceil(len*8/5) output symbols
	var b strings.Builder
	b.Grow((len(src)*8 + 4) / 5)

	var buf uint32
	var bits uint
	for _, c := range src {
		buf = buf<<8 | uint32(c)
		bits += 8
		for bits >= 5 {
			bits -= 5
			b.WriteByte(alphabet[(buf>>bits)&0x1f])
		}
	}
	if bits > 0 {
		b.WriteByte(alphabet[(buf<<(5-bits))&0x1f])
	}

	return b.String()
}

// Decode is the inverse of Encode. It is case-insensitive, silently skips
// characters that are not part of the alphabet, and discards trailing bits
// that do not complete a full byte. The leniency is intentional; secrets
// previously issued with separators or transcription noise keep decoding.
func Decode(s string) []byte {
	out := make([]byte, 0, len(s)*5/8)

	var buf uint32
	var bits uint
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		idx := strings.IndexByte(alphabet, c)
		if idx < 0 {
			continue
		}
		buf = buf<<5 | uint32(idx)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
		}
	}

	return out
}

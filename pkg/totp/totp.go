// Package totp implements the RFC 6238 time-based one-time password
// algorithm from primitives: HMAC-SHA1 over a 30-second counter, dynamic
// truncation, 6 digits. Any compliant authenticator app interoperates.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" // #nosec G505 - SHA1 is what RFC 6238 authenticator apps speak
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"net/url"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/base32x"
)

const (
	// Period is the code rotation interval in seconds.
	Period = 30

	// Digits is the length of generated codes.
	Digits = 6

	// DefaultSecretLength is the number of random bytes in a fresh secret.
	DefaultSecretLength = 32

	// DefaultWindow accepts one step of clock skew either side (±30s).
	DefaultWindow = 1
)

// GenerateSecret returns a Base32-encoded secret of byteLength random bytes.
// A byteLength below 1 falls back to DefaultSecretLength.
func GenerateSecret(byteLength int) (string, error) {
	if byteLength < 1 {
		byteLength = DefaultSecretLength
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("totp: failed to generate secret: %w", err)
	}

	return base32x.Encode(buf), nil
}

// ProvisioningURI builds the otpauth URI that authenticator apps scan.
// Label and issuer are percent-encoded; the parameter set is fixed to the
// SHA1/6-digit/30-second profile this package implements.
func ProvisioningURI(secret, account, issuer string) string {
	label := url.PathEscape(issuer + ":" + account)
	return fmt.Sprintf(
		"otpauth://totp/%s?secret=%s&issuer=%s&algorithm=SHA1&digits=%d&period=%d",
		label, secret, url.QueryEscape(issuer), Digits, Period,
	)
}

// Verify reports whether code is valid for secret at the current time,
// accepting window steps of skew either side.
func Verify(secret, code string, window int) bool {
	return VerifyAt(secret, code, time.Now(), window)
}

// VerifyAt is Verify with an explicit evaluation time.
//
// The candidate must be exactly six ASCII digits; anything else is rejected
// before touching the secret. Each candidate slice is compared in constant
// time.
func VerifyAt(secret, code string, at time.Time, window int) bool {
	if !isSixDigits(code) {
		return false
	}
	if window < 0 {
		window = 0
	}

	key := base32x.Decode(secret)
	timeSlice := at.Unix() / Period

	for i := -int64(window); i <= int64(window); i++ {
		calculated := code6(key, timeSlice+i)
		if subtle.ConstantTimeCompare([]byte(calculated), []byte(code)) == 1 {
			return true
		}
	}

	return false
}

// At returns the code for secret at the given time slice. It is a pure
// function of its inputs, exported so callers can mint codes for enrollment
// checks and tests.
func At(secret string, timeSlice int64) string {
	return code6(base32x.Decode(secret), timeSlice)
}

// TimeSlice converts a wall-clock time to its 30-second counter value.
func TimeSlice(at time.Time) int64 {
	return at.Unix() / Period
}

func code6(key []byte, timeSlice int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(timeSlice)) // #nosec G115 - counter is non-negative until year 292277026596

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation (RFC 4226 §5.3): low nibble of the last byte picks
	// a 4-byte window, top bit masked to stay within 31 bits.
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%06d", value%1000000)
}

func isSixDigits(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

package totp

import (
	"testing"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// Base32 encoding of the ASCII secret "12345678901234567890" used by the
// RFC 6238 appendix test vectors.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestAtRFCVectors(t *testing.T) {
	t.Parallel()

	// RFC 6238 appendix B SHA-1 vectors, truncated to six digits.
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tt := range tests {
		code := At(rfcSecret, tt.unix/Period)
		require.Equal(t, tt.want, code, "unix %d", tt.unix)
	}
}

func TestAtIsDeterministic(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret(DefaultSecretLength)
	require.NoError(t, err)

	slice := TimeSlice(time.Now())
	first := At(secret, slice)
	for range 10 {
		require.Equal(t, first, At(secret, slice))
	}
	require.Len(t, first, Digits)
}

func TestVerifyAtWindow(t *testing.T) {
	t.Parallel()

	at := time.Unix(1700000000, 0)
	slice := TimeSlice(at)
	code := At(rfcSecret, slice)

	t.Run("accepted in-slice and within skew", func(t *testing.T) {
		require.True(t, VerifyAt(rfcSecret, code, at, DefaultWindow))
		require.True(t, VerifyAt(rfcSecret, code, at.Add(-29*time.Second), DefaultWindow))
		require.True(t, VerifyAt(rfcSecret, code, at.Add(29*time.Second), DefaultWindow))
	})

	t.Run("rejected two slices away", func(t *testing.T) {
		require.False(t, VerifyAt(rfcSecret, At(rfcSecret, slice-2), at, DefaultWindow))
		require.False(t, VerifyAt(rfcSecret, At(rfcSecret, slice+2), at, DefaultWindow))
	})

	t.Run("stale code rejected", func(t *testing.T) {
		stale := At(rfcSecret, TimeSlice(at.Add(-5*time.Minute)))
		require.False(t, VerifyAt(rfcSecret, stale, at, DefaultWindow))
	})
}

func TestVerifyAtRejectsMalformedCodes(t *testing.T) {
	t.Parallel()

	at := time.Unix(1700000000, 0)
	for _, code := range []string{"", "12345", "1234567", "12a456", "12345 ", "½23456"} {
		require.False(t, VerifyAt(rfcSecret, code, at, DefaultWindow), "code %q", code)
	}
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	s1, err := GenerateSecret(32)
	require.NoError(t, err)
	s2, err := GenerateSecret(32)
	require.NoError(t, err)

	require.NotEqual(t, s1, s2)
	require.Len(t, s1, 52) // 32 bytes -> ceil(256/5) symbols, no padding
	require.NotContains(t, s1, "=")

	short, err := GenerateSecret(0)
	require.NoError(t, err)
	require.Len(t, short, 52) // falls back to the default length
}

func TestProvisioningURI(t *testing.T) {
	t.Parallel()

	uri := ProvisioningURI("ABC234", "alice@example.com", "Gate Keep")
	require.Equal(t,
		"otpauth://totp/Gate%20Keep:alice@example.com?secret=ABC234&issuer=Gate+Keep&algorithm=SHA1&digits=6&period=30",
		uri,
	)
}

// Codes minted here must validate against an independent RFC 6238
// implementation, and vice versa.
func TestInteropWithPquernaOTP(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret(DefaultSecretLength)
	require.NoError(t, err)

	at := time.Unix(1700000123, 0)
	opts := pqtotp.ValidateOpts{
		Period:    Period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}

	ours := At(secret, TimeSlice(at))
	ok, err := pqtotp.ValidateCustom(ours, secret, at, opts)
	require.NoError(t, err)
	require.True(t, ok, "pquerna/otp rejected our code")

	theirs, err := pqtotp.GenerateCodeCustom(secret, at, opts)
	require.NoError(t, err)
	require.True(t, VerifyAt(secret, theirs, at, DefaultWindow), "we rejected pquerna/otp code")
}

package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Argon2id parameters.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	pepper     string
	pepperFile string
)

// SetPepperPath sets the file the pepper is loaded from (or written to on
// first use). Must be called before the first hash or verify.
func SetPepperPath(file string) {
	pepperFile = file
}

// GetPepper returns the process-wide pepper, loading or generating it on
// first call. A missing pepper is unrecoverable: every stored hash depends
// on it.
func GetPepper() string {
	if pepper != "" {
		return pepper
	}

	p, err := loadPepper()
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}

	pepper = p
	return pepper
}

func loadPepper() (string, error) {
	path := filepath.Clean(pepperFile)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create pepper directory: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		return string(raw), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read pepper file: %w", err)
	}

	return generatePepper(path)
}

func generatePepper(path string) (string, error) {
	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate pepper: %w", err)
	}

	p := base64.RawURLEncoding.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(p), 0600); err != nil {
		return "", fmt.Errorf("failed to write pepper file: %w", err)
	}
	return p, nil
}

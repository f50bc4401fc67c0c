package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// Verifier checks admin credentials.
type Verifier interface {
	Verify(username, password string) bool
}

// HashVerifier accepts one username whose password is stored as an
// Argon2id hash. A zero HashVerifier rejects every attempt.
type HashVerifier struct {
	username string
	hash     string
}

func NewHashVerifier(username, hash string) *HashVerifier {
	return &HashVerifier{username: username, hash: hash}
}

// Enabled reports whether credentials are configured.
func (v *HashVerifier) Enabled() bool {
	return v.username != "" && v.hash != ""
}

func (v *HashVerifier) Verify(username, password string) bool {
	if !v.Enabled() {
		return false
	}
	// Hash even on a username mismatch so timing does not reveal which
	// field was wrong.
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passMatch, err := CheckPassword(password, v.hash)
	if err != nil {
		slog.Error("failed to verify password", "error", err)
		return false
	}
	return userMatch && passMatch
}

// LoadSecretFile reads a "username:hash" secret file. A missing file
// yields a verifier that rejects everything, so the portal still serves
// documents read-only.
func LoadSecretFile(path string) (*HashVerifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("no auth secret file found, admin login disabled",
				"path", path, "hint", "run `examportal hash-password` to create it")
			return &HashVerifier{}, nil
		}
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}

	line := strings.TrimSpace(string(data))
	username, hash, ok := strings.Cut(line, ":")
	if !ok || username == "" || hash == "" {
		return nil, fmt.Errorf("invalid auth file format (expected: username:hash)")
	}

	slog.Info("admin login enabled", "user", username, "file", path)
	return NewHashVerifier(username, hash), nil
}

// WriteSecretFile hashes password and writes "username:hash" to path with
// mode 0400. An existing file is replaced only when overwrite is set.
func WriteSecretFile(path, username, password string, overwrite bool) error {
	if strings.Contains(username, ":") {
		return fmt.Errorf("username must not contain ':'")
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("auth file already exists: %s", path)
		}
		// The file is read-only, so it has to be removed rather than truncated.
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing auth file: %w", err)
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := os.WriteFile(path, []byte(username+":"+hash+"\n"), 0400); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return nil
}

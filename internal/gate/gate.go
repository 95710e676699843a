// Package gate checks input against the one shared password in front of the
// calendar. It is a casual-access deterrent, not a security boundary.
package gate

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrWrongPassword = errors.New("wrong password")

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

const hashPrefix = "$argon2id$"

// maxMemory caps the m= parameter of a stored hash, in KiB.
const maxMemory = 1 << 20

// Gate holds the shared secret: either a literal password or an Argon2id
// hash produced by HashPassword.
type Gate struct {
	secret string
}

func New(secret string) *Gate {
	return &Gate{secret: secret}
}

// Enabled reports whether a secret is configured. A gate without one lets
// everybody in.
func (g *Gate) Enabled() bool {
	return g.secret != ""
}

// Check returns nil when input matches the secret and ErrWrongPassword when
// it does not. A malformed hash secret yields a descriptive error.
func (g *Gate) Check(input string) error {
	if !g.Enabled() {
		return nil
	}

	if strings.HasPrefix(g.secret, hashPrefix) {
		ok, err := VerifyPassword(input, g.secret)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return ErrWrongPassword
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(input), []byte(g.secret)) != 1 {
		return ErrWrongPassword
	}
	return nil
}

// HashPassword creates an Argon2id hash of the password.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return false, fmt.Errorf("not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parse hash version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("parse hash parameters: %w", err)
	}
	if threads < 1 {
		return false, fmt.Errorf("invalid hash parallelism %d", threads)
	}
	if iterations < 1 {
		return false, fmt.Errorf("invalid hash iterations %d", iterations)
	}
	if memory < 8*uint32(threads) || memory > maxMemory {
		return false, fmt.Errorf("invalid hash memory %d KiB", memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	decoded, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}
	if len(decoded) == 0 {
		return false, fmt.Errorf("empty hash")
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(decoded)))
	return subtle.ConstantTimeCompare(decoded, computed) == 1, nil
}

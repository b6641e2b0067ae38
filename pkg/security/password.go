// Package security holds credential hashing for stored user passwords.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/shopora-backend/pkg/config"
)

const algorithm = "argon2id"

var (
	// ErrInvalidHash is returned for stored hashes that are not argon2id PHC strings.
	ErrInvalidHash = errors.New("invalid argon2id hash")
	// ErrIncompatibleVersion is returned for hashes produced by another argon2 revision.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")

	b64 = base64.RawStdEncoding
)

// Params are the argon2id cost settings recorded in every hash.
type Params struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// ParamsFromConfig clamps the configured costs into a range that stays usable
// on small containers and still rejects trivially weak settings.
func ParamsFromConfig(cfg config.PasswordConfig) Params {
	return Params{
		MemoryKB:    uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Iterations:  uint32(clamp(cfg.ArgonTime, 1, 10)),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:      uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p Params) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKB, p.Parallelism, p.KeyLen)
}

// encode renders the PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$key
func (p Params) encode(salt, key []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm, argon2.Version, p.MemoryKB, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

type storedHash struct {
	params Params
	salt   []byte
	key    []byte
}

func parse(encoded string) (storedHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithm {
		return storedHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return storedHash{}, ErrInvalidHash
	}
	if version != argon2.Version {
		return storedHash{}, ErrIncompatibleVersion
	}

	var h storedHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.params.MemoryKB, &h.params.Iterations, &h.params.Parallelism); err != nil {
		return storedHash{}, ErrInvalidHash
	}
	if h.params.MemoryKB == 0 || h.params.Iterations == 0 || h.params.Parallelism == 0 {
		return storedHash{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = b64.Strict().DecodeString(fields[4]); err != nil || len(h.salt) == 0 {
		return storedHash{}, ErrInvalidHash
	}
	if h.key, err = b64.Strict().DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return storedHash{}, ErrInvalidHash
	}
	h.params.SaltLen = uint32(len(h.salt))
	h.params.KeyLen = uint32(len(h.key))
	return h, nil
}

// HashPassword derives a fresh argon2id hash with a random salt.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	params := ParamsFromConfig(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return params.encode(salt, params.derive(password, salt)), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash
// is an error, a wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parse(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.params.derive(password, h.salt)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with costs other than the
// ones cfg currently asks for. Unparseable hashes always need a rehash.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parse(encoded)
	if err != nil {
		return true
	}
	return h.params != ParamsFromConfig(cfg)
}

func clamp(value, lo, hi int) int {
	return max(lo, min(value, hi))
}

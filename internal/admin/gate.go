// Package admin holds the shared-secret check that protects destructive
// operations and the sender check used by the Telegram bot.
package admin

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrUnauthorized = errors.New("unauthorized access")

// Gate compares candidates against a provisioned secret. The zero value
// denies everything.
type Gate struct {
	secret string
	hash   *argon2idHash
	userID int64
}

// NewGate builds a gate. secretHash, when set, is an argon2id PHC string and
// takes precedence over the plain secret.
func NewGate(secret, secretHash string, adminUserID int64) (*Gate, error) {
	g := &Gate{secret: secret, userID: adminUserID}
	if secretHash != "" {
		h, err := parseArgon2idHash(secretHash)
		if err != nil {
			return nil, fmt.Errorf("admin secret hash: %w", err)
		}
		g.hash = h
	}
	return g, nil
}

// Authorize reports whether candidate matches the configured secret.
func (g *Gate) Authorize(candidate string) bool {
	if g == nil || candidate == "" {
		return false
	}
	if g.hash != nil {
		return g.hash.verify(candidate)
	}
	if g.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(g.secret)) == 1
}

// AuthorizeUser reports whether a Telegram sender is the configured admin.
func (g *Gate) AuthorizeUser(userID int64) bool {
	return g != nil && g.userID != 0 && userID == g.userID
}

// Check is Authorize returning ErrUnauthorized on failure.
func (g *Gate) Check(candidate string) error {
	if !g.Authorize(candidate) {
		return ErrUnauthorized
	}
	return nil
}

const (
	defaultMemory     = 64 * 1024
	defaultIterations = 3
	defaultThreads    = 1
	defaultKeyLength  = 32
)

type argon2idHash struct {
	m    uint32
	t    uint32
	p    uint8
	salt []byte
	sum  []byte
}

// HashSecret produces an argon2id PHC string for the admin.secret_hash setting.
func HashSecret(secret string, salt []byte) (string, error) {
	if secret == "" {
		return "", errors.New("secret must not be empty")
	}
	if len(salt) < 8 {
		return "", errors.New("salt must be at least 8 bytes")
	}
	sum := argon2.IDKey([]byte(secret), salt, defaultIterations, defaultMemory, defaultThreads, defaultKeyLength)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		defaultMemory,
		defaultIterations,
		defaultThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

func parseArgon2idHash(phc string) (*argon2idHash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id hash format")
	}
	if parts[2] != "v=19" {
		return nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}

	h := &argon2idHash{}
	for _, param := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(param, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("invalid argon2id params")
		}
		val, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid argon2id param %s", kv[0])
		}
		switch kv[0] {
		case "m":
			h.m = uint32(val)
		case "t":
			h.t = uint32(val)
		case "p":
			if val > 255 {
				return nil, errors.New("invalid argon2id parallelism")
			}
			h.p = uint8(val)
		default:
			return nil, fmt.Errorf("unknown argon2id param %s", kv[0])
		}
	}
	if h.m == 0 || h.t == 0 || h.p == 0 {
		return nil, errors.New("invalid argon2id params")
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.salt) == 0 {
		return nil, errors.New("invalid argon2id salt")
	}
	if h.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.sum) == 0 {
		return nil, errors.New("invalid argon2id hash")
	}
	return h, nil
}

func (h *argon2idHash) verify(candidate string) bool {
	sum := argon2.IDKey([]byte(candidate), h.salt, h.t, h.m, h.p, uint32(len(h.sum)))
	return subtle.ConstantTimeCompare(sum, h.sum) == 1
}

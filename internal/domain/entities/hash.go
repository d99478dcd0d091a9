package entities

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// HashType identifies what a Hash addresses.
type HashType byte

const (
	HashAction HashType = iota + 1
	HashEntry
	HashAgent
	HashPath
	HashLink
)

const (
	hashPrefixLen = 3
	hashDigestLen = sha256.Size
	// HashLen is the length in bytes of every Hash.
	HashLen = hashPrefixLen + hashDigestLen
)

var hashPrefixes = map[HashType][hashPrefixLen]byte{
	HashAction: {0x84, 0x29, 0x24},
	HashEntry:  {0x84, 0x21, 0x24},
	HashAgent:  {0x84, 0x20, 0x24},
	HashPath:   {0x84, 0x2f, 0x24},
	HashLink:   {0x84, 0x2e, 0x24},
}

// ErrInvalidHash is returned when a string does not decode to a Hash.
var ErrInvalidHash = errors.New("invalid hash")

// Hash is an opaque content-derived identifier.
// The underlying string holds raw bytes: a 3-byte type prefix and a SHA-256 digest.
// Hashes are compared by raw bytes only.
type Hash string

// NewHash derives a Hash of the given type from the length-prefixed parts.
func NewHash(t HashType, parts ...[]byte) Hash {
	h := sha256.New()
	var lenBuf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:])
		h.Write(p)
	}

	prefix := hashPrefixes[t]
	out := make([]byte, 0, HashLen)
	out = append(out, prefix[:]...)
	out = h.Sum(out)
	return Hash(out)
}

// ParseHash decodes the hex form produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidHash, s, err)
	}
	if len(raw) != HashLen {
		return "", fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalidHash, s, len(raw), HashLen)
	}
	h := Hash(raw)
	if h.Type() == 0 {
		return "", fmt.Errorf("%w: %q has unknown prefix", ErrInvalidHash, s)
	}
	return h, nil
}

// MustParseHash is like ParseHash but panics on error.
func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Type returns the hash type encoded in the prefix, or 0 if unknown.
func (h Hash) Type() HashType {
	if len(h) != HashLen {
		return 0
	}
	for t, p := range hashPrefixes {
		if h[0] == p[0] && h[1] == p[1] && h[2] == p[2] {
			return t
		}
	}
	return 0
}

// IsZero reports whether h is empty.
func (h Hash) IsZero() bool {
	return h == ""
}

// Bytes returns a copy of the raw bytes.
func (h Hash) Bytes() []byte {
	return []byte(h)
}

// String returns the lowercase hex encoding.
func (h Hash) String() string {
	return hex.EncodeToString([]byte(h))
}

// Short returns an abbreviated form for logs.
func (h Hash) Short() string {
	if len(h) <= hashPrefixLen {
		return h.String()
	}
	return hex.EncodeToString([]byte(h[hashPrefixLen:]))[:12]
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = ""
		return nil
	}
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// AgentHash derives an agent key from a public identity string.
func AgentHash(identity string) Hash {
	return NewHash(HashAgent, []byte(identity))
}

// ParseAgent accepts either a hex agent hash or a plain identity string.
func ParseAgent(s string) (Hash, error) {
	if s == "" {
		return "", errors.New("agent identity is required")
	}
	if h, err := ParseHash(s); err == nil {
		if h.Type() != HashAgent {
			return "", fmt.Errorf("%w: %s is not an agent hash", ErrInvalidHash, h.Short())
		}
		return h, nil
	}
	return AgentHash(s), nil
}

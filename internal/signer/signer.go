package signer

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// ErrMalformedKey is returned when key material cannot be turned into a signing identity
var ErrMalformedKey = errors.New("malformed key material")

// Identity is the key pair that authorizes transfers out of the sender account
type Identity struct {
	PublicKey  solana.PublicKey
	PrivateKey solana.PrivateKey
}

// Source resolves the signing identity. Implementations decide where the key lives.
type Source interface {
	Load() (*Identity, error)
}

// FileSource reads a keygen style JSON byte array from Path on every Load.
// Nothing is cached between calls.
type FileSource struct {
	Path string
}

// NewFileSource creates a source backed by the keypair file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and validates the keypair file
func (s *FileSource) Load() (*Identity, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("keypair path is not set")
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a JSON array of 64 byte values: a 32 byte ed25519 seed followed by its public key
func Parse(data []byte) (*Identity, error) {
	// []byte would expect base64, so decode the numbers first and range check them.
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedKey, len(values), ed25519.PrivateKeySize)
	}

	raw := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: value %d at index %d is not a byte", ErrMalformedKey, v, i)
		}
		raw[i] = byte(v)
	}

	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key does not match secret seed", ErrMalformedKey)
	}

	key := solana.PrivateKey(raw)
	return &Identity{
		PublicKey:  key.PublicKey(),
		PrivateKey: key,
	}, nil
}

// StaticSource always returns the same identity
type StaticSource struct {
	identity *Identity
}

// NewStaticSource wraps an identity that is already in memory
func NewStaticSource(identity *Identity) *StaticSource {
	return &StaticSource{identity: identity}
}

// Load returns the wrapped identity
func (s *StaticSource) Load() (*Identity, error) {
	if s.identity == nil {
		return nil, fmt.Errorf("no identity configured")
	}
	return s.identity, nil
}

// FromPrivateKey builds an identity from an in-memory key
func FromPrivateKey(key solana.PrivateKey) *Identity {
	return &Identity{PublicKey: key.PublicKey(), PrivateKey: key}
}

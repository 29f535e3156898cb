package cnx

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	yamlv3 "gopkg.in/yaml.v3"
)

// Codec encodes entity values for storage. FileConnector uses the extension
// to name files and to skip foreign entries while listing.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Ext() string
}

// JSONCodec stores entities as JSON documents.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Ext() string                        { return ".json" }

// YAMLCodec stores entities as YAML documents.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(v any) ([]byte, error)      { return yamlv3.Marshal(v) }
func (YAMLCodec) Unmarshal(data []byte, v any) error { return yamlv3.Unmarshal(data, v) }
func (YAMLCodec) Ext() string                        { return ".yaml" }

// SealedCodec encrypts the output of an inner codec at rest using
// XChaCha20-Poly1305. Each payload carries its own random nonce, so equal
// values never produce equal ciphertexts.
type SealedCodec struct {
	inner Codec
	key   []byte
}

// NewSealedCodec builds a SealedCodec. The key must be exactly 32 bytes.
func NewSealedCodec(key []byte, inner Codec) (*SealedCodec, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("sealed codec: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	if inner == nil {
		inner = JSONCodec{}
	}
	return &SealedCodec{inner: inner, key: key}, nil
}

func (c *SealedCodec) Marshal(v any) ([]byte, error) {
	plain, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("sealed codec: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("sealed codec: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func (c *SealedCodec) Unmarshal(data []byte, v any) error {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return fmt.Errorf("sealed codec: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return errors.New("sealed codec: payload shorter than nonce")
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fmt.Errorf("sealed codec: open: %w", err)
	}
	return c.inner.Unmarshal(plain, v)
}

func (c *SealedCodec) Ext() string {
	return c.inner.Ext() + ".sealed"
}

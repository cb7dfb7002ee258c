// Package security is the encryption boundary for the persisted blob:
// records in, opaque bytes out, with a guaranteed decrypt(encrypt(x)) == x
// round-trip for every valid record list including the empty one.
package security

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"

	"flatdb/codec"
	"flatdb/record"
)

// ErrDecrypt reports malformed or undecryptable store content.
var ErrDecrypt = errors.New("cannot decrypt store content")

// Cipher transforms a record list to and from its persisted form.
type Cipher interface {
	Encrypt(records []*record.Record) ([]byte, error)
	Decrypt(data []byte) ([]*record.Record, error)
}

// Plain stores records as clear JSON. Useful for tests and for stores that
// opt out of encryption.
type Plain struct{}

func (Plain) Encrypt(records []*record.Record) ([]byte, error) {
	return codec.Encode(records)
}

func (Plain) Decrypt(data []byte) ([]*record.Record, error) {
	records, err := codec.Decode(data)
	if err != nil {
		return nil, errors.WithMessage(ErrDecrypt, err.Error())
	}
	return records, nil
}

// AESCipher seals the JSON-encoded record list with AES-256-GCM. The key is
// derived from the password by SHA-256; the random nonce is prepended to
// the ciphertext.
type AESCipher struct {
	key [sha256.Size]byte
}

func NewAESCipher(password string) *AESCipher {
	return &AESCipher{key: sha256.Sum256([]byte(password))}
}

func (c *AESCipher) aead() (gocipher.AEAD, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, err
	}
	return gocipher.NewGCM(block)
}

func (c *AESCipher) Encrypt(records []*record.Record) ([]byte, error) {
	plain, err := Plain{}.Encrypt(records)
	if err != nil {
		return nil, err
	}
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "generating nonce")
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func (c *AESCipher) Decrypt(data []byte) ([]*record.Record, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.WithMessage(ErrDecrypt, "content shorter than nonce")
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.WithMessage(ErrDecrypt, err.Error())
	}
	return Plain{}.Decrypt(plain)
}

package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"cvelib/internal/util/memzero"
)

const (
	// The current supported version of the sealed secret format.
	envelopeFormatVersion = 1
	kdfArgon2id           = "argon2id"
	saltSize              = 16

	// Upper bounds on stored argon2id costs. Envelopes beyond them are
	// rejected before any key derivation runs.
	maxArgon2Time    = 16
	maxArgon2Memory  = 1 << 20 // KiB, 1 GiB
	maxArgon2Threads = 16
)

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// sealed secret has been modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted profile")

	// ErrBadKDFParams is returned when the stored key derivation parameters
	// are out of bounds.
	ErrBadKDFParams = errors.New("invalid key derivation parameters")
)

// argon2Params are the argon2id cost parameters. They are stored with every
// envelope so they can be raised without breaking existing profiles.
type argon2Params struct {
	Time    uint32 `json:"t"`
	Memory  uint32 `json:"m"` // KiB
	Threads uint8  `json:"p"`
}

func argon2ParamsDefault() argon2Params { return argon2Params{Time: 2, Memory: 19 * 1024, Threads: 1} }

// envelope is the on-disk JSON structure holding one sealed secret.
type envelope struct {
	V      int          `json:"v"`
	KDF    string       `json:"kdf"`
	Params argon2Params `json:"params"`
	Salt   []byte       `json:"salt"`
	Nonce  []byte       `json:"nonce"`
	Cipher []byte       `json:"cipher"`
}

func (p argon2Params) check() error {
	switch {
	case p.Time < 1 || p.Time > maxArgon2Time:
		return fmt.Errorf("%w: t=%d", ErrBadKDFParams, p.Time)
	case p.Memory < 8*uint32(max(p.Threads, 1)) || p.Memory > maxArgon2Memory:
		return fmt.Errorf("%w: m=%d", ErrBadKDFParams, p.Memory)
	case p.Threads < 1 || p.Threads > maxArgon2Threads:
		return fmt.Errorf("%w: p=%d", ErrBadKDFParams, p.Threads)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte, p argon2Params) []byte {
	return argon2.IDKey([]byte(passphrase), salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
}

// seal encrypts secret under passphrase. ad binds the envelope to its
// profile so sealed keys cannot be swapped between profiles.
func seal(passphrase string, secret, ad []byte, p argon2Params) (json.RawMessage, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt, p)
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		V:      envelopeFormatVersion,
		KDF:    kdfArgon2id,
		Params: p,
		Salt:   salt,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, secret, ad),
	})
}

// open decrypts a sealed secret. The caller should wipe the result once done.
func open(passphrase string, raw json.RawMessage, ad []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode sealed secret: %w", err)
	}
	if env.V > envelopeFormatVersion {
		return nil, fmt.Errorf("unsupported sealed secret version %d", env.V)
	}
	if env.KDF != kdfArgon2id {
		return nil, fmt.Errorf("unsupported key derivation %q", env.KDF)
	}
	if err := env.Params.check(); err != nil {
		return nil, err
	}
	if len(env.Salt) == 0 {
		return nil, ErrWrongPassphrase
	}

	key := deriveKey(passphrase, env.Salt, env.Params)
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, env.Nonce, env.Cipher, ad)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

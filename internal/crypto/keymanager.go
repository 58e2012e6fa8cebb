// Package crypto provides ed25519 key management and request signing for the
// Pacifica REST API.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// currentVersion is the encrypted-key JSON schema version.
	currentVersion = 1
)

// encryptedKeyJSON is the on-disk format for an encrypted private key.
type encryptedKeyJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`       // base64 standard encoding
	Nonce      string `json:"nonce"`      // base64 standard encoding
	Ciphertext string `json:"ciphertext"` // base64 standard encoding
}

// Keypair wraps an ed25519 key in the exchange's Solana-style encoding: the
// private key is a base58 string of either the 32-byte seed or the full
// 64-byte expanded key, and the account identifier is the base58 public key.
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromBase58 parses a base58-encoded private key. Both the 32-byte
// seed form and the 64-byte expanded form are accepted.
func KeypairFromBase58(encoded string) (*Keypair, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid base58 private key: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return &Keypair{priv: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		return &Keypair{priv: ed25519.PrivateKey(raw)}, nil
	default:
		return nil, fmt.Errorf("crypto: expected 32- or 64-byte key, got %d bytes", len(raw))
	}
}

// PublicKey returns the base58-encoded public key used as the account field
// on signed requests.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.priv.Public().(ed25519.PublicKey))
}

// Sign signs message and returns the base58-encoded signature.
func (k *Keypair) Sign(message []byte) string {
	return base58.Encode(ed25519.Sign(k.priv, message))
}

// KeyConfig carries the information LoadKeypair needs to resolve a private
// key. Populate the fields from the exchange section of the configuration.
type KeyConfig struct {
	// RawPrivateKey is the base58-encoded private key. If non-empty,
	// LoadKeypair parses it directly.
	RawPrivateKey string

	// EncryptedKeyPath is the path to a JSON file produced by EncryptKey.
	EncryptedKeyPath string

	// KeyPassword is the password used to decrypt the file at EncryptedKeyPath.
	KeyPassword string
}

// LoadKeypair resolves a Keypair from the config, preferring the raw key when
// both sources are present.
func LoadKeypair(cfg KeyConfig) (*Keypair, error) {
	if cfg.RawPrivateKey != "" {
		return KeypairFromBase58(cfg.RawPrivateKey)
	}
	if cfg.EncryptedKeyPath == "" {
		return nil, errors.New("crypto: no private key source configured")
	}

	blob, err := os.ReadFile(cfg.EncryptedKeyPath)
	if err != nil {
		return nil, fmt.Errorf("crypto: reading encrypted key: %w", err)
	}
	decoded, err := DecryptKey(blob, cfg.KeyPassword)
	if err != nil {
		return nil, err
	}
	return KeypairFromBase58(decoded)
}

// EncryptKey encrypts a base58-encoded private key with a password using
// PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM authenticated encryption.
// It returns the JSON blob suitable for writing to disk.
func EncryptKey(privateKeyBase58 string, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	keyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid base58 private key: %w", err)
	}
	if len(keyBytes) != ed25519.SeedSize && len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: expected 32- or 64-byte key, got %d bytes", len(keyBytes))
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, keyBytes, nil)

	out := encryptedKeyJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptKey decrypts a JSON blob produced by EncryptKey, returning the
// base58-encoded private key.
func DecryptKey(encryptedJSON []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}

	var stored encryptedKeyJSON
	if err := json.Unmarshal(encryptedJSON, &stored); err != nil {
		return "", fmt.Errorf("crypto: parsing encrypted key JSON: %w", err)
	}
	if stored.Version != currentVersion {
		return "", fmt.Errorf("crypto: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return "", fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("crypto: creating GCM: %w", err)
	}

	keyBytes, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("crypto: decryption failed (wrong password or corrupted file)")
	}

	return base58.Encode(keyBytes), nil
}

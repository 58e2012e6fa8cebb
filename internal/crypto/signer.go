package crypto

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureHeader is the per-request metadata covered by the signature
// alongside the operation payload.
type SignatureHeader struct {
	Timestamp    int64  `json:"timestamp"` // Unix milliseconds
	ExpiryWindow int64  `json:"expiry_window"`
	Type         string `json:"type"` // operation type, e.g. "create_market_order"
}

// Signer produces Pacifica request signatures: the header and payload are
// folded into a canonical JSON message (recursively sorted keys, compact
// separators) and signed with the account's ed25519 key.
type Signer struct {
	keypair *Keypair
}

// NewSigner creates a Signer backed by keypair.
func NewSigner(keypair *Keypair) *Signer {
	return &Signer{keypair: keypair}
}

// Account returns the base58 public key identifying the signing account.
func (s *Signer) Account() string {
	return s.keypair.PublicKey()
}

// SignRequest builds the canonical message for header+payload and returns the
// base58-encoded signature. payload must be JSON-marshalable; its key order
// does not matter because the message is canonicalized before signing.
func (s *Signer) SignRequest(header SignatureHeader, payload any) (string, error) {
	message, err := BuildMessage(header, payload)
	if err != nil {
		return "", err
	}
	return s.keypair.Sign(message), nil
}

// Verify checks a base58 signature over header+payload against the signer's
// public key. Used by tests and by operators debugging rejected requests.
func (s *Signer) Verify(header SignatureHeader, payload any, signature string) bool {
	message, err := BuildMessage(header, payload)
	if err != nil {
		return false
	}
	sig, err := base58.Decode(signature)
	if err != nil {
		return false
	}
	pub := s.keypair.priv.Public().(ed25519.PublicKey)
	return ed25519.Verify(pub, message, sig)
}

// BuildMessage constructs the canonical signing message:
//
//	{"data":{...payload...},"expiry_window":...,"timestamp":...,"type":"..."}
//
// with all object keys sorted and no insignificant whitespace. Go's
// encoding/json emits map keys in sorted order, so a marshal round-trip
// through map[string]any yields the canonical form.
func BuildMessage(header SignatureHeader, payload any) ([]byte, error) {
	data, err := toCanonical(payload)
	if err != nil {
		return nil, fmt.Errorf("crypto: canonicalizing payload: %w", err)
	}

	envelope := map[string]any{
		"timestamp":     header.Timestamp,
		"expiry_window": header.ExpiryWindow,
		"type":          header.Type,
		"data":          data,
	}

	message, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshaling message: %w", err)
	}
	return message, nil
}

// toCanonical round-trips v through JSON so nested structs become maps whose
// keys marshal in sorted order.
func toCanonical(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

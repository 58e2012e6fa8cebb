package crypto

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

func testKeypair(t *testing.T) (*Keypair, string) {
	t.Helper()
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	encoded := base58.Encode(seed)
	kp, err := KeypairFromBase58(encoded)
	if err != nil {
		t.Fatalf("KeypairFromBase58: %v", err)
	}
	return kp, encoded
}

func TestKeypairFromBase58Forms(t *testing.T) {
	kp32, _ := testKeypair(t)

	// The 64-byte expanded form of the same seed must produce the same key.
	expanded := base58.Encode(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize)))
	kp64, err := KeypairFromBase58(expanded)
	if err != nil {
		t.Fatalf("KeypairFromBase58 (64-byte): %v", err)
	}
	if kp32.PublicKey() != kp64.PublicKey() {
		t.Fatal("seed and expanded forms disagree on public key")
	}

	if _, err := KeypairFromBase58(base58.Encode([]byte("short"))); err == nil {
		t.Fatal("expected error for wrong key length")
	}
	if _, err := KeypairFromBase58("0OIl not base58"); err == nil {
		t.Fatal("expected error for invalid base58")
	}
}

func TestBuildMessageCanonical(t *testing.T) {
	header := SignatureHeader{Timestamp: 1700000000000, ExpiryWindow: 5000, Type: "create_market_order"}
	payload := map[string]any{
		"symbol":      "BTC",
		"amount":      "0.005",
		"side":        "bid",
		"reduce_only": false,
	}

	msg, err := BuildMessage(header, payload)
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}

	got := string(msg)
	// Keys must be sorted at every level and the output compact.
	want := `{"data":{"amount":"0.005","reduce_only":false,"side":"bid","symbol":"BTC"},"expiry_window":5000,"timestamp":1700000000000,"type":"create_market_order"}`
	if got != want {
		t.Fatalf("canonical message mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestBuildMessageStructPayloadMatchesMap(t *testing.T) {
	type payload struct {
		Symbol string `json:"symbol"`
		Amount string `json:"amount"`
	}
	header := SignatureHeader{Timestamp: 1, ExpiryWindow: 5000, Type: "create_market_order"}

	fromStruct, err := BuildMessage(header, payload{Symbol: "ETH", Amount: "0.01"})
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}
	fromMap, err := BuildMessage(header, map[string]string{"amount": "0.01", "symbol": "ETH"})
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}
	if !bytes.Equal(fromStruct, fromMap) {
		t.Fatalf("struct and map payloads canonicalize differently:\n%s\n%s", fromStruct, fromMap)
	}
}

func TestSignRequestRoundTrip(t *testing.T) {
	kp, _ := testKeypair(t)
	signer := NewSigner(kp)

	header := SignatureHeader{Timestamp: 1700000000000, ExpiryWindow: 5000, Type: "create_market_order"}
	payload := map[string]string{"symbol": "SOL", "side": "ask", "amount": "0.10"}

	sig, err := signer.SignRequest(header, payload)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	if !signer.Verify(header, payload, sig) {
		t.Fatal("signature does not verify")
	}

	// Any field change must invalidate the signature.
	header.Timestamp++
	if signer.Verify(header, payload, sig) {
		t.Fatal("signature verified against a modified header")
	}
}

func TestEncryptDecryptKey(t *testing.T) {
	_, encoded := testKeypair(t)

	blob, err := EncryptKey(encoded, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	if strings.Contains(string(blob), encoded) {
		t.Fatal("ciphertext contains plaintext key")
	}

	decoded, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if decoded != encoded {
		t.Fatalf("round trip mismatch: got %s want %s", decoded, encoded)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("expected error with wrong password")
	}
	if _, err := EncryptKey(encoded, ""); err == nil {
		t.Fatal("expected error with empty password")
	}
}

func TestLoadKeypairPrefersRawKey(t *testing.T) {
	_, encoded := testKeypair(t)
	kp, err := LoadKeypair(KeyConfig{RawPrivateKey: encoded})
	if err != nil {
		t.Fatalf("LoadKeypair: %v", err)
	}
	if kp.PublicKey() == "" {
		t.Fatal("empty public key")
	}

	if _, err := LoadKeypair(KeyConfig{}); err == nil {
		t.Fatal("expected error with no key source")
	}
}

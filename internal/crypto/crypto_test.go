package crypto

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestEncryptDecryptSeed(t *testing.T) {
	seed := testSeed()
	blob, err := EncryptSeed(seed, "hunter2")
	if err != nil {
		t.Fatalf("EncryptSeed: %v", err)
	}

	got, err := DecryptSeed(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptSeed: %v", err)
	}
	if !bytes.Equal(got, seed) {
		t.Fatal("decrypted seed differs")
	}

	if _, err := DecryptSeed(blob, "wrong"); err == nil {
		t.Error("wrong password should fail")
	}
	if _, err := EncryptSeed(seed[:10], "pw"); err == nil {
		t.Error("short seed should be rejected")
	}
}

func TestLoadSeed_Precedence(t *testing.T) {
	seed := testSeed()
	blob, err := EncryptSeed(seed, "pw")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}

	raw := bytes.Repeat([]byte{0xab}, ed25519.SeedSize)
	got, err := LoadSeed(KeyConfig{RawSeedHex: "0x" + hex.EncodeToString(raw), EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("raw seed should win, got (%x, %v)", got, err)
	}

	got, err = LoadSeed(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil || !bytes.Equal(got, seed) {
		t.Fatalf("file seed = (%x, %v)", got, err)
	}

	if _, err := LoadSeed(KeyConfig{}); err == nil {
		t.Error("empty config should fail")
	}
}

func TestSigner_SignsVerifiably(t *testing.T) {
	s, err := NewSigner(testSeed())
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	body := []byte{0xa4, 0x00, 0x80, 0x01, 0x80}
	hash, sig, err := s.SignTxBody(body)
	if err != nil {
		t.Fatalf("SignTxBody: %v", err)
	}
	if hash != TxHash(body) {
		t.Error("hash mismatch")
	}
	if !ed25519.Verify(s.PublicKey(), hash[:], sig) {
		t.Error("signature does not verify")
	}
	if len(s.KeyHash()) != 28 {
		t.Errorf("key hash length = %d, want 28", len(s.KeyHash()))
	}

	s.Destroy()
	if _, err := s.Sign(body); !errors.Is(err, ErrSignerDestroyed) {
		t.Errorf("Sign after Destroy err = %v", err)
	}
}

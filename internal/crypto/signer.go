package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/blake2b"
)

// ErrSignerDestroyed is returned after Destroy.
var ErrSignerDestroyed = errors.New("crypto: signer destroyed")

// Signer keeps an ed25519 seed sealed in a memguard enclave and opens it only
// for the duration of a signature.
type Signer struct {
	mu      sync.Mutex
	enclave *memguard.Enclave
	pub     ed25519.PublicKey
}

// NewSigner seals seed. The caller's slice is wiped.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: expected %d-byte seed, got %d", ed25519.SeedSize, len(seed))
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	return &Signer{
		enclave: memguard.NewEnclave(seed),
		pub:     pub,
	}, nil
}

// PublicKey returns the verification key.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.pub }

// KeyHash is the blake2b-224 hash of the public key, the payment credential
// of a Shelley address.
func (s *Signer) KeyHash() []byte {
	h, _ := blake2b.New(28, nil)
	h.Write(s.pub)
	return h.Sum(nil)
}

// Sign signs msg with the sealed key.
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enclave == nil {
		return nil, ErrSignerDestroyed
	}

	buf, err := s.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("crypto: open enclave: %w", err)
	}
	defer buf.Destroy()

	priv := ed25519.NewKeyFromSeed(buf.Bytes())
	sig := ed25519.Sign(priv, msg)
	for i := range priv {
		priv[i] = 0
	}
	return sig, nil
}

// TxHash is the blake2b-256 hash of a transaction body, the message a
// Cardano witness signs.
func TxHash(body []byte) [32]byte {
	return blake2b.Sum256(body)
}

// SignTxBody returns the body hash and the witness signature over it.
func (s *Signer) SignTxBody(body []byte) (hash [32]byte, sig []byte, err error) {
	hash = TxHash(body)
	sig, err = s.Sign(hash[:])
	return hash, sig, err
}

// Destroy drops the enclave. Later calls to Sign fail.
func (s *Signer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enclave = nil
}

package tasket

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	icrypto "github.com/mtsgi/tasket/internal/crypto"
	"github.com/mtsgi/tasket/store"
)

// encryptionKeyPref is the preference slot holding the persisted key.
const encryptionKeyPref = "tasket-encryption-key"

func init() {
	memguard.CatchInterrupt()
}

// Cipher encrypts and decrypts backup credentials with ChaCha20-Poly1305.
//
// The 256-bit key is generated lazily on first use and persisted in the
// preference store so ciphertexts survive restarts. In memory the key is
// held in a memguard enclave and only opened for the duration of a single
// operation. Output is base64 over a random 12-byte nonce followed by the
// sealed ciphertext.
type Cipher struct {
	prefs *store.PrefStore

	mu  sync.Mutex
	key *memguard.Enclave
}

func NewCipher(prefs *store.PrefStore) *Cipher {
	return &Cipher{prefs: prefs}
}

// enclave returns the key enclave, loading the persisted key or generating
// and persisting a fresh one on first use.
func (c *Cipher) enclave() (*memguard.Enclave, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return c.key, nil
	}

	raw, ok, err := c.prefs.Get(encryptionKeyPref)
	if err != nil {
		return nil, fmt.Errorf("load encryption key: %w", err)
	}
	if ok {
		if len(raw) != icrypto.KeySize {
			return nil, fmt.Errorf("persisted encryption key has wrong size %d", len(raw))
		}
		c.key = memguard.NewEnclave(raw)
		return c.key, nil
	}

	raw, err = icrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := c.prefs.Set(encryptionKeyPref, raw); err != nil {
		return nil, fmt.Errorf("persist encryption key: %w", err)
	}

	// NewEnclave wipes raw, so persist first.
	c.key = memguard.NewEnclave(raw)
	return c.key, nil
}

// Encrypt seals a plaintext credential and returns it base64-encoded.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	enclave, err := c.enclave()
	if err != nil {
		return "", err
	}

	buf, err := enclave.Open()
	if err != nil {
		return "", fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	encrypted, err := icrypto.EncryptValue([]byte(plaintext), buf.Bytes())
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt. It fails with a DecryptionError when the
// ciphertext was produced under a different key, which is what happens to
// configs saved before a key reset.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	encrypted, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &DecryptionError{Err: err}
	}

	enclave, err := c.enclave()
	if err != nil {
		return "", err
	}

	buf, err := enclave.Open()
	if err != nil {
		return "", fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	plaintext, err := icrypto.DecryptValue(encrypted, buf.Bytes())
	if err != nil {
		return "", &DecryptionError{Err: err}
	}
	return string(plaintext), nil
}

// Reset deletes the persisted key. Every credential encrypted under the
// old key becomes permanently undecryptable; affected configs need their
// credentials re-entered.
func (c *Cipher) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.prefs.Delete(encryptionKeyPref); err != nil {
		return err
	}
	c.key = nil
	return nil
}

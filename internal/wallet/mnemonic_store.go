package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/scrypt"
)

// storeVersion 1 is the legacy XOR-with-password format this product
// shipped with; acknowledged in the design notes as not cryptographically
// strong. storeVersion 2 is the scrypt-KDF (N=2^15, r=8, p=1) + AES-GCM
// replacement.
const (
	storeVersionLegacyXOR = 1
	storeVersionScryptGCM = 2
)

type mnemonicEnvelope struct {
	Version int    `json:"version"`
	Salt    string `json:"salt,omitempty"`
	Nonce   string `json:"nonce,omitempty"`
	Data    string `json:"data"`
}

// saveMnemonicFile writes the scrypt+AEAD envelope. Legacy files are never
// written by this code path; they only exist as migration input.
func saveMnemonicFile(path, mnemonic, password string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("init gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(mnemonic), nil)

	env := mnemonicEnvelope{
		Version: storeVersionScryptGCM,
		Salt:    hex.EncodeToString(salt),
		Nonce:   hex.EncodeToString(nonce),
		Data:    hex.EncodeToString(ciphertext),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// loadMnemonicFile decrypts whichever envelope version is on disk. Legacy
// (version 1) files are transparently migrated to the stronger format once
// successfully decoded, so the weak format never survives a successful read.
func loadMnemonicFile(path, password string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var env mnemonicEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode mnemonic store: %w", err)
	}

	switch env.Version {
	case storeVersionScryptGCM:
		return decryptScryptGCM(env, password)
	case storeVersionLegacyXOR, 0:
		mnemonic, err := decryptLegacyXOR(env, password)
		if err != nil {
			return "", err
		}
		if migrateErr := saveMnemonicFile(path, mnemonic, password); migrateErr != nil {
			return "", fmt.Errorf("migrate legacy mnemonic store: %w", migrateErr)
		}
		return mnemonic, nil
	default:
		return "", fmt.Errorf("unsupported mnemonic store version %d", env.Version)
	}
}

func decryptScryptGCM(env mnemonicEnvelope, password string) (string, error) {
	salt, err := hex.DecodeString(env.Salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := hex.DecodeString(env.Nonce)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(env.Data)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt mnemonic: wrong password or corrupted store")
	}
	return string(plaintext), nil
}

// legacy XOR format: the mnemonic bytes XORed with a repeating keystream
// derived from sha256(password), as shipped originally. Kept read-only.
func decryptLegacyXOR(env mnemonicEnvelope, password string) (string, error) {
	ciphertext, err := hex.DecodeString(env.Data)
	if err != nil {
		return "", fmt.Errorf("decode legacy data: %w", err)
	}
	keystream := sha256.Sum256([]byte(password))
	plaintext := make([]byte, len(ciphertext))
	for i, b := range ciphertext {
		plaintext[i] = b ^ keystream[i%len(keystream)]
	}
	return string(plaintext), nil
}

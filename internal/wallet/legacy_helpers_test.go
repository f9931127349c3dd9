package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
)

// legacyWriteForTest writes a version-1 (XOR) mnemonic store, standing in
// for a file produced by the product's original implementation, so the
// migration path in loadMnemonicFile can be exercised.
func legacyWriteForTest(path, mnemonic, password string) error {
	keystream := sha256.Sum256([]byte(password))
	plain := []byte(mnemonic)
	cipherBytes := make([]byte, len(plain))
	for i, b := range plain {
		cipherBytes[i] = b ^ keystream[i%len(keystream)]
	}
	env := mnemonicEnvelope{
		Version: storeVersionLegacyXOR,
		Data:    hex.EncodeToString(cipherBytes),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func readFileForTest(path string) (string, error) {
	raw, err := os.ReadFile(path)
	return string(raw), err
}

// Package wallet generates and imports BIP39 wallets, validates addresses,
// writes Geth-compatible keystore files, and persists an address-only
// mining target when no keys are held locally. It never retains a private
// key in process state beyond the single call that produced or consumed it.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/tyler-smith/go-bip39"

	"github.com/marscredit/monorepo/internal/paths"
)

var addressRE = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ErrInvalidAddress is returned when an address fails the §4.4 regex check.
var ErrInvalidAddress = fmt.Errorf("invalid address")

// ErrInvalidMnemonic is returned for a BIP39 phrase that fails checksum
// validation.
var ErrInvalidMnemonic = fmt.Errorf("invalid mnemonic")

// Mode describes how a miner's mining target is established.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeAddressOnly Mode = "address_only"
)

// Generated is the result of Generate: a freshly minted wallet.
type Generated struct {
	Address    string
	Mnemonic   string
	PrivateKey string
}

// Imported is the result of ImportFromMnemonic.
type Imported struct {
	Address    string
	PrivateKey string
}

// Info summarizes a miner's persisted wallet state.
type Info struct {
	Address       string
	Mode          Mode
	HasMnemonic   bool
	HasPrivateKey bool
}

// Service implements the wallet component described in spec §4.4.
type Service struct {
	layout *paths.Layout
	log    log.Logger
}

func New(layout *paths.Layout) *Service {
	return &Service{layout: layout, log: log.New("component", "wallet")}
}

// Generate creates a cryptographically random 12-word BIP39 mnemonic and
// derives its standard m/44'/60'/0'/0/0 account.
func (s *Service) Generate() (*Generated, error) {
	entropy, err := bip39.NewEntropy(128) // 128 bits -> 12 words
	if err != nil {
		return nil, fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	priv, address, err := deriveFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	return &Generated{
		Address:    address,
		Mnemonic:   mnemonic,
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(priv)),
	}, nil
}

// ImportFromMnemonic derives the standard account from an existing BIP39
// phrase. Surrounding whitespace is trimmed before validation.
func (s *Service) ImportFromMnemonic(phrase string) (*Imported, error) {
	phrase = strings.TrimSpace(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	priv, address, err := deriveFromMnemonic(phrase)
	if err != nil {
		return nil, err
	}
	return &Imported{Address: address, PrivateKey: hex.EncodeToString(crypto.FromECDSA(priv))}, nil
}

func deriveFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, string, error) {
	seed := bip39.NewSeed(mnemonic, "")
	priv, err := deriveStandardAccount(seed)
	if err != nil {
		return nil, "", fmt.Errorf("derive account: %w", err)
	}
	return priv, crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

// ImportFromPrivateKey accepts a hex-encoded secp256k1 key with or without
// the "0x" prefix and returns its address.
func (s *Service) ImportFromPrivateKey(hexKey string) (string, error) {
	priv, err := parsePrivateKey(hexKey)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	cleaned := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	priv, err := crypto.HexToECDSA(cleaned)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return priv, nil
}

// IsValidAddress checks the §4.4 regex: "0x" followed by exactly 40 hex
// digits.
func (s *Service) IsValidAddress(address string) bool {
	return addressRE.MatchString(address)
}

// SetAddressOnly validates and persists an address-only mining target.
func (s *Service) SetAddressOnly(address string) error {
	if !s.IsValidAddress(address) {
		return ErrInvalidAddress
	}
	canonical := common.HexToAddress(address).Hex()
	if err := os.MkdirAll(s.layout.Root, 0o755); err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}
	if err := os.WriteFile(s.layout.MiningAddressPath(), []byte(canonical), 0o644); err != nil {
		return fmt.Errorf("write mining address: %w", err)
	}
	s.log.Info("address-only mining target set", "address", canonical)
	return nil
}

// GetStoredMiningAddress prefers mining_address.txt over any keystore, per
// the design notes' confirmed precedence. minerIndex may be nil when no
// per-instance keystore fallback applies.
func (s *Service) GetStoredMiningAddress(minerIndex *int) (string, error) {
	if raw, err := os.ReadFile(s.layout.MiningAddressPath()); err == nil {
		addr := strings.TrimSpace(string(raw))
		if addr != "" {
			return addr, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read mining address file: %w", err)
	}

	if minerIndex == nil {
		return "", nil
	}
	return firstKeystoreAddress(s.layout.MinerKeystoreDir(*minerIndex))
}

// firstKeystoreAddress returns the address embedded in the first keystore
// file in dir, canonicalized, without needing the password.
func firstKeystoreAddress(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("list keystore dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "UTC--") {
			continue
		}
		raw, err := os.ReadFile(dir + string(os.PathSeparator) + e.Name())
		if err != nil {
			continue
		}
		var probe struct {
			Address string `json:"address"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.Address == "" {
			continue
		}
		return common.HexToAddress(probe.Address).Hex(), nil
	}
	return "", nil
}

// WriteKeystoreToMiner encrypts key into a Geth-compatible V3 envelope and
// writes it to miners/<i>/keystore/UTC--<timestamp>--<addressHex>, owner-only
// permissions.
func (s *Service) WriteKeystoreToMiner(minerIndex int, privateKeyHex, password string) (string, error) {
	priv, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}
	dir := s.layout.MinerKeystoreDir(minerIndex)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create keystore dir: %w", err)
	}

	address := crypto.PubkeyToAddress(priv.PublicKey)
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    address,
		PrivateKey: priv,
	}
	data, err := keystore.EncryptKey(key, password, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return "", fmt.Errorf("encrypt keystore: %w", err)
	}

	name := keyFileName(address)
	path := dir + string(os.PathSeparator) + name
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write keystore file: %w", err)
	}
	s.log.Info("wrote keystore", "miner", minerIndex, "address", address.Hex(), "path", path)
	return address.Hex(), nil
}

// keyFileName mirrors go-ethereum's own keystore file naming convention,
// UTC--<ISO8601>--<addressHex without 0x>.
func keyFileName(addr common.Address) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05.000000000Z")
	return fmt.Sprintf("UTC--%s--%x", ts, addr)
}

// SaveMnemonic persists an obfuscated mnemonic to wallet.enc.
func (s *Service) SaveMnemonic(mnemonic, password string) error {
	if err := os.MkdirAll(s.layout.Root, 0o755); err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}
	return saveMnemonicFile(s.layout.WalletEncPath(), mnemonic, password)
}

// LoadMnemonic decrypts wallet.enc. It returns ("", nil) if no mnemonic
// store exists.
func (s *Service) LoadMnemonic(password string) (string, error) {
	path := s.layout.WalletEncPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}
	return loadMnemonicFile(path, password)
}

// GetWalletInfo summarizes persisted wallet state for minerIndex (nil for
// the account-wide view). The address-only file takes precedence over any
// keystore when both exist, per the confirmed design-note open question.
func (s *Service) GetWalletInfo(minerIndex *int) (*Info, error) {
	addressOnlyRaw, err := os.ReadFile(s.layout.MiningAddressPath())
	addressOnlySet := err == nil && strings.TrimSpace(string(addressOnlyRaw)) != ""
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read mining address file: %w", err)
	}

	var keystoreAddr string
	if minerIndex != nil {
		keystoreAddr, err = firstKeystoreAddress(s.layout.MinerKeystoreDir(*minerIndex))
		if err != nil {
			return nil, err
		}
	}

	var address string
	var mode Mode
	switch {
	case addressOnlySet:
		address, mode = strings.TrimSpace(string(addressOnlyRaw)), ModeAddressOnly
	case keystoreAddr != "":
		address, mode = keystoreAddr, ModeFull
	default:
		return nil, nil
	}

	_, statErr := os.Stat(s.layout.WalletEncPath())
	hasMnemonic := statErr == nil

	return &Info{
		Address:       address,
		Mode:          mode,
		HasMnemonic:   hasMnemonic,
		HasPrivateKey: keystoreAddr != "",
	}, nil
}

package wallet

import (
	"strings"
	"testing"

	"github.com/marscredit/monorepo/internal/paths"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	layout, err := paths.NewLayout(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(layout)
}

func TestIsValidAddress(t *testing.T) {
	s := newTestService(t)
	tests := []struct {
		addr string
		want bool
	}{
		{"0x000000000000000000000000000000000000dEaD", true},
		{"000000000000000000000000000000000000dEaD", false},
		{"0x00", false},
		{"0xzz00000000000000000000000000000000dead", false},
	}
	for _, tt := range tests {
		if got := s.IsValidAddress(tt.addr); got != tt.want {
			t.Errorf("IsValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestSetAddressOnlyRoundTrip(t *testing.T) {
	s := newTestService(t)
	addr := "0x000000000000000000000000000000000000dEaD"
	if err := s.SetAddressOnly(addr); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetStoredMiningAddress(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.EqualFold(got, addr) {
		t.Errorf("got %s, want %s", got, addr)
	}
}

func TestSetAddressOnlyRejectsInvalid(t *testing.T) {
	s := newTestService(t)
	if err := s.SetAddressOnly("not-an-address"); err != ErrInvalidAddress {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestGenerateThenImportMnemonicRoundTrip(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if gen.Address == "" || gen.Mnemonic == "" || gen.PrivateKey == "" {
		t.Fatalf("incomplete generated wallet: %+v", gen)
	}

	imp, err := s.ImportFromMnemonic(gen.Mnemonic)
	if err != nil {
		t.Fatal(err)
	}
	if imp.Address != gen.Address {
		t.Errorf("address mismatch: generate=%s import=%s", gen.Address, imp.Address)
	}
	if imp.PrivateKey != gen.PrivateKey {
		t.Errorf("private key mismatch: generate=%s import=%s", gen.PrivateKey, imp.PrivateKey)
	}
}

func TestImportFromPrivateKeyPrefixInsensitive(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}
	a1, err := s.ImportFromPrivateKey(gen.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := s.ImportFromPrivateKey("0x" + gen.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 || a1 != gen.Address {
		t.Errorf("expected matching addresses, got %s / %s / %s", a1, a2, gen.Address)
	}
}

func TestImportFromMnemonicRejectsInvalid(t *testing.T) {
	s := newTestService(t)
	if _, err := s.ImportFromMnemonic("not a real mnemonic phrase at all"); err != ErrInvalidMnemonic {
		t.Errorf("expected ErrInvalidMnemonic, got %v", err)
	}
}

func TestWriteKeystoreToMinerThenLookup(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	addr, err := s.WriteKeystoreToMiner(1, gen.PrivateKey, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if addr != gen.Address {
		t.Errorf("keystore address mismatch: got %s want %s", addr, gen.Address)
	}

	got, err := s.GetStoredMiningAddress(intPtr(1))
	if err != nil {
		t.Fatal(err)
	}
	if got != gen.Address {
		t.Errorf("lookup mismatch: got %s want %s", got, gen.Address)
	}
}

func TestAddressOnlyTakesPrecedenceOverKeystore(t *testing.T) {
	s := newTestService(t)
	gen, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteKeystoreToMiner(1, gen.PrivateKey, "pw"); err != nil {
		t.Fatal(err)
	}

	override := "0x000000000000000000000000000000000000dEaD"
	if err := s.SetAddressOnly(override); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetStoredMiningAddress(intPtr(1))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.EqualFold(got, override) {
		t.Errorf("address-only file should take precedence: got %s want %s", got, override)
	}

	info, err := s.GetWalletInfo(intPtr(1))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode != ModeAddressOnly {
		t.Errorf("expected address_only mode, got %s", info.Mode)
	}
	if !info.HasPrivateKey {
		t.Errorf("expected HasPrivateKey=true since a keystore exists alongside the override")
	}
}

func TestSaveLoadMnemonicRoundTrip(t *testing.T) {
	s := newTestService(t)
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	if err := s.SaveMnemonic(mnemonic, "hunter2"); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadMnemonic("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if got != mnemonic {
		t.Errorf("mnemonic round trip mismatch: got %q", got)
	}
}

func TestLoadMnemonicWrongPassword(t *testing.T) {
	s := newTestService(t)
	if err := s.SaveMnemonic("some mnemonic phrase", "correct"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadMnemonic("incorrect"); err == nil {
		t.Error("expected error decrypting with wrong password")
	}
}

func TestLoadMnemonicMigratesLegacyFormat(t *testing.T) {
	s := newTestService(t)
	path := s.layout.WalletEncPath()
	if err := legacyWriteForTest(path, "legacy mnemonic phrase words here", "pw"); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadMnemonic("pw")
	if err != nil {
		t.Fatal(err)
	}
	if got != "legacy mnemonic phrase words here" {
		t.Fatalf("unexpected decoded legacy mnemonic: %q", got)
	}

	// After migration, the store must be the new scrypt+GCM format.
	raw, err := readFileForTest(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(raw, `"version":2`) {
		t.Errorf("expected migrated store to be version 2, got %s", raw)
	}
}

func intPtr(i int) *int { return &i }

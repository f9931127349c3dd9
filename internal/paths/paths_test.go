package paths

import "testing"

func TestPlatformFor(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         Key
		wantErr      bool
	}{
		{"darwin", "arm64", DarwinArm64, false},
		{"darwin", "amd64", DarwinX64, false},
		{"windows", "amd64", Win32X64, false},
		{"windows", "arm64", Win32Arm64, false},
		{"linux", "amd64", LinuxX64, false},
		{"linux", "arm64", LinuxArm64, false},
		{"plan9", "amd64", "", true},
		{"darwin", "386", "", true},
	}
	for _, tt := range tests {
		got, err := platformFor(tt.goos, tt.goarch)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s/%s: err=%v wantErr=%v", tt.goos, tt.goarch, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("%s/%s: got %q want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
}

func TestGethBinaryName(t *testing.T) {
	if GethBinaryName(Win32X64) != "geth.exe" {
		t.Errorf("windows binary name should be geth.exe")
	}
	if GethBinaryName(LinuxX64) != "geth" {
		t.Errorf("non-windows binary name should be geth")
	}
}

func TestPorts(t *testing.T) {
	tests := []struct {
		i             int
		http, ws, p2p int
	}{
		{1, 8546, 8547, 30304},
		{2, 8548, 8549, 30305},
		{3, 8550, 8551, 30306},
	}
	for _, tt := range tests {
		p := Ports(tt.i)
		if p.HTTP != tt.http || p.WS != tt.ws || p.P2P != tt.p2p {
			t.Errorf("Ports(%d) = %+v, want {%d %d %d}", tt.i, p, tt.http, tt.ws, tt.p2p)
		}
	}
}

func TestLayoutOverride(t *testing.T) {
	l, err := NewLayout("/tmp/example-root")
	if err != nil {
		t.Fatal(err)
	}
	if l.Root != "/tmp/example-root" {
		t.Errorf("root override not honored: %s", l.Root)
	}
	if l.MinerDataDir(3) != "/tmp/example-root/miners/3" {
		t.Errorf("unexpected miner data dir: %s", l.MinerDataDir(3))
	}
	if l.MinerChainDataDir(3) != "/tmp/example-root/miners/3/geth/chaindata" {
		t.Errorf("unexpected chaindata dir: %s", l.MinerChainDataDir(3))
	}
}

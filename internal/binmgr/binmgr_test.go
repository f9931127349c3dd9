package binmgr

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/marscredit/monorepo/internal/paths"
)

func writeFakeGethScript(t *testing.T, versionOutput string) string {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Join(dir, "geth")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"version\" ]; then echo '" + versionOutput + "'; exit 0; fi\n" +
		"exit 1\n"
	if err := os.WriteFile(name, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestIsAvailableMissingBinary(t *testing.T) {
	root := t.TempDir()
	layout, _ := paths.NewLayout(root)
	m := New(layout, paths.LinuxX64)
	defer m.Close()

	st, err := m.IsAvailable("")
	if err != nil {
		t.Fatal(err)
	}
	if st.OK {
		t.Error("expected ok=false for missing binary")
	}
}

func TestIsAvailableValidatesVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in is unix-specific")
	}
	geth := writeFakeGethScript(t, "Geth\nVersion: 1.2.3-stable")
	root := t.TempDir()
	layout, _ := paths.NewLayout(root)
	m := New(layout, paths.LinuxX64)
	defer m.Close()

	st, err := m.IsAvailable(geth)
	if err != nil {
		t.Fatal(err)
	}
	if !st.OK {
		t.Fatal("expected ok=true for valid geth binary")
	}
	if st.Version != "1.2.3-stable" {
		t.Errorf("got version %q", st.Version)
	}
}

func TestIsAvailableRejectsBrokenBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in is unix-specific")
	}
	dir := t.TempDir()
	name := filepath.Join(dir, "geth")
	if err := os.WriteFile(name, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	layout, _ := paths.NewLayout(root)
	m := New(layout, paths.LinuxX64)
	defer m.Close()

	st, err := m.IsAvailable(name)
	if err != nil {
		t.Fatal(err)
	}
	if st.OK {
		t.Error("a binary that fails `version` must report ok=false")
	}
}

func TestDownloadHTTPFollowsRedirectAndReportsProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1024)
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1024")
		w.Write(payload)
	}))
	defer final.Close()
	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer redirecting.Close()

	root := t.TempDir()
	layout, _ := paths.NewLayout(root)
	m := New(layout, paths.LinuxX64)
	defer m.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	var lastPercent float64
	err := m.downloadHTTP(context.Background(), redirecting.URL, dest, func(downloaded, total int64) {
		if total > 0 {
			lastPercent = float64(downloaded) / float64(total) * 100
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("downloaded content mismatch")
	}
	if lastPercent != 100 {
		t.Errorf("expected 100%% progress, got %f", lastPercent)
	}
}

func TestDownloadHTTPNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := t.TempDir()
	layout, _ := paths.NewLayout(root)
	m := New(layout, paths.LinuxX64)
	defer m.Close()

	err := m.downloadHTTP(context.Background(), srv.URL, filepath.Join(t.TempDir(), "out"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	dlErr, ok := err.(*DownloadFailedError)
	if !ok {
		t.Fatalf("expected *DownloadFailedError, got %T", err)
	}
	if dlErr.Status != http.StatusNotFound {
		t.Errorf("got status %d", dlErr.Status)
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "geth.zip")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("geth-v1/geth")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("fake binary")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dest := filepath.Join(dir, "extracted")
	if err := extract(archivePath, ".zip", dest); err != nil {
		t.Fatal(err)
	}
	found, err := findBinary(dest, "geth")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(found)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake binary" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestExtractTarGz(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "geth")
	if err := os.WriteFile(srcFile, []byte("fake binary"), 0o755); err != nil {
		t.Fatal(err)
	}
	archivePath := filepath.Join(dir, "geth.tar.gz")
	cmd := exec.Command("tar", "-czf", archivePath, "-C", dir, "geth")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build fixture archive: %v: %s", err, out)
	}

	dest := filepath.Join(dir, "extracted")
	if err := extract(archivePath, ".tar.gz", dest); err != nil {
		t.Fatal(err)
	}
	found, err := findBinary(dest, "geth")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(found)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake binary" {
		t.Errorf("unexpected content %q", data)
	}
}

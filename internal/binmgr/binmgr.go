// Package binmgr ensures a runnable Geth binary exists at a known path,
// downloading and extracting a platform-specific archive when absent.
package binmgr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fsnotify/fsnotify"

	"github.com/marscredit/monorepo/internal/paths"
)

// Status is the result of IsAvailable.
type Status struct {
	OK      bool
	Path    string
	Version string
}

// Progress reports download state, following HTTP redirects transparently.
type Progress struct {
	Percent         float64
	DownloadedBytes int64
	TotalBytes      int64
}

// Result is the result of Download.
type Result struct {
	Path    string
	Version string
	// FellBackFrom is set when the current platform had no native build and
	// the closest compatible archive was used instead.
	FellBackFrom paths.Key
}

var versionRE = regexp.MustCompile(`[Vv]ersion:\s*([^\s,]+)`)

// Manager implements the Binary Manager component.
type Manager struct {
	layout   *paths.Layout
	platform paths.Key
	http     *http.Client
	log      log.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New constructs a Manager for the given layout and resolved platform key.
func New(layout *paths.Layout, platform paths.Key) *Manager {
	m := &Manager{
		layout:   layout,
		platform: platform,
		http:     &http.Client{},
		log:      log.New("component", "binmgr"),
	}
	m.watchBinDir()
	return m
}

// watchBinDir invalidates nothing by itself (IsAvailable always re-stats),
// but logs external removal/replacement of the binary for operator
// visibility; best-effort, failures are non-fatal.
func (m *Manager) watchBinDir() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Debug("fsnotify watcher unavailable", "err", err)
		return
	}
	if err := os.MkdirAll(m.layout.BinDir(), 0o755); err != nil {
		w.Close()
		return
	}
	if err := w.Add(m.layout.BinDir()); err != nil {
		w.Close()
		return
	}
	m.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				m.log.Debug("bin directory changed", "event", ev.String())
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.log.Debug("bin directory watch error", "err", err)
			}
		}
	}()
}

// Close releases the directory watcher.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// GetPath returns the resolved (not necessarily validated) geth binary
// path for the current platform.
func (m *Manager) GetPath() string {
	return m.layout.GethBinaryPath(m.platform)
}

// IsAvailable returns ok=true only when the file exists and `geth version`
// runs and parses to a version string, per invariant 5.
func (m *Manager) IsAvailable(pathOverride string) (Status, error) {
	path := pathOverride
	if path == "" {
		path = m.GetPath()
	}
	if _, err := os.Stat(path); err != nil {
		return Status{OK: false, Path: path}, nil
	}
	version, err := m.probeVersion(path)
	if err != nil {
		return Status{OK: false, Path: path}, nil
	}
	return Status{OK: true, Path: path, Version: version}, nil
}

func (m *Manager) probeVersion(path string) (string, error) {
	cmd := exec.Command(path, "version")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run geth version: %w", err)
	}
	match := versionRE.FindStringSubmatch(out.String())
	if match == nil {
		return "", fmt.Errorf("could not parse version from output: %s", out.String())
	}
	return match[1], nil
}

// Download obtains the archive for the current platform, extracts it,
// copies the binary into bin/, marks it executable on non-Windows hosts,
// and validates it. Every temporary file is removed on every exit path.
func (m *Manager) Download(ctx context.Context, onProgress func(Progress)) (Result, error) {
	info, ok := archiveTable[m.platform]
	if !ok {
		return Result{}, ErrUnsupportedPlatform
	}

	workDir, err := os.MkdirTemp("", "marscredit-geth-download-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temp work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	archivePath := filepath.Join(workDir, "geth-archive"+info.Ext)
	if err := m.downloadArchive(ctx, info, archivePath, onProgress); err != nil {
		return Result{}, err
	}

	extractDir := filepath.Join(workDir, "extracted")
	if err := extract(archivePath, info.Ext, extractDir); err != nil {
		return Result{}, fmt.Errorf("corrupted download, extraction failed: %w", err)
	}

	binName := paths.GethBinaryName(m.platform)
	extractedBinary, err := findBinary(extractDir, binName)
	if err != nil {
		return Result{}, fmt.Errorf("corrupted download: %w", err)
	}

	if err := os.MkdirAll(m.layout.BinDir(), 0o755); err != nil {
		return Result{}, fmt.Errorf("create bin dir: %w", err)
	}
	destPath := m.layout.GethBinaryPath(m.platform)
	if err := copyFile(extractedBinary, destPath); err != nil {
		return Result{}, fmt.Errorf("install binary: %w", err)
	}
	if !m.platform.IsWindows() {
		if err := os.Chmod(destPath, 0o755); err != nil {
			os.Remove(destPath)
			return Result{}, fmt.Errorf("mark binary executable: %w", err)
		}
	}

	version, err := m.probeVersion(destPath)
	if err != nil {
		os.Remove(destPath)
		return Result{}, fmt.Errorf("post-install version check failed: %w", err)
	}

	result := Result{Path: destPath, Version: version}
	if info.FallbackFrom != "" {
		result.FellBackFrom = info.FallbackFrom
		m.log.Info("no native build for platform, used compatible fallback", "platform", m.platform, "fallback_from", info.FallbackFrom)
	}
	return result, nil
}

// downloadArchive tries the primary HTTP host first, following redirects
// transparently; on any failure it tries the Azure mirror.
func (m *Manager) downloadArchive(ctx context.Context, info archiveInfo, destPath string, onProgress func(Progress)) error {
	var total int64
	wrap := func(downloaded, t int64) {
		if t > 0 {
			total = t
		}
		if onProgress == nil {
			return
		}
		var percent float64
		if total > 0 {
			percent = float64(downloaded) / float64(total) * 100
		}
		onProgress(Progress{Percent: percent, DownloadedBytes: downloaded, TotalBytes: total})
	}

	httpErr := m.downloadHTTP(ctx, info.URL, destPath, wrap)
	if httpErr == nil {
		return nil
	}
	m.log.Warn("primary download failed, trying mirror", "err", httpErr)

	if mirrorErr := downloadFromAzureMirror(ctx, m.platform, info.Ext, destPath, wrap); mirrorErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("all download sources failed: primary=%v mirror=%v", httpErr, mirrorErr)
	}
	return nil
}

func (m *Manager) downloadHTTP(ctx context.Context, url, destPath string, wrap func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.http.Do(req) // http.Client follows 301/302 redirects by default
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadFailedError{Status: resp.StatusCode}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	pr := &progressReader{r: resp.Body, onProgress: wrap, total: resp.ContentLength}
	_, err = io.Copy(out, pr)
	return err
}

// progressReader wraps an io.Reader, invoking onProgress after every read.
type progressReader struct {
	r          io.Reader
	onProgress func(downloaded, total int64)
	downloaded int64
	total      int64
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.downloaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.downloaded, p.total)
		}
	}
	return n, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

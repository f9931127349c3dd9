package binmgr

import "fmt"

// ErrBinaryUnavailable means no validated geth binary exists and none was
// just downloaded.
var ErrBinaryUnavailable = fmt.Errorf("geth binary unavailable")

// ErrUnsupportedPlatform means the current platform key has no archive
// mapping at all, not even a compatible fallback.
var ErrUnsupportedPlatform = fmt.Errorf("unsupported platform")

// DownloadFailedError is DownloadFailed(status|message): a non-200 response
// from the primary HTTP host.
type DownloadFailedError struct {
	Status  int
	Message string
}

func (e *DownloadFailedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download failed: http status %d", e.Status)
	}
	return fmt.Sprintf("download failed: %s", e.Message)
}

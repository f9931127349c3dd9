package binmgr

import "github.com/marscredit/monorepo/internal/paths"

// archiveInfo describes where the platform-specific Geth archive lives and
// how to unpack it.
type archiveInfo struct {
	URL          string
	Ext          string // ".tar.gz" or ".zip"
	FallbackFrom paths.Key // non-zero if this entry is standing in for a missing native build
}

// archiveTable is the fixed platform -> archive mapping. darwin-arm64 has no
// native build yet, so it falls back to the closest compatible build
// (darwin-x64 running under Rosetta), and the fallback is recorded by the
// caller.
var archiveTable = map[paths.Key]archiveInfo{
	paths.DarwinX64: {
		URL: "https://releases.marscredit.org/geth/darwin-x64/geth.tar.gz",
		Ext: ".tar.gz",
	},
	paths.DarwinArm64: {
		URL:          "https://releases.marscredit.org/geth/darwin-x64/geth.tar.gz",
		Ext:          ".tar.gz",
		FallbackFrom: paths.DarwinX64,
	},
	paths.LinuxX64: {
		URL: "https://releases.marscredit.org/geth/linux-x64/geth.tar.gz",
		Ext: ".tar.gz",
	},
	paths.LinuxArm64: {
		URL: "https://releases.marscredit.org/geth/linux-arm64/geth.tar.gz",
		Ext: ".tar.gz",
	},
	paths.Win32X64: {
		URL: "https://releases.marscredit.org/geth/win32-x64/geth.zip",
		Ext: ".zip",
	},
	paths.Win32Arm64: {
		URL:          "https://releases.marscredit.org/geth/win32-x64/geth.zip",
		Ext:          ".zip",
		FallbackFrom: paths.Win32X64,
	},
}

// azureMirrorContainer is the Azure Blob Storage container consulted when
// the primary HTTP host in archiveTable is unreachable, mirroring the
// teacher's own use of Azure Blob Storage for build-artifact distribution.
const azureMirrorAccountURL = "https://marscreditreleases.blob.core.windows.net"
const azureMirrorContainer = "geth-archives"

func azureBlobName(k paths.Key, ext string) string {
	return string(k) + "/geth" + ext
}

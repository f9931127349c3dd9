package binmgr

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/marscredit/monorepo/internal/paths"
)

// downloadFromAzureMirror pulls the archive for k from the public Azure
// Blob Storage mirror, used when the primary HTTP host errors or times out.
func downloadFromAzureMirror(ctx context.Context, k paths.Key, ext, destPath string, onProgress func(downloaded, total int64)) error {
	client, err := azblob.NewClientWithNoCredential(azureMirrorAccountURL, nil)
	if err != nil {
		return fmt.Errorf("init azure client: %w", err)
	}

	blobName := azureBlobName(k, ext)
	resp, err := client.DownloadStream(ctx, azureMirrorContainer, blobName, nil)
	if err != nil {
		return fmt.Errorf("download azure mirror blob %s: %w", blobName, err)
	}
	defer resp.Body.Close()

	var total int64
	if resp.ContentLength != nil {
		total = *resp.ContentLength
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()

	_, err = io.Copy(out, &progressReader{r: resp.Body, onProgress: onProgress, total: total})
	if err != nil {
		return fmt.Errorf("write mirror download: %w", err)
	}
	return nil
}

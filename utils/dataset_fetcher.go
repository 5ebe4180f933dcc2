package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// DatasetFetcher downloads the MCM reference dataset files (DTM coefficient
// tables, UM grids) from a blob container into a local directory, so worker
// deployments can provision datasets at startup instead of baking them into
// the image.
type DatasetFetcher struct {
	containerClient *container.Client
}

func NewDatasetFetcher(storageAccountConnStr string, blobContainerName string) *DatasetFetcher {
	containerClient, err := container.NewClientFromConnectionString(storageAccountConnStr, blobContainerName, nil)
	if err != nil {
		panic(fmt.Sprintf("failed to create container client: %v", err))
	}

	return &DatasetFetcher{containerClient: containerClient}
}

// FetchDatasetDir downloads every blob under blobPrefix into localDir,
// recreating the directory structure below the prefix. Returns the number of
// files written.
func (df *DatasetFetcher) FetchDatasetDir(ctx context.Context, blobPrefix string, localDir string) (int, error) {
	logger := slog.Default()
	prefix := "FetchDatasetDir() - "

	if !strings.HasSuffix(blobPrefix, "/") {
		blobPrefix += "/"
	}

	pager := df.containerClient.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix: &blobPrefix,
	})

	numFiles := 0
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return numFiles, fmt.Errorf("failed to list blobs under prefix %s: %w", blobPrefix, err)
		}

		for _, blobItem := range page.Segment.BlobItems {
			blobName := *blobItem.Name

			relName := strings.TrimPrefix(blobName, blobPrefix)
			if relName == "" {
				continue
			}

			localPath := filepath.Join(localDir, filepath.FromSlash(relName))
			if err := df.downloadBlobToFile(ctx, blobName, localPath); err != nil {
				return numFiles, fmt.Errorf("failed to download dataset file %s: %w", blobName, err)
			}

			logger.Debug(prefix+"downloaded dataset file", "blobName", blobName, "localPath", localPath)
			numFiles++
		}
	}

	if numFiles == 0 {
		return 0, fmt.Errorf("no dataset files found under blob prefix: %s", blobPrefix)
	}

	return numFiles, nil
}

func (df *DatasetFetcher) downloadBlobToFile(ctx context.Context, blobName string, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}

	blobClient := df.containerClient.NewBlockBlobClient(blobName)

	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}

	return nil
}

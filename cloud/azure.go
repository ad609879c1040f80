package cloud

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

const azureBlobPrefix = "backups/"

// AzureBlobAdapter stores backups as block blobs addressed with an
// account-level SAS token. The decrypted access key is the storage account
// name and the decrypted secret is the SAS query string.
type AzureBlobAdapter struct {
	cfg Config

	// baseURL overrides the account service URL when set.
	baseURL string
}

func NewAzureBlob(cfg Config) *AzureBlobAdapter {
	return &AzureBlobAdapter{cfg: cfg}
}

func (a *AzureBlobAdapter) accountName() (string, error) {
	name, err := a.cfg.decryptField(a.cfg.AccessKeyID)
	if err != nil {
		return "", fmt.Errorf("decrypt account name: %w", err)
	}
	if name == "" {
		return "", &CredentialMissingError{Field: "account name"}
	}
	return name, nil
}

func (a *AzureBlobAdapter) sasToken() (string, error) {
	token, err := a.cfg.decryptField(a.cfg.SecretAccessKey)
	if err != nil {
		return "", fmt.Errorf("decrypt sas token: %w", err)
	}
	if token == "" {
		return "", &CredentialMissingError{Field: "sas token"}
	}
	return token, nil
}

func (a *AzureBlobAdapter) container() string {
	if a.cfg.Bucket != "" {
		return a.cfg.Bucket
	}
	return BackupDir
}

// containerURL returns "<service>/<container>?<sas>" ready for extra query
// parameters to be appended with &.
func (a *AzureBlobAdapter) containerURL() (string, error) {
	account, err := a.accountName()
	if err != nil {
		return "", err
	}
	sas, err := a.sasToken()
	if err != nil {
		return "", err
	}

	base := a.baseURL
	if base == "" {
		base = "https://" + account + ".blob.core.windows.net"
	}
	return base + "/" + a.container() + "?" + sas, nil
}

// Upload writes the backup as a block blob and returns its blob name.
func (a *AzureBlobAdapter) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	containerURL, err := a.containerURL()
	if err != nil {
		return "", err
	}
	blobName := azureBlobPrefix + filename
	url := insertBlobName(containerURL, blobName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newFetchError("upload", resp)
	}
	return blobName, nil
}

// Download fetches a backup blob by name.
func (a *AzureBlobAdapter) Download(ctx context.Context, remotePath string) ([]byte, error) {
	containerURL, err := a.containerURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, insertBlobName(containerURL, remotePath), nil)
	if err != nil {
		return nil, fmt.Errorf("download: build request: %w", err)
	}

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newFetchError("download", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download: read body: %w", err)
	}
	return data, nil
}

type azureBlobList struct {
	Blobs []struct {
		Name       string `xml:"Name"`
		Properties struct {
			ContentLength int64  `xml:"Content-Length"`
			LastModified  string `xml:"Last-Modified"`
		} `xml:"Properties"`
	} `xml:"Blobs>Blob"`
}

// List enumerates backup blobs under the backups/ prefix.
func (a *AzureBlobAdapter) List(ctx context.Context) ([]FileInfo, error) {
	containerURL, err := a.containerURL()
	if err != nil {
		return nil, err
	}
	url := containerURL + "&restype=container&comp=list&prefix=" + azureBlobPrefix

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("list: build request: %w", err)
	}

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newFetchError("list", resp)
	}

	var result azureBlobList
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ParseError{Op: "list", Err: err}
	}

	var files []FileInfo
	for _, blob := range result.Blobs {
		if blob.Name == "" {
			continue
		}
		lastModified := time.Now()
		if blob.Properties.LastModified != "" {
			lastModified, err = http.ParseTime(blob.Properties.LastModified)
			if err != nil {
				continue
			}
		}
		files = append(files, FileInfo{Path: blob.Name, Size: blob.Properties.ContentLength, LastModified: lastModified})
	}
	return files, nil
}

// TestConnection probes the container. A 404 still counts as reachable
// since the container may simply not exist yet.
func (a *AzureBlobAdapter) TestConnection(ctx context.Context) bool {
	containerURL, err := a.containerURL()
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, containerURL+"&restype=container", nil)
	if err != nil {
		return false
	}

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	return ok || resp.StatusCode == http.StatusNotFound
}

// insertBlobName splices the blob name into a container URL that already
// carries the SAS query string.
func insertBlobName(containerURL, blobName string) string {
	for i := 0; i < len(containerURL); i++ {
		if containerURL[i] == '?' {
			return containerURL[:i] + "/" + blobName + containerURL[i:]
		}
	}
	return containerURL + "/" + blobName
}

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	dropboxAPIBase     = "https://api.dropboxapi.com/2"
	dropboxContentBase = "https://content.dropboxapi.com/2"
)

// DropboxAdapter stores backups under a /tasket-backups app folder. The
// decrypted access key is used as an OAuth2 bearer token and remote paths
// are Dropbox display paths.
type DropboxAdapter struct {
	cfg         Config
	apiBase     string
	contentBase string
}

func NewDropbox(cfg Config) *DropboxAdapter {
	return &DropboxAdapter{cfg: cfg, apiBase: dropboxAPIBase, contentBase: dropboxContentBase}
}

func (a *DropboxAdapter) token() (string, error) {
	token, err := a.cfg.decryptField(a.cfg.AccessKeyID)
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	if token == "" {
		return "", &CredentialMissingError{Field: "access token"}
	}
	return token, nil
}

type dropboxEntry struct {
	Tag            string `json:".tag"`
	PathDisplay    string `json:"path_display"`
	Size           int64  `json:"size"`
	ServerModified string `json:"server_modified"`
}

// Upload writes the backup file and returns the display path Dropbox
// assigned, which differs from the requested one when autorename kicks in.
func (a *DropboxAdapter) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	token, err := a.token()
	if err != nil {
		return "", err
	}

	arg, _ := json.Marshal(map[string]interface{}{
		"path":       "/" + BackupDir + "/" + filename,
		"mode":       "add",
		"autorename": true,
		"mute":       false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.contentBase+"/files/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", newFetchError("upload", resp)
	}

	var entry dropboxEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return "", &ParseError{Op: "upload", Err: err}
	}
	return entry.PathDisplay, nil
}

// Download fetches a backup file by display path.
func (a *DropboxAdapter) Download(ctx context.Context, remotePath string) ([]byte, error) {
	token, err := a.token()
	if err != nil {
		return nil, err
	}

	arg, _ := json.Marshal(map[string]string{"path": remotePath})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.contentBase+"/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("download: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError("download", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download: read body: %w", err)
	}
	return data, nil
}

// List enumerates the backup folder. A 409 means the folder does not
// exist yet, which reads as no backups rather than an error.
func (a *DropboxAdapter) List(ctx context.Context) ([]FileInfo, error) {
	token, err := a.token()
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(map[string]interface{}{
		"path":            "/" + BackupDir,
		"recursive":       false,
		"include_deleted": false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/files/list_folder", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("list: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError("list", resp)
	}

	var result struct {
		Entries []dropboxEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ParseError{Op: "list", Err: err}
	}

	var files []FileInfo
	for _, entry := range result.Entries {
		if entry.Tag != "file" {
			continue
		}
		modified, err := time.Parse(time.RFC3339, entry.ServerModified)
		if err != nil {
			modified = time.Time{}
		}
		files = append(files, FileInfo{Path: entry.PathDisplay, Size: entry.Size, LastModified: modified})
	}
	return files, nil
}

// TestConnection verifies the token by fetching the current account.
func (a *DropboxAdapter) TestConnection(ctx context.Context) bool {
	token, err := a.token()
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/users/get_current_account", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

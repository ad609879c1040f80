package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	driveAPIBase    = "https://www.googleapis.com/drive/v3"
	driveUploadBase = "https://www.googleapis.com/upload/drive/v3"
	driveFolderMime = "application/vnd.google-apps.folder"
	driveBoundary   = "-------tasket-backup-boundary"
)

// GoogleDriveAdapter stores backups as files in a BackupDir folder in the
// user's Drive. The decrypted access key is used as an OAuth2 bearer
// token. Remote paths are opaque Drive file ids.
type GoogleDriveAdapter struct {
	cfg        Config
	apiBase    string
	uploadBase string
}

func NewGoogleDrive(cfg Config) *GoogleDriveAdapter {
	return &GoogleDriveAdapter{cfg: cfg, apiBase: driveAPIBase, uploadBase: driveUploadBase}
}

func (a *GoogleDriveAdapter) token() (string, error) {
	token, err := a.cfg.decryptField(a.cfg.AccessKeyID)
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	if token == "" {
		return "", &CredentialMissingError{Field: "access token"}
	}
	return token, nil
}

func (a *GoogleDriveAdapter) request(ctx context.Context, method, url, token, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return a.cfg.client().Do(req)
}

type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Size         string `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
}

type driveFileList struct {
	Files []driveFile `json:"files"`
}

// ensureFolder finds the backup folder by name, creating it when absent,
// and returns its id.
func (a *GoogleDriveAdapter) ensureFolder(ctx context.Context, token string) (string, error) {
	query := url.Values{
		"q":      []string{fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", BackupDir, driveFolderMime)},
		"fields": []string{"files(id, name)"},
	}

	resp, err := a.request(ctx, http.MethodGet, a.apiBase+"/files?"+query.Encode(), token, "", nil)
	if err != nil {
		return "", fmt.Errorf("find folder: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", newFetchError("find folder", resp)
	}

	var list driveFileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", &ParseError{Op: "find folder", Err: err}
	}
	if len(list.Files) > 0 {
		return list.Files[0].ID, nil
	}

	metadata, _ := json.Marshal(map[string]string{"name": BackupDir, "mimeType": driveFolderMime})
	resp, err = a.request(ctx, http.MethodPost, a.apiBase+"/files", token, "application/json", bytes.NewReader(metadata))
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", newFetchError("create folder", resp)
	}

	var created driveFile
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &ParseError{Op: "create folder", Err: err}
	}
	return created.ID, nil
}

// Upload writes the backup as a multipart/related request and returns the
// new file's id.
func (a *GoogleDriveAdapter) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	token, err := a.token()
	if err != nil {
		return "", err
	}
	folderID, err := a.ensureFolder(ctx, token)
	if err != nil {
		return "", err
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"name":     filename,
		"parents":  []string{folderID},
		"mimeType": "application/json",
	})

	body := strings.Join([]string{
		"--" + driveBoundary,
		"Content-Type: application/json; charset=UTF-8",
		"",
		string(metadata),
		"--" + driveBoundary,
		"Content-Type: application/json",
		"",
		string(data),
		"--" + driveBoundary + "--",
	}, "\r\n")

	resp, err := a.request(ctx, http.MethodPost, a.uploadBase+"/files?uploadType=multipart", token,
		"multipart/related; boundary="+driveBoundary, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", newFetchError("upload", resp)
	}

	var created driveFile
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &ParseError{Op: "upload", Err: err}
	}
	return created.ID, nil
}

// Download fetches a backup file's content by id.
func (a *GoogleDriveAdapter) Download(ctx context.Context, remotePath string) ([]byte, error) {
	token, err := a.token()
	if err != nil {
		return nil, err
	}

	resp, err := a.request(ctx, http.MethodGet, a.apiBase+"/files/"+remotePath+"?alt=media", token, "", nil)
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

// List enumerates the files in the backup folder, newest first.
func (a *GoogleDriveAdapter) List(ctx context.Context) ([]FileInfo, error) {
	token, err := a.token()
	if err != nil {
		return nil, err
	}
	folderID, err := a.ensureFolder(ctx, token)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"q":       []string{fmt.Sprintf("'%s' in parents and trashed=false", folderID)},
		"fields":  []string{"files(id, name, size, modifiedTime)"},
		"orderBy": []string{"modifiedTime desc"},
	}

	resp, err := a.request(ctx, http.MethodGet, a.apiBase+"/files?"+query.Encode(), token, "", nil)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError("list", resp)
	}

	var list driveFileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &ParseError{Op: "list", Err: err}
	}

	files := make([]FileInfo, 0, len(list.Files))
	for _, file := range list.Files {
		size, _ := strconv.ParseInt(file.Size, 10, 64)
		modified, err := time.Parse(time.RFC3339, file.ModifiedTime)
		if err != nil {
			modified = time.Time{}
		}
		files = append(files, FileInfo{Path: file.ID, Size: size, LastModified: modified})
	}
	return files, nil
}

// TestConnection verifies the token by fetching the account's user info.
func (a *GoogleDriveAdapter) TestConnection(ctx context.Context) bool {
	token, err := a.token()
	if err != nil {
		return false
	}

	resp, err := a.request(ctx, http.MethodGet, a.apiBase+"/about?fields=user", token, "", nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

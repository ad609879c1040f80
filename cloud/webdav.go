package cloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mtsgi/tasket/internal/debug"
)

const davPropfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:getcontentlength/>
    <D:getlastmodified/>
  </D:prop>
</D:propfind>`

// WebDAVAdapter talks to WebDAV servers (Nextcloud, ownCloud and
// friends) with Basic auth. Files live in a BackupDir collection under the
// configured endpoint.
type WebDAVAdapter struct {
	cfg Config
}

func NewWebDAV(cfg Config) *WebDAVAdapter {
	return &WebDAVAdapter{cfg: cfg}
}

func (a *WebDAVAdapter) authHeader() (string, error) {
	username, err := a.cfg.decryptField(a.cfg.AccessKeyID)
	if err != nil {
		return "", fmt.Errorf("decrypt username: %w", err)
	}
	password, err := a.cfg.decryptField(a.cfg.SecretAccessKey)
	if err != nil {
		return "", fmt.Errorf("decrypt password: %w", err)
	}
	if username == "" || password == "" {
		return "", &CredentialMissingError{Field: "username"}
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + credentials, nil
}

func (a *WebDAVAdapter) baseURL() (string, error) {
	if a.cfg.Endpoint == "" {
		return "", &CredentialMissingError{Field: "endpoint"}
	}
	endpoint := a.cfg.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return endpoint, nil
}

func (a *WebDAVAdapter) request(ctx context.Context, method, url, auth string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	for name, values := range header {
		req.Header[name] = values
	}
	resp, err := a.cfg.client().Do(req)
	if err == nil {
		debug.Print("webdav %s %s -> %d\n", method, url, resp.StatusCode)
	}
	return resp, err
}

// ensureDirectory creates the backup collection if it does not exist.
// Failures are swallowed; the collection may already exist and the upload
// itself will surface a real problem.
func (a *WebDAVAdapter) ensureDirectory(ctx context.Context, dirURL, auth string) {
	resp, err := a.request(ctx, "PROPFIND", dirURL, auth, nil, http.Header{"Depth": []string{"0"}})
	if err != nil {
		return
	}
	status := resp.StatusCode
	resp.Body.Close()
	if status != http.StatusNotFound {
		return
	}

	resp, err = a.request(ctx, "MKCOL", dirURL, auth, nil, nil)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Upload writes the backup file, creating the collection first if needed,
// and returns its endpoint-relative path.
func (a *WebDAVAdapter) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	base, err := a.baseURL()
	if err != nil {
		return "", err
	}
	auth, err := a.authHeader()
	if err != nil {
		return "", err
	}

	dirURL := base + BackupDir
	a.ensureDirectory(ctx, dirURL, auth)

	resp, err := a.request(ctx, http.MethodPut, dirURL+"/"+filename, auth, bytes.NewReader(data),
		http.Header{"Content-Type": []string{"application/json"}})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newFetchError("upload", resp)
	}
	return BackupDir + "/" + filename, nil
}

// Download fetches a backup file by its endpoint-relative path.
func (a *WebDAVAdapter) Download(ctx context.Context, remotePath string) ([]byte, error) {
	base, err := a.baseURL()
	if err != nil {
		return nil, err
	}
	auth, err := a.authHeader()
	if err != nil {
		return nil, err
	}

	resp, err := a.request(ctx, http.MethodGet, base+remotePath, auth, nil, nil)
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

type davMultistatus struct {
	Responses []davEntry `xml:"response"`
}

type davEntry struct {
	Href      string `xml:"href"`
	Propstats []struct {
		Prop struct {
			ContentLength string `xml:"getcontentlength"`
			LastModified  string `xml:"getlastmodified"`
		} `xml:"prop"`
	} `xml:"propstat"`
}

// List enumerates the files in the backup collection via a depth-1
// PROPFIND, skipping the collection's own entry.
func (a *WebDAVAdapter) List(ctx context.Context) ([]FileInfo, error) {
	base, err := a.baseURL()
	if err != nil {
		return nil, err
	}
	auth, err := a.authHeader()
	if err != nil {
		return nil, err
	}

	resp, err := a.request(ctx, "PROPFIND", base+BackupDir, auth, strings.NewReader(davPropfindBody),
		http.Header{"Depth": []string{"1"}, "Content-Type": []string{"application/xml"}})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newFetchError("list", resp)
	}

	var result davMultistatus
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ParseError{Op: "list", Err: err}
	}

	var files []FileInfo
	for _, entry := range result.Responses {
		href := strings.TrimSuffix(entry.Href, "/")
		if href == "" || strings.HasSuffix(href, "/"+BackupDir) {
			continue
		}
		name := href[strings.LastIndex(href, "/")+1:]
		if name == "" || name == BackupDir {
			continue
		}
		if len(entry.Propstats) == 0 {
			continue
		}
		prop := entry.Propstats[0].Prop

		var size int64
		if prop.ContentLength != "" {
			size, err = strconv.ParseInt(prop.ContentLength, 10, 64)
			if err != nil {
				continue
			}
		}

		lastModified := time.Now()
		if prop.LastModified != "" {
			lastModified, err = http.ParseTime(prop.LastModified)
			if err != nil {
				continue
			}
		}

		files = append(files, FileInfo{Path: BackupDir + "/" + name, Size: size, LastModified: lastModified})
	}
	return files, nil
}

// TestConnection probes the endpoint with an OPTIONS request.
func (a *WebDAVAdapter) TestConnection(ctx context.Context) bool {
	if a.cfg.Endpoint == "" {
		return false
	}
	auth, err := a.authHeader()
	if err != nil {
		return false
	}

	resp, err := a.request(ctx, http.MethodOptions, a.cfg.Endpoint, auth, nil, nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

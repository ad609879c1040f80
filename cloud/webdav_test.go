package cloud

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtsgi/tasket/store"
)

func webdavTestConfig(serverURL string) Config {
	return Config{
		Provider:        store.ProviderWebDAV,
		Endpoint:        serverURL,
		AccessKeyID:     "alice",
		SecretAccessKey: "hunter2",
		Decrypt:         plainDecrypt,
	}
}

func TestWebDAVUploadCreatesMissingCollection(t *testing.T) {
	var sawMkcol bool
	payload := []byte(`{"version":7}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
		require.Equal(t, wantAuth, r.Header.Get("Authorization"))

		switch r.Method {
		case "PROPFIND":
			require.Equal(t, "/tasket-backups", r.URL.Path)
			require.Equal(t, "0", r.Header.Get("Depth"))
			w.WriteHeader(http.StatusNotFound)
		case "MKCOL":
			require.Equal(t, "/tasket-backups", r.URL.Path)
			sawMkcol = true
			w.WriteHeader(http.StatusCreated)
		case http.MethodPut:
			require.Equal(t, "/tasket-backups/backup.json", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			require.Equal(t, payload, body)
			w.WriteHeader(http.StatusCreated)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	adapter := NewWebDAV(webdavTestConfig(server.URL))
	remotePath, err := adapter.Upload(context.Background(), "backup.json", payload)
	require.NoError(t, err)
	require.Equal(t, "tasket-backups/backup.json", remotePath)
	require.True(t, sawMkcol)
}

func TestWebDAVUploadToleratesMkcolConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "PROPFIND":
			w.WriteHeader(http.StatusNotFound)
		case "MKCOL":
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	adapter := NewWebDAV(webdavTestConfig(server.URL))
	_, err := adapter.Upload(context.Background(), "backup.json", []byte("{}"))
	require.NoError(t, err)
}

func TestWebDAVList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PROPFIND", r.Method)
		require.Equal(t, "/tasket-backups", r.URL.Path)
		require.Equal(t, "1", r.Header.Get("Depth"))
		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), "getcontentlength")

		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/remote.php/dav/files/alice/tasket-backups/</D:href>
    <D:propstat>
      <D:prop><D:getcontentlength/></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/remote.php/dav/files/alice/tasket-backups/tasket-backup-2026-03-14-1773478800000.json</D:href>
    <D:propstat>
      <D:prop>
        <D:getcontentlength>2048</D:getcontentlength>
        <D:getlastmodified>Sat, 14 Mar 2026 09:00:00 GMT</D:getlastmodified>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`))
	}))
	defer server.Close()

	adapter := NewWebDAV(webdavTestConfig(server.URL))
	files, err := adapter.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "tasket-backups/tasket-backup-2026-03-14-1773478800000.json", files[0].Path)
	require.Equal(t, int64(2048), files[0].Size)
	require.Equal(t, 2026, files[0].LastModified.Year())
}

func TestWebDAVTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodOptions, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewWebDAV(webdavTestConfig(server.URL))
	require.True(t, adapter.TestConnection(context.Background()))

	noEndpoint := NewWebDAV(webdavTestConfig(""))
	require.False(t, noEndpoint.TestConnection(context.Background()))
}

func TestWebDAVMissingCredentials(t *testing.T) {
	cfg := webdavTestConfig("http://example.invalid")
	cfg.SecretAccessKey = ""
	adapter := NewWebDAV(cfg)

	_, err := adapter.Upload(context.Background(), "backup.json", []byte("{}"))
	var missing *CredentialMissingError
	require.ErrorAs(t, err, &missing)
}

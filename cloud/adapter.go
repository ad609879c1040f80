package cloud

import (
	"context"
	"net/http"
	"time"

	"github.com/mtsgi/tasket/store"
)

// BackupDir is the remote directory (or key prefix) all adapters write
// backup files under.
const BackupDir = "tasket-backups"

// FileInfo describes one remote backup file.
type FileInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Adapter is the uniform surface over one remote storage backend. Upload
// returns the provider-specific remote path (an object key, a relative
// path, or an opaque file id) that Download accepts back. TestConnection
// never returns an error; any failure reads as false.
type Adapter interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
	Download(ctx context.Context, remotePath string) ([]byte, error)
	List(ctx context.Context) ([]FileInfo, error)
	TestConnection(ctx context.Context) bool
}

// Config is the connection profile an adapter is built from. AccessKeyID
// and SecretAccessKey are ciphertext; Decrypt is applied at call time so
// plaintext credentials never sit in the config.
type Config struct {
	Provider        store.Provider
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string

	Decrypt    func(ciphertext string) (string, error)
	HTTPClient *http.Client
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// decryptField decrypts a stored credential, treating an empty ciphertext
// as an empty value.
func (c Config) decryptField(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	if c.Decrypt == nil {
		return "", &CredentialMissingError{Field: "decrypt function"}
	}
	return c.Decrypt(ciphertext)
}

// New builds the adapter for the config's provider.
func New(cfg Config) (Adapter, error) {
	switch cfg.Provider {
	case store.ProviderS3Compatible, store.ProviderCustom:
		return NewS3(cfg), nil
	case store.ProviderWebDAV:
		return NewWebDAV(cfg), nil
	case store.ProviderGoogleDrive:
		return NewGoogleDrive(cfg), nil
	case store.ProviderDropbox:
		return NewDropbox(cfg), nil
	case store.ProviderAzureBlob:
		return NewAzureBlob(cfg), nil
	default:
		return nil, &UnsupportedProviderError{Provider: cfg.Provider}
	}
}

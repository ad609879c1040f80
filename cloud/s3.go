package cloud

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	icrypto "github.com/mtsgi/tasket/internal/crypto"
	"github.com/mtsgi/tasket/internal/debug"
)

const defaultS3Endpoint = "https://s3.amazonaws.com"

// S3Adapter talks to AWS S3 and S3-compatible object stores (MinIO,
// Wasabi, Cloudflare R2) using hand-signed v4 requests. Objects live under
// the BackupDir key prefix in the configured bucket.
type S3Adapter struct {
	cfg Config
}

func NewS3(cfg Config) *S3Adapter {
	return &S3Adapter{cfg: cfg}
}

func (a *S3Adapter) signer() (Signer, error) {
	accessKey, err := a.cfg.decryptField(a.cfg.AccessKeyID)
	if err != nil {
		return Signer{}, fmt.Errorf("decrypt access key: %w", err)
	}
	secretKey, err := a.cfg.decryptField(a.cfg.SecretAccessKey)
	if err != nil {
		return Signer{}, fmt.Errorf("decrypt secret key: %w", err)
	}
	if accessKey == "" || secretKey == "" {
		return Signer{}, &CredentialMissingError{Field: "access key"}
	}

	region := a.cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return Signer{AccessKey: accessKey, SecretKey: secretKey, Region: region, Service: "s3"}, nil
}

func (a *S3Adapter) bucketURL() (string, error) {
	if a.cfg.Bucket == "" {
		return "", &CredentialMissingError{Field: "bucket"}
	}
	endpoint := a.cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}
	return strings.TrimSuffix(endpoint, "/") + "/" + a.cfg.Bucket, nil
}

func (a *S3Adapter) do(ctx context.Context, op, method, url string, body []byte, contentType string) (*http.Response, error) {
	signer, err := a.signer()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	payloadHash := emptyPayloadHash
	if body != nil {
		reader = bytes.NewReader(body)
		payloadHash = icrypto.Sha256Hex(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("x-amz-content-sha256", payloadHash)
	signer.Sign(req, payloadHash, time.Now())

	resp, err := a.cfg.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	debug.Print("s3 %s %s %s -> %d\n", op, method, url, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newFetchError(op, resp)
	}
	return resp, nil
}

// Upload writes the backup object and returns its key.
func (a *S3Adapter) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	base, err := a.bucketURL()
	if err != nil {
		return "", err
	}
	key := BackupDir + "/" + filename

	resp, err := a.do(ctx, "upload", http.MethodPut, base+"/"+key, data, "application/json")
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return key, nil
}

// Download fetches a backup object by key.
func (a *S3Adapter) Download(ctx context.Context, remotePath string) ([]byte, error) {
	base, err := a.bucketURL()
	if err != nil {
		return nil, err
	}

	resp, err := a.do(ctx, "download", http.MethodGet, base+"/"+remotePath, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download: read body: %w", err)
	}
	return data, nil
}

type s3ListResult struct {
	Contents []struct {
		Key          string `xml:"Key"`
		Size         int64  `xml:"Size"`
		LastModified string `xml:"LastModified"`
	} `xml:"Contents"`
}

// List enumerates backup objects under the BackupDir prefix.
func (a *S3Adapter) List(ctx context.Context) ([]FileInfo, error) {
	base, err := a.bucketURL()
	if err != nil {
		return nil, err
	}
	url := base + "?list-type=2&prefix=" + uriEncode(BackupDir+"/", true)

	resp, err := a.do(ctx, "list", http.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result s3ListResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ParseError{Op: "list", Err: err}
	}

	files := make([]FileInfo, 0, len(result.Contents))
	for _, object := range result.Contents {
		if object.Key == "" {
			continue
		}
		// Malformed entries are skipped rather than failing the listing.
		lastModified, err := time.Parse(time.RFC3339, object.LastModified)
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Path: object.Key, Size: object.Size, LastModified: lastModified})
	}
	return files, nil
}

// TestConnection verifies the credentials by listing the bucket.
func (a *S3Adapter) TestConnection(ctx context.Context) bool {
	_, err := a.List(ctx)
	return err == nil
}

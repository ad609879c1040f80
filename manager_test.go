package tasket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mtsgi/tasket/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Stores) {
	t.Helper()
	stores := newTestStores(t)
	manager, err := NewManager(Options{Stores: stores, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager, stores
}

func s3Input(endpoint string) ConfigInput {
	return ConfigInput{
		Provider:        store.ProviderS3Compatible,
		Name:            "test target",
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "my-bucket",
		AccessKeyID:     "AKID",
		SecretAccessKey: "topsecret",
		IsEnabled:       true,
	}
}

func TestCreateConfigEncryptsCredentials(t *testing.T) {
	manager, _ := newTestManager(t)

	config, err := manager.CreateConfig(s3Input("https://minio.local"))
	require.NoError(t, err)
	require.NotEqual(t, "AKID", config.AccessKeyID)
	require.NotEqual(t, "topsecret", config.SecretAccessKey)

	accessKey, err := manager.cipher.Decrypt(config.AccessKeyID)
	require.NoError(t, err)
	require.Equal(t, "AKID", accessKey)

	secret, err := manager.cipher.Decrypt(config.SecretAccessKey)
	require.NoError(t, err)
	require.Equal(t, "topsecret", secret)
}

func TestCreateConfigLeavesEmptyCredentialsEmpty(t *testing.T) {
	manager, _ := newTestManager(t)

	input := s3Input("https://example.com")
	input.Provider = store.ProviderGoogleDrive
	input.SecretAccessKey = ""
	config, err := manager.CreateConfig(input)
	require.NoError(t, err)
	require.Empty(t, config.SecretAccessKey)
}

func TestUpdateConfigKeepsUntouchedCredentials(t *testing.T) {
	manager, _ := newTestManager(t)

	created, err := manager.CreateConfig(s3Input("https://minio.local"))
	require.NoError(t, err)

	name := "renamed"
	updated, err := manager.UpdateConfig(created.ID, ConfigUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	// Untouched secrets keep their exact ciphertext.
	require.Equal(t, created.AccessKeyID, updated.AccessKeyID)
	require.Equal(t, created.SecretAccessKey, updated.SecretAccessKey)
}

func TestUpdateConfigReencryptsChangedSecret(t *testing.T) {
	manager, _ := newTestManager(t)

	created, err := manager.CreateConfig(s3Input("https://minio.local"))
	require.NoError(t, err)

	newSecret := "rotated"
	updated, err := manager.UpdateConfig(created.ID, ConfigUpdate{SecretAccessKey: &newSecret})
	require.NoError(t, err)
	require.NotEqual(t, created.SecretAccessKey, updated.SecretAccessKey)

	plaintext, err := manager.cipher.Decrypt(updated.SecretAccessKey)
	require.NoError(t, err)
	require.Equal(t, "rotated", plaintext)

	// The other credential is untouched.
	require.Equal(t, created.AccessKeyID, updated.AccessKeyID)
}

func TestUpdateConfigUnknownID(t *testing.T) {
	manager, _ := newTestManager(t)

	name := "x"
	_, err := manager.UpdateConfig("missing", ConfigUpdate{Name: &name})
	var notFound *ConfigNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "missing", notFound.ID)
}

func TestDeleteConfigKeepsHistory(t *testing.T) {
	manager, stores := newTestManager(t)

	config, err := manager.CreateConfig(s3Input("https://minio.local"))
	require.NoError(t, err)

	_, err = stores.History.Create(store.BackupHistory{
		ConfigID: config.ID,
		Status:   store.BackupSuccess,
		Type:     store.BackupManual,
	})
	require.NoError(t, err)

	require.NoError(t, manager.DeleteConfig(config.ID))

	var notFound *ConfigNotFoundError
	require.ErrorAs(t, manager.DeleteConfig(config.ID), &notFound)

	histories, err := manager.Histories(config.ID)
	require.NoError(t, err)
	require.Len(t, histories, 1)
}

func TestTestConnection(t *testing.T) {
	var status = http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`<ListBucketResult></ListBucketResult>`))
		}
	}))
	defer server.Close()

	manager, _ := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	ok, err := manager.TestConnection(context.Background(), config.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Remote failures read as false, never as an error.
	status = http.StatusForbidden
	ok, err = manager.TestConnection(context.Background(), config.ID)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = manager.TestConnection(context.Background(), "missing")
	var notFound *ConfigNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestListBackupFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<ListBucketResult>
  <Contents>
    <Key>tasket-backups/a.json</Key>
    <Size>512</Size>
    <LastModified>2026-03-14T09:00:00Z</LastModified>
  </Contents>
</ListBucketResult>`))
	}))
	defer server.Close()

	manager, _ := newTestManager(t)
	config, err := manager.CreateConfig(s3Input(server.URL))
	require.NoError(t, err)

	files, err := manager.ListBackupFiles(context.Background(), config.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "tasket-backups/a.json", files[0].Path)
}

func TestResetEncryptionKeyOrphansConfigs(t *testing.T) {
	manager, _ := newTestManager(t)

	config, err := manager.CreateConfig(s3Input("https://minio.local"))
	require.NoError(t, err)

	require.NoError(t, manager.ResetEncryptionKey())

	_, err = manager.cipher.Decrypt(config.AccessKeyID)
	var decErr *DecryptionError
	require.ErrorAs(t, err, &decErr)
}

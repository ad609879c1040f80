package tasket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mtsgi/tasket/audit"
	"github.com/mtsgi/tasket/cloud"
	"github.com/mtsgi/tasket/store"
)

// Options configures a Manager.
type Options struct {
	// Stores is the record store bundle. Required.
	Stores *store.Stores

	// Audit configures operation auditing. Nil disables it.
	Audit *audit.Config

	// Logger receives structured operational logs.
	Logger zerolog.Logger

	// HTTPClient overrides the client used for remote calls. Tests use it
	// to point adapters at local servers.
	HTTPClient *http.Client
}

func (o Options) Validate() error {
	if o.Stores == nil {
		return fmt.Errorf("stores must be provided")
	}
	return nil
}

// Manager is the entry point for cloud backups. It owns the credential
// cipher, the backup config lifecycle and the backup/restore operations,
// and serializes operations per config so concurrent triggers (manual plus
// scheduled) cannot interleave against the same remote target.
type Manager struct {
	stores     *store.Stores
	cipher     *Cipher
	audit      audit.Logger
	log        zerolog.Logger
	httpClient *http.Client

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	closed bool
}

// NewManager creates a Manager over the given stores.
func NewManager(opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	auditLogger, err := audit.NewLogger(opts.Audit)
	if err != nil {
		return nil, fmt.Errorf("create audit logger: %w", err)
	}

	return &Manager{
		stores:     opts.Stores,
		cipher:     NewCipher(opts.Stores.Prefs),
		audit:      auditLogger,
		log:        opts.Logger,
		httpClient: opts.HTTPClient,
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the audit logger. The stores are owned by the caller.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.audit.Close()
}

// lockConfig serializes backup and restore per config id. The returned
// function releases the lock.
func (m *Manager) lockConfig(id string) func() {
	m.mu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// ConfigInput carries the fields for a new backup config. AccessKeyID and
// SecretAccessKey are plaintext here and are encrypted before they reach
// the store.
type ConfigInput struct {
	Provider           store.Provider
	Name               string
	Endpoint           string
	Region             string
	Bucket             string
	AccessKeyID        string
	SecretAccessKey    string
	IsEnabled          bool
	AutoBackup         bool
	AutoBackupInterval int
}

// CreateConfig encrypts the credentials and saves a new config.
func (m *Manager) CreateConfig(input ConfigInput) (*store.BackupConfig, error) {
	accessKeyID, err := m.encryptCredential(input.AccessKeyID)
	if err != nil {
		return nil, err
	}
	secretAccessKey, err := m.encryptCredential(input.SecretAccessKey)
	if err != nil {
		return nil, err
	}

	config, err := m.stores.Configs.Create(store.BackupConfig{
		Provider:           input.Provider,
		Name:               input.Name,
		Endpoint:           input.Endpoint,
		Region:             input.Region,
		Bucket:             input.Bucket,
		AccessKeyID:        accessKeyID,
		SecretAccessKey:    secretAccessKey,
		IsEnabled:          input.IsEnabled,
		AutoBackup:         input.AutoBackup,
		AutoBackupInterval: input.AutoBackupInterval,
	})

	m.auditEvent(audit.Event{
		Action:   audit.ActionConfigCreate,
		Success:  err == nil,
		Error:    errString(err),
		Provider: string(input.Provider),
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().Str("config", config.ID).Str("provider", string(config.Provider)).Msg("backup config created")
	return config, nil
}

// ConfigUpdate carries partial updates for an existing config. Nil fields
// keep their stored value; credential fields, when set, are plaintext and
// get re-encrypted. Credentials that are not part of the update keep their
// existing ciphertext untouched.
type ConfigUpdate struct {
	Name               *string
	Endpoint           *string
	Region             *string
	Bucket             *string
	AccessKeyID        *string
	SecretAccessKey    *string
	IsEnabled          *bool
	AutoBackup         *bool
	AutoBackupInterval *int
}

// UpdateConfig applies a partial update to a config.
func (m *Manager) UpdateConfig(id string, update ConfigUpdate) (*store.BackupConfig, error) {
	config, err := m.stores.Configs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, &ConfigNotFoundError{ID: id}
	}

	if update.Name != nil {
		config.Name = *update.Name
	}
	if update.Endpoint != nil {
		config.Endpoint = *update.Endpoint
	}
	if update.Region != nil {
		config.Region = *update.Region
	}
	if update.Bucket != nil {
		config.Bucket = *update.Bucket
	}
	if update.AccessKeyID != nil {
		if config.AccessKeyID, err = m.encryptCredential(*update.AccessKeyID); err != nil {
			return nil, err
		}
	}
	if update.SecretAccessKey != nil {
		if config.SecretAccessKey, err = m.encryptCredential(*update.SecretAccessKey); err != nil {
			return nil, err
		}
	}
	if update.IsEnabled != nil {
		config.IsEnabled = *update.IsEnabled
	}
	if update.AutoBackup != nil {
		config.AutoBackup = *update.AutoBackup
	}
	if update.AutoBackupInterval != nil {
		config.AutoBackupInterval = *update.AutoBackupInterval
	}

	err = m.stores.Configs.Update(config)
	m.auditEvent(audit.Event{
		Action:   audit.ActionConfigUpdate,
		Success:  err == nil,
		Error:    errString(err),
		ConfigID: id,
		Provider: string(config.Provider),
	})
	if err != nil {
		return nil, err
	}
	return config, nil
}

// DeleteConfig removes a config. Its history rows are kept.
func (m *Manager) DeleteConfig(id string) error {
	config, err := m.stores.Configs.GetByID(id)
	if err != nil {
		return err
	}
	if config == nil {
		return &ConfigNotFoundError{ID: id}
	}

	err = m.stores.Configs.Delete(id)
	m.auditEvent(audit.Event{
		Action:   audit.ActionConfigDelete,
		Success:  err == nil,
		Error:    errString(err),
		ConfigID: id,
		Provider: string(config.Provider),
	})
	return err
}

// Configs returns all saved configs. Credential fields are ciphertext.
func (m *Manager) Configs() ([]store.BackupConfig, error) {
	return m.stores.Configs.ListAll()
}

// Config returns one config by id.
func (m *Manager) Config(id string) (*store.BackupConfig, error) {
	config, err := m.stores.Configs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, &ConfigNotFoundError{ID: id}
	}
	return config, nil
}

// Histories returns backup history rows, newest first. An empty configID
// returns the history across all configs.
func (m *Manager) Histories(configID string) ([]store.BackupHistory, error) {
	if configID == "" {
		return m.stores.History.ListAll()
	}
	return m.stores.History.ListByConfig(configID)
}

// TestConnection probes the remote target of a config. A false result
// covers every remote failure mode; an error means the config itself is
// unusable.
func (m *Manager) TestConnection(ctx context.Context, configID string) (bool, error) {
	config, err := m.Config(configID)
	if err != nil {
		return false, err
	}

	adapter, err := m.adapterFor(config)
	if err != nil {
		return false, err
	}

	ok := adapter.TestConnection(ctx)
	m.auditEvent(audit.Event{
		Action:   audit.ActionTestConnection,
		Success:  ok,
		ConfigID: configID,
		Provider: string(config.Provider),
	})
	return ok, nil
}

// ListBackupFiles lists the backup files at a config's remote target.
func (m *Manager) ListBackupFiles(ctx context.Context, configID string) ([]cloud.FileInfo, error) {
	config, err := m.Config(configID)
	if err != nil {
		return nil, err
	}

	adapter, err := m.adapterFor(config)
	if err != nil {
		return nil, err
	}
	return adapter.List(ctx)
}

// ResetEncryptionKey destroys the credential encryption key. Credentials
// in every saved config become undecryptable and must be re-entered.
func (m *Manager) ResetEncryptionKey() error {
	err := m.cipher.Reset()
	m.auditEvent(audit.Event{
		Action:  audit.ActionKeyReset,
		Success: err == nil,
		Error:   errString(err),
	})
	if err == nil {
		m.log.Warn().Msg("encryption key reset, stored credentials are no longer decryptable")
	}
	return err
}

func (m *Manager) adapterFor(config *store.BackupConfig) (cloud.Adapter, error) {
	return cloud.New(cloud.Config{
		Provider:        config.Provider,
		Endpoint:        config.Endpoint,
		Region:          config.Region,
		Bucket:          config.Bucket,
		AccessKeyID:     config.AccessKeyID,
		SecretAccessKey: config.SecretAccessKey,
		Decrypt:         m.cipher.Decrypt,
		HTTPClient:      m.httpClient,
	})
}

// encryptCredential leaves empty credentials empty so optional fields do
// not turn into ciphertext of "".
func (m *Manager) encryptCredential(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return m.cipher.Encrypt(plaintext)
}

func (m *Manager) auditEvent(event audit.Event) {
	if err := m.audit.Log(event); err != nil {
		m.log.Warn().Err(err).Str("action", event.Action).Msg("audit write failed")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mtsgi/tasket"
	"github.com/mtsgi/tasket/audit"
	"github.com/mtsgi/tasket/store"
)

var (
	cfgFile string
	dbPath  string
	stores  *store.Stores
	manager *tasket.Manager
	logger  zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tasket",
	Short: "Cloud backup for tasket data",
	Long: `Manage cloud backups of tasket data: TODO items, expenses, routines,
day titles, settings and health records. Supports S3-compatible storage,
WebDAV, Google Drive, Dropbox and Azure Blob Storage. Credentials are
encrypted at rest with ChaCha20-Poly1305.`,
	PersistentPreRunE: initializeManager,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if manager != nil {
			manager.Close()
		}
		if stores != nil {
			return stores.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tasket.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to the tasket database file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	bindFlagOrPanic("db.path", "db")
	bindFlagOrPanic("log.level", "log-level")

	// Audit flags
	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-type", "", "audit logger type (file, syslog)")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.type", "audit-type")
	bindFlagOrPanic("audit.options.file_path", "audit-file")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".tasket")
	}

	viper.SetEnvPrefix("TASKET")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Missing config file is fine, defaults and env vars apply.
	}
}

func setDefaults() {
	viper.SetDefault("db.path", defaultDBPath())
	viper.SetDefault("log.level", "info")

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.options.file_path", "")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tasket.db"
	}
	return filepath.Join(home, ".tasket", "tasket.db")
}

func initializeManager(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
		return nil
	}

	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", viper.GetString("log.level"), err)
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	logger.Debug().
		Str("command", cmd.CommandPath()).
		Fields(map[string]interface{}{"flags": changedFlags(cmd)}).
		Msg("command invoked")

	dbPath = viper.GetString("db.path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// The audit log sits next to the database unless placed explicitly.
	if viper.GetBool("audit.enabled") && viper.GetString("audit.options.file_path") == "" {
		viper.Set("audit.options.file_path", filepath.Join(filepath.Dir(dbPath), "audit.log"))
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	stores = store.NewStores(db)

	manager, err = tasket.NewManager(tasket.Options{
		Stores: stores,
		Audit:  auditConfig(),
		Logger: logger,
	})
	if err != nil {
		stores.Close()
		return fmt.Errorf("failed to create backup manager: %w", err)
	}

	return nil
}

// changedFlags collects the flags set on the command line, with credential
// values redacted.
func changedFlags(cmd *cobra.Command) map[string]string {
	flags := make(map[string]string)
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		if isSensitiveFlag(flag.Name) {
			flags[flag.Name] = "[REDACTED]"
		} else {
			flags[flag.Name] = flag.Value.String()
		}
	})
	return flags
}

func isSensitiveFlag(name string) bool {
	for _, s := range []string{"secret", "key", "password", "token"} {
		if strings.Contains(strings.ToLower(name), s) {
			return true
		}
	}
	return false
}

func auditConfig() *audit.Config {
	if !viper.GetBool("audit.enabled") {
		return nil
	}
	return &audit.Config{
		Enabled: true,
		Type:    audit.ConfigType(viper.GetString("audit.type")),
		Options: map[string]interface{}{
			"file_path": viper.GetString("audit.options.file_path"),
		},
		LogLevel: viper.GetString("log.level"),
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mtsgi/tasket"
	"github.com/mtsgi/tasket/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage backup configurations",
	Long:  "Create, list, update, remove and test cloud backup configurations.",
}

var configAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a backup configuration",
	Long: `Add a cloud backup configuration. Credentials are encrypted before
they are stored; the plaintext never reaches the database.`,
	RunE: addConfig,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup configurations",
	RunE:  listConfigs,
}

var configUpdateCmd = &cobra.Command{
	Use:   "update [config-id]",
	Short: "Update a backup configuration",
	Long:  "Update a configuration. Only the flags given on the command line change; credentials passed here are re-encrypted.",
	Args:  cobra.ExactArgs(1),
	RunE:  updateConfig,
}

var configRmCmd = &cobra.Command{
	Use:   "rm [config-id]",
	Short: "Remove a backup configuration",
	Long:  "Remove a configuration. Its backup history is kept.",
	Args:  cobra.ExactArgs(1),
	RunE:  removeConfig,
}

var configTestCmd = &cobra.Command{
	Use:   "test [config-id]",
	Short: "Test the connection of a backup configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  testConfig,
}

var (
	configProvider  string
	configName      string
	configEndpoint  string
	configRegion    string
	configBucket    string
	configAccessKey string
	configSecretKey string
	configEnabled   bool
	configAuto      bool
	configInterval  int
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configUpdateCmd)
	configCmd.AddCommand(configRmCmd)
	configCmd.AddCommand(configTestCmd)

	for _, c := range []*cobra.Command{configAddCmd, configUpdateCmd} {
		c.Flags().StringVar(&configProvider, "provider", "", "provider (s3-compatible, webdav, google-drive, dropbox, azure-blob, custom)")
		c.Flags().StringVar(&configName, "name", "", "display name")
		c.Flags().StringVar(&configEndpoint, "endpoint", "", "endpoint URL")
		c.Flags().StringVar(&configRegion, "region", "", "region (S3 only)")
		c.Flags().StringVar(&configBucket, "bucket", "", "bucket or container name")
		c.Flags().StringVar(&configAccessKey, "access-key", "", "access key, username or OAuth token")
		c.Flags().StringVar(&configSecretKey, "secret-key", "", "secret key, password or SAS token")
		c.Flags().BoolVar(&configEnabled, "enabled", true, "enable this configuration")
		c.Flags().BoolVar(&configAuto, "auto", false, "enable scheduled backups")
		c.Flags().IntVar(&configInterval, "interval", 24, "scheduled backup interval in hours")
	}
}

func addConfig(cmd *cobra.Command, args []string) error {
	if configProvider == "" {
		return fmt.Errorf("--provider is required")
	}
	if configName == "" {
		return fmt.Errorf("--name is required")
	}

	config, err := manager.CreateConfig(tasket.ConfigInput{
		Provider:           store.Provider(configProvider),
		Name:               configName,
		Endpoint:           configEndpoint,
		Region:             configRegion,
		Bucket:             configBucket,
		AccessKeyID:        configAccessKey,
		SecretAccessKey:    configSecretKey,
		IsEnabled:          configEnabled,
		AutoBackup:         configAuto,
		AutoBackupInterval: configInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to add configuration: %w", err)
	}

	fmt.Printf("Configuration created: %s\n", config.ID)
	return nil
}

func listConfigs(cmd *cobra.Command, args []string) error {
	configs, err := manager.Configs()
	if err != nil {
		return fmt.Errorf("failed to list configurations: %w", err)
	}

	if len(configs) == 0 {
		fmt.Println("No backup configurations found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tPROVIDER\tENABLED\tAUTO\tLAST BACKUP\n")
	for _, config := range configs {
		lastBackup := "never"
		if config.LastBackupAt != nil {
			lastBackup = config.LastBackupAt.Format("2006-01-02 15:04:05")
		}
		auto := "off"
		if config.AutoBackup {
			auto = fmt.Sprintf("every %dh", config.AutoBackupInterval)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n",
			config.ID, config.Name, config.Provider, config.IsEnabled, auto, lastBackup)
	}
	return w.Flush()
}

func updateConfig(cmd *cobra.Command, args []string) error {
	var update tasket.ConfigUpdate

	// Only flags that were actually set become part of the update.
	if cmd.Flags().Changed("name") {
		update.Name = &configName
	}
	if cmd.Flags().Changed("endpoint") {
		update.Endpoint = &configEndpoint
	}
	if cmd.Flags().Changed("region") {
		update.Region = &configRegion
	}
	if cmd.Flags().Changed("bucket") {
		update.Bucket = &configBucket
	}
	if cmd.Flags().Changed("access-key") {
		update.AccessKeyID = &configAccessKey
	}
	if cmd.Flags().Changed("secret-key") {
		update.SecretAccessKey = &configSecretKey
	}
	if cmd.Flags().Changed("enabled") {
		update.IsEnabled = &configEnabled
	}
	if cmd.Flags().Changed("auto") {
		update.AutoBackup = &configAuto
	}
	if cmd.Flags().Changed("interval") {
		update.AutoBackupInterval = &configInterval
	}

	config, err := manager.UpdateConfig(args[0], update)
	if err != nil {
		return fmt.Errorf("failed to update configuration: %w", err)
	}

	fmt.Printf("Configuration updated: %s\n", config.ID)
	return nil
}

func removeConfig(cmd *cobra.Command, args []string) error {
	if err := manager.DeleteConfig(args[0]); err != nil {
		return fmt.Errorf("failed to remove configuration: %w", err)
	}
	fmt.Printf("Configuration removed: %s\n", args[0])
	return nil
}

func testConfig(cmd *cobra.Command, args []string) error {
	ok, err := manager.TestConnection(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to test connection: %w", err)
	}
	if !ok {
		return fmt.Errorf("connection test failed")
	}
	fmt.Println("Connection OK")
	return nil
}

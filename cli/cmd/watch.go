package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtsgi/tasket"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the automatic backup scheduler",
	Long: `Run the scheduler in the foreground. Every configuration with automatic
backups enabled is backed up on its interval. Configuration changes are
picked up periodically. Stop with Ctrl-C.`,
	RunE: runWatch,
}

var watchReloadInterval time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchReloadInterval, "reload-interval", time.Minute, "how often configuration changes are picked up")
}

func runWatch(cmd *cobra.Command, args []string) error {
	scheduler := tasket.NewScheduler(manager, logger)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop()

	fmt.Println("Scheduler running. Press Ctrl-C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(watchReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := scheduler.Reload(); err != nil {
				logger.Warn().Err(err).Msg("scheduler reload failed")
			}
		case sig := <-sigCh:
			fmt.Printf("Received %s, shutting down.\n", sig)
			return nil
		}
	}
}

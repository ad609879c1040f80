package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mtsgi/tasket/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long:  "Query recorded audit events. Requires audit logging to be enabled.",
	RunE:  queryAudit,
}

var (
	auditAction   string
	auditConfigID string
	auditFailed   bool
	auditLimit    int
	auditSince    string
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditAction, "action", "", "filter by action (BACKUP, RESTORE, ...)")
	auditCmd.Flags().StringVar(&auditConfigID, "config-id", "", "filter by configuration id")
	auditCmd.Flags().BoolVar(&auditFailed, "failed", false, "show only failed operations")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of events to show")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "show events after this time (RFC 3339)")
}

func queryAudit(cmd *cobra.Command, args []string) error {
	if !viper.GetBool("audit.enabled") {
		return fmt.Errorf("audit logging is not enabled, use --audit or audit.enabled in the config file")
	}

	logger, err := audit.NewLogger(auditConfig())
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer logger.Close()

	options := audit.QueryOptions{
		Action:   auditAction,
		ConfigID: auditConfigID,
		Limit:    auditLimit,
	}
	if auditFailed {
		failed := false
		options.Success = &failed
	}
	if auditSince != "" {
		since, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		options.Since = &since
	}

	result, err := logger.Query(options)
	if err != nil {
		return fmt.Errorf("failed to query audit log: %w", err)
	}

	if len(result.Events) == 0 {
		fmt.Println("No audit events found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIMESTAMP\tACTION\tSTATUS\tCONFIG\tPROVIDER\tREMOTE PATH\tERROR\n")
	for _, event := range result.Events {
		status := "ok"
		if !event.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"),
			event.Action, status, event.ConfigID, event.Provider, event.RemotePath, event.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if result.HasMore {
		fmt.Printf("Showing %d of %d matching events.\n", len(result.Events), result.Filtered)
	}
	return nil
}

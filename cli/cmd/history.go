package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [config-id]",
	Short: "Show backup history",
	Long:  "Show backup history, newest first. Without a config id the history of every configuration is shown, including removed ones.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of rows to show (0 for all)")
}

func showHistory(cmd *cobra.Command, args []string) error {
	configID := ""
	if len(args) == 1 {
		configID = args[0]
	}

	histories, err := manager.Histories(configID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(histories) == 0 {
		fmt.Println("No backup history found.")
		return nil
	}

	if historyLimit > 0 && len(histories) > historyLimit {
		histories = histories[:historyLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CREATED\tCONFIG\tTYPE\tSTATUS\tITEMS\tSIZE\tREMOTE PATH\tERROR\n")
	for _, h := range histories {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			h.CreatedAt.Format("2006-01-02 15:04:05"),
			h.ConfigID, h.Type, h.Status, h.ItemCount, h.Size, h.RemotePath, h.Error)
	}
	return w.Flush()
}

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the credential encryption key",
}

var keyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the credential encryption key",
	Long: `Destroy the credential encryption key and generate a new one on next use.
Credentials stored in every configuration become undecryptable and must
be entered again. Backed up data is not affected.`,
	RunE: resetKey,
}

var keyResetYes bool

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyResetCmd)

	keyResetCmd.Flags().BoolVarP(&keyResetYes, "yes", "y", false, "skip the confirmation prompt")
}

func resetKey(cmd *cobra.Command, args []string) error {
	if !keyResetYes {
		fmt.Print("This makes all stored credentials unusable. Continue? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := manager.ResetEncryptionKey(); err != nil {
		return fmt.Errorf("failed to reset encryption key: %w", err)
	}

	fmt.Println("Encryption key reset. Re-enter credentials with 'tasket config update'.")
	return nil
}

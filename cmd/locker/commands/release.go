package commands

import (
	"github.com/spf13/cobra"
)

var releaseCmd = &cobra.Command{
	Use:   "release LOCK_ID",
	Short: "Release a lock",
	Long: `release gives LOCK_ID up. Without --force the --token must match the
current owner's; with --force the lock is released whoever holds it.`,
	Args: cobra.ExactArgs(1),
	RunE: release,
}

func init() {
	RootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().String("token", "", "Ownership token returned by acquire")
	releaseCmd.Flags().Bool("force", false, "Release the lock regardless of owner")
}

func release(cmd *cobra.Command, args []string) error {
	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	lock, err := c.ReleaseLock(cmd.Context(), args[0], token, force)
	if err != nil {
		return err
	}
	return printLock(cmd, lock)
}

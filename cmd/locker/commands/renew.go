package commands

import (
	"github.com/spf13/cobra"
)

var renewCmd = &cobra.Command{
	Use:   "renew LOCK_ID",
	Short: "Extend the lease of a lock you own",
	Args:  cobra.ExactArgs(1),
	RunE:  renew,
}

func init() {
	RootCmd.AddCommand(renewCmd)

	renewCmd.Flags().String("token", "", "Ownership token returned by acquire")
	renewCmd.Flags().Int("ttl", 0, "New lease length in seconds")

	renewCmd.MarkFlagRequired("token")
}

func renew(cmd *cobra.Command, args []string) error {
	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	lock, err := c.RenewLock(cmd.Context(), args[0], token, state.cfg.Acquire.TTL)
	if err != nil {
		return err
	}
	return printLock(cmd, lock)
}

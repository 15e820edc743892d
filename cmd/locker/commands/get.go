package commands

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get LOCK_ID",
	Short: "Show the current state of a lock",
	Args:  cobra.ExactArgs(1),
	RunE:  get,
}

func init() {
	RootCmd.AddCommand(getCmd)
}

func get(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	lock, err := c.GetLock(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printLock(cmd, lock)
}

package commands

import (
	"github.com/spf13/cobra"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire LOCK_ID",
	Short: "Acquire a lock, waiting up to --timeout while it is held elsewhere",
	Long: `acquire asks the locker service for LOCK_ID with a lease of --ttl seconds.
While the lock is held by another owner, or the service answers 500/503, the
request is retried every --retry-delay until --timeout has elapsed. A timeout
of 0 makes a single attempt. The ownership token needed for renew and release
is printed as data.uuid.`,
	Args: cobra.ExactArgs(1),
	RunE: acquire,
}

func init() {
	RootCmd.AddCommand(acquireCmd)

	acquireCmd.Flags().Int("ttl", 0, "Lease length in seconds")
	acquireCmd.Flags().String("message", "", "Message stored with the lock")
	acquireCmd.Flags().Duration("timeout", 0, "How long to keep retrying while the lock is held")
	acquireCmd.Flags().Duration("retry-delay", 0, "Wait between attempts")
}

func acquire(cmd *cobra.Command, args []string) error {
	message, err := cmd.Flags().GetString("message")
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	lock, err := c.AcquireLock(cmd.Context(), args[0], state.cfg.Acquire.TTL, message, state.cfg.Acquire.Timeout)
	if err != nil {
		return err
	}
	return printLock(cmd, lock)
}

package commands

import (
	"context"
	"fmt"

	"github.com/avivl/locker/internal/lockservice"
	"github.com/spf13/cobra"
)

var holdCmd = &cobra.Command{
	Use:   "hold LOCK_ID",
	Short: "Acquire a lock and keep renewing it until interrupted",
	Long: `hold acquires LOCK_ID like acquire does, then renews the lease every third
of --ttl until the process is interrupted, at which point the lock is
released. It exits with an error if the lease is lost.`,
	Args: cobra.ExactArgs(1),
	RunE: hold,
}

func init() {
	RootCmd.AddCommand(holdCmd)

	holdCmd.Flags().Int("ttl", 0, "Lease length in seconds")
	holdCmd.Flags().String("message", "", "Message stored with the lock")
	holdCmd.Flags().Duration("timeout", 0, "How long to keep retrying while the lock is held")
	holdCmd.Flags().Duration("retry-delay", 0, "Wait between acquire attempts")
	holdCmd.Flags().Duration("renew-interval", 0, "Renewal period (defaults to a third of the ttl)")
}

func hold(cmd *cobra.Command, args []string) error {
	message, err := cmd.Flags().GetString("message")
	if err != nil {
		return err
	}
	interval, err := cmd.Flags().GetDuration("renew-interval")
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	keeper := lockservice.New(c, args[0], state.cfg.Acquire.TTL,
		lockservice.WithMessage(message),
		lockservice.WithAcquireTimeout(state.cfg.Acquire.Timeout),
		lockservice.WithRenewInterval(interval),
		lockservice.WithLogger(state.logger),
	)

	lock, err := keeper.Start(ctx)
	if err != nil {
		return err
	}
	if err := printLock(cmd, lock); err != nil {
		_ = keeper.Stop(context.Background())
		return err
	}

	select {
	case <-ctx.Done():
	case <-keeper.Done():
	}

	if lost := keeper.Err(); lost != nil {
		return fmt.Errorf("lost lock %q: %w", args[0], lost)
	}
	return keeper.Stop(context.Background())
}

package commands

import (
	"encoding/json"
	"fmt"

	lockerclient "github.com/avivl/locker/client/go/locker-client"
	"github.com/spf13/cobra"
)

func printLock(cmd *cobra.Command, lock *lockerclient.Lock) error {
	out, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

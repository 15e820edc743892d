package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  showConfig,
}

func init() {
	RootCmd.AddCommand(configCmd)
}

func showConfig(cmd *cobra.Command, _ []string) error {
	out, err := state.loader.Render()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

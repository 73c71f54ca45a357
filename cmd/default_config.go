package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/popgen-sim/infsites/sim"
)

// newConfigCmd prints the default configuration, or validates a file.
func newConfigCmd() *cobra.Command {
	var validatePath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the default simulation config as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if validatePath != "" {
				cfg, err := sim.LoadSimConfig(validatePath)
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", validatePath)
				return err
			}
			data, err := sim.DefaultSimConfig().YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&validatePath, "validate", "", "Validate this config file instead of printing defaults")
	return cmd
}

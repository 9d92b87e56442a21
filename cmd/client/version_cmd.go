package main

import (
	"fmt"

	"github.com/openmined/songbox/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var short, remote bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the SongBox client version, and with --remote the server's",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			client := version.Detailed()
			if short {
				client = version.Short()
			}
			if !remote {
				_, err := fmt.Fprintln(w, client)
				return err
			}

			cmd.SilenceUsage = true
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sdk, err := newSDK(cfg)
			if err != nil {
				return err
			}
			defer sdk.Close()

			banner, err := sdk.ServerVersion(cmd.Context())
			if err != nil {
				return fmt.Errorf("query %s: %w", cfg.ServerURL, err)
			}
			fmt.Fprintln(w, field("Client", client))
			fmt.Fprintln(w, field("Server", banner))
			fmt.Fprintln(w, field("URL", cfg.ServerURL))
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version and revision")
	cmd.Flags().BoolVar(&remote, "remote", false, "Also ask the configured server for its version")
	return cmd
}

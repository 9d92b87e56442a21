package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/songbox/internal/songsdk"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <sessionId>",
		Short: "Show the state of an upload session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			sdk, err := newSDK(cfg)
			if err != nil {
				return err
			}
			defer sdk.Close()

			session, err := sdk.Sessions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), session)
			return nil
		},
	}
}

func printSession(w io.Writer, s *songsdk.Session) {
	status := string(s.Status)
	switch s.Status {
	case songsdk.StatusComplete:
		status = green.Render(status)
	case songsdk.StatusFailed, songsdk.StatusExpired:
		status = red.Render(status)
	default:
		status = cyan.Render(status)
	}

	fmt.Fprintln(w, field("Session", s.SessionID))
	fmt.Fprintln(w, field("Name", s.Name))
	fmt.Fprintln(w, field("Status", status))
	fmt.Fprintln(w, field("Progress", fmt.Sprintf("%s / %s", humanize.Bytes(uint64(s.ReceivedBytes)), humanize.Bytes(uint64(s.TotalSize)))))
	fmt.Fprintln(w, field("Fingerprint", s.Fingerprint))
	fmt.Fprintln(w, field("Updated", humanize.Time(s.UpdatedAt)))
	if s.ExpiresAt != nil {
		fmt.Fprintln(w, field("Expires", s.ExpiresAt.Local().Format(time.RFC3339)))
	}
	if s.Error != "" {
		fmt.Fprintln(w, field("Error", red.Render(s.Error)))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/openmined/songbox/internal/songsdk"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an audio file, resuming an interrupted upload of the same file",
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

			uploader, err := songsdk.NewUploader(sdk, songsdk.UploaderConfig{
				ResumeDir:  cfg.ResumeDir,
				ChunkSize:  cfg.ChunkSize,
				MaxRetries: cfg.MaxRetries,
			})
			if err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("name")
			params := &songsdk.UploadParams{FilePath: args[0], Name: name}
			if name == "" {
				name = filepath.Base(args[0])
			}

			out := cmd.OutOrStdout()
			var result *songsdk.UploadResult
			if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
				showSongBoxHeader(out)
				result, err = runUploadTUI(cmd.Context(), out, uploader, params, name)
			} else {
				result, err = runUploadPlain(cmd.Context(), out, uploader, params, name)
			}
			if err != nil {
				if isInterrupted(err) {
					return errors.New(txtInterrupted)
				}
				return err
			}

			printUploadResult(out, result)
			return nil
		},
	}

	cmd.Flags().StringP("name", "n", "", "File name sent to the server, defaults to the local file name")
	return cmd
}

func runUploadPlain(ctx context.Context, out io.Writer, uploader *songsdk.Uploader, params *songsdk.UploadParams, name string) (*songsdk.UploadResult, error) {
	fmt.Fprintf(out, "uploading %s\n", name)
	params.Callback = func(uploaded, total int64) {
		fmt.Fprintf(out, "%s / %s\n", humanize.Bytes(uint64(uploaded)), humanize.Bytes(uint64(total)))
	}
	return uploader.Upload(ctx, params)
}

func printUploadResult(w io.Writer, result *songsdk.UploadResult) {
	fmt.Fprintln(w, green.Render("Upload complete"))
	fmt.Fprintln(w, field("Session", result.SessionID))
	fmt.Fprintln(w, field("Key", result.Key))
	fmt.Fprintln(w, field("Size", humanize.Bytes(uint64(result.Size))))
	fmt.Fprintln(w, field("Content-Type", result.ContentType))
	fmt.Fprintln(w, field("Fingerprint", result.Fingerprint))
	if result.Resumed {
		fmt.Fprintln(w, field("Resumed", fmt.Sprintf("yes, sent %s", humanize.Bytes(uint64(result.Sent)))))
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

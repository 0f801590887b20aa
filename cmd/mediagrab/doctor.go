package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/mediagrab/internal/adapter/extractor/ytdlp"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the extractor and encoder binaries are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := ytdlp.DependencyStatus(cfg.YtdlpBinary, cfg.FFmpegBinary)
			out := cmd.OutOrStdout()
			printDependency(cmd, "yt-dlp", cfg.YtdlpBinary, report.YTDLPFound, report.YTDLPPath)
			printDependency(cmd, "ffmpeg", cfg.FFmpegBinary, report.FFmpegFound, report.FFmpegPath)

			if err := report.CheckDependencies(); err != nil {
				return err
			}
			fmt.Fprintln(out, "all dependencies found")
			return nil
		},
	}
}

func printDependency(cmd *cobra.Command, name, binary string, found bool, path string) {
	if found {
		fmt.Fprintf(cmd.OutOrStdout(), "%-7s ok       %s\n", name, path)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-7s missing  %s\n", name, binary)
}

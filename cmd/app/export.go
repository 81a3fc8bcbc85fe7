package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"matview/internal/algorithms"
	"matview/internal/config"
	"matview/internal/export"
	"matview/internal/io"
)

type exportOptions struct {
	input      string
	output     string
	transforms []string
	fourcc     string
}

func newExportCommand(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Re-encode a video frame by frame through a chain of transforms",
		Example: `  matview export --in clip.mp4 --out heat.avi -t "channel:index=2" -t "colormap:map=jet"
  matview export --in clip.mp4 --out smooth.avi -t gaussian:kernel_size=7 --fourcc XVID`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if opts.fourcc != "" {
				cfg.Export.FourCC = opts.fourcc
			}

			chain, err := algorithms.ParseChain(opts.transforms)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runExport(ctx, logger, cfg, opts.input, opts.output, chain)
		},
	}

	cmd.Flags().StringVar(&opts.input, "in", "", "Input video")
	cmd.Flags().StringVar(&opts.output, "out", "", "Output video")
	cmd.Flags().StringArrayVarP(&opts.transforms, "transform", "t", nil, "Transform step name[:param=value,...], repeatable")
	cmd.Flags().StringVar(&opts.fourcc, "fourcc", "", "Output codec FourCC (overrides config)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// runExport re-encodes input into output. Progress lines are rate limited by
// the configured progress interval.
func runExport(ctx context.Context, logger logrus.FieldLogger, cfg config.Config, input, output string, chain *algorithms.Chain) error {
	source, err := io.OpenVideo(input, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := io.CreateVideo(output, cfg.Export.FourCC, source.FPS(), source.Size(), logger)
	if err != nil {
		return err
	}

	logger.WithField("transforms", chain.Keys()).Info("EXPORT: Transform chain ready")

	pipeline := export.NewPipeline(logger, export.WithProgressInterval(cfg.ProgressInterval()))
	result, err := pipeline.Run(ctx, export.Job{
		Source:    source,
		Sink:      sink,
		Transform: chain.Apply,
		OnProgress: func(p export.Progress) {
			logger.WithFields(logrus.Fields{
				"frame": p.FrameIndex + 1,
				"total": p.TotalFrames,
				"fps":   fmt.Sprintf("%.1f", p.FramesPerSecond),
				"eta":   p.ETAString(),
			}).Info("EXPORT: Progress")
		},
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"state":  result.State.String(),
		"frames": result.FramesWritten,
		"output": output,
	}).Info("EXPORT: Done")

	if result.State == export.StateAborted {
		return fmt.Errorf("export aborted after %d frames", result.FramesWritten)
	}
	return nil
}

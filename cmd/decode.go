package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/batadv/internal/capture"
	"firestige.xyz/batadv/internal/config"
	"firestige.xyz/batadv/internal/metrics"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <capture-file>",
	Short: "Decode a pcap or pcapng capture",
	Long: `Decode every batman-adv frame of a pcap or pcapng capture.

Frames are pre-filtered on the ethertype (directly or behind one 802.1Q
tag), decoded and written to stdout. Logs go to stderr.

Examples:
  batadv decode mesh.pcap                       # text trees, one worker
  batadv decode mesh.pcapng -f json -w 4        # JSON lines from 4 workers
  batadv decode mesh.pcap -q --summary          # originator table only
  batadv decode mesh.pcap --ethertype 0x88b5    # non-default ethertype`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		summary, _ := cmd.Flags().GetBool("summary")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runDecode(ctx, cfg, args[0], summary, cmd.OutOrStdout())
	},
}

func init() {
	decodeCmd.Flags().StringP("format", "f", "text", "console format: text, json or yaml")
	decodeCmd.Flags().IntP("workers", "w", 1, "decoder workers (more than one loses capture order)")
	decodeCmd.Flags().String("ethertype", "0x4305", "batman-adv ethertype")
	decodeCmd.Flags().BoolP("quiet", "q", false, "do not print decoded frames")
	decodeCmd.Flags().Bool("summary", false, "print the originator table and header counts at the end")
}

func runDecode(ctx context.Context, cfg *config.Config, path string, summary bool, out io.Writer) error {
	src, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	sinks, err := newSinkSet(cfg, out)
	if err != nil {
		return err
	}
	defer sinks.close()

	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer server.Stop(context.Background())
	}

	runner, err := capture.NewRunner(capture.RunnerConfig{
		EtherType:  cfg.Decoder.EtherType,
		Workers:    cfg.Decoder.Workers,
		BufferSize: cfg.Decoder.BufferSize,
		Decoder:    decoderOptions(cfg, sinks),
		Output:     sinks.output(),
		Logger:     slog.Default(),
	})
	if err != nil {
		return err
	}

	slog.Info("decoding capture", "path", path, "format", src.Format())
	if err := runner.Run(ctx, src); err != nil {
		return fmt.Errorf("decode %s failed: %w", path, err)
	}

	if err := sinks.close(); err != nil {
		slog.Error("failed to close sinks", "error", err)
	}
	if summary {
		st := runner.Stats()
		fmt.Fprintf(out, "\nFrames: %d received, %d skipped, %d decoded, %d malformed\n",
			st.Received, st.Skipped, st.Decoded, st.Malformed)
		sinks.report(out)
	}
	return nil
}

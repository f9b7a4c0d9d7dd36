package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/batadv/internal/capture"
	"firestige.xyz/batadv/internal/config"
	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
)

var hexCmd = &cobra.Command{
	Use:   "hex <hex-bytes>",
	Short: "Decode one packet given as hex",
	Long: `Decode a single batman-adv packet given as hex on the command line.

Separators (spaces, colons, tabs and newlines) are ignored. Without
--frame the bytes are the batman-adv payload; with --frame they are a
whole Ethernet frame and go through the ethertype filter first.

Examples:
  batadv hex "03 0f 02:11:22:33:44:55 00000001 000001f4"
  batadv hex --frame -f json ffffffffffff021122334455430503...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		frame, _ := cmd.Flags().GetBool("frame")
		return runHex(cmd.Context(), cfg, args[0], frame, cmd.OutOrStdout())
	},
}

func init() {
	hexCmd.Flags().StringP("format", "f", "text", "console format: text, json or yaml")
	hexCmd.Flags().String("ethertype", "0x4305", "batman-adv ethertype (with --frame)")
	hexCmd.Flags().Bool("frame", false, "input is a full Ethernet frame")
}

// parseHex decodes s after dropping separators.
func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "", "\r", "").Replace(s)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty hex input")
	}
	return data, nil
}

func runHex(ctx context.Context, cfg *config.Config, input string, frame bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := parseHex(input)
	if err != nil {
		return err
	}

	// A single packet always gets printed.
	cfg.Sinks.Console.Enabled = true
	sinks, err := newSinkSet(cfg, out)
	if err != nil {
		return err
	}
	defer sinks.close()

	if frame {
		runner, err := capture.NewRunner(capture.RunnerConfig{
			EtherType: cfg.Decoder.EtherType,
			Workers:   1,
			Decoder:   decoderOptions(cfg, sinks),
			Output:    sinks.output(),
			Logger:    slog.Default(),
		})
		if err != nil {
			return err
		}
		src := &singleFrame{frame: core.RawFrame{
			Index:      1,
			Data:       data,
			Timestamp:  time.Now(),
			CaptureLen: uint32(len(data)),
			OrigLen:    uint32(len(data)),
		}}
		if err := runner.Run(ctx, src); err != nil {
			return err
		}
		if st := runner.Stats(); st.Decoded == 0 {
			return fmt.Errorf("frame does not carry ethertype 0x%04x", cfg.Decoder.EtherType)
		}
		return sinks.close()
	}

	dec := decoder.New(decoderOptions(cfg, sinks))
	defer dec.Close()

	var addr core.Addressing
	ts := time.Now()
	tree := dec.DecodeAt(data, &addr, ts)
	if err := sinks.console.WriteFrame(ctx, &core.DecodedFrame{
		Index:      1,
		Timestamp:  ts,
		Addressing: addr,
		Tree:       tree,
	}); err != nil {
		return err
	}
	return sinks.close()
}

// singleFrame is a FrameSource holding one frame.
type singleFrame struct {
	frame core.RawFrame
	done  bool
}

func (s *singleFrame) Next() (core.RawFrame, error) {
	if s.done {
		return core.RawFrame{}, io.EOF
	}
	s.done = true
	return s.frame, nil
}

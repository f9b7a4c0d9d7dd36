package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"firestige.xyz/batadv/internal/capture"
	"firestige.xyz/batadv/internal/config"
	"firestige.xyz/batadv/internal/core/decoder"
	"firestige.xyz/batadv/internal/sink"
)

// sinkSet holds the consumers selected by configuration.
type sinkSet struct {
	console     *sink.Console
	kafka       *sink.Kafka
	originators *sink.Originators
	stats       *sink.Stats
	closed      bool
}

func newSinkSet(cfg *config.Config, out io.Writer) (*sinkSet, error) {
	s := &sinkSet{}
	sc := cfg.Sinks

	if sc.Console.Enabled {
		c, err := sink.NewConsole(out, sc.Console.Format)
		if err != nil {
			return nil, err
		}
		s.console = c
	}
	if sc.Kafka.Enabled {
		kc, err := sink.ParseKafkaConfig(sc.Kafka.Options)
		if err != nil {
			return nil, err
		}
		k, err := sink.NewKafka(kc, slog.Default())
		if err != nil {
			return nil, err
		}
		s.kafka = k
	}
	if sc.Originators.Enabled {
		s.originators = sink.NewOriginators(sc.Originators.TTL)
	}
	if sc.Stats.Enabled {
		s.stats = sink.NewStats()
	}
	return s, nil
}

func (s *sinkSet) taps() []decoder.Tap {
	var taps []decoder.Tap
	if s.kafka != nil {
		taps = append(taps, s.kafka)
	}
	if s.originators != nil {
		taps = append(taps, s.originators)
	}
	if s.stats != nil {
		taps = append(taps, s.stats)
	}
	return taps
}

// output returns the frame writer for the runner, nil when the console is off.
func (s *sinkSet) output() capture.FrameWriter {
	if s.console == nil {
		return nil
	}
	return s.console
}

// close flushes and releases every sink. Later calls do nothing.
func (s *sinkSet) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if s.kafka != nil {
		errs = append(errs, s.kafka.Close())
	}
	if s.console != nil {
		errs = append(errs, s.console.Close())
	}
	return errors.Join(errs...)
}

// report prints the originator table and header counts, if collected.
func (s *sinkSet) report(w io.Writer) {
	if s.originators != nil {
		list := s.originators.List()
		fmt.Fprintf(w, "\nOriginators (%d)\n", len(list))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ORIGINATOR\tPROTOCOL\tVERSION\tSEQNO\tMESSAGES\tLAST SEEN")
		for _, o := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
				o.Addr, o.Protocol, o.Version, o.Seqno, o.Messages, o.LastSeen.Format("15:04:05"))
		}
		tw.Flush()
	}
	if s.stats != nil {
		fmt.Fprintf(w, "\nHeaders (%d)\n", s.stats.Total())
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROTOCOL\tVERSION\tCOUNT")
		for _, c := range s.stats.Summary() {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Protocol, c.Version, c.Count)
		}
		tw.Flush()
	}
}

// decoderOptions builds the per-worker decoder template.
func decoderOptions(cfg *config.Config, s *sinkSet) decoder.Options {
	opts := decoder.Options{
		Taps:       s.taps(),
		Reassembly: cfg.Decoder.Reassembly.Options(),
		Logger:     slog.Default(),
	}
	if cfg.Decoder.Ethernet {
		opts.Ether = decoder.NewPacketEther()
	}
	return opts
}

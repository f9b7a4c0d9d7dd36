package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
	"firestige.xyz/batadv/internal/metrics"
)

// DefaultEtherType is the ethertype batman-adv registers for its frames.
const DefaultEtherType uint16 = 0x4305

// FrameWriter receives every decoded frame. Implementations must be safe
// for concurrent use when the runner has more than one worker.
type FrameWriter interface {
	WriteFrame(ctx context.Context, f *core.DecodedFrame) error
}

// FrameWriterFunc adapts a function to FrameWriter.
type FrameWriterFunc func(ctx context.Context, f *core.DecodedFrame) error

func (fn FrameWriterFunc) WriteFrame(ctx context.Context, f *core.DecodedFrame) error {
	return fn(ctx, f)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	EtherType  uint16          // Selector matched by the filter (0 = DefaultEtherType)
	Workers    int             // Decoder workers (0 = 1)
	BufferSize int             // Per-worker frame channel capacity (0 = 256)
	Decoder    decoder.Options // Template for every worker's decoder
	Output     FrameWriter     // Optional
	Logger     *slog.Logger
}

// Stats is a snapshot of runner counters.
type Stats struct {
	Received    uint64 `json:"received" yaml:"received"`
	Skipped     uint64 `json:"skipped" yaml:"skipped"`
	Decoded     uint64 `json:"decoded" yaml:"decoded"`
	Malformed   uint64 `json:"malformed" yaml:"malformed"`
	WriteErrors uint64 `json:"write_errors" yaml:"write_errors"`
}

// Runner reads frames from a source, filters them on the ethertype and
// decodes them on a fixed set of workers. Frames from one link-layer
// source always land on the same worker, so per-source fragment state
// stays on one decoder. With a single worker output follows capture order.
type Runner struct {
	cfg       RunnerConfig
	filter    *EtherTypeFilter
	partition *Partitioner
	logger    *slog.Logger

	received    atomic.Uint64
	skipped     atomic.Uint64
	decoded     atomic.Uint64
	malformed   atomic.Uint64
	writeErrors atomic.Uint64
}

// NewRunner validates cfg and binds the ethertype to the batadv layer.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.EtherType == 0 {
		cfg.EtherType = DefaultEtherType
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	filter, err := NewEtherTypeFilter(cfg.EtherType)
	if err != nil {
		return nil, err
	}
	if BindEtherType(cfg.EtherType) {
		cfg.Logger.Debug("bound ethertype to batadv layer",
			"ethertype", "0x"+strconv.FormatUint(uint64(cfg.EtherType), 16))
	}

	return &Runner{
		cfg:       cfg,
		filter:    filter,
		partition: NewPartitioner(cfg.Workers),
		logger:    cfg.Logger,
	}, nil
}

// Filter returns the ethertype filter in use.
func (r *Runner) Filter() *EtherTypeFilter { return r.filter }

// Run drains src until it reports io.EOF or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, src FrameSource) error {
	r.logger.Info("runner starting",
		"workers", r.partition.Workers(),
		"ethertype", "0x"+strconv.FormatUint(uint64(r.cfg.EtherType), 16))
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)

	workers := make([]*worker, r.partition.Workers())
	for i := range workers {
		workers[i] = r.newWorker(i)
	}

	g.Go(func() error {
		defer func() {
			for _, w := range workers {
				close(w.in)
			}
		}()
		return r.feed(gctx, src, workers)
	})
	for _, w := range workers {
		g.Go(func() error {
			defer w.dec.Close()
			w.run(gctx)
			return nil
		})
	}

	err := g.Wait()
	st := r.Stats()
	r.logger.Info("runner stopped",
		"received", st.Received,
		"skipped", st.Skipped,
		"decoded", st.Decoded,
		"malformed", st.Malformed,
		"elapsed", time.Since(started))
	return err
}

// Stats returns the current counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Received:    r.received.Load(),
		Skipped:     r.skipped.Load(),
		Decoded:     r.decoded.Load(),
		Malformed:   r.malformed.Load(),
		WriteErrors: r.writeErrors.Load(),
	}
}

func (r *Runner) feed(ctx context.Context, src FrameSource, workers []*worker) error {
	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		r.received.Add(1)

		if !r.filter.Match(frame.Data) {
			r.skipped.Add(1)
			metrics.FilterSkippedTotal.Inc()
			continue
		}

		var dlSrc core.HardwareAddr
		copy(dlSrc[:], frame.Data[6:12])
		w := workers[r.partition.Worker(dlSrc)]

		select {
		case w.in <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// worker owns one decoder and one layer parser.
type worker struct {
	id      int
	r       *Runner
	in      chan core.RawFrame
	dec     *decoder.Decoder
	parser  *gopacket.DecodingLayerParser
	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	batadv  Batadv
	decoded []gopacket.LayerType
	latency prometheus.Observer
}

func (r *Runner) newWorker(id int) *worker {
	label := strconv.Itoa(id)
	opts := r.cfg.Decoder
	opts.Logger = r.logger.With("worker", id)

	w := &worker{
		id:      id,
		r:       r,
		in:      make(chan core.RawFrame, r.cfg.BufferSize),
		dec:     decoder.New(opts),
		decoded: make([]gopacket.LayerType, 0, 4),
		latency: metrics.DecodeLatencySeconds.WithLabelValues(label),
	}
	w.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &w.eth, &w.dot1q, &w.batadv)
	w.parser.IgnoreUnsupported = true
	return w
}

func (w *worker) run(ctx context.Context) {
	for raw := range w.in {
		if ctx.Err() != nil {
			// Drain so the feeder never blocks on a cancelled run.
			continue
		}
		w.process(ctx, raw)
	}
}

func (w *worker) process(ctx context.Context, raw core.RawFrame) {
	r := w.r
	if err := w.parser.DecodeLayers(raw.Data, &w.decoded); err != nil {
		var unsupported gopacket.UnsupportedLayerType
		if !errors.As(err, &unsupported) {
			r.logger.Debug("frame layers failed to decode", "index", raw.Index, "error", err)
		}
	}
	if !w.has(LayerTypeBatadv) {
		r.skipped.Add(1)
		metrics.FilterSkippedTotal.Inc()
		return
	}

	var src, dst core.HardwareAddr
	copy(src[:], w.eth.SrcMAC)
	copy(dst[:], w.eth.DstMAC)
	addr := core.Addressing{}
	addr.SetSource(src)
	addr.SetDestination(dst)

	start := time.Now()
	tree := w.dec.DecodeAt(w.batadv.Contents, &addr, raw.Timestamp)
	w.latency.Observe(time.Since(start).Seconds())

	r.decoded.Add(1)
	metrics.DecodedPacketsTotal.WithLabelValues(tree.Protocol).Inc()
	for _, a := range tree.Annotations() {
		metrics.AnnotationsTotal.WithLabelValues(a.Code).Inc()
	}
	if tree.HasAnnotation(core.CodeMalformed) {
		r.malformed.Add(1)
	}

	if r.cfg.Output == nil {
		return
	}
	frame := &core.DecodedFrame{
		Index:      raw.Index,
		Timestamp:  raw.Timestamp,
		Worker:     w.id,
		Addressing: addr,
		Tree:       tree,
	}
	if err := r.cfg.Output.WriteFrame(ctx, frame); err != nil {
		r.writeErrors.Add(1)
		r.logger.Error("failed to write decoded frame", "index", raw.Index, "error", err)
	}
}

func (w *worker) has(t gopacket.LayerType) bool {
	for _, d := range w.decoded {
		if d == t {
			return true
		}
	}
	return false
}

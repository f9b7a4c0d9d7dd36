// Package sink implements consumers of decoded frames and tapped headers.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"firestige.xyz/batadv/internal/core"
)

// Console output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Console writes decoded frames to a stream, one line (text, json) or one
// document (yaml) per frame. It is safe for concurrent use.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	format  string
	yaml    *yaml.Encoder
	closed  bool
	written atomic.Uint64
}

// frameRecord is the serialized shape of a decoded frame.
type frameRecord struct {
	Index     uint64            `json:"index" yaml:"index"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Worker    int               `json:"worker" yaml:"worker"`
	DLSrc     core.HardwareAddr `json:"dl_src" yaml:"dl_src"`
	DLDst     core.HardwareAddr `json:"dl_dst" yaml:"dl_dst"`
	Src       core.HardwareAddr `json:"src" yaml:"src"`
	Dst       core.HardwareAddr `json:"dst" yaml:"dst"`
	Protocol  string            `json:"protocol" yaml:"protocol"`
	Info      string            `json:"info,omitempty" yaml:"info,omitempty"`
	Nodes     []*core.Node      `json:"nodes" yaml:"nodes"`
}

// NewConsole creates a console sink. An empty format selects text.
func NewConsole(out io.Writer, format string) (*Console, error) {
	if format == "" {
		format = FormatText
	}
	c := &Console{out: out, format: format}
	switch format {
	case FormatText, FormatJSON:
	case FormatYAML:
		c.yaml = yaml.NewEncoder(out)
		c.yaml.SetIndent(2)
	default:
		return nil, fmt.Errorf("%w: invalid console format %q, must be text, json or yaml", core.ErrConfigInvalid, format)
	}
	return c, nil
}

// WriteFrame renders one frame.
func (c *Console) WriteFrame(_ context.Context, f *core.DecodedFrame) error {
	if f == nil || f.Tree == nil {
		return fmt.Errorf("nil frame")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("console sink closed")
	}

	var err error
	switch c.format {
	case FormatJSON:
		err = c.writeJSON(f)
	case FormatYAML:
		err = c.yaml.Encode(record(f))
	default:
		err = c.writeText(f)
	}
	if err != nil {
		return fmt.Errorf("console write failed: %w", err)
	}
	c.written.Add(1)
	return nil
}

// Written returns the number of frames rendered so far.
func (c *Console) Written() uint64 { return c.written.Load() }

// Close finishes the yaml stream, if any. It is idempotent.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	slog.Debug("console sink closed", "format", c.format, "total_written", c.written.Load())
	if c.yaml != nil {
		return c.yaml.Close()
	}
	return nil
}

func record(f *core.DecodedFrame) frameRecord {
	return frameRecord{
		Index:     f.Index,
		Timestamp: f.Timestamp,
		Worker:    f.Worker,
		DLSrc:     f.Addressing.DLSrc,
		DLDst:     f.Addressing.DLDst,
		Src:       f.Addressing.Src,
		Dst:       f.Addressing.Dst,
		Protocol:  f.Tree.Protocol,
		Info:      f.Tree.Info,
		Nodes:     f.Tree.Nodes,
	}
}

func (c *Console) writeJSON(f *core.DecodedFrame) error {
	data, err := json.Marshal(record(f))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = c.out.Write(data)
	return err
}

// writeText prints a summary line followed by the indented tree.
func (c *Console) writeText(f *core.DecodedFrame) error {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%s] %s -> %s %s",
		f.Index, f.Timestamp.UTC().Format("15:04:05.000000"),
		f.Addressing.Src, f.Addressing.Dst, f.Tree.Protocol)
	if f.Tree.Info != "" {
		fmt.Fprintf(&b, " %s", f.Tree.Info)
	}
	b.WriteByte('\n')
	for _, n := range f.Tree.Nodes {
		writeNode(&b, n, 1)
	}
	_, err := io.WriteString(c.out, b.String())
	return err
}

func writeNode(b *strings.Builder, n *core.Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	label := n.Text
	if label == "" {
		label = fmt.Sprintf("%s: %v", n.Name, n.Value)
	}
	fmt.Fprintf(b, "%s [%d+%d]", label, n.Offset, n.Length)
	if n.Source != "" {
		fmt.Fprintf(b, " (%s)", n.Source)
	}
	b.WriteByte('\n')
	for _, a := range n.Annotations {
		fmt.Fprintf(b, "%s! %s %s: %s\n", strings.Repeat("  ", depth+1), a.Severity, a.Code, a.Message)
	}
	for _, child := range n.Children {
		writeNode(b, child, depth+1)
	}
}

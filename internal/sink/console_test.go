package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/batadv/internal/core"
)

var (
	origA = core.HardwareAddr{0x02, 0, 0, 0, 0, 0x0a}
	origB = core.HardwareAddr{0x02, 0, 0, 0, 0, 0x0b}
)

func testFrame() *core.DecodedFrame {
	elp := &core.Node{Name: "batadv.elp", Length: 16, Text: "B.A.T.M.A.N. ELP, Orig: " + origA.String()}
	elp.Add(&core.Node{Name: "batadv.elp.seqno", Offset: 8, Length: 4, Value: uint32(7)})
	data := &core.Node{Name: core.NodeData, Offset: 16, Length: 1, Value: []byte{0xff}}
	data.Annotate(core.SeverityError, core.CodeMalformed, "trailing byte")

	return &core.DecodedFrame{
		Index:      3,
		Timestamp:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Addressing: core.Addressing{DLSrc: origA, Src: origA, DLDst: origB, Dst: origB},
		Tree: &core.Tree{
			Protocol: core.ProtoELP,
			Info:     "Seq=7",
			Nodes:    []*core.Node{elp, data},
		},
	}
}

func TestNewConsole_Formats(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"", false},
		{FormatText, false},
		{FormatJSON, false},
		{FormatYAML, false},
		{"xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := NewConsole(&bytes.Buffer{}, tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConsole_JSON(t *testing.T) {
	var buf bytes.Buffer
	c, err := NewConsole(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, c.WriteFrame(context.Background(), testFrame()))
	require.NoError(t, c.WriteFrame(context.Background(), testFrame()))
	assert.Equal(t, uint64(2), c.Written())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &got))
	assert.Equal(t, core.ProtoELP, got["protocol"])
	assert.Equal(t, "Seq=7", got["info"])
	assert.Equal(t, float64(3), got["index"])
	assert.Equal(t, origA.String(), got["src"])
	assert.Equal(t, origB.String(), got["dl_dst"])

	nodes := got["nodes"].([]any)
	require.Len(t, nodes, 2)
	data := nodes[1].(map[string]any)
	anns := data["annotations"].([]any)
	assert.Equal(t, "error", anns[0].(map[string]any)["severity"])
	assert.Equal(t, core.CodeMalformed, anns[0].(map[string]any)["code"])
}

func TestConsole_YAML(t *testing.T) {
	var buf bytes.Buffer
	c, err := NewConsole(&buf, FormatYAML)
	require.NoError(t, err)

	require.NoError(t, c.WriteFrame(context.Background(), testFrame()))
	require.NoError(t, c.Close())

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, core.ProtoELP, got["protocol"])
	assert.Equal(t, 3, got["index"])
	assert.Equal(t, origA.String(), got["dl_src"])
}

func TestConsole_Text(t *testing.T) {
	var buf bytes.Buffer
	c, err := NewConsole(&buf, FormatText)
	require.NoError(t, err)

	require.NoError(t, c.WriteFrame(context.Background(), testFrame()))
	out := buf.String()

	assert.Contains(t, out, "#3 [12:00:00.000000] "+origA.String()+" -> "+origB.String()+" BATADV_ELP Seq=7")
	assert.Contains(t, out, "  B.A.T.M.A.N. ELP, Orig: "+origA.String()+" [0+16]")
	assert.Contains(t, out, "    batadv.elp.seqno: 7 [8+4]")
	assert.Contains(t, out, "! error batadv.malformed: trailing byte")
}

func TestConsole_NilFrame(t *testing.T) {
	c, err := NewConsole(&bytes.Buffer{}, FormatJSON)
	require.NoError(t, err)
	assert.Error(t, c.WriteFrame(context.Background(), nil))
	assert.Error(t, c.WriteFrame(context.Background(), &core.DecodedFrame{}))
	assert.Zero(t, c.Written())
}

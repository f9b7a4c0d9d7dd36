package decoder

import "firestige.xyz/batadv/internal/core"

// Header is the decoded fixed part of one packet instance. Values are
// created per instance and never modified after they are handed to taps.
type Header interface {
	// Protocol returns the protocol label of the family.
	Protocol() string
	PacketType() uint8
	PacketVersion() uint8
}

// Common holds the type and version bytes every layout starts with.
type Common struct {
	Type    uint8 `json:"type"`
	Version uint8 `json:"version"`
}

func (c Common) PacketType() uint8    { return c.Type }
func (c Common) PacketVersion() uint8 { return c.Version }

// BatmanHeader is a routing announcement of versions 5 to 14. Fields that a
// layout does not carry stay zero.
type BatmanHeader struct {
	Common
	Flags        uint8             `json:"flags"`
	TTL          uint8             `json:"ttl"`
	GWFlags      uint8             `json:"gw_flags"`
	HasGW        bool              `json:"has_gw"`
	TQ           uint8             `json:"tq"`
	Seqno        uint32            `json:"seqno"`
	Orig         core.HardwareAddr `json:"orig"`
	PrevSender   core.HardwareAddr `json:"prev_sender"`
	NumTT        uint8             `json:"num_tt"`
	TTVN         uint8             `json:"ttvn,omitempty"`
	TTCRC        uint16            `json:"tt_crc,omitempty"`
	Downlink     uint32            `json:"downlink_kbit,omitempty"`
	Uplink       uint32            `json:"uplink_kbit,omitempty"`
	TTNumChanges uint8             `json:"tt_num_changes,omitempty"`
}

func (BatmanHeader) Protocol() string { return core.ProtoBatman }

// IVOGMHeader is a v15 B.A.T.M.A.N. IV originator message.
type IVOGMHeader struct {
	Common
	TTL        uint8             `json:"ttl"`
	Flags      uint8             `json:"flags"`
	Seqno      uint32            `json:"seqno"`
	Orig       core.HardwareAddr `json:"orig"`
	PrevSender core.HardwareAddr `json:"prev_sender"`
	Reserved   uint8             `json:"reserved"`
	TQ         uint8             `json:"tq"`
	TVLVLen    uint16            `json:"tvlv_len"`
}

func (IVOGMHeader) Protocol() string { return core.ProtoIVOGM }

// ELPHeader is a v15 echo location probe.
type ELPHeader struct {
	Common
	Orig     core.HardwareAddr `json:"orig"`
	Seqno    uint32            `json:"seqno"`
	Interval uint32            `json:"interval_ms"`
}

func (ELPHeader) Protocol() string { return core.ProtoELP }

// OGM2Header is a v15 B.A.T.M.A.N. V originator message.
type OGM2Header struct {
	Common
	TTL        uint8             `json:"ttl"`
	Flags      uint8             `json:"flags"`
	Seqno      uint32            `json:"seqno"`
	Orig       core.HardwareAddr `json:"orig"`
	TVLVLen    uint16            `json:"tvlv_len"`
	Throughput uint32            `json:"throughput"` // 100 kbit/s units
}

func (OGM2Header) Protocol() string { return core.ProtoOGM2 }

// BcastHeader is a broadcast packet of versions 6 to 15.
type BcastHeader struct {
	Common
	Orig     core.HardwareAddr `json:"orig"`
	TTL      uint8             `json:"ttl"`
	Reserved uint8             `json:"reserved"`
	Seqno    uint32            `json:"seqno"`
}

func (BcastHeader) Protocol() string { return core.ProtoBcast }

// ICMPHeader covers the echo and diagnostic layouts, including the v15
// throughput meter variant.
type ICMPHeader struct {
	Common
	MsgType   uint8             `json:"msg_type"`
	Dst       core.HardwareAddr `json:"dst"`
	Orig      core.HardwareAddr `json:"orig"`
	TTL       uint8             `json:"ttl"`
	UID       uint8             `json:"uid"`
	Seqno     uint32            `json:"seqno"`
	RRPtr     uint8             `json:"rr_ptr,omitempty"`
	TPSubtype uint8             `json:"tp_subtype,omitempty"`
	Session   uint16            `json:"session,omitempty"`
	Timestamp uint32            `json:"timestamp,omitempty"`
}

func (ICMPHeader) Protocol() string { return core.ProtoICMP }

// IsThroughputMeter reports whether the header uses the v15 TP layout.
func (h ICMPHeader) IsThroughputMeter() bool {
	return h.Version >= versionEpoch15 && h.MsgType == icmpTP
}

// UnicastHeader is a plain unicast packet.
type UnicastHeader struct {
	Common
	Dest core.HardwareAddr `json:"dest"`
	TTL  uint8             `json:"ttl"`
	TTVN uint8             `json:"ttvn,omitempty"`
}

func (UnicastHeader) Protocol() string { return core.ProtoUnicast }

// Unicast4AddrHeader is a unicast packet carrying both endpoints.
type Unicast4AddrHeader struct {
	Common
	TTL      uint8             `json:"ttl"`
	TTVN     uint8             `json:"ttvn"`
	Dest     core.HardwareAddr `json:"dest"`
	Src      core.HardwareAddr `json:"src"`
	Subtype  uint8             `json:"subtype"`
	Reserved uint8             `json:"reserved"`
}

func (Unicast4AddrHeader) Protocol() string { return core.ProtoUnicast4Addr }

// UnicastTVLVHeader carries a TVLV chain between two nodes.
type UnicastTVLVHeader struct {
	Common
	TTL      uint8             `json:"ttl"`
	Reserved uint8             `json:"reserved"`
	Dest     core.HardwareAddr `json:"dest"`
	Src      core.HardwareAddr `json:"src"`
	TVLVLen  uint16            `json:"tvlv_len"`
	Align    uint16            `json:"align"`
}

func (UnicastTVLVHeader) Protocol() string { return core.ProtoUnicastTVLV }

// UnicastFragHeader is a fragment carrier of versions 12 to 15.
type UnicastFragHeader struct {
	Common
	TTL       uint8             `json:"ttl"`
	TTVN      uint8             `json:"ttvn,omitempty"`
	Dest      core.HardwareAddr `json:"dest"`
	Flags     uint8             `json:"flags,omitempty"`
	Orig      core.HardwareAddr `json:"orig"`
	Seqno     uint16            `json:"seqno"`
	No        uint8             `json:"no,omitempty"` // v15: fragment number << 4 | priority
	TotalSize uint16            `json:"total_size,omitempty"`
}

func (UnicastFragHeader) Protocol() string { return core.ProtoUnicastFrag }

// FragmentNumber returns the v15 fragment number nibble.
func (h UnicastFragHeader) FragmentNumber() uint8 { return h.No >> 4 }

// VisHeader is a visualization packet of versions 6 to 14.
type VisHeader struct {
	Common
	VisType    uint8             `json:"vis_type"`
	Seqno      uint32            `json:"seqno"`
	Entries    uint8             `json:"entries"`
	TTL        uint8             `json:"ttl"`
	VisOrig    core.HardwareAddr `json:"vis_orig"`
	TargetOrig core.HardwareAddr `json:"target_orig"`
	SenderOrig core.HardwareAddr `json:"sender_orig"`
}

func (VisHeader) Protocol() string { return core.ProtoVis }

// TTQueryHeader is a v14 translation table request or response.
type TTQueryHeader struct {
	Common
	TTL    uint8             `json:"ttl"`
	Flags  uint8             `json:"flags"`
	Dst    core.HardwareAddr `json:"dst"`
	Src    core.HardwareAddr `json:"src"`
	TTVN   uint8             `json:"ttvn"`
	TTData uint16            `json:"tt_data"`
}

func (TTQueryHeader) Protocol() string { return core.ProtoTTQuery }

// QueryType returns the request/response bits of the flags byte.
func (h TTQueryHeader) QueryType() uint8 { return h.Flags & ttQueryTypeMask }

// RoamAdvHeader is a v14 roaming advertisement.
type RoamAdvHeader struct {
	Common
	TTL      uint8             `json:"ttl"`
	Reserved uint8             `json:"reserved"`
	Dst      core.HardwareAddr `json:"dst"`
	Src      core.HardwareAddr `json:"src"`
	Client   core.HardwareAddr `json:"client"`
}

func (RoamAdvHeader) Protocol() string { return core.ProtoRoamAdv }

// CodedHeader is a v15 network coded packet combining two unicasts.
type CodedHeader struct {
	Common
	FirstTTL       uint8             `json:"first_ttl"`
	FirstTTVN      uint8             `json:"first_ttvn"`
	FirstSource    core.HardwareAddr `json:"first_source"`
	FirstOrigDest  core.HardwareAddr `json:"first_orig_dest"`
	FirstCRC       uint32            `json:"first_crc"`
	SecondTTL      uint8             `json:"second_ttl"`
	SecondTTVN     uint8             `json:"second_ttvn"`
	SecondDest     core.HardwareAddr `json:"second_dest"`
	SecondSource   core.HardwareAddr `json:"second_source"`
	SecondOrigDest core.HardwareAddr `json:"second_orig_dest"`
	SecondCRC      uint32            `json:"second_crc"`
	CodedLen       uint16            `json:"coded_len"`
}

func (CodedHeader) Protocol() string { return core.ProtoCoded }

// Package core defines core types.
package core

// Protocol labels selected by the dispatcher, one per packet family.
const (
	ProtoBatman       = "BATADV_BATMAN"
	ProtoIVOGM        = "BATADV_IV_OGM"
	ProtoOGM2         = "BATADV_OGM2"
	ProtoELP          = "BATADV_ELP"
	ProtoBcast        = "BATADV_BCAST"
	ProtoICMP         = "BATADV_ICMP"
	ProtoUnicast      = "BATADV_UNICAST"
	ProtoUnicast4Addr = "BATADV_UNICAST_4ADDR"
	ProtoUnicastFrag  = "BATADV_UNICAST_FRAG"
	ProtoUnicastTVLV  = "BATADV_UNICAST_TVLV"
	ProtoVis          = "BATADV_VIS"
	ProtoTTQuery      = "BATADV_TT_QUERY"
	ProtoRoamAdv      = "BATADV_ROAM_ADV"
	ProtoCoded        = "BATADV_CODED"
	ProtoUnknown      = "BATADV_???"
)

// Annotation codes following the {protocol}.{field} convention.
const (
	CodeMalformed          = "batadv.malformed"
	CodeTVLVUnknownVersion = "batadv.tvlv.unknown_version"
	CodeVLANCRCGood        = "batadv.tvlv.tt.vlan.crc.good"
	CodeVLANCRCBad         = "batadv.tvlv.tt.vlan.crc.bad"
	CodeVLANCRCUnverified  = "batadv.tvlv.tt.vlan.crc.unverified"
	CodeVLANEmpty          = "batadv.tvlv.tt.vlan.empty"
	CodeFragUnsupported    = "batadv.frag.unsupported_index"
	CodeFragRejected       = "batadv.frag.rejected"
)

// Node names shared across families.
const (
	NodeData        = "data"
	NodeReassembled = "batadv.reassembled"
)

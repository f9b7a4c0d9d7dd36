package decoder

import "fmt"

// versionEpoch15 splits the two protocol epochs: versions below it use the
// legacy type codes.
const versionEpoch15 = 15

// Packet type codes, epoch v5.
const (
	typeV5Batman       = 0x01
	typeV5ICMP         = 0x02
	typeV5Unicast      = 0x03
	typeV5Bcast        = 0x04
	typeV5Vis          = 0x05
	typeV5UnicastFrag  = 0x06
	typeV5TTQuery      = 0x07
	typeV5RoamAdv      = 0x08
	typeV5Unicast4Addr = 0x09
)

// Packet type codes, epoch v15.
const (
	typeV15IVOGM        = 0x00
	typeV15Bcast        = 0x01
	typeV15Coded        = 0x02
	typeV15ELP          = 0x03
	typeV15OGM2         = 0x04
	typeV15Unicast      = 0x40
	typeV15UnicastFrag  = 0x41
	typeV15Unicast4Addr = 0x42
	typeV15ICMP         = 0x43
	typeV15UnicastTVLV  = 0x44
)

// Fixed header sizes.
const (
	batmanV5Size  = 22
	batmanV7Size  = 20
	batmanV9Size  = 22
	batmanV10Size = 24
	batmanV11Size = 22
	batmanV14Size = 26

	ivOGMV15Size = 24
	elpV15Size   = 16
	ogm2V15Size  = 20

	bcastV6Size  = 10
	bcastV10Size = 13
	bcastV14Size = 14

	icmpV6Size    = 19
	icmpV7Size    = 19
	icmpV14Size   = 20
	icmpV15Size   = 20
	icmpTPV15Size = 28

	unicastV6Size      = 9
	unicastV14Size     = 10
	unicast4AddrSize   = 18
	unicastTVLVV15Size = 20

	fragV12Size = 18
	fragV14Size = 20
	fragV15Size = 20

	visV6Size  = 24
	visV10Size = 27
	visV14Size = 28

	ttQueryV14Size = 19
	roamAdvV14Size = 22
	codedV15Size   = 46

	tvlvHeaderSize = 4
	ttEntrySize    = 6
	ttChangeSize   = 7
	ttVLANSize     = 8
	ttTVLVChange   = 12
	rrLen          = 16
	rrSize         = rrLen * 6
)

// ICMP message types.
const (
	icmpEchoReply   = 0
	icmpDestUnreach = 3
	icmpEchoRequest = 8
	icmpTTLExceeded = 11
	icmpTP          = 15
)

// Flag and mask values.
const (
	fragHeadFlag      = 0x01
	tvlvTTFullTable   = 0x10
	tvlvTTResponse    = 0x04
	ttQueryTypeMask   = 0x03
	ttQueryRequest    = 0x00
	ttQueryResponse   = 0x01
	ttQueryFullTable  = 0x04
	tvlvTTVerifyFlags = tvlvTTResponse | tvlvTTFullTable
	vidMask           = 0x7fff
	vidTagged         = 0x8000
)

// TVLV container types.
const (
	tvlvGW    = 0x01
	tvlvDAT   = 0x02
	tvlvNC    = 0x03
	tvlvTT    = 0x04
	tvlvRoam  = 0x05
	tvlvMCast = 0x06
)

// valueTable renders enumerated bytes.
type valueTable map[uint8]string

func (t valueTable) name(v uint8) string {
	if s, ok := t[v]; ok {
		return s
	}
	return fmt.Sprintf("Unknown (0x%02x)", v)
}

var (
	packetTypesV5 = valueTable{
		typeV5Batman:       "BATADV_BATMAN",
		typeV5ICMP:         "BATADV_ICMP",
		typeV5Unicast:      "BATADV_UNICAST",
		typeV5Bcast:        "BATADV_BCAST",
		typeV5Vis:          "BATADV_VIS",
		typeV5UnicastFrag:  "BATADV_UNICAST_FRAG",
		typeV5TTQuery:      "BATADV_TT_QUERY",
		typeV5RoamAdv:      "BATADV_ROAM_ADV",
		typeV5Unicast4Addr: "BATADV_UNICAST_4ADDR",
	}

	packetTypesV15 = valueTable{
		typeV15IVOGM:        "BATADV_IV_OGM",
		typeV15Bcast:        "BATADV_BCAST",
		typeV15Coded:        "BATADV_CODED",
		typeV15ELP:          "BATADV_ELP",
		typeV15OGM2:         "BATADV_OGM2",
		typeV15Unicast:      "BATADV_UNICAST",
		typeV15UnicastFrag:  "BATADV_UNICAST_FRAG",
		typeV15Unicast4Addr: "BATADV_UNICAST_4ADDR",
		typeV15ICMP:         "BATADV_ICMP",
		typeV15UnicastTVLV:  "BATADV_UNICAST_TVLV",
	}

	icmpMsgTypes = valueTable{
		icmpEchoReply:   "ECHO_REPLY",
		icmpDestUnreach: "DESTINATION UNREACHABLE",
		icmpEchoRequest: "ECHO_REQUEST",
		icmpTTLExceeded: "TTL exceeded",
		icmpTP:          "Throughput Meter",
	}

	tpSubtypes = valueTable{
		0: "Message",
		1: "Acknowledgement",
	}

	visTypes = valueTable{
		0: "SERVER_SYNC",
		1: "CLIENT_UPDATE",
	}

	unicast4AddrSubtypes = valueTable{
		1: "Data",
		2: "DHT Get",
		3: "DHT Put",
		4: "DHT Cache Reply",
	}

	tvlvTypes = valueTable{
		tvlvGW:    "Gateway information",
		tvlvDAT:   "Distributed ARP Table",
		tvlvNC:    "Network Coding",
		tvlvTT:    "Translation Table",
		tvlvRoam:  "Roaming",
		tvlvMCast: "Multicast",
	}

	tvlvTTTypes = valueTable{
		0x01: "OGM Diff",
		0x02: "Request",
		0x04: "Response",
	}

	ttQueryTypes = valueTable{
		ttQueryRequest:  "Request",
		ttQueryResponse: "Response",
	}
)

// flagBit names one bit of a flags byte.
type flagBit struct {
	name string
	mask uint8
}

var (
	batmanFlagsV5 = []flagBit{
		{"directlink", 0x40},
		{"vis_server", 0x20},
	}
	batmanFlagsV9 = []flagBit{
		{"directlink", 0x40},
		{"vis_server", 0x20},
		{"primaries_first_hop", 0x10},
	}
	batmanFlagsV14 = []flagBit{
		{"directlink", 0x40},
		{"vis_server", 0x20},
		{"primaries_first_hop", 0x10},
		{"not_best_next_hop", 0x08},
	}
	ivOGMFlags = []flagBit{
		{"not_best_next_hop", 0x01},
		{"primaries_first_hop", 0x02},
		{"directlink", 0x04},
	}
	fragFlags = []flagBit{
		{"head", fragHeadFlag},
		{"largetail", 0x02},
	}
	ttEntryFlags = []flagBit{
		{"del", 0x01},
		{"roam", 0x02},
	}
	ttQueryFlags = []flagBit{
		{"full_table", ttQueryFullTable},
	}
	tvlvTTFlags = []flagBit{
		{"full_table", tvlvTTFullTable},
	}
	tvlvTTChangeFlags = []flagBit{
		{"del", 0x01},
		{"roam", 0x02},
		{"wifi", 0x10},
		{"isolate", 0x20},
	}
	mcastFlags = []flagBit{
		{"unsnoopables", 0x01},
		{"ipv4", 0x02},
		{"ipv6", 0x04},
		{"no_rtr4", 0x08},
		{"no_rtr6", 0x10},
	}
)

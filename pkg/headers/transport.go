// Package headers contains various RTSP headers.
package headers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/camrtsp/pkg/base"
)

// TransportProtocol is a transport protocol.
type TransportProtocol int

// transport protocols.
const (
	TransportProtocolUnknown TransportProtocol = iota
	TransportProtocolRTP
)

// TransportLowerProtocol is the lower protocol of a transport.
type TransportLowerProtocol int

// lower protocols.
const (
	TransportLowerProtocolUnknown TransportLowerProtocol = iota
	TransportLowerProtocolUDP
	TransportLowerProtocolTCP
)

// String implements fmt.Stringer.
func (p TransportLowerProtocol) String() string {
	switch p {
	case TransportLowerProtocolUDP:
		return "UDP"

	case TransportLowerProtocolTCP:
		return "TCP"
	}
	return "unknown"
}

// TransportCast is the cast mode of a transport.
type TransportCast int

// cast modes.
const (
	TransportCastUnicast TransportCast = iota
	TransportCastMulticast
)

// String implements fmt.Stringer.
func (c TransportCast) String() string {
	if c == TransportCastMulticast {
		return "multicast"
	}
	return "unicast"
}

// Transport is a Transport header.
// Fields that are not provided, or that can't be parsed, are left to zero.
type Transport struct {
	// protocol of the stream
	Protocol TransportProtocol

	// lower protocol of the stream
	LowerProtocol TransportLowerProtocol

	// cast mode
	Cast TransportCast

	// multicast TTL
	TTL int

	// multicast ports
	Ports [2]int

	// client ports
	ClientPorts [2]int

	// server ports
	ServerPorts [2]int

	// synchronization source
	SSRC uint32

	// mode, uppercase
	Mode string
}

func parsePorts(val string) [2]int {
	ports := strings.Split(val, "-")

	switch len(ports) {
	case 1:
		port1, err := strconv.ParseUint(ports[0], 10, 16)
		if err != nil {
			return [2]int{}
		}
		return [2]int{int(port1), int(port1) + 1}

	case 2:
		port1, err := strconv.ParseUint(ports[0], 10, 16)
		if err != nil {
			return [2]int{}
		}

		port2, err := strconv.ParseUint(ports[1], 10, 16)
		if err != nil {
			return [2]int{}
		}

		return [2]int{int(port1), int(port2)}
	}

	return [2]int{}
}

func formatPorts(ports [2]int) string {
	return strconv.FormatInt(int64(ports[0]), 10) + "-" + strconv.FormatInt(int64(ports[1]), 10)
}

// Unmarshal decodes a Transport header.
func (h *Transport) Unmarshal(v base.HeaderValue) error {
	if len(v) == 0 {
		return fmt.Errorf("value not provided")
	}

	if len(v) > 1 {
		return fmt.Errorf("value provided multiple times (%v)", v)
	}

	*h = Transport{}

	parts := strings.Split(v[0], ";")

	profile := strings.Split(strings.ToUpper(strings.TrimSpace(parts[0])), "/")
	if profile[0] == "RTP" {
		h.Protocol = TransportProtocolRTP
	}

	switch {
	case len(profile) < 3, profile[2] == "UDP":
		h.LowerProtocol = TransportLowerProtocolUDP

	case profile[2] == "TCP":
		h.LowerProtocol = TransportLowerProtocolTCP
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		key, val, _ := strings.Cut(part, "=")

		switch strings.ToLower(key) {
		case "unicast":
			h.Cast = TransportCastUnicast

		case "multicast":
			h.Cast = TransportCastMulticast

		case "ttl":
			ttl, err := strconv.ParseUint(val, 10, 16)
			if err == nil {
				h.TTL = int(ttl)
			}

		case "port":
			h.Ports = parsePorts(val)

		case "client_port":
			h.ClientPorts = parsePorts(val)

		case "server_port":
			h.ServerPorts = parsePorts(val)

		case "ssrc":
			ssrc, err := strconv.ParseUint(val, 16, 32)
			if err == nil {
				h.SSRC = uint32(ssrc)
			}

		case "mode":
			h.Mode = strings.ToUpper(strings.Trim(val, "\""))
		}

		// ignore non-standard keys
	}

	return nil
}

// Marshal encodes a Transport header.
func (h Transport) Marshal() base.HeaderValue {
	mode := h.Mode
	if mode == "" {
		mode = "PLAY"
	}

	var rets []string

	if h.Cast == TransportCastMulticast {
		rets = append(rets,
			"RTP/AVP/UDP",
			"multicast",
			"port="+formatPorts(h.Ports),
			"ttl="+strconv.FormatInt(int64(h.TTL), 10))
	} else {
		lower := "UDP"
		if h.LowerProtocol == TransportLowerProtocolTCP {
			lower = "TCP"
		}

		rets = append(rets,
			"RTP/AVP/"+lower,
			"unicast",
			"client_port="+formatPorts(h.ClientPorts),
			"server_port="+formatPorts(h.ServerPorts))
	}

	rets = append(rets,
		"ssrc="+strconv.FormatUint(uint64(h.SSRC), 16),
		"mode=\""+mode+"\"")

	return base.HeaderValue{strings.Join(rets, ";")}
}

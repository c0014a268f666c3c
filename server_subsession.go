package camrtsp

import (
	"fmt"
	"net"
	"strconv"

	"github.com/bluenviron/camrtsp/pkg/headers"
	"github.com/bluenviron/camrtsp/pkg/liberrors"
	"github.com/bluenviron/camrtsp/pkg/portalloc"
	"github.com/bluenviron/camrtsp/pkg/rtcpreport"
	"github.com/bluenviron/camrtsp/pkg/sink"
)

// serverSubsession is a media stream of the session.
type serverSubsession struct {
	id   int
	sink *sink.Sink

	// per-client state
	handled   bool
	transport headers.Transport
	serverIP  net.IP
	clientIP  net.IP

	// ports taken from the pools, zero when provided by the client
	pooledMulticast int
	pooledClient    int
	pooledServer    int

	rtcpStats rtcpreport.Stats
}

func (sub *serverSubsession) control() string {
	return "streamid=" + strconv.FormatInt(int64(sub.id), 10)
}

// releasePorts gives back the ports taken from the pools.
func (sub *serverSubsession) releasePorts(ports *portalloc.Allocator) {
	if sub.pooledMulticast != 0 {
		ports.Release(portalloc.PoolMulticast, sub.pooledMulticast)
		sub.pooledMulticast = 0
	}
	if sub.pooledClient != 0 {
		ports.Release(portalloc.PoolClient, sub.pooledClient)
		sub.pooledClient = 0
	}
	if sub.pooledServer != 0 {
		ports.Release(portalloc.PoolServer, sub.pooledServer)
		sub.pooledServer = 0
	}
}

// refresh clears the per-client state. It is idempotent.
func (sub *serverSubsession) refresh(ports *portalloc.Allocator) {
	sub.releasePorts(ports)
	sub.handled = false
	sub.transport = headers.Transport{}
	sub.serverIP = nil
	sub.clientIP = nil
	sub.rtcpStats.Reset()
}

// checkPortPair checks that a pair provided by the client is made of an even RTP port
// followed by the RTCP port.
func checkPortPair(key string, ports [2]int) error {
	if ports[0] == 0 {
		return nil
	}

	if (ports[0]%2) != 0 || ports[1] != ports[0]+1 {
		return liberrors.ErrServerTransportHeaderInvalid{
			Err: fmt.Errorf("%s %d-%d is not an even/odd pair", key, ports[0], ports[1]),
		}
	}

	return nil
}

// resolveTransport fills the fields of a Transport header that the client left unset.
// Ports taken from the pools are released if resolution fails.
func (sub *serverSubsession) resolveTransport(ports *portalloc.Allocator, th headers.Transport) (headers.Transport, error) {
	for _, pp := range []struct {
		key   string
		ports [2]int
	}{
		{"port", th.Ports},
		{"client_port", th.ClientPorts},
		{"server_port", th.ServerPorts},
	} {
		err := checkPortPair(pp.key, pp.ports)
		if err != nil {
			return headers.Transport{}, err
		}
	}

	th.Protocol = headers.TransportProtocolRTP

	if th.LowerProtocol == headers.TransportLowerProtocolUnknown {
		th.LowerProtocol = headers.TransportLowerProtocolUDP
	}

	err := func() error {
		if th.Cast == headers.TransportCastMulticast {
			if th.Ports[0] == 0 {
				port, err := ports.Acquire(portalloc.PoolMulticast)
				if err != nil {
					return err
				}
				sub.pooledMulticast = port
				th.Ports = [2]int{port, port + 1}
			}

			if th.TTL == 0 || th.TTL > 255 {
				th.TTL = 1
			}
		} else {
			if th.ClientPorts[0] == 0 {
				port, err := ports.Acquire(portalloc.PoolClient)
				if err != nil {
					return err
				}
				sub.pooledClient = port
				th.ClientPorts = [2]int{port, port + 1}
			}

			if th.ServerPorts[0] == 0 {
				port, err := ports.Acquire(portalloc.PoolServer)
				if err != nil {
					return err
				}
				sub.pooledServer = port
				th.ServerPorts = [2]int{port, port + 1}
			}
		}

		if th.SSRC == 0 {
			ssrc, err := randID()
			if err != nil {
				return err
			}
			th.SSRC = ssrc
		}

		return nil
	}()
	if err != nil {
		sub.releasePorts(ports)
		return headers.Transport{}, err
	}

	return th, nil
}

package camrtsp

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/pion/rtp"
	"golang.org/x/net/ipv4"

	"github.com/bluenviron/camrtsp/pkg/headers"
	"github.com/bluenviron/camrtsp/pkg/liberrors"
	"github.com/bluenviron/camrtsp/pkg/rtcpreport"
	"github.com/bluenviron/camrtsp/pkg/rtpheader"
	"github.com/bluenviron/camrtsp/pkg/sink"
)

const (
	deliveryWriteRetries = 3
	deliveryRetryPause   = 1 * time.Millisecond
	deliveryFramePoll    = 10 * time.Millisecond
	rtcpReadBufferSize   = 1500
)

// OutboundMonitor reports the occupancy of outbound network buffers.
// While Busy returns true, delivery tasks hold packets back.
type OutboundMonitor interface {
	Busy() bool
}

// serverDelivery is the task that sends the frames of a subsession.
type serverDelivery struct {
	s   *Server
	ss  *serverSession
	sub *serverSubsession

	ctx       context.Context
	logger    *slog.Logger
	transport headers.Transport
	rtpConn   net.PacketConn
	rtcpConn  net.PacketConn
	dest      *net.UDPAddr
	rtcpDone  chan struct{}
}

func (d *serverDelivery) initialize() {
	d.transport = d.sub.transport
	d.logger = d.s.Logger.With(
		"subsession", d.sub.id,
		"codec", d.sub.sink.Codec.Name())
}

func (d *serverDelivery) run(ctx context.Context) {
	defer d.ss.deliveryWG.Done()
	defer d.sub.sink.Close()

	d.ctx = ctx

	var err error
	if d.transport.Cast == headers.TransportCastMulticast {
		err = d.runMulticast()
	} else {
		err = d.runUnicast()
	}

	if err != nil {
		d.logger.Error("delivery task failed", "err", err)
	} else {
		d.logger.Debug("delivery task stopped")
	}
}

func (d *serverDelivery) runUnicast() error {
	err := d.openUnicast()
	if err != nil {
		d.ss.setState(ServerSessionStateInit)
		return err
	}
	defer d.closeUnicast()

	d.logger.Info("delivery started",
		"transport", d.transport.LowerProtocol,
		"destination", d.dest.String())

	d.ss.deliveryStarted.Add(1)

	return d.loop(func(f *sink.Frame) error {
		return d.sub.sink.SendFrame(f, d)
	})
}

func (d *serverDelivery) openUnicast() error {
	host := ""
	if d.sub.serverIP != nil {
		host = d.sub.serverIP.String()
	}

	var err error
	d.rtpConn, err = d.s.ListenPacket("udp",
		net.JoinHostPort(host, strconv.FormatInt(int64(d.transport.ServerPorts[0]), 10)))
	if err != nil {
		return err
	}

	d.rtcpConn, err = d.s.ListenPacket("udp",
		net.JoinHostPort(host, strconv.FormatInt(int64(d.transport.ServerPorts[1]), 10)))
	if err != nil {
		d.rtpConn.Close()
		return err
	}

	if d.s.RTPTOS != 0 {
		err = ipv4.NewPacketConn(d.rtpConn).SetTOS(d.s.RTPTOS)
		if err != nil {
			d.logger.Warn("unable to set type of service", "err", err)
		}
	}

	d.dest = &net.UDPAddr{
		IP:   d.sub.clientIP,
		Port: d.transport.ClientPorts[0],
	}

	d.rtcpDone = make(chan struct{})
	go d.readRTCP()

	return nil
}

func (d *serverDelivery) closeUnicast() {
	d.rtpConn.Close()
	d.rtcpConn.Close()
	<-d.rtcpDone
}

func (d *serverDelivery) readRTCP() {
	defer close(d.rtcpDone)

	buf := make([]byte, rtcpReadBufferSize)

	for {
		n, addr, err := d.rtcpConn.ReadFrom(buf)
		if err != nil {
			return
		}

		pkts, err := rtcpreport.Parse(buf[:n])
		if err != nil {
			d.logger.Debug("invalid RTCP packet", "from", addr, "err", err)
			continue
		}

		d.sub.rtcpStats.Update(pkts)

		for _, pkt := range pkts {
			if u, ok := pkt.(rtcpreport.Unknown); ok {
				d.logger.Debug("unknown RTCP packet", "type", u.Type, "length", u.Length)
				continue
			}
			d.logger.Debug("RTCP packet received", "type", pkt.PacketType())
		}

		if st, ok := d.sub.rtcpStats.Source(d.transport.SSRC); ok {
			d.logger.Debug("reception report",
				"fraction_lost", st.FractionLost,
				"cumulative_lost", st.CumulativeLost,
				"jitter", st.Jitter)
		}
	}
}

// runMulticast opens a socket with the requested TTL and drains frames without sending them.
func (d *serverDelivery) runMulticast() error {
	pc, err := d.s.ListenPacket("udp4", ":0")
	if err != nil {
		d.ss.setState(ServerSessionStateInit)
		return err
	}
	defer pc.Close()

	err = ipv4.NewPacketConn(pc).SetMulticastTTL(d.transport.TTL)
	if err != nil {
		d.ss.setState(ServerSessionStateInit)
		return err
	}

	d.logger.Info("multicast delivery started",
		"ports", d.transport.Ports,
		"ttl", d.transport.TTL)

	d.ss.deliveryStarted.Add(1)

	return d.loop(func(_ *sink.Frame) error {
		return nil
	})
}

// loop waits for frames while the session is PLAYING and idles while it is READY.
func (d *serverDelivery) loop(send func(f *sink.Frame) error) error {
	mb := d.sub.sink.Mailbox()

	tick := time.NewTicker(deliveryFramePoll)
	defer tick.Stop()

	for {
		st, changed := d.ss.watchState()

		switch st {
		case ServerSessionStateInit:
			return nil

		case ServerSessionStateReady:
			t := time.NewTimer(d.s.PausePollPeriod)
			select {
			case <-d.ctx.Done():
				t.Stop()
				return nil
			case <-changed:
			case <-t.C:
			}
			t.Stop()
			continue
		}

		select {
		case <-d.ctx.Done():
			return nil
		case <-changed:
			continue
		case <-mb.Ready():
		case <-tick.C:
		}

		f, ok := mb.Claim()
		if !ok {
			continue
		}

		err := send(f)
		mb.MarkSent()

		if err != nil {
			d.logger.Warn("frame dropped", "err", err)
		}
	}
}

// marshalPacket encodes a packet with a fixed header only.
// Codecs never produce CSRCs, extensions or padding.
func marshalPacket(pkt *rtp.Packet) ([]byte, error) {
	hdr, err := rtpheader.Fill(rtpheader.Fields{
		Version:        2,
		Marker:         pkt.Marker,
		PayloadType:    pkt.PayloadType,
		SequenceNumber: pkt.SequenceNumber,
		Timestamp:      pkt.Timestamp,
		SSRC:           pkt.SSRC,
	})
	if err != nil {
		return nil, err
	}

	return append(hdr, pkt.Payload...), nil
}

// WritePacket implements sink.PacketWriter.
func (d *serverDelivery) WritePacket(pkt *rtp.Packet) error {
	buf, err := marshalPacket(pkt)
	if err != nil {
		return err
	}

	for d.s.OutboundMonitor != nil && d.s.OutboundMonitor.Busy() {
		select {
		case <-d.ctx.Done():
			return liberrors.ErrServerTerminated{}
		case <-time.After(deliveryRetryPause):
		}
	}

	for i := 0; ; i++ {
		d.rtpConn.SetWriteDeadline(time.Now().Add(d.s.WriteTimeout)) //nolint:errcheck
		_, err = d.rtpConn.WriteTo(buf, d.dest)
		if err == nil {
			return nil
		}

		if i >= deliveryWriteRetries {
			return err
		}

		time.Sleep(deliveryRetryPause)
	}
}

// Package camrtsp is a RTSP server for embedded cameras.
// It serves one client at a time and streams every configured subsession with RTP over UDP.
package camrtsp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bluenviron/camrtsp/pkg/liberrors"
	"github.com/bluenviron/camrtsp/pkg/portalloc"
	"github.com/bluenviron/camrtsp/pkg/sink"
)

const (
	minSessionTimeout     = 30000
	defaultSessionTimeout = 60000

	// identifiers below this value are shifted, since zero means "unset".
	idFloor = 0x10000000
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// randID returns a random identifier that is never below 0x10000000.
func randID() (uint32, error) {
	v, err := randUint32()
	if err != nil {
		return 0, err
	}
	if v < idFloor {
		v += idFloor
	}
	return v, nil
}

type deadlineListener interface {
	SetDeadline(t time.Time) error
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Server is a RTSP server.
type Server struct {
	//
	// handler (optional)
	//

	// an handler to receive events. See ServerHandler.
	Handler ServerHandler

	//
	// RTSP parameters (all optional except RTSPAddress)
	//

	// the RTSP address of the server.
	// It defaults to ":554".
	RTSPAddress string
	// timeout of read operations.
	// A client that does not send anything for this long is disconnected.
	// It defaults to the session timeout.
	ReadTimeout time.Duration
	// timeout of write operations.
	// It defaults to 10 seconds.
	WriteTimeout time.Duration
	// period of the accept loop.
	// It defaults to 1 second.
	AcceptPollPeriod time.Duration
	// period of the read loop.
	// It defaults to 10 milliseconds.
	ReadPollPeriod time.Duration
	// time allowed to delivery tasks to start after a PLAY request.
	// It defaults to 1 second.
	PlayStartTimeout time.Duration
	// period used by delivery tasks to check state while paused.
	// It defaults to 1 second.
	PausePollPeriod time.Duration
	// maximum time to wait for the network link to come back.
	// It defaults to 60 seconds.
	LinkRestartTimeout time.Duration
	// session timeout, in milliseconds.
	// Values below 30000 are replaced by 60000.
	SessionTimeout int
	// maximum number of subsessions.
	// It defaults to 2.
	MaxSubsessions int
	// maximum size of the header section of a request.
	// It defaults to 1024.
	RequestMaxSize int
	// base of the multicast, client and server port pools.
	// They default to 51100, 51200 and 51400.
	MulticastPortBase int
	ClientPortBase    int
	ServerPortBase    int
	// type of service applied to RTP packets, 0 to leave it untouched.
	RTPTOS int
	// user, name and info of the session, advertised in the SDP.
	SessionUser string
	SessionName string
	SessionInfo string

	//
	// system functions (all optional)
	//

	// function used to initialize the TCP listener.
	// It defaults to net.Listen.
	Listen func(network string, address string) (net.Listener, error)
	// function used to initialize UDP listeners.
	// It defaults to net.ListenPacket.
	ListenPacket func(network, address string) (net.PacketConn, error)
	// network link health. Nil means the link is always up.
	LinkChecker LinkChecker
	// occupancy of outbound buffers. Nil means never busy.
	OutboundMonitor OutboundMonitor
	// logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	ctx       context.Context
	ctxCancel func()
	ports     *portalloc.Allocator
	session   *serverSession
	ln        net.Listener
	err       error

	connMutex sync.Mutex
	conn      *ServerConn

	// out
	done chan struct{}
}

func (s *Server) maxSubsessions() int {
	if s.MaxSubsessions == 0 {
		return 2
	}
	return s.MaxSubsessions
}

// AddSubsession adds a media stream to the server.
// It must be called before Start. The returned id is the index of the stream.
func (s *Server) AddSubsession(sk *sink.Sink) (int, error) {
	if s.session == nil {
		s.session = &serverSession{s: s}
		s.session.initialize()
	}

	if len(s.session.subsessions) >= s.maxSubsessions() {
		return 0, liberrors.ErrServerSubsessionCapReached{Max: s.maxSubsessions()}
	}

	id := len(s.session.subsessions)
	sk.SetID(id)

	s.session.subsessions = append(s.session.subsessions, &serverSubsession{
		id:   id,
		sink: sk,
	})

	return id, nil
}

// Start starts the server.
func (s *Server) Start() error {
	// RTSP parameters
	if s.RTSPAddress == "" {
		s.RTSPAddress = ":554"
	}
	if s.SessionTimeout < minSessionTimeout {
		s.SessionTimeout = defaultSessionTimeout
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = time.Duration(s.SessionTimeout) * time.Millisecond
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 10 * time.Second
	}
	if s.AcceptPollPeriod == 0 {
		s.AcceptPollPeriod = 1 * time.Second
	}
	if s.ReadPollPeriod == 0 {
		s.ReadPollPeriod = 10 * time.Millisecond
	}
	if s.PlayStartTimeout == 0 {
		s.PlayStartTimeout = 1 * time.Second
	}
	if s.PausePollPeriod == 0 {
		s.PausePollPeriod = 1 * time.Second
	}
	if s.LinkRestartTimeout == 0 {
		s.LinkRestartTimeout = 60 * time.Second
	}
	if s.RequestMaxSize == 0 {
		s.RequestMaxSize = 1024
	}
	if s.RTPTOS < 0 || s.RTPTOS > 255 {
		return fmt.Errorf("invalid RTP type of service: %d", s.RTPTOS)
	}

	// system functions
	if s.Listen == nil {
		s.Listen = net.Listen
	}
	if s.ListenPacket == nil {
		s.ListenPacket = net.ListenPacket
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	if s.session == nil || len(s.session.subsessions) == 0 {
		return liberrors.ErrServerNoSubsessions{}
	}

	s.ports = &portalloc.Allocator{
		MulticastBase: s.MulticastPortBase,
		ClientBase:    s.ClientPortBase,
		ServerBase:    s.ServerPortBase,
	}
	err := s.ports.Initialize()
	if err != nil {
		return err
	}

	s.ln, err = s.Listen("tcp", s.RTSPAddress)
	if err != nil {
		return err
	}

	s.ctx, s.ctxCancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})

	s.Logger.Info("listener opened", "address", s.RTSPAddress)

	go s.run()

	return nil
}

// Close closes all the server resources and waits for them to close.
func (s *Server) Close() {
	s.ctxCancel()
	<-s.done
}

// Wait waits until all server resources are closed.
// This can happen when a fatal error occurs or when Close() is called.
func (s *Server) Wait() error {
	<-s.done
	return s.err
}

// StartAndWait starts the server and waits until a fatal error.
func (s *Server) StartAndWait() error {
	err := s.Start()
	if err != nil {
		return err
	}

	return s.Wait()
}

// State returns the state of the session.
func (s *Server) State() ServerSessionState {
	if s.session == nil {
		return ServerSessionStateInit
	}
	return s.session.state()
}

// Conn returns the connected client, if any.
func (s *Server) Conn() *ServerConn {
	s.connMutex.Lock()
	defer s.connMutex.Unlock()
	return s.conn
}

func (s *Server) linkUp() bool {
	return s.LinkChecker == nil || s.LinkChecker.LinkUp()
}

func (s *Server) run() {
	defer close(s.done)

	s.err = s.runInner()

	s.ctxCancel()

	if s.ln != nil {
		s.ln.Close()
	}

	s.session.reset()

	s.Logger.Info("server closed", "reason", s.err)
}

func (s *Server) runInner() error {
	for {
		err := s.serve()

		var linkErr liberrors.ErrServerLinkDown
		if !errors.As(err, &linkErr) {
			return err
		}

		s.Logger.Warn("network link is down, restarting listener")

		s.ln.Close()
		s.ln = nil

		err = s.waitLink()
		if err != nil {
			return err
		}

		s.ln, err = s.Listen("tcp", s.RTSPAddress)
		if err != nil {
			return err
		}

		s.Logger.Info("listener reopened", "address", s.RTSPAddress)
	}
}

// waitLink waits until the network link is up again.
func (s *Server) waitLink() error {
	t := time.NewTimer(s.LinkRestartTimeout)
	defer t.Stop()

	tick := time.NewTicker(s.AcceptPollPeriod)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			if s.linkUp() {
				return nil
			}

		case <-t.C:
			return liberrors.ErrServerLinkDown{}

		case <-s.ctx.Done():
			return liberrors.ErrServerTerminated{}
		}
	}
}

// serve accepts clients, one at a time, until the link goes down or the server is closed.
func (s *Server) serve() error {
	for {
		select {
		case <-s.ctx.Done():
			return liberrors.ErrServerTerminated{}
		default:
		}

		if !s.linkUp() {
			return liberrors.ErrServerLinkDown{}
		}

		if dl, ok := s.ln.(deadlineListener); ok {
			dl.SetDeadline(time.Now().Add(s.AcceptPollPeriod)) //nolint:errcheck
		}

		nconn, err := s.ln.Accept()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return err
		}

		sc := &ServerConn{
			s:     s,
			nconn: nconn,
		}
		sc.initialize()

		s.connMutex.Lock()
		s.conn = sc
		s.connMutex.Unlock()

		err = sc.run()

		s.connMutex.Lock()
		s.conn = nil
		s.connMutex.Unlock()

		s.session.reset()

		var linkErr liberrors.ErrServerLinkDown
		var termErr liberrors.ErrServerTerminated
		if errors.As(err, &linkErr) || errors.As(err, &termErr) {
			return err
		}
	}
}

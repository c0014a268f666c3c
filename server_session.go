package camrtsp

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluenviron/camrtsp/pkg/description"
	"github.com/bluenviron/camrtsp/pkg/headers"
	"github.com/bluenviron/camrtsp/pkg/liberrors"
)

// ServerSessionState is a state of the session.
type ServerSessionState int

// states.
const (
	ServerSessionStateInit ServerSessionState = iota
	ServerSessionStateReady
	ServerSessionStatePlaying
)

// String implements fmt.Stringer.
func (s ServerSessionState) String() string {
	switch s {
	case ServerSessionStateInit:
		return "INIT"
	case ServerSessionStateReady:
		return "READY"
	case ServerSessionStatePlaying:
		return "PLAYING"
	}
	return "unknown"
}

// SessionInfo contains the attributes of a session.
type SessionInfo struct {
	ID        uint32
	Timeout   int
	Version   uint64
	User      string
	Name      string
	Info      string
	StartTime uint64
	StopTime  uint64
}

// IDString returns the session id as written in the Session header.
func (i SessionInfo) IDString() string {
	return strconv.FormatUint(uint64(i.ID), 16)
}

func (i SessionInfo) header(withTimeout bool) headers.Session {
	h := headers.Session{Session: i.IDString()}
	if withTimeout {
		v := uint(i.Timeout)
		h.Timeout = &v
	}
	return h
}

type serverSession struct {
	s *Server

	subsessions []*serverSubsession

	stateMutex   sync.Mutex
	stateV       ServerSessionState
	stateChanged chan struct{}

	// touched by the control loop only
	info *SessionInfo
	sdp  []byte

	deliveryCtx       context.Context
	deliveryCtxCancel func()
	deliveryWG        sync.WaitGroup
	deliveryStarted   atomic.Int32
	deliveryRunning   bool
}

func (ss *serverSession) initialize() {
	ss.stateChanged = make(chan struct{})
}

func (ss *serverSession) state() ServerSessionState {
	ss.stateMutex.Lock()
	defer ss.stateMutex.Unlock()
	return ss.stateV
}

// watchState returns the current state and a channel that is closed at the next change.
func (ss *serverSession) watchState() (ServerSessionState, <-chan struct{}) {
	ss.stateMutex.Lock()
	defer ss.stateMutex.Unlock()
	return ss.stateV, ss.stateChanged
}

func (ss *serverSession) setState(st ServerSessionState) {
	ss.stateMutex.Lock()
	defer ss.stateMutex.Unlock()

	if ss.stateV == st {
		return
	}

	ss.s.Logger.Info("session state changed", "from", ss.stateV, "to", st)

	ss.stateV = st
	close(ss.stateChanged)
	ss.stateChanged = make(chan struct{})
}

func (ss *serverSession) checkState(allowed ...ServerSessionState) error {
	cur := ss.state()
	for _, a := range allowed {
		if cur == a {
			return nil
		}
	}

	allowedList := make([]fmt.Stringer, len(allowed))
	for i, a := range allowed {
		allowedList[i] = a
	}

	return liberrors.ErrServerInvalidState{
		AllowedList: allowedList,
		State:       cur,
	}
}

// ensureInfo generates the session info if it has not been generated yet.
func (ss *serverSession) ensureInfo() (*SessionInfo, error) {
	if ss.info != nil {
		return ss.info, nil
	}

	id, err := randID()
	if err != nil {
		return nil, err
	}

	ss.info = &SessionInfo{
		ID:      id,
		Timeout: ss.s.SessionTimeout,
		Version: uint64(time.Now().Unix()),
		User:    ss.s.SessionUser,
		Name:    ss.s.SessionName,
		Info:    ss.s.SessionInfo,
	}

	return ss.info, nil
}

// describe returns the SDP of the session, generating it once.
func (ss *serverSession) describe(serverIP string, clientIP string) ([]byte, error) {
	if ss.sdp != nil {
		return ss.sdp, nil
	}

	info, err := ss.ensureInfo()
	if err != nil {
		return nil, err
	}

	desc := description.Session{
		Info: description.Info{
			SessionID: info.ID,
			Version:   info.Version,
			User:      info.User,
			Name:      info.Name,
			Info:      info.Info,
			StartTime: info.StartTime,
			StopTime:  info.StopTime,
		},
		ServerAddress:     serverIP,
		ConnectionAddress: clientIP,
		Medias:            make([]*description.Media, len(ss.subsessions)),
	}

	for i, sub := range ss.subsessions {
		desc.Medias[i] = &description.Media{
			Format:      sub.sink.Codec,
			PayloadType: sub.sink.PayloadType(),
			Control:     sub.control(),
		}
	}

	ss.sdp, err = desc.Marshal()
	if err != nil {
		return nil, err
	}

	return ss.sdp, nil
}

// nextUnhandled returns the first subsession that has not been setup, in declaration order.
func (ss *serverSession) nextUnhandled() *serverSubsession {
	for _, sub := range ss.subsessions {
		if !sub.handled {
			return sub
		}
	}
	return nil
}

func (ss *serverSession) allHandled() bool {
	return ss.nextUnhandled() == nil
}

// startDelivery starts one delivery task per subsession and waits for all of them to start.
func (ss *serverSession) startDelivery() error {
	for _, sub := range ss.subsessions {
		err := sub.sink.Open(sub.transport.SSRC)
		if err != nil {
			return err
		}
	}

	ss.deliveryCtx, ss.deliveryCtxCancel = context.WithCancel(ss.s.ctx)
	ss.deliveryStarted.Store(0)
	ss.deliveryRunning = true

	for _, sub := range ss.subsessions {
		d := &serverDelivery{
			s:   ss.s,
			ss:  ss,
			sub: sub,
		}
		d.initialize()

		ss.deliveryWG.Add(1)
		go d.run(ss.deliveryCtx)
	}

	t := time.NewTimer(ss.s.PlayStartTimeout)
	defer t.Stop()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	total := len(ss.subsessions)

	for {
		if int(ss.deliveryStarted.Load()) == total {
			return nil
		}

		select {
		case <-tick.C:
			// a task that fails to start brings the session back to INIT.
			if ss.state() == ServerSessionStateInit {
				return liberrors.ErrServerPlayTimeout{
					Started: int(ss.deliveryStarted.Load()),
					Total:   total,
				}
			}

		case <-t.C:
			return liberrors.ErrServerPlayTimeout{
				Started: int(ss.deliveryStarted.Load()),
				Total:   total,
			}
		}
	}
}

func (ss *serverSession) stopDelivery() {
	if !ss.deliveryRunning {
		return
	}

	ss.deliveryCtxCancel()
	ss.deliveryWG.Wait()
	ss.deliveryRunning = false
}

// reset releases every resource and brings the session back to INIT.
// INIT is published last, so that an observer of INIT never sees ports still allocated.
func (ss *serverSession) reset() {
	ss.stopDelivery()

	for _, sub := range ss.subsessions {
		sub.refresh(ss.s.ports)
	}

	ss.info = nil
	ss.sdp = nil

	ss.setState(ServerSessionStateInit)
}

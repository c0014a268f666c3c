package camrtsp

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bluenviron/camrtsp/pkg/base"
	"github.com/bluenviron/camrtsp/pkg/conn"
	"github.com/bluenviron/camrtsp/pkg/headers"
	"github.com/bluenviron/camrtsp/pkg/liberrors"
)

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}
	return nil
}

func publicMethods() string {
	methods := make([]string, len(base.Methods))
	for i, m := range base.Methods {
		methods[i] = string(m)
	}
	return strings.Join(methods, ", ")
}

// ServerConn is a server-side RTSP connection.
type ServerConn struct {
	s     *Server
	nconn net.Conn

	id       uuid.UUID
	localIP  net.IP
	remoteIP net.IP
	conn     *conn.Conn
	logger   *slog.Logger

	cseqSet  bool
	lastCSeq int
}

func (sc *ServerConn) initialize() {
	sc.id = uuid.New()
	sc.localIP = addrIP(sc.nconn.LocalAddr())
	sc.remoteIP = addrIP(sc.nconn.RemoteAddr())
	sc.conn = conn.NewConn(sc.nconn)
	sc.conn.RequestMaxSize = sc.s.RequestMaxSize
	sc.logger = sc.s.Logger.With(
		"conn", sc.id.String(),
		"remote", sc.nconn.RemoteAddr().String())
}

// ID returns the unique identifier of the connection.
func (sc *ServerConn) ID() uuid.UUID {
	return sc.id
}

// NetConn returns the underlying net.Conn.
func (sc *ServerConn) NetConn() net.Conn {
	return sc.nconn
}

// RemoteAddr returns the address of the client.
func (sc *ServerConn) RemoteAddr() net.Addr {
	return sc.nconn.RemoteAddr()
}

func (sc *ServerConn) ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

func (sc *ServerConn) run() error {
	sc.logger.Info("connection opened")

	if h, ok := sc.s.Handler.(ServerHandlerOnConnOpen); ok {
		h.OnConnOpen(&ServerHandlerOnConnOpenCtx{
			Conn: sc,
		})
	}

	err := sc.runInner()

	sc.nconn.Close()

	sc.logger.Info("connection closed", "reason", err)

	if h, ok := sc.s.Handler.(ServerHandlerOnConnClose); ok {
		h.OnConnClose(&ServerHandlerOnConnCloseCtx{
			Conn:  sc,
			Error: err,
		})
	}

	return err
}

func (sc *ServerConn) runInner() error {
	lastActivity := time.Now()

	for {
		select {
		case <-sc.s.ctx.Done():
			return liberrors.ErrServerTerminated{}
		default:
		}

		if !sc.s.linkUp() {
			return liberrors.ErrServerLinkDown{}
		}

		sc.nconn.SetReadDeadline(time.Now().Add(sc.s.ReadPollPeriod)) //nolint:errcheck
		req, err := sc.conn.ReadRequest()
		if err != nil {
			if isTimeout(err) {
				if time.Since(lastActivity) >= sc.s.ReadTimeout {
					return fmt.Errorf("no requests received in %v", sc.s.ReadTimeout)
				}
				continue
			}
			return err
		}

		lastActivity = time.Now()

		err = sc.handleRequestOuter(req)
		if err != nil {
			return err
		}
	}
}

func (sc *ServerConn) handleRequestOuter(req *base.Request) error {
	sc.logger.Debug("request received", "method", req.Method, "url", req.URL)

	res, err := sc.handleRequest(req)

	if res.Header == nil {
		res.Header = make(base.Header)
	}

	// echo the CSeq even when it is invalid
	if cseq, ok := req.Header["CSeq"]; ok {
		res.Header["CSeq"] = cseq
	}

	res.Header["Server"] = base.HeaderValue{"camrtsp"}

	if err != nil {
		sc.logger.Warn("request failed",
			"method", req.Method,
			"status", int(res.StatusCode),
			"err", err)
	}

	sc.nconn.SetWriteDeadline(time.Now().Add(sc.s.WriteTimeout)) //nolint:errcheck
	return sc.conn.WriteResponse(res)
}

func (sc *ServerConn) handleRequest(req *base.Request) (*base.Response, error) {
	cseq, ok := req.CSeq()
	if !ok {
		return &base.Response{
			StatusCode: base.StatusBadRequest,
		}, liberrors.ErrServerCSeqMissing{}
	}

	if sc.cseqSet && cseq <= sc.lastCSeq {
		return &base.Response{
			StatusCode: base.StatusBadRequest,
		}, liberrors.ErrServerCSeqOutOfOrder{CSeq: cseq, Last: sc.lastCSeq}
	}

	sc.cseqSet = true
	sc.lastCSeq = cseq

	switch req.Method {
	case base.Options:
		return sc.handleOptions(req)

	case base.Describe:
		return sc.handleDescribe(req)

	case base.Setup:
		return sc.handleSetup(req)

	case base.Play:
		return sc.handlePlay(req)

	case base.Pause:
		return sc.handlePause(req)

	case base.Teardown:
		return sc.handleTeardown(req)

	case base.GetParameter:
		return sc.handleGetParameter(req)
	}

	sc.s.session.reset()

	return &base.Response{
		StatusCode: base.StatusBadRequest,
	}, liberrors.ErrServerUndefinedMethod{}
}

func (sc *ServerConn) sessionHeader(withTimeout bool) base.Header {
	ss := sc.s.session
	if ss.info == nil {
		return base.Header{}
	}
	return base.Header{
		"Session": ss.info.header(withTimeout).Marshal(),
	}
}

func (sc *ServerConn) handleOptions(req *base.Request) (*base.Response, error) {
	if h, ok := sc.s.Handler.(ServerHandlerOnOptions); ok {
		err := h.OnOptions(&ServerHandlerOnOptionsCtx{
			Conn:    sc,
			Request: req,
			State:   sc.s.session.state(),
		})
		if err != nil {
			return &base.Response{StatusCode: base.StatusBadRequest}, err
		}
	}

	return &base.Response{
		StatusCode: base.StatusOK,
		Header: base.Header{
			"Public": base.HeaderValue{publicMethods()},
			"Allow":  base.HeaderValue{publicMethods()},
		},
	}, nil
}

func (sc *ServerConn) handleDescribe(req *base.Request) (*base.Response, error) {
	ss := sc.s.session

	err := ss.checkState(ServerSessionStateInit)
	if err != nil {
		return &base.Response{StatusCode: base.StatusBadRequest}, err
	}

	if h, ok := sc.s.Handler.(ServerHandlerOnDescribe); ok {
		err = h.OnDescribe(&ServerHandlerOnDescribeCtx{
			Conn:    sc,
			Request: req,
			State:   ss.state(),
		})
		if err != nil {
			return &base.Response{StatusCode: base.StatusBadRequest}, err
		}
	}

	byts, err := ss.describe(sc.ipString(sc.localIP), sc.ipString(sc.remoteIP))
	if err != nil {
		return &base.Response{StatusCode: base.StatusInternalServerError}, err
	}

	return &base.Response{
		StatusCode: base.StatusOK,
		Header: base.Header{
			"Content-Base": base.HeaderValue{req.URL + "/"},
			"Content-Type": base.HeaderValue{"application/sdp"},
		},
		Body: byts,
	}, nil
}

func (sc *ServerConn) handleSetup(req *base.Request) (*base.Response, error) {
	ss := sc.s.session

	err := ss.checkState(ServerSessionStateInit)
	if err != nil {
		return &base.Response{StatusCode: base.StatusBadRequest}, err
	}

	sub := ss.nextUnhandled()
	if sub == nil {
		return &base.Response{StatusCode: base.StatusBadRequest}, liberrors.ErrServerAllSubsessionsSetup{}
	}

	var th headers.Transport
	if v, ok := req.Header["Transport"]; ok {
		err = th.Unmarshal(v)
		if err != nil {
			return &base.Response{StatusCode: base.StatusBadRequest},
				liberrors.ErrServerTransportHeaderInvalid{Err: err}
		}
	}

	th, err = sub.resolveTransport(sc.s.ports, th)
	if err != nil {
		return &base.Response{StatusCode: base.StatusBadRequest}, err
	}

	if h, ok := sc.s.Handler.(ServerHandlerOnSetup); ok {
		err = h.OnSetup(&ServerHandlerOnSetupCtx{
			Conn:       sc,
			Request:    req,
			State:      ss.state(),
			Subsession: sub.id,
			Transport:  th,
		})
		if err != nil {
			sub.refresh(sc.s.ports)
			return &base.Response{StatusCode: base.StatusBadRequest}, err
		}
	}

	_, err = ss.ensureInfo()
	if err != nil {
		sub.refresh(sc.s.ports)
		return &base.Response{StatusCode: base.StatusInternalServerError}, err
	}

	sub.transport = th
	sub.serverIP = sc.localIP
	sub.clientIP = sc.remoteIP
	sub.handled = true

	sc.logger.Info("subsession setup",
		"subsession", sub.id,
		"transport", string(th.Marshal()[0]))

	if ss.allHandled() {
		ss.setState(ServerSessionStateReady)
	}

	res := &base.Response{
		StatusCode: base.StatusOK,
		Header:     sc.sessionHeader(true),
	}
	res.Header["Transport"] = th.Marshal()

	return res, nil
}

func (sc *ServerConn) handlePlay(req *base.Request) (*base.Response, error) {
	ss := sc.s.session

	err := ss.checkState(ServerSessionStateReady)
	if err != nil {
		return &base.Response{StatusCode: base.StatusBadRequest}, err
	}

	if h, ok := sc.s.Handler.(ServerHandlerOnPlay); ok {
		err = h.OnPlay(&ServerHandlerOnPlayCtx{
			Conn:    sc,
			Request: req,
			State:   ss.state(),
		})
		if err != nil {
			return &base.Response{StatusCode: base.StatusBadRequest}, err
		}
	}

	res := &base.Response{
		StatusCode: base.StatusOK,
		Header:     sc.sessionHeader(false),
	}

	// resume after PAUSE
	if ss.deliveryRunning {
		ss.setState(ServerSessionStatePlaying)
		return res, nil
	}

	err = ss.startDelivery()
	if err != nil {
		ss.reset()
		return &base.Response{StatusCode: base.StatusSessionNotFound}, err
	}

	ss.setState(ServerSessionStatePlaying)

	return res, nil
}

func (sc *ServerConn) handlePause(req *base.Request) (*base.Response, error) {
	ss := sc.s.session

	err := ss.checkState(ServerSessionStatePlaying, ServerSessionStateReady)
	if err != nil {
		return &base.Response{StatusCode: base.StatusBadRequest}, err
	}

	if h, ok := sc.s.Handler.(ServerHandlerOnPause); ok {
		err = h.OnPause(&ServerHandlerOnPauseCtx{
			Conn:    sc,
			Request: req,
			State:   ss.state(),
		})
		if err != nil {
			return &base.Response{StatusCode: base.StatusBadRequest}, err
		}
	}

	ss.setState(ServerSessionStateReady)

	return &base.Response{
		StatusCode: base.StatusOK,
		Header:     sc.sessionHeader(false),
	}, nil
}

func (sc *ServerConn) handleTeardown(req *base.Request) (*base.Response, error) {
	ss := sc.s.session

	if h, ok := sc.s.Handler.(ServerHandlerOnTeardown); ok {
		err := h.OnTeardown(&ServerHandlerOnTeardownCtx{
			Conn:    sc,
			Request: req,
			State:   ss.state(),
		})
		if err != nil {
			sc.logger.Warn("teardown hook failed", "err", err)
		}
	}

	h := sc.sessionHeader(false)

	ss.reset()

	return &base.Response{
		StatusCode: base.StatusOK,
		Header:     h,
	}, nil
}

func (sc *ServerConn) handleGetParameter(req *base.Request) (*base.Response, error) {
	ss := sc.s.session

	if h, ok := sc.s.Handler.(ServerHandlerOnGetParameter); ok {
		err := h.OnGetParameter(&ServerHandlerOnGetParameterCtx{
			Conn:    sc,
			Request: req,
			State:   ss.state(),
		})
		if err != nil {
			return &base.Response{StatusCode: base.StatusBadRequest}, err
		}
	}

	return &base.Response{
		StatusCode: base.StatusOK,
		Header:     sc.sessionHeader(true),
	}, nil
}

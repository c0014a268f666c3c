package camrtsp

import (
	"github.com/bluenviron/camrtsp/pkg/base"
	"github.com/bluenviron/camrtsp/pkg/headers"
)

// ServerHandler is the interface implemented by all the server handlers.
// Request hooks are called before the response is built.
// A hook that returns an error makes the server answer 400 Bad Request.
type ServerHandler interface{}

// ServerHandlerOnConnOpenCtx is the context of OnConnOpen.
type ServerHandlerOnConnOpenCtx struct {
	Conn *ServerConn
}

// ServerHandlerOnConnOpen can be implemented by a ServerHandler.
type ServerHandlerOnConnOpen interface {
	// called when a connection is opened.
	OnConnOpen(*ServerHandlerOnConnOpenCtx)
}

// ServerHandlerOnConnCloseCtx is the context of OnConnClose.
type ServerHandlerOnConnCloseCtx struct {
	Conn  *ServerConn
	Error error
}

// ServerHandlerOnConnClose can be implemented by a ServerHandler.
type ServerHandlerOnConnClose interface {
	// called when a connection is closed.
	OnConnClose(*ServerHandlerOnConnCloseCtx)
}

// ServerHandlerOnOptionsCtx is the context of OnOptions.
type ServerHandlerOnOptionsCtx struct {
	Conn    *ServerConn
	Request *base.Request
	State   ServerSessionState
}

// ServerHandlerOnOptions can be implemented by a ServerHandler.
type ServerHandlerOnOptions interface {
	// called when receiving an OPTIONS request.
	OnOptions(*ServerHandlerOnOptionsCtx) error
}

// ServerHandlerOnDescribeCtx is the context of OnDescribe.
type ServerHandlerOnDescribeCtx struct {
	Conn    *ServerConn
	Request *base.Request
	State   ServerSessionState
}

// ServerHandlerOnDescribe can be implemented by a ServerHandler.
type ServerHandlerOnDescribe interface {
	// called when receiving a DESCRIBE request.
	OnDescribe(*ServerHandlerOnDescribeCtx) error
}

// ServerHandlerOnSetupCtx is the context of OnSetup.
type ServerHandlerOnSetupCtx struct {
	Conn    *ServerConn
	Request *base.Request
	State   ServerSessionState

	// index of the subsession being setup
	Subsession int

	// resolved transport
	Transport headers.Transport
}

// ServerHandlerOnSetup can be implemented by a ServerHandler.
type ServerHandlerOnSetup interface {
	// called when receiving a SETUP request.
	OnSetup(*ServerHandlerOnSetupCtx) error
}

// ServerHandlerOnPlayCtx is the context of OnPlay.
type ServerHandlerOnPlayCtx struct {
	Conn    *ServerConn
	Request *base.Request
	State   ServerSessionState
}

// ServerHandlerOnPlay can be implemented by a ServerHandler.
type ServerHandlerOnPlay interface {
	// called when receiving a PLAY request.
	OnPlay(*ServerHandlerOnPlayCtx) error
}

// ServerHandlerOnPauseCtx is the context of OnPause.
type ServerHandlerOnPauseCtx struct {
	Conn    *ServerConn
	Request *base.Request
	State   ServerSessionState
}

// ServerHandlerOnPause can be implemented by a ServerHandler.
type ServerHandlerOnPause interface {
	// called when receiving a PAUSE request.
	OnPause(*ServerHandlerOnPauseCtx) error
}

// ServerHandlerOnTeardownCtx is the context of OnTeardown.
type ServerHandlerOnTeardownCtx struct {
	Conn    *ServerConn
	Request *base.Request
	State   ServerSessionState
}

// ServerHandlerOnTeardown can be implemented by a ServerHandler.
type ServerHandlerOnTeardown interface {
	// called when receiving a TEARDOWN request.
	// The session is reset regardless of the returned error.
	OnTeardown(*ServerHandlerOnTeardownCtx) error
}

// ServerHandlerOnGetParameterCtx is the context of OnGetParameter.
type ServerHandlerOnGetParameterCtx struct {
	Conn    *ServerConn
	Request *base.Request
	State   ServerSessionState
}

// ServerHandlerOnGetParameter can be implemented by a ServerHandler.
type ServerHandlerOnGetParameter interface {
	// called when receiving a GET_PARAMETER request.
	OnGetParameter(*ServerHandlerOnGetParameterCtx) error
}

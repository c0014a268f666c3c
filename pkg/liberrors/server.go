// Package liberrors contains errors returned by the library.
package liberrors

import (
	"fmt"
)

// ErrRequestEmpty is returned when there are no bytes to parse.
// The caller is expected to retry once more bytes arrive.
type ErrRequestEmpty struct{}

// Error implements the error interface.
func (e ErrRequestEmpty) Error() string {
	return "request is empty"
}

// ErrRequestMalformed is returned when a request can't be parsed.
type ErrRequestMalformed struct {
	Reason string
}

// Error implements the error interface.
func (e ErrRequestMalformed) Error() string {
	return "malformed request: " + e.Reason
}

// ErrServerTerminated is an error that can be returned by a server.
type ErrServerTerminated struct{}

// Error implements the error interface.
func (e ErrServerTerminated) Error() string {
	return "terminated"
}

// ErrServerCSeqMissing is an error that can be returned by a server.
type ErrServerCSeqMissing struct{}

// Error implements the error interface.
func (e ErrServerCSeqMissing) Error() string {
	return "CSeq is missing"
}

// ErrServerCSeqOutOfOrder is an error that can be returned by a server.
type ErrServerCSeqOutOfOrder struct {
	CSeq int
	Last int
}

// Error implements the error interface.
func (e ErrServerCSeqOutOfOrder) Error() string {
	return fmt.Sprintf("CSeq %d is not greater than last CSeq %d", e.CSeq, e.Last)
}

// ErrServerInvalidState is an error that can be returned by a server.
type ErrServerInvalidState struct {
	AllowedList []fmt.Stringer
	State       fmt.Stringer
}

// Error implements the error interface.
func (e ErrServerInvalidState) Error() string {
	return fmt.Sprintf("must be in state %v, while is in state %v",
		e.AllowedList, e.State)
}

// ErrServerUndefinedMethod is an error that can be returned by a server.
type ErrServerUndefinedMethod struct{}

// Error implements the error interface.
func (e ErrServerUndefinedMethod) Error() string {
	return "undefined method"
}

// ErrServerTransportHeaderInvalid is an error that can be returned by a server.
type ErrServerTransportHeaderInvalid struct {
	Err error
}

// Error implements the error interface.
func (e ErrServerTransportHeaderInvalid) Error() string {
	return fmt.Sprintf("invalid transport header: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e ErrServerTransportHeaderInvalid) Unwrap() error {
	return e.Err
}

// ErrServerAllSubsessionsSetup is an error that can be returned by a server.
type ErrServerAllSubsessionsSetup struct{}

// Error implements the error interface.
func (e ErrServerAllSubsessionsSetup) Error() string {
	return "all subsessions have already been setup"
}

// ErrServerNoSubsessions is an error that can be returned by a server.
type ErrServerNoSubsessions struct{}

// Error implements the error interface.
func (e ErrServerNoSubsessions) Error() string {
	return "no subsessions have been added"
}

// ErrServerSubsessionCapReached is an error that can be returned by a server.
type ErrServerSubsessionCapReached struct {
	Max int
}

// Error implements the error interface.
func (e ErrServerSubsessionCapReached) Error() string {
	return fmt.Sprintf("maximum number of subsessions (%d) reached", e.Max)
}

// ErrServerPlayTimeout is an error that can be returned by a server.
type ErrServerPlayTimeout struct {
	Started int
	Total   int
}

// Error implements the error interface.
func (e ErrServerPlayTimeout) Error() string {
	return fmt.Sprintf("only %d of %d delivery tasks started in time", e.Started, e.Total)
}

// ErrServerLinkDown is an error that can be returned by a server.
type ErrServerLinkDown struct{}

// Error implements the error interface.
func (e ErrServerLinkDown) Error() string {
	return "network link is down"
}

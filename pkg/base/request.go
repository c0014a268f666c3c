// Package base contains the primitives of the RTSP protocol.
package base

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/bluenviron/camrtsp/pkg/liberrors"
)

const (
	rtspProtocol10       = "RTSP/1.0"
	rtspMaxContentLength = 128 * 1024
)

// Method is the method of a RTSP request.
type Method string

// methods.
const (
	Options      Method = "OPTIONS"
	Describe     Method = "DESCRIBE"
	Setup        Method = "SETUP"
	Teardown     Method = "TEARDOWN"
	Play         Method = "PLAY"
	Pause        Method = "PAUSE"
	GetParameter Method = "GET_PARAMETER"

	// Undefined is assigned to requests with an unknown method.
	Undefined Method = "UNDEFINED"
)

// Methods are the supported methods, in the order in which they are advertised.
var Methods = []Method{
	Options,
	Describe,
	Setup,
	Teardown,
	Play,
	Pause,
	GetParameter,
}

func parseMethod(in string) Method {
	for _, m := range Methods {
		if in == string(m) {
			return m
		}
	}
	return Undefined
}

// Request is a RTSP request.
type Request struct {
	// request method
	Method Method

	// request URI, as written by the client
	URL string

	// map of header values
	Header Header

	// optional body
	Body []byte
}

// ParseRequest parses a request.
func ParseRequest(buf []byte) (*Request, error) {
	var req Request
	err := req.Unmarshal(buf)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FrameSize returns the size of the first request in buf, header and body included.
// It returns zero when the header section is not complete yet.
func FrameSize(buf []byte) (int, error) {
	n := HeaderEnd(buf)
	if n < 0 {
		return 0, nil
	}

	var h Header
	err := h.unmarshalLines(splitLines(buf[:n]))
	if err != nil {
		return 0, liberrors.ErrRequestMalformed{Reason: err.Error()}
	}

	cl, err := contentLength(h)
	if err != nil {
		return 0, err
	}

	return n + cl, nil
}

// Unmarshal decodes a request.
func (req *Request) Unmarshal(buf []byte) error {
	if len(buf) == 0 {
		return liberrors.ErrRequestEmpty{}
	}

	n := HeaderEnd(buf)
	if n < 0 {
		return liberrors.ErrRequestMalformed{Reason: "header section is not terminated"}
	}

	lines := splitLines(buf[:n])
	if len(lines) == 0 {
		return liberrors.ErrRequestMalformed{Reason: "request line is missing"}
	}

	// URI and protocol version are not validated
	fields := strings.Fields(lines[0])
	if len(fields) == 0 {
		return liberrors.ErrRequestMalformed{Reason: "request line is missing"}
	}

	req.Method = parseMethod(fields[0])
	req.URL = ""
	if len(fields) >= 2 {
		req.URL = fields[1]
	}

	err := req.Header.unmarshalLines(lines[1:])
	if err != nil {
		return liberrors.ErrRequestMalformed{Reason: err.Error()}
	}

	cl, err := contentLength(req.Header)
	if err != nil {
		return err
	}

	req.Body = nil
	if cl != 0 {
		if len(buf)-n < cl {
			return liberrors.ErrRequestMalformed{Reason: "body is truncated"}
		}
		req.Body = bytes.Clone(buf[n : n+cl])
	}

	return nil
}

// CSeq returns the CSeq header, if present and valid.
func (req *Request) CSeq() (int, bool) {
	v, ok := req.Header["CSeq"]
	if !ok || len(v) != 1 {
		return 0, false
	}

	cseq, err := strconv.ParseUint(strings.TrimSpace(v[0]), 10, 31)
	if err != nil {
		return 0, false
	}

	return int(cseq), true
}

// ContentLength returns the Content-Length header, or zero when missing.
func (req *Request) ContentLength() int {
	cl, _ := contentLength(req.Header)
	return cl
}

// Bandwidth returns the Bandwidth header, or zero when missing or invalid.
func (req *Request) Bandwidth() int {
	v, ok := req.Header["Bandwidth"]
	if !ok || len(v) != 1 {
		return 0
	}

	bw, err := strconv.ParseUint(strings.TrimSpace(v[0]), 10, 31)
	if err != nil {
		return 0
	}

	return int(bw)
}

// Marshal encodes a request.
func (req Request) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(string(req.Method) + " " + req.URL + " " + rtspProtocol10 + "\r\n")

	h := make(Header, len(req.Header)+1)
	for k, v := range req.Header {
		h[k] = v
	}
	if len(req.Body) != 0 {
		h["Content-Length"] = HeaderValue{strconv.FormatInt(int64(len(req.Body)), 10)}
	}

	buf.Write(h.marshal())
	buf.Write(req.Body)

	return buf.Bytes(), nil
}

// String implements fmt.Stringer.
func (req Request) String() string {
	buf, _ := req.Marshal()
	return string(buf)
}

func contentLength(h Header) (int, error) {
	v, ok := h["Content-Length"]
	if !ok || len(v) != 1 {
		return 0, nil
	}

	cl, err := strconv.ParseUint(strings.TrimSpace(v[0]), 10, 31)
	if err != nil {
		return 0, liberrors.ErrRequestMalformed{Reason: "invalid Content-Length"}
	}

	if cl > rtspMaxContentLength {
		return 0, liberrors.ErrRequestMalformed{Reason: "Content-Length exceeds " +
			strconv.FormatInt(rtspMaxContentLength, 10)}
	}

	return int(cl), nil
}

package base

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// StatusCode is the status code of a RTSP response.
type StatusCode int

// status codes.
const (
	StatusOK                        StatusCode = 200
	StatusBadRequest                StatusCode = 400
	StatusNotFound                  StatusCode = 404
	StatusMethodNotAllowed          StatusCode = 405
	StatusSessionNotFound           StatusCode = 454
	StatusMethodNotValidInThisState StatusCode = 455
	StatusUnsupportedTransport      StatusCode = 461
	StatusInternalServerError       StatusCode = 500
	StatusNotImplemented            StatusCode = 501
	StatusServiceUnavailable        StatusCode = 503
	StatusRTSPVersionNotSupported   StatusCode = 505
)

// StatusMessages contains the status messages associated with each status code.
var StatusMessages = map[StatusCode]string{
	StatusOK:                        "OK",
	StatusBadRequest:                "Bad Request",
	StatusNotFound:                  "Not Found",
	StatusMethodNotAllowed:          "Method Not Allowed",
	StatusSessionNotFound:           "Session Not Found",
	StatusMethodNotValidInThisState: "Method Not Valid In This State",
	StatusUnsupportedTransport:      "Unsupported Transport",
	StatusInternalServerError:       "Internal Server Error",
	StatusNotImplemented:            "Not Implemented",
	StatusServiceUnavailable:        "Service Unavailable",
	StatusRTSPVersionNotSupported:   "RTSP Version Not Supported",
}

// Response is a RTSP response.
type Response struct {
	// numeric status code
	StatusCode StatusCode

	// status message
	StatusMessage string

	// map of header values
	Header Header

	// optional body
	Body []byte
}

// Read reads a response.
func (res *Response) Read(rb *bufio.Reader) error {
	byts, err := readBytesLimited(rb, '\n', 255)
	if err != nil {
		return err
	}

	line := strings.TrimRight(string(byts), "\r\n")

	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return fmt.Errorf("invalid status line '%s'", line)
	}

	if fields[0] != rtspProtocol10 {
		return fmt.Errorf("expected '%s', got '%s'", rtspProtocol10, fields[0])
	}

	statusCode, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return fmt.Errorf("unable to parse status code")
	}
	res.StatusCode = StatusCode(statusCode)

	res.StatusMessage = fields[2]
	if len(res.StatusMessage) == 0 {
		return fmt.Errorf("empty status")
	}

	err = res.Header.read(rb)
	if err != nil {
		return err
	}

	cl, err := contentLength(res.Header)
	if err != nil {
		return err
	}

	res.Body = nil
	if cl != 0 {
		res.Body = make([]byte, cl)
		_, err = io.ReadFull(rb, res.Body)
		if err != nil {
			return err
		}
	}

	return nil
}

// Marshal encodes a response.
// Content-Length is set to the exact size of the body.
func (res Response) Marshal() ([]byte, error) {
	if res.StatusMessage == "" {
		if status, ok := StatusMessages[res.StatusCode]; ok {
			res.StatusMessage = status
		}
	}

	var buf bytes.Buffer

	buf.WriteString(rtspProtocol10 + " " + strconv.FormatInt(int64(res.StatusCode), 10) +
		" " + res.StatusMessage + "\r\n")

	h := make(Header, len(res.Header)+1)
	for k, v := range res.Header {
		h[k] = v
	}
	if len(res.Body) != 0 {
		h["Content-Length"] = HeaderValue{strconv.FormatInt(int64(len(res.Body)), 10)}
	}

	buf.Write(h.marshal())
	buf.Write(res.Body)

	return buf.Bytes(), nil
}

// String implements fmt.Stringer.
func (res Response) String() string {
	buf, _ := res.Marshal()
	return string(buf)
}

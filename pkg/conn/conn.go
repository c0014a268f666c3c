// Package conn contains a RTSP connection implementation.
package conn

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bluenviron/camrtsp/pkg/base"
	"github.com/bluenviron/camrtsp/pkg/liberrors"
)

const (
	readBufferSize        = 4096
	defaultRequestMaxSize = 1024
)

// Conn is a RTSP connection.
// A Conn is used either on the server side, to read requests,
// or on the client side, to read responses.
type Conn struct {
	// maximum size of the header section of a request (optional).
	// It defaults to 1024.
	RequestMaxSize int

	w   io.Writer
	br  *bufio.Reader
	buf []byte
	tmp []byte
}

// NewConn allocates a Conn.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		w:   rw,
		br:  bufio.NewReaderSize(rw, readBufferSize),
		tmp: make([]byte, readBufferSize),
	}
}

// Buffered returns the number of bytes of a partial request that have been received.
func (c *Conn) Buffered() int {
	return len(c.buf)
}

// ReadRequest reads a Request.
// Bytes are accumulated until a complete request is available.
// If the underlying reader returns an error, it is returned and received bytes are kept,
// therefore a read deadline can be used to poll the connection.
func (c *Conn) ReadRequest() (*base.Request, error) {
	maxSize := c.RequestMaxSize
	if maxSize == 0 {
		maxSize = defaultRequestMaxSize
	}

	for {
		n, err := base.FrameSize(c.buf)
		if err != nil {
			c.buf = nil
			return nil, err
		}

		if n == 0 && len(c.buf) > maxSize {
			c.buf = nil
			return nil, liberrors.ErrRequestMalformed{
				Reason: fmt.Sprintf("header section exceeds %d bytes", maxSize),
			}
		}

		if n != 0 && len(c.buf) >= n {
			frame := c.buf[:n]
			c.buf = append([]byte(nil), c.buf[n:]...)
			return base.ParseRequest(frame)
		}

		rn, err := c.br.Read(c.tmp)
		c.buf = append(c.buf, c.tmp[:rn]...)
		if err != nil {
			return nil, err
		}
	}
}

// ReadResponse reads a Response.
func (c *Conn) ReadResponse() (*base.Response, error) {
	var res base.Response
	err := res.Read(c.br)
	return &res, err
}

// WriteRequest writes a request.
func (c *Conn) WriteRequest(req *base.Request) error {
	buf, _ := req.Marshal()
	_, err := c.w.Write(buf)
	return err
}

// WriteResponse writes a response.
func (c *Conn) WriteResponse(res *base.Response) error {
	buf, _ := res.Marshal()
	_, err := c.w.Write(buf)
	return err
}

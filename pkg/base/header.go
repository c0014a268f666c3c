package base

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	headerMaxEntryCount  = 255
	headerMaxKeyLength   = 512
	headerMaxValueLength = 2048
)

func headerKeyNormalize(in string) string {
	switch strings.ToLower(in) {
	case "cseq":
		return "CSeq"

	case "rtp-info":
		return "RTP-Info"

	case "www-authenticate":
		return "WWW-Authenticate"
	}
	return http.CanonicalHeaderKey(in)
}

// HeaderValue is an header value.
type HeaderValue []string

// Header is a RTSP header, present in both Requests and Responses.
type Header map[string]HeaderValue

// unmarshalLines fills the header from lines without terminators.
// Lines without a colon are skipped.
func (h *Header) unmarshalLines(lines []string) error {
	*h = make(Header)

	for _, line := range lines {
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			continue
		}

		if len(*h) >= headerMaxEntryCount {
			return fmt.Errorf("headers count exceeds %d", headerMaxEntryCount)
		}

		key := strings.TrimSpace(line[:i])
		if len(key) > headerMaxKeyLength {
			return fmt.Errorf("header key exceeds %d bytes", headerMaxKeyLength)
		}

		val := strings.TrimLeft(line[i+1:], " \t")
		if len(val) > headerMaxValueLength {
			return fmt.Errorf("header value exceeds %d bytes", headerMaxValueLength)
		}

		key = headerKeyNormalize(key)
		(*h)[key] = append((*h)[key], val)
	}

	return nil
}

func (h *Header) read(rb *bufio.Reader) error {
	var lines []string

	for {
		if len(lines) > headerMaxEntryCount {
			return fmt.Errorf("headers count exceeds %d", headerMaxEntryCount)
		}

		byts, err := readBytesLimited(rb, '\n', headerMaxKeyLength+headerMaxValueLength)
		if err != nil {
			return err
		}

		line := strings.TrimRight(string(byts), "\r\n")
		if line == "" {
			break
		}

		lines = append(lines, line)
	}

	return h.unmarshalLines(lines)
}

func (h Header) marshal() []byte {
	var buf bytes.Buffer

	// sort headers by key
	// in order to obtain deterministic results
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, val := range h[key] {
			buf.WriteString(key + ": " + val + "\r\n")
		}
	}

	buf.WriteString("\r\n")

	return buf.Bytes()
}

package base

import (
	"bufio"
	"bytes"
	"fmt"
)

// HeaderEnd returns the size of the header section of a message,
// including the terminating blank line, or -1 if the blank line has not been received yet.
// Both CRLF and bare LF line endings are accepted.
func HeaderEnd(buf []byte) int {
	for i := 0; i < len(buf); i++ {
		if buf[i] != '\n' {
			continue
		}

		switch {
		case bytes.HasPrefix(buf[i+1:], []byte("\r\n")):
			return i + 3

		case bytes.HasPrefix(buf[i+1:], []byte("\n")):
			return i + 2
		}
	}
	return -1
}

func splitLines(buf []byte) []string {
	lines := bytes.Split(buf, []byte("\n"))
	ret := make([]string, 0, len(lines))

	for _, line := range lines {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		ret = append(ret, string(line))
	}

	return ret
}

func readBytesLimited(rb *bufio.Reader, delim byte, n int) ([]byte, error) {
	for i := 1; i <= n; i++ {
		byts, err := rb.Peek(i)
		if err != nil {
			return nil, err
		}

		if byts[len(byts)-1] == delim {
			rb.Discard(len(byts)) //nolint:errcheck
			return byts, nil
		}
	}
	return nil, fmt.Errorf("buffer length exceeds %d", n)
}

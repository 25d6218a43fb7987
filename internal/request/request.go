// Package request reads a single HTTP request head from a connection and
// parses its request line.
package request

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/f4ah6o/statichttp/internal/httperr"
)

// DefaultMaxBytes caps how much of a request head is buffered.
const DefaultMaxBytes = 4095

const readChunk = 512

var (
	// Terminator ends the header section.
	Terminator = []byte("\r\n\r\n")
	crlf       = []byte("\r\n")
)

// Line is the part of the request line the server looks at.
type Line struct {
	Method string
	Target string
}

// Read accumulates bytes from r until the header terminator has been seen or
// maxBytes have been buffered, whichever comes first.
//
// With the terminator present the returned slice ends right after it; any
// bytes the client sent beyond it are dropped. A full buffer without a
// terminator is returned as is and left to ParseLine. A read that yields no
// data or fails before either condition holds returns an *httperr.Error of kind
// ConnectionClosed or ReadFailure, and the buffered bytes are discarded.
//
// onLine, if not nil, is called once as soon as the first "\r\n" has been
// buffered, i.e. when the request line is complete.
func Read(r io.Reader, maxBytes int, onLine func()) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	buf := make([]byte, 0, min(maxBytes, readChunk))
	chunk := make([]byte, min(maxBytes, readChunk))
	for len(buf) < maxBytes {
		n, err := r.Read(chunk[:min(len(chunk), maxBytes-len(buf))])
		if n > 0 {
			// Only the tail can complete a terminator split across reads.
			from := max(0, len(buf)-len(Terminator)+1)
			lineFrom := max(0, len(buf)-1)
			buf = append(buf, chunk[:n]...)
			if onLine != nil && bytes.Contains(buf[lineFrom:], crlf) {
				onLine()
				onLine = nil
			}
			if i := bytes.Index(buf[from:], Terminator); i >= 0 {
				return buf[:from+i+len(Terminator)], nil
			}
		}
		switch {
		case err == nil && n > 0:
			continue
		case err == nil, errors.Is(err, io.EOF):
			return nil, httperr.New(httperr.ConnectionClosed, err)
		default:
			return nil, httperr.New(httperr.ReadFailure, err)
		}
	}
	return buf, nil
}

// ParseLine extracts method and target from the first line of raw.
//
// The line is split on whitespace; a third token (the protocol version) and
// anything after it are ignored. The target is returned undecoded.
func ParseLine(raw []byte) (Line, error) {
	i := bytes.Index(raw, crlf)
	if i < 0 {
		return Line{}, httperr.New(httperr.IncompleteRequestLine, nil)
	}
	fields := strings.Fields(string(raw[:i]))
	if len(fields) < 2 {
		return Line{}, httperr.New(httperr.MissingTarget, nil)
	}
	return Line{Method: fields[0], Target: fields[1]}, nil
}

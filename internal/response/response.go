// Package response writes the single reply a connection gets: a file with
// 200 OK, or the 404 page.
package response

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/f4ah6o/statichttp/internal/httperr"
	"github.com/f4ah6o/statichttp/internal/mime"
)

const (
	// DefaultChunkSize is the buffer used to stream file bodies.
	DefaultChunkSize = 4096
	// DefaultNotFoundText is the heading of the 404 page.
	DefaultNotFoundText = "404 Not Found"

	protocol = "HTTP/1.1"
	crlf     = "\r\n"
)

// Result describes what was sent.
type Result struct {
	Status        int
	ContentType   string
	ContentLength int64 // -1 when no Content-Length header was sent
	BodyBytes     int64
}

// Writer renders responses for resolved filesystem paths.
type Writer struct {
	mime         *mime.Resolver
	chunkSize    int
	notFoundBody []byte
}

// New builds a Writer. A nil resolver means the built-in MIME table, a
// non-positive chunkSize means DefaultChunkSize and an empty notFoundText
// means DefaultNotFoundText.
func New(resolver *mime.Resolver, chunkSize int, notFoundText string) (*Writer, error) {
	if resolver == nil {
		resolver = mime.New(nil)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if notFoundText == "" {
		notFoundText = DefaultNotFoundText
	}
	body, err := renderHeading(notFoundText)
	if err != nil {
		return nil, fmt.Errorf("render 404 page: %w", err)
	}
	return &Writer{mime: resolver, chunkSize: chunkSize, notFoundBody: body}, nil
}

// renderHeading returns text as an escaped <h1> element.
func renderHeading(text string) ([]byte, error) {
	h1 := &html.Node{Type: html.ElementNode, DataAtom: atom.H1, Data: atom.H1.String()}
	h1.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	var buf bytes.Buffer
	if err := html.Render(&buf, h1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ServeFile writes fsPath to dst as a 200 response, or the 404 page when the
// path cannot be opened, cannot be stat'ed or is a directory.
//
// Exactly the size reported by stat is sent, so Content-Length always
// matches the body even if the file changes while it is streamed.
func (w *Writer) ServeFile(dst io.Writer, fsPath string) (Result, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return w.NotFound(dst)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return w.NotFound(dst)
	}

	res := Result{
		Status:        http.StatusOK,
		ContentType:   w.mime.TypeOf(fsPath),
		ContentLength: info.Size(),
	}

	bw := bufio.NewWriterSize(dst, w.chunkSize)
	writeStatusLine(bw, res.Status)
	writeHeader(bw, "Content-Type", res.ContentType)
	writeHeader(bw, "Content-Length", strconv.FormatInt(res.ContentLength, 10))
	writeHeader(bw, "Connection", "close")
	bw.WriteString(crlf)
	if err := bw.Flush(); err != nil {
		return res, httperr.New(httperr.WriteFailure, err)
	}

	body := &errWriter{w: dst}
	n, err := io.CopyBuffer(body, io.LimitReader(f, res.ContentLength), make([]byte, w.chunkSize))
	res.BodyBytes = n
	switch {
	case body.err != nil:
		return res, httperr.New(httperr.WriteFailure, body.err)
	case err != nil:
		return res, httperr.New(httperr.ReadFailure, err)
	case n < res.ContentLength:
		return res, httperr.New(httperr.ReadFailure, io.ErrUnexpectedEOF)
	}
	return res, nil
}

// NotFound writes the 404 page. It carries Access-Control-Allow-Origin and
// no Content-Length; the connection close ends the body.
func (w *Writer) NotFound(dst io.Writer) (Result, error) {
	res := Result{
		Status:        http.StatusNotFound,
		ContentType:   "text/html",
		ContentLength: -1,
		BodyBytes:     int64(len(w.notFoundBody)),
	}

	bw := bufio.NewWriterSize(dst, w.chunkSize)
	writeStatusLine(bw, res.Status)
	writeHeader(bw, "Content-Type", res.ContentType)
	writeHeader(bw, "Access-Control-Allow-Origin", "*")
	writeHeader(bw, "Connection", "close")
	bw.WriteString(crlf)
	bw.Write(w.notFoundBody)
	if err := bw.Flush(); err != nil {
		res.BodyBytes = 0
		return res, httperr.New(httperr.WriteFailure, err)
	}
	return res, nil
}

// Write errors are sticky in bufio.Writer and surface from Flush.
func writeStatusLine(bw *bufio.Writer, code int) {
	bw.WriteString(protocol + " " + strconv.Itoa(code) + " " + http.StatusText(code) + crlf)
}

func writeHeader(bw *bufio.Writer, key, value string) {
	bw.WriteString(key + ": " + value + crlf)
}

// errWriter remembers the first write error so that it can be told apart
// from a read error on the file. It also hides any ReadFrom on dst, which
// keeps the body going out in chunkSize pieces.
type errWriter struct {
	w   io.Writer
	err error
}

func (c *errWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}

// Package server accepts connections and answers each with one static file
// or a 404 page before closing it.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/f4ah6o/statichttp/internal/config"
	"github.com/f4ah6o/statichttp/internal/httperr"
	"github.com/f4ah6o/statichttp/internal/mime"
	"github.com/f4ah6o/statichttp/internal/request"
	"github.com/f4ah6o/statichttp/internal/response"
	"github.com/f4ah6o/statichttp/internal/urlpath"
)

const (
	maxAcceptDelay = time.Second

	// lingerTimeout and lingerBytes bound how long and how much unread input
	// is drained before close, so that the peer gets our reply instead of a
	// reset.
	lingerTimeout = 250 * time.Millisecond
	lingerBytes   = 64 << 10
)

// Server serves files under cfg.DocumentRoot. All state it touches while
// handling a connection is local to that connection.
type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	resolver urlpath.Resolver
	writer   *response.Writer

	// onState observes every state change; tests use it.
	onState func(id string, s State)
}

// New validates cfg and prepares a Server.
func New(cfg config.Config, log zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	w, err := response.New(mime.New(cfg.MIMETypes), cfg.ChunkSize, cfg.NotFoundText)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg: cfg,
		log: log,
		resolver: urlpath.Resolver{
			IndexFile:        cfg.IndexFile,
			NormalizeUnicode: cfg.NormalizeUnicode,
		},
		writer: w,
	}, nil
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln and
// returns nil once in-flight connections are done.
//
// With Concurrency 1 each connection is handled to completion before the next
// Accept. Larger values handle up to that many connections in parallel.
// Accept errors are logged and retried with a growing delay; they never stop
// the loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.Concurrency > 1 {
		ln = netutil.LimitListener(ln, s.cfg.Concurrency)
	}
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			delay = min(max(2*delay, 5*time.Millisecond), maxAcceptDelay)
			s.log.Error().Err(err).Dur("retry_in", delay).Msg("accept failed")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		if s.cfg.Concurrency == 1 {
			s.ServeConn(conn)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ServeConn(conn)
		}()
	}
}

// ServeConn reads one request from conn, responds and closes conn.
// Requests that cannot be parsed are closed without a response.
func (s *Server) ServeConn(conn net.Conn) {
	c := &connection{
		id:      uuid.NewString(),
		onState: s.onState,
	}
	log := s.log.With().Str("req", c.id).Str("remote", remoteAddr(conn)).Logger()
	c.log = &log
	c.set(AwaitingRequestLine)
	defer func() {
		linger(conn)
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("close failed")
		}
		c.set(Closed)
	}()

	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	raw, err := request.Read(conn, s.cfg.MaxRequestBytes, func() { c.set(AwaitingHeadersEnd) })
	if err != nil {
		if errors.Is(err, httperr.ConnectionClosed) {
			log.Debug().Err(err).Msg("client went away before the header terminator")
		} else {
			log.Warn().Err(err).Msg("reading request")
		}
		return
	}
	log.Debug().Str("raw", string(raw)).Msg("request")

	line, err := request.ParseLine(raw)
	if err != nil {
		log.Debug().Err(err).Msg("dropping request")
		return
	}
	c.set(Dispatched)

	resolved := s.resolver.Resolve(line.Target)
	fsPath := urlpath.Join(s.cfg.DocumentRoot, resolved)
	log.Info().Str("method", line.Method).Str("target", line.Target).Str("path", resolved).Msg("resolved")

	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	var res response.Result
	if !s.cfg.AllowTraversal && !urlpath.Contained(s.cfg.DocumentRoot, fsPath) {
		log.Warn().Str("path", fsPath).Msg("path escapes document root")
		res, err = s.writer.NotFound(conn)
	} else {
		res, err = s.writer.ServeFile(conn, fsPath)
	}
	if err != nil {
		log.Warn().Err(err).Int("status", res.Status).Int64("bytes", res.BodyBytes).Msg("response aborted")
		return
	}
	c.set(ResponseSent)
	log.Info().Int("status", res.Status).Str("type", res.ContentType).Int64("bytes", res.BodyBytes).Msg("sent")
}

type connection struct {
	id      string
	state   State
	log     *zerolog.Logger
	onState func(id string, s State)
}

func (c *connection) set(s State) {
	c.state = s
	c.log.Trace().Stringer("state", s).Msg("state")
	if c.onState != nil {
		c.onState(c.id, s)
	}
}

// linger half-closes TCP connections and discards whatever the client still
// sends, until it closes too or lingerTimeout passes.
func linger(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok || cw.CloseWrite() != nil {
		return
	}
	conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	io.CopyN(io.Discard, conn, lingerBytes)
}

func remoteAddr(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

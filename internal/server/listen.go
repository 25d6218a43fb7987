package server

import (
	"errors"
	"net"
	"strconv"

	"github.com/f4ah6o/statichttp/internal/config"
	"github.com/f4ah6o/statichttp/internal/httperr"
)

// errNoBacklog means the platform listener cannot serve this address with an
// explicit backlog and net.Listen should be used instead.
var errNoBacklog = errors.New("explicit backlog not supported for address")

// Listen opens the TCP listener described by cfg: Host (empty for all
// interfaces), Port and Backlog. IPv4 addresses on unix systems get the exact
// backlog; other addresses fall back to net.Listen and the OS default.
// Failures are *httperr.Error of kind ListenFailure.
func Listen(cfg config.Config) (net.Listener, error) {
	ln, err := listenBacklog(cfg.Host, cfg.Port, cfg.Backlog)
	if errors.Is(err, errNoBacklog) {
		ln, err = net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	}
	if err != nil {
		return nil, httperr.New(httperr.ListenFailure, err)
	}
	return ln, nil
}

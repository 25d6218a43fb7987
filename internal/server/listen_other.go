//go:build !unix

package server

import "net"

func listenBacklog(string, int, int) (net.Listener, error) {
	return nil, errNoBacklog
}

//go:build unix

package server

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenBacklog creates, binds and listens on an IPv4 socket by hand, because
// net.Listen always uses the system's maximum backlog.
func listenBacklog(host string, port, backlog int) (net.Listener, error) {
	ip := net.IPv4zero
	if host != "" {
		addr, err := net.ResolveIPAddr("ip4", host)
		if err != nil {
			if parsed := net.ParseIP(host); parsed != nil {
				return nil, errNoBacklog
			}
			return nil, err
		}
		ip = addr.IP
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, errNoBacklog
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip4)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s:%d: %w", ip4, port, os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener dups fd, so the *os.File is closed either way.
	f := os.NewFile(uintptr(fd), fmt.Sprintf("tcp4:%s:%d", ip4, port))
	defer f.Close()
	return net.FileListener(f)
}

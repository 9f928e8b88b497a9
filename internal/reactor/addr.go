package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// resolveTCPAddr turns a "host:port" (or ":port") string into the raw
// sockaddr the unix.Bind syscall needs, reusing net's own resolver so DNS
// names and the empty host (meaning INADDR_ANY) are both handled.
func resolveTCPAddr(addr string) (unix.Sockaddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}

	var ip [4]byte
	if v4 := tcpAddr.IP.To4(); v4 != nil {
		copy(ip[:], v4)
	} else if tcpAddr.IP != nil {
		return nil, fmt.Errorf("reactor: %s does not resolve to an IPv4 address", addr)
	}

	return &unix.SockaddrInet4{Port: tcpAddr.Port, Addr: ip}, nil
}

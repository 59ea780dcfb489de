package failover

import (
	"net"
	"os"
	"regexp"
	"strings"
)

var localhostIPv4 = regexp.MustCompile(`^127\.\d+\.\d+\.\d+$`)

// LocalHostDetector reports whether host names an address local to the
// running process, used to implement the priorityBackup option's
// "prefer local connections to remote connections" rule (spec.md
// §4.4, pinned down by original_source's isLocalHost).
type LocalHostDetector func(host string) bool

// DefaultLocalHostDetector mirrors the original webstompest isLocalHost
// chain: the literal "localhost", any 127.x.x.x loopback address, or a
// match against the machine's own hostname, one of its resolved
// addresses, or its canonical name.
func DefaultLocalHostDetector(host string) bool {
	if host == "localhost" || localhostIPv4.MatchString(host) {
		return true
	}

	hostname, err := os.Hostname()
	if err != nil {
		return false
	}
	if host == hostname {
		return true
	}

	if addrs, err := net.LookupHost(hostname); err == nil {
		for _, addr := range addrs {
			if addr == host {
				return true
			}
		}
	}

	if cname, err := net.LookupCNAME(hostname); err == nil {
		if host == strings.TrimSuffix(cname, ".") {
			return true
		}
	}

	return false
}

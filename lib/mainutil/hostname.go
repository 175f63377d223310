package mainutil

import (
	"os"
	"strings"
)

// Hostname returns $HOSTNAME if set, else the kernel's hostname, else
// "localhost".  Any trailing dot is removed.
func Hostname() string {
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		var err error
		hostname, err = os.Hostname()
		if err != nil {
			return "localhost"
		}
	}
	return strings.TrimRight(hostname, ".")
}

package client

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/overlay/config"
)

// New returns a RemoteClient when a host is listening on the configured
// socket, otherwise a LocalClient reading the files named by cfg.
func New(cfg *config.Config) Client {
	if cfg == nil {
		cfg = config.Default()
	}

	socketPath := cfg.Server.Socket
	if _, err := os.Stat(socketPath); err == nil {
		conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return NewRemoteClient(socketPath)
		}
	}
	return NewLocalClient(cfg)
}

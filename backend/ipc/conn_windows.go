//go:build windows

package ipc

import (
	"net"
	"os"
	"os/user"
	"regexp"

	"github.com/Microsoft/go-winio"
)

// Environment variable overriding the pipe name.
const SocketPathEnv = "MEDIADECK_SOCKET"

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SocketPath returns the per-user named pipe of the running instance.
func SocketPath() string {
	if p := os.Getenv(SocketPathEnv); p != "" {
		return p
	}
	name := `\\.\pipe\mediadeck`
	if u, err := user.Current(); err == nil {
		name += nonAlnum.ReplaceAllString(u.Username, "")
	}
	return name
}

func Dial() (net.Conn, error) {
	return winio.DialPipe(SocketPath(), nil)
}

func Listen() (net.Listener, error) {
	return winio.ListenPipe(SocketPath(), &winio.PipeConfig{InputBufferSize: 4096, OutputBufferSize: 4096})
}

func DestroyConn() error {
	// Windows named pipes automatically clean up
	return nil
}

//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// Environment variable overriding the socket location,
// e.g. for running several independent instances.
const SocketPathEnv = "MEDIADECK_SOCKET"

// SocketPath returns the socket location based on platform conventions:
//   - macOS: ~/Library/Caches/mediadeck/mediadeck.sock
//   - Linux/Unix: $XDG_RUNTIME_DIR/mediadeck.sock
//
// falling back to /tmp/mediadeck-{uid}.sock.
func SocketPath() string {
	if p := os.Getenv(SocketPathEnv); p != "" {
		return p
	}
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Caches", "mediadeck", "mediadeck.sock")
		}
	} else if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "mediadeck.sock")
	}
	if u, err := user.Current(); err == nil {
		return fmt.Sprintf("/tmp/mediadeck-%s.sock", u.Uid)
	}
	return "/tmp/mediadeck.sock"
}

// Dial establishes a connection to the IPC socket.
// Returns an error if the socket doesn't exist or connection fails.
func Dial() (net.Conn, error) {
	return net.Dial("unix", SocketPath())
}

// Listen creates a Unix domain socket listener at SocketPath.
// A socket file left behind by a crashed instance is replaced.
// The socket file should be cleaned up with DestroyConn() when done.
func Listen() (net.Listener, error) {
	p := SocketPath()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}
	l, err := net.Listen("unix", p)
	if err != nil && (errors.Is(err, os.ErrExist) || isAddrInUse(err)) {
		if conn, dErr := net.Dial("unix", p); dErr == nil {
			conn.Close()
			return nil, err // another instance is listening
		}
		os.Remove(p)
		l, err = net.Listen("unix", p)
	}
	return l, err
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr *os.SyscallError
		if errors.As(opErr.Err, &sysErr) {
			return sysErr.Syscall == "bind"
		}
	}
	return false
}

// DestroyConn removes the Unix socket file from the filesystem.
// Should be called during application shutdown.
func DestroyConn() error {
	return os.Remove(SocketPath())
}

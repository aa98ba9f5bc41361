// Package control implements rrdcached's local administrative socket:
// a newline-delimited text protocol, in the spirit of the real-world
// rrdcached's own UNIX socket control interface, that lets
// cmd/rrdcachectl drive a flush or list pending filenames without
// reaching into the daemon's process directly. It is a stripped-down
// sibling of the teacher's TCP listener in internal/server/server.go:
// same net.Listener/Accept/go handleConn shape, minus the TLS and
// session/auth layers that daemon needs for a multi-tenant remote
// service and this one, a socket reachable only by local operators
// with filesystem access to it, does not.
package control

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/xtxerr/rrdcached/internal/logging"
)

var controlLog = logging.Component("control")

// Core is the subset of *core.Core the control socket drives.
type Core interface {
	Flush(ageThreshold int64, identifier string) error
	PendingFiles() []string
	QueueDepth() int
	CacheEntries() int
}

// Server listens on a UNIX domain socket and serves FLUSH/FLUSHALL/
// LIST/STATS commands, one per line, against a Core.
type Server struct {
	core     Core
	sockPath string

	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a Server bound to sockPath. Call ListenAndServe to start
// accepting connections.
func New(core Core, sockPath string) *Server {
	return &Server{core: core, sockPath: sockPath}
}

// ListenAndServe removes any stale socket file, binds sockPath and
// starts the accept loop in a background goroutine. It returns once
// the listener is bound, not once serving has stopped.
func (s *Server) ListenAndServe() error {
	_ = os.Remove(s.sockPath)

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.sockPath, err)
	}
	s.listener = ln
	controlLog.Info("control socket listening", "path", s.sockPath)

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.handleCommand(w, line)
		w.Flush()
	}
}

func (s *Server) handleCommand(w *bufio.Writer, line string) {
	fields := strings.Fields(line)
	switch strings.ToUpper(fields[0]) {
	case "FLUSH":
		if len(fields) < 2 {
			fmt.Fprintln(w, "ERR usage: FLUSH <identifier>")
			return
		}
		if err := s.core.Flush(0, fields[1]); err != nil {
			fmt.Fprintf(w, "ERR %v\n", err)
			return
		}
		fmt.Fprintln(w, "OK")

	case "FLUSHALL":
		if err := s.core.Flush(0, ""); err != nil {
			fmt.Fprintf(w, "ERR %v\n", err)
			return
		}
		fmt.Fprintln(w, "OK")

	case "LIST":
		for _, filename := range s.core.PendingFiles() {
			fmt.Fprintln(w, filename)
		}
		fmt.Fprintln(w, "OK")

	case "STATS":
		fmt.Fprintf(w, "queue_depth=%d cache_entries=%d\n", s.core.QueueDepth(), s.core.CacheEntries())
		fmt.Fprintln(w, "OK")

	default:
		fmt.Fprintf(w, "ERR unknown command %q\n", fields[0])
	}
}

// Close stops accepting new connections and waits for in-flight ones
// to finish, then removes the socket file.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.wg.Wait()
	_ = os.Remove(s.sockPath)
	return err
}

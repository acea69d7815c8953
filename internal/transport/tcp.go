// Package transport is the external interface shim: one TCP listener,
// one goroutine per accepted connection, following an admit → serve →
// release connection lifecycle and speaking a flat ASCII line grammar.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/collabmd/server/internal/auditlog"
	"github.com/collabmd/server/internal/batch"
	"github.com/collabmd/server/internal/document"
	"github.com/collabmd/server/internal/queue"
	"github.com/collabmd/server/internal/registry"
	"github.com/collabmd/server/internal/snapshot"
)

// Server accepts connections and turns each into an admitted session.
type Server struct {
	listener net.Listener
	queue    *queue.Queue[batch.Record]
	doc      *document.Document
	registry *registry.Registry
	audit    *auditlog.Service
	snap     *snapshot.Writer
	logger   *slog.Logger
}

// Listen opens a TCP listener at addr and returns a Server ready to
// Serve. The caller is expected to print the listener's address to
// stdout as the transport identifier at startup.
func Listen(
	addr string,
	q *queue.Queue[batch.Record],
	doc *document.Document,
	reg *registry.Registry,
	audit *auditlog.Service,
	snap *snapshot.Writer,
	logger *slog.Logger,
) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &Server{
		listener: ln,
		queue:    q,
		doc:      doc,
		registry: reg,
		audit:    audit,
		snap:     snap,
		logger:   logger,
	}, nil
}

// Addr returns the listener's bound address, the transport identifier.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until ctx is cancelled, at which point the
// listener is closed and Serve returns ctx's error.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return fmt.Errorf("transport: accept: %w", err)
			}
		}
		go s.handleConn(conn)
	}
}

// handleConn implements the admit → serve → release lifecycle for one
// connection: read the username, admit it, bootstrap the client, then
// loop reading command lines until EOF or DISCONNECT.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	user, err := readLine(reader)
	if err != nil {
		return
	}

	outbox := make(chan string, 64)
	sess, err := s.registry.Admit(user, outbox)
	if err != nil {
		switch {
		case err == registry.ErrFull:
			fmt.Fprint(conn, "FULL\n")
		default:
			fmt.Fprint(conn, "UNAUTHORISED\n")
		}
		return
	}
	defer s.release(sess.ID)

	if err := s.bootstrap(conn, sess); err != nil {
		if s.logger != nil {
			s.logger.Warn("bootstrap failed", "session", sess.ID, "error", err)
		}
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.pump(conn, outbox, done)

	s.serveLines(conn, reader, sess)
}

// bootstrap writes "<role>\n<version>\n<byte-length>\n<bytes>", the
// initial snapshot sent on connect.
func (s *Server) bootstrap(conn net.Conn, sess *registry.Session) error {
	s.doc.RLock()
	version := s.doc.Version()
	content := s.doc.Flatten()
	s.doc.RUnlock()

	_, err := fmt.Fprintf(conn, "%s\n%d\n%d\n%s", sess.Role, version, len(content), content)
	return err
}

// pump forwards broadcast lines from outbox to conn until done closes.
func (s *Server) pump(conn net.Conn, outbox <-chan string, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case line, ok := <-outbox:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(conn, line); err != nil {
				return
			}
		}
	}
}

// serveLines reads one command per line and dispatches queries inline
// or enqueues mutator lines for the batch loop.
func (s *Server) serveLines(conn net.Conn, reader *bufio.Reader, sess *registry.Session) {
	for {
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if line == "" {
			continue
		}

		switch line {
		case "DISCONNECT":
			return
		case "DOC?":
			s.doc.RLock()
			content := s.doc.Flatten()
			s.doc.RUnlock()
			fmt.Fprintf(conn, "DOC?\n%s\n", content)
		case "PERM?":
			fmt.Fprintf(conn, "PERM?\n%s\n", sess.Role)
		case "LOG?":
			fmt.Fprintf(conn, "LOG?\n%s", s.audit.All())
		default:
			_, err := s.queue.Push(batch.Record{
				SessionID: sess.ID,
				User:      sess.User,
				Line:      line,
				Enqueued:  time.Now(),
			})
			if err != nil && s.logger != nil {
				s.logger.Warn("command dropped, queue full", "session", sess.ID, "error", err)
			}
		}
	}
}

func (s *Server) release(sessionID string) {
	s.registry.Release(sessionID)
	if s.snap != nil {
		if err := s.snap.Write(); err != nil && s.logger != nil {
			s.logger.Error("snapshot on disconnect failed", "error", err)
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

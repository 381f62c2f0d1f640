package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/downfa11-org/go-journal/pkg/controller"
	"github.com/downfa11-org/go-journal/util"
)

const (
	maxWorkers   = 64
	maxFrameSize = 1 << 20
	idleTimeout  = 5 * time.Minute
)

// Server exposes the command shell over TCP. Every frame is a 4-byte big-endian length
// followed by a command line; the reply uses the same framing.
type Server struct {
	handler      *controller.CommandHandler
	defaultGroup string

	ln     net.Listener
	connCh chan net.Conn
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(handler *controller.CommandHandler, defaultGroup string) *Server {
	return &Server{
		handler:      handler,
		defaultGroup: defaultGroup,
		connCh:       make(chan net.Conn, maxWorkers),
		conns:        make(map[net.Conn]struct{}),
	}
}

// Listen binds addr; Serve must be called afterwards.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("server is not listening")
	}
	util.Info("🧩 Journal command server listening on %s", s.ln.Addr())

	for i := 0; i < maxWorkers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for conn := range s.connCh {
				s.HandleConnection(conn)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
	}()

	defer func() {
		close(s.connCh)
		s.wg.Wait()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				util.Warn("⚠️ Accept error: %v", err)
				continue
			}
			return err
		}
		s.track(conn, true)
		s.connCh <- conn
	}
}

// HandleConnection runs one client session until it disconnects.
func (s *Server) HandleConnection(conn net.Conn) {
	defer func() {
		s.track(conn, false)
		conn.Close()
	}()

	ctx := controller.NewClientContext(s.defaultGroup)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		cmd, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				util.Debug("read from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		resp := s.handler.HandleCommand(string(cmd), ctx)
		if err := WriteFrame(conn, []byte(resp)); err != nil {
			util.Debug("write to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// ReadFrame reads one length-prefixed frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf)
	if n > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func WriteFrame(w io.Writer, data []byte) error {
	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	_, err := w.Write(frame)
	return err
}

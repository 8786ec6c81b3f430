package socket

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/transport"
)

// Listener wraps a net.Listener with the trust source its connections carry.
// Accepted connections are wrapped so an http.Server ConnContext hook can
// recover the source.
type Listener struct {
	net.Listener
	Source  transport.ConnectionSource
	Address string
}

// Accept returns the next connection tagged with the listener source.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &sourcedConn{Conn: conn, source: l.Source}, nil
}

// sourcedConn carries the connection source alongside the raw connection.
type sourcedConn struct {
	net.Conn
	source transport.ConnectionSource
}

// ConnectionSource reports how this connection reached the shell.
func (c *sourcedConn) ConnectionSource() transport.ConnectionSource { return c.source }

// ListenTCP creates the loopback TCP listener for browsers and tools.
func ListenTCP(addr string, logger *zap.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP listener: %w", err)
	}
	logger.Info("TCP listener created", zap.String("address", ln.Addr().String()))
	return &Listener{Listener: ln, Source: transport.ConnectionSourceTCP, Address: ln.Addr().String()}, nil
}

// Listen creates the control socket listener for the endpoint.
func Listen(endpoint string, logger *zap.Logger) (*Listener, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path, ok := strings.CutPrefix(endpoint, "unix://"); ok {
		return listenUnix(path, logger)
	}
	if pipe, ok := strings.CutPrefix(endpoint, "npipe://"); ok {
		return listenNamedPipe(pipe, logger)
	}
	return nil, fmt.Errorf("unsupported control endpoint scheme: %s (expected unix:// or npipe://)", endpoint)
}

// Multiplex serves several listeners as one so a single HTTP server can
// accept from the TCP listener and the control socket at the same time.
func Multiplex(logger *zap.Logger, listeners ...*Listener) net.Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make([]*Listener, 0, len(listeners))
	for _, ln := range listeners {
		if ln != nil {
			active = append(active, ln)
		}
	}
	return &multiplexListener{listeners: active, logger: logger, done: make(chan struct{})}
}

type multiplexListener struct {
	listeners []*Listener
	logger    *zap.Logger

	once      sync.Once
	closeOnce sync.Once
	connCh    chan net.Conn
	errCh     chan error
	done      chan struct{}
}

func (m *multiplexListener) Accept() (net.Conn, error) {
	m.once.Do(func() {
		m.connCh = make(chan net.Conn)
		m.errCh = make(chan error, len(m.listeners))
		for _, ln := range m.listeners {
			go m.acceptLoop(ln)
		}
	})

	select {
	case conn := <-m.connCh:
		return conn, nil
	case err := <-m.errCh:
		return nil, err
	case <-m.done:
		return nil, net.ErrClosed
	}
}

func (m *multiplexListener) acceptLoop(ln *Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-m.done:
			default:
				m.logger.Error("Listener accept error",
					zap.Error(err),
					zap.String("source", string(ln.Source)),
					zap.String("address", ln.Address))
				select {
				case m.errCh <- err:
				case <-m.done:
				}
			}
			return
		}

		select {
		case m.connCh <- conn:
		case <-m.done:
			conn.Close()
			return
		}
	}
}

func (m *multiplexListener) Close() error {
	var firstErr error
	m.closeOnce.Do(func() {
		close(m.done)
		for _, ln := range m.listeners {
			if err := ln.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

func (m *multiplexListener) Addr() net.Addr {
	if len(m.listeners) > 0 {
		return m.listeners[0].Addr()
	}
	return &net.TCPAddr{}
}

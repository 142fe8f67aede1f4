// Package websocket exposes the terminal to remote clients.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/hubterm/internal/ports"
)

// Path is the endpoint clients connect to.
const Path = "/ws"

const (
	writeTimeout    = time.Second
	clientBuffer    = 256
	shutdownTimeout = 5 * time.Second
)

// Server is a presentation that serves the terminal over websockets. Every
// client receives the output stream as text messages from the moment it
// connects; every message a client sends becomes user input.
type Server struct {
	addr     string
	sender   ports.Sender
	logger   ports.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	source  ports.DataSource
	clients map[*websocket.Conn]struct{}
}

// New creates a server listening on addr once Run is called.
func New(addr string, sender ports.Sender, logger ports.Logger) *Server {
	return &Server{
		addr:   addr,
		sender: sender,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// SetDataSource implements ports.Presentation.
func (s *Server) SetDataSource(src ports.DataSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		s.source = src
	}
}

// Handler returns the HTTP handler serving Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.serveWS)
	return mux
}

// Run serves until ctx is done, then disconnects every client.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("websocket terminal listening", ports.String("addr", s.addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeClients()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	if src == nil {
		http.Error(w, "terminal not ready", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", ports.Err(err))
		return
	}
	s.addClient(conn)
	defer s.removeClient(conn)

	output, unsubscribe := src.Subscribe(clientBuffer)
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for text := range output {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				conn.Close()
				return
			}
		}
	}()

	remote := r.RemoteAddr
	s.logger.Info("websocket client connected", ports.String("remote", remote))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if err := s.sender.Send(r.Context(), string(data)); err != nil {
			s.logger.Warn("websocket input dropped", ports.String("remote", remote), ports.Err(err))
		}
	}

	unsubscribe()
	<-writerDone
	s.logger.Info("websocket client disconnected", ports.String("remote", remote))
}

func (s *Server) addClient(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = struct{}{}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
}

// closeClients disconnects hijacked connections, which http.Server.Shutdown
// does not track.
func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

var _ ports.Presentation = (*Server)(nil)

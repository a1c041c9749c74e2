package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thisdk/komari-sub001/internal/bot"
)

const (
	defaultStreamInterval = 500 * time.Millisecond
	writeWait             = 5 * time.Second
	shutdownTimeout       = 3 * time.Second
)

// Source is the bot as seen by the telemetry server.
type Source interface {
	Snapshot() bot.Snapshot
	Halt()
	Resume()
}

// Server exposes the player snapshot over HTTP and a websocket stream, and lets a client halt
// or resume the operation.
type Server struct {
	addr     string
	source   Source
	logger   *slog.Logger
	upgrader websocket.Upgrader
	interval time.Duration
}

func New(addr string, source Source, logger *slog.Logger) *Server {
	return &Server{
		addr:   addr,
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		interval: defaultStreamInterval,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("GET /ws", s.stream)
	mux.HandleFunc("POST /halt", s.halt)
	mux.HandleFunc("POST /resume", s.resume)

	return mux
}

// Run serves until ctx is done, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Telemetry server listening", slog.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("telemetry server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		s.logger.Warn("Failed to write status", slog.Any("error", err))
	}
}

func (s *Server) halt(w http.ResponseWriter, r *http.Request) {
	s.source.Halt()
	s.status(w, r)
}

func (s *Server) resume(w http.ResponseWriter, r *http.Request) {
	s.source.Resume()
	s.status(w, r)
}

// stream pushes a snapshot on every interval while the tick moved since the last one.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	// The reader only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastTick uint64
	sent := false
	for {
		snapshot := s.source.Snapshot()
		if !sent || snapshot.Tick != lastTick {
			if err = s.write(conn, snapshot); err != nil {
				s.logger.Debug("Websocket client dropped", slog.Any("error", err))
				return
			}
			lastTick, sent = snapshot.Tick, true
		}

		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) write(conn *websocket.Conn, snapshot bot.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}
	if err = conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

// Package ws exposes the realtime core over a websocket endpoint: it
// authenticates the upgrade, builds one Session per connection, and wires
// the session's sink into the router.
package ws

import (
	"chat-relay/auth"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Server struct {
	log        *slog.Logger
	verifier   *auth.Verifier
	router     *runtime.Router
	bufferSize int
	baseCtx    context.Context
	upgrader   websocket.Upgrader
	validate   *validator.Validate
}

// NewServer builds the websocket endpoint. baseCtx bounds the lifetime of
// every session; canceling it closes all connections.
func NewServer(baseCtx context.Context, log *slog.Logger, verifier *auth.Verifier,
	router *runtime.Router, bufferSize int) *Server {
	return &Server{
		log:        log,
		verifier:   verifier,
		router:     router,
		bufferSize: bufferSize,
		baseCtx:    baseCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Credential check is the gate, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		validate: validator.New(),
	}
}

// Handler authenticates and upgrades one connection. Verification runs
// before any session state exists: a rejected token means no presence
// entry and no subscriber-set membership was ever created.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.verifier.Verify(bearerToken(r))
		if err != nil {
			s.log.Warn("Authentication rejected", "remote", r.RemoteAddr, "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		ctx, cancel := context.WithCancel(s.baseCtx)
		session := &Session{
			id:       uuid.NewString(),
			identity: identity,
			conn:     conn,
			sink:     sink.NewBuffered(s.log, s.bufferSize),
			router:   s.router,
			log:      s.log,
			validate: s.validate,
			cancel:   cancel,
		}

		// Attach before the pumps start so the initial online_users
		// snapshot lands in the session's own buffer as well.
		s.router.Attach(ctx, session.id, identity.Username, session.sink)
		s.log.Info("Session opened", "username", identity.Username, "remote", r.RemoteAddr)

		go session.writePump(ctx)
		go session.readLoop(ctx)
	}
}

// bearerToken extracts the credential from the upgrade request: the token
// query parameter, or an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

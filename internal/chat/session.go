package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"lingua/infrastructure"
	"lingua/internal/auth"
)

// Maximum inbound action message size.
const maxMessageSize = 8192

// IdentityResolver authenticates an incoming connection request.
type IdentityResolver interface {
	ResolveRequest(ctx context.Context, r *http.Request) (*auth.Identity, error)
}

// Supervisor owns one connection's lifecycle: handshake, authenticate,
// register, run the action loop, unregister. Each connection runs in
// its own handler goroutine; actions within a connection are strictly
// sequential.
type Supervisor struct {
	resolver IdentityResolver
	registry *Registry
	service  *Service
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewSupervisor(resolver IdentityResolver, registry *Registry, service *Service, log *slog.Logger) *Supervisor {
	return &Supervisor{
		resolver: resolver,
		registry: registry,
		service:  service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (s *Supervisor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	ws.SetReadLimit(maxMessageSize)
	conn := NewConn(ws)

	identity, err := s.resolver.ResolveRequest(r.Context(), r)
	if err != nil {
		detail := "Invalid token"
		if errors.Is(err, infrastructure.ErrMissingToken) {
			detail = "Missing token"
		}
		_ = conn.Send(ErrorEvent{Event: "error", Detail: detail})
		conn.ClosePolicyViolation(detail)
		s.log.Info("rejected connection", "remote_addr", r.RemoteAddr, "reason", detail)
		return
	}

	s.registry.Register(identity.ID, conn)
	// Runs exactly once per registered connection, on every exit path.
	defer func() {
		s.registry.Unregister(identity.ID, conn)
		_ = conn.Close()
		s.log.Info("session closed", "user_id", identity.ID, "conn_id", conn.ID())
	}()

	if err := conn.Send(ConnectedEvent{Event: "connected", UserID: identity.ID, Username: identity.Username}); err != nil {
		return
	}
	s.log.Info("session active", "user_id", identity.ID, "username", identity.Username, "conn_id", conn.ID())

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				s.log.Warn("websocket read failed", "user_id", identity.ID, "conn_id", conn.ID(), "error", err)
			}
			return
		}
		s.service.HandleAction(r.Context(), identity, conn, raw)
	}
}

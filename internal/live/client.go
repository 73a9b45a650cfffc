package live

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/middleware"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 65536
	sendBuffer   = 16
)

// TokenValidator resolves an access token to the user it was issued for.
type TokenValidator func(token string) (uuid.UUID, error)

// Server upgrades /ws/lists requests into sessions.
type Server struct {
	hub      *Hub
	views    map[string]View
	validate TokenValidator
	members  middleware.MembershipChecker
	active   middleware.ActiveOrgReader
	cfg      Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer creates the live list endpoint. allowedOrigins follows the CORS setting; "*" or
// empty allows any origin.
func NewServer(hub *Hub, views []View, validate TokenValidator, members middleware.MembershipChecker,
	active middleware.ActiveOrgReader, cfg Config, allowedOrigins string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]View, len(views))
	for _, v := range views {
		byName[v.Name()] = v
	}
	return &Server{
		hub:      hub,
		views:    byName,
		validate: validate,
		members:  members,
		active:   active,
		cfg:      cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger: logger,
	}
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	allowed = strings.TrimSpace(allowed)
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{})
	for _, o := range strings.Split(allowed, ",") {
		set[strings.TrimSpace(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWs handles GET /ws/lists?view=&token=&org_id=&<filters>.
func (s *Server) ServeWs(c *gin.Context) {
	view, ok := s.views[c.Query("view")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown view"})
		return
	}
	userID, err := s.validate(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
		return
	}
	ctx := c.Request.Context()
	orgID, status, msg := s.resolveOrg(ctx, c.Query("org_id"), userID)
	if status != 0 {
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	out := make(chan Message, sendBuffer)
	in := make(chan Message)
	session := NewSession(orgID, userID, view, view.Schema().Parse(c.Request.URL.Query()), s.cfg, out, s.logger)

	sessCtx, cancel := context.WithCancel(context.Background())
	s.hub.Register(session)
	go writePump(sessCtx, conn, out)
	go session.Run(sessCtx, in)

	readPump(conn, in)
	cancel()
	s.hub.Unregister(session)
	_ = conn.Close()
}

func (s *Server) resolveOrg(ctx context.Context, raw string, userID uuid.UUID) (uuid.UUID, int, string) {
	var orgID *uuid.UUID
	explicit := false
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, http.StatusBadRequest, "invalid org_id"
		}
		orgID, explicit = &id, true
	} else if s.active != nil {
		id, err := s.active.ActiveOrg(ctx, userID)
		if err != nil {
			return uuid.Nil, http.StatusInternalServerError, "failed to load active organization"
		}
		orgID = id
	}
	if orgID == nil {
		return uuid.Nil, http.StatusBadRequest, "select an organization first"
	}
	role, err := s.members.MemberRole(ctx, *orgID, userID)
	if err != nil {
		return uuid.Nil, http.StatusInternalServerError, "failed to check organization access"
	}
	if role == "" {
		// A stale active organization is the same as none selected.
		if !explicit {
			return uuid.Nil, http.StatusBadRequest, "select an organization first"
		}
		return uuid.Nil, http.StatusForbidden, "not authorized for this organization"
	}
	return *orgID, 0, ""
}

func readPump(conn *websocket.Conn, in chan<- Message) {
	defer close(in)
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		in <- msg
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, out <-chan Message) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

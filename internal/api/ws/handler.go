// Package ws pushes live editor events over WebSocket: console entries as
// the bridge accepts them, rendered preview documents as runs launch, and
// notices when persistence degrades. The same connection accepts editing
// commands, so a client can drive the whole session over one socket.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/webpadhq/webpad/internal/console"
	"github.com/webpadhq/webpad/internal/infrastructure/logging"
	"github.com/webpadhq/webpad/internal/infrastructure/monitoring"
	"github.com/webpadhq/webpad/internal/session"
	"github.com/webpadhq/webpad/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Message is a client command.
type Message struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content,omitempty"`
	Label    string `json:"label,omitempty"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
}

// client is one connection plus its write lock. gorilla allows a single
// concurrent writer per connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Handler manages WebSocket connections.
type Handler struct {
	session *session.Manager
	bridge  *console.Bridge
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHandler creates a WebSocket handler and wires it to the session's
// event sources. metrics may be nil.
func NewHandler(sess *session.Manager, bridge *console.Bridge, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{
		session: sess,
		bridge:  bridge,
		logger:  logger,
		metrics: metrics,
		clients: make(map[*client]struct{}),
	}

	bridge.OnEntry(func(entry types.ConsoleEntry) {
		h.broadcast(gin.H{
			"type":  "console",
			"entry": entry,
			"open":  bridge.Open(),
		})
	})
	sess.OnNotice(func(n session.Notice) {
		h.broadcast(gin.H{
			"type":   "notice",
			"notice": n,
		})
	})
	sess.OnDocument(func(doc, channelID string) {
		h.broadcast(gin.H{
			"type":     "document",
			"document": doc,
			"channel":  channelID,
		})
	})

	return h
}

// HandleConnection handles WebSocket upgrade and messages.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
	}

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		if h.metrics != nil {
			h.metrics.WSConnections.Dec()
		}
		conn.Close()
	}()

	cl.send(gin.H{
		"type":    "system",
		"message": "Connected to webpad",
		"project": h.session.Project(),
		"files":   h.session.WorkingFiles(),
		"channel": h.session.ActiveChannel(),
	})

	reqCtx := c.Request.Context()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}
		if h.metrics != nil {
			h.metrics.WSMessages.WithLabelValues(msg.Type).Inc()
		}

		switch msg.Type {
		case "update_file":
			h.session.UpdateFile(types.Language(msg.Language), msg.Content)

		case "run":
			// The document reaches the client through the broadcast.
			h.session.Run()

		case "save":
			if err := h.session.Save(reqCtx); err != nil {
				h.sendError(cl, err.Error())
				continue
			}
			cl.send(gin.H{
				"type":      "saved",
				"project":   h.session.Project(),
				"timestamp": time.Now().UnixMilli(),
			})

		case "snapshot":
			entry, err := h.session.Snapshot(reqCtx, msg.Label)
			if err != nil {
				h.sendError(cl, err.Error())
				continue
			}
			cl.send(gin.H{
				"type":    "version_created",
				"version": entry,
			})

		case "restore_version":
			if err := h.session.RestoreVersion(reqCtx, msg.ID); err != nil {
				h.sendError(cl, err.Error())
				continue
			}
			cl.send(gin.H{
				"type":  "restored",
				"files": h.session.WorkingFiles(),
				"dirty": h.session.Dirty(),
			})

		case "delete_version":
			if err := h.session.RemoveVersion(reqCtx, msg.ID); err != nil {
				h.sendError(cl, err.Error())
				continue
			}
			cl.send(gin.H{"type": "version_deleted", "id": msg.ID})

		case "rename":
			if err := h.session.Rename(reqCtx, msg.Name); err != nil {
				h.sendError(cl, err.Error())
				continue
			}
			cl.send(gin.H{"type": "renamed", "project": h.session.Project()})

		case "set_tailwind":
			if err := h.session.SetTailwind(reqCtx, msg.Enabled); err != nil {
				h.sendError(cl, err.Error())
			}

		case "set_typescript":
			if err := h.session.SetTypeScript(reqCtx, msg.Enabled); err != nil {
				h.sendError(cl, err.Error())
			}

		case "set_autorun":
			h.session.SetAutoRun(msg.Enabled)

		case "clear_console":
			h.session.ClearConsole()
			cl.send(gin.H{"type": "console_cleared"})

		case "ping":
			cl.send(gin.H{"type": "pong"})

		default:
			h.sendError(cl, "unknown message type")
		}
	}
}

func (h *Handler) broadcast(v interface{}) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		if err := cl.send(v); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}
}

func (h *Handler) sendError(cl *client, message string) {
	cl.send(gin.H{
		"type":  "error",
		"error": message,
	})
}

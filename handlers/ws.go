package handlers

import (
	"log"
	"sync"
	"time"

	"connect-four-arena/game"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientMessage is the inbound envelope. Column is a pointer so a missing
// field is distinguishable from column 0.
type clientMessage struct {
	Type     string `json:"type"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	RoomCode string `json:"roomCode,omitempty"`
	Column   *int   `json:"column,omitempty"`
	GameID   string `json:"gameId,omitempty"`
}

type authenticatedMsg struct {
	Type string `json:"type"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// wsClient wraps a websocket connection behind game.Conn. The manager
// goroutine and the read loop both reply on it, hence the write lock.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// session ties one socket to the identity bound by its authenticate frame.
type session struct {
	conn   game.Conn
	userID string
}

// SetupWebSocket mounts the realtime gateway at /ws.
func SetupWebSocket(app *fiber.App, manager *game.Manager) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		serveSocket(manager, conn)
	}))
}

func serveSocket(manager *game.Manager, conn *websocket.Conn) {
	client := &wsClient{conn: conn}
	sess := &session{conn: client}

	log.Println("🔌 New client connected")

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	stopPing := make(chan struct{})
	go pingLoop(conn, stopPing)

	defer func() {
		close(stopPing)
		if sess.userID != "" {
			manager.HandleDisconnect(sess.userID)
		}
		conn.Close()
		log.Println("🔌 Client disconnected")
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ Unexpected close: %v", err)
			}
			return
		}
		dispatch(manager, sess, msg)
	}
}

// pingLoop keeps the connection alive. WriteControl is safe to call
// concurrently with WriteJSON.
func pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// dispatch routes one inbound frame. Protocol errors go back to the
// sender only; move and rejoin frames from unauthenticated sockets are
// dropped, matching the registry's silent handling of routing misses.
func dispatch(manager *game.Manager, sess *session, msg clientMessage) {
	switch msg.Type {
	case "authenticate":
		if msg.UserID == "" {
			sess.conn.WriteJSON(errorMsg{Type: "error", Message: "Missing userId"})
			return
		}
		sess.userID = msg.UserID
		sess.conn.WriteJSON(authenticatedMsg{Type: "authenticated"})

	case "createRoom", "joinRoom":
		if sess.userID == "" {
			sess.conn.WriteJSON(errorMsg{Type: "error", Message: "Not authenticated"})
			return
		}
		manager.CreateOrJoinRoom(sess.conn, sess.userID, msg.Username, msg.RoomCode)

	case "playBot":
		if sess.userID == "" {
			sess.conn.WriteJSON(errorMsg{Type: "error", Message: "Not authenticated"})
			return
		}
		manager.PlayBot(sess.conn, sess.userID, msg.Username)

	case "move":
		if sess.userID == "" {
			return
		}
		if msg.Column == nil {
			sess.conn.WriteJSON(errorMsg{Type: "error", Message: "Column required"})
			return
		}
		manager.HandleMove(sess.conn, sess.userID, *msg.Column)

	case "rejoin":
		if sess.userID == "" {
			return
		}
		manager.Rejoin(sess.conn, sess.userID, msg.GameID)

	default:
		sess.conn.WriteJSON(errorMsg{Type: "error", Message: "Unknown message type"})
	}
}

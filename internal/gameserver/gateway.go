package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/broadcast"
	"github.com/emberfell/emberfell/internal/game/room"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

var (
	errJoinFirst      = errors.New("first command must be a join")
	errUnknownCommand = errors.New("unknown command")
)

// wsConn serialises writes. Gorilla connections allow only one concurrent
// writer, and the broadcast pump runs alongside command error replies.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// clientCommand is the envelope clients send over the websocket. Payload
// fields beyond the active command are ignored.
type clientCommand struct {
	Type     string   `json:"type"`
	CharName string   `json:"char_name,omitempty"`
	RoomCode string   `json:"room_code,omitempty"`
	Monsters []string `json:"monsters,omitempty"`
	Target   string   `json:"target,omitempty"`
}

// Gateway bridges websocket connections to the game layer. Each connection
// gets a broadcast subscriber whose events are pumped to the socket, and
// inbound commands are dispatched to the combat service.
type Gateway struct {
	hub    *broadcast.Hub
	rooms  *room.Manager
	combat *CombatService
	store  CharacterStore
	logger *zap.Logger
}

// NewGateway creates a Gateway.
func NewGateway(hub *broadcast.Hub, rooms *room.Manager, combat *CombatService, store CharacterStore, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:    hub,
		rooms:  rooms,
		combat: combat,
		store:  store,
		logger: logger,
	}
}

// HandleWS upgrades the request and runs the connection's session loop. The
// first command must be a join naming a room and an existing character.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ctx := r.Context()
	uid := uuid.NewString()

	roomCode, err := g.handleJoin(ctx, conn, uid)
	if err != nil {
		g.writeError(conn, err)
		return
	}
	defer func() {
		g.hub.Unsubscribe(roomCode, uid)
		if err := g.rooms.Leave(uid); err != nil {
			g.logger.Warn("leaving room on disconnect",
				zap.String("uid", uid), zap.Error(err))
		}
	}()

	sub := g.hub.Subscribe(roomCode, uid)

	// Writer pump. Exits when the subscriber closes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range sub.Events() {
			if err := conn.write(data); err != nil {
				return
			}
		}
	}()

	g.readLoop(ctx, conn, uid, roomCode)
	_ = sub.Close()
	<-done
}

// handleJoin reads the join command, loads the character, and registers the
// player in the room.
func (g *Gateway) handleJoin(ctx context.Context, conn *wsConn, uid string) (string, error) {
	var cmd clientCommand
	if err := conn.conn.ReadJSON(&cmd); err != nil {
		return "", err
	}
	if cmd.Type != "join" {
		return "", errJoinFirst
	}

	ch, err := g.store.FindByName(ctx, cmd.RoomCode, cmd.CharName)
	if err != nil {
		return "", err
	}
	if _, err := g.rooms.Join(uid, ch.Name, ch.ID, cmd.RoomCode, ch.Class, ch.Level); err != nil {
		return "", err
	}
	return cmd.RoomCode, nil
}

// readLoop dispatches inbound commands until the connection drops.
func (g *Gateway) readLoop(ctx context.Context, conn *wsConn, uid, roomCode string) {
	for {
		var cmd clientCommand
		if err := conn.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read failed",
					zap.String("uid", uid), zap.Error(err))
			}
			return
		}

		var err error
		switch cmd.Type {
		case "start_combat":
			_, err = g.combat.StartCombat(ctx, roomCode, cmd.Monsters)
		case "attack":
			err = g.combat.ResolveAttack(ctx, roomCode, uid, cmd.Target)
		case "end_turn":
			err = g.combat.EndTurn(ctx, roomCode, uid)
		case "flee":
			err = g.combat.Flee(ctx, roomCode, uid)
		default:
			err = errUnknownCommand
		}
		if err != nil {
			g.writeError(conn, err)
		}
	}
}

// errorEvent is sent directly to the offending connection, not broadcast.
type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (g *Gateway) writeError(conn *wsConn, err error) {
	data, merr := json.Marshal(errorEvent{Type: "error", Message: err.Error()})
	if merr != nil {
		return
	}
	if werr := conn.write(data); werr != nil {
		g.logger.Warn("writing error event", zap.Error(werr))
	}
}

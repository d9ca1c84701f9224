package socket

import (
	"log"

	"tornado_server/models"

	socketio "github.com/googollee/go-socket.io"
)

// Server is the realtime change feed. Clients join a room per matchId and
// receive match status transitions and message inserts as they are written,
// instead of polling the store.
type Server struct {
	*socketio.Server
}

// NewServer initializes the Socket.IO server and its room wiring.
func NewServer() *Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(c socketio.Conn) error {
		log.Println("✅ Socket connected:", c.ID())
		return nil
	})

	server.OnEvent("/", "join", func(c socketio.Conn, matchID string) {
		if matchID == "" {
			log.Println("❌ Invalid matchId in join request")
			return
		}
		log.Printf("👥 Socket %s joined match %s\n", c.ID(), matchID)
		c.Join(matchRoom(matchID))
	})

	server.OnEvent("/", "leave", func(c socketio.Conn, matchID string) {
		if matchID == "" {
			return
		}
		c.Leave(matchRoom(matchID))
	})

	server.OnError("/", func(c socketio.Conn, err error) {
		log.Println("❌ Socket error:", err)
	})

	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Println("❌ Socket disconnected:", reason)
	})

	return &Server{Server: server}
}

func matchRoom(matchID string) string {
	return "match:" + matchID
}

// MatchUpdated broadcasts a match insert or status transition to its room.
func (s *Server) MatchUpdated(match models.Match) {
	s.BroadcastToRoom("/", matchRoom(match.MatchID), "match:update", match)
}

// MessageCreated broadcasts a new message to its match's room.
func (s *Server) MessageCreated(message models.Message) {
	s.BroadcastToRoom("/", matchRoom(message.MatchID), "message:new", message)
}

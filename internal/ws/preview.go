// Package ws streams composited frames to browser clients over websockets
// so the matrix can be previewed without hardware attached.
package ws

import (
	"encoding/json"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server fans composited frames out to every connected preview client.
type Server struct {
	log    zerolog.Logger
	width  int
	height int

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	frameID uint64
	start   time.Time
}

func NewServer(width, height int, logger zerolog.Logger) *Server {
	return &Server{
		log:     logger.With().Str("task", "preview").Logger(),
		width:   width,
		height:  height,
		clients: map[*websocket.Conn]bool{},
		start:   time.Now(),
	}
}

// HandleFrames upgrades the connection and registers it for frame
// broadcasts. Client messages are read and discarded so closes are seen.
func (s *Server) HandleFrames(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.sendTopology(conn)

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.start).Seconds(),
		"width":    s.width,
		"height":   s.height,
		"clients":  len(s.clients),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Publish broadcasts one composited frame. Matches the manager's frame
// observer signature.
func (s *Server) Publish(frameID uint64, img *image.NRGBA) {
	s.mu.Lock()
	s.frameID = frameID
	s.mu.Unlock()

	type frameMsg struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		W       int    `json:"w"`
		H       int    `json:"h"`
		RGBA    []byte `json:"rgba"`
	}
	b, _ := json.Marshal(frameMsg{
		T:       time.Now().UnixNano(),
		FrameID: frameID,
		W:       s.width,
		H:       s.height,
		RGBA:    img.Pix,
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
		}
	}
}

// ClientCount reports the number of connected preview clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) sendTopology(conn *websocket.Conn) {
	top := map[string]any{
		"w": s.width,
		"h": s.height,
	}
	b, _ := json.Marshal(top)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

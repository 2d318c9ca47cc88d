package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trading-core/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const streamBufferSize = 256

// handleStream upgrades to a websocket and streams every Quote/Trade/Order/
// Fill event published on the bus as JSON, one event per frame, until the
// client disconnects. The bus only knows how to call handlers synchronously,
// so this bridges to a buffered channel: a slow client drops frames rather
// than stalling the bus.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnf("api", "websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	out := make(chan events.Event, streamBufferSize)
	forward := func(event events.Event) {
		select {
		case out <- event:
		default:
			s.log.Warnf("api", "websocket client too slow, dropping event")
		}
	}

	quoteID := s.bus.Subscribe(events.CategoryMarketQuote, forward)
	tradeID := s.bus.Subscribe(events.CategoryMarketTrade, forward)
	orderID := s.bus.Subscribe(events.CategoryOrder, forward)
	fillID := s.bus.Subscribe(events.CategoryFill, forward)
	defer func() {
		s.bus.Unsubscribe(quoteID)
		s.bus.Unsubscribe(tradeID)
		s.bus.Unsubscribe(orderID)
		s.bus.Unsubscribe(fillID)
		close(out)
	}()

	// Detect client disconnects so the goroutine below doesn't leak.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event := <-out:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fleetnav/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// PlanEventsWSHandler streams plan events over a WebSocket. The
// protocol is a thin JSON envelope: the server acks the connection,
// then forwards broker events as {"type": ..., "data": ...} with
// periodic pings; a terminal plan event ends the stream.
func (s *Server) PlanEventsWSHandler(w http.ResponseWriter, r *http.Request, planID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}
	_ = write(wsMessage{Type: "connection_ack", Data: map[string]any{"planId": planID}})

	ch := s.Broker.Subscribe(planID)
	defer s.Broker.Unsubscribe(planID, ch)

	// Reader: drains client frames so pongs are processed; any error
	// tears the stream down.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				_ = write(wsMessage{Type: "pong"})
			}
		}
	}()

	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			writeMu.Unlock()
			if err != nil {
				return
			}
		case evt := <-ch:
			if err := write(wsMessage{Type: evt.Type, Data: evt.Data}); err != nil {
				return
			}
			if evt.Type == model.EventPlanComplete || evt.Type == model.EventPlanFailed {
				_ = write(wsMessage{Type: "complete"})
				return
			}
		}
	}
}

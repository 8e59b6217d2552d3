package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bbernstein/museo-go/internal/services/pubsub"
)

const (
	wsWriteWait    = 5 * time.Second
	wsPingInterval = 10 * time.Second
	wsPongWait     = 2 * wsPingInterval
	wsBufferSize   = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWebsocket streams every pubsub message to the client as JSON.
func (s *Server) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.deps.PubSub == nil {
		http.Error(w, "live updates unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Warning: websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	merged := make(chan pubsub.Message, wsBufferSize)
	subs := make([]*pubsub.Subscriber, 0, len(pubsub.AllTopics))
	for _, topic := range pubsub.AllTopics {
		subs = append(subs, s.deps.PubSub.Subscribe(topic, "", wsBufferSize))
	}
	defer func() {
		for _, sub := range subs {
			s.deps.PubSub.Unsubscribe(sub)
		}
	}()

	done := make(chan struct{})
	for _, sub := range subs {
		go forward(sub, merged, done)
	}

	// The reader only handles control frames and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer close(done)

	log.Printf("🔌 Websocket client connected from %s", r.RemoteAddr)
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Printf("🔌 Websocket client %s disconnected", r.RemoteAddr)
			return
		case msg := <-merged:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// forward copies one subscription into the merged stream, dropping messages
// when the client falls behind.
func forward(sub *pubsub.Subscriber, merged chan<- pubsub.Message, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.Channel:
			if !ok {
				return
			}
			select {
			case merged <- msg:
			default:
			}
		}
	}
}

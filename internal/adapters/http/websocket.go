package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/pkg/metrics"
)

const wsBuffer = 8

// wsMessage is sent from client to server.
type wsMessage struct {
	Action    string `json:"action"` // "select" | "add" | "state"
	Name      string `json:"name,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// wsEnvelope is sent from server to client.
type wsEnvelope struct {
	Type string `json:"type"` // "state" | "selection" | "added" | "error"
	Data any    `json:"data,omitempty"`
}

// WebSocketHandler pushes a state snapshot on connect and after every change.
// Clients may send {"action":"select"} to draw a destination, or
// {"action":"add","name":..,"latitude":..,"longitude":..} to add one.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		views, cancel := deps.State.Subscribe(wsBuffer)
		defer cancel()

		done := make(chan struct{})
		defer close(done)
		go pushViews(views, done, writeJSON, func() error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.PingMessage, nil)
		})

		ctx := context.Background()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(wsEnvelope{Type: "error", Data: "invalid JSON"})
				continue
			}

			switch m.Action {
			case "select":
				sel, err := deps.Destinations.RequestSelection(ctx)
				if err != nil {
					_ = writeJSON(wsEnvelope{Type: "error", Data: err.Error()})
					continue
				}
				_ = writeJSON(wsEnvelope{Type: "selection", Data: sel})
			case "add":
				p, msg, err := deps.Destinations.AddLocation(ctx, m.Name, m.Latitude, m.Longitude)
				if err != nil {
					if msg == "" {
						msg = err.Error()
					}
					_ = writeJSON(wsEnvelope{Type: "error", Data: msg})
					continue
				}
				_ = writeJSON(wsEnvelope{Type: "added", Data: p})
			case "state":
				_ = writeJSON(wsEnvelope{Type: "state", Data: deps.State.View()})
			default:
				_ = writeJSON(wsEnvelope{Type: "error", Data: "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}

// pushViews forwards state changes and keeps the connection alive until done
// is closed or a write fails.
func pushViews(views <-chan state.View, done <-chan struct{}, write func(any) error, ping func() error) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case v, ok := <-views:
			if !ok {
				return
			}
			if err := write(wsEnvelope{Type: "state", Data: v}); err != nil {
				return
			}
		case <-ticker.C:
			if err := ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

package server

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/pipeline"
	"github.com/fieldsense/fieldsense/internal/suggest"
)

// upgrader accepts only loopback/extension origins; the daemon binds to
// 127.0.0.1 so anything else never gets here in practice.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.HasPrefix(origin, "chrome-extension://") ||
			strings.HasPrefix(origin, "moz-extension://") ||
			strings.Contains(origin, "://127.0.0.1") ||
			strings.Contains(origin, "://localhost")
	},
}

// streamEvent is one inbound message on the field-event stream.
type streamEvent struct {
	Type    string           `json:"type"` // "update" or "dismiss"
	FieldID string           `json:"fieldId"`
	Request pipeline.Request `json:"request"`
}

// streamResult is one outbound message.
type streamResult struct {
	Type    string         `json:"type"` // "suggestions"
	FieldID string         `json:"fieldId"`
	Result  suggest.Result `json:"result"`
}

// handleStream upgrades to a websocket and drives one debounced flow per
// field. Keystroke updates re-arm the flow's timer; accepted results stream
// back tagged with their field.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("stream upgrade: %v", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(fieldID string, result suggest.Result) {
		writeMu.Lock()
		defer writeMu.Unlock()
		msg := streamResult{Type: "suggestions", FieldID: fieldID, Result: result}
		if err := conn.WriteJSON(msg); err != nil {
			logging.Warnf("stream write: %v", err)
		}
	}

	flows := make(map[string]*pipeline.Flow)
	defer func() {
		for _, f := range flows {
			f.Dismiss()
		}
	}()

	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warnf("stream read: %v", err)
			}
			return
		}
		switch ev.Type {
		case "update":
			flow, ok := flows[ev.FieldID]
			if !ok {
				id := ev.FieldID
				flow = pipeline.NewFlow(s.pipeline, func(res suggest.Result) { send(id, res) })
				flows[ev.FieldID] = flow
			}
			flow.Update(ev.Request)
		case "dismiss":
			if flow, ok := flows[ev.FieldID]; ok {
				flow.Dismiss()
				delete(flows, ev.FieldID)
			}
		}
	}
}

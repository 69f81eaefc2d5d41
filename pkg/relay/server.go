package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// LogRequests logs every handled request once it completes. Websocket
// requests are logged when the connection closes.
func LogRequests(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, writer, request)
		slog.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
	})
}

// NewRouter exposes the hub over HTTP.
func NewRouter(h *Hub) *mux.Router {
	r := mux.NewRouter()
	r.Use(LogRequests)

	r.Methods(http.MethodGet).Path("/").HandlerFunc(index)
	r.Methods(http.MethodGet).Path("/health").HandlerFunc(health)
	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(h.handleWebsocket)
	r.Methods(http.MethodGet).Path("/rooms").HandlerFunc(h.listRooms)
	r.Methods(http.MethodGet).Path("/rooms/{room}/latest").HandlerFunc(h.getLatest)
	return r
}

func index(writer http.ResponseWriter, _ *http.Request) {
	_, _ = writer.Write([]byte("inkboard relay - connect via websocket at /ws\n"))
}

func health(writer http.ResponseWriter, _ *http.Request) {
	_, _ = writer.Write([]byte("ok"))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Hub) handleWebsocket(writer http.ResponseWriter, request *http.Request) {
	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}
	h.Serve(request.Context(), conn)
}

func (h *Hub) listRooms(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(h.Rooms()); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}

func (h *Hub) getLatest(writer http.ResponseWriter, request *http.Request) {
	vars := mux.Vars(request)
	data, ok, err := h.Latest(request.Context(), vars["room"])
	if err != nil {
		slog.Error("failed to read room state", "room", vars["room"], "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	} else if !ok {
		writer.WriteHeader(http.StatusNotFound)
		return
	}
	writer.Header().Add("Content-Type", "application/octet-stream")
	if _, err := writer.Write(data); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}

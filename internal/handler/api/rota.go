package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/handler"
	"github.com/laszhr/lasz/internal/rota"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Clients only send control frames.
	maxMessageSize = 512
)

// RotaHandler serves the weekly rota as JSON and as a live websocket feed.
type RotaHandler struct {
	engine   *rota.Engine
	loc      *time.Location
	now      func() time.Time
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewRotaHandler creates a new rota handler. Week anchors are interpreted in
// loc; a nil loc means UTC. allowedOrigins restricts websocket upgrades; an
// empty list only admits same-host origins.
func NewRotaHandler(engine *rota.Engine, loc *time.Location, allowedOrigins []string, logger *slog.Logger) *RotaHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &RotaHandler{
		engine: engine,
		loc:    loc,
		now:    time.Now,
		logger: logger.With("handler", "rota"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}
	return h
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil // gorilla's default same-host check
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		return set[r.Header.Get("Origin")]
	}
}

// RotaResponse is the payload of both the JSON endpoint and every live frame.
// Prev and Next are week anchors for navigating away from Window.
type RotaResponse struct {
	Window      rota.Window    `json:"window"`
	Prev        string         `json:"prev"`
	Next        string         `json:"next"`
	Shifts      []domain.Shift `json:"shifts"`
	Departments []string       `json:"departments"`
	Error       string         `json:"error,omitempty"`
}

func (h *RotaHandler) parseRequest(r *http.Request) (rota.Window, rota.Filter, error) {
	q := r.URL.Query()
	w, err := rota.ParseWeek(q.Get("week"), h.loc, h.now())
	if err != nil {
		return rota.Window{}, rota.Filter{}, err
	}
	return w, rota.Filter{Department: q.Get("department"), EmployeeID: q.Get("employee")}, nil
}

// GetRota handles GET /api/rota?week=YYYY-MM-DD&department=.
func (h *RotaHandler) GetRota(w http.ResponseWriter, r *http.Request) {
	viewer := domain.ViewerFromContext(r.Context())

	window, filter, err := h.parseRequest(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	shifts, err := h.engine.Shifts(r.Context(), viewer, window, filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	departments, err := h.engine.Departments(r.Context(), viewer)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, newRotaResponse(window, shifts, departments))
}

func newRotaResponse(window rota.Window, shifts []domain.Shift, departments []string) RotaResponse {
	return RotaResponse{
		Window:      window,
		Prev:        window.Prev().Anchor(),
		Next:        window.Next().Anchor(),
		Shifts:      nonNil(shifts),
		Departments: departments,
	}
}

// Live handles GET /api/rota/live. It pushes the full rota on connect and
// again after every shift change until the client goes away.
func (h *RotaHandler) Live(w http.ResponseWriter, r *http.Request) {
	viewer := domain.ViewerFromContext(r.Context())

	window, filter, err := h.parseRequest(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	departments, err := h.engine.Departments(r.Context(), viewer)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	// The feed outlives the handler's request context; it ends when either
	// pump exits.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	frames := make(chan RotaResponse, 1)
	push := func(shifts []domain.Shift, err error) {
		frame := newRotaResponse(window, shifts, departments)
		if err != nil {
			frame.Error = domain.ErrorMessage(err)
		}
		// Keep only the newest frame.
		select {
		case <-frames:
		default:
		}
		select {
		case frames <- frame:
		default:
		}
	}

	release, err := h.engine.Watch(ctx, viewer, window, filter, push)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.logger.Info("rota feed opened", "company_id", companyOf(viewer), "week", window.Anchor())

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, frames)

	h.logger.Info("rota feed closed", "company_id", companyOf(viewer), "week", window.Anchor())
}

// readPump drains control frames and cancels the feed when the client leaves.
func (h *RotaHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("rota feed read error", "error", err)
			}
			return
		}
	}
}

func (h *RotaHandler) writePump(ctx context.Context, conn *websocket.Conn, frames <-chan RotaResponse) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case frame := <-frames:
			data, err := json.Marshal(frame)
			if err != nil {
				h.logger.Error("failed to encode rota frame", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func nonNil(shifts []domain.Shift) []domain.Shift {
	if shifts == nil {
		return []domain.Shift{}
	}
	return shifts
}

func companyOf(v domain.Viewer) string {
	if v == nil {
		return ""
	}
	return v.Company()
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/streetwatch/patrol-log/internal/model"
	"github.com/streetwatch/patrol-log/internal/realtime"
	"github.com/streetwatch/patrol-log/internal/service"
)

// PatrolHandler exposes the patrol session operations over HTTP. All
// routes assume JWT authentication has already populated the context; the
// ownership checks themselves live in the service layer.
type PatrolHandler struct {
	Svc      *service.PatrolService
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewPatrolHandler constructs a PatrolHandler. hub may be nil when the
// change feed is disabled; the watch endpoint then returns 503.
func NewPatrolHandler(svc *service.PatrolService, hub *realtime.Hub) *PatrolHandler {
	if svc == nil {
		panic("nil service passed to NewPatrolHandler")
	}
	return &PatrolHandler{
		Svc: svc,
		Hub: hub,
		upgrader: websocket.Upgrader{
			// Browser clients authenticate with a bearer token, not cookies,
			// so cross-origin upgrades carry no ambient credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ----- DTOs -----

type startPatrolReq struct {
	Location        string `json:"location"`
	TeamLeader      string `json:"team_leader"`
	TeamMembers     string `json:"team_members"`
	StartTime       string `json:"start_time"`
	PoliceCadNumber string `json:"police_cad_number"`
}

type detailsReq struct {
	Location        string `json:"location"`
	TeamLeader      string `json:"team_leader"`
	TeamMembers     string `json:"team_members"`
	StartTime       string `json:"start_time"`
	PoliceCadNumber string `json:"police_cad_number"`
}

type incrementReq struct {
	Counter string `json:"counter"`
	Delta   int    `json:"delta"`
}

type contactReq struct {
	Ethnicity string `json:"ethnicity"`
	Gender    string `json:"gender"`
	AgeBand   string `json:"age_band"`
}

type notesReq struct {
	Notes string `json:"notes"`
}

// historyItem is the trimmed listing shape for the history page. Notes
// are truncated here and only here; detail views and exports carry the
// full text.
type historyItem struct {
	ID         string        `json:"id"`
	Location   string        `json:"location"`
	TeamLeader string        `json:"team_leader"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    *time.Time    `json:"end_time"`
	Status     string        `json:"status"`
	Statistics model.StatMap `json:"statistics"`
	Notes      string        `json:"notes"`
}

// parseStartTime accepts RFC3339 or the value of an HTML datetime-local
// input ("2006-01-02T15:04").
func parseStartTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func opCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Start handles POST /v1/patrols.
func (h *PatrolHandler) Start(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req startPatrolReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, ok := parseStartTime(req.StartTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	p, err := h.Svc.Start(ctx, sess, service.StartForm{
		Location:        req.Location,
		TeamLeader:      req.TeamLeader,
		TeamMembers:     req.TeamMembers,
		StartTime:       start,
		PoliceCadNumber: req.PoliceCadNumber,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Get handles GET /v1/patrols/:id.
func (h *PatrolHandler) Get(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	p, err := h.Svc.Get(ctx, sess, c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// List handles GET /v1/patrols (history, newest first).
func (h *PatrolHandler) List(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	patrols, err := h.Svc.List(ctx, sess)
	if err != nil {
		return writeServiceError(c, err)
	}
	items := make([]historyItem, 0, len(patrols))
	for i := range patrols {
		p := &patrols[i]
		items = append(items, historyItem{
			ID:         p.ID,
			Location:   p.Location,
			TeamLeader: p.TeamLeader,
			StartTime:  p.StartTime,
			EndTime:    p.EndTime,
			Status:     p.Status,
			Statistics: p.Statistics,
			Notes:      p.NotesPreview(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"patrols": items})
}

// Active handles GET /v1/patrols/active, backing the active-patrol banner.
// 204 means no patrol is currently active.
func (h *PatrolHandler) Active(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	p, err := h.Svc.Active(ctx, sess)
	if err != nil {
		if errors.Is(err, service.ErrPatrolNotFound) {
			return c.NoContent(http.StatusNoContent)
		}
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// IncrementStatistic handles PATCH /v1/patrols/:id/statistics. Delta must
// be +1 or -1; decrements clamp at zero.
func (h *PatrolHandler) IncrementStatistic(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req incrementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	value, err := h.Svc.IncrementStatistic(ctx, sess, c.Param("id"), req.Counter, req.Delta)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"counter": req.Counter, "value": value})
}

// AddContact handles POST /v1/patrols/:id/contacts.
func (h *PatrolHandler) AddContact(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	p, err := h.Svc.AddContact(ctx, sess, c.Param("id"), req.Ethnicity, req.Gender, req.AgeBand)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"contact_statistics": p.ContactStatistics})
}

// SaveNotes handles PUT /v1/patrols/:id/notes.
func (h *PatrolHandler) SaveNotes(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req notesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	if err := h.Svc.SaveNotes(ctx, sess, c.Param("id"), req.Notes); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateDetails handles PUT /v1/patrols/:id.
func (h *PatrolHandler) UpdateDetails(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req detailsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, ok := parseStartTime(req.StartTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	err = h.Svc.UpdateDetails(ctx, sess, c.Param("id"), service.DetailsForm{
		Location:        req.Location,
		TeamLeader:      req.TeamLeader,
		TeamMembers:     req.TeamMembers,
		StartTime:       start,
		PoliceCadNumber: req.PoliceCadNumber,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Close handles POST /v1/patrols/:id/close. The confirmation dialog is a
// client concern; by the time this endpoint is hit the close is final.
func (h *PatrolHandler) Close(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	p, err := h.Svc.Close(ctx, sess, c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Watch handles GET /v1/patrols/watch: it upgrades to a websocket and
// streams change notifications for the caller's own patrols until the
// client disconnects. Messages are signals only; clients re-fetch.
func (h *PatrolHandler) Watch(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Hub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "change feed disabled"})
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	h.Hub.Subscribe(sess.UserID, conn)
	defer func() {
		h.Hub.Unsubscribe(sess.UserID, conn)
		_ = conn.Close()
	}()
	// Drain client frames; the read error is the disconnect signal.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

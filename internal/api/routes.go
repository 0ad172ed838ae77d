package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/auth"
	"github.com/satriahrh/moodcast/internal/websocket"
	"github.com/satriahrh/moodcast/usecase"
)

// StatusProvider exposes the loop status
type StatusProvider interface {
	Status() usecase.LoopStatus
}

// Deps are the collaborators of the HTTP routes. Sessions, Hub and Images
// are optional.
type Deps struct {
	Loop       StatusProvider
	Table      *entities.MoodTable
	Classifier *usecase.MoodClassifier
	Sessions   repositories.SessionRepository
	SessionID  string
	Hub        *websocket.Hub
	Tokens     *auth.TokenIssuer
	// Images is served under /images when set
	Images string
}

type handlers struct {
	Deps
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Deps, logger *zap.Logger) {
	h := &handlers{Deps: deps, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "moodcast",
		})
	})

	v1 := e.Group("/api/v1")
	v1.GET("/status", h.status)
	v1.GET("/moods", h.moods)
	v1.GET("/timeline", h.timeline)
	v1.POST("/classify", h.classify)
	v1.POST("/overlay/token", h.overlayToken)

	if deps.Images != "" {
		e.Static("/images", deps.Images)
	}

	// WebSocket overlay feed with JWT validation
	e.GET("/ws", h.feed)
}

func (h *handlers) status(c echo.Context) error {
	resp := StatusResponse{LoopStatus: h.Loop.Status()}
	if h.Hub != nil {
		resp.OverlayClients = h.Hub.ClientCount()
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *handlers) moods(c echo.Context) error {
	rules := h.Table.Rules()
	out := make([]MoodInfo, 0, len(rules)+1)
	listed := make(map[entities.MoodLabel]bool, len(rules))

	for i, r := range rules {
		profile, _ := h.Table.Profile(r.Label)
		out = append(out, MoodInfo{
			Label:    r.Label,
			Priority: i + 1,
			Keywords: r.Keywords,
			Style:    profile,
			Default:  r.Label == h.Table.Default(),
		})
		listed[r.Label] = true
	}
	if def := h.Table.Default(); !listed[def] {
		profile, _ := h.Table.Profile(def)
		out = append(out, MoodInfo{Label: def, Keywords: []string{}, Style: profile, Default: true})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) timeline(c echo.Context) error {
	if h.Sessions == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "timeline_disabled",
			Message: "No session storage is configured",
		})
	}

	ctx := c.Request().Context()
	id := c.QueryParam("session_id")
	if id == "" {
		id = h.SessionID
	}

	var (
		session *entities.Session
		err     error
	)
	if id != "" {
		session, err = h.Sessions.GetByID(ctx, id)
	} else {
		session, err = h.Sessions.GetLatest(ctx)
	}
	if err != nil || session == nil {
		if err != nil {
			h.logger.Warn("Failed to load session", zap.String("sessionID", id), zap.Error(err))
		}
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "No session found",
		})
	}
	return c.JSON(http.StatusOK, session)
}

func (h *handlers) classify(c echo.Context) error {
	var req ClassifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	mood, keyword := h.Classifier.Match(req.Text)
	return c.JSON(http.StatusOK, ClassifyResponse{
		Text:    req.Text,
		Mood:    mood,
		Keyword: keyword,
		Changes: mood != h.Loop.Status().Mood,
	})
}

func (h *handlers) overlayToken(c echo.Context) error {
	if h.Tokens == nil || !h.Tokens.Enabled() {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Overlay authentication is not configured",
		})
	}

	var req OverlayTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if !h.Tokens.CheckSecret(req.Secret) {
		h.logger.Warn("Overlay token request rejected", zap.String("clientID", req.ClientID))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid secret",
		})
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	token, expiresAt, err := h.Tokens.GenerateOverlayToken(clientID)
	if err != nil {
		h.logger.Error("Failed to generate overlay token", zap.String("clientID", clientID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.logger.Info("Overlay token issued", zap.String("clientID", clientID))
	return c.JSON(http.StatusOK, OverlayTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		ClientID:  clientID,
	})
}

// feed handles overlay connections. Browser sources cannot set headers,
// so the token may also arrive as ?token=.
func (h *handlers) feed(c echo.Context) error {
	if h.Hub == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "feed_disabled"})
	}

	// without a secret the feed is open
	if h.Tokens == nil || !h.Tokens.Enabled() {
		return websocket.HandleWebSocket(h.Hub, c, uuid.NewString(), h.logger)
	}

	token := bearerToken(c.Request())
	if token == "" {
		token = c.QueryParam("token")
	}
	if token == "" {
		h.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := h.Tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}
	if claims.Role != auth.RoleOverlay {
		h.logger.Warn("WebSocket connection rejected: invalid role", zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only overlay tokens are allowed",
		})
	}

	h.logger.Info("WebSocket connection authenticated", zap.String("clientID", claims.ClientID))
	return websocket.HandleWebSocket(h.Hub, c, claims.ClientID, h.logger)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

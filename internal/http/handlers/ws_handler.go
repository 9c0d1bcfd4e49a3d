package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/http/handlers/common"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/ws"
)

// ProviderChecker проверяет существование провайдера перед подпиской.
type ProviderChecker interface {
	Exists(ctx context.Context, id uuid.UUID) error
}

// FeedHandler отвечает за WebSocket ленту событий провайдера.
type FeedHandler struct {
	hub       *ws.Hub
	providers ProviderChecker
	upgrader  websocket.Upgrader
}

// NewFeedHandler создаёт новый хэндлер.
func NewFeedHandler(hub *ws.Hub, providers ProviderChecker, allowedOrigins []string) *FeedHandler {
	return &FeedHandler{
		hub:       hub,
		providers: providers,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// Handle обслуживает GET /api/service-providers/:id/feed[?token=...].
// Токен необязателен, его проверяет OptionalAuth.
func (h *FeedHandler) Handle(c *gin.Context) {
	providerID, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.providers.Exists(c.Request.Context(), providerID); err != nil {
		common.RespondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger.WithFields(logrus.Fields{
			"provider_id": providerID,
			"error":       err.Error(),
		}).Warn("ws: upgrade не удался")
		return
	}

	ws.NewClient(conn, h.hub, providerID, common.OptionalUserID(c)).Run(c.Request.Context())
}

// originChecker без Origin или при "*" пропускает всех, иначе только из списка.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

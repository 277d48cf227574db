package handlers

import (
	"net/http"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// CatalogHandler serves the read models behind the cache layer.
type CatalogHandler struct {
	cache *services.CacheService
	log   logger.Logger
}

type PreloadRequest struct {
	PlayerIDs []string `json:"playerIds" validate:"required,min=1"`
}

type SessionRequest struct {
	Data map[string]string `json:"data"`
}

func NewCatalogHandler(cache *services.CacheService, log logger.Logger) *CatalogHandler {
	return &CatalogHandler{cache: cache, log: log}
}

// GetCard serves GET /cards/:id; ?cache=false reads through to the store.
func (h *CatalogHandler) GetCard(c echo.Context) error {
	useCache := c.QueryParam("cache") != "false"
	card, err := h.cache.GetCard(c.Request().Context(), c.Param("id"), useCache)
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch card")
	}
	return respond(c, http.StatusOK, card, "")
}

func (h *CatalogHandler) GetBattle(c echo.Context) error {
	battle, err := h.cache.GetBattleState(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch battle")
	}
	return respond(c, http.StatusOK, battle, "")
}

func (h *CatalogHandler) GetBattleHistory(c echo.Context) error {
	history, err := h.cache.GetBattleHistory(c.Request().Context(), c.Param("id"), queryInt(c, "limit", services.BattleHistoryMax))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch battle history")
	}
	return respond(c, http.StatusOK, history, "")
}

func (h *CatalogHandler) PreloadBattle(c echo.Context) error {
	var req PreloadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, h.log, err, "")
	}
	if err := h.cache.PreloadBattleData(c.Request().Context(), c.Param("id"), req.PlayerIDs); err != nil {
		return fail(c, h.log, err, "Failed to preload battle")
	}
	return respond(c, http.StatusOK, nil, "Battle data preloaded")
}

// ListListings serves GET /marketplace/listings?sellerId=&cardId=&maxPrice=.
func (h *CatalogHandler) ListListings(c echo.Context) error {
	filter := domain.ListingFilter{
		SellerID: c.QueryParam("sellerId"),
		CardID:   c.QueryParam("cardId"),
	}
	if raw := c.QueryParam("maxPrice"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return fail(c, h.log, domain.Validation("Invalid maxPrice"), "")
		}
		filter.MaxPrice = &price
	}

	listings, err := h.cache.GetMarketplaceListings(c.Request().Context(), filter)
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch listings")
	}
	return respond(c, http.StatusOK, listings, "")
}

func (h *CatalogHandler) GetLeaderboard(c echo.Context) error {
	entries, err := h.cache.GetLeaderboard(c.Request().Context(), domain.LeaderboardType(c.Param("type")))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch leaderboard")
	}
	return respond(c, http.StatusOK, entries, "")
}

func (h *CatalogHandler) GetSession(c echo.Context) error {
	session, err := h.cache.GetUserSession(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch session")
	}
	return respond(c, http.StatusOK, session, "")
}

func (h *CatalogHandler) PutSession(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, domain.Validation("Invalid request body"), "")
	}
	session := &domain.UserSession{UserID: c.Param("userId"), Data: req.Data}
	h.cache.CacheUserSession(c.Request().Context(), session)
	return respond(c, http.StatusOK, session, "Session stored")
}

// Health reports each dependency separately and is 503 when one is down.
func (h *CatalogHandler) Health(c echo.Context) error {
	status := h.cache.HealthCheck(c.Request().Context())
	code := http.StatusOK
	if !status.Database || !status.Cache {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"success":   code == http.StatusOK,
		"data":      status,
		"service":   "marketplace-api",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

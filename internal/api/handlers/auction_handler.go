package handlers

import (
	"net/http"
	"strings"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	auctionManager *services.AuctionManager
	engine         *services.AutoBidService
	cache          *services.CacheService
	log            logger.Logger
}

type CreateAuctionRequest struct {
	SellerID      string          `json:"sellerId" validate:"required"`
	Title         string          `json:"title" validate:"required"`
	StartingPrice decimal.Decimal `json:"startingPrice" validate:"positive"`
	BidIncrement  decimal.Decimal `json:"bidIncrement"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       time.Time       `json:"endTime"`
}

type PlaceBidRequest struct {
	UserID string          `json:"userId" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"positive"`
}

type AutoBidRuleRequest struct {
	UserID              string              `json:"userId" validate:"required"`
	MaxBidAmount        decimal.Decimal     `json:"maxBidAmount" validate:"positive"`
	Strategy            string              `json:"strategy" validate:"strategy"`
	ActivationThreshold decimal.NullDecimal `json:"activationThreshold"`
}

type ProxyBidRequest struct {
	UserID     string          `json:"userId" validate:"required"`
	MaximumBid decimal.Decimal `json:"maximumBid" validate:"positive"`
}

type CloseAuctionRequest struct {
	Cancel bool `json:"cancel"`
}

func NewAuctionHandler(auctionManager *services.AuctionManager, engine *services.AutoBidService,
	cache *services.CacheService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctionManager: auctionManager,
		engine:         engine,
		cache:          cache,
		log:            log,
	}
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req CreateAuctionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, h.log, err, "")
	}

	auction, err := h.auctionManager.CreateAuction(c.Request().Context(), services.CreateAuctionRequest{
		SellerID:      req.SellerID,
		Title:         req.Title,
		StartingPrice: req.StartingPrice,
		BidIncrement:  req.BidIncrement,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	})
	if err != nil {
		return fail(c, h.log, err, "Failed to create auction")
	}
	return respond(c, http.StatusCreated, auction, "Auction created successfully")
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	ctx := c.Request().Context()
	auctionID := c.Param("id")

	auction, err := h.engine.GetAuction(ctx, auctionID)
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch auction")
	}
	rules, err := h.engine.ListRules(ctx, auctionID)
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch auction")
	}
	latest, err := h.cache.GetLatestBid(ctx, auctionID)
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch auction")
	}

	return respond(c, http.StatusOK, map[string]interface{}{
		"auction":      auction,
		"latestBid":    latest,
		"autoBidRules": len(rules),
	}, "")
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, h.log, err, "")
	}

	bid, err := h.engine.PlaceBid(c.Request().Context(), c.Param("id"), req.UserID, req.Amount)
	if err != nil {
		return fail(c, h.log, err, "Failed to place bid")
	}
	return respond(c, http.StatusCreated, bid, "Bid placed successfully")
}

func (h *AuctionHandler) CreateAutoBidRule(c echo.Context) error {
	var req AutoBidRuleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, h.log, err, "")
	}

	autoReq := services.AutoBidRequest{
		UserID:    req.UserID,
		AuctionID: c.Param("id"),
		MaxBid:    req.MaxBidAmount,
		Strategy:  domain.AutoBidStrategy(strings.ToUpper(req.Strategy)),
	}
	if req.ActivationThreshold.Valid {
		threshold := req.ActivationThreshold.Decimal
		autoReq.ActivationThreshold = &threshold
	}

	rule, err := h.engine.CreateAutoBidRule(c.Request().Context(), autoReq)
	if err != nil {
		return fail(c, h.log, err, "Failed to create auto-bid rule")
	}
	return respond(c, http.StatusCreated, rule, "Auto-bid rule created successfully")
}

func (h *AuctionHandler) CreateProxyBid(c echo.Context) error {
	var req ProxyBidRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, h.log, err, "")
	}

	proxy, err := h.engine.CreateProxyBid(c.Request().Context(), req.UserID, c.Param("id"), req.MaximumBid)
	if err != nil {
		return fail(c, h.log, err, "Failed to create proxy bid")
	}
	return respond(c, http.StatusCreated, proxy, "Proxy bid created successfully")
}

// CloseAuction ends the auction now, or cancels it when the body asks to.
func (h *AuctionHandler) CloseAuction(c echo.Context) error {
	var req CloseAuctionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return fail(c, h.log, domain.Validation("Invalid request body"), "")
		}
	}

	ctx := c.Request().Context()
	var (
		auction *domain.Auction
		err     error
	)
	if req.Cancel {
		auction, err = h.auctionManager.CancelAuction(ctx, c.Param("id"))
	} else {
		auction, err = h.auctionManager.EndAuction(ctx, c.Param("id"))
	}
	if err != nil {
		return fail(c, h.log, err, "Failed to close auction")
	}
	return respond(c, http.StatusOK, auction, "Auction closed")
}

func (h *AuctionHandler) BidHistory(c echo.Context) error {
	ctx := c.Request().Context()
	auctionID := c.Param("id")
	if _, err := h.engine.GetAuction(ctx, auctionID); err != nil {
		return fail(c, h.log, err, "Failed to fetch bid history")
	}

	bids, err := h.cache.GetBidHistory(ctx, auctionID, queryInt(c, "limit", 50))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch bid history")
	}
	return respond(c, http.StatusOK, bids, "")
}

func (h *AuctionHandler) ListNotifications(c echo.Context) error {
	userID := c.QueryParam("userId")
	unread := c.QueryParam("unread") == "true"

	notifications, err := h.engine.ListNotifications(c.Request().Context(), userID, unread, queryInt(c, "limit", 50))
	if err != nil {
		return fail(c, h.log, err, "Failed to fetch notifications")
	}
	if notifications == nil {
		notifications = []*domain.BidNotification{}
	}
	return respond(c, http.StatusOK, notifications, "")
}

type MarkReadRequest struct {
	UserID string   `json:"userId" validate:"required"`
	IDs    []string `json:"ids"`
}

func (h *AuctionHandler) MarkNotificationsRead(c echo.Context) error {
	var req MarkReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, h.log, err, "")
	}
	n, err := h.engine.MarkNotificationsRead(c.Request().Context(), req.UserID, req.IDs)
	if err != nil {
		return fail(c, h.log, err, "Failed to update notifications")
	}
	return respond(c, http.StatusOK, map[string]int64{"updated": n}, "")
}

package api

import (
	"ece-marketplace/internal/api/handlers"
	"ece-marketplace/internal/api/middleware"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Services bundles what the HTTP surface calls into.
type Services struct {
	Ledger         *services.LedgerService
	Orders         *services.OrderService
	AuctionManager *services.AuctionManager
	Engine         *services.AutoBidService
	Cache          *services.CacheService
}

type RouterConfig struct {
	AdminToken string
}

func NewRouter(svc Services, cfg RouterConfig, log logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
		},
		MaxAge: 86400,
	}))
	e.Use(middleware.RequestLogger(log))

	wallet := handlers.NewWalletHandler(svc.Ledger, log)
	orders := handlers.NewOrderHandler(svc.Orders, log)
	admin := handlers.NewAdminHandler(svc.Orders, log)
	auctions := handlers.NewAuctionHandler(svc.AuctionManager, svc.Engine, svc.Cache, log)
	catalog := handlers.NewCatalogHandler(svc.Cache, log)

	api := e.Group("/api/v1")

	api.GET("/wallet", wallet.GetWallet)
	api.POST("/wallet", wallet.CreateTransaction)
	api.PUT("/wallet", wallet.UpdateTransaction)

	api.GET("/orders", orders.ListOrders)
	api.POST("/orders", orders.CreateOrder)
	api.PUT("/orders", orders.UpdateOrder)

	adminGroup := api.Group("/admin", middleware.AdminAuth(cfg.AdminToken))
	adminGroup.PUT("/orders", admin.UpdateOrder)
	adminGroup.POST("/orders", admin.SendMessage)

	api.POST("/auctions", auctions.CreateAuction)
	api.GET("/auctions/:id", auctions.GetAuction)
	api.POST("/auctions/:id/bids", auctions.PlaceBid)
	api.POST("/auctions/:id/auto-bid", auctions.CreateAutoBidRule)
	api.POST("/auctions/:id/proxy-bid", auctions.CreateProxyBid)
	api.POST("/auctions/:id/close", auctions.CloseAuction)
	api.GET("/auctions/:id/bids/history", auctions.BidHistory)

	api.GET("/notifications", auctions.ListNotifications)
	api.POST("/notifications/read", auctions.MarkNotificationsRead)

	api.GET("/cards/:id", catalog.GetCard)
	api.GET("/battles/:id", catalog.GetBattle)
	api.GET("/battles/:id/history", catalog.GetBattleHistory)
	api.POST("/battles/:id/preload", catalog.PreloadBattle)
	api.GET("/marketplace/listings", catalog.ListListings)
	api.GET("/leaderboards/:type", catalog.GetLeaderboard)
	api.GET("/sessions/:userId", catalog.GetSession)
	api.PUT("/sessions/:userId", catalog.PutSession)

	e.GET("/health", catalog.Health)

	return e
}

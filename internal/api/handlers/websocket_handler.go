package handlers

import (
	"net/http"

	"ece-marketplace/internal/api/middleware"
	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/infrastructure/websocket"
	"ece-marketplace/pkg/logger"

	"github.com/gorilla/mux"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
}

func NewWebSocketHandlers(bids websocket.BidPlacer, connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		wsHandler: websocket.NewWebSocketHandler(bids, connManager, log),
	}
}

func (h *WebSocketHandlers) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}

// NewBiddingRouter serves the live auction feed.
func NewBiddingRouter(h *WebSocketHandlers, log logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.CORS(log))

	router.HandleFunc("/ws/auction/{auctionID}", h.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}

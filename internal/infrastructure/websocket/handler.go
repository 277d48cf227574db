package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const bidTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BidPlacer is the manual bid entry point of the bid engine.
type BidPlacer interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*domain.Bid, error)
	GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error)
}

type inboundMessage struct {
	Type   string          `json:"type"`
	Amount json.RawMessage `json:"amount"`
}

type WebSocketHandler struct {
	bids        BidPlacer
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(bids BidPlacer, connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{bids: bids, connManager: connManager, log: log}
}

// HandleConnection upgrades GET /ws/auction/{auctionID}?user_id= into a live
// feed. Only PENDING and ACTIVE auctions accept connections.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionID"]
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	auction, err := h.bids.GetAuction(r.Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to load auction", "auction_id", auctionID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if auction.Status == domain.AuctionEnded || auction.Status == domain.AuctionCancelled {
		http.Error(w, "auction has already ended", http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := NewConnection(ws, userID, auctionID)
	if err := h.connManager.RegisterConnection(userID, auctionID, conn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		_ = conn.Close()
		return
	}

	_ = conn.Send(map[string]interface{}{
		"type":    "auction_state",
		"auction": auction,
	})

	go h.handleMessages(conn)
}

func (h *WebSocketHandler) handleMessages(conn *Connection) {
	defer func() {
		_ = h.connManager.UnregisterConnection(conn.UserID(), conn.AuctionID())
		_ = conn.Close()
	}()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Connection read failed", "user_id", conn.UserID(), "error", err)
			}
			return
		}

		switch msg.Type {
		case "place_bid":
			h.handleBidMessage(conn, msg)
		case "ping":
			_ = conn.Send(map[string]string{"type": "pong"})
		default:
			_ = conn.Send(map[string]string{"type": "error", "message": "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) handleBidMessage(conn *Connection, msg inboundMessage) {
	amount, err := parseAmount(msg.Amount)
	if err != nil {
		_ = conn.Send(map[string]string{"type": "error", "message": "invalid amount"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), bidTimeout)
	defer cancel()

	bid, err := h.bids.PlaceBid(ctx, conn.AuctionID(), conn.UserID(), amount)
	if err != nil {
		message := "failed to place bid"
		var derr *domain.Error
		if errors.As(err, &derr) {
			message = derr.Message
		} else {
			h.log.Error("Failed to place bid", "auction_id", conn.AuctionID(), "user_id", conn.UserID(), "error", err)
		}
		_ = conn.Send(map[string]string{"type": "bid_rejected", "message": message})
		return
	}

	_ = conn.Send(map[string]interface{}{"type": "bid_placed", "bid": bid})
}

// parseAmount accepts the amount as a JSON string or number.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, errors.New("missing amount")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	return decimal.NewFromString(string(raw))
}

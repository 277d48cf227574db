package services

import (
	"fmt"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

func NotificationMessage(t domain.NotificationType, bidAmount decimal.Decimal, outbidAmount decimal.NullDecimal) string {
	switch t {
	case domain.NotifyOutbid:
		return fmt.Sprintf("You've been outbid! Current bid: %s ECE (your bid: %s ECE)",
			bidAmount.String(), outbidAmount.Decimal.String())
	case domain.NotifyWinning:
		return fmt.Sprintf("You're currently winning with a bid of %s ECE!", bidAmount.String())
	case domain.NotifyAuctionEnding:
		return fmt.Sprintf("Auction ending soon! Current bid: %s ECE", bidAmount.String())
	case domain.NotifyAuctionEnded:
		return fmt.Sprintf("Auction ended. Final bid: %s ECE", bidAmount.String())
	case domain.NotifyNewBid:
		return fmt.Sprintf("New bid placed: %s ECE", bidAmount.String())
	default:
		return fmt.Sprintf("Bid update: %s ECE", bidAmount.String())
	}
}

func newNotification(userID, auctionID string, t domain.NotificationType, bidAmount decimal.Decimal, outbid *decimal.Decimal) *domain.BidNotification {
	n := &domain.BidNotification{
		ID:        utils.GenerateID("ntf"),
		UserID:    userID,
		AuctionID: auctionID,
		Type:      t,
		BidAmount: bidAmount,
	}
	if outbid != nil {
		n.OutbidAmount = decimal.NullDecimal{Decimal: *outbid, Valid: true}
	}
	n.Message = NotificationMessage(t, bidAmount, n.OutbidAmount)
	return n
}

package websocket

import (
	"encoding/json"
	"sync"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"
)

// ConnectionManager indexes live sockets by auction and by user so bid
// updates fan out to an auction room and notifications reach one user on
// every auction page they have open.
type ConnectionManager struct {
	connections map[string]map[string]domain.WebSocketConnection // auctionID -> userID -> connection
	userConns   map[string][]domain.WebSocketConnection          // userID -> connections
	mutex       sync.RWMutex
	log         logger.Logger
}

var _ domain.ConnectionManager = (*ConnectionManager)(nil)

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]domain.WebSocketConnection),
		userConns:   make(map[string][]domain.WebSocketConnection),
		log:         log,
	}
}

// RegisterConnection replaces an older socket of the same user in the same
// auction room.
func (cm *ConnectionManager) RegisterConnection(userID, auctionID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[auctionID] == nil {
		cm.connections[auctionID] = make(map[string]domain.WebSocketConnection)
	}
	if previous, ok := cm.connections[auctionID][userID]; ok && previous != conn {
		cm.removeUserConn(userID, previous)
		_ = previous.Close()
	}
	cm.connections[auctionID][userID] = conn
	cm.userConns[userID] = append(cm.userConns[userID], conn)

	cm.log.Info("Connection registered", "user_id", userID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(userID, auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if auctionConns, exists := cm.connections[auctionID]; exists {
		if conn, ok := auctionConns[userID]; ok {
			cm.removeUserConn(userID, conn)
		}
		delete(auctionConns, userID)
		if len(auctionConns) == 0 {
			delete(cm.connections, auctionID)
		}
	}

	cm.log.Info("Connection unregistered", "user_id", userID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) CloseAndUnregisterConnections(auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	auctionConns, exists := cm.connections[auctionID]
	if !exists {
		return nil
	}
	for userID, conn := range auctionConns {
		if err := conn.Close(); err != nil {
			cm.log.Warn("Failed to close connection", "user_id", userID, "auction_id", auctionID, "error", err)
		}
		cm.removeUserConn(userID, conn)
	}
	delete(cm.connections, auctionID)

	cm.log.Info("Connections closed for auction", "auction_id", auctionID, "count", len(auctionConns))
	return nil
}

// removeUserConn must be called with mutex held.
func (cm *ConnectionManager) removeUserConn(userID string, conn domain.WebSocketConnection) {
	existing := cm.userConns[userID]
	kept := existing[:0]
	for _, c := range existing {
		if c != conn {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(cm.userConns, userID)
		return
	}
	cm.userConns[userID] = kept
}

func (cm *ConnectionManager) GetConnectionsForAuction(auctionID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	connections := make([]domain.WebSocketConnection, 0, len(cm.connections[auctionID]))
	for _, conn := range cm.connections[auctionID] {
		connections = append(connections, conn)
	}
	return connections
}

func (cm *ConnectionManager) GetConnectionsForUser(userID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	return append([]domain.WebSocketConnection(nil), cm.userConns[userID]...)
}

func (cm *ConnectionManager) BroadcastToAuction(auctionID string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	connections := cm.GetConnectionsForAuction(auctionID)
	cm.log.Debug("Broadcasting to auction", "auction_id", auctionID, "connections", len(connections))
	for _, conn := range connections {
		if err := conn.Send(messageBytes); err != nil {
			cm.log.Warn("Failed to send message", "user_id", conn.UserID(), "auction_id", auctionID, "error", err)
		}
	}
	return nil
}

func (cm *ConnectionManager) NotifyUser(userID string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range cm.GetConnectionsForUser(userID) {
		if err := conn.Send(messageBytes); err != nil {
			cm.log.Warn("Failed to send message", "user_id", userID, "error", err)
		}
	}
	return nil
}

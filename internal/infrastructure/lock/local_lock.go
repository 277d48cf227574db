package lock

import (
	"context"
	"sync"

	"ece-marketplace/internal/domain"
)

// LocalAuctionLocker is a keyed mutex for single-process deployments and
// tests. Entries are dropped once nobody holds or waits for them.
type LocalAuctionLocker struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

var _ domain.AuctionLocker = (*LocalAuctionLocker)(nil)

func NewLocalAuctionLocker() *LocalAuctionLocker {
	return &LocalAuctionLocker{locks: make(map[string]*localEntry)}
}

func (l *LocalAuctionLocker) Lock(ctx context.Context, auctionID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[auctionID]
	if !ok {
		e = &localEntry{sem: make(chan struct{}, 1)}
		l.locks[auctionID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(auctionID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.drop(auctionID, e)
		})
	}, nil
}

func (l *LocalAuctionLocker) drop(auctionID string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, auctionID)
	}
}

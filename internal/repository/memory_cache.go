package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/uma-arai/sbcntr-court/internal/model"
)

// MemoryReservationCache はプロセス内の ReservationCache です
// Redis を使わない構成とテストで使います
type MemoryReservationCache struct {
	mu     sync.RWMutex
	byID   map[string]model.Reservation
	loaded map[string]bool
	// ReplaceAll 済みなら全ユーザーが読み込み済み
	allLoaded bool
}

func NewMemoryReservationCache() *MemoryReservationCache {
	return &MemoryReservationCache{
		byID:   map[string]model.Reservation{},
		loaded: map[string]bool{},
	}
}

func (c *MemoryReservationCache) Put(_ context.Context, r model.Reservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r.Court = nil
	c.byID[r.ID] = r
	return nil
}

// UpdateStatus はキャッシュに無い予約を無視します
func (c *MemoryReservationCache) UpdateStatus(_ context.Context, id string, status model.ReservationStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.byID[id]; ok {
		r.Status = status
		c.byID[id] = r
	}
	return nil
}

func (c *MemoryReservationCache) Get(_ context.Context, id string) (*model.Reservation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byID[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (c *MemoryReservationCache) ByUser(_ context.Context, userID string) ([]model.Reservation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rs := []model.Reservation{}
	for _, r := range c.byID {
		if r.UserID == userID {
			rs = append(rs, r)
		}
	}
	sortReservations(rs)
	return rs, nil
}

func (c *MemoryReservationCache) UserLoaded(_ context.Context, userID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allLoaded || c.loaded[userID], nil
}

func (c *MemoryReservationCache) ReplaceUser(_ context.Context, userID string, rs []model.Reservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, r := range c.byID {
		if r.UserID == userID {
			delete(c.byID, id)
		}
	}
	for _, r := range rs {
		r.Court = nil
		c.byID[r.ID] = r
	}
	c.loaded[userID] = true
	return nil
}

func (c *MemoryReservationCache) ReplaceAll(_ context.Context, rs []model.Reservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]model.Reservation, len(rs))
	for _, r := range rs {
		r.Court = nil
		c.byID[r.ID] = r
	}
	c.loaded = map[string]bool{}
	c.allLoaded = true
	return nil
}

// 日付・開始時刻の昇順
func sortReservations(rs []model.Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		if c := rs[i].Date.Compare(rs[j].Date); c != 0 {
			return c < 0
		}
		return rs[i].StartTime < rs[j].StartTime
	})
}

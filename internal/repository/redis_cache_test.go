package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

func newTestRedisCache(t *testing.T) (*RedisReservationCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisReservationCache(client), mr
}

func reservationIDs(rs []model.Reservation) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestRedisReservationCache_PutGetUpdate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedisCache(t)

	r := newReservation("r1", "user1", "padel-cristal", 20, 10, 0).WithCourt(&model.Court{ID: "padel-cristal"})
	if err := c.Put(ctx, r); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := c.Get(ctx, "r1")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if got.Court != nil {
		t.Error("court display data should not be cached")
	}
	if !got.Date.Equal(r.Date) || got.StartTime != r.StartTime || got.UserID != "user1" {
		t.Errorf("Get() = %+v, want %+v", got, r)
	}

	if err := c.UpdateStatus(ctx, "r1", model.StatusCancelled); err != nil {
		t.Fatal(err)
	}
	got, _ = c.Get(ctx, "r1")
	if got.Status != model.StatusCancelled {
		t.Errorf("status = %v, want cancelled", got.Status)
	}

	if err := c.UpdateStatus(ctx, "missing", model.StatusCancelled); err != nil {
		t.Errorf("UpdateStatus(missing) error = %v, want nil", err)
	}
	if missing, err := c.Get(ctx, "missing"); err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestRedisReservationCache_ReplaceUser(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedisCache(t)

	_ = c.Put(ctx, newReservation("old", "user1", "padel-cemento", 19, 10, 0))
	_ = c.Put(ctx, newReservation("other", "user2", "padel-cemento", 19, 10, 0))

	loaded, err := c.UserLoaded(ctx, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded {
		t.Error("UserLoaded() = true after Put only, want false")
	}

	err = c.ReplaceUser(ctx, "user1", []model.Reservation{
		newReservation("r2", "user1", "padel-cemento", 22, 19, 0),
		newReservation("r1", "user1", "padel-cemento", 20, 10, 0),
	})
	if err != nil {
		t.Fatalf("ReplaceUser() error = %v", err)
	}

	rs, err := c.ByUser(ctx, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if got := reservationIDs(rs); len(got) != 2 || got[0] != "r1" || got[1] != "r2" {
		t.Errorf("ByUser(user1) = %v, want [r1 r2]", got)
	}
	if old, _ := c.Get(ctx, "old"); old != nil {
		t.Error("old entry of user1 should be removed")
	}
	if other, _ := c.Get(ctx, "other"); other == nil {
		t.Error("entries of other users should be kept")
	}

	if loaded, _ := c.UserLoaded(ctx, "user1"); !loaded {
		t.Error("UserLoaded(user1) = false after ReplaceUser")
	}
	if loaded, _ := c.UserLoaded(ctx, "user2"); loaded {
		t.Error("UserLoaded(user2) = true, want false")
	}
}

func TestRedisReservationCache_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	_ = c.ReplaceUser(ctx, "user1", []model.Reservation{newReservation("stale", "user1", "padel-cemento", 19, 10, 0)})
	_ = c.Put(ctx, newReservation("stale2", "user3", "padel-cemento", 19, 11, 30))

	err := c.ReplaceAll(ctx, []model.Reservation{
		newReservation("r1", "user1", "padel-cemento", 20, 10, 0),
		newReservation("r2", "user2", "tennis-piscina", 20, 16, 0),
	})
	if err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	tests := []struct {
		name   string
		userID string
		want   []string
	}{
		{name: "置き換え前の予約は残らない", userID: "user1", want: []string{"r1"}},
		{name: "新しいユーザーの索引が作られる", userID: "user2", want: []string{"r2"}},
		{name: "予約のないユーザーは空", userID: "user3", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := c.ByUser(ctx, tt.userID)
			if err != nil {
				t.Fatal(err)
			}
			got := reservationIDs(rs)
			if len(got) != len(tt.want) {
				t.Fatalf("ByUser(%s) = %v, want %v", tt.userID, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ByUser(%s) = %v, want %v", tt.userID, got, tt.want)
				}
			}
			if loaded, _ := c.UserLoaded(ctx, tt.userID); !loaded {
				t.Errorf("UserLoaded(%s) = false after ReplaceAll", tt.userID)
			}
		})
	}

	members, err := mr.SMembers(redisAllKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Errorf("all index = %v, want 2 ids", members)
	}
	if mr.Exists(reservationKey("stale2")) {
		t.Error("stale reservation body should be deleted")
	}
}

func TestRedisReservationCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	_ = c.ReplaceUser(ctx, "user1", []model.Reservation{newReservation("r1", "user1", "padel-cemento", 20, 10, 0)})
	mr.FastForward(c.ttl)

	if loaded, _ := c.UserLoaded(ctx, "user1"); loaded {
		t.Error("UserLoaded() = true after TTL, want false")
	}
	rs, err := c.ByUser(ctx, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 0 {
		t.Errorf("ByUser() = %v after TTL, want empty", reservationIDs(rs))
	}
}

func TestReservations_WithRedisCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedisCache(t)
	remote := NewMockReservationStore(newReservation("r1", "user1", "padel-cemento", 20, 10, 0))
	repo := NewReservations(remote, c)

	if err := repo.Insert(ctx, newReservation("r2", "user1", "padel-cemento", 22, 19, 0)); err != nil {
		t.Fatal(err)
	}

	rs, err := repo.ListByUser(ctx, "user1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("ListByUser() = %v, want 2 reservations", reservationIDs(rs))
	}

	rs, _ = repo.ListByUser(ctx, "user1")
	if len(rs) != 2 || remote.byUserCalls != 1 {
		t.Errorf("second ListByUser() = %v, remote calls %d; want cached result", reservationIDs(rs), remote.byUserCalls)
	}
}

package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

// Reservations はリモートの正本とローカルキャッシュをまとめたリポジトリです
// 書き込みはリモートを先に行い、成功した場合のみローカルへ反映します
// 枠の排他やユーザーの上限判定に使う読み取りは常にリモートを参照します
type Reservations struct {
	remote ReservationStore
	local  ReservationCache
}

func NewReservations(remote ReservationStore, local ReservationCache) *Reservations {
	return &Reservations{remote: remote, local: local}
}

func (r *Reservations) ActiveByCourtAndDate(ctx context.Context, courtID string, date model.Date) ([]model.Reservation, error) {
	return r.remote.ActiveByCourtAndDate(ctx, courtID, date)
}

func (r *Reservations) ActiveByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	return r.remote.ActiveByUser(ctx, userID)
}

func (r *Reservations) ByID(ctx context.Context, id string) (*model.Reservation, error) {
	return r.remote.ByID(ctx, id)
}

// Insert はリモートに保存した後ローカルへ反映します
// ローカルの失敗はログに残し、次回のリフレッシュで回復させます
func (r *Reservations) Insert(ctx context.Context, res model.Reservation) error {
	if err := r.remote.Insert(ctx, res); err != nil {
		return err
	}
	if err := r.local.Put(ctx, res); err != nil {
		log.Printf("failed to mirror reservation %s to local cache: %v", res.ID, err)
	}
	return nil
}

func (r *Reservations) UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	if err := r.remote.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	if err := r.local.UpdateStatus(ctx, id, status); err != nil {
		log.Printf("failed to mirror status of reservation %s to local cache: %v", id, err)
	}
	return nil
}

// Get はキャッシュから予約を取得し、無ければリモートから読み込みます
func (r *Reservations) Get(ctx context.Context, id string) (*model.Reservation, error) {
	cached, err := r.local.Get(ctx, id)
	if err != nil {
		log.Printf("failed to read reservation %s from local cache: %v", id, err)
	}
	if cached != nil {
		return cached, nil
	}

	res, err := r.remote.ByID(ctx, id)
	if err != nil || res == nil {
		return res, err
	}
	if err := r.local.Put(ctx, *res); err != nil {
		log.Printf("failed to mirror reservation %s to local cache: %v", id, err)
	}
	return res, nil
}

// ListByUser はユーザーの予約一覧を返します
// キャッシュにユーザーの全件が読み込み済みの場合のみキャッシュを使い、
// それ以外はリモートから読み込んでキャッシュを置き換えます
func (r *Reservations) ListByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	loaded, err := r.local.UserLoaded(ctx, userID)
	if err != nil {
		log.Printf("failed to check local cache state of %s: %v", userID, err)
	}
	if loaded {
		cached, err := r.local.ByUser(ctx, userID)
		if err == nil {
			return cached, nil
		}
		log.Printf("failed to read reservations of %s from local cache: %v", userID, err)
	}

	rs, err := r.remote.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.local.ReplaceUser(ctx, userID, rs); err != nil {
		log.Printf("failed to mirror reservations of %s to local cache: %v", userID, err)
	}
	return rs, nil
}

// RefreshUser はユーザーのキャッシュをリモートの内容で置き換えます
func (r *Reservations) RefreshUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	rs, err := r.remote.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.local.ReplaceUser(ctx, userID, rs); err != nil {
		return nil, apperror.Unknown(fmt.Errorf("failed to refresh local cache for %s: %w", userID, err))
	}
	return rs, nil
}

// RefreshAll はキャッシュ全体をリモートの内容で置き換え、件数を返します
func (r *Reservations) RefreshAll(ctx context.Context) (int, error) {
	rs, err := r.remote.All(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.local.ReplaceAll(ctx, rs); err != nil {
		return 0, apperror.Unknown(fmt.Errorf("failed to refresh local cache: %w", err))
	}
	return len(rs), nil
}

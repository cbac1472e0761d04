package repository

import (
	"context"

	"github.com/uma-arai/sbcntr-court/internal/model"
)

// ReservationStore は予約の正本を保持するリモートストアです
// 見つからない場合 ByID は nil, nil を返します
type ReservationStore interface {
	ActiveByCourtAndDate(ctx context.Context, courtID string, date model.Date) ([]model.Reservation, error)
	ActiveByUser(ctx context.Context, userID string) ([]model.Reservation, error)
	ByID(ctx context.Context, id string) (*model.Reservation, error)
	ByUser(ctx context.Context, userID string) ([]model.Reservation, error)
	All(ctx context.Context) ([]model.Reservation, error)
	Insert(ctx context.Context, r model.Reservation) error
	UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error
}

// ReservationCache は読み取り用のローカルキャッシュです
// 排他制御の判定には使いません
// Put で入った予約だけではユーザーの一覧は揃いません。ReplaceUser か ReplaceAll の後に限り
// UserLoaded が true を返します
type ReservationCache interface {
	Put(ctx context.Context, r model.Reservation) error
	UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error
	Get(ctx context.Context, id string) (*model.Reservation, error)
	ByUser(ctx context.Context, userID string) ([]model.Reservation, error)
	UserLoaded(ctx context.Context, userID string) (bool, error)
	ReplaceUser(ctx context.Context, userID string, rs []model.Reservation) error
	ReplaceAll(ctx context.Context, rs []model.Reservation) error
}

// CourtCatalog はコート情報の読み取り専用カタログです
// 見つからない場合 GetCourtByID は nil, nil を返します
type CourtCatalog interface {
	GetCourtByID(ctx context.Context, id string) (*model.Court, error)
	ListCourts(ctx context.Context) ([]model.Court, error)
}

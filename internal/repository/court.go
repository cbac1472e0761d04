package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

// CourtRepositoryImpl は PostgreSQL 上のコートカタログです
type CourtRepositoryImpl struct {
	db *DB
}

// NewCourtRepository は新しいCourtRepositoryを作成します
func NewCourtRepository(db *DB) *CourtRepositoryImpl {
	return &CourtRepositoryImpl{
		db: db,
	}
}

// GetCourtByID は指定されたコートIDのコートを取得します
func (r *CourtRepositoryImpl) GetCourtByID(ctx context.Context, id string) (*model.Court, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "CourtRepository.GetCourtByID")
	defer seg.Close(nil)

	query := `
		SELECT id, sport_type, specific_option, is_available, image_url, display_order
		FROM courts
		WHERE id = $1`

	var court model.Court
	if err := r.db.GetContext(ctx, &court, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("failed to get court: %w", err))
	}

	return &court, nil
}

// ListCourts は表示順にコートを取得します
func (r *CourtRepositoryImpl) ListCourts(ctx context.Context) ([]model.Court, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "CourtRepository.ListCourts")
	defer seg.Close(nil)

	query := `
		SELECT id, sport_type, specific_option, is_available, image_url, display_order
		FROM courts
		ORDER BY display_order ASC, id ASC`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("failed to query courts: %w", err))
	}
	defer rows.Close()

	courts := []model.Court{}
	for rows.Next() {
		var c model.Court
		if err := rows.StructScan(&c); err != nil {
			seg.Close(err)
			return nil, apperror.Unknown(fmt.Errorf("failed to scan court row: %w", err))
		}
		courts = append(courts, c)
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, apperror.Network(fmt.Errorf("error iterating court rows: %w", err))
	}

	return courts, nil
}

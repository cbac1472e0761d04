package repository

import (
	"context"
	"database/sql"
	"log"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
)

// DB は X-Ray のサブセグメントでクエリを記録する sqlx.DB のラッパーです
type DB struct {
	*sqlx.DB
}

func NewDB(conn *sqlx.DB) *DB {
	return &DB{conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// QueryxContext wraps sqlx.DB.QueryxContext with X-Ray tracing
func (db *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Queryx")
	if seg == nil {
		return db.DB.QueryxContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("Failed to add query metadata: %v", err)
	}

	rows, err := db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return rows, nil
}

// GetContext wraps sqlx.DB.GetContext with X-Ray tracing
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Get")
	if seg == nil {
		return db.DB.GetContext(ctx, dest, query, args...)
	}
	defer seg.Close(nil)

	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("Failed to add query metadata: %v", err)
	}

	if err := db.DB.GetContext(ctx, dest, query, args...); err != nil {
		seg.Close(err)
		return err
	}

	return nil
}

// ExecContext wraps sqlx.DB.ExecContext with X-Ray tracing
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Exec")
	if seg == nil {
		return db.DB.ExecContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("Failed to add query metadata: %v", err)
	}

	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return result, nil
}

// EnsureSchema はテーブルとインデックスが無ければ作成します
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	log.Println("DB schema ensured")
	return nil
}

// Package backend は設定に従ってストア、キャッシュ、イベント発行先を組み立てます
package backend

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/go-redis/redis/v8"
	"github.com/uma-arai/sbcntr-court/internal/common/config"
	"github.com/uma-arai/sbcntr-court/internal/common/database"
	"github.com/uma-arai/sbcntr-court/internal/events"
	"github.com/uma-arai/sbcntr-court/internal/repository"
	"google.golang.org/api/option"
)

// Backend は外部リソースへの接続をまとめて保持し、Close でまとめて閉じます
type Backend struct {
	cfg *config.Config

	Store     repository.ReservationStore
	Courts    repository.CourtCatalog
	Cache     repository.ReservationCache
	Publisher events.Publisher

	db        *repository.DB
	app       *firebase.App
	firestore *firestore.Client
	redis     *redis.Client
	amqp      *events.AMQPPublisher
}

// Open は正本ストア、コートカタログ、ローカルキャッシュ、イベント発行先を開きます
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{cfg: cfg}
	if err := b.openRemote(ctx); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openCache(ctx); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openPublisher(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) openRemote(ctx context.Context) error {
	switch b.cfg.RemoteBackend {
	case config.BackendFirestore:
		app, err := b.firebaseApp(ctx)
		if err != nil {
			return err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("failed to create firestore client: %w", err)
		}
		b.firestore = client
		b.Store = repository.NewFirestoreReservationRepository(client)
		b.Courts = repository.NewFirestoreCourtRepository(client)
		log.Println("Using Firestore as the remote store")
	default:
		db, err := b.SQL(ctx)
		if err != nil {
			return err
		}
		b.Store = repository.NewReservationRepository(db)
		b.Courts = repository.NewCourtRepository(db)
		log.Println("Using PostgreSQL as the remote store")
	}
	return nil
}

func (b *Backend) openCache(ctx context.Context) error {
	if b.cfg.Redis.Addr == "" {
		b.Cache = repository.NewMemoryReservationCache()
		log.Println("REDIS_ADDR is not set, using in-process reservation cache")
		return nil
	}
	client, err := repository.NewRedisClient(ctx, b.cfg.Redis.Addr, b.cfg.Redis.Password, b.cfg.Redis.DB)
	if err != nil {
		return err
	}
	b.redis = client
	b.Cache = repository.NewRedisReservationCache(client)
	return nil
}

func (b *Backend) openPublisher() error {
	if b.cfg.Rabbit.URL == "" {
		b.Publisher = events.NopPublisher{}
		log.Println("RABBIT_URL is not set, reservation events are not published")
		return nil
	}
	p, err := events.NewAMQPPublisher(b.cfg.Rabbit.URL, b.cfg.Rabbit.Exchange)
	if err != nil {
		return err
	}
	b.amqp = p
	b.Publisher = p
	return nil
}

// SharedCache は Redis を使っている場合のみ true です
// プロセス内キャッシュはバッチから更新しても意味がありません
func (b *Backend) SharedCache() bool {
	return b.redis != nil
}

// Reservations は正本とキャッシュをまとめたリポジトリを返します
func (b *Backend) Reservations() *repository.Reservations {
	return repository.NewReservations(b.Store, b.Cache)
}

// SQL は PostgreSQL への接続を返します。初回呼び出し時に接続してスキーマを作成します
// 通知は正本の保存先に関係なく PostgreSQL に保存します
func (b *Backend) SQL(ctx context.Context) (*repository.DB, error) {
	if b.db != nil {
		return b.db, nil
	}
	conn, err := database.Open(b.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	db := repository.NewDB(conn)
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	b.db = db
	return db, nil
}

// Notifications は通知リポジトリを返します
func (b *Backend) Notifications(ctx context.Context) (repository.NotificationRepository, error) {
	db, err := b.SQL(ctx)
	if err != nil {
		return nil, err
	}
	return repository.NewNotificationRepository(db), nil
}

// FirebaseAuth は Firebase Authentication のクライアントを返します
func (b *Backend) FirebaseAuth(ctx context.Context) (*firebaseauth.Client, error) {
	app, err := b.firebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return client, nil
}

func (b *Backend) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if b.app != nil {
		return b.app, nil
	}
	var opts []option.ClientOption
	if b.cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(b.cfg.Firebase.CredentialsFile))
	}
	var fbConfig *firebase.Config
	if b.cfg.Firebase.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: b.cfg.Firebase.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	b.app = app
	return app, nil
}

// Close は開いている接続をすべて閉じます
func (b *Backend) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.amqp != nil {
		keep(b.amqp.Close())
	}
	if b.redis != nil {
		keep(b.redis.Close())
	}
	if b.firestore != nil {
		keep(b.firestore.Close())
	}
	if b.db != nil {
		keep(b.db.Close())
	}
	return firstErr
}

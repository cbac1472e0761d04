package repository

var schema = []string{
	`CREATE TABLE IF NOT EXISTS courts (
		id              VARCHAR(64) PRIMARY KEY,
		sport_type      VARCHAR(16) NOT NULL,
		specific_option VARCHAR(32) NOT NULL,
		is_available    BOOLEAN     NOT NULL DEFAULT TRUE,
		image_url       TEXT        NOT NULL DEFAULT '',
		display_order   INTEGER     NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id               VARCHAR(64) PRIMARY KEY,
		user_id          VARCHAR(128) NOT NULL,
		court_id         VARCHAR(64)  NOT NULL,
		reservation_date DATE         NOT NULL,
		start_time       VARCHAR(5)   NOT NULL,
		duration_minutes INTEGER      NOT NULL DEFAULT 90,
		status           VARCHAR(16)  NOT NULL DEFAULT 'active',
		created_at       TIMESTAMPTZ  NOT NULL,
		updated_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user_status ON reservations (user_id, status)`,
	// 同じ枠に active な予約は1件だけ
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_reservations_active_slot
		ON reservations (court_id, reservation_date, start_time)
		WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id             SERIAL PRIMARY KEY,
		reservation_id VARCHAR(64),
		user_id        VARCHAR(128) NOT NULL,
		title          TEXT         NOT NULL,
		message        TEXT         NOT NULL,
		is_read        BOOLEAN      NOT NULL DEFAULT FALSE,
		type           VARCHAR(32)  NOT NULL,
		created_at     TIMESTAMPTZ  NOT NULL,
		updated_at     TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_reservation_type
		ON notifications (reservation_id, type)`,
}

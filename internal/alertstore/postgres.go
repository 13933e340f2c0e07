package alertstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// Postgres backs alerts and users with a shared database, the deployment
// target when more than one process writes alongside the sweep loop.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Postgres{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Postgres) Close() error { return r.db.Close() }

func (r *Postgres) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY,
  username TEXT,
  first_name TEXT,
  language_code TEXT,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  dnd_start TEXT,
  dnd_end TEXT,
  created_at_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL,
  coin_id TEXT NOT NULL,
  coin_symbol TEXT NOT NULL,
  coin_name TEXT NOT NULL,
  direction TEXT NOT NULL,
  trigger_kind TEXT NOT NULL,
  value_type TEXT NOT NULL,
  value DOUBLE PRECISION NOT NULL,
  reference_price DOUBLE PRECISION NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  expire_hours INT,
  created_at_ms BIGINT NOT NULL,
  triggered_at_ms BIGINT
);
CREATE INDEX IF NOT EXISTS idx_notifications_active ON notifications(is_active);
CREATE INDEX IF NOT EXISTS idx_notifications_coin ON notifications(coin_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
`)
	return err
}

func (r *Postgres) CreateAlert(ctx context.Context, a *model.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notifications
  (id, user_id, coin_id, coin_symbol, coin_name, direction, trigger_kind,
   value_type, value, reference_price, is_active, expire_hours, created_at_ms, triggered_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.UserID, a.CoinID, a.CoinSymbol, a.CoinName,
		string(a.Direction), string(a.Trigger), string(a.ValueType),
		a.Value, a.ReferencePrice, a.IsActive, a.ExpireHours,
		a.CreatedAt.UnixMilli(), millisPtr(a.TriggeredAt))
	return err
}

func (r *Postgres) ListActive(ctx context.Context) ([]model.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, coin_id, coin_symbol, coin_name, direction, trigger_kind,
       value_type, value, reference_price, is_active, expire_hours, created_at_ms, triggered_at_ms
FROM notifications WHERE is_active ORDER BY created_at_ms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var (
			a           model.Alert
			direction   string
			trigger     string
			valueType   string
			createdMs   int64
			triggeredMs *int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.CoinID, &a.CoinSymbol, &a.CoinName,
			&direction, &trigger, &valueType, &a.Value, &a.ReferencePrice,
			&a.IsActive, &a.ExpireHours, &createdMs, &triggeredMs); err != nil {
			return nil, err
		}
		a.Direction = model.Direction(direction)
		a.Trigger = model.TriggerKind(trigger)
		a.ValueType = model.ValueType(valueType)
		a.CreatedAt = time.UnixMilli(createdMs).UTC()
		a.TriggeredAt = timeFromMillis(triggeredMs)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Postgres) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ANY($1)`, ids)
	return err
}

func (r *Postgres) ClaimTrigger(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE notifications SET is_active = FALSE, triggered_at_ms = $1
WHERE id = $2 AND is_active`, at.UnixMilli(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Postgres) UpsertUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, first_name, language_code, is_active, dnd_start, dnd_end, created_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  username = EXCLUDED.username,
  first_name = EXCLUDED.first_name,
  language_code = EXCLUDED.language_code,
  is_active = EXCLUDED.is_active,
  dnd_start = EXCLUDED.dnd_start,
  dnd_end = EXCLUDED.dnd_end`,
		u.ID, u.Username, u.FirstName, u.LanguageCode, u.IsActive,
		formatDayTime(u.DNDStart), formatDayTime(u.DNDEnd), u.CreatedAt.UnixMilli())
	return err
}

func (r *Postgres) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var (
		u         model.User
		dndStart  *string
		dndEnd    *string
		createdMs int64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, username, first_name, language_code, is_active, dnd_start, dnd_end, created_at_ms
FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LanguageCode, &u.IsActive, &dndStart, &dndEnd, &createdMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.DNDStart = parseDayTime(dndStart)
	u.DNDEnd = parseDayTime(dndEnd)
	u.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &u, nil
}

var _ Repository = (*Postgres)(nil)

package alertstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// SQLite keeps alerts and users in a local file. Used for development and
// single-node deployments.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &SQLite{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLite) Close() error { return r.db.Close() }

func (r *SQLite) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  username TEXT,
  first_name TEXT,
  language_code TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  dnd_start TEXT,
  dnd_end TEXT,
  created_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  coin_id TEXT NOT NULL,
  coin_symbol TEXT NOT NULL,
  coin_name TEXT NOT NULL,
  direction TEXT NOT NULL,
  trigger_kind TEXT NOT NULL,
  value_type TEXT NOT NULL,
  value REAL NOT NULL,
  reference_price REAL NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  expire_hours INTEGER,
  created_at_ms INTEGER NOT NULL,
  triggered_at_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_notifications_active ON notifications(is_active);
CREATE INDEX IF NOT EXISTS idx_notifications_coin ON notifications(coin_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
`)
	return err
}

func (r *SQLite) CreateAlert(ctx context.Context, a *model.Alert) error {
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
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.CoinID, a.CoinSymbol, a.CoinName,
		string(a.Direction), string(a.Trigger), string(a.ValueType),
		a.Value, a.ReferencePrice, boolInt(a.IsActive), a.ExpireHours,
		a.CreatedAt.UnixMilli(), millisPtr(a.TriggeredAt))
	return err
}

func (r *SQLite) ListActive(ctx context.Context) ([]model.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, coin_id, coin_symbol, coin_name, direction, trigger_kind,
       value_type, value, reference_price, is_active, expire_hours, created_at_ms, triggered_at_ms
FROM notifications WHERE is_active = 1 ORDER BY created_at_ms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *SQLite) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id IN (`+placeholders+`)`, args...)
	return err
}

func (r *SQLite) ClaimTrigger(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE notifications SET is_active = 0, triggered_at_ms = ?
WHERE id = ? AND is_active = 1`, at.UnixMilli(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLite) UpsertUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, first_name, language_code, is_active, dnd_start, dnd_end, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  username = excluded.username,
  first_name = excluded.first_name,
  language_code = excluded.language_code,
  is_active = excluded.is_active,
  dnd_start = excluded.dnd_start,
  dnd_end = excluded.dnd_end`,
		u.ID, u.Username, u.FirstName, u.LanguageCode, boolInt(u.IsActive),
		formatDayTime(u.DNDStart), formatDayTime(u.DNDEnd), u.CreatedAt.UnixMilli())
	return err
}

func (r *SQLite) GetUser(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, first_name, language_code, is_active, dnd_start, dnd_end, created_at_ms
FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		active    int
		dndStart  *string
		dndEnd    *string
		createdMs int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LanguageCode, &active, &dndStart, &dndEnd, &createdMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.IsActive = active != 0
	u.DNDStart = parseDayTime(dndStart)
	u.DNDEnd = parseDayTime(dndEnd)
	u.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &u, nil
}

func scanAlerts(rows *sql.Rows) ([]model.Alert, error) {
	var out []model.Alert
	for rows.Next() {
		var (
			a           model.Alert
			direction   string
			trigger     string
			valueType   string
			active      int
			createdMs   int64
			triggeredMs *int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.CoinID, &a.CoinSymbol, &a.CoinName,
			&direction, &trigger, &valueType, &a.Value, &a.ReferencePrice,
			&active, &a.ExpireHours, &createdMs, &triggeredMs); err != nil {
			return nil, err
		}
		a.Direction = model.Direction(direction)
		a.Trigger = model.TriggerKind(trigger)
		a.ValueType = model.ValueType(valueType)
		a.IsActive = active != 0
		a.CreatedAt = time.UnixMilli(createdMs).UTC()
		a.TriggeredAt = timeFromMillis(triggeredMs)
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repository = (*SQLite)(nil)

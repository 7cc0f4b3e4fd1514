package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"svitlobot/internal/schedule"
	"svitlobot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Store is the single writer-of-record for group schedule state and
// subscriber rows. Both the ingestion and dispatch loops go through it; they
// touch disjoint tables, so no locking beyond sqlite's own is needed.
type Store struct {
	db  *sql.DB
	log logx.Logger

	now func() time.Time
}

// Open opens (or creates) the sqlite database, applies pragmas and runs the
// embedded migrations.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log.With(logx.String("comp", "storage")), now: time.Now}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- group schedule state ----

type stateJSON struct {
	Off   []string `json:"off"`
	On    []string `json:"on"`
	Maybe []string `json:"maybe"`
}

// State returns the stored schedule state for (group, slot), or nil when no
// snapshot has been recorded yet.
func (s *Store) State(ctx context.Context, group string, slot schedule.Slot) (*schedule.State, error) {
	var (
		scheduleDate string
		hash         string
		dataJSON     string
		updatedAt    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT schedule_date, hash, data_json, updated_at
		FROM group_state
		WHERE group_code = ? AND slot = ?`,
		group, string(slot),
	).Scan(&scheduleDate, &hash, &dataJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data stateJSON
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, fmt.Errorf("corrupt data_json for %s/%s: %w", group, slot, err)
	}
	st := &schedule.State{
		GroupCode:    group,
		Slot:         slot,
		ScheduleDate: scheduleDate,
		Hash:         hash,
		Off:          data.Off,
		On:           data.On,
		Maybe:        data.Maybe,
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		st.UpdatedAt = t
	}
	return st, nil
}

// SaveState upserts the schedule state row. Last write wins.
func (s *Store) SaveState(ctx context.Context, st schedule.State) error {
	data, err := json.Marshal(stateJSON{Off: st.Off, On: st.On, Maybe: st.Maybe})
	if err != nil {
		return err
	}
	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO group_state (group_code, slot, schedule_date, hash, data_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_code, slot) DO UPDATE SET
			schedule_date = excluded.schedule_date,
			hash          = excluded.hash,
			data_json     = excluded.data_json,
			updated_at    = excluded.updated_at`,
		st.GroupCode, string(st.Slot), st.ScheduleDate, st.Hash, string(data),
		updatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ---- subscribers ----

// UpsertSubscriber registers a user or refreshes their chat binding. A fresh
// row starts subscribed; an existing row keeps its subscription flag.
func (s *Store) UpsertSubscriber(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (user_id, chat_id, is_subscribed)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id = excluded.chat_id`,
		userID, chatID,
	)
	return err
}

// SetGroup assigns the user's outage group and re-enables the subscription;
// picking a group is the user saying "notify me".
func (s *Store) SetGroup(ctx context.Context, userID int64, group string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscribers SET group_code = ?, is_subscribed = 1 WHERE user_id = ?`,
		group, userID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("unknown subscriber %d", userID)
	}
	return nil
}

func (s *Store) SetSubscribed(ctx context.Context, userID int64, subscribed bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subscribers SET is_subscribed = ? WHERE user_id = ?`,
		boolToInt(subscribed), userID,
	)
	return err
}

// Subscriber returns one row, or nil when the user is unknown.
func (s *Store) Subscriber(ctx context.Context, userID int64) (*Subscriber, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, chat_id, group_code, is_subscribed, last_sent_at
		FROM subscribers WHERE user_id = ?`,
		userID,
	)
	sub, err := scanSubscriber(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Subscribers returns the delivery targets for a group: subscribed users
// whose group_code matches. Users without a group never match.
func (s *Store) Subscribers(ctx context.Context, group string) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, chat_id, group_code, is_subscribed, last_sent_at
		FROM subscribers
		WHERE group_code = ? AND is_subscribed = 1
		ORDER BY user_id`,
		group,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows.Scan)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// TouchLastSent records a successful delivery for rate limiting.
func (s *Store) TouchLastSent(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subscribers SET last_sent_at = ? WHERE user_id = ?`,
		s.now().UTC().Format(time.RFC3339Nano), userID,
	)
	return err
}

// CanSend is the per-subscriber anti-spam gate. It fails open: an unknown
// user or one with no recorded send is allowed; otherwise the gap since the
// last send must be at least 60/maxPerMinute seconds.
func (s *Store) CanSend(ctx context.Context, userID int64, maxPerMinute int) (bool, error) {
	if maxPerMinute <= 0 {
		maxPerMinute = 1
	}
	var lastSent sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT last_sent_at FROM subscribers WHERE user_id = ?`,
		userID,
	).Scan(&lastSent)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !lastSent.Valid || strings.TrimSpace(lastSent.String) == "" {
		return true, nil
	}
	last, err := time.Parse(time.RFC3339Nano, lastSent.String)
	if err != nil {
		// Unreadable timestamp: fail open rather than silence a user forever.
		s.log.Warn("unparsable last_sent_at", logx.Int64("user_id", userID), logx.Err(err))
		return true, nil
	}
	minGap := time.Duration(float64(time.Minute) / float64(maxPerMinute))
	return s.now().UTC().Sub(last) >= minGap, nil
}

func scanSubscriber(scan func(dest ...any) error) (*Subscriber, error) {
	var (
		sub       Subscriber
		groupCode sql.NullString
		subInt    int
		lastSent  sql.NullString
	)
	if err := scan(&sub.UserID, &sub.ChatID, &groupCode, &subInt, &lastSent); err != nil {
		return nil, err
	}
	sub.GroupCode = groupCode.String
	sub.IsSubscribed = subInt != 0
	if lastSent.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastSent.String); err == nil {
			sub.LastSentAt = &t
		}
	}
	return &sub, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

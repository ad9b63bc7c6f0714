package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/Mimonstr/CryptoMonitorBot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// normalize folds a currency symbol to its canonical uppercase form so that
// "btc" and "BTC" address the same row.
func normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func (r *SQLiteRepo) IsFavorite(ctx context.Context, userID int64, currency string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM favorites WHERE user_id = ? AND currency = ?`,
		userID, normalize(currency),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepo) AddFavorite(ctx context.Context, userID int64, currency string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO favorites (user_id, currency) VALUES (?, ?)`,
		userID, normalize(currency),
	)
	return err
}

// RemoveFavorite deletes the favorite and cascades to its subscription in a
// single transaction so the two collections never disagree.
func (r *SQLiteRepo) RemoveFavorite(ctx context.Context, userID int64, currency string) error {
	cur := normalize(currency)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND currency = ?`,
		userID, cur,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM subscriptions WHERE user_id = ? AND currency = ?`,
		userID, cur,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListFavorites returns the user's currencies in alphabetical order.
func (r *SQLiteRepo) ListFavorites(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT currency FROM favorites WHERE user_id = ? ORDER BY currency`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var cur string
		if err := rows.Scan(&cur); err != nil {
			return nil, err
		}
		res = append(res, cur)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) UpsertSubscription(ctx context.Context, userID int64, currency string, intervalMinutes int, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, currency, interval_minutes, last_notified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, currency) DO UPDATE SET
			interval_minutes = excluded.interval_minutes,
			last_notified_at = excluded.last_notified_at`,
		userID, normalize(currency), intervalMinutes, now.UTC().Unix(),
	)
	return err
}

func (r *SQLiteRepo) RemoveSubscription(ctx context.Context, userID int64, currency string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM subscriptions WHERE user_id = ? AND currency = ?`,
		userID, normalize(currency),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, currency, interval_minutes, last_notified_at
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY currency`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (r *SQLiteRepo) SubscriptionExists(ctx context.Context, userID int64, currency string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM subscriptions WHERE user_id = ? AND currency = ?`,
		userID, normalize(currency),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepo) TouchSubscription(ctx context.Context, userID int64, currency string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET last_notified_at = ?
		WHERE user_id = ? AND currency = ?`,
		now.UTC().Unix(), userID, normalize(currency),
	)
	return err
}

// UsersWithSubscriptions returns the distinct user ids that have at least one
// subscription. The scheduler walks this set on every sweep.
func (r *SQLiteRepo) UsersWithSubscriptions(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM subscriptions ORDER BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

func scanSubscriptions(rows *sql.Rows) ([]domain.Subscription, error) {
	var res []domain.Subscription
	for rows.Next() {
		var (
			userID   int64
			currency string
			minutes  int
			lastUnix int64
		)
		if err := rows.Scan(&userID, &currency, &minutes, &lastUnix); err != nil {
			return nil, err
		}
		res = append(res, domain.Subscription{
			UserID:          userID,
			Currency:        currency,
			IntervalMinutes: minutes,
			LastNotifiedAt:  time.Unix(lastUnix, 0).UTC(),
		})
	}
	return res, rows.Err()
}

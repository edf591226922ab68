package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/safar/go-checkout-core/internal/database"
)

func GetSetting(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string

	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`,
		key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", database.ErrSettingNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}

	return value, nil
}

// GetSettingInt64 reads a numeric setting, falling back to defaultValue when
// the key is missing or malformed. Business thresholds are re-read per
// invocation rather than cached.
func GetSettingInt64(ctx context.Context, db *sql.DB, key string, defaultValue int64) (int64, error) {
	value, err := GetSetting(ctx, db, key)
	if err != nil {
		if err == database.ErrSettingNotFound {
			return defaultValue, nil
		}
		return 0, err
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, nil
	}

	return parsed, nil
}

func SetSetting(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}

	return nil
}

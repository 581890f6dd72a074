package repository

import (
	"context"
	"fmt"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/pkg/cache"
	"trekko-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const settingCacheTTL = 5 * time.Minute

type PlatformSettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, updatedBy uuid.UUID) (uuid.UUID, error)
	List(ctx context.Context) ([]*entity.PlatformSetting, error)
}

type platformSettingRepository struct {
	db    database.PgxIface
	cache *cache.Client
	log   *zap.Logger
}

func NewPlatformSettingRepository(db database.PgxIface, cacheClient *cache.Client, log *zap.Logger) PlatformSettingRepository {
	return &platformSettingRepository{
		db:    db,
		cache: cacheClient,
		log:   log.With(zap.String("repository", "platform_setting")),
	}
}

func settingCacheKey(key string) string {
	return "platform_setting:" + key
}

// Get reads a setting through the cache. A missing row returns an empty value
// with no error; callers fall back to their configured default.
func (r *platformSettingRepository) Get(ctx context.Context, key string) (string, error) {
	if val, ok := r.cache.Get(ctx, settingCacheKey(key)); ok {
		return val, nil
	}

	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM platform_settings WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		r.log.Error("Failed to get platform setting", zap.Error(err), zap.String("key", key))
		return "", fmt.Errorf("get platform setting %s: %w", key, err)
	}

	r.cache.Set(ctx, settingCacheKey(key), value, settingCacheTTL)
	return value, nil
}

// Set upserts a setting and returns the stable row id so callers can audit
// the change against the setting itself.
func (r *platformSettingRepository) Set(ctx context.Context, key, value string, updatedBy uuid.UUID) (uuid.UUID, error) {
	query := `
		INSERT INTO platform_settings (id, key, value, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (key) DO UPDATE SET value = $3, updated_by = $4, updated_at = NOW()
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, uuid.New(), key, value, updatedBy).Scan(&id)
	if err != nil {
		r.log.Error("Failed to set platform setting", zap.Error(err), zap.String("key", key))
		return uuid.Nil, fmt.Errorf("set platform setting %s: %w", key, err)
	}

	r.cache.Delete(ctx, settingCacheKey(key))

	r.log.Info("Platform setting updated",
		zap.String("key", key),
		zap.String("value", value),
		zap.String("updated_by", updatedBy.String()),
	)

	return id, nil
}

func (r *platformSettingRepository) List(ctx context.Context) ([]*entity.PlatformSetting, error) {
	query := `
		SELECT id, key, value, description, updated_by, created_at, updated_at
		FROM platform_settings
		ORDER BY key
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to list platform settings", zap.Error(err))
		return nil, fmt.Errorf("list platform settings: %w", err)
	}
	defer rows.Close()

	var settings []*entity.PlatformSetting
	for rows.Next() {
		var s entity.PlatformSetting
		err := rows.Scan(&s.ID, &s.Key, &s.Value, &s.Description, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan platform setting row: %w", err)
		}
		settings = append(settings, &s)
	}

	return settings, rows.Err()
}

package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tickethub/panel/internal/database"
	"github.com/tickethub/panel/internal/models"
)

// SettingsRepository manages the singleton settings row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{pool: db.Pool}
}

const settingsColumns = "website_url, image_url, blacklist_channel_id, bot_token, bot_client_id, updated_at"

func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := `SELECT ` + settingsColumns + ` FROM settings WHERE id = 'singleton'`

	var s models.Settings
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.WebsiteURL, &s.ImageURL, &s.BlacklistChannelID,
		&s.BotToken, &s.BotClientID, &s.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

func (r *SettingsRepository) Update(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	query := `
		UPDATE settings
		SET website_url = $1, image_url = $2, blacklist_channel_id = $3,
			bot_token = $4, bot_client_id = $5, updated_at = now()
		WHERE id = 'singleton'
		RETURNING ` + settingsColumns

	var updated models.Settings
	err := r.pool.QueryRow(ctx, query,
		s.WebsiteURL, s.ImageURL, s.BlacklistChannelID,
		s.BotToken, s.BotClientID,
	).Scan(
		&updated.WebsiteURL, &updated.ImageURL, &updated.BlacklistChannelID,
		&updated.BotToken, &updated.BotClientID, &updated.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &updated, nil
}

// Seed inserts the singleton row if it does not exist yet.
func (r *SettingsRepository) Seed(ctx context.Context, imageURL string) error {
	query := `
		INSERT INTO settings (id, image_url)
		VALUES ('singleton', $1)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, imageURL)
	return err
}

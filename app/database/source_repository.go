package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ SourceRepository = (*SourceRepo)(nil)

// SourceRepo handles database operations for sources
type SourceRepo struct {
	db *DB
}

func NewSourceRepo(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// UpsertSource registers a source from its configuration, updating the feed
// URL when the configuration changed.
func (r *SourceRepo) UpsertSource(sourceName, feedURL string) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO sources (id, name, feed_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			feed_url = excluded.feed_url,
			updated_at = excluded.updated_at
	`, uuid.NewString(), sourceName, feedURL, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// UpdateSourceMetadata stores feed metadata after a successful fetch and
// advances the fetch schedule.
func (r *SourceRepo) UpdateSourceMetadata(sourceName, title, link, description, imageURL, language string, nextFetch time.Time) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		UPDATE sources
		SET title = ?, link = ?, description = ?, image_url = ?, language = ?,
		    last_fetched_at = ?, next_fetch_at = ?, updated_at = ?
		WHERE name = ?
	`, title, link, description, imageURL, language, now, nextFetch.UTC(), now, sourceName)

	if err != nil {
		return fmt.Errorf("failed to update source metadata: %w", err)
	}

	return nil
}

func (r *SourceRepo) GetSource(sourceName string) (*Source, error) {
	var source Source
	var lastFetchedAt, nextFetchAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, name, feed_url, link, title, description, image_url, language,
		       last_fetched_at, next_fetch_at, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, sourceName).Scan(
		&source.ID, &source.Name, &source.FeedURL, &source.Link, &source.Title,
		&source.Description, &source.ImageURL, &source.Language,
		&lastFetchedAt, &nextFetchAt, &source.CreatedAt, &source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	if lastFetchedAt.Valid {
		source.LastFetchedAt = &lastFetchedAt.Time
	}
	if nextFetchAt.Valid {
		source.NextFetchAt = &nextFetchAt.Time
	}

	return &source, nil
}

func (r *SourceRepo) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/pkg/logger"
	"github.com/creatorpulse/backend/pkg/utils"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS raw_scrapes (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		source_handle TEXT NOT NULL,
		payload TEXT NOT NULL,
		post_count INTEGER NOT NULL,
		captured_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_raw_scrapes_owner ON raw_scrapes(owner_id, platform);
	CREATE INDEX IF NOT EXISTS idx_raw_scrapes_captured ON raw_scrapes(captured_at);

	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		external_post_id TEXT NOT NULL,
		post_url TEXT,
		caption TEXT,
		hashtags TEXT,
		media_type TEXT NOT NULL,
		media_url TEXT,
		carousel_media TEXT,
		like_count INTEGER DEFAULT 0,
		comment_count INTEGER DEFAULT 0,
		taken_at INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		UNIQUE(owner_id, platform, external_post_id)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_owner ON posts(owner_id, platform);
	CREATE INDEX IF NOT EXISTS idx_posts_taken ON posts(taken_at);

	CREATE TABLE IF NOT EXISTS style_profiles (
		profile_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		version INTEGER NOT NULL,
		sections TEXT NOT NULL,
		confidence REAL NOT NULL,
		confidence_detail TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (owner_id, platform)
	);

	CREATE TABLE IF NOT EXISTS style_profile_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		version INTEGER NOT NULL,
		sections TEXT NOT NULL,
		confidence REAL NOT NULL,
		snapshotted_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profile_history_owner ON style_profile_history(owner_id, platform);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// SaveRawScrape appends one audit record. Never deduplicated, never
// updated.
func (c *Client) SaveRawScrape(rec *models.RawScrapeRecord) error {
	query := `
		INSERT INTO raw_scrapes (id, owner_id, platform, source_handle, payload, post_count, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		rec.ID,
		rec.OwnerID,
		rec.Platform,
		rec.SourceHandle,
		rec.Payload,
		rec.PostCount,
		rec.CapturedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to save raw scrape: %w", err)
	}

	logger.Debug("Raw scrape recorded",
		zap.String("scrape_id", rec.ID),
		zap.String("platform", rec.Platform),
		zap.Int("post_count", rec.PostCount),
		zap.String("payload_md5", utils.HashString(rec.Payload)),
	)
	return nil
}

// BulkUpsertPosts persists one batch in a single transaction. A conflict
// on (owner_id, platform, external_post_id) is a no-op so re-scrapes never
// clobber an existing row; any statement failure rolls back the whole
// batch. Returns the number of rows actually inserted.
func (c *Client) BulkUpsertPosts(posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO posts (owner_id, platform, external_post_id, post_url, caption, hashtags,
			media_type, media_url, carousel_media, like_count, comment_count, taken_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, platform, external_post_id) DO NOTHING
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, post := range posts {
		hashtagsJSON, _ := json.Marshal(post.Hashtags)
		carouselJSON, _ := json.Marshal(post.CarouselMedia)

		result, err := stmt.Exec(
			post.OwnerID,
			post.Platform,
			post.ExternalPostID,
			post.PostURL,
			post.Caption,
			string(hashtagsJSON),
			post.MediaType,
			post.MediaURL,
			string(carouselJSON),
			post.LikeCount,
			post.CommentCount,
			post.TakenAt,
			post.CreatedAt.Unix(),
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to upsert post %s: %w", post.ExternalPostID, err)
		}

		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit post batch: %w", err)
	}

	logger.Info("Post batch persisted",
		zap.Int("batch", len(posts)),
		zap.Int("inserted", inserted),
	)

	return inserted, nil
}

func (c *Client) CountPosts(ownerID, platform string) (int, error) {
	var count int
	err := c.db.QueryRow(
		`SELECT COUNT(*) FROM posts WHERE owner_id = ? AND platform = ?`,
		ownerID, platform,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (c *Client) GetPosts(ownerID, platform string, limit int) ([]models.Post, error) {
	query := `
		SELECT owner_id, platform, external_post_id, post_url, caption, hashtags,
			media_type, media_url, carousel_media, like_count, comment_count, taken_at, created_at
		FROM posts
		WHERE owner_id = ? AND platform = ?
		ORDER BY taken_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, ownerID, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		var hashtagsJSON, carouselJSON string
		var createdAt int64

		err := rows.Scan(
			&p.OwnerID,
			&p.Platform,
			&p.ExternalPostID,
			&p.PostURL,
			&p.Caption,
			&hashtagsJSON,
			&p.MediaType,
			&p.MediaURL,
			&carouselJSON,
			&p.LikeCount,
			&p.CommentCount,
			&p.TakenAt,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(hashtagsJSON), &p.Hashtags)
		json.Unmarshal([]byte(carouselJSON), &p.CarouselMedia)
		p.CreatedAt = time.Unix(createdAt, 0)

		posts = append(posts, p)
	}

	return posts, rows.Err()
}

// SaveStyleProfile snapshots the current profile row (if any) into the
// append-only history and overwrites it, all in one transaction. Version
// increments monotonically per (owner, platform).
func (c *Client) SaveStyleProfile(profile *models.StyleProfile) (*models.StyleProfile, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var prevID string
	var prevVersion int
	var prevSections string
	var prevConfidence float64
	var prevCreatedAt int64

	err = tx.QueryRow(
		`SELECT profile_id, version, sections, confidence, created_at
		 FROM style_profiles WHERE owner_id = ? AND platform = ?`,
		profile.OwnerID, profile.Platform,
	).Scan(&prevID, &prevVersion, &prevSections, &prevConfidence, &prevCreatedAt)

	now := time.Now()

	switch err {
	case nil:
		_, err = tx.Exec(
			`INSERT INTO style_profile_history (profile_id, owner_id, platform, version, sections, confidence, snapshotted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			prevID, profile.OwnerID, profile.Platform, prevVersion, prevSections, prevConfidence, now.Unix(),
		)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to snapshot profile: %w", err)
		}
		profile.Version = prevVersion + 1
		profile.CreatedAt = time.Unix(prevCreatedAt, 0)
	case sql.ErrNoRows:
		profile.Version = 1
		profile.CreatedAt = now
	default:
		tx.Rollback()
		return nil, fmt.Errorf("failed to read current profile: %w", err)
	}

	sectionsJSON, err := json.Marshal(profile.Sections)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to encode profile sections: %w", err)
	}
	detailJSON, _ := json.Marshal(profile.Confidence)

	profile.UpdatedAt = now

	_, err = tx.Exec(
		`INSERT INTO style_profiles (profile_id, owner_id, platform, version, sections, confidence, confidence_detail, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id, platform) DO UPDATE SET
			profile_id = excluded.profile_id,
			version = excluded.version,
			sections = excluded.sections,
			confidence = excluded.confidence,
			confidence_detail = excluded.confidence_detail,
			updated_at = excluded.updated_at`,
		profile.ID,
		profile.OwnerID,
		profile.Platform,
		profile.Version,
		string(sectionsJSON),
		profile.Confidence.Overall,
		string(detailJSON),
		profile.CreatedAt.Unix(),
		profile.UpdatedAt.Unix(),
	)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to write profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit profile: %w", err)
	}

	logger.Info("Style profile saved",
		zap.String("profile_id", profile.ID),
		zap.String("owner_id", profile.OwnerID),
		zap.String("platform", profile.Platform),
		zap.Int("version", profile.Version),
		zap.Float64("confidence", profile.Confidence.Overall),
	)

	return profile, nil
}

// GetStyleProfile returns the current profile, or nil when none exists.
func (c *Client) GetStyleProfile(ownerID, platform string) (*models.StyleProfile, error) {
	var p models.StyleProfile
	var sectionsJSON, detailJSON string
	var createdAt, updatedAt int64

	err := c.db.QueryRow(
		`SELECT profile_id, owner_id, platform, version, sections, confidence, confidence_detail, created_at, updated_at
		 FROM style_profiles WHERE owner_id = ? AND platform = ?`,
		ownerID, platform,
	).Scan(&p.ID, &p.OwnerID, &p.Platform, &p.Version, &sectionsJSON, &p.Confidence.Overall, &detailJSON, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	json.Unmarshal([]byte(sectionsJSON), &p.Sections)
	json.Unmarshal([]byte(detailJSON), &p.Confidence)
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	return &p, nil
}

func (c *Client) GetProfileHistory(ownerID, platform string, limit int) ([]models.StyleProfileSnapshot, error) {
	query := `
		SELECT id, profile_id, owner_id, platform, version, sections, confidence, snapshotted_at
		FROM style_profile_history
		WHERE owner_id = ? AND platform = ?
		ORDER BY snapshotted_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, ownerID, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile history: %w", err)
	}
	defer rows.Close()

	var snapshots []models.StyleProfileSnapshot
	for rows.Next() {
		var s models.StyleProfileSnapshot
		var sectionsJSON string
		var snapshottedAt int64

		err := rows.Scan(&s.ID, &s.ProfileID, &s.OwnerID, &s.Platform, &s.Version, &sectionsJSON, &s.Confidence, &snapshottedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(sectionsJSON), &s.Sections)
		s.SnapshottedAt = time.Unix(snapshottedAt, 0)

		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// PurgeOwner removes every row belonging to one owner. This is the only
// delete path for canonical posts.
func (c *Client) PurgeOwner(ownerID string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, table := range []string{"posts", "raw_scrapes", "style_profiles", "style_profile_history"} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE owner_id = ?", table), ownerID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purge: %w", err)
	}

	logger.Info("Owner data purged", zap.String("owner_id", ownerID))
	return nil
}

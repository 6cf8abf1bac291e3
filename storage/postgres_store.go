package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/utils"
)

// PostgresStore persists plays in the theater_plays table.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db, now: time.Now}
	if err := ps.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// NewPostgresStoreFromDB wraps an already open handle without migrating.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres"), now: time.Now}
}

// Migrate creates the table and indexes if they do not exist yet.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS theater_plays (
			id          SERIAL PRIMARY KEY,
			detail_url  TEXT             UNIQUE NOT NULL,
			area        TEXT,
			title       TEXT,
			category    TEXT,
			sale        TEXT,
			price       TEXT,
			stars       DOUBLE PRECISION,
			poster_url  TEXT,
			venue_name  TEXT,
			address     TEXT,
			lat         DOUBLE PRECISION,
			lng         DOUBLE PRECISION,
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		ALTER TABLE theater_plays ADD COLUMN IF NOT EXISTS sale  TEXT;
		ALTER TABLE theater_plays ADD COLUMN IF NOT EXISTS price TEXT;
		ALTER TABLE theater_plays ADD COLUMN IF NOT EXISTS stars DOUBLE PRECISION;

		CREATE INDEX IF NOT EXISTS idx_theater_plays_category ON theater_plays(category);
		CREATE INDEX IF NOT EXISTS idx_theater_plays_area     ON theater_plays(area);
	`)
	return err
}

// Absent values are bound as NULL so COALESCE keeps the stored column.
const upsertQuery = `
	INSERT INTO theater_plays
		(detail_url, area, title, category, sale, price, stars, poster_url, venue_name, address, lat, lng, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	ON CONFLICT (detail_url) DO UPDATE SET
		area       = COALESCE(EXCLUDED.area,       theater_plays.area),
		title      = COALESCE(EXCLUDED.title,      theater_plays.title),
		category   = COALESCE(EXCLUDED.category,   theater_plays.category),
		sale       = COALESCE(EXCLUDED.sale,       theater_plays.sale),
		price      = COALESCE(EXCLUDED.price,      theater_plays.price),
		stars      = COALESCE(EXCLUDED.stars,      theater_plays.stars),
		poster_url = COALESCE(EXCLUDED.poster_url, theater_plays.poster_url),
		venue_name = COALESCE(EXCLUDED.venue_name, theater_plays.venue_name),
		address    = COALESCE(EXCLUDED.address,    theater_plays.address),
		lat        = COALESCE(EXCLUDED.lat,        theater_plays.lat),
		lng        = COALESCE(EXCLUDED.lng,        theater_plays.lng),
		updated_at = EXCLUDED.updated_at
`

// Upsert inserts p or merges it into the row with the same detail URL.
func (ps *PostgresStore) Upsert(ctx context.Context, p models.Play) error {
	if p.DetailURL == "" {
		return errors.New("postgres: upsert: empty detail url")
	}

	// A half pair would let COALESCE mix old and new coordinates.
	lat, lng := p.Location.Lat, p.Location.Lng
	if lat == nil || lng == nil {
		lat, lng = nil, nil
	}

	_, err := ps.db.ExecContext(ctx, upsertQuery,
		p.DetailURL,
		nullString(p.Area),
		nullString(p.Title),
		nullString(p.Category),
		nullString(p.Sale),
		nullString(p.Price),
		nullFloat(p.Stars),
		nullString(p.PosterURL),
		nullString(p.Location.VenueName),
		nullString(p.Location.Address),
		nullFloat(lat),
		nullFloat(lng),
		ps.now(),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert %s: %w", p.DetailURL, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, detail_url, area, title, category, sale, price, stars, poster_url, venue_name, address, lat, lng, created_at, updated_at
	FROM theater_plays`

// FindByURL returns the stored play or ErrNotFound.
func (ps *PostgresStore) FindByURL(ctx context.Context, detailURL string) (*models.Play, error) {
	var row playRow
	err := ps.db.GetContext(ctx, &row, selectColumns+` WHERE detail_url = $1`, detailURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find %s: %w", detailURL, err)
	}
	p := row.toPlay()
	return &p, nil
}

// FetchAll retrieves all stored plays in insertion order.
func (ps *PostgresStore) FetchAll(ctx context.Context) ([]models.Play, error) {
	var rows []playRow
	if err := ps.db.SelectContext(ctx, &rows, selectColumns+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	return toPlays(rows), nil
}

// Search does a case-insensitive partial match over title, category, venue
// and address.
func (ps *PostgresStore) Search(ctx context.Context, query string, limit int) ([]models.Play, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []models.Play{}, nil
	}

	var rows []playRow
	err := ps.db.SelectContext(ctx, &rows, selectColumns+`
		WHERE title ILIKE $1 OR category ILIKE $1 OR venue_name ILIKE $1 OR address ILIKE $1
		ORDER BY id
		LIMIT $2`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	return toPlays(rows), nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// playRow mirrors theater_plays; every column but the key is nullable.
type playRow struct {
	ID        int64           `db:"id"`
	DetailURL string          `db:"detail_url"`
	Area      sql.NullString  `db:"area"`
	Title     sql.NullString  `db:"title"`
	Category  sql.NullString  `db:"category"`
	Sale      sql.NullString  `db:"sale"`
	Price     sql.NullString  `db:"price"`
	Stars     sql.NullFloat64 `db:"stars"`
	PosterURL sql.NullString  `db:"poster_url"`
	VenueName sql.NullString  `db:"venue_name"`
	Address   sql.NullString  `db:"address"`
	Lat       sql.NullFloat64 `db:"lat"`
	Lng       sql.NullFloat64 `db:"lng"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r playRow) toPlay() models.Play {
	p := models.Play{
		ID:        r.ID,
		DetailURL: r.DetailURL,
		Area:      r.Area.String,
		Title:     r.Title.String,
		Category:  r.Category.String,
		Sale:      r.Sale.String,
		Price:     r.Price.String,
		PosterURL: r.PosterURL.String,
		Location: models.Location{
			VenueName: r.VenueName.String,
			Address:   r.Address.String,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Stars.Valid {
		p.Stars = models.Float(r.Stars.Float64)
	}
	if r.Lat.Valid && r.Lng.Valid {
		p.Location.Lat = models.Float(r.Lat.Float64)
		p.Location.Lng = models.Float(r.Lng.Float64)
	}
	return p
}

func toPlays(rows []playRow) []models.Play {
	plays := make([]models.Play, 0, len(rows))
	for _, r := range rows {
		plays = append(plays, r.toPlay())
	}
	return plays
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

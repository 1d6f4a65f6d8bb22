package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/tvcatalog/internal/models"
)

// pool is the subset of pgxpool.Pool used by Postgres.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: p}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const playlistColumns = `id, name, source_type, url, file_path, channel_count, created_at, last_updated`

const channelColumns = `id, playlist_id, name, url, logo, category, liveness, group_title, tvg_id, tvg_name, created_at`

// CreatePlaylist inserts the playlist row and all of its channels in one transaction.
func (p *Postgres) CreatePlaylist(ctx context.Context, pl *models.Playlist, channels []models.Channel) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO playlists (`+playlistColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			pl.ID, pl.Name, pl.SourceType, pl.URL, pl.FilePath, pl.ChannelCount, pl.CreatedAt, pl.LastUpdated,
		)
		if err != nil {
			return fmt.Errorf("CreatePlaylist: %w", err)
		}
		return insertChannels(ctx, tx, channels)
	})
}

// GetPlaylist returns a playlist by id, or ErrNotFound.
func (p *Postgres) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id)
	pl, err := scanPlaylist(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPlaylist: %w", err)
	}
	return pl, nil
}

// ListPlaylists returns all playlists in creation order.
func (p *Postgres) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+playlistColumns+` FROM playlists ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("ListPlaylists: %w", err)
	}
	defer rows.Close()

	out := make([]models.Playlist, 0)
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPlaylists scan: %w", err)
		}
		out = append(out, *pl)
	}
	return out, rows.Err()
}

// DeletePlaylist deletes the playlist row; channels go with it through
// ON DELETE CASCADE.
func (p *Postgres) DeletePlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	row := p.pool.QueryRow(ctx, `DELETE FROM playlists WHERE id = $1 RETURNING `+playlistColumns, id)
	pl, err := scanPlaylist(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("DeletePlaylist: %w", err)
	}
	return pl, nil
}

// ReplaceChannels swaps a playlist's channels and updates its metadata in one transaction.
func (p *Postgres) ReplaceChannels(ctx context.Context, playlistID string, channels []models.Channel, refreshedAt time.Time) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE playlists SET channel_count = $2, last_updated = $3 WHERE id = $1`,
			playlistID, len(channels), refreshedAt,
		)
		if err != nil {
			return fmt.Errorf("ReplaceChannels update: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM channels WHERE playlist_id = $1`, playlistID); err != nil {
			return fmt.Errorf("ReplaceChannels delete: %w", err)
		}
		return insertChannels(ctx, tx, channels)
	})
}

// ListChannels returns channels matching the filter in insertion order.
func (p *Postgres) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.PlaylistID != "" {
		add("playlist_id = ?", filter.PlaylistID)
	}
	if !models.IsAllCategory(filter.Category) {
		add("category = ?", filter.Category)
	}
	if filter.Search != "" {
		// strpos keeps % and _ in the search term literal. Both sides are
		// folded in Go so the database locale does not matter.
		add("strpos(search_name, ?) > 0", models.FoldName(filter.Search))
	}

	q := `SELECT ` + channelColumns + ` FROM channels`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY seq`

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	out := make([]models.Channel, 0)
	for rows.Next() {
		var (
			ch       models.Channel
			liveness int16
		)
		if err := rows.Scan(&ch.ID, &ch.PlaylistID, &ch.Name, &ch.URL, &ch.Logo, &ch.Category,
			&liveness, &ch.GroupTitle, &ch.TvgID, &ch.TvgName, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListChannels scan: %w", err)
		}
		ch.Liveness = models.Liveness(liveness)
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ListCategories returns distinct channel categories in order of first appearance.
func (p *Postgres) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT category FROM channels GROUP BY category ORDER BY MIN(seq)`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ListCategories scan: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (p *Postgres) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertChannels(ctx context.Context, tx pgx.Tx, channels []models.Channel) error {
	for _, ch := range channels {
		_, err := tx.Exec(ctx,
			`INSERT INTO channels (`+channelColumns+`, search_name)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			ch.ID, ch.PlaylistID, ch.Name, ch.URL, ch.Logo, ch.Category,
			int16(ch.Liveness), ch.GroupTitle, ch.TvgID, ch.TvgName, ch.CreatedAt,
			models.FoldName(ch.Name),
		)
		if err != nil {
			return fmt.Errorf("insert channel %q: %w", ch.Name, err)
		}
	}
	return nil
}

func scanPlaylist(row pgx.Row) (*models.Playlist, error) {
	var pl models.Playlist
	err := row.Scan(&pl.ID, &pl.Name, &pl.SourceType, &pl.URL, &pl.FilePath,
		&pl.ChannelCount, &pl.CreatedAt, &pl.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

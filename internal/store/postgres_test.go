package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/tvcatalog/internal/models"
)

func setupMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &Postgres{pool: mock}, mock
}

var playlistCols = []string{"id", "name", "source_type", "url", "file_path", "channel_count", "created_at", "last_updated"}

var channelCols = []string{"id", "playlist_id", "name", "url", "logo", "category", "liveness", "group_title", "tvg_id", "tvg_name", "created_at"}

func TestPostgres_CreatePlaylist(t *testing.T) {
	p, mock := setupMockStore(t)
	defer mock.Close()
	ctx := context.Background()
	now := time.Now()

	pl := &models.Playlist{ID: "p1", Name: "News", SourceType: models.SourceTypeURL, URL: "http://x/list.m3u", ChannelCount: 1, CreatedAt: now, LastUpdated: now}
	chs := []models.Channel{{ID: "c1", PlaylistID: "p1", Name: "BBC", URL: "http://x/bbc", Category: "News", Liveness: models.LivenessOffline, CreatedAt: now}}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO playlists").
			WithArgs("p1", "News", models.SourceTypeURL, "http://x/list.m3u", "", 1, now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO channels").
			WithArgs("c1", "p1", "BBC", "http://x/bbc", "", "News", int16(models.LivenessOffline), "", "", "", now, "bbc").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, p.CreatePlaylist(ctx, pl, chs))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ChannelInsertFailsRollsBack", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO playlists").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO channels").
			WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		err := p.CreatePlaylist(ctx, pl, chs)
		assert.ErrorContains(t, err, "boom")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_GetPlaylist(t *testing.T) {
	p, mock := setupMockStore(t)
	defer mock.Close()
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM playlists WHERE id = \\$1").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(playlistCols).
			AddRow("p1", "Mine", models.SourceTypeFile, "", "/data/p1.m3u", 3, now, now))

	pl, err := p.GetPlaylist(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mine", pl.Name)
	assert.Equal(t, 3, pl.ChannelCount)
	assert.Equal(t, "/data/p1.m3u", pl.FilePath)

	mock.ExpectQuery("SELECT (.+) FROM playlists WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = p.GetPlaylist(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListPlaylists(t *testing.T) {
	p, mock := setupMockStore(t)
	defer mock.Close()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM playlists ORDER BY seq").
		WillReturnRows(pgxmock.NewRows(playlistCols).
			AddRow("p1", "A", models.SourceTypeFile, "", "", 2, now, now).
			AddRow("p2", "B", models.SourceTypeURL, "http://x/b.m3u", "", 5, now, now))

	got, err := p.ListPlaylists(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.True(t, got[1].Refreshable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeletePlaylist(t *testing.T) {
	p, mock := setupMockStore(t)
	defer mock.Close()
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("DELETE FROM playlists WHERE id = \\$1 RETURNING").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(playlistCols).
			AddRow("p1", "A", models.SourceTypeFile, "", "/up/p1.m3u", 2, now, now))

	pl, err := p.DeletePlaylist(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "/up/p1.m3u", pl.FilePath)

	mock.ExpectQuery("DELETE FROM playlists").
		WithArgs("p1").
		WillReturnError(pgx.ErrNoRows)
	_, err = p.DeletePlaylist(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceChannels(t *testing.T) {
	p, mock := setupMockStore(t)
	defer mock.Close()
	ctx := context.Background()
	now := time.Now()
	chs := []models.Channel{
		{ID: "c1", PlaylistID: "p1", Name: "One", URL: "http://x/1", Category: "General", CreatedAt: now},
		{ID: "c2", PlaylistID: "p1", Name: "Two", URL: "http://x/2", Category: "General", CreatedAt: now},
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE playlists SET channel_count").
			WithArgs("p1", 2, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("DELETE FROM channels WHERE playlist_id").
			WithArgs("p1").
			WillReturnResult(pgxmock.NewResult("DELETE", 7))
		mock.ExpectExec("INSERT INTO channels").WithArgs(
			"c1", "p1", "One", "http://x/1", "", "General", int16(0), "", "", "", now, "one",
		).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO channels").WithArgs(
			"c2", "p1", "Two", "http://x/2", "", "General", int16(0), "", "", "", now, "two",
		).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, p.ReplaceChannels(ctx, "p1", chs, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownPlaylist", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE playlists SET channel_count").
			WithArgs("nope", 2, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := p.ReplaceChannels(ctx, "nope", chs, now)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_ListChannels(t *testing.T) {
	p, mock := setupMockStore(t)
	defer mock.Close()
	ctx := context.Background()
	now := time.Now()

	t.Run("AllFilters", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM channels WHERE playlist_id = \\$1 AND category = \\$2 AND strpos\\(search_name, \\$3\\) > 0 ORDER BY seq").
			WithArgs("p1", "News", "bbc").
			WillReturnRows(pgxmock.NewRows(channelCols).
				AddRow("c1", "p1", "BBC One", "http://x/1", "http://x/logo.png", "News", int16(models.LivenessLive), "News", "bbc1", "BBC One", now))

		got, err := p.ListChannels(ctx, ChannelFilter{PlaylistID: "p1", Category: "News", Search: "BBC"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.LivenessLive, got[0].Liveness)
		assert.Equal(t, "http://x/logo.png", got[0].Logo)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SearchFoldedBeforeQuery", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM channels WHERE strpos\\(search_name, \\$1\\) > 0 ORDER BY seq").
			WithArgs("ñandú").
			WillReturnRows(pgxmock.NewRows(channelCols))

		_, err := p.ListChannels(ctx, ChannelFilter{Search: "ÑANDÚ"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AllCategoryAddsNoFilter", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM channels ORDER BY seq").
			WillReturnRows(pgxmock.NewRows(channelCols))

		got, err := p.ListChannels(ctx, ChannelFilter{Category: models.AllCategory})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_ListCategories(t *testing.T) {
	p, mock := setupMockStore(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT category FROM channels GROUP BY category ORDER BY MIN\\(seq\\)").
		WillReturnRows(pgxmock.NewRows([]string{"category"}).
			AddRow("News").AddRow("Sports").AddRow("General"))

	got, err := p.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"News", "Sports", "General"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

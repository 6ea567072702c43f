//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/enrichment"
	"example.com/runtracker/internal/fit"
	"example.com/runtracker/internal/gps"
	"example.com/runtracker/internal/importer"
)

// fixtureDecoder replays a canned message stream regardless of input.
type fixtureDecoder struct {
	messages []fit.Message
}

func (d *fixtureDecoder) Decode([]byte) ([]fit.Message, error) {
	return d.messages, nil
}

// fixedSource hands every location the same elevation.
type fixedSource struct {
	elevation float64
}

func (s *fixedSource) RequestElevation(_ context.Context, locations []gps.Location) error {
	for i := range locations {
		elev := s.elevation
		locations[i].Elevation = &elev
	}
	return nil
}

func activityMessages(created time.Time) []fit.Message {
	return []fit.Message{
		{Kind: fit.KindFileID, Fields: map[string]any{
			"manufacturer":  "garmin",
			"product":       "fr245",
			"serial_number": uint32(42),
			"time_created":  created,
		}},
		{Kind: fit.KindRecord, Fields: map[string]any{
			"position_lat":  int32(500000000),
			"position_long": int32(-1400000000),
			"speed":         3.1,
			"distance":      10.0,
			"heart_rate":    uint8(140),
			"timestamp":     created.Add(time.Second),
		}},
		{Kind: fit.KindRecord, Fields: map[string]any{
			"position_lat":  int32(500001000),
			"position_long": int32(-1400001000),
			"speed":         3.2,
			"distance":      20.0,
			"heart_rate":    uint8(142),
			"timestamp":     created.Add(2 * time.Second),
		}},
		{Kind: fit.KindLap, Fields: map[string]any{
			"start_position_lat":  int32(500000000),
			"start_position_long": int32(-1400000000),
			"end_position_lat":    int32(500001000),
			"end_position_long":   int32(-1400001000),
			"avg_speed":           3.15,
			"avg_heart_rate":      uint8(141),
			"total_calories":      uint16(12),
			"total_distance":      20.0,
			"start_time":          created,
			"timestamp":           created.Add(2 * time.Second),
		}},
	}
}

func TestImportEnrichAndReadBack(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("runtracker"),
		postgrescontainer.WithUsername("runtracker"),
		postgrescontainer.WithPassword("runtracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, CreateSchema(ctx, pool))

	created := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	raw := []byte("fixture activity bytes")
	engine := importer.NewEngine(&fixtureDecoder{messages: activityMessages(created)})
	repo := NewRepository(pool)

	// import commits file, records and laps as one unit
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	info, err := engine.Import(ctx, tx, raw)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	stored, err := repo.FindFileByFingerprint(ctx, info.Fingerprint)
	require.NoError(t, err)
	require.Equal(t, info.ID, stored.ID)
	require.Equal(t, "garmin", stored.Manufacturer)

	last, err := repo.LastImportedFile(ctx)
	require.NoError(t, err)
	require.Equal(t, info.ID, last.ID)

	stats, err := repo.RecordStats(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Records)
	require.InDelta(t, 20.0, stats.TotalDistance, 1e-9)

	trace, err := repo.RecordTrack(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, trace, 2)
	require.InDelta(t, 41.909516, trace[0].Latitude, 1e-4)

	// the same bytes must not import twice
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	_, err = engine.Import(ctx, tx, raw)
	var dupErr *domain.DuplicateFileError
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, info.Fingerprint, dupErr.Fingerprint)
	require.NoError(t, tx.Rollback(ctx))

	// a stream without a file-identity message leaves nothing behind
	badEngine := importer.NewEngine(&fixtureDecoder{messages: activityMessages(created)[1:]})
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	_, err = badEngine.Import(ctx, tx, []byte("identityless bytes"))
	require.ErrorIs(t, err, domain.ErrFileIdentityMissing)
	require.NoError(t, tx.Rollback(ctx))

	files, err := repo.ListFiles(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, files, 1, "rolled back imports must not surface")

	// backfill sets every elevation exactly once
	enricher := enrichment.NewEngine(&fixedSource{elevation: 123.5})
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	counts, err := enricher.Enrich(ctx, tx, &info.ID, true)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.Equal(t, 2, counts.RecordsSet)
	require.Equal(t, 1, counts.LapsSet)

	// a second unscoped pass finds nothing outstanding
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	counts, err = enricher.Enrich(ctx, tx, nil, false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.Equal(t, enrichment.Counts{}, counts)

	var elevated int64
	require.NoError(t, pool.QueryRow(ctx,
		"select count(*) from records where elevation = 123.5").Scan(&elevated))
	require.Equal(t, int64(2), elevated)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

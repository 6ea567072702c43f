// Package enrichment backfills elevation values for rows that carry
// coordinates but no elevation yet.
package enrichment

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/runtracker/internal/gps"
	"example.com/runtracker/internal/query"
)

// Tx is the slice of a pgx transaction the engine needs. As with the import
// engine the caller owns commit/rollback, so a provider failure mid-batch
// never leaves partially written elevations visible.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source fetches elevation data for a batch of locations, mutating each
// location's elevation in place. Implementations may sub-batch and pace
// requests internally; a failure applies to the whole call.
type Source interface {
	RequestElevation(ctx context.Context, locations []gps.Location) error
}

// Counts reports how many rows were assigned a non-null elevation versus how
// many were attempted, separately for records and laps.
type Counts struct {
	RecordsSet   int
	RecordsTotal int
	LapsSet      int
	LapsTotal    int
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithLogger overrides the engine logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine selects rows lacking elevation, batches them to the elevation
// provider, and writes the results back.
type Engine struct {
	source Source
	logger *log.Logger
}

// NewEngine constructs an Engine around the elevation provider.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		logger: log.New(log.Writer(), "[enrichment] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich backfills elevation for one file, or for all outstanding rows when
// fileID is nil. With overwrite set, previously fetched elevations are
// replaced; this is only honoured when scoped to a single file. An unscoped
// overwrite would re-fetch the entire dataset against a metered API, so it is
// refused as a warning-level no-op.
func (e *Engine) Enrich(ctx context.Context, tx Tx, fileID *int64, overwrite bool) (Counts, error) {
	if overwrite && fileID == nil {
		e.logger.Printf("refusing to overwrite all elevation data, specify individual files instead")
		return Counts{}, nil
	}

	recQuery := query.NewBuilder("select position_lat, position_long, id from records").
		Where("position_lat is not null").
		Where("position_long is not null")
	lapQuery := query.NewBuilder("select start_position_lat, start_position_long, end_position_lat, end_position_long, id from laps").
		Where("start_position_lat is not null").
		Where("start_position_long is not null")
	if !overwrite {
		recQuery.Where("elevation is null")
		lapQuery.Where("start_elevation is null")
	}
	var args []any
	if fileID != nil {
		recQuery.Where("file_id = $1")
		lapQuery.Where("file_id = $1")
		args = append(args, *fileID)
	}

	var counts Counts
	var err error
	if counts.RecordsSet, counts.RecordsTotal, err = e.enrichRecords(ctx, tx, recQuery.String(), args); err != nil {
		return Counts{}, err
	}
	e.logger.Printf("set elevation for %d/%d records", counts.RecordsSet, counts.RecordsTotal)

	if counts.LapsSet, counts.LapsTotal, err = e.enrichLaps(ctx, tx, lapQuery.String(), args); err != nil {
		return Counts{}, err
	}
	e.logger.Printf("set elevation for %d/%d laps", counts.LapsSet, counts.LapsTotal)

	return counts, nil
}

func (e *Engine) enrichRecords(ctx context.Context, tx Tx, sql string, args []any) (int, int, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	var locations []gps.Location
	var ids []int64
	for rows.Next() {
		var lat, lon, id int64
		if err := rows.Scan(&lat, &lon, &id); err != nil {
			return 0, 0, err
		}
		locations = append(locations, gps.LocationFromSemicircles(lat, lon))
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	rows.Close()

	if len(locations) == 0 {
		return 0, 0, nil
	}
	attemptedCounter.WithLabelValues("records").Add(float64(len(locations)))
	if err := e.source.RequestElevation(ctx, locations); err != nil {
		providerErrorCounter.Inc()
		return 0, 0, err
	}

	set := 0
	for i, loc := range locations {
		// a nil elevation is written back as an explicit null: the provider
		// had no data for the point, which is distinct from "not yet requested"
		if _, err := tx.Exec(ctx, "update records set elevation = $1 where id = $2", elevationOrNil(loc), ids[i]); err != nil {
			return 0, 0, err
		}
		if loc.Elevation != nil {
			set++
		}
	}
	setCounter.WithLabelValues("records").Add(float64(set))
	return set, len(locations), nil
}

func (e *Engine) enrichLaps(ctx context.Context, tx Tx, sql string, args []any) (int, int, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	var starts, ends []gps.Location
	var ids []int64
	// endIdx maps each lap to its slot in the ends batch, -1 when the lap
	// carries no end coordinates. Those laps never reach the provider and
	// their end_elevation stays null.
	var endIdx []int
	for rows.Next() {
		var startLat, startLon, id int64
		var endLat, endLon *int64
		if err := rows.Scan(&startLat, &startLon, &endLat, &endLon, &id); err != nil {
			return 0, 0, err
		}
		starts = append(starts, gps.LocationFromSemicircles(startLat, startLon))
		if endLat != nil && endLon != nil {
			endIdx = append(endIdx, len(ends))
			ends = append(ends, gps.LocationFromSemicircles(*endLat, *endLon))
		} else {
			endIdx = append(endIdx, -1)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	rows.Close()

	if len(starts) == 0 {
		return 0, 0, nil
	}
	attemptedCounter.WithLabelValues("laps").Add(float64(len(starts)))
	if err := e.source.RequestElevation(ctx, starts); err != nil {
		providerErrorCounter.Inc()
		return 0, 0, err
	}
	if len(ends) > 0 {
		if err := e.source.RequestElevation(ctx, ends); err != nil {
			providerErrorCounter.Inc()
			return 0, 0, err
		}
	}

	set := 0
	for i := range starts {
		endElev := any(nil)
		if j := endIdx[i]; j >= 0 {
			endElev = elevationOrNil(ends[j])
		}
		_, err := tx.Exec(ctx, "update laps set start_elevation = $1, end_elevation = $2 where id = $3",
			elevationOrNil(starts[i]), endElev, ids[i])
		if err != nil {
			return 0, 0, err
		}
		if starts[i].Elevation != nil {
			set++
		}
	}
	setCounter.WithLabelValues("laps").Add(float64(set))
	return set, len(starts), nil
}

func elevationOrNil(loc gps.Location) any {
	if loc.Elevation != nil {
		return *loc.Elevation
	}
	return nil
}

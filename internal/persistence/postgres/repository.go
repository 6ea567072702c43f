package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/gps"
	"example.com/runtracker/internal/query"
)

// Repository provides the read paths over imported activity data. Writes go
// through the import and enrichment engines against caller-owned
// transactions; the repository only serves lookups and listings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// newFileInfoQuery returns a builder whose column order matches scanFileInfo.
func newFileInfoQuery() *query.Builder {
	return query.NewBuilder(
		"select id, device_manufacturer, device_product, device_serial_number, created_at, fingerprint from files")
}

func scanFileInfo(row pgx.Row) (domain.FileInfo, error) {
	var info domain.FileInfo
	err := row.Scan(&info.ID, &info.Manufacturer, &info.Product, &info.SerialNumber, &info.CreatedAt, &info.Fingerprint)
	return info, err
}

// FindFileByFingerprint locates one imported file by its full fingerprint.
func (r *Repository) FindFileByFingerprint(ctx context.Context, fingerprint string) (*domain.FileInfo, error) {
	q := newFileInfoQuery().Where("fingerprint = $1")
	info, err := scanFileInfo(r.pool.QueryRow(ctx, q.String(), fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	return &info, nil
}

// LastImportedFile returns the most recently created file entry.
func (r *Repository) LastImportedFile(ctx context.Context) (*domain.FileInfo, error) {
	q := newFileInfoQuery().OrderBy("created_at desc").OrderBy("id desc").Limit(1)
	info, err := scanFileInfo(r.pool.QueryRow(ctx, q.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	return &info, nil
}

// ListOptions narrows and orders a file listing.
type ListOptions struct {
	Since   *time.Time
	Until   *time.Time
	Reverse bool // oldest first instead of newest first
	Limit   int  // <= 0 means no limit
}

// ListFiles returns imported files, newest first unless reversed.
func (r *Repository) ListFiles(ctx context.Context, opts ListOptions) ([]domain.FileInfo, error) {
	q := newFileInfoQuery()
	var args []any
	if opts.Since != nil {
		args = append(args, *opts.Since)
		q.Where(fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		q.Where(fmt.Sprintf("created_at < $%d", len(args)))
	}
	if opts.Reverse {
		q.OrderBy("created_at asc")
	} else {
		q.OrderBy("created_at desc")
	}
	if opts.Limit > 0 {
		q.Limit(opts.Limit)
	}

	rows, err := r.pool.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.FileInfo
	for rows.Next() {
		info, err := scanFileInfo(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, info)
	}
	return files, rows.Err()
}

// FileStats aggregates the record rows of one file for listings.
type FileStats struct {
	Records       int64
	TotalDistance float64
	AvgHeartRate  float64
	StartTime     time.Time
	EndTime       time.Time
}

// RecordStats computes per-file aggregate statistics over record rows.
func (r *Repository) RecordStats(ctx context.Context, fileID int64) (*FileStats, error) {
	const stmt = `select count(*),
            coalesce(max(distance), 0),
            coalesce(avg(heart_rate), 0),
            coalesce(min(timestamp), to_timestamp(0)),
            coalesce(max(timestamp), to_timestamp(0))
        from records where file_id = $1`

	var stats FileStats
	err := r.pool.QueryRow(ctx, stmt, fileID).
		Scan(&stats.Records, &stats.TotalDistance, &stats.AvgHeartRate, &stats.StartTime, &stats.EndTime)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecordTrack loads the GPS trace of one file in insertion-adjacent
// timestamp order, converted to degrees.
func (r *Repository) RecordTrack(ctx context.Context, fileID int64) ([]gps.Location, error) {
	q := query.NewBuilder("select position_lat, position_long from records").
		Where("file_id = $1").
		Where("position_lat is not null").
		Where("position_long is not null").
		OrderBy("timestamp asc").
		OrderBy("id asc")

	rows, err := r.pool.Query(ctx, q.String(), fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trace []gps.Location
	for rows.Next() {
		var lat, lon int64
		if err := rows.Scan(&lat, &lon); err != nil {
			return nil, err
		}
		trace = append(trace, gps.LocationFromSemicircles(lat, lon))
	}
	return trace, rows.Err()
}

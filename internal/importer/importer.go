// Package importer persists decoded activity-file messages as one atomic unit.
package importer

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/fingerprint"
	"example.com/runtracker/internal/fit"
	"example.com/runtracker/internal/observability"
)

// Tx is the slice of a pgx transaction the engine needs. The engine never
// commits or rolls back: the caller owns the transaction and decides after
// Import returns, which also lets it persist a copy of the raw file only
// once the commit succeeded.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithLogger overrides the logger used for progress and discard reporting.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine turns raw activity-file bytes into file/record/lap rows.
type Engine struct {
	decoder fit.Decoder
	logger  *log.Logger
}

// NewEngine constructs an Engine around the decoder collaborator.
func NewEngine(decoder fit.Decoder, opts ...Option) *Engine {
	e := &Engine{
		decoder: decoder,
		logger:  log.New(log.Writer(), "[importer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

const insertFileStmt = `insert into files (device_manufacturer, device_product, device_serial_number, created_at, fingerprint)
    values ($1, $2, $3, $4, $5) returning id`

const updateFileStmt = `update files set device_manufacturer = $1, device_product = $2, device_serial_number = $3, created_at = $4
    where id = $5`

const insertRecordStmt = `insert into records (position_lat, position_long, speed, distance, heart_rate, timestamp, file_id)
    values ($1, $2, $3, $4, $5, $6, $7)`

const insertLapStmt = `insert into laps (start_position_lat, start_position_long, end_position_lat, end_position_long,
        avg_speed, avg_heart_rate, total_calories, total_distance, start_time, end_time, file_id)
    values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Import fingerprints the raw bytes, rejects duplicates before writing
// anything, then decodes and persists the message stream in source order
// against the caller's open transaction.
//
// Record and lap messages seen before the first file-identity message have no
// file row to reference and are logged and discarded. If no file-identity
// message ever arrives the import fails with domain.ErrFileIdentityMissing
// and the caller must roll back.
func (e *Engine) Import(ctx context.Context, tx Tx, raw []byte) (*domain.FileInfo, error) {
	fp := fingerprint.Of(raw)

	var existing int64
	err := tx.QueryRow(ctx, "select id from files where fingerprint = $1", fp).Scan(&existing)
	if err == nil {
		duplicateCounter.Inc()
		return nil, &domain.DuplicateFileError{Fingerprint: fp}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	messages, err := e.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}

	info := &domain.FileInfo{Fingerprint: fp}
	discarded := 0
	for _, msg := range messages {
		switch msg.Kind {
		case fit.KindFileID:
			if err := e.storeFileIdentity(ctx, tx, info, msg.Fields); err != nil {
				return nil, err
			}
		case fit.KindRecord:
			if info.ID == 0 {
				discarded++
				continue
			}
			if err := e.storeRecord(ctx, tx, info.ID, msg.Fields); err != nil {
				return nil, err
			}
		case fit.KindLap:
			if info.ID == 0 {
				discarded++
				continue
			}
			if err := e.storeLap(ctx, tx, info.ID, msg.Fields); err != nil {
				return nil, err
			}
		default:
			// other message kinds are not persisted
		}
	}

	if discarded > 0 {
		discardedCounter.Add(float64(discarded))
		e.logger.Printf("discarded %d messages that appeared before the file-identity message (fingerprint=%s)", discarded, fp)
	}
	if info.ID == 0 {
		return nil, domain.ErrFileIdentityMissing
	}

	importedCounter.Inc()
	observability.RecordFileImported(time.Now().UTC())
	return info, nil
}

// storeFileIdentity inserts the file row on the first identity message and
// refreshes it if the stream carries another one. The insert must precede any
// record/lap insert because those rows hold a not-null reference to the file.
func (e *Engine) storeFileIdentity(ctx context.Context, tx Tx, info *domain.FileInfo, fields map[string]any) error {
	info.Manufacturer, _ = fit.StringField(fields, "manufacturer")
	info.Product, _ = fit.StringField(fields, "product")
	info.SerialNumber, _ = fit.Int64Field(fields, "serial_number")
	if created, ok := fit.TimeField(fields, "time_created"); ok {
		info.CreatedAt = created.UTC()
	} else {
		info.CreatedAt = time.Now().UTC()
	}

	if info.ID != 0 {
		_, err := tx.Exec(ctx, updateFileStmt,
			info.Manufacturer, info.Product, info.SerialNumber, info.CreatedAt, info.ID)
		return err
	}

	if err := tx.QueryRow(ctx, insertFileStmt,
		info.Manufacturer, info.Product, info.SerialNumber, info.CreatedAt, info.Fingerprint,
	).Scan(&info.ID); err != nil {
		return err
	}
	e.logger.Printf("registered file identity %s-%s-%d (fingerprint=%s)",
		info.Manufacturer, info.Product, info.SerialNumber, info.Fingerprint)
	return nil
}

func (e *Engine) storeRecord(ctx context.Context, tx Tx, fileID int64, fields map[string]any) error {
	ts, ok := fit.TimeField(fields, "timestamp")
	if !ok {
		e.logger.Printf("discarding record message without a timestamp (file_id=%d)", fileID)
		return nil
	}
	speed := float64OrNil(fields, "enhanced_speed")
	if speed == nil {
		speed = float64OrNil(fields, "speed")
	}
	_, err := tx.Exec(ctx, insertRecordStmt,
		int64OrNil(fields, "position_lat"),
		int64OrNil(fields, "position_long"),
		speed,
		float64OrNil(fields, "distance"),
		int64OrNil(fields, "heart_rate"),
		ts.UTC(),
		fileID,
	)
	if err == nil {
		rowCounter.WithLabelValues("records").Inc()
	}
	return err
}

func (e *Engine) storeLap(ctx context.Context, tx Tx, fileID int64, fields map[string]any) error {
	start, okStart := fit.TimeField(fields, "start_time")
	end, okEnd := fit.TimeField(fields, "timestamp")
	if !okStart || !okEnd {
		e.logger.Printf("discarding lap message without start/end timestamps (file_id=%d)", fileID)
		return nil
	}
	avgSpeed := float64OrNil(fields, "enhanced_avg_speed")
	if avgSpeed == nil {
		avgSpeed = float64OrNil(fields, "avg_speed")
	}
	_, err := tx.Exec(ctx, insertLapStmt,
		int64OrNil(fields, "start_position_lat"),
		int64OrNil(fields, "start_position_long"),
		int64OrNil(fields, "end_position_lat"),
		int64OrNil(fields, "end_position_long"),
		avgSpeed,
		int64OrNil(fields, "avg_heart_rate"),
		int64OrNil(fields, "total_calories"),
		float64OrNil(fields, "total_distance"),
		start.UTC(),
		end.UTC(),
		fileID,
	)
	if err == nil {
		rowCounter.WithLabelValues("laps").Inc()
	}
	return err
}

// int64OrNil returns the field as a SQL bind value, nil when absent.
func int64OrNil(fields map[string]any, name string) any {
	if v, ok := fit.Int64Field(fields, name); ok {
		return v
	}
	return nil
}

func float64OrNil(fields map[string]any, name string) any {
	if v, ok := fit.Float64Field(fields, name); ok {
		return v
	}
	return nil
}

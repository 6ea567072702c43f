// Package postgres provides schema bootstrap and the read-side repository
// for imported activity data.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`create table if not exists files (
        id                    bigint generated always as identity primary key,
        device_manufacturer   text,
        device_product        text,
        device_serial_number  bigint,
        created_at            timestamptz not null,
        fingerprint           text not null unique -- used for deduplication
    )`,
	`create table if not exists records (
        id            bigint generated always as identity primary key,
        file_id       bigint not null references files (id),
        position_lat  bigint,
        position_long bigint,
        speed         double precision,
        distance      double precision,
        elevation     double precision,
        heart_rate    bigint,
        timestamp     timestamptz not null
    )`,
	`create table if not exists laps (
        id                  bigint generated always as identity primary key,
        file_id             bigint not null references files (id),
        start_position_lat  bigint,
        start_position_long bigint,
        start_elevation     double precision,
        end_position_lat    bigint,
        end_position_long   bigint,
        end_elevation       double precision,
        avg_speed           double precision,
        avg_heart_rate      bigint,
        total_calories      bigint,
        total_distance      double precision,
        start_time          timestamptz not null,
        end_time            timestamptz not null
    )`,
	`create index if not exists records_file_id_idx on records (file_id)`,
	`create index if not exists laps_file_id_idx on laps (file_id)`,
}

// CreateSchema creates the tables the pipeline writes to. Safe to call on
// every start.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Package domain defines the core types shared by the import and enrichment engines.
package domain

import "time"

// FileInfo describes one imported activity file. ID is assigned by the
// database on insert and is zero until the file row has been persisted.
//
// Record and lap rows never round-trip through domain structs: the importer
// binds decoded field values directly and the read side serves aggregates
// and GPS traces.
type FileInfo struct {
	ID           int64
	Manufacturer string
	Product      string
	SerialNumber int64
	CreatedAt    time.Time
	Fingerprint  string
}

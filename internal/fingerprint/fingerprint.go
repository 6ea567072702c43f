// Package fingerprint derives the content-addressed identity used to
// deduplicate imported activity files.
package fingerprint

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// Of hashes the raw bytes of an activity file and renders the result as a
// version 4, variant 1 UUID string. The value is derived entirely from
// content, so identical bytes always map to the same fingerprint. The
// version/variant bits are forced so the output is indistinguishable from a
// standard random UUID to downstream consumers.
func Of(data []byte) string {
	sum := sha256.Sum256(data)

	var id uuid.UUID
	copy(id[:], sum[:16])
	id[6] = (id[6] & 0x0f) | 0x40 // version 4
	id[10] = (id[10] & 0x3f) | 0x80 // variant 1

	return id.String()
}

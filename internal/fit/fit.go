// Package fit defines the boundary to the binary activity-file decoder.
//
// A decoder consumes the raw bytes of a device recording and yields an
// ordered stream of typed messages. This package fixes the message shape the
// import engine consumes, the field helpers needed to read values a device
// decoder emits, and the production decoder backed by the tormoder parser.
package fit

import "time"

// MessageKind identifies the type of a decoded message.
type MessageKind int

const (
	// KindUnknown covers message types the pipeline does not persist.
	KindUnknown MessageKind = iota
	// KindFileID establishes the identity of the recording device.
	KindFileID
	// KindRecord is a single telemetry sample.
	KindRecord
	// KindLap is a segment summary.
	KindLap
)

func (k MessageKind) String() string {
	switch k {
	case KindFileID:
		return "file_id"
	case KindRecord:
		return "record"
	case KindLap:
		return "lap"
	default:
		return "unknown"
	}
}

// Message is one decoded message: a kind plus a field-name to value mapping.
type Message struct {
	Kind   MessageKind
	Fields map[string]any
}

// Decoder decodes raw activity-file bytes into an ordered message sequence.
// Implementations surface their own error types on malformed input; the
// import engine passes them through unchanged.
type Decoder interface {
	Decode(data []byte) ([]Message, error)
}

// Int64Field reads an integer field, tolerating the signed/unsigned widths
// device decoders produce.
func Int64Field(fields map[string]any, name string) (int64, bool) {
	switch v := fields[name].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Float64Field reads a floating point field, accepting integer values too
// since decoders emit scaled integers for some channels.
func Float64Field(fields map[string]any, name string) (float64, bool) {
	switch v := fields[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		if i, ok := Int64Field(fields, name); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// StringField reads a string field.
func StringField(fields map[string]any, name string) (string, bool) {
	v, ok := fields[name].(string)
	return v, ok
}

// TimeField reads a timestamp field.
func TimeField(fields map[string]any, name string) (time.Time, bool) {
	v, ok := fields[name].(time.Time)
	return v, ok
}

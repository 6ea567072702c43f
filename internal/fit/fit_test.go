package fit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInt64FieldAcceptsDecoderWidths(t *testing.T) {
	fields := map[string]any{
		"a": int32(-5),
		"b": uint8(200),
		"c": uint32(4000000000),
		"d": "not a number",
	}

	v, ok := Int64Field(fields, "a")
	require.True(t, ok)
	require.Equal(t, int64(-5), v)

	v, ok = Int64Field(fields, "b")
	require.True(t, ok)
	require.Equal(t, int64(200), v)

	v, ok = Int64Field(fields, "c")
	require.True(t, ok)
	require.Equal(t, int64(4000000000), v)

	_, ok = Int64Field(fields, "d")
	require.False(t, ok)

	_, ok = Int64Field(fields, "missing")
	require.False(t, ok)
}

func TestFloat64FieldFallsBackToIntegers(t *testing.T) {
	fields := map[string]any{
		"speed":    3.25,
		"distance": uint32(1200),
	}

	v, ok := Float64Field(fields, "speed")
	require.True(t, ok)
	require.Equal(t, 3.25, v)

	v, ok = Float64Field(fields, "distance")
	require.True(t, ok)
	require.Equal(t, 1200.0, v)

	_, ok = Float64Field(fields, "missing")
	require.False(t, ok)
}

func TestTimeAndStringFields(t *testing.T) {
	ts := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	fields := map[string]any{
		"time_created": ts,
		"manufacturer": "garmin",
	}

	got, ok := TimeField(fields, "time_created")
	require.True(t, ok)
	require.Equal(t, ts, got)

	s, ok := StringField(fields, "manufacturer")
	require.True(t, ok)
	require.Equal(t, "garmin", s)

	_, ok = TimeField(fields, "manufacturer")
	require.False(t, ok)
}

func TestMessageKindString(t *testing.T) {
	require.Equal(t, "file_id", KindFileID.String())
	require.Equal(t, "record", KindRecord.String())
	require.Equal(t, "lap", KindLap.String())
	require.Equal(t, "unknown", KindUnknown.String())
	require.Equal(t, "unknown", MessageKind(99).String())
}

package fit

import (
	"bytes"
	"fmt"
	"math"

	tfit "github.com/tormoder/fit"
)

// LibraryDecoder adapts the tormoder FIT parser to the Decoder boundary.
// Decode errors from the library are surfaced unchanged.
type LibraryDecoder struct{}

// NewLibraryDecoder constructs the production decoder.
func NewLibraryDecoder() *LibraryDecoder {
	return &LibraryDecoder{}
}

// Decode parses the raw bytes and flattens the activity into the message
// stream the import engine consumes: the file-identity message first, then
// records and laps, each preserving the parser's per-table order.
func (d *LibraryDecoder) Decode(data []byte) ([]Message, error) {
	file, err := tfit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	activity, err := file.Activity()
	if err != nil {
		return nil, err
	}

	messages := []Message{fileIDMessage(file.FileId)}
	for _, rec := range activity.Records {
		messages = append(messages, recordMessage(rec))
	}
	for _, lap := range activity.Laps {
		messages = append(messages, lapMessage(lap))
	}
	return messages, nil
}

func fileIDMessage(fileID tfit.FileIdMsg) Message {
	return Message{Kind: KindFileID, Fields: map[string]any{
		"manufacturer":  fmt.Sprint(fileID.Manufacturer),
		"product":       fmt.Sprint(fileID.Product),
		"serial_number": fileID.SerialNumber,
		"time_created":  fileID.TimeCreated,
	}}
}

// FIT scale factors and invalid sentinels for the channels we persist.
const (
	speedScale    = 1000.0 // mm/s -> m/s
	distanceScale = 100.0  // cm -> m
)

func recordMessage(rec *tfit.RecordMsg) Message {
	fields := map[string]any{"timestamp": rec.Timestamp}
	if rec.PositionLat.Semicircles() != math.MaxInt32 && rec.PositionLong.Semicircles() != math.MaxInt32 {
		fields["position_lat"] = rec.PositionLat.Semicircles()
		fields["position_long"] = rec.PositionLong.Semicircles()
	}
	if rec.Speed != math.MaxUint16 {
		fields["speed"] = float64(rec.Speed) / speedScale
	}
	if rec.Distance != math.MaxUint32 {
		fields["distance"] = float64(rec.Distance) / distanceScale
	}
	if rec.HeartRate != math.MaxUint8 {
		fields["heart_rate"] = rec.HeartRate
	}
	return Message{Kind: KindRecord, Fields: fields}
}

func lapMessage(lap *tfit.LapMsg) Message {
	fields := map[string]any{
		"start_time": lap.StartTime,
		"timestamp":  lap.Timestamp,
	}
	if lap.StartPositionLat.Semicircles() != math.MaxInt32 && lap.StartPositionLong.Semicircles() != math.MaxInt32 {
		fields["start_position_lat"] = lap.StartPositionLat.Semicircles()
		fields["start_position_long"] = lap.StartPositionLong.Semicircles()
	}
	if lap.EndPositionLat.Semicircles() != math.MaxInt32 && lap.EndPositionLong.Semicircles() != math.MaxInt32 {
		fields["end_position_lat"] = lap.EndPositionLat.Semicircles()
		fields["end_position_long"] = lap.EndPositionLong.Semicircles()
	}
	if lap.AvgSpeed != math.MaxUint16 {
		fields["avg_speed"] = float64(lap.AvgSpeed) / speedScale
	}
	if lap.AvgHeartRate != math.MaxUint8 {
		fields["avg_heart_rate"] = lap.AvgHeartRate
	}
	if lap.TotalCalories != math.MaxUint16 {
		fields["total_calories"] = lap.TotalCalories
	}
	if lap.TotalDistance != math.MaxUint32 {
		fields["total_distance"] = float64(lap.TotalDistance) / distanceScale
	}
	return Message{Kind: KindLap, Fields: fields}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/perfscope/pkg/validation"
)

// InfluxMeasurement is the measurement name of exported points.
const InfluxMeasurement = "perfscope_measurement"

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Validate checks that URL, org and bucket are set and that org and
// bucket are usable InfluxDB names.
func (c InfluxConfig) Validate() error {
	if c.URL == "" {
		return errors.New("influx url is required")
	}
	if err := validation.ValidateInfluxName("org", c.Org); err != nil {
		return err
	}
	return validation.ValidateInfluxName("bucket", c.Bucket)
}

// PointWriter is the part of the InfluxDB blocking write API the sink uses.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes sweep measurements to InfluxDB.
type InfluxSink struct {
	writer PointWriter
	client influxdb2.Client
	logger *slog.Logger
}

// NewInfluxSink connects to InfluxDB.
//
// The client is lazy; no request is made until the first write.
func NewInfluxSink(cfg InfluxConfig, logger *slog.Logger) (*InfluxSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	sink := NewInfluxSinkWithWriter(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), logger)
	sink.client = client
	return sink, nil
}

// NewInfluxSinkWithWriter builds a sink over an existing writer.
func NewInfluxSinkWithWriter(w PointWriter, logger *slog.Logger) *InfluxSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &InfluxSink{writer: w, logger: logger}
}

// Write sends one point per measured size.
func (s *InfluxSink) Write(ctx context.Context, rec *Record) error {
	points := Points(rec)
	if len(points) == 0 {
		return nil
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write %d points to influx: %w", len(points), err)
	}
	s.logger.Info("Exported measurements to InfluxDB",
		slog.String("analysis_id", rec.ID()),
		slog.Int("points", len(points)),
	)
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Points converts a record's measurements to InfluxDB points.
//
// Each size becomes one point tagged with the analysis identity, the labels
// and the input size, all stamped with the analysis start time.
func Points(rec *Record) []*write.Point {
	r := rec.Report
	points := make([]*write.Point, 0, len(r.Measurements))
	for _, m := range r.Measurements {
		points = append(points, influxdb2.NewPoint(
			InfluxMeasurement,
			map[string]string{
				"analysis_id":      r.ID,
				"entry_type":       r.EntryType,
				"mode":             string(r.Mode),
				"time_complexity":  r.Result.TimeComplexity,
				"space_complexity": r.Result.SpaceComplexity,
				"input_size":       strconv.Itoa(m.InputSize),
			},
			map[string]interface{}{
				"avg_time_ms":      m.AvgTimeMs,
				"avg_memory_bytes": m.AvgMemoryBytes,
			},
			r.StartedAt,
		))
	}
	return points
}

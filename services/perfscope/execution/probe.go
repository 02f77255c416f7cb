// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package execution

import (
	"context"
	"runtime"
	"time"
)

// MemoryProbe takes a used-memory snapshot.
type MemoryProbe interface {
	// Sample returns the current used memory in bytes.
	Sample(ctx context.Context) (int64, error)
}

// RuntimeProbe requests a garbage collection, waits for the heap to settle
// and reports the in-use heap of this process.
//
// The figure is a relative signal for comparing runs of the same program,
// not the child's own footprint; PerformanceSample.PeakRSSBytes carries
// that when the platform reports it.
type RuntimeProbe struct {
	Settle time.Duration
}

// Sample implements MemoryProbe.
func (p RuntimeProbe) Sample(ctx context.Context) (int64, error) {
	runtime.GC()
	if p.Settle > 0 {
		t := time.NewTimer(p.Settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapInuse), nil
}

// ProbeFunc adapts a function to MemoryProbe.
type ProbeFunc func(ctx context.Context) (int64, error)

// Sample implements MemoryProbe.
func (f ProbeFunc) Sample(ctx context.Context) (int64, error) {
	return f(ctx)
}

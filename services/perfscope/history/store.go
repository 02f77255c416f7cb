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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/perfscope/pkg/validation"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
)

// reportKeyPrefix namespaces report records.
const reportKeyPrefix = "perfscope/report/"

// ErrCorrupted indicates a stored record failed its checksum.
var ErrCorrupted = errors.New("history record corrupted")

// =============================================================================
// RECORD
// =============================================================================

// Record is one stored analysis.
type Record struct {
	// Report is the analysis report as returned by the analyzer.
	Report harness.Report `json:"report"`

	// Source names where the code came from: a file path, "api", or empty.
	Source string `json:"source,omitempty"`

	// CodeHash is the hex SHA-256 of the analyzed code.
	CodeHash string `json:"code_hash"`

	// RecordedAt is when the record was written.
	RecordedAt time.Time `json:"recorded_at"`
}

// ID returns the report ID the record is keyed by.
func (r *Record) ID() string {
	return r.Report.ID
}

// NewRecord wraps a report for storage.
func NewRecord(report *harness.Report, code, source string) Record {
	sum := sha256.Sum256([]byte(code))
	return Record{
		Report:     *report,
		Source:     source,
		CodeHash:   hex.EncodeToString(sum[:]),
		RecordedAt: time.Now().UTC(),
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store persists records.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *DB
	logger *slog.Logger
}

// NewStore creates a Store over an open database.
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Put writes a record, replacing any record with the same ID.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if err := checkID(rec.ID()); err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(reportKey(rec.ID()), data)
	})
	if err != nil {
		return fmt.Errorf("store report %s: %w", rec.ID(), err)
	}
	s.logger.Debug("Report recorded",
		slog.String("analysis_id", rec.ID()),
		slog.String("source", rec.Source),
	)
	return nil
}

// Get reads one record.
//
// Outputs:
//
//	*Record - The record.
//	error - Wraps domain.ErrNotFound when no record has this ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var rec *Record
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(reportKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := decodeRecord(val)
			if err != nil {
				return err
			}
			rec = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns records newest first. A limit of zero or less returns all.
//
// Corrupted records are skipped and logged.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	prefix := []byte(reportKeyPrefix)
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err != nil {
					s.logger.Warn("Skipping unreadable history record",
						slog.String("key", string(item.Key())),
						slog.String("error", err.Error()),
					)
					return nil
				}
				out = append(out, *rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a record.
//
// Outputs:
//
//	error - Wraps domain.ErrNotFound when no record has this ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(reportKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
			}
			return err
		}
		return txn.Delete(reportKey(id))
	})
}

// checkID rejects IDs that are not safe as key suffixes.
func checkID(id string) error {
	if err := validation.ValidateRecordID(id); err != nil {
		return &domain.ValidationError{Field: "id", Reason: err.Error()}
	}
	return nil
}

func reportKey(id string) []byte {
	return []byte(reportKeyPrefix + id)
}

// encodeRecord produces [4-byte CRC32][json record].
func encodeRecord(rec Record) ([]byte, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[:4], crc32.ChecksumIEEE(body))
	copy(out[4:], body)
	return out, nil
}

func decodeRecord(data []byte) (*Record, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: entry too short", ErrCorrupted)
	}
	stored := binary.BigEndian.Uint32(data[:4])
	body := data[4:]
	if computed := crc32.ChecksumIEEE(body); stored != computed {
		return nil, fmt.Errorf("%w: stored=%08x computed=%08x", ErrCorrupted, stored, computed)
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &rec, nil
}

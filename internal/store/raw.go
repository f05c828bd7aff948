package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawRecord is one ingested spreadsheet row kept as an opaque key-value
// mapping. Records are never mutated in place; a corrected re-import is a
// new record. Invalid lists the columns whose source value failed type
// coercion (the original string is preserved in Data for those).
type RawRecord struct {
	ID        int64
	Data      map[string]interface{}
	Invalid   []string
	CreatedAt time.Time
}

// InsertRawRecord persists a raw record, serializing its payload as JSON
func (s *Store) InsertRawRecord(r *RawRecord) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal raw record: %w", err)
	}

	var invalid interface{}
	if len(r.Invalid) > 0 {
		b, err := json.Marshal(r.Invalid)
		if err != nil {
			return fmt.Errorf("failed to marshal invalid fields: %w", err)
		}
		invalid = string(b)
	}

	result, err := s.q.Exec("INSERT INTO raw_records (data, invalid) VALUES (?, ?)", string(data), invalid)
	if err != nil {
		return fmt.Errorf("failed to insert raw record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get raw record ID: %w", err)
	}
	r.ID = id
	return nil
}

// ListRawRecords returns all raw records in insertion order
func (s *Store) ListRawRecords() ([]*RawRecord, error) {
	rows, err := s.q.Query("SELECT id, data, invalid, created_at FROM raw_records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query raw records: %w", err)
	}
	defer rows.Close()

	var records []*RawRecord
	for rows.Next() {
		r := &RawRecord{}
		var data string
		var invalid *string
		if err := rows.Scan(&r.ID, &data, &invalid, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan raw record: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal raw record %d: %w", r.ID, err)
		}
		if invalid != nil {
			if err := json.Unmarshal([]byte(*invalid), &r.Invalid); err != nil {
				return nil, fmt.Errorf("failed to unmarshal invalid fields of record %d: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountRawRecords returns the number of persisted raw records
func (s *Store) CountRawRecords() (int, error) {
	return s.count("SELECT COUNT(*) FROM raw_records")
}

// DeleteAllRawRecords removes every raw record
func (s *Store) DeleteAllRawRecords() error {
	if _, err := s.q.Exec("DELETE FROM raw_records"); err != nil {
		return fmt.Errorf("failed to delete raw records: %w", err)
	}
	return nil
}

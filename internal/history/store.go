// Package history persists sync reports in a local bbolt database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cdd-platform/cdd/internal/syncer"
)

var reportsBucket = []byte("reports")

// Store is a bbolt-backed log of sync reports, ordered by start time.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reportsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// key sorts reports chronologically; the ID disambiguates equal timestamps.
func key(r *syncer.Report) []byte {
	return []byte(fmt.Sprintf("%020d-%s", r.StartedAt.UnixNano(), r.ID))
}

// Save appends a report.
func (s *Store) Save(r *syncer.Report) error {
	if r.ID == "" {
		return errors.New("report has no id")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reportsBucket).Put(key(r), data)
	})
}

// List returns up to limit reports, newest first. A limit of zero or less
// returns every report.
func (s *Store) List(limit int) ([]syncer.Report, error) {
	var reports []syncer.Report

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(reportsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(reports) >= limit {
				break
			}
			var r syncer.Report
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal report %s: %w", string(k), err)
			}
			reports = append(reports, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

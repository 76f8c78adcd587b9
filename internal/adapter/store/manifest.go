package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketSources = []byte("sources")
	bucketMeta    = []byte("meta")
)

// SourceRecord describes one PDF that has been ingested into the store.
type SourceRecord struct {
	Name       string    `json:"name"`
	SHA256     string    `json:"sha256"`
	Size       int64     `json:"size"`
	Position   int       `json:"position"`
	Title      string    `json:"title"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Manifest is a bbolt database recording which sources are already in the
// store, plus schema information about the store itself.
type Manifest struct {
	db *bbolt.DB
}

func OpenManifest(path string) (*Manifest, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSources, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	m := &Manifest{db: db}
	if err := m.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manifest) Close() error {
	return m.db.Close()
}

// Lookup returns the record stored under name.
func (m *Manifest) Lookup(name string) (SourceRecord, bool, error) {
	var (
		rec   SourceRecord
		found bool
	)
	err := m.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSources).Get([]byte(name))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	return rec, found, err
}

// Record stores all records in one transaction, replacing existing entries
// with the same name.
func (m *Manifest) Record(records ...SourceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSources)
		for _, r := range records {
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.Name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns every record ordered by store position.
func (m *Manifest) List() ([]SourceRecord, error) {
	var records []SourceRecord
	err := m.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSources).ForEach(func(k, v []byte) error {
			var r SourceRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("manifest entry %s: %w", k, err)
			}
			records = append(records, r)
			return nil
		})
	})
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})
	return records, err
}

// Prune drops records whose position is not below storeLen. They describe
// documents the store no longer holds, e.g. after the artifacts were removed
// for a rebuild. It returns the number of records dropped.
func (m *Manifest) Prune(storeLen int) (int, error) {
	var dropped int
	err := m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSources)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var r SourceRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("manifest entry %s: %w", k, err)
			}
			if r.Position >= storeLen {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		dropped = len(stale)
		return nil
	})
	return dropped, err
}

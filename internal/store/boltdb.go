package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketServices    = []byte("services")
	bucketAssignments = []byte("assignment")
	bucketLocks       = []byte("lock")
	bucketSchemas     = []byte("schema")
)

// BoltStore implements Store on top of a single bbolt file, one bucket
// per logical table. It is the coordination-store backend both sync
// controller binaries use in production; MemStore covers tests.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) a bbolt database at path
// and ensures all four buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketServices, bucketAssignments, bucketLocks, bucketSchemas} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Heartbeat(rec ServiceRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.heartbeatTx(tx, rec)
	})
}

func (s *BoltStore) heartbeatTx(tx *bolt.Tx, rec ServiceRecord) error {
	b := tx.Bucket(bucketServices)
	now := time.Now()
	rec.LastHeartbeat = now

	if existing := b.Get([]byte(rec.ID)); existing != nil {
		var prev ServiceRecord
		if err := json.Unmarshal(existing, &prev); err != nil {
			return fmt.Errorf("decode existing service %s: %w", rec.ID, err)
		}
		rec.FirstHeartbeat = prev.FirstHeartbeat
	} else {
		rec.FirstHeartbeat = now
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode service %s: %w", rec.ID, err)
	}
	return b.Put([]byte(rec.ID), data)
}

func (s *BoltStore) BulkHeartbeat(recs []ServiceRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, rec := range recs {
			if err := s.heartbeatTx(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetHosts(role string, now time.Time) ([]ServiceRecord, error) {
	out := make([]ServiceRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketServices).ForEach(func(_, v []byte) error {
			var rec ServiceRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Role == role && !rec.Expired(now) {
				out = append(out, rec)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) GetService(id string) (ServiceRecord, error) {
	var rec ServiceRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketServices).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

func (s *BoltStore) QueueAssignment(rec AssignmentRecord) error {
	rec.Committed = false
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode assignment %s: %w", rec.ID, err)
		}
		return tx.Bucket(bucketAssignments).Put([]byte(rec.ID), data)
	})
}

func (s *BoltStore) CommitAssignments(segment string, now time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssignments)
		return b.ForEach(func(k, v []byte) error {
			var rec AssignmentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Segment != segment || rec.Committed {
				return nil
			}
			rec.Committed = true
			rec.AssignedOn = now
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			return b.Put(k, data)
		})
	})
}

func (s *BoltStore) Unassign(segment, host string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssignments).Delete([]byte(host + ":" + segment))
	})
}

func (s *BoltStore) AllCopies(segment string) ([]AssignmentRecord, error) {
	return s.scanAssignments(func(rec AssignmentRecord) bool {
		return rec.Segment == segment && rec.Committed
	})
}

func (s *BoltStore) SegmentsForHost(host string) ([]AssignmentRecord, error) {
	return s.scanAssignments(func(rec AssignmentRecord) bool {
		return rec.Host == host && rec.Committed
	})
}

func (s *BoltStore) scanAssignments(match func(AssignmentRecord) bool) ([]AssignmentRecord, error) {
	out := make([]AssignmentRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssignments).ForEach(func(_, v []byte) error {
			var rec AssignmentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if match(rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) AcquireLock(segment, node string, port int, now time.Time) (LockRecord, bool, error) {
	var rec LockRecord
	var won bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		if existing := b.Get([]byte(segment)); existing != nil {
			return json.Unmarshal(existing, &rec)
		}
		rec = LockRecord{Segment: segment, Node: node, Port: port, Acquired: now}
		won = true
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode lock %s: %w", segment, err)
		}
		return b.Put([]byte(segment), data)
	})
	return rec, won, err
}

func (s *BoltStore) LoadLock(segment string) (LockRecord, error) {
	var rec LockRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketLocks).Get([]byte(segment))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

func (s *BoltStore) ReleaseLock(segment, node string, port int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		v := b.Get([]byte(segment))
		if v == nil {
			return nil
		}
		var rec LockRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		if rec.Node != node || rec.Port != port {
			return ErrNotFound
		}
		return b.Delete([]byte(segment))
	})
}

func (s *BoltStore) PutSchema(rec SchemaRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode schema %s: %w", rec.ID, err)
		}
		return tx.Bucket(bucketSchemas).Put([]byte(rec.ID), data)
	})
}

func (s *BoltStore) GetSchema(id string) (SchemaRecord, error) {
	var rec SchemaRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSchemas).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

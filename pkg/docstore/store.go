package docstore

import (
	"bytes"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"
)

var (
	measurementBucket = []byte("measurement")
	combinationBucket = []byte("combination")
	modelsBucket      = []byte("models")

	currentModelKey = []byte("current")
)

// Store is the embedded document database. A single *Store is safe for
// concurrent use; bbolt serializes writers internally and readers never
// block a writer.
type Store struct {
	db     *bbolt.DB
	closed atomic.Bool
}

// Open creates (or reopens) the bbolt file at path and ensures all three
// buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{measurementBucket, combinationBucket, modelsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying file. Calling Close more than once
// returns ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.db.Close()
}

func measurementKey(jobID int64, seq uint64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[0:8], uint64(jobID))
	binary.BigEndian.PutUint64(k[8:16], seq)
	return k
}

func measurementPrefix(jobID int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(jobID))
	return k
}

// PutMeasurement appends one measurement row, keyed by (job_id, insertion
// sequence) so MeasurementsForJob can scan every row for a job in
// insertion order via a single prefix seek.
func (s *Store) PutMeasurement(doc MeasurementDoc) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(measurementBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		buf, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return b.Put(measurementKey(doc.JobID, seq), buf)
	})
}

// MeasurementsForJob returns every measurement row recorded for jobID, in
// insertion order. A jobID with no rows yields (nil, nil); callers that
// need to distinguish "no profile yet" from "store error" check len == 0.
func (s *Store) MeasurementsForJob(jobID int64) ([]MeasurementDoc, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	prefix := measurementPrefix(jobID)
	var docs []MeasurementDoc
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(measurementBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var d MeasurementDoc
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			docs = append(docs, d)
		}
		return nil
	})
	return docs, err
}

// KnownJobIDs returns every distinct job_id with at least one stored
// measurement row, in ascending order.
func (s *Store) KnownJobIDs() ([]int64, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var ids []int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(measurementBucket).Cursor()
		var last int64
		haveLast := false
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) < 8 {
				continue
			}
			jobID := int64(binary.BigEndian.Uint64(k[0:8]))
			if haveLast && jobID == last {
				continue
			}
			ids = append(ids, jobID)
			last, haveLast = jobID, true
		}
		return nil
	})
	return ids, err
}

// PutCombination stores a pairwise co-run sample for the offline model
// trainer. The runtime never reads this bucket back (spec §6).
func (s *Store) PutCombination(doc CombinationDoc) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(combinationBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		buf, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		key := make([]byte, 16)
		binary.BigEndian.PutUint64(key[0:8], uint64(doc.JobA))
		binary.BigEndian.PutUint64(key[8:16], seq)
		return b.Put(key, buf)
	})
}

// PutModel replaces the currently active trained model.
func (s *Store) PutModel(doc ModelDoc) error {
	if s.closed.Load() {
		return ErrClosed
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(modelsBucket).Put(currentModelKey, buf)
	})
}

// LoadModel returns the currently active trained model, or ErrNotFound if
// none has been published yet.
func (s *Store) LoadModel() (ModelDoc, error) {
	if s.closed.Load() {
		return ModelDoc{}, ErrClosed
	}
	var doc ModelDoc
	err := s.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(modelsBucket).Get(currentModelKey)
		if buf == nil {
			return ErrNotFound
		}
		return json.Unmarshal(buf, &doc)
	})
	return doc, err
}

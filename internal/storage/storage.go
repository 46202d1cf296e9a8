// Package storage provides persistent data storage for the motor-imagery
// pipeline. It uses BoltDB as the underlying storage engine to store trial
// epochs and assembled feature tables between runs, so the expensive
// spectral-fit step does not have to be repeated.
//
// Epochs are stored in insertion order; that order defines the row order
// of every feature table derived from them.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"eeg-pipeline/internal/epochs"
	"eeg-pipeline/internal/table"

	"go.etcd.io/bbolt"
)

const (
	epochsBucket = "epochs" // Bucket for trial epochs, keyed by insertion sequence
	tablesBucket = "tables" // Bucket for feature tables, keyed by table name
)

// Store provides persistent storage for pipeline data using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "imagery-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(epochsBucket)); err != nil {
			return fmt.Errorf("create epochs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(tablesBucket)); err != nil {
			return fmt.Errorf("create tables bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreEpoch appends an epoch record. The key is the bucket sequence
// number, so iteration order equals insertion order.
func (s *Store) StoreEpoch(e epochs.Epoch) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid epoch: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(epochsBucket))

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal epoch: %w", err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("epoch sequence: %w", err)
		}
		return b.Put(seqKey(seq), data)
	})
}

// StoreEpochs appends a batch of epochs in order within one transaction.
func (s *Store) StoreEpochs(eps []epochs.Epoch) error {
	for i := range eps {
		if err := eps[i].Validate(); err != nil {
			return fmt.Errorf("refusing to store invalid epoch: %w", err)
		}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(epochsBucket))
		for i := range eps {
			data, err := json.Marshal(eps[i])
			if err != nil {
				return fmt.Errorf("marshal epoch: %w", err)
			}
			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("epoch sequence: %w", err)
			}
			if err := b.Put(seqKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEpochs retrieves all epochs in insertion order.
func (s *Store) GetEpochs() ([]epochs.Epoch, error) {
	var eps []epochs.Epoch

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(epochsBucket))
		c := b.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e epochs.Epoch
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode epoch at key %x: %w", k, err)
			}
			eps = append(eps, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return eps, nil
}

// GetEpochsByPatient retrieves epochs for one patient, preserving the
// overall insertion order.
func (s *Store) GetEpochsByPatient(patient string) ([]epochs.Epoch, error) {
	all, err := s.GetEpochs()
	if err != nil {
		return nil, err
	}

	var eps []epochs.Epoch
	for _, e := range all {
		if e.Patient == patient {
			eps = append(eps, e)
		}
	}
	return eps, nil
}

// EpochCount returns the number of stored epochs.
func (s *Store) EpochCount() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(epochsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// StoreTable persists a feature table under the given name, replacing any
// previous table with that name.
func (s *Store) StoreTable(name string, t *table.Table) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(tablesBucket))

		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal table %q: %w", name, err)
		}
		return b.Put([]byte(name), data)
	})
}

// GetTable loads a feature table by name. A missing table is an error.
func (s *Store) GetTable(name string) (*table.Table, error) {
	t := table.New()

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(tablesBucket))
		data := b.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("table %q not found", name)
		}
		if err := json.Unmarshal(data, t); err != nil {
			return fmt.Errorf("decode table %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// HasTable reports whether a named table exists.
func (s *Store) HasTable(name string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(tablesBucket)).Get([]byte(name)) != nil
		return nil
	})
	return found, err
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

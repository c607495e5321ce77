package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markusressel/fanspeedctl/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketFanCurves = "fanCurves"
	BucketFanState  = "fanState"
)

// FanState is the last known state of a fan
type FanState struct {
	Speed     int       `json:"speed"`
	Rpm       int64     `json:"rpm"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Persistence interface {
	Init() error

	// LoadFanCurve returns the measured duty (percent) -> RPM map of the given fan
	LoadFanCurve(fanId string) (map[int]int64, error)
	SaveFanCurve(fanId string, curve map[int]int64) (err error)
	DeleteFanCurve(fanId string) (err error)

	LoadFanState(fanId string) (FanState, error)
	SaveFanState(fanId string, state FanState) (err error)
	DeleteFanState(fanId string) (err error)
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	p := &persistence{
		dbPath: dbPath,
	}
	return p
}

func (p persistence) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		// create directory
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (p persistence) update(fn func(tx *bolt.Tx) error) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(fn)
}

func (p persistence) save(bucket string, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return p.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		return b.Put([]byte(key), data)
	})
}

// load unmarshals the value of the given key into target.
// Unreadable values are deleted and reported as missing.
func (p persistence) load(bucket string, key string, target interface{}) error {
	corrupt := false
	err := p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(key))
		if v == nil {
			return os.ErrNotExist
		}

		err := json.Unmarshal(v, target)
		if err != nil {
			// if we cannot read the saved data, delete it
			ui.Warning("Unable to unmarshal saved %s data for %s: %v", bucket, key, err)
			err := b.Delete([]byte(key))
			if err != nil {
				ui.Error("Unable to delete corrupt data key %s: %v", key, err)
			}
			// commit the deletion
			corrupt = true
			return nil
		}
		return nil
	})
	if err == nil && corrupt {
		return os.ErrNotExist
	}
	return err
}

func (p persistence) delete(bucket string, key string) error {
	return p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			// no bucket yet
			return nil
		}
		if b.Get([]byte(key)) == nil {
			// no data for given key
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// SaveFanCurve saves the measured fan curve of the given fan to persistence
func (p persistence) SaveFanCurve(fanId string, curve map[int]int64) error {
	return p.save(BucketFanCurves, fanId, curve)
}

// LoadFanCurve loads the measured fan curve of the given fan from persistence
func (p persistence) LoadFanCurve(fanId string) (map[int]int64, error) {
	var curve map[int]int64
	err := p.load(BucketFanCurves, fanId, &curve)
	if err != nil {
		return nil, err
	}
	return curve, nil
}

func (p persistence) DeleteFanCurve(fanId string) error {
	return p.delete(BucketFanCurves, fanId)
}

// SaveFanState saves the last known state of the given fan
func (p persistence) SaveFanState(fanId string, state FanState) error {
	return p.save(BucketFanState, fanId, state)
}

func (p persistence) LoadFanState(fanId string) (FanState, error) {
	var state FanState
	err := p.load(BucketFanState, fanId, &state)
	return state, err
}

func (p persistence) DeleteFanState(fanId string) error {
	return p.delete(BucketFanState, fanId)
}

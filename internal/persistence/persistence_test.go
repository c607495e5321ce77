package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	bolt "go.etcd.io/bbolt"
)

var (
	LinearFan = map[int]int64{
		0:   0,
		50:  1400,
		100: 1900,
	}
)

func newTestPersistence(t *testing.T) Persistence {
	p := NewPersistence(filepath.Join(t.TempDir(), "db", "test.db"))
	assert.NoError(t, p.Init())
	return p
}

func TestPersistence_Init_CreatesDirectory(t *testing.T) {
	// GIVEN
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	p := NewPersistence(filepath.Join(dir, "test.db"))

	// WHEN
	err := p.Init()

	// THEN
	assert.NoError(t, err)
	info, err := os.Stat(dir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPersistence_SaveAndLoadFanCurve(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t)
	err := p.SaveFanCurve("fan1", LinearFan)
	assert.NoError(t, err)

	// WHEN
	curve, err := p.LoadFanCurve("fan1")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, LinearFan, curve)
}

func TestPersistence_LoadFanCurve_Missing(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t)

	// WHEN
	curve, err := p.LoadFanCurve("fan1")

	// THEN
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, curve)
}

func TestPersistence_DeleteFanCurve(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t)
	_ = p.SaveFanCurve("fan1", LinearFan)
	_ = p.SaveFanCurve("fan2", LinearFan)

	// WHEN
	err := p.DeleteFanCurve("fan1")
	assert.NoError(t, err)

	// THEN
	data, err := p.LoadFanCurve("fan1")
	assert.Nil(t, data)
	assert.Error(t, err)
	data, err = p.LoadFanCurve("fan2")
	assert.NoError(t, err)
	assert.Equal(t, LinearFan, data)
}

func TestPersistence_DeleteFanCurve_Missing(t *testing.T) {
	p := newTestPersistence(t)
	assert.NoError(t, p.DeleteFanCurve("fan1"))
}

func TestPersistence_LoadFanCurve_Corrupt(t *testing.T) {
	// GIVEN
	dbPath := filepath.Join(t.TempDir(), "test.db")
	p := NewPersistence(dbPath)
	db, err := bolt.Open(dbPath, 0600, nil)
	assert.NoError(t, err)
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketFanCurves))
		if err != nil {
			return err
		}
		return b.Put([]byte("fan1"), []byte("{not json"))
	})
	assert.NoError(t, err)
	assert.NoError(t, db.Close())

	// WHEN
	curve, err := p.LoadFanCurve("fan1")

	// THEN
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, curve)

	// the corrupt entry is gone
	db, err = bolt.Open(dbPath, 0600, nil)
	assert.NoError(t, err)
	defer db.Close()
	_ = db.View(func(tx *bolt.Tx) error {
		assert.Nil(t, tx.Bucket([]byte(BucketFanCurves)).Get([]byte("fan1")))
		return nil
	})
}

func TestPersistence_FanState(t *testing.T) {
	// GIVEN
	p := newTestPersistence(t)
	state := FanState{
		Speed:     40,
		Rpm:       1300,
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	// WHEN
	err := p.SaveFanState("fan1", state)
	assert.NoError(t, err)
	loaded, err := p.LoadFanState("fan1")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, state.Speed, loaded.Speed)
	assert.Equal(t, state.Rpm, loaded.Rpm)
	assert.True(t, state.UpdatedAt.Equal(loaded.UpdatedAt))

	assert.NoError(t, p.DeleteFanState("fan1"))
	_, err = p.LoadFanState("fan1")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-imagen-client/storage"
)

var _ storage.Repo = (*FakeStorageRepo)(nil)

type FakeStorageRepo struct {
	values map[string][]byte
	saves  int
	lock   sync.RWMutex
}

func NewFakeStorageRepo() *FakeStorageRepo {
	return &FakeStorageRepo{
		values: make(map[string][]byte),
	}
}

func (r *FakeStorageRepo) Load(_ context.Context, key string) ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (r *FakeStorageRepo) Save(_ context.Context, key string, value []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.values[key] = append([]byte(nil), value...)
	r.saves++
	return nil
}

func (r *FakeStorageRepo) Delete(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.values, key)
	return nil
}

// Saves returns how many times Save has been called.
func (r *FakeStorageRepo) Saves() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.saves
}

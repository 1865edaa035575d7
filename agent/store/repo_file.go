package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileRepo persists the key-value area as a single JSON file. Writes go
// through a temp file and rename so a crash never leaves a half-written
// store behind.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, errors.New("[NewFileRepo] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileRepo] create store directory")
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return nil, err
	}

	value, ok := values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (r *FileRepo) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return err
	}
	values[key] = value
	return r.save(values)
}

func (r *FileRepo) Remove(_ context.Context, key string) error {
	if key == "" {
		return errors.New("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return r.save(values)
}

func (r *FileRepo) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, errors.Wrap(err, "[FileRepo] read store file")
	}

	values := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "[FileRepo] parse store file")
	}
	return values, nil
}

func (r *FileRepo) save(values map[string]json.RawMessage) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "[FileRepo] encode store")
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo] write store file")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return errors.Wrap(err, "[FileRepo] replace store file")
	}
	return nil
}

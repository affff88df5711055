package databag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Bag persisted as a JSON document. Every Set and Delete rewrites
// the file through a temp file and rename.
type File struct {
	path string
	data map[string]interface{}
	mu   sync.RWMutex
}

// OpenFile opens the bag stored at path, starting empty when the file does
// not exist yet.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("data bag path cannot be empty")
	}

	f := &File{
		path: path,
		data: make(map[string]interface{}),
	}

	if err := f.load(); err != nil {
		return nil, fmt.Errorf("failed to load data bag from %s: %w", path, err)
	}

	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) load() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if len(raw) == 0 {
		return nil
	}

	var doc struct {
		Values map[string]interface{} `json:"values"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode data bag: %w", err)
	}
	if doc.Values != nil {
		f.data = doc.Values
	}
	return nil
}

// save must be called with mu held.
func (f *File) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create data bag directory: %w", err)
	}

	doc := struct {
		Values map[string]interface{} `json:"values"`
	}{Values: f.data}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data bag: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp data bag: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp data bag: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (f *File) Get(key string) (interface{}, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok
}

// Set stores value under key and persists the bag.
func (f *File) Set(key string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.save()
}

// Delete removes key and persists the bag.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.save()
}

// Keys returns all keys in sorted order.
func (f *File) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedKeys(f.data)
}

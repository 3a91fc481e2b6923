package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Error reports a configuration document that cannot be read, parsed or written.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store reads and writes the document at Path. It keeps no copy in memory:
// every Load goes back to disk so external edits show up on the next call.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the document. A missing file is replaced by Default(), which is
// persisted before being returned.
func (s *Store) Load() (Config, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := s.Save(cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, &Error{Op: "read", Path: s.Path, Err: err}
	}

	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, &Error{Op: "parse", Path: s.Path, Err: err}
	}
	return cfg, nil
}

// Save replaces the document atomically.
func (s *Store) Save(cfg Config) error {
	if err := SaveAtomic(s.Path, cfg); err != nil {
		return &Error{Op: "write", Path: s.Path, Err: err}
	}
	return nil
}

// AbsPath is the resolved location of the document.
func (s *Store) AbsPath() string {
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		return s.Path
	}
	return abs
}

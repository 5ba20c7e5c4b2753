package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

const (
	snapshotSuffix    = "_extracted_data.json"
	unvalidatedSuffix = "_extracted_data_unvalidated.json"
)

// FileStore keeps one JSON document per snapshot under a root directory.
type FileStore struct {
	dir string
}

// NewFile returns a FileStore rooted at dir.
func NewFile(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file a snapshot is stored in.
func (s *FileStore) Path(key Key) string {
	return filepath.Join(s.dir, key.PersonID, key.Date, key.Site+snapshotSuffix)
}

// UnvalidatedPath returns the side file for a rejected snapshot.
func (s *FileStore) UnvalidatedPath(key Key) string {
	return filepath.Join(s.dir, key.PersonID, key.Date, key.Site+unvalidatedSuffix)
}

func (s *FileStore) Put(_ context.Context, key Key, snap model.RawSnapshot) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.Path(key), data)
}

func (s *FileStore) PutUnvalidated(_ context.Context, key Key, v any) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.UnvalidatedPath(key), data)
}

func (s *FileStore) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrNotFound, "file: %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: read %s", key)
	}
	return data, nil
}

func (s *FileStore) ListDates(_ context.Context, personID string) ([]string, error) {
	if err := validSegment("person id", personID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, personID))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: list dates for %s", personID)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() {
			dates = append(dates, e.Name())
		}
	}
	return sortDatesDesc(dates), nil
}

func (s *FileStore) ListSites(_ context.Context, personID, date string) ([]string, error) {
	if err := validSegment("person id", personID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, personID, date))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: list sites for %s/%s", personID, date)
	}

	var sites []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, unvalidatedSuffix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		sites = append(sites, strings.TrimSuffix(name, snapshotSuffix))
	}
	return sortedUnique(sites), nil
}

func (s *FileStore) Migrate(context.Context) error {
	return eris.Wrap(os.MkdirAll(s.dir, 0o755), "file: create root")
}

func (s *FileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "file: create dir for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "file: create temp")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "file: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "file: close %s", path)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "file: rename into %s", path)
}

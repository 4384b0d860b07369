// Package repo persists feature assessments as one JSON document per repository
//
// Layout is <root>/<cacheDir>/<owner>/<name>.json with a top level
// featureAssessments object. Writers read, merge and atomically replace the
// file while holding the lock shard of that file, so concurrent assessments of
// different features never drop each other's records
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"fshfinder/internal/core/repository"
	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
)

const shardCount = 64

// document is the on disk shape
type document struct {
	FeatureAssessments map[string]repository.Assessment `json:"featureAssessments"`
}

// FileStore implements repository.Store on the local filesystem
type FileStore struct {
	dir    string
	log    logger.Logger
	shards [shardCount]sync.Mutex
}

var _ repository.Store = (*FileStore)(nil)

// NewFileStore returns a store rooted at filepath.Join(root, cacheDir)
func NewFileStore(root, cacheDir string, log logger.Logger) *FileStore {
	return &FileStore{dir: filepath.Join(root, cacheDir), log: log}
}

// Dir is the cache directory
func (s *FileStore) Dir() string { return s.dir }

// Path is the cache file of id
func (s *FileStore) Path(id repository.Identity) string {
	return filepath.Join(s.dir, id.Owner(), id.Name()+".json")
}

func (s *FileStore) lock(path string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return &s.shards[h.Sum32()%shardCount]
}

// Load returns the cached record for feature
// A malformed file is reported as ErrorCodeCacheRead
func (s *FileStore) Load(_ context.Context, id repository.Identity, feature string) (repository.Assessment, bool, error) {
	path := s.Path(id)
	mu := s.lock(path)
	mu.Lock()
	defer mu.Unlock()

	doc, err := read(path)
	if err != nil {
		return repository.Assessment{}, false, err
	}
	a, ok := doc.FeatureAssessments[feature]
	return a, ok, nil
}

// Save merges a into the persisted document and replaces the file atomically
func (s *FileStore) Save(ctx context.Context, id repository.Identity, feature string, a repository.Assessment) error {
	path := s.Path(id)
	mu := s.lock(path)
	mu.Lock()
	defer mu.Unlock()

	doc, err := read(path)
	if err != nil {
		logger.From(ctx, s.log).Warn().Err(err).Str("path", path).Msg("cache file unreadable, rewriting")
		doc = document{}
	}
	if doc.FeatureAssessments == nil {
		doc.FeatureAssessments = map[string]repository.Assessment{}
	}
	doc.FeatureAssessments[feature] = a
	return write(path, doc)
}

// read returns an empty document when the file does not exist
func read(path string) (document, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return document{}, perr.Wrapf(err, perr.ErrorCodeCacheRead, "read %s", path)
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return document{}, perr.Wrapf(err, perr.ErrorCodeCacheRead, "decode %s", path)
	}
	return doc, nil
}

// write replaces path via a temp file in the same directory
func write(path string, doc document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeCacheWrite, "mkdir %s", dir)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode cache document")
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.part")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeCacheWrite, "create temp for %s", path)
	}
	tmp := f.Name()
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return perr.Wrapf(err, perr.ErrorCodeCacheWrite, "write %s", tmp)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrapf(err, perr.ErrorCodeCacheWrite, "close %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return perr.Wrapf(err, perr.ErrorCodeCacheWrite, "rename %s", tmp)
	}
	return nil
}

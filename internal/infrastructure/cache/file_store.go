// Package cache provides the persistent stores behind report caching.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"tradeflow/internal/domain/reports"
	"tradeflow/pkg/logger"
)

// DefaultCompressThreshold is the document size above which files are zstd compressed.
const DefaultCompressThreshold = 10 * 1024

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// DefaultFileName returns the file used for a namespace.
func DefaultFileName(namespace string) string {
	switch namespace {
	case reports.NamespaceOverview:
		return "overview-stats.json"
	case reports.NamespaceAnalysis:
		return "analysis-cache.json"
	}
	return namespace + "-cache.json"
}

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	Dir       string
	Namespace string
	// FileName defaults to DefaultFileName(Namespace).
	FileName string
	// CompressThreshold in bytes; 0 disables compression.
	CompressThreshold int
}

// FileStore keeps one namespace as a single JSON document on disk.
//
// Writes go to a temp file in the same directory followed by a rename, so a
// reader sees either the old or the new document. Read-modify-write cycles
// are serialized by mu.
type FileStore struct {
	namespace string
	path      string
	threshold int

	mu      sync.Mutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ reports.DocumentStore = (*FileStore)(nil)

// NewFileStore creates a file-backed store. The directory is created lazily on first write.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Dir == "" || cfg.Namespace == "" {
		return nil, fmt.Errorf("file store: dir and namespace are required")
	}
	name := cfg.FileName
	if name == "" {
		name = DefaultFileName(cfg.Namespace)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &FileStore{
		namespace: cfg.Namespace,
		path:      filepath.Join(cfg.Dir, name),
		threshold: cfg.CompressThreshold,
		encoder:   encoder,
		decoder:   decoder,
	}, nil
}

// Namespace implements reports.DocumentStore.
func (s *FileStore) Namespace() string { return s.namespace }

// Path returns the document file path.
func (s *FileStore) Path() string { return s.path }

// Load implements reports.DocumentStore.
func (s *FileStore) Load(ctx context.Context) reports.Document {
	return s.load(ctx)
}

// Merge implements reports.DocumentStore.
func (s *FileStore) Merge(ctx context.Context, entries reports.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	for key, raw := range entries {
		doc[key] = raw
	}
	return s.write(doc)
}

// Prune implements reports.DocumentStore.
func (s *FileStore) Prune(ctx context.Context, stale func(key string, raw json.RawMessage) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	removed := 0
	for key, raw := range doc {
		if stale(key, raw) {
			delete(doc, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.write(doc)
}

func (s *FileStore) load(ctx context.Context) reports.Document {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return reports.Document{}
	}
	if err != nil {
		logger.Warn(ctx, "cache document unreadable", "path", s.path, "error", err)
		return reports.Document{}
	}

	if bytes.HasPrefix(data, zstdMagic) {
		data, err = s.decoder.DecodeAll(data, nil)
		if err != nil {
			logger.Warn(ctx, "cache document corrupt", "path", s.path, "error", err)
			return reports.Document{}
		}
	}

	var doc reports.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn(ctx, "cache document corrupt", "path", s.path, "error", err)
		return reports.Document{}
	}
	if doc == nil {
		doc = reports.Document{}
	}
	return doc
}

func (s *FileStore) write(doc reports.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cache document: %w", err)
	}
	if s.threshold > 0 && len(data) > s.threshold {
		data = s.encoder.EncodeAll(data, make([]byte, 0, len(data)/4))
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write cache document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync cache document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close cache document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace cache document: %w", err)
	}
	return nil
}

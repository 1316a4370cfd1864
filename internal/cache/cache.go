// Package cache memoizes completion-service responses in a content-addressed
// store. Caching is an optimization, never a correctness dependency: read
// errors are treated as misses and write errors are logged and swallowed.
package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long an entry is served before it is considered stale.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the caching contract used by the analyzer and the batch engine.
type Store interface {
	// Get unmarshals the entry for key into target and reports whether a
	// fresh entry existed. Any I/O or decode problem is a miss.
	Get(ctx context.Context, key string, target any) bool
	// Put stores payload under key. Failures are swallowed.
	Put(ctx context.Context, key string, payload any)
	// PurgeExpired removes stale entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
	// ClearAll wipes the cache immediately and completely.
	ClearAll(ctx context.Context) (ClearStats, error)
	// Stats summarizes the current cache contents.
	Stats(ctx context.Context) (Stats, error)
	// Entries lists every entry with its expiration status, newest first.
	Entries(ctx context.Context) ([]EntryInfo, error)
}

// Stats summarizes cache occupancy.
type Stats struct {
	EntryCount     int   `json:"entry_count"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// ClearStats reports what a ClearAll removed.
type ClearStats struct {
	EntriesRemoved int   `json:"entries_removed"`
	BytesFreed     int64 `json:"bytes_freed"`
}

// EntryInfo describes one cache entry for introspection.
type EntryInfo struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Expired   bool      `json:"expired"`
}

// envelope is the stored representation: the payload plus the creation
// timestamp used for expiration.
type envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Response  json.RawMessage `json:"response"`
}

// FileStore persists one JSON file per entry under a directory.
type FileStore struct {
	dir    string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewFileStore creates the directory if needed. A zero ttl uses DefaultTTL.
func NewFileStore(dir string, ttl time.Duration, logger *zap.Logger) (*FileStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, ttl: ttl, logger: logger, now: time.Now}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get implements Store. Expired and corrupted files are removed on the way out.
func (s *FileStore) Get(_ context.Context, key string, target any) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Timestamp.IsZero() {
		s.logger.Warn("removing corrupted cache entry", zap.String("key", key))
		_ = os.Remove(s.path(key))
		return false
	}

	if s.now().Sub(env.Timestamp) > s.ttl {
		s.logger.Debug("cache entry expired", zap.String("key", key))
		_ = os.Remove(s.path(key))
		return false
	}

	if err := json.Unmarshal(env.Response, target); err != nil {
		s.logger.Warn("cache entry payload mismatch", zap.String("key", key), zap.Error(err))
		return false
	}

	s.logger.Debug("cache hit", zap.String("key", key))
	return true
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, key string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal cache payload", zap.String("key", key), zap.Error(err))
		return
	}

	data, err := json.MarshalIndent(envelope{Timestamp: s.now(), Response: raw}, "", "  ")
	if err != nil {
		s.logger.Error("marshal cache envelope", zap.String("key", key), zap.Error(err))
		return
	}

	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		s.logger.Error("write cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Debug("cached response", zap.String("key", key))
}

// PurgeExpired implements Store.
func (s *FileStore) PurgeExpired(_ context.Context) (int, error) {
	files, err := s.entryFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var env envelope
		stale := json.Unmarshal(data, &env) != nil || env.Timestamp.IsZero() ||
			s.now().Sub(env.Timestamp) > s.ttl
		if stale {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// ClearAll implements Store.
func (s *FileStore) ClearAll(_ context.Context) (ClearStats, error) {
	files, err := s.entryFiles()
	if err != nil {
		return ClearStats{}, err
	}

	var stats ClearStats
	for _, path := range files {
		if info, err := os.Stat(path); err == nil {
			if os.Remove(path) == nil {
				stats.EntriesRemoved++
				stats.BytesFreed += info.Size()
			}
		}
	}
	s.logger.Info("cache cleared",
		zap.Int("entries_removed", stats.EntriesRemoved),
		zap.Int64("bytes_freed", stats.BytesFreed),
	)
	return stats, nil
}

// Stats implements Store.
func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, e := range entries {
		stats.EntryCount++
		stats.TotalSizeBytes += e.SizeBytes
	}
	return stats, nil
}

// Entries implements Store.
func (s *FileStore) Entries(_ context.Context) ([]EntryInfo, error) {
	files, err := s.entryFiles()
	if err != nil {
		return nil, err
	}

	infos := make([]EntryInfo, 0, len(files))
	for _, path := range files {
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}
		info := EntryInfo{
			Key:       strings.TrimSuffix(filepath.Base(path), ".json"),
			SizeBytes: stat.Size(),
		}
		if data, err := os.ReadFile(path); err == nil {
			var env envelope
			if json.Unmarshal(data, &env) == nil {
				info.CreatedAt = env.Timestamp
				info.Expired = s.now().Sub(env.Timestamp) > s.ttl
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

func (s *FileStore) entryFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(s.dir, "*.json"))
}

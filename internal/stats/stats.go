// Package stats computes per-file size, token, word and checksum figures and
// caches them until the file's modification time or size changes. A changed
// modification time over identical content keeps the cached counts.
package stats

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/tokenizer"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	errorStatFormat  = "stat %s: %w"
	errorReadFormat  = "read %s: %w"
	errorCountFormat = "measure %s: %w"
)

// FileStats holds the derived figures of one file.
type FileStats struct {
	Size     int64
	ModTime  time.Time
	Tokens   int
	Words    int
	Checksum uint64
	// Binary is set when the content is not text; Tokens and Words are zero then.
	Binary bool
}

// Summary aggregates FileStats across several files.
type Summary struct {
	Files   int
	Size    int64
	Tokens  int
	Words   int
	Binary  int
	Newest  time.Time
	Skipped int
}

// Cache memoises FileStats by absolute path. It is safe for concurrent use.
type Cache struct {
	counter tokenizer.Counter
	logger  *zap.Logger
	mutex   sync.Mutex
	entries map[string]FileStats
}

// NewCache returns an empty cache counting tokens with counter.
func NewCache(counter tokenizer.Counter, logger *zap.Logger) *Cache {
	return &Cache{
		counter: counter,
		logger:  utils.LoggerOrNop(logger),
		entries: make(map[string]FileStats),
	}
}

// File returns the figures for the file at path, recomputing them when the
// cached entry is missing or its modification time or size no longer match.
func (cache *Cache) File(path string) (FileStats, error) {
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		cache.Invalidate(path)
		return FileStats{}, fmt.Errorf(errorStatFormat, path, statError)
	}

	cache.mutex.Lock()
	cached, found := cache.entries[path]
	cache.mutex.Unlock()
	if found && cached.Size == fileInfo.Size() && cached.ModTime.Equal(fileInfo.ModTime()) {
		cache.logger.Debug("stats cache hit", zap.String("path", path))
		return cached, nil
	}

	cache.logger.Debug("stats cache miss", zap.String("path", path), zap.Bool("stale", found))
	content, readError := os.ReadFile(path)
	if readError != nil {
		return FileStats{}, fmt.Errorf(errorReadFormat, path, readError)
	}
	return cache.Observe(path, fileInfo.Size(), fileInfo.ModTime(), content)
}

// Observe records figures for content already read from path, so callers that
// hold the bytes avoid a second read. When the cached entry has the same size
// and checksum, only a touched modification time changed and its counts are reused.
func (cache *Cache) Observe(path string, size int64, modTime time.Time, content []byte) (FileStats, error) {
	checksum := xxh3.Hash(content)
	cache.mutex.Lock()
	cached, found := cache.entries[path]
	cache.mutex.Unlock()
	if found && cached.Size == size && cached.Checksum == checksum {
		cached.ModTime = modTime
		cache.store(path, cached)
		cache.logger.Debug("stats content unchanged", zap.String("path", path))
		return cached, nil
	}

	measurement, measureError := tokenizer.Measure(cache.counter, content)
	if measureError != nil {
		return FileStats{}, fmt.Errorf(errorCountFormat, path, measureError)
	}
	fileStats := FileStats{
		Size:     size,
		ModTime:  modTime,
		Tokens:   measurement.Tokens,
		Words:    measurement.Words,
		Checksum: checksum,
		Binary:   !measurement.Text,
	}
	cache.store(path, fileStats)
	return fileStats, nil
}

func (cache *Cache) store(path string, fileStats FileStats) {
	cache.mutex.Lock()
	cache.entries[path] = fileStats
	cache.mutex.Unlock()
}

// Invalidate drops any cached figures for path.
func (cache *Cache) Invalidate(path string) {
	cache.mutex.Lock()
	delete(cache.entries, path)
	cache.mutex.Unlock()
}

// Summarize aggregates the figures for paths. Files that cannot be read are
// counted in Skipped and logged at debug level.
func (cache *Cache) Summarize(paths []string) Summary {
	var summary Summary
	for _, path := range paths {
		fileStats, fileError := cache.File(path)
		if fileError != nil {
			cache.logger.Debug("stats unavailable", zap.String("path", path), zap.Error(fileError))
			summary.Skipped++
			continue
		}
		summary.Files++
		summary.Size += fileStats.Size
		summary.Tokens += fileStats.Tokens
		summary.Words += fileStats.Words
		if fileStats.Binary {
			summary.Binary++
		}
		if fileStats.ModTime.After(summary.Newest) {
			summary.Newest = fileStats.ModTime
		}
	}
	return summary
}

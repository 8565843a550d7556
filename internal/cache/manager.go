// Package cache persists computed frames on disk so that expensive
// signal pipelines survive process restarts. Results are keyed by
// name, stored as CSV, and reused while fresh under an explicit
// policy. A failure to persist is never fatal: the computed result is
// always returned to the caller.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apierrors "fundata/internal/errors"
	"fundata/pkg/frame"
)

// Policy decides when a cached result may be reused.
type Policy struct {
	// Days is the freshness horizon in days. Zero forces recomputation
	// on every call (the result is still written back); negative means
	// no age limit.
	Days int

	// Triggers lists files the cached result must be newer than,
	// typically the dataset files a computation reads. A missing
	// trigger file also invalidates the cache.
	Triggers []string

	// Disabled skips the cache entirely: no read, no write.
	Disabled bool
}

// MaxAgeDays returns a policy that reuses results younger than n days.
// n = 0 forces recomputation.
func MaxAgeDays(n int) Policy { return Policy{Days: n} }

// NewerThan returns a policy with no age limit that reuses a result
// only while it is newer than every listed file.
func NewerThan(paths ...string) Policy { return Policy{Days: -1, Triggers: paths} }

// Off returns a policy that bypasses the cache in both directions.
func Off() Policy { return Policy{Disabled: true} }

// AndNewerThan adds trigger files to an existing policy.
func (p Policy) AndNewerThan(paths ...string) Policy {
	p.Triggers = append(append([]string(nil), p.Triggers...), paths...)
	return p
}

// Stats counts cache manager activity since construction.
type Stats struct {
	Hits          int64
	Misses        int64
	Writes        int64
	WriteFailures int64
}

// Manager is the disk cache. Construct one with NewManager and share
// it; all methods are safe for concurrent use.
type Manager struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewManager creates a cache manager rooted at dir. The directory is
// created lazily on first write. A nil logger falls back to the
// process default.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, logger: logger}
}

// Dir returns the cache directory.
func (m *Manager) Dir() string { return m.dir }

// Stats returns a snapshot of the activity counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Path returns where the given key is stored on disk.
func (m *Manager) Path(key string) string {
	return filepath.Join(m.dir, key+".csv")
}

// GetOrCompute returns the cached frame for key when the policy allows
// reuse, and otherwise runs compute and persists its result. Compute
// errors abort the call; persistence errors are logged and swallowed,
// returning the freshly computed frame.
func (m *Manager) GetOrCompute(ctx context.Context, key string, policy Policy, compute func(context.Context) (*frame.Frame, error)) (*frame.Frame, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if policy.Disabled {
		return compute(ctx)
	}

	path := m.Path(key)
	reason := m.staleness(path, policy)
	if reason == "" {
		f, err := readFrame(path)
		if err == nil {
			m.count(func(s *Stats) { s.Hits++ })
			m.logger.DebugContext(ctx, "cache hit",
				slog.String("key", key),
				slog.String("path", path))
			return f, nil
		}
		// A cache file that fails to parse is a miss, not an error:
		// recompute and overwrite it.
		reason = "unreadable"
		m.logger.WarnContext(ctx, "cache file unreadable, recomputing",
			slog.String("key", key),
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
	m.count(func(s *Stats) { s.Misses++ })
	m.logger.DebugContext(ctx, "cache miss",
		slog.String("key", key),
		slog.String("reason", reason))

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.persist(result, path); err != nil {
		m.count(func(s *Stats) { s.WriteFailures++ })
		m.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("path", path),
			slog.String("error", err.Error()))
	} else {
		m.count(func(s *Stats) { s.Writes++ })
	}
	return result, nil
}

// Invalidate removes the cached result for key. Removing a key that
// was never cached is not an error.
func (m *Manager) Invalidate(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := os.Remove(m.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return apierrors.NewStorageError(fmt.Sprintf("removing cache entry %s", key), err)
	}
	return nil
}

// staleness reports why the cached file cannot be reused, or "" when
// it is fresh under the policy.
func (m *Manager) staleness(path string, policy Policy) string {
	info, err := os.Stat(path)
	if err != nil {
		return "absent"
	}
	if policy.Days == 0 {
		return "forced"
	}
	if policy.Days > 0 {
		if time.Since(info.ModTime()) > time.Duration(policy.Days)*24*time.Hour {
			return "expired"
		}
	}
	for _, trigger := range policy.Triggers {
		tInfo, err := os.Stat(trigger)
		if err != nil || tInfo.ModTime().After(info.ModTime()) {
			return "superseded"
		}
	}
	return ""
}

// persist writes the frame to a temp file in the cache directory and
// renames it into place, so readers never observe a partial file.
func (m *Manager) persist(f *frame.Frame, path string) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(m.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := f.WriteCSV(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func readFrame(path string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return frame.ReadCSV(file)
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return apierrors.NewValidationError(fmt.Sprintf("invalid cache key %q", key), nil)
	}
	return nil
}

func (m *Manager) count(update func(*Stats)) {
	m.mu.Lock()
	update(&m.stats)
	m.mu.Unlock()
}

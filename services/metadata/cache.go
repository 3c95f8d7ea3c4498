package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// defaultCacheTTL bounds how long a metadata record is served before the
// provider is consulted again.
const defaultCacheTTL = 24 * time.Hour

// cacheRecord is the on-disk envelope: the normalized payload plus its write
// time. Validity is computed at read time from CreatedAt, never stored.
type cacheRecord struct {
	CreatedAt time.Time       `json:"createdAt"`
	Data      json.RawMessage `json:"data"`
}

// inflightFetch tracks one shared fetch. Waiters block on done; the payload
// and error are immutable once done is closed.
type inflightFetch struct {
	done    chan struct{}
	payload json.RawMessage
	err     error
}

// fileCache is a persistent TTL key→payload store with request coalescing.
// One JSON file per key under dir. If the disk becomes unusable the cache
// degrades to an in-memory filesystem for the remainder of the process.
type fileCache struct {
	dir string
	ttl time.Duration

	fsMu sync.Mutex
	fs   afero.Fs

	degradeOnce sync.Once

	inflightMu sync.Mutex
	inflight   map[string]*inflightFetch
}

func newFileCache(dir string, ttl time.Duration) *fileCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &fileCache{
		dir:      dir,
		ttl:      ttl,
		fs:       afero.NewOsFs(),
		inflight: make(map[string]*inflightFetch),
	}
}

// degrade switches the cache to memory-only storage. Called at most once per
// process; correctness is unaffected, only persistence across restarts.
func (c *fileCache) degrade(err error) {
	c.degradeOnce.Do(func() {
		log.Printf("[cache] disk unavailable, degrading to memory-only caching: %v", err)
		c.fsMu.Lock()
		c.fs = afero.NewMemMapFs()
		c.fsMu.Unlock()
	})
}

func (c *fileCache) filesystem() afero.Fs {
	c.fsMu.Lock()
	defer c.fsMu.Unlock()
	return c.fs
}

func (c *fileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// get reads the record for key into v. It returns true only when a record
// exists and is younger than the TTL at the time of the read. Expired and
// corrupt records count as absent and are removed opportunistically.
func (c *fileCache) get(key string, v any) (bool, error) {
	if key == "" {
		return false, errors.New("empty cache key")
	}
	fs := c.filesystem()
	raw, err := afero.ReadFile(fs, c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		c.degrade(err)
		return false, nil
	}
	var rec cacheRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		_ = fs.Remove(c.path(key))
		return false, nil
	}
	if time.Since(rec.CreatedAt) > c.ttl {
		_ = fs.Remove(c.path(key))
		return false, nil
	}
	if err := json.Unmarshal(rec.Data, v); err != nil {
		_ = fs.Remove(c.path(key))
		return false, nil
	}
	return true, nil
}

// set stores payload under key with createdAt = now. Writes go through a
// temp file and rename so readers never observe a partial record.
func (c *fileCache) set(key string, payload json.RawMessage) error {
	if key == "" {
		return errors.New("empty cache key")
	}
	rec := cacheRecord{CreatedAt: time.Now(), Data: payload}
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	fs := c.filesystem()
	if err := c.writeAtomic(fs, key, buf); err != nil {
		c.degrade(err)
		// Retry once against the degraded (memory) filesystem.
		return c.writeAtomic(c.filesystem(), key, buf)
	}
	return nil
}

func (c *fileCache) writeAtomic(fs afero.Fs, key string, buf []byte) error {
	if err := fs.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	path := c.path(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, buf, 0o644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return nil
}

// getOrFetch returns the cached record for key, or runs fetch to produce it.
// At most one fetch is in flight per key: concurrent callers for the same key
// wait for that fetch and share its result or error. A waiter may abandon via
// ctx without cancelling the shared fetch, which always runs to completion.
// Nothing is persisted when the fetch fails.
func (c *fileCache) getOrFetch(ctx context.Context, key string, v any, fetch func(context.Context) (json.RawMessage, error)) error {
	if ok, err := c.get(key, v); err != nil {
		return err
	} else if ok {
		return nil
	}

	c.inflightMu.Lock()
	if fl, exists := c.inflight[key]; exists {
		c.inflightMu.Unlock()
		return c.await(ctx, fl, v)
	}
	fl := &inflightFetch{done: make(chan struct{})}
	c.inflight[key] = fl
	c.inflightMu.Unlock()

	go func() {
		// Detach from the initiating caller so its cancellation cannot
		// poison the result shared with coalesced waiters.
		payload, err := fetch(context.WithoutCancel(ctx))
		if err == nil {
			if serr := c.set(key, payload); serr != nil {
				log.Printf("[cache] failed to persist %s: %v", key, serr)
			}
		}
		fl.payload, fl.err = payload, err

		c.inflightMu.Lock()
		delete(c.inflight, key)
		c.inflightMu.Unlock()
		close(fl.done)
	}()

	return c.await(ctx, fl, v)
}

func (c *fileCache) await(ctx context.Context, fl *inflightFetch, v any) error {
	select {
	case <-fl.done:
		if fl.err != nil {
			return fl.err
		}
		return json.Unmarshal(fl.payload, v)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweepExpired removes records past their TTL. Validity never depends on the
// sweep running; this only reclaims disk space.
func (c *fileCache) sweepExpired() int {
	fs := c.filesystem()
	entries, err := afero.ReadDir(fs, c.dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			continue
		}
		var rec cacheRecord
		if err := json.Unmarshal(raw, &rec); err != nil || time.Since(rec.CreatedAt) > c.ttl {
			if fs.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed
}

// clear removes every cached record. Used when provider credentials change so
// fresh data is fetched with the new keys.
func (c *fileCache) clear() error {
	fs := c.filesystem()
	entries, err := afero.ReadDir(fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".json" {
			_ = fs.Remove(filepath.Join(c.dir, entry.Name()))
		}
	}
	return nil
}

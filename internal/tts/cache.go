package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/omkarlalla-code/kiosk-project/internal/logger"
	"github.com/omkarlalla-code/kiosk-project/internal/metrics"
)

// Cache wraps a Service with a content-addressed cache keyed by the SHA-256
// of the input text, guaranteeing at-most-one concurrent synthesis per key
// (Property 2) via singleflight. When dir is non-empty, artifacts are also
// persisted to disk using the teacher's atomic temp-file-then-rename
// pattern so a restart does not cold-start every cache entry.
type Cache struct {
	upstream Service
	dir      string

	group singleflight.Group

	mu  sync.RWMutex
	mem map[string]Artifact
}

// NewCache returns a Cache fronting upstream. dir may be empty, in which
// case the cache is memory-only (suitable for tests and for deployments
// where TTSCacheEnabled is false).
func NewCache(upstream Service, dir string) (*Cache, error) {
	c := &Cache{
		upstream: upstream,
		dir:      dir,
		mem:      make(map[string]Artifact),
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tts: create cache dir: %w", err)
		}
	}
	return c, nil
}

// Name implements Service.
func (c *Cache) Name() string { return "cache(" + c.upstream.Name() + ")" }

// Synthesize returns the cached Artifact for text if present, otherwise
// synthesizes it through upstream exactly once even under concurrent
// callers requesting the same text.
func (c *Cache) Synthesize(ctx context.Context, text string) (Artifact, error) {
	key := cacheKey(text)

	if artifact, ok := c.lookup(key); ok {
		metrics.RecordTTSCacheLookup("hit")
		return artifact, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Re-check: another goroutine may have populated the cache between
		// the first lookup and this singleflight entry being scheduled.
		if artifact, ok := c.lookup(key); ok {
			return artifact, nil
		}
		artifact, err := c.upstream.Synthesize(ctx, text)
		if err != nil {
			return Artifact{}, err
		}
		c.store(key, artifact)
		return artifact, nil
	})
	if err != nil {
		metrics.RecordTTSCacheLookup("miss_error")
		return Artifact{}, err
	}
	if shared {
		logger.Debug("tts synthesis request coalesced", "key", key)
	}
	metrics.RecordTTSCacheLookup("miss")
	return v.(Artifact), nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) lookup(key string) (Artifact, bool) {
	c.mu.RLock()
	artifact, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return artifact, true
	}

	if c.dir == "" {
		return Artifact{}, false
	}
	artifact, err := c.readFromDisk(key)
	if err != nil {
		return Artifact{}, false
	}
	c.mu.Lock()
	c.mem[key] = artifact
	c.mu.Unlock()
	return artifact, true
}

func (c *Cache) store(key string, artifact Artifact) {
	c.mu.Lock()
	c.mem[key] = artifact
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := c.writeToDisk(key, artifact); err != nil {
		logger.Warn("tts cache: failed to persist artifact", "key", key, "error", err)
	}
}

type artifactMeta struct {
	ContentType string `json:"content_type"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	DurationMS  int64  `json:"duration_ms"`
	Tier        string `json:"tier"`
}

func (c *Cache) audioPath(key string) string { return filepath.Join(c.dir, key+".audio") }
func (c *Cache) metaPath(key string) string  { return filepath.Join(c.dir, key+".json") }

// writeToDisk persists an artifact using a temp-file-then-rename sequence
// so a concurrent reader never observes a partially written file, adapted
// from the teacher's local file store.
func (c *Cache) writeToDisk(key string, artifact Artifact) error {
	if err := atomicWrite(c.audioPath(key), artifact.Audio); err != nil {
		return err
	}
	meta, err := json.Marshal(artifactMeta{
		ContentType: artifact.ContentType,
		SampleRate:  artifact.SampleRate,
		Channels:    artifact.Channels,
		DurationMS:  artifact.DurationMS,
		Tier:        artifact.Tier,
	})
	if err != nil {
		return err
	}
	return atomicWrite(c.metaPath(key), meta)
}

func (c *Cache) readFromDisk(key string) (Artifact, error) {
	audio, err := os.ReadFile(c.audioPath(key))
	if err != nil {
		return Artifact{}, err
	}
	raw, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return Artifact{}, err
	}
	var meta artifactMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Audio:       audio,
		ContentType: meta.ContentType,
		SampleRate:  meta.SampleRate,
		Channels:    meta.Channels,
		DurationMS:  meta.DurationMS,
		Tier:        meta.Tier,
	}, nil
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

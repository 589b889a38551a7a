package web

import (
	"compress/gzip"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dqx0.com/go/webserve/internal/obs"
)

// Artifact is a materialized compressed copy of a resource, valid for one
// (resource, modification time) pair.
type Artifact struct {
	Path string
	Size int64
}

// ArtifactCache materializes gzip-compressed copies of byte sources under a
// cache directory. Artifacts are keyed by resource identity plus last
// modification time; a changed timestamp invalidates the entry. singleflight
// collapses concurrent requests for one key into a single compression pass.
type ArtifactCache struct {
	Dir   string
	Meter obs.Meter

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]Artifact
}

// NewArtifactCache returns a cache rooted at dir.
func NewArtifactCache(dir string, meter obs.Meter) *ArtifactCache {
	if meter == nil {
		meter = obs.NopMeter{}
	}
	return &ArtifactCache{Dir: dir, Meter: meter, entries: make(map[string]Artifact)}
}

// Compressed returns the cached artifact for (key, modTime), compressing
// through open exactly once per pair. Large sources are streamed through the
// transform, never buffered wholly in memory.
func (ac *ArtifactCache) Compressed(key string, modTime time.Time, open func() (io.ReadCloser, error)) (Artifact, error) {
	ck := cacheKey(key, modTime)

	ac.mu.Lock()
	if a, ok := ac.entries[ck]; ok {
		ac.mu.Unlock()
		return a, nil
	}
	ac.mu.Unlock()

	v, err, _ := ac.group.Do(ck, func() (any, error) {
		ac.mu.Lock()
		if a, ok := ac.entries[ck]; ok {
			ac.mu.Unlock()
			return a, nil
		}
		ac.mu.Unlock()

		a, err := ac.compress(ck, open)
		if err != nil {
			return Artifact{}, err
		}
		ac.mu.Lock()
		// Drop any artifact cached for an older timestamp of the same key.
		for k, old := range ac.entries {
			if k != ck && sameResource(k, ck) {
				_ = os.Remove(old.Path)
				delete(ac.entries, k)
			}
		}
		ac.entries[ck] = a
		ac.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return Artifact{}, err
	}
	return v.(Artifact), nil
}

func (ac *ArtifactCache) compress(ck string, open func() (io.ReadCloser, error)) (Artifact, error) {
	src, err := open()
	if err != nil {
		return Artifact{}, err
	}
	defer src.Close()

	if err := os.MkdirAll(ac.Dir, 0o755); err != nil {
		return Artifact{}, err
	}
	dst := filepath.Join(ac.Dir, ck+".gz")
	tmp, err := os.CreateTemp(ac.Dir, ck+".*.tmp")
	if err != nil {
		return Artifact{}, err
	}
	zw := gzip.NewWriter(tmp)
	if _, err := io.Copy(zw, src); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return Artifact{}, err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return Artifact{}, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return Artifact{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return Artifact{}, err
	}
	fi, err := os.Stat(dst)
	if err != nil {
		return Artifact{}, err
	}
	ac.Meter.Counter("web_compression_passes_total", 1)
	return Artifact{Path: dst, Size: fi.Size()}, nil
}

// Open returns a reader over a cached artifact.
func (a Artifact) Open() (io.ReadCloser, error) { return os.Open(a.Path) }

func cacheKey(key string, modTime time.Time) string {
	sum := sha1.Sum([]byte(key))
	return fmt.Sprintf("%s-%x", hex.EncodeToString(sum[:8]), modTime.UnixNano())
}

func sameResource(a, b string) bool {
	ia := indexDash(a)
	ib := indexDash(b)
	return ia > 0 && ib > 0 && a[:ia] == b[:ib]
}

func indexDash(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			return i
		}
	}
	return -1
}

// Package run owns the mutable state of a single crawl run: the seen-name
// set, the image-URL validation cache, and the content-hash dedup set. All of
// it dies with the run; nothing is persisted.
package run

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Context struct {
	ID        string
	Stamp     string // yyyymmddHHMM, used in directory names and hosted URLs
	StartedAt time.Time

	mu            sync.Mutex
	seenNames     map[string]struct{}
	imageVerdicts map[string]bool
	imageHashes   map[uint64]struct{}
}

func NewContext() *Context {
	now := time.Now()
	return &Context{
		ID:            uuid.NewString(),
		Stamp:         now.Format("200601021504"),
		StartedAt:     now,
		seenNames:     make(map[string]struct{}),
		imageVerdicts: make(map[string]bool),
		imageHashes:   make(map[uint64]struct{}),
	}
}

// MarkName records a product name and reports whether it was new. The key is
// lowercased and trimmed, so dedup is case-insensitive for the whole run.
func (c *Context) MarkName(normalized string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seenNames[normalized]; dup {
		return false
	}
	c.seenNames[normalized] = struct{}{}
	return true
}

// ImageVerdict returns a cached validation result for a URL, if any. The
// cache guarantees each URL is probed at most once per run even when probes
// run on the parallel worker pool.
func (c *Context) ImageVerdict(url string) (verdict, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	verdict, ok = c.imageVerdicts[url]
	return verdict, ok
}

func (c *Context) SetImageVerdict(url string, verdict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imageVerdicts[url] = verdict
}

// MarkImageHash records a content hash and reports whether it was new. Used
// to reject byte-identical images served under different URLs.
func (c *Context) MarkImageHash(h uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.imageHashes[h]; dup {
		return false
	}
	c.imageHashes[h] = struct{}{}
	return true
}

func (c *Context) SeenNameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seenNames)
}

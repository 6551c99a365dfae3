package data

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// stamp identifies one version of a file on disk
type stamp struct {
	modTime time.Time
	size    int64
}

func stampOf(info os.FileInfo) stamp {
	return stamp{modTime: info.ModTime(), size: info.Size()}
}

type cachedFile struct {
	stamp stamp
	bars  []types.OHLCV
}

// barCache holds parsed bar files keyed by path. An entry is only served
// while the file still carries the stamp it was parsed from.
type barCache struct {
	mu    sync.RWMutex
	files map[string]cachedFile
}

// newBarCache creates an empty cache
func newBarCache() *barCache {
	return &barCache{files: make(map[string]cachedFile)}
}

// Get returns a copy of the bars cached for path if they match st
func (c *barCache) Get(path string, st stamp) ([]types.OHLCV, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.files[path]
	if !ok || f.stamp != st {
		return nil, false
	}
	out := make([]types.OHLCV, len(f.bars))
	copy(out, f.bars)
	return out, true
}

// Set stores a copy of bars for path at stamp st
func (c *barCache) Set(path string, st stamp, bars []types.OHLCV) {
	cached := make([]types.OHLCV, len(bars))
	copy(cached, bars)

	c.mu.Lock()
	c.files[path] = cachedFile{stamp: st, bars: cached}
	c.mu.Unlock()
}

// Len returns the number of cached files
func (c *barCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// CachedProvider parses each bar file once and rereads it when the file
// changes on disk, so a refresh by fetch-bars reaches a running paper
// session on its next price request.
type CachedProvider struct {
	provider DataProvider
	cache    *barCache
}

// NewCachedProvider wraps provider with a stamp-checked cache
func NewCachedProvider(provider DataProvider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    newBarCache(),
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData returns the cached bars for source unless the file changed
func (p *CachedProvider) LoadData(source string) ([]types.OHLCV, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(source), err)
	}
	st := stampOf(info)
	if bars, ok := p.cache.Get(source, st); ok {
		return bars, nil
	}

	bars, err := p.provider.LoadData(source)
	if err != nil {
		log.Printf("❌ Failed to load data from %s: %v", filepath.Base(source), err)
		return nil, err
	}

	p.cache.Set(source, st, bars)
	log.Printf("✅ Loaded %s (%d bars, modified %s)", filepath.Base(source), len(bars), st.modTime.Format("2006-01-02 15:04:05"))
	return bars, nil
}

// ValidateData validates data using the underlying provider
func (p *CachedProvider) ValidateData(data []types.OHLCV) error {
	return p.provider.ValidateData(data)
}

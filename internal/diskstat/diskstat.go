// Package diskstat keeps a periodically refreshed view of free space on the
// data volume and of how much of it the photo store uses.
package diskstat

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time snapshot of disk usage.
type Stats struct {
	TotalBytes   uint64
	FreeBytes    uint64
	AppBytes     uint64 // bytes under DATA_DIR
	UploadsBytes uint64
	BackupsBytes uint64
	CapturedAt   time.Time
}

// PctFree returns the percentage of disk space that is free (0–100).
func (s Stats) PctFree() float64 {
	if s.TotalBytes == 0 {
		return 100
	}
	return float64(s.FreeBytes) / float64(s.TotalBytes) * 100
}

// Cache is a goroutine-safe cached disk stats value, refreshed periodically.
type Cache struct {
	mu       sync.RWMutex
	stats    Stats
	dataDir  string
	ttl      time.Duration
	blockPct float64
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache that reports Full once free space drops to blockPct
// percent or less. Call Start to begin polling.
func New(dataDir string, ttl time.Duration, blockPct float64) *Cache {
	return &Cache{
		dataDir:  dataDir,
		ttl:      ttl,
		blockPct: blockPct,
		stop:     make(chan struct{}),
	}
}

// Start begins background polling.
func (c *Cache) Start() {
	c.refresh()
	go func() {
		t := time.NewTicker(c.ttl)
		defer t.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-t.C:
				c.refresh()
			}
		}
	}()
}

// Stop halts background polling.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Get returns the latest cached stats.
func (c *Cache) Get() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Full reports whether uploads should be refused. An unknown volume is never
// full.
func (c *Cache) Full() bool {
	s := c.Get()
	return s.TotalBytes > 0 && s.PctFree() <= c.blockPct
}

func (c *Cache) set(s Stats) {
	c.mu.Lock()
	c.stats = s
	c.mu.Unlock()
}

func (c *Cache) refresh() {
	total, free, err := statFS(c.dataDir)
	if err != nil {
		// Not fatal; leave previous values in place
		slog.Debug("diskstat: statfs", "dir", c.dataDir, "error", err)
		return
	}
	app, uploads, backups := walkDirSizes(c.dataDir)
	s := Stats{
		TotalBytes:   total,
		FreeBytes:    free,
		AppBytes:     app,
		UploadsBytes: uploads,
		BackupsBytes: backups,
		CapturedAt:   time.Now(),
	}
	wasFull := c.Full()
	c.set(s)
	if full := c.Full(); full && !wasFull {
		slog.Warn("disk nearly full, refusing uploads",
			"free", humanize.IBytes(free), "total", humanize.IBytes(total))
	}
}

func statFS(path string) (total, free uint64, err error) {
	var stat syscall.Statfs_t
	if err = syscall.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	bsize := uint64(stat.Bsize)
	return bsize * stat.Blocks, bsize * stat.Bavail, nil
}

func walkDirSizes(dataDir string) (total, uploads, backups uint64) {
	filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		size := uint64(info.Size())
		total += size
		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return nil
		}
		switch {
		case strings.HasPrefix(rel, "uploads"+string(filepath.Separator)):
			uploads += size
		case strings.HasPrefix(rel, "backups"+string(filepath.Separator)):
			backups += size
		}
		return nil
	})
	return
}

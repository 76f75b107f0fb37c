package diskstat

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFull(t *testing.T) {
	c := New(t.TempDir(), time.Minute, 1)

	if c.Full() {
		t.Error("unknown volume reported full")
	}
	c.set(Stats{TotalBytes: 1000, FreeBytes: 10})
	if !c.Full() {
		t.Error("1% free should block at threshold 1")
	}
	c.set(Stats{TotalBytes: 1000, FreeBytes: 500})
	if c.Full() {
		t.Error("50% free reported full")
	}
}

func TestWalkSplitsUploadsAndBackups(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string, n int) {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, make([]byte, n), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("uploads/u1/a.jpg", 100)
	write("backups/u1/b.zip", 40)
	write("db/photoalbum.db", 7)

	total, uploads, backups := walkDirSizes(dir)
	if total != 147 || uploads != 100 || backups != 40 {
		t.Errorf("sizes = %d/%d/%d", total, uploads, backups)
	}
}

func TestRefreshAndStop(t *testing.T) {
	c := New(t.TempDir(), time.Hour, 0)
	c.Start()
	defer c.Stop()
	if c.Get().TotalBytes == 0 {
		t.Skip("statfs unavailable")
	}
	c.Stop()
}

// Package thumbnail maintains an on-disk WEBP thumbnail cache for product
// images.
package thumbnail

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// maxSide caps the longer side of a rendered thumbnail.
const maxSide = 300

// ErrNotFound is returned when the source image does not exist.
var ErrNotFound = errors.New("image not found")

// Cache renders and serves thumbnails for images in a source directory.
// Rendered thumbnails are keyed by the md5 of the source file name and kept
// on disk across restarts.
type Cache struct {
	srcDir   string
	cacheDir string

	mu        sync.Mutex
	rendering map[string]bool
}

// NewCache creates a thumbnail cache. The cache directory is created if
// missing.
func NewCache(srcDir, cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}

	return &Cache{
		srcDir:    srcDir,
		cacheDir:  cacheDir,
		rendering: make(map[string]bool),
	}, nil
}

// Get returns the path of the thumbnail for the named source image,
// rendering it on the spot when it is not cached yet.
func (c *Cache) Get(name string) (string, error) {
	name, err := sanitize(name)
	if err != nil {
		return "", err
	}

	thumbPath := c.thumbPath(name)
	if _, err := os.Stat(thumbPath); err == nil {
		return thumbPath, nil
	}

	if err := c.render(name, thumbPath); err != nil {
		return "", err
	}
	return thumbPath, nil
}

// Warm renders thumbnails for the given source images in the background,
// skipping names that are cached or already being rendered.
func (c *Cache) Warm(names []string) {
	for _, raw := range names {
		name, err := sanitize(raw)
		if err != nil {
			continue
		}

		thumbPath := c.thumbPath(name)
		if _, err := os.Stat(thumbPath); err == nil {
			continue
		}

		c.mu.Lock()
		if c.rendering[name] {
			c.mu.Unlock()
			continue
		}
		c.rendering[name] = true
		c.mu.Unlock()

		go func(name, thumbPath string) {
			defer func() {
				c.mu.Lock()
				delete(c.rendering, name)
				c.mu.Unlock()
			}()

			if err := c.render(name, thumbPath); err != nil {
				log.Printf("thumbnail %s: %v", name, err)
			}
		}(name, thumbPath)
	}
}

// thumbPath derives the cache file for a source name.
func (c *Cache) thumbPath(name string) string {
	sum := md5.Sum([]byte(name))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:])+".webp")
}

// render decodes the source, scales it down to maxSide, and writes the WEBP
// thumbnail atomically.
func (c *Cache) render(name, thumbPath string) error {
	src := filepath.Join(c.srcDir, name)
	img := gocv.IMRead(src, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	defer img.Close()

	size := fitWithin(img.Cols(), img.Rows(), maxSide)

	thumb := gocv.NewMat()
	defer thumb.Close()
	gocv.Resize(img, &thumb, size, 0, 0, gocv.InterpolationArea)

	buf, err := gocv.IMEncode(".webp", thumb)
	if err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	defer buf.Close()

	tmp := thumbPath + ".tmp"
	if err := os.WriteFile(tmp, buf.GetBytes(), 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return os.Rename(tmp, thumbPath)
}

// fitWithin scales (w, h) down so the longer side is at most limit,
// preserving aspect ratio. Images already small enough keep their size.
func fitWithin(w, h, limit int) image.Point {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= limit {
		return image.Pt(w, h)
	}

	scale := float64(limit) / float64(longest)
	out := image.Pt(int(float64(w)*scale), int(float64(h)*scale))
	if out.X < 1 {
		out.X = 1
	}
	if out.Y < 1 {
		out.Y = 1
	}
	return out
}

// sanitize rejects names that could escape the source directory.
func sanitize(name string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid name", ErrNotFound)
	}
	return name, nil
}

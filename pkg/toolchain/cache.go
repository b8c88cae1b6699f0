package toolchain

import (
	"context"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Cache records the hash of the assembly each artifact was built from
type Cache struct {
	path    string
	entries map[string]string
}

// OpenCache loads the cache file at path. A missing file is an empty
// cache.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]string)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read cache")
	}
	if err := yaml.Unmarshal(data, &c.entries); err != nil {
		return nil, errors.Wrap(err, "decode cache %s", path)
	}
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	return c, nil
}

// Hash fingerprints assembly text for tool
func Hash(tool string, asm []byte) string {
	h := xxhash.New()
	_, _ = h.WriteString(tool)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(asm)
	return strconv.FormatUint(h.Sum64(), 16)
}

// Fresh reports whether out exists and was built from hash
func (c *Cache) Fresh(out, hash string) bool {
	if c == nil || c.entries[out] != hash {
		return false
	}
	_, err := os.Stat(out)
	return err == nil
}

// Record notes that out was built from hash
func (c *Cache) Record(out, hash string) {
	if c != nil {
		c.entries[out] = hash
	}
}

// Save writes the cache back to its file
func (c *Cache) Save() error {
	if c == nil {
		return nil
	}
	data, err := yaml.Marshal(c.entries)
	if err != nil {
		return errors.Wrap(err, "encode cache")
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return errors.Wrap(err, "write cache")
	}
	return nil
}

// Build writes asm to src and assembles it into out, unless cache shows
// out already matches asm. It reports whether the tool ran.
func Build(ctx context.Context, a Assembler, asm []byte, src, out string, cache *Cache) (bool, error) {
	hash := Hash(a.Name(), asm)
	if cache.Fresh(out, hash) {
		tlog.SpanFromContext(ctx).Printw("artifact up to date", "out", out, "hash", hash)
		return false, nil
	}

	if err := os.WriteFile(src, asm, 0o644); err != nil {
		return false, errors.Wrap(err, "write assembly")
	}
	if err := a.Assemble(ctx, src, out); err != nil {
		return false, errors.Wrap(err, "assemble %s", src)
	}

	cache.Record(out, hash)
	if err := cache.Save(); err != nil {
		return true, err
	}
	return true, nil
}

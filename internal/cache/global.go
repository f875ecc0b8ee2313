package cache

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// GlobalCache is the third cache tier (spec.md §4.8, §6): an on-disk,
// cross-process, cross-build cache under a well-known user path, laid out
// as templates/<generator>-<version>/<name> with a sibling <name>.sha256.
type GlobalCache struct {
	baseDir string
}

// NewGlobalCache roots the cache at baseDir (a caller-supplied user-level
// path, e.g. via os.UserCacheDir()).
func NewGlobalCache(baseDir string) *GlobalCache {
	return &GlobalCache{baseDir: baseDir}
}

func (c *GlobalCache) entryDir(generator domain.GeneratorId, version string) string {
	return filepath.Join(c.baseDir, "templates", string(generator)+"-"+version)
}

func (c *GlobalCache) entryPath(generator domain.GeneratorId, version string, name domain.TemplateName) string {
	return filepath.Join(c.entryDir(generator, version), filepath.FromSlash(string(name)))
}

// Get reads a cached entry and validates it against sourceDigest, the
// digest of whatever external content the entry is keyed on (e.g. a
// library archive's own bytes, not just the template body — spec.md
// §4.8). A digest mismatch self-heals: the stale entry is purged and Get
// reports a miss rather than returning wrong content.
func (c *GlobalCache) Get(generator domain.GeneratorId, version string, name domain.TemplateName, sourceDigest string) (domain.TemplateBody, bool, error) {
	path := c.entryPath(generator, version, name)
	sidecar := path + ".sha256"

	storedDigest, err := os.ReadFile(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.TemplateBody{}, false, nil
		}
		return domain.TemplateBody{}, false, &domain.IOError{Path: sidecar, Err: err}
	}
	if string(storedDigest) != sourceDigest {
		c.purge(path)
		return domain.TemplateBody{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.purge(path)
			return domain.TemplateBody{}, false, nil
		}
		return domain.TemplateBody{}, false, &domain.IOError{Path: path, Err: err}
	}
	return domain.NewTemplateBody(data), true, nil
}

// Put writes body for (generator, version, name), tagged with
// sourceDigest, using write-temp, fsync, rename so readers never observe a
// partially written entry (spec.md §5).
func (c *GlobalCache) Put(generator domain.GeneratorId, version string, name domain.TemplateName, body domain.TemplateBody, sourceDigest string) error {
	path := c.entryPath(generator, version, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.IOError{Path: filepath.Dir(path), Err: err}
	}
	if err := atomicWrite(path, body.Bytes); err != nil {
		return err
	}
	if err := atomicWrite(path+".sha256", []byte(sourceDigest)); err != nil {
		return err
	}
	return nil
}

func (c *GlobalCache) purge(path string) {
	os.Remove(path)
	os.Remove(path + ".sha256")
}

func atomicWrite(path string, data []byte) error {
	// A fixed ".tmp" suffix collides across concurrent writers racing the
	// same miss under C9's bounded parallelism (spec.md §5) — two specs
	// sharing a dependency template both Create the same path, and one's
	// write can interleave with the other's before either renames. The
	// suffix is per-call unique so concurrent writers never share a path.
	tmp := path + "." + uuid.NewString() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &domain.IOError{Path: tmp, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &domain.IOError{Path: tmp, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &domain.IOError{Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &domain.IOError{Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &domain.IOError{Path: path, Err: err}
	}
	return nil
}


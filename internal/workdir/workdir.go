// Package workdir implements C7: materializing the per-specification
// working directory from a resolver's output, with .orig backups and
// transitive partial-dependency discovery.
package workdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"

	"github.com/opencustomize/opencustomize/internal/domain"
)

const (
	// MarkerFileName is the cache marker C8 reads/writes inside each
	// working directory.
	MarkerFileName = ".working-dir-cache"
	origDirName    = "orig"
)

var partialRefRe = regexp.MustCompile(`\{\{>\s*([A-Za-z0-9_./-]+)\s*\}\}`)

// DependencyFetcher resolves a bare partial reference to its raw body,
// used only for names not already produced by resolution (spec.md §4.7).
type DependencyFetcher func(name domain.TemplateName) (domain.TemplateBody, domain.SourceKind, error)

// Builder materializes working directories under root (normally
// "build/template-work").
type Builder struct {
	root string
}

// New builds a Builder rooted at root.
func New(root string) *Builder {
	return &Builder{root: root}
}

// Dir returns the working-directory path for one (generator, spec) pair,
// without building it.
func (b *Builder) Dir(generator domain.GeneratorId, specName string) string {
	return filepath.Join(b.root, fmt.Sprintf("%s-%s", generator, specName))
}

// Build runs C7's algorithm for one specification. manifestHash is the
// single hash C8 uses to decide whether a rebuild is needed at all. ctx is
// checked once per template in the write loop (spec.md §4.9's "per-template
// write loop" checkpoint): a cancellation mid-build stops before the next
// template is written and leaves the marker file unwritten, so no partial
// working directory is ever observed with a valid marker.
func (b *Builder) Build(
	ctx context.Context,
	generator domain.GeneratorId,
	specName string,
	resolved map[domain.TemplateName]domain.ResolvedTemplate,
	manifestHash string,
	fetchDependency DependencyFetcher,
) (string, error) {
	dir := b.Dir(generator, specName)

	if err := os.MkdirAll(b.root, 0o755); err != nil {
		return "", &domain.IOError{Path: b.root, Err: err}
	}
	lock := flock.New(dir + ".lock")
	if err := lock.Lock(); err != nil {
		return "", &domain.IOError{Path: dir + ".lock", Err: err}
	}
	defer lock.Unlock()

	markerPath := filepath.Join(dir, MarkerFileName)
	if existing, err := os.ReadFile(markerPath); err == nil && string(existing) == manifestHash {
		return dir, nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return "", &domain.IOError{Path: dir, Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.IOError{Path: dir, Err: err}
	}

	visited := map[domain.TemplateName]bool{}
	for name, rt := range resolved {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := b.writeTemplate(dir, name, rt.Body); err != nil {
			return "", err
		}
		visited[name] = true
		if rt.Modified {
			if err := b.writeOrig(dir, generator, name, rt.BaseBody); err != nil {
				return "", err
			}
		}
		if err := b.discoverDependencies(dir, generator, rt.Body, visited, fetchDependency); err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(markerPath, []byte(manifestHash), 0o644); err != nil {
		return "", &domain.IOError{Path: markerPath, Err: err}
	}
	return dir, nil
}

// DiscoverDependencyBodies walks resolved's bodies for {{> name }}
// references not already present in resolved, fetching each transitively
// via fetch. Unlike discoverDependencies it writes nothing to disk: it
// exists so a caller can fold dependency-only template content into a
// cache digest before deciding whether a rebuild can be skipped at all
// (spec.md §4.7, §4.8) — a dependency-only template is otherwise invisible
// to that decision, since it never appears in the resolver's own target
// set.
func DiscoverDependencyBodies(
	resolved map[domain.TemplateName]domain.ResolvedTemplate,
	fetch DependencyFetcher,
) (map[domain.TemplateName]domain.TemplateBody, error) {
	if fetch == nil {
		return nil, nil
	}
	visited := make(map[domain.TemplateName]bool, len(resolved))
	for name := range resolved {
		visited[name] = true
	}
	out := map[domain.TemplateName]domain.TemplateBody{}
	var walk func(body domain.TemplateBody) error
	walk = func(body domain.TemplateBody) error {
		for _, m := range partialRefRe.FindAllStringSubmatch(body.String(), -1) {
			name := domain.TemplateName(m[1])
			if visited[name] {
				continue
			}
			visited[name] = true
			depBody, _, err := fetch(name)
			if err != nil {
				return &domain.ResolutionError{Template: name}
			}
			out[name] = depBody
			if err := walk(depBody); err != nil {
				return err
			}
		}
		return nil
	}
	for _, rt := range resolved {
		if err := walk(rt.Body); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// discoverDependencies scans body for {{> name }} references and fetches
// every not-yet-visited name, recursing into what it fetches. Cycles in
// the reference graph are safe because a visited name is never re-fetched
// (spec.md §4.7).
func (b *Builder) discoverDependencies(
	dir string,
	generator domain.GeneratorId,
	body domain.TemplateBody,
	visited map[domain.TemplateName]bool,
	fetch DependencyFetcher,
) error {
	if fetch == nil {
		return nil
	}
	for _, m := range partialRefRe.FindAllStringSubmatch(body.String(), -1) {
		name := domain.TemplateName(m[1])
		if visited[name] {
			continue
		}
		visited[name] = true
		depBody, _, err := fetch(name)
		if err != nil {
			return &domain.ResolutionError{Template: name}
		}
		if err := b.writeTemplate(dir, name, depBody); err != nil {
			return err
		}
		if err := b.discoverDependencies(dir, generator, depBody, visited, fetch); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) writeTemplate(dir string, name domain.TemplateName, body domain.TemplateBody) error {
	path := filepath.Join(dir, filepath.FromSlash(string(name)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.IOError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, body.Bytes, 0o644); err != nil {
		return &domain.IOError{Path: path, Err: err}
	}
	return nil
}

func (b *Builder) writeOrig(dir string, generator domain.GeneratorId, name domain.TemplateName, base domain.TemplateBody) error {
	path := filepath.Join(dir, origDirName, string(generator), filepath.FromSlash(string(name))+".orig")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.IOError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, base.Bytes, 0o644); err != nil {
		return &domain.IOError{Path: path, Err: err}
	}
	return nil
}

// Package preparation is the top-level orchestration layer tying C2
// (inventory), C6 (resolver), C7 (working-directory builder), C8 (cache)
// and C9 (scheduler) together into the single operation spec.md §1 calls
// "preparing a specification": given an already-discovered SourceInventory
// and configuration, produce a working directory ready for the external
// code generator to run against.
package preparation

import (
	"context"
	"log/slog"
	"sort"

	"github.com/opencustomize/opencustomize/internal/cache"
	"github.com/opencustomize/opencustomize/internal/customization"
	"github.com/opencustomize/opencustomize/internal/domain"
	"github.com/opencustomize/opencustomize/internal/infrastructure/config"
	"github.com/opencustomize/opencustomize/internal/inventory"
	"github.com/opencustomize/opencustomize/internal/resolver"
	"github.com/opencustomize/opencustomize/internal/scheduler"
	"github.com/opencustomize/opencustomize/internal/workdir"
)

// Service holds the long-lived collaborators one preparation run shares
// across every specification: the resolver, the working-directory builder,
// the in-process session cache tier and the optional on-disk global tier
// (spec.md §4.8).
type Service struct {
	resolver *resolver.Resolver
	builder  *workdir.Builder
	session  *cache.SessionCache
	global   *cache.GlobalCache
}

// New builds a Service. globalCacheDir may be empty, which disables the
// third (cross-process, on-disk) cache tier; the session tier always
// applies.
func New(idGen domain.DocumentIDGenerator, catalog *customization.Catalog, workdirRoot string, globalCacheDir string) *Service {
	var global *cache.GlobalCache
	if globalCacheDir != "" {
		global = cache.NewGlobalCache(globalCacheDir)
	}
	return &Service{
		resolver: resolver.New(customization.NewEngine(catalog), idGen),
		builder:  workdir.New(workdirRoot),
		session:  cache.NewSessionCache(),
		global:   global,
	}
}

// PrepareOne runs C6 through C8 for a single specification and returns its
// working directory. generatorVersion is the detected version used both as
// a cache key component and, via evalCtx.DetectedGeneratorVersion, as the
// generatorVersion leaf's comparison value (spec.md §4.4).
func (s *Service) PrepareOne(
	ctx context.Context,
	generator domain.GeneratorId,
	generatorVersion string,
	inv *inventory.Inventory,
	cfg *config.Config,
	specName string,
	evalCtx domain.EvaluationContext,
) (string, error) {
	configured := cfg.SourceKinds()
	applicable := inv.ApplicableOrder(configured)

	// Resolve itself checks ctx at its own start (spec.md §4.9's
	// "resolver start" checkpoint).
	resolved, report, err := s.resolver.Resolve(ctx, generator, inv, configured, evalCtx)
	if err != nil {
		return "", err
	}
	if cfg.DebugTemplateResolution {
		logReport(generator, specName, report)
	}

	invDigest := inventoryDigest(inv)
	fetch := s.dependencyFetcher(ctx, generator, generatorVersion, applicable, inv, invDigest)

	// A template reachable only transitively, via some other template's
	// {{> name }}, never appears in resolved when it's generator-default-only
	// (it was never an explicit or shadowed target for C6). Discovering its
	// body here, before the manifest hash is computed, means editing that
	// dependency's content changes the hash even though C7's own discovery
	// walk hasn't run yet (spec.md §4.7, §4.8's cache-soundness requirement).
	// The session cache this warms is the same one Build's own discovery
	// will hit, so this costs no extra I/O on the subsequent Build call.
	depBodies, err := workdir.DiscoverDependencyBodies(resolved, fetch)
	if err != nil {
		return "", err
	}

	manifestHash := cache.ComputeManifestHash(cache.ManifestInputs{
		Generator:               generator,
		GeneratorVersion:        generatorVersion,
		SourceOrder:             applicable,
		InventoryDigest:         invDigest,
		ResolvedTemplateDigests: append(resolvedDigests(resolved), dependencyDigests(depBodies)...),
		TemplateVariables:       cfg.TemplateVariables,
	})

	// Resolution can be expensive (every document's conditions
	// re-evaluated); re-check before touching the working directory at all
	// so a cancellation during Resolve never triggers the directory
	// rebuild. Build itself re-checks ctx once per template in its write
	// loop (spec.md §4.9's "per-template write loop" checkpoint).
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := s.builder.Build(ctx, generator, specName, resolved, manifestHash, fetch)
	if err != nil {
		return "", err
	}
	return dir, nil
}

// PrepareAll drives PrepareOne across every spec with C9's bounded
// parallelism, honoring cfg.Parallel (spec.md §4.9, §6).
func (s *Service) PrepareAll(
	ctx context.Context,
	generator domain.GeneratorId,
	generatorVersion string,
	inv *inventory.Inventory,
	cfg *config.Config,
	specs []string,
	evalCtx domain.EvaluationContext,
) map[string]scheduler.Result {
	parallelism := 1
	if cfg.Parallel {
		parallelism = 0 // scheduler.Run treats <= 0 as runtime.GOMAXPROCS(0)
	}
	return scheduler.Run(ctx, specs, parallelism, func(ctx context.Context, spec string) (string, error) {
		return s.PrepareOne(ctx, generator, generatorVersion, inv, cfg, spec, evalCtx)
	})
}

// dependencyFetcher builds the callback C7 uses to resolve {{> name }}
// references to names the resolver didn't already produce explicitly. It
// checks the session tier, then the global tier (keyed on invDigest, a
// fingerprint of the inventory's present sources and library archive
// content digests),
// before falling back to a raw resolver lookup, writing through both
// tiers on a miss (spec.md §4.7, §4.8).
func (s *Service) dependencyFetcher(
	ctx context.Context,
	generator domain.GeneratorId,
	generatorVersion string,
	applicable []domain.SourceKind,
	inv *inventory.Inventory,
	invDigest string,
) workdir.DependencyFetcher {
	return func(name domain.TemplateName) (domain.TemplateBody, domain.SourceKind, error) {
		// Checkpoint: dependency discovery. Each transitively-discovered
		// partial goes through this callback, so this is where a
		// cancellation mid-walk is noticed without waiting for the whole
		// dependency graph to finish resolving.
		if err := ctx.Err(); err != nil {
			return domain.TemplateBody{}, 0, err
		}
		if cached, ok := s.session.Get(generator, generatorVersion, name); ok {
			return cached, 0, nil
		}
		if s.global != nil {
			if body, ok, err := s.global.Get(generator, generatorVersion, name, invDigest); err == nil && ok {
				s.session.Put(generator, generatorVersion, name, body)
				return body, 0, nil
			}
		}
		body, source, err := resolver.ResolveBaseTemplate(inv, applicable, name)
		if err != nil {
			return domain.TemplateBody{}, 0, err
		}
		s.session.Put(generator, generatorVersion, name, body)
		if s.global != nil {
			_ = s.global.Put(generator, generatorVersion, name, body, invDigest)
		}
		return body, source, nil
	}
}

// inventoryDigest fingerprints which sources are present and the actual
// content of the library archives backing them, so an archive edited
// without a version bump is still visible to both the manifest hash and
// the global cache's digest check (spec.md §4.8: "the recomputed digest of
// the content source... e.g. library JAR digest"). Library identity
// (Name@Version) deliberately does not feed this digest: it is
// self-reported by the archive's own descriptor and could be stale.
func inventoryDigest(inv *inventory.Inventory) string {
	available := inv.AvailableSources()
	libDigests := inv.LibraryDigests()
	parts := make([]string, 0, len(available)+len(libDigests))
	for _, k := range available {
		parts = append(parts, k.String())
	}
	parts = append(parts, libDigests...)
	sort.Strings(parts)

	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return cache.DigestBytes(buf)
}

func resolvedDigests(resolved map[domain.TemplateName]domain.ResolvedTemplate) []string {
	out := make([]string, 0, len(resolved))
	for name, rt := range resolved {
		out = append(out, string(name)+":"+rt.Body.Hash())
	}
	return out
}

func dependencyDigests(bodies map[domain.TemplateName]domain.TemplateBody) []string {
	out := make([]string, 0, len(bodies))
	for name, body := range bodies {
		out = append(out, string(name)+":"+body.Hash())
	}
	return out
}

func logReport(generator domain.GeneratorId, spec string, report *resolver.Report) {
	for name, entry := range report.Entries {
		attrs := domain.DiagnosticContext{Spec: spec, Generator: generator, Template: name, Component: "resolver"}.Attrs()
		attrs = append(attrs, "chosenSource", entry.ChosenSource.String())
		if len(entry.ShadowedSources) > 0 {
			shadowed := make([]string, len(entry.ShadowedSources))
			for i, s := range entry.ShadowedSources {
				shadowed[i] = s.String()
			}
			attrs = append(attrs, "shadowedSources", shadowed)
		}
		slog.Debug("resolved template", attrs...)
	}
	for _, err := range report.ExcludedDocuments {
		slog.Warn("excluded customization document", "spec", spec, "generator", string(generator), "error", err)
	}
}

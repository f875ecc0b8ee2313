package inventory

import "github.com/opencustomize/opencustomize/internal/domain"

// LibraryArchive pairs an opened archive with the metadata its descriptor
// declares, read once at discovery time. ContentDigest is the SHA-256 of
// the archive's own bytes (the caller computes it, since only the caller
// holds the archive's path/stream before handing it to an ArchiveReader);
// it is what the cache keys invalidation on, not the self-reported
// Metadata.Version, so an edited archive is never mistaken for an
// unchanged one (spec.md §4.8).
type LibraryArchive struct {
	Reader        domain.ArchiveReader
	Metadata      *domain.LibraryMetadata
	ContentDigest string
}

// Build discovers every source configured for generator and returns the
// resulting Inventory. Any of the inputs may be the zero value to mean
// "this source is not configured": a nil provider or fsys, or an empty
// userTemplateDir/userCustomizationDir.
func Build(
	generator domain.GeneratorId,
	userTemplateDir string,
	userCustomizationDir string,
	libraries []LibraryArchive,
	plugin domain.PluginResources,
	generatorDefaults domain.GeneratorDefaultsProvider,
) (*Inventory, error) {
	views := map[domain.SourceKind]domain.SourceView{}
	var metadata []*domain.LibraryMetadata
	var digests []string

	if userTemplateDir != "" {
		v, err := NewUserTemplateView(userTemplateDir, generator)
		if err != nil {
			return nil, err
		}
		if hasAny(v.ListTemplates) {
			views[domain.UserTemplate] = v
		}
	}
	if userCustomizationDir != "" {
		v, err := NewUserCustomizationView(userCustomizationDir, generator)
		if err != nil {
			return nil, err
		}
		if hasAny(v.ListCustomizations) {
			views[domain.UserCustomization] = v
		}
	}
	if len(libraries) > 0 {
		tv, err := mergeLibraryViews(domain.LibraryTemplate, libraries, generator, NewLibraryTemplateView)
		if err != nil {
			return nil, err
		}
		if tv != nil {
			views[domain.LibraryTemplate] = tv
		}
		cv, err := mergeLibraryViews(domain.LibraryCustomization, libraries, generator, NewLibraryCustomizationView)
		if err != nil {
			return nil, err
		}
		if cv != nil {
			views[domain.LibraryCustomization] = cv
		}
		for _, lib := range libraries {
			if lib.Metadata != nil {
				metadata = append(metadata, lib.Metadata)
			}
			if lib.ContentDigest != "" {
				digests = append(digests, lib.ContentDigest)
			}
		}
	}
	if plugin != nil {
		v, err := NewPluginCustomizationView(plugin, generator)
		if err != nil {
			return nil, err
		}
		if hasAny(v.ListCustomizations) {
			views[domain.PluginCustomization] = v
		}
	}
	if generatorDefaults != nil {
		views[domain.GeneratorDefault] = NewGeneratorDefaultView(generatorDefaults, generator)
	}

	return New(views, metadata, digests), nil
}

func hasAny(list func() ([]domain.TemplateName, error)) bool {
	names, err := list()
	return err == nil && len(names) > 0
}

// mergeLibraryViews folds every library archive's view for kind into one
// composite SourceView, first-library-wins on name collisions (library
// declaration order, not precedence, since libraries all share one
// SourceKind — spec.md §4.2 treats the archive list as a single ordered
// collaborator).
func mergeLibraryViews(
	kind domain.SourceKind,
	libraries []LibraryArchive,
	generator domain.GeneratorId,
	newView func(domain.ArchiveReader, domain.GeneratorId) (domain.SourceView, error),
) (domain.SourceView, error) {
	composite := &compositeView{kind: kind, byName: map[domain.TemplateName]domain.SourceView{}}
	for _, lib := range libraries {
		v, err := newView(lib.Reader, generator)
		if err != nil {
			return nil, err
		}
		var names []domain.TemplateName
		if kind.ProvidesTemplates() {
			names, err = v.ListTemplates()
		} else {
			names, err = v.ListCustomizations()
		}
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if _, exists := composite.byName[n]; !exists {
				composite.byName[n] = v
			}
		}
	}
	if len(composite.byName) == 0 {
		return nil, nil
	}
	return composite, nil
}

// compositeView dispatches each template name to whichever single-archive
// view first claimed it, presenting many archives as one logical source.
type compositeView struct {
	kind   domain.SourceKind
	byName map[domain.TemplateName]domain.SourceView
}

func (v *compositeView) Kind() domain.SourceKind { return v.kind }

func (v *compositeView) ListTemplates() ([]domain.TemplateName, error) {
	if !v.kind.ProvidesTemplates() {
		return nil, nil
	}
	return v.names(), nil
}

func (v *compositeView) ListCustomizations() ([]domain.TemplateName, error) {
	if !v.kind.ProvidesCustomizations() {
		return nil, nil
	}
	return v.names(), nil
}

func (v *compositeView) names() []domain.TemplateName {
	out := make([]domain.TemplateName, 0, len(v.byName))
	for n := range v.byName {
		out = append(out, n)
	}
	return out
}

func (v *compositeView) HasTemplate(name domain.TemplateName) (bool, error) {
	_, ok := v.byName[name]
	return ok, nil
}

func (v *compositeView) ReadTemplate(name domain.TemplateName) (domain.TemplateBody, error) {
	target, ok := v.byName[name]
	if !ok {
		return domain.TemplateBody{}, &domain.InventoryError{Source: v.kind, Path: string(name), Err: errNotFound(name)}
	}
	return target.ReadTemplate(name)
}

func (v *compositeView) ReadCustomization(name domain.TemplateName) ([]byte, error) {
	target, ok := v.byName[name]
	if !ok {
		return nil, &domain.InventoryError{Source: v.kind, Path: string(name), Err: errNotFound(name)}
	}
	return target.ReadCustomization(name)
}

var _ domain.SourceView = (*compositeView)(nil)

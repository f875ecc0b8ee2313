package inventory

import (
	"path"
	"strings"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// archiveView backs the two archive-rooted sources (LibraryTemplate,
// LibraryCustomization). It delegates List/Read to the underlying
// ArchiveReader (C1), translating between archive entry paths and
// TemplateNames.
type archiveView struct {
	kind   domain.SourceKind
	reader domain.ArchiveReader
	prefix string
	strip  string
	byName map[domain.TemplateName]string
}

// NewLibraryTemplateView indexes META-INF/openapi-templates/<generator>/**
// in reader as explicit template bodies.
func NewLibraryTemplateView(reader domain.ArchiveReader, generator domain.GeneratorId) (domain.SourceView, error) {
	return newArchiveView(domain.LibraryTemplate, reader, "META-INF/openapi-templates/"+string(generator), "")
}

// NewLibraryCustomizationView indexes
// META-INF/openapi-customizations/<generator>/*.yaml in reader.
func NewLibraryCustomizationView(reader domain.ArchiveReader, generator domain.GeneratorId) (domain.SourceView, error) {
	return newArchiveView(domain.LibraryCustomization, reader, "META-INF/openapi-customizations/"+string(generator), ".yaml")
}

func newArchiveView(kind domain.SourceKind, reader domain.ArchiveReader, prefix, strip string) (domain.SourceView, error) {
	entries, err := reader.List(prefix)
	if err != nil {
		return nil, &domain.InventoryError{Source: kind, Path: prefix, Err: err}
	}
	byName := map[domain.TemplateName]string{}
	for _, e := range entries {
		rel := strings.TrimPrefix(e, prefix+"/")
		if strip != "" {
			if !strings.HasSuffix(rel, strip) {
				continue
			}
			rel = strings.TrimSuffix(rel, strip)
		}
		byName[domain.TemplateName(rel)] = e
	}
	return &archiveView{kind: kind, reader: reader, prefix: prefix, strip: strip, byName: byName}, nil
}

func (v *archiveView) Kind() domain.SourceKind { return v.kind }

func (v *archiveView) ListTemplates() ([]domain.TemplateName, error) {
	if !v.kind.ProvidesTemplates() {
		return nil, nil
	}
	return v.names(), nil
}

func (v *archiveView) ListCustomizations() ([]domain.TemplateName, error) {
	if !v.kind.ProvidesCustomizations() {
		return nil, nil
	}
	return v.names(), nil
}

func (v *archiveView) names() []domain.TemplateName {
	out := make([]domain.TemplateName, 0, len(v.byName))
	for n := range v.byName {
		out = append(out, n)
	}
	return out
}

func (v *archiveView) HasTemplate(name domain.TemplateName) (bool, error) {
	_, ok := v.byName[name]
	return ok, nil
}

func (v *archiveView) ReadTemplate(name domain.TemplateName) (domain.TemplateBody, error) {
	entry, ok := v.byName[name]
	if !ok {
		return domain.TemplateBody{}, &domain.InventoryError{Source: v.kind, Path: path.Join(v.prefix, string(name)), Err: errNotFound(name)}
	}
	data, err := v.reader.Read(entry)
	if err != nil {
		return domain.TemplateBody{}, err
	}
	return domain.NewTemplateBody(data), nil
}

func (v *archiveView) ReadCustomization(name domain.TemplateName) ([]byte, error) {
	entry, ok := v.byName[name]
	if !ok {
		return nil, &domain.InventoryError{Source: v.kind, Path: path.Join(v.prefix, string(name)), Err: errNotFound(name)}
	}
	return v.reader.Read(entry)
}

var _ domain.SourceView = (*archiveView)(nil)

package inventory

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// fsView backs the two filesystem-rooted sources (UserTemplate,
// UserCustomization). Discovery walks the tree eagerly once at
// construction; SourceInventory is then immutable for the rest of the
// preparation.
type fsView struct {
	kind  domain.SourceKind
	root  string
	byName map[domain.TemplateName]string
	strip  string // suffix stripped from the file name to get the TemplateName (customizations only)
}

// NewUserTemplateView indexes <root>/<generator>/** as explicit template
// bodies keyed by their path relative to that directory.
func NewUserTemplateView(root string, generator domain.GeneratorId) (domain.SourceView, error) {
	return newFsView(domain.UserTemplate, root, generator, "")
}

// NewUserCustomizationView indexes <root>/<generator>/*.yaml as
// customization documents, keyed by the template name each file targets
// (its own name with the ".yaml" suffix stripped).
func NewUserCustomizationView(root string, generator domain.GeneratorId) (domain.SourceView, error) {
	return newFsView(domain.UserCustomization, root, generator, ".yaml")
}

func newFsView(kind domain.SourceKind, root string, generator domain.GeneratorId, strip string) (domain.SourceView, error) {
	base := filepath.Join(root, string(generator))
	byName := map[domain.TemplateName]string{}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == base {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strip != "" {
			if !strings.HasSuffix(rel, strip) {
				return nil
			}
			rel = strings.TrimSuffix(rel, strip)
		}
		byName[domain.TemplateName(rel)] = path
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, &domain.InventoryError{Source: kind, Path: base, Err: err}
	}
	return &fsView{kind: kind, root: base, byName: byName}, nil
}

func (v *fsView) Kind() domain.SourceKind { return v.kind }

func (v *fsView) ListTemplates() ([]domain.TemplateName, error) {
	if !v.kind.ProvidesTemplates() {
		return nil, nil
	}
	return v.names(), nil
}

func (v *fsView) ListCustomizations() ([]domain.TemplateName, error) {
	if !v.kind.ProvidesCustomizations() {
		return nil, nil
	}
	return v.names(), nil
}

func (v *fsView) names() []domain.TemplateName {
	out := make([]domain.TemplateName, 0, len(v.byName))
	for n := range v.byName {
		out = append(out, n)
	}
	return out
}

func (v *fsView) HasTemplate(name domain.TemplateName) (bool, error) {
	_, ok := v.byName[name]
	return ok, nil
}

func (v *fsView) ReadTemplate(name domain.TemplateName) (domain.TemplateBody, error) {
	path, ok := v.byName[name]
	if !ok {
		return domain.TemplateBody{}, &domain.InventoryError{Source: v.kind, Path: string(name), Err: errNotFound(name)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.TemplateBody{}, &domain.InventoryError{Source: v.kind, Path: path, Err: err}
	}
	return domain.NewTemplateBody(data), nil
}

func (v *fsView) ReadCustomization(name domain.TemplateName) ([]byte, error) {
	path, ok := v.byName[name]
	if !ok {
		return nil, &domain.InventoryError{Source: v.kind, Path: string(name), Err: errNotFound(name)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.InventoryError{Source: v.kind, Path: path, Err: err}
	}
	return data, nil
}

var _ domain.SourceView = (*fsView)(nil)

type notFoundError domain.TemplateName

func (e notFoundError) Error() string { return "not found: " + string(e) }

func errNotFound(name domain.TemplateName) error { return notFoundError(name) }

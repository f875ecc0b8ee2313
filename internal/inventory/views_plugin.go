package inventory

import (
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// pluginView backs PluginCustomization, a build-tool plugin's own bundled
// resource tree (spec.md §6). Only customizations are supported here: a
// plugin never supplies an explicit base template.
type pluginView struct {
	fsys   domain.PluginResources
	root   string
	byName map[domain.TemplateName]string
}

// NewPluginCustomizationView indexes
// templateCustomizations/<generator>/*.yaml within fsys.
func NewPluginCustomizationView(fsys domain.PluginResources, generator domain.GeneratorId) (domain.SourceView, error) {
	root := path.Join("templateCustomizations", string(generator))
	byName := map[domain.TemplateName]string{}
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if isPathMissing(err) && p == root {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(p, root+"/")
		if !strings.HasSuffix(rel, ".yaml") {
			return nil
		}
		byName[domain.TemplateName(strings.TrimSuffix(rel, ".yaml"))] = p
		return nil
	})
	if err != nil && !isPathMissing(err) {
		return nil, &domain.InventoryError{Source: domain.PluginCustomization, Path: root, Err: err}
	}
	return &pluginView{fsys: fsys, root: root, byName: byName}, nil
}

func isPathMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func (v *pluginView) Kind() domain.SourceKind { return domain.PluginCustomization }

func (v *pluginView) ListTemplates() ([]domain.TemplateName, error) { return nil, nil }

func (v *pluginView) ListCustomizations() ([]domain.TemplateName, error) {
	out := make([]domain.TemplateName, 0, len(v.byName))
	for n := range v.byName {
		out = append(out, n)
	}
	return out, nil
}

func (v *pluginView) HasTemplate(domain.TemplateName) (bool, error) { return false, nil }

func (v *pluginView) ReadTemplate(name domain.TemplateName) (domain.TemplateBody, error) {
	return domain.TemplateBody{}, &domain.InventoryError{Source: domain.PluginCustomization, Path: string(name), Err: errNotFound(name)}
}

func (v *pluginView) ReadCustomization(name domain.TemplateName) ([]byte, error) {
	p, ok := v.byName[name]
	if !ok {
		return nil, &domain.InventoryError{Source: domain.PluginCustomization, Path: string(name), Err: errNotFound(name)}
	}
	data, err := fs.ReadFile(v.fsys, p)
	if err != nil {
		return nil, &domain.InventoryError{Source: domain.PluginCustomization, Path: p, Err: err}
	}
	return data, nil
}

var _ domain.SourceView = (*pluginView)(nil)

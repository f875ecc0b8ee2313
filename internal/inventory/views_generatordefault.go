package inventory

import "github.com/opencustomize/opencustomize/internal/domain"

// generatorDefaultView wraps the external code generator's own bundled
// templates. It is deliberately lazy (spec.md §4.2): the upstream set may
// be large or opaque, so membership is only ever checked by name, never
// enumerated.
type generatorDefaultView struct {
	provider  domain.GeneratorDefaultsProvider
	generator domain.GeneratorId
}

// NewGeneratorDefaultView wraps provider for generator.
func NewGeneratorDefaultView(provider domain.GeneratorDefaultsProvider, generator domain.GeneratorId) domain.SourceView {
	return &generatorDefaultView{provider: provider, generator: generator}
}

func (v *generatorDefaultView) Kind() domain.SourceKind { return domain.GeneratorDefault }

func (v *generatorDefaultView) ListTemplates() ([]domain.TemplateName, error) {
	return nil, domain.ErrNotEnumerable
}

func (v *generatorDefaultView) ListCustomizations() ([]domain.TemplateName, error) {
	return nil, nil
}

func (v *generatorDefaultView) HasTemplate(name domain.TemplateName) (bool, error) {
	return v.provider.Has(v.generator, name)
}

func (v *generatorDefaultView) ReadTemplate(name domain.TemplateName) (domain.TemplateBody, error) {
	data, err := v.provider.Read(v.generator, name)
	if err != nil {
		return domain.TemplateBody{}, &domain.InventoryError{Source: domain.GeneratorDefault, Path: string(name), Err: err}
	}
	return domain.NewTemplateBody(data), nil
}

func (v *generatorDefaultView) ReadCustomization(name domain.TemplateName) ([]byte, error) {
	return nil, &domain.InventoryError{
		Source: domain.GeneratorDefault,
		Path:   string(name),
		Err:    errNotFound(name),
	}
}

var _ domain.SourceView = (*generatorDefaultView)(nil)

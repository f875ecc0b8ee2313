package adapters

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// DirGeneratorDefaults implements domain.GeneratorDefaultsProvider by
// reading files from a local directory laid out as <root>/<generator>/<name>.
// It exists only for the ambient `prepare` CLI harness (SPEC_FULL.md §A.4):
// a real plugin host backs this port with the external code generator's own
// bundled template set, which this module never embeds.
type DirGeneratorDefaults struct {
	root string
}

// NewDirGeneratorDefaults roots the provider at root.
func NewDirGeneratorDefaults(root string) *DirGeneratorDefaults {
	return &DirGeneratorDefaults{root: root}
}

func (d *DirGeneratorDefaults) path(generator domain.GeneratorId, name domain.TemplateName) string {
	return filepath.Join(d.root, string(generator), filepath.FromSlash(string(name)))
}

// Has reports whether name exists under the generator's default directory.
func (d *DirGeneratorDefaults) Has(generator domain.GeneratorId, name domain.TemplateName) (bool, error) {
	_, err := os.Stat(d.path(generator, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Read returns name's bytes.
func (d *DirGeneratorDefaults) Read(generator domain.GeneratorId, name domain.TemplateName) ([]byte, error) {
	return os.ReadFile(d.path(generator, name))
}

var _ domain.GeneratorDefaultsProvider = (*DirGeneratorDefaults)(nil)

// Package prepare wires cobra's "prepare" subcommand to internal/preparation,
// the thin CLI harness SPEC_FULL.md §A.4 calls for: enough of a command line
// to discover an inventory, run the compatibility preflight, and resolve one
// or more specifications against it. The real plugin-host integration (an
// OpenAPI Generator / Gradle / Maven plugin driving this as a library) is
// out of scope, per spec.md §1.
package prepare

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencustomize/opencustomize/cmd"
	"github.com/opencustomize/opencustomize/internal/archivereader"
	"github.com/opencustomize/opencustomize/internal/cache"
	"github.com/opencustomize/opencustomize/internal/domain"
	"github.com/opencustomize/opencustomize/internal/infrastructure/adapters"
	"github.com/opencustomize/opencustomize/internal/infrastructure/config"
	"github.com/opencustomize/opencustomize/internal/inventory"
	"github.com/opencustomize/opencustomize/internal/preparation"
)

var (
	configPath               string
	specs                    []string
	libraryPaths             []string
	pluginDir                string
	generatorDefaultsDir     string
	workdirRoot              string
	globalCacheDir           string
	detectedGeneratorVersion string
	detectedPluginVersion    string
	features                 []string
	projectProperties        []string
	buildType                string
)

func init() {
	prepareCmd := &cobra.Command{
		Use:   "prepare",
		Short: "Resolve templates and customizations for one or more OpenAPI specifications",
		Long: `prepare discovers the configured source inventory, runs the library
compatibility preflight, resolves every template against the applicable
customization stack, and materializes a working directory per specification.`,
		RunE: runPrepare,
	}

	prepareCmd.Flags().StringVar(&configPath, "config", config.GetConfigPath(), "path to opencustomize.yaml")
	prepareCmd.Flags().StringSliceVar(&specs, "spec", nil, "specification name to prepare (repeatable)")
	prepareCmd.Flags().StringSliceVar(&libraryPaths, "library", nil, "path to a library archive, JAR or zip (repeatable)")
	prepareCmd.Flags().StringVar(&pluginDir, "plugin-dir", "", "directory of bundled plugin customizations")
	prepareCmd.Flags().StringVar(&generatorDefaultsDir, "generator-defaults-dir", "", "directory standing in for the external generator's bundled templates")
	prepareCmd.Flags().StringVar(&workdirRoot, "workdir", "build/template-work", "root directory for materialized working directories")
	prepareCmd.Flags().StringVar(&globalCacheDir, "cache-dir", "", "root directory for the cross-process template cache (empty disables it)")
	prepareCmd.Flags().StringVar(&detectedGeneratorVersion, "generator-version", "", "detected OpenAPI generator version")
	prepareCmd.Flags().StringVar(&detectedPluginVersion, "plugin-version", "", "detected plugin version")
	prepareCmd.Flags().StringSliceVar(&features, "feature", nil, "enabled feature name (repeatable)")
	prepareCmd.Flags().StringSliceVar(&projectProperties, "project-property", nil, "key=value project property (repeatable)")
	prepareCmd.Flags().StringVar(&buildType, "build-type", "", "build type, e.g. gradle or maven")

	cmd.RootCmd.AddCommand(prepareCmd)
}

func runPrepare(c *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return &domain.ConfigurationError{Key: "spec", Reason: "at least one --spec is required"}
	}
	if detectedGeneratorVersion == "" {
		detectedGeneratorVersion = cfg.GeneratorVersion
	}

	generator := domain.GeneratorId(cfg.GeneratorName)

	libraries, closeLibraries, err := openLibraries(libraryPaths)
	if err != nil {
		return err
	}
	defer closeLibraries()

	var plugin domain.PluginResources
	if pluginDir != "" {
		plugin = os.DirFS(pluginDir)
	}

	var defaults domain.GeneratorDefaultsProvider
	if generatorDefaultsDir != "" {
		defaults = adapters.NewDirGeneratorDefaults(generatorDefaultsDir)
	}

	inv, err := inventory.Build(generator, cfg.UserTemplateDir, cfg.UserTemplateCustomizationsDir, libraries, plugin, defaults)
	if err != nil {
		return err
	}

	if err := preparation.CheckLibraryCompatibility(inv.AllMetadata(), generator, detectedGeneratorVersion, detectedPluginVersion); err != nil {
		return err
	}

	evalCtx := domain.EvaluationContext{
		DetectedGeneratorVersion: detectedGeneratorVersion,
		Features:                 parseFeatures(features),
		ProjectProperties:        parseKeyValues(projectProperties),
		Environment:              parseKeyValues(os.Environ()),
		BuildType:                buildType,
	}

	svc := preparation.New(adapters.NewGoogleUUIDGenerator(), nil, workdirRoot, globalCacheDir)
	results := svc.PrepareAll(context.Background(), generator, detectedGeneratorVersion, inv, cfg, specs, evalCtx)

	var failed []string
	for _, spec := range specs {
		res := results[spec]
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", spec, res.Err)
			failed = append(failed, spec)
			continue
		}
		fmt.Printf("%s: %s\n", spec, res.WorkingDirectory)
	}
	if len(failed) > 0 {
		return fmt.Errorf("preparation failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

func openLibraries(paths []string) ([]inventory.LibraryArchive, func(), error) {
	libraries := make([]inventory.LibraryArchive, 0, len(paths))
	readers := make([]*archivereader.ZipArchiveReader, 0, len(paths))
	closeAll := func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			closeAll()
			return nil, func() {}, &domain.InventoryError{Path: p, Err: err, Fatal: true}
		}
		r, err := archivereader.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		readers = append(readers, r)
		meta, err := r.ReadMetadata()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		libraries = append(libraries, inventory.LibraryArchive{
			Reader:        r,
			Metadata:      meta,
			ContentDigest: cache.DigestBytes(raw),
		})
	}
	return libraries, closeAll, nil
}

func parseFeatures(raw []string) map[string]bool {
	out := make(map[string]bool, len(raw))
	for _, f := range raw {
		out[f] = true
	}
	return out
}

func parseKeyValues(raw []string) map[string]string {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

// Package config provides the configuration loader for stale.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds stale.yaml in cwd or the nearest parent directory and returns the
// manifest it describes, with every path made absolute.
func (l *Loader) Load(cwd string) (*domain.Manifest, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var stalefile Stalefile
	if err := readAndUnmarshalYAML(configPath, &stalefile); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	return l.buildManifest(configPath, &stalefile)
}

func findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", domain.ErrConfigNotFound
}

func (l *Loader) buildManifest(configPath string, stalefile *Stalefile) (*domain.Manifest, error) {
	root := resolveRoot(configPath, stalefile.Root)

	syntax, err := resolveSyntax(stalefile.Syntax)
	if err != nil {
		return nil, err
	}

	workers := stalefile.Workers
	if workers < 0 {
		l.Logger.Warn(fmt.Sprintf("'workers' in %s is negative, using one worker per CPU", domain.ConfigFileName))
		workers = 0
	}

	manifest := &domain.Manifest{
		Root:    root,
		Workers: workers,
		Options: domain.Options{
			Syntax:     syntax,
			Extensions: l.normalizeExtensions(stalefile.Extensions),
			LoadPaths:  resolvePaths(root, stalefile.LoadPaths),
		},
	}

	if stalefile.Cache != "" {
		manifest.CacheFile = resolvePath(root, stalefile.Cache)
	}

	for i, dto := range stalefile.Targets {
		if dto.Template == "" || dto.Output == "" {
			return nil, zerr.With(domain.ErrInvalidTarget, "target", i)
		}
		manifest.Targets = append(manifest.Targets, domain.Target{
			Template: resolvePath(root, dto.Template),
			Output:   resolvePath(root, dto.Output),
		})
	}

	for i, dto := range stalefile.Locations {
		if dto.Source == "" || dto.Output == "" {
			return nil, zerr.With(domain.ErrInvalidTarget, "location", i)
		}
		manifest.Locations = append(manifest.Locations, domain.Location{
			Source: resolvePath(root, dto.Source),
			Output: resolvePath(root, dto.Output),
		})
	}

	return manifest, nil
}

func resolveSyntax(syntax string) (string, error) {
	switch syntax {
	case "":
		return domain.SyntaxSCSS, nil
	case domain.SyntaxSCSS, domain.SyntaxIndented:
		return syntax, nil
	default:
		return "", zerr.With(domain.ErrInvalidSyntax, "syntax", syntax)
	}
}

// normalizeExtensions ensures every extension carries its leading dot.
func (l *Loader) normalizeExtensions(extensions []string) []string {
	if len(extensions) == 0 {
		return []string{domain.DefaultExtension}
	}

	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			l.Logger.Warn(fmt.Sprintf("extension %q in %s has no leading dot, using %q", ext, domain.ConfigFileName, "."+ext))
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	return resolvePath(configDir, configuredRoot)
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(root, path))
}

func resolvePaths(root string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	res := make([]string, len(paths))
	for i, p := range paths {
		res[i] = resolvePath(root, p)
	}
	return res
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}

package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Default discovery patterns, matched against slash separated paths
// relative to the rules directory.
var (
	DefaultInclude = []string{"**/*.yml", "**/*.yaml"}
	DefaultExclude = []string{"**/ignore_*/**"}
)

// Loader discovers rule files below a directory and parses them.
type Loader struct {
	root    string
	include []string
	exclude []string
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithInclude replaces the patterns a rule file must match.
func WithInclude(patterns ...string) LoaderOption {
	return func(l *Loader) {
		if len(patterns) > 0 {
			l.include = patterns
		}
	}
}

// WithExclude replaces the patterns that disable rule files.
func WithExclude(patterns ...string) LoaderOption {
	return func(l *Loader) {
		l.exclude = patterns
	}
}

// WithLoaderLogger sets the logger used for discovery messages.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for the rules below root.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:    root,
		include: DefaultInclude,
		exclude: DefaultExclude,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadResult holds the rules that loaded and the per-file problems found.
type LoadResult struct {
	// Rules are sorted by name.
	Rules []*Definition
	// Errors holds *LoadError and *DuplicateRuleError values.
	Errors []error
}

// Err joins all load errors, or returns nil.
func (r *LoadResult) Err() error {
	return errors.Join(r.Errors...)
}

// Load walks the rules directory. Invalid rule files are reported in the
// result and do not stop the walk; the returned error is non-nil only when
// the directory itself cannot be read.
func (l *Loader) Load() (*LoadResult, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to access rules directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rules path is not a directory: %s", l.root)
	}

	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == l.root {
				return walkErr
			}
			result.Errors = append(result.Errors, &LoadError{Path: path, Err: walkErr})
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		if !l.matches(filepath.ToSlash(rel)) {
			return nil
		}

		def, err := l.loadFile(v, path)
		if err != nil {
			l.logger.Debug("skipping invalid rule", slog.String("path", path), slog.Any("error", err))
			result.Errors = append(result.Errors, err)
			return nil
		}
		result.Rules = append(result.Rules, def)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan rules directory: %w", err)
	}

	result.Rules, result.Errors = dedupe(result.Rules, result.Errors)
	l.logger.Debug("loaded rules", slog.String("root", l.root),
		slog.Int("rules", len(result.Rules)), slog.Int("errors", len(result.Errors)))
	return result, nil
}

func (l *Loader) matches(rel string) bool {
	for _, pattern := range l.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	for _, pattern := range l.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (l *Loader) loadFile(v *validator, path string) (*Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from walking the rules directory
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	def, err := decodeDefinition(v, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	def.Path = path
	if dir := filepath.Dir(path); filepath.Clean(dir) != filepath.Clean(l.root) {
		def.Category = filepath.Base(dir)
	}
	return def, nil
}

// ParseDefinition decodes and validates a single rule document. path is
// recorded on the definition and used in errors.
func ParseDefinition(path string, data []byte) (*Definition, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	def, err := decodeDefinition(v, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	def.Path = path
	return def, nil
}

func decodeDefinition(v *validator, data []byte) (*Definition, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc == nil {
		return nil, errors.New("empty rule document")
	}
	if err := v.validate(doc); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decoding rule: %w", err)
	}
	if def.Args == nil {
		def.Args = map[string]any{}
	}
	return &def, nil
}

// dedupe sorts rules by name and path and drops every rule whose name was
// already seen.
func dedupe(rules []*Definition, errs []error) ([]*Definition, []error) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Name != rules[j].Name {
			return rules[i].Name < rules[j].Name
		}
		return rules[i].Path < rules[j].Path
	})

	out := rules[:0]
	first := make(map[string]string, len(rules))
	for _, r := range rules {
		if path, dup := first[r.Name]; dup {
			errs = append(errs, &DuplicateRuleError{Name: r.Name, Path: r.Path, FirstPath: path})
			continue
		}
		first[r.Name] = r.Path
		out = append(out, r)
	}
	return out, errs
}

package aggregation

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AbandonmentScope decides how long after a cart a purchase still "rescues" it.
type AbandonmentScope string

const (
	// ScopeSession: any purchase of the product at or after the cart, in the same session.
	ScopeSession AbandonmentScope = "session"
	// ScopeWindow: as ScopeSession, but the purchase must also fall within AbandonmentWindow.
	ScopeWindow AbandonmentScope = "window"
)

// DefaultMaxRows caps leaderboard views when no definition overrides it.
const DefaultMaxRows = 1000

// ViewDefinition tunes how one view is computed.
// Definitions are loaded at startup from YAML files and fingerprinted; the
// fingerprint is stamped on every snapshot built from the definition.
type ViewDefinition struct {
	View              ViewName
	Timeout           time.Duration // 0 = refresh.timeout from config
	MaxRows           int           // 0 = unlimited
	MinViews          int64
	AbandonmentScope  AbandonmentScope
	AbandonmentWindow time.Duration
	Lookback          time.Duration // 0 = whole event log
	Fingerprint       string
}

// DefaultDefinition returns the built-in definition for a view.
func DefaultDefinition(view ViewName) ViewDefinition {
	def := ViewDefinition{
		View:             view,
		MinViews:         1,
		AbandonmentScope: ScopeSession,
		Fingerprint:      "default",
	}
	if view == ViewTopConverting || view == ViewAbandonedCarts {
		def.MaxRows = DefaultMaxRows
	}
	return def
}

// rawDefinition is the on-disk YAML shape.
type rawDefinition struct {
	View              string `yaml:"view"`
	Timeout           string `yaml:"timeout"`
	MaxRows           *int   `yaml:"max_rows"`
	MinViews          *int64 `yaml:"min_views"`
	AbandonmentScope  string `yaml:"abandonment_scope"`
	AbandonmentWindow string `yaml:"abandonment_window"`
	Lookback          string `yaml:"lookback"`
}

// DefinitionRepository resolves the definition each view is computed with.
type DefinitionRepository interface {
	// Get returns the definition for view, falling back to DefaultDefinition.
	Get(view ViewName) ViewDefinition

	// List returns the effective definition of every view, in AllViews order.
	List() []ViewDefinition
}

// FileSystemDefinitionRepository loads view definitions from *.yaml files in a directory.
// Each file holds exactly one definition. Loaded once at startup, no hot reload.
type FileSystemDefinitionRepository struct {
	dir         string
	definitions map[ViewName]ViewDefinition
}

// NewFileSystemDefinitionRepository eagerly loads every definition in dir.
// A missing directory is valid and yields the defaults.
func NewFileSystemDefinitionRepository(dir string) (*FileSystemDefinitionRepository, error) {
	repo := &FileSystemDefinitionRepository{
		dir:         dir,
		definitions: make(map[ViewName]ViewDefinition),
	}
	if dir == "" {
		return repo, nil
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemDefinitionRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("view definition dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("view definition path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading view definition dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading definition file %s: %w", path, err)
		}

		var raw rawDefinition
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing definition file %s: %w", path, err)
		}
		if raw.View == "" {
			continue // comment-only file
		}

		def, err := raw.toDefinition()
		if err != nil {
			return fmt.Errorf("definition file %s: %w", path, err)
		}
		def.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))

		if _, exists := r.definitions[def.View]; exists {
			return fmt.Errorf("view %q: duplicate definition (check multiple YAML files)", def.View)
		}
		r.definitions[def.View] = def
	}
	return nil
}

func (raw rawDefinition) toDefinition() (ViewDefinition, error) {
	view := ViewName(raw.View)
	if !view.Valid() {
		return ViewDefinition{}, fmt.Errorf("unknown view %q", raw.View)
	}
	def := DefaultDefinition(view)

	if raw.Timeout != "" {
		w, err := ParseWindowSize(raw.Timeout)
		if err != nil {
			return ViewDefinition{}, fmt.Errorf("view %q: timeout: %w", view, err)
		}
		def.Timeout = w.Size
	}
	if raw.MaxRows != nil {
		if *raw.MaxRows < 0 {
			return ViewDefinition{}, fmt.Errorf("view %q: max_rows must not be negative", view)
		}
		def.MaxRows = *raw.MaxRows
	}
	if raw.MinViews != nil {
		if *raw.MinViews < 1 {
			return ViewDefinition{}, fmt.Errorf("view %q: min_views must be at least 1", view)
		}
		def.MinViews = *raw.MinViews
	}

	switch AbandonmentScope(raw.AbandonmentScope) {
	case "", ScopeSession:
		def.AbandonmentScope = ScopeSession
	case ScopeWindow:
		def.AbandonmentScope = ScopeWindow
		if raw.AbandonmentWindow == "" {
			return ViewDefinition{}, fmt.Errorf("view %q: abandonment_window is required with scope window", view)
		}
	default:
		return ViewDefinition{}, fmt.Errorf("view %q: unsupported abandonment_scope %q", view, raw.AbandonmentScope)
	}
	if raw.AbandonmentWindow != "" {
		w, err := ParseWindowSize(raw.AbandonmentWindow)
		if err != nil {
			return ViewDefinition{}, fmt.Errorf("view %q: abandonment_window: %w", view, err)
		}
		def.AbandonmentWindow = w.Size
	}

	if raw.Lookback != "" {
		w, err := ParseWindowSize(raw.Lookback)
		if err != nil {
			return ViewDefinition{}, fmt.Errorf("view %q: lookback: %w", view, err)
		}
		def.Lookback = w.Size
	}
	return def, nil
}

// Get implements DefinitionRepository.
func (r *FileSystemDefinitionRepository) Get(view ViewName) ViewDefinition {
	if def, ok := r.definitions[view]; ok {
		return def
	}
	return DefaultDefinition(view)
}

// List implements DefinitionRepository.
func (r *FileSystemDefinitionRepository) List() []ViewDefinition {
	out := make([]ViewDefinition, 0, len(AllViews))
	for _, v := range AllViews {
		out = append(out, r.Get(v))
	}
	return out
}

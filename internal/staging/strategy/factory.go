package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/objectstore"
	"github.com/rescale/rescale-staging/internal/staging"
)

type mapping struct {
	file  staging.StrategyKind
	table staging.StrategyKind
}

// dispatch maps every staging type to its strategies. Warehouse backends
// without a table strategy are listed explicitly.
var dispatch = map[staging.Type]mapping{
	staging.Local:              {KindLocalFile, KindLocalTable},
	staging.S3:                 {KindLocalFile, KindS3Table},
	staging.Abs:                {KindLocalFile, KindABSTable},
	staging.WorkspaceSnowflake: {KindLocalFile, KindSnowflakeTable},
	staging.WorkspaceBigquery:  {KindLocalFile, KindBigQueryTable},
	staging.WorkspaceRedshift:  {KindLocalFile, staging.NoStrategy},
	staging.WorkspaceSynapse:   {KindLocalFile, staging.NoStrategy},
	staging.WorkspaceExasol:    {KindLocalFile, staging.NoStrategy},
	staging.WorkspaceTeradata:  {KindLocalFile, staging.NoStrategy},
	staging.None:               {staging.NoStrategy, staging.NoStrategy},
}

type tableBuilder func(f *Factory, def staging.Definition, destination string, states []TableState) (TableStrategy, error)

var tableBuilders = map[staging.StrategyKind]tableBuilder{
	KindLocalTable:     buildLocalTable,
	KindS3Table:        buildObjectTable,
	KindABSTable:       buildObjectTable,
	KindSnowflakeTable: buildWorkspaceTable,
	KindBigQueryTable:  buildWorkspaceTable,
}

// validateDispatch checks that every staging type has a mapping and every
// mapped table kind has a builder.
func validateDispatch(types []staging.Type, table map[staging.Type]mapping, builders map[staging.StrategyKind]tableBuilder) error {
	var errs []error
	for _, t := range types {
		m, ok := table[t]
		if !ok {
			errs = append(errs, fmt.Errorf("staging type %q has no strategy mapping", t))
			continue
		}
		if m.file != staging.NoStrategy && m.file != KindLocalFile {
			errs = append(errs, fmt.Errorf("staging type %q maps to unknown file strategy %q", t, m.file))
		}
		if m.table != staging.NoStrategy && builders[m.table] == nil {
			errs = append(errs, fmt.Errorf("staging type %q maps to unknown table strategy %q", t, m.table))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", staging.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Options configures a Factory.
type Options struct {
	// Type is the staging type the run reads its input from.
	Type   staging.Type
	Logger *logging.Logger
	// Format is the manifest format, json or yaml.
	Format string
	// ObjectStores holds the storage clients of the s3 and abs types.
	ObjectStores map[staging.Type]objectstore.Store
}

// Factory is the per-run registry of staging definitions. Providers are bound
// into it while the run is set up; strategies are then built for the active
// staging type. A Factory is not safe for concurrent use.
type Factory struct {
	stagingType staging.Type
	format      string
	stores      map[staging.Type]objectstore.Store
	logger      *logging.Logger

	order     []staging.Type
	builders  map[staging.Type]*staging.DefinitionBuilder
	providers []staging.Provider
	cleaned   bool
}

// NewFactory creates a factory with one empty definition per staging type
// other than none.
func NewFactory(opts Options) (*Factory, error) {
	if err := validateDispatch(staging.AllTypes(), dispatch, tableBuilders); err != nil {
		return nil, err
	}

	stagingType, err := staging.ParseType(string(opts.Type))
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	f := &Factory{
		stagingType: stagingType,
		format:      format,
		stores:      opts.ObjectStores,
		logger:      logger.WithComponent("staging"),
		builders:    make(map[staging.Type]*staging.DefinitionBuilder),
	}
	for _, t := range staging.AllTypes() {
		if t == staging.None {
			continue
		}
		m := dispatch[t]
		f.order = append(f.order, t)
		f.builders[t] = staging.NewDefinitionBuilder(t, m.file, m.table)
	}
	return f, nil
}

// Type returns the active staging type.
func (f *Factory) Type() staging.Type {
	return f.stagingType
}

// Types returns the registered staging types in declaration order.
func (f *Factory) Types() []staging.Type {
	out := make([]staging.Type, len(f.order))
	copy(out, f.order)
	return out
}

// StrategyMap returns a snapshot of every definition.
func (f *Factory) StrategyMap() map[staging.Type]staging.Definition {
	out := make(map[staging.Type]staging.Definition, len(f.builders))
	for t, b := range f.builders {
		out[t] = b.Build()
	}
	return out
}

// AddProvider binds p into the slots named by scopes and takes ownership of
// it. Every staging type and slot is checked before anything is bound, so a
// failing call changes nothing and leaves p with the caller.
func (f *Factory) AddProvider(p staging.Provider, scopes map[staging.Type]staging.Scope) error {
	if p == nil {
		return fmt.Errorf("%w: provider is nil", staging.ErrConfiguration)
	}

	var unknown []string
	for t := range scopes {
		if _, ok := f.builders[t]; !ok {
			unknown = append(unknown, fmt.Sprintf("%q", t))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		known := make([]string, len(f.order))
		for i, t := range f.order {
			known[i] = string(t)
		}
		return fmt.Errorf("%w: staging types %s not found, known types: %s",
			staging.ErrConfiguration, strings.Join(unknown, ", "), strings.Join(known, ", "))
	}

	for _, t := range f.order {
		scope, ok := scopes[t]
		if !ok {
			continue
		}
		for _, axis := range scope.Types() {
			if err := f.builders[t].CanBind(axis, p); err != nil {
				return err
			}
		}
	}

	bound := 0
	for _, t := range f.order {
		scope, ok := scopes[t]
		if !ok {
			continue
		}
		for _, axis := range scope.Types() {
			if err := f.builders[t].Bind(axis, p); err != nil {
				return err
			}
			bound++
		}
	}
	f.track(p)
	f.logger.Debug().Str("provider", staging.Describe(p)).Int("slots", bound).Msg("Provider bound")
	return nil
}

// AddFallbackProvider binds p into every slot still unbound, takes ownership
// of it and returns how many slots it filled.
func (f *Factory) AddFallbackProvider(p staging.Provider) int {
	if p == nil {
		return 0
	}
	bound := 0
	for _, t := range f.order {
		b := f.builders[t]
		for _, axis := range staging.AllAxes() {
			if b.IsBound(axis) {
				continue
			}
			if err := b.Bind(axis, p); err == nil {
				bound++
			}
		}
	}
	f.track(p)
	f.logger.Debug().Str("provider", staging.Describe(p)).Int("slots", bound).Msg("Fallback provider bound")
	return bound
}

func (f *Factory) track(p staging.Provider) {
	for _, existing := range f.providers {
		if staging.SameProvider(existing, p) {
			return
		}
	}
	f.providers = append(f.providers, p)
}

// definition returns the validated definition of the active staging type.
func (f *Factory) definition(group staging.Group) (staging.Definition, mapping, error) {
	m := dispatch[f.stagingType]
	kind := m.file
	if group == staging.GroupTable {
		kind = m.table
	}
	if kind == staging.NoStrategy {
		return staging.Definition{}, m, fmt.Errorf("%w: staging type %q has no %s strategy",
			staging.ErrConfiguration, f.stagingType, group)
	}
	b, ok := f.builders[f.stagingType]
	if !ok {
		return staging.Definition{}, m, fmt.Errorf("%w: staging type %q is not registered", staging.ErrConfiguration, f.stagingType)
	}
	def := b.Build()
	if err := def.ValidateFor(group); err != nil {
		return staging.Definition{}, m, err
	}
	return def, m, nil
}

// FileInputStrategy builds the file strategy of the active staging type.
func (f *Factory) FileInputStrategy(states []FileState) (FileStrategy, error) {
	def, _, err := f.definition(staging.GroupFile)
	if err != nil {
		return nil, err
	}
	data, err := pathOf(def, staging.FileData)
	if err != nil {
		return nil, err
	}
	meta, err := pathOf(def, staging.FileMetadata)
	if err != nil {
		return nil, err
	}
	return NewLocalFile(data, meta, states, f.format, f.logger), nil
}

// TableInputStrategy builds the table strategy of the active staging type.
func (f *Factory) TableInputStrategy(destination string, states []TableState) (TableStrategy, error) {
	def, m, err := f.definition(staging.GroupTable)
	if err != nil {
		return nil, err
	}
	return tableBuilders[m.table](f, def, destination, states)
}

// Cleanup cleans up every distinct owned provider once, most recently added
// first. Later calls do nothing.
func (f *Factory) Cleanup(ctx context.Context) error {
	if f.cleaned {
		return nil
	}
	f.cleaned = true

	var errs []error
	for i := len(f.providers) - 1; i >= 0; i-- {
		p := f.providers[i]
		if err := p.Cleanup(ctx); err != nil {
			f.logger.Warn().Err(err).Str("provider", staging.Describe(p)).Msg("Provider cleanup failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func pathOf(def staging.Definition, axis staging.Axis) (string, error) {
	pp, ok := def.Provider(axis).(staging.PathProvider)
	if !ok {
		return "", fmt.Errorf("%w: provider bound to %s of %q has no local path", staging.ErrConfiguration, axis, def.Name())
	}
	return pp.Path()
}

func buildLocalTable(f *Factory, def staging.Definition, destination string, states []TableState) (TableStrategy, error) {
	data, err := pathOf(def, staging.TableData)
	if err != nil {
		return nil, err
	}
	meta, err := pathOf(def, staging.TableMetadata)
	if err != nil {
		return nil, err
	}
	return NewLocalTable(data, meta, destination, states, f.format, f.logger), nil
}

func buildObjectTable(f *Factory, def staging.Definition, destination string, states []TableState) (TableStrategy, error) {
	store := f.stores[def.Name()]
	if store == nil {
		return nil, fmt.Errorf("%w: no object store configured for %q", staging.ErrConfiguration, def.Name())
	}
	meta, err := pathOf(def, staging.TableMetadata)
	if err != nil {
		return nil, err
	}
	return NewObjectTable(def.TableStrategy(), store, meta, destination, states, f.format, f.logger), nil
}

func buildWorkspaceTable(f *Factory, def staging.Definition, destination string, states []TableState) (TableStrategy, error) {
	ws, ok := def.TableDataProvider().(staging.WorkspaceCapability)
	if !ok {
		return nil, fmt.Errorf("%w: provider bound to %s of %q is not a workspace", staging.ErrConfiguration, staging.TableData, def.Name())
	}
	meta, err := pathOf(def, staging.TableMetadata)
	if err != nil {
		return nil, err
	}
	return NewWorkspaceTable(def.TableStrategy(), ws, meta, destination, states, f.format, f.logger), nil
}

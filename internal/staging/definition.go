package staging

import (
	"fmt"
	"reflect"
)

// StrategyKind selects the concrete file or table strategy built for a staging type.
type StrategyKind string

// NoStrategy marks a staging type that has no strategy for an axis group.
const NoStrategy StrategyKind = ""

// Definition is the resolved set of providers for one staging type. It is
// immutable; build it with a DefinitionBuilder.
type Definition struct {
	name          Type
	fileStrategy  StrategyKind
	tableStrategy StrategyKind
	slots         map[Axis]Provider
}

// Name returns the staging type the definition belongs to.
func (d Definition) Name() Type { return d.name }

// FileStrategy returns the file strategy selector.
func (d Definition) FileStrategy() StrategyKind { return d.fileStrategy }

// TableStrategy returns the table strategy selector.
func (d Definition) TableStrategy() StrategyKind { return d.tableStrategy }

// Provider returns the provider bound to axis, or nil.
func (d Definition) Provider(axis Axis) Provider { return d.slots[axis] }

// FileDataProvider returns the fileData slot.
func (d Definition) FileDataProvider() Provider { return d.slots[FileData] }

// FileMetadataProvider returns the fileMetadata slot.
func (d Definition) FileMetadataProvider() Provider { return d.slots[FileMetadata] }

// TableDataProvider returns the tableData slot.
func (d Definition) TableDataProvider() Provider { return d.slots[TableData] }

// TableMetadataProvider returns the tableMetadata slot.
func (d Definition) TableMetadataProvider() Provider { return d.slots[TableMetadata] }

// ValidateFor checks that both slots of group are bound.
func (d Definition) ValidateFor(group Group) error {
	var required []Axis
	switch group {
	case GroupFile:
		required = []Axis{FileData, FileMetadata}
	case GroupTable:
		required = []Axis{TableData, TableMetadata}
	default:
		return fmt.Errorf("%w: unknown staging type %q", ErrConfiguration, group)
	}
	for _, axis := range required {
		if d.slots[axis] == nil {
			return fmt.Errorf("%w: undefined %q in %q staging", ErrIncompleteBinding, axis, d.name)
		}
	}
	return nil
}

// DefinitionBuilder collects slot bindings for one staging type. A slot can be
// bound once; rebinding it to a different provider is a configuration error.
type DefinitionBuilder struct {
	name          Type
	fileStrategy  StrategyKind
	tableStrategy StrategyKind
	slots         map[Axis]Provider
}

// NewDefinitionBuilder starts a definition with all four slots unset.
func NewDefinitionBuilder(name Type, fileStrategy, tableStrategy StrategyKind) *DefinitionBuilder {
	return &DefinitionBuilder{
		name:          name,
		fileStrategy:  fileStrategy,
		tableStrategy: tableStrategy,
		slots:         make(map[Axis]Provider, 4),
	}
}

// Name returns the staging type being built.
func (b *DefinitionBuilder) Name() Type { return b.name }

// CanBind reports whether p may be bound to axis: the slot is free or already
// holds p itself.
func (b *DefinitionBuilder) CanBind(axis Axis, p Provider) error {
	if !axis.valid() {
		return fmt.Errorf("%w: unknown scope type %q", ErrConfiguration, axis)
	}
	if p == nil {
		return fmt.Errorf("%w: nil provider for slot %s of %q", ErrConfiguration, axis, b.name)
	}
	if existing, ok := b.slots[axis]; ok && !SameProvider(existing, p) {
		return fmt.Errorf("%w: slot %s of %q is already bound", ErrConfiguration, axis, b.name)
	}
	return nil
}

// Bind installs p into the slot for axis.
func (b *DefinitionBuilder) Bind(axis Axis, p Provider) error {
	if err := b.CanBind(axis, p); err != nil {
		return err
	}
	b.slots[axis] = p
	return nil
}

// IsBound reports whether the slot for axis holds a provider.
func (b *DefinitionBuilder) IsBound(axis Axis) bool {
	_, ok := b.slots[axis]
	return ok
}

// Build returns an immutable snapshot of the bindings so far.
func (b *DefinitionBuilder) Build() Definition {
	slots := make(map[Axis]Provider, len(b.slots))
	for k, v := range b.slots {
		slots[k] = v
	}
	return Definition{
		name:          b.name,
		fileStrategy:  b.fileStrategy,
		tableStrategy: b.tableStrategy,
		slots:         slots,
	}
}

// SameProvider reports whether a and b are the same provider instance.
func SameProvider(a, b Provider) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Package metadata holds entity schemas and the integrity mode.
//
// Metadata is loaded at initialization. Only the option-set messages mutate
// it afterwards. Names are matched case-insensitively.
package metadata

import (
	"fmt"
	"log/slog"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
)

// Repository stores entity metadata and global option sets.
// It is not safe for concurrent use.
type Repository struct {
	entities   map[string]*EntityMetadata
	order      []string
	optionSets map[string]*OptionSet
	logger     *slog.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithLogger sets the logger used for registration events.
func WithLogger(l *slog.Logger) RepositoryOption {
	return func(r *Repository) {
		r.logger = l
	}
}

// NewRepository creates an empty repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		entities:   make(map[string]*EntityMetadata),
		optionSets: make(map[string]*OptionSet),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces an entity schema. The primary id attribute
// defaults to "<logicalname>id" and is added as a uniqueidentifier attribute
// when the schema does not declare it.
func (r *Repository) Register(e EntityMetadata) error {
	if e.LogicalName == "" {
		return fmt.Errorf("register entity: logical name is required")
	}
	e = e.Clone()
	if e.PrimaryIDAttribute == "" {
		e.PrimaryIDAttribute = DefaultPrimaryID(e.LogicalName)
	}

	seen := make(map[string]bool, len(e.Attributes))
	for _, a := range e.Attributes {
		k := ir.Key(a.LogicalName)
		if k == "" {
			return fmt.Errorf("register entity %s: attribute with empty name", e.LogicalName)
		}
		if seen[k] {
			return fmt.Errorf("register entity %s: duplicate attribute %s", e.LogicalName, a.LogicalName)
		}
		seen[k] = true
	}
	if !seen[ir.Key(e.PrimaryIDAttribute)] {
		e.Attributes = append([]AttributeMetadata{{
			LogicalName: e.PrimaryIDAttribute,
			Type:        TypeUniqueIdentifier,
		}}, e.Attributes...)
	}

	for i := range e.Attributes {
		a := &e.Attributes[i]
		if a.OptionSet != nil && a.OptionSet.Global && a.OptionSet.Name != "" {
			k := ir.Key(a.OptionSet.Name)
			if _, ok := r.optionSets[k]; !ok {
				r.optionSets[k] = a.OptionSet.clone()
			}
		}
	}

	k := ir.Key(e.LogicalName)
	if _, ok := r.entities[k]; !ok {
		r.order = append(r.order, k)
	}
	r.entities[k] = &e
	r.logger.Debug("entity registered",
		"entity", e.LogicalName,
		"attributes", len(e.Attributes))
	return nil
}

// Has reports whether the entity is registered.
func (r *Repository) Has(logicalName string) bool {
	_, ok := r.entities[ir.Key(logicalName)]
	return ok
}

// Get returns a copy of the entity schema, or a NotFound fault.
func (r *Repository) Get(logicalName string) (EntityMetadata, error) {
	e, ok := r.entities[ir.Key(logicalName)]
	if !ok {
		return EntityMetadata{}, fault.NewEntityNotFound(logicalName)
	}
	return e.Clone(), nil
}

// PrimaryID returns the primary id attribute of an entity, falling back to
// the naming convention for unregistered entities.
func (r *Repository) PrimaryID(logicalName string) string {
	if e, ok := r.entities[ir.Key(logicalName)]; ok {
		return e.PrimaryIDAttribute
	}
	return DefaultPrimaryID(logicalName)
}

// AttributeExists reports whether the entity declares the attribute.
func (r *Repository) AttributeExists(logicalName, attribute string) bool {
	e, ok := r.entities[ir.Key(logicalName)]
	if !ok {
		return false
	}
	_, ok = e.Attribute(attribute)
	return ok
}

// Attribute returns a copy of the attribute metadata. Global option sets
// are resolved so the caller sees their current options.
func (r *Repository) Attribute(logicalName, attribute string) (AttributeMetadata, error) {
	e, ok := r.entities[ir.Key(logicalName)]
	if !ok {
		return AttributeMetadata{}, fault.NewEntityNotFound(logicalName)
	}
	a, ok := e.Attribute(attribute)
	if !ok {
		return AttributeMetadata{}, fault.New(fault.NotFound, "attribute %s.%s is not registered", logicalName, attribute).
			With("entity", logicalName).
			With("attribute", attribute)
	}
	out := *a
	out.Targets = append([]string(nil), a.Targets...)
	if set := r.optionSetFor(a); set != nil {
		out.OptionSet = set.clone()
	}
	return out, nil
}

// Names returns the registered logical names in registration order.
func (r *Repository) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entities[k].LogicalName)
	}
	return out
}

// RegisterOptionSet adds or replaces a global option set.
func (r *Repository) RegisterOptionSet(set OptionSet) error {
	if set.Name == "" {
		return fmt.Errorf("register option set: name is required")
	}
	set.Global = true
	r.optionSets[ir.Key(set.Name)] = set.clone()
	return nil
}

// OptionSet returns a copy of a global option set.
func (r *Repository) OptionSet(name string) (OptionSet, error) {
	set, ok := r.optionSets[ir.Key(name)]
	if !ok {
		return OptionSet{}, fault.New(fault.NotFound, "option set %s is not registered", name).
			With("optionset", name)
	}
	return *set.clone(), nil
}

// OptionTarget identifies the option set an option-set message edits:
// either a global set by name, or the local set of an entity attribute.
type OptionTarget struct {
	OptionSetName string
	Entity        string
	Attribute     string
}

func (t OptionTarget) String() string {
	if t.OptionSetName != "" {
		return t.OptionSetName
	}
	return t.Entity + "." + t.Attribute
}

// InsertOption appends an option to the target option set. A value already
// present in the set is rejected.
func (r *Repository) InsertOption(target OptionTarget, opt Option) error {
	set, err := r.resolve(target)
	if err != nil {
		return err
	}
	if _, exists := set.Find(opt.Value); exists {
		return fault.New(fault.DuplicateID, "option %d already exists in %s", opt.Value, target).
			With("optionset", target.String()).
			With("value", fmt.Sprint(opt.Value))
	}
	set.Options = append(set.Options, opt)
	r.logger.Debug("option inserted", "target", target.String(), "value", opt.Value, "label", opt.Label)
	return nil
}

// CustomOptionBase is the first value handed out by NextOptionValue.
const CustomOptionBase = 100000000

// NextOptionValue returns the value InsertOption should use when the caller
// does not choose one: one above the highest existing value, and at least
// CustomOptionBase.
func (r *Repository) NextOptionValue(target OptionTarget) (int, error) {
	set, err := r.resolve(target)
	if err != nil {
		return 0, err
	}
	next := CustomOptionBase
	for _, o := range set.Options {
		if o.Value >= next {
			next = o.Value + 1
		}
	}
	return next, nil
}

// SetOptionLabel changes the label of an existing option.
func (r *Repository) SetOptionLabel(target OptionTarget, value int, label string) error {
	set, err := r.resolve(target)
	if err != nil {
		return err
	}
	o, ok := set.Find(value)
	if !ok {
		return fault.New(fault.NotFound, "option %d does not exist in %s", value, target).
			With("optionset", target.String()).
			With("value", fmt.Sprint(value))
	}
	o.Label = label
	r.logger.Debug("option relabeled", "target", target.String(), "value", value, "label", label)
	return nil
}

// resolve returns the live option set for a target, creating an empty local
// set on option-backed attributes that have none yet.
func (r *Repository) resolve(target OptionTarget) (*OptionSet, error) {
	if target.OptionSetName != "" {
		set, ok := r.optionSets[ir.Key(target.OptionSetName)]
		if !ok {
			return nil, fault.New(fault.NotFound, "option set %s is not registered", target.OptionSetName).
				With("optionset", target.OptionSetName)
		}
		return set, nil
	}
	e, ok := r.entities[ir.Key(target.Entity)]
	if !ok {
		return nil, fault.NewEntityNotFound(target.Entity)
	}
	a, ok := e.Attribute(target.Attribute)
	if !ok {
		return nil, fault.New(fault.NotFound, "attribute %s.%s is not registered", target.Entity, target.Attribute).
			With("entity", target.Entity).
			With("attribute", target.Attribute)
	}
	if set := r.optionSetFor(a); set != nil {
		return set, nil
	}
	if !a.Type.HasOptions() {
		return nil, fmt.Errorf("attribute %s.%s of type %s has no option set", target.Entity, target.Attribute, a.Type)
	}
	a.OptionSet = &OptionSet{}
	return a.OptionSet, nil
}

func (r *Repository) optionSetFor(a *AttributeMetadata) *OptionSet {
	if a.OptionSet == nil {
		return nil
	}
	if a.OptionSet.Global && a.OptionSet.Name != "" {
		if set, ok := r.optionSets[ir.Key(a.OptionSet.Name)]; ok {
			return set
		}
	}
	return a.OptionSet
}

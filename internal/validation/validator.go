// Package validation implements the integrity checks that run before every
// record write: reference targets must exist and attribute values must
// match their metadata type.
//
// This is the only place where value kinds are checked against attribute
// types. Executors and the store accept any ir.Value.
package validation

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/metadata"
)

// Existence answers whether a referenced record is present.
// *store.Store satisfies it.
type Existence interface {
	Exists(ref ir.Reference) bool
}

// Schema is the metadata view used by the type check.
// *metadata.Repository satisfies it.
type Schema interface {
	Attribute(logicalName, attribute string) (metadata.AttributeMetadata, error)
}

// Validator runs the checks selected by its mode.
type Validator struct {
	mode   metadata.Mode
	exists Existence
	schema Schema
	logger *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// New creates a validator. With metadata.ModeOff every write is accepted.
func New(mode metadata.Mode, exists Existence, schema Schema, opts ...Option) *Validator {
	v := &Validator{
		mode:   mode,
		exists: exists,
		schema: schema,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mode returns the active mode.
func (v *Validator) Mode() metadata.Mode {
	return v.mode
}

// SetMode changes the active mode. Tests use it to toggle checks between
// requests.
func (v *Validator) SetMode(m metadata.Mode) {
	v.mode = m
}

// ValidateWrite checks rec before it is created or merged into the store.
// Attributes are checked in record order and the first failure is returned:
//   - ReferenceIntegrity when a Reference or ReferenceCollection member
//     points at a record that does not exist
//   - TypeMismatch when the value kind is not accepted by the attribute type
//
// Null values always pass. Attributes without metadata, and entities that
// are not registered, skip the type check.
func (v *Validator) ValidateWrite(rec *ir.Record) error {
	if v.mode == metadata.ModeOff || rec == nil {
		return nil
	}
	for _, a := range rec.Attributes() {
		if ir.IsNull(a.Value) {
			continue
		}
		if v.mode.Types() {
			if err := v.checkType(rec.LogicalName, a); err != nil {
				return err
			}
		}
		if v.mode.References() {
			if err := v.checkReferences(rec.LogicalName, a); err != nil {
				return err
			}
		}
	}
	v.logger.Debug("write validated",
		"entity", rec.LogicalName,
		"mode", v.mode.String(),
		"attributes", rec.Len())
	return nil
}

func (v *Validator) checkReferences(entity string, a ir.Attribute) error {
	var refs []ir.Reference
	switch val := a.Value.(type) {
	case ir.Reference:
		refs = []ir.Reference{val}
	case ir.ReferenceCollection:
		refs = val
	default:
		return nil
	}
	for _, ref := range refs {
		if ref.IsZero() || v.exists == nil || !v.exists.Exists(ref) {
			return fault.NewReferenceIntegrity(entity, a.Name, ref.LogicalName, ref.ID.String())
		}
	}
	return nil
}

func (v *Validator) checkType(entity string, a ir.Attribute) error {
	if v.schema == nil {
		return nil
	}
	md, err := v.schema.Attribute(entity, a.Name)
	if err != nil {
		return nil
	}
	kind := a.Value.Kind()
	if !Accepts(md.Type, kind) {
		return fault.NewTypeMismatch(entity, a.Name, md.Type.String(), kind.String())
	}
	if ref, ok := a.Value.(ir.Reference); ok && len(md.Targets) > 0 && !targetAllowed(md.Targets, ref.LogicalName) {
		return fault.NewTypeMismatch(entity, a.Name, md.Type.String()+"("+strings.Join(md.Targets, "|")+")", ref.LogicalName)
	}
	return nil
}

func targetAllowed(targets []string, logicalName string) bool {
	for _, t := range targets {
		if ir.Key(t) == ir.Key(logicalName) {
			return true
		}
	}
	return false
}

// accepted maps each attribute type to the value kinds it stores.
// Decimal and double attributes also take integers.
var accepted = map[metadata.AttributeType][]ir.Kind{
	metadata.TypeString:           {ir.KindString},
	metadata.TypeMemo:             {ir.KindString},
	metadata.TypeInteger:          {ir.KindInt},
	metadata.TypeBigInt:           {ir.KindInt},
	metadata.TypeDecimal:          {ir.KindFloat, ir.KindInt},
	metadata.TypeDouble:           {ir.KindFloat, ir.KindInt},
	metadata.TypeMoney:            {ir.KindMoney},
	metadata.TypeBoolean:          {ir.KindBool},
	metadata.TypeDateTime:         {ir.KindDateTime},
	metadata.TypeUniqueIdentifier: {ir.KindGUID},
	metadata.TypePicklist:         {ir.KindOptionSet},
	metadata.TypeState:            {ir.KindOptionSet},
	metadata.TypeStatus:           {ir.KindOptionSet},
	metadata.TypeLookup:           {ir.KindReference},
	metadata.TypeCustomer:         {ir.KindReference},
	metadata.TypeOwner:            {ir.KindReference},
	metadata.TypePartyList:        {ir.KindReferenceCollection},
}

// Accepts reports whether an attribute of type t may hold a value of kind k.
// Null is always accepted and virtual attributes accept anything.
func Accepts(t metadata.AttributeType, k ir.Kind) bool {
	if k == ir.KindNull || t == metadata.TypeVirtual {
		return true
	}
	return slices.Contains(accepted[t], k)
}

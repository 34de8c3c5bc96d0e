package chrecord

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

// FieldKind classifies a struct field the way the schema introspector
// sees it: a plain value, a nested record, a collection of records, or
// a field the introspector refused to wrap.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindComplex
	KindCollection
	KindIgnored
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindComplex:
		return "complex"
	case KindCollection:
		return "collection"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// FieldInfo describes one struct field as seen by the introspector.
type FieldInfo struct {
	Name     string       // Go field name
	Label    string       // display label used in diagnostics/dump
	Index    []int        // FieldByIndex path (supports embedded structs)
	Type     reflect.Type // the field's declared type
	ElemType reflect.Type // struct type for KindComplex and KindCollection (not slice/pointer)
	Kind     FieldKind
}

// Diagnostic records a non-fatal introspection finding, e.g. a field
// the schema walker declined to wrap because its type graph is cyclic.
type Diagnostic struct {
	Field   string
	Message string
}

// Schema holds the reflection metadata for a record type T, computed
// once per type and cached for the lifetime of the process.
type Schema struct {
	Type        reflect.Type
	Fields      map[string]*FieldInfo // Go field name -> info
	Scalars     []string
	Complex     []string
	Collections []string
	Diagnostics []Diagnostic
}

var (
	schemaCache   = make(map[reflect.Type]*Schema)
	schemaCacheMu sync.RWMutex

	timeType = reflect.TypeOf(time.Time{})

	pluralizeClient = pluralize.NewClient()
)

// ParseSchema inspects the struct type T and returns its cached
// metadata, computing it on first use.
func ParseSchema[T any]() *Schema {
	var zero T
	return ParseSchemaType(reflect.TypeOf(zero))
}

// ParseSchemaType inspects typ (a struct type, or pointer to one) and
// returns its cached metadata.
func ParseSchemaType(typ reflect.Type) *Schema {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		panic("chrecord: tracked type must be a struct, got " + typ.Kind().String())
	}

	schemaCacheMu.RLock()
	if s, ok := schemaCache[typ]; ok {
		schemaCacheMu.RUnlock()
		return s
	}
	schemaCacheMu.RUnlock()

	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()

	if s, ok := schemaCache[typ]; ok {
		return s
	}

	s := buildSchema(typ, map[reflect.Type]bool{typ: true})
	schemaCache[typ] = s
	return s
}

// SchemaCacheLen returns the number of distinct types the introspector
// has memoized a Schema for.
func SchemaCacheLen() int {
	schemaCacheMu.RLock()
	defer schemaCacheMu.RUnlock()
	return len(schemaCache)
}

// ClearSchemaCache discards every memoized Schema. Useful for
// long-running services that introspect a large, churning set of
// ad-hoc types and want to bound cache growth.
func ClearSchemaCache() {
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()
	schemaCache = make(map[reflect.Type]*Schema)
}

// buildSchema walks typ's fields. inProgress carries the set of types
// already on the current recursion stack so cyclic type graphs can be
// detected and reported instead of recursing forever.
func buildSchema(typ reflect.Type, inProgress map[reflect.Type]bool) *Schema {
	s := &Schema{
		Type:   typ,
		Fields: make(map[string]*FieldInfo),
	}
	walkFields(typ, nil, s, inProgress)
	return s
}

func walkFields(typ reflect.Type, indexPrefix []int, s *Schema, inProgress map[reflect.Type]bool) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			walkFields(field.Type, appendIndex(indexPrefix, i), s, inProgress)
			continue
		}

		if tag := field.Tag.Get("chrecord"); tag == "-" {
			continue
		}

		index := appendIndex(indexPrefix, i)
		label := displayLabel(field)

		switch classifyField(field.Type) {
		case KindComplex:
			elemType := field.Type
			if elemType.Kind() == reflect.Pointer {
				elemType = elemType.Elem()
			}
			if formsCycle(elemType, inProgress) {
				s.Diagnostics = append(s.Diagnostics, Diagnostic{
					Field:   field.Name,
					Message: fmt.Sprintf("property %q forms a cyclic type graph through %s; not trackable", label, elemType.Name()),
				})
				s.Fields[field.Name] = &FieldInfo{Name: field.Name, Label: label, Index: index, Type: field.Type, Kind: KindIgnored}
				continue
			}
			s.Fields[field.Name] = &FieldInfo{Name: field.Name, Label: label, Index: index, Type: field.Type, ElemType: elemType, Kind: KindComplex}
			s.Complex = append(s.Complex, field.Name)

		case KindCollection:
			elem := field.Type.Elem()
			if elem.Kind() == reflect.Pointer {
				elem = elem.Elem()
			}
			if formsCycle(elem, inProgress) {
				s.Diagnostics = append(s.Diagnostics, Diagnostic{
					Field:   field.Name,
					Message: fmt.Sprintf("collection %q forms a cyclic type graph through %s; not trackable", label, elem.Name()),
				})
				s.Fields[field.Name] = &FieldInfo{Name: field.Name, Label: label, Index: index, Type: field.Type, Kind: KindIgnored}
				continue
			}
			s.Fields[field.Name] = &FieldInfo{Name: field.Name, Label: pluralLabel(label), Index: index, Type: field.Type, ElemType: elem, Kind: KindCollection}
			s.Collections = append(s.Collections, field.Name)

		default:
			s.Fields[field.Name] = &FieldInfo{Name: field.Name, Label: label, Index: index, Type: field.Type, Kind: KindScalar}
			s.Scalars = append(s.Scalars, field.Name)
		}
	}
}

func appendIndex(prefix []int, i int) []int {
	idx := make([]int, len(prefix)+1)
	copy(idx, prefix)
	idx[len(prefix)] = i
	return idx
}

// formsCycle reports whether candidate, or anything structurally
// reachable from it through complex/collection fields, revisits a type
// already on the current walk's path (inProgress). Unlike a plain
// inProgress[candidate] check, this follows the subgraph transitively,
// so mutual cycles (A embeds-by-reference B, B embeds-by-reference A)
// are caught and not just direct self-reference.
func formsCycle(candidate reflect.Type, inProgress map[reflect.Type]bool) bool {
	if inProgress[candidate] {
		return true
	}
	if candidate.Kind() != reflect.Struct || candidate == timeType {
		return false
	}

	next := make(map[reflect.Type]bool, len(inProgress)+1)
	for t := range inProgress {
		next[t] = true
	}
	next[candidate] = true

	return fieldsFormCycle(candidate, next)
}

func fieldsFormCycle(typ reflect.Type, inProgress map[reflect.Type]bool) bool {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if tag := field.Tag.Get("chrecord"); tag == "-" {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if fieldsFormCycle(field.Type, inProgress) {
				return true
			}
			continue
		}

		switch classifyField(field.Type) {
		case KindComplex:
			elem := field.Type
			if elem.Kind() == reflect.Pointer {
				elem = elem.Elem()
			}
			if formsCycle(elem, inProgress) {
				return true
			}
		case KindCollection:
			elem := field.Type.Elem()
			if elem.Kind() == reflect.Pointer {
				elem = elem.Elem()
			}
			if formsCycle(elem, inProgress) {
				return true
			}
		}
	}
	return false
}

// classifyField reports the FieldKind a field type would get, without
// deciding cycle eligibility (the caller does that, since it needs the
// in-progress stack).
func classifyField(t reflect.Type) FieldKind {
	switch t.Kind() {
	case reflect.Struct:
		if t == timeType {
			return KindScalar
		}
		return KindComplex
	case reflect.Pointer:
		elem := t.Elem()
		if elem.Kind() == reflect.Struct && elem != timeType {
			return KindComplex
		}
		return KindScalar
	case reflect.Slice:
		elem := t.Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() == reflect.Struct && elem != timeType {
			return KindCollection
		}
		return KindScalar
	case reflect.Array:
		// Fixed-size sequences cannot express insert/remove; the
		// collection tracker rejects these at wrap time (§4.4), but
		// introspection still reports them so diagnostics are useful.
		elem := t.Elem()
		if elem.Kind() == reflect.Struct && elem != timeType {
			return KindCollection
		}
		return KindScalar
	default:
		return KindScalar
	}
}

// displayLabel returns a diagnostic-friendly name for a field,
// honoring a `chrecord:"label:..."` tag override if present.
func displayLabel(field reflect.StructField) string {
	tag := field.Tag.Get("chrecord")
	for _, part := range strings.Split(tag, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) == 2 && strings.TrimSpace(kv[0]) == "label" {
			return strcase.ToCamel(strings.TrimSpace(kv[1]))
		}
	}
	return field.Name
}

func pluralLabel(label string) string {
	return pluralizeClient.Plural(label)
}

// IsSequence reports whether t is an ordered, growable sequence type
// (a slice). Fixed-size arrays are not sequences for tracking purposes
// — §4.4 requires construction to fail on them.
func IsSequence(t reflect.Type) bool {
	return t.Kind() == reflect.Slice
}

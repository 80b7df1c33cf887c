package store

import (
	"reflect"
	"sync"
)

// ExtractDBColumns extracts all column names from struct "db" tags.
// Embedded structs are walked recursively.
//
// Usage:
//
//	columns := ExtractDBColumns[loans.Loan]()
//	// Returns: ["id", "lender_name", "principal", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return getOrCreateTypeMetadata(reflect.TypeOf(zero)).columns()
}

// fieldInfo contains pre-computed metadata about a struct field.
type fieldInfo struct {
	index int    // Field index in the struct
	dbTag string // Database column name
}

// typeMetadata contains cached reflection metadata for a type.
type typeMetadata struct {
	fields          []fieldInfo
	embeddedIndices []int
	embedded        []*typeMetadata
}

func (m *typeMetadata) columns() []string {
	cols := make([]string, 0, len(m.fields))
	for _, f := range m.fields {
		cols = append(cols, f.dbTag)
	}
	for _, e := range m.embedded {
		cols = append(cols, e.columns()...)
	}
	return cols
}

// typeCache maps reflect.Type to *typeMetadata.
var typeCache sync.Map

// getOrCreateTypeMetadata returns cached metadata or creates it if not exists.
func getOrCreateTypeMetadata(t reflect.Type) *typeMetadata {
	if t == nil {
		return &typeMetadata{}
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() != reflect.Struct {
		typeCache.Store(t, meta)
		return meta
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous {
			meta.embeddedIndices = append(meta.embeddedIndices, i)
			meta.embedded = append(meta.embedded, getOrCreateTypeMetadata(field.Type))
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, fieldInfo{index: i, dbTag: tag})
	}

	typeCache.Store(t, meta)
	return meta
}

// RowFromStruct converts a struct to a Row using "db" tags.
// Nil pointers become untyped nil and other pointers are dereferenced, so the
// row never aliases the caller's memory.
func RowFromStruct(v any) Row {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := getOrCreateTypeMetadata(rv.Type())
	res := make(Row, len(meta.fields))
	fillRow(res, rv, meta)
	return res
}

func fillRow(res Row, rv reflect.Value, meta *typeMetadata) {
	for _, fi := range meta.fields {
		res[fi.dbTag] = plainValue(rv.Field(fi.index))
	}
	for i, embIdx := range meta.embeddedIndices {
		ev := rv.Field(embIdx)
		if ev.Kind() == reflect.Ptr {
			if ev.IsNil() {
				continue
			}
			ev = ev.Elem()
		}
		fillRow(res, ev, meta.embedded[i])
	}
}

func plainValue(fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		return fv.Elem().Interface()
	}
	return fv.Interface()
}

package value

import "github.com/dolthub/swiss"

// Table is the single open-addressed, string-keyed hash table implementation
// used throughout the runtime for globals, instance fields and class method
// tables (spec.md §2, §3). The VM's string-intern table does not use it: it
// is a plain Go map keyed by string content. Table wraps the
// same swiss-table implementation the teacher lineage uses for its one
// hash-table-shaped value type; tombstone handling on delete is internal to
// that implementation.
type Table struct {
	m *swiss.Map[string, Value]
}

// NewTable returns a Table with initial capacity for at least size entries.
func NewTable(size int) *Table {
	if size < 0 {
		size = 0
	}
	return &Table{m: swiss.NewMap[string, Value](uint32(size))}
}

// Get returns the value for name and whether it was present.
func (t *Table) Get(name string) (Value, bool) {
	return t.m.Get(name)
}

// Set inserts or overwrites the entry for name. It reports whether name was a
// new key (mirroring the C table's "was new key" return used by
// OP_SET_GLOBAL to detect an undefined assignment, spec.md §4.4).
func (t *Table) Set(name string, v Value) (isNew bool) {
	_, existed := t.m.Get(name)
	t.m.Put(name, v)
	return !existed
}

// Delete removes the entry for name, reporting whether it was present.
func (t *Table) Delete(name string) bool {
	if _, ok := t.m.Get(name); !ok {
		return false
	}
	t.m.Delete(name)
	return true
}

// Len reports the number of live entries.
func (t *Table) Len() int { return int(t.m.Count()) }

// Each calls fn once per entry, in unspecified order. fn must not mutate the
// table; it is used by the GC's mark phase and by OP_INHERIT to copy a
// superclass's methods.
func (t *Table) Each(fn func(name string, v Value)) {
	t.m.Iter(func(k string, v Value) bool {
		fn(k, v)
		return false
	})
}

package compiler

// NameTable is an append-only list of names with an index for O(1)
// lookups. Indexes handed out by the table never change.
type NameTable struct {
	names []string
	index map[string]int
}

// NewNameTable returns a table pre-populated with the given names.
func NewNameTable(names ...string) *NameTable {
	t := &NameTable{index: make(map[string]int, len(names))}
	for _, name := range names {
		t.Insert(name)
	}
	return t
}

// Index returns the index of name and whether it is present.
func (t *NameTable) Index(name string) (int, bool) {
	idx, ok := t.index[name]
	return idx, ok
}

// IndexOr returns the index of name, or fallback when it is absent.
func (t *NameTable) IndexOr(name string, fallback int) int {
	if idx, ok := t.index[name]; ok {
		return idx
	}
	return fallback
}

// Insert returns the index of name, appending it first if necessary.
func (t *NameTable) Insert(name string) int {
	if idx, ok := t.index[name]; ok {
		return idx
	}
	idx := len(t.names)
	t.names = append(t.names, name)
	t.index[name] = idx
	return idx
}

// Name returns the name stored at idx.
func (t *NameTable) Name(idx int) string {
	if idx < 0 || idx >= len(t.names) {
		return ""
	}
	return t.names[idx]
}

// Len returns the number of names in the table.
func (t *NameTable) Len() int {
	return len(t.names)
}

// Names returns a copy of the names in index order.
func (t *NameTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

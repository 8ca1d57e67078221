package pymarshal

// Refs is the reference table built while decoding a stream: entry i
// is the object stored by StoreRef{Index: i}. Indices are assigned in
// the order the flagged tag bytes appear, so a table produced by
// Decode is dense and in stream order.
type Refs []Object

// Get returns the table entry at index i, or false when i is out of
// range.
func (r Refs) Get(i int) (Object, bool) {
	if i < 0 || i >= len(r) {
		return nil, false
	}
	return r[i], true
}

package pymarshal

// Post-processing of decoded objects: census of which table entries
// are actually referenced, dropping stores nothing refers to, and
// inlining references away entirely for acyclic graphs.

// UsedRefs walks obj and counts how often each reference-table index
// is loaded through a Ref marker. Indices that are stored but never
// loaded do not appear in the result.
func UsedRefs(obj Object) map[int]int {
	used := make(map[int]int)
	countRefs(obj, used)
	return used
}

func countRefs(obj Object, used map[int]int) {
	switch v := obj.(type) {
	case Ref:
		used[v.Index]++
	case StoreRef:
		countRefs(v.Value, used)
	case Tuple:
		for _, item := range v.Items {
			countRefs(item, used)
		}
	case List:
		for _, item := range v {
			countRefs(item, used)
		}
	case Set:
		for _, item := range v {
			countRefs(item, used)
		}
	case FrozenSet:
		for _, item := range v {
			countRefs(item, used)
		}
	case Dict:
		for _, kv := range v.Items() {
			countRefs(kv.Key, used)
			countRefs(kv.Value, used)
		}
	case *Code310:
		for _, f := range []Object{
			v.Code, v.Consts, v.Names, v.VarNames, v.FreeVars,
			v.CellVars, v.Filename, v.Name, v.LNoTab,
		} {
			countRefs(f, used)
		}
	case *Code311:
		for _, f := range []Object{
			v.Code, v.Consts, v.Names, v.LocalsPlusNames,
			v.LocalsPlusKinds, v.Filename, v.Name, v.QualName,
			v.LineTable, v.ExceptionTable,
		} {
			countRefs(f, used)
		}
	}
}

// OptimizeRefs strips StoreRef markers whose index is never loaded and
// renumbers the surviving entries densely, in store order. The result
// encodes to a smaller stream with identical meaning.
//
// obj and refs must be a well-formed pair in the sense of Encode; a
// Ref to an index with no matching store yields a RefError.
func OptimizeRefs(obj Object, refs Refs) (Object, Refs, error) {
	o := &optimizer{
		used:  UsedRefs(obj),
		remap: make(map[int]int),
	}
	out, err := o.walk(obj)
	if err != nil {
		return nil, nil, err
	}
	return out, o.newRefs, nil
}

type optimizer struct {
	used    map[int]int
	remap   map[int]int // old index -> new index
	newRefs Refs
}

func (o *optimizer) walk(obj Object) (Object, error) {
	switch v := obj.(type) {
	case StoreRef:
		if o.used[v.Index] == 0 {
			return o.walk(v.Value)
		}
		// claim the new index before descending so refs from inside
		// the value resolve, the same order stores happen on the wire
		ni := len(o.newRefs)
		o.newRefs = append(o.newRefs, nil)
		o.remap[v.Index] = ni
		nv, err := o.walk(v.Value)
		if err != nil {
			return nil, err
		}
		o.newRefs[ni] = nv
		return StoreRef{Index: ni, Value: nv}, nil

	case Ref:
		ni, ok := o.remap[v.Index]
		if !ok {
			return nil, &RefError{Index: v.Index}
		}
		return Ref{Index: ni}, nil

	case Tuple:
		items, err := o.walkItems(v.Items)
		if err != nil {
			return nil, err
		}
		return Tuple{Items: items, Kind: v.Kind}, nil
	case List:
		items, err := o.walkItems(v)
		if err != nil {
			return nil, err
		}
		return List(items), nil
	case Set:
		items, err := o.walkItems(v)
		if err != nil {
			return nil, err
		}
		return Set(items), nil
	case FrozenSet:
		items, err := o.walkItems(v)
		if err != nil {
			return nil, err
		}
		return FrozenSet(items), nil

	case Dict:
		nd := NewDictWithSizeHint(v.Len())
		for _, kv := range v.Items() {
			nk, err := o.walk(kv.Key)
			if err != nil {
				return nil, err
			}
			nv, err := o.walk(kv.Value)
			if err != nil {
				return nil, err
			}
			nd.Set(nk, nv)
		}
		return nd, nil

	case *Code310:
		nc := *v
		for _, f := range []*Object{
			&nc.Code, &nc.Consts, &nc.Names, &nc.VarNames, &nc.FreeVars,
			&nc.CellVars, &nc.Filename, &nc.Name, &nc.LNoTab,
		} {
			nf, err := o.walk(*f)
			if err != nil {
				return nil, err
			}
			*f = nf
		}
		return &nc, nil
	case *Code311:
		nc := *v
		for _, f := range []*Object{
			&nc.Code, &nc.Consts, &nc.Names, &nc.LocalsPlusNames,
			&nc.LocalsPlusKinds, &nc.Filename, &nc.Name, &nc.QualName,
			&nc.LineTable, &nc.ExceptionTable,
		} {
			nf, err := o.walk(*f)
			if err != nil {
				return nil, err
			}
			*f = nf
		}
		return &nc, nil
	}

	return obj, nil
}

func (o *optimizer) walkItems(items []Object) ([]Object, error) {
	out := make([]Object, len(items))
	for i, item := range items {
		n, err := o.walk(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// ResolveRefs inlines sharing away: every Ref to an acyclic object is
// replaced by that object, and StoreRef markers that nothing cyclic
// needs are stripped. Shared objects come out duplicated.
//
// Objects on a reference cycle have no tree form, so their stores
// survive, renumbered densely, and the returned table holds exactly
// those. For a fully acyclic input the table comes back empty and the
// result is a plain tree.
//
// ErrCyclicRef is only returned for a cycle that runs through table
// entries not present in obj itself, which cannot be renumbered.
func ResolveRefs(obj Object, refs Refs) (Object, Refs, error) {
	c := &cycleFinder{active: make(map[int]bool), cyclic: make(map[int]bool)}
	c.walk(obj)

	r := &refResolver{
		refs:     refs,
		cyclic:   c.cyclic,
		remap:    make(map[int]int),
		resolved: make(map[int]Object),
		active:   make(map[int]bool),
	}
	out, err := r.walk(obj)
	if err != nil {
		return nil, nil, err
	}
	return out, r.newRefs, nil
}

// cycleFinder marks the table indices whose stored object can reach a
// Ref back to itself.
type cycleFinder struct {
	active map[int]bool
	cyclic map[int]bool
}

func (c *cycleFinder) walk(obj Object) {
	switch v := obj.(type) {
	case StoreRef:
		c.active[v.Index] = true
		c.walk(v.Value)
		delete(c.active, v.Index)
	case Ref:
		if c.active[v.Index] {
			c.cyclic[v.Index] = true
		}
	case Tuple:
		for _, item := range v.Items {
			c.walk(item)
		}
	case List:
		for _, item := range v {
			c.walk(item)
		}
	case Set:
		for _, item := range v {
			c.walk(item)
		}
	case FrozenSet:
		for _, item := range v {
			c.walk(item)
		}
	case Dict:
		for _, kv := range v.Items() {
			c.walk(kv.Key)
			c.walk(kv.Value)
		}
	case *Code310:
		for _, f := range []Object{
			v.Code, v.Consts, v.Names, v.VarNames, v.FreeVars,
			v.CellVars, v.Filename, v.Name, v.LNoTab,
		} {
			c.walk(f)
		}
	case *Code311:
		for _, f := range []Object{
			v.Code, v.Consts, v.Names, v.LocalsPlusNames,
			v.LocalsPlusKinds, v.Filename, v.Name, v.QualName,
			v.LineTable, v.ExceptionTable,
		} {
			c.walk(f)
		}
	}
}

type refResolver struct {
	refs     Refs
	cyclic   map[int]bool
	remap    map[int]int // old index -> surviving new index
	newRefs  Refs
	resolved map[int]Object
	active   map[int]bool
}

func (r *refResolver) walk(obj Object) (Object, error) {
	switch v := obj.(type) {
	case StoreRef:
		if !r.cyclic[v.Index] {
			nv, err := r.walk(v.Value)
			if err != nil {
				return nil, err
			}
			r.resolved[v.Index] = nv
			return nv, nil
		}
		ni := len(r.newRefs)
		r.newRefs = append(r.newRefs, nil)
		r.remap[v.Index] = ni
		nv, err := r.walk(v.Value)
		if err != nil {
			return nil, err
		}
		r.newRefs[ni] = nv
		sr := StoreRef{Index: ni, Value: nv}
		r.resolved[v.Index] = sr
		return sr, nil

	case Ref:
		if r.cyclic[v.Index] {
			return Ref{Index: r.remap[v.Index]}, nil
		}
		if done, ok := r.resolved[v.Index]; ok {
			return done, nil
		}
		// a ref into table entries outside obj itself; resolve from
		// the table, which only works when no cycle runs through it
		if r.active[v.Index] {
			return nil, ErrCyclicRef
		}
		target, ok := r.refs.Get(v.Index)
		if !ok || target == nil {
			return nil, &RefError{Index: v.Index}
		}
		r.active[v.Index] = true
		nv, err := r.walk(target)
		delete(r.active, v.Index)
		if err != nil {
			return nil, err
		}
		r.resolved[v.Index] = nv
		return nv, nil

	case Tuple:
		items, err := r.walkItems(v.Items)
		if err != nil {
			return nil, err
		}
		return Tuple{Items: items, Kind: v.Kind}, nil
	case List:
		items, err := r.walkItems(v)
		if err != nil {
			return nil, err
		}
		return List(items), nil
	case Set:
		items, err := r.walkItems(v)
		if err != nil {
			return nil, err
		}
		return Set(items), nil
	case FrozenSet:
		items, err := r.walkItems(v)
		if err != nil {
			return nil, err
		}
		return FrozenSet(items), nil

	case Dict:
		nd := NewDictWithSizeHint(v.Len())
		for _, kv := range v.Items() {
			nk, err := r.walk(kv.Key)
			if err != nil {
				return nil, err
			}
			if !hashable(nk) {
				return nil, errUnhashableKey
			}
			nv, err := r.walk(kv.Value)
			if err != nil {
				return nil, err
			}
			nd.Set(nk, nv)
		}
		return nd, nil

	case *Code310:
		nc := *v
		for _, f := range []*Object{
			&nc.Code, &nc.Consts, &nc.Names, &nc.VarNames, &nc.FreeVars,
			&nc.CellVars, &nc.Filename, &nc.Name, &nc.LNoTab,
		} {
			nf, err := r.walk(*f)
			if err != nil {
				return nil, err
			}
			*f = nf
		}
		return &nc, nil
	case *Code311:
		nc := *v
		for _, f := range []*Object{
			&nc.Code, &nc.Consts, &nc.Names, &nc.LocalsPlusNames,
			&nc.LocalsPlusKinds, &nc.Filename, &nc.Name, &nc.QualName,
			&nc.LineTable, &nc.ExceptionTable,
		} {
			nf, err := r.walk(*f)
			if err != nil {
				return nil, err
			}
			*f = nf
		}
		return &nc, nil
	}

	return obj, nil
}

func (r *refResolver) walkItems(items []Object) ([]Object, error) {
	out := make([]Object, len(items))
	for i, item := range items {
		n, err := r.walk(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

package ir

import (
	"fmt"

	"github.com/gogpu/wgslcore/types"
)

// IndexedType returns the type of an access on an object of type obj with
// the given indices. Accesses through a pointer produce a pointer with the
// same address space and access mode. Struct members must be selected by
// constant indices.
func IndexedType(tm *types.Manager, obj types.Type, indices []Value) (types.Type, error) {
	ptr, isPtr := obj.(*types.Pointer)
	cur := obj
	if isPtr {
		cur = ptr.Store
	}
	for n, idx := range indices {
		if _, ok := cur.(*types.Struct); ok {
			i, ok := ConstIndex(idx)
			if !ok {
				return nil, fmt.Errorf("index %d into '%s' is not a constant", n, cur)
			}
			next := types.ElementAt(cur, i)
			if next == nil {
				return nil, fmt.Errorf("member index %d out of range for '%s'", i, cur)
			}
			cur = next
			continue
		}
		if i, ok := ConstIndex(idx); ok {
			next := types.ElementAt(cur, i)
			if next == nil {
				return nil, fmt.Errorf("index %d out of range for '%s'", i, cur)
			}
			cur = next
			continue
		}
		if !types.IsIndexable(cur) {
			return nil, fmt.Errorf("cannot index '%s'", cur)
		}
		if idx.Type() == nil || !types.IsInteger(idx.Type()) {
			return nil, fmt.Errorf("index %d is not an integer", n)
		}
		cur = types.ElementAt(cur, 0)
	}
	if isPtr {
		return tm.Ptr(ptr.Space, cur, ptr.Access), nil
	}
	return cur, nil
}

// LoadedType returns the store type of a pointer, or nil.
func LoadedType(t types.Type) types.Type {
	if p, ok := t.(*types.Pointer); ok {
		return p.Store
	}
	return nil
}

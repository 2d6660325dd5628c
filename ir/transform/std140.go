package transform

import (
	"fmt"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/ir/accesschain"
	"github.com/gogpu/wgslcore/types"
)

const std140Name = "std140"

// Std140 decomposes matrices whose column stride is not a multiple of 16
// bytes, such as matCx2<f32> and the f16 matrices, when they are members
// of structures held in uniform buffers. Each such matrix member m becomes
// the column members m_col0, m_col1, ..., and the structure is re-minted
// with the suffix _std140.
//
// Loads through the buffer are rebuilt: a load of a decomposed matrix
// loads its columns and constructs the matrix, an access into a decomposed
// matrix constructs the matrix and indexes the value, and a load of a
// structure holding decomposed matrices calls a generated convert_<name>
// helper. Matrices that are not structure members are left unchanged.
func Std140(m *ir.Module) error {
	s := &std140{
		m:          m,
		b:          ir.NewBuilder(m),
		tm:         m.Types,
		structs:    make(map[*types.Struct]*types.Struct),
		index:      make(map[*types.Struct][]uint32),
		converters: make(map[*types.Struct]*ir.Function),
	}
	for _, inst := range m.Root.Instructions() {
		v, ok := inst.(*ir.Var)
		if !ok {
			continue
		}
		p := v.Pointer()
		if p == nil || p.Space != types.SpaceUniform {
			continue
		}
		store := s.rewriteType(p.Store)
		if store == p.Store {
			continue
		}
		if err := s.rewriteVar(v, s.tm.Ptr(p.Space, store, p.Access)); err != nil {
			return err
		}
	}
	return nil
}

type std140 struct {
	m  *ir.Module
	b  *ir.Builder
	tm *types.Manager
	// structs maps each visited struct to its decomposed form, or to itself.
	structs map[*types.Struct]*types.Struct
	// index maps the member indices of a decomposed struct to the indices
	// in its replacement.
	index      map[*types.Struct][]uint32
	converters map[*types.Struct]*ir.Function
}

func decomposedMatrix(t types.Type) (*types.Matrix, bool) {
	mat, ok := t.(*types.Matrix)
	if !ok || !types.MatrixNeedsDecomposition(mat) {
		return nil, false
	}
	return mat, true
}

func (s *std140) rewriteType(t types.Type) types.Type {
	switch tt := t.(type) {
	case *types.Struct:
		return s.rewriteStruct(tt)
	case *types.Array:
		if el := s.rewriteType(tt.Elem); el != tt.Elem {
			return s.tm.Array(el, tt.Count)
		}
	}
	return t
}

func (s *std140) rewriteStruct(st *types.Struct) *types.Struct {
	if r, ok := s.structs[st]; ok {
		return r
	}
	changed := false
	index := make([]uint32, len(st.Members))
	var members []types.MemberDesc
	for j, m := range st.Members {
		index[j] = uint32(len(members))
		if mat, ok := decomposedMatrix(m.Type); ok {
			changed = true
			for c := range mat.Columns {
				col := types.MemberDesc{Name: fmt.Sprintf("%s_col%d", m.Name, c), Type: mat.ColumnType}
				if c == 0 {
					col.Align = m.Align
				}
				if c == mat.Columns-1 {
					if size := m.Size - (mat.Columns-1)*mat.ColumnStride(); size != mat.ColumnType.Size() {
						col.Size = size
					}
				}
				members = append(members, col)
			}
			continue
		}
		mt := s.rewriteType(m.Type)
		if mt != m.Type {
			changed = true
		}
		members = append(members, types.MemberDesc{Name: m.Name, Type: mt, Align: m.Align, Size: m.Size, Attrs: m.Attrs})
	}
	if !changed {
		s.structs[st] = st
		return st
	}
	ns := s.tm.MintStruct(st.Name+"_std140", members)
	ns.Flags = st.Flags
	s.structs[st] = ns
	s.index[st] = index
	return ns
}

// memberIndex maps member j of the original struct st.
func (s *std140) memberIndex(st *types.Struct, j uint32) uint32 {
	if idx, ok := s.index[st]; ok {
		return idx[j]
	}
	return j
}

func (s *std140) isDecomposed(parent types.Type, step accesschain.Step) bool {
	st, ok := parent.(*types.Struct)
	if !ok || step.Kind != accesschain.Member {
		return false
	}
	if _, ok := s.index[st]; !ok {
		return false
	}
	_, ok = decomposedMatrix(st.Members[step.Index].Type)
	return ok
}

func (s *std140) rewriteVar(v *ir.Var, ptr *types.Pointer) error {
	var leaves []ir.Instruction
	if err := collectLoads(v.Result(), &leaves); err != nil {
		return err
	}
	// The rebuilt accesses are rooted on the var too; only the original
	// users have to be gone once every leaf is rewritten.
	var users []ir.Instruction
	for _, u := range v.Result().Usages() {
		users = append(users, u.Instruction)
	}
	opts := accesschain.Options{
		Root:       func(r ir.Value) bool { return r == ir.Value(v.Result()) },
		Decomposed: s.isDecomposed,
	}
	for _, leaf := range leaves {
		c, ok := accesschain.Analyze(leaf.Result(), opts)
		if !ok {
			return diag.NewInternalError(std140Name, "cannot trace '%s' back to its uniform buffer", leaf.Name())
		}
		if err := s.rewriteLeaf(leaf, c, ptr); err != nil {
			return err
		}
	}
	for _, u := range users {
		if u.Alive() {
			return diag.NewInternalError(std140Name, "'%s' of the uniform buffer survived rewriting", u.Name())
		}
	}
	v.Result().SetType(ptr)
	return nil
}

// collectLoads gathers the loads reached from the pointer p through
// accesses and lets.
func collectLoads(p ir.Value, out *[]ir.Instruction) error {
	for _, u := range p.Usages() {
		switch inst := u.Instruction.(type) {
		case *ir.Access:
			if err := collectLoads(inst.Result(), out); err != nil {
				return err
			}
		case *ir.Let:
			if err := collectLoads(inst.Result(), out); err != nil {
				return err
			}
		case *ir.Load, *ir.LoadVectorElement:
			*out = append(*out, inst)
		default:
			return diag.NewInternalError(std140Name, "unsupported use '%s' of a uniform buffer pointer", inst.Name())
		}
	}
	return nil
}

func (s *std140) rewriteLeaf(leaf ir.Instruction, c *accesschain.Chain, root *types.Pointer) error {
	end := len(c.Steps)
	_, isElem := leaf.(*ir.LoadVectorElement)
	cut := end
	if isElem {
		cut--
	}
	if c.DecomposedAt >= 0 {
		cut = c.DecomposedAt
	}

	indices := make([]ir.Value, cut)
	for i, step := range c.Steps[:cut] {
		indices[i] = step.Value
		if step.Kind == accesschain.Member {
			indices[i] = s.b.U32(s.memberIndex(c.TypeAt(i-1).(*types.Struct), step.Index))
		}
	}
	ptrType, err := ir.IndexedType(s.tm, root, indices)
	if err != nil {
		return diag.WrapInternal(std140Name, err)
	}

	var val ir.Value
	s.b.InsertBefore(leaf, func() {
		var ptr ir.Value = c.Root
		if len(indices) > 0 {
			ptr = s.b.Access(ptrType, c.Root, anys(indices)...).Result()
		}
		switch {
		case c.DecomposedAt >= 0:
			st := c.TypeAt(cut - 1).(*types.Struct)
			first := s.memberIndex(st, c.Steps[cut].Index)
			mat := c.DecomposedType.(*types.Matrix)
			val = s.loadColumns(ptr, ptrType.(*types.Pointer), first, mat)
			if rest := c.Indices(cut+1, end); len(rest) > 0 {
				val = s.b.Access(c.TypeAt(end-1), val, anys(rest)...).Result()
			}
		case isElem:
			val = s.b.LoadVectorElement(ptr, c.Steps[end-1].Value).Result()
		default:
			ld := s.b.Load(ptr).Result()
			// The root still carries its old type until every use is rebuilt.
			ld.SetType(ir.LoadedType(ptrType))
			val = s.convert(ld, c.TypeAt(end-1))
		}
	})
	leaf.Result().ReplaceAllUsesWith(val)
	leaf.Destroy()
	for _, inst := range c.Through[1:] {
		if inst.Alive() && !inst.Result().IsUsed() {
			inst.Destroy()
		}
	}
	return nil
}

// loadColumns loads the columns first, first+1, ... of the struct behind
// ptr and constructs mat from them.
func (s *std140) loadColumns(ptr ir.Value, structPtr *types.Pointer, first uint32, mat *types.Matrix) ir.Value {
	colPtr := s.tm.Ptr(structPtr.Space, mat.ColumnType, structPtr.Access)
	cols := make([]ir.Value, mat.Columns)
	for i := range cols {
		p := s.b.Access(colPtr, ptr, first+uint32(i))
		cols[i] = s.b.Load(p.Result()).Result()
	}
	return s.b.Construct(mat, cols...).Result()
}

// convert turns v, a value of a decomposed type, into a value of orig.
func (s *std140) convert(v ir.Value, orig types.Type) ir.Value {
	if v.Type() == orig {
		return v
	}
	switch ot := orig.(type) {
	case *types.Struct:
		return s.b.CallFunc(s.converter(ot), v).Result()
	case *types.Array:
		el := types.ElementAt(v.Type(), 0)
		elems := make([]ir.Value, ot.Count)
		for i := range elems {
			e := s.b.Access(el, v, uint32(i))
			elems[i] = s.convert(e.Result(), ot.Elem)
		}
		return s.b.Construct(ot, elems...).Result()
	}
	return v
}

// converter returns the helper function converting the decomposed form of
// st back to st.
func (s *std140) converter(st *types.Struct) *ir.Function {
	if f, ok := s.converters[st]; ok {
		return f
	}
	ns := s.structs[st]
	f := s.b.Function("convert_"+st.Name, st, ir.StageNone)
	s.converters[st] = f
	val := s.b.FunctionParam("val", ns)
	f.SetParams(val)

	s.b.Append(f.Block, func() {
		members := make([]ir.Value, len(st.Members))
		for j, m := range st.Members {
			idx := s.memberIndex(st, uint32(j))
			if mat, ok := decomposedMatrix(m.Type); ok {
				cols := make([]ir.Value, mat.Columns)
				for c := range cols {
					cols[c] = s.b.Access(mat.ColumnType, val, idx+uint32(c)).Result()
				}
				members[j] = s.b.Construct(mat, cols...).Result()
				continue
			}
			e := s.b.Access(ns.Members[idx].Type, val, idx)
			members[j] = s.convert(e.Result(), m.Type)
		}
		s.b.Return(f, s.b.Construct(st, members...).Result())
	})
	return f
}

// Package layout computes ABI layout (size, alignment, field offsets) for
// Blood's semantic types, feeding the layout information the definition
// table hands to code generation (§6.3): an Engine over a target
// description with a memoizing cache keyed by TypeID.
package layout

import (
	"blood/internal/hir"
	"blood/internal/types"
)

// Target describes the machine model layout computes against.
type Target struct {
	PtrSize  int // bytes
	PtrAlign int
}

// Target64 is the default 64-bit target.
var Target64 = Target{PtrSize: 8, PtrAlign: 8}

// TypeLayout is the computed layout of one type.
type TypeLayout struct {
	Size  int
	Align int

	// Struct/tuple only.
	FieldOffsets []int

	// Enum only: the discriminant word and where payloads start.
	TagSize       int
	PayloadOffset int
}

// Engine computes and caches layouts.
type Engine struct {
	target Target
	tin    *types.Interner
	m      *hir.Module

	cache map[types.TypeID]TypeLayout
}

// New creates an Engine for a module's types.
func New(target Target, tin *types.Interner, m *hir.Module) *Engine {
	return &Engine{
		target: target,
		tin:    tin,
		m:      m,
		cache:  make(map[types.TypeID]TypeLayout, 64),
	}
}

// Of returns the layout of a type.
func (e *Engine) Of(id types.TypeID) TypeLayout {
	if cached, ok := e.cache[id]; ok {
		return cached
	}
	// Seed with a pointer-shaped guess to terminate recursive types; the
	// fixed answer overwrites it below.
	e.cache[id] = e.ptrLayout()
	l := e.compute(id, 0)
	e.cache[id] = l
	return l
}

// SizeOf is shorthand for Of(id).Size.
func (e *Engine) SizeOf(id types.TypeID) int { return e.Of(id).Size }

// AlignOf is shorthand for Of(id).Align.
func (e *Engine) AlignOf(id types.TypeID) int { return e.Of(id).Align }

func (e *Engine) ptrLayout() TypeLayout {
	return TypeLayout{Size: e.target.PtrSize, Align: e.target.PtrAlign}
}

func scalar(n int) TypeLayout { return TypeLayout{Size: n, Align: n} }

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + align - rem
}

func (e *Engine) compute(id types.TypeID, depth int) TypeLayout {
	if id == types.NoTypeID || depth > 32 {
		return TypeLayout{Size: 0, Align: 1}
	}
	if cached, ok := e.cache[id]; ok && depth > 0 {
		return cached
	}
	t := e.tin.Get(id)
	switch t.Kind {
	case types.KindUnit, types.KindNever:
		return TypeLayout{Size: 0, Align: 1}
	case types.KindError:
		return TypeLayout{Size: 0, Align: 1}
	case types.KindBool:
		return scalar(1)
	case types.KindInt, types.KindUint:
		if t.Width == types.WidthSize || t.Width == types.WidthAny {
			return e.ptrLayout()
		}
		return scalar(int(t.Width) / 8)
	case types.KindFloat:
		return scalar(int(t.Width) / 8)
	case types.KindStr, types.KindSlice:
		// Pointer + length pair.
		return TypeLayout{Size: 2 * e.target.PtrSize, Align: e.target.PtrAlign}
	case types.KindRef:
		// Generational reference: address plus generation word (§1(b)).
		return TypeLayout{Size: 2 * e.target.PtrSize, Align: e.target.PtrAlign}
	case types.KindPtr, types.KindFn:
		return e.ptrLayout()
	case types.KindLinear, types.KindAffine:
		return e.compute(t.Elem, depth+1)
	case types.KindArrayFixed:
		elem := e.compute(t.Elem, depth+1)
		return TypeLayout{Size: alignUp(elem.Size, elem.Align) * int(t.Count), Align: elem.Align}
	case types.KindTuple:
		fields := make([]types.TypeID, len(t.Args))
		copy(fields, t.Args)
		return e.recordLayout(fields, depth)
	case types.KindRecord:
		fields := make([]types.TypeID, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = f.Type
		}
		return e.recordLayout(fields, depth)
	case types.KindNamed:
		return e.namedLayout(t, depth)
	case types.KindVar, types.KindForall:
		// An unsolved type reaching layout means the definition is generic;
		// its layout is decided per instantiation, so report pointer shape.
		return e.ptrLayout()
	default:
		return TypeLayout{Size: 0, Align: 1}
	}
}

func (e *Engine) recordLayout(fields []types.TypeID, depth int) TypeLayout {
	out := TypeLayout{Align: 1, FieldOffsets: make([]int, len(fields))}
	off := 0
	for i, f := range fields {
		fl := e.compute(f, depth+1)
		off = alignUp(off, fl.Align)
		out.FieldOffsets[i] = off
		off += fl.Size
		if fl.Align > out.Align {
			out.Align = fl.Align
		}
	}
	out.Size = alignUp(off, out.Align)
	return out
}

func (e *Engine) namedLayout(t types.Type, depth int) TypeLayout {
	if sd := e.m.StructByDef(t.Def); sd != nil {
		fields := make([]types.TypeID, len(sd.Fields))
		for i, f := range sd.Fields {
			fields[i] = f.Type
		}
		return e.recordLayout(fields, depth)
	}
	if ed := e.m.EnumByDef(t.Def); ed != nil {
		// Tag word, then the largest payload aligned after it.
		tag := 4
		maxSize, maxAlign := 0, 1
		for _, v := range ed.Variants {
			var fields []types.TypeID
			fields = append(fields, v.Payload...)
			for _, f := range v.Fields {
				fields = append(fields, f.Type)
			}
			vl := e.recordLayout(fields, depth)
			if vl.Size > maxSize {
				maxSize = vl.Size
			}
			if vl.Align > maxAlign {
				maxAlign = vl.Align
			}
		}
		payloadOff := alignUp(tag, maxAlign)
		align := maxAlign
		if tag > align {
			align = tag
		}
		return TypeLayout{
			Size:          alignUp(payloadOff+maxSize, align),
			Align:         align,
			TagSize:       tag,
			PayloadOffset: payloadOff,
		}
	}
	return e.ptrLayout()
}

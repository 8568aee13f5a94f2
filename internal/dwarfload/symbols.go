// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfload

import (
	"debug/dwarf"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

// subprogram converts a subprogram with code into a procedure and
// walks its scopes. Declarations and abstract instances have no code
// and are skipped.
func (l *loader) subprogram(r *dwarf.Reader, e *dwarf.Entry, ctx walkCtx) error {
	ranges, err := l.d.Ranges(e)
	if err != nil {
		return err
	}
	vr := l.voffRanges(ranges)
	if len(vr) == 0 {
		r.SkipChildren()
		return nil
	}

	a := l.attrs(e)
	proc := l.m.NewProcedure()
	proc.Name = a.name
	if proc.Name != "" {
		proc.Name = ctx.ns + proc.Name
	}
	proc.LinkName = a.linkName
	proc.IsExtern = a.external
	proc.ContainerSymbol = ctx.proc
	proc.Offset = vr[0].Min
	if low, ok := e.Val(dwarf.AttrLowpc).(uint64); ok && low >= l.cfg.ImageBase {
		proc.Offset = low - l.cfg.ImageBase
	}
	if proc.LinkName == "" {
		proc.LinkName = l.cfg.LinkNames[proc.Offset]
	}
	if fb, ok := e.Val(dwarf.AttrFrameBase).([]byte); ok {
		if loc := l.convertExpr(fb); loc != nil {
			proc.FrameBase = []rdim.LocationCase{{Location: loc}}
		} else {
			l.unsupported++
		}
	}

	ret, err := l.typeRef(a)
	if err != nil {
		return err
	}
	root := l.m.NewScope(proc, nil)
	root.VoffRanges = vr
	var params []*rdim.Type
	inner := walkCtx{unit: ctx.unit, ns: ctx.ns, proc: proc, scope: root, params: &params}
	if err := l.children(r, e, inner); err != nil {
		return err
	}
	proc.Type = l.funcType(ret, params)
	return nil
}

// block converts a lexical block or inlined call into a child scope.
func (l *loader) block(r *dwarf.Reader, e *dwarf.Entry, ctx walkCtx) error {
	ranges, err := l.d.Ranges(e)
	if err != nil {
		return err
	}
	s := l.m.NewScope(ctx.proc, ctx.scope)
	s.VoffRanges = l.voffRanges(ranges)
	if e.Tag == dwarf.TagInlinedSubroutine {
		site := l.m.NewInlineSite()
		a := l.attrs(e)
		site.Name = a.name
		if a.origin != 0 {
			if site.Type, err = l.declFuncType(a); err != nil {
				return err
			}
		}
		s.InlineSite = site
	}
	ctx.scope = s
	ctx.params = nil
	return l.children(r, e, ctx)
}

// declFuncType returns the type of the function declared at a's
// origin.
func (l *loader) declFuncType(a declAttrs) (*rdim.Type, error) {
	_, kids, err := l.entryAt(a.origin)
	if err != nil {
		return nil, err
	}
	ret, err := l.typeRef(a)
	if err != nil {
		return nil, err
	}
	params, err := l.paramTypes(kids)
	if err != nil {
		return nil, err
	}
	return l.funcType(ret, params), nil
}

func (l *loader) funcType(ret *rdim.Type, params []*rdim.Type) *rdim.Type {
	t := l.m.NewType(rdi.TypeKindFunction)
	t.DirectType = ret
	t.ParamTypes = params
	return t
}

// variable converts a variable, parameter, or constant. Inside a
// procedure, variables with static storage become globals scoped to
// the procedure and everything else becomes a local of the scope.
func (l *loader) variable(e *dwarf.Entry, ctx walkCtx) error {
	a := l.attrs(e)
	typ, err := l.typeRef(a)
	if err != nil {
		return err
	}
	name := a.name
	if ctx.proc == nil && name != "" {
		name = ctx.ns + name
	}
	locVal := e.Val(dwarf.AttrLocation)
	expr, hasExpr := locVal.([]byte)
	constVal := e.Val(dwarf.AttrConstValue)

	if hasExpr {
		if off, ok := tlsOffset(expr); ok {
			tv := l.m.NewThreadVariable()
			l.setSymbol(tv, name, a, typ, ctx)
			tv.Offset = off
			return nil
		}
		if addr, ok := l.staticAddr(expr); ok && addr >= l.cfg.ImageBase {
			gv := l.m.NewGlobalVariable()
			l.setSymbol(gv, name, a, typ, ctx)
			gv.Offset = addr - l.cfg.ImageBase
			return nil
		}
	}
	if constVal != nil && locVal == nil && e.Tag != dwarf.TagFormalParameter {
		c := l.m.NewConstant()
		l.setSymbol(c, name, a, typ, ctx)
		c.Value = constBytes(constVal, typ)
		return nil
	}

	if ctx.scope == nil {
		if hasExpr {
			l.unsupported++
		}
		return nil
	}
	local := rdim.Local{Kind: rdi.LocalVariable, Name: name, Type: typ}
	if e.Tag == dwarf.TagFormalParameter {
		local.Kind = rdi.LocalParameter
		if ctx.params != nil && ctx.scope == ctx.proc.RootScope {
			*ctx.params = append(*ctx.params, typ)
		}
	}
	switch {
	case hasExpr:
		if loc := l.convertExpr(expr); loc != nil {
			local.Locations = []rdim.LocationCase{{Location: loc}}
		} else {
			l.unsupported++
		}
	case locVal != nil:
		// Location list.
		l.unsupported++
	}
	ctx.scope.Locals = append(ctx.scope.Locals, local)
	return nil
}

func (l *loader) setSymbol(s *rdim.Symbol, name string, a declAttrs, typ *rdim.Type, ctx walkCtx) {
	s.Name = name
	s.LinkName = a.linkName
	s.IsExtern = a.external
	s.Type = typ
	s.ContainerSymbol = ctx.proc
}

// constBytes returns the little-endian bytes of a DW_AT_const_value.
// Integers take the size of their type.
func constBytes(v any, typ *rdim.Type) []byte {
	switch v := v.(type) {
	case int64:
		size := 8
		if typ != nil && typ.ByteSize > 0 && typ.ByteSize < 8 {
			size = int(typ.ByteSize)
		}
		buf := le.AppendUint64(nil, uint64(v))
		return buf[:size]
	case []byte:
		return append([]byte(nil), v...)
	case string:
		return []byte(v)
	}
	return nil
}

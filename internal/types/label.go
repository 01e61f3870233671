package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Label renders id as a human-readable type expression, used by
// diagnostics (§6.2) and golden-file dumps. Recursive with a depth cap so
// a cyclic or pathologically deep type reaching the formatter cannot hang
// it.
func Label(in *Interner, id TypeID) string {
	return labelDepth(in, id, 0)
}

func labelDepth(in *Interner, id TypeID, depth int) string {
	if id == NoTypeID {
		return "?"
	}
	if depth > 12 {
		return "..."
	}
	t := in.Get(id)
	switch t.Kind {
	case KindError:
		return "<error>"
	case KindNever:
		return "never"
	case KindUnit:
		return "()"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindInt:
		return formatIntType(t.Width, true)
	case KindUint:
		return formatIntType(t.Width, false)
	case KindFloat:
		return formatFloatType(t.Width)
	case KindTuple:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = labelDepth(in, a, depth+1)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindArrayFixed:
		return fmt.Sprintf("[%s; %d]", labelDepth(in, t.Elem, depth+1), t.Count)
	case KindSlice:
		return "[" + labelDepth(in, t.Elem, depth+1) + "]"
	case KindPtr:
		if t.Mutable {
			return "*mut " + labelDepth(in, t.Elem, depth+1)
		}
		return "*" + labelDepth(in, t.Elem, depth+1)
	case KindRef:
		if t.Mutable {
			return "&mut " + labelDepth(in, t.Elem, depth+1)
		}
		return "&" + labelDepth(in, t.Elem, depth+1)
	case KindLinear:
		return "linear " + labelDepth(in, t.Elem, depth+1)
	case KindAffine:
		return "affine " + labelDepth(in, t.Elem, depth+1)
	case KindNamed:
		name := fmt.Sprintf("#%d", t.Def)
		if len(t.Args) == 0 {
			return name
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = labelDepth(in, a, depth+1)
		}
		return name + "<" + strings.Join(parts, ", ") + ">"
	case KindRecord:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Label + ": " + labelDepth(in, f.Type, depth+1)
		}
		body := strings.Join(parts, ", ")
		if t.RowVar != NoTypeVarID {
			if body != "" {
				body += " | "
			}
			body += "'r" + strconv.Itoa(int(t.RowVar))
		}
		return "{" + body + "}"
	case KindFn:
		parts := make([]string, len(t.Params))
		for i, a := range t.Params {
			parts[i] = labelDepth(in, a, depth+1)
		}
		row := labelRow(in, t.Effect)
		return fmt.Sprintf("fn(%s) -> %s / %s", strings.Join(parts, ", "), labelDepth(in, t.Ret, depth+1), row)
	case KindForall:
		vars := make([]string, len(t.ForallVars))
		for i, v := range t.ForallVars {
			vars[i] = "'" + strconv.Itoa(int(v))
		}
		return "forall " + strings.Join(vars, " ") + ". " + labelDepth(in, t.Body, depth+1)
	case KindVar:
		return "'" + strconv.Itoa(int(t.Var))
	default:
		return "<invalid>"
	}
}

func labelRow(in *Interner, r EffectRow) string {
	parts := make([]string, len(r.Effects))
	for i, e := range r.Effects {
		parts[i] = fmt.Sprintf("#%d", e)
	}
	body := strings.Join(parts, ", ")
	if tv, ok := r.TailVar(); ok {
		if body != "" {
			body += " | "
		}
		body += "'r" + strconv.Itoa(int(tv))
	}
	return "{" + body + "}"
}

func formatIntType(w Width, signed bool) string {
	prefix := "u"
	if signed {
		prefix = "i"
	}
	if w == WidthSize {
		if signed {
			return "isize"
		}
		return "usize"
	}
	return fmt.Sprintf("%s%d", prefix, w)
}

func formatFloatType(w Width) string {
	return fmt.Sprintf("f%d", w)
}

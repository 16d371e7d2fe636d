package vm

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Object and value printing
// ---------------------------------------------------------------------------

// ObjectString renders any heap object for display, dispatching on its type
// tag. Pure formatting; no failure modes.
//
//   - strings print their content verbatim
//   - functions print "<fn NAME>", or "<script>" when anonymous
//   - closures and bound methods print as their wrapped function
//   - natives print "<native fn>" (never a name)
//   - classes print their name
//   - instances print "NAME instance"
func ObjectString(o Obj) string {
	switch o := o.(type) {
	case *ObjString:
		return o.String()
	case *ObjFunction:
		return functionString(o)
	case *ObjClosure:
		return functionString(o.function)
	case *ObjNative:
		return "<native fn>"
	case *ObjUpvalue:
		return "upvalue"
	case *ObjClass:
		return o.name.String()
	case *ObjInstance:
		return o.class.name.String() + " instance"
	case *ObjBoundMethod:
		return functionString(o.method.function)
	default:
		panic(fmt.Sprintf("ObjectString: unknown object type %T", o))
	}
}

func functionString(f *ObjFunction) string {
	if f.name == nil {
		return "<script>"
	}
	return "<fn " + f.name.String() + ">"
}

// ValueString renders any value for display. Object handles are resolved
// against the heap; a stale handle renders as a placeholder rather than
// panicking, since printing is used from debugging paths.
func (h *Heap) ValueString(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsTrue():
		return "true"
	case v.IsFalse():
		return "false"
	case v.IsSmallInt():
		return strconv.FormatInt(v.SmallInt(), 10)
	case v.IsFloat():
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case v.IsObject():
		o := h.Object(v)
		if o == nil {
			return "<stale handle>"
		}
		return ObjectString(o)
	default:
		return "<?>"
	}
}

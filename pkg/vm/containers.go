package vm

import "github.com/kristofer/kronos/pkg/value"

// execListGet implements LIST_GET polymorphically: positional indexing
// for a List, key lookup for a Map, single-character access for a String,
// and nth-element materialization for a Range. This is the resolution for
// the AST's Index node having no dedicated Map opcode: LIST_GET already
// carries a generic "receiver, key/index" shape that a Map's key lookup
// fits without a parallel MAP_GET instruction.
func (vm *VM) execListGet() error {
	idxOrKey := vm.pop()
	receiver := vm.pop()
	defer func() {
		vm.rt.Release(idxOrKey)
		vm.rt.Release(receiver)
	}()

	switch receiver.Tag() {
	case value.TagList:
		v, err := vm.rt.ListGet(receiver, int(idxOrKey.Number()))
		if err != nil {
			return vm.fatal("%s", err)
		}
		vm.rt.Retain(v)
		vm.push(v)
		return nil

	case value.TagMap:
		v, ok := vm.rt.MapGet(receiver, idxOrKey)
		if !ok {
			return vm.fatal("Undefined key in map lookup")
		}
		vm.rt.Retain(v)
		vm.push(v)
		return nil

	case value.TagString:
		n := receiver.StringLen()
		idx := int(idxOrKey.Number())
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return vm.fatal("list index out of range: %d", idx)
		}
		vm.push(vm.rt.NewString(receiver.Bytes()[idx : idx+1]))
		return nil

	case value.TagRange:
		start, _, step := receiver.RangeParts()
		n, _ := vm.rt.ListLen(receiver)
		idx := int(idxOrKey.Number())
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return vm.fatal("list index out of range: %d", idx)
		}
		vm.push(vm.rt.NewNumber(start + float64(idx)*step))
		return nil

	default:
		return vm.fatal("Type mismatch: cannot index a %s", receiver.Tag())
	}
}

// execListSet implements LIST_SET polymorphically: List mutation by
// position, Map mutation by key. String and Range are immutable, so
// mutation through either is fatal.
func (vm *VM) execListSet() error {
	v := vm.pop()
	idxOrKey := vm.pop()
	receiver := vm.pop()
	defer vm.rt.Release(receiver)

	switch receiver.Tag() {
	case value.TagList:
		err := vm.rt.ListSet(receiver, int(idxOrKey.Number()), v)
		vm.rt.Release(idxOrKey)
		vm.rt.Release(v)
		if err != nil {
			return vm.fatal("%s", err)
		}
		return nil

	case value.TagMap:
		vm.rt.MapSet(receiver, idxOrKey, v)
		vm.rt.Release(idxOrKey)
		vm.rt.Release(v)
		return nil

	default:
		vm.rt.Release(idxOrKey)
		vm.rt.Release(v)
		return vm.fatal("Type mismatch: cannot assign into a %s", receiver.Tag())
	}
}

// execListNext implements LIST_NEXT. Only Lists are iterable this way;
// Map/Range/String iteration is out of scope (the compiler only ever
// emits LIST_ITER/LIST_NEXT around a List-typed for-loop iterable).
func (vm *VM) execListNext() error {
	idx := vm.pop()
	list := vm.pop()
	if list.Tag() != value.TagList {
		vm.rt.Release(idx)
		vm.rt.Release(list)
		return vm.fatal("Type mismatch: for-loop iteration requires a list")
	}
	n := list.ListLen()
	idxN := int(idx.Number())
	vm.push(list)
	vm.push(vm.rt.NewNumber(float64(idxN + 1)))
	if idxN < n {
		item := list.Items()[idxN]
		vm.rt.Retain(item)
		vm.push(item)
		vm.push(vm.rt.NewBool(true))
	} else {
		vm.push(vm.rt.NewNil())
		vm.push(vm.rt.NewBool(false))
	}
	vm.rt.Release(idx)
	return nil
}

package matiria

import "fmt"

// Engine is the stack-based virtual machine: a single growable value
// stack shared by every call, with no separate frame stack — a
// function's frame base is simply `stackTop - argc` when it is
// entered, mirroring the original runtime/engine.c's approach and its
// reliance on host-stack recursion for nested calls.
type Engine struct {
	stack     []Value
	stackTop  int
	maxStack  int
	globals   []Value
	pkg       *Package
}

func NewEngine(pkg *Package, maxStack int) *Engine {
	return &Engine{
		stack:    make([]Value, 0, maxStack),
		maxStack: maxStack,
		pkg:      pkg,
	}
}

func (e *Engine) push(v Value) {
	if e.stackTop == len(e.stack) {
		e.stack = append(e.stack, v)
	} else {
		e.stack[e.stackTop] = v
	}
	e.stackTop++
	if e.stackTop > e.maxStack {
		panic(runtimeError{Message: "stack overflow"})
	}
}

func (e *Engine) pop() Value {
	e.stackTop--
	return e.stack[e.stackTop]
}

func (e *Engine) peek(distance int) Value {
	return e.stack[e.stackTop-1-distance]
}

// Run is mtr_execute: it pushes every package-level callable in
// registration order — their stack slots double as the global table
// GLOBAL_GET/GLOBAL_SET index into — then locates "main" and calls it
// with its own argc (always 0; main takes no parameters). That keeps
// main's frame base at stackTop (= the global count), above the global
// table rather than aliased onto it.
func (e *Engine) Run() (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(runtimeError); ok {
				err = re
				return
			}
			panic(r)
		}
	}()

	for _, callable := range e.pkg.Order {
		e.push(ObjValue(callable))
	}
	mainIdx, ok := e.pkg.IndexOf("main")
	if !ok {
		return Value{}, runtimeError{Message: "no 'main' function defined"}
	}
	main := e.pkg.Order[mainIdx]
	if err := main.call(e, 0); err != nil {
		return Value{}, err
	}
	return e.pop(), nil
}

// callChunk executes chunk's bytecode with its frame based argc slots
// below the current stack top, the way mtr_call does.
func (e *Engine) callChunk(chunk *Chunk, argc int) error {
	frame := e.stackTop - argc
	return e.callChunkFrame(chunk, frame, nil)
}

func (e *Engine) callClosure(c *ClosureObject, argc int) error {
	frame := e.stackTop - argc
	return e.callChunkFrame(c.Chunk, frame, c.Upvalues)
}

func (e *Engine) callChunkFrame(chunk *Chunk, frame int, upvalues []*Value) error {
	ip := 0
	code := chunk.Code
	for ip < len(code) {
		op := Op(code[ip])
		ip++
		switch op {
		case OpInt:
			idx := chunk.ReadU16(ip)
			ip += 2
			e.push(IntValue(chunk.Ints[idx]))
		case OpFloat:
			idx := chunk.ReadU16(ip)
			ip += 2
			e.push(FloatValue(chunk.Floats[idx]))
		case OpTrue:
			e.push(BoolValue(true))
		case OpFalse:
			e.push(BoolValue(false))
		case OpNil:
			e.push(Value{})
		case OpStringLiteral:
			idx := chunk.ReadU16(ip)
			ip += 2
			e.push(ObjValue(NewStringObject(chunk.Strings[idx])))
		case OpEmptyString:
			e.push(ObjValue(NewStringObject("")))
		case OpEmptyArray:
			e.push(ObjValue(NewArrayObject(nil)))
		case OpEmptyMap:
			e.push(ObjValue(NewMapObject()))
		case OpArrayLiteral:
			count := int(chunk.ReadU16(ip))
			ip += 2
			elems := make([]Value, count)
			for i := 0; i < count; i++ {
				elems[i] = e.pop()
			}
			e.push(ObjValue(NewArrayObject(elems)))
		case OpMapLiteral:
			count := int(chunk.ReadU16(ip))
			ip += 2
			m := NewMapObject()
			for i := 0; i < count; i++ {
				k := e.pop()
				v := e.pop()
				m.Set(k, v)
			}
			e.push(ObjValue(m))

		case OpAddI:
			b, a := e.pop(), e.pop()
			e.push(IntValue(a.Int + b.Int))
		case OpSubI:
			b, a := e.pop(), e.pop()
			e.push(IntValue(a.Int - b.Int))
		case OpMulI:
			b, a := e.pop(), e.pop()
			e.push(IntValue(a.Int * b.Int))
		case OpDivI:
			b, a := e.pop(), e.pop()
			if b.Int == 0 {
				return runtimeError{Message: "division by zero"}
			}
			e.push(IntValue(a.Int / b.Int))
		case OpAddF:
			b, a := e.pop(), e.pop()
			e.push(FloatValue(a.Float + b.Float))
		case OpSubF:
			b, a := e.pop(), e.pop()
			e.push(FloatValue(a.Float - b.Float))
		case OpMulF:
			b, a := e.pop(), e.pop()
			e.push(FloatValue(a.Float * b.Float))
		case OpDivF:
			b, a := e.pop(), e.pop()
			e.push(FloatValue(a.Float / b.Float))

		case OpLessI:
			b, a := e.pop(), e.pop()
			e.push(BoolValue(a.Int < b.Int))
		case OpGreaterI:
			b, a := e.pop(), e.pop()
			e.push(BoolValue(a.Int > b.Int))
		case OpEqualI:
			b, a := e.pop(), e.pop()
			e.push(BoolValue(a.Int == b.Int))
		case OpLessF:
			b, a := e.pop(), e.pop()
			e.push(BoolValue(a.Float < b.Float))
		case OpGreaterF:
			b, a := e.pop(), e.pop()
			e.push(BoolValue(a.Float > b.Float))
		case OpEqualF:
			b, a := e.pop(), e.pop()
			e.push(BoolValue(a.Float == b.Float))
		case OpNot:
			a := e.pop()
			e.push(BoolValue(!a.Bool()))

		// OpAnd/OpOr only decide whether to jump past the RHS; the
		// explicit POP the emitter writes right after the jump operand
		// (reached only when falling through) is what drops the LHS
		// before the RHS is evaluated. Popping here too would discard
		// the wrong stack slot on the fallthrough path.
		case OpAnd:
			where := int16(chunk.ReadU16(ip))
			ip += 2
			if !e.peek(0).Bool() {
				ip += int(where)
			}
		case OpOr:
			where := int16(chunk.ReadU16(ip))
			ip += 2
			if e.peek(0).Bool() {
				ip += int(where)
			}

		case OpNegateI:
			a := e.pop()
			e.push(IntValue(-a.Int))
		case OpNegateF:
			a := e.pop()
			e.push(FloatValue(-a.Float))

		case OpGet:
			idx := int(chunk.ReadU16(ip))
			ip += 2
			e.push(e.stack[frame+idx])
		case OpSet:
			idx := int(chunk.ReadU16(ip))
			ip += 2
			e.stack[frame+idx] = e.peek(0)
		case OpGlobalGet:
			idx := int(chunk.ReadU16(ip))
			ip += 2
			e.push(e.stack[idx])
		case OpGlobalSet:
			idx := int(chunk.ReadU16(ip))
			ip += 2
			e.stack[idx] = e.peek(0)
		case OpUpvalueGet:
			idx := int(chunk.ReadU16(ip))
			ip += 2
			e.push(*upvalues[idx])
		case OpUpvalueSet:
			idx := int(chunk.ReadU16(ip))
			ip += 2
			*upvalues[idx] = e.peek(0)

		case OpIndexGet:
			index := e.pop()
			target := e.pop()
			v, err := e.indexGet(target, index)
			if err != nil {
				return err
			}
			e.push(v)
		case OpIndexSet:
			value := e.pop()
			index := e.pop()
			target := e.pop()
			if err := e.indexSet(target, index, value); err != nil {
				return err
			}
			e.push(value)
		case OpStructGet:
			field := int(chunk.ReadU16(ip))
			ip += 2
			target := e.pop()
			st := target.Obj.(*StructObject)
			e.push(st.Fields[field])
		case OpStructSet:
			field := int(chunk.ReadU16(ip))
			ip += 2
			value := e.pop()
			target := e.pop()
			st := target.Obj.(*StructObject)
			st.Fields[field] = value
			e.push(value)

		case OpJmp:
			where := int16(chunk.ReadU16(ip))
			ip += 2 + int(where)
		case OpJmpZ:
			where := int16(chunk.ReadU16(ip))
			ip += 2
			if !e.pop().Bool() {
				ip += int(where)
			}
		case OpCall:
			argc := int(code[ip])
			ip++
			callee := e.pop()
			if callee.Obj == nil {
				return runtimeError{Message: "call on non-callable value"}
			}
			if err := callee.Obj.call(e, argc); err != nil {
				return err
			}
		case OpReturn:
			result := e.pop()
			e.stackTop = frame
			e.push(result)
			return nil
		case OpPop:
			e.pop()
		case OpPopV:
			count := int(code[ip])
			ip++
			e.stackTop -= count

		case OpIntCast:
			a := e.pop()
			if a.Obj != nil {
				return runtimeError{Message: "cannot cast object to Int"}
			}
			e.push(IntValue(int64(a.Float)))
		case OpFloatCast:
			a := e.pop()
			e.push(FloatValue(float64(a.Int)))

		case OpConstructor:
			count := int(chunk.ReadU16(ip))
			ip += 2
			nameIdx := chunk.ReadU16(ip)
			ip += 2
			fields := make([]Value, count)
			for i := count - 1; i >= 0; i-- {
				fields[i] = e.pop()
			}
			e.push(ObjValue(&StructObject{TypeName: chunk.Strings[nameIdx], Fields: fields}))
		case OpClosure:
			protoIdx := int(chunk.ReadU16(ip))
			ip += 2
			upc := int(code[ip])
			ip++
			proto := e.pkg.ClosureProtos[protoIdx]
			ups := make([]*Value, upc)
			for i := 0; i < upc; i++ {
				isLocal := code[ip] != 0
				ip++
				idx := int(chunk.ReadU16(ip))
				ip += 2
				if isLocal {
					ups[i] = &e.stack[frame+idx]
				} else {
					ups[i] = upvalues[idx]
				}
			}
			e.push(ObjValue(NewClosureObject(proto, ups)))

		default:
			return runtimeError{Message: fmt.Sprintf("unknown opcode %d", op)}
		}
	}
	return nil
}

func (e *Engine) indexGet(target, index Value) (Value, error) {
	switch obj := target.Obj.(type) {
	case *ArrayObject:
		i := index.Int
		if i < 0 || int(i) >= len(obj.Elements) {
			return Value{}, runtimeError{Message: "array index out of bounds"}
		}
		return obj.Elements[i], nil
	case *MapObject:
		v, _ := obj.Get(index)
		return v, nil
	case *StringObject:
		return Value{}, runtimeError{Message: "string indexing not yet implemented"}
	default:
		return Value{}, runtimeError{Message: "value is not indexable"}
	}
}

func (e *Engine) indexSet(target, index, value Value) error {
	switch obj := target.Obj.(type) {
	case *ArrayObject:
		i := index.Int
		if i < 0 || int(i) >= len(obj.Elements) {
			return runtimeError{Message: "array index out of bounds"}
		}
		obj.Elements[i] = value
		return nil
	case *MapObject:
		obj.Set(index, value)
		return nil
	case *StringObject:
		return runtimeError{Message: "can't assign to string index"}
	default:
		return runtimeError{Message: "value is not indexable"}
	}
}

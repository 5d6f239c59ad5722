// Package image serializes compiled programs to CBOR so that `pychart build`
// output can be run later by `pychart exec` without the source.
package image

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"pychart/internal/code"
	"pychart/internal/object"
)

const Version = 1

// Ext is the file extension `pychart build` gives images.
const Ext = ".pcc"

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueString
)

type Value struct {
	Kind  ValueKind `cbor:"1,keyasint"`
	Bool  bool      `cbor:"2,keyasint,omitempty"`
	Int   int64     `cbor:"3,keyasint,omitempty"`
	Float float64   `cbor:"4,keyasint,omitempty"`
	Str   string    `cbor:"5,keyasint,omitempty"`
}

type Operand struct {
	Kind  uint8  `cbor:"1,keyasint"`
	Slot  int    `cbor:"2,keyasint,omitempty"`
	Name  string `cbor:"3,keyasint,omitempty"`
	Value *Value `cbor:"4,keyasint,omitempty"`
}

type Instruction struct {
	Op     uint8     `cbor:"1,keyasint"`
	Dst    Operand   `cbor:"2,keyasint"`
	Left   Operand   `cbor:"3,keyasint"`
	Right  Operand   `cbor:"4,keyasint"`
	Args   []Operand `cbor:"5,keyasint,omitempty"`
	Params []Operand `cbor:"6,keyasint,omitempty"`
	Target int       `cbor:"7,keyasint"`
	Label  string    `cbor:"8,keyasint,omitempty"`
	Length int       `cbor:"9,keyasint,omitempty"`
}

type Symbol struct {
	Slot   int    `cbor:"1,keyasint"`
	Name   string `cbor:"2,keyasint"`
	Global bool   `cbor:"3,keyasint,omitempty"`
}

// Body is the hashed part of an image.
type Body struct {
	File         string        `cbor:"1,keyasint,omitempty"`
	Symbols      []Symbol      `cbor:"2,keyasint"`
	Instructions []Instruction `cbor:"3,keyasint"`
}

type Image struct {
	Version int      `cbor:"1,keyasint"`
	Hash    [32]byte `cbor:"2,keyasint"`
	Body    Body     `cbor:"3,keyasint"`
}

// Marshal encodes prog. The encoding is deterministic.
func Marshal(prog *code.Program) ([]byte, error) {
	body, err := toBody(prog)
	if err != nil {
		return nil, err
	}
	hash, err := hashBody(&body)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&Image{Version: Version, Hash: hash, Body: body})
}

// Unmarshal decodes and validates an image.
func Unmarshal(data []byte) (*code.Program, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Version != Version {
		return nil, fmt.Errorf("image: unsupported version %d (want %d)", img.Version, Version)
	}
	hash, err := hashBody(&img.Body)
	if err != nil {
		return nil, err
	}
	if hash != img.Hash {
		return nil, fmt.Errorf("image: hash mismatch: declared %x, computed %x", img.Hash, hash)
	}
	return fromBody(&img.Body)
}

func hashBody(b *Body) ([32]byte, error) {
	data, err := cborEncMode.Marshal(b)
	if err != nil {
		return [32]byte{}, fmt.Errorf("image: marshal body: %w", err)
	}
	return sha256.Sum256(data), nil
}

func toBody(prog *code.Program) (Body, error) {
	body := Body{
		File:         prog.File,
		Symbols:      make([]Symbol, len(prog.Symbols)),
		Instructions: make([]Instruction, len(prog.Instructions)),
	}
	for i, s := range prog.Symbols {
		body.Symbols[i] = Symbol{Slot: s.Slot, Name: s.Name, Global: s.Global}
	}
	for i, ins := range prog.Instructions {
		wi, err := toInstruction(ins)
		if err != nil {
			return Body{}, fmt.Errorf("image: instruction %d: %w", i, err)
		}
		body.Instructions[i] = wi
	}
	return body, nil
}

func toInstruction(ins code.Instruction) (Instruction, error) {
	out := Instruction{
		Op:     uint8(ins.Op),
		Target: ins.Target,
		Label:  ins.Label,
		Length: ins.Length,
	}
	var err error
	if out.Dst, err = toOperand(ins.Dst); err != nil {
		return out, err
	}
	if out.Left, err = toOperand(ins.Left); err != nil {
		return out, err
	}
	if out.Right, err = toOperand(ins.Right); err != nil {
		return out, err
	}
	if out.Args, err = toOperands(ins.Args); err != nil {
		return out, err
	}
	if out.Params, err = toOperands(ins.Params); err != nil {
		return out, err
	}
	return out, nil
}

func toOperands(ops []code.Operand) ([]Operand, error) {
	if ops == nil {
		return nil, nil
	}
	out := make([]Operand, len(ops))
	for i, op := range ops {
		w, err := toOperand(op)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func toOperand(op code.Operand) (Operand, error) {
	out := Operand{Kind: uint8(op.Kind), Slot: op.Slot, Name: op.Name}
	if !op.IsValue() {
		return out, nil
	}
	v, err := toValue(op.Value)
	if err != nil {
		return out, err
	}
	out.Value = v
	return out, nil
}

func toValue(obj object.Object) (*Value, error) {
	switch v := obj.(type) {
	case *object.Null:
		return &Value{Kind: ValueNull}, nil
	case *object.Boolean:
		return &Value{Kind: ValueBool, Bool: v.Value}, nil
	case *object.Integer:
		return &Value{Kind: ValueInt, Int: v.Value}, nil
	case *object.Float:
		return &Value{Kind: ValueFloat, Float: v.Value}, nil
	case *object.String:
		return &Value{Kind: ValueString, Str: v.Value}, nil
	default:
		return nil, fmt.Errorf("cannot encode literal of type %s", obj.Type())
	}
}

func fromBody(b *Body) (*code.Program, error) {
	prog := &code.Program{
		File:         b.File,
		Symbols:      make([]code.Symbol, len(b.Symbols)),
		Instructions: make(code.Instructions, len(b.Instructions)),
	}
	for i, s := range b.Symbols {
		prog.Symbols[i] = code.Symbol{Slot: s.Slot, Name: s.Name, Global: s.Global}
	}
	for i, wi := range b.Instructions {
		ins, err := fromInstruction(wi)
		if err != nil {
			return nil, fmt.Errorf("image: instruction %d: %w", i, err)
		}
		if ins.IsJump() && (ins.Target < 0 || ins.Target > len(b.Instructions)) {
			return nil, fmt.Errorf("image: instruction %d: jump target %d out of range", i, ins.Target)
		}
		prog.Instructions[i] = ins
	}
	return prog, nil
}

func fromInstruction(wi Instruction) (code.Instruction, error) {
	op := code.Opcode(wi.Op)
	if _, ok := code.Lookup(op); !ok {
		return code.Instruction{}, fmt.Errorf("unknown opcode %d", wi.Op)
	}
	ins := code.Instruction{
		Op:     op,
		Target: wi.Target,
		Label:  wi.Label,
		Length: wi.Length,
	}
	var err error
	if ins.Dst, err = fromOperand(wi.Dst); err != nil {
		return ins, err
	}
	if ins.Left, err = fromOperand(wi.Left); err != nil {
		return ins, err
	}
	if ins.Right, err = fromOperand(wi.Right); err != nil {
		return ins, err
	}
	if ins.Args, err = fromOperands(wi.Args); err != nil {
		return ins, err
	}
	if ins.Params, err = fromOperands(wi.Params); err != nil {
		return ins, err
	}
	return ins, nil
}

func fromOperands(ops []Operand) ([]code.Operand, error) {
	if ops == nil {
		return nil, nil
	}
	out := make([]code.Operand, len(ops))
	for i, w := range ops {
		op, err := fromOperand(w)
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

func fromOperand(w Operand) (code.Operand, error) {
	switch code.OperandKind(w.Kind) {
	case code.KindAbsent:
		return code.Operand{}, nil
	case code.KindIdentifier:
		return code.Ident(w.Slot, w.Name), nil
	case code.KindValue:
		if w.Value == nil {
			return code.Operand{}, fmt.Errorf("literal operand without a value")
		}
		v, err := fromValue(*w.Value)
		if err != nil {
			return code.Operand{}, err
		}
		return code.Val(v), nil
	default:
		return code.Operand{}, fmt.Errorf("unknown operand kind %d", w.Kind)
	}
}

func fromValue(v Value) (object.Object, error) {
	switch v.Kind {
	case ValueNull:
		return object.NULL, nil
	case ValueBool:
		return object.NativeBool(v.Bool), nil
	case ValueInt:
		return &object.Integer{Value: v.Int}, nil
	case ValueFloat:
		return &object.Float{Value: v.Float}, nil
	case ValueString:
		return &object.String{Value: v.Str}, nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

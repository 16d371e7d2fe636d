package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Image format constants
// ---------------------------------------------------------------------------

// ImageMagic is the magic number identifying a Tarn heap image file.
var ImageMagic = [4]byte{'T', 'A', 'R', 'N'}

// ImageVersion is the current image format version.
// v1: initial format (strings, functions, classes, entry point)
const ImageVersion uint32 = 1

// imageHeaderSize is magic(4) + version(4).
const imageHeaderSize = 8

// ErrUnserializableValue reports a value that cannot appear in an image:
// anything other than scalars, strings, functions, and capture-free
// method closures.
var ErrUnserializableValue = errors.New("value cannot be serialized into an image")

// cborEncMode is the canonical encoding mode used for image bodies, so the
// same heap always produces byte-identical images.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ---------------------------------------------------------------------------
// Serialized forms
// ---------------------------------------------------------------------------

// imageValue kinds
const (
	imgKindNil uint8 = iota
	imgKindTrue
	imgKindFalse
	imgKindFloat
	imgKindInt
	imgKindString   // Index into the string table
	imgKindFunction // Index into the function table
)

type imageValue struct {
	Kind  uint8   `cbor:"k"`
	Float float64 `cbor:"f,omitempty"`
	Int   int64   `cbor:"i,omitempty"`
	Index uint32  `cbor:"x,omitempty"`
}

type imageFunction struct {
	Name         int32        `cbor:"name"` // string index, -1 for anonymous
	Arity        int          `cbor:"arity"`
	UpvalueCount int          `cbor:"upvalues"`
	Code         []byte       `cbor:"code"`
	Lines        []int        `cbor:"lines"`
	Constants    []imageValue `cbor:"constants"`
}

type imageMethod struct {
	Name     uint32 `cbor:"name"`
	Function uint32 `cbor:"function"`
}

type imageClass struct {
	Name    uint32        `cbor:"name"`
	Methods []imageMethod `cbor:"methods"`
}

type imageBody struct {
	Strings   [][]byte        `cbor:"strings"`
	Functions []imageFunction `cbor:"functions"`
	Classes   []imageClass    `cbor:"classes"`
	Entry     int32           `cbor:"entry"` // function index, -1 for none
}

// ---------------------------------------------------------------------------
// ImageWriter
// ---------------------------------------------------------------------------

// ImageWriter serializes a slice of the heap — interned strings, compiled
// functions (chunks included), and classes with their method tables — into
// a portable image: a fixed header followed by a canonical-CBOR body.
// Runtime-only state (instances, open upvalues, bound methods) does not
// belong in an image.
type ImageWriter struct {
	heap *Heap

	stringIndex map[*ObjString]uint32
	strings     []*ObjString

	funcIndex map[*ObjFunction]uint32
	functions []*ObjFunction

	classIndex map[*ObjClass]uint32
	classes    []*ObjClass
	entry      int32
}

// NewImageWriter creates an image writer over the given heap.
func NewImageWriter(h *Heap) *ImageWriter {
	return &ImageWriter{
		heap:        h,
		stringIndex: make(map[*ObjString]uint32),
		funcIndex:   make(map[*ObjFunction]uint32),
		classIndex:  make(map[*ObjClass]uint32),
		entry:       -1,
	}
}

// AddString registers an interned string and returns its table index.
func (w *ImageWriter) AddString(s *ObjString) uint32 {
	if idx, ok := w.stringIndex[s]; ok {
		return idx
	}
	idx := uint32(len(w.strings))
	w.stringIndex[s] = idx
	w.strings = append(w.strings, s)
	return idx
}

// AddFunction registers a function, its name, and every string or function
// reachable through its constant pool. Returns the function's table index.
func (w *ImageWriter) AddFunction(f *ObjFunction) (uint32, error) {
	if idx, ok := w.funcIndex[f]; ok {
		return idx, nil
	}
	idx := uint32(len(w.functions))
	w.funcIndex[f] = idx
	w.functions = append(w.functions, f)

	if f.name != nil {
		w.AddString(f.name)
	}
	for _, v := range f.chunk.Constants {
		if err := w.registerConstant(v); err != nil {
			return 0, fmt.Errorf("function %s: %w", ObjectString(f), err)
		}
	}
	return idx, nil
}

// AddClass registers a class and its method table. Method values must be
// functions or capture-free closures; anything else cannot round-trip
// through an image. Registering the same class again is a no-op.
func (w *ImageWriter) AddClass(c *ObjClass) error {
	if _, ok := w.classIndex[c]; ok {
		return nil
	}
	w.AddString(c.name)

	for _, m := range sortedMethods(&c.methods) {
		w.AddString(m.name)
		if _, err := w.methodFunction(m.value); err != nil {
			return fmt.Errorf("class %s, method %s: %w", c.name, m.name, err)
		}
	}
	w.classIndex[c] = uint32(len(w.classes))
	w.classes = append(w.classes, c)
	return nil
}

// methodEntry is a method-table entry lifted out of the map for encoding.
type methodEntry struct {
	name  *ObjString
	value Value
}

// sortedMethods returns a table's entries ordered by name bytes. Map
// iteration order is randomized, and canonical CBOR sorts map keys but not
// array elements, so the byte-identical-images guarantee needs the method
// arrays in a fixed order.
func sortedMethods(t *Table) []methodEntry {
	entries := make([]methodEntry, 0, t.Len())
	t.ForEach(func(name *ObjString, v Value) {
		entries = append(entries, methodEntry{name: name, value: v})
	})
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].name.chars, entries[j].name.chars) < 0
	})
	return entries
}

// SetEntry marks a function as the image's entry point. The function must
// already be registered or registrable.
func (w *ImageWriter) SetEntry(f *ObjFunction) error {
	idx, err := w.AddFunction(f)
	if err != nil {
		return err
	}
	w.entry = int32(idx)
	return nil
}

// registerConstant registers the table entries a constant value needs.
func (w *ImageWriter) registerConstant(v Value) error {
	if !v.IsObject() {
		return nil
	}
	switch o := w.heap.Object(v).(type) {
	case *ObjString:
		w.AddString(o)
		return nil
	case *ObjFunction:
		_, err := w.AddFunction(o)
		return err
	default:
		return ErrUnserializableValue
	}
}

// methodFunction resolves a method-table value to the function backing it,
// registering that function on the way.
func (w *ImageWriter) methodFunction(v Value) (uint32, error) {
	switch o := w.heap.Object(v).(type) {
	case *ObjFunction:
		return w.AddFunction(o)
	case *ObjClosure:
		if o.UpvalueCount() != 0 {
			return 0, ErrUnserializableValue
		}
		return w.AddFunction(o.function)
	default:
		return 0, ErrUnserializableValue
	}
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Bytes encodes the registered objects into image bytes.
func (w *ImageWriter) Bytes() ([]byte, error) {
	body := imageBody{
		Strings:   make([][]byte, len(w.strings)),
		Functions: make([]imageFunction, len(w.functions)),
		Classes:   make([]imageClass, 0, len(w.classes)),
		Entry:     w.entry,
	}

	for i, s := range w.strings {
		body.Strings[i] = s.chars
	}

	for i, f := range w.functions {
		imgFn := imageFunction{
			Name:         -1,
			Arity:        f.arity,
			UpvalueCount: f.upvalueCount,
			Code:         f.chunk.Code,
			Lines:        f.chunk.Lines,
			Constants:    make([]imageValue, len(f.chunk.Constants)),
		}
		if f.name != nil {
			imgFn.Name = int32(w.stringIndex[f.name])
		}
		for j, v := range f.chunk.Constants {
			iv, err := w.encodeValue(v)
			if err != nil {
				return nil, err
			}
			imgFn.Constants[j] = iv
		}
		body.Functions[i] = imgFn
	}

	for _, c := range w.classes {
		imgClass := imageClass{Name: w.stringIndex[c.name]}
		for _, m := range sortedMethods(&c.methods) {
			fnIdx, err := w.methodFunction(m.value)
			if err != nil {
				return nil, err
			}
			imgClass.Methods = append(imgClass.Methods, imageMethod{
				Name:     w.stringIndex[m.name],
				Function: fnIdx,
			})
		}
		body.Classes = append(body.Classes, imgClass)
	}

	payload, err := cborEncMode.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("vm: encode image body: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, imageHeaderSize+len(payload)))
	buf.Write(ImageMagic[:])
	var version [4]byte
	binary.BigEndian.PutUint32(version[:], ImageVersion)
	buf.Write(version[:])
	buf.Write(payload)
	return buf.Bytes(), nil
}

func (w *ImageWriter) encodeValue(v Value) (imageValue, error) {
	switch {
	case v.IsNil():
		return imageValue{Kind: imgKindNil}, nil
	case v.IsTrue():
		return imageValue{Kind: imgKindTrue}, nil
	case v.IsFalse():
		return imageValue{Kind: imgKindFalse}, nil
	case v.IsSmallInt():
		return imageValue{Kind: imgKindInt, Int: v.SmallInt()}, nil
	case v.IsFloat():
		return imageValue{Kind: imgKindFloat, Float: v.Float64()}, nil
	}
	switch o := w.heap.Object(v).(type) {
	case *ObjString:
		return imageValue{Kind: imgKindString, Index: w.stringIndex[o]}, nil
	case *ObjFunction:
		return imageValue{Kind: imgKindFunction, Index: w.funcIndex[o]}, nil
	default:
		return imageValue{}, ErrUnserializableValue
	}
}

// WriteTo encodes the image and writes it to wr.
func (w *ImageWriter) WriteTo(wr io.Writer) (int64, error) {
	data, err := w.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := wr.Write(data)
	return int64(n), err
}

// WriteFile encodes the image and writes it to path.
func (w *ImageWriter) WriteFile(path string) error {
	data, err := w.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

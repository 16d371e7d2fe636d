package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Image errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic    = errors.New("invalid magic number: expected TARN")
	ErrVersionMismatch = errors.New("image version mismatch")
	ErrCorruptImage    = errors.New("corrupt image data")
)

// ---------------------------------------------------------------------------
// LoadedImage
// ---------------------------------------------------------------------------

// LoadedImage is the result of loading an image into a heap: every object
// the image defined, already registered and interned.
type LoadedImage struct {
	Strings   []*ObjString
	Functions []*ObjFunction
	Classes   []*ObjClass
	Entry     *ObjFunction // nil if the image has no entry point
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadImage decodes image bytes into this heap. Strings are re-interned on
// the way in, so content already present deduplicates against the live
// intern table and the identity invariant holds across a save/load round
// trip. Class methods are rebuilt as capture-free closures.
func (h *Heap) LoadImage(data []byte) (*LoadedImage, error) {
	if len(data) < imageHeaderSize {
		return nil, fmt.Errorf("%w: truncated header", ErrCorruptImage)
	}
	if !bytes.Equal(data[0:4], ImageMagic[:]) {
		return nil, ErrInvalidMagic
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != ImageVersion {
		return nil, fmt.Errorf("%w: image is v%d, runtime reads v%d",
			ErrVersionMismatch, version, ImageVersion)
	}

	var body imageBody
	if err := cbor.Unmarshal(data[imageHeaderSize:], &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	img := &LoadedImage{
		Strings:   make([]*ObjString, len(body.Strings)),
		Functions: make([]*ObjFunction, len(body.Functions)),
		Classes:   make([]*ObjClass, 0, len(body.Classes)),
	}

	// Strings first: everything else refers to them by index. TakeString
	// hands the decoded buffers straight to the intern table.
	for i, chars := range body.Strings {
		img.Strings[i] = h.TakeString(chars)
	}

	// Two passes over functions: register them all first so constant pools
	// can refer to functions defined later in the table.
	type pending struct {
		fn  *ObjFunction
		src imageFunction
	}
	pendings := make([]pending, len(body.Functions))
	for i, src := range body.Functions {
		var name *ObjString
		if src.Name >= 0 {
			if int(src.Name) >= len(img.Strings) {
				return nil, fmt.Errorf("%w: function name index %d out of range", ErrCorruptImage, src.Name)
			}
			name = img.Strings[src.Name]
		}
		if src.Arity < 0 || src.UpvalueCount < 0 {
			return nil, fmt.Errorf("%w: negative arity or upvalue count", ErrCorruptImage)
		}
		chunk := &Chunk{
			Code:      src.Code,
			Lines:     src.Lines,
			Constants: make([]Value, len(src.Constants)),
		}
		img.Functions[i] = h.NewFunction(name, src.Arity, src.UpvalueCount, chunk)
		pendings[i] = pending{fn: img.Functions[i], src: src}
	}
	for _, p := range pendings {
		for j, iv := range p.src.Constants {
			v, err := decodeImageValue(iv, img)
			if err != nil {
				return nil, err
			}
			p.fn.chunk.Constants[j] = v
		}
	}

	for _, src := range body.Classes {
		if int(src.Name) >= len(img.Strings) {
			return nil, fmt.Errorf("%w: class name index %d out of range", ErrCorruptImage, src.Name)
		}
		class := h.NewClass(img.Strings[src.Name])
		for _, m := range src.Methods {
			if int(m.Name) >= len(img.Strings) {
				return nil, fmt.Errorf("%w: method name index %d out of range", ErrCorruptImage, m.Name)
			}
			if int(m.Function) >= len(img.Functions) {
				return nil, fmt.Errorf("%w: method function index %d out of range", ErrCorruptImage, m.Function)
			}
			fn := img.Functions[m.Function]
			if fn.upvalueCount != 0 {
				return nil, fmt.Errorf("%w: method %s carries captures", ErrCorruptImage, img.Strings[m.Name])
			}
			method := h.NewClosure(fn)
			class.DefineMethod(img.Strings[m.Name], method.Value())
		}
		img.Classes = append(img.Classes, class)
	}

	if body.Entry >= 0 {
		if int(body.Entry) >= len(img.Functions) {
			return nil, fmt.Errorf("%w: entry index %d out of range", ErrCorruptImage, body.Entry)
		}
		img.Entry = img.Functions[body.Entry]
	}
	return img, nil
}

// LoadImageFile reads and decodes an image file into this heap.
func (h *Heap) LoadImageFile(path string) (*LoadedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vm: read image %s: %w", path, err)
	}
	return h.LoadImage(data)
}

func decodeImageValue(iv imageValue, img *LoadedImage) (Value, error) {
	switch iv.Kind {
	case imgKindNil:
		return Nil, nil
	case imgKindTrue:
		return True, nil
	case imgKindFalse:
		return False, nil
	case imgKindFloat:
		return FromFloat64(iv.Float), nil
	case imgKindInt:
		v, ok := TryFromSmallInt(iv.Int)
		if !ok {
			return Nil, fmt.Errorf("%w: integer constant out of range", ErrCorruptImage)
		}
		return v, nil
	case imgKindString:
		if int(iv.Index) >= len(img.Strings) {
			return Nil, fmt.Errorf("%w: string constant index %d out of range", ErrCorruptImage, iv.Index)
		}
		return img.Strings[iv.Index].Value(), nil
	case imgKindFunction:
		if int(iv.Index) >= len(img.Functions) {
			return Nil, fmt.Errorf("%w: function constant index %d out of range", ErrCorruptImage, iv.Index)
		}
		return img.Functions[iv.Index].Value(), nil
	default:
		return Nil, fmt.Errorf("%w: unknown constant kind %d", ErrCorruptImage, iv.Kind)
	}
}

package jointlm

import (
	"encoding/gob"
	"errors"
	"io"

	"github.com/kho/easy"
	"github.com/kho/stream"
)

// BuilderFromARPA reads an ARPA-style joint-unit model from in into a
// fresh Builder, without dumping it to either backend yet, so a caller
// can pick the backend after parsing (e.g. cmd/g2p-compile choosing
// one at compile time). A Builder can be dumped only once: after
// DumpHashed or DumpSorted its tables are released.
func BuilderFromARPA(in io.Reader) (*Builder, error) {
	builder := NewBuilder(nil, "", "")
	if err := stream.Run(stream.EnumRead(in, lineSplit), arpaTop{builder}); err != nil {
		return nil, err
	}
	return builder, nil
}

// FromARPA reads an ARPA-style joint-unit model from in and builds a
// Hashed model. scale is passed through to Builder.DumpHashed.
func FromARPA(in io.Reader, scale float64) (*Hashed, error) {
	builder, err := BuilderFromARPA(in)
	if err != nil {
		return nil, err
	}
	return builder.DumpHashed(scale), nil
}

// FromARPAFile opens path (transparently decompressing .gz) and calls
// FromARPA on its contents.
func FromARPAFile(path string, scale float64) (*Hashed, error) {
	in, err := easy.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return FromARPA(in, scale)
}

// FromGob decodes a Hashed model previously written with gob.Encode.
func FromGob(in io.Reader) (*Hashed, error) {
	var m Hashed
	if err := gob.NewDecoder(in).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FromGobFile opens path and calls FromGob on its contents.
func FromGobFile(path string) (*Hashed, error) {
	in, err := easy.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return FromGob(in)
}

// FromBinary memory-maps the model written by (*Hashed).WriteBinary or
// (*Sorted).WriteBinary at path, detects which kind it is from its
// magic prefix, and returns it without copying the transition tables.
// The caller must keep backing alive (and eventually Close it) for as
// long as model is used.
func FromBinary(path string) (kind Kind, model Model, backing *MappedFile, err error) {
	mf, err := OpenMappedFile(path)
	if err != nil {
		return 0, nil, nil, err
	}
	switch {
	case hasMagic(mf.data, magicHashed):
		var m Hashed
		if err := m.unsafeParseBinary(mf.data); err != nil {
			mf.Close()
			return 0, nil, nil, err
		}
		return KindHashed, &m, mf, nil
	case hasMagic(mf.data, magicSorted):
		var m Sorted
		if err := m.unsafeParseBinary(mf.data); err != nil {
			mf.Close()
			return 0, nil, nil, err
		}
		return KindSorted, &m, mf, nil
	default:
		mf.Close()
		return 0, nil, nil, errors.New("not a jointlm binary file")
	}
}

func hasMagic(data []byte, magic string) bool {
	return len(data) >= len(magic) && string(data[:len(magic)]) == magic
}

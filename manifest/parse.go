package manifest

import (
	"encoding/json"
	"os"

	"github.com/futbind/futbind/errors"
)

// Raw JSON forms, one per schema object. Unknown fields are ignored for
// forward compatibility with newer Futhark releases; missing required
// fields are rejected after decoding.

type rawManifest struct {
	Backend     string                   `json:"backend"`
	Version     string                   `json:"version"`
	EntryPoints map[string]rawEntryPoint `json:"entry_points"`
	Types       map[string]rawType       `json:"types"`
}

type rawEntryPoint struct {
	CFun         string      `json:"cfun"`
	Inputs       []rawParam  `json:"inputs"`
	Outputs      []rawOutput `json:"outputs"`
	TuningParams []string    `json:"tuning_params,omitempty"`
}

type rawParam struct {
	Name   string `json:"name,omitempty"`
	Type   string `json:"type"`
	Unique bool   `json:"unique,omitempty"`
}

type rawOutput struct {
	Type string `json:"type"`
}

type rawType struct {
	Kind     string         `json:"kind"`
	CType    string         `json:"ctype,omitempty"`
	ElemType string         `json:"elemtype,omitempty"`
	Rank     int            `json:"rank,omitempty"`
	Ops      map[string]any `json:"ops,omitempty"`
	Record   *rawRecord     `json:"record,omitempty"`
	Sum      *rawSum        `json:"sum,omitempty"`
}

type rawRecord struct {
	New    string     `json:"new"`
	Fields []rawField `json:"fields"`
}

type rawField struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Project string `json:"project"`
}

type rawSum struct {
	Variant  string       `json:"variant,omitempty"`
	Variants []rawVariant `json:"variants"`
}

type rawVariant struct {
	Name      string   `json:"name"`
	Construct string   `json:"construct"`
	Destruct  string   `json:"destruct"`
	Payload   []string `json:"payload,omitempty"`
}

// Parse decodes a manifest document from its JSON encoding and validates it.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.ManifestParse(nil, err, "malformed manifest JSON")
	}

	backend, err := ParseBackend(raw.Backend)
	if err != nil {
		return nil, errors.ManifestParse([]string{"backend"}, err, "unknown backend")
	}
	if raw.Version == "" {
		return nil, errors.FieldMissing(nil, "version")
	}

	m := &Manifest{
		Backend:     backend,
		Version:     raw.Version,
		EntryPoints: make(map[string]EntryPoint, len(raw.EntryPoints)),
		Types:       make(map[string]Type, len(raw.Types)),
	}

	for name, rep := range raw.EntryPoints {
		if rep.CFun == "" {
			return nil, errors.FieldMissing([]string{"entry_points", name}, "cfun")
		}
		ep := EntryPoint{
			CFun:         rep.CFun,
			Inputs:       make([]Param, len(rep.Inputs)),
			Outputs:      make([]Output, len(rep.Outputs)),
			TuningParams: rep.TuningParams,
		}
		for i, in := range rep.Inputs {
			if in.Type == "" {
				return nil, errors.FieldMissing([]string{"entry_points", name, "inputs"}, "type")
			}
			ep.Inputs[i] = Param{Name: in.Name, Type: in.Type, Unique: in.Unique}
		}
		for i, out := range rep.Outputs {
			if out.Type == "" {
				return nil, errors.FieldMissing([]string{"entry_points", name, "outputs"}, "type")
			}
			ep.Outputs[i] = Output{Type: out.Type}
		}
		m.EntryPoints[name] = ep
	}

	for name, rt := range raw.Types {
		t, err := parseType(name, rt)
		if err != nil {
			return nil, err
		}
		m.Types[name] = t
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseFile reads and parses a manifest document from disk.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseParse, err, "read manifest "+path)
	}
	return Parse(data)
}

func parseType(name string, rt rawType) (Type, error) {
	switch rt.Kind {
	case "array":
		elem, ok := ParsePrim(rt.ElemType)
		if !ok {
			return nil, errors.ManifestParse([]string{"types", name}, nil,
				"array element type %q is not a primitive", rt.ElemType)
		}
		return &ArrayType{
			CType: rt.CType,
			Elem:  elem,
			Rank:  rt.Rank,
			Ops: ArrayOps{
				New:       opString(rt.Ops, "new"),
				Free:      opString(rt.Ops, "free"),
				Shape:     opString(rt.Ops, "shape"),
				Values:    opString(rt.Ops, "values"),
				ValuesRaw: opString(rt.Ops, "values_raw"),
			},
		}, nil

	case "opaque":
		o := &OpaqueType{
			CType: rt.CType,
			Ops: OpaqueOps{
				Free:    opString(rt.Ops, "free"),
				Store:   opString(rt.Ops, "store"),
				Restore: opString(rt.Ops, "restore"),
			},
		}
		if rt.Record != nil {
			rec := &RecordView{New: rt.Record.New}
			for _, f := range rt.Record.Fields {
				rec.Fields = append(rec.Fields, Projection{Name: f.Name, Type: f.Type, CFun: f.Project})
			}
			o.Record = rec
		}
		if rt.Sum != nil {
			sum := &SumView{Variant: rt.Sum.Variant}
			for _, v := range rt.Sum.Variants {
				sum.Variants = append(sum.Variants, Variant{
					Name:      v.Name,
					Construct: v.Construct,
					Destruct:  v.Destruct,
					Payload:   v.Payload,
				})
			}
			o.Sum = sum
		}
		return o, nil

	case "":
		return nil, errors.FieldMissing([]string{"types", name}, "kind")

	default:
		return nil, errors.ManifestParse([]string{"types", name}, nil,
			"unknown type kind %q", rt.Kind)
	}
}

// opString pulls a named C operation out of the ops object, tolerating
// extra keys and non-string values added by newer schema versions.
func opString(ops map[string]any, key string) string {
	if s, ok := ops[key].(string); ok {
		return s
	}
	return ""
}

// MarshalJSON re-encodes the manifest in its schema shape. Parsing the
// result yields a manifest semantically equal to the receiver.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	raw := rawManifest{
		Backend:     m.Backend.String(),
		Version:     m.Version,
		EntryPoints: make(map[string]rawEntryPoint, len(m.EntryPoints)),
		Types:       make(map[string]rawType, len(m.Types)),
	}

	for name, ep := range m.EntryPoints {
		rep := rawEntryPoint{
			CFun:         ep.CFun,
			Inputs:       make([]rawParam, len(ep.Inputs)),
			Outputs:      make([]rawOutput, len(ep.Outputs)),
			TuningParams: ep.TuningParams,
		}
		for i, in := range ep.Inputs {
			rep.Inputs[i] = rawParam{Name: in.Name, Type: in.Type, Unique: in.Unique}
		}
		for i, out := range ep.Outputs {
			rep.Outputs[i] = rawOutput{Type: out.Type}
		}
		raw.EntryPoints[name] = rep
	}

	for name, t := range m.Types {
		switch t := t.(type) {
		case *ArrayType:
			ops := map[string]any{
				"new":    t.Ops.New,
				"free":   t.Ops.Free,
				"shape":  t.Ops.Shape,
				"values": t.Ops.Values,
			}
			if t.Ops.ValuesRaw != "" {
				ops["values_raw"] = t.Ops.ValuesRaw
			}
			raw.Types[name] = rawType{
				Kind:     "array",
				CType:    t.CType,
				ElemType: t.Elem.String(),
				Rank:     t.Rank,
				Ops:      ops,
			}
		case *OpaqueType:
			rt := rawType{
				Kind:  "opaque",
				CType: t.CType,
				Ops: map[string]any{
					"free":    t.Ops.Free,
					"store":   t.Ops.Store,
					"restore": t.Ops.Restore,
				},
			}
			if t.Record != nil {
				rec := &rawRecord{New: t.Record.New}
				for _, f := range t.Record.Fields {
					rec.Fields = append(rec.Fields, rawField{Name: f.Name, Type: f.Type, Project: f.CFun})
				}
				rt.Record = rec
			}
			if t.Sum != nil {
				sum := &rawSum{Variant: t.Sum.Variant}
				for _, v := range t.Sum.Variants {
					sum.Variants = append(sum.Variants, rawVariant{
						Name:      v.Name,
						Construct: v.Construct,
						Destruct:  v.Destruct,
						Payload:   v.Payload,
					})
				}
				rt.Sum = sum
			}
			raw.Types[name] = rt
		}
	}

	return json.Marshal(raw)
}

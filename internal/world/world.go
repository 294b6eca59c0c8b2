// Package world loads entity world definitions written in CUE.
//
// A world declares entities, equations, opposites and operators ahead of
// a program run, using the same bilingual keys as entity definitions in
// programs:
//
//	entities: "أحمد": {
//		states: "جوع": 0.6
//		actions: "تقديم_وجبة": effects: [{on: "جوع", formula: "value - 0.4"}]
//	}
//	equations: [{entity: "أحمد", kind: "state", key: "حر", formula: "1 - برد"}]
//	operators: {Serve: "تقديم_وجبة"}
//
// Top-level sections may also be spelled كيانات, معادلات, متضادات and
// مشغلات. When both spellings of a section appear, both are read.
package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bayan/internal/entity"
)

// EntityDef is one entity declaration.
type EntityDef struct {
	Name string
	Spec entity.Spec
	Pos  token.Pos
}

// EquationDef ties Key of Entity to Formula.
type EquationDef struct {
	Entity  string
	Kind    entity.Kind
	Key     string
	Formula string
	Pos     token.Pos
}

// OppositesDef keeps A + B = Total on Entity.
type OppositesDef struct {
	Entity string
	Kind   entity.Kind
	A, B   string
	Total  float64
	Pos    token.Pos
}

// World is a decoded world definition. Entities keep declaration
// order; operators are sorted by name.
type World struct {
	Entities  []EntityDef
	Equations []EquationDef
	Opposites []OppositesDef
	Operators []Operator
	FileCount int
}

// Operator binds a callable name to an action.
type Operator struct {
	Name   string
	Action string
}

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes reported by the loader.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"

	ErrCodeEntity   = "E201"
	ErrCodeEquation = "E202"
	ErrCodeOperator = "E203"
	ErrCodeKind     = "E204"
)

// LoadError is a loading or decoding failure, positioned when CUE
// knows where it came from.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// section spellings, English first.
var sections = map[string][]string{
	"entities":  {"entities", "كيانات"},
	"equations": {"equations", "معادلات"},
	"opposites": {"opposites", "متضادات"},
	"operators": {"operators", "مشغلات"},
}

// Load reads every .cue file of dir as one CUE instance and decodes it.
func Load(dir string, mode LoadMode) (*World, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("world directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing world directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	w, errs := Decode(value, mode)
	if w != nil {
		w.FileCount = len(files)
	}
	return w, errs
}

// LoadString decodes a single CUE document. filename labels positions.
func LoadString(src, filename string, mode LoadMode) (*World, []error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	w, errs := Decode(value, mode)
	if w != nil {
		w.FileCount = 1
	}
	return w, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Decode turns a built CUE value into a World.
func Decode(value cue.Value, mode LoadMode) (*World, []error) {
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	w := &World{}
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	for _, v := range lookupSection(value, "entities") {
		iter, err := v.Fields()
		if err != nil {
			if fail(&LoadError{Code: ErrCodeEntity, Message: fmt.Sprintf("entities: %v", err), Pos: v.Pos()}) {
				return w, errs
			}
		} else {
			for iter.Next() {
				def, err := decodeEntity(iter.Selector().Unquoted(), iter.Value())
				if err != nil {
					if fail(err) {
						return w, errs
					}
					continue
				}
				w.Entities = append(w.Entities, def)
			}
		}
	}

	for _, v := range lookupSection(value, "equations") {
		if err := eachListItem(v, func(item cue.Value) error {
			def, err := decodeEquation(item)
			if err == nil {
				w.Equations = append(w.Equations, def)
			}
			return err
		}, fail); err != nil {
			return w, errs
		}
	}

	for _, v := range lookupSection(value, "opposites") {
		if err := eachListItem(v, func(item cue.Value) error {
			def, err := decodeOpposites(item)
			if err == nil {
				w.Opposites = append(w.Opposites, def)
			}
			return err
		}, fail); err != nil {
			return w, errs
		}
	}

	ops := map[string]string{}
	for _, v := range lookupSection(value, "operators") {
		var m map[string]string
		if err := v.Decode(&m); err != nil {
			if fail(&LoadError{Code: ErrCodeOperator, Message: fmt.Sprintf("operators must map names to action names: %v", err), Pos: v.Pos()}) {
				return w, errs
			}
			continue
		}
		for name, action := range m {
			ops[name] = action
		}
	}
	if len(ops) > 0 {
		names := make([]string, 0, len(ops))
		for name := range ops {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			w.Operators = append(w.Operators, Operator{Name: name, Action: ops[name]})
		}
	}

	return w, errs
}

// errStop signals that fail asked to stop.
var errStop = errors.New("stop")

func eachListItem(v cue.Value, decode func(cue.Value) error, fail func(error) bool) error {
	iter, err := v.List()
	if err != nil {
		if fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("expected a list: %v", err), Pos: v.Pos()}) {
			return errStop
		}
		return nil
	}
	for iter.Next() {
		if err := decode(iter.Value()); err != nil && fail(err) {
			return errStop
		}
	}
	return nil
}

// lookupSection returns every spelling of section name present in v.
func lookupSection(v cue.Value, name string) []cue.Value {
	var out []cue.Value
	for _, label := range sections[name] {
		if s := v.LookupPath(cue.MakePath(cue.Str(label))); s.Exists() {
			out = append(out, s)
		}
	}
	return out
}

func decodeEntity(name string, v cue.Value) (EntityDef, error) {
	var raw map[string]any
	if err := v.Decode(&raw); err != nil {
		return EntityDef{}, &LoadError{Code: ErrCodeEntity, Message: fmt.Sprintf("entity %s: %v", name, err), Pos: v.Pos()}
	}
	spec, err := entity.DecodeSpec(name, raw)
	if err != nil {
		return EntityDef{}, &LoadError{Code: ErrCodeEntity, Message: err.Error(), Pos: v.Pos()}
	}
	return EntityDef{Name: name, Spec: spec, Pos: v.Pos()}, nil
}

// equationFields is the CUE shape of equations and opposites; the
// Arabic field names are accepted too.
type equationFields struct {
	Entity   string  `json:"entity"`
	EntityAr string  `json:"كيان"`
	Kind     string  `json:"kind"`
	KindAr   string  `json:"نوع"`
	Key      string  `json:"key"`
	KeyAr    string  `json:"مفتاح"`
	Formula  string  `json:"formula"`
	FormAr   string  `json:"صيغة"`
	A        string  `json:"a"`
	B        string  `json:"b"`
	Total    float64 `json:"total"`
	TotalAr  float64 `json:"مجموع"`
}

func (f equationFields) entity() string  { return firstNonEmpty(f.Entity, f.EntityAr) }
func (f equationFields) kind() string    { return firstNonEmpty(f.Kind, f.KindAr, "state") }
func (f equationFields) key() string     { return firstNonEmpty(f.Key, f.KeyAr) }
func (f equationFields) formula() string { return firstNonEmpty(f.Formula, f.FormAr) }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func decodeFields(v cue.Value, code string) (equationFields, entity.Kind, error) {
	var f equationFields
	if err := v.Decode(&f); err != nil {
		return f, "", &LoadError{Code: code, Message: err.Error(), Pos: v.Pos()}
	}
	if f.entity() == "" {
		return f, "", &LoadError{Code: code, Message: "entity is required", Pos: v.Pos()}
	}
	kind, err := entity.ParseKind(f.kind())
	if err != nil {
		return f, "", &LoadError{Code: ErrCodeKind, Message: err.Error(), Pos: v.Pos()}
	}
	return f, kind, nil
}

func decodeEquation(v cue.Value) (EquationDef, error) {
	f, kind, err := decodeFields(v, ErrCodeEquation)
	if err != nil {
		return EquationDef{}, err
	}
	if f.key() == "" || f.formula() == "" {
		return EquationDef{}, &LoadError{Code: ErrCodeEquation, Message: "equation needs key and formula", Pos: v.Pos()}
	}
	return EquationDef{Entity: f.entity(), Kind: kind, Key: f.key(), Formula: f.formula(), Pos: v.Pos()}, nil
}

func decodeOpposites(v cue.Value) (OppositesDef, error) {
	f, kind, err := decodeFields(v, ErrCodeEquation)
	if err != nil {
		return OppositesDef{}, err
	}
	if f.A == "" || f.B == "" {
		return OppositesDef{}, &LoadError{Code: ErrCodeEquation, Message: "opposites need a and b", Pos: v.Pos()}
	}
	total := f.Total
	if total == 0 {
		total = f.TotalAr
	}
	if total == 0 {
		total = 1
	}
	return OppositesDef{Entity: f.entity(), Kind: kind, A: f.A, B: f.B, Total: total, Pos: v.Pos()}, nil
}

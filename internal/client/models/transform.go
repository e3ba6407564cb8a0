package models

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

var (
	ErrUnknownParam    = errors.New("unknown transform parameter")
	ErrIncorrectAssign = errors.New("transform assignment must be name=value")
)

// Transform is the filter applied to the original to produce the edited
// and thumbnail variants.
type Transform struct {
	Saturation float64 `json:"saturation"`
	Warmth     float64 `json:"warmth"`
	Sharpen    float64 `json:"sharpen"`
	Blur       float64 `json:"blur"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Grey       float64 `json:"grey"`
	Vignette   float64 `json:"vignette"`
}

type transformParam struct {
	name     string
	def      float64
	min, max float64
	field    func(t *Transform) *float64
}

// Order matters: it is the order parameters are listed, serialized and
// applied in.
var transformParams = []transformParam{
	{"saturation", 1, 0, 2, func(t *Transform) *float64 { return &t.Saturation }},
	{"warmth", 0, -0.08, 0.08, func(t *Transform) *float64 { return &t.Warmth }},
	{"sharpen", 0, -2, 2, func(t *Transform) *float64 { return &t.Sharpen }},
	{"blur", 1, 0.01, 4, func(t *Transform) *float64 { return &t.Blur }},
	{"brightness", 1, 0, 2, func(t *Transform) *float64 { return &t.Brightness }},
	{"contrast", 1, 0, 2, func(t *Transform) *float64 { return &t.Contrast }},
	{"grey", 0.5, 0, 1, func(t *Transform) *float64 { return &t.Grey }},
	{"vignette", 2, 0.2, 2, func(t *Transform) *float64 { return &t.Vignette }},
}

// DefaultTransform is the identity filter.
func DefaultTransform() Transform {
	var t Transform
	for _, p := range transformParams {
		*p.field(&t) = p.def
	}
	return t
}

// TransformParamNames lists parameter names in schema order.
func TransformParamNames() []string {
	names := make([]string, len(transformParams))
	for i, p := range transformParams {
		names[i] = p.name
	}
	return names
}

// Param is one named value of a Transform.
type Param struct {
	Name  string
	Value float64
}

// Params returns the values in schema order.
func (t Transform) Params() []Param {
	out := make([]Param, len(transformParams))
	for i, p := range transformParams {
		out[i] = Param{Name: p.name, Value: *p.field(&t)}
	}
	return out
}

func (t Transform) Get(name string) (float64, bool) {
	for _, p := range transformParams {
		if p.name == name {
			return *p.field(&t), true
		}
	}
	return 0, false
}

func (t *Transform) Set(name string, v float64) error {
	for _, p := range transformParams {
		if p.name == name {
			*p.field(t) = v
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownParam, name)
}

// Attributes serializes the transform into remote file attributes.
func (t Transform) Attributes() map[string]string {
	attrs := make(map[string]string, len(transformParams))
	for _, p := range transformParams {
		attrs[p.name] = strconv.FormatFloat(*p.field(&t), 'f', -1, 64)
	}
	return attrs
}

// TransformFromAttributes parses remote attributes. Every parameter that
// is missing or not a finite number keeps its value from fallback; an
// explicit zero is a valid value.
func TransformFromAttributes(attrs map[string]string, fallback Transform) Transform {
	t := fallback
	for _, p := range transformParams {
		raw, ok := attrs[p.name]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		*p.field(&t) = v
	}
	return t
}

// ApplyAssignments sets parameters from "name=value" strings.
func (t *Transform) ApplyAssignments(items []string) error {
	for _, item := range items {
		name, raw, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			return fmt.Errorf("%w: %q", ErrIncorrectAssign, item)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrIncorrectAssign, item)
		}
		if err := t.Set(strings.TrimSpace(name), v); err != nil {
			return err
		}
	}
	return nil
}

// Randomize picks every parameter uniformly inside its usable range.
func (t *Transform) Randomize(r *rand.Rand) {
	for _, p := range transformParams {
		*p.field(t) = p.min + r.Float64()*(p.max-p.min)
	}
}

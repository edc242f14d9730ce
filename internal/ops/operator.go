// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package ops holds the named processing stages applied to each channel, and the
// polymorphic sequences that chain them. Sequences are configured as JSON or YAML lists
// of steps with a "type" discriminator.
package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"github.com/mlnoga/stedlight/internal/codec"
	"github.com/mlnoga/stedlight/internal/compose"
	"github.com/mlnoga/stedlight/internal/plane"
)

// An execution context for operators, one per channel
type Context struct {
	Ctx      context.Context
	Log      *zerolog.Logger
	Namer    *compose.Namer  // output names, shared across the run
	Output   codec.Options
	Stem     string          // input file name without extension
	Parts    []string        // name parts accumulated by the stages so far
	Written  []string        // files written by this channel
}

// Creates a context. A nil logger discards messages
func NewContext(ctx context.Context, log *zerolog.Logger, namer *compose.Namer, output codec.Options, stem string) *Context {
	if log==nil {
		nop:=zerolog.Nop()
		log=&nop
	}
	return &Context{Ctx: ctx, Log: log, Namer: namer, Output: output, Stem: stem}
}

// Returns a fresh output file name for the plane with the accumulated parts and the given suffixes
func (c *Context) OutputName(p *plane.Plane, suffixes ...string) string {
	parts:=append([]string{p.Name}, c.Parts...)
	return c.Namer.Name(c.Stem, append(parts, suffixes...)...)
}

// Saves the plane as grayscale TIFF under a fresh output name
func (c *Context) Save(p *plane.Plane, suffixes ...string) error {
	fileName:=c.OutputName(p, suffixes...)
	c.Log.Info().Int("id", p.ID).Str("stack", p.Name).Msgf("%d: Writing %s pixel TIFF to %s", p.ID, p.DimensionsToString(), fileName)
	if err:=codec.SaveGray(fileName, p, c.Output); err!=nil { return err }
	c.Written=append(c.Written, fileName)
	return nil
}

// An image processing stage: takes a plane, and produces the plane handed to the next stage or an error.
// Stages never modify their input
type Operator interface {
	GetType() string
	IsActive() bool
	Apply(p *plane.Plane, c *Context) (*plane.Plane, error)
}

// Base type for operators, including type information for JSON and YAML serializing/deserializing
type OpBase struct {
	Type        string `json:"type"   yaml:"type"`
	Active      bool   `json:"active" yaml:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool { return op.Active }

// Factory method for operators, returning one with default settings. For JSON and YAML deserializing
type OperatorFactory func() Operator

// Mapping from operator type strings to factory method for the type
var operatorFactories=map[string]OperatorFactory{}

// Returns the operator factory for a given type string
func GetOperatorFactory(t string) OperatorFactory {
	return operatorFactories[t]
}

// Registers a given type string for a given type of Operator, identified via an exemplar generator
func SetOperatorFactory(f OperatorFactory) {
	op:=f()
	t:=op.GetType()
	if GetOperatorFactory(t)!=nil { panic(fmt.Sprintf("error: re-registering operator key %s\n", t))}
	operatorFactories[t]=f
}

// Returns the registered operator types, for help output
func OperatorTypes() []string {
	res:=make([]string, 0, len(operatorFactories))
	for t:=range operatorFactories { res=append(res, t) }
	return res
}

func newOperator(t, raw string) (Operator, error) {
	factory:=GetOperatorFactory(t)
	if factory==nil {
		return nil, fmt.Errorf("unknown operator type '%s' in '%s': %w", t, strings.TrimSpace(raw), plane.ErrInvalidParameter)
	}
	return factory(), nil
}


// Applies a sequence of operators to a plane. Inactive steps are skipped
type OpSequence struct {
	OpBase
	Steps       []Operator        `json:"-"`      // the actual steps
	StepsRaw    []json.RawMessage `json:"steps"`  // helper for unmarshaling
}

func init() { SetOperatorFactory(func() Operator { return NewOpSequenceDefault()}) } // register the operator for JSON decoding

func NewOpSequenceDefault() *OpSequence { return NewOpSequence() }

func NewOpSequence(steps ...Operator) *OpSequence {
	return &OpSequence{
		OpBase : OpBase{Type: "seq", Active: true},
		Steps  : steps,
	}
}

// Unmarshals a sequence of polymorphic operators from JSON.
// Uses temporary op.StepsRaw inspired by https://alexkappa.medium.com/json-polymorphism-in-go-4cade1e58ed1
func (op *OpSequence) UnmarshalJSON(b []byte) error {
	type alias OpSequence
	err := json.Unmarshal(b, (*alias)(op))
	if err != nil { return err }

	op.Steps=nil
	for _, raw := range op.StepsRaw {
		var step OpBase
		if err=json.Unmarshal(raw, &step); err!=nil { return err }
		i, err:=newOperator(step.Type, string(raw))
		if err!=nil { return err }
		if err=json.Unmarshal(raw, i); err!=nil { return err }
		op.Steps = append(op.Steps, i)
	}
	op.StepsRaw=nil
	return nil
}

// Marshals a sequence with polymorphic operators to JSON.
// Uses the actual op.Steps with label "steps", and ignores op.StepsRaw
func (op *OpSequence) MarshalJSON() (bs []byte, err error) {
	buf:=bytes.Buffer{}
	buf.WriteString("{\"type\":")
	inner,err:=json.Marshal(op.Type)
	if err!=nil { return nil, err }
	buf.Write(inner)
	fmt.Fprintf(&buf,", \"active\":%v, \"steps\":", op.Active)
	if op.Steps==nil {
		buf.WriteString("[]")
	} else {
		inner,err=json.Marshal(op.Steps)
		if err!=nil { return nil, err }
		buf.Write(inner)
	}
	buf.WriteRune('}')
	return buf.Bytes(), nil
}

// Unmarshals a sequence of polymorphic operators from YAML. Reads the type of each step
// first, then decodes the step into an operator with default settings from the factory
func (op *OpSequence) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Type   string      `yaml:"type"`
		Active *bool       `yaml:"active"`
		Steps  []yaml.Node `yaml:"steps"`
	}
	if err:=value.Decode(&raw); err!=nil { return err }
	if raw.Type!="" { op.Type=raw.Type } else { op.Type="seq" }
	op.Active=raw.Active==nil || *raw.Active
	op.Steps=nil
	for i:=range raw.Steps {
		node:=&raw.Steps[i]
		var step OpBase
		if err:=node.Decode(&step); err!=nil { return err }
		s, err:=newOperator(step.Type, fmt.Sprintf("line %d", node.Line))
		if err!=nil { return err }
		if err=node.Decode(s); err!=nil { return err }
		op.Steps=append(op.Steps, s)
	}
	return nil
}

// Marshals a sequence with polymorphic operators to YAML
func (op *OpSequence) MarshalYAML() (interface{}, error) {
	steps:=op.Steps
	if steps==nil { steps=[]Operator{} }
	return struct {
		Type   string     `yaml:"type"`
		Active bool       `yaml:"active"`
		Steps  []Operator `yaml:"steps"`
	}{op.Type, op.Active, steps}, nil
}

// Appends one or more operators to the existing sequence
func (op *OpSequence) Append(steps ...Operator) {
	op.Steps=append(op.Steps, steps...)
}

// Applies the active steps in order. Checks for cancellation between steps
func (op *OpSequence) Apply(p *plane.Plane, c *Context) (*plane.Plane, error) {
	for _, step:=range op.Steps {
		if !step.IsActive() { continue }
		if c.Ctx!=nil {
			if err:=c.Ctx.Err(); err!=nil { return nil, err }
		}
		var err error
		if p, err=step.Apply(p, c); err!=nil { return nil, fmt.Errorf("%s: %w", step.GetType(), err) }
	}
	return p, nil
}

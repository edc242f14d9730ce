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


package ops

import (
	"fmt"

	"github.com/mlnoga/stedlight/internal/arrayops"
	"github.com/mlnoga/stedlight/internal/background"
	"github.com/mlnoga/stedlight/internal/compose"
	"github.com/mlnoga/stedlight/internal/median"
	"github.com/mlnoga/stedlight/internal/plane"
	"github.com/mlnoga/stedlight/internal/stretch"
)

// Saves the decoded channel with values above 255 saturated, under the bare stack name.
// Passes its input on unchanged
type OpSaveRaw struct {
	OpBase                  `yaml:",inline"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveRaw()}) } // register the operator for JSON decoding

func NewOpSaveRaw() *OpSaveRaw {
	return &OpSaveRaw{OpBase: OpBase{Type: "saveRaw", Active: true}}
}

func (op *OpSaveRaw) Apply(p *plane.Plane, c *Context) (*plane.Plane, error) {
	if err:=c.Save(arrayops.ClampHigh(p, stretch.OutMax), compose.SuffixRaw); err!=nil { return nil, err }
	return p, nil
}


// Contrast stretch with a plain percentile, square root percentile or fixed factor policy
type OpStretch struct {
	OpBase                    `yaml:",inline"`
	Policy      stretch.Policy `json:"policy"     yaml:"policy"`
	Percentile  float64        `json:"percentile" yaml:"percentile"` // 0 selects the policy default
	Factor      float64        `json:"factor"     yaml:"factor"`     // for the fixed policy
	Save        bool           `json:"save"       yaml:"save"`       // write the stretched channel
}

func init() { SetOperatorFactory(func() Operator { return NewOpStretchDefault()}) } // register the operator for JSON decoding

func NewOpStretchDefault() *OpStretch { return NewOpStretch(stretch.PolicyPlain, 0, 2, true) }

func NewOpStretch(policy stretch.Policy, percentile, factor float64, save bool) *OpStretch {
	return &OpStretch{
		OpBase     : OpBase{Type: "stretch", Active: true},
		Policy     : policy,
		Percentile : percentile,
		Factor     : factor,
		Save       : save,
	}
}

// Name part for the stretch result. Plain stretches keep the historic contr-enh suffix
func (op *OpStretch) suffix(r *stretch.Result) string {
	switch op.Policy {
	case stretch.PolicyFixed: return compose.SuffixFactor(r.Factor)
	case stretch.PolicySqrt:  return compose.SuffixPercentile(r.Percentile)
	}
	if op.Percentile!=0 && op.Percentile!=stretch.DefaultPlainPercentile { return compose.SuffixPercentile(r.Percentile) }
	return compose.SuffixContrast
}

// Returns the configured percentile, or the policy default if unset
func (op *OpStretch) percentile() float64 {
	if op.Percentile!=0 { return op.Percentile }
	if op.Policy==stretch.PolicySqrt { return stretch.DefaultSqrtPercentile }
	return stretch.DefaultPlainPercentile
}

func (op *OpStretch) Apply(p *plane.Plane, c *Context) (*plane.Plane, error) {
	r, err:=stretch.Apply(p, op.Policy, op.percentile(), op.Factor)
	if err!=nil { return nil, fmt.Errorf("%d: stretching %s: %w", p.ID, p.Name, err) }
	c.Log.Info().Int("id", p.ID).Str("stack", p.Name).Msgf("%d: Stretched with policy %s percentile %g value %.6g factor %.6g, now %v",
		p.ID, op.Policy, r.Percentile, r.Value, r.Factor, r.Plane.Stats())
	c.Parts=append(c.Parts, op.suffix(r))
	if op.Save {
		if err:=c.Save(r.Plane); err!=nil { return nil, err }
	}
	return r.Plane, nil
}


// Rolling ball background subtraction. Hands the foreground on to the next stage
type OpRollingBall struct {
	OpBase                              `yaml:",inline"`
	background.Params                   `yaml:",inline"`
	SaveBackground  bool                `json:"saveBackground" yaml:"saveBackground"`
	SaveForeground  bool                `json:"saveForeground" yaml:"saveForeground"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpRollingBallDefault()}) } // register the operator for JSON decoding

func NewOpRollingBallDefault() *OpRollingBall { return NewOpRollingBall(background.DefaultParams(), true, true) }

func NewOpRollingBall(params background.Params, saveBackground, saveForeground bool) *OpRollingBall {
	return &OpRollingBall{
		OpBase         : OpBase{Type: "rollingBall", Active: true},
		Params         : params,
		SaveBackground : saveBackground,
		SaveForeground : saveForeground,
	}
}

func (op *OpRollingBall) Apply(p *plane.Plane, c *Context) (*plane.Plane, error) {
	r, err:=background.Subtract(c.Ctx, p, op.Params)
	if err!=nil { return nil, fmt.Errorf("%d: subtracting background of %s: %w", p.ID, p.Name, err) }
	c.Log.Info().Int("id", p.ID).Str("stack", p.Name).Msgf("%d: Subtracted background with radius %g light %v paraboloid %v presmooth %v, background %v",
		p.ID, op.Radius, op.LightBackground, op.UseParaboloid, op.DoPresmooth, r.Background.Stats())
	if op.SaveBackground {
		if err:=c.Save(r.Background, compose.SuffixBackground); err!=nil { return nil, err }
	}
	c.Parts=append(c.Parts, compose.SuffixWithoutBackground)
	if op.SaveForeground {
		if err:=c.Save(r.Foreground); err!=nil { return nil, err }
	}
	return r.Foreground, nil
}


// Gaussian blur
type OpGauss struct {
	OpBase                `yaml:",inline"`
	Sigma       float64   `json:"sigma" yaml:"sigma"`
	Save        bool      `json:"save"  yaml:"save"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpGaussDefault()}) } // register the operator for JSON decoding

func NewOpGaussDefault() *OpGauss { return NewOpGauss(2, true) }

func NewOpGauss(sigma float64, save bool) *OpGauss {
	return &OpGauss{OpBase: OpBase{Type: "gauss", Active: true}, Sigma: sigma, Save: save}
}

func (op *OpGauss) Apply(p *plane.Plane, c *Context) (*plane.Plane, error) {
	res, err:=stretch.GaussFilter(p, op.Sigma)
	if err!=nil { return nil, fmt.Errorf("%d: blurring %s: %w", p.ID, p.Name, err) }
	c.Log.Info().Int("id", p.ID).Str("stack", p.Name).Msgf("%d: Applied gaussian blur with sigma %g", p.ID, op.Sigma)
	c.Parts=append(c.Parts, compose.SuffixGauss(op.Sigma))
	if op.Save {
		if err:=c.Save(res); err!=nil { return nil, err }
	}
	return res, nil
}


// 3x3 median filter against isolated hot and cold pixels
type OpMedian struct {
	OpBase                `yaml:",inline"`
	Save        bool      `json:"save" yaml:"save"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpMedian(false)}) } // register the operator for JSON decoding

func NewOpMedian(save bool) *OpMedian {
	return &OpMedian{OpBase: OpBase{Type: "median", Active: true}, Save: save}
}

func (op *OpMedian) Apply(p *plane.Plane, c *Context) (*plane.Plane, error) {
	res:=median.Filter3x3(p)
	c.Log.Info().Int("id", p.ID).Str("stack", p.Name).Msgf("%d: Applied 3x3 median filter", p.ID)
	c.Parts=append(c.Parts, compose.SuffixMedian)
	if op.Save {
		if err:=c.Save(res); err!=nil { return nil, err }
	}
	return res, nil
}


// Saves the current plane with the accumulated name parts plus an optional suffix.
// Passes its input on unchanged
type OpSave struct {
	OpBase                `yaml:",inline"`
	Suffix      string    `json:"suffix" yaml:"suffix"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveDefault()}) } // register the operator for JSON decoding

func NewOpSaveDefault() *OpSave { return NewOpSave("") }

func NewOpSave(suffix string) *OpSave {
	return &OpSave{OpBase: OpBase{Type: "save", Active: true}, Suffix: suffix}
}

func (op *OpSave) Apply(p *plane.Plane, c *Context) (*plane.Plane, error) {
	if err:=c.Save(p, op.Suffix); err!=nil { return nil, err }
	return p, nil
}

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


package stretch

import (
	"errors"
	"math"
	"testing"

	"github.com/mlnoga/stedlight/internal/plane"
)

// Plane with values 0..1000 on a 7x143 grid
func rampPlane() *plane.Plane {
	p, _:=plane.New(143, 7, nil)
	for i:=range p.Data { p.Data[i]=float64(i) }
	return p
}

func TestPlainRamp(t *testing.T) {
	p:=rampPlane()
	res, err:=Plain(p, DefaultPlainPercentile)
	if err!=nil { t.Fatal(err) }
	if math.Abs(res.Value-998)>1e-9 { t.Errorf("value=%g; want 998", res.Value) }
	factor:=255.0/998
	if math.Abs(res.Factor-factor)>1e-12 { t.Errorf("factor=%g; want %g", res.Factor, factor) }

	// hand-computed expectation: 0 and 1 land at or below the factor, 999 and 1000 exceed 255
	for i, got:=range res.Plane.Data {
		var want float64
		switch {
		case i<=1:   want=0
		case i>=999: want=255
		default:     want=float64(i)*factor
		}
		if math.Abs(got-want)>1e-9 { t.Errorf("sample %d=%g; want %g", i, got, want) }
	}
	if p.Data[1000]!=1000 { t.Errorf("input modified") }
}

func TestPlainSaturatedIdempotent(t *testing.T) {
	p, _:=plane.New(8, 8, nil)
	for i:=range p.Data { p.Data[i]=255 }
	res, err:=Plain(p, DefaultPlainPercentile)
	if err!=nil { t.Fatal(err) }
	if res.Value!=255 || res.Factor!=1 { t.Errorf("value=%g factor=%g; want 255 and 1", res.Value, res.Factor) }
	for i, v:=range res.Plane.Data {
		if v!=255 { t.Fatalf("sample %d=%g; want 255", i, v) }
	}
}

func TestDegenerate(t *testing.T) {
	p, _:=plane.New(4, 4, nil)
	for _, policy:=range []Policy{PolicyPlain, PolicySqrt} {
		if _, err:=Apply(p, policy, 99.9, 0); !errors.Is(err, plane.ErrDegenerateInput) {
			t.Errorf("%s on black plane err=%v; want ErrDegenerateInput", policy, err)
		}
	}
}

func TestSqrt(t *testing.T) {
	p, _:=plane.FromRows([][]float64{{0, 1, 4, 16, 64, 100}})
	res, err:=Sqrt(p, 100)
	if err!=nil { t.Fatal(err) }
	if res.Percentile!=100 || res.Value!=10 || res.Factor!=25.5 {
		t.Errorf("got q=%g value=%g factor=%g; want 100, 10, 25.5", res.Percentile, res.Value, res.Factor)
	}
	// sqrt 0 1 2 4 8 10, times 25.5, with the values at or below 25.5 zeroed
	want:=[]float64{0, 0, 51, 102, 204, 255}
	for i, w:=range want {
		if math.Abs(res.Plane.Data[i]-w)>1e-9 { t.Errorf("sample %d=%g; want %g", i, res.Plane.Data[i], w) }
	}
	p.Data[0]=-1
	if _, err:=Sqrt(p, 99.9); !errors.Is(err, plane.ErrDomain) { t.Errorf("negative input err=%v; want ErrDomain", err) }
}

func TestFixed(t *testing.T) {
	p, _:=plane.FromRows([][]float64{{0, 1, 100, 200}})
	res, err:=Fixed(p, 2)
	if err!=nil { t.Fatal(err) }
	want:=[]float64{0, 2, 200, 255}
	for i, w:=range want {
		if res.Plane.Data[i]!=w { t.Errorf("sample %d=%g; want %g", i, res.Plane.Data[i], w) }
	}
	if _, err:=Fixed(p, 0); !errors.Is(err, plane.ErrInvalidParameter) { t.Errorf("factor 0 err=%v", err) }
}

func TestParsePolicy(t *testing.T) {
	if _, err:=ParsePolicy("gamma"); !errors.Is(err, plane.ErrInvalidParameter) { t.Errorf("gamma err=%v", err) }
	if p, err:=ParsePolicy("sqrt"); err!=nil || p!=PolicySqrt { t.Errorf("sqrt -> %v, %v", p, err) }
}

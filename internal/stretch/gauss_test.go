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
	"math"
	"testing"

	"github.com/mlnoga/stedlight/internal/plane"
)

type gaussianKernel1DTestCase struct {
	Sigma   float64
	Half    []float64 // center and right half
}

func TestGaussianKernel1D(t *testing.T) {
	epsilon:=1e-6
	tcs:=[]gaussianKernel1DTestCase{
		{1.0, []float64{0.398943, 0.241971, 0.053991, 0.004432, 0.000134}},
		{2.0, []float64{0.199475, 0.176036, 0.120987, 0.064760, 0.026996, 0.008764, 0.002216, 0.000436, 0.000067}},
	}

	for _,tc:=range tcs {
		kernel:=GaussianKernel1D(tc.Sigma)
		r:=len(tc.Half)-1
		if len(kernel)!=2*r+1 { t.Errorf("sigma=%g len=%d; want %d", tc.Sigma, len(kernel), 2*r+1); continue }
		sum:=0.0
		for _, k:=range kernel { sum+=k }
		if math.Abs(sum-1)>1e-12 { t.Errorf("sigma=%g sum=%g; want 1", tc.Sigma, sum) }
		for i, want:=range tc.Half {
			if math.Abs(kernel[r+i]-want)>epsilon || kernel[r-i]!=kernel[r+i] {
				t.Errorf("sigma=%g k[%+d]=%f k[%+d]=%f; want %f", tc.Sigma, i, kernel[r+i], -i, kernel[r-i], want)
			}
		}
	}
}

// Reference responses computed with scipy.ndimage.gaussian_filter, mode reflect, truncate 4
func TestGaussFilterImpulse(t *testing.T) {
	p, _:=plane.New(21, 1, nil)
	p.Data[10]=255
	res, err:=GaussFilter(p, 2)
	if err!=nil { t.Fatal(err) }
	want:=[]float64{50.866, 44.8891, 30.8518, 16.5138, 6.884, 2.2349, 0.5651, 0.1113, 0.0171, 0, 0}
	for d, w:=range want {
		for _, x:=range []int{10-d, 10+d} {
			if math.Abs(res.At(x, 0)-w)>1e-3 { t.Errorf("offset %d: got %.4f; want %.4f", x-10, res.At(x, 0), w) }
		}
	}

	edge, _:=plane.New(5, 1, nil)
	edge.Data[0]=100
	res, err=GaussFilter(edge, 1)
	if err!=nil { t.Fatal(err) }
	for x, w:=range []float64{64.0915, 29.5963, 5.8423, 0.4566, 0.0134} {
		if math.Abs(res.At(x, 0)-w)>1e-3 { t.Errorf("border x=%d: got %.4f; want %.4f", x, res.At(x, 0), w) }
	}
}

func TestGaussFilterPreservesConstant(t *testing.T) {
	p, _:=plane.New(5, 3, nil)
	for i:=range p.Data { p.Data[i]=42 }
	res, err:=GaussFilter(p, 2)
	if err!=nil { t.Fatal(err) }
	for i, v:=range res.Data {
		if math.Abs(v-42)>1e-9 { t.Errorf("sample %d=%g; want 42", i, v) }
	}
}

func TestGaussFilterSpreadsPeak(t *testing.T) {
	p, _:=plane.New(9, 9, nil)
	p.Data[4*9+4]=100
	res, err:=GaussFilter(p, 1)
	if err!=nil { t.Fatal(err) }
	sum:=0.0
	for _, v:=range res.Data { sum+=v }
	if math.Abs(sum-100)>1e-9 { t.Errorf("total=%g; want 100", sum) }
	if res.At(4,4)>=100 || res.At(4,4)<=res.At(3,4) { t.Errorf("peak not smoothed: center %g neighbor %g", res.At(4,4), res.At(3,4)) }
	if p.Data[4*9+4]!=100 { t.Errorf("input modified") }
}

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


package median

import (
	"testing"

	"github.com/valyala/fastrand"
	"github.com/mlnoga/stedlight/internal/plane"
	"github.com/mlnoga/stedlight/internal/qsort"
)

func TestMedian9(t *testing.T) {
	for i:=0; i<1000; i++ {
		a:=make([]float64, 9)
		for j:=range a { a[j]=float64(fastrand.Uint32n(20)) }
		b:=append([]float64(nil), a...)
		qsort.QSortFloat64(b)
		if got:=Median9(a); got!=b[4] { t.Fatalf("median of %v is %g; want %g", b, got, b[4]) }
	}
}

func TestFilter3x3RemovesHotPixel(t *testing.T) {
	p, _:=plane.FromRows([][]float64{
		{1, 1, 1, 1},
		{1, 9, 1, 1},
		{1, 1, 1, 7},
		{5, 1, 1, 1},
	})
	res:=Filter3x3(p)
	if res.At(1, 1)!=1 { t.Errorf("hot pixel kept: %g", res.At(1, 1)) }
	if res.At(3, 2)!=7 || res.At(0, 3)!=5 { t.Errorf("border pixels changed") }
	if p.At(1, 1)!=9 { t.Errorf("input modified") }
}

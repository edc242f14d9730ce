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


package qsort

import (
	"math"
	"testing"
	"github.com/valyala/fastrand"
)

// returns a random permutation of 1..n
func permutation(rng *fastrand.RNG, n int) []float64 {
	arr:=make([]float64, n)
	for j:=0; j<len(arr); j++ {
		arr[j]=float64(j+1)
	}
	for j:=0; j<len(arr); j++ {
		k:=rng.Uint32n(uint32(len(arr)))
		arr[j], arr[k] = arr[k], arr[j]
	}
	return arr
}

func TestSelect(t *testing.T) {
	rng:=fastrand.RNG{}
	for i:=1; i<500; i++ {
		arr:=permutation(&rng, i)
		k:=int(rng.Uint32n(uint32(i)))+1
		res:=QSelectFloat64(arr, k)
		if res!=float64(k) {
			t.Errorf("select(1..%d, %d) got %f expect %d", i, k, res, k)
		}
		for _, v:=range arr[k:] {
			if v<res { t.Errorf("select(1..%d, %d) left smaller value %f to the right", i, k, v) }
		}
	}
}

func TestSelectWithDuplicates(t *testing.T) {
	rng:=fastrand.RNG{}
	for i:=1; i<300; i++ {
		arr:=make([]float64, i)
		for j:=range arr { arr[j]=float64(rng.Uint32n(5)) }
		sorted:=append([]float64(nil), arr...)
		QSortFloat64(sorted)
		for j:=1; j<len(sorted); j++ {
			if sorted[j-1]>sorted[j] { t.Fatalf("sort(%v) not ascending", sorted) }
		}
		k:=int(rng.Uint32n(uint32(i)))+1
		if res:=QSelectFloat64(arr, k); res!=sorted[k-1] {
			t.Errorf("select(%d of %d) got %f expect %f", k, i, res, sorted[k-1])
		}
	}
}

func TestSelectLinear(t *testing.T) {
	rng:=fastrand.RNG{}
	for i:=2; i<300; i++ {
		arr:=permutation(&rng, i)
		pos:=float64(rng.Uint32n(uint32(1000*(i-1))))/1000
		res:=QSelectLinearFloat64(arr, pos)
		expect:=pos+1
		if math.Abs(res-expect)>1e-9 {
			t.Errorf("selectLinear(1..%d, %f) got %f expect %f", i, pos, res, expect)
		}
	}
	if res:=QSelectLinearFloat64([]float64{3,1,2}, 2); res!=3 {
		t.Errorf("selectLinear at last rank got %f expect 3", res)
	}
}

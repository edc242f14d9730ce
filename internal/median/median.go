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


// Package median removes isolated hot and cold pixels with a 3x3 median filter.
package median

import (
	"github.com/mlnoga/stedlight/internal/plane"
)

// Applies a 3x3 median filter and returns a new plane. The outermost rows and
// columns are copied over unchanged
func Filter3x3(p *plane.Plane) *plane.Plane {
	res:=p.Clone()
	w, h:=p.Width, p.Height
	if w<3 || h<3 { return res }

	gathered:=make([]float64, 9)
	for y:=1; y<h-1; y++ {
		for x:=1; x<w-1; x++ {
			j:=0
			for yy:=y-1; yy<=y+1; yy++ {
				row:=p.Data[yy*w+x-1:]
				gathered[j], gathered[j+1], gathered[j+2]=row[0], row[1], row[2]
				j+=3
			}
			res.Data[y*w+x]=Median9(gathered)
		}
	}
	return res
}

// Calculates the median of a float64 slice of length nine.
// Modifies the elements in place. Must not contain NaN
// From https://stackoverflow.com/questions/45453537/optimal-9-element-sorting-network-that-reduces-to-an-optimal-median-of-9-network
func Median9(a []float64) float64 {
	if a[0]>a[1] { a[0], a[1] = a[1], a[0]}  // swap(a,0,1)
	if a[3]>a[4] { a[3], a[4] = a[4], a[3]}  // swap(a,3,4)
	if a[6]>a[7] { a[6], a[7] = a[7], a[6]}  // swap(a,6,7)
	if a[1]>a[2] { a[1], a[2] = a[2], a[1]}  // swap(a,1,2)
	if a[4]>a[5] { a[4], a[5] = a[5], a[4]}  // swap(a,4,5)
	if a[7]>a[8] { a[7], a[8] = a[8], a[7]}  // swap(a,7,8)
	if a[0]>a[1] { a[0], a[1] = a[1], a[0]}  // swap(a,0,1)
	if a[3]>a[4] { a[3], a[4] = a[4], a[3]}  // swap(a,3,4)
	if a[6]>a[7] { a[6], a[7] = a[7], a[6]}  // swap(a,6,7)
	if a[0]>a[3] { a[3]       = a[0]      }  // max (a,0,3)
	if a[3]>a[6] { a[6]       = a[3]      }  // max (a,3,6)
	if a[1]>a[4] { a[1], a[4] = a[4], a[1]}  // swap(a,1,4)
	if a[4]>a[7] { a[4]       = a[7]      }  // min (a,4,7)
	if a[1]>a[4] { a[4]       = a[1]      }  // max (a,1,4)
	if a[5]>a[8] { a[5]       = a[8]      }  // min (a,5,8)
	if a[2]>a[5] { a[2]       = a[5]      }  // min (a,2,5)
	if a[2]>a[4] { a[2], a[4] = a[4], a[2]}  // swap(a,2,4)
	if a[4]>a[6] { a[4]       = a[6]      }  // min (a,4,6)
	if a[2]>a[4] { a[4]       = a[2]      }  // max (a,2,4)
	return a[4]
}

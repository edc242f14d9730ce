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


package plane

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistics on a plane, for log output
type BasicStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

func (s *BasicStats) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g", s.Min, s.Max, s.Mean, s.StdDev)
}

// Calculates basic statistics for the plane. Returns zero stats for an empty plane
func (p *Plane) Stats() *BasicStats {
	if len(p.Data)==0 { return &BasicStats{} }
	mean, std:=stat.MeanStdDev(p.Data, nil)
	if len(p.Data)==1 { std=0 }
	return &BasicStats{
		Min:    floats.Min(p.Data),
		Max:    floats.Max(p.Data),
		Mean:   mean,
		StdDev: std,
	}
}

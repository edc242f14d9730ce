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


// Package background estimates and removes slowly varying illumination with the
// rolling ball algorithm. The ball is rolled under the intensity surface, and the
// envelope of its top forms the background estimate.
package background

import (
	"context"
	"fmt"
	"math"

	"github.com/mlnoga/stedlight/internal/arrayops"
	"github.com/mlnoga/stedlight/internal/plane"
)

const DefaultRadius=10.0

// Parameters for the rolling ball
type Params struct {
	Radius          float64  `json:"radius"          yaml:"radius"`           // ball radius in pixels
	LightBackground bool     `json:"lightBackground" yaml:"lightBackground"`  // background brighter than foreground
	UseParaboloid   bool     `json:"useParaboloid"   yaml:"useParaboloid"`    // paraboloid instead of ball cap
	DoPresmooth     bool     `json:"doPresmooth"     yaml:"doPresmooth"`      // 3x3 mean before estimating
}

func DefaultParams() Params {
	return Params{Radius: DefaultRadius, DoPresmooth: true}
}

// Foreground residual and background estimate, both of the input's size
type Result struct {
	Foreground *plane.Plane
	Background *plane.Plane
}

// Structuring element: a square window of heights, centered on the rolling point
type ball struct {
	data         []float64
	width        int  // odd, 2*halfWidth+1
	shrinkFactor int  // the image is shrunk by this factor before rolling
}

// Creates the structuring element for the given radius. Large radii roll a
// proportionally smaller ball over a shrunken image
func newBall(radius float64, paraboloid bool) *ball {
	var shrinkFactor, arcTrimPer int
	switch {
	case radius<=10:  shrinkFactor, arcTrimPer=1, 24
	case radius<=30:  shrinkFactor, arcTrimPer=2, 24
	case radius<=100: shrinkFactor, arcTrimPer=4, 32
	default:          shrinkFactor, arcTrimPer=8, 40
	}

	smallRadius:=radius/float64(shrinkFactor)
	if smallRadius<1 { smallRadius=1 }
	rsquare:=smallRadius*smallRadius
	xtrim:=int(float64(arcTrimPer)*smallRadius)/100 // trim the flat outer arc of the cap
	halfWidth:=int(math.Round(smallRadius-float64(xtrim)))
	width:=2*halfWidth+1

	b:=&ball{data: make([]float64, width*width), width: width, shrinkFactor: shrinkFactor}
	for y, p:=0, 0; y<width; y++ {
		for x:=0; x<width; x++ {
			dx, dy:=float64(x-halfWidth), float64(y-halfWidth)
			d2:=dx*dx+dy*dy
			if paraboloid {
				b.data[p]=smallRadius - d2/(2*smallRadius)
			} else if t:=rsquare-d2; t>0 {
				b.data[p]=math.Sqrt(t)
			}
			p++
		}
	}
	return b
}

// Estimates the background of the plane with a rolling ball and subtracts it.
// The input is saturated to [0,255] and truncated to integers first. For dark backgrounds
// the residual is max(input-background, 0), for light backgrounds clamp(input-background+255, 0, 255).
// The background never exceeds the input for dark backgrounds, and never falls below it for
// light ones. Checks ctx for cancellation between rows
func Subtract(ctx context.Context, p *plane.Plane, params Params) (*Result, error) {
	if !(params.Radius>0) {
		return nil, fmt.Errorf("rolling ball radius %g: %w", params.Radius, plane.ErrInvalidParameter)
	}
	if p==nil || len(p.Data)==0 {
		return nil, fmt.Errorf("rolling ball on empty plane: %w", plane.ErrInvalidParameter)
	}
	src:=arrayops.Quantize8(p)

	// work on a height field where the background is dark
	work:=src.Clone()
	if params.LightBackground {
		for i, v:=range work.Data { work.Data[i]=255-v }
	}
	clampTo:=work.Clone()
	if params.DoPresmooth {
		work=mean3x3(work)
	}

	b:=newBall(params.Radius, params.UseParaboloid)
	small:=work
	if b.shrinkFactor>1 {
		small=shrink(work, b.shrinkFactor)
	}
	bg, err:=roll(ctx, small, b)
	if err!=nil { return nil, err }
	if b.shrinkFactor>1 {
		bg=enlarge(bg, work.Width, work.Height, b.shrinkFactor)
	}

	// presmoothing and interpolation can lift the estimate above the unsmoothed surface
	for i, v:=range bg.Data {
		if v>clampTo.Data[i] { v=clampTo.Data[i] }
		if v<0 { v=0 }
		bg.Data[i]=v
	}

	fg:=src.NewLike()
	if params.LightBackground {
		for i, v:=range bg.Data {
			bg.Data[i]=255-v
			r:=src.Data[i]-bg.Data[i]+255
			if r<0   { r=0 }
			if r>255 { r=255 }
			fg.Data[i]=r
		}
	} else {
		for i, v:=range bg.Data {
			r:=src.Data[i]-v
			if r<0 { r=0 }
			fg.Data[i]=r
		}
	}
	bg.ID, bg.Name, bg.PixelSize=p.ID, p.Name, p.PixelSize
	fg.ID, fg.Name, fg.PixelSize=p.ID, p.Name, p.PixelSize
	return &Result{Foreground: fg, Background: bg}, nil
}

// Rolls the ball under the surface: a grey-scale opening with the ball as structuring element.
// First erodes over all ball centers touching the image, then dilates back
func roll(ctx context.Context, p *plane.Plane, b *ball) (*plane.Plane, error) {
	w, h:=p.Width, p.Height
	r:=b.width/2
	cw, ch:=w+2*r, h+2*r // ball centers, offset by r

	// lowest height of each ball center at which the ball still touches the surface
	z:=make([]float64, cw*ch)
	for cy:=0; cy<ch; cy++ {
		if err:=ctx.Err(); err!=nil { return nil, err }
		y:=cy-r
		y0, y1:=max(y-r, 0), min(y+r, h-1)
		for cx:=0; cx<cw; cx++ {
			x:=cx-r
			x0, x1:=max(x-r, 0), min(x+r, w-1)
			zMin:=math.MaxFloat64
			for yp:=y0; yp<=y1; yp++ {
				row:=p.Data[yp*w:]
				bp:=(yp-y+r)*b.width+(x0-x+r)
				for xp:=x0; xp<=x1; xp, bp=xp+1, bp+1 {
					if zr:=row[xp]-b.data[bp]; zr<zMin { zMin=zr }
				}
			}
			z[cy*cw+cx]=zMin
		}
	}

	// background is the upper envelope of all balls at their resting heights
	bg:=p.NewLike()
	for i:=range bg.Data { bg.Data[i]=-math.MaxFloat64 }
	for cy:=0; cy<ch; cy++ {
		if err:=ctx.Err(); err!=nil { return nil, err }
		y:=cy-r
		y0, y1:=max(y-r, 0), min(y+r, h-1)
		for cx:=0; cx<cw; cx++ {
			x:=cx-r
			x0, x1:=max(x-r, 0), min(x+r, w-1)
			zc:=z[cy*cw+cx]
			for yp:=y0; yp<=y1; yp++ {
				row:=bg.Data[yp*w:]
				bp:=(yp-y+r)*b.width+(x0-x+r)
				for xp:=x0; xp<=x1; xp, bp=xp+1, bp+1 {
					if za:=zc+b.data[bp]; za>row[xp] { row[xp]=za }
				}
			}
		}
	}
	return bg, nil
}

// Shrinks the plane by the given factor, taking the minimum of each block
func shrink(p *plane.Plane, factor int) *plane.Plane {
	sw, sh:=(p.Width+factor-1)/factor, (p.Height+factor-1)/factor
	res:=&plane.Plane{ID: p.ID, Name: p.Name, Width: sw, Height: sh, PixelSize: p.PixelSize, Data: make([]float64, sw*sh)}
	for sy:=0; sy<sh; sy++ {
		for sx:=0; sx<sw; sx++ {
			m:=math.MaxFloat64
			for y:=sy*factor; y<min((sy+1)*factor, p.Height); y++ {
				for x:=sx*factor; x<min((sx+1)*factor, p.Width); x++ {
					if v:=p.Data[y*p.Width+x]; v<m { m=v }
				}
			}
			res.Data[sy*sw+sx]=m
		}
	}
	return res
}

// Enlarges a shrunken plane to the given size with bilinear interpolation
// between block centers
func enlarge(small *plane.Plane, width, height, factor int) *plane.Plane {
	res:=&plane.Plane{ID: small.ID, Name: small.Name, Width: width, Height: height, PixelSize: small.PixelSize,
		              Data: make([]float64, width*height)}
	xs0, xs1, xw:=interpolationArrays(width,  small.Width,  factor)
	ys0, ys1, yw:=interpolationArrays(height, small.Height, factor)
	for y:=0; y<height; y++ {
		r0, r1:=small.Data[ys0[y]*small.Width:], small.Data[ys1[y]*small.Width:]
		for x:=0; x<width; x++ {
			top:=r0[xs0[x]]*(1-xw[x]) + r0[xs1[x]]*xw[x]
			bot:=r1[xs0[x]]*(1-xw[x]) + r1[xs1[x]]*xw[x]
			res.Data[y*width+x]=top*(1-yw[y]) + bot*yw[y]
		}
	}
	return res
}

// For each full-resolution coordinate, returns the two neighboring small-grid indices
// and the weight of the second one
func interpolationArrays(length, smallLength, factor int) (i0, i1 []int, w []float64) {
	i0, i1, w=make([]int, length), make([]int, length), make([]float64, length)
	for i:=0; i<length; i++ {
		pos:=(float64(i)-float64(factor-1)/2)/float64(factor)
		if pos<0 { pos=0 }
		if maxPos:=float64(smallLength-1); pos>maxPos { pos=maxPos }
		lo:=int(pos)
		hi:=min(lo+1, smallLength-1)
		i0[i], i1[i], w[i]=lo, hi, pos-float64(lo)
	}
	return i0, i1, w
}

// 3x3 mean filter. Border pixels average over their in-bounds neighbors
func mean3x3(p *plane.Plane) *plane.Plane {
	res:=p.NewLike()
	for y:=0; y<p.Height; y++ {
		for x:=0; x<p.Width; x++ {
			sum, n:=0.0, 0
			for yy:=max(y-1, 0); yy<=min(y+1, p.Height-1); yy++ {
				for xx:=max(x-1, 0); xx<=min(x+1, p.Width-1); xx++ {
					sum+=p.Data[yy*p.Width+xx]
					n++
				}
			}
			res.Data[y*p.Width+x]=sum/float64(n)
		}
	}
	return res
}

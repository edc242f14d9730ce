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


package background

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/valyala/fastrand"
	"github.com/mlnoga/stedlight/internal/plane"
)

func spotPlane(size int, bg, spot float64) *plane.Plane {
	p, _:=plane.New(size, size, nil)
	for i:=range p.Data { p.Data[i]=bg }
	p.Data[(size/2)*size+size/2]=spot
	return p
}

// smooth gradient plus random speckle, values up to about 300 to exercise saturation
func noisyPlane(rng *fastrand.RNG, w, h int) *plane.Plane {
	p, _:=plane.New(w, h, nil)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v:=40+float64(x+y)*1.5+float64(rng.Uint32n(20))
			if rng.Uint32n(50)==0 { v+=200 }
			p.Data[y*w+x]=v+0.7
		}
	}
	return p
}

func TestBallShape(t *testing.T) {
	b:=newBall(10, false)
	if b.shrinkFactor!=1 || b.width!=17 { t.Errorf("radius 10: shrink %d width %d; want 1 and 17", b.shrinkFactor, b.width) }
	if c:=b.data[8*17+8]; c!=10 { t.Errorf("center height %g; want 10", c) }
	if c:=b.data[0]; c!=0 { t.Errorf("corner height %g; want 0", c) }

	b=newBall(50, false)
	if b.shrinkFactor!=4 { t.Errorf("radius 50: shrink %d; want 4", b.shrinkFactor) }
	b=newBall(200, true)
	if b.shrinkFactor!=8 { t.Errorf("radius 200: shrink %d; want 8", b.shrinkFactor) }
}

func TestFlatPlaneIsAllBackground(t *testing.T) {
	p:=spotPlane(15, 77, 77)
	res, err:=Subtract(context.Background(), p, Params{Radius: 5})
	if err!=nil { t.Fatal(err) }
	for i:=range p.Data {
		if res.Background.Data[i]!=77 || res.Foreground.Data[i]!=0 {
			t.Fatalf("pixel %d: bg %g fg %g; want 77 and 0", i, res.Background.Data[i], res.Foreground.Data[i])
		}
	}
}

func TestSpotIsForeground(t *testing.T) {
	p:=spotPlane(21, 10, 200)
	res, err:=Subtract(context.Background(), p, Params{Radius: 5})
	if err!=nil { t.Fatal(err) }
	center:=10*21+10
	if fg:=res.Foreground.Data[center]; fg<189 { t.Errorf("spot residual %g; want at least 189", fg) }
	for i, v:=range res.Background.Data {
		if v<10 || v>10.5 { t.Errorf("pixel %d: background %g outside [10,10.5]", i, v) }
		if i!=center && res.Foreground.Data[i]!=0 { t.Errorf("pixel %d: residual %g; want 0", i, res.Foreground.Data[i]) }
	}
}

func TestAdditivityAndUpperBound(t *testing.T) {
	rng:=fastrand.RNG{}
	for _, params:=range []Params{
		{Radius: 3},
		{Radius: 10, DoPresmooth: true},
		{Radius: 8,  UseParaboloid: true},
		{Radius: 25, DoPresmooth: true},  // shrinks by 2
		{Radius: 60},                     // shrinks by 4
	} {
		p:=noisyPlane(&rng, 37, 29)
		orig:=p.Clone()
		res, err:=Subtract(context.Background(), p, params)
		if err!=nil { t.Fatalf("%+v: %v", params, err) }
		if !res.Foreground.SameSize(p) || !res.Background.SameSize(p) {
			t.Fatalf("%+v: output size differs from input", params)
		}
		for i, v:=range p.Data {
			clamped:=math.Trunc(math.Min(v, 255))
			bg, fg:=res.Background.Data[i], res.Foreground.Data[i]
			if bg>clamped { t.Fatalf("%+v: pixel %d background %g above input %g", params, i, bg, clamped) }
			if fg<0 { t.Fatalf("%+v: pixel %d negative residual %g", params, i, fg) }
			if math.Abs(fg+bg-clamped)>1e-9 {
				t.Fatalf("%+v: pixel %d residual %g + background %g != input %g", params, i, fg, bg, clamped)
			}
		}
		for i, v:=range orig.Data {
			if p.Data[i]!=v { t.Fatalf("%+v: input modified at %d", params, i) }
		}
	}
}

func TestLightBackground(t *testing.T) {
	p:=spotPlane(21, 240, 20)
	res, err:=Subtract(context.Background(), p, Params{Radius: 5, LightBackground: true})
	if err!=nil { t.Fatal(err) }
	center:=10*21+10
	for i, v:=range p.Data {
		if res.Background.Data[i]<v { t.Errorf("pixel %d: light background %g below input %g", i, res.Background.Data[i], v) }
		if i!=center && res.Foreground.Data[i]!=255 { t.Errorf("pixel %d: residual %g; want 255", i, res.Foreground.Data[i]) }
	}
	if fg:=res.Foreground.Data[center]; fg>40 { t.Errorf("dark spot residual %g; want at most 40", fg) }
}

func TestInvalidRadius(t *testing.T) {
	p:=spotPlane(5, 1, 2)
	for _, r:=range []float64{0, -3, math.NaN()} {
		if _, err:=Subtract(context.Background(), p, Params{Radius: r}); !errors.Is(err, plane.ErrInvalidParameter) {
			t.Errorf("radius %g err=%v; want ErrInvalidParameter", r, err)
		}
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel:=context.WithCancel(context.Background())
	cancel()
	_, err:=Subtract(ctx, spotPlane(50, 1, 2), DefaultParams())
	if !errors.Is(err, context.Canceled) { t.Errorf("err=%v; want context.Canceled", err) }
}

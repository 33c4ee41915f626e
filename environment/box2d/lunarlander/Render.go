package lunarlander

import (
	"fmt"
	"image/color"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
)

var (
	skyColour     = color.RGBA{0, 0, 0, 255}
	moonColour    = color.RGBA{255, 255, 255, 255}
	hullColour    = color.RGBA{128, 102, 230, 255}
	legColour     = color.RGBA{77, 77, 128, 255}
	flagColour    = color.RGBA{204, 204, 0, 255}
	boundaryColor = color.RGBA{255, 0, 0, 255}
)

// toPixels converts Box2D world coordinates to image coordinates,
// which have their origin at the top left of the viewport
func toPixels(x, y float64) (float64, float64) {
	return x * Scale, ViewportH - y*Scale
}

// Render draws the current frame of the simulation and saves it as a
// PNG to filename
func (l *lunarLander) Render(filename string) error {
	if l.lander == nil {
		return fmt.Errorf("render: simulation has not been reset")
	}

	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(skyColour)
	dc.Clear()

	// Moon surface, filled to the bottom of the viewport
	dc.NewSubPath()
	x0, y0 := toPixels(l.terrain[0][0], 0)
	dc.MoveTo(x0, y0)
	for _, v := range l.terrain {
		px, py := toPixels(v[0], v[1])
		dc.LineTo(px, py)
	}
	xn, yn := toPixels(l.terrain[len(l.terrain)-1][0], 0)
	dc.LineTo(xn, yn)
	dc.ClosePath()
	dc.SetColor(moonColour)
	dc.Fill()

	// Helipad flags
	for _, x := range []float64{l.helipadX1, l.helipadX2} {
		px, py := toPixels(x, l.helipadY)
		top := py - 50
		dc.DrawLine(px, py, px, top)
		dc.SetColor(moonColour)
		dc.SetLineWidth(1)
		dc.Stroke()

		dc.MoveTo(px, top)
		dc.LineTo(px, top+10)
		dc.LineTo(px+25, top+5)
		dc.ClosePath()
		dc.SetColor(flagColour)
		dc.Fill()
	}

	dc.SetColor(boundaryColor)
	dc.SetLineWidth(5)
	for _, b := range l.boundary {
		edge, ok := b.GetFixtureList().M_shape.(*box2d.B2EdgeShape)
		if !ok {
			continue
		}
		x1, y1 := toPixels(edge.M_vertex1.X, edge.M_vertex1.Y)
		x2, y2 := toPixels(edge.M_vertex2.X, edge.M_vertex2.Y)
		dc.DrawLine(x1, y1, x2, y2)
	}
	dc.Stroke()

	drawBody(dc, l.lander, hullColour)
	for _, leg := range l.legs {
		drawBody(dc, leg, legColour)
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("render: %v", err)
	}
	return nil
}

// drawBody fills each polygon fixture of body in world position
func drawBody(dc *gg.Context, body *box2d.B2Body, c color.Color) {
	xf := body.M_xf
	for fix := body.GetFixtureList(); fix != nil; fix = fix.M_next {
		poly, ok := fix.M_shape.(*box2d.B2PolygonShape)
		if !ok || poly.M_count == 0 {
			continue
		}

		dc.NewSubPath()
		for i := 0; i < poly.M_count; i++ {
			v := box2d.B2TransformVec2Mul(xf, poly.M_vertices[i])
			px, py := toPixels(v.X, v.Y)
			dc.LineTo(px, py)
		}
		dc.ClosePath()
		dc.SetColor(c)
		dc.Fill()
	}
}

// Package render is the reference filter renderer. It decodes JPEG or PNG
// input, applies a models.Transform and encodes the result as JPEG. Output
// is a pure function of (source, transform, target height).
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
)

const defaultQuality = 90

type Renderer struct {
	Quality int
}

func New() *Renderer {
	return &Renderer{Quality: defaultQuality}
}

// Render applies t to src. A targetHeight above zero scales the result
// down to that height keeping the aspect ratio; smaller images are not
// enlarged.
func (r *Renderer) Render(ctx context.Context, src []byte, t models.Transform, targetHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", common.ErrRender, err)
	}

	rgba := toRGBA(img)
	if targetHeight > 0 && rgba.Bounds().Dy() > targetHeight {
		rgba = scaleToHeight(rgba, targetHeight)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if radius := int(math.Round(t.Blur - 1)); radius > 0 {
		rgba = boxBlur(rgba, radius)
	}
	if t.Sharpen != 0 {
		rgba = sharpen(rgba, t.Sharpen)
	}
	applyColor(rgba, t)

	quality := r.Quality
	if quality <= 0 {
		quality = defaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", common.ErrRender, err)
	}
	return buf.Bytes(), nil
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// scaleToHeight resamples with bilinear interpolation.
func scaleToHeight(src *image.RGBA, h int) *image.RGBA {
	sb := src.Bounds()
	w := int(math.Max(1, math.Round(float64(sb.Dx())*float64(h)/float64(sb.Dy()))))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	xRatio := float64(sb.Dx()) / float64(w)
	yRatio := float64(sb.Dy()) / float64(h)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)*yRatio - 0.5
		y0 := clampInt(int(math.Floor(fy)), 0, sb.Dy()-1)
		y1 := clampInt(y0+1, 0, sb.Dy()-1)
		wy := fy - math.Floor(fy)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)*xRatio - 0.5
			x0 := clampInt(int(math.Floor(fx)), 0, sb.Dx()-1)
			x1 := clampInt(x0+1, 0, sb.Dx()-1)
			wx := fx - math.Floor(fx)

			c00, c10 := src.RGBAAt(x0, y0), src.RGBAAt(x1, y0)
			c01, c11 := src.RGBAAt(x0, y1), src.RGBAAt(x1, y1)
			lerp := func(a, b, c, d uint8) uint8 {
				top := float64(a)*(1-wx) + float64(b)*wx
				bottom := float64(c)*(1-wx) + float64(d)*wx
				return uint8(math.Round(top*(1-wy) + bottom*wy))
			}
			dst.SetRGBA(x, y, color.RGBA{
				R: lerp(c00.R, c10.R, c01.R, c11.R),
				G: lerp(c00.G, c10.G, c01.G, c11.G),
				B: lerp(c00.B, c10.B, c01.B, c11.B),
				A: 255,
			})
		}
	}
	return dst
}

func boxBlur(src *image.RGBA, radius int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			var r, g, bl, n int
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					c := src.RGBAAt(clampInt(x+dx, 0, b.Dx()-1), clampInt(y+dy, 0, b.Dy()-1))
					r += int(c.R)
					g += int(c.G)
					bl += int(c.B)
					n++
				}
			}
			dst.SetRGBA(x, y, color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 255})
		}
	}
	return dst
}

// sharpen is an unsharp mask over a 3x3 box; negative amounts soften.
func sharpen(src *image.RGBA, amount float64) *image.RGBA {
	blurred := boxBlur(src, 1)
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c, s := src.RGBAAt(x, y), blurred.RGBAAt(x, y)
			mask := func(v, soft uint8) uint8 {
				return to8(float64(v)/255 + amount*(float64(v)-float64(soft))/255)
			}
			dst.SetRGBA(x, y, color.RGBA{R: mask(c.R, s.R), G: mask(c.G, s.G), B: mask(c.B, s.B), A: 255})
		}
	}
	return dst
}

// applyColor runs brightness, contrast around the grey point, saturation,
// warmth and vignette on every pixel.
func applyColor(img *image.RGBA, t models.Transform) {
	b := img.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	maxDist := math.Hypot(cx, cy)
	edge := t.Vignette / 2

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.RGBAAt(x, y)
			rgb := [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}

			for i := range rgb {
				rgb[i] *= t.Brightness
				rgb[i] = (rgb[i]-t.Grey)*t.Contrast + t.Grey
			}

			lum := 0.2126*rgb[0] + 0.7152*rgb[1] + 0.0722*rgb[2]
			for i := range rgb {
				rgb[i] = lum + (rgb[i]-lum)*t.Saturation
			}

			rgb[0] += t.Warmth
			rgb[2] -= t.Warmth

			if maxDist > 0 {
				d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / maxDist
				if d > edge {
					f := math.Max(0, 1-(d-edge)*2)
					for i := range rgb {
						rgb[i] *= f
					}
				}
			}

			img.SetRGBA(x, y, color.RGBA{R: to8(rgb[0]), G: to8(rgb[1]), B: to8(rgb[2]), A: 255})
		}
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

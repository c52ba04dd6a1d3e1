// Package preprocess applies OCR-oriented image filtering: grayscale
// conversion, deskew, binarization and noise removal. Individual filter
// failures degrade to the unfiltered image instead of failing the page.
package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ocrflow/ocr-pipeline/internal/domain"
)

// Skew angles outside this window are left alone: tiny angles are not worth
// resampling for, large ones are almost certainly a bad estimate.
const (
	minSkewDegrees = 0.5
	maxSkewDegrees = 45.0
)

// Options selects which filters run and with what parameters.
type Options struct {
	Grayscale    bool
	Deskew       bool
	Binarization string // "otsu", "adaptive" or empty
	BlockSize    int    // adaptive threshold neighborhood, odd
	C            int    // adaptive threshold offset
	MedianKernel int    // median filter size, odd; 0 disables
}

// Filter implements domain.Preprocessor.
type Filter struct {
	opts Options
	log  zerolog.Logger
}

// New creates a preprocessing filter chain.
func New(opts Options, log zerolog.Logger) *Filter {
	return &Filter{opts: opts, log: log}
}

// Apply runs the configured filters in order and returns a new raster image.
// The input image is not modified.
func (f *Filter) Apply(img *domain.RasterImage) (*domain.RasterImage, error) {
	if img == nil || img.Pixels == nil {
		return nil, domain.PreprocessError("nil input image", nil)
	}

	needGray := f.opts.Grayscale || f.opts.Deskew || f.opts.Binarization != ""
	if !needGray && f.opts.MedianKernel == 0 {
		return img, nil
	}

	gray := toGray(img.Pixels)

	if f.opts.Deskew {
		gray = f.deskew(gray)
	}

	switch f.opts.Binarization {
	case "otsu":
		level := otsuLevel(gray)
		gray = threshold(gray, level, false)
		f.log.Debug().Uint8("level", level).Msg("otsu binarization applied")
	case "adaptive":
		gray = adaptiveMeanThreshold(gray, f.opts.BlockSize, f.opts.C)
		f.log.Debug().Int("block_size", f.opts.BlockSize).Msg("adaptive binarization applied")
	}

	if k := f.opts.MedianKernel; k >= 3 && k%2 == 1 {
		gray = medianFilter(gray, k)
		f.log.Debug().Int("kernel", k).Msg("median filter applied")
	}

	return domain.NewRasterImage(gray), nil
}

// deskew estimates the dominant text skew from the image's second-order
// moments and rotates to compensate. An unusable estimate leaves the image
// untouched.
func (f *Filter) deskew(gray *image.Gray) *image.Gray {
	mask := threshold(gray, otsuLevel(gray), true)
	angle, ok := skewDegrees(mask)
	if !ok {
		f.log.Warn().Msg("not enough foreground pixels for skew estimate, skipping deskew")
		return gray
	}
	if abs := math.Abs(angle); abs <= minSkewDegrees || abs >= maxSkewDegrees {
		f.log.Debug().Float64("angle", angle).Msg("skew angle outside rotation window, skipping")
		return gray
	}
	f.log.Info().Float64("angle", angle).Msg("rotating to correct skew")
	return rotate(gray, -angle)
}

// toGray converts any image to 8-bit grayscale.
func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	b := src.Bounds()
	out := image.NewGray(b)
	draw.Draw(out, b, src, b.Min, draw.Src)
	return out
}

// otsuLevel computes the global Otsu threshold of a grayscale image.
func otsuLevel(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var best float64
	var level uint8
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = uint8(i)
		}
	}
	return level
}

// threshold produces a binary image: pixels above level become white (or
// black when inverted).
func threshold(g *image.Gray, level uint8, invert bool) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	for i, v := range g.Pix {
		on := v > level
		if invert {
			on = !on
		}
		if on {
			out.Pix[i] = 255
		}
	}
	return out
}

// adaptiveMeanThreshold binarizes against the local mean of a block×block
// neighborhood minus c, using a summed-area table for the means.
func adaptiveMeanThreshold(g *image.Gray, block, c int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return g
	}

	// integral[y][x] holds the sum over the rectangle [0,x) x [0,y).
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(g.Pix[y*g.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	r := block / 2
	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(0, x-r), max(0, y-r)
			x1, y1 := min(w, x+r+1), min(h, y+r+1)
			area := int64((x1 - x0) * (y1 - y0))
			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] -
				integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := sum / area
			if int64(g.Pix[y*g.Stride+x]) > mean-int64(c) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// medianFilter applies a k×k median filter.
func medianFilter(g *image.Gray, k int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	r := k / 2
	out := image.NewGray(b)
	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hist = [256]int{}
			count := 0
			for dy := -r; dy <= r; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -r; dx <= r; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					hist[g.Pix[yy*g.Stride+xx]]++
					count++
				}
			}
			half := count / 2
			acc := 0
			for v := 0; v < 256; v++ {
				acc += hist[v]
				if acc > half {
					out.Pix[y*out.Stride+x] = uint8(v)
					break
				}
			}
		}
	}
	return out
}

// skewDegrees estimates the text skew angle in degrees from the central
// second-order moments of the foreground mask. Returns false when there are
// too few foreground pixels to trust the estimate.
func skewDegrees(mask *image.Gray) (float64, bool) {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	var n, sx, sy float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.Pix[y*mask.Stride+x] > 0 {
				n++
				sx += float64(x)
				sy += float64(y)
			}
		}
	}
	if n < 16 {
		return 0, false
	}
	cx, cy := sx/n, sy/n

	var mu11, mu20, mu02 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.Pix[y*mask.Stride+x] > 0 {
				dx, dy := float64(x)-cx, float64(y)-cy
				mu11 += dx * dy
				mu20 += dx * dx
				mu02 += dy * dy
			}
		}
	}
	if mu20 == mu02 && mu11 == 0 {
		return 0, false
	}

	theta := 0.5 * math.Atan2(2*mu11, mu20-mu02)
	return theta * 180 / math.Pi, true
}

// rotate rotates the image by deg degrees about its center, filling the
// exposed border with white.
func rotate(g *image.Gray, deg float64) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	draw.Draw(out, b, &image.Uniform{C: color.Gray{Y: 255}}, image.Point{}, draw.Src)

	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx := float64(b.Dx()) / 2
	cy := float64(b.Dy()) / 2

	m := f64.Aff3{
		cos, -sin, cx - cx*cos + cy*sin,
		sin, cos, cy - cx*sin - cy*cos,
	}
	draw.BiLinear.Transform(out, m, g, b, draw.Over, nil)
	return out
}

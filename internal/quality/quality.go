// Package quality screens decoded frames for obvious capture failures.
package quality

import (
	"fmt"
	"image"
	"math"

	"github.com/sierracams/snowlapse/internal/config"
)

// Verdict is the outcome of assessing one frame.
type Verdict struct {
	Bad    bool
	Reason string
}

// Assess inspects a decoded frame and reports the first failure found.
// A nil image reports as unreadable. Checks run cheapest first: dimensions,
// then luma statistics, then the Laplacian response.
func Assess(img image.Image, q config.QualityConfig) Verdict {
	if img == nil {
		return Verdict{Bad: true, Reason: "unreadable"}
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < int(q.MinDimension) || h < int(q.MinDimension) {
		return Verdict{Bad: true, Reason: fmt.Sprintf("too_small(%dx%d)", w, h)}
	}

	plane := lumaPlane(img)
	total := float64(len(plane))

	var hist [256]int
	for _, v := range plane {
		hist[v]++
	}

	blackCount := 0
	for v := 0; v <= int(q.BlackLumaMax); v++ {
		blackCount += hist[v]
	}
	blackRatio := float64(blackCount) / total
	if blackRatio >= q.BlackRatioMax {
		return Verdict{Bad: true, Reason: fmt.Sprintf("mostly_black(%.2f)", blackRatio)}
	}

	whiteCount := 0
	for v := int(q.WhiteLumaMin); v < 256; v++ {
		whiteCount += hist[v]
	}
	whiteRatio := float64(whiteCount) / total
	if whiteRatio >= q.WhiteRatioMax {
		return Verdict{Bad: true, Reason: fmt.Sprintf("mostly_white(%.2f)", whiteRatio)}
	}

	var sum, sumSq float64
	for v, count := range hist {
		c := float64(count)
		sum += c * float64(v)
		sumSq += c * float64(v) * float64(v)
	}
	mean := sum / total
	variance := sumSq/total - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)
	if std < q.MinStdDev {
		return Verdict{Bad: true, Reason: fmt.Sprintf("low_std(%.2f)", std)}
	}

	maxBin := 0
	for _, count := range hist {
		if count > maxBin {
			maxBin = count
		}
	}
	dominant := float64(maxBin) / total
	if dominant >= q.DominantBinMax {
		return Verdict{Bad: true, Reason: fmt.Sprintf("dominant_bin(%.2f)", dominant)}
	}

	if half := w / 2; half > 0 {
		var leftSum, rightSum float64
		for y := 0; y < h; y++ {
			row := plane[y*w : (y+1)*w]
			for x, v := range row {
				if x < half {
					leftSum += float64(v)
				} else {
					rightSum += float64(v)
				}
			}
		}
		leftMean := leftSum / float64(half*h)
		rightMean := rightSum / float64((w-half)*h)
		if math.Abs(leftMean-rightMean) > q.HalfDiffMax {
			if leftMean <= q.HalfBlankMax || rightMean <= q.HalfBlankMax {
				return Verdict{Bad: true, Reason: "half_blank"}
			}
			if leftMean >= q.HalfWhiteMin || rightMean >= q.HalfWhiteMin {
				return Verdict{Bad: true, Reason: "half_white"}
			}
		}
	}

	if lap := lapVariance(plane, w, h); lap > q.LapVarMax {
		return Verdict{Bad: true, Reason: fmt.Sprintf("excessive_lap_var(%.0f)", lap)}
	}

	return Verdict{}
}

// lumaPlane converts img to 8 bit BT.601 luma in row-major order. JPEG
// frames decode to YCbCr whose Y plane already carries that luma, so the
// common case is a straight copy.
func lumaPlane(img image.Image) []uint8 {
	bounds := img.Bounds()
	w := bounds.Dx()
	plane := make([]uint8, 0, w*bounds.Dy())

	switch src := img.(type) {
	case *image.YCbCr:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			off := src.YOffset(bounds.Min.X, y)
			plane = append(plane, src.Y[off:off+w]...)
		}
	case *image.Gray:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			off := src.PixOffset(bounds.Min.X, y)
			plane = append(plane, src.Pix[off:off+w]...)
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				plane = append(plane, uint8((299*(r>>8)+587*(g>>8)+114*(b>>8)+500)/1000))
			}
		}
	}
	return plane
}

// lapVariance computes the population variance of the 3x3 Laplacian
// response with reflected borders, the classic corruption and blur metric.
func lapVariance(plane []uint8, w, h int) float64 {
	if w < 2 || h < 2 {
		return 0
	}

	n := float64(w * h)
	var sum, sumSq float64
	for y := 0; y < h; y++ {
		ym := y - 1
		if ym < 0 {
			ym = 1
		}
		yp := y + 1
		if yp >= h {
			yp = h - 2
		}
		rowOff, upOff, downOff := y*w, ym*w, yp*w
		for x := 0; x < w; x++ {
			xl := x - 1
			if xl < 0 {
				xl = 1
			}
			xr := x + 1
			if xr >= w {
				xr = w - 2
			}
			v := float64(plane[upOff+x]) + float64(plane[downOff+x]) +
				float64(plane[rowOff+xl]) + float64(plane[rowOff+xr]) -
				4*float64(plane[rowOff+x])
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		return 0
	}
	return variance
}

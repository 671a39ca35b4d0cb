package xtid

import (
	"math"
	"strconv"
	"strings"
)

// cubicBezier evaluates a CSS cubic-bezier(x1, y1, x2, y2) timing curve.
type cubicBezier [4]float64

func (c cubicBezier) at(t float64) float64 {
	if t <= 0 {
		var g float64
		if c[0] > 0 {
			g = c[1] / c[0]
		} else if c[1] == 0 && c[2] > 0 {
			g = c[3] / c[2]
		}
		return g * t
	}
	if t >= 1 {
		var g float64
		if c[2] < 1 {
			g = (c[3] - 1) / (c[2] - 1)
		} else if c[2] == 1 && c[0] < 1 {
			g = (c[1] - 1) / (c[0] - 1)
		}
		return 1 + g*(t-1)
	}

	lo, hi, mid := 0.0, 1.0, 0.0
	for lo < hi {
		mid = (lo + hi) / 2
		x := bezier(c[0], c[2], mid)
		if math.Abs(t-x) < 0.00001 {
			break
		}
		if x < t {
			lo = mid
		} else {
			hi = mid
		}
	}
	return bezier(c[1], c[3], mid)
}

func bezier(a, b, m float64) float64 {
	return 3*a*(1-m)*(1-m)*m + 3*b*(1-m)*m*m + m*m*m
}

func lerp(from, to []float64, f float64) []float64 {
	out := make([]float64, len(from))
	for i := range from {
		out[i] = from[i]*(1-f) + to[i]*f
	}
	return out
}

func rotationMatrix(deg float64) [4]float64 {
	rad := deg * math.Pi / 180
	return [4]float64{math.Cos(rad), -math.Sin(rad), math.Sin(rad), math.Cos(rad)}
}

// scale maps a byte value onto [lo, hi].
func scale(v, lo, hi float64, floor bool) float64 {
	r := v*(hi-lo)/255 + lo
	if floor {
		return math.Floor(r)
	}
	return math.Round(r*100) / 100
}

// jsRound rounds half away from zero for positives, as Math.round does.
func jsRound(n float64) float64 {
	x := math.Floor(n)
	if n-x >= 0.5 {
		x = math.Ceil(n)
	}
	return math.Copysign(x, n)
}

// floatToHex renders x in base 16 with uppercase digits, including its fraction.
func floatToHex(x float64) string {
	whole := int(x)
	frac := x - float64(whole)

	var digits []byte
	for n := whole; n > 0; n /= 16 {
		digits = append([]byte{hexDigit(n % 16)}, digits...)
	}
	if frac == 0 {
		return string(digits)
	}

	digits = append(digits, '.')
	for frac > 0 {
		frac *= 16
		d := int(frac)
		frac -= float64(d)
		digits = append(digits, hexDigit(d))
	}
	return string(digits)
}

func hexDigit(d int) byte {
	if d > 9 {
		return byte('A' + d - 10)
	}
	return byte('0' + d)
}

var stripPunct = strings.NewReplacer(".", "", "-", "")

// animate renders the animation state of one frame row at time t as the
// hex string mixed into every transaction id.
func animate(row []int, t float64) string {
	if len(row) < 11 {
		return ""
	}
	fromColor := []float64{float64(row[0]), float64(row[1]), float64(row[2]), 1}
	toColor := []float64{float64(row[3]), float64(row[4]), float64(row[5]), 1}
	toRotation := scale(float64(row[6]), 60, 360, true)

	var curve cubicBezier
	for i, v := range row[7:11] {
		lo := 0.0
		if i%2 != 0 {
			lo = -1
		}
		curve[i] = scale(float64(v), lo, 1, false)
	}
	val := curve.at(t)

	var sb strings.Builder
	for _, c := range lerp(fromColor, toColor, val)[:3] {
		c = math.Max(0, math.Min(255, c))
		sb.WriteString(strconv.FormatInt(int64(math.Round(c)), 16))
	}
	for _, v := range rotationMatrix(lerp([]float64{0}, []float64{toRotation}, val)[0]) {
		r := math.Abs(math.Round(v*100) / 100)
		switch h := floatToHex(r); {
		case strings.HasPrefix(h, "."):
			sb.WriteString("0" + strings.ToLower(h))
		case h == "":
			sb.WriteString("0")
		default:
			sb.WriteString(h)
		}
	}
	sb.WriteString("00")
	return stripPunct.Replace(sb.String())
}

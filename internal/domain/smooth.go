package domain

import (
	"errors"
	"fmt"
	"math"
)

// Fixed smoothing parameters. They are not caller-configurable.
const (
	SmoothingWindow = 11
	SmoothingOrder  = 2
)

// SmoothSeries returns a copy of s with Savitzky-Golay smoothed values and the
// same dates. Series no longer than the window are returned unchanged.
func SmoothSeries(s Series) Series {
	out := make(Series, len(s))
	copy(out, s)
	if len(s) <= SmoothingWindow {
		return out
	}
	smoothed, err := SavitzkyGolay(s.Values(), SmoothingWindow, SmoothingOrder)
	if err != nil {
		// Unreachable with the fixed parameters and len(s) > window.
		return out
	}
	for i := range out {
		out[i].Value = smoothed[i]
	}
	return out
}

// SavitzkyGolay fits a polynomial of the given order by least squares over a
// sliding window of consecutive values and returns the fitted value at each
// position. Sample spacing is ignored. The first and last window/2 positions
// are evaluated on the polynomial fitted to the first and last full window.
func SavitzkyGolay(values []float64, window, order int) ([]float64, error) {
	if window <= 0 || window%2 == 0 {
		return nil, fmt.Errorf("savitzky-golay: window %d must be a positive odd number", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("savitzky-golay: order %d must be less than window %d", order, window)
	}
	if len(values) < window {
		return nil, fmt.Errorf("savitzky-golay: %d values shorter than window %d", len(values), window)
	}

	hat, err := projection(window, order)
	if err != nil {
		return nil, err
	}

	n := len(values)
	half := window / 2
	out := make([]float64, n)

	apply := func(row []float64, from int) float64 {
		var v float64
		for j, w := range row {
			v += w * values[from+j]
		}
		return v
	}

	for i := half; i < n-half; i++ {
		out[i] = apply(hat[half], i-half)
	}
	for i := 0; i < half; i++ {
		out[i] = apply(hat[i], 0)
	}
	for k := half + 1; k < window; k++ {
		out[n-window+k] = apply(hat[k], n-window)
	}
	return out, nil
}

// projection returns the window x window least-squares hat matrix
// A (AᵀA)⁻¹ Aᵀ for the Vandermonde matrix A over centered positions.
// Row r applied to a window yields the fitted polynomial at position r.
func projection(window, order int) ([][]float64, error) {
	cols := order + 1
	half := window / 2

	a := make([][]float64, window)
	for i := range a {
		a[i] = make([]float64, cols)
		x := float64(i - half)
		for j := range cols {
			a[i][j] = math.Pow(x, float64(j))
		}
	}

	ata := make([][]float64, cols)
	for i := range ata {
		ata[i] = make([]float64, cols)
		for j := range cols {
			for k := range window {
				ata[i][j] += a[k][i] * a[k][j]
			}
		}
	}

	inv, err := invert(ata)
	if err != nil {
		return nil, err
	}

	hat := make([][]float64, window)
	for r := range window {
		hat[r] = make([]float64, window)
		for c := range window {
			var v float64
			for i := range cols {
				for j := range cols {
					v += a[r][i] * inv[i][j] * a[c][j]
				}
			}
			hat[r][c] = v
		}
	}
	return hat, nil
}

var errSingular = errors.New("savitzky-golay: singular normal matrix")

// invert performs Gauss-Jordan elimination with partial pivoting.
func invert(m [][]float64) ([][]float64, error) {
	n := len(m)
	aug := make([][]float64, n)
	for i := range m {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for c := range n {
		pivot := c
		for r := c + 1; r < n; r++ {
			if math.Abs(aug[r][c]) > math.Abs(aug[pivot][c]) {
				pivot = r
			}
		}
		if aug[pivot][c] == 0 {
			return nil, errSingular
		}
		aug[c], aug[pivot] = aug[pivot], aug[c]

		p := aug[c][c]
		for j := range aug[c] {
			aug[c][j] /= p
		}
		for r := range n {
			if r == c {
				continue
			}
			f := aug[r][c]
			for j := range aug[r] {
				aug[r][j] -= f * aug[c][j]
			}
		}
	}

	out := make([][]float64, n)
	for i := range aug {
		out[i] = aug[i][n:]
	}
	return out, nil
}

package stdimg

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// gaussianKernel1D generates a normalized 1D Gaussian kernel with given sigma.
// Returns kernel and half-width radius.
func gaussianKernel1D(sigma float64) ([]float64, int) {
	if sigma <= 0 {
		return []float64{1.0}, 0
	}
	// choose radius ~ ceil(3*sigma)
	radius := int(math.Ceil(3 * sigma))
	kern := make([]float64, radius*2+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * (float64(i) * float64(i)) / (sigma * sigma))
		kern[i+radius] = v
		sum += v
	}
	for i := range kern {
		kern[i] /= sum
	}
	return kern, radius
}

// GaussianBlur applies a separable gaussian blur to src and returns a new
// image with the same size. Edges are clamped.
func GaussianBlur(src *image.NRGBA, sigma float64) *image.NRGBA {
	if src == nil {
		return nil
	}
	src = ToNRGBA(src)
	kern, radius := gaussianKernel1D(sigma)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	tmp := image.NewNRGBA(image.Rect(0, 0, w, h))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	// horizontal pass
	parallel(h, func(y int) {
		for x := 0; x < w; x++ {
			convolvePixel(tmp, src, x, y, kern, radius, 1, 0)
		}
	})
	// vertical pass
	parallel(w, func(x int) {
		for y := 0; y < h; y++ {
			convolvePixel(dst, tmp, x, y, kern, radius, 0, 1)
		}
	})
	return dst
}

// convolvePixel writes to dst at (x,y) the kernel-weighted sum of src along
// the direction (dx,dy).
func convolvePixel(dst, src *image.NRGBA, x, y int, kern []float64, radius, dx, dy int) {
	var sr, sg, sb, sa float64
	for k := -radius; k <= radius; k++ {
		c := samplePixelClamped(src, x+k*dx, y+k*dy)
		wgt := kern[k+radius]
		sr += float64(c.R) * wgt
		sg += float64(c.G) * wgt
		sb += float64(c.B) * wgt
		sa += float64(c.A) * wgt
	}
	i := dst.PixOffset(x, y)
	dst.Pix[i+0] = clampFloatToUint8(sr)
	dst.Pix[i+1] = clampFloatToUint8(sg)
	dst.Pix[i+2] = clampFloatToUint8(sb)
	dst.Pix[i+3] = clampFloatToUint8(sa)
}

// parallel runs fn for every index in [0,n) on a bounded set of goroutines.
func parallel(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	next := make(chan int, n)
	for i := 0; i < n; i++ {
		next <- i
	}
	close(next)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}
	wg.Wait()
}

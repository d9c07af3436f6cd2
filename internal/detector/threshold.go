package detector

// otsuThreshold selects an edge gate from the gradient magnitude histogram
// using Otsu's method. It maximizes the between-class variance of the
// below/above split. Returns a value in [0,1]; degenerate histograms
// (uniform images) yield 0, which callers should treat as "no edges".
func otsuThreshold(mag []float32, bins int) float32 {
	if len(mag) == 0 || bins < 2 {
		return 0
	}
	histogram := make([]int, bins)
	for _, m := range mag {
		bin := int(m * float32(bins-1))
		if bin >= bins {
			bin = bins - 1
		}
		if bin < 0 {
			bin = 0
		}
		histogram[bin]++
	}

	totalPixels := len(mag)
	var totalMean float32
	for i := range bins {
		totalMean += float32(i) * float32(histogram[i])
	}
	totalMean /= float32(totalPixels)

	var maxVariance float32
	bestThreshold := 0
	var sumB float32
	wB := 0

	for t := range bins {
		wB += histogram[t]
		if wB == 0 {
			continue
		}
		wF := totalPixels - wB
		if wF == 0 {
			break
		}
		sumB += float32(t) * float32(histogram[t])
		meanB := sumB / float32(wB)
		meanF := (totalMean*float32(totalPixels) - sumB) / float32(wF)
		variance := float32(wB) * float32(wF) * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			bestThreshold = t
		}
	}

	return float32(bestThreshold) / float32(bins-1)
}

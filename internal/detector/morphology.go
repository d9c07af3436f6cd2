package detector

// dilateMask expands set regions of a binary mask with a square kernel.
// Used to close small gaps in the edge map before contour extraction.
func dilateMask(mask []bool, width, height, kernelSize, iterations int) []bool {
	if kernelSize <= 1 || iterations <= 0 {
		return mask
	}
	result := mask
	for range iterations {
		result = dilateOnce(result, width, height, kernelSize)
	}
	return result
}

func dilateOnce(mask []bool, width, height, kernelSize int) []bool {
	result := make([]bool, len(mask))
	half := kernelSize / 2

	for y := range height {
		for x := range width {
			set := false
			for ky := -half; ky <= half && !set; ky++ {
				for kx := -half; kx <= half && !set; kx++ {
					nx, ny := x+kx, y+ky
					if nx >= 0 && nx < width && ny >= 0 && ny < height && mask[ny*width+nx] {
						set = true
					}
				}
			}
			result[y*width+x] = set
		}
	}
	return result
}

// erodeMask shrinks set regions of a binary mask with a square kernel.
func erodeMask(mask []bool, width, height, kernelSize, iterations int) []bool {
	if kernelSize <= 1 || iterations <= 0 {
		return mask
	}
	result := mask
	for range iterations {
		result = erodeOnce(result, width, height, kernelSize)
	}
	return result
}

func erodeOnce(mask []bool, width, height, kernelSize int) []bool {
	result := make([]bool, len(mask))
	half := kernelSize / 2

	for y := range height {
		for x := range width {
			keep := true
			for ky := -half; ky <= half && keep; ky++ {
				for kx := -half; kx <= half && keep; kx++ {
					nx, ny := x+kx, y+ky
					if nx < 0 || nx >= width || ny < 0 || ny >= height || !mask[ny*width+nx] {
						keep = false
					}
				}
			}
			result[y*width+x] = keep
		}
	}
	return result
}

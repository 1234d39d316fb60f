package facematch

// ScaleBBox maps a bounding box detected on a downscaled frame back to the
// original frame. factor is the downscale factor that was applied (0.25 means
// the detector saw a quarter-size frame). bbox is [x1, y1, x2, y2].
func ScaleBBox(bbox []float64, factor float64) []float64 {
	if len(bbox) != 4 || factor <= 0 || factor == 1 {
		return bbox
	}
	return []float64{
		bbox[0] / factor,
		bbox[1] / factor,
		bbox[2] / factor,
		bbox[3] / factor,
	}
}

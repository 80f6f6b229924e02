package braketilt

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x float32) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// rateLimit moves value toward target by at most step, landing exactly on
// target once it is within reach.
func rateLimit(value *float32, target, step float32) {
	diff := target - *value
	switch {
	case abs(diff) < step:
		*value = target
	case diff > 0:
		*value += step
	default:
		*value -= step
	}
}

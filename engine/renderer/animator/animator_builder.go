package animator

import "time"

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithFrameInterval sets the fixed time between frame steps.
// Values <= 0 fall back to DefaultFrameInterval.
//
// Parameters:
//   - interval: the frame interval
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the interval option to an animator
func WithFrameInterval(interval time.Duration) AnimatorBuilderOption {
	return func(a *animator) {
		a.interval = interval.Seconds()
	}
}

// WithStartFrame sets the frame the animation starts on. It is wrapped into the frame count.
//
// Parameters:
//   - frame: the starting frame index
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the start frame option to an animator
func WithStartFrame(frame uint32) AnimatorBuilderOption {
	return func(a *animator) {
		a.frame = frame
	}
}

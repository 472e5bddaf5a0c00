package animator

import "time"

// DefaultFrameInterval is used when an animator is built without a positive interval.
const DefaultFrameInterval = 100 * time.Millisecond

// animator is the implementation of the Animator interface.
type animator struct {
	frame      uint32
	frameCount uint32
	elapsed    float64
	interval   float64
}

// Animator is a fixed-interval clock that selects the active frame of a sprite animation.
//
// The clock accumulates frame delta times and steps the frame index once the accumulated time reaches the interval.
// Elapsed time is reset to zero on every step rather than decremented, and at most one step is taken per call, so a
// long stall slows the animation down instead of skipping frames.
type Animator interface {
	// Advance accumulates deltaSeconds and steps the frame index when the interval has been reached.
	//
	// Parameters:
	//   - deltaSeconds: time since the previous call in seconds
	//
	// Returns:
	//   - uint32: the current frame index, always in [0, FrameCount())
	//   - bool: true if this call stepped the frame index
	Advance(deltaSeconds float64) (uint32, bool)

	// Frame returns the current frame index.
	//
	// Returns:
	//   - uint32: the current frame index
	Frame() uint32

	// FrameCount returns the number of frames the index wraps at.
	//
	// Returns:
	//   - uint32: the frame count, at least 1
	FrameCount() uint32

	// Elapsed returns the time accumulated since the last step.
	//
	// Returns:
	//   - float64: accumulated seconds
	Elapsed() float64

	// Interval returns the fixed frame interval.
	//
	// Returns:
	//   - time.Duration: the frame interval
	Interval() time.Duration

	// Reset rewinds the clock to frame 0 with no accumulated time.
	Reset()
}

var _ Animator = &animator{}

// NewAnimator creates an Animator starting at frame 0.
// A frame count below 1 is treated as 1 and a non-positive interval as DefaultFrameInterval.
//
// Parameters:
//   - frameCount: the number of frames in the animation
//   - options: functional options for the animator
//
// Returns:
//   - Animator: the new animator
func NewAnimator(frameCount uint32, options ...AnimatorBuilderOption) Animator {
	a := &animator{
		frameCount: max(frameCount, 1),
		interval:   DefaultFrameInterval.Seconds(),
	}
	for _, opt := range options {
		opt(a)
	}
	if a.interval <= 0 {
		a.interval = DefaultFrameInterval.Seconds()
	}
	a.frame %= a.frameCount
	return a
}

func (a *animator) Advance(deltaSeconds float64) (uint32, bool) {
	if deltaSeconds > 0 {
		a.elapsed += deltaSeconds
	}
	if a.elapsed < a.interval {
		return a.frame, false
	}
	a.elapsed = 0
	a.frame = (a.frame + 1) % a.frameCount
	return a.frame, true
}

func (a *animator) Frame() uint32 {
	return a.frame
}

func (a *animator) FrameCount() uint32 {
	return a.frameCount
}

func (a *animator) Elapsed() float64 {
	return a.elapsed
}

func (a *animator) Interval() time.Duration {
	return time.Duration(a.interval * float64(time.Second))
}

func (a *animator) Reset() {
	a.frame = 0
	a.elapsed = 0
}

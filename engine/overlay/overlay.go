package overlay

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
)

var (
	// ErrSubmit wraps every failure to hand a texture to the compositor or to keep the overlay visible.
	ErrSubmit = errors.New("overlay submission failed")

	// ErrNoOverlay is returned by calls that need an overlay before Create succeeded or after Release.
	ErrNoOverlay = errors.New("overlay has not been created")
)

// FallbackDevice is the slot used when no device of the requested class is tracked.
const FallbackDevice compositor.DeviceIndex = 0

// AnchorResult describes where AnchorToDevice placed the overlay.
type AnchorResult struct {
	// Device is the slot whose pose was used.
	Device compositor.DeviceIndex
	// FellBack reports that no device of the requested class was tracked and FallbackDevice was used.
	FellBack bool
	// Transform is the absolute transform sent to the compositor.
	Transform common.Matrix34
}

// Submitter owns one compositor overlay and keeps it fed with the render target.
type Submitter interface {
	// Create asks the compositor for a new overlay.
	//
	// Parameters:
	//   - key: the unique overlay key
	//   - name: the human readable overlay title
	//
	// Returns:
	//   - compositor.OverlayHandle: the created handle
	//   - error: the compositor error (wrapping compositor.ErrOverlayCreate on rejection), or an error if an overlay
	//     already exists
	Create(key, name string) (compositor.OverlayHandle, error)

	// Handle returns the current overlay handle, compositor.InvalidOverlayHandle before Create.
	//
	// Returns:
	//   - compositor.OverlayHandle: the handle
	Handle() compositor.OverlayHandle

	// AnchorToDevice places the overlay at the pose of the first tracked device of class, offset by the configured
	// anchor offset in device space. When no such device is tracked the pose of FallbackDevice is used and the
	// decision is logged.
	//
	// Parameters:
	//   - class: the device class to anchor to
	//
	// Returns:
	//   - AnchorResult: the chosen device and transform
	//   - error: ErrNoOverlay, or the compositor error
	AnchorToDevice(class compositor.DeviceClass) (AnchorResult, error)

	// SetTexture hands the first texture to the compositor.
	//
	// Parameters:
	//   - tex: the render target reference
	//
	// Returns:
	//   - error: ErrNoOverlay, or an error wrapping ErrSubmit
	SetTexture(tex compositor.Texture) error

	// Show makes the overlay visible.
	//
	// Returns:
	//   - error: ErrNoOverlay, or an error wrapping ErrSubmit
	Show() error

	// Submit re-sends the texture and re-asserts visibility. Called once per tick after the frame was rendered.
	// Texture submission is retried up to the configured retry count before failing.
	//
	// Parameters:
	//   - tex: the render target reference
	//
	// Returns:
	//   - error: ErrNoOverlay, or an error wrapping ErrSubmit
	Submit(tex compositor.Texture) error

	// Release hides and destroys the overlay. Calling it without an overlay is a no-op.
	//
	// Returns:
	//   - error: the joined hide and destroy errors
	Release() error
}

type submitter struct {
	compositor compositor.Compositor
	handle     compositor.OverlayHandle

	anchorOffset [3]float32
	retries      int
	backoff      time.Duration
	sleep        func(time.Duration)
}

var _ Submitter = &submitter{}

// NewSubmitter creates a Submitter bound to a connected compositor.
//
// Parameters:
//   - c: the compositor the overlay lives in
//   - options: functional options for the submitter
//
// Returns:
//   - Submitter: the submitter, without an overlay yet
func NewSubmitter(c compositor.Compositor, options ...SubmitterBuilderOption) Submitter {
	s := &submitter{
		compositor: c,
		backoff:    10 * time.Millisecond,
		sleep:      time.Sleep,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.retries < 0 {
		s.retries = 0
	}
	return s
}

func (s *submitter) Create(key, name string) (compositor.OverlayHandle, error) {
	if s.handle.Valid() {
		return s.handle, fmt.Errorf("overlay %q already created", key)
	}
	h, err := s.compositor.CreateOverlay(key, name)
	if err != nil {
		return compositor.InvalidOverlayHandle, fmt.Errorf("failed to create overlay %q: %w", key, err)
	}
	if !h.Valid() {
		return compositor.InvalidOverlayHandle, fmt.Errorf("%w: compositor returned an invalid handle for %q", compositor.ErrOverlayCreate, key)
	}
	s.handle = h
	log.Printf("[Overlay] created overlay %q (%s) as handle %d", key, name, h)
	return h, nil
}

func (s *submitter) Handle() compositor.OverlayHandle {
	return s.handle
}

func (s *submitter) AnchorToDevice(class compositor.DeviceClass) (AnchorResult, error) {
	if !s.handle.Valid() {
		return AnchorResult{}, ErrNoOverlay
	}

	res := AnchorResult{Device: FallbackDevice}
	if devices := s.compositor.TrackedDevicesOfClass(class); len(devices) > 0 {
		res.Device = devices[0]
	} else {
		res.FellBack = true
		log.Printf("[Overlay] WARNING: no %s is tracked, anchoring to device slot %d", class, FallbackDevice)
	}

	pose, ok := devicePose(s.compositor.DevicePoses(), res.Device)
	if !ok {
		log.Printf("[Overlay] WARNING: device slot %d has no valid pose, using the tracking origin", res.Device)
		pose = common.Identity34()
	}
	res.Transform = common.Mul34(pose, common.Translation34(s.anchorOffset[0], s.anchorOffset[1], s.anchorOffset[2]))

	if err := s.compositor.SetOverlayTransformAbsolute(s.handle, res.Transform); err != nil {
		return res, fmt.Errorf("failed to anchor overlay to device %d: %w", res.Device, err)
	}
	log.Printf("[Overlay] anchored to device slot %d at %v", res.Device, res.Transform.Translation())
	return res, nil
}

// devicePose finds the valid pose of a slot. Poses are usually indexed by slot but are searched to be safe with
// sparse lists.
func devicePose(poses []compositor.Pose, device compositor.DeviceIndex) (common.Matrix34, bool) {
	if int(device) < len(poses) && poses[device].Device == device {
		p := poses[device]
		return p.DeviceToAbsolute, p.Valid
	}
	for _, p := range poses {
		if p.Device == device {
			return p.DeviceToAbsolute, p.Valid
		}
	}
	return common.Matrix34{}, false
}

func (s *submitter) SetTexture(tex compositor.Texture) error {
	if !s.handle.Valid() {
		return ErrNoOverlay
	}
	if err := s.compositor.SetOverlayTexture(s.handle, tex); err != nil {
		return fmt.Errorf("%w: set texture: %w", ErrSubmit, err)
	}
	return nil
}

func (s *submitter) Show() error {
	if !s.handle.Valid() {
		return ErrNoOverlay
	}
	if err := s.compositor.ShowOverlay(s.handle); err != nil {
		return fmt.Errorf("%w: show: %w", ErrSubmit, err)
	}
	return nil
}

func (s *submitter) Submit(tex compositor.Texture) error {
	if !s.handle.Valid() {
		return ErrNoOverlay
	}

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			log.Printf("[Overlay] texture submission failed (%v), retry %d/%d", err, attempt, s.retries)
			s.sleep(s.backoff)
		}
		err = s.compositor.SetOverlayTexture(s.handle, tex)
		if err == nil || !retryable(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%w: set texture: %w", ErrSubmit, err)
	}
	return s.Show()
}

// retryable reports whether another attempt could succeed. A lost overlay or connection cannot come back.
func retryable(err error) bool {
	return !errors.Is(err, compositor.ErrInvalidHandle) && !errors.Is(err, compositor.ErrNotConnected)
}

func (s *submitter) Release() error {
	if !s.handle.Valid() {
		return nil
	}
	h := s.handle
	s.handle = compositor.InvalidOverlayHandle

	var errs []error
	if err := s.compositor.HideOverlay(h); err != nil {
		errs = append(errs, fmt.Errorf("hide overlay %d: %w", h, err))
	}
	if err := s.compositor.DestroyOverlay(h); err != nil {
		errs = append(errs, fmt.Errorf("destroy overlay %d: %w", h, err))
	}
	return errors.Join(errs...)
}

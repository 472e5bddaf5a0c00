package compositor

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-overlay/common"
)

var (
	// ErrNotReady is returned by Init while the compositor runtime is not yet available.
	// It is the only error callers are expected to retry.
	ErrNotReady = errors.New("compositor not ready")

	// ErrOverlayCreate is returned when the compositor rejects an overlay creation request.
	ErrOverlayCreate = errors.New("overlay creation rejected")

	// ErrInvalidHandle is returned when an overlay call is made with a handle the compositor does not know.
	ErrInvalidHandle = errors.New("invalid overlay handle")

	// ErrTexture is returned when a submitted texture is rejected.
	ErrTexture = errors.New("overlay texture rejected")

	// ErrNotConnected is returned when an overlay call is made before Init succeeded or after Shutdown.
	ErrNotConnected = errors.New("compositor not connected")
)

// OverlayHandle is the opaque identifier of a compositor-side overlay surface.
type OverlayHandle uint64

// InvalidOverlayHandle is never returned by a successful CreateOverlay.
const InvalidOverlayHandle OverlayHandle = 0

// Valid reports whether the handle can be used for overlay calls.
func (h OverlayHandle) Valid() bool {
	return h != InvalidOverlayHandle
}

// DeviceIndex is a tracked device slot.
type DeviceIndex uint32

// TextureType tags the GPU API that owns a submitted texture handle.
type TextureType int

const (
	// TextureTypeWebGPU marks a handle holding a *wgpu.TextureView.
	TextureTypeWebGPU TextureType = iota
)

// ColorSpace tags how the compositor should interpret the texel values of a submitted texture.
type ColorSpace int

const (
	// ColorSpaceAuto lets the compositor infer the color space from the texture format.
	ColorSpaceAuto ColorSpace = iota
	// ColorSpaceGamma marks gamma-encoded texels.
	ColorSpaceGamma
	// ColorSpaceLinear marks linear texels.
	ColorSpaceLinear
)

// Texture is a reference to a GPU texture handed to the compositor.
type Texture struct {
	// Handle is the API specific texture object, e.g. *wgpu.TextureView for TextureTypeWebGPU.
	Handle any
	// Type identifies the API that owns Handle.
	Type TextureType
	// ColorSpace describes the texel encoding.
	ColorSpace ColorSpace
}

// Pose is the latest tracking sample of one device.
type Pose struct {
	// Device is the slot this pose belongs to.
	Device DeviceIndex
	// Class is the kind of hardware in the slot.
	Class DeviceClass
	// Connected reports whether a device currently occupies the slot.
	Connected bool
	// Valid reports whether DeviceToAbsolute holds a usable sample.
	Valid bool
	// DeviceToAbsolute maps device space into the tracking universe.
	DeviceToAbsolute common.Matrix34
}

// Compositor is the VR compositor collaborator that owns final presentation of overlays.
// All calls are made from the thread that owns the GPU context.
type Compositor interface {
	// Init connects to the compositor runtime.
	//
	// Returns:
	//   - error: ErrNotReady (wrapped) while the runtime is unavailable, any other error is fatal
	Init() error

	// Shutdown closes the connection. Overlays still alive are destroyed by the runtime.
	//
	// Returns:
	//   - error: error if the connection could not be closed cleanly
	Shutdown() error

	// CreateOverlay creates a new overlay surface.
	//
	// Parameters:
	//   - key: the unique system-wide key of the overlay
	//   - name: the human readable title of the overlay
	//
	// Returns:
	//   - OverlayHandle: the handle of the created overlay
	//   - error: ErrOverlayCreate (wrapped) if the compositor rejected the request
	CreateOverlay(key, name string) (OverlayHandle, error)

	// DestroyOverlay destroys an overlay surface.
	//
	// Parameters:
	//   - h: the overlay to destroy
	//
	// Returns:
	//   - error: ErrInvalidHandle (wrapped) if the handle is unknown
	DestroyOverlay(h OverlayHandle) error

	// ShowOverlay makes the overlay visible.
	//
	// Parameters:
	//   - h: the overlay to show
	//
	// Returns:
	//   - error: ErrInvalidHandle (wrapped) if the handle is unknown
	ShowOverlay(h OverlayHandle) error

	// HideOverlay hides the overlay.
	//
	// Parameters:
	//   - h: the overlay to hide
	//
	// Returns:
	//   - error: ErrInvalidHandle (wrapped) if the handle is unknown
	HideOverlay(h OverlayHandle) error

	// SetOverlayTransformAbsolute places the overlay in the tracking universe.
	//
	// Parameters:
	//   - h: the overlay to place
	//   - transform: overlay to tracking-universe transform
	//
	// Returns:
	//   - error: ErrInvalidHandle (wrapped) if the handle is unknown
	SetOverlayTransformAbsolute(h OverlayHandle, transform common.Matrix34) error

	// SetOverlayTexture submits the texture the overlay displays until the next submission.
	//
	// Parameters:
	//   - h: the overlay receiving the texture
	//   - tex: the texture reference and its tags
	//
	// Returns:
	//   - error: ErrInvalidHandle or ErrTexture (wrapped) on rejection
	SetOverlayTexture(h OverlayHandle, tex Texture) error

	// TrackedDevicesOfClass lists the connected devices of a class in slot order.
	//
	// Parameters:
	//   - class: the device class to look for
	//
	// Returns:
	//   - []DeviceIndex: matching device slots, empty when none are connected
	TrackedDevicesOfClass(class DeviceClass) []DeviceIndex

	// DevicePoses returns the latest pose of every device slot, indexed by DeviceIndex.
	//
	// Returns:
	//   - []Pose: one pose per slot
	DevicePoses() []Pose
}

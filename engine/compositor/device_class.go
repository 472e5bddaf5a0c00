package compositor

import (
	"fmt"
	"strings"
)

// DeviceClass is the kind of tracked hardware occupying a device slot.
type DeviceClass int

const (
	DeviceClassInvalid DeviceClass = iota
	DeviceClassHMD
	DeviceClassController
	DeviceClassGenericTracker
	DeviceClassTrackingReference
)

var deviceClassNames = map[DeviceClass]string{
	DeviceClassInvalid:           "invalid",
	DeviceClassHMD:               "hmd",
	DeviceClassController:        "controller",
	DeviceClassGenericTracker:    "tracker",
	DeviceClassTrackingReference: "tracking_reference",
}

func (c DeviceClass) String() string {
	if name, ok := deviceClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("DeviceClass(%d)", int(c))
}

// ParseDeviceClass resolves a configuration name such as "hmd" into a DeviceClass.
// Matching is case-insensitive.
//
// Parameters:
//   - s: the device class name
//
// Returns:
//   - DeviceClass: the parsed class
//   - error: error if the name is not a known, anchorable class
func ParseDeviceClass(s string) (DeviceClass, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for class, n := range deviceClassNames {
		if class != DeviceClassInvalid && n == name {
			return class, nil
		}
	}
	return DeviceClassInvalid, fmt.Errorf("unknown device class %q", s)
}

package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceClass(t *testing.T) {
	cases := []struct {
		in      string
		want    DeviceClass
		wantErr bool
	}{
		{in: "hmd", want: DeviceClassHMD},
		{in: " HMD ", want: DeviceClassHMD},
		{in: "controller", want: DeviceClassController},
		{in: "tracker", want: DeviceClassGenericTracker},
		{in: "tracking_reference", want: DeviceClassTrackingReference},
		{in: "invalid", wantErr: true},
		{in: "", wantErr: true},
		{in: "headset", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDeviceClass(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) DeviceClass {
	t.Helper()
	c, err := ParseDeviceClass(s)
	require.NoError(t, err)
	return c
}

func TestOverlayHandleValid(t *testing.T) {
	assert.False(t, InvalidOverlayHandle.Valid())
	assert.True(t, OverlayHandle(7).Valid())
}

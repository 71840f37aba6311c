package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDevices() []Device {
	return []Device{
		{ID: "alsa_input.usb-blue_yeti", Description: "Blue Yeti", Available: true},
		{ID: "alsa_input.pci-internal", Description: "Built-in Microphone", Available: true, Default: true},
		{ID: "alsa_input.usb-broken", Description: "Broken Mic", Available: false},
		{ID: "alsa_input.usb-muted", Description: "Muted Mic", Available: true, Muted: true},
	}
}

func TestSelectDeviceDefaultInput(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "default", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.pci-internal", selection.Device.ID)
	require.Empty(t, selection.Warning)
}

func TestSelectDeviceByDescriptionMatch(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "yeti", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-blue_yeti", selection.Device.ID)
}

func TestSelectDeviceFallsBackWhenPrimaryUnavailable(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "broken", "yeti")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-blue_yeti", selection.Device.ID)
	require.True(t, selection.Fallback)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestSelectDeviceMutedPrimaryFallsBackToDefault(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "muted", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.pci-internal", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
}

func TestSelectDeviceUnknownInputFails(t *testing.T) {
	_, err := selectDeviceFromList(testDevices(), "nonexistent", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match")
}

func TestSelectDeviceEmptyListFails(t *testing.T) {
	_, err := selectDeviceFromList(nil, "default", "")
	require.Error(t, err)
}

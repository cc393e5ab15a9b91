package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDevice(t *testing.T) {
	device, err := ParseDevice("cpu")
	require.NoError(t, err)
	assert.Equal(t, CPU, device.Type)
	assert.Equal(t, -1, device.Index)
	assert.Equal(t, "cpu", device.String())

	device, err = ParseDevice("cuda")
	require.NoError(t, err)
	assert.Equal(t, CUDA, device.Type)
	assert.Equal(t, -1, device.Index)

	device, err = ParseDevice("cuda:1")
	require.NoError(t, err)
	assert.Equal(t, CUDA, device.Type)
	assert.Equal(t, 1, device.Index)
	assert.Equal(t, "cuda:1", device.String())
}

func TestParseDeviceInvalid(t *testing.T) {
	var invalidType *InvalidTypeError
	for _, identifier := range []string{"", "tpu", "cuda:x", "cuda:-1", "cuda:"} {
		_, err := ParseDevice(identifier)
		require.Error(t, err, "identifier %q should not parse", identifier)
		assert.ErrorAs(t, err, &invalidType)
	}
}

func TestGetDevicesWithoutAccelerators(t *testing.T) {
	t.Setenv("CUDA_VISIBLE_DEVICES", "")

	devices := GetDevices(0)
	require.Len(t, devices, 1)
	assert.Equal(t, CPU, devices[0].Type)

	devices = GetDevices(3)
	require.Len(t, devices, 3)
	for _, device := range devices {
		assert.Equal(t, CPU, device.Type)
	}
}

func TestGetDevicesCyclesAccelerators(t *testing.T) {
	t.Setenv("CUDA_VISIBLE_DEVICES", "0,1")

	devices := GetDevices(0)
	require.Len(t, devices, 2)
	assert.Equal(t, Device{Type: CUDA, Index: 0}, devices[0])
	assert.Equal(t, Device{Type: CUDA, Index: 1}, devices[1])

	devices = GetDevices(5)
	require.Len(t, devices, 5)
	expected := []int{0, 1, 0, 1, 0}
	for i, device := range devices {
		assert.Equal(t, CUDA, device.Type)
		assert.Equal(t, expected[i], device.Index)
	}
}

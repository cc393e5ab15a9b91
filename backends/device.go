package backends

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DeviceType identifies a class of compute target.
type DeviceType string

const (
	CPU  DeviceType = "cpu"
	CUDA DeviceType = "cuda"
)

// Device identifies a compute target. Index is only meaningful for
// accelerators; -1 means "unspecified ordinal".
type Device struct {
	Type  DeviceType
	Index int
}

func NewDevice(deviceType DeviceType, index int) Device {
	return Device{Type: deviceType, Index: index}
}

func (d Device) String() string {
	if d.Index < 0 {
		return string(d.Type)
	}
	return fmt.Sprintf("%s:%d", d.Type, d.Index)
}

func (d Device) IsZero() bool {
	return d.Type == ""
}

// ParseDevice parses a device identifier such as "cpu", "cuda" or
// "cuda:1".
func ParseDevice(s string) (Device, error) {
	name, ordinal, hasOrdinal := strings.Cut(s, ":")
	device := Device{Index: -1}
	switch DeviceType(name) {
	case CPU:
		device.Type = CPU
	case CUDA:
		device.Type = CUDA
	default:
		return Device{}, &InvalidTypeError{What: "device", Got: s, Expected: `"cpu", "cuda" or "cuda:<index>"`}
	}
	if hasOrdinal {
		index, err := strconv.Atoi(ordinal)
		if err != nil || index < 0 {
			return Device{}, &InvalidTypeError{What: "device", Got: s, Expected: "a non-negative device ordinal"}
		}
		device.Index = index
	}
	return device, nil
}

// cudaDeviceCount enumerates visible CUDA devices. CUDA_VISIBLE_DEVICES
// takes precedence over the device nodes so masked-out GPUs are not
// handed to the pipeline.
func cudaDeviceCount() int {
	if visible, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok {
		visible = strings.TrimSpace(visible)
		if visible == "" {
			return 0
		}
		count := 0
		for _, entry := range strings.Split(visible, ",") {
			if strings.TrimSpace(entry) != "" {
				count++
			}
		}
		return count
	}
	nodes, err := filepath.Glob("/dev/nvidia[0-9]*")
	if err != nil {
		return 0
	}
	return len(nodes)
}

// GetDevices returns the devices a pipeline can use. With no accelerator
// available it returns the CPU device, replicated to satisfy needs. With
// accelerators it returns one entry per device and cycles through them
// round-robin when needs exceeds the available count. A needs value of
// zero or less returns the natural device list without replication.
func GetDevices(needs int) []Device {
	numGPUs := cudaDeviceCount()

	if numGPUs == 0 {
		if needs <= 0 {
			return []Device{{Type: CPU, Index: -1}}
		}
		devices := make([]Device, needs)
		for i := range devices {
			devices[i] = Device{Type: CPU, Index: -1}
		}
		return devices
	}

	available := make([]Device, numGPUs)
	for i := range available {
		available[i] = Device{Type: CUDA, Index: i}
	}
	if needs <= 0 {
		return available
	}
	devices := make([]Device, needs)
	for i := range devices {
		devices[i] = available[i%numGPUs]
	}
	return devices
}

package gpu

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device on the no-op HAL backend.
func createNoopDevice(t *testing.T) (hal.Device, func()) {
	t.Helper()
	device, _, cleanup := createNoopQueue(t)
	return device, cleanup
}

// createNoopQueue opens a device and its queue on the no-op HAL backend.
func createNoopQueue(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// skipOnNagaLimitation skips the test when err comes from a naga feature
// gap rather than a broken shader.
func skipOnNagaLimitation(t *testing.T, err error) {
	t.Helper()
	errStr := err.Error()
	if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
		t.Skipf("Skipping: naga feature not yet implemented: %v", err)
	}
	if strings.Contains(errStr, "lowering error") {
		t.Skipf("Skipping: naga lowering limitation: %v", err)
	}
}

package triangle

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// QueueFamilyIndices records which of a device's queue families provide
// graphics and surface presentation. Absence of a capability is a valid,
// testable state, not an error.
type QueueFamilyIndices struct {
	Graphics    uint32
	HasGraphics bool

	Present    uint32
	HasPresent bool
}

// Complete reports whether both capabilities were found.
func (q QueueFamilyIndices) Complete() bool {
	return q.HasGraphics && q.HasPresent
}

// Combined reports whether graphics and presentation share one family, the
// precondition for exclusive sharing mode and a single device queue.
func (q QueueFamilyIndices) Combined() bool {
	return q.Complete() && q.Graphics == q.Present
}

// PhysicalDevice is the selected GPU plus its resolved queue families.
// Exactly one is live after setup.
type PhysicalDevice struct {
	Handle  vk.PhysicalDevice
	Indices QueueFamilyIndices
}

// scanQueueFamilies applies the capability scan to an already dereferenced
// property list. presentSupport reports surface presentation support for a
// family index; graphics support comes from the queue flags.
func scanQueueFamilies(families []vk.QueueFamilyProperties, presentSupport func(family uint32) bool) QueueFamilyIndices {
	var indices QueueFamilyIndices
	for i, family := range families {
		if family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = uint32(i)
			indices.HasGraphics = true
		}
		if presentSupport(uint32(i)) {
			indices.Present = uint32(i)
			indices.HasPresent = true
		}
		if indices.Complete() {
			break
		}
	}
	return indices
}

// findQueueFamilies queries a device's queue families against the surface.
// The property array is scratch-allocated and released before returning.
func findQueueFamilies(gpu vk.PhysicalDevice, surface vk.Surface, scratch *Arena) (QueueFamilyIndices, error) {
	checkpoint := scratch.Checkpoint()
	defer checkpoint.Restore()

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	if count == 0 {
		return QueueFamilyIndices{}, nil
	}

	families := Slice[vk.QueueFamilyProperties](scratch, int(count))
	if families == nil {
		return QueueFamilyIndices{}, errArenaExhausted
	}
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)
	for i := range families {
		families[i].Deref()
	}

	return scanQueueFamilies(families, func(family uint32) bool {
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, family, surface, &supported)
		return supported.B()
	}), nil
}

// firstSuitable returns the position of the first candidate whose queue
// families are complete. Candidates past the winner are never probed, and no
// scoring or comparison takes place.
func firstSuitable(n int, indicesAt func(i int) (QueueFamilyIndices, error)) (int, QueueFamilyIndices, error) {
	for i := 0; i < n; i++ {
		indices, err := indicesAt(i)
		if err != nil {
			return 0, QueueFamilyIndices{}, err
		}
		if indices.Complete() {
			return i, indices, nil
		}
	}
	return 0, QueueFamilyIndices{}, errors.New("no suitable GPU found")
}

// SelectPhysicalDevice enumerates the system's GPUs and picks the first one
// with graphics and presentation support. All per-device scratch buffers are
// released before returning; only the winning raw handle is retained.
func SelectPhysicalDevice(instance vk.Instance, surface vk.Surface, scratch *Arena) (PhysicalDevice, error) {
	var count uint32
	if err := NewError(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return PhysicalDevice{}, fmt.Errorf("counting physical devices: %w", err)
	}
	if count == 0 {
		return PhysicalDevice{}, errors.New("no GPU with Vulkan support found")
	}

	checkpoint := scratch.Checkpoint()
	defer checkpoint.Restore()

	devices := Slice[vk.PhysicalDevice](scratch, int(count))
	if devices == nil {
		return PhysicalDevice{}, errArenaExhausted
	}
	if err := NewError(vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return PhysicalDevice{}, fmt.Errorf("enumerating physical devices: %w", err)
	}

	i, indices, err := firstSuitable(int(count), func(i int) (QueueFamilyIndices, error) {
		return findQueueFamilies(devices[i], surface, scratch)
	})
	if err != nil {
		return PhysicalDevice{}, err
	}
	if !indices.Combined() {
		return PhysicalDevice{}, ErrSeparatePresentQueue
	}
	return PhysicalDevice{Handle: devices[i], Indices: indices}, nil
}

// NewDevice creates the logical device over the combined queue family and
// retrieves its single queue, which serves both graphics and presentation.
func NewDevice(gpu PhysicalDevice, validationLayers []string) (vk.Device, vk.Queue, error) {
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: gpu.Indices.Graphics,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	extensions := safeStrings([]string{vk.KhrSwapchainExtensionName})
	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if len(validationLayers) > 0 {
		// Older Vulkan implementations expect layers per device as well.
		layers := safeStrings(validationLayers)
		createInfo.EnabledLayerCount = uint32(len(layers))
		createInfo.PpEnabledLayerNames = layers
	}

	var device vk.Device
	if err := NewError(vk.CreateDevice(gpu.Handle, &createInfo, nil, &device)); err != nil {
		return nil, nil, fmt.Errorf("creating logical device: %w", err)
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, gpu.Indices.Graphics, 0, &queue)
	return device, queue, nil
}

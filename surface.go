package triangle

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SwapchainSupport is a device's presentation capabilities for one surface.
// Formats and PresentModes are scratch-allocated; callers that outlive the
// checkpoint must copy what they keep.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// querySwapchainSupport fetches capabilities, formats, and present modes for
// the surface. A surface with no formats cannot be presented to and is an
// error; present modes may legally be empty because FIFO is always available.
func querySwapchainSupport(gpu vk.PhysicalDevice, surface vk.Surface, scratch *Arena) (SwapchainSupport, error) {
	var support SwapchainSupport

	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &support.Capabilities)); err != nil {
		return SwapchainSupport{}, fmt.Errorf("querying surface capabilities: %w", err)
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)); err != nil {
		return SwapchainSupport{}, fmt.Errorf("counting surface formats: %w", err)
	}
	if formatCount == 0 {
		return SwapchainSupport{}, errors.New("surface reports no formats")
	}
	support.Formats = Slice[vk.SurfaceFormat](scratch, int(formatCount))
	if support.Formats == nil {
		return SwapchainSupport{}, errArenaExhausted
	}
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, support.Formats)); err != nil {
		return SwapchainSupport{}, fmt.Errorf("querying surface formats: %w", err)
	}
	for i := range support.Formats {
		support.Formats[i].Deref()
	}

	var modeCount uint32
	if err := NewError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)); err != nil {
		return SwapchainSupport{}, fmt.Errorf("counting present modes: %w", err)
	}
	if modeCount > 0 {
		support.PresentModes = Slice[vk.PresentMode](scratch, int(modeCount))
		if support.PresentModes == nil {
			return SwapchainSupport{}, errArenaExhausted
		}
		if err := NewError(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, support.PresentModes)); err != nil {
			return SwapchainSupport{}, fmt.Errorf("querying present modes: %w", err)
		}
	}

	return support, nil
}

// chooseSurfaceFormat prefers 8-bit BGRA with sRGB encoding and falls back to
// whatever the surface lists first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, errors.New("no surface formats to choose from")
	}
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format, nil
		}
	}
	return formats[0], nil
}

// choosePresentMode prefers mailbox, which replaces queued images instead of
// blocking, and falls back to FIFO, the only mode the standard guarantees.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent resolves the swapchain dimensions. When the surface pins the
// extent it is taken verbatim; the all-ones sentinel means the application
// decides, so the framebuffer size is clamped into the supported range.
func chooseExtent(caps vk.SurfaceCapabilities, framebufferWidth, framebufferHeight int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(uint32(framebufferWidth), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(framebufferHeight), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount requests one image beyond the minimum so acquisition never
// waits on the driver releasing the minimum set. Zero MaxImageCount means
// unbounded.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

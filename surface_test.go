package triangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormatPrefersBGRASrgb(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	format, err := chooseSurfaceFormat(formats)

	require.NoError(t, err)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, format.Format)
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, format.ColorSpace)
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	format, err := chooseSurfaceFormat(formats)

	require.NoError(t, err)
	assert.Equal(t, formats[0], format)
}

func TestChooseSurfaceFormatEmpty(t *testing.T) {
	_, err := chooseSurfaceFormat(nil)
	assert.Error(t, err)
}

func TestChoosePresentModePrefersMailbox(t *testing.T) {
	modes := []vk.PresentMode{
		vk.PresentModeImmediate,
		vk.PresentModeMailbox,
		vk.PresentModeFifo,
	}
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes))
}

func TestChoosePresentModeFallsBackToFifo(t *testing.T) {
	modes := []vk.PresentMode{
		vk.PresentModeImmediate,
		vk.PresentModeFifoRelaxed,
	}
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(nil))
}

func TestChooseExtentPinnedBySurface(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent: vk.Extent2D{Width: 1024, Height: 768},
	}
	extent := chooseExtent(caps, 1, 1)

	assert.Equal(t, caps.CurrentExtent, extent)
}

func TestChooseExtentClampsFramebufferSize(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: vk.Extent2D{Width: 2000, Height: 2000},
	}
	extent := chooseExtent(caps, 5000, 10)

	assert.Equal(t, uint32(2000), extent.Width)
	assert.Equal(t, uint32(100), extent.Height)
}

func TestChooseExtentInRangePassesThrough(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	extent := chooseExtent(caps, 800, 600)

	assert.Equal(t, uint32(800), extent.Width)
	assert.Equal(t, uint32(600), extent.Height)
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
		want     uint32
	}{
		{"unbounded", 2, 0, 3},
		{"clamped to max", 2, 2, 2},
		{"room above min", 2, 5, 3},
		{"max equals min+1", 3, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := vk.SurfaceCapabilities{
				MinImageCount: tt.min,
				MaxImageCount: tt.max,
			}
			assert.Equal(t, tt.want, chooseImageCount(caps))
		})
	}
}

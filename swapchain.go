package triangle

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Swapchain bundles the swapchain handle with the image views and
// framebuffers derived from its images. Images are owned by the swapchain
// itself; views and framebuffers are owned here and destroyed in reverse
// creation order.
type Swapchain struct {
	Handle       vk.Swapchain
	Images       []vk.Image
	Views        []vk.ImageView
	Framebuffers []vk.Framebuffer
	Format       vk.Format
	Extent       vk.Extent2D
}

// NewSwapchain creates the swapchain and one image view per image. The image
// count is re-queried after creation because the driver may allocate more
// images than requested.
func NewSwapchain(device vk.Device, surface vk.Surface, support SwapchainSupport,
	format vk.SurfaceFormat, mode vk.PresentMode, extent vk.Extent2D) (*Swapchain, error) {

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    chooseImageCount(support.Capabilities),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var handle vk.Swapchain
	if err := NewError(vk.CreateSwapchain(device, &createInfo, nil, &handle)); err != nil {
		return nil, fmt.Errorf("creating swapchain: %w", err)
	}
	s := &Swapchain{
		Handle: handle,
		Format: format.Format,
		Extent: extent,
	}

	var imageCount uint32
	if err := NewError(vk.GetSwapchainImages(device, handle, &imageCount, nil)); err != nil {
		s.Destroy(device)
		return nil, fmt.Errorf("counting swapchain images: %w", err)
	}
	s.Images = make([]vk.Image, imageCount)
	if err := NewError(vk.GetSwapchainImages(device, handle, &imageCount, s.Images)); err != nil {
		s.Destroy(device)
		return nil, fmt.Errorf("retrieving swapchain images: %w", err)
	}

	s.Views = make([]vk.ImageView, imageCount)
	for i, image := range s.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if err := NewError(vk.CreateImageView(device, &viewInfo, nil, &s.Views[i])); err != nil {
			s.Destroy(device)
			return nil, fmt.Errorf("creating image view %d: %w", i, err)
		}
	}
	return s, nil
}

// CreateFramebuffers creates one framebuffer per image view against the
// render pass. Kept separate from NewSwapchain because the render pass needs
// the surface format first.
func (s *Swapchain) CreateFramebuffers(device vk.Device, renderPass vk.RenderPass) error {
	s.Framebuffers = make([]vk.Framebuffer, len(s.Views))
	for i, view := range s.Views {
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           s.Extent.Width,
			Height:          s.Extent.Height,
			Layers:          1,
		}
		if err := NewError(vk.CreateFramebuffer(device, &framebufferInfo, nil, &s.Framebuffers[i])); err != nil {
			return fmt.Errorf("creating framebuffer %d: %w", i, err)
		}
	}
	return nil
}

// Destroy releases framebuffers, views, and the swapchain handle, in that
// order. Safe to call on a partially constructed swapchain.
func (s *Swapchain) Destroy(device vk.Device) {
	for _, framebuffer := range s.Framebuffers {
		if framebuffer != vk.NullFramebuffer {
			vk.DestroyFramebuffer(device, framebuffer, nil)
		}
	}
	s.Framebuffers = nil
	for _, view := range s.Views {
		if view != vk.NullImageView {
			vk.DestroyImageView(device, view, nil)
		}
	}
	s.Views = nil
	if s.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, s.Handle, nil)
		s.Handle = vk.NullSwapchain
	}
}

package triangle

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Renderer is the per-frame contract the loop drives. slot identifies which
// frame-in-flight's resources to use and cycles modulo the frame count; image
// is the swapchain image index returned by AcquireImage, which need not agree
// with slot.
type Renderer interface {
	// WaitFrame blocks until the slot's previous submission has finished on
	// the GPU, making its command buffer safe to rewrite. It must leave the
	// slot waitable again: the loop may skip the frame after waiting, and
	// WaitFrame runs on the same slot next cycle.
	WaitFrame(slot int) error

	// AcquireImage obtains the next swapchain image. It returns
	// ErrSwapchainStale when the swapchain must be rebuilt before rendering;
	// a successful return commits the frame to SubmitFrame.
	AcquireImage(slot int) (uint32, error)

	// RecordFrame rewrites the slot's command buffer to draw into the image.
	RecordFrame(slot int, image uint32) error

	// SubmitFrame queues the slot's command buffer, gated on image
	// availability and signaling the slot's fence on completion.
	SubmitFrame(slot int) error

	// PresentFrame hands the image back for presentation. It returns
	// ErrSwapchainStale when the swapchain no longer matches the surface.
	PresentFrame(slot int, image uint32) error
}

// FrameLoop cycles a Renderer through its frame slots. With n frames in
// flight the CPU records up to n frames ahead of the GPU; WaitFrame provides
// the backpressure once every slot is busy.
type FrameLoop struct {
	renderer Renderer
	frames   int
	current  int

	// OnStale, when set, is invoked instead of failing whenever acquisition
	// or presentation reports a stale swapchain, giving the owner a chance to
	// rebuild it. When nil the staleness propagates as an error.
	OnStale func() error
}

func NewFrameLoop(renderer Renderer, frames int) (*FrameLoop, error) {
	if frames < 1 {
		return nil, fmt.Errorf("frames in flight must be at least 1, got %d", frames)
	}
	return &FrameLoop{renderer: renderer, frames: frames}, nil
}

// CurrentFrame returns the slot the next RenderFrame will use.
func (l *FrameLoop) CurrentFrame() int {
	return l.current
}

// RenderFrame runs one wait-acquire-record-submit-present cycle. A stale
// swapchain during acquisition skips the frame without advancing the slot;
// staleness during presentation still advances, because the frame's work was
// submitted.
func (l *FrameLoop) RenderFrame() error {
	slot := l.current

	if err := l.renderer.WaitFrame(slot); err != nil {
		return fmt.Errorf("waiting on frame %d: %w", slot, err)
	}

	image, err := l.renderer.AcquireImage(slot)
	if err != nil {
		return l.handleStale(err, "acquiring image")
	}

	if err := l.renderer.RecordFrame(slot, image); err != nil {
		return fmt.Errorf("recording frame %d: %w", slot, err)
	}
	if err := l.renderer.SubmitFrame(slot); err != nil {
		return fmt.Errorf("submitting frame %d: %w", slot, err)
	}

	err = l.renderer.PresentFrame(slot, image)
	l.current = (l.current + 1) % l.frames
	if err != nil {
		return l.handleStale(err, "presenting image")
	}
	return nil
}

func (l *FrameLoop) handleStale(err error, op string) error {
	if errors.Is(err, ErrSwapchainStale) && l.OnStale != nil {
		return l.OnStale()
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Run renders until shouldClose reports true, polling window events before
// each frame.
func (l *FrameLoop) Run(poll func(), shouldClose func() bool) error {
	for !shouldClose() {
		poll()
		if err := l.RenderFrame(); err != nil {
			return err
		}
	}
	return nil
}

const (
	triangleVertexCount   = 3
	triangleInstanceCount = 1
)

// frameRecorder is the command-buffer surface recordTriangle draws through.
// Splitting it from the raw Vulkan calls keeps the draw sequence checkable
// without a device.
type frameRecorder interface {
	Begin() error
	BeginRenderPass(pass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D)
	BindPipeline(pipeline vk.Pipeline)
	SetViewport(extent vk.Extent2D)
	SetScissor(extent vk.Extent2D)
	Draw(vertexCount, instanceCount uint32)
	EndRenderPass()
	End() error
}

// recordTriangle records the fixed command sequence for one frame: a single
// render pass drawing three vertices of one instance, with viewport and
// scissor covering the full extent.
func recordTriangle(rec frameRecorder, pass vk.RenderPass, framebuffer vk.Framebuffer,
	pipeline vk.Pipeline, extent vk.Extent2D) error {

	if err := rec.Begin(); err != nil {
		return fmt.Errorf("beginning command buffer: %w", err)
	}
	rec.BeginRenderPass(pass, framebuffer, extent)
	rec.BindPipeline(pipeline)
	rec.SetViewport(extent)
	rec.SetScissor(extent)
	rec.Draw(triangleVertexCount, triangleInstanceCount)
	rec.EndRenderPass()
	if err := rec.End(); err != nil {
		return fmt.Errorf("ending command buffer: %w", err)
	}
	return nil
}

// commandBufferRecorder records into a real Vulkan command buffer.
type commandBufferRecorder struct {
	cmd vk.CommandBuffer
}

func (r commandBufferRecorder) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return NewError(vk.BeginCommandBuffer(r.cmd, &beginInfo))
}

func (r commandBufferRecorder) BeginRenderPass(pass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D) {
	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0.0, 0.0, 0.0, 1.0}),
	}
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(r.cmd, &renderPassInfo, vk.SubpassContentsInline)
}

func (r commandBufferRecorder) BindPipeline(pipeline vk.Pipeline) {
	vk.CmdBindPipeline(r.cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (r commandBufferRecorder) SetViewport(extent vk.Extent2D) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(r.cmd, 0, 1, []vk.Viewport{viewport})
}

func (r commandBufferRecorder) SetScissor(extent vk.Extent2D) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetScissor(r.cmd, 0, 1, []vk.Rect2D{scissor})
}

func (r commandBufferRecorder) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(r.cmd, vertexCount, instanceCount, 0, 0)
}

func (r commandBufferRecorder) EndRenderPass() {
	vk.CmdEndRenderPass(r.cmd)
}

func (r commandBufferRecorder) End() error {
	return NewError(vk.EndCommandBuffer(r.cmd))
}

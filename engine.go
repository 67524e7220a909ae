// Package triangle renders a single hard-coded triangle with Vulkan. It owns
// the full presentation path: instance and device setup, swapchain and
// pipeline construction, and a frame loop that keeps a configurable number of
// frames in flight.
package triangle

import (
	"fmt"
	"log"
	"os"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// resourceStack tears down resources in reverse acquisition order. Each
// destructor is pushed immediately after its resource is created, so a
// failure partway through setup unwinds exactly what exists.
type resourceStack struct {
	destructors []func()
}

func (s *resourceStack) push(destroy func()) {
	s.destructors = append(s.destructors, destroy)
}

func (s *resourceStack) unwind() {
	for i := len(s.destructors) - 1; i >= 0; i-- {
		s.destructors[i]()
	}
	s.destructors = nil
}

// frameResources holds the per-slot synchronization objects and command
// buffers, one of each per frame in flight.
type frameResources struct {
	commandBuffers []vk.CommandBuffer
	imageAvailable []vk.Semaphore
	renderFinished []vk.Semaphore
	inFlight       []vk.Fence
}

// Engine ties the window to the Vulkan objects that draw into it. Create
// with NewEngine, drive with Run, release with Destroy.
type Engine struct {
	cfg     Config
	window  *glfw.Window
	scratch *Arena

	instance vk.Instance
	surface  vk.Surface
	gpu      PhysicalDevice
	device   vk.Device
	queue    vk.Queue

	swapchain   *Swapchain
	renderPass  vk.RenderPass
	layout      vk.PipelineLayout
	pipeline    vk.Pipeline
	commandPool vk.CommandPool
	frames      frameResources

	cleanup resourceStack

	infoLog *log.Logger
	errLog  *log.Logger

	// OnStale, when set, is invoked by the frame loop whenever the swapchain
	// no longer matches the surface. See FrameLoop.OnStale.
	OnStale func() error
}

// NewEngine builds every Vulkan object needed to render into the window. On
// any failure the partially constructed state is torn down before returning.
func NewEngine(window *glfw.Window, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		window:  window,
		scratch: NewArena(make([]byte, cfg.ArenaSize)),
		infoLog: log.New(os.Stderr, "INFO: ", log.Ldate|log.Ltime),
		errLog:  log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime),
	}
	if err := e.init(); err != nil {
		e.cleanup.unwind()
		return nil, err
	}
	return e, nil
}

func (e *Engine) init() error {
	instance, err := NewInstance(e.cfg.Title, e.cfg.EngineName,
		e.window.GetRequiredInstanceExtensions(), e.cfg.EnableValidation)
	if err != nil {
		return err
	}
	e.instance = instance
	e.cleanup.push(func() { vk.DestroyInstance(e.instance, nil) })

	surfacePtr, err := e.window.CreateWindowSurface(e.instance, nil)
	if err != nil {
		return fmt.Errorf("creating window surface: %w", err)
	}
	e.surface = vk.SurfaceFromPointer(surfacePtr)
	e.cleanup.push(func() { vk.DestroySurface(e.instance, e.surface, nil) })

	e.gpu, err = SelectPhysicalDevice(e.instance, e.surface, e.scratch)
	if err != nil {
		return err
	}
	e.infoLog.Printf("selected GPU with combined queue family %d", e.gpu.Indices.Graphics)

	var layers []string
	if e.cfg.EnableValidation {
		layers = ValidationLayers
	}
	e.device, e.queue, err = NewDevice(e.gpu, layers)
	if err != nil {
		return err
	}
	e.cleanup.push(func() { vk.DestroyDevice(e.device, nil) })

	if err := e.createSwapchain(); err != nil {
		return err
	}
	e.cleanup.push(func() { e.swapchain.Destroy(e.device) })

	e.renderPass, err = NewRenderPass(e.device, e.swapchain.Format)
	if err != nil {
		return err
	}
	e.cleanup.push(func() { vk.DestroyRenderPass(e.device, e.renderPass, nil) })

	if err := e.createPipeline(); err != nil {
		return err
	}
	e.cleanup.push(func() {
		vk.DestroyPipeline(e.device, e.pipeline, nil)
		vk.DestroyPipelineLayout(e.device, e.layout, nil)
	})

	if err := e.swapchain.CreateFramebuffers(e.device, e.renderPass); err != nil {
		return err
	}

	return e.createFrameResources()
}

// createSwapchain resolves the surface's capabilities and builds the
// swapchain. The query buffers live only for the duration of the call.
func (e *Engine) createSwapchain() error {
	checkpoint := e.scratch.Checkpoint()
	defer checkpoint.Restore()

	support, err := querySwapchainSupport(e.gpu.Handle, e.surface, e.scratch)
	if err != nil {
		return err
	}
	format, err := chooseSurfaceFormat(support.Formats)
	if err != nil {
		return err
	}
	mode := choosePresentMode(support.PresentModes)

	width, height := e.window.GetFramebufferSize()
	extent := chooseExtent(support.Capabilities, width, height)

	e.swapchain, err = NewSwapchain(e.device, e.surface, support, format, mode, extent)
	if err != nil {
		return err
	}
	e.infoLog.Printf("swapchain: %d images, %dx%d", len(e.swapchain.Images), extent.Width, extent.Height)
	return nil
}

// createPipeline loads both shaders into scratch memory, builds the graphics
// pipeline, and destroys the modules: once the pipeline exists the bytecode
// and modules are no longer needed.
func (e *Engine) createPipeline() error {
	checkpoint := e.scratch.Checkpoint()
	defer checkpoint.Restore()

	vertCode, err := ReadFile(e.cfg.VertexShader, e.scratch)
	if err != nil {
		return err
	}
	fragCode, err := ReadFile(e.cfg.FragmentShader, e.scratch)
	if err != nil {
		return err
	}

	vert, err := NewShaderModule(e.device, vertCode)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(e.device, vert, nil)
	frag, err := NewShaderModule(e.device, fragCode)
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(e.device, frag, nil)

	e.pipeline, e.layout, err = NewPipelineBuilder(vert, frag).Build(e.device, e.renderPass)
	return err
}

// createFrameResources allocates one command buffer and one set of
// synchronization objects per frame in flight. Fences start signaled so the
// first WaitFrame on each slot returns immediately.
func (e *Engine) createFrameResources() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: e.gpu.Indices.Graphics,
	}
	if err := NewError(vk.CreateCommandPool(e.device, &poolInfo, nil, &e.commandPool)); err != nil {
		return fmt.Errorf("creating command pool: %w", err)
	}
	e.cleanup.push(func() { vk.DestroyCommandPool(e.device, e.commandPool, nil) })

	n := e.cfg.FramesInFlight
	e.frames.commandBuffers = make([]vk.CommandBuffer, n)
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        e.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(n),
	}
	if err := NewError(vk.AllocateCommandBuffers(e.device, &allocInfo, e.frames.commandBuffers)); err != nil {
		return fmt.Errorf("allocating command buffers: %w", err)
	}

	e.frames.imageAvailable = make([]vk.Semaphore, n)
	e.frames.renderFinished = make([]vk.Semaphore, n)
	e.frames.inFlight = make([]vk.Fence, n)

	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	for i := 0; i < n; i++ {
		if err := NewError(vk.CreateSemaphore(e.device, &semaphoreInfo, nil, &e.frames.imageAvailable[i])); err != nil {
			return fmt.Errorf("creating image-available semaphore %d: %w", i, err)
		}
		sem := e.frames.imageAvailable[i]
		e.cleanup.push(func() { vk.DestroySemaphore(e.device, sem, nil) })

		if err := NewError(vk.CreateSemaphore(e.device, &semaphoreInfo, nil, &e.frames.renderFinished[i])); err != nil {
			return fmt.Errorf("creating render-finished semaphore %d: %w", i, err)
		}
		sem = e.frames.renderFinished[i]
		e.cleanup.push(func() { vk.DestroySemaphore(e.device, sem, nil) })

		if err := NewError(vk.CreateFence(e.device, &fenceInfo, nil, &e.frames.inFlight[i])); err != nil {
			return fmt.Errorf("creating in-flight fence %d: %w", i, err)
		}
		fence := e.frames.inFlight[i]
		e.cleanup.push(func() { vk.DestroyFence(e.device, fence, nil) })
	}
	return nil
}

// WaitFrame blocks until the slot's fence signals. The fence is not reset
// here: a stale swapchain can still skip the frame before anything is
// submitted, and a reset fence with no pending submission would deadlock the
// slot's next wait. AcquireImage resets it once the frame is sure to submit.
func (e *Engine) WaitFrame(slot int) error {
	fences := []vk.Fence{e.frames.inFlight[slot]}
	return NewError(vk.WaitForFences(e.device, 1, fences, vk.True, vk.MaxUint64))
}

// AcquireImage obtains the next swapchain image, signaling the slot's
// image-available semaphore once the image is usable. A suboptimal result
// still acquired an image, so only out-of-date maps to ErrSwapchainStale.
func (e *Engine) AcquireImage(slot int) (uint32, error) {
	var image uint32
	ret := vk.AcquireNextImage(e.device, e.swapchain.Handle, vk.MaxUint64,
		e.frames.imageAvailable[slot], vk.NullFence, &image)
	if ret == vk.ErrorOutOfDate {
		return 0, ErrSwapchainStale
	}
	if ret != vk.Success && ret != vk.Suboptimal {
		return 0, NewError(ret)
	}
	// An image is in hand, so this frame will submit and re-signal the fence.
	if err := NewError(vk.ResetFences(e.device, 1, []vk.Fence{e.frames.inFlight[slot]})); err != nil {
		return 0, err
	}
	return image, nil
}

// RecordFrame resets the slot's command buffer and records the triangle draw
// into the acquired image's framebuffer.
func (e *Engine) RecordFrame(slot int, image uint32) error {
	cmd := e.frames.commandBuffers[slot]
	if err := NewError(vk.ResetCommandBuffer(cmd, 0)); err != nil {
		return err
	}
	return recordTriangle(commandBufferRecorder{cmd: cmd},
		e.renderPass, e.swapchain.Framebuffers[image], e.pipeline, e.swapchain.Extent)
}

// SubmitFrame queues the slot's command buffer. Execution waits for the
// image-available semaphore at the color output stage, signals the
// render-finished semaphore, and signals the slot's fence on completion.
func (e *Engine) SubmitFrame(slot int) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{e.frames.imageAvailable[slot]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{e.frames.commandBuffers[slot]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{e.frames.renderFinished[slot]},
	}
	ret := vk.QueueSubmit(e.queue, 1, []vk.SubmitInfo{submitInfo}, e.frames.inFlight[slot])
	if err := NewError(ret); err != nil {
		return fmt.Errorf("submitting draw commands: %w", err)
	}
	return nil
}

// PresentFrame queues the image for presentation once the slot's
// render-finished semaphore signals.
func (e *Engine) PresentFrame(slot int, image uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{e.frames.renderFinished[slot]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{e.swapchain.Handle},
		PImageIndices:      []uint32{image},
	}
	ret := vk.QueuePresent(e.queue, &presentInfo)
	if staleResult(ret) {
		return ErrSwapchainStale
	}
	return NewError(ret)
}

// newFrameLoop builds the loop over the engine's own Renderer implementation
// and carries the engine's OnStale hook onto it.
func (e *Engine) newFrameLoop() (*FrameLoop, error) {
	loop, err := NewFrameLoop(e, e.cfg.FramesInFlight)
	if err != nil {
		return nil, err
	}
	loop.OnStale = e.OnStale
	return loop, nil
}

// Run renders frames until the window closes, then waits for the device to
// go idle so Destroy can run safely. The idle wait happens even when the
// loop exits with an error: the GPU may still be executing frames that
// reference the resources Destroy is about to release.
func (e *Engine) Run() error {
	loop, err := e.newFrameLoop()
	if err != nil {
		return err
	}
	runErr := loop.Run(glfw.PollEvents, e.window.ShouldClose)
	if err := NewError(vk.DeviceWaitIdle(e.device)); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Destroy releases every Vulkan object in reverse creation order. Safe to
// call more than once.
func (e *Engine) Destroy() {
	e.cleanup.unwind()
}

var _ Renderer = (*Engine)(nil)

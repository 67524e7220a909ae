package triangle

import (
	"errors"
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// ErrSwapchainStale reports that the presentation surface no longer matches
// the swapchain. The swapchain must be rebuilt before the next frame; see
// FrameLoop.OnStale.
var ErrSwapchainStale = errors.New("swapchain no longer matches the surface")

// ErrSeparatePresentQueue reports a device whose graphics and presentation
// capabilities live in different queue families. Exclusive sharing mode
// requires a single combined family, so such devices are unsupported.
var ErrSeparatePresentQueue = errors.New("device requires separate graphics and presentation queues")

// errArenaExhausted indicates the scratch arena was sized too small for the
// peak transient allocation of the setup path.
var errArenaExhausted = errors.New("scratch arena exhausted")

// NewError wraps a non-success vk.Result with the caller's location.
func NewError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	if pc, file, line, ok := runtime.Caller(1); ok {
		fn := "?"
		if f := runtime.FuncForPC(pc); f != nil {
			fn = f.Name()
		}
		return fmt.Errorf("vulkan error: %s (%d) in %s at %s:%d",
			vk.Error(ret).Error(), ret, fn, file, line)
	}
	return fmt.Errorf("vulkan error: %s (%d)", vk.Error(ret).Error(), ret)
}

// staleResult reports results that call for swapchain reconstruction rather
// than failure.
func staleResult(ret vk.Result) bool {
	return ret == vk.ErrorOutOfDate || ret == vk.Suboptimal
}

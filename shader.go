package triangle

import (
	"fmt"
	"io"
	"os"

	vk "github.com/vulkan-go/vulkan"
)

// ReadFile reads an entire file into scratch-allocated memory. Shader
// bytecode only needs to live from disk to CreateShaderModule, so a
// checkpoint around the call reclaims it.
func ReadFile(path string, scratch *Arena) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("reading %s: file is empty", path)
	}
	buf := scratch.Alloc(int(info.Size()))
	if buf == nil {
		return nil, fmt.Errorf("reading %s: %w", path, errArenaExhausted)
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return buf, nil
}

// NewShaderModule wraps SPIR-V bytecode in a shader module. The module only
// needs to live until pipeline creation.
func NewShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	// SPIR-V is a stream of 32-bit words; anything else would be silently
	// truncated by the byte-to-word view below.
	if len(code) == 0 || len(code)%4 != 0 {
		return vk.NullShaderModule, fmt.Errorf("invalid SPIR-V: %d bytes is not a positive multiple of 4", len(code))
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	if err := NewError(vk.CreateShaderModule(device, &createInfo, nil, &module)); err != nil {
		return vk.NullShaderModule, fmt.Errorf("creating shader module: %w", err)
	}
	return module, nil
}

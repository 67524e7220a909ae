package triangle

import (
	"cmp"
	"unsafe"
)

// safeString returns s with the NUL terminator the Vulkan C ABI expects.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

// sliceUint32 reinterprets SPIR-V bytecode as the uint32 words Vulkan
// expects. The byte length must be a multiple of four.
func sliceUint32(data []byte) []uint32 {
	const wordSize = int(unsafe.Sizeof(uint32(0)))
	return unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(data))), len(data)/wordSize)
}

func clamp[T cmp.Ordered](n, low, high T) T {
	return min(high, max(low, n))
}

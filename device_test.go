package triangle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func graphicsFamily() vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit)}
}

func transferFamily() vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueTransferBit)}
}

func TestScanQueueFamiliesCombined(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		transferFamily(),
		graphicsFamily(),
	}
	indices := scanQueueFamilies(families, func(family uint32) bool { return family == 1 })

	require.True(t, indices.Complete())
	assert.True(t, indices.Combined())
	assert.Equal(t, uint32(1), indices.Graphics)
	assert.Equal(t, uint32(1), indices.Present)
}

func TestScanQueueFamiliesSeparate(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		graphicsFamily(),
		transferFamily(),
	}
	indices := scanQueueFamilies(families, func(family uint32) bool { return family == 1 })

	require.True(t, indices.Complete())
	assert.False(t, indices.Combined())
	assert.Equal(t, uint32(0), indices.Graphics)
	assert.Equal(t, uint32(1), indices.Present)
}

func TestScanQueueFamiliesIncomplete(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		transferFamily(),
	}
	indices := scanQueueFamilies(families, func(uint32) bool { return false })

	assert.False(t, indices.HasGraphics)
	assert.False(t, indices.HasPresent)
	assert.False(t, indices.Complete())
}

func TestScanQueueFamiliesStopsAtFirstComplete(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		graphicsFamily(),
		graphicsFamily(),
	}
	probed := 0
	indices := scanQueueFamilies(families, func(uint32) bool {
		probed++
		return true
	})

	require.True(t, indices.Complete())
	assert.Equal(t, uint32(0), indices.Graphics)
	assert.Equal(t, 1, probed, "scan continued past the first complete family")
}

func TestFirstSuitablePicksEarliest(t *testing.T) {
	candidates := []QueueFamilyIndices{
		{HasGraphics: true}, // no presentation
		{Graphics: 0, HasGraphics: true, Present: 0, HasPresent: true},
		{Graphics: 2, HasGraphics: true, Present: 2, HasPresent: true},
	}
	probed := 0
	i, indices, err := firstSuitable(len(candidates), func(i int) (QueueFamilyIndices, error) {
		probed++
		return candidates[i], nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.True(t, indices.Combined())
	assert.Equal(t, 2, probed, "selection probed past the first suitable candidate")
}

func TestFirstSuitableNoneSuitable(t *testing.T) {
	_, _, err := firstSuitable(3, func(int) (QueueFamilyIndices, error) {
		return QueueFamilyIndices{HasGraphics: true}, nil
	})
	assert.Error(t, err)
}

func TestFirstSuitablePropagatesProbeError(t *testing.T) {
	probeErr := errors.New("probe failed")
	_, _, err := firstSuitable(2, func(int) (QueueFamilyIndices, error) {
		return QueueFamilyIndices{}, probeErr
	})
	assert.ErrorIs(t, err, probeErr)
}

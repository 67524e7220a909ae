package triangle

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ValidationLayers are requested when Config.EnableValidation is set.
var ValidationLayers = []string{
	"VK_LAYER_KHRONOS_validation",
}

// NewInstance creates the Vulkan instance with the extensions the windowing
// layer requires and, optionally, the validation layers. A missing extension
// or layer fails instance creation; there is no degraded mode.
func NewInstance(appName, engineName string, requiredExtensions []string, enableValidation bool) (vk.Instance, error) {
	var layers []string
	if enableValidation {
		ok, err := hasInstanceLayers(ValidationLayers)
		if err != nil {
			return nil, fmt.Errorf("enumerating instance layers: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("validation layers requested but not available")
		}
		layers = safeStrings(ValidationLayers)
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(appName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        safeString(engineName),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredExtensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	var instance vk.Instance
	if err := NewError(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, fmt.Errorf("creating instance: %w", err)
	}
	return instance, nil
}

// hasInstanceLayers reports whether every wanted layer is installed.
func hasInstanceLayers(wanted []string) (bool, error) {
	var count uint32
	if err := NewError(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return false, err
	}
	available := make([]vk.LayerProperties, count)
	if err := NewError(vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return false, err
	}

	installed := make(map[string]struct{}, count)
	for _, layer := range available {
		layer.Deref()
		installed[vk.ToString(layer.LayerName[:])] = struct{}{}
	}
	for _, name := range wanted {
		if _, ok := installed[name]; !ok {
			return false, nil
		}
	}
	return true, nil
}

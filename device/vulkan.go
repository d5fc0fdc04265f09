// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultApplicationInfo describes the Vulkan application to the driver
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "phong\x00",
	PEngineName:        "phong\x00",
}

const validationLayer = "VK_LAYER_KHRONOS_validation"

// Configuration configures instance and logical device creation
type Configuration struct {
	// Debug enables the validation layer.
	Debug bool

	// Extensions are the instance extensions, usually the ones the window requires.
	Extensions []string

	Layers []string

	// DeviceExtensions are enabled on the logical device in addition to the swapchain.
	DeviceExtensions []string
}

// SurfaceFunc creates a presentation surface for the instance.
type SurfaceFunc func(instance vk.Instance) (vk.Surface, error)

// NewVulkanInstance loads Vulkan, creates an instance and enumerates physical devices.
// When procAddr is nil the default loader is used.
func NewVulkanInstance(cfg Configuration, procAddr unsafe.Pointer) (*Vulkan, error) {
	layers := cfg.Layers
	if cfg.Debug {
		layers = append(layers, validationLayer)
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        DefaultApplicationInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	if err := check(vk.CreateInstance(&instanceInfo, nil, &instance), "vk.CreateInstance()"); err != nil {
		return nil, err
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	return &Vulkan{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
		log:              log.WithField("component", "device"),
	}, nil
}

// NewVulkanDevice creates an instance, a surface through surfaceFn and
// a logical device on the first physical device that can present to it.
func NewVulkanDevice(cfg Configuration, procAddr unsafe.Pointer, surfaceFn SurfaceFunc) (*Vulkan, error) {
	v, err := NewVulkanInstance(cfg, procAddr)
	if err != nil {
		return nil, err
	}
	if err := v.open(surfaceFn); err != nil {
		v.Destroy()
		return nil, err
	}
	return v, nil
}

// Vulkan is the Vulkan implementation of Device
type Vulkan struct {
	configuration Configuration

	availableDevices []vk.PhysicalDevice

	instance       vk.Instance
	surface        vk.Surface
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32
	memory         *memoryAllocator

	log *log.Entry
}

var _ Device = (*Vulkan)(nil)

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	if deviceCount == 0 {
		return nil, errors.New("vulkan physical device enumeration failed: no devices")
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	return availableDevices, nil
}

func (v *Vulkan) open(surfaceFn SurfaceFunc) error {
	surface, err := surfaceFn(v.instance)
	if err != nil {
		return errors.Wrap(err, "create surface")
	}
	v.surface = surface

	var (
		found  bool
		family uint32
	)
	for _, pd := range v.availableDevices {
		if family, found = v.graphicsFamily(pd); found {
			v.physicalDevice = pd
			break
		}
	}
	if !found {
		return errors.New("vulkan error: no physical device with a graphics queue that can present")
	}
	v.queueFamily = family

	extensions := append([]string{vk.KhrSwapchainExtensionName}, v.configuration.DeviceExtensions...)
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}

	var device vk.Device
	if err := check(vk.CreateDevice(v.physicalDevice, &dci, nil, &device), "vk.CreateDevice()"); err != nil {
		return err
	}
	v.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)
	v.queue = queue
	v.memory = newMemoryAllocator(device, v.physicalDevice)

	v.log.WithField("queueFamily", family).Debug("logical device created")
	return nil
}

// graphicsFamily finds a queue family that supports both graphics and
// presenting to the surface.
func (v *Vulkan) graphicsFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)

	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, i, v.surface, &supportsPresent)
		if supportsPresent.B() {
			return i, true
		}
	}
	return 0, false
}

// PhysicalDevices implements Device
func (v *Vulkan) PhysicalDevices() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, pd := range v.availableDevices {
		var numDeviceExtensions uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt)); err != nil {
			pdi[i].Invalid = true
		}
		for _, ext := range deviceExt {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		var numDeviceLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, deviceLayers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += memoryProperties.MemoryHeaps[iMem].Size
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		pdi[i].ID = int(properties.DeviceID)
		pdi[i].VendorID = int(properties.VendorID)
		pdi[i].Name = vk.ToString(properties.DeviceName[:])
		pdi[i].DriverVersion = int(properties.DriverVersion)
	}
	return pdi
}

// Queue implements Device
func (v *Vulkan) Queue() vk.Queue {
	return v.queue
}

// QueueFamilyIndex implements Device
func (v *Vulkan) QueueFamilyIndex() uint32 {
	return v.queueFamily
}

// WaitIdle implements Device
func (v *Vulkan) WaitIdle() error {
	return check(vk.DeviceWaitIdle(v.device), "vk.DeviceWaitIdle()")
}

// Destroy implements Device
func (v *Vulkan) Destroy() {
	if v == nil {
		return
	}
	v.availableDevices = nil
	if v.device != nil {
		vk.DestroyDevice(v.device, nil)
		v.device = nil
	}
	if v.surface != nil {
		vk.DestroySurface(v.instance, v.surface, nil)
		v.surface = nil
	}
	vk.DestroyInstance(v.instance, nil)
	v.log.Debug("instance destroyed")
}

func check(result vk.Result, op string) error {
	if err := vk.Error(result); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

func safeStrings(sgs []string) []string {
	safe := make([]string, 0, len(sgs))
	for _, s := range sgs {
		safe = append(safe, s+"\x00")
	}
	return safe
}

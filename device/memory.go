// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// memoryAllocator picks memory types from the physical device's
// memory properties and allocates on the logical device.
type memoryAllocator struct {
	device        vk.Device
	memProperties vk.PhysicalDeviceMemoryProperties
}

func newMemoryAllocator(device vk.Device, phyDevice vk.PhysicalDevice) *memoryAllocator {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(phyDevice, &memProperties)
	memProperties.Deref()
	for idx := uint32(0); idx < memProperties.MemoryTypeCount; idx++ {
		memProperties.MemoryTypes[idx].Deref()
	}

	return &memoryAllocator{
		device:        device,
		memProperties: memProperties,
	}
}

func (ma *memoryAllocator) malloc(req vk.MemoryRequirements, prop vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	memTypeIdx, err := ma.findMemoryType(req.MemoryTypeBits, prop)
	if err != nil {
		return nil, err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := check(vk.AllocateMemory(ma.device, &mai, nil, &memory), "vk.AllocateMemory()"); err != nil {
		return nil, err
	}
	return memory, nil
}

func (ma *memoryAllocator) findMemoryType(filter uint32, prop vk.MemoryPropertyFlags) (uint32, error) {
	for idx := uint32(0); idx < ma.memProperties.MemoryTypeCount; idx++ {
		if filter&(1<<idx) != 0 && (ma.memProperties.MemoryTypes[idx].PropertyFlags&prop) == prop {
			return idx, nil
		}
	}
	return 0, errors.Errorf("suitable memory type not found for properties %#x", prop)
}

// AllocateMemory implements Resources
func (v *Vulkan) AllocateMemory(req vk.MemoryRequirements, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	return v.memory.malloc(req, props)
}

// WriteMemory maps host visible memory, copies data into it and unmaps.
func (v *Vulkan) WriteMemory(mem vk.DeviceMemory, offset vk.DeviceSize, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var mapped unsafe.Pointer
	if err := check(vk.MapMemory(v.device, mem, offset, vk.DeviceSize(len(data)), 0, &mapped), "vk.MapMemory()"); err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(mapped), len(data)), data)
	vk.UnmapMemory(v.device, mem)
	return nil
}

// FreeMemory implements Resources
func (v *Vulkan) FreeMemory(mem vk.DeviceMemory) {
	vk.FreeMemory(v.device, mem, nil)
}

// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// Surface implements Presenter
func (v *Vulkan) Surface() vk.Surface {
	return v.surface
}

// SurfaceCapabilities implements Presenter
func (v *Vulkan) SurfaceCapabilities() (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(v.physicalDevice, v.surface, &caps), "vk.GetPhysicalDeviceSurfaceCapabilities()"); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

// SurfaceFormats implements Presenter
func (v *Vulkan) SurfaceFormats() ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &count, nil), "vk.GetPhysicalDeviceSurfaceFormats()"); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &count, formats), "vk.GetPhysicalDeviceSurfaceFormats()"); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

// CreateSwapchain implements Presenter
func (v *Vulkan) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	if err := check(vk.CreateSwapchain(v.device, info, nil, &swapchain), "vk.CreateSwapchain()"); err != nil {
		return nil, err
	}
	return swapchain, nil
}

// SwapchainImages implements Presenter
func (v *Vulkan) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	var numImages uint32
	if err := check(vk.GetSwapchainImages(v.device, swapchain, &numImages, nil), "vk.GetSwapchainImages(num)"); err != nil {
		return nil, err
	}
	images := make([]vk.Image, numImages)
	if err := check(vk.GetSwapchainImages(v.device, swapchain, &numImages, images), "vk.GetSwapchainImages(images)"); err != nil {
		return nil, err
	}
	return images, nil
}

// DestroySwapchain implements Presenter
func (v *Vulkan) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(v.device, swapchain, nil)
}

// AcquireNextImage implements Presenter
func (v *Vulkan) AcquireNextImage(swapchain vk.Swapchain, signal vk.Semaphore) (uint32, error) {
	var idx uint32
	result := vk.AcquireNextImage(v.device, swapchain, math.MaxUint64, signal, nil, &idx)
	switch result {
	case vk.ErrorOutOfDate:
		return 0, ErrOutOfDate
	case vk.Suboptimal:
		// the image is acquired and usable, recreate after presenting
		return idx, nil
	}
	if err := check(result, "vk.AcquireNextImage()"); err != nil {
		return 0, err
	}
	return idx, nil
}

// QueuePresent implements Presenter
func (v *Vulkan) QueuePresent(info *vk.PresentInfo) error {
	result := vk.QueuePresent(v.queue, info)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		return ErrOutOfDate
	}
	return check(result, "vk.QueuePresent()")
}

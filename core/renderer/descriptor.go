// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
)

// ErrPoolExhausted is returned once every set of a DescriptorPool is handed out
var ErrPoolExhausted = errors.New("descriptor pool exhausted")

// DescriptorPool hands out descriptor sets up to a fixed count. One set is
// meant for the view matrix uniform buffer, the rest for materials with two
// combined image samplers each.
type DescriptorPool struct {
	ctx       *core.Context
	pool      vk.DescriptorPool
	maxSets   uint32
	allocated uint32
}

// NewDescriptorPool creates a pool of maxSets sets.
func NewDescriptorPool(ctx *core.Context, maxSets uint32) (*DescriptorPool, error) {
	if maxSets < 2 {
		return nil, core.Fail(core.ResourceCreationFailure, "create descriptor pool", errors.Errorf("need at least 2 sets, got %d", maxSets))
	}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: 2,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 2 * (maxSets - 1),
		}, {
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
		}},
	}
	pool, err := ctx.Device().CreateDescriptorPool(&dpci)
	if err != nil {
		return nil, core.Fail(core.ResourceCreationFailure, "create descriptor pool", err)
	}
	return &DescriptorPool{
		ctx:     ctx,
		pool:    pool,
		maxSets: maxSets,
	}, nil
}

// Allocate returns a new set with layout. It fails with ErrPoolExhausted
// without calling the device once MaxSets sets are allocated.
func (p *DescriptorPool) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	if p.allocated >= p.maxSets {
		return nil, core.Fail(core.ResourceCreationFailure, "allocate descriptor set",
			errors.Wrapf(ErrPoolExhausted, "%d of %d sets in use", p.allocated, p.maxSets))
	}
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets, err := p.ctx.Device().AllocateDescriptorSets(&dsai)
	if err != nil {
		return nil, core.Fail(core.ResourceCreationFailure, "allocate descriptor set", err)
	}
	p.allocated++
	return sets[0], nil
}

// Handle returns the pool handle
func (p *DescriptorPool) Handle() vk.DescriptorPool {
	return p.pool
}

// MaxSets is the capacity of the pool
func (p *DescriptorPool) MaxSets() uint32 {
	return p.maxSets
}

// Remaining is the number of sets that can still be allocated
func (p *DescriptorPool) Remaining() uint32 {
	return p.maxSets - p.allocated
}

// destroy frees the pool and with it every set allocated from it
func (p *DescriptorPool) destroy() {
	if p.pool == nil {
		return
	}
	p.ctx.Device().DestroyDescriptorPool(p.pool)
	p.pool = nil
	p.allocated = p.maxSets
}

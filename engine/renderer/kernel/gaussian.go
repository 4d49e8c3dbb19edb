package kernel

import (
	"sync"

	"github.com/chewxy/math32"
)

// MaxBlurRadius is the largest blur radius a kernel accepts. Larger radii are clamped,
// which bounds the weight texture at 33 taps.
const MaxBlurRadius = 16

// GaussianWeights returns the normalized 1D Gaussian blur weights for radius.
// The kernel has round(radius)*2+1 taps spread evenly over [-radius, radius] with sigma = radius/2.
// A radius of zero or less yields the identity kernel [1]; a radius above MaxBlurRadius is clamped to it.
// The result is shared through a cache and must not be modified.
//
// Parameters:
//   - radius: the blur radius in texels
//
// Returns:
//   - []float32: weights summing to 1
func GaussianWeights(radius float32) []float32 {
	return defaultWeightCache.get(radius)
}

func gaussianWeights(radius float32) []float32 {
	if radius <= 0 {
		return []float32{1}
	}
	radius = min(radius, MaxBlurRadius)

	sigma := radius / 2
	size := int(math32.Round(radius))*2 + 1
	delta := float32(0)
	if size > 1 {
		delta = 2 * radius / float32(size-1)
	}
	expScale := -1 / (2 * sigma * sigma)

	weights := make([]float32, size)
	sum := float32(0)
	x := -radius
	for i := range weights {
		weights[i] = math32.Exp(x * x * expScale)
		sum += weights[i]
		x += delta
	}
	scale := 1 / sum
	for i := range weights {
		weights[i] *= scale
	}
	return weights
}

// weightCache caches weight kernels keyed by radius quantized to 0.01.
type weightCache struct {
	mu     *sync.RWMutex
	cache  map[int32][]float32
	maxLen int
}

var defaultWeightCache = newWeightCache(64)

func newWeightCache(maxLen int) *weightCache {
	return &weightCache{
		mu:     &sync.RWMutex{},
		cache:  make(map[int32][]float32),
		maxLen: maxLen,
	}
}

func (c *weightCache) get(radius float32) []float32 {
	key := int32(math32.Round(radius * 100))

	c.mu.RLock()
	if w, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return w
	}
	c.mu.RUnlock()

	w := gaussianWeights(radius)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache) >= c.maxLen {
		// Drop half; slider drags produce many one-off radii.
		n := 0
		for k := range c.cache {
			delete(c.cache, k)
			n++
			if n >= c.maxLen/2 {
				break
			}
		}
	}
	c.cache[key] = w
	return w
}

func (c *weightCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

package renderer

import (
	"image"

	"github.com/Carmen-Shannon/c64screen/engine/renderer/kernel"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
)

// ResourcesBuilderOption is a functional option applied to the resources during BuildResources.
type ResourcesBuilderOption func(*resources)

// WithBackgroundPath loads the background texture from an image file.
// An unreadable file falls back to the generated gradient.
//
// Parameters:
//   - path: a PNG, JPEG, BMP or WebP file
//
// Returns:
//   - ResourcesBuilderOption: a function that applies the background option
func WithBackgroundPath(path string) ResourcesBuilderOption {
	return func(r *resources) {
		r.backgroundPath = path
	}
}

// WithBackgroundImage uses an already decoded image as the background texture.
//
// Parameters:
//   - img: the image, scaled to BackgroundSize
//
// Returns:
//   - ResourcesBuilderOption: a function that applies the background option
func WithBackgroundImage(img image.Image) ResourcesBuilderOption {
	return func(r *resources) {
		r.backgroundImg = img
	}
}

// WithLibraryOptions passes options to the shader library.
//
// Parameters:
//   - options: library options such as shader.WithSourceDir
//
// Returns:
//   - ResourcesBuilderOption: a function that applies the library options
func WithLibraryOptions(options ...shader.LibraryBuilderOption) ResourcesBuilderOption {
	return func(r *resources) {
		r.libOptions = append(r.libOptions, options...)
	}
}

// WithCatalogOptions passes options to the kernel catalog.
//
// Parameters:
//   - options: catalog options such as kernel.WithWorkers
//
// Returns:
//   - ResourcesBuilderOption: a function that applies the catalog options
func WithCatalogOptions(options ...kernel.CatalogBuilderOption) ResourcesBuilderOption {
	return func(r *resources) {
		r.catalogOptions = append(r.catalogOptions, options...)
	}
}

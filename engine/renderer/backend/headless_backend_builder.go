package backend

// HeadlessBuilderOption is a functional option for configuring a headless backend.
type HeadlessBuilderOption func(b *headlessBackend)

// WithSurfaceSize sets the initial drawable size.
//
// Parameters:
//   - width: drawable width in pixels
//   - height: drawable height in pixels
//
// Returns:
//   - HeadlessBuilderOption: a function that applies the surface size option to a headless backend
func WithSurfaceSize(width, height uint32) HeadlessBuilderOption {
	return func(b *headlessBackend) {
		b.size.Width = width
		b.size.Height = height
	}
}

// WithDrawableAvailable sets whether AcquireFrame initially succeeds.
//
// Parameters:
//   - ok: false makes AcquireFrame return ErrNoDrawable
//
// Returns:
//   - HeadlessBuilderOption: a function that applies the drawable option to a headless backend
func WithDrawableAvailable(ok bool) HeadlessBuilderOption {
	return func(b *headlessBackend) {
		b.drawableAvailable = ok
	}
}

// WithDeferredCompletion holds completion callbacks until Poll is called, like a GPU that is still busy.
//
// Returns:
//   - HeadlessBuilderOption: a function that applies the deferred completion option to a headless backend
func WithDeferredCompletion() HeadlessBuilderOption {
	return func(b *headlessBackend) {
		b.deferCompletion = true
	}
}

// WithFailingPrograms makes compilation of the named programs fail.
//
// Parameters:
//   - names: the program names to reject
//
// Returns:
//   - HeadlessBuilderOption: a function that applies the failing programs option to a headless backend
func WithFailingPrograms(names ...string) HeadlessBuilderOption {
	return func(b *headlessBackend) {
		for _, n := range names {
			b.failing[n] = true
		}
	}
}

// WithShaderValidation compiles every program with naga so WGSL errors surface without a GPU.
//
// Returns:
//   - HeadlessBuilderOption: a function that applies the shader validation option to a headless backend
func WithShaderValidation() HeadlessBuilderOption {
	return func(b *headlessBackend) {
		b.validate = true
	}
}

// WithFrameHistory limits how many finished frames are kept for Frames.
//
// Parameters:
//   - n: the number of most recent frames to keep, 0 keeps all
//
// Returns:
//   - HeadlessBuilderOption: option function to apply
func WithFrameHistory(n int) HeadlessBuilderOption {
	return func(b *headlessBackend) {
		b.history = n
	}
}

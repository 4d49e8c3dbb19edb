package camera

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithFov sets the vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithAnimationSteps sets the number of frames each animation takes.
//
// Parameters:
//   - steps: frames per animation, values <= 0 are ignored
//
// Returns:
//   - CameraBuilderOption: a function that sets the step count
func WithAnimationSteps(steps int) CameraBuilderOption {
	return func(c *cameraImpl) {
		if steps > 0 {
			c.steps = steps
		}
	}
}

// WithEye places the eye without animating.
//
// Parameters:
//   - x, y, z: eye coordinates
//
// Returns:
//   - CameraBuilderOption: a function that sets the eye position
func WithEye(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.scalars[eyeX].Set(x)
		c.scalars[eyeY].Set(y)
		c.scalars[eyeZ].Set(z)
	}
}

// WithAlpha sets the initial screen opacity without animating.
//
// Parameters:
//   - a: opacity in [0, 1]
//
// Returns:
//   - CameraBuilderOption: a function that sets the opacity
func WithAlpha(a float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.scalars[alpha].Set(a)
	}
}

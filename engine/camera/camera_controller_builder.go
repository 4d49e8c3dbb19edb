package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithPanStep sets the eye distance moved by one pan key press.
//
// Parameters:
//   - step: pan distance, values <= 0 are ignored
//
// Returns:
//   - CameraControllerOption: functional option to set the pan step
func WithPanStep(step float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if step > 0 {
			cc.panStep = step
		}
	}
}

// WithBinding binds an action to a key in place of its default.
//
// Parameters:
//   - key: the key code
//   - action: the action to run
//
// Returns:
//   - CameraControllerOption: functional option to add the binding
func WithBinding(key int, action Action) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.bindings[key] = action
	}
}

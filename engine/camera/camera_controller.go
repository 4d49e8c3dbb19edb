package camera

import (
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
)

// Action is a camera operation triggered by a key.
type Action func(c Camera)

// CameraController maps key presses to camera animations.
type CameraController interface {
	// HandleKey runs the action bound to key, if any.
	//
	// Parameters:
	//   - key: the key code (see common.Key*)
	//
	// Returns:
	//   - bool: true if the key was bound
	HandleKey(key int) bool

	// Bind binds an action to key, replacing any previous binding.
	//
	// Parameters:
	//   - key: the key code
	//   - action: the action to run
	Bind(key int, action Action)

	// Unbind removes the binding for key.
	//
	// Parameters:
	//   - key: the key code
	Unbind(key int)

	// Bound reports whether key has an action.
	//
	// Parameters:
	//   - key: the key code
	//
	// Returns:
	//   - bool: true if bound
	Bound(key int) bool

	// PanStep returns the eye distance moved by one pan key press.
	//
	// Returns:
	//   - float32: the pan distance
	PanStep() float32
}

type cameraControllerImpl struct {
	mu       *sync.Mutex
	camera   Camera
	bindings map[int]Action
	panStep  float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a controller for c with the default bindings:
// arrows rotate, Z/X zoom, B/N blend, W/A/S/D pan the eye, 0 recenters the eye and space snaps.
//
// Parameters:
//   - c: the camera to drive
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(c Camera, options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:       &sync.Mutex{},
		camera:   c,
		bindings: make(map[int]Action),
		panStep:  0.1,
	}
	for _, option := range options {
		option(cc)
	}

	defaults := map[int]Action{
		common.KeyLeft:  Camera.RotateLeft,
		common.KeyRight: Camera.RotateRight,
		common.KeyUp:    Camera.RotateUp,
		common.KeyDown:  Camera.RotateDown,
		common.KeyZ:     Camera.ZoomIn,
		common.KeyX:     Camera.ZoomOut,
		common.KeyB:     Camera.BlendIn,
		common.KeyN:     Camera.BlendOut,
		common.KeySpace: Camera.Snap,
		common.Key0:     func(c Camera) { c.SetEye(0, 0, 0) },
		common.KeyA:     cc.pan(-1, 0, 0),
		common.KeyD:     cc.pan(1, 0, 0),
		common.KeyW:     cc.pan(0, 1, 0),
		common.KeyS:     cc.pan(0, -1, 0),
	}
	for key, action := range defaults {
		if _, ok := cc.bindings[key]; !ok {
			cc.bindings[key] = action
		}
	}
	return cc
}

// pan returns an action that moves the eye target by one pan step along (dx, dy, dz).
func (cc *cameraControllerImpl) pan(dx, dy, dz float32) Action {
	return func(c Camera) {
		step := cc.PanStep()
		x, y, z := c.Eye()
		c.SetEye(x+dx*step, y+dy*step, z+dz*step)
	}
}

func (cc *cameraControllerImpl) HandleKey(key int) bool {
	cc.mu.Lock()
	action, ok := cc.bindings[key]
	cc.mu.Unlock()
	if !ok || action == nil {
		return false
	}
	action(cc.camera)
	return true
}

func (cc *cameraControllerImpl) Bind(key int, action Action) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.bindings[key] = action
}

func (cc *cameraControllerImpl) Unbind(key int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.bindings, key)
}

func (cc *cameraControllerImpl) Bound(key int) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, ok := cc.bindings[key]
	return ok
}

func (cc *cameraControllerImpl) PanStep() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.panStep
}

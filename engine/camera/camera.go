package camera

import (
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/chewxy/math32"
)

// Eye distance offsets and the zoom start position.
const (
	// EyeZOffset is added to the eye z coordinate so the front face sits in view at eye z 0.
	EyeZOffset = 1.39
	// ZoomDistance is the eye z coordinate a zoom in starts from and a zoom out ends at.
	ZoomDistance = 6.0
)

// Scalar indices of the animation state.
const (
	angleX = iota
	angleY
	angleZ
	eyeX
	eyeY
	eyeZ
	alpha
	numScalars
)

type cameraImpl struct {
	mu *sync.Mutex

	fov    float32
	aspect float32
	near   float32
	far    float32
	steps  int

	scalars [numScalars]Scalar
}

// Camera holds the animated eye, rotation and alpha of the 3D screen and builds its matrices.
// Animation methods only set targets; Step advances every running animation by one frame.
// All methods are safe for concurrent use.
type Camera interface {
	// Aspect returns the projection aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// SetAspect sets the projection aspect ratio. Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Steps returns the number of frames each animation takes.
	//
	// Returns:
	//   - int: the step count
	Steps() int

	// SetSteps changes the number of frames future animations take. Values <= 0 reset to DefaultAnimationSteps.
	//
	// Parameters:
	//   - steps: the step count
	SetSteps(steps int)

	// Eye returns the current eye position.
	//
	// Returns:
	//   - x, y, z: eye coordinates
	Eye() (x, y, z float32)

	// SetEye animates the eye to a new position.
	//
	// Parameters:
	//   - x, y, z: target eye coordinates
	SetEye(x, y, z float32)

	// Angles returns the current rotation angles in degrees.
	//
	// Returns:
	//   - x, y, z: rotation about each axis in degrees
	Angles() (x, y, z float32)

	// Alpha returns the current screen opacity.
	//
	// Returns:
	//   - float32: opacity in [0, 1]
	Alpha() float32

	// Rotate animates a rotation by the given number of degrees about each axis.
	//
	// Parameters:
	//   - dx, dy, dz: rotation deltas in degrees
	Rotate(dx, dy, dz float32)

	// RotateLeft turns the cube a quarter to the left.
	RotateLeft()

	// RotateRight turns the cube a quarter to the right.
	RotateRight()

	// RotateUp tips the cube a quarter upwards.
	RotateUp()

	// RotateDown tips the cube a quarter downwards.
	RotateDown()

	// ZoomIn flies the screen in from ZoomDistance while fading it in.
	ZoomIn()

	// ZoomOut flies the screen out to ZoomDistance while fading it out.
	ZoomOut()

	// BlendIn fades the screen in from fully transparent.
	BlendIn()

	// BlendOut fades the screen out to fully transparent.
	BlendOut()

	// Snap completes every running animation immediately.
	Snap()

	// Animating reports whether any animation has steps remaining.
	//
	// Returns:
	//   - bool: true while animating
	Animating() bool

	// Step advances every running animation by one frame.
	// Rotation angles wrap into [0, 360) once the rotation has finished.
	Step()

	// ProjectionMatrix returns the perspective projection as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ModelMatrix returns the cube model matrix as 16 floats (column-major).
	// The rotation is only applied while animating; a resting cube always faces front.
	//
	// Returns:
	//   - [16]float32: the model matrix
	ModelMatrix() [16]float32

	// Matrix returns projection × model.
	//
	// Returns:
	//   - [16]float32: the combined matrix
	Matrix() [16]float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera at the origin, facing front and fully opaque.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		fov:    common.Radians(65),
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		steps:  DefaultAnimationSteps,
	}
	c.scalars[alpha].Set(1)
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) Steps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps
}

func (c *cameraImpl) SetSteps(steps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if steps <= 0 {
		steps = DefaultAnimationSteps
	}
	c.steps = steps
}

func (c *cameraImpl) Eye() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scalars[eyeX].current, c.scalars[eyeY].current, c.scalars[eyeZ].current
}

func (c *cameraImpl) SetEye(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scalars[eyeX].SetTarget(x, c.steps)
	c.scalars[eyeY].SetTarget(y, c.steps)
	c.scalars[eyeZ].SetTarget(z, c.steps)
}

func (c *cameraImpl) Angles() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scalars[angleX].current, c.scalars[angleY].current, c.scalars[angleZ].current
}

func (c *cameraImpl) Alpha() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scalars[alpha].current
}

func (c *cameraImpl) Rotate(dx, dy, dz float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Chained rotations build on the pending target, not the in-between position.
	c.scalars[angleX].SetTarget(c.scalars[angleX].target+dx, c.steps)
	c.scalars[angleY].SetTarget(c.scalars[angleY].target+dy, c.steps)
	c.scalars[angleZ].SetTarget(c.scalars[angleZ].target+dz, c.steps)
}

func (c *cameraImpl) RotateLeft()  { c.Rotate(0, 90, 0) }
func (c *cameraImpl) RotateRight() { c.Rotate(0, -90, 0) }
func (c *cameraImpl) RotateUp()    { c.Rotate(-90, 0, 0) }
func (c *cameraImpl) RotateDown()  { c.Rotate(90, 0, 0) }

func (c *cameraImpl) ZoomIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scalars[eyeZ].Set(ZoomDistance)
	c.scalars[eyeZ].SetTarget(0, c.steps)
	c.scalars[alpha].Set(0)
	c.scalars[alpha].SetTarget(1, c.steps)
}

func (c *cameraImpl) ZoomOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scalars[eyeZ].SetTarget(ZoomDistance, c.steps)
	c.scalars[alpha].SetTarget(0, c.steps)
}

func (c *cameraImpl) BlendIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scalars[alpha].Set(0)
	c.scalars[alpha].SetTarget(1, c.steps)
}

func (c *cameraImpl) BlendOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scalars[alpha].SetTarget(0, c.steps)
}

func (c *cameraImpl) Snap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.scalars {
		c.scalars[i].Snap()
	}
	c.wrapAngles()
}

func (c *cameraImpl) Animating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.animating()
}

func (c *cameraImpl) animating() bool {
	for i := range c.scalars {
		if c.scalars[i].Animating() {
			return true
		}
	}
	return false
}

func (c *cameraImpl) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.scalars {
		c.scalars[i].Step()
	}
	c.wrapAngles()
}

// wrapAngles folds resting angles into [0, 360). Caller must hold the mutex.
func (c *cameraImpl) wrapAngles() {
	for _, i := range []int{angleX, angleY, angleZ} {
		s := &c.scalars[i]
		if s.Animating() {
			continue
		}
		v := math32.Mod(s.current, 360)
		if v < 0 {
			v += 360
		}
		s.Set(v)
	}
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection()
}

func (c *cameraImpl) projection() [16]float32 {
	var m [16]float32
	common.PerspectiveLH(m[:], c.fov, c.aspect, c.near, c.far)
	return m
}

func (c *cameraImpl) ModelMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model()
}

// model builds translation × Rx × Ry × Rz. Caller must hold the mutex.
func (c *cameraImpl) model() [16]float32 {
	var m [16]float32
	common.Translation(m[:], -c.scalars[eyeX].current, -c.scalars[eyeY].current, c.scalars[eyeZ].current+EyeZOffset)
	if !c.animating() {
		return m
	}

	var r [16]float32
	common.Rotation(r[:], -common.Radians(c.scalars[angleX].current), 0.5, 0, 0)
	common.Mul4(m[:], m[:], r[:])
	common.Rotation(r[:], common.Radians(c.scalars[angleY].current), 0, 0.5, 0)
	common.Mul4(m[:], m[:], r[:])
	common.Rotation(r[:], common.Radians(c.scalars[angleZ].current), 0, 0, 0.5)
	common.Mul4(m[:], m[:], r[:])
	return m
}

func (c *cameraImpl) Matrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	proj, model := c.projection(), c.model()
	var out [16]float32
	common.Mul4(out[:], proj[:], model[:])
	return out
}

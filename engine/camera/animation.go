package camera

// DefaultAnimationSteps is the number of frames an animation takes unless configured otherwise.
const DefaultAnimationSteps = 60

// Scalar is a value that moves linearly towards a target over a fixed number of steps.
// The zero value rests at 0.
type Scalar struct {
	current float32
	target  float32
	delta   float32
	steps   int
}

// Set places the scalar at v and cancels any running animation.
//
// Parameters:
//   - v: the new value
func (s *Scalar) Set(v float32) {
	s.current, s.target, s.delta, s.steps = v, v, 0, 0
}

// SetTarget starts moving towards t over steps calls to Step.
// A target equal to the current value, or steps <= 0, snaps to t without animating.
//
// Parameters:
//   - t: the target value
//   - steps: the number of steps to take
func (s *Scalar) SetTarget(t float32, steps int) {
	if t == s.current || steps <= 0 {
		s.Set(t)
		return
	}
	s.target = t
	s.delta = (t - s.current) / float32(steps)
	s.steps = steps
}

// Step advances one step. The last step lands exactly on the target.
func (s *Scalar) Step() {
	if s.steps == 0 {
		return
	}
	s.steps--
	if s.steps == 0 {
		s.current = s.target
		s.delta = 0
		return
	}
	s.current += s.delta
}

// Snap finishes the animation immediately.
func (s *Scalar) Snap() {
	s.Set(s.target)
}

// Current returns the present value.
func (s *Scalar) Current() float32 { return s.current }

// Target returns the value the scalar is moving towards.
func (s *Scalar) Target() float32 { return s.target }

// Remaining returns the number of steps left.
func (s *Scalar) Remaining() int { return s.steps }

// Animating reports whether steps remain.
func (s *Scalar) Animating() bool { return s.steps > 0 }

package emulator

// TestPatternBuilderOption is a functional option for configuring a testPattern.
type TestPatternBuilderOption func(p *testPattern)

// WithStandard sets the initial video standard.
//
// Parameters:
//   - v: PAL or NTSC
//
// Returns:
//   - TestPatternBuilderOption: option function to apply
func WithStandard(v VideoStandard) TestPatternBuilderOption {
	return func(p *testPattern) {
		p.standard = v
	}
}

// WithHalted starts the pattern in the halted state.
//
// Parameters:
//   - halted: true to start halted
//
// Returns:
//   - TestPatternBuilderOption: option function to apply
func WithHalted(halted bool) TestPatternBuilderOption {
	return func(p *testPattern) {
		p.halted = halted
	}
}

// WithRenderWorkers sets how many pooled goroutines render line bands in parallel.
// Values <= 0 are ignored.
//
// Parameters:
//   - n: number of workers
//
// Returns:
//   - TestPatternBuilderOption: option function to apply
func WithRenderWorkers(n int) TestPatternBuilderOption {
	return func(p *testPattern) {
		if n > 0 {
			p.workers = n
		}
	}
}

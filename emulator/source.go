// Package emulator defines what the video pipeline consumes from an emulator core: a raw RGBA screen
// buffer, a halted flag and the active video standard with its border geometry.
package emulator

// FrameSource is the emulator core as seen by the video pipeline.
// Implementations must be safe to call from the rendering goroutine while the emulator runs elsewhere.
type FrameSource interface {
	// ScreenBuffer returns the most recently completed frame.
	// The slice holds BufferHeight lines of BufferStride bytes in RGBA order and
	// must stay valid until the next call.
	//
	// Returns:
	//   - []byte: the raw screen buffer, BufferSize bytes long
	ScreenBuffer() []byte

	// Halted reports whether the emulator is currently stopped.
	//
	// Returns:
	//   - bool: true while the emulator is halted
	Halted() bool

	// Standard returns the video standard the emulator is running with.
	//
	// Returns:
	//   - VideoStandard: PAL or NTSC
	Standard() VideoStandard
}

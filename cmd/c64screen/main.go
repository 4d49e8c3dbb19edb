// Command c64screen shows an emulator screen through the post-processing pipeline, either in a window
// on a WebGPU device or headless against the recording backend.
package main

import (
	"os"
	"runtime"
)

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

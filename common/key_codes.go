package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyA     = 65 // A key (ASCII)
	KeyB     = 66 // B key (ASCII)
	KeyD     = 68 // D key (ASCII)
	KeyF     = 70 // F key (ASCII)
	KeyI     = 73 // I key (ASCII)
	KeyK     = 75 // K key (ASCII)
	KeyM     = 77 // M key (ASCII)
	KeyN     = 78 // N key (ASCII)
	KeyO     = 79 // O key (ASCII)
	KeyP     = 80 // P key (ASCII)
	KeyS     = 83 // S key (ASCII)
	KeyU     = 85 // U key (ASCII)
	KeyW     = 87 // W key (ASCII)
	KeyX     = 88 // X key (ASCII)
	KeyZ     = 90 // Z key (ASCII)
	KeySpace = 32 // Spacebar (ASCII)
	Key0     = 48 // 0 key (ASCII)
	Key1     = 49 // 1 key (ASCII)

	KeyEsc   = 256 // Escape key (GLFW)
	KeyRight = 262 // Right arrow (GLFW)
	KeyLeft  = 263 // Left arrow (GLFW)
	KeyDown  = 264 // Down arrow (GLFW)
	KeyUp    = 265 // Up arrow (GLFW)
)

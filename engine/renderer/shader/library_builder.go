package shader

// LibraryBuilderOption is a functional option for configuring a Library.
type LibraryBuilderOption func(l *library)

// WithSourceDir loads .wgsl files from dir on top of the embedded programs.
//
// Parameters:
//   - dir: the directory to read
//
// Returns:
//   - LibraryBuilderOption: a function that applies the source directory option to a library
func WithSourceDir(dir string) LibraryBuilderOption {
	return func(l *library) {
		l.sourceDir = dir
	}
}

// WithProgram adds or replaces a single program.
//
// Parameters:
//   - name: the program name
//   - source: the WGSL source
//
// Returns:
//   - LibraryBuilderOption: a function that applies the program option to a library
func WithProgram(name, source string) LibraryBuilderOption {
	return func(l *library) {
		l.sources[name] = source
	}
}

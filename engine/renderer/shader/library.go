// Package shader holds the WGSL programs used by the post-processing kernels and the compositor.
// Programs are embedded in the binary and can be overridden from a directory on disk.
package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/c64screen/common"
)

//go:embed assets/*.wgsl
var assets embed.FS

// Program names shipped with the library.
const (
	BypassUpscaler   = "bypass_upscaler"
	EPXUpscaler      = "epx_upscaler"
	XBRUpscaler      = "xbr_upscaler"
	ScanlineUpscaler = "scanline_upscaler"
	BypassFilter     = "bypass_filter"
	GaussFilter      = "gauss_filter"
	CRTFilter        = "crt_filter"
	ScanlineFilter   = "scanline_filter"
	Composite        = "composite"
)

// ErrUnknownProgram is returned when a program name is not in the library.
var ErrUnknownProgram = errors.New("unknown shader program")

// Library is a read-only set of named WGSL programs.
type Library interface {
	// Program looks up a program by name.
	//
	// Parameters:
	//   - name: the program name, the file name without its .wgsl extension
	//
	// Returns:
	//   - Program: the parsed program
	//   - error: ErrUnknownProgram if the name is not present, or the parse error if its source was rejected
	Program(name string) (Program, error)

	// Names lists every program name in the library, including rejected ones, in sorted order.
	//
	// Returns:
	//   - []string: the sorted program names
	Names() []string
}

type library struct {
	mu        *sync.RWMutex
	programs  map[string]Program
	rejected  map[string]error
	sourceDir string
	sources   map[string]string
}

var _ Library = &library{}

// NewLibrary loads the embedded programs, then the .wgsl files in the source directory if one is set,
// then any programs added with WithProgram. Later sources replace earlier ones of the same name.
// Programs that fail to parse are remembered and reported by Program so callers can degrade per program.
//
// Parameters:
//   - options: variadic LibraryBuilderOption functions
//
// Returns:
//   - Library: the loaded library
//   - error: an error if the embedded assets or the source directory cannot be read
func NewLibrary(options ...LibraryBuilderOption) (Library, error) {
	l := &library{
		mu:       &sync.RWMutex{},
		programs: make(map[string]Program),
		rejected: make(map[string]error),
		sources:  make(map[string]string),
	}
	for _, opt := range options {
		opt(l)
	}

	if err := l.loadFS(assets, "assets"); err != nil {
		return nil, fmt.Errorf("failed to load embedded shaders: %w", err)
	}
	if l.sourceDir != "" {
		if err := l.loadFS(os.DirFS(l.sourceDir), "."); err != nil {
			return nil, fmt.Errorf("failed to load shaders from %s: %w", l.sourceDir, err)
		}
	}
	for name, src := range l.sources {
		l.add(name, src)
	}
	return l, nil
}

func (l *library) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".wgsl" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		l.add(strings.TrimSuffix(e.Name(), ".wgsl"), string(data))
	}
	return nil
}

func (l *library) add(name, source string) {
	p, err := parseProgram(name, source)
	if err != nil {
		common.Logger().Warn("shader rejected", "program", name, "error", err)
		delete(l.programs, name)
		l.rejected[name] = err
		return
	}
	delete(l.rejected, name)
	l.programs[name] = p
}

func (l *library) Program(name string) (Program, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.programs[name]; ok {
		return p, nil
	}
	if err, ok := l.rejected[name]; ok {
		return Program{}, err
	}
	return Program{}, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
}

func (l *library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.programs)+len(l.rejected))
	for name := range l.programs {
		names = append(names, name)
	}
	for name := range l.rejected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package shader

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Stage identifies a pipeline stage entry point inside a program.
type Stage int

const (
	// StageCompute marks a @compute entry point.
	StageCompute Stage = iota

	// StageVertex marks a @vertex entry point.
	StageVertex

	// StageFragment marks a @fragment entry point.
	StageFragment
)

// String returns the WGSL attribute name of the stage.
func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
}

// ErrInvalidProgram is returned when WGSL source declares no usable entry point.
var ErrInvalidProgram = errors.New("invalid shader program")

// Binding is a resource declaration found in a program.
type Binding struct {
	Group   int
	Binding int
	// Space is the address space for buffer bindings ("uniform", "storage, read"), empty for handles.
	Space string
	Name  string
	Type  string
}

// Program is a named WGSL module together with the metadata the backends need to build pipelines from it.
type Program struct {
	Name          string
	Source        string
	EntryPoints   map[Stage]string
	WorkgroupSize [3]uint32
	Bindings      []Binding
}

// EntryPoint returns the function name for a stage.
//
// Parameters:
//   - s: the stage to look up
//
// Returns:
//   - string: the entry point name
//   - bool: false if the program has no entry point for s
func (p Program) EntryPoint(s Stage) (string, bool) {
	name, ok := p.EntryPoints[s]
	return name, ok
}

// HasBinding reports whether the program declares a resource at group/binding.
//
// Parameters:
//   - group: the bind group index
//   - binding: the binding index within the group
//
// Returns:
//   - bool: true if a declaration exists
func (p Program) HasBinding(group, binding int) bool {
	for _, b := range p.Bindings {
		if b.Group == group && b.Binding == binding {
			return true
		}
	}
	return false
}

var (
	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// blockCommentRegex matches non-nested /* ... */ comments
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// parseProgram extracts entry points, workgroup size and bindings from WGSL source.
//
// Parameters:
//   - name: the program name
//   - source: raw WGSL source
//
// Returns:
//   - Program: the parsed program
//   - error: ErrInvalidProgram if no entry point is declared, or a compute entry lacks a workgroup size
func parseProgram(name, source string) (Program, error) {
	cleaned := stripComments(source)
	p := Program{
		Name:        name,
		Source:      source,
		EntryPoints: make(map[Stage]string),
	}

	for stage, re := range map[Stage]*regexp.Regexp{
		StageCompute:  computeEntryRegex,
		StageVertex:   vertexEntryRegex,
		StageFragment: fragmentEntryRegex,
	} {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			p.EntryPoints[stage] = m[1]
		}
	}
	if len(p.EntryPoints) == 0 {
		return Program{}, fmt.Errorf("%w %s: no entry point", ErrInvalidProgram, name)
	}

	if _, ok := p.EntryPoints[StageCompute]; ok {
		m := workgroupSizeRegex.FindStringSubmatch(cleaned)
		if m == nil {
			return Program{}, fmt.Errorf("%w %s: compute entry without @workgroup_size", ErrInvalidProgram, name)
		}
		p.WorkgroupSize = [3]uint32{1, 1, 1}
		for i := 0; i < 3; i++ {
			if m[i+1] == "" {
				continue
			}
			v, err := strconv.ParseUint(m[i+1], 10, 32)
			if err != nil || v == 0 {
				return Program{}, fmt.Errorf("%w %s: bad workgroup size %q", ErrInvalidProgram, name, m[i+1])
			}
			p.WorkgroupSize[i] = uint32(v)
		}
	}

	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		p.Bindings = append(p.Bindings, Binding{
			Group:   group,
			Binding: binding,
			Space:   strings.TrimSpace(m[3]),
			Name:    m[4],
			Type:    strings.TrimSpace(m[5]),
		})
	}
	sort.Slice(p.Bindings, func(i, j int) bool {
		if p.Bindings[i].Group != p.Bindings[j].Group {
			return p.Bindings[i].Group < p.Bindings[j].Group
		}
		return p.Bindings[i].Binding < p.Bindings[j].Binding
	})
	return p, nil
}

// stripComments removes block and line comments from WGSL source.
func stripComments(source string) string {
	source = blockCommentRegex.ReplaceAllString(source, "")
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

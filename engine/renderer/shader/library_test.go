package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kernelPrograms = []string{
	BypassUpscaler, EPXUpscaler, XBRUpscaler, ScanlineUpscaler,
	BypassFilter, GaussFilter, CRTFilter, ScanlineFilter,
}

func TestEmbeddedProgramsParse(t *testing.T) {
	lib, err := NewLibrary()
	require.NoError(t, err)

	for _, name := range kernelPrograms {
		p, err := lib.Program(name)
		require.NoError(t, err, name)

		entry, ok := p.EntryPoint(StageCompute)
		assert.True(t, ok, name)
		assert.Equal(t, "main", entry, name)
		assert.Equal(t, [3]uint32{16, 16, 1}, p.WorkgroupSize, name)
		assert.True(t, p.HasBinding(0, 0), name)
		assert.True(t, p.HasBinding(0, 1), name)
	}

	assert.Len(t, lib.Names(), len(kernelPrograms)+1)
}

func TestCompositeEntryPoints(t *testing.T) {
	lib, err := NewLibrary()
	require.NoError(t, err)

	p, err := lib.Program(Composite)
	require.NoError(t, err)

	vs, ok := p.EntryPoint(StageVertex)
	require.True(t, ok)
	assert.Equal(t, "vs_main", vs)
	fs, ok := p.EntryPoint(StageFragment)
	require.True(t, ok)
	assert.Equal(t, "fs_main", fs)
	_, ok = p.EntryPoint(StageCompute)
	assert.False(t, ok)

	require.Len(t, p.Bindings, 5)
	assert.Equal(t, "uniform", p.Bindings[0].Space)
	assert.Equal(t, "transform", p.Bindings[0].Name)
	assert.Equal(t, "sampler", p.Bindings[4].Type)
}

func TestOptionalBindings(t *testing.T) {
	lib, err := NewLibrary()
	require.NoError(t, err)

	p, err := lib.Program(ScanlineFilter)
	require.NoError(t, err)
	assert.True(t, p.HasBinding(0, 3))
	assert.True(t, p.HasBinding(0, 4))
	assert.True(t, p.HasBinding(0, 5))

	p, err = lib.Program(BypassUpscaler)
	require.NoError(t, err)
	assert.False(t, p.HasBinding(0, 3))
	assert.False(t, p.HasBinding(0, 4))
}

func TestUnknownProgram(t *testing.T) {
	lib, err := NewLibrary()
	require.NoError(t, err)

	_, err = lib.Program("lanczos")
	assert.ErrorIs(t, err, ErrUnknownProgram)
}

func TestWithProgramReplacesAndRejects(t *testing.T) {
	lib, err := NewLibrary(
		WithProgram(CRTFilter, "fn nothing() {}"),
		WithProgram("invert", `
@compute @workgroup_size(8)
fn invert(@builtin(global_invocation_id) gid: vec3<u32>) {}
`),
	)
	require.NoError(t, err)

	_, err = lib.Program(CRTFilter)
	assert.ErrorIs(t, err, ErrInvalidProgram)
	assert.Contains(t, lib.Names(), CRTFilter)

	p, err := lib.Program("invert")
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{8, 1, 1}, p.WorkgroupSize)

	_, err = lib.Program(BypassFilter)
	assert.NoError(t, err)
}

func TestComputeWithoutWorkgroupSizeRejected(t *testing.T) {
	_, err := parseProgram("broken", "@compute fn main() {}")
	assert.ErrorIs(t, err, ErrInvalidProgram)
}

func TestCommentsAreIgnored(t *testing.T) {
	src := `
// @vertex fn fake() {}
/* @fragment
fn other() {} */
@compute @workgroup_size(4, 4) fn real() {}
`
	p, err := parseProgram("c", src)
	require.NoError(t, err)
	assert.Len(t, p.EntryPoints, 1)
	assert.Equal(t, "real", p.EntryPoints[StageCompute])
	assert.Equal(t, [3]uint32{4, 4, 1}, p.WorkgroupSize)
}

func TestSourceDirOverride(t *testing.T) {
	dir := t.TempDir()
	src := "@compute @workgroup_size(32, 2, 1)\nfn main() {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, BypassUpscaler+".wgsl"), []byte(src), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	lib, err := NewLibrary(WithSourceDir(dir))
	require.NoError(t, err)

	p, err := lib.Program(BypassUpscaler)
	require.NoError(t, err)
	assert.Equal(t, src, p.Source)
	assert.Equal(t, [3]uint32{32, 2, 1}, p.WorkgroupSize)
	assert.Len(t, lib.Names(), len(kernelPrograms)+1)
}

func TestMissingSourceDir(t *testing.T) {
	_, err := NewLibrary(WithSourceDir(filepath.Join(t.TempDir(), "nope")))
	assert.Error(t, err)
}

package engine

import (
	"fmt"
	"math/rand"
	"path/filepath"
)

// PathGenerator maps a file index in [0, maxFiles) to a leaf pathname under
// a fanout tree of the given depth and per-directory fanout, per the
// filename-generator contract in the spec (§4.2). It is a pure function of
// its constructor arguments and the index: equal inputs always produce
// equal outputs.
type PathGenerator struct {
	maxFiles        int
	levels          int
	dirsPerLevel    int
	maxFilesPerDir  int
}

// NewPathGenerator builds a generator for the given tree shape. maxFiles=1,
// levels=0 is explicitly supported (spec boundary case): every file lands
// directly in the top directory.
func NewPathGenerator(maxFiles, levels, dirsPerLevel int) *PathGenerator {
	filesPerDir := maxFiles
	if levels > 0 {
		dirCount := 1
		for i := 0; i < levels; i++ {
			dirCount *= dirsPerLevel
		}
		if dirCount > 0 {
			filesPerDir = (maxFiles + dirCount - 1) / dirCount
			if filesPerDir < 1 {
				filesPerDir = 1
			}
		}
	}
	return &PathGenerator{
		maxFiles:       maxFiles,
		levels:         levels,
		dirsPerLevel:   dirsPerLevel,
		maxFilesPerDir: filesPerDir,
	}
}

// MaxFiles returns the configured file-index space size.
func (g *PathGenerator) MaxFiles() int { return g.maxFiles }

// Path renders the leaf pathname for file index i, relative to the top
// directory (FSOp joins it onto the configured top). The directory index
// consumes the high-order bits of i (i / maxFilesPerDir); the filename
// uses the full index, so two different directory placements never
// collide on the file name component.
func (g *PathGenerator) Path(i int) string {
	if g.levels == 0 {
		return fmt.Sprintf("f%09d", i)
	}

	dirIndex := i / g.maxFilesPerDir
	parts := make([]string, g.levels)
	for d := g.levels - 1; d >= 0; d-- {
		parts[d] = fmt.Sprintf("d%04d", 1+(dirIndex%g.dirsPerLevel))
		dirIndex /= g.dirsPerLevel
	}
	parts = append(parts, fmt.Sprintf("f%09d", i))
	return filepath.Join(parts...)
}

// DirOf returns the directory portion of Path(i), used by readdir and by
// create's on-demand parent directory construction.
func (g *PathGenerator) DirOf(i int) string {
	return filepath.Dir(g.Path(i))
}

// UniformIndex draws a file index uniformly from [0, maxFiles).
func (g *PathGenerator) UniformIndex(rng *rand.Rand) int {
	return rng.Intn(g.maxFiles)
}

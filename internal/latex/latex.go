// Package latex declares the boundary to the external LaTeX compiler
// process and owns the pure parts of compilation policy.
package latex

import (
	"context"
	"strings"
)

// Engines the backend knows how to ask for.
const (
	EnginePDFLaTeX = "pdflatex"
	EngineXeLaTeX  = "xelatex"
	EngineLuaLaTeX = "lualatex"
)

// File is one project file handed to the compiler. Binary assets carry
// base64 content.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Result of one compile run.
type Result struct {
	Success bool   `json:"success"`
	PDF     []byte `json:"-"`
	Log     string `json:"error,omitempty"`
}

// Compiler shells out to a LaTeX toolchain. Implemented outside this
// module; the backend only selects the engine and forwards files.
type Compiler interface {
	Compile(ctx context.Context, files []File, mainFile string) (Result, error)
}

// DetectEngine picks the engine a project needs by scanning its text
// sources. fontspec, unicode-math, and polyglossia require a Unicode
// engine; luacode requires LuaTeX specifically.
func DetectEngine(files []File) string {
	engine := EnginePDFLaTeX
	for _, f := range files {
		if !strings.HasSuffix(f.Name, ".tex") && !strings.HasSuffix(f.Name, ".sty") && !strings.HasSuffix(f.Name, ".cls") {
			continue
		}
		if strings.Contains(f.Content, "luacode") || strings.Contains(f.Content, "\\directlua") {
			return EngineLuaLaTeX
		}
		if strings.Contains(f.Content, "fontspec") || strings.Contains(f.Content, "unicode-math") || strings.Contains(f.Content, "polyglossia") {
			engine = EngineXeLaTeX
		}
	}
	return engine
}

package source

import "strings"

// File holds an expression text plus the name it is reported under in
// diagnostics (e.g. "<eval>", "<repl>", a watch expression's origin).
type File struct {
	Name    string
	Content string
	lines   []string
}

func New(name, content string) *File {
	return &File{Name: name, Content: content}
}

// NewEval wraps an ad-hoc expression string.
func NewEval(content string) *File {
	return &File{Name: "<eval>", Content: content}
}

// NewRepl wraps a line of REPL input.
func NewRepl(content string) *File {
	return &File{Name: "<repl>", Content: content}
}

// Lines returns the source split into lines (cached).
func (f *File) Lines() []string {
	if f.lines == nil {
		f.lines = strings.Split(f.Content, "\n")
	}
	return f.lines
}

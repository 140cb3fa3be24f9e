package errors

import "github.com/rkurbatov/myangular/pkg/source"

// Position is a location inside an expression. Line and column are
// 1-based for human-readable reports, the offsets are 0-based byte
// positions into the expression text.
type Position struct {
	Line     int
	Column   int
	StartPos int
	EndPos   int
	Source   *source.File
}

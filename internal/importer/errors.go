package importer

import (
	"fmt"
	"strings"
)

// ParseError reports a document that is not valid YAML or does not have the
// expected shape.
type ParseError struct {
	Source string
	Errors []string
	Err    error
}

func (e *ParseError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("invalid question document %s: %s", e.Source, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("invalid question document %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoaderError reports a well-formed document that contains no questions.
type LoaderError struct {
	Source string
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("no questions could be read from %s", e.Source)
}

type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file %s was not found", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

// SourceError reports an I/O failure while reading a local or uploaded file.
type SourceError struct {
	Source string
	Module string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to read %s for module %q: %v", e.Source, e.Module, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

package importer

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/exam-simulator/backend/internal/models"
)

// LoadFile reads and parses the question document stored at path.
func LoadFile(path, module string) ([]models.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("[importer] file %s was not found", path)
			return nil, &FileNotFoundError{Path: path, Err: err}
		}
		return nil, &SourceError{Source: path, Module: module, Err: err}
	}
	defer f.Close()

	return parseSource(f, path, module)
}

// LoadUpload parses an uploaded question document. name is only used in
// log lines and error messages.
func LoadUpload(r io.Reader, name, module string) ([]models.Question, error) {
	return parseSource(r, name, module)
}

func parseSource(r io.Reader, source, module string) ([]models.Question, error) {
	er := &errReader{r: r}
	questions, err := Parse(er, source, module)
	if er.err != nil {
		log.Printf("[importer] error reading %s: %v", source, er.err)
		return nil, &SourceError{Source: source, Module: module, Err: er.err}
	}
	return questions, err
}

// errReader remembers the first non-EOF read error so that I/O failures are
// not reported as malformed documents.
type errReader struct {
	r   io.Reader
	err error
}

func (e *errReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && e.err == nil {
		e.err = err
	}
	return n, err
}

package importer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/exam-simulator/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk import format:
//
//	questions:
//	  - description: "What is 2 + 2?"
//	    answers:
//	      - option: "4"
//	        correct: true
type Document struct {
	Questions []DocumentQuestion `yaml:"questions"`
}

type DocumentQuestion struct {
	Description string           `yaml:"description"`
	Text        string           `yaml:"text,omitempty"`
	Answers     []DocumentAnswer `yaml:"answers"`
}

type DocumentAnswer struct {
	Option  string `yaml:"option"`
	Correct bool   `yaml:"correct"`
}

// Parse decodes a question document and stamps every question with module.
// Duplicate keys inside a mapping are accepted and the last value wins.
func Parse(r io.Reader, source, module string) ([]models.Question, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			log.Printf("[importer] %s is empty", source)
			return nil, &LoaderError{Source: source}
		}
		return nil, &ParseError{Source: source, Err: err}
	}

	dropDuplicateKeys(&root)

	var doc Document
	if err := root.Decode(&doc); err != nil {
		log.Printf("[importer] %s has the wrong format: %v", source, err)
		return nil, &ParseError{Source: source, Err: err}
	}

	if len(doc.Questions) == 0 {
		log.Printf("[importer] no questions have been read from %s", source)
		return nil, &LoaderError{Source: source}
	}

	if errs := validateDocument(&doc); len(errs) > 0 {
		return nil, &ParseError{Source: source, Errors: errs}
	}

	questions := make([]models.Question, 0, len(doc.Questions))
	for _, dq := range doc.Questions {
		q := models.Question{
			Description: dq.description(),
			ModuleName:  module,
			Answers:     make([]models.Answer, 0, len(dq.Answers)),
		}
		for _, da := range dq.Answers {
			q.Answers = append(q.Answers, models.Answer{Option: da.Option, Correct: da.Correct})
		}
		questions = append(questions, q)
	}

	if flagged := reportStructure(source, questions); flagged > 0 {
		log.Printf("[importer] %d of %d questions in %s failed structural checks", flagged, len(questions), source)
	}

	log.Printf("[importer] %d questions have been read from %s", len(questions), source)
	return questions, nil
}

func (q DocumentQuestion) description() string {
	if strings.TrimSpace(q.Description) != "" {
		return q.Description
	}
	return q.Text
}

func validateDocument(doc *Document) []string {
	var errs []string
	for i, q := range doc.Questions {
		if strings.TrimSpace(q.description()) == "" {
			errs = append(errs, fmt.Sprintf("question %d: missing description", i+1))
		}
		for j, a := range q.Answers {
			if strings.TrimSpace(a.Option) == "" {
				errs = append(errs, fmt.Sprintf("question %d answer %d: missing option", i+1, j+1))
			}
		}
	}
	return errs
}

// dropDuplicateKeys removes every earlier occurrence of a repeated scalar key
// in each mapping of the tree, so the decoder sees only the last value.
func dropDuplicateKeys(n *yaml.Node) {
	for _, c := range n.Content {
		dropDuplicateKeys(c)
	}
	if n.Kind != yaml.MappingNode {
		return
	}

	last := make(map[string]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; k.Kind == yaml.ScalarNode {
			last[k.Value] = i
		}
	}
	if len(last) == len(n.Content)/2 {
		return
	}

	kept := make([]*yaml.Node, 0, len(n.Content))
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.Kind == yaml.ScalarNode && last[k.Value] != i {
			continue
		}
		kept = append(kept, k, n.Content[i+1])
	}
	n.Content = kept
}

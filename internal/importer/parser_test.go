package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/exam-simulator/backend/internal/models"
)

const validDocument = `
questions:
  - description: "What is the capital of Canada?"
    answers:
      - option: "Toronto"
        correct: false
      - option: "Ottawa"
        correct: true
      - option: "Vancouver"
        correct: false
  - description: "What is 2 + 2?"
    answers:
      - option: "3"
        correct: false
      - option: "4"
        correct: true
`

func TestParse_ValidDocument(t *testing.T) {
	questions, err := Parse(strings.NewReader(validDocument), "test.yaml", "Geography")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	first := questions[0]
	if first.Description != "What is the capital of Canada?" {
		t.Errorf("unexpected description %q", first.Description)
	}
	if len(first.Answers) != 3 {
		t.Errorf("expected 3 answers, got %d", len(first.Answers))
	}
	if !first.Answers[1].Correct || first.Answers[1].Option != "Ottawa" {
		t.Errorf("expected Ottawa to be the correct answer, got %+v", first.Answers[1])
	}

	for i, q := range questions {
		if q.ModuleName != "Geography" {
			t.Errorf("question %d: module = %q, want Geography", i+1, q.ModuleName)
		}
		if q.ID != 0 {
			t.Errorf("question %d: parsed question should not carry an id", i+1)
		}
	}
}

func TestParse_TextAlias(t *testing.T) {
	input := `
questions:
  - text: "Which keyword declares a constant?"
    answers:
      - option: "const"
        correct: true
`
	questions, err := Parse(strings.NewReader(input), "alias.yaml", "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if questions[0].Description != "Which keyword declares a constant?" {
		t.Errorf("text alias not used, got %q", questions[0].Description)
	}
	if questions[0].ModuleName != "" {
		t.Errorf("expected empty module, got %q", questions[0].ModuleName)
	}
}

func TestParse_DuplicateKeysLastValueWins(t *testing.T) {
	input := `
questions:
  - description: "first wording"
    description: "second wording"
    answers:
      - option: "yes"
        correct: false
        correct: true
`
	questions, err := Parse(strings.NewReader(input), "dup.yaml", "M1")
	if err != nil {
		t.Fatalf("duplicate keys should be tolerated, got: %v", err)
	}
	if questions[0].Description != "second wording" {
		t.Errorf("expected last description to win, got %q", questions[0].Description)
	}
	if !questions[0].Answers[0].Correct {
		t.Error("expected last correct value to win")
	}
}

func TestParse_EmptyDocuments(t *testing.T) {
	inputs := map[string]string{
		"empty stream":   "",
		"empty list":     "questions: []\n",
		"missing key":    "other: 1\n",
		"null document":  "~\n",
		"null questions": "questions:\n",
	}

	for name, input := range inputs {
		_, err := Parse(strings.NewReader(input), "empty.yaml", "M1")
		var loaderErr *LoaderError
		if !errors.As(err, &loaderErr) {
			t.Errorf("%s: expected LoaderError, got %v", name, err)
		}
	}
}

func TestParse_MalformedDocuments(t *testing.T) {
	inputs := map[string]string{
		"bad syntax":         "questions: [\n  - description: \"unclosed\"\n",
		"scalar root":        "just a string\n",
		"questions not list": "questions: 42\n",
		"bad bool":           "questions:\n  - description: q\n    answers:\n      - option: a\n        correct: [1]\n",
		"blank description":  "questions:\n  - description: \"  \"\n    answers: []\n",
		"blank option":       "questions:\n  - description: q\n    answers:\n      - option: \"\"\n",
	}

	for name, input := range inputs {
		_, err := Parse(strings.NewReader(input), "bad.yaml", "M1")
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("%s: expected ParseError, got %v", name, err)
		}
		var loaderErr *LoaderError
		if errors.As(err, &loaderErr) {
			t.Errorf("%s: malformed document must not be a LoaderError", name)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "module_1.yaml")
	if err := os.WriteFile(path, []byte(validDocument), 0o600); err != nil {
		t.Fatal(err)
	}

	questions, err := LoadFile(path, "Module 1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(questions))
	}

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"), "Module 1")
	var notFound *FileNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected FileNotFoundError, got %v", err)
	}
}

func TestLoadUpload_ReadFailure(t *testing.T) {
	r := iotest.ErrReader(errors.New("connection reset"))

	_, err := LoadUpload(r, "upload.yaml", "M1")
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if srcErr.Module != "M1" {
		t.Errorf("expected module in error, got %q", srcErr.Module)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	original := []models.Question{
		{ID: 1000, Description: "Pick the prime", ModuleName: "Math", Answers: []models.Answer{
			{ID: 1000, Option: "4", Correct: false},
			{ID: 1001, Option: "7", Correct: true},
		}},
		{ID: 1001, Description: "Empty answers", ModuleName: "Math", Answers: nil},
	}

	data, err := Export(original)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.HasPrefix(string(data), "questions:") {
		t.Errorf("expected document to start with questions key, got:\n%s", data)
	}

	parsed, err := Parse(strings.NewReader(string(data)), "export.yaml", "Math")
	if err != nil {
		t.Fatalf("exported document should parse, got: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(parsed))
	}
	if parsed[0].Description != "Pick the prime" || len(parsed[0].Answers) != 2 || !parsed[0].Answers[1].Correct {
		t.Errorf("unexpected round trip result: %+v", parsed[0])
	}
	if len(parsed[1].Answers) != 0 {
		t.Errorf("expected no answers, got %+v", parsed[1].Answers)
	}
}

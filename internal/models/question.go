package models

// ── Core Structs ───────────────────────────────────────

type Question struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	ModuleName  string   `json:"module_name,omitempty"`
	Answers     []Answer `json:"answers"`
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id,omitempty"`
	Option     string `json:"option"`
	Correct    bool   `json:"correct"`
}

// ── Request Types ─────────────────────────────────────

// StructureRequest asks for Count random questions from Module.
type StructureRequest struct {
	Module string `json:"module"`
	Count  int    `json:"count"`
}

type DeleteQuestionsRequest struct {
	IDs []int64 `json:"ids"`
}

// ── Response Types ────────────────────────────────────

type ModuleSummary struct {
	Module        string `json:"module"`
	QuestionCount int    `json:"question_count"`
}

type ImportResult struct {
	Module         string `json:"module,omitempty"`
	QuestionsSaved int    `json:"questions_saved"`
	AnswersSaved   int    `json:"answers_saved"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

package questions

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/exam-simulator/backend/internal/importer"
	"github.com/exam-simulator/backend/internal/models"
	"github.com/gorilla/mux"
)

type Handler struct {
	service        *Service
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the question bank API on r. The upload route must be
// registered before the local import routes, which would otherwise capture
// "from-file" as a file name.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/questions/import/from-file/{module}", h.ImportUpload).Methods("POST")
	r.HandleFunc("/questions/import/{fileName}", h.ImportLocalFile).Methods("POST")
	r.HandleFunc("/questions/import/{fileName}/{module}", h.ImportLocalFile).Methods("POST")

	r.HandleFunc("/questions/random", h.RandomQuestions).Methods("GET")
	r.HandleFunc("/questions/exam-structure", h.QuestionsByStructure).Methods("POST")
	r.HandleFunc("/questions/export", h.ExportQuestions).Methods("GET")

	r.HandleFunc("/questions", h.ListQuestions).Methods("GET")
	r.HandleFunc("/questions", h.SaveQuestions).Methods("POST")
	r.HandleFunc("/questions", h.UpdateQuestions).Methods("PUT")
	r.HandleFunc("/questions", h.PatchQuestions).Methods("PATCH")
	r.HandleFunc("/questions", h.DeleteQuestions).Methods("DELETE")

	r.HandleFunc("/questions/{id:[0-9]+}", h.GetQuestion).Methods("GET")
	r.HandleFunc("/questions/{id:[0-9]+}", h.UpdateQuestion).Methods("PUT")
	r.HandleFunc("/questions/{id:[0-9]+}", h.PatchQuestion).Methods("PATCH")
	r.HandleFunc("/questions/{id:[0-9]+}", h.DeleteQuestion).Methods("DELETE")

	r.HandleFunc("/questions/{id:[0-9]+}/answers", h.GetAnswers).Methods("GET")
	r.HandleFunc("/questions/{id:[0-9]+}/answers", h.SaveAnswers).Methods("POST")
	r.HandleFunc("/questions/{id:[0-9]+}/answers", h.ReplaceAnswers).Methods("PUT")
	r.HandleFunc("/questions/{id:[0-9]+}/answers", h.DeleteAnswers).Methods("DELETE")

	r.HandleFunc("/answers", h.UpdateAnswers).Methods("PUT")
	r.HandleFunc("/answers/{id:[0-9]+}", h.UpdateAnswer).Methods("PUT")

	r.HandleFunc("/modules", h.ListModules).Methods("GET")
}

// ── Import / Export ─────────────────────────────────────

func (h *Handler) ImportUpload(w http.ResponseWriter, r *http.Request) {
	module := mux.Vars(r)["module"]

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "Uploaded file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "file is required"})
		return
	}
	defer file.Close()

	result, err := h.service.ImportUpload(r.Context(), file, header.Filename, module)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) ImportLocalFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := h.service.ImportLocalFile(r.Context(), vars["fileName"], vars["module"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) ExportQuestions(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportQuestions(r.Context(), r.URL.Query().Get("module"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ── Retrieval ───────────────────────────────────────────

// RandomQuestions serves the whole bank shuffled, or up to count questions of
// one module when the module query parameter is given.
func (h *Handler) RandomQuestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		questions []models.Question
		err       error
	)
	if query.Has("module") {
		questions, err = h.service.RandomQuestionsByModule(r.Context(), query.Get("module"), intQueryParam(query, "count", 0))
	} else {
		questions, err = h.service.RandomQuestions(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) QuestionsByStructure(w http.ResponseWriter, r *http.Request) {
	var structure []models.StructureRequest
	if err := json.NewDecoder(r.Body).Decode(&structure); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	questions, err := h.service.QuestionsByStructure(r.Context(), structure)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.service.ListModules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

// ── Questions ───────────────────────────────────────────

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ListQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	q, err := h.service.GetQuestion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) SaveQuestions(w http.ResponseWriter, r *http.Request) {
	var questions []models.Question
	if !decodeBody(w, r, &questions) {
		return
	}

	saved, err := h.service.SaveQuestions(r.Context(), questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) UpdateQuestions(w http.ResponseWriter, r *http.Request) {
	var questions []models.Question
	if !decodeBody(w, r, &questions) {
		return
	}

	updated, err := h.service.UpdateQuestions(r.Context(), questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) PatchQuestions(w http.ResponseWriter, r *http.Request) {
	var patches []models.Question
	if !decodeBody(w, r, &patches) {
		return
	}

	patched, err := h.service.PatchQuestions(r.Context(), patches)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patched)
}

func (h *Handler) DeleteQuestions(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteQuestionsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.service.DeleteQuestions(r.Context(), req.IDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var q models.Question
	if !decodeBody(w, r, &q) {
		return
	}

	updated, err := h.service.UpdateQuestion(r.Context(), id, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) PatchQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch models.Question
	if !decodeBody(w, r, &patch) {
		return
	}

	patched, err := h.service.PatchQuestion(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patched)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Answers ─────────────────────────────────────────────

func (h *Handler) GetAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	answers, err := h.service.AnswersForQuestion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *Handler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var answers []models.Answer
	if !decodeBody(w, r, &answers) {
		return
	}

	saved, err := h.service.SaveAnswers(r.Context(), id, answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) ReplaceAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var answers []models.Answer
	if !decodeBody(w, r, &answers) {
		return
	}

	q, err := h.service.ReplaceAnswers(r.Context(), id, answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) DeleteAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAnswers(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var a models.Answer
	if !decodeBody(w, r, &a) {
		return
	}

	updated, err := h.service.UpdateAnswer(r.Context(), id, a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) UpdateAnswers(w http.ResponseWriter, r *http.Request) {
	var answers []models.Answer
	if !decodeBody(w, r, &answers) {
		return
	}

	updated, err := h.service.UpdateAnswers(r.Context(), answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ── Helpers ─────────────────────────────────────────────

// writeError maps service and importer errors to a status code and writes
// them as an ErrorResponse.
func writeError(w http.ResponseWriter, err error) {
	var (
		parseErr    *importer.ParseError
		loaderErr   *importer.LoaderError
		notFoundErr *importer.FileNotFoundError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation), errors.As(err, &parseErr), errors.As(err, &loaderErr):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[handler] internal error: %v", err)
		if !errors.Is(err, ErrInternalInvariant) {
			var srcErr *importer.SourceError
			if !errors.As(err, &srcErr) {
				msg = "Internal server error"
			}
		}
	}
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

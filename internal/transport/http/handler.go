package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// Handler exposes the quiz platform as a JSON API.
type Handler struct {
	authoring *app.AuthoringService
	attempts  *app.AttemptService
	board     *app.LeaderboardService
	admin     *app.AdminService
}

func NewHandler(authoring *app.AuthoringService, attempts *app.AttemptService, board *app.LeaderboardService, admin *app.AdminService) *Handler {
	return &Handler{authoring: authoring, attempts: attempts, board: board, admin: admin}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /users", h.createUser)
	mux.HandleFunc("GET /users", h.listUsers)
	mux.HandleFunc("GET /users/{id}/attempts", h.listUserAttempts)
	mux.HandleFunc("DELETE /users/{id}", h.deleteUser)

	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("GET /quizzes/{id}", h.getQuiz)
	mux.HandleFunc("PATCH /quizzes/{id}", h.updateQuiz)
	mux.HandleFunc("DELETE /quizzes/{id}", h.deleteQuiz)

	mux.HandleFunc("POST /attempts", h.submitAttempt)
	mux.HandleFunc("GET /attempts/{id}", h.getAttempt)

	mux.HandleFunc("GET /leaderboard", h.leaderboard)
	mux.HandleFunc("GET /leaderboard/rank", h.userRank)
	mux.HandleFunc("GET /activity", h.recentActivity)
	mux.HandleFunc("GET /admin/overview", h.overview)
}

type createUserRequest struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email and name are required")
		return
	}
	user, err := h.admin.CreateUser(r.Context(), app.CreateUserParams{Email: req.Email, Name: req.Name, Role: req.Role})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) listUserAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.attempts.ListAttemptsByUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createQuizRequest struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Questions        []domain.Question `json:"questions"`
	TimeLimitMinutes int               `json:"timeLimitMinutes"`
	QuestionCount    int               `json:"questionCount"`
	CreatedBy        string            `json:"createdBy"`
	IsActive         *bool             `json:"isActive"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	quiz, err := h.authoring.CreateQuiz(r.Context(), app.CreateQuizParams{
		Title:            req.Title,
		Description:      req.Description,
		Questions:        req.Questions,
		TimeLimitMinutes: req.TimeLimitMinutes,
		QuestionCount:    req.QuestionCount,
		CreatedBy:        req.CreatedBy,
		IsActive:         req.IsActive,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	quizzes, err := h.authoring.ListQuizzes(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.authoring.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type patchQuizRequest struct {
	Title            *string            `json:"title"`
	Description      *string            `json:"description"`
	Questions        *[]domain.Question `json:"questions"`
	TimeLimitMinutes *int               `json:"timeLimitMinutes"`
	QuestionCount    *int               `json:"questionCount"`
	IsActive         *bool              `json:"isActive"`
	Version          *int64             `json:"version"`
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var req patchQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quiz, err := h.authoring.UpdateQuiz(r.Context(), r.PathValue("id"), app.QuizPatch{
		Title:            req.Title,
		Description:      req.Description,
		Questions:        req.Questions,
		TimeLimitMinutes: req.TimeLimitMinutes,
		QuestionCount:    req.QuestionCount,
		IsActive:         req.IsActive,
		Version:          req.Version,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.authoring.DeleteQuiz(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitAttemptRequest struct {
	UserID           string `json:"userId"`
	QuizID           string `json:"quizId"`
	Answers          []int  `json:"answers"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "userId and quizId are required")
		return
	}
	attempt, err := h.attempts.SubmitAttempt(r.Context(), app.SubmitAttemptParams{
		UserID:           req.UserID,
		QuizID:           req.QuizID,
		Answers:          req.Answers,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.attempts.GetAttempt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.board.Leaderboard(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) userRank(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	rank, err := h.board.UserRank(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rank": rank})
}

func (h *Handler) recentActivity(w http.ResponseWriter, r *http.Request) {
	items, err := h.board.RecentActivity(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.admin.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

package domain

import "time"

// Role distinguishes admins (authoring, stats) from students (taking quizzes).
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// UnsetAnswer marks a question whose correct option has not been assigned yet.
const UnsetAnswer = -1

// DefaultQuestionCount is the subset size sampled per attempt when the author
// does not specify one.
const DefaultQuestionCount = 40

// User is a registered account. Users are created explicitly and never updated;
// the only mutation path is an admin delete, which cascades to their attempts.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int64     `json:"-"`
}

// Question is a single multiple-choice prompt. CorrectAnswer indexes Options,
// or is UnsetAnswer while the author has not picked one.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Incomplete reports whether the question still lacks a correct option.
func (q Question) Incomplete() bool {
	return q.CorrectAnswer == UnsetAnswer
}

// Quiz is an ordered set of questions with a time limit.
//
// Invariant: IsActive implies !HasIncompleteQuestions. The authoring service
// coerces any activation of an incomplete quiz back to draft+inactive.
type Quiz struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	Questions              []Question `json:"questions"`
	TimeLimitMinutes       int        `json:"timeLimitMinutes"`
	QuestionCount          int        `json:"questionCount"`
	CreatedBy              string     `json:"createdBy"`
	CreatedAt              time.Time  `json:"createdAt"`
	IsActive               bool       `json:"isActive"`
	IsDraft                bool       `json:"isDraft"`
	HasIncompleteQuestions bool       `json:"hasIncompleteQuestions"`
	Version                int64      `json:"version,omitempty"`
}

// HasIncomplete scans the question list for an unset correct answer.
func (q Quiz) HasIncomplete() bool {
	for _, question := range q.Questions {
		if question.Incomplete() {
			return true
		}
	}
	return false
}

// Attempt is one completed submission of answers to a quiz. Attempts are
// written once and never updated; Answers parallels the quiz's question order
// at submission time.
type Attempt struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	QuizID           string    `json:"quizId"`
	Answers          []int     `json:"answers"`
	Score            float64   `json:"score"`
	CorrectAnswers   int       `json:"correctAnswers"`
	TotalQuestions   int       `json:"totalQuestions"`
	CompletedAt      time.Time `json:"completedAt"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	Version          int64     `json:"-"`
}

// LeaderboardEntry is a derived, non-persisted per-user summary of all their
// attempts. Rank is positional within the truncated, sorted board.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           string    `json:"userId"`
	DisplayName      string    `json:"displayName"`
	TotalQuizzes     int       `json:"totalQuizzes"`
	TotalScore       float64   `json:"totalScore"`
	AverageScore     float64   `json:"averageScore"`
	BestScore        float64   `json:"bestScore"`
	TotalTimeSeconds int       `json:"totalTimeSeconds"`
	LastActivity     time.Time `json:"lastActivity"`
}

// Leaderboard is the ranked board handed to clients and websocket subscribers.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ActivityItem is one recent attempt joined to its user and quiz for display.
type ActivityItem struct {
	AttemptID   string    `json:"attemptId"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// AttemptResult summarizes the scoring of a single submission.
type AttemptResult struct {
	AttemptID      string  `json:"attemptId"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
}

// Overview carries the system-wide counters for the admin dashboard.
type Overview struct {
	TotalUsers     int       `json:"totalUsers"`
	TotalQuizzes   int       `json:"totalQuizzes"`
	ActiveQuizzes  int       `json:"activeQuizzes"`
	TotalAttempts  int       `json:"totalAttempts"`
	AverageScore   float64   `json:"averageScore"`
	RecentAttempts int       `json:"recentAttempts"`
	RecentUsers    int       `json:"recentUsers"`
	NewestUsers    []User    `json:"newestUsers"`
	LatestAttempts []Attempt `json:"latestAttempts"`
}

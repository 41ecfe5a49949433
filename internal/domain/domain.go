package domain

import (
	"fmt"
	"time"
)

// Unanswered marks a question with no selected option. It never equals a valid option index.
const Unanswered = -1

// Classification is the durable outcome of an exam attempt and selects the training tier.
type Classification string

const (
	ClassificationBeginner     Classification = "beginner"
	ClassificationIntermediate Classification = "intermediate"
	ClassificationAdvanced     Classification = "advanced"
)

func (c Classification) Valid() bool {
	switch c {
	case ClassificationBeginner, ClassificationIntermediate, ClassificationAdvanced:
		return true
	}
	return false
}

// Question is an exam question as held by the trusted boundary.
type Question struct {
	ID                 string   `json:"id"`
	Prompt             string   `json:"prompt"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	Explanation        string   `json:"explanation"`
}

// Public strips the answer key and explanation.
func (q Question) Public() QuestionView {
	return QuestionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: append([]string(nil), q.Options...),
	}
}

// QuestionView is the redacted question sent to clients.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// QuestionSet is the client-facing exam: redacted questions plus the session time limit, 0 for none.
type QuestionSet struct {
	Questions        []QuestionView `json:"questions"`
	TimeLimitSeconds int64          `json:"time_limit_seconds"`
}

// Submission is a finished attempt. AttemptID is minted once per session so a retried submit is
// recorded at most once. QuestionIDs pins the answers to the questions the session was started with.
type Submission struct {
	UserID           string   `json:"user_id"`
	AttemptID        string   `json:"attempt_id"`
	QuestionIDs      []string `json:"question_ids"`
	Answers          []int    `json:"answers"`
	TimeTakenSeconds int64    `json:"time_taken_seconds"`
}

type ExamResult struct {
	ResultID         string         `json:"result_id"`
	UserID           string         `json:"user_id"`
	AttemptID        string         `json:"attempt_id"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"total_questions"`
	CorrectAnswers   int            `json:"correct_answers"`
	Classification   Classification `json:"classification"`
	TimeTakenSeconds int64          `json:"time_taken_seconds"`
	SubmittedAt      time.Time      `json:"submitted_at"`
}

type Profile struct {
	UserID           string         `json:"id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Classification   Classification `json:"classification"`
	ExamScore        *int           `json:"exam_score,omitempty"`
	CompletedCourses []string       `json:"completed_courses"`
	CurrentCourse    string         `json:"current_course,omitempty"`
}

type Course struct {
	ID            string         `json:"id" bson:"_id"`
	Title         string         `json:"title" bson:"title"`
	Description   string         `json:"description" bson:"description"`
	Difficulty    Classification `json:"difficulty" bson:"difficulty"`
	ContentType   string         `json:"content_type" bson:"content_type"`
	Duration      int            `json:"duration" bson:"duration"`
	Modules       []string       `json:"modules" bson:"modules"`
	Prerequisites []string       `json:"prerequisites" bson:"prerequisites"`
}

type TrainingContent struct {
	ID          string `json:"id" bson:"_id"`
	CourseID    string `json:"course_id" bson:"course_id"`
	Title       string `json:"title" bson:"title"`
	Content     string `json:"content" bson:"content"`
	ContentType string `json:"content_type" bson:"content_type"`
	Order       int    `json:"order" bson:"order"`
	Duration    int    `json:"duration" bson:"duration"`
}

type ProgressSummary struct {
	CompletedCourses   int     `json:"completed_courses"`
	TotalCourses       int     `json:"total_courses"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("question %s: %d options, want at least 2", q.ID, len(q.Options))
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
		return fmt.Errorf("question %s: correct option %d out of range", q.ID, q.CorrectOptionIndex)
	}
	return nil
}

// Validate checks a summary received over the wire.
func (p ProgressSummary) Validate() error {
	switch {
	case p.CompletedCourses < 0 || p.TotalCourses < 0:
		return fmt.Errorf("progress: negative course count")
	case p.CompletedCourses > p.TotalCourses:
		return fmt.Errorf("progress: %d of %d courses completed", p.CompletedCourses, p.TotalCourses)
	case p.ProgressPercentage < 0 || p.ProgressPercentage > 100:
		return fmt.Errorf("progress: percentage %v out of range", p.ProgressPercentage)
	case p.TotalCourses == 0 && p.ProgressPercentage != 0:
		return fmt.Errorf("progress: non-zero percentage with empty catalog")
	}
	return nil
}

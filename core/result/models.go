package result

import (
	"time"

	"github.com/kayembi/shule/core"
)

// QuarterlyResult statuses
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Grade maps a score to a letter grade. Lower bounds are inclusive.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// QuarterlyResult is a student's score for a course in a quarter.
// The (StudentID, CourseID, QuarterID) tuple is unique.
type QuarterlyResult struct {
	ID        string  `json:"id"`
	StudentID string  `json:"student_id"`
	CourseID  string  `json:"course_id"`
	ClassID   string  `json:"class_id"`
	QuarterID string  `json:"quarter_id"`
	Score     float64 `json:"score"` // 0..100
	Grade     string  `json:"grade"`
	Status    string  `json:"status"`

	TeacherComment string `json:"teacher_comment,omitempty"`

	EnteredByID     string    `json:"entered_by_id"`
	SubmittedAt     time.Time `json:"submitted_at,omitempty"`
	ApprovedByID    string    `json:"approved_by_id,omitempty"`
	ApprovedAt      time.Time `json:"approved_at,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// IsTerminal reports whether the result can no longer be edited or
// re-reviewed.
func (r *QuarterlyResult) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// SemesterResult is the roll-up of a student's two approved quarterly scores
// for a course. The (StudentID, CourseID, SemesterID) tuple is unique.
type SemesterResult struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id"`
	CourseID   string `json:"course_id"`
	SemesterID string `json:"semester_id"`

	Quarter1Score float64 `json:"quarter_1_score"`
	Quarter2Score float64 `json:"quarter_2_score"`
	Total         float64 `json:"total"`
	Average       float64 `json:"average"`
	Grade         string  `json:"grade"`

	TeacherComment      string `json:"teacher_comment,omitempty"`
	ClassTeacherComment string `json:"class_teacher_comment,omitempty"`
	PrincipalComment    string `json:"principal_comment,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Payloads

// ScoreEntry creates or replaces a student's draft score.
type ScoreEntry struct {
	StudentID string  `json:"student_id" validate:"required,uuid"`
	CourseID  string  `json:"course_id" validate:"required,uuid"`
	ClassID   string  `json:"class_id" validate:"required,uuid"`
	QuarterID string  `json:"quarter_id" validate:"required,uuid"`
	Score     float64 `json:"score" validate:"gte=0,lte=100"`
	Comment   string  `json:"comment"`
}

func (se *ScoreEntry) Validate() error { return core.Validate.Struct(se) }

// SubmitRequest moves every draft result in its scope to submitted.
type SubmitRequest struct {
	QuarterID string `json:"quarter_id" validate:"required,uuid"`
	ClassID   string `json:"class_id" validate:"required,uuid"`
	CourseID  string `json:"course_id" validate:"required,uuid"`
}

func (sr *SubmitRequest) Validate() error { return core.Validate.Struct(sr) }

// Rejection carries the reviewer's optional reason.
type Rejection struct {
	Reason string `json:"reason"`
}

// SemesterComments updates the narrative fields of a SemesterResult.
type SemesterComments struct {
	TeacherComment      string `json:"teacher_comment"`
	ClassTeacherComment string `json:"class_teacher_comment"`
	PrincipalComment    string `json:"principal_comment"`
}

// Filters

type Filter struct {
	QuarterID   string `query:"quarter_id"`
	ClassID     string `query:"class_id"`
	CourseID    string `query:"course_id"`
	StudentID   string `query:"student_id"`
	Status      string `query:"status"`
	EnteredByID string `query:"entered_by_id"`
}

// GetFilter looks a QuarterlyResult up by ID or by its unique tuple.
type GetFilter struct {
	ID string

	StudentID string
	CourseID  string
	QuarterID string
}

// Report rows

// CoursePerformance aggregates approved results of one course within a class
// and quarter.
type CoursePerformance struct {
	CourseID string  `json:"course_id"`
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Highest  float64 `json:"highest"`
	Lowest   float64 `json:"lowest"`
}

// StudentAverage is a student's mean approved score across courses.
type StudentAverage struct {
	StudentID string  `json:"student_id"`
	Count     int     `json:"count"`
	Average   float64 `json:"average"`
	Grade     string  `json:"grade"`
}

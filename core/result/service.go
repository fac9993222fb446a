package result

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/school"
	"github.com/kayembi/shule/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("result not found")
)

type (
	Repository interface {
		// UpsertResult inserts the result or, if one exists for the same
		// (student, course, quarter) tuple, replaces its score, grade, entry
		// metadata and status atomically. CreatedAt of an existing row is kept.
		UpsertResult(ctx context.Context, res QuarterlyResult, exec ...core.DBExecutor) (QuarterlyResult, error)
		// QueryResults applies AND operation on available Filter fields.
		QueryResults(ctx context.Context, filter *Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]QuarterlyResult, error)
		GetResult(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (QuarterlyResult, error)
		// SubmitDraftResults flips every draft result matching the scope and
		// entered by the given user to submitted in one atomic batch and
		// reports the number of rows touched.
		SubmitDraftResults(ctx context.Context, quarterID, classID, courseID, enteredByID string, submittedAt time.Time, exec ...core.DBExecutor) (int, error)
		UpdateResultStatus(ctx context.Context, res QuarterlyResult, exec ...core.DBExecutor) (QuarterlyResult, error)
		// ApproveSubmittedResults approves every submitted result of the quarter
		// in one atomic batch and reports the number of rows touched.
		ApproveSubmittedResults(ctx context.Context, quarterID, approverID string, approvedAt time.Time, exec ...core.DBExecutor) (int, error)

		// UpsertSemesterResults replaces-or-inserts the given roll-ups
		// atomically, keyed on (student, course, semester).
		UpsertSemesterResults(ctx context.Context, results []SemesterResult, exec ...core.DBExecutor) (int, error)
		QuerySemesterResults(ctx context.Context, semesterID, studentID string, exec ...core.DBExecutor) ([]SemesterResult, error)
		GetSemesterResult(ctx context.Context, id string, exec ...core.DBExecutor) (SemesterResult, error)
		UpdateSemesterComments(ctx context.Context, id string, comments SemesterComments, exec ...core.DBExecutor) (SemesterResult, error)
	}

	// SchoolDirectory is the slice of the school service the result workflow
	// needs: the capability check plus period lookups.
	SchoolDirectory interface {
		school.Authorizer
		GetQuarter(ctx context.Context, id string) (school.Quarter, error)
		GetSemester(ctx context.Context, id string) (school.Semester, error)
	}

	Service interface {
		EnterScore(ctx context.Context, actor user.User, se ScoreEntry) (QuarterlyResult, error)
		Submit(ctx context.Context, actor user.User, sr SubmitRequest) (int, error)
		Approve(ctx context.Context, actor user.User, resultID string) (QuarterlyResult, error)
		Reject(ctx context.Context, actor user.User, resultID, reason string) (QuarterlyResult, error)
		BulkApprove(ctx context.Context, actor user.User, quarterID string) (int, error)
		Query(ctx context.Context, actor user.User, filter *Filter, ordering ...core.DBOrdering) ([]QuarterlyResult, error)
		ApprovalQueue(ctx context.Context, actor user.User, quarterID string) ([]QuarterlyResult, error)

		ComputeSemester(ctx context.Context, actor user.User, semesterID string) (int, error)
		QuerySemesterResults(ctx context.Context, semesterID, studentID string) ([]SemesterResult, error)
		UpdateSemesterComments(ctx context.Context, actor user.User, id string, comments SemesterComments) (SemesterResult, error)

		ClassPerformance(ctx context.Context, quarterID, classID string) ([]CoursePerformance, error)
		TopPerformers(ctx context.Context, quarterID, classID string, limit int) ([]StudentAverage, error)
	}

	service struct {
		repo   Repository
		school SchoolDirectory
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, schoolDir SchoolDirectory) Service {
	return &service{repo: repo, school: schoolDir}
}

// checkQuarterWritable fails with core.ErrLockedPeriod when the quarter is
// locked. The lock gate comes first and applies to admins too.
func (svc *service) checkQuarterWritable(ctx context.Context, quarterID string) (school.Quarter, error) {
	qtr, err := svc.school.GetQuarter(ctx, quarterID)
	if err != nil {
		return school.Quarter{}, err
	}
	if qtr.IsLocked {
		return school.Quarter{}, core.ErrLockedPeriod
	}
	return qtr, nil
}

func (svc *service) checkAuthorized(ctx context.Context, actor user.User, courseID, classID string) error {
	ok, err := svc.school.IsAuthorized(ctx, actor, courseID, classID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrPermissionDenied
	}
	return nil
}

// EnterScore creates the result as a draft or replaces the score of an
// existing draft or submitted result, resetting it to draft. Approved and
// rejected results are final and cannot be re-entered.
func (svc *service) EnterScore(ctx context.Context, actor user.User, se ScoreEntry) (QuarterlyResult, error) {
	if _, err := svc.checkQuarterWritable(ctx, se.QuarterID); err != nil {
		return QuarterlyResult{}, err
	}
	if err := svc.checkAuthorized(ctx, actor, se.CourseID, se.ClassID); err != nil {
		return QuarterlyResult{}, err
	}

	prev, err := svc.repo.GetResult(ctx, GetFilter{
		StudentID: se.StudentID,
		CourseID:  se.CourseID,
		QuarterID: se.QuarterID,
	})
	switch errors.Cause(err) {
	case nil:
		if prev.IsTerminal() {
			return QuarterlyResult{}, core.ErrInvalidState
		}
	case ErrNotFound: // first entry
	default:
		return QuarterlyResult{}, err
	}

	now := time.Now().UTC()
	res := QuarterlyResult{
		ID:             uuid.New().String(),
		StudentID:      se.StudentID,
		CourseID:       se.CourseID,
		ClassID:        se.ClassID,
		QuarterID:      se.QuarterID,
		Score:          se.Score,
		Grade:          Grade(se.Score),
		TeacherComment: se.Comment,
		Status:         StatusDraft,
		EnteredByID:    actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.UpsertResult(ctx, res)
}

// Submit moves every draft result the actor entered in the (quarter, class,
// course) scope to submitted. Drafts entered by someone else, and results
// already submitted or reviewed, are untouched.
func (svc *service) Submit(ctx context.Context, actor user.User, sr SubmitRequest) (int, error) {
	if _, err := svc.checkQuarterWritable(ctx, sr.QuarterID); err != nil {
		return 0, err
	}
	if err := svc.checkAuthorized(ctx, actor, sr.CourseID, sr.ClassID); err != nil {
		return 0, err
	}
	return svc.repo.SubmitDraftResults(ctx, sr.QuarterID, sr.ClassID, sr.CourseID, actor.ID, time.Now().UTC())
}

func (svc *service) Approve(ctx context.Context, actor user.User, resultID string) (QuarterlyResult, error) {
	return svc.review(ctx, actor, resultID, StatusApproved, "")
}

func (svc *service) Reject(ctx context.Context, actor user.User, resultID, reason string) (QuarterlyResult, error) {
	return svc.review(ctx, actor, resultID, StatusRejected, reason)
}

// review resolves a submitted result. Only admins review; only submitted
// results are reviewable.
func (svc *service) review(ctx context.Context, actor user.User, resultID, status, reason string) (QuarterlyResult, error) {
	if !actor.IsAdmin() {
		return QuarterlyResult{}, core.ErrPermissionDenied
	}
	res, err := svc.repo.GetResult(ctx, GetFilter{ID: resultID})
	if err != nil {
		return QuarterlyResult{}, err
	}
	if _, err = svc.checkQuarterWritable(ctx, res.QuarterID); err != nil {
		return QuarterlyResult{}, err
	}
	if res.Status != StatusSubmitted {
		return QuarterlyResult{}, core.ErrInvalidState
	}

	now := time.Now().UTC()
	res.Status = status
	res.ApprovedByID = actor.ID
	res.ApprovedAt = now
	res.RejectionReason = reason
	res.UpdatedAt = now
	return svc.repo.UpdateResultStatus(ctx, res)
}

// BulkApprove approves every submitted result of the quarter in one batch.
func (svc *service) BulkApprove(ctx context.Context, actor user.User, quarterID string) (int, error) {
	if !actor.IsAdmin() {
		return 0, core.ErrPermissionDenied
	}
	if _, err := svc.checkQuarterWritable(ctx, quarterID); err != nil {
		return 0, err
	}
	return svc.repo.ApproveSubmittedResults(ctx, quarterID, actor.ID, time.Now().UTC())
}

// Query lists results. Admins see everything; teachers see results they can
// manage (when filtering on a course and class they are assigned to) or, by
// default, results they entered themselves.
func (svc *service) Query(ctx context.Context, actor user.User, filter *Filter, ordering ...core.DBOrdering) ([]QuarterlyResult, error) {
	if !actor.IsAdmin() {
		if filter == nil {
			filter = &Filter{}
		}
		scoped := false
		if filter.CourseID != "" && filter.ClassID != "" {
			ok, err := svc.school.IsAuthorized(ctx, actor, filter.CourseID, filter.ClassID)
			if err != nil {
				return nil, err
			}
			scoped = ok
		}
		if !scoped {
			filter.EnteredByID = actor.ID
		}
	}
	return svc.repo.QueryResults(ctx, filter, ordering)
}

// ApprovalQueue lists the quarter's submitted results awaiting review.
func (svc *service) ApprovalQueue(ctx context.Context, actor user.User, quarterID string) ([]QuarterlyResult, error) {
	if !actor.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	ordering := []core.DBOrdering{{Field: "submitted_at", Ascending: false}}
	return svc.repo.QueryResults(ctx, &Filter{QuarterID: quarterID, Status: StatusSubmitted}, ordering)
}

// ComputeSemester rolls approved quarterly results of the semester's two
// quarters up into SemesterResults. Pairs are joined on (student, course);
// a student-course with an approved result in only one quarter is skipped.
// Recomputing replaces previous roll-ups.
func (svc *service) ComputeSemester(ctx context.Context, actor user.User, semesterID string) (int, error) {
	if !actor.IsAdmin() {
		return 0, core.ErrPermissionDenied
	}
	sem, err := svc.school.GetSemester(ctx, semesterID)
	if err != nil {
		return 0, err
	}
	if sem.IsLocked {
		return 0, core.ErrLockedPeriod
	}

	q1Results, err := svc.repo.QueryResults(ctx, &Filter{QuarterID: sem.Quarter1ID, Status: StatusApproved}, nil)
	if err != nil {
		return 0, err
	}
	q2Results, err := svc.repo.QueryResults(ctx, &Filter{QuarterID: sem.Quarter2ID, Status: StatusApproved}, nil)
	if err != nil {
		return 0, err
	}

	type pairKey struct{ studentID, courseID string }
	q1Index := make(map[pairKey]QuarterlyResult, len(q1Results))
	for _, res := range q1Results {
		q1Index[pairKey{res.StudentID, res.CourseID}] = res
	}

	now := time.Now().UTC()
	rollups := make([]SemesterResult, 0, len(q2Results))
	for _, q2Res := range q2Results {
		q1Res, ok := q1Index[pairKey{q2Res.StudentID, q2Res.CourseID}]
		if !ok {
			continue
		}
		total := q1Res.Score + q2Res.Score
		avg := total / 2
		rollups = append(rollups, SemesterResult{
			ID:            uuid.New().String(),
			StudentID:     q2Res.StudentID,
			CourseID:      q2Res.CourseID,
			SemesterID:    sem.ID,
			Quarter1Score: q1Res.Score,
			Quarter2Score: q2Res.Score,
			Total:         total,
			Average:       avg,
			Grade:         Grade(avg),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if len(rollups) == 0 {
		return 0, nil
	}
	return svc.repo.UpsertSemesterResults(ctx, rollups)
}

func (svc *service) QuerySemesterResults(ctx context.Context, semesterID, studentID string) ([]SemesterResult, error) {
	return svc.repo.QuerySemesterResults(ctx, semesterID, studentID)
}

func (svc *service) UpdateSemesterComments(ctx context.Context, actor user.User, id string, comments SemesterComments) (SemesterResult, error) {
	if !actor.IsAdmin() && !actor.IsTeacher() {
		return SemesterResult{}, core.ErrPermissionDenied
	}
	res, err := svc.repo.GetSemesterResult(ctx, id)
	if err != nil {
		return SemesterResult{}, err
	}
	sem, err := svc.school.GetSemester(ctx, res.SemesterID)
	if err != nil {
		return SemesterResult{}, err
	}
	if sem.IsLocked {
		return SemesterResult{}, core.ErrLockedPeriod
	}
	return svc.repo.UpdateSemesterComments(ctx, id, comments)
}

// ClassPerformance aggregates approved scores per course for a class and
// quarter.
func (svc *service) ClassPerformance(ctx context.Context, quarterID, classID string) ([]CoursePerformance, error) {
	results, err := svc.repo.QueryResults(ctx, &Filter{
		QuarterID: quarterID,
		ClassID:   classID,
		Status:    StatusApproved,
	}, nil)
	if err != nil {
		return nil, err
	}

	perfByCourse := make(map[string]*CoursePerformance)
	sums := make(map[string]float64)
	for _, res := range results {
		perf, ok := perfByCourse[res.CourseID]
		if !ok {
			perf = &CoursePerformance{CourseID: res.CourseID, Highest: res.Score, Lowest: res.Score}
			perfByCourse[res.CourseID] = perf
		}
		perf.Count++
		sums[res.CourseID] += res.Score
		if res.Score > perf.Highest {
			perf.Highest = res.Score
		}
		if res.Score < perf.Lowest {
			perf.Lowest = res.Score
		}
	}

	out := make([]CoursePerformance, 0, len(perfByCourse))
	for courseID, perf := range perfByCourse {
		perf.Average = sums[courseID] / float64(perf.Count)
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

// TopPerformers ranks a class's students by mean approved score in a quarter.
func (svc *service) TopPerformers(ctx context.Context, quarterID, classID string, limit int) ([]StudentAverage, error) {
	results, err := svc.repo.QueryResults(ctx, &Filter{
		QuarterID: quarterID,
		ClassID:   classID,
		Status:    StatusApproved,
	}, nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	sums := make(map[string]float64)
	for _, res := range results {
		counts[res.StudentID]++
		sums[res.StudentID] += res.Score
	}

	out := make([]StudentAverage, 0, len(counts))
	for studentID, count := range counts {
		avg := sums[studentID] / float64(count)
		out = append(out, StudentAverage{
			StudentID: studentID,
			Count:     count,
			Average:   avg,
			Grade:     Grade(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Average != out[j].Average {
			return out[i].Average > out[j].Average
		}
		return out[i].StudentID < out[j].StudentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/result"
)

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db}
}

func (repo *resultRepository) UpsertResult(_ context.Context, res result.QuarterlyResult, _ ...core.DBExecutor) (result.QuarterlyResult, error) {
	repo.db.result.Lock()
	defer repo.db.result.Unlock()

	for id, existing := range repo.db.result.table {
		if existing.StudentID == res.StudentID && existing.CourseID == res.CourseID && existing.QuarterID == res.QuarterID {
			res.ID = id
			res.CreatedAt = existing.CreatedAt
			repo.db.result.table[id] = &res
			return res, nil
		}
	}
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	repo.db.result.table[res.ID] = &res
	return res, nil
}

func (repo *resultRepository) QueryResults(_ context.Context, filter *result.Filter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]result.QuarterlyResult, error) {
	repo.db.result.RLock()
	defer repo.db.result.RUnlock()

	results := make([]result.QuarterlyResult, 0, len(repo.db.result.table))
	for _, res := range repo.db.result.table {
		if filter != nil && !matchResult(*res, filter) {
			continue
		}
		results = append(results, *res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.Before(results[j].CreatedAt) })
	return results, nil
}

func matchResult(res result.QuarterlyResult, filter *result.Filter) bool {
	if filter.QuarterID != "" && res.QuarterID != filter.QuarterID {
		return false
	}
	if filter.ClassID != "" && res.ClassID != filter.ClassID {
		return false
	}
	if filter.CourseID != "" && res.CourseID != filter.CourseID {
		return false
	}
	if filter.StudentID != "" && res.StudentID != filter.StudentID {
		return false
	}
	if filter.Status != "" && res.Status != filter.Status {
		return false
	}
	if filter.EnteredByID != "" && res.EnteredByID != filter.EnteredByID {
		return false
	}
	return true
}

func (repo *resultRepository) GetResult(_ context.Context, filter result.GetFilter, _ ...core.DBExecutor) (result.QuarterlyResult, error) {
	repo.db.result.RLock()
	defer repo.db.result.RUnlock()

	if filter.ID != "" {
		if res, ok := repo.db.result.table[filter.ID]; ok {
			return *res, nil
		}
		return result.QuarterlyResult{}, result.ErrNotFound
	}
	for _, res := range repo.db.result.table {
		if res.StudentID == filter.StudentID && res.CourseID == filter.CourseID && res.QuarterID == filter.QuarterID {
			return *res, nil
		}
	}
	return result.QuarterlyResult{}, result.ErrNotFound
}

func (repo *resultRepository) SubmitDraftResults(_ context.Context, quarterID, classID, courseID, enteredByID string, submittedAt time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.result.Lock()
	defer repo.db.result.Unlock()

	var n int
	for _, res := range repo.db.result.table {
		if res.Status == result.StatusDraft && res.QuarterID == quarterID &&
			res.ClassID == classID && res.CourseID == courseID && res.EnteredByID == enteredByID {
			res.Status = result.StatusSubmitted
			res.SubmittedAt = submittedAt
			res.UpdatedAt = submittedAt
			n++
		}
	}
	return n, nil
}

func (repo *resultRepository) UpdateResultStatus(_ context.Context, res result.QuarterlyResult, _ ...core.DBExecutor) (result.QuarterlyResult, error) {
	repo.db.result.Lock()
	defer repo.db.result.Unlock()

	orig, ok := repo.db.result.table[res.ID]
	if !ok {
		return result.QuarterlyResult{}, result.ErrNotFound
	}
	orig.Status = res.Status
	orig.ApprovedByID = res.ApprovedByID
	orig.ApprovedAt = res.ApprovedAt
	orig.RejectionReason = res.RejectionReason
	orig.UpdatedAt = res.UpdatedAt
	return *orig, nil
}

func (repo *resultRepository) ApproveSubmittedResults(_ context.Context, quarterID, approverID string, approvedAt time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.result.Lock()
	defer repo.db.result.Unlock()

	var n int
	for _, res := range repo.db.result.table {
		if res.Status == result.StatusSubmitted && res.QuarterID == quarterID {
			res.Status = result.StatusApproved
			res.ApprovedByID = approverID
			res.ApprovedAt = approvedAt
			res.UpdatedAt = approvedAt
			n++
		}
	}
	return n, nil
}

func (repo *resultRepository) UpsertSemesterResults(_ context.Context, results []result.SemesterResult, _ ...core.DBExecutor) (int, error) {
	repo.db.semResult.Lock()
	defer repo.db.semResult.Unlock()

	for i := range results {
		res := results[i]
		var replaced bool
		for id, existing := range repo.db.semResult.table {
			if existing.StudentID == res.StudentID && existing.CourseID == res.CourseID && existing.SemesterID == res.SemesterID {
				res.ID = id
				res.CreatedAt = existing.CreatedAt
				// comments are only written through UpdateSemesterComments
				res.TeacherComment = existing.TeacherComment
				res.ClassTeacherComment = existing.ClassTeacherComment
				res.PrincipalComment = existing.PrincipalComment
				repo.db.semResult.table[id] = &res
				replaced = true
				break
			}
		}
		if !replaced {
			if res.ID == "" {
				res.ID = uuid.New().String()
			}
			repo.db.semResult.table[res.ID] = &res
		}
	}
	return len(results), nil
}

func (repo *resultRepository) QuerySemesterResults(_ context.Context, semesterID, studentID string, _ ...core.DBExecutor) ([]result.SemesterResult, error) {
	repo.db.semResult.RLock()
	defer repo.db.semResult.RUnlock()

	results := make([]result.SemesterResult, 0, len(repo.db.semResult.table))
	for _, res := range repo.db.semResult.table {
		if semesterID != "" && res.SemesterID != semesterID {
			continue
		}
		if studentID != "" && res.StudentID != studentID {
			continue
		}
		results = append(results, *res)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].StudentID != results[j].StudentID {
			return results[i].StudentID < results[j].StudentID
		}
		return results[i].CourseID < results[j].CourseID
	})
	return results, nil
}

func (repo *resultRepository) GetSemesterResult(_ context.Context, id string, _ ...core.DBExecutor) (result.SemesterResult, error) {
	repo.db.semResult.RLock()
	defer repo.db.semResult.RUnlock()

	if res, ok := repo.db.semResult.table[id]; ok {
		return *res, nil
	}
	return result.SemesterResult{}, result.ErrNotFound
}

func (repo *resultRepository) UpdateSemesterComments(_ context.Context, id string, comments result.SemesterComments, _ ...core.DBExecutor) (result.SemesterResult, error) {
	repo.db.semResult.Lock()
	defer repo.db.semResult.Unlock()

	res, ok := repo.db.semResult.table[id]
	if !ok {
		return result.SemesterResult{}, result.ErrNotFound
	}
	res.TeacherComment = comments.TeacherComment
	res.ClassTeacherComment = comments.ClassTeacherComment
	res.PrincipalComment = comments.PrincipalComment
	res.UpdatedAt = time.Now().UTC()
	return *res, nil
}

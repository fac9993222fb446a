package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

// departments

func (repo *schoolRepository) CreateDepartment(_ context.Context, dep school.Department, _ ...core.DBExecutor) (school.Department, error) {
	repo.db.department.Lock()
	defer repo.db.department.Unlock()

	for _, existing := range repo.db.department.table {
		if existing.Code == dep.Code {
			return school.Department{}, school.ErrAlreadyExists
		}
	}
	dep.ID = uuid.New().String()
	repo.db.department.table[dep.ID] = &dep
	return dep, nil
}

func (repo *schoolRepository) QueryDepartments(_ context.Context, _ ...core.DBExecutor) ([]school.Department, error) {
	repo.db.department.RLock()
	defer repo.db.department.RUnlock()

	deps := make([]school.Department, 0, len(repo.db.department.table))
	for _, dep := range repo.db.department.table {
		deps = append(deps, *dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps, nil
}

func (repo *schoolRepository) GetDepartment(_ context.Context, id string, _ ...core.DBExecutor) (school.Department, error) {
	repo.db.department.RLock()
	defer repo.db.department.RUnlock()

	if dep, ok := repo.db.department.table[id]; ok {
		return *dep, nil
	}
	return school.Department{}, school.ErrNotFound
}

// academic years

func (repo *schoolRepository) CreateAcademicYear(_ context.Context, year school.AcademicYear, _ ...core.DBExecutor) (school.AcademicYear, error) {
	repo.db.year.Lock()
	defer repo.db.year.Unlock()

	for _, existing := range repo.db.year.table {
		if existing.Name == year.Name {
			return school.AcademicYear{}, school.ErrAlreadyExists
		}
	}
	year.ID = uuid.New().String()
	repo.db.year.table[year.ID] = &year
	return year, nil
}

func (repo *schoolRepository) QueryAcademicYears(_ context.Context, _ ...core.DBExecutor) ([]school.AcademicYear, error) {
	repo.db.year.RLock()
	defer repo.db.year.RUnlock()

	years := make([]school.AcademicYear, 0, len(repo.db.year.table))
	for _, year := range repo.db.year.table {
		years = append(years, *year)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].StartDate.Before(years[j].StartDate) })
	return years, nil
}

func (repo *schoolRepository) GetAcademicYear(_ context.Context, id string, _ ...core.DBExecutor) (school.AcademicYear, error) {
	repo.db.year.RLock()
	defer repo.db.year.RUnlock()

	if year, ok := repo.db.year.table[id]; ok {
		return *year, nil
	}
	return school.AcademicYear{}, school.ErrNotFound
}

func (repo *schoolRepository) GetActiveAcademicYear(_ context.Context, _ ...core.DBExecutor) (school.AcademicYear, error) {
	repo.db.year.RLock()
	defer repo.db.year.RUnlock()

	for _, year := range repo.db.year.table {
		if year.IsActive {
			return *year, nil
		}
	}
	return school.AcademicYear{}, school.ErrNotFound
}

func (repo *schoolRepository) ActivateAcademicYear(_ context.Context, id string, _ ...core.DBExecutor) (school.AcademicYear, error) {
	repo.db.year.Lock()
	defer repo.db.year.Unlock()

	year, ok := repo.db.year.table[id]
	if !ok {
		return school.AcademicYear{}, school.ErrNotFound
	}
	// the swap happens under the table lock; no reader sees two active years
	for _, other := range repo.db.year.table {
		other.IsActive = false
	}
	year.IsActive = true
	return *year, nil
}

// classes

func (repo *schoolRepository) CreateClass(_ context.Context, class school.Class, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	for _, existing := range repo.db.class.table {
		if existing.Name == class.Name && existing.AcademicYearID == class.AcademicYearID {
			return school.Class{}, school.ErrAlreadyExists
		}
	}
	class.ID = uuid.New().String()
	repo.db.class.table[class.ID] = &class
	return class, nil
}

func (repo *schoolRepository) QueryClasses(_ context.Context, yearID string, _ ...core.DBExecutor) ([]school.Class, error) {
	repo.db.class.RLock()
	defer repo.db.class.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.class.table))
	for _, class := range repo.db.class.table {
		if yearID != "" && class.AcademicYearID != yearID {
			continue
		}
		classes = append(classes, *class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.class.RLock()
	defer repo.db.class.RUnlock()

	if class, ok := repo.db.class.table[id]; ok {
		return *class, nil
	}
	return school.Class{}, school.ErrNotFound
}

// courses

func (repo *schoolRepository) CreateCourse(_ context.Context, course school.Course, _ ...core.DBExecutor) (school.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	for _, existing := range repo.db.course.table {
		if existing.Code == course.Code {
			return school.Course{}, school.ErrAlreadyExists
		}
	}
	course.ID = uuid.New().String()
	repo.db.course.table[course.ID] = &course
	return course, nil
}

func (repo *schoolRepository) QueryCourses(_ context.Context, _ ...core.DBExecutor) ([]school.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := make([]school.Course, 0, len(repo.db.course.table))
	for _, course := range repo.db.course.table {
		courses = append(courses, *course)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *schoolRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (school.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if course, ok := repo.db.course.table[id]; ok {
		return *course, nil
	}
	return school.Course{}, school.ErrNotFound
}

// students

func (repo *schoolRepository) CreateStudent(_ context.Context, std school.Student, _ ...core.DBExecutor) (school.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	for _, existing := range repo.db.student.table {
		if existing.AdmissionNumber == std.AdmissionNumber {
			return school.Student{}, school.ErrAlreadyExists
		}
	}
	std.ID = uuid.New().String()
	repo.db.student.table[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) QueryStudents(_ context.Context, filter *school.StudentFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]school.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	students := make([]school.Student, 0, len(repo.db.student.table))
	for _, std := range repo.db.student.table {
		if filter != nil && !matchStudent(*std, filter) {
			continue
		}
		students = append(students, *std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].AdmissionNumber < students[j].AdmissionNumber })
	return students, nil
}

func matchStudent(std school.Student, filter *school.StudentFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(std.FullName()), search) &&
			!strings.Contains(strings.ToLower(std.AdmissionNumber), search) {
			return false
		}
	}
	if filter.ClassID != "" && std.CurrentClassID != filter.ClassID {
		return false
	}
	if filter.IsActive != nil && std.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *schoolRepository) GetStudent(_ context.Context, filter school.GetStudentFilter, _ ...core.DBExecutor) (school.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	if filter.ID != "" {
		if std, ok := repo.db.student.table[filter.ID]; ok {
			return *std, nil
		}
		return school.Student{}, school.ErrNotFound
	}
	for _, std := range repo.db.student.table {
		if filter.AdmissionNumber != "" && std.AdmissionNumber == filter.AdmissionNumber {
			return *std, nil
		}
	}
	return school.Student{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, std school.Student, isActive *bool, classID *string, _ ...core.DBExecutor) (school.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	origStd, ok := repo.db.student.table[std.ID]
	if !ok {
		return school.Student{}, school.ErrNotFound
	}
	// only save set fields
	if std.FirstName != "" {
		origStd.FirstName = std.FirstName
	}
	if std.LastName != "" {
		origStd.LastName = std.LastName
	}
	if std.MiddleName != "" {
		origStd.MiddleName = std.MiddleName
	}
	if std.Gender != "" {
		origStd.Gender = std.Gender
	}
	if !std.DateOfBirth.IsZero() {
		origStd.DateOfBirth = std.DateOfBirth
	}
	if std.GuardianName != "" {
		origStd.GuardianName = std.GuardianName
	}
	if std.GuardianPhone != "" {
		origStd.GuardianPhone = std.GuardianPhone
	}
	if std.GuardianEmail != "" {
		origStd.GuardianEmail = std.GuardianEmail
	}
	if std.GuardianAddress != "" {
		origStd.GuardianAddress = std.GuardianAddress
	}
	if isActive != nil {
		origStd.IsActive = *isActive
	}
	if classID != nil {
		origStd.CurrentClassID = *classID
	}
	return *origStd, nil
}

func (repo *schoolRepository) UpdateStudentsByID(_ context.Context, ids []string, isActive *bool, classID *string, _ ...core.DBExecutor) (int, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	var n int
	for _, id := range ids {
		std, ok := repo.db.student.table[id]
		if !ok {
			continue
		}
		if isActive != nil {
			std.IsActive = *isActive
		}
		if classID != nil {
			std.CurrentClassID = *classID
		}
		n++
	}
	return n, nil
}

// teacher assignments

func (repo *schoolRepository) CreateAssignment(_ context.Context, ta school.TeacherAssignment, _ ...core.DBExecutor) (school.TeacherAssignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	for _, existing := range repo.db.assignment.table {
		if existing.TeacherID == ta.TeacherID && existing.CourseID == ta.CourseID &&
			existing.ClassID == ta.ClassID && existing.AcademicYearID == ta.AcademicYearID {
			return school.TeacherAssignment{}, school.ErrAlreadyExists
		}
	}
	ta.ID = uuid.New().String()
	repo.db.assignment.table[ta.ID] = &ta
	return ta, nil
}

func (repo *schoolRepository) QueryAssignments(_ context.Context, filter *school.AssignmentFilter, _ ...core.DBExecutor) ([]school.TeacherAssignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	assignments := make([]school.TeacherAssignment, 0, len(repo.db.assignment.table))
	for _, ta := range repo.db.assignment.table {
		if filter != nil {
			if filter.TeacherID != "" && ta.TeacherID != filter.TeacherID {
				continue
			}
			if filter.CourseID != "" && ta.CourseID != filter.CourseID {
				continue
			}
			if filter.ClassID != "" && ta.ClassID != filter.ClassID {
				continue
			}
			if filter.AcademicYearID != "" && ta.AcademicYearID != filter.AcademicYearID {
				continue
			}
		}
		assignments = append(assignments, *ta)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.Before(assignments[j].CreatedAt) })
	return assignments, nil
}

func (repo *schoolRepository) DeleteAssignmentsByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.assignment.table[id]; ok {
			delete(repo.db.assignment.table, id)
			n++
		}
	}
	return n, nil
}

func (repo *schoolRepository) AssignmentExists(_ context.Context, teacherID, courseID, classID, yearID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	for _, ta := range repo.db.assignment.table {
		if ta.TeacherID == teacherID && ta.CourseID == courseID &&
			ta.ClassID == classID && ta.AcademicYearID == yearID {
			return true, nil
		}
	}
	return false, nil
}

// quarters

func (repo *schoolRepository) CreateQuarter(_ context.Context, qtr school.Quarter, _ ...core.DBExecutor) (school.Quarter, error) {
	repo.db.quarter.Lock()
	defer repo.db.quarter.Unlock()

	for _, existing := range repo.db.quarter.table {
		if existing.Name == qtr.Name && existing.AcademicYearID == qtr.AcademicYearID {
			return school.Quarter{}, school.ErrAlreadyExists
		}
	}
	qtr.ID = uuid.New().String()
	repo.db.quarter.table[qtr.ID] = &qtr
	return qtr, nil
}

func (repo *schoolRepository) QueryQuarters(_ context.Context, filter *school.QuarterFilter, _ ...core.DBExecutor) ([]school.Quarter, error) {
	repo.db.quarter.RLock()
	defer repo.db.quarter.RUnlock()

	quarters := make([]school.Quarter, 0, len(repo.db.quarter.table))
	for _, qtr := range repo.db.quarter.table {
		if filter != nil {
			if filter.AcademicYearID != "" && qtr.AcademicYearID != filter.AcademicYearID {
				continue
			}
			if filter.IsActive != nil && qtr.IsActive != *filter.IsActive {
				continue
			}
		}
		quarters = append(quarters, *qtr)
	}
	sort.Slice(quarters, func(i, j int) bool { return quarters[i].Name < quarters[j].Name })
	return quarters, nil
}

func (repo *schoolRepository) GetQuarter(_ context.Context, id string, _ ...core.DBExecutor) (school.Quarter, error) {
	repo.db.quarter.RLock()
	defer repo.db.quarter.RUnlock()

	if qtr, ok := repo.db.quarter.table[id]; ok {
		return *qtr, nil
	}
	return school.Quarter{}, school.ErrNotFound
}

func (repo *schoolRepository) GetActiveQuarter(_ context.Context, _ ...core.DBExecutor) (school.Quarter, error) {
	repo.db.quarter.RLock()
	defer repo.db.quarter.RUnlock()

	for _, qtr := range repo.db.quarter.table {
		if qtr.IsActive {
			return *qtr, nil
		}
	}
	return school.Quarter{}, school.ErrNotFound
}

func (repo *schoolRepository) ActivateQuarter(_ context.Context, id string, _ ...core.DBExecutor) (school.Quarter, error) {
	repo.db.quarter.Lock()
	defer repo.db.quarter.Unlock()

	qtr, ok := repo.db.quarter.table[id]
	if !ok {
		return school.Quarter{}, school.ErrNotFound
	}
	// the swap happens under the table lock; no reader sees two active quarters
	for _, other := range repo.db.quarter.table {
		other.IsActive = false
	}
	qtr.IsActive = true
	return *qtr, nil
}

func (repo *schoolRepository) SetQuarterLocked(_ context.Context, id string, locked bool, _ ...core.DBExecutor) (school.Quarter, error) {
	repo.db.quarter.Lock()
	defer repo.db.quarter.Unlock()

	qtr, ok := repo.db.quarter.table[id]
	if !ok {
		return school.Quarter{}, school.ErrNotFound
	}
	qtr.IsLocked = locked
	return *qtr, nil
}

// semesters

func (repo *schoolRepository) CreateSemester(_ context.Context, sem school.Semester, _ ...core.DBExecutor) (school.Semester, error) {
	repo.db.semester.Lock()
	defer repo.db.semester.Unlock()

	for _, existing := range repo.db.semester.table {
		if existing.Name == sem.Name && existing.AcademicYearID == sem.AcademicYearID {
			return school.Semester{}, school.ErrAlreadyExists
		}
	}
	sem.ID = uuid.New().String()
	repo.db.semester.table[sem.ID] = &sem
	return sem, nil
}

func (repo *schoolRepository) QuerySemesters(_ context.Context, yearID string, _ ...core.DBExecutor) ([]school.Semester, error) {
	repo.db.semester.RLock()
	defer repo.db.semester.RUnlock()

	semesters := make([]school.Semester, 0, len(repo.db.semester.table))
	for _, sem := range repo.db.semester.table {
		if yearID != "" && sem.AcademicYearID != yearID {
			continue
		}
		semesters = append(semesters, *sem)
	}
	sort.Slice(semesters, func(i, j int) bool { return semesters[i].Name < semesters[j].Name })
	return semesters, nil
}

func (repo *schoolRepository) GetSemester(_ context.Context, id string, _ ...core.DBExecutor) (school.Semester, error) {
	repo.db.semester.RLock()
	defer repo.db.semester.RUnlock()

	if sem, ok := repo.db.semester.table[id]; ok {
		return *sem, nil
	}
	return school.Semester{}, school.ErrNotFound
}

func (repo *schoolRepository) SetSemesterLocked(_ context.Context, id string, locked bool, _ ...core.DBExecutor) (school.Semester, error) {
	repo.db.semester.Lock()
	defer repo.db.semester.Unlock()

	sem, ok := repo.db.semester.table[id]
	if !ok {
		return school.Semester{}, school.ErrNotFound
	}
	sem.IsLocked = locked
	return *sem, nil
}

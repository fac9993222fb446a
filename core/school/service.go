package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyExists    = errors.New("a record with these attributes already exists")
	ErrNoActiveYear     = errors.New("no active academic year")
	ErrQuarterYearMixed = errors.New("quarters must belong to the semester's academic year")
)

type (
	Repository interface {
		// departments
		CreateDepartment(ctx context.Context, dep Department, exec ...core.DBExecutor) (Department, error)
		QueryDepartments(ctx context.Context, exec ...core.DBExecutor) ([]Department, error)
		GetDepartment(ctx context.Context, id string, exec ...core.DBExecutor) (Department, error)

		// academic years
		CreateAcademicYear(ctx context.Context, year AcademicYear, exec ...core.DBExecutor) (AcademicYear, error)
		QueryAcademicYears(ctx context.Context, exec ...core.DBExecutor) ([]AcademicYear, error)
		GetAcademicYear(ctx context.Context, id string, exec ...core.DBExecutor) (AcademicYear, error)
		GetActiveAcademicYear(ctx context.Context, exec ...core.DBExecutor) (AcademicYear, error)
		// ActivateAcademicYear deactivates every other year and activates the
		// given one as a single atomic operation.
		ActivateAcademicYear(ctx context.Context, id string, exec ...core.DBExecutor) (AcademicYear, error)

		// classes
		CreateClass(ctx context.Context, class Class, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context, yearID string, exec ...core.DBExecutor) ([]Class, error)
		GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error)

		// courses
		CreateCourse(ctx context.Context, course Course, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)

		// students
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available StudentFilter fields.
		// StudentFilter.Search does a case-insensitive match on one of the name
		// fields or the admission number.
		QueryStudents(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, filter GetStudentFilter, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, std Student, isActive *bool, classID *string, exec ...core.DBExecutor) (Student, error)
		// UpdateStudentsByID bulk-updates the given students atomically and
		// reports the number of rows touched. Nil fields are left unchanged.
		UpdateStudentsByID(ctx context.Context, ids []string, isActive *bool, classID *string, exec ...core.DBExecutor) (int, error)

		// teacher assignments
		CreateAssignment(ctx context.Context, ta TeacherAssignment, exec ...core.DBExecutor) (TeacherAssignment, error)
		QueryAssignments(ctx context.Context, filter *AssignmentFilter, exec ...core.DBExecutor) ([]TeacherAssignment, error)
		DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		AssignmentExists(ctx context.Context, teacherID, courseID, classID, yearID string, exec ...core.DBExecutor) (bool, error)

		// quarters
		CreateQuarter(ctx context.Context, qtr Quarter, exec ...core.DBExecutor) (Quarter, error)
		QueryQuarters(ctx context.Context, filter *QuarterFilter, exec ...core.DBExecutor) ([]Quarter, error)
		GetQuarter(ctx context.Context, id string, exec ...core.DBExecutor) (Quarter, error)
		GetActiveQuarter(ctx context.Context, exec ...core.DBExecutor) (Quarter, error)
		// ActivateQuarter deactivates every other quarter (across all years) and
		// activates the given one as a single atomic operation.
		ActivateQuarter(ctx context.Context, id string, exec ...core.DBExecutor) (Quarter, error)
		SetQuarterLocked(ctx context.Context, id string, locked bool, exec ...core.DBExecutor) (Quarter, error)

		// semesters
		CreateSemester(ctx context.Context, sem Semester, exec ...core.DBExecutor) (Semester, error)
		QuerySemesters(ctx context.Context, yearID string, exec ...core.DBExecutor) ([]Semester, error)
		GetSemester(ctx context.Context, id string, exec ...core.DBExecutor) (Semester, error)
		SetSemesterLocked(ctx context.Context, id string, locked bool, exec ...core.DBExecutor) (Semester, error)
	}

	Service interface {
		// structure
		CreateDepartment(ctx context.Context, nd NewDepartment) (Department, error)
		QueryDepartments(ctx context.Context) ([]Department, error)
		CreateClass(ctx context.Context, nc NewClass) (Class, error)
		QueryClasses(ctx context.Context, yearID string) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)

		// students
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		QueryStudents(ctx context.Context, filter *StudentFilter, ordering ...core.DBOrdering) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error)
		BulkSetStudentsActive(ctx context.Context, ids []string, active bool) (int, error)
		BulkTransferStudents(ctx context.Context, ids []string, classID string) (int, error)

		// period registry
		CreateAcademicYear(ctx context.Context, ny NewAcademicYear) (AcademicYear, error)
		QueryAcademicYears(ctx context.Context) ([]AcademicYear, error)
		ActiveAcademicYear(ctx context.Context) (AcademicYear, error)
		ActivateAcademicYear(ctx context.Context, id string) (AcademicYear, error)
		CreateQuarter(ctx context.Context, nq NewQuarter) (Quarter, error)
		QueryQuarters(ctx context.Context, filter *QuarterFilter) ([]Quarter, error)
		GetQuarter(ctx context.Context, id string) (Quarter, error)
		ActiveQuarter(ctx context.Context) (Quarter, error)
		ActivateQuarter(ctx context.Context, id string) (Quarter, error)
		SetQuarterLocked(ctx context.Context, id string, locked bool) (Quarter, error)
		CreateSemester(ctx context.Context, ns NewSemester) (Semester, error)
		QuerySemesters(ctx context.Context, yearID string) ([]Semester, error)
		GetSemester(ctx context.Context, id string) (Semester, error)
		SetSemesterLocked(ctx context.Context, id string, locked bool) (Semester, error)

		// assignment directory
		CreateAssignment(ctx context.Context, na NewAssignment) (TeacherAssignment, error)
		QueryAssignments(ctx context.Context, filter *AssignmentFilter) ([]TeacherAssignment, error)
		DeleteAssignments(ctx context.Context, ids ...string) error
		Authorizer
	}

	// Authorizer answers whether an actor may manage results for a
	// (course, class) pair. It is the single capability check used by the
	// result workflow.
	Authorizer interface {
		IsAuthorized(ctx context.Context, actor user.User, courseID, classID string) (bool, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateDepartment(ctx context.Context, nd NewDepartment) (Department, error) {
	dep := Department{
		Name:        nd.Name,
		Code:        nd.Code,
		Description: nd.Description,
		CreatedAt:   time.Now().UTC(),
	}
	dep, err := svc.repo.CreateDepartment(ctx, dep)
	if errors.Cause(err) == ErrAlreadyExists {
		return Department{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}
	return dep, err
}

func (svc *service) QueryDepartments(ctx context.Context) ([]Department, error) {
	return svc.repo.QueryDepartments(ctx)
}

func (svc *service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if _, err := svc.repo.GetDepartment(ctx, nc.DepartmentID); err != nil {
		return Class{}, err
	}
	if _, err := svc.repo.GetAcademicYear(ctx, nc.AcademicYearID); err != nil {
		return Class{}, err
	}
	class := Class{
		Name:           nc.Name,
		DepartmentID:   nc.DepartmentID,
		ClassTeacherID: nc.ClassTeacherID,
		AcademicYearID: nc.AcademicYearID,
		Capacity:       nc.Capacity,
		CreatedAt:      time.Now().UTC(),
	}
	class, err := svc.repo.CreateClass(ctx, class)
	if errors.Cause(err) == ErrAlreadyExists {
		return Class{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return class, err
}

func (svc *service) QueryClasses(ctx context.Context, yearID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, yearID)
}

func (svc *service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if _, err := svc.repo.GetDepartment(ctx, nc.DepartmentID); err != nil {
		return Course{}, err
	}
	course := Course{
		Name:         nc.Name,
		Code:         nc.Code,
		DepartmentID: nc.DepartmentID,
		Description:  nc.Description,
		CreatedAt:    time.Now().UTC(),
	}
	course, err := svc.repo.CreateCourse(ctx, course)
	if errors.Cause(err) == ErrAlreadyExists {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}
	return course, err
}

func (svc *service) QueryCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if ns.CurrentClassID != "" {
		if _, err := svc.repo.GetClass(ctx, ns.CurrentClassID); err != nil {
			return Student{}, err
		}
	}
	now := time.Now().UTC()
	std := Student{
		AdmissionNumber: ns.AdmissionNumber,
		FirstName:       ns.FirstName,
		LastName:        ns.LastName,
		MiddleName:      ns.MiddleName,
		Gender:          ns.Gender,
		DateOfBirth:     ns.DateOfBirth,
		CurrentClassID:  ns.CurrentClassID,
		GuardianName:    ns.GuardianName,
		GuardianPhone:   ns.GuardianPhone,
		GuardianEmail:   ns.GuardianEmail,
		GuardianAddress: ns.GuardianAddress,
		IsActive:        true,
		EnrollmentDate:  now,
		CreatedAt:       now,
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	if errors.Cause(err) == ErrAlreadyExists {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "admission_number", Error: err.Error()})
	}
	return std, err
}

func (svc *service) QueryStudents(ctx context.Context, filter *StudentFilter, ordering ...core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *service) GetStudentByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetStudentFilter{ID: id})
}

func (svc *service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	if us.CurrentClassID != nil && *us.CurrentClassID != "" {
		if _, err := svc.repo.GetClass(ctx, *us.CurrentClassID); err != nil {
			return Student{}, err
		}
	}
	std := Student{
		ID:              id,
		FirstName:       us.FirstName,
		LastName:        us.LastName,
		MiddleName:      us.MiddleName,
		Gender:          us.Gender,
		DateOfBirth:     us.DateOfBirth,
		GuardianName:    us.GuardianName,
		GuardianPhone:   us.GuardianPhone,
		GuardianEmail:   us.GuardianEmail,
		GuardianAddress: us.GuardianAddress,
	}
	return svc.repo.UpdateStudent(ctx, std, us.IsActive, us.CurrentClassID)
}

func (svc *service) BulkSetStudentsActive(ctx context.Context, ids []string, active bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.UpdateStudentsByID(ctx, ids, &active, nil)
}

func (svc *service) BulkTransferStudents(ctx context.Context, ids []string, classID string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return 0, err
	}
	return svc.repo.UpdateStudentsByID(ctx, ids, nil, &classID)
}

func (svc *service) CreateAcademicYear(ctx context.Context, ny NewAcademicYear) (AcademicYear, error) {
	year := AcademicYear{
		Name:      ny.Name,
		StartDate: ny.StartDate,
		EndDate:   ny.EndDate,
		CreatedAt: time.Now().UTC(),
	}
	year, err := svc.repo.CreateAcademicYear(ctx, year)
	if errors.Cause(err) == ErrAlreadyExists {
		return AcademicYear{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return year, err
}

func (svc *service) QueryAcademicYears(ctx context.Context) ([]AcademicYear, error) {
	return svc.repo.QueryAcademicYears(ctx)
}

func (svc *service) ActiveAcademicYear(ctx context.Context) (AcademicYear, error) {
	return svc.repo.GetActiveAcademicYear(ctx)
}

func (svc *service) ActivateAcademicYear(ctx context.Context, id string) (AcademicYear, error) {
	return svc.repo.ActivateAcademicYear(ctx, id)
}

func (svc *service) CreateQuarter(ctx context.Context, nq NewQuarter) (Quarter, error) {
	if _, err := svc.repo.GetAcademicYear(ctx, nq.AcademicYearID); err != nil {
		return Quarter{}, err
	}
	qtr := Quarter{
		Name:           nq.Name,
		AcademicYearID: nq.AcademicYearID,
		StartDate:      nq.StartDate,
		EndDate:        nq.EndDate,
	}
	qtr, err := svc.repo.CreateQuarter(ctx, qtr)
	if errors.Cause(err) == ErrAlreadyExists {
		return Quarter{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return qtr, err
}

func (svc *service) QueryQuarters(ctx context.Context, filter *QuarterFilter) ([]Quarter, error) {
	return svc.repo.QueryQuarters(ctx, filter)
}

func (svc *service) GetQuarter(ctx context.Context, id string) (Quarter, error) {
	return svc.repo.GetQuarter(ctx, id)
}

func (svc *service) ActiveQuarter(ctx context.Context) (Quarter, error) {
	return svc.repo.GetActiveQuarter(ctx)
}

// ActivateQuarter makes the given quarter the sole active one; the swap is
// atomic so no reader ever observes two active quarters. Activating an
// already-active quarter is a no-op.
func (svc *service) ActivateQuarter(ctx context.Context, id string) (Quarter, error) {
	return svc.repo.ActivateQuarter(ctx, id)
}

func (svc *service) SetQuarterLocked(ctx context.Context, id string, locked bool) (Quarter, error) {
	return svc.repo.SetQuarterLocked(ctx, id, locked)
}

func (svc *service) CreateSemester(ctx context.Context, ns NewSemester) (Semester, error) {
	q1, err := svc.repo.GetQuarter(ctx, ns.Quarter1ID)
	if err != nil {
		return Semester{}, err
	}
	q2, err := svc.repo.GetQuarter(ctx, ns.Quarter2ID)
	if err != nil {
		return Semester{}, err
	}
	if q1.AcademicYearID != ns.AcademicYearID || q2.AcademicYearID != ns.AcademicYearID {
		return Semester{}, core.NewValidationError(ErrQuarterYearMixed)
	}
	sem := Semester{
		Name:           ns.Name,
		AcademicYearID: ns.AcademicYearID,
		Quarter1ID:     ns.Quarter1ID,
		Quarter2ID:     ns.Quarter2ID,
	}
	sem, err = svc.repo.CreateSemester(ctx, sem)
	if errors.Cause(err) == ErrAlreadyExists {
		return Semester{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return sem, err
}

func (svc *service) QuerySemesters(ctx context.Context, yearID string) ([]Semester, error) {
	return svc.repo.QuerySemesters(ctx, yearID)
}

func (svc *service) GetSemester(ctx context.Context, id string) (Semester, error) {
	return svc.repo.GetSemester(ctx, id)
}

func (svc *service) SetSemesterLocked(ctx context.Context, id string, locked bool) (Semester, error) {
	return svc.repo.SetSemesterLocked(ctx, id, locked)
}

func (svc *service) CreateAssignment(ctx context.Context, na NewAssignment) (TeacherAssignment, error) {
	ta := TeacherAssignment{
		TeacherID:      na.TeacherID,
		CourseID:       na.CourseID,
		ClassID:        na.ClassID,
		AcademicYearID: na.AcademicYearID,
		CreatedAt:      time.Now().UTC(),
	}
	ta, err := svc.repo.CreateAssignment(ctx, ta)
	if errors.Cause(err) == ErrAlreadyExists {
		return TeacherAssignment{}, core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: err.Error()})
	}
	return ta, err
}

func (svc *service) QueryAssignments(ctx context.Context, filter *AssignmentFilter) ([]TeacherAssignment, error) {
	return svc.repo.QueryAssignments(ctx, filter)
}

func (svc *service) DeleteAssignments(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAssignmentsByID(ctx, ids)
	return err
}

// IsAuthorized reports whether the actor may manage results for the
// (course, class) pair. Admins always may; teachers need a matching
// assignment within the active academic year.
func (svc *service) IsAuthorized(ctx context.Context, actor user.User, courseID, classID string) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if !actor.IsTeacher() {
		return false, nil
	}
	year, err := svc.repo.GetActiveAcademicYear(ctx)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return svc.repo.AssignmentExists(ctx, actor.ID, courseID, classID, year.ID)
}

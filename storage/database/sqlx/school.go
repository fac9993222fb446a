package sqlxdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/school"
)

const (
	departmentColumns = "id, name, code, description, created_at"
	yearColumns       = "id, name, start_date, end_date, is_active, created_at"
	classColumns      = "id, name, department_id, class_teacher_id, academic_year_id, capacity, created_at"
	courseColumns     = "id, name, code, department_id, description, created_at"
	studentColumns    = `id, admission_number, first_name, last_name, middle_name, gender, date_of_birth,
		current_class_id, guardian_name, guardian_phone, guardian_email, guardian_address,
		is_active, enrollment_date, created_at`
	assignmentColumns = "id, teacher_id, course_id, class_id, academic_year_id, created_at"
	quarterColumns    = "id, name, academic_year_id, start_date, end_date, is_active, is_locked"
	semesterColumns   = "id, name, academic_year_id, quarter_1_id, quarter_2_id, is_locked"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sql.DB) school.Repository {
	return &schoolRepository{db: sqlx.NewDb(db, "postgres")}
}

// scan helpers

func scanDepartment(s rowScanner) (school.Department, error) {
	var dep school.Department
	err := s.Scan(&dep.ID, &dep.Name, &dep.Code, &dep.Description, &dep.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.Department{}, school.ErrNotFound
		}
		return school.Department{}, errors.Wrap(err, "scanning department")
	}
	return dep, nil
}

func scanYear(s rowScanner) (school.AcademicYear, error) {
	var year school.AcademicYear
	err := s.Scan(&year.ID, &year.Name, &year.StartDate, &year.EndDate, &year.IsActive, &year.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.AcademicYear{}, school.ErrNotFound
		}
		return school.AcademicYear{}, errors.Wrap(err, "scanning academic year")
	}
	return year, nil
}

func scanClass(s rowScanner) (school.Class, error) {
	var class school.Class
	var teacherID sql.NullString
	err := s.Scan(&class.ID, &class.Name, &class.DepartmentID, &teacherID, &class.AcademicYearID, &class.Capacity, &class.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.Class{}, school.ErrNotFound
		}
		return school.Class{}, errors.Wrap(err, "scanning class")
	}
	class.ClassTeacherID = teacherID.String
	return class, nil
}

func scanCourse(s rowScanner) (school.Course, error) {
	var course school.Course
	err := s.Scan(&course.ID, &course.Name, &course.Code, &course.DepartmentID, &course.Description, &course.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.Course{}, school.ErrNotFound
		}
		return school.Course{}, errors.Wrap(err, "scanning course")
	}
	return course, nil
}

func scanStudent(s rowScanner) (school.Student, error) {
	var std school.Student
	var classID sql.NullString
	err := s.Scan(
		&std.ID, &std.AdmissionNumber, &std.FirstName, &std.LastName, &std.MiddleName,
		&std.Gender, &std.DateOfBirth, &classID, &std.GuardianName, &std.GuardianPhone,
		&std.GuardianEmail, &std.GuardianAddress, &std.IsActive, &std.EnrollmentDate, &std.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.Student{}, school.ErrNotFound
		}
		return school.Student{}, errors.Wrap(err, "scanning student")
	}
	std.CurrentClassID = classID.String
	return std, nil
}

func scanAssignment(s rowScanner) (school.TeacherAssignment, error) {
	var ta school.TeacherAssignment
	err := s.Scan(&ta.ID, &ta.TeacherID, &ta.CourseID, &ta.ClassID, &ta.AcademicYearID, &ta.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.TeacherAssignment{}, school.ErrNotFound
		}
		return school.TeacherAssignment{}, errors.Wrap(err, "scanning teacher assignment")
	}
	return ta, nil
}

func scanQuarter(s rowScanner) (school.Quarter, error) {
	var qtr school.Quarter
	err := s.Scan(&qtr.ID, &qtr.Name, &qtr.AcademicYearID, &qtr.StartDate, &qtr.EndDate, &qtr.IsActive, &qtr.IsLocked)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.Quarter{}, school.ErrNotFound
		}
		return school.Quarter{}, errors.Wrap(err, "scanning quarter")
	}
	return qtr, nil
}

func scanSemester(s rowScanner) (school.Semester, error) {
	var sem school.Semester
	err := s.Scan(&sem.ID, &sem.Name, &sem.AcademicYearID, &sem.Quarter1ID, &sem.Quarter2ID, &sem.IsLocked)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.Semester{}, school.ErrNotFound
		}
		return school.Semester{}, errors.Wrap(err, "scanning semester")
	}
	return sem, nil
}

// departments

func (repo *schoolRepository) CreateDepartment(ctx context.Context, dep school.Department, exec ...core.DBExecutor) (school.Department, error) {
	q := `
	INSERT INTO departments (name, code, description, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + departmentColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q, dep.Name, dep.Code, dep.Description, dep.CreatedAt)
	created, err := scanDepartment(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.Department{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QueryDepartments(ctx context.Context, exec ...core.DBExecutor) ([]school.Department, error) {
	q := "SELECT " + departmentColumns + " FROM departments ORDER BY name ASC"
	rows, err := executor(repo.db, exec).QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying departments")
	}
	defer func() { _ = rows.Close() }()

	var deps []school.Department
	for rows.Next() {
		dep, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, errors.Wrap(rows.Err(), "querying departments")
}

func (repo *schoolRepository) GetDepartment(ctx context.Context, id string, exec ...core.DBExecutor) (school.Department, error) {
	q := "SELECT " + departmentColumns + " FROM departments WHERE id = $1"
	return scanDepartment(executor(repo.db, exec).QueryRowContext(ctx, q, id))
}

// academic years

func (repo *schoolRepository) CreateAcademicYear(ctx context.Context, year school.AcademicYear, exec ...core.DBExecutor) (school.AcademicYear, error) {
	q := `
	INSERT INTO academic_years (name, start_date, end_date, is_active, created_at)
	VALUES ($1, $2, $3, FALSE, $4)
	RETURNING ` + yearColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q, year.Name, year.StartDate, year.EndDate, year.CreatedAt)
	created, err := scanYear(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.AcademicYear{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QueryAcademicYears(ctx context.Context, exec ...core.DBExecutor) ([]school.AcademicYear, error) {
	q := "SELECT " + yearColumns + " FROM academic_years ORDER BY start_date ASC"
	rows, err := executor(repo.db, exec).QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying academic years")
	}
	defer func() { _ = rows.Close() }()

	var years []school.AcademicYear
	for rows.Next() {
		year, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		years = append(years, year)
	}
	return years, errors.Wrap(rows.Err(), "querying academic years")
}

func (repo *schoolRepository) GetAcademicYear(ctx context.Context, id string, exec ...core.DBExecutor) (school.AcademicYear, error) {
	q := "SELECT " + yearColumns + " FROM academic_years WHERE id = $1"
	return scanYear(executor(repo.db, exec).QueryRowContext(ctx, q, id))
}

func (repo *schoolRepository) GetActiveAcademicYear(ctx context.Context, exec ...core.DBExecutor) (school.AcademicYear, error) {
	q := "SELECT " + yearColumns + " FROM academic_years WHERE is_active"
	return scanYear(executor(repo.db, exec).QueryRowContext(ctx, q))
}

func (repo *schoolRepository) ActivateAcademicYear(ctx context.Context, id string, exec ...core.DBExecutor) (school.AcademicYear, error) {
	var year school.AcademicYear
	err := runInTx(ctx, repo.db, exec, func(ex core.DBExecutor) error {
		if _, err := ex.ExecContext(ctx, "UPDATE academic_years SET is_active = FALSE WHERE is_active AND id <> $1", id); err != nil {
			return errors.Wrap(err, "deactivating academic years")
		}
		q := "UPDATE academic_years SET is_active = TRUE WHERE id = $1 RETURNING " + yearColumns
		var err error
		year, err = scanYear(ex.QueryRowContext(ctx, q, id))
		return err
	})
	return year, err
}

// classes

func (repo *schoolRepository) CreateClass(ctx context.Context, class school.Class, exec ...core.DBExecutor) (school.Class, error) {
	q := `
	INSERT INTO classes (name, department_id, class_teacher_id, academic_year_id, capacity, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + classColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		class.Name, class.DepartmentID, nullString(class.ClassTeacherID),
		class.AcademicYearID, class.Capacity, class.CreatedAt,
	)
	created, err := scanClass(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.Class{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QueryClasses(ctx context.Context, yearID string, exec ...core.DBExecutor) ([]school.Class, error) {
	q := "SELECT " + classColumns + " FROM classes"
	var args []interface{}
	if yearID != "" {
		q += " WHERE academic_year_id = $1"
		args = append(args, yearID)
	}
	q += " ORDER BY name ASC"

	rows, err := executor(repo.db, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	defer func() { _ = rows.Close() }()

	var classes []school.Class
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, errors.Wrap(rows.Err(), "querying classes")
}

func (repo *schoolRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (school.Class, error) {
	q := "SELECT " + classColumns + " FROM classes WHERE id = $1"
	return scanClass(executor(repo.db, exec).QueryRowContext(ctx, q, id))
}

// courses

func (repo *schoolRepository) CreateCourse(ctx context.Context, course school.Course, exec ...core.DBExecutor) (school.Course, error) {
	q := `
	INSERT INTO courses (name, code, department_id, description, created_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + courseColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		course.Name, course.Code, course.DepartmentID, course.Description, course.CreatedAt,
	)
	created, err := scanCourse(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.Course{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]school.Course, error) {
	q := "SELECT " + courseColumns + " FROM courses ORDER BY name ASC"
	rows, err := executor(repo.db, exec).QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	defer func() { _ = rows.Close() }()

	var courses []school.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, errors.Wrap(rows.Err(), "querying courses")
}

func (repo *schoolRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (school.Course, error) {
	q := "SELECT " + courseColumns + " FROM courses WHERE id = $1"
	return scanCourse(executor(repo.db, exec).QueryRowContext(ctx, q, id))
}

// students

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	q := `
	INSERT INTO students (
		admission_number, first_name, last_name, middle_name, gender, date_of_birth,
		current_class_id, guardian_name, guardian_phone, guardian_email, guardian_address,
		is_active, enrollment_date, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING ` + studentColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		std.AdmissionNumber, std.FirstName, std.LastName, std.MiddleName, std.Gender, std.DateOfBirth,
		nullString(std.CurrentClassID), std.GuardianName, std.GuardianPhone, std.GuardianEmail,
		std.GuardianAddress, std.IsActive, std.EnrollmentDate, std.CreatedAt,
	)
	created, err := scanStudent(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.Student{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, filter *school.StudentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Student, error) {
	q := "SELECT " + studentColumns + " FROM students"
	var clauses []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			clauses = append(clauses, fmt.Sprintf(
				"(concat_ws(' ', first_name, middle_name, last_name) ILIKE %[1]s OR admission_number ILIKE %[1]s)", p))
		}
		if filter.ClassID != "" {
			clauses = append(clauses, "current_class_id = "+arg(filter.ClassID))
		}
		if filter.IsActive != nil {
			clauses = append(clauses, "is_active = "+arg(*filter.IsActive))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering, "admission_number ASC")

	rows, err := executor(repo.db, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	defer func() { _ = rows.Close() }()

	var students []school.Student
	for rows.Next() {
		std, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, std)
	}
	return students, errors.Wrap(rows.Err(), "querying students")
}

func (repo *schoolRepository) GetStudent(ctx context.Context, filter school.GetStudentFilter, exec ...core.DBExecutor) (school.Student, error) {
	q := "SELECT " + studentColumns + " FROM students WHERE "
	var arg interface{}
	switch {
	case filter.ID != "":
		q += "id = $1"
		arg = filter.ID
	case filter.AdmissionNumber != "":
		q += "admission_number = $1"
		arg = filter.AdmissionNumber
	default:
		return school.Student{}, school.ErrNotFound
	}
	return scanStudent(executor(repo.db, exec).QueryRowContext(ctx, q, arg))
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student, isActive *bool, classID *string, exec ...core.DBExecutor) (school.Student, error) {
	// only save set fields
	var sets []string
	var args []interface{}
	set := func(column string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if std.FirstName != "" {
		set("first_name", std.FirstName)
	}
	if std.LastName != "" {
		set("last_name", std.LastName)
	}
	if std.MiddleName != "" {
		set("middle_name", std.MiddleName)
	}
	if std.Gender != "" {
		set("gender", std.Gender)
	}
	if !std.DateOfBirth.IsZero() {
		set("date_of_birth", std.DateOfBirth)
	}
	if std.GuardianName != "" {
		set("guardian_name", std.GuardianName)
	}
	if std.GuardianPhone != "" {
		set("guardian_phone", std.GuardianPhone)
	}
	if std.GuardianEmail != "" {
		set("guardian_email", std.GuardianEmail)
	}
	if std.GuardianAddress != "" {
		set("guardian_address", std.GuardianAddress)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if classID != nil {
		set("current_class_id", nullString(*classID))
	}
	if len(sets) == 0 {
		return repo.GetStudent(ctx, school.GetStudentFilter{ID: std.ID}, exec...)
	}

	args = append(args, std.ID)
	q := fmt.Sprintf("UPDATE students SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), studentColumns)
	return scanStudent(executor(repo.db, exec).QueryRowContext(ctx, q, args...))
}

func (repo *schoolRepository) UpdateStudentsByID(ctx context.Context, ids []string, isActive *bool, classID *string, exec ...core.DBExecutor) (int, error) {
	var sets []string
	var args []interface{}
	set := func(column string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if classID != nil {
		set("current_class_id", nullString(*classID))
	}
	if len(sets) == 0 {
		return 0, nil
	}

	args = append(args, pq.Array(ids))
	q := fmt.Sprintf("UPDATE students SET %s WHERE id = ANY($%d)", strings.Join(sets, ", "), len(args))
	res, err := executor(repo.db, exec).ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "updating students")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "updating students")
}

// teacher assignments

func (repo *schoolRepository) CreateAssignment(ctx context.Context, ta school.TeacherAssignment, exec ...core.DBExecutor) (school.TeacherAssignment, error) {
	q := `
	INSERT INTO teacher_assignments (teacher_id, course_id, class_id, academic_year_id, created_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + assignmentColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		ta.TeacherID, ta.CourseID, ta.ClassID, ta.AcademicYearID, ta.CreatedAt,
	)
	created, err := scanAssignment(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.TeacherAssignment{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QueryAssignments(ctx context.Context, filter *school.AssignmentFilter, exec ...core.DBExecutor) ([]school.TeacherAssignment, error) {
	q := "SELECT " + assignmentColumns + " FROM teacher_assignments"
	var clauses []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.TeacherID != "" {
			clauses = append(clauses, "teacher_id = "+arg(filter.TeacherID))
		}
		if filter.CourseID != "" {
			clauses = append(clauses, "course_id = "+arg(filter.CourseID))
		}
		if filter.ClassID != "" {
			clauses = append(clauses, "class_id = "+arg(filter.ClassID))
		}
		if filter.AcademicYearID != "" {
			clauses = append(clauses, "academic_year_id = "+arg(filter.AcademicYearID))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY created_at ASC"

	rows, err := executor(repo.db, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	defer func() { _ = rows.Close() }()

	var assignments []school.TeacherAssignment
	for rows.Next() {
		ta, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, ta)
	}
	return assignments, errors.Wrap(rows.Err(), "querying teacher assignments")
}

func (repo *schoolRepository) DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := executor(repo.db, exec).ExecContext(ctx, "DELETE FROM teacher_assignments WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting teacher assignments")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting teacher assignments")
}

func (repo *schoolRepository) AssignmentExists(ctx context.Context, teacherID, courseID, classID, yearID string, exec ...core.DBExecutor) (bool, error) {
	q := `
	SELECT EXISTS (
		SELECT 1 FROM teacher_assignments
		WHERE teacher_id = $1 AND course_id = $2 AND class_id = $3 AND academic_year_id = $4
	)`
	var exists bool
	err := executor(repo.db, exec).QueryRowContext(ctx, q, teacherID, courseID, classID, yearID).Scan(&exists)
	return exists, errors.Wrap(err, "checking teacher assignment")
}

// quarters

func (repo *schoolRepository) CreateQuarter(ctx context.Context, qtr school.Quarter, exec ...core.DBExecutor) (school.Quarter, error) {
	q := `
	INSERT INTO quarters (name, academic_year_id, start_date, end_date, is_active, is_locked)
	VALUES ($1, $2, $3, $4, FALSE, FALSE)
	RETURNING ` + quarterColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		qtr.Name, qtr.AcademicYearID, qtr.StartDate, qtr.EndDate,
	)
	created, err := scanQuarter(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.Quarter{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QueryQuarters(ctx context.Context, filter *school.QuarterFilter, exec ...core.DBExecutor) ([]school.Quarter, error) {
	q := "SELECT " + quarterColumns + " FROM quarters"
	var clauses []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.AcademicYearID != "" {
			clauses = append(clauses, "academic_year_id = "+arg(filter.AcademicYearID))
		}
		if filter.IsActive != nil {
			clauses = append(clauses, "is_active = "+arg(*filter.IsActive))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY name ASC"

	rows, err := executor(repo.db, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying quarters")
	}
	defer func() { _ = rows.Close() }()

	var quarters []school.Quarter
	for rows.Next() {
		qtr, err := scanQuarter(rows)
		if err != nil {
			return nil, err
		}
		quarters = append(quarters, qtr)
	}
	return quarters, errors.Wrap(rows.Err(), "querying quarters")
}

func (repo *schoolRepository) GetQuarter(ctx context.Context, id string, exec ...core.DBExecutor) (school.Quarter, error) {
	q := "SELECT " + quarterColumns + " FROM quarters WHERE id = $1"
	return scanQuarter(executor(repo.db, exec).QueryRowContext(ctx, q, id))
}

func (repo *schoolRepository) GetActiveQuarter(ctx context.Context, exec ...core.DBExecutor) (school.Quarter, error) {
	q := "SELECT " + quarterColumns + " FROM quarters WHERE is_active"
	return scanQuarter(executor(repo.db, exec).QueryRowContext(ctx, q))
}

func (repo *schoolRepository) ActivateQuarter(ctx context.Context, id string, exec ...core.DBExecutor) (school.Quarter, error) {
	var qtr school.Quarter
	err := runInTx(ctx, repo.db, exec, func(ex core.DBExecutor) error {
		if _, err := ex.ExecContext(ctx, "UPDATE quarters SET is_active = FALSE WHERE is_active AND id <> $1", id); err != nil {
			return errors.Wrap(err, "deactivating quarters")
		}
		q := "UPDATE quarters SET is_active = TRUE WHERE id = $1 RETURNING " + quarterColumns
		var err error
		qtr, err = scanQuarter(ex.QueryRowContext(ctx, q, id))
		return err
	})
	return qtr, err
}

func (repo *schoolRepository) SetQuarterLocked(ctx context.Context, id string, locked bool, exec ...core.DBExecutor) (school.Quarter, error) {
	q := "UPDATE quarters SET is_locked = $2 WHERE id = $1 RETURNING " + quarterColumns
	return scanQuarter(executor(repo.db, exec).QueryRowContext(ctx, q, id, locked))
}

// semesters

func (repo *schoolRepository) CreateSemester(ctx context.Context, sem school.Semester, exec ...core.DBExecutor) (school.Semester, error) {
	q := `
	INSERT INTO semesters (name, academic_year_id, quarter_1_id, quarter_2_id, is_locked)
	VALUES ($1, $2, $3, $4, FALSE)
	RETURNING ` + semesterColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		sem.Name, sem.AcademicYearID, sem.Quarter1ID, sem.Quarter2ID,
	)
	created, err := scanSemester(row)
	if err != nil && isUniqueViolation(errors.Cause(err)) {
		return school.Semester{}, school.ErrAlreadyExists
	}
	return created, err
}

func (repo *schoolRepository) QuerySemesters(ctx context.Context, yearID string, exec ...core.DBExecutor) ([]school.Semester, error) {
	q := "SELECT " + semesterColumns + " FROM semesters"
	var args []interface{}
	if yearID != "" {
		q += " WHERE academic_year_id = $1"
		args = append(args, yearID)
	}
	q += " ORDER BY name ASC"

	rows, err := executor(repo.db, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying semesters")
	}
	defer func() { _ = rows.Close() }()

	var semesters []school.Semester
	for rows.Next() {
		sem, err := scanSemester(rows)
		if err != nil {
			return nil, err
		}
		semesters = append(semesters, sem)
	}
	return semesters, errors.Wrap(rows.Err(), "querying semesters")
}

func (repo *schoolRepository) GetSemester(ctx context.Context, id string, exec ...core.DBExecutor) (school.Semester, error) {
	q := "SELECT " + semesterColumns + " FROM semesters WHERE id = $1"
	return scanSemester(executor(repo.db, exec).QueryRowContext(ctx, q, id))
}

func (repo *schoolRepository) SetSemesterLocked(ctx context.Context, id string, locked bool, exec ...core.DBExecutor) (school.Semester, error) {
	q := "UPDATE semesters SET is_locked = $2 WHERE id = $1 RETURNING " + semesterColumns
	return scanSemester(executor(repo.db, exec).QueryRowContext(ctx, q, id, locked))
}

package school

import (
	"strings"
	"time"

	"github.com/kayembi/shule/core"
)

// Quarter names
const (
	QuarterQ1 = "Q1"
	QuarterQ2 = "Q2"
	QuarterQ3 = "Q3"
	QuarterQ4 = "Q4"
)

// Semester names
const (
	SemesterS1 = "S1" // Q1 + Q2
	SemesterS2 = "S2" // Q3 + Q4
)

type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type AcademicYear struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"` // e.g. "2024/2025"
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Class struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"` // e.g. "Grade 1A"
	DepartmentID   string    `json:"department_id"`
	ClassTeacherID string    `json:"class_teacher_id,omitempty"`
	AcademicYearID string    `json:"academic_year_id"`
	Capacity       int       `json:"capacity"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

type Course struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	DepartmentID string    `json:"department_id"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

type Student struct {
	ID              string    `json:"id"`
	AdmissionNumber string    `json:"admission_number"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	MiddleName      string    `json:"middle_name,omitempty"`
	Gender          string    `json:"gender"` // M | F
	DateOfBirth     time.Time `json:"date_of_birth"`

	// CurrentClassID is empty when the student is not assigned to a class.
	CurrentClassID string `json:"current_class_id,omitempty"`

	GuardianName    string `json:"guardian_name"`
	GuardianPhone   string `json:"guardian_phone"`
	GuardianEmail   string `json:"guardian_email,omitempty"`
	GuardianAddress string `json:"guardian_address,omitempty"`

	IsActive       bool      `json:"is_active"` // soft delete flag
	EnrollmentDate time.Time `json:"enrollment_date"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

func (s *Student) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.FirstName, s.MiddleName, s.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// TeacherAssignment grants a teacher authority to enter results for a course
// within a class during an academic year. The tuple is unique.
type TeacherAssignment struct {
	ID             string    `json:"id"`
	TeacherID      string    `json:"teacher_id"`
	CourseID       string    `json:"course_id"`
	ClassID        string    `json:"class_id"`
	AcademicYearID string    `json:"academic_year_id"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

type Quarter struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"` // Q1..Q4, unique per year
	AcademicYearID string    `json:"academic_year_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	IsActive       bool      `json:"is_active"`
	IsLocked       bool      `json:"is_locked"` // blocks all result writes for this quarter
}

// Semester pairs two quarters of the same academic year for roll-up reporting.
type Semester struct {
	ID             string `json:"id"`
	Name           string `json:"name"` // S1 | S2, unique per year
	AcademicYearID string `json:"academic_year_id"`
	Quarter1ID     string `json:"quarter_1_id"`
	Quarter2ID     string `json:"quarter_2_id"`
	IsLocked       bool   `json:"is_locked"`
}

// Payloads

type NewDepartment struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,max=10"`
	Description string `json:"description"`
}

func (nd *NewDepartment) Validate() error {
	nd.Name = core.CleanString(nd.Name)
	nd.Code = core.CleanString(nd.Code, true /* lower */)
	return core.Validate.Struct(nd)
}

type NewAcademicYear struct {
	Name      string    `json:"name" validate:"required,max=20"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (ny *NewAcademicYear) Validate() error {
	ny.Name = core.CleanString(ny.Name)
	return core.Validate.Struct(ny)
}

type NewClass struct {
	Name           string `json:"name" validate:"required,max=50"`
	DepartmentID   string `json:"department_id" validate:"required,uuid"`
	ClassTeacherID string `json:"class_teacher_id" validate:"omitempty,uuid"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid"`
	Capacity       int    `json:"capacity" validate:"omitempty,gt=0"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	return core.Validate.Struct(nc)
}

type NewCourse struct {
	Name         string `json:"name" validate:"required,max=100"`
	Code         string `json:"code" validate:"required,max=20"`
	DepartmentID string `json:"department_id" validate:"required,uuid"`
	Description  string `json:"description"`
}

func (nc *NewCourse) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	return core.Validate.Struct(nc)
}

type NewStudent struct {
	AdmissionNumber string    `json:"admission_number" validate:"required,max=20"`
	FirstName       string    `json:"first_name" validate:"required,max=50"`
	LastName        string    `json:"last_name" validate:"required,max=50"`
	MiddleName      string    `json:"middle_name" validate:"omitempty,max=50"`
	Gender          string    `json:"gender" validate:"required,oneof=M F"`
	DateOfBirth     time.Time `json:"date_of_birth" validate:"required"`
	CurrentClassID  string    `json:"current_class_id" validate:"omitempty,uuid"`
	GuardianName    string    `json:"guardian_name" validate:"required,max=100"`
	GuardianPhone   string    `json:"guardian_phone" validate:"required,max=15"`
	GuardianEmail   string    `json:"guardian_email" validate:"omitempty,email"`
	GuardianAddress string    `json:"guardian_address"`
}

func (ns *NewStudent) Validate() error {
	ns.AdmissionNumber = core.CleanString(ns.AdmissionNumber, true /* lower */)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.MiddleName = core.CleanString(ns.MiddleName)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.GuardianEmail = core.CleanString(ns.GuardianEmail, true /* lower */)
	return core.Validate.Struct(ns)
}

type UpdateStudent struct {
	FirstName       string    `json:"first_name" validate:"omitempty,max=50"`
	LastName        string    `json:"last_name" validate:"omitempty,max=50"`
	MiddleName      string    `json:"middle_name" validate:"omitempty,max=50"`
	Gender          string    `json:"gender" validate:"omitempty,oneof=M F"`
	DateOfBirth     time.Time `json:"date_of_birth"`
	CurrentClassID  *string   `json:"current_class_id" validate:"omitempty"`
	GuardianName    string    `json:"guardian_name" validate:"omitempty,max=100"`
	GuardianPhone   string    `json:"guardian_phone" validate:"omitempty,max=15"`
	GuardianEmail   string    `json:"guardian_email" validate:"omitempty,email"`
	GuardianAddress string    `json:"guardian_address"`
	IsActive        *bool     `json:"is_active"`
}

func (us *UpdateStudent) Validate() error {
	us.FirstName = core.CleanString(us.FirstName)
	us.LastName = core.CleanString(us.LastName)
	us.MiddleName = core.CleanString(us.MiddleName)
	us.GuardianName = core.CleanString(us.GuardianName)
	us.GuardianEmail = core.CleanString(us.GuardianEmail, true /* lower */)
	return core.Validate.Struct(us)
}

type NewAssignment struct {
	TeacherID      string `json:"teacher_id" validate:"required,uuid"`
	CourseID       string `json:"course_id" validate:"required,uuid"`
	ClassID        string `json:"class_id" validate:"required,uuid"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid"`
}

func (na *NewAssignment) Validate() error { return core.Validate.Struct(na) }

type NewQuarter struct {
	Name           string    `json:"name" validate:"required,oneof=Q1 Q2 Q3 Q4"`
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (nq *NewQuarter) Validate() error { return core.Validate.Struct(nq) }

type NewSemester struct {
	Name           string `json:"name" validate:"required,oneof=S1 S2"`
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid"`
	Quarter1ID     string `json:"quarter_1_id" validate:"required,uuid"`
	Quarter2ID     string `json:"quarter_2_id" validate:"required,uuid,nefield=Quarter1ID"`
}

func (ns *NewSemester) Validate() error { return core.Validate.Struct(ns) }

// Filters

type StudentFilter struct {
	Search   string `query:"search"` // matches name fields or admission number
	ClassID  string `query:"class_id"`
	IsActive *bool  `query:"is_active"`
}

func (f *StudentFilter) Clean() {
	f.Search = core.CleanString(f.Search)
}

type AssignmentFilter struct {
	TeacherID      string `query:"teacher_id"`
	CourseID       string `query:"course_id"`
	ClassID        string `query:"class_id"`
	AcademicYearID string `query:"academic_year_id"`
}

type QuarterFilter struct {
	AcademicYearID string `query:"academic_year_id"`
	IsActive       *bool  `query:"is_active"`
}

// GetStudentFilter looks a Student up by exactly one of its unique keys.
type GetStudentFilter struct {
	ID              string
	AdmissionNumber string
}

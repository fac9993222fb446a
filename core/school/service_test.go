package school_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/school"
	"github.com/kayembi/shule/core/user"
	dummydb "github.com/kayembi/shule/storage/database/dummy"
)

func newService(t *testing.T) school.Service {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening dummy db: %v", err)
	}
	return school.NewService(dummydb.NewSchoolRepository(db))
}

func createYear(t *testing.T, svc school.Service, name string) school.AcademicYear {
	t.Helper()
	start := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	year, err := svc.CreateAcademicYear(context.Background(), school.NewAcademicYear{
		Name:      name,
		StartDate: start,
		EndDate:   start.AddDate(1, 0, 0),
	})
	if err != nil {
		t.Fatalf("creating year %s: %v", name, err)
	}
	return year
}

func createQuarter(t *testing.T, svc school.Service, name, yearID string) school.Quarter {
	t.Helper()
	start := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	qtr, err := svc.CreateQuarter(context.Background(), school.NewQuarter{
		Name:           name,
		AcademicYearID: yearID,
		StartDate:      start,
		EndDate:        start.AddDate(0, 3, 0),
	})
	if err != nil {
		t.Fatalf("creating quarter %s: %v", name, err)
	}
	return qtr
}

func TestActivateAcademicYear(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	years := make([]school.AcademicYear, 3)
	for i := range years {
		years[i] = createYear(t, svc, fmt.Sprintf("202%d/202%d", i+4, i+5))
	}

	// no active year yet
	_, err := svc.ActiveAcademicYear(ctx)
	assert.Equal(t, school.ErrNotFound, err)

	_, err = svc.ActivateAcademicYear(ctx, years[0].ID)
	assert.NoError(t, err)

	// activating another year swaps, never stacks
	_, err = svc.ActivateAcademicYear(ctx, years[2].ID)
	assert.NoError(t, err)

	all, err := svc.QueryAcademicYears(ctx)
	assert.NoError(t, err)
	var activeCount int
	for _, year := range all {
		if year.IsActive {
			activeCount++
			assert.Equal(t, years[2].ID, year.ID)
		}
	}
	assert.Equal(t, 1, activeCount)

	_, err = svc.ActivateAcademicYear(ctx, uuid.New().String())
	assert.Equal(t, school.ErrNotFound, err)
}

func TestActivateQuarter(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	yearA := createYear(t, svc, "2024/2025")
	yearB := createYear(t, svc, "2025/2026")
	q1A := createQuarter(t, svc, school.QuarterQ1, yearA.ID)
	q2A := createQuarter(t, svc, school.QuarterQ2, yearA.ID)
	q1B := createQuarter(t, svc, school.QuarterQ1, yearB.ID)

	_, err := svc.ActivateQuarter(ctx, q1A.ID)
	assert.NoError(t, err)
	_, err = svc.ActivateQuarter(ctx, q2A.ID)
	assert.NoError(t, err)
	// activation is exclusive across years too
	_, err = svc.ActivateQuarter(ctx, q1B.ID)
	assert.NoError(t, err)

	all, err := svc.QueryQuarters(ctx, nil)
	assert.NoError(t, err)
	var activeCount int
	for _, qtr := range all {
		if qtr.IsActive {
			activeCount++
			assert.Equal(t, q1B.ID, qtr.ID)
		}
	}
	assert.Equal(t, 1, activeCount)

	active, err := svc.ActiveQuarter(ctx)
	assert.NoError(t, err)
	assert.Equal(t, q1B.ID, active.ID)
}

func TestQuarterUniquePerYear(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	year := createYear(t, svc, "2024/2025")
	createQuarter(t, svc, school.QuarterQ1, year.ID)

	start := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateQuarter(ctx, school.NewQuarter{
		Name:           school.QuarterQ1,
		AcademicYearID: year.ID,
		StartDate:      start,
		EndDate:        start.AddDate(0, 3, 0),
	})
	assert.IsType(t, &core.ValidationError{}, err)
}

func TestCreateSemester(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	yearA := createYear(t, svc, "2024/2025")
	yearB := createYear(t, svc, "2025/2026")
	q1 := createQuarter(t, svc, school.QuarterQ1, yearA.ID)
	q2 := createQuarter(t, svc, school.QuarterQ2, yearA.ID)
	q1B := createQuarter(t, svc, school.QuarterQ1, yearB.ID)

	sem, err := svc.CreateSemester(ctx, school.NewSemester{
		Name:           school.SemesterS1,
		AcademicYearID: yearA.ID,
		Quarter1ID:     q1.ID,
		Quarter2ID:     q2.ID,
	})
	assert.NoError(t, err)
	assert.False(t, sem.IsLocked)

	// quarters must belong to the semester's year
	_, err = svc.CreateSemester(ctx, school.NewSemester{
		Name:           school.SemesterS2,
		AcademicYearID: yearA.ID,
		Quarter1ID:     q1.ID,
		Quarter2ID:     q1B.ID,
	})
	assert.IsType(t, &core.ValidationError{}, err)

	locked, err := svc.SetSemesterLocked(ctx, sem.ID, true)
	assert.NoError(t, err)
	assert.True(t, locked.IsLocked)
}

func TestIsAuthorized(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	admin := user.User{ID: uuid.New().String(), Roles: []string{user.RoleAdminPrincipal}}
	teacher := user.User{ID: uuid.New().String(), Roles: []string{user.RoleTeacher}}
	courseID, classID := uuid.New().String(), uuid.New().String()

	// admins need no assignment
	ok, err := svc.IsAuthorized(ctx, admin, courseID, classID)
	assert.NoError(t, err)
	assert.True(t, ok)

	// no active year: teachers are denied
	ok, err = svc.IsAuthorized(ctx, teacher, courseID, classID)
	assert.NoError(t, err)
	assert.False(t, ok)

	year := createYear(t, svc, "2024/2025")
	_, err = svc.ActivateAcademicYear(ctx, year.ID)
	assert.NoError(t, err)

	// still no assignment
	ok, err = svc.IsAuthorized(ctx, teacher, courseID, classID)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CreateAssignment(ctx, school.NewAssignment{
		TeacherID:      teacher.ID,
		CourseID:       courseID,
		ClassID:        classID,
		AcademicYearID: year.ID,
	})
	assert.NoError(t, err)

	ok, err = svc.IsAuthorized(ctx, teacher, courseID, classID)
	assert.NoError(t, err)
	assert.True(t, ok)

	// assignment does not leak to another class
	ok, err = svc.IsAuthorized(ctx, teacher, courseID, uuid.New().String())
	assert.NoError(t, err)
	assert.False(t, ok)

	// assignments outside the active year grant nothing
	otherYear := createYear(t, svc, "2025/2026")
	_, err = svc.ActivateAcademicYear(ctx, otherYear.ID)
	assert.NoError(t, err)
	ok, err = svc.IsAuthorized(ctx, teacher, courseID, classID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStudentBulkActions(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	year := createYear(t, svc, "2024/2025")
	dep, err := svc.CreateDepartment(ctx, school.NewDepartment{Name: "Sciences", Code: "sci"})
	assert.NoError(t, err)
	class, err := svc.CreateClass(ctx, school.NewClass{
		Name:           "Grade 1A",
		DepartmentID:   dep.ID,
		AcademicYearID: year.ID,
		Capacity:       40,
	})
	assert.NoError(t, err)

	ids := make([]string, 3)
	for i := range ids {
		std, serr := svc.CreateStudent(ctx, school.NewStudent{
			AdmissionNumber: fmt.Sprintf("adm-%03d", i+1),
			FirstName:       "Student",
			LastName:        fmt.Sprintf("Num%d", i+1),
			Gender:          "F",
			DateOfBirth:     time.Date(2012, time.March, 10, 0, 0, 0, 0, time.UTC),
			GuardianName:    "Guardian",
			GuardianPhone:   "+255700000000",
		})
		assert.NoError(t, serr)
		ids[i] = std.ID
	}

	n, err := svc.BulkTransferStudents(ctx, ids, class.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	inClass := true
	students, err := svc.QueryStudents(ctx, &school.StudentFilter{ClassID: class.ID, IsActive: &inClass})
	assert.NoError(t, err)
	assert.Len(t, students, 3)

	// transfers to unknown classes are refused
	_, err = svc.BulkTransferStudents(ctx, ids, uuid.New().String())
	assert.Equal(t, school.ErrNotFound, err)

	n, err = svc.BulkSetStudentsActive(ctx, ids[:2], false)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	active := true
	students, err = svc.QueryStudents(ctx, &school.StudentFilter{IsActive: &active})
	assert.NoError(t, err)
	assert.Len(t, students, 1)
}

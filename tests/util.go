package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kayembi/shule/core/school"
	"github.com/kayembi/shule/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateAcademicYear(t *testing.T, repo school.Repository, name string, active bool) school.AcademicYear {
	now := time.Now().UTC()
	year, err := repo.CreateAcademicYear(context.Background(), school.AcademicYear{
		Name:      name,
		StartDate: now,
		EndDate:   now.AddDate(1, 0, 0),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAcademicYear() failed: %v", err)
	}
	if active {
		if year, err = repo.ActivateAcademicYear(context.Background(), year.ID); err != nil {
			t.Fatalf("ActivateAcademicYear() failed: %v", err)
		}
	}
	return year
}

func CreateQuarter(t *testing.T, repo school.Repository, name, yearID string) school.Quarter {
	now := time.Now().UTC()
	qtr, err := repo.CreateQuarter(context.Background(), school.Quarter{
		Name:           name,
		AcademicYearID: yearID,
		StartDate:      now,
		EndDate:        now.AddDate(0, 3, 0),
	})
	if err != nil {
		t.Fatalf("CreateQuarter() failed: %v", err)
	}
	return qtr
}

func CreateSemester(t *testing.T, repo school.Repository, name, yearID, q1ID, q2ID string) school.Semester {
	sem, err := repo.CreateSemester(context.Background(), school.Semester{
		Name:           name,
		AcademicYearID: yearID,
		Quarter1ID:     q1ID,
		Quarter2ID:     q2ID,
	})
	if err != nil {
		t.Fatalf("CreateSemester() failed: %v", err)
	}
	return sem
}

func CreateDepartment(t *testing.T, repo school.Repository, name, code string) school.Department {
	dep, err := repo.CreateDepartment(context.Background(), school.Department{
		Name:      name,
		Code:      code,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateDepartment() failed: %v", err)
	}
	return dep
}

func CreateClass(t *testing.T, repo school.Repository, name, depID, yearID string) school.Class {
	class, err := repo.CreateClass(context.Background(), school.Class{
		Name:           name,
		DepartmentID:   depID,
		AcademicYearID: yearID,
		Capacity:       40,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return class
}

func CreateCourse(t *testing.T, repo school.Repository, name, code, depID string) school.Course {
	course, err := repo.CreateCourse(context.Background(), school.Course{
		Name:         name,
		Code:         code,
		DepartmentID: depID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

func CreateStudent(t *testing.T, repo school.Repository, admissionNumber, firstName, lastName, classID string) school.Student {
	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), school.Student{
		AdmissionNumber: admissionNumber,
		FirstName:       firstName,
		LastName:        lastName,
		Gender:          "M",
		DateOfBirth:     now.AddDate(-10, 0, 0),
		CurrentClassID:  classID,
		GuardianName:    "Guardian " + lastName,
		GuardianPhone:   "+243810000000",
		IsActive:        true,
		EnrollmentDate:  now,
		CreatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateAssignment(t *testing.T, repo school.Repository, teacherID, courseID, classID, yearID string) school.TeacherAssignment {
	ta, err := repo.CreateAssignment(context.Background(), school.TeacherAssignment{
		TeacherID:      teacherID,
		CourseID:       courseID,
		ClassID:        classID,
		AcademicYearID: yearID,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return ta
}

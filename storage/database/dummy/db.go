package dummydb

import (
	"sync"

	"github.com/kayembi/shule/core/result"
	"github.com/kayembi/shule/core/school"
	"github.com/kayembi/shule/core/user"
)

type (
	DB struct {
		user       *userTable
		department *departmentTable
		year       *yearTable
		class      *classTable
		course     *courseTable
		student    *studentTable
		assignment *assignmentTable
		quarter    *quarterTable
		semester   *semesterTable
		result     *resultTable
		semResult  *semResultTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
	departmentTable struct {
		sync.RWMutex
		table map[string]*school.Department
	}
	yearTable struct {
		sync.RWMutex
		table map[string]*school.AcademicYear
	}
	classTable struct {
		sync.RWMutex
		table map[string]*school.Class
	}
	courseTable struct {
		sync.RWMutex
		table map[string]*school.Course
	}
	studentTable struct {
		sync.RWMutex
		table map[string]*school.Student
	}
	assignmentTable struct {
		sync.RWMutex
		table map[string]*school.TeacherAssignment
	}
	quarterTable struct {
		sync.RWMutex
		table map[string]*school.Quarter
	}
	semesterTable struct {
		sync.RWMutex
		table map[string]*school.Semester
	}
	resultTable struct {
		sync.RWMutex
		table map[string]*result.QuarterlyResult
	}
	semResultTable struct {
		sync.RWMutex
		table map[string]*result.SemesterResult
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		department: &departmentTable{table: make(map[string]*school.Department)},
		year:       &yearTable{table: make(map[string]*school.AcademicYear)},
		class:      &classTable{table: make(map[string]*school.Class)},
		course:     &courseTable{table: make(map[string]*school.Course)},
		student:    &studentTable{table: make(map[string]*school.Student)},
		assignment: &assignmentTable{table: make(map[string]*school.TeacherAssignment)},
		quarter:    &quarterTable{table: make(map[string]*school.Quarter)},
		semester:   &semesterTable{table: make(map[string]*school.Semester)},
		result:     &resultTable{table: make(map[string]*result.QuarterlyResult)},
		semResult:  &semResultTable{table: make(map[string]*result.SemesterResult)},
	}
	return db, nil
}

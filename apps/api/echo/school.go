package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/school"
)

type schoolApi struct {
	svc school.Service
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc school.Service) {
	api := schoolApi{svc: svc}

	sg := g.Group("/school", jwt)

	// structure; writes are admin-only
	sg.GET("/departments", api.queryDepartments)
	sg.POST("/departments", api.createDepartment, adminMiddleware())
	sg.GET("/classes", api.queryClasses)
	sg.POST("/classes", api.createClass, adminMiddleware())
	sg.GET("/classes/:id", api.retrieveClass)
	sg.GET("/courses", api.queryCourses)
	sg.POST("/courses", api.createCourse, adminMiddleware())

	// students
	sg.GET("/students", api.queryStudents)
	sg.POST("/students", api.createStudent, adminMiddleware())
	sg.GET("/students/:id", api.retrieveStudent)
	sg.PUT("/students/:id", api.updateStudent, adminMiddleware())
	sg.POST("/students/bulk-activate", api.bulkActivateStudents, adminMiddleware())
	sg.POST("/students/bulk-deactivate", api.bulkDeactivateStudents, adminMiddleware())
	sg.POST("/students/bulk-transfer", api.bulkTransferStudents, adminMiddleware())

	// period registry
	sg.GET("/years", api.queryYears)
	sg.POST("/years", api.createYear, adminMiddleware())
	sg.GET("/years/active", api.activeYear)
	sg.POST("/years/:id/activate", api.activateYear, adminMiddleware())
	sg.GET("/quarters", api.queryQuarters)
	sg.POST("/quarters", api.createQuarter, adminMiddleware())
	sg.GET("/quarters/active", api.activeQuarter)
	sg.GET("/quarters/:id", api.retrieveQuarter)
	sg.POST("/quarters/:id/activate", api.activateQuarter, adminMiddleware())
	sg.POST("/quarters/:id/lock", api.lockQuarter, adminMiddleware())
	sg.POST("/quarters/:id/unlock", api.unlockQuarter, adminMiddleware())
	sg.GET("/semesters", api.querySemesters)
	sg.POST("/semesters", api.createSemester, adminMiddleware())
	sg.GET("/semesters/:id", api.retrieveSemester)
	sg.POST("/semesters/:id/lock", api.lockSemester, adminMiddleware())
	sg.POST("/semesters/:id/unlock", api.unlockSemester, adminMiddleware())

	// teacher assignments
	sg.GET("/assignments", api.queryAssignments, adminMiddleware())
	sg.POST("/assignments", api.createAssignment, adminMiddleware())
	sg.DELETE("/assignments", api.destroyAssignments, adminMiddleware())
}

// Handlers

func (api *schoolApi) createDepartment(ctx echo.Context) error {
	var data school.NewDepartment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDepartment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	dep, err := api.svc.CreateDepartment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, dep)
}

func (api *schoolApi) queryDepartments(ctx echo.Context) error {
	deps, err := api.svc.QueryDepartments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	if deps == nil {
		deps = []school.Department{}
	}
	return ctx.JSON(http.StatusOK, deps)
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	class, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryClasses(ctx.Request().Context(), ctx.QueryParam("academic_year_id"))
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	class, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *schoolApi) createCourse(ctx echo.Context) error {
	var data school.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	course, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *schoolApi) queryCourses(ctx echo.Context) error {
	courses, err := api.svc.QueryCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []school.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	filter := new(school.StudentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.QueryStudents(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	std, err := api.svc.GetStudentByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) bulkActivateStudents(ctx echo.Context) error {
	return api.bulkSetStudentsActive(ctx, true)
}

func (api *schoolApi) bulkDeactivateStudents(ctx echo.Context) error {
	return api.bulkSetStudentsActive(ctx, false)
}

func (api *schoolApi) bulkSetStudentsActive(ctx echo.Context, active bool) error {
	var data BulkStudentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkStudentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	n, err := api.svc.BulkSetStudentsActive(ctx.Request().Context(), data.IDs, active)
	if err != nil {
		return errors.Wrap(err, "bulk updating students")
	}
	return ctx.JSON(http.StatusOK, BulkResponse{Updated: n})
}

func (api *schoolApi) bulkTransferStudents(ctx echo.Context) error {
	var data BulkTransferRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkTransferRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	n, err := api.svc.BulkTransferStudents(ctx.Request().Context(), data.IDs, data.ClassID)
	if err != nil {
		return errors.Wrap(err, "bulk transferring students")
	}
	return ctx.JSON(http.StatusOK, BulkResponse{Updated: n})
}

func (api *schoolApi) createYear(ctx echo.Context) error {
	var data school.NewAcademicYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicYear")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	year, err := api.svc.CreateAcademicYear(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	return ctx.JSON(http.StatusCreated, year)
}

func (api *schoolApi) queryYears(ctx echo.Context) error {
	years, err := api.svc.QueryAcademicYears(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying academic years")
	}
	if years == nil {
		years = []school.AcademicYear{}
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *schoolApi) activeYear(ctx echo.Context) error {
	year, err := api.svc.ActiveAcademicYear(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "finding active academic year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *schoolApi) activateYear(ctx echo.Context) error {
	year, err := api.svc.ActivateAcademicYear(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "activating academic year")
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *schoolApi) createQuarter(ctx echo.Context) error {
	var data school.NewQuarter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuarter")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	qtr, err := api.svc.CreateQuarter(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating quarter")
	}
	return ctx.JSON(http.StatusCreated, qtr)
}

func (api *schoolApi) queryQuarters(ctx echo.Context) error {
	filter := new(school.QuarterFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Quarter{})
	}

	quarters, err := api.svc.QueryQuarters(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying quarters")
	}
	if quarters == nil {
		quarters = []school.Quarter{}
	}
	return ctx.JSON(http.StatusOK, quarters)
}

func (api *schoolApi) retrieveQuarter(ctx echo.Context) error {
	qtr, err := api.svc.GetQuarter(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding quarter by ID")
	}
	return ctx.JSON(http.StatusOK, qtr)
}

func (api *schoolApi) activeQuarter(ctx echo.Context) error {
	qtr, err := api.svc.ActiveQuarter(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "finding active quarter")
	}
	return ctx.JSON(http.StatusOK, qtr)
}

func (api *schoolApi) activateQuarter(ctx echo.Context) error {
	qtr, err := api.svc.ActivateQuarter(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "activating quarter")
	}
	return ctx.JSON(http.StatusOK, qtr)
}

func (api *schoolApi) lockQuarter(ctx echo.Context) error {
	return api.setQuarterLocked(ctx, true)
}

func (api *schoolApi) unlockQuarter(ctx echo.Context) error {
	return api.setQuarterLocked(ctx, false)
}

func (api *schoolApi) setQuarterLocked(ctx echo.Context, locked bool) error {
	qtr, err := api.svc.SetQuarterLocked(ctx.Request().Context(), ctx.Param("id"), locked)
	if err != nil {
		return errors.Wrap(err, "setting quarter lock")
	}
	return ctx.JSON(http.StatusOK, qtr)
}

func (api *schoolApi) createSemester(ctx echo.Context) error {
	var data school.NewSemester
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSemester")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sem, err := api.svc.CreateSemester(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating semester")
	}
	return ctx.JSON(http.StatusCreated, sem)
}

func (api *schoolApi) querySemesters(ctx echo.Context) error {
	semesters, err := api.svc.QuerySemesters(ctx.Request().Context(), ctx.QueryParam("academic_year_id"))
	if err != nil {
		return errors.Wrap(err, "querying semesters")
	}
	if semesters == nil {
		semesters = []school.Semester{}
	}
	return ctx.JSON(http.StatusOK, semesters)
}

func (api *schoolApi) retrieveSemester(ctx echo.Context) error {
	sem, err := api.svc.GetSemester(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding semester by ID")
	}
	return ctx.JSON(http.StatusOK, sem)
}

func (api *schoolApi) lockSemester(ctx echo.Context) error {
	return api.setSemesterLocked(ctx, true)
}

func (api *schoolApi) unlockSemester(ctx echo.Context) error {
	return api.setSemesterLocked(ctx, false)
}

func (api *schoolApi) setSemesterLocked(ctx echo.Context, locked bool) error {
	sem, err := api.svc.SetSemesterLocked(ctx.Request().Context(), ctx.Param("id"), locked)
	if err != nil {
		return errors.Wrap(err, "setting semester lock")
	}
	return ctx.JSON(http.StatusOK, sem)
}

func (api *schoolApi) createAssignment(ctx echo.Context) error {
	var data school.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ta, err := api.svc.CreateAssignment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, ta)
}

func (api *schoolApi) queryAssignments(ctx echo.Context) error {
	filter := new(school.AssignmentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.TeacherAssignment{})
	}

	assignments, err := api.svc.QueryAssignments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []school.TeacherAssignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *schoolApi) destroyAssignments(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.DeleteAssignments(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting assignments")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	BulkStudentRequest struct {
		IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
	}

	BulkTransferRequest struct {
		IDs     []string `json:"ids" validate:"required,min=1,dive,uuid"`
		ClassID string   `json:"class_id" validate:"required,uuid"`
	}

	BulkResponse struct {
		Updated int `json:"updated"`
	}
)

func (br *BulkStudentRequest) Validate() error { return core.Validate.Struct(br) }

func (br *BulkTransferRequest) Validate() error { return core.Validate.Struct(br) }

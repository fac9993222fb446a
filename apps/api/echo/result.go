package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/result"
	"github.com/kayembi/shule/core/user"
)

type resultApi struct {
	svc     result.Service
	userSvc user.Service
}

func registerResultAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc result.Service, userSvc user.Service) {
	api := resultApi{svc: svc, userSvc: userSvc}

	rg := g.Group("/results", jwt)

	// entry workflow
	rg.POST("", api.enterScore)
	rg.GET("", api.query)
	rg.POST("/submit", api.submit)

	// review workflow; the services enforce admin, the middleware just
	// short-circuits with a clean 403
	rg.GET("/approval-queue", api.approvalQueue, adminMiddleware())
	rg.POST("/bulk-approve", api.bulkApprove, adminMiddleware())
	rg.POST("/:id/approve", api.approve, adminMiddleware())
	rg.POST("/:id/reject", api.reject, adminMiddleware())

	// semester roll-ups
	rg.GET("/semesters/:id", api.querySemesterResults)
	rg.POST("/semesters/:id/compute", api.computeSemester, adminMiddleware())
	rg.PUT("/semester-results/:id/comments", api.updateSemesterComments)

	// reports
	rg.GET("/reports/class-performance", api.classPerformance)
	rg.GET("/reports/top-performers", api.topPerformers)
}

// Handlers

func (api *resultApi) enterScore(ctx echo.Context) error {
	var data result.ScoreEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreEntry")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.EnterScore(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "entering score")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *resultApi) submit(ctx echo.Context) error {
	var data result.SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.Submit(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "submitting results")
	}
	return ctx.JSON(http.StatusOK, BulkResponse{Updated: n})
}

func (api *resultApi) approve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Approve(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) reject(ctx echo.Context) error {
	var data result.Rejection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rejection")
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Reject(ctx.Request().Context(), actor, ctx.Param("id"), data.Reason)
	if err != nil {
		return errors.Wrap(err, "rejecting result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) bulkApprove(ctx echo.Context) error {
	var data BulkApproveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkApproveRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.BulkApprove(ctx.Request().Context(), actor, data.QuarterID)
	if err != nil {
		return errors.Wrap(err, "bulk approving results")
	}
	return ctx.JSON(http.StatusOK, BulkResponse{Updated: n})
}

func (api *resultApi) query(ctx echo.Context) error {
	filter := new(result.Filter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []result.QuarterlyResult{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	results, err := api.svc.Query(ctx.Request().Context(), actor, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []result.QuarterlyResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) approvalQueue(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	results, err := api.svc.ApprovalQueue(ctx.Request().Context(), actor, ctx.QueryParam("quarter_id"))
	if err != nil {
		return errors.Wrap(err, "querying approval queue")
	}
	if results == nil {
		results = []result.QuarterlyResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) computeSemester(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.ComputeSemester(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing semester results")
	}
	return ctx.JSON(http.StatusOK, BulkResponse{Updated: n})
}

func (api *resultApi) querySemesterResults(ctx echo.Context) error {
	results, err := api.svc.QuerySemesterResults(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("student_id"))
	if err != nil {
		return errors.Wrap(err, "querying semester results")
	}
	if results == nil {
		results = []result.SemesterResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) updateSemesterComments(ctx echo.Context) error {
	var data result.SemesterComments
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SemesterComments")
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.UpdateSemesterComments(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating semester comments")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) classPerformance(ctx echo.Context) error {
	perf, err := api.svc.ClassPerformance(ctx.Request().Context(), ctx.QueryParam("quarter_id"), ctx.QueryParam("class_id"))
	if err != nil {
		return errors.Wrap(err, "querying class performance")
	}
	if perf == nil {
		perf = []result.CoursePerformance{}
	}
	return ctx.JSON(http.StatusOK, perf)
}

func (api *resultApi) topPerformers(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	top, err := api.svc.TopPerformers(ctx.Request().Context(), ctx.QueryParam("quarter_id"), ctx.QueryParam("class_id"), limit)
	if err != nil {
		return errors.Wrap(err, "querying top performers")
	}
	if top == nil {
		top = []result.StudentAverage{}
	}
	return ctx.JSON(http.StatusOK, top)
}

type BulkApproveRequest struct {
	QuarterID string `json:"quarter_id" validate:"required,uuid"`
}

func (br *BulkApproveRequest) Validate() error { return core.Validate.Struct(br) }

package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kayembi/shule/core/result"
	"github.com/kayembi/shule/core/school"
	"github.com/kayembi/shule/core/user"
	testutil "github.com/kayembi/shule/tests"
)

type resultFixture struct {
	admin, teacher, outsider user.User
	year                     school.AcademicYear
	q1, q2                   school.Quarter
	semester                 school.Semester
	class                    school.Class
	course                   school.Course
	student                  school.Student
}

func newResultFixture(t *testing.T) resultFixture {
	t.Helper()

	fix := resultFixture{
		admin:    testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true),
		teacher:  testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true),
		outsider: testutil.CreateUser(t, usrRepo, "Other", "teach2", "other@test.cd", "", []string{user.RoleTeacher}, true),
	}
	fix.year = testutil.CreateAcademicYear(t, schoolRepo, "2024/2025", true)
	fix.q1 = testutil.CreateQuarter(t, schoolRepo, school.QuarterQ1, fix.year.ID)
	fix.q2 = testutil.CreateQuarter(t, schoolRepo, school.QuarterQ2, fix.year.ID)
	fix.semester = testutil.CreateSemester(t, schoolRepo, school.SemesterS1, fix.year.ID, fix.q1.ID, fix.q2.ID)

	dep := testutil.CreateDepartment(t, schoolRepo, "Sciences", "sci")
	fix.class = testutil.CreateClass(t, schoolRepo, "Grade 1A", dep.ID, fix.year.ID)
	fix.course = testutil.CreateCourse(t, schoolRepo, "Mathematics", "math", dep.ID)
	fix.student = testutil.CreateStudent(t, schoolRepo, "adm-001", "Didier", "Kay", fix.class.ID)

	testutil.CreateAssignment(t, schoolRepo, fix.teacher.ID, fix.course.ID, fix.class.ID, fix.year.ID)
	return fix
}

func (fix resultFixture) scoreEntry(score float64) result.ScoreEntry {
	return result.ScoreEntry{
		StudentID: fix.student.ID,
		CourseID:  fix.course.ID,
		ClassID:   fix.class.ID,
		QuarterID: fix.q1.ID,
		Score:     score,
	}
}

func Test_resultApi_lifecycle(t *testing.T) {
	app := setup(t)
	fix := newResultFixture(t)

	teacherToken := getToken(t, fix.teacher)
	adminToken := getToken(t, fix.admin)

	var entered result.QuarterlyResult

	t.Run("unassigned teacher cannot enter", func(t *testing.T) {
		body := marchallObj(t, fix.scoreEntry(88))
		req, rec := newAuthRequest(http.MethodPost, "/v1/results", getToken(t, fix.outsider), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("assigned teacher enters a draft", func(t *testing.T) {
		body := marchallObj(t, fix.scoreEntry(88))
		req, rec := newAuthRequest(http.MethodPost, "/v1/results", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &entered); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if entered.Status != result.StatusDraft {
			t.Errorf("failed! status = %v; want %v", entered.Status, result.StatusDraft)
		}
		if entered.Grade != "B" {
			t.Errorf("failed! grade = %v; want B", entered.Grade)
		}
	})

	t.Run("re-entry replaces the draft in place", func(t *testing.T) {
		body := marchallObj(t, fix.scoreEntry(93))
		req, rec := newAuthRequest(http.MethodPost, "/v1/results", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var res result.QuarterlyResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if res.ID != entered.ID {
			t.Errorf("failed! ID = %v; want %v", res.ID, entered.ID)
		}
		if res.Score != 93 || res.Grade != "A" {
			t.Errorf("failed! score = %v grade = %v; want 93 A", res.Score, res.Grade)
		}
		entered = res
	})

	t.Run("submit scope", func(t *testing.T) {
		body := marchallObj(t, result.SubmitRequest{QuarterID: fix.q1.ID, ClassID: fix.class.ID, CourseID: fix.course.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/results/submit", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp struct {
			Updated int `json:"updated"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if resp.Updated != 1 {
			t.Errorf("failed! updated = %d; want 1", resp.Updated)
		}
	})

	t.Run("approval queue is admin-only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/results/approval-queue?quarter_id="+fix.q1.ID, teacherToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admin approves from the queue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/results/approval-queue?quarter_id="+fix.q1.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var queue []result.QuarterlyResult
		if err := json.Unmarshal(rec.Body.Bytes(), &queue); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(queue) != 1 {
			t.Fatalf("failed! len(queue) = %d; want 1", len(queue))
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/results/"+queue[0].ID+"/approve", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var approved result.QuarterlyResult
		if err := json.Unmarshal(rec.Body.Bytes(), &approved); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if approved.Status != result.StatusApproved {
			t.Errorf("failed! status = %v; want %v", approved.Status, result.StatusApproved)
		}
	})

	t.Run("approved result cannot be re-entered", func(t *testing.T) {
		body := marchallObj(t, fix.scoreEntry(50))
		req, rec := newAuthRequest(http.MethodPost, "/v1/results", teacherToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid state for this operation"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_resultApi_lockedQuarter(t *testing.T) {
	app := setup(t)
	fix := newResultFixture(t)

	if _, err := schoolRepo.SetQuarterLocked(context.Background(), fix.q1.ID, true); err != nil {
		t.Fatalf("SetQuarterLocked() failed: %v", err)
	}

	lockedData := marchallObj(t, httpErr{Error: "period is locked"})

	tests := []httpTest{
		{
			name: "teacher entry blocked", method: http.MethodPost, path: "/v1/results",
			token: getToken(t, fix.teacher), body: marchallObj(t, fix.scoreEntry(70)),
			wantCode: http.StatusBadRequest, wantData: lockedData,
		},
		{
			name: "admin entry blocked too", method: http.MethodPost, path: "/v1/results",
			token: getToken(t, fix.admin), body: marchallObj(t, fix.scoreEntry(70)),
			wantCode: http.StatusBadRequest, wantData: lockedData,
		},
		{
			name: "bulk approval blocked", method: http.MethodPost, path: "/v1/results/bulk-approve",
			token: getToken(t, fix.admin), body: marchallObj(t, map[string]string{"quarter_id": fix.q1.ID}),
			wantCode: http.StatusBadRequest, wantData: lockedData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_resultApi_semesterRollup(t *testing.T) {
	app := setup(t)
	fix := newResultFixture(t)

	teacherToken := getToken(t, fix.teacher)
	adminToken := getToken(t, fix.admin)

	enter := func(t *testing.T, quarterID string, score float64) {
		se := fix.scoreEntry(score)
		se.QuarterID = quarterID
		req, rec := newAuthRequest(http.MethodPost, "/v1/results", teacherToken, marchallObj(t, se))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("enter(%v) failed! code = %v: %s", score, rec.Code, rec.Body.String())
		}

		body := marchallObj(t, result.SubmitRequest{QuarterID: quarterID, ClassID: fix.class.ID, CourseID: fix.course.ID})
		req, rec = newAuthRequest(http.MethodPost, "/v1/results/submit", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("submit failed! code = %v: %s", rec.Code, rec.Body.String())
		}

		body = marchallObj(t, map[string]string{"quarter_id": quarterID})
		req, rec = newAuthRequest(http.MethodPost, "/v1/results/bulk-approve", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("bulk-approve failed! code = %v: %s", rec.Code, rec.Body.String())
		}
	}

	enter(t, fix.q1.ID, 80)
	enter(t, fix.q2.ID, 90)

	t.Run("compute is admin-only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/results/semesters/"+fix.semester.ID+"/compute", teacherToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("compute and fetch roll-ups", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/results/semesters/"+fix.semester.ID+"/compute", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp struct {
			Updated int `json:"updated"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if resp.Updated != 1 {
			t.Errorf("failed! updated = %d; want 1", resp.Updated)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/results/semesters/"+fix.semester.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var rollups []result.SemesterResult
		if err := json.Unmarshal(rec.Body.Bytes(), &rollups); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(rollups) != 1 {
			t.Fatalf("failed! len(rollups) = %d; want 1", len(rollups))
		}
		ru := rollups[0]
		if ru.Total != 170 || ru.Average != 85 || ru.Grade != "B" {
			t.Errorf("failed! total/avg/grade = %v/%v/%v; want 170/85/B", ru.Total, ru.Average, ru.Grade)
		}
	})

	t.Run("reports", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/results/reports/class-performance?quarter_id="+fix.q1.ID+"&class_id="+fix.class.ID, teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var perf []result.CoursePerformance
		if err := json.Unmarshal(rec.Body.Bytes(), &perf); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(perf) != 1 || perf[0].Average != 80 {
			t.Errorf("failed! perf = %+v; want one course averaging 80", perf)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/results/reports/top-performers?quarter_id="+fix.q1.ID+"&class_id="+fix.class.ID+"&limit=5", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var top []result.StudentAverage
		if err := json.Unmarshal(rec.Body.Bytes(), &top); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(top) != 1 || top[0].StudentID != fix.student.ID {
			t.Errorf("failed! top = %+v; want the single student", top)
		}
	})
}

package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kayembi/shule/core/school"
	"github.com/kayembi/shule/core/user"
	testutil "github.com/kayembi/shule/tests"
)

func Test_schoolApi_departments(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	sciences := testutil.CreateDepartment(t, schoolRepo, "Sciences", "sci")

	adminToken := getToken(t, admin)
	newDep := marchallObj(t, school.NewDepartment{Name: "Humanities", Code: "hum"})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required to create", method: http.MethodPost, token: getToken(t, teacher), body: newDep,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "required fields", method: http.MethodPost, token: adminToken,
			body:     marchallObj(t, school.NewDepartment{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required", "code": "this field is required"}),
		},
		{name: "Create", method: http.MethodPost, token: adminToken, body: newDep, wantCode: http.StatusCreated},
		{
			name: "Duplicate code rejected", method: http.MethodPost, token: adminToken,
			body:     marchallObj(t, school.NewDepartment{Name: "Science Clone", Code: "sci"}),
			wantCode: http.StatusBadRequest,
		},
		{name: "Teachers can read", method: http.MethodGet, token: getToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.path = "/v1/school/departments"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// creations visible in the listing
	req, rec := newAuthRequest(http.MethodGet, "/v1/school/departments", adminToken)
	app.ServeHTTP(rec, req)
	var deps []school.Department
	if err := json.Unmarshal(rec.Body.Bytes(), &deps); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(deps) != 2 {
		t.Errorf("failed! len(deps) = %d; want 2", len(deps))
	}
	if deps[0].ID != sciences.ID && deps[1].ID != sciences.ID {
		t.Error("failed! seeded department missing from listing")
	}
}

func Test_schoolApi_periodRegistry(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	year1 := testutil.CreateAcademicYear(t, schoolRepo, "2024/2025", true)
	year2 := testutil.CreateAcademicYear(t, schoolRepo, "2025/2026", false)
	qtr := testutil.CreateQuarter(t, schoolRepo, school.QuarterQ1, year1.ID)

	do := func(t *testing.T, method, path string, body []byte) (*json.Decoder, int) {
		req, rec := newAuthRequest(method, path, adminToken, body)
		app.ServeHTTP(rec, req)
		return json.NewDecoder(rec.Body), rec.Code
	}

	t.Run("activating a year deactivates the others", func(t *testing.T) {
		dec, code := do(t, http.MethodPost, "/v1/school/years/"+year2.ID+"/activate", nil)
		if code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", code, http.StatusOK)
		}
		var activated school.AcademicYear
		if err := dec.Decode(&activated); err != nil {
			t.Fatalf("json.Decode() failed! err %v", err)
		}
		if !activated.IsActive {
			t.Error("failed! year2 not active")
		}

		dec, code = do(t, http.MethodGet, "/v1/school/years/active", nil)
		if code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", code, http.StatusOK)
		}
		var active school.AcademicYear
		if err := dec.Decode(&active); err != nil {
			t.Fatalf("json.Decode() failed! err %v", err)
		}
		if active.ID != year2.ID {
			t.Errorf("failed! active year = %v; want %v", active.ID, year2.ID)
		}
	})

	t.Run("quarter lock toggling", func(t *testing.T) {
		dec, code := do(t, http.MethodPost, "/v1/school/quarters/"+qtr.ID+"/lock", nil)
		if code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", code, http.StatusOK)
		}
		var locked school.Quarter
		if err := dec.Decode(&locked); err != nil {
			t.Fatalf("json.Decode() failed! err %v", err)
		}
		if !locked.IsLocked {
			t.Error("failed! quarter not locked")
		}

		dec, code = do(t, http.MethodPost, "/v1/school/quarters/"+qtr.ID+"/unlock", nil)
		if code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", code, http.StatusOK)
		}
		var unlocked school.Quarter
		if err := dec.Decode(&unlocked); err != nil {
			t.Fatalf("json.Decode() failed! err %v", err)
		}
		if unlocked.IsLocked {
			t.Error("failed! quarter still locked")
		}
	})

	t.Run("unknown quarter is a 404", func(t *testing.T) {
		_, code := do(t, http.MethodGet, "/v1/school/quarters/b5bb4b57-0000-0000-0000-000000000000", nil)
		if code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", code, http.StatusNotFound)
		}
	})
}

func Test_schoolApi_studentBulkActions(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	year := testutil.CreateAcademicYear(t, schoolRepo, "2024/2025", true)
	dep := testutil.CreateDepartment(t, schoolRepo, "Sciences", "sci")
	classA := testutil.CreateClass(t, schoolRepo, "Grade 1A", dep.ID, year.ID)
	classB := testutil.CreateClass(t, schoolRepo, "Grade 1B", dep.ID, year.ID)
	std1 := testutil.CreateStudent(t, schoolRepo, "adm-001", "Didier", "Kay", classA.ID)
	std2 := testutil.CreateStudent(t, schoolRepo, "adm-002", "Grace", "Mbuyi", classA.ID)

	t.Run("bulk transfer", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"ids": []string{std1.ID, std2.ID}, "class_id": classB.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/school/students/bulk-transfer", adminToken, body)
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
		if resp.Updated != 2 {
			t.Errorf("failed! updated = %d; want 2", resp.Updated)
		}
	})

	t.Run("bulk deactivate", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"ids": []string{std2.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/school/students/bulk-deactivate", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/school/students/"+std2.ID, adminToken)
		app.ServeHTTP(rec, req)
		var std struct {
			IsActive bool `json:"is_active"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &std); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if std.IsActive {
			t.Error("failed! student still active")
		}
	})
}

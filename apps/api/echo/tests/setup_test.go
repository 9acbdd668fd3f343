package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
	testutil "github.com/trezcool/gradebook/tests"
)

func Test_setupApi_wizard(t *testing.T) {
	e := newEnv(t)
	scope := testutil.Scope()
	token := getToken(t, scope.SchoolID)

	do := func(method, path string, body []byte) setup.Session {
		req, rec := newAuthRequest(method, path, token, body)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sess setup.Session
		unmarshal(t, rec, &sess)
		return sess
	}

	sess := do(http.MethodGet, "/v1/setup", nil)
	assert.Equal(t, setup.StepExamConfig, sess.CurrentStep)
	assert.Empty(t, sess.CompletedSteps)

	// finalizing needs the exam config
	finalize := marchallObj(t, setup.FinalizeRequest{
		ClassID: scope.ClassID, SessionID: scope.SessionID, TermID: scope.TermID,
		Name:    "First term", Subjects: []string{"Mathematics"},
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/setup/finalize", token, finalize)
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"exam_config": "exam configuration step is not completed"}),
	}, rec)

	sess = do(http.MethodPut, "/v1/setup/exam-config", marchallObj(t, results.DefaultExamConfig()))
	assert.Equal(t, setup.StepAffectiveTraits, sess.CurrentStep)
	assert.Equal(t, []setup.Step{setup.StepExamConfig}, sess.CompletedSteps)

	sess = do(http.MethodPut, "/v1/setup/affective-traits", []byte(`{"items":[" Honesty ","Neatness"]}`))
	assert.Equal(t, []string{"Honesty", "Neatness"}, sess.Traits.AffectiveTraits)
	assert.Equal(t, setup.StepPsychomotorSkills, sess.CurrentStep)

	sess = do(http.MethodPut, "/v1/setup/psychomotor-skills", []byte(`{"items":["Drawing"]}`))
	assert.Equal(t, []string{"Drawing"}, sess.Traits.PsychomotorSkills)

	sess = do(http.MethodPut, "/v1/setup/sign-off", []byte(`{"principal_name":"Mrs. Okafor"}`))
	if assert.NotNil(t, sess.SignOff) {
		assert.Equal(t, "Mrs. Okafor", sess.SignOff.PrincipalName)
	}
	assert.Len(t, sess.CompletedSteps, 4)

	req, rec = newAuthRequest(http.MethodPost, "/v1/setup/finalize", token, finalize)
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inst instance.Instance
	unmarshal(t, rec, &inst)
	assert.Equal(t, scope, inst.Scope)
	assert.Equal(t, instance.StatusActive, inst.Status)
	assert.Equal(t, results.DefaultExamConfig(), inst.ExamConfig)
	assert.Equal(t, []string{"Honesty", "Neatness"}, inst.Traits.AffectiveTraits)

	// reset
	req, rec = newAuthRequest(http.MethodDelete, "/v1/setup", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	sess = do(http.MethodGet, "/v1/setup", nil)
	assert.Empty(t, sess.CompletedSteps)
}

func Test_setupApi_validation(t *testing.T) {
	e := newEnv(t)
	token := getToken(t, testutil.Scope().SchoolID)

	tests := []httpTest{
		{
			name:     "Weights",
			method:   http.MethodPut,
			path:     "/v1/setup/exam-config",
			body:     []byte(`{"components":[{"name":"CA1","weight":50},{"name":"CA2","weight":10},{"name":"Project","weight":10},{"name":"Exam","weight":10}]}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"components": "component weights must add up to 100"}),
		},
		{
			name: "Duplicate traits", method: http.MethodPut, path: "/v1/setup/affective-traits",
			body: []byte(`{"items":["Honesty","Honesty"]}`), token: token, wantCode: http.StatusBadRequest,
		},
		{
			name:     "Principal required",
			method:   http.MethodPut,
			path:     "/v1/setup/sign-off",
			body:     []byte(`{"tutor_name":"Mr. Bello"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"principal_name": "this field is required"}),
		},
		{name: "Auth required", method: http.MethodGet, path: "/v1/setup", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

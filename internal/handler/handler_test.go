package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/middleware"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/proctorly/interview-backend/internal/validator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// MockAttempts covers the candidate and admin attempt interfaces.
type MockAttempts struct {
	mock.Mock
}

func (m *MockAttempts) CreateAttempt(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error) {
	args := m.Called(candidateID, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attempt), args.Error(1)
}

func (m *MockAttempts) StartOrResume(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, bool, error) {
	args := m.Called(candidateID, positionID)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.Attempt), args.Bool(1), args.Error(2)
}

func (m *MockAttempts) GetLatestAttempt(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error) {
	args := m.Called(candidateID, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attempt), args.Error(1)
}

func (m *MockAttempts) ListAttempts(ctx context.Context, candidateID, positionID uuid.UUID) ([]model.Attempt, error) {
	args := m.Called(candidateID, positionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Attempt), args.Error(1)
}

func (m *MockAttempts) GetOwnedAttempt(ctx context.Context, id, candidateID uuid.UUID) (*model.Attempt, error) {
	args := m.Called(id, candidateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attempt), args.Error(1)
}

func (m *MockAttempts) ListAll(ctx context.Context, f model.AttemptFilter) ([]model.AttemptSummary, int64, error) {
	args := m.Called(f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.AttemptSummary), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttempts) GetDetail(ctx context.Context, id uuid.UUID) (*model.AttemptDetail, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AttemptDetail), args.Error(1)
}

func (m *MockAttempts) ResetAttempt(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attempt), args.Error(1)
}

func (m *MockAttempts) DeleteAttempt(ctx context.Context, id uuid.UUID) error {
	return m.Called(id).Error(0)
}

type MockProgress struct {
	mock.Mock
}

func (m *MockProgress) SaveProgress(ctx context.Context, attemptID uuid.UUID, snap model.ProgressSnapshot) (*model.Progress, error) {
	args := m.Called(attemptID, snap)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Progress), args.Error(1)
}

func (m *MockProgress) GetProgress(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Progress), args.Error(1)
}

func (m *MockProgress) ResetProgress(ctx context.Context, attemptID uuid.UUID) error {
	return m.Called(attemptID).Error(0)
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, in service.SubmitInput) (*model.SubmitResponse, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubmitResponse), args.Error(1)
}

type MockAnalytics struct {
	mock.Mock
}

func (m *MockAnalytics) Report(ctx context.Context, period model.AnalyticsPeriod) (*model.AttemptAnalytics, error) {
	args := m.Called(period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AttemptAnalytics), args.Error(1)
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) ResetCandidateSession(ctx context.Context, candidateID uuid.UUID) error {
	return m.Called(candidateID).Error(0)
}

// envelope mirrors response.Response with a raw data payload.
type envelope struct {
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorBody  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
}

func withClaims(claims *service.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, claims)
		c.Next()
	}
}

func candidate() *service.Claims {
	return &service.Claims{
		TokenType:   service.TokenTypeCandidate,
		CandidateID: uuid.New(),
		PositionID:  uuid.New(),
	}
}

func doJSON(r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{service.ErrConflict, http.StatusConflict, response.ErrAttemptConflict},
		{fmt.Errorf("get attempt: %w", service.ErrNotFound), http.StatusNotFound, response.ErrNotFound},
		{service.ErrInvalidState, http.StatusConflict, response.ErrInvalidAttemptState},
		{fmt.Errorf("%w: 1 of 3 answered", service.ErrIncomplete), http.StatusBadRequest, response.ErrIncompleteSubmission},
		{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
		{repository.ErrDuplicate, http.StatusConflict, response.ErrConflict},
		{service.ErrPositionInUse, http.StatusConflict, response.ErrDependencyExists},
		{service.ErrSessionAlreadyActive, http.StatusConflict, response.ErrSessionActive},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{service.ErrFileTooLarge, http.StatusBadRequest, response.ErrFileTooLarge},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, zerolog.Nop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
		})
	}
}

func TestRespondError_ValidationDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, zerolog.Nop(), fmt.Errorf("%w: unknown option %q", service.ErrValidation, "z"))

	env := decode(t, w)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `unknown option "z"`, env.Error.Fields["detail"])
}

func attemptRouter(claims *service.Claims, attempts *MockAttempts) *gin.Engine {
	h := NewAttemptHandler(attempts, nil, nil, zerolog.Nop())
	r := gin.New()
	r.Use(withClaims(claims))
	r.POST("/create", h.Create)
	r.POST("/start", h.Start)
	r.GET("/latest/:candidateId/position/:positionId", h.Latest)
	return r
}

func TestAttemptCreate(t *testing.T) {
	t.Run("Conflict", func(t *testing.T) {
		claims := candidate()
		attempts := new(MockAttempts)
		attempts.On("CreateAttempt", claims.CandidateID, claims.PositionID).Return(nil, service.ErrConflict)

		w := doJSON(attemptRouter(claims, attempts), http.MethodPost, "/create",
			model.CreateAttemptRequest{CandidateID: claims.CandidateID, PositionID: claims.PositionID})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.ErrAttemptConflict, decode(t, w).Error.Code)
		attempts.AssertExpectations(t)
	})

	t.Run("OtherCandidate", func(t *testing.T) {
		claims := candidate()
		attempts := new(MockAttempts)

		w := doJSON(attemptRouter(claims, attempts), http.MethodPost, "/create",
			model.CreateAttemptRequest{CandidateID: uuid.New(), PositionID: claims.PositionID})

		assert.Equal(t, http.StatusForbidden, w.Code)
		attempts.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything)
	})

	t.Run("Created", func(t *testing.T) {
		claims := candidate()
		attempts := new(MockAttempts)
		a := &model.Attempt{ID: uuid.New(), AttemptNumber: 1, IsLatest: true, Status: model.AttemptStatusInProgress}
		attempts.On("CreateAttempt", claims.CandidateID, claims.PositionID).Return(a, nil)

		w := doJSON(attemptRouter(claims, attempts), http.MethodPost, "/create",
			model.CreateAttemptRequest{CandidateID: claims.CandidateID, PositionID: claims.PositionID})

		require.Equal(t, http.StatusCreated, w.Code)
		var got model.Attempt
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, 1, got.AttemptNumber)
	})
}

func TestAttemptStart_ResumeReturnsOK(t *testing.T) {
	claims := candidate()
	attempts := new(MockAttempts)
	a := &model.Attempt{ID: uuid.New(), Status: model.AttemptStatusInProgress}
	attempts.On("StartOrResume", claims.CandidateID, claims.PositionID).Return(a, false, nil)

	w := doJSON(attemptRouter(claims, attempts), http.MethodPost, "/start",
		model.StartAttemptRequest{PositionID: claims.PositionID})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"resumed":true`)
}

func TestAttemptLatest_None(t *testing.T) {
	claims := candidate()
	attempts := new(MockAttempts)
	attempts.On("GetLatestAttempt", claims.CandidateID, claims.PositionID).Return(nil, nil)

	target := fmt.Sprintf("/latest/%s/position/%s", claims.CandidateID, claims.PositionID)
	w := doJSON(attemptRouter(claims, attempts), http.MethodGet, target, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", string(decode(t, w).Data))
}

func TestAttemptLatest_InvalidID(t *testing.T) {
	claims := candidate()
	w := doJSON(attemptRouter(claims, new(MockAttempts)), http.MethodGet, "/latest/nope/position/"+claims.PositionID.String(), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, decode(t, w).Error.Code)
}

func TestAttemptHandler_RejectsAdminToken(t *testing.T) {
	admin := &service.Claims{TokenType: service.TokenTypeAdmin, AdminID: 1, Role: model.RoleAdmin}
	w := doJSON(attemptRouter(admin, new(MockAttempts)), http.MethodPost, "/start",
		model.StartAttemptRequest{PositionID: uuid.New()})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrCandidateAccessOnly, decode(t, w).Error.Code)
}

func progressRouter(claims *service.Claims, attempts *MockAttempts, progress *MockProgress) *gin.Engine {
	h := NewProgressHandler(attempts, progress, zerolog.Nop())
	r := gin.New()
	r.Use(withClaims(claims))
	r.POST("/save", h.Save)
	r.GET("/get/:attemptId", h.Get)
	return r
}

func TestProgressSave(t *testing.T) {
	t.Run("MissingAttemptID", func(t *testing.T) {
		claims := candidate()
		w := doJSON(progressRouter(claims, new(MockAttempts), new(MockProgress)), http.MethodPost, "/save",
			map[string]any{"progress": map[string]any{"time_left": 10}})

		env := decode(t, w)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrValidation, env.Error.Code)
		assert.Contains(t, env.Error.Fields, "attempt_id")
	})

	t.Run("NotOwner", func(t *testing.T) {
		claims := candidate()
		attemptID := uuid.New()
		attempts := new(MockAttempts)
		progress := new(MockProgress)
		attempts.On("GetOwnedAttempt", attemptID, claims.CandidateID).Return(nil, service.ErrForbidden)

		w := doJSON(progressRouter(claims, attempts, progress), http.MethodPost, "/save",
			model.SaveProgressRequest{AttemptID: attemptID})

		assert.Equal(t, http.StatusForbidden, w.Code)
		progress.AssertNotCalled(t, "SaveProgress", mock.Anything, mock.Anything)
	})

	t.Run("Saved", func(t *testing.T) {
		claims := candidate()
		attemptID := uuid.New()
		snap := model.ProgressSnapshot{CurrentQuestionIndex: 2, TimeLeft: 300}
		attempts := new(MockAttempts)
		progress := new(MockProgress)
		attempts.On("GetOwnedAttempt", attemptID, claims.CandidateID).Return(&model.Attempt{ID: attemptID}, nil)
		progress.On("SaveProgress", attemptID, mock.MatchedBy(func(s model.ProgressSnapshot) bool {
			return s.TimeLeft == 300 && s.CurrentQuestionIndex == 2
		})).Return(&model.Progress{AttemptID: attemptID, ProgressSnapshot: snap, SavedAt: time.Now()}, nil)

		w := doJSON(progressRouter(claims, attempts, progress), http.MethodPost, "/save",
			model.SaveProgressRequest{CandidateID: claims.CandidateID, AttemptID: attemptID, Progress: snap})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decode(t, w).Data), attemptID.String())
		progress.AssertExpectations(t)
	})
}

func TestProgressGet_NothingSaved(t *testing.T) {
	claims := candidate()
	attemptID := uuid.New()
	attempts := new(MockAttempts)
	progress := new(MockProgress)
	attempts.On("GetOwnedAttempt", attemptID, claims.CandidateID).Return(&model.Attempt{ID: attemptID}, nil)
	progress.On("GetProgress", attemptID).Return(nil, nil)

	w := doJSON(progressRouter(claims, attempts, progress), http.MethodGet, "/get/"+attemptID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", string(decode(t, w).Data))
}

func submitRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmit(t *testing.T) {
	newRouter := func(claims *service.Claims, attempts *MockAttempts, sub *MockSubmitter) *gin.Engine {
		h := NewSubmitHandler(attempts, sub, zerolog.Nop())
		r := gin.New()
		r.Use(withClaims(claims))
		r.POST("/submit", h.Submit)
		return r
	}

	t.Run("MalformedAnswers", func(t *testing.T) {
		claims := candidate()
		sub := new(MockSubmitter)
		w := httptest.NewRecorder()
		newRouter(claims, new(MockAttempts), sub).ServeHTTP(w, submitRequest(t, map[string]string{
			"attempt_id": uuid.NewString(),
			"answers":    "{not json",
		}))

		env := decode(t, w)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, env.Error.Fields, "answers")
		sub.AssertNotCalled(t, "Submit", mock.Anything)
	})

	t.Run("Graded", func(t *testing.T) {
		claims := candidate()
		attemptID := uuid.New()
		qid := uuid.New()
		attempts := new(MockAttempts)
		sub := new(MockSubmitter)
		attempts.On("GetOwnedAttempt", attemptID, claims.CandidateID).Return(&model.Attempt{ID: attemptID}, nil)
		sub.On("Submit", mock.MatchedBy(func(in service.SubmitInput) bool {
			return in.AttemptID == attemptID && !in.Auto && in.TimeTakenSeconds == 754 &&
				len(in.Answers) == 1 && in.Answers[0].QuestionID == qid && in.Recording == nil
		})).Return(&model.SubmitResponse{ResultID: uuid.New(), Score: 100, TotalQuestions: 1, CorrectCount: 1}, nil)

		answers, _ := json.Marshal([]model.SubmittedAnswer{{QuestionID: qid, SelectedOptionID: "a"}})
		w := httptest.NewRecorder()
		newRouter(claims, attempts, sub).ServeHTTP(w, submitRequest(t, map[string]string{
			"candidate_id":       claims.CandidateID.String(),
			"attempt_id":         attemptID.String(),
			"timeTakenInSeconds": "754",
			"answers":            string(answers),
		}))

		require.Equal(t, http.StatusOK, w.Code)
		var res model.SubmitResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
		assert.Equal(t, 100, res.Score)
		sub.AssertExpectations(t)
	})

	t.Run("AlreadyCompleted", func(t *testing.T) {
		claims := candidate()
		attemptID := uuid.New()
		attempts := new(MockAttempts)
		sub := new(MockSubmitter)
		attempts.On("GetOwnedAttempt", attemptID, claims.CandidateID).Return(&model.Attempt{ID: attemptID}, nil)
		sub.On("Submit", mock.Anything).Return(nil, service.ErrInvalidState)

		w := httptest.NewRecorder()
		newRouter(claims, attempts, sub).ServeHTTP(w, submitRequest(t, map[string]string{
			"attempt_id": attemptID.String(),
			"answers":    "[]",
			"auto":       "true",
		}))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.ErrInvalidAttemptState, decode(t, w).Error.Code)
	})
}

func adminRouter(attempts *MockAttempts, analytics *MockAnalytics) *gin.Engine {
	h := NewAdminAttemptHandler(attempts, analytics, zerolog.Nop())
	r := gin.New()
	r.Use(withClaims(&service.Claims{TokenType: service.TokenTypeAdmin, AdminID: 7, Role: model.RoleHR}))
	r.GET("/attempts", h.List)
	r.GET("/analytics", h.Analytics)
	return r
}

func TestAdminAttemptList(t *testing.T) {
	t.Run("BadStatus", func(t *testing.T) {
		w := doJSON(adminRouter(new(MockAttempts), nil), http.MethodGet, "/attempts?status=paused", nil)

		env := decode(t, w)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, env.Error.Fields, "status")
	})

	t.Run("Paginated", func(t *testing.T) {
		attempts := new(MockAttempts)
		attempts.On("ListAll", mock.MatchedBy(func(f model.AttemptFilter) bool {
			return f.Page == 2 && f.PerPage == 5 && f.Status != nil && *f.Status == model.AttemptStatusCompleted
		})).Return([]model.AttemptSummary{{CandidateName: "Ada"}}, int64(11), nil)

		w := doJSON(adminRouter(attempts, nil), http.MethodGet, "/attempts?status=completed&page=2&per_page=5", nil)

		env := decode(t, w)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 3, env.Pagination.TotalPages)
		assert.Equal(t, 11, env.Pagination.TotalItems)
	})
}

func TestAdminAnalytics(t *testing.T) {
	t.Run("DefaultPeriod", func(t *testing.T) {
		analytics := new(MockAnalytics)
		analytics.On("Report", model.Period30Days).Return(&model.AttemptAnalytics{Period: model.Period30Days, Total: 4}, nil)

		w := doJSON(adminRouter(nil, analytics), http.MethodGet, "/analytics", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		analytics.AssertExpectations(t)
	})

	t.Run("UnknownPeriod", func(t *testing.T) {
		analytics := new(MockAnalytics)
		analytics.On("Report", model.AnalyticsPeriod("1y")).
			Return(nil, fmt.Errorf("%w: unknown period %q", service.ErrValidation, "1y"))

		w := doJSON(adminRouter(nil, analytics), http.MethodGet, "/analytics?period=1y", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, `unknown period "1y"`, decode(t, w).Error.Fields["detail"])
	})
}

func TestCandidateResetSession(t *testing.T) {
	id := uuid.New()
	sessions := new(MockSessions)
	sessions.On("ResetCandidateSession", id).Return(nil)

	h := NewCandidateHandler(nil, sessions, zerolog.Nop())
	r := gin.New()
	r.POST("/candidates/:id/reset-session", h.ResetSession)

	w := doJSON(r, http.MethodPost, "/candidates/"+id.String()+"/reset-session", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	sessions.AssertExpectations(t)
}

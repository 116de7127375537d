package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campusparking/authprovider"
	"campusparking/config"
	"campusparking/database"
	"campusparking/handlers"
	"campusparking/logger"
	"campusparking/models"
	"campusparking/realtime"
	"campusparking/services"
)

const testSecret = "0123456789abcdef0123"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	live   *realtime.LiveList
}

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Code    string            `json:"code"`
}

func newTestServer(t *testing.T, rate string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "parkinglots_changes"))

	cfg := &config.Config{
		JWTSecret:     testSecret,
		AdminEmails:   []string{"boss@example.com"},
		AuthRateLimit: rate,
	}
	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	lots := services.NewParkingService(db, "parkinglots", broker)
	live := realtime.NewLiveList(lots, broker, nil, "parkinglots")
	h := &handlers.Handler{
		Auth:       services.NewAuthService(authprovider.NewLocal(db, testSecret, time.Hour), cfg.AdminEmails),
		Lots:       lots,
		Requests:   services.NewStatusRequestService(db, lots),
		Live:       live,
		Hub:        realtime.NewHub(),
		MapOptions: services.MapOptions{Concept3DMapID: "801", CampusQuery: "San Diego State University"},
	}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: &bytes.Buffer{}})
	r, err := SetupRouter(Options{Config: cfg, Logger: log}, h)
	require.NoError(t, err)
	return &testServer{router: r, db: db, live: live}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) signUp(t *testing.T, email string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": email, "password": "Passw0rdA"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res authprovider.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.Session)
	return res.Session.AccessToken
}

func TestPing(t *testing.T) {
	s := newTestServer(t, "100-M")
	w, env := s.do(t, http.MethodGet, "/api/v1/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", env.Message)
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t, "100-M")

	t.Run("Should sign up, sign in and report the current user", func(t *testing.T) {
		s.signUp(t, "student@example.com")

		w, env := s.do(t, http.MethodPost, "/api/v1/auth/signin", "", gin.H{"email": "student@example.com", "password": "Passw0rdA"})
		require.Equal(t, http.StatusOK, w.Code)
		var res authprovider.Result
		require.NoError(t, json.Unmarshal(env.Data, &res))
		require.NotNil(t, res.Session)

		w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", res.Session.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var view services.CurrentUserView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, "student@example.com", view.User.Email)
		assert.False(t, view.Principal.IsAdmin)
	})

	t.Run("Should return 422 for an invalid email without calling the provider", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "nope", "password": "Passw0rdA"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, services.MsgInvalidEmailSignUp, env.Error)
	})

	t.Run("Should return 400 for wrong credentials", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/auth/signin", "", gin.H{"email": "student@example.com", "password": "Wr0ngPassword"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, env.Error, "Invalid login credentials")
	})

	t.Run("Should return 401 for current user without a token", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, "100-M")
	body := gin.H{"name": "P1", "capacity": 10, "available": 5, "location": "x"}

	t.Run("Should reject requests without an Authorization header", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/lots", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "ERR_NO_AUTH_HEADER", env.Code)
	})

	t.Run("Should reject a malformed Authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/lots", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_AUTH_FORMAT")
	})

	t.Run("Should reject a token signed with another secret", func(t *testing.T) {
		token, err := authprovider.IssueToken([]byte("another-secret-value"), &authprovider.User{ID: "u1"}, time.Hour)
		require.NoError(t, err)
		w, env := s.do(t, http.MethodPost, "/api/v1/lots", token, body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "ERR_INVALID_TOKEN", env.Code)
	})

	t.Run("Should report expired tokens separately", func(t *testing.T) {
		token, err := authprovider.IssueToken([]byte(testSecret), &authprovider.User{ID: "u1"}, -time.Minute)
		require.NoError(t, err)
		w, env := s.do(t, http.MethodPost, "/api/v1/lots", token, body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "ERR_TOKEN_EXPIRED", env.Code)
	})
}

func TestLotRoutes(t *testing.T) {
	s := newTestServer(t, "100-M")
	adminToken := s.signUp(t, "boss@example.com")
	studentToken := s.signUp(t, "student@example.com")

	t.Run("Should reject available greater than capacity without writing", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/lots", adminToken, gin.H{
			"name": "Lot A", "capacity": 150, "available": 200, "location": "North",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "Available spaces cannot exceed total capacity!", env.Fields["available"])

		var n int64
		require.NoError(t, s.db.Model(&models.ParkingLot{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("Should forbid non-admins from adding lots", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/lots", studentToken, gin.H{
			"name": "Lot A", "capacity": 150, "available": 100, "location": "North",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, services.MsgAdminAddLot, env.Error)
	})

	var lotID string
	t.Run("Should add a lot and expose it through the live list", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/lots", adminToken, gin.H{
			"name": "Lot A", "capacity": 150, "available": 100, "location": "North",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var lot models.NormalizedParkingLot
		require.NoError(t, json.Unmarshal(env.Data, &lot))
		assert.Equal(t, 50, lot.Taken)
		assert.Equal(t, 100, lot.Available)
		lotID = lot.ID

		require.NoError(t, s.live.Refresh(context.Background()))
		w, env = s.do(t, http.MethodGet, "/api/v1/lots/"+lotID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(env.Data, &lot))
		assert.Equal(t, "Lot A", lot.Name)
	})

	t.Run("Should return 404 for an unknown lot", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/api/v1/lots/missing", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Should update status directly for admins", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, "/api/v1/lots/"+lotID+"/status", adminToken, gin.H{"taken_spaces": 120})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var lot models.NormalizedParkingLot
		require.NoError(t, json.Unmarshal(env.Data, &lot))
		assert.Equal(t, 120, lot.Taken)
	})

	t.Run("Should turn a student update into a pending request", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/v1/lots/"+lotID+"/status", studentToken, gin.H{"taken_spaces": 10})
		assert.Equal(t, http.StatusAccepted, w.Code)

		var pending int64
		require.NoError(t, s.db.Model(&models.StatusRequest{}).Where("status = ?", models.RequestPending).Count(&pending).Error)
		assert.Equal(t, int64(1), pending)
	})

	t.Run("Should build a map view for a lot", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/lots/"+lotID+"/map?provider=google", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var view services.MapView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, services.MapProviderGoogle, view.Provider)
		assert.Contains(t, view.GoogleDirectionsURL, "North")
	})
}

func TestReviewRoutes(t *testing.T) {
	s := newTestServer(t, "100-M")
	adminToken := s.signUp(t, "boss@example.com")
	studentToken := s.signUp(t, "student@example.com")

	w, env := s.do(t, http.MethodPost, "/api/v1/lots", adminToken, gin.H{
		"name": "Lot B", "capacity": 40, "available": 40, "location": "South",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var lot models.NormalizedParkingLot
	require.NoError(t, json.Unmarshal(env.Data, &lot))

	w, env = s.do(t, http.MethodPost, "/api/v1/status-requests", studentToken, gin.H{"lot_id": lot.ID, "taken_spaces": 12})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sr models.StatusRequest
	require.NoError(t, json.Unmarshal(env.Data, &sr))

	t.Run("Should forbid students from listing requests", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/status-requests", studentToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, services.MsgAdminReview, env.Error)
	})

	t.Run("Should list pending requests for admins", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/v1/status-requests", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var reqs []models.StatusRequest
		require.NoError(t, json.Unmarshal(env.Data, &reqs))
		require.Len(t, reqs, 1)
		assert.Equal(t, sr.ID, reqs[0].ID)
	})

	t.Run("Should approve once and conflict on the second attempt", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/v1/status-requests/"+sr.ID+"/approve", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var stored models.ParkingLot
		require.NoError(t, s.db.First(&stored, "id = ?", lot.ID).Error)
		assert.Equal(t, 12, stored.TakenSpaces)

		w, _ = s.do(t, http.MethodPost, "/api/v1/status-requests/"+sr.ID+"/reject", adminToken, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Should return 404 for unknown requests", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/v1/status-requests/missing/approve", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("Should throttle the auth group", func(t *testing.T) {
		s := newTestServer(t, "2-M")
		body := gin.H{"email": "nope", "password": "x"}
		for i := 0; i < 2; i++ {
			w, _ := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		}
		w, _ := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", body)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		w, _ = s.do(t, http.MethodGet, "/api/v1/lots", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should reject a malformed rate", func(t *testing.T) {
		_, err := RateLimit("lots", nil)
		require.Error(t, err)
	})
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, "100-M")
	s.do(t, http.MethodGet, "/api/v1/ping", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "parking_http_requests_total")
}

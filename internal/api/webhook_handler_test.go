package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubStravaService struct {
	mu       sync.Mutex
	imported [][2]int64 // (athleteID, activityID) pairs
	deleted  [][2]int64
}

func (s *stubStravaService) AuthorizationURL(state string) string {
	return "https://www.strava.com/oauth/authorize?state=" + state
}

func (s *stubStravaService) HandleCallback(ctx context.Context, userID primitive.ObjectID, code string) error {
	return nil
}

func (s *stubStravaService) ImportRecentActivities(ctx context.Context, userID primitive.ObjectID) (int, error) {
	return 0, nil
}

func (s *stubStravaService) ImportActivityByAthlete(ctx context.Context, athleteID, activityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imported = append(s.imported, [2]int64{athleteID, activityID})
	return nil
}

func (s *stubStravaService) DeleteActivityByAthlete(ctx context.Context, athleteID, activityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, [2]int64{athleteID, activityID})
	return nil
}

func (s *stubStravaService) RawPayloadURL(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) (string, error) {
	return "", nil
}

func (s *stubStravaService) deletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deleted)
}

func (s *stubStravaService) importedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.imported)
}

func newWebhookRouter(stravaService *stubStravaService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebhookHandler(stravaService, "verify-me")
	router.GET("/webhooks/strava", handler.VerifySubscription)
	router.POST("/webhooks/strava", handler.ReceiveEvent)
	return router
}

func TestVerifySubscription(t *testing.T) {
	router := newWebhookRouter(&stubStravaService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/strava?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=abc123", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "abc123")
}

func TestVerifySubscriptionWrongToken(t *testing.T) {
	router := newWebhookRouter(&stubStravaService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/strava?hub.verify_token=wrong&hub.challenge=abc123", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "abc123")
}

func TestReceiveEventTriggersImport(t *testing.T) {
	stravaService := &stubStravaService{}
	router := newWebhookRouter(stravaService)

	body := `{"object_type":"activity","object_id":777,"aspect_type":"create","owner_id":555}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/strava", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// The import runs in the background.
	assert.Eventually(t, func() bool {
		return stravaService.importedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReceiveEventDeleteRemovesActivity(t *testing.T) {
	stravaService := &stubStravaService{}
	router := newWebhookRouter(stravaService)

	body := `{"object_type":"activity","object_id":777,"aspect_type":"delete","owner_id":555}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/strava", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Eventually(t, func() bool {
		return stravaService.deletedCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, stravaService.importedCount())
}

func TestReceiveEventIgnoresAthleteObjects(t *testing.T) {
	stravaService := &stubStravaService{}
	router := newWebhookRouter(stravaService)

	body := `{"object_type":"athlete","object_id":555,"aspect_type":"update","owner_id":555}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/strava", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, stravaService.importedCount())
	assert.Zero(t, stravaService.deletedCount())
}

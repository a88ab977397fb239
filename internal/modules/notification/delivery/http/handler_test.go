package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	notifDto "caseflow.dev/caseflowlearn/internal/modules/notification/dto"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/authevents"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifications struct {
	readBy map[uuid.UUID]uuid.UUID
}

func (s *stubNotifications) CreateNotification(ctx context.Context, n *entity.Notification) error {
	return nil
}

func (s *stubNotifications) GetNotifications(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*notifDto.PaginatedNotifications, error) {
	page.Normalize()
	return &notifDto.PaginatedNotifications{
		Data: []notifDto.NotificationResponse{},
		Meta: commonDto.NewPaginationMeta(page.Page, page.Limit, 0),
	}, nil
}

func (s *stubNotifications) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	if s.readBy[id] != userID {
		return apperror.ErrNotFound
	}
	return nil
}

func (s *stubNotifications) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (s *stubNotifications) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 3, nil
}

func (s *stubNotifications) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

func newRouter(h *NotificationHandler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(response.ContextUserID, userID.String())
	})
	r.GET("/notifications", h.GetNotifications)
	r.GET("/notifications/unread-count", h.UnreadCount)
	r.PUT("/notifications/:id/read", h.MarkAsRead)
	r.GET("/ws", h.HandleWebSocket)
	return r
}

func TestMarkAsReadIsScopedToOwner(t *testing.T) {
	owner := uuid.New()
	notificationID := uuid.New()
	svc := &stubNotifications{readBy: map[uuid.UUID]uuid.UUID{notificationID: owner}}

	rec := httptest.NewRecorder()
	newRouter(NewNotificationHandler(svc, nil, nil, nil), uuid.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/"+notificationID.String()+"/read", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(NewNotificationHandler(svc, nil, nil, nil), owner).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/notifications/"+notificationID.String()+"/read", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnreadCount(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(NewNotificationHandler(&stubNotifications{}, nil, nil, nil), uuid.New()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestWebSocketForwardsOwnAuthEvents(t *testing.T) {
	hub := authevents.NewHub(nil)
	userID := uuid.New()
	srv := httptest.NewServer(newRouter(NewNotificationHandler(&stubNotifications{}, nil, hub, nil), userID))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), authevents.Event{Kind: authevents.SignedIn, UserID: uuid.New()})
	hub.Publish(context.Background(), authevents.Event{Kind: authevents.SignedOut, UserID: userID})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev authevents.Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, authevents.SignedOut, ev.Kind)
	assert.Equal(t, userID, ev.UserID)
}

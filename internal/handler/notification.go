package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"louage/internal/domain"
	"louage/internal/service"
)

const (
	streamPingInterval = 30 * time.Second
	streamPongWait     = 60 * time.Second
	streamWriteWait    = 5 * time.Second
)

// NotificationHandler handles HTTP requests for user mailboxes.
type NotificationHandler struct {
	notifications *service.NotificationDispatcher
	upgrader      websocket.Upgrader
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// StreamMessage is a frame sent over the notification stream.
type StreamMessage struct {
	Type          string                `json:"type"`
	Unread        int                   `json:"unread"`
	Notifications []domain.Notification `json:"notifications"`
}

// List handles GET /v1/users/:id/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.Param("id")
	if !authorizeUser(c, userID) {
		return
	}

	unreadOnly := c.Query("unread_only") == "true"
	c.JSON(http.StatusOK, h.notifications.ListForUser(c.Request.Context(), userID, unreadOnly))
}

// UnreadCount handles GET /v1/users/:id/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.Param("id")
	if !authorizeUser(c, userID) {
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"user_id": userID,
		"unread":  h.notifications.UnreadCount(c.Request.Context(), userID),
	})
}

// MarkAsRead handles POST /v1/users/:id/notifications/:nid/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if !authorizeUser(c, c.Param("id")) {
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), c.Param("nid")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllAsRead handles POST /v1/users/:id/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID := c.Param("id")
	if !authorizeUser(c, userID) {
		return
	}

	if err := h.notifications.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /v1/users/:id/notifications/:nid
func (h *NotificationHandler) Delete(c *gin.Context) {
	if !authorizeUser(c, c.Param("id")) {
		return
	}

	if err := h.notifications.DeleteNotification(c.Request.Context(), c.Param("nid")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Stream handles GET /v1/users/:id/notifications/stream. The connection
// receives the whole mailbox on connect and after every change.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := c.Param("id")
	if !authorizeUser(c, userID) {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("notification stream upgrade failed: user=%s err=%v", userID, err)
		return
	}
	defer conn.Close()

	// Only the latest mailbox matters, so a slow client skips snapshots.
	// Deliveries for one subscription are serialized and this is the only
	// sender, so after the drain the send always finds room.
	updates := make(chan []domain.Notification, 1)
	sub, err := h.notifications.Subscribe(userID, func(ns []domain.Notification) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- ns:
		default:
		}
	})
	if err != nil {
		_ = conn.WriteJSON(StreamMessage{Type: "error"})
		return
	}
	defer sub.Unsubscribe()

	log.Printf("notification stream connected: user=%s", userID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case ns := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(StreamMessage{Type: "mailbox", Unread: countUnread(ns), Notifications: ns}); err != nil {
				log.Printf("notification stream write failed: user=%s err=%v", userID, err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			log.Printf("notification stream disconnected: user=%s", userID)
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func countUnread(ns []domain.Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}

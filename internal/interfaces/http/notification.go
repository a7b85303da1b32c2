package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"finale/internal/domain/notification"
	"finale/internal/shared/middleware"
)

// NotificationHandler serves device registration and the notification feed
type NotificationHandler struct {
	notificationService *notification.Service
}

func NewNotificationHandler(notificationService *notification.Service) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

type RegisterDeviceRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"deviceType"`
}

type NotificationListResponse struct {
	Notifications []*notification.Notification `json:"notifications"`
	Total         int                          `json:"total"`
	Page          int                          `json:"page"`
	PerPage       int                          `json:"perPage"`
}

// HandleRegisterDevice registers an FCM device token for the authenticated user
func (h *NotificationHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	token, err := h.notificationService.RegisterDevice(r.Context(), notification.CreateDeviceTokenParams{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: req.DeviceType,
	})
	if err != nil {
		if errors.Is(err, notification.ErrInvalidToken) || errors.Is(err, notification.ErrInvalidDeviceType) {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}
		log.Printf("Error registering device for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to register device")
		return
	}

	writeJSON(w, http.StatusCreated, token)
}

// HandleListNotifications returns the user's notification feed, paginated
func (h *NotificationHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))

	notifications, total, err := h.notificationService.ListNotifications(r.Context(), userID, page, perPage)
	if err != nil {
		log.Printf("Error listing notifications for user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list notifications")
		return
	}

	if notifications == nil {
		notifications = []*notification.Notification{}
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	writeJSON(w, http.StatusOK, NotificationListResponse{
		Notifications: notifications,
		Total:         total,
		Page:          page,
		PerPage:       perPage,
	})
}

// HandleMarkOpened marks a notification as opened
func (h *NotificationHandler) HandleMarkOpened(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	notificationID := r.PathValue("id")
	if notificationID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "notification ID is required")
		return
	}

	if err := h.notificationService.MarkNotificationOpened(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			writeError(w, http.StatusNotFound, codeInvalidRequest, "notification not found")
			return
		}
		log.Printf("Error marking notification %s opened for user %d: %v", notificationID, userID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

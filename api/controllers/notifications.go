package controllers

import (
	"net/http"

	"github.com/sumo1993/medconsult-liberia-sub003/api/validators"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

const notificationsName = "notifications"

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, notificationsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		limit, err := parseLimit(r)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			UserID:     actor.UserID,
			Limit:      limit,
			Cursor:     validators.QueryString(r, "cursor"),
			UnreadOnly: unreadOnly,
		})
	})
}

// MarkNotificationRead flags one of the caller's notifications as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, notificationsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		id, err := validators.ParsePathID(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), actor.UserID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

// MarkAllNotificationsRead flags every unread notification of the caller.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, notificationsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		count, err := svc.MarkAllRead(r.Context(), actor.UserID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": count}, nil
	})
}

package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/stream"
)

type notificationApi struct {
	svc        *notification.Service
	mgr        *stream.Manager
	validate   *validator.Validate
	translator ut.Translator
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{
		svc:        deps.NotifSvc,
		mgr:        deps.Manager,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ng := g.Group("/notifications", jwt, sessionMiddleware(api.mgr))
	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.PUT("/:id/read", api.markRead)
	ng.PUT("/read-all", api.markAllRead)
	ng.GET("/events", api.events)
	ng.GET("/stream-status", api.streamStatus)

	// logout: tears down the subscription set and aborts in-flight work
	sg := g.Group("/session", jwt)
	sg.DELETE("", api.endSession)
}

// NotificationFilter narrows the list endpoint's result set.
type NotificationFilter struct {
	Category string `query:"category" json:"category" validate:"omitempty,oneof=grade attendance announcement general"`
	Unread   bool   `query:"unread" json:"unread"`
}

func (f *NotificationFilter) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	var filter NotificationFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to NotificationFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	recs := api.svc.List()
	if filter.Category != "" || filter.Unread {
		kept := make([]notification.Record, 0, len(recs))
		for _, rec := range recs {
			if filter.Category != "" && rec.Category != filter.Category {
				continue
			}
			if filter.Unread && rec.Read {
				continue
			}
			kept = append(kept, rec)
		}
		recs = kept
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"unread_count": api.svc.UnreadCount()})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	if err := api.svc.MarkRead(ctx.Param("id")); err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	if err := api.svc.MarkAllRead(); err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// events streams re-render ticks over SSE: one "refresh" event with the
// current unread count per visible store change.
func (api *notificationApi) events(ctx echo.Context) error {
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ch := api.svc.Listen()
	defer api.svc.Unlisten(ch)

	send := func() error {
		payload, err := json.Marshal(echo.Map{"unread_count": api.svc.UnreadCount()})
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintf(res, "event: refresh\ndata: %s\n\n", payload); err != nil {
			return err
		}
		res.Flush()
		return nil
	}
	if err := send(); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := send(); err != nil {
				return nil // client gone
			}
		}
	}
}

// streamStatus reports per-table subscription diagnostics; healthy=false
// is the "live updates unavailable" indicator.
func (api *notificationApi) streamStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"healthy":       api.mgr.Healthy(),
		"scope":         api.mgr.CurrentScope().Signature(),
		"subscriptions": api.mgr.Statuses(),
	})
}

func (api *notificationApi) endSession(ctx echo.Context) error {
	api.mgr.Reconcile(stream.Scope{})
	return ctx.NoContent(http.StatusNoContent)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
)

type SendRequest struct {
	UserID   string
	Type     Type
	Title    string
	Message  string
	Data     map[string]any
	Priority Priority
}

// AdminNotice fans out to every admin as an in-app notification plus an
// email rendered from EmailTemplate.
type AdminNotice struct {
	Type          Type
	Title         string
	Message       string
	Data          map[string]any
	EmailTemplate string
	EmailData     map[string]any
}

type ListRequest struct {
	pagination.Pagination
	UserID     string `form:"-"`
	UnreadOnly bool   `form:"unread"`
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
}

type Service interface {
	Send(ctx context.Context, req SendRequest) (*Notification, error)
	SendEmail(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...email.Attachment) error
	// NotifyAdmins returns how many admins received the in-app notice.
	NotifyAdmins(ctx context.Context, notice AdminNotice) (int, error)
	ListForUser(ctx context.Context, req ListRequest) (ListResponse, error)
	MarkRead(ctx context.Context, userID string, id snowflake.ID) error
}

var (
	ErrInvalidUser          = apperror.Validation("invalid_user")
	ErrInvalidTitle         = apperror.Validation("invalid_notification_title")
	ErrInvalidPageToken     = apperror.Validation("invalid_page_token")
	ErrNotificationNotFound = apperror.NotFound("notification_not_found")
)

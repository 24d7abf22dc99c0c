package dto

// NotificationListQuery binds inbox query parameters.
type NotificationListQuery struct {
	Page       int  `form:"page" validate:"omitempty,gte=1"`
	PageSize   int  `form:"page_size" validate:"omitempty,gte=1,lte=100"`
	UnreadOnly bool `form:"unread_only"`
}

package model

// Activity log action types.
const (
	ActionTypeAuth     = "auth"
	ActionTypeUser     = "user"
	ActionTypeContent  = "content"
	ActionTypeSettings = "settings"
	ActionTypeBackup   = "backup"
	ActionTypeSystem   = "system"
)

// Activity log statuses.
const (
	ActivityStatusSuccess = "success"
	ActivityStatusFailure = "failure"
)

// Content lifecycle statuses.
const (
	ContentStatusDraft     = "draft"
	ContentStatusPublished = "published"
)

package models

import "time"

const (
	CheckpointSync   = "last_sync_time"
	CheckpointNotify = "last_notification_check"
	CheckpointRemind = "last_reminder_check"
)

const (
	ProjectTypeBounty  = "bounty"
	ProjectTypeProject = "project"
	ProjectTypeAll     = "all"
)

const (
	CategoryAll         = "all"
	CategoryDevelopment = "DEV"
	CategoryDesign      = "DESIGN"
	CategoryContent     = "CONTENT"
	CategoryOther       = "OTHER"
)

const (
	StatusOpen = "OPEN"

	ParseModeMarkdownV2 = "MarkdownV2"
)

// Setup conversation steps.
const (
	StateSelectType       = "select_type"
	StateSelectCategories = "select_categories"
	StateEnterMinBounty   = "enter_min_bounty"
	StateEnterMaxBounty   = "enter_max_bounty"
)

const (
	// DefaultSetupTTL bounds how long an abandoned /setup session survives.
	DefaultSetupTTL = 24 * time.Hour

	// DefaultPriceCacheTTL is the price oracle cache window.
	DefaultPriceCacheTTL = 5 * time.Minute

	// DefaultSendDelay spaces consecutive outbound sends.
	DefaultSendDelay = 100 * time.Millisecond

	// DefaultRunTimeout caps a single sync/notify/remind run.
	DefaultRunTimeout = 4 * time.Minute

	// DefaultNotifyLookback seeds the notify window when no checkpoint exists.
	DefaultNotifyLookback = 24 * time.Hour

	// FinalReminderWindow is the last tier before a reminder is retired.
	FinalReminderWindow = 30 * time.Minute
)

// CheckpointTimeFormat is fixed-width UTC so the string-encoded values order
// lexicographically; the checkpoint store compares them to stay monotonic.
const CheckpointTimeFormat = "2006-01-02T15:04:05.000Z"

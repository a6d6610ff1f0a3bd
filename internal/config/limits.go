package config

const (
	// MaxPageTitleLength is the maximum length for page titles. Limited to
	// 255 to fit in PostgreSQL VARCHAR(255).
	MaxPageTitleLength = 255

	// MaxPageNameLength is the maximum length for page name slugs. Names
	// appear in URLs, so they stay short.
	MaxPageNameLength = 50

	// MaxShareMessageLength is the maximum length for the optional message
	// attached to a share or notify run.
	MaxShareMessageLength = 2000

	// MaxRecipientsPerShare bounds one share run. Larger audiences should
	// share with a group instead.
	MaxRecipientsPerShare = 100
)

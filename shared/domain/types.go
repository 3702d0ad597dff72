package domain

type (
	BoardName = string

	ThreadId = string // uuid
	ReplyId  = string // uuid

	Text     = string
	Password = string
)

// DeletedReplyText replaces the text of a reply deleted by its author.
const DeletedReplyText Text = "[deleted]"

// Package handlers defines the user-facing error texts returned by the API.
//
// These strings are part of the public contract: the site's scripts display
// them verbatim. Handlers pick one per failure class and pass it to `fail()`;
// the underlying cause is only logged.
package handlers

const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgNotFound         = "Not found"

	// Chat
	MsgMessageRequired = "Message is required"
	MsgChatFailed      = "Something went wrong. Please try again."

	// Feed
	MsgFeedFailed = "Failed to fetch feed"

	// Feedback
	MsgFieldsRequired = "All fields are required"
	MsgInvalidEmail   = "Invalid email address"
	MsgTooMany        = "Too many submissions. Please try again later."
	MsgSendFailed     = "Failed to send message. Please try again later."
	MsgFeedbackThanks = "Thank you for your feedback!"
)

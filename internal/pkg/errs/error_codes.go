/*
Package errs provides custom error types and application-level error code constants.

These error codes identify the rejections the chat server reports back to a single
connection, as well as the few HTTP-level failures surfaced by the handlers.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidJSONFormat indicates that a request body or frame was not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that extra content followed a valid JSON value.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Identity, Relationship and Content Errors
const (
	// ErrInvalidName indicates that the claimed username was empty after trimming.
	ErrInvalidName = 2101

	// ErrNameTaken indicates that the username is bound to another live connection.
	ErrNameTaken = 2102

	// ErrAlreadyFriends is the informational reply to a friend request between friends.
	ErrAlreadyFriends = 2201

	// ErrNotFriends indicates an action that requires a mutual friendship.
	ErrNotFriends = 2202

	// ErrMessageContentTooLong indicates that the chat text exceeded the configured limit.
	ErrMessageContentTooLong = 2301

	// ErrAvatarTooLarge indicates that an avatar update exceeded the configured limit.
	ErrAvatarTooLarge = 2302
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)

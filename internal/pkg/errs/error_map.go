/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template. The messages of the
chat rejections are part of the wire protocol: clients match on the exact text.
*/
package errs

import "net/http"

var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidJSONFormat:  {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody: {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:  {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Identity, Relationship and Content Errors
	ErrInvalidName:           {Code: ErrInvalidName, Message: "Invalid username"},
	ErrNameTaken:             {Code: ErrNameTaken, Message: "Username taken", Status: http.StatusConflict},
	ErrAlreadyFriends:        {Code: ErrAlreadyFriends, Message: "Already friends"},
	ErrNotFriends:            {Code: ErrNotFriends, Message: "Not friends", Status: http.StatusForbidden},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)"},
	ErrAvatarTooLarge:        {Code: ErrAvatarTooLarge, Message: "Avatar is too large (max %d bytes)"},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}

/*
Package chat contains the protocol dispatch and live-connection handling of the server.

This file defines the wire protocol: every frame is one JSON object whose "type"
field selects the remaining fields.
*/
package chat

import (
	"buddychat/internal/app/presence"
	"buddychat/internal/app/transcript"
)

// MessageType is the frame discriminator.
type MessageType string

// Inbound frame types.
const (
	TypeSetUsername           MessageType = "set_username"
	TypeFriendRequest         MessageType = "friend_request"
	TypeFriendRequestResponse MessageType = "friend_request_response"
	TypeChatMessage           MessageType = "chat_message"
	TypeTyping                MessageType = "typing"
	TypeStopTyping            MessageType = "stop_typing"
	TypeGetConversation       MessageType = "get_conversation"
	TypeAvatarUpdate          MessageType = "avatar_update"
)

// Outbound-only frame types. friend_request, chat_message, typing and stop_typing
// are reused in the outbound direction with a "from" field.
const (
	TypeUsernameSet           MessageType = "username_set"
	TypeError                 MessageType = "error"
	TypeFriendList            MessageType = "friend_list"
	TypeFriendRequestAccepted MessageType = "friend_request_accepted"
	TypeConversationHistory   MessageType = "conversation_history"
	TypeFriendAvatarUpdate    MessageType = "friend_avatar_update"
)

// Inbound is the union of every client frame. Fields not used by Type are ignored.
type Inbound struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
	To       string      `json:"to"`
	From     string      `json:"from"`
	Accept   bool        `json:"accept"`
	Message  string      `json:"message"`
	With     string      `json:"with"`
	Avatar   string      `json:"avatar"`
}

// Frame is an outbound message.
type Frame interface {
	FrameType() MessageType
}

// Envelope addresses a frame to one live connection.
type Envelope struct {
	To    presence.ConnID
	Frame Frame
}

// UsernameSetFrame confirms a successful claim.
type UsernameSetFrame struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
}

// ErrorFrame reports a rejection to the originating connection only.
type ErrorFrame struct {
	Type MessageType `json:"type"`
	Code int         `json:"code"`
	Text string      `json:"text"`
}

// FriendListFrame lists the claimant's friends right after a claim.
type FriendListFrame struct {
	Type    MessageType `json:"type"`
	Friends []string    `json:"friends"`
}

// FriendRequestFrame notifies the target of a pending request.
type FriendRequestFrame struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
}

// FriendAcceptedFrame tells each side about the new friendship.
type FriendAcceptedFrame struct {
	Type   MessageType `json:"type"`
	Friend string      `json:"friend"`
	Avatar string      `json:"avatar,omitempty"`
}

// ChatMessageFrame delivers a message to an online recipient.
type ChatMessageFrame struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	From      string      `json:"from"`
	Message   string      `json:"message"`
	Timestamp int64       `json:"timestamp"`
}

// TypingFrame carries typing or stop_typing.
type TypingFrame struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
}

// ConversationHistoryFrame answers get_conversation.
type ConversationHistoryFrame struct {
	Type     MessageType        `json:"type"`
	With     string             `json:"with"`
	Messages []transcript.Entry `json:"messages"`
}

// FriendAvatarFrame relays a friend's new avatar.
type FriendAvatarFrame struct {
	Type   MessageType `json:"type"`
	Friend string      `json:"friend"`
	Avatar string      `json:"avatar"`
}

func (f UsernameSetFrame) FrameType() MessageType         { return f.Type }
func (f ErrorFrame) FrameType() MessageType               { return f.Type }
func (f FriendListFrame) FrameType() MessageType          { return f.Type }
func (f FriendRequestFrame) FrameType() MessageType       { return f.Type }
func (f FriendAcceptedFrame) FrameType() MessageType      { return f.Type }
func (f ChatMessageFrame) FrameType() MessageType         { return f.Type }
func (f TypingFrame) FrameType() MessageType              { return f.Type }
func (f ConversationHistoryFrame) FrameType() MessageType { return f.Type }
func (f FriendAvatarFrame) FrameType() MessageType        { return f.Type }

/*
Package chat contains the protocol dispatch and live-connection handling of the server.

This file defines the Router, the single entry point for inbound frames. Each frame is
handled against the three stores it is constructed with and produces the envelopes to
deliver; the Router itself never touches a transport, which keeps it replayable in tests.
*/
package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"buddychat/internal/app/presence"
	"buddychat/internal/app/social"
	"buddychat/internal/app/transcript"
	"buddychat/internal/pkg/errs"
	"buddychat/internal/pkg/logx"
	"buddychat/internal/pkg/req"
)

// IdentityStatus separates "never seen" from "seen but offline".
type IdentityStatus int

const (
	StatusUnknown IdentityStatus = iota
	StatusKnown
	StatusOnline
)

func (s IdentityStatus) String() string {
	switch s {
	case StatusKnown:
		return "known"
	case StatusOnline:
		return "online"
	default:
		return "unknown"
	}
}

// RouterOptions tunes content limits and the history policy.
type RouterOptions struct {
	// MaxMessageBytes caps chat text; zero disables the check.
	MaxMessageBytes int

	// MaxAvatarBytes caps avatar payloads; zero disables the check.
	MaxAvatarBytes int

	// HistoryRequiresFriendship rejects get_conversation for non-friends.
	HistoryRequiresFriendship bool
}

// Router dispatches inbound frames.
type Router struct {
	registry    *presence.Registry
	graph       *social.Graph
	transcripts *transcript.Store
	opts        RouterOptions
	metrics     *Metrics
	logger      zerolog.Logger
}

// NewRouter wires a router to its stores. metrics may be nil.
func NewRouter(
	registry *presence.Registry,
	graph *social.Graph,
	transcripts *transcript.Store,
	opts RouterOptions,
	metrics *Metrics,
) *Router {
	return &Router{
		registry:    registry,
		graph:       graph,
		transcripts: transcripts,
		opts:        opts,
		metrics:     metrics,
		logger:      logx.Component("router"),
	}
}

// Connect tracks a freshly accepted, still anonymous connection.
func (r *Router) Connect(conn presence.ConnID) {
	r.registry.Connect(conn)
	r.syncGauges()
}

// Disconnect releases conn and the name it held. Friendships and transcripts stay.
func (r *Router) Disconnect(conn presence.ConnID) (string, bool) {
	name, ok := r.registry.Release(conn)
	r.syncGauges()
	if ok {
		r.logger.Debug().Str("conn_id", string(conn)).Str("username", name).Msg("Identity released.")
	}
	return name, ok
}

// Status reports whether name is unknown, known but offline, or online.
func (r *Router) Status(name string) IdentityStatus {
	if _, ok := r.registry.Resolve(name); ok {
		return StatusOnline
	}
	if r.graph.Known(name) {
		return StatusKnown
	}
	return StatusUnknown
}

// NameOf returns the identity bound to conn.
func (r *Router) NameOf(conn presence.ConnID) (string, bool) {
	return r.registry.NameOf(conn)
}

// Dispatch decodes one raw frame from conn and handles it. Malformed frames
// yield no envelopes.
func (r *Router) Dispatch(conn presence.ConnID, raw []byte) []Envelope {
	var in Inbound
	if err := req.DecodeFrame(raw, &in); err != nil {
		r.logger.Warn().
			Str("conn_id", string(conn)).
			Int("code", err.Code).
			Int("bytes", len(raw)).
			Msg("Dropping malformed frame.")
		r.metrics.recordEvent("", 0)
		return nil
	}
	return r.Handle(conn, in)
}

// Handle processes a decoded frame from conn.
func (r *Router) Handle(conn presence.ConnID, in Inbound) []Envelope {
	start := time.Now()
	out := r.handle(conn, in)
	r.metrics.recordEvent(metricType(in.Type), time.Since(start))
	return out
}

func (r *Router) handle(conn presence.ConnID, in Inbound) []Envelope {
	if in.Type == TypeSetUsername {
		return r.handleClaim(conn, in.Username)
	}

	name, named := r.registry.NameOf(conn)
	if !named {
		r.logger.Debug().
			Str("conn_id", string(conn)).
			Str("msg_type", string(in.Type)).
			Msg("Ignoring frame from anonymous connection.")
		return nil
	}

	switch in.Type {
	case TypeFriendRequest:
		return r.handleFriendRequest(conn, name, in.To)
	case TypeFriendRequestResponse:
		return r.handleFriendResponse(name, in.From, in.Accept)
	case TypeChatMessage:
		return r.handleChatMessage(conn, name, in.To, in.Message)
	case TypeTyping, TypeStopTyping:
		return r.handleTyping(name, in.To, in.Type)
	case TypeGetConversation:
		return r.handleGetConversation(conn, name, in.With)
	case TypeAvatarUpdate:
		return r.handleAvatarUpdate(conn, name, in.Avatar)
	default:
		r.logger.Warn().
			Str("conn_id", string(conn)).
			Str("msg_type", string(in.Type)).
			Msg("Client sent unsupported message type")
		return nil
	}
}

func (r *Router) handleClaim(conn presence.ConnID, requested string) []Envelope {
	name, err := presence.Normalize(requested)
	if err != nil {
		return r.reject(conn, errs.ErrInvalidName)
	}

	// The profile must exist before the name resolves, so a friend request racing
	// this claim never sees an online identity the graph does not know.
	r.graph.Ensure(name)

	claim, err := r.registry.Claim(conn, name)
	switch {
	case errors.Is(err, presence.ErrInvalidName):
		return r.reject(conn, errs.ErrInvalidName)
	case errors.Is(err, presence.ErrNameTaken):
		return r.reject(conn, errs.ErrNameTaken)
	case err != nil:
		r.logger.Warn().Err(err).Str("conn_id", string(conn)).Msg("Claim on untracked connection ignored.")
		return nil
	}

	r.syncGauges()

	r.logger.Info().
		Str("conn_id", string(conn)).
		Str("username", claim.Name).
		Str("previous", claim.Previous).
		Msg("Identity claimed.")

	out := []Envelope{
		{To: conn, Frame: UsernameSetFrame{Type: TypeUsernameSet, Username: claim.Name}},
		{To: conn, Frame: FriendListFrame{Type: TypeFriendList, Friends: r.graph.Friends(claim.Name)}},
	}
	for _, from := range r.graph.Pending(claim.Name) {
		out = append(out, Envelope{To: conn, Frame: FriendRequestFrame{Type: TypeFriendRequest, From: from}})
	}
	return out
}

func (r *Router) handleFriendRequest(conn presence.ConnID, from, to string) []Envelope {
	if to == from || r.Status(to) == StatusUnknown {
		r.logger.Debug().Str("from", from).Str("to", to).Msg("Friend request to unknown or self dropped.")
		return nil
	}

	created, err := r.graph.Request(from, to)
	if errors.Is(err, social.ErrAlreadyFriends) {
		return r.reject(conn, errs.ErrAlreadyFriends)
	}
	if err != nil || !created {
		return nil
	}

	r.logger.Info().Str("from", from).Str("to", to).Msg("Friend request filed.")

	return r.deliverTo(to, FriendRequestFrame{Type: TypeFriendRequest, From: from})
}

func (r *Router) handleFriendResponse(to, from string, accept bool) []Envelope {
	if from == "" || !r.graph.Respond(to, from, accept) {
		return nil
	}

	r.logger.Info().Str("a", from).Str("b", to).Msg("Friendship created.")

	out := r.deliverTo(from, FriendAcceptedFrame{
		Type:   TypeFriendRequestAccepted,
		Friend: to,
		Avatar: r.graph.Avatar(to),
	})
	return append(out, r.deliverTo(to, FriendAcceptedFrame{
		Type:   TypeFriendRequestAccepted,
		Friend: from,
		Avatar: r.graph.Avatar(from),
	})...)
}

func (r *Router) handleChatMessage(conn presence.ConnID, from, to, text string) []Envelope {
	if to == "" || strings.TrimSpace(text) == "" {
		return nil
	}
	if !r.graph.AreFriends(from, to) {
		return r.reject(conn, errs.ErrNotFriends)
	}
	if r.opts.MaxMessageBytes > 0 && len(text) > r.opts.MaxMessageBytes {
		return r.reject(conn, errs.ErrMessageContentTooLong, r.opts.MaxMessageBytes)
	}

	entry := r.transcripts.Append(from, to, from, text)
	r.metrics.setConversations(r.transcripts.Conversations())

	return r.deliverTo(to, ChatMessageFrame{
		Type:      TypeChatMessage,
		ID:        entry.ID,
		From:      from,
		Message:   text,
		Timestamp: entry.Timestamp,
	})
}

func (r *Router) handleTyping(from, to string, t MessageType) []Envelope {
	return r.deliverTo(to, TypingFrame{Type: t, From: from})
}

func (r *Router) handleGetConversation(conn presence.ConnID, name, with string) []Envelope {
	if with == "" {
		return nil
	}
	if r.opts.HistoryRequiresFriendship && !r.graph.AreFriends(name, with) {
		return r.reject(conn, errs.ErrNotFriends)
	}

	return []Envelope{{To: conn, Frame: ConversationHistoryFrame{
		Type:     TypeConversationHistory,
		With:     with,
		Messages: r.transcripts.History(name, with),
	}}}
}

func (r *Router) handleAvatarUpdate(conn presence.ConnID, name, avatar string) []Envelope {
	if r.opts.MaxAvatarBytes > 0 && len(avatar) > r.opts.MaxAvatarBytes {
		return r.reject(conn, errs.ErrAvatarTooLarge, r.opts.MaxAvatarBytes)
	}
	r.graph.SetAvatar(name, avatar)

	var out []Envelope
	for _, friend := range r.graph.Friends(name) {
		out = append(out, r.deliverTo(friend, FriendAvatarFrame{
			Type:   TypeFriendAvatarUpdate,
			Friend: name,
			Avatar: avatar,
		})...)
	}
	return out
}

// deliverTo addresses f to name's live connection; offline names get nothing.
func (r *Router) deliverTo(name string, f Frame) []Envelope {
	conn, ok := r.registry.Resolve(name)
	if !ok {
		r.metrics.recordDelivery("offline")
		return nil
	}
	return []Envelope{{To: conn, Frame: f}}
}

// reject builds the error frame for conn.
func (r *Router) reject(conn presence.ConnID, code int, details ...any) []Envelope {
	customErr := errs.NewError(code, details...)
	r.metrics.recordRejection(rejectionReason(code))

	r.logger.Debug().
		Str("conn_id", string(conn)).
		Int("code", customErr.Code).
		Str("text", customErr.Message).
		Msg("Frame rejected.")

	return []Envelope{{To: conn, Frame: NewErrorFrame(customErr)}}
}

// NewErrorFrame converts a CustomError into its wire form.
func NewErrorFrame(customErr *errs.CustomError) ErrorFrame {
	return ErrorFrame{Type: TypeError, Code: customErr.Code, Text: customErr.Message}
}

func (r *Router) syncGauges() {
	total, online := r.registry.Connections(), r.registry.Online()
	r.metrics.setConnections(total-online, online)
	r.metrics.setKnown(r.graph.Size())
}

func metricType(t MessageType) MessageType {
	switch t {
	case TypeSetUsername, TypeFriendRequest, TypeFriendRequestResponse, TypeChatMessage,
		TypeTyping, TypeStopTyping, TypeGetConversation, TypeAvatarUpdate:
		return t
	default:
		return "unsupported"
	}
}

func rejectionReason(code int) string {
	switch code {
	case errs.ErrInvalidName:
		return "invalid_name"
	case errs.ErrNameTaken:
		return "name_taken"
	case errs.ErrAlreadyFriends:
		return "already_friends"
	case errs.ErrNotFriends:
		return "not_friends"
	case errs.ErrMessageContentTooLong:
		return "message_too_long"
	case errs.ErrAvatarTooLarge:
		return "avatar_too_large"
	case errs.ErrRateLimitExceeded:
		return "rate_limited"
	default:
		return "unknown"
	}
}

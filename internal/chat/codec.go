package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the `type` field of a wire envelope, both inbound
// (client -> server) and outbound (server -> client).
type Kind string

// Inbound request kinds (§6 of the specification this package implements).
const (
	KindRegister     Kind = "register"
	KindBroadcast    Kind = "broadcast"
	KindPrivate      Kind = "private"
	KindListUsers    Kind = "list_users"
	KindUserInfo     Kind = "user_info"
	KindChangeStatus Kind = "change_status"
	KindDisconnect   Kind = "disconnect"
)

// Outbound response kinds.
const (
	KindRegisterSuccess   Kind = "register_success"
	KindListUsersResponse Kind = "list_users_response"
	KindUserInfoResponse  Kind = "user_info_response"
	KindStatusUpdate      Kind = "status_update"
	KindUserDisconnected  Kind = "user_disconnected"
	KindError             Kind = "error"
)

// serverSender is the literal `sender` value on every server-originated
// frame that is not a relay of a peer's own message.
const serverSender = "server"

// timestampLayout is the wire timestamp format: seconds precision, local
// time, no timezone offset. Matches the original C server's
// strftime("%Y-%m-%dT%H:%M:%S").
const timestampLayout = "2006-01-02T15:04:05"

// wireEnvelope is the JSON shape shared by every inbound and outbound
// frame. Content is decoded lazily via json.RawMessage since its shape is
// kind-dependent (string for most kinds, object/array for a few
// server-originated kinds).
type wireEnvelope struct {
	Type      string          `json:"type"`
	Sender    string          `json:"sender"`
	Target    string          `json:"target,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Request is a decoded inbound frame.
type Request struct {
	Kind    Kind
	Sender  string
	Target  string
	Content string
}

// Decode parses raw bytes into a Request. Per the specification, any frame
// that is not valid JSON or lacks the fields required for its kind is
// reported as ErrMalformed; the caller drops it silently (we cannot trust
// Sender on a frame that failed to parse).
func Decode(raw []byte) (Request, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Request{}, fmt.Errorf("decode envelope: %w: %w", ErrMalformed, err)
	}

	if env.Type == "" || env.Sender == "" {
		return Request{}, fmt.Errorf("missing type or sender: %w", ErrMalformed)
	}

	req := Request{
		Kind:   Kind(env.Type),
		Sender: env.Sender,
		Target: env.Target,
	}

	switch req.Kind {
	case KindBroadcast, KindPrivate, KindChangeStatus:
		content, err := decodeStringContent(env.Content)
		if err != nil {
			return Request{}, fmt.Errorf("content for %s: %w", req.Kind, err)
		}
		req.Content = content
	case KindDisconnect:
		// content is optional free text on disconnect.
		if len(env.Content) > 0 {
			content, err := decodeStringContent(env.Content)
			if err == nil {
				req.Content = content
			}
		}
	case KindRegister, KindListUsers, KindUserInfo:
		// content is absent/ignored for these kinds.
	default:
		// Unrecognized kinds still decode successfully; the dispatcher is
		// responsible for replying with an "unknown command" error frame rather than the
		// codec silently dropping them (only JSON/schema failures are
		// silent drops per the error taxonomy).
	}

	if (req.Kind == KindPrivate || req.Kind == KindUserInfo) && req.Target == "" {
		return Request{}, fmt.Errorf("missing target for %s: %w", req.Kind, ErrMalformed)
	}

	return req, nil
}

func decodeStringContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return s, nil
}

// Response is an outbound frame, ready to be encoded and written to a
// transport. Content is an arbitrary JSON-marshalable value; its shape is
// fixed per Kind by the dispatcher that constructs it.
type Response struct {
	Kind    Kind
	Sender  string
	Target  string
	Content any
}

// Encode serializes a Response into a UTF-8 JSON frame with no extraneous
// whitespace. Timestamp is stamped with the current local time immediately
// before serialization, per the wire codec's encode contract.
func Encode(resp Response) ([]byte, error) {
	env := struct {
		Type      string `json:"type"`
		Sender    string `json:"sender"`
		Target    string `json:"target,omitempty"`
		Content   any    `json:"content,omitempty"`
		Timestamp string `json:"timestamp"`
	}{
		Type:      string(resp.Kind),
		Sender:    resp.Sender,
		Target:    resp.Target,
		Content:   resp.Content,
		Timestamp: time.Now().Format(timestampLayout),
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", resp.Kind, err)
	}
	return out, nil
}

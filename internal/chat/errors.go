package chat

import "errors"

// Sentinel errors of the chat error taxonomy. Registry.TryRegister returns
// ErrNameTaken and ErrAlreadyRegistered and Decode returns ErrMalformed;
// callers compare with errors.Is. The dispatcher returns no errors: it
// answers each condition with an outbound error frame.
var (
	// ErrNameTaken is returned by Registry.TryRegister when name is already
	// held by a live session.
	ErrNameTaken = errors.New("chat: name already in use")

	// ErrSessionNotFound reports that no live session matches a name or
	// transport. Registry lookups report a miss with ok == false instead.
	ErrSessionNotFound = errors.New("chat: session not found")

	// ErrAlreadyRegistered is returned when a transport that already has a
	// session attempts to register again.
	ErrAlreadyRegistered = errors.New("chat: transport already registered")

	// ErrNotRegistered indicates a non-register frame arrived before the
	// session completed registration.
	ErrNotRegistered = errors.New("chat: session not registered")

	// ErrMalformed indicates a frame could not be decoded into a Request.
	ErrMalformed = errors.New("chat: malformed frame")

	// ErrUnknownType indicates a Request carried a type the dispatcher does
	// not recognize.
	ErrUnknownType = errors.New("chat: unknown command")

	// ErrInvalidStatus indicates a change_status frame carried a value
	// outside {ACTIVO, OCUPADO, INACTIVO}.
	ErrInvalidStatus = errors.New("chat: invalid status")

	// ErrTargetNotFound indicates a private or user_info frame named a
	// target with no live session.
	ErrTargetNotFound = errors.New("chat: user not found")
)

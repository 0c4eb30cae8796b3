package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the "type" discriminator of every frame.
type MessageType string

const (
	TypeAuthenticate     MessageType = "Authenticate"
	TypeSynchronizeModel MessageType = "SynchronizeModel"

	TypeAuthenticated MessageType = "Authenticated"
	TypeSyncSuccess   MessageType = "SyncSuccess"
	TypeError         MessageType = "Error"
)

// ErrorInvalidToken is the errorType the engine uses to reject a token.
// Every other errorType is a generic engine error.
const ErrorInvalidToken = "InvalidToken"

// DefaultModelName is sent when the project has no name.
const DefaultModelName = "UnnamedModel"

var (
	// ErrMalformedFrame is returned for frames that are not a JSON object with a string type.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownType is returned for well-formed frames with a type this client does not handle.
	ErrUnknownType = errors.New("unknown message type")
)

// Outbound is a frame sent to the engine.
type Outbound struct {
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
}

// AuthenticateData is the payload of an Authenticate frame.
type AuthenticateData struct {
	Token string `json:"token"`
}

// SynchronizeModelData is the payload of a SynchronizeModel frame.
type SynchronizeModelData struct {
	ModelName string `json:"modelName"`
	ModelData string `json:"modelData"`
}

func NewAuthenticate(token string) Outbound {
	return Outbound{Type: TypeAuthenticate, Data: AuthenticateData{Token: token}}
}

// NewSynchronizeModel builds a SynchronizeModel frame. An empty name is
// replaced with DefaultModelName.
func NewSynchronizeModel(modelName, modelData string) Outbound {
	if modelName == "" {
		modelName = DefaultModelName
	}
	return Outbound{Type: TypeSynchronizeModel, Data: SynchronizeModelData{ModelName: modelName, ModelData: modelData}}
}

// Marshal encodes the frame as a single-line JSON document.
func (o Outbound) Marshal() ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", o.Type, err)
	}
	return b, nil
}

// Message is a decoded inbound frame. Only the fields relevant to Type are set.
type Message struct {
	Type      MessageType `json:"type"`
	ModelName string      `json:"modelName,omitempty"`
	ErrorType string      `json:"errorType,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

// InvalidToken reports whether m is an authentication rejection.
func (m Message) InvalidToken() bool {
	return m.Type == TypeError && m.ErrorType == ErrorInvalidToken
}

// Decode parses one inbound frame.
func Decode(frame []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	switch m.Type {
	case TypeAuthenticated, TypeSyncSuccess, TypeError:
		return m, nil
	case "":
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}

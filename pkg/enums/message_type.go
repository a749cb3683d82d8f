package enums

import (
	"fmt"
	"slices"
)

// MessageType distinguishes human messages from lifecycle notices.
type MessageType string

const (
	MessageTypeGeneral MessageType = "general"
	MessageTypeSystem  MessageType = "system"
)

var validMessageTypes = []MessageType{
	MessageTypeGeneral,
	MessageTypeSystem,
}

func (m MessageType) String() string {
	return string(m)
}

func (m MessageType) IsValid() bool {
	return slices.Contains(validMessageTypes, m)
}

func ParseMessageType(value string) (MessageType, error) {
	for _, candidate := range validMessageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message type %q", value)
}

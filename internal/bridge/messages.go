package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/tuya-ce-core/internal/device"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// DescriptorMessage is the payload of the descriptor topic.
type DescriptorMessage struct {
	tuya.DeviceDescriptor
	Online *bool `json:"online,omitempty"`
}

// StatusMessage is a Tuya message-queue status report.
//
//	{"devId": "bf01", "status": [{"code": "switch_1", "value": true, "t": 1700000000000}]}
type StatusMessage struct {
	DevID  string                `json:"devId"`
	Status []device.StatusUpdate `json:"status"`
}

// ServiceResult is broadcast to WebSocket clients after a service call completes.
type ServiceResult struct {
	Service string `json:"service"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func decodeDescriptor(id string, payload []byte) (*DescriptorMessage, error) {
	var msg DescriptorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: descriptor: %w", ErrInvalidMessage, err)
	}
	switch msg.ID {
	case "":
		msg.ID = id
	case id:
	default:
		return nil, fmt.Errorf("%w: topic %s, payload %s", ErrTopicMismatch, id, msg.ID)
	}
	return &msg, nil
}

func decodeStatus(id string, payload []byte) (*StatusMessage, error) {
	var msg StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: status: %w", ErrInvalidMessage, err)
	}
	if msg.DevID != "" && msg.DevID != id {
		return nil, fmt.Errorf("%w: topic %s, payload %s", ErrTopicMismatch, id, msg.DevID)
	}
	return &msg, nil
}

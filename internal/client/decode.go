package client

import (
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

func decodeJoinedRoom(frame protocol.Frame) (protocol.JoinedRoom, error) {
	var payload protocol.JoinedRoom
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeLeftRoom(frame protocol.Frame) (protocol.LeftRoom, error) {
	var payload protocol.LeftRoom
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeReceiveMessage(frame protocol.Frame) (protocol.ReceiveMessage, error) {
	var payload protocol.ReceiveMessage
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeUserJoinedRoom(frame protocol.Frame) (protocol.UserJoinedRoom, error) {
	var payload protocol.UserJoinedRoom
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeUserLeftRoom(frame protocol.Frame) (protocol.UserLeftRoom, error) {
	var payload protocol.UserLeftRoom
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeUserTypingStatus(frame protocol.Frame) (protocol.UserTypingStatus, error) {
	var payload protocol.UserTypingStatus
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeMessageRead(frame protocol.Frame) (protocol.MessageRead, error) {
	var payload protocol.MessageRead
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeContactStatusChanged(frame protocol.Frame) (protocol.ContactStatusChanged, error) {
	var payload protocol.ContactStatusChanged
	err := frame.DecodeData(&payload)
	return payload, err
}

func decodeErrorNotice(frame protocol.Frame) (protocol.ErrorNotice, error) {
	var payload protocol.ErrorNotice
	err := frame.DecodeData(&payload)
	return payload, err
}

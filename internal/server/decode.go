package server

import (
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

func decodeJoinRoom(frame protocol.Frame) (protocol.JoinRoomRequest, error) {
	var req protocol.JoinRoomRequest
	err := frame.DecodeData(&req)
	return req, err
}

func decodeLeaveRoom(frame protocol.Frame) (protocol.LeaveRoomRequest, error) {
	var req protocol.LeaveRoomRequest
	err := frame.DecodeData(&req)
	return req, err
}

func decodeSendMessage(frame protocol.Frame) (protocol.SendMessageRequest, error) {
	var req protocol.SendMessageRequest
	err := frame.DecodeData(&req)
	return req, err
}

func decodeSetTypingStatus(frame protocol.Frame) (protocol.SetTypingStatusRequest, error) {
	var req protocol.SetTypingStatusRequest
	err := frame.DecodeData(&req)
	return req, err
}

func decodeMarkMessagesAsRead(frame protocol.Frame) (protocol.MarkMessagesAsReadRequest, error) {
	var req protocol.MarkMessagesAsReadRequest
	err := frame.DecodeData(&req)
	return req, err
}

package domain

const MaxRoomIDLen = 64

type RoomID string

package ws

import "github.com/cwrk-planet/tempvoice/internal/domain"

// Типы событий, которые уходят подписчикам
const (
	TypeState     = "state"      // снапшот генераторов и их комнат
	TypeRoomEvent = "room_event" // изменение состояния одной комнаты
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type StatePayload struct {
	GuildID    string           `json:"guild_id"`
	Generators []GeneratorState `json:"generators"`
}

type GeneratorState struct {
	CategoryID string   `json:"category_id"`
	Name       string   `json:"name"`
	Rooms      []string `json:"rooms"`
}

func roomEventMessage(ev domain.RoomEvent) Message {
	return Message{Type: TypeRoomEvent, Payload: ev}
}

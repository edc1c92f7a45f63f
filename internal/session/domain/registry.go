package domain

import (
	"reflect"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	SessionStarted   = "game.session.started"
	SessionCompleted = sharedEvents.SessionCompleted
)

// EventsTopic es el topic compartido de anuncios de la plataforma.
const EventsTopic = "care-events"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		SessionStarted: {
			Type:  reflect.TypeOf(GameSession{}),
			Topic: EventsTopic,
		},
		SessionCompleted: {
			Type:   reflect.TypeOf(GameSession{}),
			Topic:  EventsTopic,
			Target: []string{"mobile"},
		},
	}
}

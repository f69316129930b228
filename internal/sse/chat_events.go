package sse

import (
	"context"
	"sync"

	"ms-marketplace/internal/models"
)

const clientBuffer = 10

// ChatEventEmitter fans chat events out to the SSE clients of one instance.
type ChatEventEmitter struct {
	clients     map[string][]chan models.ChatEvent
	clientMutex sync.RWMutex
}

func NewChatEventEmitter() *ChatEventEmitter {
	return &ChatEventEmitter{
		clients: make(map[string][]chan models.ChatEvent),
	}
}

// Subscribe registers a client for a channel. The returned channel is
// closed once ctx is done.
func (e *ChatEventEmitter) Subscribe(ctx context.Context, channelID string) <-chan models.ChatEvent {
	clientChan := make(chan models.ChatEvent, clientBuffer)

	e.clientMutex.Lock()
	e.clients[channelID] = append(e.clients[channelID], clientChan)
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(channelID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts to every client of the event's channel. Slow clients
// with a full buffer miss the event.
func (e *ChatEventEmitter) Emit(event models.ChatEvent) {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()

	for _, clientChan := range e.clients[event.ChannelID] {
		select {
		case clientChan <- event:
		default:
		}
	}
}

func (e *ChatEventEmitter) removeClient(channelID string, clientChan chan models.ChatEvent) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	clients := e.clients[channelID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[channelID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[channelID]) == 0 {
		delete(e.clients, channelID)
	}
}

// ClientCount returns the number of clients subscribed to a channel.
func (e *ChatEventEmitter) ClientCount(channelID string) int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients[channelID])
}

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"vidchat-service/internal/models"
	"vidchat-service/internal/observability"
	"vidchat-service/internal/realtime"
)

// Update types pushed to the transport.
const (
	UpdateSnapshot    = "snapshot"
	UpdateMessage     = "message"
	UpdatePresence    = "presence"
	UpdateViewers     = "viewers"
	UpdateStreamEnded = "stream_ended"
)

var ErrSessionClosed = errors.New("session closed")

// Update is a change to a session's state.
type Update struct {
	Type     string                   `json:"type"`
	Room     models.RoomRef           `json:"room"`
	Message  *models.EnrichedMessage  `json:"message,omitempty"`
	Messages []models.EnrichedMessage `json:"messages,omitempty"`
	Online   int                      `json:"online"`
	Viewers  *int                     `json:"viewers,omitempty"`
}

// Session is one subscriber's live view of a room. A single goroutine
// applies events; the mutex only gives readers consistent snapshots.
type Session struct {
	room   models.RoomRef
	relay  *Relay
	ctx    context.Context
	cancel context.CancelFunc

	subs    map[string]realtime.Subscription
	untrack func()
	updates chan Update
	done    chan struct{}
	resyncs chan resyncRequest

	mu       sync.RWMutex
	messages []models.EnrichedMessage
	online   int
	viewers  int
	closed   bool
	// ids delivered by the backfill; a live insert with one of these ids
	// raced the history query and is skipped once.
	backfilled map[string]struct{}

	closeOnce sync.Once
}

// Room identifies what the session is subscribed to.
func (s *Session) Room() models.RoomRef {
	return s.room
}

// Updates delivers state changes until the session is closed.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Messages returns a copy of the ordered message list.
func (s *Session) Messages() []models.EnrichedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.EnrichedMessage(nil), s.messages...)
}

// OnlineCount is the number of distinct clients present in the room.
func (s *Session) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// ViewerCount is the last viewer count seen for a live stream.
func (s *Session) ViewerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewers
}

type resyncRequest struct {
	ctx    context.Context
	result chan error
}

// Resync replaces the message list with the authoritative recent history
// and pushes a fresh snapshot. It runs on the session's event loop, so no
// live insert is applied while the history is loading.
func (s *Session) Resync(ctx context.Context) error {
	req := resyncRequest{ctx: ctx, result: make(chan error, 1)}
	select {
	case s.resyncs <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resync must only be called from run.
func (s *Session) resync(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSessionClosed
	}

	history, err := s.relay.history.RecentMessages(ctx, s.room, s.relay.historyLimit)
	if err != nil {
		return err
	}
	online, countErr := s.relay.presence.Count(ctx, s.room.ID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.setHistoryLocked(history)
	if countErr == nil {
		s.online = online
	}
	s.mu.Unlock()

	s.emitSnapshot()
	observability.IncRelayEvent(string(s.room.Kind), "resync")
	return nil
}

// Close releases every channel and untracks presence. It is safe to call
// more than once; after it returns no event changes the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		closeSubscriptions(s.subs)
		<-s.done
		if s.untrack != nil {
			s.untrack()
		}

		s.mu.Lock()
		close(s.updates)
		s.mu.Unlock()
		observability.DecRelaySessions(string(s.room.Kind))
	})
}

func (s *Session) run(messages, presence, control, viewers <-chan realtime.Event) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			s.handleMessage(ev)
		case ev, ok := <-presence:
			if !ok {
				presence = nil
				continue
			}
			s.handlePresence(ev)
		case ev, ok := <-control:
			if !ok {
				control = nil
				continue
			}
			s.handleControl(ev)
		case ev, ok := <-viewers:
			if !ok {
				viewers = nil
				continue
			}
			s.handleViewers(ev)
		case req := <-s.resyncs:
			ctx, cancel := context.WithCancel(req.ctx)
			stop := context.AfterFunc(s.ctx, cancel)
			req.result <- s.resync(ctx)
			stop()
			cancel()
		}
	}
}

func (s *Session) handleMessage(ev realtime.Event) {
	if ev.Type != realtime.EventInsert {
		return
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		log.Printf("relay: decode message on %s: %v", ev.Topic, err)
		return
	}

	enriched := models.EnrichedMessage{ChatMessage: msg, Profile: s.lookupSender(msg.UserID)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, seen := s.backfilled[msg.ID]; seen {
		delete(s.backfilled, msg.ID)
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages, enriched)
	online := s.online
	s.mu.Unlock()

	observability.IncRelayEvent(string(s.room.Kind), UpdateMessage)
	s.emit(Update{Type: UpdateMessage, Room: s.room, Message: &enriched, Online: online})
}

// lookupSender blocks the event loop until the profile resolves. Any
// failure yields the anonymous identity; the message is never dropped.
func (s *Session) lookupSender(userID string) models.Sender {
	ctx, cancel := context.WithTimeout(s.ctx, s.relay.lookupTimeout)
	defer cancel()
	sender, err := s.relay.profiles.GetSender(ctx, userID)
	if err != nil {
		log.Printf("relay: profile lookup user=%s: %v", userID, err)
		observability.IncEnrichmentFallback()
		return models.AnonymousSender()
	}
	return sender
}

func (s *Session) handlePresence(ev realtime.Event) {
	if ev.Type != realtime.EventPresenceSync {
		return
	}
	online, err := s.relay.presence.Count(s.ctx, s.room.ID)
	if err != nil {
		log.Printf("relay: presence count room=%s: %v", s.room.ID, err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.online = online
	s.mu.Unlock()

	observability.IncRelayEvent(string(s.room.Kind), UpdatePresence)
	s.emit(Update{Type: UpdatePresence, Room: s.room, Online: online})
}

func (s *Session) handleControl(ev realtime.Event) {
	if ev.Type != realtime.EventResync {
		return
	}
	if err := s.resync(s.ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
		log.Printf("relay: resync kind=%s room=%s: %v", s.room.Kind, s.room.ID, err)
	}
}

type streamRow struct {
	ID          string `json:"id"`
	ViewerCount int    `json:"viewer_count"`
	IsLive      bool   `json:"is_live"`
}

func (s *Session) handleViewers(ev realtime.Event) {
	if ev.Type != realtime.EventUpdate {
		return
	}
	var row streamRow
	if err := json.Unmarshal(ev.Payload, &row); err != nil {
		log.Printf("relay: decode stream row on %s: %v", ev.Topic, err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.viewers = row.ViewerCount
	online := s.online
	s.mu.Unlock()

	viewers := row.ViewerCount
	observability.IncRelayEvent(string(s.room.Kind), UpdateViewers)
	s.emit(Update{Type: UpdateViewers, Room: s.room, Online: online, Viewers: &viewers})
	if !row.IsLive {
		s.emit(Update{Type: UpdateStreamEnded, Room: s.room, Online: online, Viewers: &viewers})
	}
}

func (s *Session) setHistoryLocked(history []models.EnrichedMessage) {
	s.messages = append([]models.EnrichedMessage(nil), history...)
	s.backfilled = make(map[string]struct{}, len(history))
	for _, m := range history {
		s.backfilled[m.ID] = struct{}{}
	}
}

func (s *Session) emitSnapshot() {
	s.mu.RLock()
	update := Update{
		Type:     UpdateSnapshot,
		Room:     s.room,
		Messages: append([]models.EnrichedMessage{}, s.messages...),
		Online:   s.online,
	}
	if s.room.Kind == models.RoomKindStream {
		viewers := s.viewers
		update.Viewers = &viewers
	}
	s.mu.RUnlock()
	s.emit(update)
}

// emit never blocks the event loop; a transport that falls behind loses
// updates rather than stalling the room.
func (s *Session) emit(update Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- update:
	default:
		log.Printf("relay: dropping %s update kind=%s room=%s: transport behind", update.Type, s.room.Kind, s.room.ID)
		observability.IncRealtimeDropped("relay")
	}
}

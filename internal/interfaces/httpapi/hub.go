package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

// VisibilityGate is told whether any viewer is currently attending.
// The poll scheduler implements it.
type VisibilityGate interface {
	SetVisible(visible bool)
}

type serverMessage struct {
	Type       string        `json:"type"`
	Op         string        `json:"op,omitempty"`
	SubjectID  string        `json:"subjectId,omitempty"`
	OccurredAt time.Time     `json:"occurredAt,omitempty"`
	Entry      *liveEntryDTO `json:"entry,omitempty"`
	Entries    []liveEntryDTO `json:"entries,omitempty"`
}

// Hub fans row changes out to connected websocket viewers and reports
// occupancy to the visibility gate: the first viewer resumes polling,
// the last one leaving suspends it.
type Hub struct {
	board  *usecase.BoardService
	feed   usecase.ChangeFeed
	gate   VisibilityGate
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}

	pumps conc.WaitGroup
}

func NewHub(board *usecase.BoardService, feed usecase.ChangeFeed, gate VisibilityGate, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}

	return &Hub{
		board:      board,
		feed:       feed,
		gate:       gate,
		logger:     logger,
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// Run drives the hub until ctx is cancelled. It owns the client set and
// the change-feed subscription.
func (h *Hub) Run(ctx context.Context) error {
	changes, cancelFeed, err := h.feed.Subscribe(ctx, usecase.TableLiveMatches)
	if err != nil {
		return err
	}
	defer cancelFeed()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil

		case client := <-h.register:
			h.addClient(ctx, client)

		case client := <-h.unregister:
			h.removeClient(client)

		case change, open := <-changes:
			if !open {
				h.shutdown()
				return nil
			}
			h.broadcastChange(ctx, change)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(ctx context.Context, client *wsClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	if count == 1 {
		h.gate.SetVisible(true)
	}
	h.logger.Info("viewer connected", "client_id", client.id, "viewers", count)

	// New viewers start from a full snapshot, then apply row changes.
	entries, err := h.board.LiveBoard(ctx)
	if err != nil {
		h.logger.Warn("live board snapshot failed", "client_id", client.id, "error", err)
		return
	}
	client.trySend(serverMessage{Type: "snapshot", Entries: liveEntriesToDTO(entries)})
}

func (h *Hub) removeClient(client *wsClient) {
	h.mu.Lock()
	_, known := h.clients[client]
	if known {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !known {
		return
	}
	if count == 0 {
		h.gate.SetVisible(false)
	}
	h.logger.Info("viewer disconnected", "client_id", client.id, "viewers", count)
}

func (h *Hub) broadcastChange(ctx context.Context, change usecase.RowChange) {
	if h.ClientCount() == 0 {
		return
	}

	msg := serverMessage{
		Type:       "rowChange",
		Op:         string(change.Op),
		SubjectID:  change.SubjectID,
		OccurredAt: change.OccurredAt,
	}

	if change.Op == usecase.ChangeOpUpsert {
		entries, err := h.board.LiveBoard(ctx)
		if err != nil {
			h.logger.Warn("live board read for broadcast failed", "error", err)
		} else {
			for i := range entries {
				if entries[i].Subject.ID == change.SubjectID {
					dto := liveEntryToDTO(entries[i])
					msg.Entry = &dto
					break
				}
			}
		}
	}

	h.mu.RLock()
	for client := range h.clients {
		if !client.trySend(msg) {
			h.logger.Warn("dropping message for slow viewer", "client_id", client.id)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	h.gate.SetVisible(false)
	h.pumps.Wait()
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser viewers connect cross-origin from the public site; auth
	// is not part of this surface.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the connection and hands it to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := newWSClient(uuid.NewString(), conn, h)

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}

	h.pumps.Go(func() { client.writePump() })
	h.pumps.Go(func() { client.readPump() })
}

func liveEntriesToDTO(entries []usecase.LiveBoardEntry) []liveEntryDTO {
	out := make([]liveEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, liveEntryToDTO(entry))
	}
	return out
}

func liveEntryToDTO(entry usecase.LiveBoardEntry) liveEntryDTO {
	return liveEntryDTO{
		SubjectID:      entry.Subject.ID,
		SubjectName:    entry.Subject.Name,
		Sport:          entry.Subject.Sport,
		Team:           entry.Subject.Team,
		Opponent:       entry.State.Opponent,
		Home:           entry.State.Home,
		Phase:          string(entry.State.Phase),
		KickoffAt:      entry.State.KickoffAt,
		ElapsedMinutes: entry.State.ElapsedMinutes,
		HomeScore:      entry.State.HomeScore,
		AwayScore:      entry.State.AwayScore,
		Stats:          entry.State.Stats,
		LastEvent:      entry.State.LastEvent,
		UpdatedAt:      entry.State.UpdatedAt,
	}
}

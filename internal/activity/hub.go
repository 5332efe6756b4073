// Package activity fans out record-change events to live dashboard
// subscribers. Events are ephemeral; the durable activity feed is
// derived from storage.
package activity

import (
	"sync"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/domain"
)

// EventType identifies what happened to a record.
type EventType string

const (
	EventBusinessCreated EventType = "business_created"
	EventBusinessUpdated EventType = "business_updated"
	EventBusinessDeleted EventType = "business_deleted"
	EventAnalysisRun     EventType = "analysis_run"
	EventStatusChanged   EventType = "status_changed"
)

// Event describes one change to an owned record.
type Event struct {
	Type        EventType             `json:"type"`
	OwnerID     string                `json:"-"`
	BusinessID  string                `json:"businessId,omitempty"`
	AnalysisID  string                `json:"analysisId,omitempty"`
	CompanyName string                `json:"companyName,omitempty"`
	Industry    string                `json:"industry,omitempty"`
	Status      domain.AnalysisStatus `json:"status,omitempty"`
	At          time.Time             `json:"at"`
}

const subscriberBuffer = 16

// Hub routes events to the owning user's subscribers. A subscriber that
// cannot keep up loses events rather than blocking publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan Event]struct{}{}}
}

// Subscribe registers a listener for one owner's events. The returned
// cancel func must be called when the listener goes away.
func (h *Hub) Subscribe(ownerID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = map[chan Event]struct{}{}
	}
	h.subs[ownerID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[ownerID]; ok {
			if _, live := set[ch]; live {
				delete(set, ch)
				// Closing under the lock: no publisher can be mid-send.
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, ownerID)
			}
		}
	}
	return ch, cancel
}

// Publish delivers the event to the owner's subscribers without
// blocking.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[evt.OwnerID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

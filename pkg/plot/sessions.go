package plot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/raykavin/chartdesk/pkg/chart"
	"github.com/raykavin/chartdesk/pkg/feed"
	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/series"
)

var ErrSessionNotFound = errors.New("session not found")

// Canvas bounds accepted for a session.
const (
	DefaultWidth  = 1000
	DefaultHeight = 500
	MinCanvas     = 100
	MaxCanvas     = 4000
)

// Session is one mounted chart view. All access to the view goes through Do.
type Session struct {
	ID      string
	Created time.Time

	mu      sync.Mutex
	query   feed.Query
	symbol  string
	report  series.Report
	news    []feed.News
	compare map[string]feed.Comparison
	view    *chart.View
	version atomic.Int64
}

// Event is pushed to websocket clients after a session changed.
type Event struct {
	Session string `json:"session"`
	Version int64  `json:"version"`
	State   State  `json:"state"`
}

// Do runs fn with exclusive access to the view. It returns the event to
// publish when fn left the frame dirty.
func (s *Session) Do(fn func(v *chart.View) error) (Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.version.Load()
	if err := fn(s.view); err != nil {
		return Event{}, false, err
	}
	if s.version.Load() == before {
		return Event{}, false, nil
	}
	return Event{Session: s.ID, Version: s.version.Load(), State: s.state()}, true, nil
}

// Snapshot returns the session description under lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	width, height := s.view.Size()
	entries := s.view.Entries()
	annotations := make([]any, 0, len(entries))
	for _, e := range entries {
		annotations = append(annotations, e)
	}

	return Snapshot{
		ID:          s.ID,
		Symbol:      s.symbol,
		Query:       s.query,
		Width:       width,
		Height:      height,
		Bars:        len(s.view.Candles()),
		Version:     s.version.Load(),
		Created:     s.Created,
		Report:      s.report,
		News:        s.news,
		Compare:     s.compare,
		State:       s.state(),
		Annotations: annotations,
	}
}

func (s *Session) state() State {
	st := s.view.Session()
	hover := s.view.Hover()

	out := State{
		ArmedTool: st.ArmedTool.String(),
		Phase:     st.Phase.String(),
		Anchor:    st.Anchor,
		Cursor:    st.Cursor,
		Pending:   st.Pending,
		Hover:     Hover{Visible: hover.Visible, Pointer: hover.Pointer},
	}
	if hover.Visible {
		out.Hover.Index = hover.Hit.Index
		out.Hover.Lines = chart.TooltipLines(hover.Hit, s.view.Theme())
	}
	return out
}

// State is the JSON form of the drawing session and tooltip.
type State struct {
	ArmedTool string       `json:"armedTool"`
	Phase     string       `json:"phase"`
	Anchor    *chart.Point `json:"anchor,omitempty"`
	Cursor    *chart.Point `json:"cursor,omitempty"`
	Pending   *chart.Flag  `json:"pending,omitempty"`
	Hover     Hover        `json:"hover"`
}

// Hover is the tooltip under the pointer.
type Hover struct {
	Visible bool        `json:"visible"`
	Pointer chart.Point `json:"pointer"`
	Index   int         `json:"index"`
	Lines   []string    `json:"lines,omitempty"`
}

// Snapshot describes a session.
type Snapshot struct {
	ID          string                     `json:"id"`
	Symbol      string                     `json:"symbol"`
	Query       feed.Query                 `json:"query"`
	Width       float64                    `json:"width"`
	Height      float64                    `json:"height"`
	Bars        int                        `json:"bars"`
	Version     int64                      `json:"version"`
	Created     time.Time                  `json:"created"`
	Report      series.Report              `json:"report"`
	News        []feed.News                `json:"news,omitempty"`
	Compare     map[string]feed.Comparison `json:"compare,omitempty"`
	State       State                      `json:"state"`
	Annotations []any                      `json:"annotations"`
}

// Sessions owns every mounted view of the server.
type Sessions struct {
	sync.RWMutex
	byID      map[string]*Session
	loader    *feed.Loader
	log       logger.Logger
	anchoring chart.Anchoring
}

// NewSessions creates an empty session registry loading data through loader.
func NewSessions(loader *feed.Loader, anchoring chart.Anchoring, log logger.Logger) *Sessions {
	return &Sessions{
		byID:      make(map[string]*Session),
		loader:    loader,
		log:       log,
		anchoring: anchoring,
	}
}

// Create loads q and mounts a new view of width x height.
func (m *Sessions) Create(ctx context.Context, q feed.Query, width, height float64) (*Session, error) {
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if err := q.Validate(); err != nil {
		return nil, err
	}
	width, height = canvasSize(width, height)

	data, err := m.loader.Load(ctx, q)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		query:   q,
		symbol:  data.Symbol,
		report:  data.Report,
		news:    data.News,
		compare: data.Compare,
	}
	log := m.log.WithFields(map[string]any{"session": s.ID, "symbol": data.Symbol})
	s.view = chart.NewView(log, width, height,
		chart.WithAnchoring(m.anchoring),
		chart.WithInvalidateHook(func() { s.version.Add(1) }),
	)
	s.view.SetCandles(data.Candles)

	m.Lock()
	m.byID[s.ID] = s
	m.Unlock()

	log.Infof("session created with %d candles", len(data.Candles))
	return s, nil
}

// Get returns the session with the given ID.
func (m *Sessions) Get(id string) (*Session, error) {
	m.RLock()
	defer m.RUnlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns every session, oldest first.
func (m *Sessions) List() []*Session {
	m.RLock()
	out := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	m.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Len returns the number of mounted sessions.
func (m *Sessions) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.byID)
}

// Delete tears the session down and forgets it.
func (m *Sessions) Delete(id string) error {
	m.Lock()
	s, ok := m.byID[id]
	delete(m.byID, id)
	m.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.mu.Lock()
	s.view.Teardown()
	s.mu.Unlock()

	m.log.WithField("session", id).Info("session closed")
	return nil
}

// Refresh reloads the candles of every session. Failures leave the session
// on its previous data. It returns the events of the sessions that changed.
func (m *Sessions) Refresh(ctx context.Context) []Event {
	var events []Event
	for _, s := range m.List() {
		s.mu.Lock()
		q := s.query
		s.mu.Unlock()

		data, err := m.loader.Load(ctx, q)
		if err != nil {
			m.log.WithError(err).WithField("session", s.ID).Warn("refresh failed")
			continue
		}

		event, changed, _ := s.Do(func(v *chart.View) error {
			if v.Closed() {
				return nil
			}
			s.report = data.Report
			s.news = data.News
			s.compare = data.Compare
			v.SetCandles(data.Candles)
			return nil
		})
		if changed {
			events = append(events, event)
		}
	}
	return events
}

// Close tears down every session.
func (m *Sessions) Close() {
	for _, s := range m.List() {
		_ = m.Delete(s.ID)
	}
}

func canvasSize(width, height float64) (float64, float64) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return clampCanvas(width), clampCanvas(height)
}

func clampCanvas(v float64) float64 {
	return min(max(math.Round(v), MinCanvas), MaxCanvas)
}

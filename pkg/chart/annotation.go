package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/StudioSol/set"
)

var ErrUnknownTool = errors.New("unknown drawing tool")

// Tool is the drawing tool a session can arm. Annotation kinds reuse it.
type Tool int

const (
	ToolNone Tool = iota
	ToolTrendLine
	ToolHorizontalLine
	ToolFlag
)

var toolNames = map[Tool]string{
	ToolNone:           "none",
	ToolTrendLine:      "trend",
	ToolHorizontalLine: "horizontal",
	ToolFlag:           "flag",
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// ParseTool accepts the names produced by Tool.String, plus a few aliases.
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return ToolNone, nil
	case "trend", "trendline", "line":
		return ToolTrendLine, nil
	case "horizontal", "hline", "horizontalline":
		return ToolHorizontalLine, nil
	case "flag":
		return ToolFlag, nil
	}
	return ToolNone, fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

func (t Tool) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tool) UnmarshalText(b []byte) error {
	parsed, err := ParseTool(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Annotation is a finalized drawing. It is one of TrendLine, HorizontalLine or Flag.
// Pixel coordinates are kept as drawn; the data-space anchors let a renderer
// reproject the drawing after a resize or data change.
type Annotation interface {
	Kind() Tool
	annotation()
}

// TrendLine is a segment between two arbitrary points.
type TrendLine struct {
	StartX float64   `json:"startX"`
	StartY float64   `json:"startY"`
	EndX   float64   `json:"endX"`
	EndY   float64   `json:"endY"`
	Start  DataPoint `json:"start"`
	End    DataPoint `json:"end"`
}

// HorizontalLine spans the full canvas width at one price.
type HorizontalLine struct {
	Y     float64 `json:"y"`
	Price float64 `json:"price"`
}

// Flag marks a single point with a text label.
type Flag struct {
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Price  float64   `json:"price"`
	Text   string    `json:"text"`
	Anchor DataPoint `json:"anchor"`
}

func (TrendLine) Kind() Tool      { return ToolTrendLine }
func (HorizontalLine) Kind() Tool { return ToolHorizontalLine }
func (Flag) Kind() Tool           { return ToolFlag }

func (TrendLine) annotation()      {}
func (HorizontalLine) annotation() {}
func (Flag) annotation()           {}

// Entry is a stored annotation together with its store-assigned ID.
type Entry struct {
	ID         int64
	Annotation Annotation
}

// MarshalJSON flattens the annotation fields next to its id and type.
func (e Entry) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(e.Annotation)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	fields["id"], _ = json.Marshal(e.ID)
	fields["type"], _ = json.Marshal(e.Annotation.Kind())

	return json.Marshal(fields)
}

// Store is the ordered collection of finalized annotations.
// Annotations are rendered in insertion order, so later ones paint on top.
// A Store is not safe for concurrent use; its owner serializes access.
type Store struct {
	ids     *set.LinkedHashSetINT64
	byID    map[int64]Annotation
	counter atomic.Int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		ids:  set.NewLinkedHashSetINT64(),
		byID: make(map[int64]Annotation),
	}
}

// Append stores a and returns its ID.
func (s *Store) Append(a Annotation) int64 {
	id := s.counter.Add(1)
	s.ids.Add(id)
	s.byID[id] = a
	return id
}

// Get returns the annotation with the given ID.
func (s *Store) Get(id int64) (Annotation, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Remove deletes one annotation. Editing is done by removing and appending again.
func (s *Store) Remove(id int64) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	s.ids.Remove(id)
	delete(s.byID, id)
	return true
}

// Clear drops every annotation.
func (s *Store) Clear() {
	s.ids = set.NewLinkedHashSetINT64()
	s.byID = make(map[int64]Annotation)
}

// Len returns the number of stored annotations.
func (s *Store) Len() int {
	return len(s.byID)
}

// Entries returns the annotations with their IDs in insertion order.
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, len(s.byID))
	for id := range s.ids.Iter() {
		entries = append(entries, Entry{ID: id, Annotation: s.byID[id]})
	}
	return entries
}

// List returns the annotations in insertion order.
func (s *Store) List() []Annotation {
	list := make([]Annotation, 0, len(s.byID))
	for id := range s.ids.Iter() {
		list = append(list, s.byID[id])
	}
	return list
}

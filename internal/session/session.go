package session

import (
	"errors"
	"sync"
	"time"

	"tryon/internal/domain"
)

// Step identifies a wizard page.
type Step int

const (
	StepColor   Step = 1
	StepUpload  Step = 2
	StepPreview Step = 3
)

var (
	ErrUnknownStep        = errors.New("session: unknown step")
	ErrGenerationInFlight = errors.New("session: generation already in progress")
	ErrNotReady           = errors.New("session: color and photo are required")
)

// Valid reports whether s is one of the three wizard steps.
func (s Step) Valid() bool {
	return s >= StepColor && s <= StepPreview
}

// Photo is the user's upload.
type Photo struct {
	Data      []byte
	MediaType string
	Filename  string
}

// Result is a generated preview. Either Data or URL is populated.
type Result struct {
	MediaType string
	Data      []byte
	URL       string
}

// Ticket is handed out by BeginGeneration and identifies the session state a
// generation was started from.
type Ticket struct {
	revision uint64
	Color    domain.Color
	Photo    Photo
}

// Session holds one visitor's wizard progress. All methods are safe for
// concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	color      domain.Color
	photo      *Photo
	result     *Result
	revision   uint64
	generating bool
}

// New returns an empty session.
func New(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now()}
}

// SetColor stores the chosen color. A color change invalidates any preview.
func (s *Session) SetColor(c domain.Color) error {
	if !c.Valid() {
		return domain.ErrUnknownColor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = c
	s.result = nil
	s.revision++
	return nil
}

// SetPhoto stores the uploaded photo and drops any preview. Callers validate
// uploads at the boundary; a non-image media type is still refused here.
func (s *Session) SetPhoto(p Photo) error {
	if len(p.Data) == 0 {
		return domain.ErrEmptyPhoto
	}
	if !domain.IsImageMediaType(p.MediaType) {
		return domain.ErrNotImage
	}
	stored := Photo{
		Data:      append([]byte(nil), p.Data...),
		MediaType: p.MediaType,
		Filename:  p.Filename,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photo = &stored
	s.result = nil
	s.revision++
	return nil
}

// ClearResult discards the preview and keeps color and photo. The inputs are
// unchanged, so an outstanding generation still lands.
func (s *Session) ClearResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
}

// Reset discards everything the visitor entered.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = ""
	s.photo = nil
	s.result = nil
	s.revision++
}

// Color returns the chosen color and whether one is set.
func (s *Session) Color() (domain.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color, s.color != ""
}

// Photo returns a copy of the uploaded photo.
func (s *Session) Photo() (Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.photo == nil {
		return Photo{}, false
	}
	return *s.photo, true
}

// Result returns the current preview.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// CanEnterStep reports whether navigation into step is permitted.
func (s *Session) CanEnterStep(step Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canEnterLocked(step)
}

// FirstBlockedStep returns the step a visitor asking for step must be sent
// to. It returns step itself when entry is allowed.
func (s *Session) FirstBlockedStep(step Step) (Step, error) {
	if !step.Valid() {
		return 0, ErrUnknownStep
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canEnterLocked(step) {
		return step, nil
	}
	if s.color == "" {
		return StepColor, nil
	}
	return StepUpload, nil
}

func (s *Session) canEnterLocked(step Step) bool {
	switch step {
	case StepColor:
		return true
	case StepUpload:
		return s.color != ""
	case StepPreview:
		return s.color != "" && s.photo != nil
	default:
		return false
	}
}

// BeginGeneration raises the in-flight flag and captures the inputs. Only one
// generation may be outstanding per session.
func (s *Session) BeginGeneration() (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canEnterLocked(StepPreview) {
		return Ticket{}, ErrNotReady
	}
	if s.generating {
		return Ticket{}, ErrGenerationInFlight
	}
	s.generating = true
	return Ticket{revision: s.revision, Color: s.color, Photo: *s.photo}, nil
}

// CompleteGeneration lowers the in-flight flag and stores res unless the
// session moved on since t was issued. It reports whether res was applied.
func (s *Session) CompleteGeneration(t Ticket, res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	if s.revision != t.revision {
		return false
	}
	stored := res
	stored.Data = append([]byte(nil), res.Data...)
	s.result = &stored
	return true
}

// AbortGeneration lowers the in-flight flag without touching the result.
func (s *Session) AbortGeneration(Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
}

// Snapshot is a read-only view used for rendering.
type Snapshot struct {
	ID             string       `json:"id"`
	Color          domain.Color `json:"color,omitempty"`
	HasPhoto       bool         `json:"has_photo"`
	PhotoMediaType string       `json:"photo_media_type,omitempty"`
	HasResult      bool         `json:"has_result"`
	Generating     bool         `json:"generating"`
	AllowedSteps   []Step       `json:"allowed_steps"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.ID,
		Color:      s.color,
		HasPhoto:   s.photo != nil,
		HasResult:  s.result != nil,
		Generating: s.generating,
	}
	if s.photo != nil {
		snap.PhotoMediaType = s.photo.MediaType
	}
	for _, step := range []Step{StepColor, StepUpload, StepPreview} {
		if s.canEnterLocked(step) {
			snap.AllowedSteps = append(snap.AllowedSteps, step)
		}
	}
	return snap
}

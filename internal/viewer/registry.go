package viewer

import (
	"errors"
	"fmt"

	"github.com/Faultbox/castleview/internal/engine/anim"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/math"
)

// Registry errors.
var (
	ErrUnknownCharacter  = errors.New("unknown character")
	ErrDuplicateID       = errors.New("duplicate character id")
	ErrAlreadyRegistered = errors.New("character already registered")
	ErrBaseNotLoaded     = errors.New("character base model not loaded")
	ErrCharacterFailed   = errors.New("character failed to load")
)

// Phase is the load state of a character.
type Phase int

const (
	PhaseAwaitingBase Phase = iota
	PhaseAwaitingClip
	PhaseReady
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingBase:
		return "awaiting-base"
	case PhaseAwaitingClip:
		return "awaiting-clip"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Character is one animated model. Ready is true only in PhaseReady, and
// only then does the scheduler advance its Mixer.
type Character struct {
	ID    string
	Root  *scene.Node
	Mixer *anim.Mixer
	Ready bool
	Phase Phase
	Err   error
}

// Registry tracks every character in configuration order.
type Registry struct {
	graph *scene.Graph
	chars []*Character
	byID  map[string]*Character
}

// NewRegistry creates a registry whose characters are inserted into graph.
func NewRegistry(graph *scene.Graph) *Registry {
	return &Registry{
		graph: graph,
		byID:  make(map[string]*Character),
	}
}

// Add creates an empty character awaiting its base model.
func (r *Registry) Add(id string) (*Character, error) {
	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	c := &Character{ID: id, Phase: PhaseAwaitingBase}
	r.chars = append(r.chars, c)
	r.byID[id] = c
	return c, nil
}

// Get returns the character with the given id.
func (r *Registry) Get(id string) (*Character, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Characters returns all characters in the order they were added.
func (r *Registry) Characters() []*Character {
	return r.chars
}

// Len returns the number of characters.
func (r *Registry) Len() int {
	return len(r.chars)
}

// ReadyCount returns how many characters are animating.
func (r *Registry) ReadyCount() int {
	n := 0
	for _, c := range r.chars {
		if c.Ready {
			n++
		}
	}
	return n
}

func (r *Registry) lookup(id string) (*Character, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharacter, id)
	}
	return c, nil
}

// RegisterBase places the loaded base model, inserts it into the scene and
// creates its mixer. On error nothing is changed.
func (r *Registry) RegisterBase(id string, root *scene.Node, scale float32, position math.Vec3) error {
	c, err := r.lookup(id)
	if err != nil {
		return err
	}
	switch c.Phase {
	case PhaseAwaitingBase:
	case PhaseFailed:
		return fmt.Errorf("%w: %q", ErrCharacterFailed, id)
	default:
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, id)
	}

	if err := r.graph.Add(root); err != nil {
		return fmt.Errorf("inserting %q: %w", id, err)
	}
	root.SetUniformScale(scale)
	root.Position = position

	c.Root = root
	c.Mixer = anim.NewMixer(root)
	c.Phase = PhaseAwaitingClip
	return nil
}

// AttachClip starts clip looping on the character and marks it ready.
func (r *Registry) AttachClip(id string, clip *anim.Clip) error {
	c, err := r.lookup(id)
	if err != nil {
		return err
	}
	switch c.Phase {
	case PhaseAwaitingClip:
	case PhaseAwaitingBase:
		return fmt.Errorf("%w: %q", ErrBaseNotLoaded, id)
	case PhaseFailed:
		return fmt.Errorf("%w: %q", ErrCharacterFailed, id)
	default:
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, id)
	}

	action := c.Mixer.ClipAction(clip)
	action.Loop = anim.LoopRepeat
	action.Play()

	c.Ready = true
	c.Phase = PhaseReady
	return nil
}

// Fail marks a character that will never animate. A ready character is
// left alone.
func (r *Registry) Fail(id string, cause error) error {
	c, err := r.lookup(id)
	if err != nil {
		return err
	}
	if c.Phase == PhaseReady {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, id)
	}
	c.Ready = false
	c.Phase = PhaseFailed
	c.Err = cause
	return nil
}

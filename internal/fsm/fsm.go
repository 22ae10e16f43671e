// file: internal/fsm/fsm.go

// Package fsm provides a generic Finite State Machine built on looplab/fsm.
package fsm

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/logging"
	lfsm "github.com/looplab/fsm"
)

// State represents a state in the FSM.
type State string

// Event represents an event that can trigger a state transition.
type Event string

// TransitionAction runs after the machine has entered the destination state.
// A returned error is logged; the transition itself is not undone.
type TransitionAction func(ctx context.Context, event Event, data interface{}) error

// GuardCondition decides whether an event may fire. Returning false cancels the transition.
type GuardCondition func(ctx context.Context, event Event, data interface{}) bool

// StateChangeHook observes every completed transition.
type StateChangeHook func(from, to State, event Event)

// Transition defines a transition rule between states.
type Transition struct {
	From      []State
	To        State
	Event     Event
	Action    TransitionAction
	Condition GuardCondition
}

// FSM is the machine interface. Transitions are added first, then Build is called once.
type FSM interface {
	AddTransition(transition Transition) FSM
	OnStateChange(hook StateChangeHook) FSM
	Build() error
	CurrentState() State
	CanTransition(event Event) bool
	Transition(ctx context.Context, event Event, data interface{}) error
	SetState(state State) error
	Reset() error
}

type loopFSM struct {
	mu           sync.RWMutex
	initialState State
	logger       logging.Logger
	transitions  []Transition
	hooks        []StateChangeHook
	machine      *lfsm.FSM
	configErr    error
}

// NewFSM creates an unbuilt machine starting in initialState.
func NewFSM(initialState State, logger logging.Logger) FSM {
	return &loopFSM{
		initialState: initialState,
		logger:       logging.OrNoop(logger).WithField("fsm_initial", string(initialState)),
	}
}

func (l *loopFSM) AddTransition(t Transition) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.machine != nil:
		l.setConfigErr(errors.New("cannot add transition after Build"))
	case len(t.From) == 0:
		l.setConfigErr(errors.Newf("transition for event %q has no source states", t.Event))
	default:
		l.transitions = append(l.transitions, t)
	}
	return l
}

func (l *loopFSM) OnStateChange(hook StateChangeHook) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hook != nil {
		l.hooks = append(l.hooks, hook)
	}
	return l
}

func (l *loopFSM) setConfigErr(err error) {
	l.logger.Error("Invalid FSM configuration.", "error", err)
	if l.configErr == nil {
		l.configErr = err
	}
}

// Build merges transitions into looplab event descriptions. One event may have several
// sources but must always lead to the same destination.
func (l *loopFSM) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.configErr != nil {
		return l.configErr
	}
	if l.machine != nil {
		return nil
	}

	order := make([]string, 0, len(l.transitions))
	descs := make(map[string]*lfsm.EventDesc)
	guards := make(map[string][]Transition)
	actions := make(map[string][]Transition)

	for _, t := range l.transitions {
		name := string(t.Event)
		desc, ok := descs[name]
		if !ok {
			desc = &lfsm.EventDesc{Name: name, Dst: string(t.To)}
			descs[name] = desc
			order = append(order, name)
		} else if desc.Dst != string(t.To) {
			l.configErr = errors.Newf("event %q has conflicting destinations %q and %q", name, desc.Dst, t.To)
			return l.configErr
		}
		for _, s := range t.From {
			if !contains(desc.Src, string(s)) {
				desc.Src = append(desc.Src, string(s))
			}
		}
		if t.Condition != nil {
			guards[name] = append(guards[name], t)
		}
		if t.Action != nil {
			actions[name] = append(actions[name], t)
		}
	}

	events := make(lfsm.Events, 0, len(order))
	callbacks := lfsm.Callbacks{}
	for _, name := range order {
		events = append(events, *descs[name])
		if gs := guards[name]; len(gs) > 0 {
			callbacks["before_"+name] = l.guardCallback(gs)
		}
		if as := actions[name]; len(as) > 0 {
			callbacks["after_"+name] = l.actionCallback(as)
		}
	}
	hooks := append([]StateChangeHook(nil), l.hooks...)
	callbacks["enter_state"] = func(_ context.Context, e *lfsm.Event) {
		l.logger.Debug("FSM state changed.", "event", e.Event, "from", e.Src, "to", e.Dst)
		for _, h := range hooks {
			h(State(e.Src), State(e.Dst), Event(e.Event))
		}
	}

	l.machine = lfsm.NewFSM(string(l.initialState), events, callbacks)
	return nil
}

func (l *loopFSM) guardCallback(ts []Transition) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		for _, t := range ts {
			if !contains(statesToStrings(t.From), e.Src) {
				continue
			}
			if !t.Condition(ctx, t.Event, eventData(e)) {
				e.Cancel(errors.Newf("guard for event %q from state %q rejected the transition", t.Event, e.Src))
				return
			}
		}
	}
}

func (l *loopFSM) actionCallback(ts []Transition) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		for _, t := range ts {
			if !contains(statesToStrings(t.From), e.Src) {
				continue
			}
			if err := t.Action(ctx, t.Event, eventData(e)); err != nil {
				l.logger.Warn("Transition action failed.", "event", t.Event, "to", t.To, "error", err)
			}
		}
	}
}

func (l *loopFSM) built() (*lfsm.FSM, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.machine == nil {
		return nil, errors.New("FSM has not been built")
	}
	return l.machine, nil
}

func (l *loopFSM) CurrentState() State {
	m, err := l.built()
	if err != nil {
		return l.initialState
	}
	return State(m.Current())
}

func (l *loopFSM) CanTransition(event Event) bool {
	m, err := l.built()
	if err != nil {
		return false
	}
	return m.Can(string(event))
}

// Transition fires event. An event that is not valid from the current state returns an
// error and leaves the state unchanged.
func (l *loopFSM) Transition(ctx context.Context, event Event, data interface{}) error {
	m, err := l.built()
	if err != nil {
		return err
	}
	from := m.Current()
	if err := m.Event(ctx, string(event), data); err != nil {
		var noTransition lfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return errors.Wrapf(err, "transition %q from state %q failed", event, from)
	}
	return nil
}

func (l *loopFSM) SetState(state State) error {
	m, err := l.built()
	if err != nil {
		return err
	}
	m.SetState(string(state))
	return nil
}

func (l *loopFSM) Reset() error {
	return l.SetState(l.initialState)
}

func eventData(e *lfsm.Event) interface{} {
	if len(e.Args) > 0 {
		return e.Args[0]
	}
	return nil
}

func statesToStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

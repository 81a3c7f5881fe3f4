// Package testtree aggregates per-test outcomes of one mutant into a
// namespace, class, method and test hierarchy.
//
// Non-terminal states (inactive, running) are applied top-down with Cascade.
// Terminal states (success, failure, inconclusive) are reported on leaves and
// propagate upward: a parent is recomputed once every child has a result,
// with failure taking precedence over inconclusive over success.
package testtree

import (
	"errors"
	"fmt"
	"sync"

	m "gooze.dev/pkg/bytemut/internal/model"
)

// NodeID indexes a node in its tree.
type NodeID int

// Root is the id of the root node of every tree.
const Root NodeID = 0

const noParent NodeID = -1

// ErrUnknownNode is returned for node ids that do not belong to the tree.
var ErrUnknownNode = errors.New("unknown test tree node")

// Kind is the level of a node in the hierarchy.
type Kind int

// Node kinds from the root down to executed tests.
const (
	KindRoot Kind = iota
	KindNamespace
	KindClass
	KindMethod
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindNamespace:
		return "namespace"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindTest:
		return "test"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const globalNamespace = "<global>"

// Event describes one node state change.
type Event struct {
	Node    NodeID
	Kind    Kind
	Name    string
	State   m.TestState
	Message string
}

// Listener receives state change events. Listeners run after the tree lock is
// released and may read the tree.
type Listener func(Event)

type node struct {
	name     string
	kind     Kind
	state    m.TestState
	message  string
	parent   NodeID
	children []NodeID
}

type childKey struct {
	parent NodeID
	kind   Kind
	name   string
}

// Tree is the result aggregation tree of one mutant test session. It is safe
// for concurrent use; every state assignment and its propagation happen under
// one lock.
type Tree struct {
	mu        sync.Mutex
	nodes     []node
	groups    map[childKey]NodeID
	tests     map[string]NodeID
	listeners []Listener
}

// New returns a tree holding only a root node in state Inactive.
func New(rootName string) *Tree {
	return &Tree{
		nodes:  []node{{name: rootName, kind: KindRoot, state: m.TestInactive, parent: noParent}},
		groups: map[childKey]NodeID{},
		tests:  map[string]NodeID{},
	}
}

// Build returns a tree with one leaf per test case.
func Build(rootName string, tests []m.TestCase) *Tree {
	t := New(rootName)
	for _, tc := range tests {
		t.AddTest(tc)
	}

	return t
}

// AddTest inserts tc below its namespace, class and method nodes, creating
// them as needed, and returns the new leaf. The leaf starts Inactive.
func (t *Tree) AddTest(tc m.TestCase) NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()

	namespace := tc.Namespace
	if namespace == "" {
		namespace = globalNamespace
	}

	parent := t.group(Root, KindNamespace, namespace)
	parent = t.group(parent, KindClass, tc.Class)
	parent = t.group(parent, KindMethod, tc.Method)

	leaf := t.insert(parent, KindTest, tc.LeafName())
	t.tests[tc.ID] = leaf

	return leaf
}

func (t *Tree) group(parent NodeID, kind Kind, name string) NodeID {
	key := childKey{parent: parent, kind: kind, name: name}
	if id, ok := t.groups[key]; ok {
		return id
	}

	id := t.insert(parent, kind, name)
	t.groups[key] = id

	return id
}

func (t *Tree) insert(parent NodeID, kind Kind, name string) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{name: name, kind: kind, state: m.TestInactive, parent: parent})
	t.nodes[parent].children = append(t.nodes[parent].children, id)

	return id
}

// OnChange registers a listener for state changes.
func (t *Tree) OnChange(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.listeners = append(t.listeners, l)
}

// Leaf returns the leaf of the test with the given id.
func (t *Tree) Leaf(testID string) (NodeID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.tests[testID]

	return id, ok
}

// Cascade assigns a non-terminal state to id and all its descendants.
// Ancestors that already hold a result go back to Running.
func (t *Tree) Cascade(id NodeID, state m.TestState) error {
	if state.Terminal() {
		return fmt.Errorf("%w: cannot cascade terminal state %s", m.ErrIllegalTransition, state)
	}

	t.mu.Lock()

	if err := t.check(id); err != nil {
		t.mu.Unlock()
		return err
	}

	var events []Event

	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		events = t.assign(events, cur, state, "")
		stack = append(stack, t.nodes[cur].children...)
	}

	for p := t.nodes[id].parent; p != noParent; p = t.nodes[p].parent {
		if t.nodes[p].state.Terminal() {
			events = t.assign(events, p, m.TestRunning, "")
		}
	}

	listeners := t.listeners
	t.mu.Unlock()

	notify(listeners, events)

	return nil
}

// Report assigns a terminal state to the leaf id and recomputes its ancestors.
// Reporting the state a leaf already has changes nothing.
func (t *Tree) Report(id NodeID, state m.TestState, message string) error {
	if !state.Terminal() {
		return fmt.Errorf("%w: cannot report non-terminal state %s", m.ErrIllegalTransition, state)
	}

	t.mu.Lock()

	if err := t.check(id); err != nil {
		t.mu.Unlock()
		return err
	}

	if len(t.nodes[id].children) > 0 {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s %q is not a leaf", m.ErrIllegalTransition, t.nodes[id].kind, t.nodes[id].name)
	}

	events := t.report(nil, id, state, message)
	listeners := t.listeners
	t.mu.Unlock()

	notify(listeners, events)

	return nil
}

// ResolvePending reports state on every leaf that has no result yet.
func (t *Tree) ResolvePending(state m.TestState, message string) error {
	if !state.Terminal() {
		return fmt.Errorf("%w: cannot resolve with non-terminal state %s", m.ErrIllegalTransition, state)
	}

	t.mu.Lock()

	var events []Event

	for i := range t.nodes {
		id := NodeID(i)
		if len(t.nodes[id].children) == 0 && !t.nodes[id].state.Terminal() {
			events = t.report(events, id, state, message)
		}
	}

	listeners := t.listeners
	t.mu.Unlock()

	notify(listeners, events)

	return nil
}

func (t *Tree) report(events []Event, id NodeID, state m.TestState, message string) []Event {
	if t.nodes[id].state == state {
		return events
	}

	events = t.assign(events, id, state, message)

	for p := t.nodes[id].parent; p != noParent; p = t.nodes[p].parent {
		aggregate, ok := t.aggregate(p)
		if !ok || t.nodes[p].state == aggregate {
			break
		}

		events = t.assign(events, p, aggregate, "")
	}

	return events
}

// aggregate computes the state of id from its children; ok is false while
// some child has no result.
func (t *Tree) aggregate(id NodeID) (m.TestState, bool) {
	result := m.TestSuccess

	for _, c := range t.nodes[id].children {
		switch t.nodes[c].state {
		case m.TestFailure:
			result = m.TestFailure
		case m.TestInconclusive:
			if result != m.TestFailure {
				result = m.TestInconclusive
			}
		case m.TestSuccess:
		default:
			return 0, false
		}
	}

	return result, true
}

func (t *Tree) assign(events []Event, id NodeID, state m.TestState, message string) []Event {
	n := &t.nodes[id]
	if n.state == state && n.message == message {
		return events
	}

	n.state = state
	n.message = message

	return append(events, Event{Node: id, Kind: n.kind, Name: n.name, State: state, Message: message})
}

func (t *Tree) check(id NodeID) error {
	if id < 0 || int(id) >= len(t.nodes) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}

	return nil
}

func notify(listeners []Listener, events []Event) {
	for _, e := range events {
		for _, l := range listeners {
			l(e)
		}
	}
}

// State returns the state of id; unknown ids are Inactive.
func (t *Tree) State(id NodeID) m.TestState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.check(id) != nil {
		return m.TestInactive
	}

	return t.nodes[id].state
}

// HasResults reports whether id reached a terminal state.
func (t *Tree) HasResults(id NodeID) bool {
	return t.State(id).Terminal()
}

// Children returns the children of id in insertion order.
func (t *Tree) Children(id NodeID) []NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.check(id) != nil {
		return nil
	}

	out := make([]NodeID, len(t.nodes[id].children))
	copy(out, t.nodes[id].children)

	return out
}

// Parent returns the parent of id; the root has none.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.check(id) != nil || t.nodes[id].parent == noParent {
		return 0, false
	}

	return t.nodes[id].parent, true
}

// Verdict maps the root state to a mutant verdict. It is VerdictPending until
// the root has a result.
func (t *Tree) Verdict() m.Verdict {
	switch t.State(Root) {
	case m.TestSuccess:
		return m.VerdictSurvived
	case m.TestFailure:
		return m.VerdictKilled
	case m.TestInconclusive:
		return m.VerdictInconclusive
	default:
		return m.VerdictPending
	}
}

// Snapshot copies the tree into a serializable value.
func (t *Tree) Snapshot() m.TestNode {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshot(Root)
}

func (t *Tree) snapshot(id NodeID) m.TestNode {
	n := t.nodes[id]
	out := m.TestNode{Name: n.name, Kind: n.kind.String(), State: n.state, Message: n.message}

	for _, c := range n.children {
		out.Children = append(out.Children, t.snapshot(c))
	}

	return out
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// NodeDispatcher runs a single node. A non-nil error is fatal to the run.
type NodeDispatcher interface {
	Dispatch(
		ctx context.Context,
		workflowID string,
		node *models.Node,
		execCtx *models.ExecutionContext,
		prior protocol.Prior,
	) (models.NodeResult, error)
}

// Results holds the memoized node results of one run, keyed by node id.
type Results map[string]models.NodeResult

type nodeState int

const (
	unvisited nodeState = iota
	inProgress
	done
)

// Scheduler walks a workflow graph in dependency order from the input nodes
// that fired. Each node is dispatched at most once per run.
type Scheduler struct {
	dispatcher  NodeDispatcher
	concurrency int
	logger      *slog.Logger
}

type SchedulerOption func(*Scheduler)

// WithConcurrency dispatches up to n independent ready nodes at a time.
// Values below 2 keep dispatch sequential.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.concurrency = n
	}
}

func NewScheduler(dispatcher NodeDispatcher, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		dispatcher:  dispatcher,
		concurrency: 1,
		logger:      logger.With("component", "scheduler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// runPlan is the dispatch plan of one run.
type runPlan struct {
	nodes    map[string]*models.Node
	order    []string            // dependency order, every node after its sources
	upstream map[string][]string // planned sources per node, incoming-edge order
	targets  map[string][]string // planned targets per node
}

// FiredInputs returns the input nodes whose trigger is in triggers.
func FiredInputs(workflow *models.Workflow, triggers models.TriggerSet) []*models.Node {
	fired := make([]*models.Node, 0)

	for _, node := range workflow.InputNodes() {
		if kind, ok := models.TriggerForSubtype(node.Subtype); ok && triggers.Has(kind) {
			fired = append(fired, node)
		}
	}

	return fired
}

// plan computes the nodes a run executes and their dependency order. It
// fails with a *CycleError when a cycle is reachable from a fired input and
// with a *ConfigurationError for malformed graphs.
func plan(workflow *models.Workflow, triggers models.TriggerSet) (*runPlan, error) {
	if slices.Contains(workflow.Nodes, nil) || slices.Contains(workflow.Edges, nil) {
		return nil, &ConfigurationError{
			WorkflowID: workflow.ID,
			Reason:     "empty node or edge",
			Err:        models.ErrEmptyElement,
		}
	}

	nodes := make(map[string]*models.Node, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if _, exists := nodes[node.ID]; exists {
			return nil, &ConfigurationError{
				WorkflowID: workflow.ID,
				NodeID:     node.ID,
				Reason:     "duplicate node id",
				Err:        models.ErrDuplicateNodeID,
			}
		}

		nodes[node.ID] = node
	}

	for _, edge := range workflow.Edges {
		for _, id := range []string{edge.SourceNodeID, edge.TargetNodeID} {
			if _, ok := nodes[id]; !ok {
				return nil, &ConfigurationError{
					WorkflowID: workflow.ID,
					NodeID:     id,
					Reason:     fmt.Sprintf("edge %s references unknown node %s", edge.ID, id),
					Err:        models.ErrDanglingEdge,
				}
			}
		}
	}

	for _, node := range workflow.InputNodes() {
		if _, ok := models.TriggerForSubtype(node.Subtype); !ok {
			return nil, &ConfigurationError{
				WorkflowID: workflow.ID,
				NodeID:     node.ID,
				Reason:     fmt.Sprintf("unrecognized input subtype %q", node.Subtype),
				Err:        models.ErrUnknownSubtype,
			}
		}
	}

	fired := FiredInputs(workflow, triggers)
	p := &runPlan{
		nodes:    nodes,
		order:    make([]string, 0, len(nodes)),
		upstream: make(map[string][]string),
		targets:  make(map[string][]string),
	}

	if len(fired) == 0 {
		return p, nil
	}

	reachable := reachableFrom(fired, workflow.Downstream(), nodes)

	for _, edge := range workflow.Edges {
		if reachable[edge.SourceNodeID] && reachable[edge.TargetNodeID] {
			p.upstream[edge.TargetNodeID] = appendUnique(p.upstream[edge.TargetNodeID], edge.SourceNodeID)
			p.targets[edge.SourceNodeID] = appendUnique(p.targets[edge.SourceNodeID], edge.TargetNodeID)
		}
	}

	order, err := topologicalOrder(workflow.Nodes, reachable, p.upstream)
	if err != nil {
		return nil, err
	}

	p.order = order

	return p, nil
}

// reachableFrom marks the fired inputs and every non-input node reachable
// from them. Inputs that did not fire are never entered.
func reachableFrom(fired []*models.Node, downstream map[string][]string, nodes map[string]*models.Node) map[string]bool {
	reachable := make(map[string]bool, len(nodes))
	queue := make([]string, 0, len(nodes))

	for _, node := range fired {
		reachable[node.ID] = true
		queue = append(queue, node.ID)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, target := range downstream[id] {
			if reachable[target] || nodes[target].IsInput() {
				continue
			}

			reachable[target] = true
			queue = append(queue, target)
		}
	}

	return reachable
}

type frame struct {
	id   string
	next int
}

// topologicalOrder resolves every reachable node after its planned sources
// using an explicit stack. A source found in progress closes a cycle.
func topologicalOrder(declared []*models.Node, reachable map[string]bool, upstream map[string][]string) ([]string, error) {
	state := make(map[string]nodeState, len(reachable))
	order := make([]string, 0, len(reachable))

	for _, root := range declared {
		if !reachable[root.ID] || state[root.ID] != unvisited {
			continue
		}

		state[root.ID] = inProgress
		stack := []*frame{{id: root.ID}}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			sources := upstream[top.id]

			if top.next == len(sources) {
				state[top.id] = done
				order = append(order, top.id)
				stack = stack[:len(stack)-1]

				continue
			}

			source := sources[top.next]
			top.next++

			switch state[source] {
			case inProgress:
				return nil, &CycleError{NodeID: source}
			case unvisited:
				state[source] = inProgress
				stack = append(stack, &frame{id: source})
			case done:
			}
		}
	}

	return order, nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}

	return append(ids, id)
}

// Run executes the graph for one run. Input nodes whose trigger did not
// fire are skipped and absent from the results, as is everything reachable
// only through them. The first failed node stops the run; the results
// memoized so far are returned with the error.
func (s *Scheduler) Run(ctx context.Context, workflow *models.Workflow, execCtx *models.ExecutionContext) (Results, error) {
	p, err := plan(workflow, execCtx.Triggers)
	if err != nil {
		return Results{}, err
	}

	if len(p.order) == 0 {
		s.logger.DebugContext(ctx, "No input node fired", "workflow_id", workflow.ID)

		return Results{}, nil
	}

	if s.concurrency > 1 {
		return s.runConcurrent(ctx, workflow.ID, p, execCtx)
	}

	return s.runSequential(ctx, workflow.ID, p, execCtx)
}

// memo records results in dispatch order.
type memo struct {
	mu       sync.Mutex
	results  Results
	sequence []string
}

func newMemo(size int) *memo {
	return &memo{
		results:  make(Results, size),
		sequence: make([]string, 0, size),
	}
}

func (m *memo) store(result models.NodeResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results[result.NodeID] = result
	m.sequence = append(m.sequence, result.NodeID)
}

// prior lists direct upstream results in incoming-edge order, then every
// other memoized result in dispatch order.
func (m *memo) prior(upstream []string) protocol.Prior {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior := make(protocol.Prior, 0, len(m.sequence))
	seen := make(map[string]bool, len(m.sequence))

	for _, id := range upstream {
		if result, ok := m.results[id]; ok && !seen[id] {
			prior = append(prior, result)
			seen[id] = true
		}
	}

	for _, id := range m.sequence {
		if !seen[id] {
			prior = append(prior, m.results[id])
			seen[id] = true
		}
	}

	return prior
}

func (m *memo) snapshot() Results {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make(Results, len(m.results))
	for id, result := range m.results {
		results[id] = result
	}

	return results
}

func (s *Scheduler) dispatch(
	ctx context.Context,
	workflowID string,
	p *runPlan,
	m *memo,
	execCtx *models.ExecutionContext,
	id string,
) error {
	if err := ctx.Err(); err != nil {
		return &NodeFailedError{NodeID: id, Message: err.Error()}
	}

	result, err := s.dispatcher.Dispatch(ctx, workflowID, p.nodes[id], execCtx, m.prior(p.upstream[id]))
	result.NodeID = id
	m.store(result)

	if err != nil {
		return err
	}

	if !result.Success {
		return &NodeFailedError{NodeID: id, Message: result.Message}
	}

	return nil
}

func (s *Scheduler) runSequential(
	ctx context.Context,
	workflowID string,
	p *runPlan,
	execCtx *models.ExecutionContext,
) (Results, error) {
	m := newMemo(len(p.order))

	for _, id := range p.order {
		if err := s.dispatch(ctx, workflowID, p, m, execCtx, id); err != nil {
			return m.snapshot(), err
		}
	}

	return m.snapshot(), nil
}

// runConcurrent releases a node once all of its planned sources are
// memoized. The first failure cancels the nodes still in flight and stops
// new dispatches.
func (s *Scheduler) runConcurrent(
	ctx context.Context,
	workflowID string,
	p *runPlan,
	execCtx *models.ExecutionContext,
) (Results, error) {
	m := newMemo(len(p.order))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	pending := make(map[string]int, len(p.order))
	ready := make([]string, 0, len(p.order))

	for _, id := range p.order {
		pending[id] = len(p.upstream[id])
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}

	type completion struct {
		id string
		ok bool
	}

	completions := make(chan completion, len(p.order))
	inFlight := 0
	stopped := false

	for {
		for !stopped && len(ready) > 0 {
			id := ready[0]
			ready = ready[1:]
			inFlight++

			group.Go(func() error {
				err := s.dispatch(groupCtx, workflowID, p, m, execCtx, id)
				completions <- completion{id: id, ok: err == nil}

				return err
			})
		}

		if inFlight == 0 {
			break
		}

		c := <-completions
		inFlight--

		if !c.ok {
			stopped = true

			continue
		}

		for _, target := range p.targets[c.id] {
			pending[target]--
			if pending[target] == 0 {
				ready = append(ready, target)
			}
		}
	}

	err := group.Wait()

	return m.snapshot(), err
}

package runtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

// DefaultInternalCapacity is the routing queue's buffer. Sized well above
// DefaultExternalCapacity since every agent-originated event passes through
// it, not just the ones an observer cares about. See SPEC_FULL.md open
// question 2.
const DefaultInternalCapacity = 1024

// DefaultExternalCapacity is the observer-facing queue's buffer.
const DefaultExternalCapacity = 100

// agentMailboxCapacity bounds how many dispatched tasks can queue for one
// agent before dispatch blocks. Generous relative to DefaultInternalCapacity
// since, unlike the routing queue, a full mailbox means one specific slow
// agent, not the whole reactor.
const agentMailboxCapacity = 64

// RunnableAgent is anything the runtime can dispatch a Task to. Agent
// Handles built from AgentBuilder satisfy this directly.
type RunnableAgent interface {
	Run(ctx context.Context, task models.Task) (agent.TurnEngineOutput, error)
}

type internalEventKind int

const (
	internalAgentEvent internalEventKind = iota
	internalShutdown
)

type internalEvent struct {
	kind  internalEventKind
	event models.Event
}

type registeredAgent struct {
	id      ids.ActorID
	agent   RunnableAgent
	mailbox chan dispatchedTask
}

// dispatchedTask is one task handed off to an agent's mailbox goroutine,
// carrying the context the reactor was running under at dispatch time.
type dispatchedTask struct {
	ctx  context.Context
	task models.Task
}

// Runtime is a cooperative reactor over two layers: one goroutine (Run's
// caller) single-threadedly decides routing — who a PublishMessage or
// SendMessage reaches, who an unregistered NewTask errors against — and
// every registered agent runs its dispatched tasks on its own goroutine,
// one at a time and in dispatch order, concurrently with every other
// agent and with the reactor's own routing loop. PublishMessage fans a
// payload out to every subscriber of a topic; SendMessage targets exactly
// one actor. Anything else an agent emits (TurnStarted, ToolCallCompleted,
// ...) is forwarded to the external queue untouched, for Environment's
// consumers.
type Runtime struct {
	id ids.RuntimeID

	mu     sync.Mutex
	agents map[ids.ActorID]*registeredAgent
	subs   map[string][]ids.ActorID

	internal chan internalEvent
	external chan models.Event

	shutdown chan struct{}
	once     sync.Once

	metrics *Metrics
	tracer  *Tracer
}

// New builds a Runtime with a freshly minted RuntimeID.
func New() *Runtime {
	return &Runtime{
		id:       ids.NewRuntimeID(),
		agents:   make(map[ids.ActorID]*registeredAgent),
		subs:     make(map[string][]ids.ActorID),
		internal: make(chan internalEvent, DefaultInternalCapacity),
		external: make(chan models.Event, DefaultExternalCapacity),
		shutdown: make(chan struct{}),
		metrics:  GlobalMetrics(),
		tracer:   GlobalTracer(),
	}
}

// ID returns the runtime's identity.
func (r *Runtime) ID() ids.RuntimeID { return r.id }

// RegisterAgent adds an agent under a freshly minted ActorID, starts its
// mailbox goroutine, and returns its handle. Each agent's mailbox is
// drained by exactly one goroutine for the agent's lifetime, so tasks for
// that agent always run one at a time and in dispatch order — the
// single-threaded guarantee is per-agent, not reactor-wide.
func (r *Runtime) RegisterAgent(a RunnableAgent) *ActorHandle {
	id := ids.NewActorID()
	entry := &registeredAgent{id: id, agent: a, mailbox: make(chan dispatchedTask, agentMailboxCapacity)}
	r.mu.Lock()
	r.agents[id] = entry
	r.mu.Unlock()
	go r.runMailbox(entry)
	return &ActorHandle{id: id, rt: r}
}

// subscribe records actor as a subscriber of topic. Called by ActorHandle's
// fluent builder.
func (r *Runtime) subscribe(actor ids.ActorID, topic string) {
	r.mu.Lock()
	for _, existing := range r.subs[topic] {
		if existing == actor {
			r.mu.Unlock()
			return
		}
	}
	r.subs[topic] = append(r.subs[topic], actor)
	count := len(r.subs[topic])
	r.mu.Unlock()
	r.metrics.SetSubscriberCount(topic, count)
}

// createInterceptingSender returns a function an ActorHandle uses to route
// its own emissions through the runtime's internal queue rather than
// straight to the external queue — the point at which PublishMessage and
// SendMessage get intercepted and routed instead of merely observed.
func (r *Runtime) createInterceptingSender() func(models.Event) {
	return func(e models.Event) {
		select {
		case r.internal <- internalEvent{kind: internalAgentEvent, event: e}:
		case <-r.shutdown:
		}
	}
}

// Events returns the external (observer-facing) event stream.
func (r *Runtime) Events() <-chan models.Event { return r.external }

// Submit enqueues a NewTask addressed either at a specific actor (via
// task.TargetActor) or, if unset, routes nowhere — the caller is expected
// to set TargetActor for direct submissions.
func (r *Runtime) Submit(task models.Task) {
	actor := ids.ActorID{}
	if task.TargetActor != nil {
		actor = *task.TargetActor
	}
	r.route(models.NewNewTask(task.SubmissionID, actor, task))
}

// Publish enqueues an internal PublishMessage event for topic (the
// untyped, string-payload form). It only reaches actors subscribed via
// SubscribeTopic on the same name — a Subscribe[T] subscriber of that
// name never sees it, since the two forms key the subscriber map
// distinctly. Use the package-level Publish[T] for typed topics.
func (r *Runtime) Publish(topic, payload string) {
	r.route(models.NewPublishMessage(topicKey(topic, untypedTag), payload))
}

// Publish enqueues an internal PublishMessage event for a typed Topic[T],
// reaching only actors that subscribed to the same (name, T) via
// Subscribe[T].
func Publish[T any](r *Runtime, topic Topic[T], payload string) {
	r.route(models.NewPublishMessage(topic.Key(), payload))
}

// SendTo enqueues an internal SendMessage event addressed at actor.
func (r *Runtime) SendTo(actor ids.ActorID, payload string) {
	r.route(models.NewSendMessage(actor, payload))
}

func (r *Runtime) route(e models.Event) {
	select {
	case r.internal <- internalEvent{kind: internalAgentEvent, event: e}:
	case <-r.shutdown:
	}
}

// Run drives the reactor until ctx is cancelled or Stop is called. It is
// meant to run on its own goroutine; Environment.Run is the usual caller.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case evt := <-r.internal:
			if evt.kind == internalShutdown {
				r.drain()
				return
			}
			r.processAgentEvent(ctx, evt.event)
		case <-ctx.Done():
			r.drain()
			return
		case <-r.shutdown:
			r.drain()
			return
		}
	}
}

// drain forwards whatever is already queued internally to external,
// best-effort, after a shutdown signal — so events already in flight are
// not silently lost.
func (r *Runtime) drain() {
	for {
		select {
		case evt := <-r.internal:
			if evt.kind == internalAgentEvent {
				r.forwardExternal(evt.event)
			}
		default:
			return
		}
	}
}

func (r *Runtime) processAgentEvent(ctx context.Context, e models.Event) {
	ctx, span := r.tracer.StartRoute(ctx, string(e.Kind))
	defer span.End()

	switch e.Kind {
	case models.EventPublishMessage:
		r.handlePublishMessage(ctx, e)
	case models.EventSendMessage:
		r.handleSendMessage(ctx, e)
	case models.EventNewTask:
		r.handleNewTask(ctx, e)
	default:
		r.forwardExternal(e)
	}
}

func (r *Runtime) handlePublishMessage(ctx context.Context, e models.Event) {
	r.forwardExternal(e)
	r.mu.Lock()
	subscribers := append([]ids.ActorID(nil), r.subs[e.Topic]...)
	r.mu.Unlock()
	for _, actor := range subscribers {
		task := models.NewTask(e.Payload).WithTargetActor(actor)
		r.dispatch(ctx, actor, task)
	}
}

func (r *Runtime) handleSendMessage(ctx context.Context, e models.Event) {
	r.forwardExternal(e)
	task := models.NewTask(e.Payload).WithTargetActor(e.ActorID)
	r.dispatch(ctx, e.ActorID, task)
}

func (r *Runtime) handleNewTask(ctx context.Context, e models.Event) {
	r.forwardExternal(e)
	if e.Task == nil {
		return
	}
	r.dispatch(ctx, e.ActorID, *e.Task)
}

// dispatch hands the task to the target agent's mailbox and returns
// immediately — it never runs the agent itself. This is what keeps the
// reactor goroutine free to keep routing (including PublishMessage/
// SendMessage that very agent emits mid-run) while one agent's task —
// LLM calls, tool execution — is still in flight on its own goroutine.
func (r *Runtime) dispatch(ctx context.Context, actor ids.ActorID, task models.Task) {
	r.mu.Lock()
	entry, ok := r.agents[actor]
	r.mu.Unlock()
	if !ok {
		r.metrics.RecordDispatch("unknown_actor")
		r.forwardExternal(models.NewTaskError(task.SubmissionID, actor, &agent.RuntimeError{Op: "dispatch", Cause: ErrUnknownActor}))
		return
	}

	select {
	case entry.mailbox <- dispatchedTask{ctx: ctx, task: task}:
		r.metrics.RecordDispatch("ok")
	case <-r.shutdown:
		r.metrics.RecordDispatch("shutdown")
	}
}

// runMailbox drains one agent's mailbox for the runtime's lifetime, running
// each task to completion before accepting the next — the per-agent
// ordering and non-concurrency guarantee dispatch's doc comment describes.
func (r *Runtime) runMailbox(entry *registeredAgent) {
	for {
		select {
		case dt := <-entry.mailbox:
			r.runTask(dt.ctx, entry, dt.task)
		case <-r.shutdown:
			return
		}
	}
}

func (r *Runtime) runTask(ctx context.Context, entry *registeredAgent, task models.Task) {
	r.forwardExternal(models.NewTaskStarted(task.SubmissionID, entry.id))
	out, err := entry.agent.Run(ctx, task)
	if err != nil {
		r.forwardExternal(models.NewTaskError(task.SubmissionID, entry.id, err))
		return
	}
	result, _ := json.Marshal(out.Response)
	r.forwardExternal(models.NewTaskComplete(task.SubmissionID, entry.id, result))
}

func (r *Runtime) forwardExternal(e models.Event) {
	select {
	case r.external <- e:
	default:
		// External queue is observer-facing only; a full queue means a slow
		// or absent observer, never a reason to block routing.
		r.metrics.RecordDropped()
	}
}

// Stop signals the reactor to drain and return. Safe to call more than once.
func (r *Runtime) Stop() {
	r.once.Do(func() {
		close(r.shutdown)
	})
}

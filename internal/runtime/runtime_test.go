package runtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

type stubAgent struct {
	response string
	seen     []string
}

func (s *stubAgent) Run(ctx context.Context, task models.Task) (agent.TurnEngineOutput, error) {
	s.seen = append(s.seen, task.Prompt)
	return agent.TurnEngineOutput{Response: models.Text(models.RoleAssistant, s.response)}, nil
}

func drainUntil(t *testing.T, events <-chan models.Event, kind models.EventKind, timeout time.Duration) models.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case e := <-events:
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %s", kind)
		}
	}
}

func TestRuntime_DirectSubmitDispatchesToActor(t *testing.T) {
	rt := New()
	stub := &stubAgent{response: "ok"}
	handle := rt.RegisterAgent(stub)

	go rt.Run(context.Background())
	defer rt.Stop()

	task := models.NewTask("hello").WithTargetActor(handle.Addr())
	rt.Submit(task)

	evt := drainUntil(t, rt.Events(), models.EventTaskComplete, time.Second)
	var msg models.ChatMessage
	if err := json.Unmarshal(evt.Result, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Content != "ok" {
		t.Fatalf("want response content 'ok', got %q", msg.Content)
	}
}

func TestRuntime_PublishFansOutToSubscribers(t *testing.T) {
	rt := New()
	a := &stubAgent{response: "a"}
	b := &stubAgent{response: "b"}
	handleA := rt.RegisterAgent(a)
	handleB := rt.RegisterAgent(b)
	handleA.SubscribeTopic("news")
	handleB.SubscribeTopic("news")

	go rt.Run(context.Background())
	defer rt.Stop()

	rt.Publish("news", "breaking")

	seen := map[models.EventKind]int{}
	deadline := time.After(time.Second)
	for seen[models.EventTaskComplete] < 2 {
		select {
		case e := <-rt.Events():
			seen[e.Kind]++
		case <-deadline:
			t.Fatalf("timed out waiting for both subscribers to complete, got %v", seen)
		}
	}

	if len(a.seen) != 1 || a.seen[0] != "breaking" {
		t.Fatalf("subscriber a did not receive published payload: %+v", a.seen)
	}
	if len(b.seen) != 1 || b.seen[0] != "breaking" {
		t.Fatalf("subscriber b did not receive published payload: %+v", b.seen)
	}
}

func TestRuntime_UnknownActorEmitsTaskError(t *testing.T) {
	rt := New()
	go rt.Run(context.Background())
	defer rt.Stop()

	task := models.NewTask("hi")
	unknown := ids.NewActorID()
	rt.route(models.NewNewTask(task.SubmissionID, unknown, task))

	evt := drainUntil(t, rt.Events(), models.EventTaskError, time.Second)
	if evt.Error == "" {
		t.Fatalf("want non-empty error message")
	}
}

func TestRuntime_TopicsOfDifferentTypesAreDistinct(t *testing.T) {
	rt := New()
	typed := &stubAgent{response: "typed"}
	untyped := &stubAgent{response: "untyped"}
	handleTyped := rt.RegisterAgent(typed)
	handleUntyped := rt.RegisterAgent(untyped)

	Subscribe(handleTyped, NewTopic[int]("events"))
	handleUntyped.SubscribeTopic("events")

	go rt.Run(context.Background())
	defer rt.Stop()

	Publish(rt, NewTopic[int]("events"), "typed-payload")

	evt := drainUntil(t, rt.Events(), models.EventTaskComplete, time.Second)
	var msg models.ChatMessage
	if err := json.Unmarshal(evt.Result, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Content != "typed" {
		t.Fatalf("want the Topic[int] subscriber to run, got response %q", msg.Content)
	}
	if len(typed.seen) != 1 || typed.seen[0] != "typed-payload" {
		t.Fatalf("typed subscriber did not receive the published payload: %+v", typed.seen)
	}
	if len(untyped.seen) != 0 {
		t.Fatalf("untyped subscriber of the same topic name must not receive a typed publish, got %+v", untyped.seen)
	}
}

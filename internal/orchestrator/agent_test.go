package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/executor"
	"github.com/trymeuj/aiva/internal/planner"
	"github.com/trymeuj/aiva/internal/provider"
	"github.com/trymeuj/aiva/internal/state"
)

// fakeLLM routes each prompt to a handler based on its content, so one
// fake can serve the several model calls a single turn makes.
type fakeLLM struct {
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) ID() string { return "fake" }

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ provider.GenerateOptions) (string, error) {
	return f.respond(prompt)
}

const fullRatingJSON = `{
	"courseCategory": "CS",
	"courseCode": "CS101",
	"profName": "Knuth",
	"starRating": 5,
	"attendance": "optional",
	"courseContent": "algorithms",
	"gradingPolicy": "relative",
	"gradeAvg": 8
}`

func scripted(extraction string) *fakeLLM {
	return &fakeLLM{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "determine"):
			return `{"intent": "rate a course", "entities": []}`, nil
		case strings.Contains(prompt, "match a user intent"):
			return `[{"id": "rate_course", "confidence": 0.95, "reason": "wants to rate"}]`, nil
		case strings.Contains(prompt, "extracts parameter values"):
			return extraction, nil
		case strings.Contains(prompt, "gathering information"):
			return "Could you give me the remaining course details?", nil
		case strings.Contains(prompt, "explaining a technical process"):
			return "I'll submit your course rating.", nil
		case strings.Contains(prompt, "Did the user confirm"):
			// The prompt quotes the user's reply; echo its polarity.
			if strings.Contains(prompt, `"yes"`) {
				return "yes", nil
			}
			return "no", nil
		case strings.Contains(prompt, "reporting the outcome"):
			return "All done! Your rating was recorded.", nil
		case strings.Contains(prompt, "could not be completed"):
			return "Something went wrong executing your request.", nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
}

func newTestAgent(t *testing.T, gen provider.Generator) *Agent {
	t.Helper()
	cat, err := catalog.Embedded()
	if err != nil {
		t.Fatal(err)
	}
	return New(Deps{
		Generator:     gen,
		Catalog:       cat,
		Planner:       planner.New(gen, cat, planner.ModeMulti),
		Executor:      executor.New(cat),
		History:       state.NewMemoryHistory(),
		HistoryWindow: 5,
	})
}

func TestHappyPathRateCourse(t *testing.T) {
	gen := scripted(`{"starRating": 5}`)
	agent := newTestAgent(t, gen)
	ctx := context.Background()

	// Turn 1: intent resolves but most parameters are missing.
	out := agent.HandleTurn(ctx, "s1", "I want to rate my course as 5 stars")
	if out.State != string(StateGathering) {
		t.Fatalf("turn 1: want gathering_parameters, got %s (%q)", out.State, out.Text)
	}
	if out.Context != nil {
		t.Error("turn 1: context must only appear while confirming")
	}

	// Turn 2: the user supplies everything; switch the extraction reply.
	// All components share the same generator, so swapping the handler on
	// the fake takes effect everywhere.
	gen.respond = scripted(fullRatingJSON).respond

	out = agent.HandleTurn(ctx, "s1", "CS CS101 Knuth 5 optional algorithms relative 8")
	if out.State != string(StateConfirming) {
		t.Fatalf("turn 2: want confirming_execution, got %s (%q)", out.State, out.Text)
	}
	if out.Context == nil {
		t.Fatal("turn 2: confirming reply must carry context")
	}
	if len(out.Context.Parameters) != 8 {
		t.Errorf("turn 2: want 8 collected parameters, got %d", len(out.Context.Parameters))
	}
	plan, ok := out.Context.Plan.(*planner.Plan)
	if !ok || len(plan.Steps) != 1 || plan.Steps[0].API != "/api/rate" {
		t.Fatalf("turn 2: want a single-step rate plan, got %v", out.Context.Plan)
	}
	if !strings.Contains(out.Text, "Shall I proceed?") {
		t.Errorf("turn 2: reply should ask for confirmation, got %q", out.Text)
	}

	// Turn 3: confirmation executes the plan and resets the session.
	out = agent.HandleTurn(ctx, "s1", "yes")
	if out.State != string(StateIdle) {
		t.Fatalf("turn 3: want idle, got %s", out.State)
	}
	if out.Text != "All done! Your rating was recorded." {
		t.Errorf("turn 3: want the success report, got %q", out.Text)
	}
	if s := agent.Sessions().Get("s1"); s.State != StateIdle || s.Plan != nil {
		t.Errorf("session should be fully reset, got state=%s plan=%v", s.State, s.Plan)
	}
}

func TestDeclineCancelsAndResets(t *testing.T) {
	agent := newTestAgent(t, scripted(fullRatingJSON))
	ctx := context.Background()

	out := agent.HandleTurn(ctx, "s1", "rate my course as 5 stars")
	if out.State != string(StateConfirming) {
		t.Fatalf("setup: want confirming_execution, got %s (%q)", out.State, out.Text)
	}

	out = agent.HandleTurn(ctx, "s1", "no, don't")
	if out.State != string(StateIdle) {
		t.Fatalf("decline: want idle, got %s", out.State)
	}
	if out.Text != cancelMessage {
		t.Errorf("decline: want cancellation acknowledgment, got %q", out.Text)
	}
	if s := agent.Sessions().Get("s1"); s.Plan != nil || len(s.Collected) != 0 {
		t.Error("decline should drop the pending plan and parameters")
	}
}

func TestConfirmationModelFailureDeclines(t *testing.T) {
	gen := scripted(fullRatingJSON)
	agent := newTestAgent(t, gen)
	ctx := context.Background()

	out := agent.HandleTurn(ctx, "s1", "rate my course as 5 stars")
	if out.State != string(StateConfirming) {
		t.Fatalf("setup: want confirming_execution, got %s (%q)", out.State, out.Text)
	}

	base := gen.respond
	gen.respond = func(prompt string) (string, error) {
		if strings.Contains(prompt, "Did the user confirm") {
			return "", errors.New("provider down")
		}
		return base(prompt)
	}

	out = agent.HandleTurn(ctx, "s1", "hmm, I'm not sure")
	if out.State != string(StateIdle) {
		t.Fatalf("want idle after unconfirmable reply, got %s", out.State)
	}
	if out.Text != cancelMessage {
		t.Errorf("an unverifiable confirmation must cancel, never execute; got %q", out.Text)
	}
	if s := agent.Sessions().Get("s1"); s.Plan != nil {
		t.Error("pending plan should be dropped")
	}
}

func TestGatheringExtractsOnlyOutstanding(t *testing.T) {
	var extractionPrompts []string
	gen := scripted(`{"starRating": 5}`)
	base := gen.respond
	gen.respond = func(prompt string) (string, error) {
		if strings.Contains(prompt, "extracts parameter values") {
			extractionPrompts = append(extractionPrompts, prompt)
		}
		return base(prompt)
	}
	agent := newTestAgent(t, gen)
	ctx := context.Background()

	agent.HandleTurn(ctx, "s1", "rate my course as 5 stars")
	agent.HandleTurn(ctx, "s1", "CS101 in CS, taught by Knuth")

	if len(extractionPrompts) != 2 {
		t.Fatalf("want one extraction per turn, got %d", len(extractionPrompts))
	}
	second := extractionPrompts[1]
	if strings.Contains(second, "starRating") {
		t.Error("already-collected parameter must not be re-requested")
	}
	if !strings.Contains(second, "courseCode") {
		t.Error("outstanding parameter should be in the extraction prompt")
	}
}

func TestPanicMidTurnResetsToIdle(t *testing.T) {
	gen := scripted(fullRatingJSON)
	agent := newTestAgent(t, gen)
	ctx := context.Background()

	out := agent.HandleTurn(ctx, "s1", "rate my course as 5 stars")
	if out.State != string(StateConfirming) {
		t.Fatalf("setup: want confirming_execution, got %s (%q)", out.State, out.Text)
	}

	gen.respond = func(string) (string, error) { panic("boom") }

	out = agent.HandleTurn(ctx, "s1", "yes")
	if out.State != string(StateIdle) {
		t.Fatalf("panicked turn must land in idle, got %s", out.State)
	}
	if out.Text != recoverMessage {
		t.Errorf("want the apology, got %q", out.Text)
	}
	s := agent.Sessions().Get("s1")
	if s.State != StateIdle || s.Plan != nil || len(s.Collected) != 0 {
		t.Errorf("session should be fully reset, got state=%s plan=%v collected=%v", s.State, s.Plan, s.Collected)
	}

	hist, err := agent.History().Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if hist[len(hist)-1].Content != recoverMessage {
		t.Error("the apology should still be recorded in the transcript")
	}
}

func TestNoMatchStaysIdle(t *testing.T) {
	gen := &fakeLLM{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "determine"):
			return `{"intent": "qwzx blorp", "entities": []}`, nil
		case strings.Contains(prompt, "match a user intent"):
			return `[]`, nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
	agent := newTestAgent(t, gen)

	out := agent.HandleTurn(context.Background(), "s1", "qwzx blorp")
	if out.State != string(StateIdle) {
		t.Fatalf("want idle, got %s", out.State)
	}
	if !strings.Contains(out.Text, "I'm not sure how to help with") {
		t.Errorf("want the no-match message, got %q", out.Text)
	}
	if !strings.Contains(out.Text, "qwzx blorp") {
		t.Errorf("no-match message should quote the user text, got %q", out.Text)
	}
}

func TestEntityMergeFillsGaps(t *testing.T) {
	gen := &fakeLLM{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "determine"):
			return `{"intent": "rate a course", "entities": [{"name": "starRating", "value": "5", "confidence": 0.9}]}`, nil
		case strings.Contains(prompt, "match a user intent"):
			return `[{"id": "rate_course", "confidence": 0.95}]`, nil
		case strings.Contains(prompt, "extracts parameter values"):
			return `{}`, nil
		case strings.Contains(prompt, "gathering information"):
			return "What else?", nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
	agent := newTestAgent(t, gen)

	agent.HandleTurn(context.Background(), "s1", "rate my course 5 stars")

	s := agent.Sessions().Get("s1")
	if s.Collected["starRating"] != 5.0 {
		t.Errorf("entity value should be validated and collected, got %v", s.Collected["starRating"])
	}
	for _, m := range s.Missing {
		if m.Spec.Name == "starRating" {
			t.Error("collected entity must not also be missing")
		}
	}
}

func TestUnknownStateTreatedAsIdle(t *testing.T) {
	agent := newTestAgent(t, scripted(`{}`))
	ctx := context.Background()

	s := agent.Sessions().Get("s1")
	s.State = State("bogus")

	out := agent.HandleTurn(ctx, "s1", "rate my course")
	if out.State != string(StateGathering) {
		t.Errorf("unknown state should restart as a fresh request, got %s", out.State)
	}
}

func TestTurnsAreRecordedInHistory(t *testing.T) {
	agent := newTestAgent(t, scripted(`{}`))
	ctx := context.Background()

	agent.HandleTurn(ctx, "s1", "rate my course")

	hist, err := agent.History().Recent(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("want user + assistant messages, got %d", len(hist))
	}
	if hist[0].Role != state.RoleUser || hist[1].Role != state.RoleAssistant {
		t.Errorf("roles out of order: %v", hist)
	}
}

func TestManagerEvict(t *testing.T) {
	agent := newTestAgent(t, scripted(`{}`))
	agent.HandleTurn(context.Background(), "old", "rate my course")

	s := agent.Sessions().Get("old")
	s.LastActivity = s.LastActivity.Add(-time.Hour)
	agent.Sessions().Get("fresh")

	evicted := agent.Sessions().Evict(30 * time.Minute)
	if len(evicted) != 1 || evicted[0] != "old" {
		t.Fatalf("want only the stale session evicted, got %v", evicted)
	}
	if agent.Sessions().Len() != 1 {
		t.Errorf("fresh session should survive, got %d sessions", agent.Sessions().Len())
	}
}

func TestEvictConcurrentWithTurns(t *testing.T) {
	agent := newTestAgent(t, scripted(`{}`))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			agent.HandleTurn(ctx, "busy", "rate my course")
		}
	}()
	for i := 0; i < 25; i++ {
		agent.Sessions().Evict(time.Nanosecond)
	}
	<-done
}

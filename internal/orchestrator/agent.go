// Package orchestrator is the conversation controller: a small state
// machine that walks each session from intent resolution through parameter
// gathering and confirmation to execution. Every turn takes user text in
// and produces exactly one reply, whatever happens inside.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/executor"
	"github.com/trymeuj/aiva/internal/intent"
	"github.com/trymeuj/aiva/internal/metrics"
	"github.com/trymeuj/aiva/internal/planner"
	"github.com/trymeuj/aiva/internal/provider"
	"github.com/trymeuj/aiva/internal/report"
	"github.com/trymeuj/aiva/internal/slots"
	"github.com/trymeuj/aiva/internal/state"
	"github.com/trymeuj/aiva/pkg/wire"
)

const (
	cancelMessage   = "I've cancelled the operation. Is there something else you'd like to do instead?"
	recoverMessage  = "I'm sorry, something went wrong on my end. Let's start over - what would you like to do?"
	proceedQuestion = "Shall I proceed?"
)

// Deps are the collaborators an Agent needs. Resolver, reconciler and
// reporter are built internally from the generator.
type Deps struct {
	Generator     provider.Generator
	Catalog       *catalog.Catalog
	Planner       *planner.Planner
	Executor      *executor.Executor
	History       state.HistoryStore
	HistoryWindow int
}

type Agent struct {
	gen        provider.Generator
	catalog    *catalog.Catalog
	resolver   *intent.Resolver
	reconciler *slots.Reconciler
	planner    *planner.Planner
	executor   *executor.Executor
	reporter   *report.Reporter
	history    state.HistoryStore
	window     int
	sessions   *Manager
}

func New(d Deps) *Agent {
	window := d.HistoryWindow
	if window <= 0 {
		window = 5
	}
	return &Agent{
		gen:        d.Generator,
		catalog:    d.Catalog,
		resolver:   intent.NewResolver(d.Generator, d.Catalog),
		reconciler: slots.NewReconciler(d.Generator),
		planner:    d.Planner,
		executor:   d.Executor,
		reporter:   report.New(d.Generator),
		history:    d.History,
		window:     window,
		sessions:   NewManager(),
	}
}

// Sessions exposes the session manager for the server and the sweeper.
func (a *Agent) Sessions() *Manager { return a.sessions }

// History exposes the transcript store so the sweeper can delete evicted
// sessions' transcripts.
func (a *Agent) History() state.HistoryStore { return a.history }

// HandleTurn processes one user utterance for the given session and
// returns the reply. It never returns an error and never panics outward: a
// panic mid-turn resets the session to idle and apologizes.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, text string) (out *wire.Outbound) {
	s := a.sessions.Get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("session %s: recovered mid-turn: %v", sessionID, r)
			s.reset()
			out = &wire.Outbound{Text: recoverMessage, State: string(StateIdle)}
			metrics.Turn("recovered")
		}
		if out != nil {
			a.appendHistory(ctx, sessionID, state.RoleAssistant, out.Text)
		}
	}()

	a.appendHistory(ctx, sessionID, state.RoleUser, text)
	hist := a.recent(ctx, sessionID)

	switch s.State {
	case StateIdle:
		out = a.handleIdle(ctx, s, text, hist)
	case StateGathering:
		out = a.handleGathering(ctx, s, text, hist)
	case StateConfirming:
		out = a.handleConfirming(ctx, s, text)
	default:
		// Unknown state, e.g. after an incompatible upgrade. Treat the
		// turn as a fresh request.
		s.reset()
		out = a.handleIdle(ctx, s, text, hist)
	}
	return out
}

func (a *Agent) appendHistory(ctx context.Context, sessionID string, role state.Role, text string) {
	if err := a.history.Append(ctx, sessionID, state.Message{Role: role, Content: text}); err != nil {
		log.Printf("session %s: appending history: %v", sessionID, err)
	}
}

func (a *Agent) recent(ctx context.Context, sessionID string) []state.Message {
	hist, err := a.history.Recent(ctx, sessionID, a.window)
	if err != nil {
		log.Printf("session %s: reading history: %v", sessionID, err)
		return nil
	}
	return hist
}

func (a *Agent) handleIdle(ctx context.Context, s *Session, text string, hist []state.Message) *wire.Outbound {
	res, err := a.resolver.Resolve(ctx, text, hist)
	if err != nil || len(res.Matches) == 0 {
		metrics.Turn("no_match")
		return &wire.Outbound{
			Text:  fmt.Sprintf("I'm not sure how to help with: %q. Could you try rephrasing your request?", text),
			State: string(StateIdle),
		}
	}

	top := res.Matches[0].Descriptor
	collected, missing := a.reconciler.Reconcile(ctx, text, top.Parameters, top.Description, hist)
	collected, missing = mergeEntities(collected, missing, res.Entities, top.Parameters)

	s.Intent = res.Intent
	s.Matches = res.Matches
	s.Collected = collected
	s.Missing = missing

	if len(missing) > 0 {
		s.State = StateGathering
		metrics.Turn("gathering")
		return &wire.Outbound{
			Text:  a.askClarification(ctx, s.Intent, missing),
			State: string(StateGathering),
		}
	}
	return a.confirmPlan(ctx, s)
}

func (a *Agent) handleGathering(ctx context.Context, s *Session, text string, hist []state.Message) *wire.Outbound {
	if len(s.Matches) == 0 {
		s.reset()
		return a.handleIdle(ctx, s, text, hist)
	}
	top := s.Matches[0].Descriptor

	// Extraction only sees the outstanding parameters; values already
	// collected are settled and must not be re-requested.
	missingSpecs := make([]catalog.ParameterSpec, 0, len(s.Missing))
	for _, m := range s.Missing {
		missingSpecs = append(missingSpecs, m.Spec)
	}
	collected, _ := a.reconciler.Reconcile(ctx, text, missingSpecs, top.Description, hist)

	for name, v := range collected {
		s.Collected[name] = v
	}
	s.Missing = outstanding(top.Parameters, s.Collected)

	if len(s.Missing) > 0 {
		metrics.Turn("gathering")
		return &wire.Outbound{
			Text:  a.askClarification(ctx, s.Intent, s.Missing),
			State: string(StateGathering),
		}
	}
	return a.confirmPlan(ctx, s)
}

func (a *Agent) confirmPlan(ctx context.Context, s *Session) *wire.Outbound {
	s.Plan = a.planner.Build(ctx, s.Matches, s.Collected)
	metrics.PlanBuilt()

	if len(s.Plan.Steps) == 0 {
		// Nothing concrete to run: report the planner's explanation and
		// go back to idle rather than asking to confirm an empty plan.
		s.reset()
		metrics.Turn("empty_plan")
		return &wire.Outbound{Text: s.Plan.Description, State: string(StateIdle)}
	}

	s.State = StateConfirming
	metrics.Turn("confirming")
	return &wire.Outbound{
		Text:  s.Plan.Description + "\n\n" + proceedQuestion,
		State: string(StateConfirming),
		Context: &wire.TurnContext{
			Intent:     s.Intent,
			Plan:       s.Plan,
			Parameters: s.Collected,
		},
	}
}

func (a *Agent) handleConfirming(ctx context.Context, s *Session, text string) *wire.Outbound {
	if !a.interpretConfirmation(ctx, text) {
		s.reset()
		metrics.Turn("declined")
		return &wire.Outbound{Text: cancelMessage, State: string(StateIdle)}
	}

	results := a.executor.Execute(ctx, s.Plan)
	reply := a.reporter.Format(ctx, s.Intent, results)
	s.reset()
	metrics.Turn("executed")
	return &wire.Outbound{Text: reply, State: string(StateIdle)}
}

// outstanding recomputes the missing set from scratch: required specs
// without a collected value. A name is never both collected and missing.
func outstanding(specs []catalog.ParameterSpec, collected map[string]any) []slots.Missing {
	var missing []slots.Missing
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if _, ok := collected[spec.Name]; ok {
			continue
		}
		missing = append(missing, slots.Missing{Spec: spec, Reason: "not provided"})
	}
	return missing
}

// mergeEntities folds intent-analysis entities into the collected set for
// specs that extraction missed. Entity values go through the same
// validation as extracted ones.
func mergeEntities(collected map[string]any, missing []slots.Missing, entities []intent.Entity, specs []catalog.ParameterSpec) (map[string]any, []slots.Missing) {
	if len(entities) == 0 {
		return collected, missing
	}
	for _, e := range entities {
		if _, ok := collected[e.Name]; ok {
			continue
		}
		for _, spec := range specs {
			if spec.Name != e.Name {
				continue
			}
			if v, err := slots.Validate(e.Value, spec); err == nil && v != nil {
				collected[e.Name] = v
			}
			break
		}
	}
	return collected, outstanding(specs, collected)
}

func (a *Agent) askClarification(ctx context.Context, intentText string, missing []slots.Missing) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant gathering information from a user.\n\n")
	fmt.Fprintf(&sb, "The user wants to: %s\n\n", intentText)
	sb.WriteString("You still need these values:\n")
	for _, m := range missing {
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", m.Spec.Name, m.Spec.Description, m.Reason)
	}
	sb.WriteString("\nWrite one short, friendly question asking the user for the missing values.\n")

	reply, err := a.gen.Generate(ctx, sb.String(), provider.Temp(0.7, 256))
	if err == nil && strings.TrimSpace(reply) != "" {
		metrics.LLMCall("clarification", "ok")
		return strings.TrimSpace(reply)
	}
	metrics.LLMCall("clarification", "fallback")

	names := make([]string, 0, len(missing))
	for _, m := range missing {
		if m.Spec.Description != "" {
			names = append(names, fmt.Sprintf("%s (%s)", m.Spec.Name, m.Spec.Description))
		} else {
			names = append(names, m.Spec.Name)
		}
	}
	return "I need a few more details before I can do that. Could you tell me: " + strings.Join(names, ", ") + "?"
}

// interpretConfirmation decides whether text is a yes. The model gets a
// ten-token budget. When the model is unreachable the answer is no: a
// plan never runs on a guessed confirmation, and the cancellation path
// leaves the user free to retry.
func (a *Agent) interpretConfirmation(ctx context.Context, text string) bool {
	prompt := fmt.Sprintf(
		"The user was asked to confirm an action and replied: %q\n\nDid the user confirm? Answer with exactly one word: yes or no.",
		text,
	)
	reply, err := a.gen.Generate(ctx, prompt, provider.Temp(0.1, 10))
	if err != nil {
		log.Printf("confirmation check: %v", err)
		metrics.LLMCall("confirmation", "declined")
		return false
	}
	metrics.LLMCall("confirmation", "ok")
	return strings.Contains(strings.ToLower(reply), "yes")
}

// Package report turns raw execution results into the assistant's reply.
// The model writes the friendly version when available; every path has a
// deterministic fallback so a report is always produced.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trymeuj/aiva/internal/executor"
	"github.com/trymeuj/aiva/internal/provider"
)

const emptyResultsMessage = "I wasn't able to complete your request. Please try again or rephrase your request."

type Reporter struct {
	gen provider.Generator
}

func New(gen provider.Generator) *Reporter {
	return &Reporter{gen: gen}
}

// Format produces the user-facing summary of an execution run. intent is
// the natural-language intent the run was serving.
func (r *Reporter) Format(ctx context.Context, intent string, results []executor.StepResult) string {
	if len(results) == 0 {
		return emptyResultsMessage
	}

	if failed := failedSteps(results); len(failed) > 0 {
		return r.formatFailure(ctx, intent, failed)
	}
	return r.formatSuccess(ctx, intent, results)
}

func failedSteps(results []executor.StepResult) []executor.StepResult {
	var failed []executor.StepResult
	for _, res := range results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Reporter) formatSuccess(ctx context.Context, intent string, results []executor.StepResult) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant reporting the outcome of completed API calls.\n\n")
	fmt.Fprintf(&sb, "The user wanted to: %s\n\n", intent)
	sb.WriteString("Results:\n")
	if data, err := json.MarshalIndent(results, "", "  "); err == nil {
		sb.Write(data)
		sb.WriteString("\n")
	}
	sb.WriteString("\nSummarize what was accomplished in friendly, conversational language.")
	sb.WriteString(" Mention the key values from the results. Keep it under 150 words.\n")

	reply, err := r.gen.Generate(ctx, sb.String(), provider.Temp(0.5, 500))
	if err == nil && strings.TrimSpace(reply) != "" {
		return strings.TrimSpace(reply)
	}
	return successFallback(results)
}

func (r *Reporter) formatFailure(ctx context.Context, intent string, failed []executor.StepResult) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant explaining why a request could not be completed.\n\n")
	fmt.Fprintf(&sb, "The user wanted to: %s\n\n", intent)
	sb.WriteString("These steps failed:\n")
	for _, res := range failed {
		fmt.Fprintf(&sb, "- %s %s: %s\n", res.Method, res.API, res.Error)
	}
	sb.WriteString("\nExplain the problem in plain language and suggest what the user could do next. Keep it under 100 words.\n")

	reply, err := r.gen.Generate(ctx, sb.String(), provider.Temp(0.5, 300))
	if err == nil && strings.TrimSpace(reply) != "" {
		return strings.TrimSpace(reply)
	}
	return failureFallback(failed)
}

func successFallback(results []executor.StepResult) string {
	var sb strings.Builder
	sb.WriteString("Done! ")
	for _, res := range results {
		fmt.Fprintf(&sb, "The call to %s completed successfully. ", res.API)
		if len(res.Data) > 0 {
			if data, err := json.Marshal(res.Data); err == nil {
				fmt.Fprintf(&sb, "Result: %s ", data)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func failureFallback(failed []executor.StepResult) string {
	parts := make([]string, 0, len(failed))
	for _, res := range failed {
		parts = append(parts, fmt.Sprintf("%s (%s)", res.API, res.Error))
	}
	return "I ran into a problem with: " + strings.Join(parts, ", ") + ". Please check the details and try again."
}

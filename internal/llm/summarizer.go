package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Sentinel errors surfaced by the summarization stage.
var (
	// ErrUnavailable indicates the LLM collaborator could not be reached.
	ErrUnavailable = errors.New("summarization backend unavailable")

	// ErrUnparseable indicates the collaborator reply did not contain the
	// expected structure.
	ErrUnparseable = errors.New("summarization reply not parseable")
)

// Notes is the structured output of the summarization stage. Either all
// three fields are populated together or the stage fails as a unit.
type Notes struct {
	Summary     string
	ActionItems []string
	Decisions   []string
}

// Generator is the subset of Model the summarizer needs, abstracted so
// tests can inject a stub collaborator.
type Generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Summarizer turns a transcript into meeting notes.
type Summarizer struct {
	model Generator
}

// NewSummarizer creates a summarizer over the given generator.
func NewSummarizer(model Generator) *Summarizer {
	return &Summarizer{model: model}
}

const summarySystemPrompt = `You are an expert meeting summarizer. Summarize the key points and outcomes in a concise and neutral manner.
Focus on the major topics discussed, conclusions, and actionable takeaways.
Do not introduce any personal opinions. Ensure that the summary highlights all key aspects discussed in the meeting.`

const actionItemsSystemPrompt = `Analyze the meeting transcript and extract all clear action items assigned to individuals or the group.
List each action item as a bullet point starting with "- ".
If no action items are found, respond with exactly "No action items identified.".`

const decisionsSystemPrompt = `Review the meeting transcript and identify all explicit decisions made by the participants.
List each decision as a bullet point starting with "- ".
If no decisions are found, respond with exactly "No decisions identified.".`

// Summarize runs the three extraction prompts concurrently and assembles
// the result. Any prompt failure fails the whole stage.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (*Notes, error) {
	userPrompt := fmt.Sprintf("TRANSCRIPT:\n%s", transcript)

	var (
		wg      sync.WaitGroup
		outputs [3]string
		errs    [3]error
	)

	prompts := [3]string{summarySystemPrompt, actionItemsSystemPrompt, decisionsSystemPrompt}
	for i, system := range prompts {
		wg.Add(1)
		go func(i int, system string) {
			defer wg.Done()
			outputs[i], errs[i] = s.model.GenerateWithSystem(ctx, system, userPrompt)
		}(i, system)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	summary := strings.TrimSpace(outputs[0])
	if summary == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrUnparseable)
	}

	return &Notes{
		Summary:     summary,
		ActionItems: ParseBullets(outputs[1]),
		Decisions:   ParseBullets(outputs[2]),
	}, nil
}

// bulletPrefixes are the markers stripped from list replies.
var bulletPrefixes = []string{"- ", "* ", "+ ", "• ", "-", "*", "+", "•"}

// ParseBullets extracts bullet list items from an LLM reply. Lines without
// a bullet marker are ignored, so "No action items identified." collapses
// to an empty list.
func ParseBullets(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range bulletPrefixes {
			if strings.HasPrefix(line, prefix) {
				item := strings.TrimSpace(strings.TrimPrefix(line, prefix))
				if item != "" {
					items = append(items, item)
				}
				break
			}
		}
	}
	return items
}

package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/goalmesh/core"
)

// RuleBasedPlanner derives a plan from goal text and the set of registered
// capabilities without any model call. It is a pure function of its inputs:
// the same goal text and registry always yield the same plan, which keeps
// the pipeline testable when no planning service is configured.
//
// Goal classification is a fixed-priority chain evaluated in source order
// with first-match-wins semantics: travel beats flight beats hotel beats
// career beats study beats quiz beats schedule beats automation. A goal
// containing both "trip" and "quiz" therefore always resolves to the travel
// branch. This ordering is part of the contract, not an accident.
type RuleBasedPlanner struct {
	registry *core.Registry
}

// NewRuleBasedPlanner creates a fallback planner over the given registry.
func NewRuleBasedPlanner(registry *core.Registry) *RuleBasedPlanner {
	return &RuleBasedPlanner{registry: registry}
}

// Destination extraction patterns, tried in order. Each captures the span
// following a travel verb ("trip to X"), a locative preposition ("in X"),
// or preceding a travel noun ("X vacation").
var destinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:trip|travel|go|visit|fly)\s+to\s+([a-zA-Z][\w\s\-]+?)(?:\s+(?:next|for|in|on|this|trip|travel|vacation|flight|hotel|,)|$)`),
	regexp.MustCompile(`(?i)(?:in|at)\s+([a-zA-Z][\w\s\-]+?)(?:\s+(?:next|for|in|on|this|trip|travel|vacation|flight|hotel|,)|$)`),
	regexp.MustCompile(`(?i)(?:^|\s)([a-zA-Z][a-zA-Z\s\-]+?)\s+(?:trip|tour|vacation)`),
}

// Noise words stripped from the front of a captured destination span.
var destinationNoiseWords = map[string]bool{
	"plan": true, "a": true, "an": true, "the": true, "my": true, "our": true, "for": true,
}

var (
	nextMonthPattern = regexp.MustCompile(`(?i)next\s+month`)
	datePattern      = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)
	nightsPattern    = regexp.MustCompile(`(?i)(\d+)\s+(?:day|night|days|nights)`)
	careerPattern    = regexp.MustCompile(`(?i)(?:as|for|become|be)\s+([a-z\s]+)`)
	topicPattern     = regexp.MustCompile(`(?i)(?:explain|learn|study|about)\s+([a-z\s]+)`)
	quizTopicPattern = regexp.MustCompile(`(?i)(?:quiz|test)\s+(?:on|about)?\s*([a-z\s]+)`)
	questionsPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:questions?|qs?)`)
	schedulePattern  = regexp.MustCompile(`(?i)(?:schedule|plan)\s+(?:study\s+)?(?:for\s+)?([a-z\s]+)`)
	durationPattern  = regexp.MustCompile(`(?i)(\d+)\s*(?:hour|hr|h)`)
)

// defaultDestination is used when no pattern extracts a destination.
const defaultDestination = "Paris"

// CreatePlan derives a plan from the goal text. It never fails: an
// unrecognized goal produces a minimal acknowledgement plan. Every plan ends
// with a respond step and step ids are sequential string integers starting
// at "1".
func (p *RuleBasedPlanner) CreatePlan(goal string) core.Plan {
	goalLower := strings.ToLower(goal)
	destination := extractDestination(goal)
	nights := extractNights(goal)

	var steps []core.Step
	addStep := func(stepType string, input map[string]any) {
		steps = append(steps, core.Step{
			ID:    strconv.Itoa(len(steps) + 1),
			Type:  stepType,
			Input: input,
		})
	}
	respond := func(text string) {
		addStep(core.RespondType, map[string]any{"text": text})
	}

	switch {
	case containsAny(goalLower, "trip", "travel", "vacation"):
		if p.registry.Has("search_flights") {
			addStep("search_flights", map[string]any{
				"destination": destination,
				"dates":       extractDates(goal),
			})
		}
		if p.registry.Has("search_hotels") {
			addStep("search_hotels", map[string]any{
				"destination": destination,
				"nights":      nights,
			})
		}
		if p.registry.Has("check_weather") {
			addStep("check_weather", map[string]any{
				"destination": destination,
				"days":        5,
			})
		}
		if p.registry.Has("find_attractions") {
			addStep("find_attractions", map[string]any{
				"destination": destination,
				"type":        "all",
			})
		}
		respond(fmt.Sprintf(
			"I've completed your comprehensive travel planning for %s. I found the cheapest flights with booking links, best hotel rates, current weather conditions, and popular attractions nearby. Check the detailed results below!",
			destination,
		))

	case strings.Contains(goalLower, "flight"):
		if p.registry.Has("search_flights") {
			addStep("search_flights", map[string]any{
				"destination": destination,
				"dates":       map[string]any{},
			})
		}
		respond(fmt.Sprintf("I've found flight options for %s.", destination))

	case strings.Contains(goalLower, "hotel"):
		if p.registry.Has("search_hotels") {
			addStep("search_hotels", map[string]any{
				"destination": destination,
				"nights":      nights,
			})
		}
		respond(fmt.Sprintf("I've found hotel options for %s.", destination))

	case containsAny(goalLower, "career", "job", "salary"):
		if p.registry.Has("career_guidance") {
			career := "career"
			if m := careerPattern.FindStringSubmatch(goal); m != nil {
				career = strings.TrimSpace(m[1])
			} else if strings.Contains(goalLower, "engineer") {
				career = "software engineer"
			}
			addStep("career_guidance", map[string]any{
				"career": career,
				"query":  goal,
			})
		}
		respond("I've prepared career guidance information for you.")

	case containsAny(goalLower, "explain", "learn", "study"):
		topic := "the topic"
		if m := topicPattern.FindStringSubmatch(goal); m != nil {
			topic = strings.TrimSpace(m[1])
		}
		if p.registry.Has("explain_topic") {
			addStep("explain_topic", map[string]any{"topic": topic})
		}
		respond("I've prepared an explanation for you.")

	case containsAny(goalLower, "quiz", "test"):
		topic := "general knowledge"
		if m := quizTopicPattern.FindStringSubmatch(goal); m != nil {
			topic = strings.TrimSpace(m[1])
		}
		numQuestions := 5
		if m := questionsPattern.FindStringSubmatch(goal); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				numQuestions = n
			}
		}
		if p.registry.Has("create_quiz") {
			addStep("create_quiz", map[string]any{
				"topic":        topic,
				"numQuestions": numQuestions,
			})
		}
		respond("I've created a quiz for you.")

	case strings.Contains(goalLower, "schedule") ||
		(strings.Contains(goalLower, "plan") && strings.Contains(goalLower, "study")):
		topic := "studies"
		if m := schedulePattern.FindStringSubmatch(goal); m != nil {
			topic = strings.TrimSpace(m[1])
		}
		duration := "1 hour"
		if m := durationPattern.FindStringSubmatch(goal); m != nil {
			duration = m[1] + " hours"
		}
		if p.registry.Has("schedule_study") {
			addStep("schedule_study", map[string]any{
				"topic":    topic,
				"duration": duration,
			})
		}
		respond("I've created a study schedule for you.")

	case containsAny(goalLower, "automate", "task"):
		if p.registry.Has("automate_task") {
			addStep("automate_task", map[string]any{
				"task":    goal,
				"context": map[string]any{},
			})
		}
		respond("I've analyzed your task and created an automation plan.")

	default:
		respond(fmt.Sprintf("I understand you want to: %s. Let me help you with that.", goal))
	}

	return core.Plan{Steps: steps}
}

// extractDestination tries each destination pattern in order, strips leading
// noise words from the captured span and title-cases the remainder.
func extractDestination(goal string) string {
	for _, pattern := range destinationPatterns {
		m := pattern.FindStringSubmatch(goal)
		if m == nil || m[1] == "" {
			continue
		}
		words := strings.Fields(strings.TrimSpace(m[1]))
		for len(words) > 0 && destinationNoiseWords[strings.ToLower(words[0])] {
			words = words[1:]
		}
		if len(words) > 0 {
			return titleCase(strings.Join(words, " "))
		}
	}
	return defaultDestination
}

// extractNights returns the "<N> night(s)/day(s)" count, defaulting to 2.
func extractNights(goal string) int {
	if m := nightsPattern.FindStringSubmatch(goal); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 2
}

// extractDates builds the dates input for flight search: a next-month
// marker, a concrete matched date, or empty when the goal names neither.
func extractDates(goal string) map[string]any {
	if nextMonthPattern.MatchString(goal) {
		return map[string]any{"from": "next_month", "to": "next_month"}
	}
	if m := datePattern.FindString(goal); m != "" {
		return map[string]any{"from": m, "to": m}
	}
	return map[string]any{}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

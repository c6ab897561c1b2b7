package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildPlanPrompt renders the planning prompt: goal text, capability
// listing, optional memory context, the respond convention and a JSON
// example the model is asked to imitate.
func BuildPlanPrompt(goal, capabilities, memoryContext string) string {
	var b strings.Builder
	b.WriteString("You are a planner AI that creates a sequence of steps to achieve a user's goal.\n")
	b.WriteString("Based on the user's goal, create a plan using the available tools.\n")
	b.WriteString("The final step should almost always be 'respond' to present the result to the user.\n\n")

	if memoryContext != "" {
		fmt.Fprintf(&b, "Previous context:\n%s\n\n", memoryContext)
	}

	fmt.Fprintf(&b, "Goal: %q\n\n", goal)
	b.WriteString("Available tools:\n")
	b.WriteString(capabilities)
	b.WriteString("\n- respond: Respond to the user with a final answer when the goal is complete or if no other tools are suitable. Input: { text: string }\n\n")

	b.WriteString("Respond with a JSON object containing a 'steps' array. Each step should have an 'id', 'type', and 'input'.\n\n")
	b.WriteString(`Example:
Goal: "I want to book a trip to Goa for next month"
{
  "steps": [
    { "id": "1", "type": "search_flights", "input": { "destination": "Goa" } },
    { "id": "2", "type": "search_hotels", "input": { "destination": "Goa", "nights": 3 } },
    { "id": "3", "type": "respond", "input": { "text": "Here are your travel options..." } }
  ]
}`)
	return b.String()
}

// BuildParsePrompt renders the auxiliary extraction prompt used by
// ParseNaturalLanguage.
func BuildParsePrompt(text string, schema map[string]any) string {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		schemaJSON = []byte("{}")
	}
	return fmt.Sprintf(
		"Parse the following user input and extract structured data according to this schema:\n%s\n\nUser input: %q\n\nReturn only valid JSON matching the schema.",
		schemaJSON, text,
	)
}

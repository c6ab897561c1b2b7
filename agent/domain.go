package agent

import (
	"fmt"

	"github.com/hupe1980/goalmesh/core"
)

// Domain goal builders. Specialized agents (career coach, study buddy) add
// no pipeline behavior of their own: they format a goal's text and meta and
// hand it to a regular Agent. Specialization is data, not a subtype.

// CareerGuidanceGoal builds a goal asking for career guidance on a topic.
func CareerGuidanceGoal(topic string) core.Goal {
	return core.Goal{
		Text: fmt.Sprintf("Provide career guidance on: %s", topic),
		Meta: map[string]any{"type": "career_guidance"},
	}
}

// ExplainTopicGoal builds a goal asking for an explanation of a topic.
func ExplainTopicGoal(topic string) core.Goal {
	return core.Goal{
		Text: fmt.Sprintf("Explain the topic: %s", topic),
		Meta: map[string]any{"type": "explain"},
	}
}

// QuizGoal builds a goal asking for a quiz. numQuestions defaults to 5 when
// not positive.
func QuizGoal(topic string, numQuestions int) core.Goal {
	if numQuestions <= 0 {
		numQuestions = 5
	}
	return core.Goal{
		Text: fmt.Sprintf("Create a quiz on %s with %d questions", topic, numQuestions),
		Meta: map[string]any{"type": "quiz", "numQuestions": numQuestions},
	}
}

// StudyScheduleGoal builds a goal asking for a study session schedule.
func StudyScheduleGoal(topic, duration string) core.Goal {
	return core.Goal{
		Text: fmt.Sprintf("Schedule a %s study session for %s", duration, topic),
		Meta: map[string]any{"type": "schedule", "duration": duration},
	}
}

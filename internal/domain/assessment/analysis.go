package assessment

import "sort"

// TopicBreakdown summarizes correctness within one topic of a graded
// attempt.
type TopicBreakdown struct {
	Topic    string  `json:"topic"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"` // 0-100
}

// DifficultyBreakdown summarizes correctness per difficulty tier.
type DifficultyBreakdown struct {
	Difficulty Difficulty `json:"difficulty"`
	Total      int        `json:"total"`
	Correct    int        `json:"correct"`
	Accuracy   float64    `json:"accuracy"`
}

// AttemptAnalysis is the per-attempt report surfaced on the results
// page: strong and weak topics plus a difficulty profile.
type AttemptAnalysis struct {
	Topics       []TopicBreakdown      `json:"topics"`
	Difficulties []DifficultyBreakdown `json:"difficulties"`
	StrongTopics []string              `json:"strong_topics"`
	WeakTopics   []string              `json:"weak_topics"`
}

const (
	strongTopicThreshold = 80.0
	weakTopicThreshold   = 50.0
)

// Analyze builds the per-topic and per-difficulty report for a graded
// attempt. Questions without a topic are grouped under "general".
func Analyze(test *MockTest, attempt *Attempt) AttemptAnalysis {
	type bucket struct {
		total   int
		correct int
	}
	topicBuckets := make(map[string]*bucket)
	diffBuckets := make(map[Difficulty]*bucket)

	for _, resp := range attempt.Responses {
		question, ok := test.FindQuestion(resp.QuestionID)
		if !ok {
			continue
		}
		topic := question.Topic
		if topic == "" {
			topic = "general"
		}
		tb := topicBuckets[topic]
		if tb == nil {
			tb = &bucket{}
			topicBuckets[topic] = tb
		}
		tb.total++
		if resp.Correct {
			tb.correct++
		}

		if question.Difficulty != "" {
			db := diffBuckets[question.Difficulty]
			if db == nil {
				db = &bucket{}
				diffBuckets[question.Difficulty] = db
			}
			db.total++
			if resp.Correct {
				db.correct++
			}
		}
	}

	analysis := AttemptAnalysis{}
	for topic, b := range topicBuckets {
		accuracy := 100 * float64(b.correct) / float64(b.total)
		analysis.Topics = append(analysis.Topics, TopicBreakdown{
			Topic:    topic,
			Total:    b.total,
			Correct:  b.correct,
			Accuracy: accuracy,
		})
		if accuracy >= strongTopicThreshold {
			analysis.StrongTopics = append(analysis.StrongTopics, topic)
		} else if accuracy < weakTopicThreshold {
			analysis.WeakTopics = append(analysis.WeakTopics, topic)
		}
	}
	sort.Slice(analysis.Topics, func(i, j int) bool {
		return analysis.Topics[i].Topic < analysis.Topics[j].Topic
	})
	sort.Strings(analysis.StrongTopics)
	sort.Strings(analysis.WeakTopics)

	for _, diff := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		b := diffBuckets[diff]
		if b == nil {
			continue
		}
		analysis.Difficulties = append(analysis.Difficulties, DifficultyBreakdown{
			Difficulty: diff,
			Total:      b.total,
			Correct:    b.correct,
			Accuracy:   100 * float64(b.correct) / float64(b.total),
		})
	}
	return analysis
}

// TestStats is the aggregate over all graded attempts on one test,
// rebuilt periodically by a background job.
type TestStats struct {
	MockTestID    string  `json:"mock_test_id"`
	TotalAttempts int     `json:"total_attempts"`
	PassRate      float64 `json:"pass_rate"`     // 0-100
	AverageScore  float64 `json:"average_score"` // 0-100
	HighestScore  float64 `json:"highest_score"`
}

// BuildTestStats folds graded attempts into aggregate stats.
func BuildTestStats(mockTestID string, attempts []*Attempt) TestStats {
	stats := TestStats{MockTestID: mockTestID}
	if len(attempts) == 0 {
		return stats
	}
	sum := 0.0
	passed := 0
	for _, a := range attempts {
		if !a.IsGraded() {
			continue
		}
		stats.TotalAttempts++
		sum += a.TotalScore
		if a.Passed {
			passed++
		}
		if a.TotalScore > stats.HighestScore {
			stats.HighestScore = a.TotalScore
		}
	}
	if stats.TotalAttempts > 0 {
		stats.AverageScore = sum / float64(stats.TotalAttempts)
		stats.PassRate = 100 * float64(passed) / float64(stats.TotalAttempts)
	}
	return stats
}

package app

import (
	"math"
	"sort"
	"time"

	"proctor-quiz-service/internal/domain"
)

func buildResult(
	sessionID string,
	quiz domain.Quiz,
	answers []domain.Answer,
	history []domain.TelemetrySample,
	snapshots map[string]domain.TelemetrySample,
	startedAt, finishedAt time.Time,
) domain.QuizResult {
	result := domain.QuizResult{
		SessionID:        sessionID,
		QuizID:           quiz.ID,
		TotalQuestions:   len(quiz.Questions),
		TimeSpent:        int(finishedAt.Sub(startedAt) / time.Second),
		StartedAt:        startedAt,
		FinishedAt:       finishedAt,
		EmotionHistory:   append([]domain.TelemetrySample(nil), history...),
		Answers:          append([]domain.Answer(nil), answers...),
		QuestionEmotions: make(map[string]domain.TelemetrySample, len(snapshots)),
	}
	for id, s := range snapshots {
		result.QuestionEmotions[id] = s
	}
	result.Score = score(quiz.Questions, answers)
	result.Summary = Summarize(quiz.Questions, result)
	return result
}

// score counts answers matching the correct index; NoAnswer never matches.
func score(questions []domain.Question, answers []domain.Answer) int {
	total := 0
	for i, a := range answers {
		if i < len(questions) && a != domain.NoAnswer && int(a) == questions[i].CorrectAnswer {
			total++
		}
	}
	return total
}

// Summarize derives the results-screen aggregates from a finished result.
// Emotion labels missing from a sample count as zero intensity.
func Summarize(questions []domain.Question, result domain.QuizResult) domain.Summary {
	summary := domain.Summary{
		AverageEmotions: map[string]float64{},
		Correct:         make([]bool, len(questions)),
	}
	if result.TotalQuestions > 0 {
		summary.Percentage = int(math.Round(float64(result.Score) * 100 / float64(result.TotalQuestions)))
	}
	for i, q := range questions {
		if i < len(result.Answers) && result.Answers[i] != domain.NoAnswer {
			summary.Correct[i] = int(result.Answers[i]) == q.CorrectAnswer
		}
	}

	n := len(result.EmotionHistory)
	if n == 0 {
		return summary
	}
	faces := 0
	for _, s := range result.EmotionHistory {
		faces += s.FaceCount
		for label, v := range s.Emotions {
			summary.AverageEmotions[label] += v
		}
	}
	for label := range summary.AverageEmotions {
		summary.AverageEmotions[label] /= float64(n)
	}
	summary.AverageFaceCount = float64(faces) / float64(n)

	labels := make([]string, 0, len(summary.AverageEmotions))
	for label := range summary.AverageEmotions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	best := -1.0
	for _, label := range labels {
		if v := summary.AverageEmotions[label]; v > best {
			best = v
			summary.DominantEmotion = label
		}
	}
	return summary
}

package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"proctor-quiz-service/internal/config"
	"proctor-quiz-service/internal/domain"
)

// NewResultsCmd prints a stored result by session id.
func NewResultsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "results <session-id>",
		Short: "Show the result of a finished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("results are only retained across processes when redis is configured")
			}
			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := st.results.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("session %q: %w", args[0], err)
			}
			quiz, err := st.quizzes.GetQuiz(cmd.Context(), result.QuizID)
			if err != nil && !errors.Is(err, domain.ErrQuizNotFound) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResult(quiz, result))
			return nil
		},
	}
}

// renderResult prints the overview followed by one row per question. The
// quiz may be empty when its bank no longer exists.
func renderResult(quiz domain.Quiz, result domain.QuizResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s (%s)\n", result.SessionID, result.QuizID)
	fmt.Fprintf(&b, "Score %d/%d (%d%%) in %ds\n", result.Score, result.TotalQuestions, result.Summary.Percentage, result.TimeSpent)
	if result.Summary.DominantEmotion != "" {
		fmt.Fprintf(&b, "Dominant emotion %s, average faces %.2f\n", result.Summary.DominantEmotion, result.Summary.AverageFaceCount)
	}

	rows := make([][]string, 0, len(result.Answers))
	for i, answer := range result.Answers {
		prompt, snapshot := "", "-"
		if i < len(quiz.Questions) {
			q := quiz.Questions[i]
			prompt = q.Prompt
			if s, ok := result.QuestionEmotions[q.ID]; ok {
				snapshot = topEmotion(s.Emotions)
			}
		}
		choice := "-"
		if answer != domain.NoAnswer {
			choice = strconv.Itoa(int(answer))
		}
		correct := "no"
		if i < len(result.Summary.Correct) && result.Summary.Correct[i] {
			correct = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), prompt, choice, correct, snapshot})
	}
	b.WriteString(renderTable(
		[]string{"#", "Question", "Answer", "Correct", "Emotion"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return b.String()
}

func topEmotion(emotions map[string]float64) string {
	labels := make([]string, 0, len(emotions))
	for label := range emotions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	best, top := -1.0, "-"
	for _, label := range labels {
		if v := emotions[label]; v > best {
			best, top = v, label
		}
	}
	return top
}

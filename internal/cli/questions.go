package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"proctor-quiz-service/internal/config"
	"proctor-quiz-service/internal/domain"
)

// NewQuestionsCmd prints a question bank, or the available banks with --list.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "questions [quiz-id]",
		Short: "Show a question bank",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if list {
				ids, err := st.quizIDs(cmd.Context())
				if err != nil {
					return err
				}
				sort.Strings(ids)
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(ids, "\n"))
				return nil
			}

			quizID := defaultQuizID(cfg)
			if len(args) == 1 {
				quizID = args[0]
			}
			quiz, err := st.quizzes.GetQuiz(cmd.Context(), quizID)
			if err != nil {
				return fmt.Errorf("quiz %q: %w", quizID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderQuiz(quiz))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list available quiz ids")
	return cmd
}

func renderQuiz(quiz domain.Quiz) string {
	rows := make([][]string, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		options := make([]string, len(q.Options))
		for j, o := range q.Options {
			marker := " "
			if j == q.CorrectAnswer {
				marker = "*"
			}
			options[j] = fmt.Sprintf("%s%d. %s", marker, j, o)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			q.ID,
			q.Prompt,
			strings.Join(options, "\n"),
			fmt.Sprintf("%ds", q.TimeLimit),
		})
	}
	title := quiz.ID
	if quiz.Title != "" {
		title = quiz.Title + " (" + quiz.ID + ")"
	}
	return title + "\n" + renderTable(
		[]string{"#", "ID", "Question", "Options", "Limit"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

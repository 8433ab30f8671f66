package memory

import "proctor-quiz-service/internal/domain"

// SampleQuizID identifies the built-in question bank.
const SampleQuizID = "ai-fundamentals"

// SampleQuizzes is the built-in bank used when no database is configured.
func SampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		SampleQuizID: {
			ID:    SampleQuizID,
			Title: "AI Fundamentals",
			Questions: []domain.Question{
				{
					ID:     "1",
					Prompt: "What is the primary function of artificial intelligence?",
					Options: []string{
						"To replace human workers completely",
						"To simulate human intelligence in machines",
						"To create robots only",
						"To process data faster than humans",
					},
					CorrectAnswer: 1,
					TimeLimit:     30,
				},
				{
					ID:            "2",
					Prompt:        "Which programming language is most commonly used for machine learning?",
					Options:       []string{"JavaScript", "Python", "Java", "C++"},
					CorrectAnswer: 1,
					TimeLimit:     25,
				},
				{
					ID:     "3",
					Prompt: "What does 'supervised learning' mean in machine learning?",
					Options: []string{
						"Learning without human oversight",
						"Learning from labeled training data",
						"Learning only from text data",
						"Learning through trial and error only",
					},
					CorrectAnswer: 1,
					TimeLimit:     35,
				},
				{
					ID:     "4",
					Prompt: "Which of the following is NOT a type of neural network?",
					Options: []string{
						"Convolutional Neural Network (CNN)",
						"Recurrent Neural Network (RNN)",
						"Boolean Neural Network (BNN)",
						"Feedforward Neural Network",
					},
					CorrectAnswer: 2,
					TimeLimit:     30,
				},
				{
					ID:     "5",
					Prompt: "What is the purpose of data preprocessing in machine learning?",
					Options: []string{
						"To make data look better visually",
						"To reduce the amount of data",
						"To clean and prepare data for training",
						"To encrypt the data",
					},
					CorrectAnswer: 2,
					TimeLimit:     25,
				},
			},
		},
	}
}

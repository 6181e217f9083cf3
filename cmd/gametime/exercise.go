package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gametime/internal/exercise"
)

func newExerciseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Daily exercises that earn extra game time",
	}
	cmd.AddCommand(newExerciseListCommand())
	cmd.AddCommand(newExerciseAnswerCommand())
	cmd.AddCommand(newExerciseRegenerateCommand())
	return cmd
}

func newExerciseListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show today's questions and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			service, closeProvider, err := app.exerciseService()
			if err != nil {
				return err
			}
			defer closeProvider()

			attempts, err := service.DailyQuestions(cmd.Context())
			if err != nil {
				return fmt.Errorf("service.DailyQuestions() > %w", err)
			}

			for i, attempt := range attempts {
				marker := " "
				switch {
				case attempt.IsCorrect != nil && *attempt.IsCorrect:
					marker = color.GreenString("+")
				case attempt.IsCorrect != nil:
					marker = color.RedString("x")
				}
				fmt.Printf("%s %d. %s (worth %s)\n", marker, i+1, attempt.Question, formatMinutes(attempt.RewardMinutes))
			}

			completed, total, err := service.CompletedCount(cmd.Context())
			if err != nil {
				return fmt.Errorf("service.CompletedCount() > %w", err)
			}
			fmt.Printf("\n%d of %d answered.\n", completed, total)
			return nil
		},
	}
}

func newExerciseAnswerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "answer",
		Short: "Answer today's open questions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			service, closeProvider, err := app.exerciseService()
			if err != nil {
				return err
			}
			defer closeProvider()

			if _, err := service.DailyQuestions(cmd.Context()); err != nil {
				return fmt.Errorf("service.DailyQuestions() > %w", err)
			}

			reader := bufio.NewReader(os.Stdin)
			for {
				attempt, err := service.FirstUnanswered(cmd.Context())
				if err != nil {
					return fmt.Errorf("service.FirstUnanswered() > %w", err)
				}
				if attempt == nil {
					color.Green("All questions answered for today.")
					return nil
				}

				fmt.Printf("\n%s\n", attempt.Question)
				fmt.Print("> ")
				line, err := reader.ReadString('\n')
				if err != nil {
					fmt.Println()
					return nil
				}
				answer := strings.TrimSpace(line)
				if answer == "quit" || answer == "q" {
					return nil
				}

				result, err := service.Check(cmd.Context(), attempt.Question, answer)
				if errors.Is(err, exercise.ErrAnswerEmpty) {
					color.Yellow("Empty answer; try again or type quit.")
					continue
				}
				if errors.Is(err, exercise.ErrAlreadyAnswered) {
					color.Yellow("That question is already answered.")
					continue
				}
				if err != nil {
					return fmt.Errorf("service.Check() > %w", err)
				}

				if result.Correct {
					total, err := app.limiter.AddWeeklyExtraTime(cmd.Context(), result.RewardMinutes)
					if err != nil {
						return fmt.Errorf("limiter.AddWeeklyExtraTime() > %w", err)
					}
					color.Green("Correct! Earned %s of extra time (week total %s).",
						formatMinutes(result.RewardMinutes), formatMinutes(total))
				} else {
					color.Red("Not correct.")
					if result.Explanation != "" {
						fmt.Println(result.Explanation)
					}
				}
			}
		},
	}
}

func newExerciseRegenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Discard today's questions and generate a fresh batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			service, closeProvider, err := app.exerciseService()
			if err != nil {
				return err
			}
			defer closeProvider()

			attempts, err := service.Regenerate(cmd.Context())
			if err != nil {
				return fmt.Errorf("service.Regenerate() > %w", err)
			}

			color.Yellow("Generated %d fresh questions. Earned rewards from the old batch are gone.", len(attempts))
			return nil
		},
	}
}

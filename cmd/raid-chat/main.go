// Package main provides the raid-chat CLI.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "raid-chat",
		Short: "Raid Chat - conversational kabaddi analytics",
		Long: `Raid Chat answers natural-language questions about raid-by-raid
kabaddi statistics.

Run 'raid-chat ask "..."' for a one-shot question.
Run 'raid-chat chat' for an interactive session.
Run 'raid-chat --help' for available commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("db", "", "raid database path (overrides config)")
	rootCmd.PersistentFlags().StringP("server", "s", "", "talk to a running raid-chat-server instead of the local pipeline")

	rootCmd.AddCommand(
		askCmd(),
		chatCmd(),
		suggestCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question about the raid data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showQuery, _ := cmd.Flags().GetBool("show-query")

			backend, err := buildBackend(cmd)
			if err != nil {
				return err
			}
			defer backend.Close()

			question := strings.Join(args, " ")
			answer, err := backend.Ask(cmd.Context(), question, "")
			if err != nil {
				return err
			}

			fmt.Println(answer.Text)
			if showQuery && answer.Query != "" {
				fmt.Printf("\nquery: %s\n", answer.Query)
			}
			if len(answer.Suggestions) > 0 {
				fmt.Println("\nYou could also ask:")
				for _, s := range answer.Suggestions {
					fmt.Printf("  - %s\n", s)
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("show-query", false, "print the generated SQL query")

	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation. Follow-up questions can refer to
earlier answers ("what about PU?", "how many points did they score?").
Type 'exit' or press Ctrl-D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := buildBackend(cmd)
			if err != nil {
				return err
			}
			defer backend.Close()

			sessionID := uuid.NewString()
			fmt.Println("Ask me anything about the raid data. Type 'exit' to quit.")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}

				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					return nil
				}

				answer, err := backend.Ask(cmd.Context(), question, sessionID)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				fmt.Println(answer.Text)
				fmt.Println()
			}
		},
	}
}

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print suggested questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			team, _ := cmd.Flags().GetString("team")
			count, _ := cmd.Flags().GetInt("count")

			backend, err := buildBackend(cmd)
			if err != nil {
				return err
			}
			defer backend.Close()

			suggestions, err := backend.Suggest(cmd.Context(), "", team, count)
			if err != nil {
				return err
			}
			for _, s := range suggestions {
				fmt.Printf("  - %s\n", s)
			}
			return nil
		},
	}

	cmd.Flags().String("team", "", "bias suggestions toward a team code (e.g. PU)")
	cmd.Flags().IntP("count", "n", 5, "number of suggestions")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("raid-chat %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"wikirag/internal/menu"
	"wikirag/internal/tui"
	"wikirag/internal/vectorstore"
)

func (a *app) fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [topic...]",
		Short: "Download a Wikipedia article into the docs directory",
		Long: `Looks the topic up on Wikipedia and saves the plain-text article as
<docs-dir>/<topic>.txt. Words are joined into one topic; without arguments
the topic is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			if strings.TrimSpace(topic) == "" {
				var err error
				if topic, err = prompt(cmd, "Enter the Wikipedia topic to search: "); err != nil {
					return err
				}
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			rep, err := svc.FetchArticle(cmd.Context(), topic)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wikipedia content saved to %s\n", rep.Path)
			if rep.Title != "" && !strings.EqualFold(rep.Title, rep.Topic) {
				fmt.Fprintf(cmd.OutOrStdout(), "Resolved %q to %q\n", rep.Topic, rep.Title)
			}
			return nil
		},
	}
}

func (a *app) indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [file]",
		Short: "Chunk, embed and index a saved article",
		Long: `Builds the vector index from a file in the docs directory, replacing
any previous index. Without an argument the file name is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				var err error
				if name, err = prompt(cmd, "Enter filename (e.g., india.txt): "); err != nil {
					return err
				}
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			rep, err := svc.BuildIndex(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vector store saved successfully to %s (%d chunks, %d dims, %s)\n",
				rep.Dir, rep.Chunks, rep.Dimension, rep.Model)
			return nil
		},
	}
}

func (a *app) askCmd() *cobra.Command {
	var (
		question string
		useTUI   bool
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer questions from the current index",
		Long: `Loads the vector index and answers questions until "exit" or end of input.
--question answers once and returns. --tui opens the full-screen interface
when stdin is a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			asker, err := svc.OpenAsker(ctx)
			if err != nil {
				return err
			}
			defer asker.Close()

			if question != "" {
				ans, err := asker.Ask(ctx, question)
				if err != nil {
					return err
				}
				menu.PrintAnswer(cmd.OutOrStdout(), ans, a.sources)
				return nil
			}

			if useTUI {
				if a.isTerminal(cmd.InOrStdin()) {
					_, err := tea.NewProgram(tui.New(ctx, asker, subtitle(asker)), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
					return err
				}
				a.log.Warn().Msg("stdin is not a terminal, falling back to line mode")
			}
			return menu.AskLoop(ctx, asker, cmd.InOrStdin(), cmd.OutOrStdout(), a.sources, a.log)
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "answer a single question and exit")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "use the terminal UI")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			docs, err := svc.ListDocuments()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No saved articles.")
				return nil
			}
			for _, d := range docs {
				fmt.Fprintf(out, "%-40s %10d bytes  %s\n", d.Name, d.Size, d.ModTime.Format(time.DateTime))
			}
			return nil
		},
	}
}

func subtitle(asker menu.Asker) string {
	s, ok := asker.(interface{ Manifest() vectorstore.Manifest })
	if !ok {
		return ""
	}
	m := s.Manifest()
	return fmt.Sprintf("%s: %d chunks, %s, %s", m.Source, m.Chunks, m.EmbeddingModel, m.Backend)
}

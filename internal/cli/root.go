// Package cli is the cobra command tree for wikirag.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wikirag/internal/config"
	"wikirag/internal/logger"
	"wikirag/internal/menu"
	"wikirag/internal/service"
	"wikirag/internal/setup"
)

// Version is overridden at build time with -ldflags "-X wikirag/internal/cli.Version=...".
var Version = "dev"

// Service is everything the commands need from the RAG service.
type Service interface {
	menu.Service
	ListDocuments() ([]service.DocumentInfo, error)
}

// Builder turns a loaded config into a Service.
type Builder func(cfg *config.AppConfig, log zerolog.Logger) (Service, error)

// DefaultBuilder wires the real components.
func DefaultBuilder(cfg *config.AppConfig, log zerolog.Logger) (Service, error) {
	svc, err := setup.Wire(cfg, log)
	if err != nil {
		return nil, err
	}
	return ragService{Service: menu.FromService(svc), rag: svc}, nil
}

type ragService struct {
	menu.Service
	rag *service.RAGService
}

func (r ragService) ListDocuments() ([]service.DocumentInfo, error) {
	return r.rag.ListDocuments()
}

type app struct {
	build      Builder
	isTerminal func(io.Reader) bool

	configPath string
	verbose    bool
	docsDir    string
	indexDir   string
	sources    bool

	log zerolog.Logger
	svc Service
}

// Execute runs the command tree and prints a failure the same way the menu does.
func Execute(ctx context.Context) error {
	root := NewRootCommand(DefaultBuilder)
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(root.ErrOrStderr(), menu.Describe(err))
	}
	return err
}

// NewRootCommand builds the command tree. Without a subcommand it runs the menu.
func NewRootCommand(build Builder) *cobra.Command {
	a := &app{build: build, isTerminal: stdinIsTerminal, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "wikirag",
		Short: "Ask questions about a Wikipedia article",
		Long: `wikirag downloads a Wikipedia article, splits and embeds it into a local
vector index, and answers questions with retrieval-augmented generation.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.runMenu,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml or ~/.config/wikirag/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")
	pf.StringVar(&a.docsDir, "docs-dir", "", "directory for saved articles (overrides config)")
	pf.StringVar(&a.indexDir, "index-dir", "", "directory for the vector index (overrides config)")
	pf.BoolVar(&a.sources, "sources", false, "print retrieved passages with each answer")

	root.AddCommand(a.menuCmd())
	root.AddCommand(a.fetchCmd())
	root.AddCommand(a.indexCmd())
	root.AddCommand(a.askCmd())
	root.AddCommand(a.listCmd())
	root.AddCommand(versionCmd())
	return root
}

// service loads the config and builds the service on first use.
func (a *app) service(cmd *cobra.Command) (Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	var (
		cfg  *config.AppConfig
		path = a.configPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.docsDir != "" {
		cfg.Paths.DocsDir = a.docsDir
	}
	if a.indexDir != "" {
		cfg.Paths.IndexDir = a.indexDir
	}

	if a.verbose {
		a.log = logger.Verbose(cmd.ErrOrStderr())
	} else {
		a.log = logger.New(cfg.Log.Level, cmd.ErrOrStderr())
	}
	a.log.Debug().
		Str("config", path).
		Str("embedder", cfg.Embedder.Type).
		Str("store", cfg.VectorStore.Type).
		Str("generator", cfg.Generator.Type).
		Msg("configuration loaded")

	svc, err := a.build(cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Run the numbered console menu",
		Args:  cobra.NoArgs,
		RunE:  a.runMenu,
	}
}

func (a *app) runMenu(cmd *cobra.Command, _ []string) error {
	svc, err := a.service(cmd)
	if err != nil {
		return err
	}
	m := menu.New(svc, cmd.InOrStdin(), cmd.OutOrStdout(), a.log, menu.WithSources(a.sources))
	return m.Run(cmd.Context())
}

// prompt prints label and reads one trimmed line from the command input.
func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func stdinIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wikirag version %s\n", Version)
		},
	}
}

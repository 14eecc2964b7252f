package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikirag/internal/config"
	"wikirag/internal/domain"
	"wikirag/internal/menu"
	"wikirag/internal/service"
)

// MockService implements Service for testing.
type MockService struct {
	FetchFunc func(ctx context.Context, topic string) (service.FetchReport, error)
	IndexFunc func(ctx context.Context, name string) (service.IndexReport, error)
	Asker     *MockAsker
	Docs      []service.DocumentInfo
}

func (m *MockService) FetchArticle(ctx context.Context, topic string) (service.FetchReport, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, topic)
	}
	return service.FetchReport{Topic: topic, Title: topic, Path: "docs/" + topic + ".txt"}, nil
}

func (m *MockService) BuildIndex(ctx context.Context, name string) (service.IndexReport, error) {
	if m.IndexFunc != nil {
		return m.IndexFunc(ctx, name)
	}
	return service.IndexReport{Source: name, Chunks: 3, Dimension: 64, Model: "hashing-64", Dir: "embeddings"}, nil
}

func (m *MockService) OpenAsker(context.Context) (menu.Asker, error) {
	if m.Asker == nil {
		return nil, domain.ErrIndexNotFound
	}
	return m.Asker, nil
}

func (m *MockService) ListDocuments() ([]service.DocumentInfo, error) {
	return m.Docs, nil
}

// MockAsker implements menu.Asker for testing.
type MockAsker struct {
	Questions []string
	Closed    bool
}

func (m *MockAsker) Ask(_ context.Context, q string) (domain.Answer, error) {
	m.Questions = append(m.Questions, q)
	return domain.Answer{
		Question: q,
		Text:     "answer to " + q,
		Sources:  []domain.SearchResult{{Chunk: domain.Chunk{ChunkID: "india:0", Text: "India is a country."}, Score: 0.9}},
	}, nil
}

func (m *MockAsker) Close() error {
	m.Closed = true
	return nil
}

type result struct {
	out string
	err error
	cfg *config.AppConfig
}

func execute(t *testing.T, svc *MockService, input string, args ...string) result {
	t.Helper()
	var res result
	build := func(cfg *config.AppConfig, _ zerolog.Logger) (Service, error) {
		res.cfg = cfg
		return svc, nil
	}
	cmd := NewRootCommand(build)
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))

	res.err = cmd.Execute()
	res.out = out.String()
	return res
}

func TestVersion_DoesNotBuildService(t *testing.T) {
	cmd := NewRootCommand(func(*config.AppConfig, zerolog.Logger) (Service, error) {
		return nil, errors.New("should not be called")
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "wikirag version dev\n", out.String())
}

func TestRoot_RunsMenuWithoutSubcommand(t *testing.T) {
	res := execute(t, &MockService{}, "4\n")

	require.NoError(t, res.err)
	assert.Contains(t, res.out, "=== Wikipedia RAG QA ===")
	assert.Contains(t, res.out, "Enter your choice (1/2/3/4): ")
}

func TestRoot_SourcesFlagReachesMenu(t *testing.T) {
	asker := &MockAsker{}

	res := execute(t, &MockService{Asker: asker}, "3\nWhat is India?\nexit\n4\n", "--sources")

	require.NoError(t, res.err)
	assert.Equal(t, []string{"What is India?"}, asker.Questions)
	assert.Contains(t, res.out, "[1] india:0 (score 0.900)")
}

func TestRoot_DirectoryFlagsOverrideConfig(t *testing.T) {
	res := execute(t, &MockService{}, "", "list", "--docs-dir", "articles", "--index-dir", "idx")

	require.NoError(t, res.err)
	require.NotNil(t, res.cfg)
	assert.Equal(t, "articles", res.cfg.Paths.DocsDir)
	assert.Equal(t, "idx", res.cfg.Paths.IndexDir)
}

func TestFetch_JoinsArguments(t *testing.T) {
	var got string
	svc := &MockService{FetchFunc: func(_ context.Context, topic string) (service.FetchReport, error) {
		got = topic
		return service.FetchReport{Topic: topic, Title: "Alan Turing", Path: "docs/alanturing.txt"}, nil
	}}

	res := execute(t, svc, "", "fetch", "Alan", "Turing")

	require.NoError(t, res.err)
	assert.Equal(t, "Alan Turing", got)
	assert.Contains(t, res.out, "Wikipedia content saved to docs/alanturing.txt")
	assert.NotContains(t, res.out, "Resolved")
}

func TestFetch_PromptsForTopic(t *testing.T) {
	var got string
	svc := &MockService{FetchFunc: func(_ context.Context, topic string) (service.FetchReport, error) {
		got = topic
		return service.FetchReport{Topic: topic, Title: "India", Path: "docs/indai.txt"}, nil
	}}

	res := execute(t, svc, "indai\n", "fetch")

	require.NoError(t, res.err)
	assert.Equal(t, "indai", got)
	assert.Contains(t, res.out, "Enter the Wikipedia topic to search: ")
	assert.Contains(t, res.out, `Resolved "indai" to "India"`)
}

func TestFetch_ReturnsDisambiguation(t *testing.T) {
	svc := &MockService{FetchFunc: func(_ context.Context, topic string) (service.FetchReport, error) {
		return service.FetchReport{}, &domain.DisambiguationError{Topic: topic, Options: []string{"Mercury (planet)"}}
	}}

	res := execute(t, svc, "", "fetch", "Mercury")

	var de *domain.DisambiguationError
	require.ErrorAs(t, res.err, &de)
	assert.NotContains(t, res.out, "saved")
}

func TestIndex_WithArgument(t *testing.T) {
	res := execute(t, &MockService{}, "", "index", "india.txt")

	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Vector store saved successfully to embeddings (3 chunks, 64 dims, hashing-64)")
}

func TestIndex_PromptsAndReportsMissingFile(t *testing.T) {
	var got string
	svc := &MockService{IndexFunc: func(_ context.Context, name string) (service.IndexReport, error) {
		got = name
		return service.IndexReport{}, domain.ErrDocumentNotFound
	}}

	res := execute(t, svc, "nope.txt\n", "index")

	assert.Equal(t, "nope.txt", got)
	assert.ErrorIs(t, res.err, domain.ErrDocumentNotFound)
}

func TestIndex_RejectsExtraArguments(t *testing.T) {
	res := execute(t, &MockService{}, "", "index", "a.txt", "b.txt")
	assert.Error(t, res.err)
}

func TestAsk_SingleQuestion(t *testing.T) {
	asker := &MockAsker{}

	res := execute(t, &MockService{Asker: asker}, "", "ask", "--question", "What is India?", "--sources")

	require.NoError(t, res.err)
	assert.Equal(t, []string{"What is India?"}, asker.Questions)
	assert.True(t, asker.Closed)
	assert.Contains(t, res.out, "answer to What is India?")
	assert.Contains(t, res.out, "[1] india:0 (score 0.900)")
}

func TestAsk_LoopUntilExit(t *testing.T) {
	asker := &MockAsker{}

	res := execute(t, &MockService{Asker: asker}, "first\n\nsecond\nEXIT\nignored\n", "ask")

	require.NoError(t, res.err)
	assert.Equal(t, []string{"first", "second"}, asker.Questions)
	assert.NotContains(t, res.out, "india:0")
}

func TestAsk_TUIFallsBackWithoutTerminal(t *testing.T) {
	asker := &MockAsker{}

	res := execute(t, &MockService{Asker: asker}, "hello\nexit\n", "ask", "--tui")

	require.NoError(t, res.err)
	assert.Equal(t, []string{"hello"}, asker.Questions)
}

func TestAsk_NoIndex(t *testing.T) {
	res := execute(t, &MockService{}, "", "ask")

	assert.ErrorIs(t, res.err, domain.ErrIndexNotFound)
	assert.Equal(t, "Could not load vector store. Did you run Option 2 first?", menu.Describe(res.err))
}

func TestList(t *testing.T) {
	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &MockService{Docs: []service.DocumentInfo{
		{Name: "india.txt", Size: 1200, ModTime: mod},
		{Name: "python.txt", Size: 800, ModTime: mod},
	}}

	res := execute(t, svc, "", "list")

	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "india.txt"))
	assert.Contains(t, lines[0], "1200 bytes")
	assert.Contains(t, lines[1], "2024-05-01 12:00:00")
}

func TestList_Empty(t *testing.T) {
	res := execute(t, &MockService{}, "", "list")

	require.NoError(t, res.err)
	assert.Equal(t, "No saved articles.\n", res.out)
}

func TestConfig_InvalidFile(t *testing.T) {
	cmd := NewRootCommand(func(*config.AppConfig, zerolog.Logger) (Service, error) {
		return &MockService{}, nil
	})
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeFile(path, "embedder:\n  type: word2vec\n"))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", path, "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedder")
}

func writeFile(path, data string) error {
	return os.WriteFile(path, []byte(data), 0o644)
}

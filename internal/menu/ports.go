package menu

import (
	"context"

	"wikirag/internal/domain"
	"wikirag/internal/service"
)

// Service is the part of service.RAGService the console drives.
type Service interface {
	FetchArticle(ctx context.Context, topic string) (service.FetchReport, error)
	BuildIndex(ctx context.Context, name string) (service.IndexReport, error)
	OpenAsker(ctx context.Context) (Asker, error)
}

// Asker answers questions against an open index.
type Asker interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
	Close() error
}

// FromService adapts a RAGService to Service.
func FromService(svc *service.RAGService) Service {
	return ragService{svc}
}

type ragService struct {
	*service.RAGService
}

func (r ragService) OpenAsker(ctx context.Context) (Asker, error) {
	sess, err := r.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

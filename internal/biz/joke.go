package biz

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	// JokeServiceName identifies the joke API in logs, metrics and circuits.
	JokeServiceName = "icanhazdadjoke"

	MaxJokeLength  = 1000
	MaxSearchLimit = 30
)

// JokeRecord is one parsed joke.
type JokeRecord struct {
	ID     string
	Text   string
	Status int
}

// JokeRepo fetches jokes. Implementations return *DomainError.
type JokeRepo interface {
	Random(ctx context.Context) (*JokeRecord, error)
	ByID(ctx context.Context, id string) (*JokeRecord, error)
	Search(ctx context.Context, term string, limit int) ([]*JokeRecord, error)
}

// JokeUseCase validates joke queries and delegates to the repository.
type JokeUseCase struct {
	repo   JokeRepo
	logger *log.Helper
}

// NewJokeUseCase creates a new joke use case.
func NewJokeUseCase(repo JokeRepo, logger log.Logger) *JokeUseCase {
	return &JokeUseCase{
		repo:   repo,
		logger: log.NewHelper(log.With(logger, "module", "biz/joke")),
	}
}

// IsAvailable is always true: the joke API needs no credential.
func (uc *JokeUseCase) IsAvailable() bool {
	return true
}

// GetRandomJoke returns a random joke.
func (uc *JokeUseCase) GetRandomJoke(ctx context.Context) (*JokeRecord, error) {
	joke, err := uc.repo.Random(ctx)
	if err != nil {
		return nil, err
	}
	uc.logger.Infow("msg", "joke retrieved", "joke_id", joke.ID)
	return joke, nil
}

// GetJokeByID returns the joke with the given id.
func (uc *JokeUseCase) GetJokeByID(ctx context.Context, id string) (*JokeRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewDomainError(KindValidation, ReasonValidation, "Invalid joke ID", JokeServiceName)
	}
	return uc.repo.ByID(ctx, id)
}

// SearchJokes returns up to limit jokes containing term.
func (uc *JokeUseCase) SearchJokes(ctx context.Context, term string, limit int) ([]*JokeRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, NewDomainError(KindValidation, ReasonValidation, "Search term cannot be empty", JokeServiceName)
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, NewDomainError(KindValidation, ReasonValidation, "Limit must be between 1 and 30", JokeServiceName)
	}
	jokes, err := uc.repo.Search(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	uc.logger.Infow("msg", "joke search finished", "term", term, "results", len(jokes))
	return jokes, nil
}

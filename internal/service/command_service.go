package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"RelayBot/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// CommandRequest is the webhook payload for one command.
type CommandRequest struct {
	Command   string   `json:"command"`
	UserID    int64    `json:"user_id"`
	Username  string   `json:"username,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	Args      []string `json:"args,omitempty"`
}

// Reply is one message the transport should deliver.
type Reply struct {
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// CommandResponse carries the replies produced by a command.
type CommandResponse struct {
	Outcome string  `json:"outcome"`
	Replies []Reply `json:"replies"`
}

// HealthResponse reports service availability.
type HealthResponse struct {
	Status           string   `json:"status"`
	WeatherAvailable bool     `json:"weather_available"`
	JokeAvailable    bool     `json:"joke_available"`
	OpenCircuits     []string `json:"open_circuits"`
}

// CommandService exposes the dispatcher to the HTTP transport. The transport
// collects replies and delivers them to the chat platform.
type CommandService struct {
	dispatcher *Dispatcher
	breaker    *httpclient.CircuitBreaker
	logger     *log.Helper
}

// NewCommandService creates a new CommandService.
func NewCommandService(dispatcher *Dispatcher, breaker *httpclient.CircuitBreaker, logger log.Logger) *CommandService {
	return &CommandService{
		dispatcher: dispatcher,
		breaker:    breaker,
		logger:     log.NewHelper(log.With(logger, "module", "service/command")),
	}
}

// Dispatch runs one command and returns its replies.
func (s *CommandService) Dispatch(ctx context.Context, req *CommandRequest) (*CommandResponse, error) {
	name := strings.TrimPrefix(strings.TrimSpace(req.Command), "/")
	if name == "" {
		return nil, errors.BadRequest("INVALID_COMMAND", "command is required")
	}
	s.logger.Debugw("msg", "Dispatch called", "command", name, "user_id", req.UserID)

	var (
		mu      sync.Mutex
		replies = make([]Reply, 0, 1)
	)
	reply := func(_ context.Context, text string, mode ParseMode) error {
		mu.Lock()
		defer mu.Unlock()
		replies = append(replies, Reply{Text: text, ParseMode: string(mode)})
		return nil
	}

	outcome := s.dispatcher.Handle(ctx, Command{
		Name:      name,
		UserID:    req.UserID,
		Username:  req.Username,
		FirstName: req.FirstName,
		Args:      req.Args,
	}, reply)

	mu.Lock()
	defer mu.Unlock()
	return &CommandResponse{Outcome: string(outcome), Replies: replies}, nil
}

// Health reports credential availability and the circuits currently open.
func (s *CommandService) Health(ctx context.Context) (*HealthResponse, error) {
	open, err := s.breaker.OpenCircuits(ctx)
	if err != nil {
		s.logger.Warnw("msg", "failed to list open circuits", "error", err)
		open = []string{}
	}
	sort.Strings(open)

	status := "ok"
	if len(open) > 0 {
		status = "degraded"
	}
	return &HealthResponse{
		Status:           status,
		WeatherAvailable: s.dispatcher.WeatherAvailable(),
		JokeAvailable:    s.dispatcher.JokeAvailable(),
		OpenCircuits:     open,
	}, nil
}

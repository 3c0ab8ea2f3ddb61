package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"RelayBot/internal/biz"
	"RelayBot/internal/metrics"
	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// State is a step of one command invocation. Every invocation that passes
// the identity check walks the states in order and always ends in StateDone.
type State int

const (
	StateReceived State = iota
	StateRateChecked
	StatePreProcessed
	StateExecuted
	StatePostProcessed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateRateChecked:
		return "rate_checked"
	case StatePreProcessed:
		return "pre_processed"
	case StateExecuted:
		return "executed"
	case StatePostProcessed:
		return "post_processed"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome summarizes how an invocation ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeFailed      Outcome = "failed"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeIgnored     Outcome = "ignored"
)

// ParseMode selects how the chat transport renders a reply.
type ParseMode string

const (
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
	ParseModePlain      ParseMode = ""
)

// Command is one inbound command invocation.
type Command struct {
	Name      string
	UserID    int64
	Username  string
	FirstName string
	Args      []string
}

// ReplyFunc delivers text to the invoking user.
type ReplyFunc func(ctx context.Context, text string, mode ParseMode) error

// Hook runs around command execution. Hooks only log.
type Hook func(ctx context.Context, cmd *Command)

// replyError is a failure already expressed as a reply category.
type replyError struct {
	category string
	details  string
}

func (e *replyError) Error() string {
	if e.details == "" {
		return e.category
	}
	return e.category + ": " + e.details
}

// route binds a command name to its handler.
type route struct {
	run    func(ctx context.Context, cmd *Command) (string, error)
	mapErr func(de *biz.DomainError) *replyError
	pre    Hook
	post   Hook
}

var unknownCommand = &route{
	run: func(context.Context, *Command) (string, error) {
		return "", &replyError{category: CategoryGeneral, details: "Unknown command"}
	},
}

// Dispatcher runs commands through rate limiting, execution and reply
// delivery. It is safe for concurrent use.
type Dispatcher struct {
	limiter *biz.RateLimiterUseCase
	weather *biz.WeatherUseCase
	jokes   *biz.JokeUseCase
	routes  map[string]*route
	logger  *pkglog.LogHelper

	// base is cancelled by Close to stop in-flight invocations
	base   context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with every command registered.
func NewDispatcher(limiter *biz.RateLimiterUseCase, weather *biz.WeatherUseCase, jokes *biz.JokeUseCase, logger log.Logger) (*Dispatcher, func()) {
	base, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		limiter: limiter,
		weather: weather,
		jokes:   jokes,
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "service/dispatcher")),
		base:    base,
		cancel:  cancel,
	}
	d.routes = d.commandRoutes()
	return d, d.Close
}

// Commands lists the registered command names.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	return names
}

// WeatherAvailable reports whether the weather credential is configured.
func (d *Dispatcher) WeatherAvailable() bool {
	return d.weather.IsAvailable()
}

// JokeAvailable reports whether the joke service can be used.
func (d *Dispatcher) JokeAvailable() bool {
	return d.jokes.IsAvailable()
}

// Close cancels in-flight invocations and waits for them to finish.
// Outbound calls stop at their next retry boundary.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// Handle runs one command invocation and delivers its replies through reply.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command, reply ReplyFunc) Outcome {
	if cmd.UserID <= 0 {
		d.logger.Warnw("msg", "command without valid user identity ignored", "command", cmd.Name, "user_id", cmd.UserID)
		return OutcomeIgnored
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.logger.Warnw("msg", "dispatcher closed, command dropped", "command", cmd.Name, "user_id", cmd.UserID)
		return OutcomeIgnored
	}
	d.wg.Add(1)
	d.mu.RUnlock()
	defer d.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(d.base, cancel)
	defer stop()

	requestID := pkglog.GetRequestID(ctx)
	if requestID == "unknown" {
		requestID = pkglog.GenerateRequestID()
	}
	ctx = pkglog.WithRequestContext(ctx, requestID, cmd.UserID, cmd.Name)
	start := time.Now()

	outcome := d.run(ctx, &cmd, reply)

	d.logger.Command(ctx, string(outcome), "username", cmd.Username, "args", len(cmd.Args))
	metrics.ObserveCommand(cmd.Name, string(outcome), time.Since(start))
	return outcome
}

func (d *Dispatcher) run(ctx context.Context, cmd *Command, reply ReplyFunc) Outcome {
	state := StateReceived
	advance := func(next State) {
		d.logger.Debugw("msg", "command state transition", "command", cmd.Name, "from", state.String(), "to", next.String())
		state = next
	}
	defer advance(StateDone)

	allowed := d.limiter.CheckAndRecord(ctx, cmd.UserID)
	advance(StateRateChecked)
	if !allowed {
		metrics.RateLimited()
		d.send(ctx, reply, FormatError(CategoryGeneral, RateLimitDetails))
		return OutcomeRateLimited
	}

	r, ok := d.routes[cmd.Name]
	if !ok {
		r = unknownCommand
	}

	d.logger.Infow("msg", formatUserAction(cmd), "command", cmd.Name, "user_id", cmd.UserID)
	if r.pre != nil {
		r.pre(ctx, cmd)
	}
	advance(StatePreProcessed)

	text, err := d.execute(ctx, r, cmd)
	advance(StateExecuted)

	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
		text = d.errorReply(ctx, cmd, r, err)
	}
	d.send(ctx, reply, text)

	if r.post != nil {
		r.post(ctx, cmd)
	}
	advance(StatePostProcessed)

	return outcome
}

// execute runs the handler, converting a panic into an error.
func (d *Dispatcher) execute(ctx context.Context, r *route, cmd *Command) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.Name, p)
		}
	}()
	return r.run(ctx, cmd)
}

// errorReply maps err to the reply text for cmd.
func (d *Dispatcher) errorReply(ctx context.Context, cmd *Command, r *route, err error) string {
	var re *replyError
	if errors.As(err, &re) {
		return FormatError(re.category, re.details)
	}

	if de, ok := biz.AsDomainError(err); ok {
		d.logger.Warnw("msg", "command failed", "request_id", pkglog.GetRequestID(ctx), "command", cmd.Name, "error", de.Error())
		if r.mapErr != nil {
			if re := r.mapErr(de); re != nil {
				return FormatError(re.category, re.details)
			}
		}
		return FormatError(CategoryGeneral, "")
	}

	d.logger.Errorw("msg", "unexpected command error", "request_id", pkglog.GetRequestID(ctx), "command", cmd.Name, "error", err)
	return FormatError(CategoryGeneral, "")
}

// send delivers text as MarkdownV2 and falls back to one plain notice.
func (d *Dispatcher) send(ctx context.Context, reply ReplyFunc, text string) {
	err := reply(ctx, TruncateMessage(text, MaxMessageLength), ParseModeMarkdownV2)
	if err == nil {
		return
	}
	metrics.ReplyFailed("formatted")
	d.logger.Delivery(ctx, "failed to send message", "error", err)

	if err := reply(ctx, FallbackNotice, ParseModePlain); err != nil {
		metrics.ReplyFailed("fallback")
		d.logger.Delivery(ctx, "fallback message also failed", "error", err)
	}
}

func formatUserAction(cmd *Command) string {
	who := fmt.Sprintf("ID:%d", cmd.UserID)
	if cmd.Username != "" {
		who = "@" + cmd.Username
	}
	return fmt.Sprintf("User %s - /%s", who, cmd.Name)
}

// sanitizeArgs cleans each argument and drops the empty ones.
func sanitizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if clean := biz.SanitizeInput(arg); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

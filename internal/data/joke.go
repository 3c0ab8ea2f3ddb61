package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"RelayBot/internal/biz"
	"RelayBot/internal/conf"
	"RelayBot/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
)

var jokeHeaders = map[string]string{"Accept": "application/json"}

type jokeRepo struct {
	client  *httpclient.Client
	baseURL string
	logger  *log.Helper
}

// NewJokeRepo creates the icanhazdadjoke repository.
func NewJokeRepo(client *httpclient.Client, c *conf.Clients, logger log.Logger) biz.JokeRepo {
	r := &jokeRepo{
		client: client,
		logger: log.NewHelper(log.With(logger, "module", "data/joke")),
	}
	if c != nil && c.Joke != nil {
		r.baseURL = strings.TrimSuffix(c.Joke.BaseURL, "/")
	}
	return r
}

func (r *jokeRepo) Random(ctx context.Context) (*biz.JokeRecord, error) {
	resp, err := r.get(ctx, r.baseURL+"/", nil)
	if err != nil {
		return nil, r.mapError(err, "Joke service error occurred")
	}
	return parseJoke(resp.Body)
}

func (r *jokeRepo) ByID(ctx context.Context, id string) (*biz.JokeRecord, error) {
	resp, err := r.get(ctx, r.baseURL+"/j/"+url.PathEscape(id), nil)
	if err != nil {
		if te, ok := httpclient.AsTransportError(err); ok && te.Kind == httpclient.KindNotFound {
			return nil, biz.NewDomainError(biz.KindNotFound, biz.ReasonJokeNotFound,
				fmt.Sprintf("Joke %s not found", id), biz.JokeServiceName)
		}
		return nil, r.mapError(err, "Specific joke retrieval failed")
	}
	return parseJoke(resp.Body)
}

func (r *jokeRepo) Search(ctx context.Context, term string, limit int) ([]*biz.JokeRecord, error) {
	resp, err := r.get(ctx, r.baseURL+"/search", map[string]string{
		"term":  term,
		"limit": strconv.Itoa(limit),
	})
	if err != nil {
		r.logger.Warnw("msg", "joke search failed", "term", term, "error", err)
		return nil, biz.NewDomainError(biz.KindInternal, biz.ReasonSearch, "Joke search failed", biz.JokeServiceName)
	}

	raw, _ := resp.Body["results"].([]any)
	jokes := make([]*biz.JokeRecord, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		joke, err := parseJoke(obj)
		if err != nil {
			continue
		}
		jokes = append(jokes, joke)
	}
	return jokes, nil
}

func (r *jokeRepo) get(ctx context.Context, target string, query map[string]string) (*httpclient.Response, error) {
	return r.client.Get(ctx, httpclient.Request{
		URL:     target,
		Query:   query,
		Header:  jokeHeaders,
		Service: biz.JokeServiceName,
	})
}

func (r *jokeRepo) mapError(err error, message string) error {
	if te, ok := httpclient.AsTransportError(err); ok && te.StatusCode >= http.StatusInternalServerError {
		return biz.NewDomainError(biz.KindUnavailable, biz.ReasonServiceUnavailable,
			"Joke service temporarily unavailable", biz.JokeServiceName)
	}
	r.logger.Warnw("msg", "joke request failed", "error", err)
	return biz.NewDomainError(biz.KindInternal, biz.ReasonAPI, message, biz.JokeServiceName)
}

// parseJoke builds a JokeRecord from one joke object.
func parseJoke(body map[string]any) (*biz.JokeRecord, error) {
	rec := &biz.JokeRecord{ID: "unknown", Status: http.StatusOK}

	if id, ok := body["id"].(string); ok && id != "" {
		rec.ID = id
	}
	if status, err := lookupInt(body, "status"); err == nil {
		rec.Status = status
	}

	text, _ := body["joke"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, biz.NewDomainError(biz.KindInternal, biz.ReasonEmptyJoke, "Empty joke received", biz.JokeServiceName)
	}
	if runes := []rune(text); len(runes) > biz.MaxJokeLength {
		text = string(runes[:biz.MaxJokeLength-3]) + "..."
	}
	rec.Text = text

	return rec, nil
}

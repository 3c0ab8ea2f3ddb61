package service

import (
	"context"
	"fmt"
	"strconv"

	"RelayBot/internal/biz"
)

// Command names.
const (
	CommandStart      = "start"
	CommandHelp       = "help"
	CommandWeather    = "weather"
	CommandWeatherAt  = "weather_at"
	CommandJoke       = "joke"
	CommandJokeSearch = "joke_search"
)

// JokeSearchLimit is how many results /joke_search shows.
const JokeSearchLimit = 5

func (d *Dispatcher) commandRoutes() map[string]*route {
	return map[string]*route{
		CommandStart: {
			run: d.runStart,
			pre: d.logArgs,
		},
		CommandHelp: {
			run: d.runHelp,
		},
		CommandWeather: {
			run:    d.runWeather,
			mapErr: weatherErrorCategory,
			pre:    d.weatherPre,
			post:   d.logCompleted,
		},
		CommandWeatherAt: {
			run:    d.runWeatherAt,
			mapErr: weatherErrorCategory,
			pre:    d.weatherPre,
			post:   d.logCompleted,
		},
		CommandJoke: {
			run:    d.runJoke,
			mapErr: jokeErrorCategory,
			post:   d.logCompleted,
		},
		CommandJokeSearch: {
			run:    d.runJokeSearch,
			mapErr: jokeSearchErrorCategory,
			pre:    d.logArgs,
			post:   d.logCompleted,
		},
	}
}

func (d *Dispatcher) runStart(_ context.Context, cmd *Command) (string, error) {
	name := cmd.FirstName
	if name == "" {
		name = cmd.Username
	}
	if name == "" {
		name = "User"
	}
	return FormatWelcome(name), nil
}

func (d *Dispatcher) runHelp(context.Context, *Command) (string, error) {
	return FormatHelp(), nil
}

func (d *Dispatcher) runWeather(ctx context.Context, cmd *Command) (string, error) {
	args := sanitizeArgs(cmd.Args)
	if len(args) == 0 {
		return FormatUsage(CommandWeather, "/weather <city>", "Get current weather data for specified city"), nil
	}

	rec, err := d.weather.GetCurrentWeather(ctx, joinArgs(args))
	if err != nil {
		return "", err
	}
	return FormatWeatherReport(rec), nil
}

func (d *Dispatcher) runWeatherAt(ctx context.Context, cmd *Command) (string, error) {
	args := sanitizeArgs(cmd.Args)
	if len(args) == 0 {
		return FormatUsage(CommandWeatherAt, "/weather_at <lat> <lon>", "Get current weather data for coordinates"), nil
	}
	if msg := biz.ValidateArgs(args, 2, 2); msg != "" {
		return "", &replyError{category: CategoryInvalidInput, details: msg}
	}

	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "", &replyError{category: CategoryInvalidInput, details: "Latitude must be a number"}
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return "", &replyError{category: CategoryInvalidInput, details: "Longitude must be a number"}
	}

	rec, err := d.weather.GetWeatherByCoordinates(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	return FormatWeatherReport(rec), nil
}

// runJoke returns a random joke, or the joke with the given id.
func (d *Dispatcher) runJoke(ctx context.Context, cmd *Command) (string, error) {
	var (
		joke *biz.JokeRecord
		err  error
	)
	if args := sanitizeArgs(cmd.Args); len(args) > 0 {
		joke, err = d.jokes.GetJokeByID(ctx, args[0])
	} else {
		joke, err = d.jokes.GetRandomJoke(ctx)
	}
	if err != nil {
		return "", err
	}
	return FormatJoke(joke.Text), nil
}

func (d *Dispatcher) runJokeSearch(ctx context.Context, cmd *Command) (string, error) {
	args := sanitizeArgs(cmd.Args)
	if len(args) == 0 {
		return FormatUsage(CommandJokeSearch, "/joke_search <keyword>", "Search for jokes containing specific keyword"), nil
	}

	term := joinArgs(args)
	jokes, err := d.jokes.SearchJokes(ctx, term, JokeSearchLimit)
	if err != nil {
		return "", err
	}
	if len(jokes) == 0 {
		return "", &replyError{category: CategoryGeneral, details: fmt.Sprintf("No jokes found for '%s'", term)}
	}
	return FormatJokeSearch(term, jokes), nil
}

func weatherErrorCategory(de *biz.DomainError) *replyError {
	switch de.Kind {
	case biz.KindValidation:
		return &replyError{category: CategoryInvalidInput, details: de.Message}
	case biz.KindNotFound:
		return &replyError{category: CategoryCityNotFound}
	case biz.KindUnavailable, biz.KindAuth:
		return &replyError{category: CategoryAPIUnavailable}
	}
	if de.Reason == biz.ReasonConfiguration {
		return &replyError{category: CategoryAPIUnavailable, details: de.Message}
	}
	return &replyError{category: CategoryGeneral}
}

func jokeErrorCategory(de *biz.DomainError) *replyError {
	switch {
	case de.Kind == biz.KindValidation:
		return &replyError{category: CategoryInvalidInput, details: de.Message}
	case de.Kind == biz.KindNotFound:
		return &replyError{category: CategoryGeneral, details: de.Message}
	case de.Kind == biz.KindUnavailable, de.Reason == biz.ReasonAPI:
		return &replyError{category: CategoryAPIUnavailable}
	}
	return &replyError{category: CategoryGeneral}
}

func jokeSearchErrorCategory(de *biz.DomainError) *replyError {
	if de.Kind == biz.KindValidation {
		return &replyError{category: CategoryInvalidInput, details: de.Message}
	}
	return &replyError{category: CategoryAPIUnavailable}
}

func (d *Dispatcher) logArgs(_ context.Context, cmd *Command) {
	if len(cmd.Args) > 0 {
		d.logger.Infof("/%s invoked by user %d with %d args", cmd.Name, cmd.UserID, len(cmd.Args))
	}
}

func (d *Dispatcher) weatherPre(ctx context.Context, cmd *Command) {
	query := joinArgs(cmd.Args)
	if query == "" {
		query = "no_city"
	}
	d.logger.Infof("Weather request from user %d for: %s", cmd.UserID, query)
	if !d.weather.IsAvailable() {
		d.logger.Warn("Weather service unavailable - API key not configured")
	}
}

func (d *Dispatcher) logCompleted(_ context.Context, cmd *Command) {
	d.logger.Debugf("/%s completed for user %d", cmd.Name, cmd.UserID)
}

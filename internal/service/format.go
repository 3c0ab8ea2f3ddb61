package service

import (
	"fmt"
	"strconv"
	"strings"

	"RelayBot/internal/biz"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Reply categories for failed commands.
const (
	CategoryAPIUnavailable = "api_unavailable"
	CategoryInvalidInput   = "invalid_input"
	CategoryCityNotFound   = "city_not_found"
	CategoryGeneral        = "general"
)

const (
	// MaxMessageLength is the longest reply sent, in characters.
	MaxMessageLength = 4000

	// FallbackNotice is sent without formatting when a formatted reply fails.
	FallbackNotice = "⚠️ Response formatting error - message sent in plain text"

	RateLimitDetails = "Rate limit exceeded - please wait before sending more commands"
)

const (
	emojiRobot       = "🤖"
	emojiThermometer = "🌡️"
	emojiLocation    = "📍"
	emojiHumidity    = "💧"
	emojiCloud       = "☁️"
	emojiLaugh       = "😄"
	emojiError       = "❌"
	emojiWarning     = "⚠️"
	emojiPressure    = "📊"
	emojiSearch      = "🔍"
)

var conditionEmojis = map[string]string{
	"clear":        "☀️",
	"clouds":       "☁️",
	"rain":         "🌧️",
	"drizzle":      "🌦️",
	"thunderstorm": "⛈️",
	"snow":         "❄️",
	"mist":         "🌫️",
	"fog":          "🌫️",
	"haze":         "🌫️",
	"dust":         "💨",
	"sand":         "💨",
	"smoke":        "💨",
	"squall":       "💨",
	"tornado":      "🌪️",
}

var errorMessages = map[string]string{
	CategoryAPIUnavailable: emojiWarning + " External service unavailable",
	CategoryInvalidInput:   emojiError + " Invalid input format",
	CategoryCityNotFound:   emojiError + " Location not found",
	CategoryGeneral:        emojiError + ` System error \- operation failed`,
}

var markdownEscaper = strings.NewReplacer(
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

var titleCaser = cases.Title(language.Und)

// EscapeMarkdown escapes every MarkdownV2 special character in text.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

const commandList = "*Available Commands:*\n" +
	"• `/weather <city>` \\- Weather data retrieval\n" +
	"• `/weather_at <lat> <lon>` \\- Weather by coordinates\n" +
	"• `/joke [id]` \\- Random humor generation, or a joke by id\n" +
	"• `/joke_search <keyword>` \\- Joke search\n" +
	"• `/start` \\- System initialization\n" +
	"• `/help` \\- Command reference\n\n" +
	"_Privacy Protocol: Zero data retention_"

// FormatWelcome greets name and lists the commands.
func FormatWelcome(name string) string {
	return fmt.Sprintf("%s *Bot Initialized* \\- Hello, %s\n\n%s", emojiRobot, EscapeMarkdown(name), commandList)
}

// FormatHelp lists the commands.
func FormatHelp() string {
	return emojiRobot + " " + commandList
}

// FormatWeatherReport renders a weather record.
func FormatWeatherReport(rec *biz.WeatherRecord) string {
	emoji, ok := conditionEmojis[strings.ToLower(rec.Condition)]
	if !ok {
		emoji = emojiCloud
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Weather Report*\n\n", emojiThermometer)
	fmt.Fprintf(&b, "%s *Location:* %s, %s\n", emojiLocation, EscapeMarkdown(rec.City), EscapeMarkdown(rec.Country))
	fmt.Fprintf(&b, "%s *Conditions:* %s\n", emoji, EscapeMarkdown(titleCaser.String(rec.Description)))
	fmt.Fprintf(&b, "%s *Temperature:* %s°C \\(feels like %s°C\\)\n", emojiThermometer, formatTemperature(rec.Temperature), formatTemperature(rec.FeelsLike))
	fmt.Fprintf(&b, "%s *Humidity:* %d%%", emojiHumidity, rec.Humidity)
	if rec.Pressure != nil {
		fmt.Fprintf(&b, "\n%s *Pressure:* %d hPa", emojiPressure, *rec.Pressure)
	}
	return b.String()
}

func formatTemperature(t float64) string {
	return EscapeMarkdown(strconv.FormatFloat(t, 'f', 1, 64))
}

// FormatJoke renders one joke.
func FormatJoke(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return emojiError + " Joke data unavailable"
	}
	return emojiLaugh + " " + EscapeMarkdown(text)
}

// FormatJokeSearch renders numbered search results.
func FormatJokeSearch(term string, jokes []*biz.JokeRecord) string {
	parts := make([]string, 0, len(jokes)+1)
	parts = append(parts, fmt.Sprintf("%s *Joke Search Results for '%s'*\n", emojiSearch, EscapeMarkdown(term)))
	for i, joke := range jokes {
		parts = append(parts, fmt.Sprintf("%d\\. %s", i+1, FormatJoke(joke.Text)))
	}
	return strings.Join(parts, "\n\n")
}

// FormatError renders the message for category. Unknown categories render
// as general; details, when given, follow in italics.
func FormatError(category, details string) string {
	msg, ok := errorMessages[category]
	if !ok {
		msg = errorMessages[CategoryGeneral]
	}
	if details != "" {
		return msg + "\n_" + EscapeMarkdown(details) + "_"
	}
	return msg
}

// FormatUsage renders a command usage hint.
func FormatUsage(command, usage, description string) string {
	return fmt.Sprintf("*Command:* `%s`\n*Usage:* `%s`\n*Description:* %s",
		EscapeMarkdown(command), EscapeMarkdown(usage), EscapeMarkdown(description))
}

// TruncateMessage shortens msg to at most max characters, ending with an
// escaped ellipsis.
func TruncateMessage(msg string, max int) string {
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	const ellipsis = `\.\.\.`
	cut := max - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	truncated := runes[:cut]
	// never leave a dangling escape character
	trailing := 0
	for i := len(truncated) - 1; i >= 0 && truncated[i] == '\\'; i-- {
		trailing++
	}
	if trailing%2 == 1 {
		truncated = truncated[:len(truncated)-1]
	}
	return string(truncated) + ellipsis
}

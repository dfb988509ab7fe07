// Package chat holds the question-and-answer flow shared by the web and CLI shells.
package chat

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/justestif/siren/internal/cycle"
)

// Role identifies who sent a message.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Stage is the question the conversation is waiting on.
type Stage int

const (
	StageAskDate Stage = iota
	StageAskDuration
	StageResolving // both answers in, waiting on the playlist
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageAskDate:
		return "ask_date"
	case StageAskDuration:
		return "ask_duration"
	case StageResolving:
		return "resolving"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Prompts and replies.
const (
	PromptDate       = "Hello! When was the first day of your last period?"
	PromptDuration   = "Got it. And how many days does your period typically last?"
	ReplyFutureDate  = "Hmm, that date seems to be in the future. Could you double-check?"
	ReplyBadDate     = "I couldn't read that date. Please use the format YYYY-MM-DD."
	ReplyNotPositive = "Period duration must be a positive number."
	ReplyNotNumber   = "Invalid input. Please enter a number."
	ReplyPlaylist    = "Here's a Spotify playlist to match:"
	LinkText         = "Listen on Spotify"
)

// SummaryFormat is the result sentence; the verbs take the phase, then the mood.
const SummaryFormat = "Based on your cycle, you are in the %s phase, and your predicted mood is %s."

// Summary fills SummaryFormat.
func Summary(phase, mood string) string {
	return fmt.Sprintf(SummaryFormat, phase, mood)
}

// Message is one line of the conversation.
type Message struct {
	Role Role
	Text string
	// Phase and Mood are set on the result message for emphasis.
	Phase string
	Mood  string
	// Link is set on the playlist message.
	Link string
}

// Result is what the conversation shows once both answers are in.
type Result struct {
	Phase       string
	Mood        string
	Summary     string
	PlaylistURL string
}

// Conversation tracks one user's answers. The zero value is not ready; use New.
type Conversation struct {
	Stage     Stage
	StartDate time.Time
	Messages  []Message
	// Turn changes on every Reset. Complete only accepts results for the
	// current turn.
	Turn int
}

// New starts a conversation with the date question.
func New() *Conversation {
	c := &Conversation{}
	c.Reset()
	return c
}

// Reset clears all answers and asks for the date again.
func (c *Conversation) Reset() {
	c.Turn++
	c.Stage = StageAskDate
	c.StartDate = time.Time{}
	c.Messages = []Message{{Role: RoleAssistant, Text: PromptDate}}
}

// Prompt returns the question currently awaiting an answer, or "" when done.
func (c *Conversation) Prompt() string {
	switch c.Stage {
	case StageAskDate:
		return PromptDate
	case StageAskDuration:
		return PromptDuration
	default:
		return ""
	}
}

// SubmitDate records the answer to the date question.
// It returns false and appends a correction when the answer is unusable.
func (c *Conversation) SubmitDate(raw string, today time.Time) bool {
	if c.Stage != StageAskDate {
		return false
	}

	start, err := cycle.ParseDate(raw)
	if err != nil {
		c.say(ReplyBadDate)
		return false
	}
	// Check only the date here; the duration is validated on its own turn.
	if _, err := cycle.NewInput(start, 1, today); errors.Is(err, cycle.ErrFutureStartDate) {
		c.say(ReplyFutureDate)
		return false
	}

	c.Messages = append(c.Messages, Message{Role: RoleUser, Text: start.Format(cycle.DateLayout)})
	c.StartDate = start
	c.Stage = StageAskDuration
	c.say(PromptDuration)
	return true
}

// SubmitDuration records the answer to the duration question and returns the
// validated input and the turn to pass to Complete, moving the conversation
// to StageResolving until then.
// It returns false and appends a correction when the answer is unusable.
func (c *Conversation) SubmitDuration(raw string, today time.Time) (cycle.Input, int, bool) {
	if c.Stage != StageAskDuration {
		return cycle.Input{}, 0, false
	}

	n, err := cycle.ParseDuration(raw)
	switch {
	case errors.Is(err, cycle.ErrNonPositiveDuration):
		c.say(ReplyNotPositive)
		return cycle.Input{}, 0, false
	case err != nil:
		c.say(ReplyNotNumber)
		return cycle.Input{}, 0, false
	}

	in, err := cycle.NewInput(c.StartDate, n, today)
	if err != nil {
		// Only reachable if the clock moved backwards since the date was accepted.
		c.Reset()
		c.say(ReplyFutureDate)
		return cycle.Input{}, 0, false
	}

	c.Messages = append(c.Messages, Message{Role: RoleUser, Text: strconv.Itoa(n)})
	c.Stage = StageResolving
	return in, c.Turn, true
}

// Complete appends the recommendation for turn and ends the conversation.
// It is a no-op returning false unless the conversation is still resolving
// that turn, so a result that arrives after a reset is dropped even if the
// answers were given again.
func (c *Conversation) Complete(r Result, turn int) bool {
	if c.Stage != StageResolving || turn != c.Turn {
		return false
	}
	c.Messages = append(c.Messages,
		Message{Role: RoleAssistant, Text: r.Summary, Phase: r.Phase, Mood: r.Mood},
		Message{Role: RoleAssistant, Text: ReplyPlaylist, Link: r.PlaylistURL},
	)
	c.Stage = StageDone
	return true
}

// Done reports whether a recommendation has been shown.
func (c *Conversation) Done() bool {
	return c.Stage == StageDone
}

func (c *Conversation) say(text string) {
	c.Messages = append(c.Messages, Message{Role: RoleAssistant, Text: text})
}

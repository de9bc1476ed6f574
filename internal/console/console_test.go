package console

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConsoleSuite struct {
	suite.Suite
	out *bytes.Buffer
	ctx context.Context
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

func (s *ConsoleSuite) SetupTest() {
	s.out = &bytes.Buffer{}
	s.ctx = context.Background()
}

func (s *ConsoleSuite) newConsole(input string, opts ...Option) *Console {
	return New(strings.NewReader(input), s.out, opts...)
}

func (s *ConsoleSuite) TestPromptTrimsReply() {
	c := s.newConsole("  hello  \r\nworld\n")

	reply, err := c.Prompt(s.ctx, "Name")
	s.Require().NoError(err)
	s.Equal("hello", reply)
	s.Contains(s.out.String(), "Name: ")

	reply, err = c.Prompt(s.ctx, "Next")
	s.Require().NoError(err)
	s.Equal("world", reply)
}

func (s *ConsoleSuite) TestLastLineWithoutNewline() {
	c := s.newConsole("only")

	reply, err := c.Prompt(s.ctx, "Value")
	s.Require().NoError(err)
	s.Equal("only", reply)

	_, err = c.Prompt(s.ctx, "Value")
	s.ErrorIs(err, ErrInputClosed)
}

func (s *ConsoleSuite) TestInputClosedIsSticky() {
	c := s.newConsole("")

	_, err := c.Prompt(s.ctx, "Value")
	s.ErrorIs(err, ErrInputClosed)
	_, err = c.Prompt(s.ctx, "Value")
	s.ErrorIs(err, ErrInputClosed)
}

func (s *ConsoleSuite) TestPromptDefault() {
	c := s.newConsole("\nHard\n")

	reply, err := c.PromptDefault(s.ctx, "Difficulty", "Medium")
	s.Require().NoError(err)
	s.Equal("Medium", reply)
	s.Contains(s.out.String(), "Difficulty [Medium]: ")

	reply, err = c.PromptDefault(s.ctx, "Difficulty", "Medium")
	s.Require().NoError(err)
	s.Equal("Hard", reply)
}

func (s *ConsoleSuite) TestConfirm() {
	c := s.newConsole("maybe\nY\n\nno\n")

	yes, err := c.Confirm(s.ctx, "Quit game?", false)
	s.Require().NoError(err)
	s.True(yes)
	s.Contains(s.out.String(), "Please answer y or n.")

	yes, err = c.Confirm(s.ctx, "Quit game?", false)
	s.Require().NoError(err)
	s.False(yes)

	yes, err = c.Confirm(s.ctx, "Quit game?", true)
	s.Require().NoError(err)
	s.False(yes)
}

func (s *ConsoleSuite) TestPasswordWithoutTerminalReadsLine() {
	c := s.newConsole("secret123\n")

	pw, err := c.Password(s.ctx, "Password")
	s.Require().NoError(err)
	s.Equal("secret123", pw)
}

// interruptOnWrite delivers a signal the moment the prompt label is printed
type interruptOnWrite struct {
	bytes.Buffer
	interrupts chan os.Signal
	armed      bool
}

func (w *interruptOnWrite) Write(p []byte) (int, error) {
	if w.armed {
		w.armed = false
		w.interrupts <- os.Interrupt
	}
	return w.Buffer.Write(p)
}

func (s *ConsoleSuite) TestInterruptDuringPrompt() {
	in, w := io.Pipe()
	defer w.Close()
	interrupts := make(chan os.Signal, 1)
	out := &interruptOnWrite{interrupts: interrupts, armed: true}
	c := New(in, out, WithInterrupts(interrupts))

	_, err := c.Prompt(s.ctx, "Guess")
	s.ErrorIs(err, ErrInterrupted)

	// The line typed after the interrupt goes to the next prompt
	go func() { _, _ = io.WriteString(w, "42\n") }()
	reply, err := c.Prompt(s.ctx, "Guess")
	s.Require().NoError(err)
	s.Equal("42", reply)
}

func (s *ConsoleSuite) TestStaleInterruptDoesNotCancelNextPrompt() {
	interrupts := make(chan os.Signal, 1)
	c := s.newConsole("42\n7\n", WithInterrupts(interrupts))

	// Ctrl+C pressed while nothing was reading
	interrupts <- os.Interrupt
	reply, err := c.Prompt(s.ctx, "Guess")
	s.Require().NoError(err)
	s.Equal("42", reply)

	interrupts <- os.Interrupt
	line, err := c.ReadLine(s.ctx)
	s.Require().NoError(err)
	s.Equal("7", line)
}

func (s *ConsoleSuite) TestPromptHonoursContext() {
	in, w := io.Pipe()
	defer w.Close()
	c := New(in, s.out)

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()

	_, err := c.Prompt(ctx, "Guess")
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *ConsoleSuite) TestStyledOutputWithoutColor() {
	c := s.newConsole("")

	c.Title("Main Menu")
	c.Info("info %d", 1)
	c.Warn("warn")
	c.Error("error")
	c.Success("yay")

	s.Equal("Main Menu\ninfo 1\nwarn\nerror\nyay\n", s.out.String())
}

func (s *ConsoleSuite) TestPanel() {
	c := s.newConsole("")

	c.Panel("Game Over", "The secret number was 42.", ToneBad)

	out := s.out.String()
	s.Contains(out, "Game Over")
	s.Contains(out, "The secret number was 42.")
	s.Contains(out, "╭")
	s.NotContains(out, "\x1b[")
}

func (s *ConsoleSuite) TestTable() {
	c := s.newConsole("")

	c.Table([]string{"Game", "Score"}, [][]string{{"Number Guessing Game", "1600"}})

	out := s.out.String()
	s.Contains(out, "Game")
	s.Contains(out, "Number Guessing Game")
	s.Contains(out, "1600")
}

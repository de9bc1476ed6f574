// Package console is the line-oriented terminal the menus and games talk
// through. Input is read one line at a time and a Ctrl+C while a prompt is
// waiting surfaces as ErrInterrupted instead of killing the process.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	// ErrInterrupted is returned by a prompt cancelled with Ctrl+C
	ErrInterrupted = errors.New("interrupted")
	// ErrInputClosed is returned once input reaches EOF
	ErrInputClosed = errors.New("input closed")
)

type lineResult struct {
	line string
	err  error
}

// Console reads prompted lines and writes styled output
type Console struct {
	out        io.Writer
	requests   chan struct{}
	lines      chan lineResult
	pending    bool
	closed     bool
	interrupts <-chan os.Signal

	// passwordFD is the terminal to read hidden input from, or -1
	passwordFD int

	info, warn, fail, success, title *color.Color
	renderer                         *lipgloss.Renderer
}

// Option configures a Console
type Option func(*Console)

// WithInterrupts delivers Ctrl+C notifications to prompts
func WithInterrupts(ch <-chan os.Signal) Option {
	return func(c *Console) {
		c.interrupts = ch
	}
}

// WithColor enables or disables styling
func WithColor(enabled bool) Option {
	return func(c *Console) {
		for _, col := range []*color.Color{c.info, c.warn, c.fail, c.success, c.title} {
			if enabled {
				col.EnableColor()
			} else {
				col.DisableColor()
			}
		}
		if enabled {
			c.renderer.SetColorProfile(termenv.ANSI256)
		} else {
			c.renderer.SetColorProfile(termenv.Ascii)
		}
	}
}

// WithPasswordTerminal reads passwords from fd with echo disabled
func WithPasswordTerminal(fd int) Option {
	return func(c *Console) {
		c.passwordFD = fd
	}
}

// New creates a Console over in and out. Styling is off unless WithColor(true).
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		out:        out,
		requests:   make(chan struct{}),
		lines:      make(chan lineResult),
		passwordFD: -1,
		info:       color.New(color.FgCyan),
		warn:       color.New(color.FgYellow),
		fail:       color.New(color.FgRed),
		success:    color.New(color.FgGreen, color.Bold),
		title:      color.New(color.FgBlue, color.Bold),
		renderer:   lipgloss.NewRenderer(out),
	}
	WithColor(false)(c)
	for _, opt := range opts {
		opt(c)
	}

	go c.readLines(in)
	return c
}

// NewTerminal creates a Console on the process's stdin and stdout that
// captures Ctrl+C. The returned stop function restores default signal handling.
func NewTerminal(noColor bool) (*Console, func()) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)

	opts := []Option{
		WithInterrupts(interrupts),
		WithColor(!noColor && !color.NoColor),
	}
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		opts = append(opts, WithPasswordTerminal(fd))
	}

	return New(os.Stdin, os.Stdout, opts...), func() { signal.Stop(interrupts) }
}

// readLines serves one line per request so nothing is consumed from in
// until a prompt asks for it
func (c *Console) readLines(in io.Reader) {
	reader := bufio.NewReader(in)
	for range c.requests {
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			c.lines <- lineResult{err: err}
			continue
		}
		c.lines <- lineResult{line: strings.TrimRight(line, "\r\n")}
	}
}

// ReadLine waits for the next input line without printing a prompt
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	c.dropInterrupts()
	return c.readLine(ctx)
}

// dropInterrupts discards signals delivered while no prompt was waiting so
// they cannot cancel the next one
func (c *Console) dropInterrupts() {
	for {
		select {
		case <-c.interrupts:
		default:
			return
		}
	}
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	if c.closed {
		return "", ErrInputClosed
	}
	if !c.pending {
		c.requests <- struct{}{}
		c.pending = true
	}

	select {
	case res := <-c.lines:
		c.pending = false
		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				c.closed = true
				return "", ErrInputClosed
			}
			return "", res.err
		}
		return res.line, nil
	case <-c.interrupts:
		fmt.Fprintln(c.out)
		return "", ErrInterrupted
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Prompt prints label and returns the trimmed reply
func (c *Console) Prompt(ctx context.Context, label string) (string, error) {
	c.dropInterrupts()
	fmt.Fprintf(c.out, "%s: ", label)
	line, err := c.readLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptDefault is Prompt with a value used when the reply is empty
func (c *Console) PromptDefault(ctx context.Context, label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	reply, err := c.Prompt(ctx, label)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return def, nil
	}
	return reply, nil
}

// Password prompts for hidden input. On a terminal echo is disabled;
// otherwise the line is read like any other.
func (c *Console) Password(ctx context.Context, label string) (string, error) {
	if c.passwordFD < 0 || c.pending {
		return c.Prompt(ctx, label)
	}

	c.dropInterrupts()
	fmt.Fprintf(c.out, "%s: ", label)
	secret, err := term.ReadPassword(c.passwordFD)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	select {
	case <-c.interrupts:
		return "", ErrInterrupted
	default:
	}
	return string(secret), nil
}

// Confirm asks a yes/no question. An empty reply takes the default.
func (c *Console) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	for {
		reply, err := c.Prompt(ctx, fmt.Sprintf("%s (%s)", question, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(reply) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.Warn("Please answer y or n.")
	}
}

func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) Title(text string) {
	c.title.Fprintln(c.out, text)
}

func (c *Console) Info(format string, args ...any) {
	c.info.Fprintln(c.out, fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...any) {
	c.warn.Fprintln(c.out, fmt.Sprintf(format, args...))
}

func (c *Console) Error(format string, args ...any) {
	c.fail.Fprintln(c.out, fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...any) {
	c.success.Fprintln(c.out, fmt.Sprintf(format, args...))
}

// Tone selects a panel border colour
type Tone int

const (
	ToneNeutral Tone = iota
	ToneGood
	ToneBad
	ToneNotice
)

var toneColors = map[Tone]lipgloss.Color{
	ToneNeutral: lipgloss.Color("12"),
	ToneGood:    lipgloss.Color("10"),
	ToneBad:     lipgloss.Color("9"),
	ToneNotice:  lipgloss.Color("11"),
}

// Panel prints body in a bordered box with an optional heading
func (c *Console) Panel(heading, body string, tone Tone) {
	style := c.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(toneColors[tone]).
		Padding(0, 1)

	content := body
	if heading != "" {
		content = c.renderer.NewStyle().Bold(true).Render(heading) + "\n" + body
	}
	fmt.Fprintln(c.out, style.Render(content))
}

// Table prints rows under headers
func (c *Console) Table(headers []string, rows [][]string) {
	header := c.renderer.NewStyle().Bold(true).Padding(0, 1)
	cell := c.renderer.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(c.renderer.NewStyle().Foreground(toneColors[ToneNeutral])).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(c.out, t.Render())
}

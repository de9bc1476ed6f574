// Package menu drives the interactive screens: login and registration, the
// main menu, the games catalog and the account pages.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/games"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/services/auth"
	"github.com/mcoot/archive/internal/services/tracker"
	"github.com/mcoot/archive/internal/storage"
)

// Terminal is the console the menus draw on
type Terminal interface {
	games.Console
	PromptDefault(ctx context.Context, label, def string) (string, error)
	Password(ctx context.Context, label string) (string, error)
	Println(args ...any)
	Table(headers []string, rows [][]string)
}

// Config holds menu settings
type Config struct {
	// HistoryLimit bounds the sessions shown on the history screen
	HistoryLimit int
}

// Menu is the interactive front end for one terminal
type Menu struct {
	auth    *auth.Service
	tracker *tracker.Tracker
	catalog *games.Catalog
	term    Terminal
	logger  *slog.Logger

	historyLimit int
}

// New creates a Menu
func New(authService *auth.Service, tr *tracker.Tracker, catalog *games.Catalog, term Terminal, cfg Config, logger *slog.Logger) *Menu {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = storage.DefaultHistoryLimit
	}
	return &Menu{
		auth:         authService,
		tracker:      tr,
		catalog:      catalog,
		term:         term,
		logger:       logger,
		historyLimit: cfg.HistoryLimit,
	}
}

// Run shows the menus until the user exits. Closed input or a Ctrl+C at a
// menu prompt ends the run without error.
func (m *Menu) Run(ctx context.Context) error {
	m.term.Panel("Welcome to the Archive", "Ultimate CLI game collection", console.ToneNeutral)

	for {
		m.auth.CleanExpiredSessions()
		session, err := m.authMenu(ctx)
		if err != nil {
			return m.finish(err)
		}
		if session == nil {
			m.goodbye()
			return nil
		}

		exit, err := m.mainMenu(ctx, session)
		if err != nil {
			m.auth.Logout(session)
			return m.finish(err)
		}
		if exit {
			m.goodbye()
			return nil
		}
	}
}

func (m *Menu) finish(err error) error {
	if errors.Is(err, console.ErrInputClosed) || errors.Is(err, console.ErrInterrupted) || errors.Is(err, context.Canceled) {
		m.logger.Info("interactive session ended", "reason", err.Error())
		m.goodbye()
		return nil
	}
	return err
}

func (m *Menu) goodbye() {
	m.term.Info("Exiting application. Goodbye!")
}

// choose shows numbered options and returns the 1-based selection. def > 0
// is offered as the default reply.
func (m *Menu) choose(ctx context.Context, heading string, options []string, def int) (int, error) {
	lines := make([]string, len(options))
	for i, option := range options {
		lines[i] = fmt.Sprintf("%d. %s", i+1, option)
	}
	m.term.Panel(heading, strings.Join(lines, "\n"), console.ToneNeutral)

	for {
		var (
			reply string
			err   error
		)
		if def > 0 {
			reply, err = m.term.PromptDefault(ctx, "Select an option", strconv.Itoa(def))
		} else {
			reply, err = m.term.Prompt(ctx, "Select an option")
		}
		if err != nil {
			return 0, err
		}

		if n, convErr := strconv.Atoi(reply); convErr == nil && n >= 1 && n <= len(options) {
			return n, nil
		}
		m.term.Error("Please enter a number between 1 and %d", len(options))
	}
}

func (m *Menu) pause(ctx context.Context, label string) error {
	_, err := m.term.Prompt(ctx, label)
	return err
}

// authMenu returns the logged-in session, or nil when the user chose Exit
func (m *Menu) authMenu(ctx context.Context) (*auth.Session, error) {
	for {
		choice, err := m.choose(ctx, "Main Menu", []string{"Login", "Register", "Exit"}, 0)
		if err != nil {
			return nil, err
		}

		var session *auth.Session
		switch choice {
		case 1:
			session, err = m.login(ctx)
		case 2:
			session, err = m.register(ctx)
		default:
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}
}

// login retries until the credentials are accepted or the email is left blank
func (m *Menu) login(ctx context.Context) (*auth.Session, error) {
	m.term.Title("Login to your account")

	for {
		email, err := m.term.Prompt(ctx, "Email (blank to go back)")
		if err != nil {
			return nil, err
		}
		if email == "" {
			return nil, nil
		}
		password, err := m.term.Password(ctx, "Password")
		if err != nil {
			return nil, err
		}

		session, err := m.auth.Login(ctx, email, password)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			m.term.Error("Invalid email or password")
			continue
		case err != nil:
			return nil, err
		}

		m.term.Success("Welcome back, %s!", session.User.Name)
		return session, nil
	}
}

// register asks for each field until it is valid. A blank name goes back.
func (m *Menu) register(ctx context.Context) (*auth.Session, error) {
	m.term.Title("User Registration")

	var reg auth.Registration

	for {
		name, err := m.term.Prompt(ctx, "Enter your name (blank to go back)")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, nil
		}
		if v := auth.ValidateName(name); !v.Valid {
			m.term.Error("Invalid name: %s", v.Message)
			continue
		}
		reg.Name = name
		break
	}

	for {
		email, err := m.term.Prompt(ctx, "Enter your email")
		if err != nil {
			return nil, err
		}
		if v := auth.ValidateEmail(email); !v.Valid {
			m.term.Error("Invalid email: %s", v.Message)
			continue
		}
		available, err := m.auth.EmailAvailable(ctx, email)
		if err != nil {
			return nil, err
		}
		if !available {
			m.term.Error("This email is already registered.")
			continue
		}
		reg.Email = email
		break
	}

	for {
		password, err := m.term.Password(ctx, "Enter your password")
		if err != nil {
			return nil, err
		}
		confirm, err := m.term.Password(ctx, "Confirm your password")
		if err != nil {
			return nil, err
		}
		if v := auth.ValidatePasswordMatch(password, confirm); !v.Valid {
			m.term.Error("%s", v.Message)
			continue
		}
		if v := auth.ValidatePassword(password); !v.Valid {
			m.term.Error("Invalid password: %s", v.Message)
			continue
		}
		reg.Password, reg.ConfirmPassword = password, confirm
		break
	}

	session, err := m.auth.Register(ctx, reg)
	if err != nil {
		if errors.Is(err, auth.ErrValidation) || errors.Is(err, model.ErrEmailExists) {
			m.term.Error("Registration failed: %s", err)
			return nil, nil
		}
		return nil, err
	}

	m.term.Success("Registration successful, welcome to the Archive, %s!", session.User.Name)
	return session, nil
}

// mainMenu runs until logout (false) or exit (true)
func (m *Menu) mainMenu(ctx context.Context, session *auth.Session) (bool, error) {
	options := []string{
		"Games",
		"View My Profile",
		"Edit My Profile",
		"Game History",
		"Delete My Account",
		"Logout",
		"Exit Application",
	}

	for {
		current, err := m.auth.ValidateSession(session.Token)
		if err != nil {
			m.term.Warn("Your session has expired. Please log in again.")
			return false, nil
		}
		session = current

		m.term.Panel("CLI Game Collection",
			fmt.Sprintf("Welcome, %s!\nEmail: %s", session.User.Name, session.User.Email),
			console.ToneNeutral)

		choice, err := m.choose(ctx, "Main Menu", options, 0)
		if err != nil {
			return false, err
		}

		switch choice {
		case 1:
			err = m.gamesMenu(ctx, session)
		case 2:
			err = m.viewProfile(ctx, session)
		case 3:
			session, err = m.editProfile(ctx, session)
		case 4:
			err = m.history(ctx, session)
		case 5:
			var deleted bool
			deleted, err = m.deleteAccount(ctx, session)
			if err == nil && deleted {
				return false, nil
			}
		case 6:
			m.auth.Logout(session)
			m.term.Info("You have been logged out.")
			return false, nil
		default:
			m.auth.Logout(session)
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
}

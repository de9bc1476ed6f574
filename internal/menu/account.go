package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/services/auth"
)

const timeLayout = "2006-01-02 15:04"

func (m *Menu) viewProfile(ctx context.Context, session *auth.Session) error {
	user := session.User
	m.term.Panel("User Profile", fmt.Sprintf(
		"Name:            %s\nEmail:           %s\nAccount Created: %s",
		user.Name, user.Email, user.CreatedAt.Local().Format(timeLayout)),
		console.ToneGood)
	return m.pause(ctx, "Press Enter to return to the main menu")
}

// editProfile returns the session to keep using, refreshed when the
// profile changed
func (m *Menu) editProfile(ctx context.Context, session *auth.Session) (*auth.Session, error) {
	user := session.User
	m.term.Panel("Edit Your Profile",
		fmt.Sprintf("Name: %s\nEmail: %s", user.Name, user.Email),
		console.ToneNeutral)
	m.term.Info("Enter new information (leave blank to keep current value)")

	name, err := m.term.PromptDefault(ctx, "Name", user.Name)
	if err != nil {
		return session, err
	}
	email, err := m.term.PromptDefault(ctx, "Email", user.Email)
	if err != nil {
		return session, err
	}

	m.term.Info("Change password (leave blank to keep current)")
	password, err := m.term.Password(ctx, "New Password")
	if err != nil {
		return session, err
	}
	var confirm string
	if password != "" {
		if confirm, err = m.term.Password(ctx, "Confirm Password"); err != nil {
			return session, err
		}
	}

	passwordNote := "Unchanged"
	if password != "" {
		passwordNote = "*****"
	}
	m.term.Info("Review your changes:")
	m.term.Println(fmt.Sprintf("Name: %s -> %s", user.Name, name))
	m.term.Println(fmt.Sprintf("Email: %s -> %s", user.Email, email))
	m.term.Println(fmt.Sprintf("Password: %s", passwordNote))

	ok, err := m.term.Confirm(ctx, "Confirm these changes?", false)
	if err != nil {
		return session, err
	}
	if !ok {
		m.term.Warn("Profile update canceled.")
		return session, nil
	}

	updated, err := m.auth.UpdateProfile(ctx, session, auth.ProfileUpdate{
		Name:            name,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	})
	switch {
	case errors.Is(err, auth.ErrNoChanges):
		m.term.Warn("No changes were made to your profile.")
	case errors.Is(err, model.ErrEmailExists):
		m.term.Error("Error: Email address is already in use by another account")
	case errors.Is(err, auth.ErrValidation):
		m.term.Error("Error: %s", err)
	case errors.Is(err, auth.ErrInvalidSession):
		return session, nil
	case err != nil:
		return session, err
	default:
		session = updated
		m.term.Success("Profile updated successfully.")
	}

	return session, m.pause(ctx, "Press Enter to continue")
}

// deleteAccount reports whether the account was removed
func (m *Menu) deleteAccount(ctx context.Context, session *auth.Session) (bool, error) {
	m.term.Panel("Delete Account",
		"ACCOUNT DELETION WARNING\n\n"+
			"This action will permanently delete your account and all associated data.\n"+
			"This cannot be undone.",
		console.ToneBad)

	cancelled := func() (bool, error) {
		m.term.Success("Account deletion cancelled.")
		return false, m.pause(ctx, "Press Enter to return to the main menu")
	}

	typed, err := m.term.Prompt(ctx, "Please type DELETE to confirm you want to delete your account")
	if err != nil {
		return false, err
	}
	if strings.ToUpper(typed) != "DELETE" {
		return cancelled()
	}

	password, err := m.term.Password(ctx, "For security, please enter your password")
	if err != nil {
		return false, err
	}
	if password == "" {
		return cancelled()
	}

	m.term.Error("WARNING: This is your last chance to cancel!")
	final, err := m.term.Prompt(ctx, "Are you absolutely sure you want to delete your account? (yes/no)")
	if err != nil {
		return false, err
	}
	if strings.ToLower(final) != "yes" {
		return cancelled()
	}

	err = m.auth.DeleteAccount(ctx, session, password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		m.term.Error("Error: Incorrect password")
		return false, m.pause(ctx, "Press Enter to return to the main menu")
	case errors.Is(err, auth.ErrInvalidSession):
		return false, nil
	case err != nil:
		return false, err
	}

	m.term.Success("Your account has been deleted. You will be logged out.")
	return true, m.pause(ctx, "Press Enter to continue")
}

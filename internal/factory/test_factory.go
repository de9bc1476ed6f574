package factory

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/archive/internal/dependencies/mocks"
	"github.com/mcoot/archive/internal/services/auth"
	"github.com/mcoot/archive/internal/storage/memory"
	"github.com/mcoot/archive/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
// and in-memory storage
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	app := newWithDependencies(store, mockClock, mockRandom, authCfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// RegisterUser creates an account with password "password123" and returns
// its login session
func (t *TestApp) RegisterUser(ctx context.Context, name, email string) (*auth.Session, error) {
	return t.AuthService.Register(ctx, auth.Registration{
		Name:            name,
		Email:           email,
		Password:        "password123",
		ConfirmPassword: "password123",
	})
}

package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-postauth"
)

const testPassword = "correct-horse-battery"

type fixture struct {
	db     *bun.DB
	repo   auth.RepositoryManager
	cfg    *auth.Config
	clock  *testClock
	codes  *counterCodes
	sink   *captureSink
	mailer *MockMailer
	hasher auth.BcryptHasher
	svc    *auth.Services
}

func testConfig() *auth.Config {
	return &auth.Config{
		SigningKey:      "test-signing-key-0123456789",
		Issuer:          "postauth-test",
		TokenExpiration: time.Hour,
		BcryptCost:      bcrypt.MinCost,
		OTPLength:       auth.DefaultOTPLength,
		OTPCharset:      auth.OTPCharsetDigits,
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.EnsureSchema(context.Background(), db))
	return db
}

// newFixture wires every service around an in-memory database. The mailer
// accepts every message unless the test replaces the expectation.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	mailer := &MockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()

	return newFixtureWithMailer(t, mailer)
}

func newFixtureWithMailer(t *testing.T, mailer *MockMailer) *fixture {
	t.Helper()

	db := newTestDB(t)
	f := &fixture{
		db:     db,
		repo:   auth.NewRepositoryManager(db),
		cfg:    testConfig(),
		clock:  newTestClock(),
		codes:  &counterCodes{},
		sink:   &captureSink{},
		mailer: mailer,
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	}

	f.svc = auth.NewServices(f.cfg, f.repo, f.mailer,
		auth.WithServicesClock(f.clock.Now),
		auth.WithServicesLogger(&captureLogger{}),
		auth.WithServicesActivitySink(f.sink),
		auth.WithServicesCodeGenerator(f.codes),
		auth.WithServicesHasher(f.hasher),
	)

	return f
}

type seed struct {
	email    string
	username string
	role     auth.AccountRole
	active   bool
	approved bool
}

func (f *fixture) seedAccount(t *testing.T, s seed) *auth.Account {
	t.Helper()

	hash, err := f.hasher.HashPassword(testPassword)
	require.NoError(t, err)

	if s.username == "" {
		s.username = "user" + uuid.NewString()[:8]
	}
	if s.role == 0 {
		s.role = auth.RoleContributor
	}

	acc, err := f.repo.Accounts().Create(context.Background(), &auth.Account{
		Email:        s.email,
		Username:     s.username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Role:         s.role,
		IsActive:     s.active,
		Approved:     s.approved,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	})
	require.NoError(t, err)
	return acc
}

func (f *fixture) admin(t *testing.T) *auth.Account {
	return f.seedAccount(t, seed{email: "admin@example.com", username: "admin", role: auth.RoleAdministrator, active: true})
}

func (f *fixture) contributor(t *testing.T, email, username string) *auth.Account {
	return f.seedAccount(t, seed{email: email, username: username, role: auth.RoleContributor, active: true, approved: true})
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *auth.Account {
	t.Helper()
	acc, err := f.repo.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func (f *fixture) issue(t *testing.T, email string, purpose auth.OTPPurpose) *auth.IssuedOTP {
	t.Helper()
	issued, err := f.svc.Issuer.Issue(context.Background(), email, purpose)
	require.NoError(t, err)
	return issued
}

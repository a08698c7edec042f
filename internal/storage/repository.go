package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finarth/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN appends the connection pragmas every handle needs to a database path.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// CreateUser inserts a new account and returns it with its generated id.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash, verificationToken string) (core.User, error) {
	createdAt := now()
	id, err := r.queries.CreateUser(ctx, CreateUserParams{
		Email:             email,
		PasswordHash:      passwordHash,
		VerificationToken: verificationToken,
		CreatedAt:         createdAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id)

	return core.User{
		ID:                id,
		Email:             email,
		PasswordHash:      passwordHash,
		RiskProfile:       core.Moderate,
		VerificationToken: verificationToken,
		CreatedAt:         parseTime(createdAt),
		UpdatedAt:         parseTime(createdAt),
	}, nil
}

// GetUserByEmail returns the account row without investment types or objectives.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", notFound(err))
	}
	return toCoreUser(u), nil
}

// GetUser returns the full profile including investment types and objectives.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	user := toCoreUser(u)

	user.InvestmentTypes, err = r.queries.ListUserInvestments(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("list investments: %w", err)
	}
	user.Objectives, err = r.queries.ListUserObjectives(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("list objectives: %w", err)
	}
	return user, nil
}

// VerifyUser consumes a verification token. Tokens are single use.
func (r *SQLiteRepository) VerifyUser(ctx context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, core.ErrNotFound
	}
	u, err := r.queries.GetUserByVerificationToken(ctx, token)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by token: %w", notFound(err))
	}
	updatedAt := now()
	if err := r.queries.MarkUserVerified(ctx, u.ID, updatedAt); err != nil {
		return core.User{}, fmt.Errorf("mark verified: %w", err)
	}
	user := toCoreUser(u)
	user.IsVerified = true
	user.VerificationToken = ""
	user.UpdatedAt = parseTime(updatedAt)
	return user, nil
}

// CompleteOnboarding updates the profile and replaces investment types and
// objectives in one transaction.
func (r *SQLiteRepository) CompleteOnboarding(ctx context.Context, o core.Onboarding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	n, err := q.UpdateUserProfile(ctx, UpdateUserProfileParams{
		ID:                   o.UserID,
		FullName:             o.FullName,
		Age:                  int64(o.Age),
		Occupation:           o.Occupation,
		MonthlyIncome:        o.MonthlyIncome,
		RiskProfile:          string(o.RiskProfile),
		InvestmentExperience: o.InvestmentExperience,
		UpdatedAt:            now(),
	})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	if err := q.DeleteUserInvestments(ctx, o.UserID); err != nil {
		return fmt.Errorf("clear investments: %w", err)
	}
	for _, it := range o.InvestmentTypes {
		if err := q.InsertUserInvestment(ctx, o.UserID, it); err != nil {
			return fmt.Errorf("insert investment %q: %w", it, err)
		}
	}

	if err := q.DeleteUserObjectives(ctx, o.UserID); err != nil {
		return fmt.Errorf("clear objectives: %w", err)
	}
	for _, obj := range o.Objectives {
		if err := q.InsertUserObjective(ctx, o.UserID, obj); err != nil {
			return fmt.Errorf("insert objective %q: %w", obj, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit onboarding: %w", err)
	}

	slog.InfoContext(ctx, "Onboarding completed",
		"user_id", o.UserID,
		"investment_types", len(o.InvestmentTypes),
		"objectives", len(o.Objectives))
	return nil
}

func (r *SQLiteRepository) userExists(ctx context.Context, id int64) error {
	if _, err := r.queries.GetUserByID(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// CreateHolding stores a holding for an existing user.
func (r *SQLiteRepository) CreateHolding(ctx context.Context, h core.Holding) (core.Holding, error) {
	if err := r.userExists(ctx, h.UserID); err != nil {
		return core.Holding{}, fmt.Errorf("create holding: %w", err)
	}
	createdAt := now()
	id, err := r.queries.CreateHolding(ctx, CreateHoldingParams{
		UserID:    h.UserID,
		Name:      h.Name,
		Category:  h.Category,
		Amount:    h.Amount,
		Date:      h.Date.String(),
		Symbol:    h.Symbol,
		CreatedAt: createdAt,
	})
	if err != nil {
		return core.Holding{}, fmt.Errorf("create holding: %w", err)
	}

	slog.InfoContext(ctx, "Holding saved",
		"id", id,
		"user_id", h.UserID,
		"category", h.Category,
		"amount", h.Amount.String())

	h.ID = id
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = h.CreatedAt
	return h, nil
}

// ListHoldings returns a user's holdings, newest date first.
func (r *SQLiteRepository) ListHoldings(ctx context.Context, userID int64) ([]core.Holding, error) {
	rows, err := r.queries.ListHoldingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	holdings := make([]core.Holding, len(rows))
	for i, row := range rows {
		holdings[i] = toCoreHolding(row)
	}
	return holdings, nil
}

func (r *SQLiteRepository) GetHolding(ctx context.Context, userID, id int64) (core.Holding, error) {
	row, err := r.queries.GetHolding(ctx, id, userID)
	if err != nil {
		return core.Holding{}, fmt.Errorf("get holding %d: %w", id, notFound(err))
	}
	return toCoreHolding(row), nil
}

// UpdateHolding overwrites a holding owned by h.UserID.
func (r *SQLiteRepository) UpdateHolding(ctx context.Context, h core.Holding) (core.Holding, error) {
	n, err := r.queries.UpdateHolding(ctx, UpdateHoldingParams{
		ID:        h.ID,
		UserID:    h.UserID,
		Name:      h.Name,
		Category:  h.Category,
		Amount:    h.Amount,
		Date:      h.Date.String(),
		Symbol:    h.Symbol,
		UpdatedAt: now(),
	})
	if err != nil {
		return core.Holding{}, fmt.Errorf("update holding: %w", err)
	}
	if n == 0 {
		return core.Holding{}, fmt.Errorf("update holding %d: %w", h.ID, core.ErrNotFound)
	}
	return r.GetHolding(ctx, h.UserID, h.ID)
}

func (r *SQLiteRepository) DeleteHolding(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteHolding(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete holding %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Holding deleted", "id", id, "user_id", userID)
	return nil
}

// HoldingSymbols lists every distinct ticker referenced by any holding.
func (r *SQLiteRepository) HoldingSymbols(ctx context.Context) ([]string, error) {
	symbols, err := r.queries.ListHoldingSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holding symbols: %w", err)
	}
	return symbols, nil
}

func (r *SQLiteRepository) SaveQuote(ctx context.Context, q core.Quote) error {
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	err := r.queries.UpsertMarketQuote(ctx, MarketQuote{
		Symbol:    q.Symbol,
		Price:     q.Price,
		Currency:  q.Currency,
		Source:    q.Source,
		Simulated: q.Simulated,
		FetchedAt: asOf.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("save quote %s: %w", q.Symbol, err)
	}
	return nil
}

// GetQuotes returns the stored quotes for symbols, keyed by symbol. Unknown
// symbols are absent from the map.
func (r *SQLiteRepository) GetQuotes(ctx context.Context, symbols []string) (map[string]core.Quote, error) {
	rows, err := r.queries.GetMarketQuotes(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("get quotes: %w", err)
	}
	out := make(map[string]core.Quote, len(rows))
	for _, m := range rows {
		out[m.Symbol] = core.Quote{
			Symbol:    m.Symbol,
			Price:     m.Price,
			Currency:  m.Currency,
			Source:    m.Source,
			Simulated: m.Simulated,
			AsOf:      parseTime(m.FetchedAt),
		}
	}
	return out, nil
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:                   u.ID,
		Email:                u.Email,
		PasswordHash:         u.PasswordHash,
		FullName:             u.FullName,
		Age:                  int(u.Age),
		Occupation:           u.Occupation,
		MonthlyIncome:        u.MonthlyIncome,
		RiskProfile:          core.RiskProfile(u.RiskProfile),
		InvestmentExperience: u.InvestmentExperience,
		OnboardingCompleted:  u.OnboardingCompleted,
		VerificationToken:    u.VerificationToken,
		IsVerified:           u.IsVerified,
		CreatedAt:            parseTime(u.CreatedAt),
		UpdatedAt:            parseTime(u.UpdatedAt),
	}
}

func toCoreHolding(h Holding) core.Holding {
	d, _ := core.ParseDate(h.Date)
	return core.Holding{
		ID:        h.ID,
		UserID:    h.UserID,
		Name:      h.Name,
		Category:  h.Category,
		Amount:    h.Amount,
		Date:      d,
		Symbol:    h.Symbol,
		CreatedAt: parseTime(h.CreatedAt),
		UpdatedAt: parseTime(h.UpdatedAt),
	}
}

package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row models

type User struct {
	ID                   int64
	Email                string
	PasswordHash         string
	FullName             string
	Age                  int64
	Occupation           string
	MonthlyIncome        decimal.Decimal
	RiskProfile          string
	InvestmentExperience string
	OnboardingCompleted  bool
	VerificationToken    string
	IsVerified           bool
	CreatedAt            string
	UpdatedAt            string
}

type Holding struct {
	ID        int64
	UserID    int64
	Name      string
	Category  string
	Amount    decimal.Decimal
	Date      string
	Symbol    string
	CreatedAt string
	UpdatedAt string
}

type MarketQuote struct {
	Symbol    string
	Price     decimal.Decimal
	Currency  string
	Source    string
	Simulated bool
	FetchedAt string
}

// Users

const userColumns = `id, email, password_hash, full_name, age, occupation, monthly_income,
       risk_profile, investment_experience, onboarding_completed, verification_token,
       is_verified, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Age,
		&u.Occupation,
		&u.MonthlyIncome,
		&u.RiskProfile,
		&u.InvestmentExperience,
		&u.OnboardingCompleted,
		&u.VerificationToken,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createUser = `INSERT INTO users (email, password_hash, verification_token, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`

type CreateUserParams struct {
	Email             string
	PasswordHash      string
	VerificationToken string
	CreatedAt         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser,
		arg.Email,
		arg.PasswordHash,
		arg.VerificationToken,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByVerificationToken = `SELECT ` + userColumns + ` FROM users
WHERE verification_token = ? AND verification_token <> ''`

func (q *Queries) GetUserByVerificationToken(ctx context.Context, token string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByVerificationToken, token))
}

const updateUserProfile = `UPDATE users
SET full_name = ?, age = ?, occupation = ?, monthly_income = ?, risk_profile = ?,
    investment_experience = ?, onboarding_completed = 1, updated_at = ?
WHERE id = ?`

type UpdateUserProfileParams struct {
	ID                   int64
	FullName             string
	Age                  int64
	Occupation           string
	MonthlyIncome        decimal.Decimal
	RiskProfile          string
	InvestmentExperience string
	UpdatedAt            string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserProfile,
		arg.FullName,
		arg.Age,
		arg.Occupation,
		arg.MonthlyIncome,
		arg.RiskProfile,
		arg.InvestmentExperience,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markUserVerified = `UPDATE users SET is_verified = 1, verification_token = '', updated_at = ? WHERE id = ?`

func (q *Queries) MarkUserVerified(ctx context.Context, id int64, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, markUserVerified, updatedAt, id)
	return err
}

// Investments and objectives

const deleteUserInvestments = `DELETE FROM user_investments WHERE user_id = ?`

func (q *Queries) DeleteUserInvestments(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteUserInvestments, userID)
	return err
}

const insertUserInvestment = `INSERT INTO user_investments (user_id, investment_type) VALUES (?, ?)`

func (q *Queries) InsertUserInvestment(ctx context.Context, userID int64, investmentType string) error {
	_, err := q.db.ExecContext(ctx, insertUserInvestment, userID, investmentType)
	return err
}

const listUserInvestments = `SELECT investment_type FROM user_investments WHERE user_id = ? ORDER BY id`

func (q *Queries) ListUserInvestments(ctx context.Context, userID int64) ([]string, error) {
	return q.listStrings(ctx, listUserInvestments, userID)
}

const deleteUserObjectives = `DELETE FROM user_objectives WHERE user_id = ?`

func (q *Queries) DeleteUserObjectives(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteUserObjectives, userID)
	return err
}

const insertUserObjective = `INSERT INTO user_objectives (user_id, objective) VALUES (?, ?)`

func (q *Queries) InsertUserObjective(ctx context.Context, userID int64, objective string) error {
	_, err := q.db.ExecContext(ctx, insertUserObjective, userID, objective)
	return err
}

const listUserObjectives = `SELECT objective FROM user_objectives WHERE user_id = ? ORDER BY id`

func (q *Queries) ListUserObjectives(ctx context.Context, userID int64) ([]string, error) {
	return q.listStrings(ctx, listUserObjectives, userID)
}

func (q *Queries) listStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Holdings

const holdingColumns = `id, user_id, name, category, amount, date, symbol, created_at, updated_at`

func scanHolding(row interface{ Scan(...any) error }) (Holding, error) {
	var h Holding
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.Category,
		&h.Amount,
		&h.Date,
		&h.Symbol,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	return h, err
}

const createHolding = `INSERT INTO portfolio_holdings (user_id, name, category, amount, date, symbol, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type CreateHoldingParams struct {
	UserID    int64
	Name      string
	Category  string
	Amount    decimal.Decimal
	Date      string
	Symbol    string
	CreatedAt string
}

func (q *Queries) CreateHolding(ctx context.Context, arg CreateHoldingParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createHolding,
		arg.UserID,
		arg.Name,
		arg.Category,
		arg.Amount,
		arg.Date,
		arg.Symbol,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getHolding = `SELECT ` + holdingColumns + ` FROM portfolio_holdings WHERE id = ? AND user_id = ?`

func (q *Queries) GetHolding(ctx context.Context, id, userID int64) (Holding, error) {
	return scanHolding(q.db.QueryRowContext(ctx, getHolding, id, userID))
}

const listHoldingsByUser = `SELECT ` + holdingColumns + ` FROM portfolio_holdings
WHERE user_id = ?
ORDER BY date DESC, id DESC`

func (q *Queries) ListHoldingsByUser(ctx context.Context, userID int64) ([]Holding, error) {
	rows, err := q.db.QueryContext(ctx, listHoldingsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateHolding = `UPDATE portfolio_holdings
SET name = ?, category = ?, amount = ?, date = ?, symbol = ?, updated_at = ?
WHERE id = ? AND user_id = ?`

type UpdateHoldingParams struct {
	ID        int64
	UserID    int64
	Name      string
	Category  string
	Amount    decimal.Decimal
	Date      string
	Symbol    string
	UpdatedAt string
}

func (q *Queries) UpdateHolding(ctx context.Context, arg UpdateHoldingParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateHolding,
		arg.Name,
		arg.Category,
		arg.Amount,
		arg.Date,
		arg.Symbol,
		arg.UpdatedAt,
		arg.ID,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteHolding = `DELETE FROM portfolio_holdings WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteHolding(ctx context.Context, id, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteHolding, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listHoldingSymbols = `SELECT DISTINCT symbol FROM portfolio_holdings WHERE symbol <> '' ORDER BY symbol`

func (q *Queries) ListHoldingSymbols(ctx context.Context) ([]string, error) {
	return q.listStrings(ctx, listHoldingSymbols)
}

// Market quotes

const upsertMarketQuote = `INSERT INTO market_quotes (symbol, price, currency, source, simulated, fetched_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol) DO UPDATE SET
    price = excluded.price,
    currency = excluded.currency,
    source = excluded.source,
    simulated = excluded.simulated,
    fetched_at = excluded.fetched_at`

func (q *Queries) UpsertMarketQuote(ctx context.Context, arg MarketQuote) error {
	_, err := q.db.ExecContext(ctx, upsertMarketQuote,
		arg.Symbol,
		arg.Price,
		arg.Currency,
		arg.Source,
		arg.Simulated,
		arg.FetchedAt,
	)
	return err
}

const getMarketQuotesPrefix = `SELECT symbol, price, currency, source, simulated, fetched_at FROM market_quotes WHERE symbol IN (`

func (q *Queries) GetMarketQuotes(ctx context.Context, symbols []string) ([]MarketQuote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}
	rows, err := q.db.QueryContext(ctx, getMarketQuotesPrefix+placeholders+`) ORDER BY symbol`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MarketQuote
	for rows.Next() {
		var m MarketQuote
		if err := rows.Scan(&m.Symbol, &m.Price, &m.Currency, &m.Source, &m.Simulated, &m.FetchedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"budget-tracker/internal/currency"
	"budget-tracker/internal/models"
	"budget-tracker/internal/storage"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// doubler converts at a fixed rate of 2, or fails when down is set.
type doubler struct {
	down  bool
	calls int
}

func (d *doubler) Convert(_ context.Context, amount decimal.Decimal, from, to string) currency.Conversion {
	d.calls++
	if d.down {
		return currency.Conversion{
			Amount:   amount,
			Currency: from,
			Warning:  fmt.Errorf("%w: service down", models.ErrConversionUnavailable),
		}
	}
	return currency.Conversion{Amount: amount.Mul(decimal.NewFromInt(2)), Currency: to, Rate: decimal.NewFromInt(2), Converted: true}
}

type EngineTestSuite struct {
	suite.Suite
	db        *storage.DB
	engine    *Engine
	converter *doubler
	accountID int64
}

func (suite *EngineTestSuite) SetupTest() {
	db, err := storage.Open(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	account, err := db.CreateAccount("alice", []byte("hash"))
	require.NoError(suite.T(), err)
	suite.accountID = account.ID

	suite.converter = &doubler{}
	suite.engine = New(db, suite.converter, "USD")
}

func (suite *EngineTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *EngineTestSuite) add(kind models.Kind, category, amount, date string) {
	_, err := suite.db.InsertTransaction(suite.accountID, models.Entry{
		Kind:     kind,
		Category: category,
		Amount:   dec(amount),
		Date:     date,
	})
	require.NoError(suite.T(), err)
}

// seed records a salary of 1000 and a rent of 400.
func (suite *EngineTestSuite) seed() {
	suite.add(models.KindIncome, "Salary", "1000", "2024-01-01")
	suite.add(models.KindExpense, "Rent", "400", "2024-01-02")
}

func (suite *EngineTestSuite) TestEmptyLedger() {
	total, err := suite.engine.Total(suite.accountID, models.KindIncome)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), total.IsZero())

	rate, err := suite.engine.SavingsRate(suite.accountID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), rate.IsZero())

	top, err := suite.engine.TopCategories(suite.accountID, models.KindExpense, 5)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), top)
	assert.Empty(suite.T(), top)
}

func (suite *EngineTestSuite) TestNetAndSavingsRate() {
	suite.seed()

	net, err := suite.engine.NetBalance(suite.accountID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "600", net.String())

	rate, err := suite.engine.SavingsRate(suite.accountID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "60", rate.String())
	assert.Equal(suite.T(), AdviceInvest, Advise(rate, dec("400"), dec("1000")))
}

func (suite *EngineTestSuite) TestSavingsRateRounding() {
	suite.add(models.KindIncome, "Salary", "3", "2024-01-01")
	suite.add(models.KindExpense, "Food", "2", "2024-01-01")

	rate, err := suite.engine.SavingsRate(suite.accountID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "33.33", rate.String())
}

func (suite *EngineTestSuite) TestNegativeSavingsRate() {
	suite.add(models.KindIncome, "Salary", "100", "2024-01-01")
	suite.add(models.KindExpense, "Rent", "150", "2024-01-01")

	rate, err := suite.engine.SavingsRate(suite.accountID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "-50", rate.String())
}

func (suite *EngineTestSuite) TestTopCategories() {
	suite.add(models.KindExpense, "Food", "50", "2024-01-01")
	suite.add(models.KindExpense, "Rent", "400", "2024-01-01")
	suite.add(models.KindExpense, "Fun", "80", "2024-01-02")
	suite.add(models.KindExpense, "Food", "30", "2024-01-03")

	top, err := suite.engine.TopCategories(suite.accountID, models.KindExpense, 5)
	require.NoError(suite.T(), err)

	var keys []string
	for _, t := range top {
		keys = append(keys, t.Key+"="+t.Total.StringFixed(2))
	}
	// Food and Fun tie; Food was recorded first.
	if diff := cmp.Diff([]string{"Rent=400.00", "Food=80.00", "Fun=80.00"}, keys); diff != "" {
		suite.T().Errorf("TopCategories mismatch (-want +got):\n%s", diff)
	}

	top, err = suite.engine.TopCategories(suite.accountID, models.KindExpense, 2)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), top, 2)
	assert.Equal(suite.T(), "Food", top[1].Key)

	top, err = suite.engine.TopCategories(suite.accountID, models.KindExpense, 0)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), top)
}

func (suite *EngineTestSuite) TestTopCategoriesRepeatable() {
	suite.add(models.KindExpense, "Food", "50", "2024-01-01")
	suite.add(models.KindExpense, "Rent", "400", "2024-01-01")
	suite.add(models.KindExpense, "Fun", "80", "2024-01-02")
	suite.add(models.KindExpense, "Travel", "80", "2024-01-03")
	suite.add(models.KindExpense, "Books", "12", "2024-01-03")

	first, err := suite.engine.TopCategories(suite.accountID, models.KindExpense, 3)
	require.NoError(suite.T(), err)
	assert.LessOrEqual(suite.T(), len(first), 3)
	for i := 1; i < len(first); i++ {
		assert.False(suite.T(), first[i].Total.GreaterThan(first[i-1].Total), "not sorted descending at %d", i)
	}

	second, err := suite.engine.TopCategories(suite.accountID, models.KindExpense, 3)
	require.NoError(suite.T(), err)
	if diff := cmp.Diff(first, second); diff != "" {
		suite.T().Errorf("repeated TopCategories mismatch (-first +second):\n%s", diff)
	}
	assert.Equal(suite.T(), "Fun", first[1].Key)
	assert.Equal(suite.T(), "Travel", first[2].Key)
}

func (suite *EngineTestSuite) TestTopCategoriesNegativeN() {
	_, err := suite.engine.TopCategories(suite.accountID, models.KindExpense, -1)
	assert.ErrorIs(suite.T(), err, models.ErrValidation)
}

func (suite *EngineTestSuite) TestUnknownAccount() {
	_, err := suite.engine.Total(999, models.KindIncome)
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)

	_, err = suite.engine.Summarize(999, nil, 5)
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
}

func (suite *EngineTestSuite) TestBreakdown() {
	suite.add(models.KindExpense, "Rent", "400", "2024-01-01")
	suite.add(models.KindExpense, "Food", "50", "2024-01-01")
	suite.add(models.KindExpense, "Food", "30", "2024-01-02")
	suite.add(models.KindExpense, "Fun", "80", "2024-01-02")

	shares, err := suite.engine.Breakdown(suite.accountID, models.KindExpense)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), shares, 3)

	assert.Equal(suite.T(), "Rent", shares[0].Category)
	assert.Equal(suite.T(), "71.43", shares[0].Percentage.StringFixed(2))
	assert.Equal(suite.T(), "Food", shares[1].Category)
	assert.Equal(suite.T(), 2, shares[1].Count)
	assert.Equal(suite.T(), "14.29", shares[1].Percentage.StringFixed(2))
}

func (suite *EngineTestSuite) TestBreakdownEmpty() {
	shares, err := suite.engine.Breakdown(suite.accountID, models.KindGoal)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), shares)
}

func (suite *EngineTestSuite) TestTimeline() {
	suite.add(models.KindExpense, "Food", "5", "2024-03-02")
	suite.add(models.KindExpense, "Food", "7", "2024-01-15")
	suite.add(models.KindExpense, "Fun", "3", "2024-03-02")

	days, err := suite.engine.Timeline(suite.accountID, models.KindExpense)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), days, 2)
	assert.Equal(suite.T(), "2024-01-15", days[0].Key)
	assert.Equal(suite.T(), "2024-03-02", days[1].Key)
	assert.Equal(suite.T(), "8", days[1].Total.String())
}

func (suite *EngineTestSuite) TestSummarize() {
	suite.seed()
	suite.add(models.KindExpense, "Food", "20", "2024-02-10")

	s, err := suite.engine.Summarize(suite.accountID, nil, 5)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "1000", s.TotalIncome.String())
	assert.Equal(suite.T(), "420", s.TotalExpenses.String())
	assert.Equal(suite.T(), "580", s.NetIncome.String())
	assert.Equal(suite.T(), "58", s.SavingsRate.String())
	assert.Equal(suite.T(), AdviceInvest, s.Advice)
	assert.Equal(suite.T(), StatusWithinBudget, s.Status)
	require.Len(suite.T(), s.TopExpenses, 2)
	assert.Equal(suite.T(), "Rent", s.TopExpenses[0].Key)
}

func (suite *EngineTestSuite) TestSummarizeRange() {
	suite.seed()
	suite.add(models.KindExpense, "Food", "20", "2024-02-10")

	r, err := models.NewDateRange("2024-02-01", "2024-02-28")
	require.NoError(suite.T(), err)

	s, err := suite.engine.Summarize(suite.accountID, &r, 5)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), s.TotalIncome.IsZero())
	assert.Equal(suite.T(), "20", s.TotalExpenses.String())
	assert.Equal(suite.T(), StatusOverBudget, s.Status)
	assert.Empty(suite.T(), s.TopIncome)
	require.Len(suite.T(), s.TopExpenses, 1)
	assert.Equal(suite.T(), "Food", s.TopExpenses[0].Key)
}

func (suite *EngineTestSuite) TestConvertedTotals() {
	suite.seed()

	t, err := suite.engine.ConvertedTotals(context.Background(), suite.accountID, "EUR")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "EUR", t.Currency)
	assert.Equal(suite.T(), "2000", t.Income.String())
	assert.Equal(suite.T(), "800", t.Expenses.String())
	assert.Equal(suite.T(), "1200", t.Net.String())
	assert.Empty(suite.T(), t.Warnings)
}

func (suite *EngineTestSuite) TestConvertedTotalsBaseCurrency() {
	suite.seed()

	t, err := suite.engine.ConvertedTotals(context.Background(), suite.accountID, "USD")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "USD", t.Currency)
	assert.Equal(suite.T(), "600", t.Net.String())
	assert.Zero(suite.T(), suite.converter.calls)
}

func (suite *EngineTestSuite) TestConvertedTotalsFallback() {
	suite.seed()
	suite.converter.down = true

	t, err := suite.engine.ConvertedTotals(context.Background(), suite.accountID, "EUR")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "USD", t.Currency)
	assert.Equal(suite.T(), "1000", t.Income.String())
	assert.Equal(suite.T(), "600", t.Net.String())
	require.Len(suite.T(), t.Warnings, 2)
	assert.True(suite.T(), errors.Is(t.Warnings[0], models.ErrConversionUnavailable))
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"command-server/internal/domain/currency"
)

// MockCurrencyRepository モック通貨リポジトリ
type MockCurrencyRepository struct {
	mock.Mock
}

func (m *MockCurrencyRepository) FindByAccountAndCurrency(ctx context.Context, accountID string, currencyID currency.CurrencyID) (*currency.Currency, error) {
	args := m.Called(ctx, accountID, currencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*currency.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) FindByAccount(ctx context.Context, accountID string) ([]*currency.Currency, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*currency.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) Save(ctx context.Context, c *currency.Currency) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCurrencyRepository) Create(ctx context.Context, c *currency.Currency) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

const points = currency.CurrencyID("points")

func TestCurrencyService_HasSufficientBalance(t *testing.T) {
	tests := []struct {
		name       string
		amount     int64
		setupMocks func(*MockCurrencyRepository)
		want       bool
		wantError  bool
	}{
		{
			name:   "正常系: 残高が足りる",
			amount: 100,
			setupMocks: func(mcr *MockCurrencyRepository) {
				mcr.On("FindByAccountAndCurrency", mock.Anything, "twitch.1", points).
					Return(currency.MustNewCurrency("twitch.1", points, 100, 1), nil)
			},
			want: true,
		},
		{
			name:   "正常系: 残高不足",
			amount: 101,
			setupMocks: func(mcr *MockCurrencyRepository) {
				mcr.On("FindByAccountAndCurrency", mock.Anything, "twitch.1", points).
					Return(currency.MustNewCurrency("twitch.1", points, 100, 1), nil)
			},
			want: false,
		},
		{
			name:   "正常系: 口座未作成は残高0",
			amount: 1,
			setupMocks: func(mcr *MockCurrencyRepository) {
				mcr.On("FindByAccountAndCurrency", mock.Anything, "twitch.1", points).
					Return(nil, currency.ErrCurrencyNotFound)
			},
			want: false,
		},
		{
			name:       "正常系: 0円は常に足りる",
			amount:     0,
			setupMocks: func(mcr *MockCurrencyRepository) {},
			want:       true,
		},
		{
			name:   "異常系: DBエラー",
			amount: 1,
			setupMocks: func(mcr *MockCurrencyRepository) {
				mcr.On("FindByAccountAndCurrency", mock.Anything, "twitch.1", points).
					Return(nil, errors.New("database error"))
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockCurrencyRepository)
			tt.setupMocks(mockRepo)

			service := NewCurrencyService(mockRepo)
			got, err := service.HasSufficientBalance(context.Background(), "twitch.1", points, tt.amount)

			if tt.wantError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestCurrencyService_Balances(t *testing.T) {
	mockRepo := new(MockCurrencyRepository)
	mockRepo.On("FindByAccount", mock.Anything, "twitch.1").Return([]*currency.Currency{
		currency.MustNewCurrency("twitch.1", points, 100, 1),
		currency.MustNewCurrency("twitch.1", "gems", 5, 0),
	}, nil)

	got, err := NewCurrencyService(mockRepo).Balances(context.Background(), "twitch.1")
	require.NoError(t, err)
	assert.Equal(t, map[currency.CurrencyID]int64{"points": 100, "gems": 5}, got)
}

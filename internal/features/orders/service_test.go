package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinmarket.ru/telegram-bot/internal/common"
	"spinmarket.ru/telegram-bot/internal/features/casino"
)

// fakeLedger — леджер в памяти с той же семантикой отказов, что у настоящего.
type fakeLedger struct {
	available map[int64]decimal.Decimal
	frozen    map[int64]decimal.Decimal
	creditErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		available: make(map[int64]decimal.Decimal),
		frozen:    make(map[int64]decimal.Decimal),
	}
}

func (f *fakeLedger) Credit(_ context.Context, userID int64, amount decimal.Decimal, _ string) error {
	if f.creditErr != nil {
		return f.creditErr
	}
	f.available[userID] = f.available[userID].Add(amount)
	return nil
}

func (f *fakeLedger) Freeze(_ context.Context, userID int64, amount decimal.Decimal, _ string) error {
	if f.available[userID].LessThan(amount) {
		return common.ErrInsufficientFunds
	}
	f.available[userID] = f.available[userID].Sub(amount)
	f.frozen[userID] = f.frozen[userID].Add(amount)
	return nil
}

func (f *fakeLedger) Unfreeze(_ context.Context, userID int64, amount decimal.Decimal, _ string) error {
	f.frozen[userID] = f.frozen[userID].Sub(amount)
	f.available[userID] = f.available[userID].Add(amount)
	return nil
}

func (f *fakeLedger) SettleFrozen(_ context.Context, userID int64, amount decimal.Decimal, _ string) error {
	f.frozen[userID] = f.frozen[userID].Sub(amount)
	return nil
}

type memOrderStorage struct {
	orders map[int64]*Order
	nextID int64
}

func newMemOrderStorage() *memOrderStorage {
	return &memOrderStorage{orders: make(map[int64]*Order), nextID: 1}
}

func (m *memOrderStorage) Create(_ context.Context, order *Order) error {
	order.ID = m.nextID
	m.nextID++
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memOrderStorage) GetByID(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, common.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderStorage) FinishPending(_ context.Context, id int64, newStatus string, extra Extra) error {
	o, ok := m.orders[id]
	if !ok {
		return common.ErrOrderNotFound
	}
	if o.Status != StatusPending {
		return common.ErrOrderNotPending
	}
	o.Status = newStatus
	o.Extra = extra
	return nil
}

func (m *memOrderStorage) ListPending(_ context.Context) ([]*Order, error) {
	var out []*Order
	for _, o := range m.orders {
		if o.Status == StatusPending {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderStorage) ListByUser(_ context.Context, userID int64, limit int) ([]*Order, error) {
	var out []*Order
	for _, o := range m.orders {
		if o.UserID == userID && len(out) < limit {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fixedCommission struct{ pct decimal.Decimal }

func (f fixedCommission) CommissionPercent(context.Context) (decimal.Decimal, error) {
	return f.pct, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newOrderService(ledger *fakeLedger, storage *memOrderStorage, pct string) *Service {
	return NewService(storage, ledger, fixedCommission{pct: dec(pct)})
}

func TestRouteWinMoneyCreditsImmediately(t *testing.T) {
	ledger := newFakeLedger()
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	orderID, err := svc.RouteWin(context.Background(), 1, casino.RewardMoney, dec("50"), "🍒🍒🍒", "Три вишни")
	require.NoError(t, err)

	assert.True(t, ledger.available[1].Equal(dec("50")))

	order := storage.orders[orderID]
	require.NotNil(t, order)
	assert.Equal(t, StatusCompleted, order.Status)
	assert.Equal(t, KindSlotWin, order.Kind)
	assert.Equal(t, "🍒🍒🍒", order.Extra.Combo)
}

func TestRouteWinStarsCreatesPendingWithoutLedgerMovement(t *testing.T) {
	ledger := newFakeLedger()
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	orderID, err := svc.RouteWin(context.Background(), 1, casino.RewardStars, dec("100"), "💎💎💎", "Три алмаза")
	require.NoError(t, err)

	assert.True(t, ledger.available[1].IsZero())
	assert.Equal(t, StatusPending, storage.orders[orderID].Status)
}

func TestRequestWithdrawalFreezesAndComputesCommission(t *testing.T) {
	ledger := newFakeLedger()
	ledger.available[1] = dec("1000")
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	receipt, err := svc.RequestWithdrawal(context.Background(), 1, dec("500"), "2200700112345678")
	require.NoError(t, err)

	assert.True(t, receipt.Commission.Equal(dec("50")))
	assert.True(t, receipt.FinalAmount.Equal(dec("450")))

	// заморожена вся запрошенная сумма, не final
	assert.True(t, ledger.available[1].Equal(dec("500")))
	assert.True(t, ledger.frozen[1].Equal(dec("500")))

	order := storage.orders[receipt.OrderID]
	require.NotNil(t, order)
	assert.Equal(t, KindWithdraw, order.Kind)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, "2200700112345678", order.Extra.Requisites)
}

func TestRequestWithdrawalInsufficientFundsCreatesNothing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.available[1] = dec("100")
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	_, err := svc.RequestWithdrawal(context.Background(), 1, dec("200"), "реквизиты")
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	assert.Empty(t, storage.orders)
	assert.True(t, ledger.frozen[1].IsZero())
}

func TestApproveWithdrawalSettlesFrozen(t *testing.T) {
	ledger := newFakeLedger()
	ledger.available[1] = dec("500")
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	receipt, err := svc.RequestWithdrawal(context.Background(), 1, dec("300"), "р")
	require.NoError(t, err)

	order, err := svc.Approve(context.Background(), receipt.OrderID, 99, "ок")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, order.Status)
	assert.Equal(t, int64(99), order.Extra.AdminID)
	// средства ушли из системы: available без изменений, frozen обнулён
	assert.True(t, ledger.available[1].Equal(dec("200")))
	assert.True(t, ledger.frozen[1].IsZero())
}

func TestRejectWithdrawalReturnsFrozen(t *testing.T) {
	ledger := newFakeLedger()
	ledger.available[1] = dec("500")
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	receipt, err := svc.RequestWithdrawal(context.Background(), 1, dec("300"), "р")
	require.NoError(t, err)

	order, err := svc.Reject(context.Background(), receipt.OrderID, 99, "нет")
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, order.Status)
	assert.Equal(t, "нет", order.Extra.Note)
	assert.True(t, ledger.available[1].Equal(dec("500")))
	assert.True(t, ledger.frozen[1].IsZero())
}

func TestSecondDecisionOnSameOrderFails(t *testing.T) {
	ledger := newFakeLedger()
	ledger.available[1] = dec("500")
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	receipt, err := svc.RequestWithdrawal(context.Background(), 1, dec("100"), "р")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), receipt.OrderID, 1, "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), receipt.OrderID, 2, "")
	assert.ErrorIs(t, err, common.ErrOrderNotPending)
	_, err = svc.Reject(context.Background(), receipt.OrderID, 2, "")
	assert.ErrorIs(t, err, common.ErrOrderNotPending)

	// списание прошло один раз
	assert.True(t, ledger.frozen[1].IsZero())
	assert.True(t, ledger.available[1].Equal(dec("400")))
}

func TestApproveStarsWinCreditsLedger(t *testing.T) {
	ledger := newFakeLedger()
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	orderID, err := svc.RouteWin(context.Background(), 1, casino.RewardTON, dec("1"), "⭐⭐⭐", "Три звезды")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), orderID, 99, "")
	require.NoError(t, err)
	assert.True(t, ledger.available[1].Equal(dec("1")))
}

func TestRejectStarsWinLeavesLedgerUntouched(t *testing.T) {
	ledger := newFakeLedger()
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	orderID, err := svc.RouteWin(context.Background(), 1, casino.RewardStars, dec("100"), "💎💎💎", "Три алмаза")
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), orderID, 99, "")
	require.NoError(t, err)
	assert.True(t, ledger.available[1].IsZero())
	assert.True(t, ledger.frozen[1].IsZero())
}

func TestApproveUnknownOrder(t *testing.T) {
	svc := newOrderService(newFakeLedger(), newMemOrderStorage(), "10")

	_, err := svc.Approve(context.Background(), 404, 1, "")
	assert.ErrorIs(t, err, common.ErrOrderNotFound)
}

func TestCreateActivityRewardCreditsAndRecords(t *testing.T) {
	ledger := newFakeLedger()
	storage := newMemOrderStorage()
	svc := newOrderService(ledger, storage, "10")

	order, err := svc.CreateActivityReward(context.Background(), 7, dec("25"), 99, "за конкурс")
	require.NoError(t, err)

	assert.True(t, ledger.available[7].Equal(dec("25")))
	assert.Equal(t, StatusCompleted, order.Status)
	assert.Equal(t, KindActivityReward, order.Kind)
	assert.Equal(t, "за конкурс", order.Extra.Note)
}

func TestFractionalCommission(t *testing.T) {
	ledger := newFakeLedger()
	ledger.available[1] = dec("100")
	svc := newOrderService(ledger, newMemOrderStorage(), "2.5")

	receipt, err := svc.RequestWithdrawal(context.Background(), 1, dec("99.99"), "р")
	require.NoError(t, err)

	// 99.99 * 2.5% = 2.49975 без округления в хранимых метаданных
	assert.True(t, receipt.Commission.Equal(dec("2.499750")))
	assert.True(t, receipt.Amount.Sub(receipt.Commission).Equal(receipt.FinalAmount))
}

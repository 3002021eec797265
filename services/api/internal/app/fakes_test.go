package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

// fakeStore is an in-memory implementation of every repository interface.
// WithTx serializes callers and restores the previous state when fn fails.
type fakeStore struct {
	txMu sync.Mutex

	users     map[int64]domain.User
	keys      []domain.Key
	orders    map[int64]domain.Order
	purchases []domain.Purchase
	activity  []domain.Activity
	nextOrder int64

	// failOn makes the named method return the error.
	failOn map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[int64]domain.User),
		orders: make(map[int64]domain.Order),
		failOn: make(map[string]error),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	users := make(map[int64]domain.User, len(f.users))
	for k, v := range f.users {
		users[k] = v
	}
	orders := make(map[int64]domain.Order, len(f.orders))
	for k, v := range f.orders {
		orders[k] = v
	}
	keys := append([]domain.Key(nil), f.keys...)
	purchases := append([]domain.Purchase(nil), f.purchases...)
	activity := append([]domain.Activity(nil), f.activity...)
	nextOrder := f.nextOrder

	if err := fn(ctx); err != nil {
		f.users, f.orders, f.keys = users, orders, keys
		f.purchases, f.activity, f.nextOrder = purchases, activity, nextOrder
		return err
	}
	return nil
}

func (f *fakeStore) EnsureUser(_ context.Context, u domain.User) (bool, error) {
	if err := f.failOn["EnsureUser"]; err != nil {
		return false, err
	}
	if existing, ok := f.users[u.ID]; ok {
		if u.Username != "" {
			existing.Username = u.Username
			f.users[u.ID] = existing
		}
		return false, nil
	}
	f.users[u.ID] = u
	return true, nil
}

func (f *fakeStore) AppendActivity(_ context.Context, a domain.Activity) error {
	if err := f.failOn["AppendActivity"]; err != nil {
		return err
	}
	a.ID = int64(len(f.activity) + 1)
	f.activity = append(f.activity, a)
	return nil
}

func (f *fakeStore) CreateKey(_ context.Context, key domain.Key) (domain.Key, error) {
	for _, k := range f.keys {
		if k.Value == key.Value {
			return domain.Key{}, domain.ErrDuplicateKey
		}
	}
	key.ID = int64(len(f.keys) + 1)
	key.Used = false
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeStore) CountAvailableKeys(_ context.Context) (int, error) {
	n := 0
	for _, k := range f.keys {
		if !k.Used {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) NextAvailableKey(_ context.Context) (domain.Key, error) {
	for _, k := range f.keys {
		if !k.Used {
			return k, nil
		}
	}
	return domain.Key{}, domain.ErrNoKeyAvailable
}

func (f *fakeStore) ListKeys(_ context.Context) ([]domain.Key, error) {
	out := append([]domain.Key(nil), f.keys...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	if _, ok := f.users[order.UserID]; !ok {
		return domain.Order{}, domain.ErrInvalidID
	}
	f.nextOrder++
	order.ID = f.nextOrder
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID int64) (domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, orderID int64) (domain.Order, error) {
	return f.GetOrder(ctx, orderID)
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) ClaimAvailableKey(_ context.Context) (domain.Key, error) {
	for i, k := range f.keys {
		if !k.Used {
			f.keys[i].Used = true
			return f.keys[i], nil
		}
	}
	return domain.Key{}, domain.ErrNoKeyAvailable
}

func (f *fakeStore) ConfirmOrder(_ context.Context, orderID, keyID int64, confirmedAt time.Time) error {
	o, ok := f.orders[orderID]
	if !ok || o.Status != domain.OrderStatusPending {
		return domain.ErrOrderAlreadyConfirmed
	}
	o.Status = domain.OrderStatusConfirmed
	o.KeyID = &keyID
	o.ConfirmedAt = &confirmedAt
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) CreatePurchase(_ context.Context, p domain.Purchase) (domain.Purchase, error) {
	if err := f.failOn["CreatePurchase"]; err != nil {
		return domain.Purchase{}, err
	}
	p.ID = int64(len(f.purchases) + 1)
	f.purchases = append(f.purchases, p)
	return p, nil
}

func (f *fakeStore) ListPendingOrders(_ context.Context) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.Status == domain.OrderStatusPending {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) ListPurchasesByUser(_ context.Context, userID int64) ([]domain.Purchase, error) {
	var out []domain.Purchase
	for i := len(f.purchases) - 1; i >= 0; i-- {
		if f.purchases[i].UserID == userID {
			out = append(out, f.purchases[i])
		}
	}
	return out, nil
}

func (f *fakeStore) addOrder(userID int64, status domain.OrderStatus) domain.Order {
	f.users[userID] = domain.User{ID: userID}
	f.nextOrder++
	o := domain.Order{ID: f.nextOrder, UserID: userID, Amount: 500, Status: status}
	f.orders[o.ID] = o
	return o
}

func (f *fakeStore) addKeys(values ...string) {
	for _, v := range values {
		f.keys = append(f.keys, domain.Key{ID: int64(len(f.keys) + 1), Value: v})
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	submitted []int64
	confirmed []int64
	rejected  []int64
	err       error
}

func (n *recordingNotifier) PaymentSubmitted(_ context.Context, o domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, o.ID)
	return n.err
}

func (n *recordingNotifier) OrderConfirmed(_ context.Context, o domain.Order, _ domain.Key) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, o.ID)
	return n.err
}

func (n *recordingNotifier) OrderRejected(_ context.Context, o domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, o.ID)
	return n.err
}

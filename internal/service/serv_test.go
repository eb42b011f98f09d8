package service_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/service"
	"github.com/uteshop/ute-shop/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeUserRepo struct {
	users map[string]*models.User // ключ — email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrEmailTaken
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) MarkVerified(ctx context.Context, id int64) error {
	for _, u := range f.users {
		if u.ID == id {
			u.Verified = true
			return nil
		}
	}
	return storage.ErrUserNotFound
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, passHash []byte) error {
	for _, u := range f.users {
		if u.ID == id {
			u.PassHash = passHash
			return nil
		}
	}
	return storage.ErrUserNotFound
}

type fakeOTPStore struct {
	codes map[string]string // ключ — purpose:email
}

var _ storage.OTPStore = (*fakeOTPStore)(nil)

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]string)}
}

func (f *fakeOTPStore) IssueCode(ctx context.Context, purpose, email string, ttl time.Duration) (string, error) {
	f.codes[purpose+":"+email] = "123456"
	return "123456", nil
}

func (f *fakeOTPStore) ConsumeCode(ctx context.Context, purpose, email, code string) error {
	stored, ok := f.codes[purpose+":"+email]
	if !ok {
		return storage.ErrOTPInvalid
	}
	// как GETDEL в реальном хранилище: код сгорает при любой попытке ввода
	delete(f.codes, purpose+":"+email)
	if stored != code {
		return storage.ErrOTPInvalid
	}
	return nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendOTP(to, code, purpose string) error {
	f.sent = append(f.sent, to)
	return nil
}

type fakeProductRepo struct {
	products map[int64]*models.Product
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[int64]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, query string, page, limit int) ([]*models.Product, int, error) {
	var out []*models.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	return f.GetProductByID(ctx, id)
}

func (f *fakeProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	if p.StockQuantity < quantity {
		return storage.ErrInsufficientStock
	}
	p.StockQuantity -= quantity
	p.SoldCount += quantity
	return nil
}

func (f *fakeProductRepo) RestoreStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	p.StockQuantity += quantity
	if p.SoldCount >= quantity {
		p.SoldCount -= quantity
	} else {
		p.SoldCount = 0
	}
	return nil
}

func (f *fakeProductRepo) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	p.ID = int64(len(f.products) + 1)
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return storage.ErrProductNotFound
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

type fakeOrderRepo struct {
	orders  map[int64]*models.Order
	items   map[int64][]*models.OrderItem
	nextID  int64
	created []*models.Order
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[int64]*models.Order),
		items:  make(map[int64][]*models.OrderItem),
		nextID: 1,
	}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	order.ID = f.nextID
	order.CreatedAt = time.Now()
	f.nextID++
	f.orders[order.ID] = order
	f.created = append(f.created, order)
	return order.ID, nil
}

func (f *fakeOrderRepo) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	f.items[item.OrderID] = append(f.items[item.OrderID], item)
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context, status models.OrderStatus, page, limit int) ([]*models.Order, int, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) error {
	order, ok := f.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	if order.Status != from {
		return storage.ErrOrderStatusChanged
	}
	order.Status = to
	return nil
}

func (f *fakeOrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, from, to models.OrderStatus) error {
	return f.UpdateStatus(ctx, id, from, to)
}

func (f *fakeOrderRepo) ListStaleNew(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	var ids []int64
	for _, o := range f.orders {
		if o.Status == models.StatusNew && o.CreatedAt.Before(olderThan) {
			ids = append(ids, o.ID)
		}
	}
	return ids, nil
}

type fakeCartRepo struct {
	items map[int64][]*models.CartItem // ключ — userID
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: make(map[int64][]*models.CartItem)}
}

func (f *fakeCartRepo) GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	return f.items[userID], nil
}

func (f *fakeCartRepo) UpsertItem(ctx context.Context, userID, productID int64, quantity int) error {
	for _, it := range f.items[userID] {
		if it.ProductID == productID {
			it.Quantity += quantity
			return nil
		}
	}
	f.items[userID] = append(f.items[userID], &models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity})
	return nil
}

func (f *fakeCartRepo) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	for _, it := range f.items[userID] {
		if it.ProductID == productID {
			it.Quantity = quantity
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) RemoveItem(ctx context.Context, userID, productID int64) error {
	items := f.items[userID]
	for i, it := range items {
		if it.ProductID == productID {
			f.items[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	f.items[userID] = nil
	return nil
}

type fakeCouponRepo struct {
	coupons map[string]*models.Coupon
}

var _ storage.CouponStorage = (*fakeCouponRepo)(nil)

func (f *fakeCouponRepo) GetCouponByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*models.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, storage.ErrCouponNotFound
	}
	return c, nil
}

func (f *fakeCouponRepo) IncrementUsageTx(ctx context.Context, tx *sql.Tx, id int64) error {
	for _, c := range f.coupons {
		if c.ID == id {
			if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
				return storage.ErrCouponExhausted
			}
			c.UsedCount++
			return nil
		}
	}
	return storage.ErrCouponNotFound
}

type fakePaymentRepo struct {
	payments []*models.Payment
}

var _ storage.PaymentStorage = (*fakePaymentRepo)(nil)

func (f *fakePaymentRepo) CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) (int64, error) {
	p.ID = int64(len(f.payments) + 1)
	f.payments = append(f.payments, p)
	return p.ID, nil
}

func (f *fakePaymentRepo) GetPaymentsByUserID(ctx context.Context, userID int64) ([]*models.Payment, error) {
	return f.payments, nil
}

func (f *fakePaymentRepo) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, storage.ErrPaymentNotFound
}

func (f *fakePaymentRepo) UpdatePaymentStatus(ctx context.Context, id int64, status string) error {
	for _, p := range f.payments {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return storage.ErrPaymentNotFound
}

type fakeCancelRepo struct {
	requests map[int64]*models.CancelRequest
	nextID   int64
}

var _ storage.CancelRequestStorage = (*fakeCancelRepo)(nil)

func newFakeCancelRepo() *fakeCancelRepo {
	return &fakeCancelRepo{requests: make(map[int64]*models.CancelRequest), nextID: 1}
}

func (f *fakeCancelRepo) CreateRequestTx(ctx context.Context, tx *sql.Tx, req *models.CancelRequest) (int64, error) {
	req.ID = f.nextID
	f.nextID++
	f.requests[req.ID] = req
	return req.ID, nil
}

func (f *fakeCancelRepo) GetByID(ctx context.Context, id int64) (*models.CancelRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, storage.ErrCancelRequestNotFound
	}
	return req, nil
}

func (f *fakeCancelRepo) GetActiveByOrderID(ctx context.Context, orderID int64) (*models.CancelRequest, error) {
	for _, req := range f.requests {
		if req.OrderID == orderID && (req.Status == models.CancelPending || req.Status == models.CancelApproved) {
			return req, nil
		}
	}
	return nil, storage.ErrCancelRequestNotFound
}

func (f *fakeCancelRepo) ListPending(ctx context.Context) ([]*models.CancelRequest, error) {
	var out []*models.CancelRequest
	for _, req := range f.requests {
		if req.Status == models.CancelPending {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeCancelRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string, adminResponse string) error {
	req, ok := f.requests[id]
	if !ok || req.Status != models.CancelPending {
		return storage.ErrCancelRequestNotFound
	}
	req.Status = status
	req.AdminResponse = &adminResponse
	return nil
}

func (f *fakeCancelRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	req, ok := f.requests[id]
	if !ok || req.Status != models.CancelPending {
		return storage.ErrCancelRequestNotFound
	}
	delete(f.requests, id)
	return nil
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAuthService_LoginSuccess(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	userRepo := newFakeUserRepo()
	passHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	userRepo.users["student@ute.edu.vn"] = &models.User{
		ID:       1,
		Email:    "student@ute.edu.vn",
		PassHash: passHash,
		Role:     models.RoleCustomer,
		Verified: true,
	}

	auth := service.NewAuthService(testLogger(), userRepo, newFakeOTPStore(), &fakeMailer{}, time.Hour, 10*time.Minute)

	token, err := auth.Login(context.Background(), "student@ute.edu.vn", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	userRepo := newFakeUserRepo()
	passHash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	userRepo.users["student@ute.edu.vn"] = &models.User{
		ID: 1, Email: "student@ute.edu.vn", PassHash: passHash, Verified: true,
	}

	auth := service.NewAuthService(testLogger(), userRepo, newFakeOTPStore(), &fakeMailer{}, time.Hour, 10*time.Minute)

	_, err := auth.Login(context.Background(), "student@ute.edu.vn", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_LoginUnverified(t *testing.T) {
	userRepo := newFakeUserRepo()
	passHash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	userRepo.users["student@ute.edu.vn"] = &models.User{
		ID: 1, Email: "student@ute.edu.vn", PassHash: passHash, Verified: false,
	}

	auth := service.NewAuthService(testLogger(), userRepo, newFakeOTPStore(), &fakeMailer{}, time.Hour, 10*time.Minute)

	_, err := auth.Login(context.Background(), "student@ute.edu.vn", "password123")
	assert.ErrorIs(t, err, service.ErrEmailNotVerified)
}

func TestAuthService_RegisterAndVerify(t *testing.T) {
	userRepo := newFakeUserRepo()
	otpStore := newFakeOTPStore()
	m := &fakeMailer{}

	auth := service.NewAuthService(testLogger(), userRepo, otpStore, m, time.Hour, 10*time.Minute)

	err := auth.Register(context.Background(), "new@ute.edu.vn", "password123", "Nguyen Van A")
	require.NoError(t, err)
	assert.Len(t, m.sent, 1)

	user, err := userRepo.GetUserByEmail(context.Background(), "new@ute.edu.vn")
	require.NoError(t, err)
	assert.False(t, user.Verified)

	err = auth.VerifyEmail(context.Background(), "new@ute.edu.vn", "123456")
	require.NoError(t, err)

	user, _ = userRepo.GetUserByEmail(context.Background(), "new@ute.edu.vn")
	assert.True(t, user.Verified)

	// повторное использование кода не проходит
	err = auth.VerifyEmail(context.Background(), "new@ute.edu.vn", "123456")
	assert.ErrorIs(t, err, storage.ErrOTPInvalid)
}

func TestAuthService_VerifyWrongCodeBurnsOTP(t *testing.T) {
	userRepo := newFakeUserRepo()
	otpStore := newFakeOTPStore()

	auth := service.NewAuthService(testLogger(), userRepo, otpStore, &fakeMailer{}, time.Hour, 10*time.Minute)

	err := auth.Register(context.Background(), "new@ute.edu.vn", "password123", "Nguyen Van A")
	require.NoError(t, err)

	err = auth.VerifyEmail(context.Background(), "new@ute.edu.vn", "000000")
	assert.ErrorIs(t, err, storage.ErrOTPInvalid)

	// неверная попытка сжигает код — правильный больше не принимается
	err = auth.VerifyEmail(context.Background(), "new@ute.edu.vn", "123456")
	assert.ErrorIs(t, err, storage.ErrOTPInvalid)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	userRepo := newFakeUserRepo()
	userRepo.users["taken@ute.edu.vn"] = &models.User{ID: 1, Email: "taken@ute.edu.vn"}

	auth := service.NewAuthService(testLogger(), userRepo, newFakeOTPStore(), &fakeMailer{}, time.Hour, 10*time.Minute)

	err := auth.Register(context.Background(), "taken@ute.edu.vn", "password123", "Nguyen Van B")
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestOrderService_PlaceOrderSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 10},
		&models.Product{ID: 2, Name: "USB Cable", Price: 50000, StockQuantity: 5},
	)
	orderRepo := newFakeOrderRepo()
	paymentRepo := &fakePaymentRepo{}

	svc := service.NewOrderService(testLogger(), db, orderRepo, productRepo,
		newFakeCartRepo(), &fakeCouponRepo{}, paymentRepo, 30*time.Minute)

	order, err := svc.PlaceOrder(context.Background(), 1, service.PlaceOrderInput{
		Items: []service.OrderItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		ShippingAddress: "1 Vo Van Ngan, Thu Duc",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	// сумма = 100000*2 + 50000*1
	assert.Equal(t, int64(250000), order.TotalAmount)
	assert.Equal(t, models.StatusNew, order.Status)
	assert.Len(t, order.Items, 2)

	// остатки списаны, продажи посчитаны
	p1, _ := productRepo.GetProductByID(context.Background(), 1)
	assert.Equal(t, 8, p1.StockQuantity)
	assert.Equal(t, 2, p1.SoldCount)

	// платеж создан в pending
	require.Len(t, paymentRepo.payments, 1)
	assert.Equal(t, models.PaymentPending, paymentRepo.payments[0].Status)
	assert.Equal(t, int64(250000), paymentRepo.payments[0].Amount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_PlaceOrderInsufficientStock(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 1},
	)
	orderRepo := newFakeOrderRepo()

	svc := service.NewOrderService(testLogger(), db, orderRepo, productRepo,
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	_, err := svc.PlaceOrder(context.Background(), 1, service.PlaceOrderInput{
		Items:           []service.OrderItemInput{{ProductID: 1, Quantity: 2}},
		ShippingAddress: "1 Vo Van Ngan, Thu Duc",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)

	// заказ не создан
	assert.Empty(t, orderRepo.created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_PlaceOrderEmpty(t *testing.T) {
	db, _ := newMockDB(t)

	svc := service.NewOrderService(testLogger(), db, newFakeOrderRepo(), newFakeProductRepo(),
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	_, err := svc.PlaceOrder(context.Background(), 1, service.PlaceOrderInput{
		ShippingAddress: "1 Vo Van Ngan, Thu Duc",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	assert.ErrorIs(t, err, service.ErrEmptyOrder)
}

func TestOrderService_PlaceOrderFromCartClearsCart(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 10},
	)
	cartRepo := newFakeCartRepo()
	require.NoError(t, cartRepo.UpsertItem(context.Background(), 1, 1, 3))

	svc := service.NewOrderService(testLogger(), db, newFakeOrderRepo(), productRepo,
		cartRepo, &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	order, err := svc.PlaceOrder(context.Background(), 1, service.PlaceOrderInput{
		FromCart:        true,
		ShippingAddress: "1 Vo Van Ngan, Thu Duc",
		PaymentMethod:   models.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300000), order.TotalAmount)

	items, _ := cartRepo.GetItemsByUserID(context.Background(), 1)
	assert.Empty(t, items)
}

func TestOrderService_PlaceOrderWithCoupon(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 10},
	)
	couponRepo := &fakeCouponRepo{coupons: map[string]*models.Coupon{
		"SALE10": {ID: 1, Code: "SALE10", DiscountPercent: 10, MinOrderAmount: 100000,
			ExpiresAt: time.Now().Add(24 * time.Hour), Active: true},
	}}

	svc := service.NewOrderService(testLogger(), db, newFakeOrderRepo(), productRepo,
		newFakeCartRepo(), couponRepo, &fakePaymentRepo{}, 30*time.Minute)

	order, err := svc.PlaceOrder(context.Background(), 1, service.PlaceOrderInput{
		Items:           []service.OrderItemInput{{ProductID: 1, Quantity: 2}},
		ShippingAddress: "1 Vo Van Ngan, Thu Duc",
		PaymentMethod:   models.PaymentMethodCOD,
		CouponCode:      "SALE10",
	})
	require.NoError(t, err)

	// 200000 минус 10%
	assert.Equal(t, int64(180000), order.TotalAmount)
	assert.Equal(t, 1, couponRepo.coupons["SALE10"].UsedCount)
}

func TestOrderService_PlaceOrderExpiredCoupon(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 10},
	)
	couponRepo := &fakeCouponRepo{coupons: map[string]*models.Coupon{
		"OLD": {ID: 1, Code: "OLD", DiscountPercent: 10,
			ExpiresAt: time.Now().Add(-time.Hour), Active: true},
	}}

	svc := service.NewOrderService(testLogger(), db, newFakeOrderRepo(), productRepo,
		newFakeCartRepo(), couponRepo, &fakePaymentRepo{}, 30*time.Minute)

	_, err := svc.PlaceOrder(context.Background(), 1, service.PlaceOrderInput{
		Items:           []service.OrderItemInput{{ProductID: 1, Quantity: 1}},
		ShippingAddress: "1 Vo Van Ngan, Thu Duc",
		PaymentMethod:   models.PaymentMethodCOD,
		CouponCode:      "OLD",
	})
	assert.ErrorIs(t, err, service.ErrCouponNotApplicable)
}

func TestOrderService_GetOrderForbidden(t *testing.T) {
	db, _ := newMockDB(t)

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[7] = &models.Order{ID: 7, UserID: 2, Status: models.StatusNew}

	svc := service.NewOrderService(testLogger(), db, orderRepo, newFakeProductRepo(),
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	_, err := svc.GetOrder(context.Background(), 1, false, 7)
	assert.ErrorIs(t, err, service.ErrNotOrderOwner)

	// админу чужой заказ доступен
	order, err := svc.GetOrder(context.Background(), 1, true, 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
}

func TestOrderService_UpdateStatusInvalidTransition(t *testing.T) {
	db, _ := newMockDB(t)

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusDelivered}

	svc := service.NewOrderService(testLogger(), db, orderRepo, newFakeProductRepo(),
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	err := svc.UpdateStatus(context.Background(), 1, models.StatusShipping)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestOrderService_UpdateStatusSuccess(t *testing.T) {
	db, _ := newMockDB(t)

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusConfirmed}

	svc := service.NewOrderService(testLogger(), db, orderRepo, newFakeProductRepo(),
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	err := svc.UpdateStatus(context.Background(), 1, models.StatusPreparing)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, orderRepo.orders[1].Status)
}

func TestOrderService_CancelOwnWindowClosed(t *testing.T) {
	db, _ := newMockDB(t)

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{
		ID: 1, UserID: 1, Status: models.StatusNew,
		CreatedAt: time.Now().Add(-time.Hour),
	}

	svc := service.NewOrderService(testLogger(), db, orderRepo, newFakeProductRepo(),
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	err := svc.CancelOwn(context.Background(), 1, 1)
	assert.ErrorIs(t, err, service.ErrCancelWindowClosed)
}

func TestOrderService_CancelOwnRestoresStock(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 8, SoldCount: 2},
	)
	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{
		ID: 1, UserID: 1, Status: models.StatusNew, CreatedAt: time.Now(),
	}
	orderRepo.items[1] = []*models.OrderItem{{OrderID: 1, ProductID: 1, Quantity: 2}}

	svc := service.NewOrderService(testLogger(), db, orderRepo, productRepo,
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	err := svc.CancelOwn(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, orderRepo.orders[1].Status)
	p, _ := productRepo.GetProductByID(context.Background(), 1)
	assert.Equal(t, 10, p.StockQuantity)
	assert.Equal(t, 0, p.SoldCount)
}

func TestCancelRequestService_SubmitAndApprove(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 8, SoldCount: 2},
	)
	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusConfirmed}
	orderRepo.items[1] = []*models.OrderItem{{OrderID: 1, ProductID: 1, Quantity: 2}}
	cancelRepo := newFakeCancelRepo()

	svc := service.NewCancelRequestService(testLogger(), db, orderRepo, productRepo, cancelRepo)

	req, err := svc.Submit(context.Background(), 1, 1, "ordered by mistake, please cancel")
	require.NoError(t, err)
	assert.Equal(t, models.CancelPending, req.Status)
	assert.Equal(t, models.StatusConfirmed, req.PriorStatus)
	assert.Equal(t, models.StatusCancelRequested, orderRepo.orders[1].Status)

	err = svc.Process(context.Background(), req.ID, true, "approved, refund on the way")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, orderRepo.orders[1].Status)
	p, _ := productRepo.GetProductByID(context.Background(), 1)
	assert.Equal(t, 10, p.StockQuantity)
}

func TestCancelRequestService_RejectRevertsStatus(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusConfirmed}
	cancelRepo := newFakeCancelRepo()

	svc := service.NewCancelRequestService(testLogger(), db, orderRepo, newFakeProductRepo(), cancelRepo)

	req, err := svc.Submit(context.Background(), 1, 1, "changed my mind about the order")
	require.NoError(t, err)

	err = svc.Process(context.Background(), req.ID, false, "order already packed")
	require.NoError(t, err)

	// заказ возвращается в статус на момент подачи заявки
	assert.Equal(t, models.StatusConfirmed, orderRepo.orders[1].Status)
	assert.Equal(t, models.CancelRejected, cancelRepo.requests[req.ID].Status)
}

func TestCancelRequestService_SubmitDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusNew}
	cancelRepo := newFakeCancelRepo()

	svc := service.NewCancelRequestService(testLogger(), db, orderRepo, newFakeProductRepo(), cancelRepo)

	_, err := svc.Submit(context.Background(), 1, 1, "ordered by mistake, please cancel")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 1, 1, "ordered by mistake, please cancel")
	assert.ErrorIs(t, err, storage.ErrActiveCancelExists)
}

func TestCancelRequestService_WithdrawRevertsStatus(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusConfirmed}
	cancelRepo := newFakeCancelRepo()

	svc := service.NewCancelRequestService(testLogger(), db, orderRepo, newFakeProductRepo(), cancelRepo)

	req, err := svc.Submit(context.Background(), 1, 1, "changed my mind about the order")
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelRequested, orderRepo.orders[1].Status)

	err = svc.Withdraw(context.Background(), 1, req.ID)
	require.NoError(t, err)

	// заявка удалена, заказ вернулся в статус на момент подачи
	_, err = cancelRepo.GetByID(context.Background(), req.ID)
	assert.ErrorIs(t, err, storage.ErrCancelRequestNotFound)
	assert.Equal(t, models.StatusConfirmed, orderRepo.orders[1].Status)
}

func TestCancelRequestService_WithdrawNotOwner(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusNew}
	cancelRepo := newFakeCancelRepo()

	svc := service.NewCancelRequestService(testLogger(), db, orderRepo, newFakeProductRepo(), cancelRepo)

	req, err := svc.Submit(context.Background(), 1, 1, "ordered by mistake, please cancel")
	require.NoError(t, err)

	err = svc.Withdraw(context.Background(), 2, req.ID)
	assert.ErrorIs(t, err, service.ErrNotRequestOwner)
}

func TestCancelRequestService_WithdrawAfterDecision(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusConfirmed}
	cancelRepo := newFakeCancelRepo()

	svc := service.NewCancelRequestService(testLogger(), db, orderRepo, newFakeProductRepo(), cancelRepo)

	req, err := svc.Submit(context.Background(), 1, 1, "changed my mind about the order")
	require.NoError(t, err)

	err = svc.Process(context.Background(), req.ID, false, "order already packed")
	require.NoError(t, err)

	// после решения администратора отозвать заявку уже нельзя
	err = svc.Withdraw(context.Background(), 1, req.ID)
	assert.ErrorIs(t, err, service.ErrRequestNotPending)
	assert.Equal(t, models.StatusConfirmed, orderRepo.orders[1].Status)
	assert.Equal(t, models.CancelRejected, cancelRepo.requests[req.ID].Status)
}

func TestCancelRequestService_SubmitNotCancelable(t *testing.T) {
	db, _ := newMockDB(t)

	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 1, Status: models.StatusShipping}

	svc := service.NewCancelRequestService(testLogger(), db, orderRepo, newFakeProductRepo(), newFakeCancelRepo())

	_, err := svc.Submit(context.Background(), 1, 1, "too late but trying anyway")
	assert.ErrorIs(t, err, service.ErrOrderNotCancelable)
}

func TestReviewService_AddReviewNotPurchased(t *testing.T) {
	reviewRepo := &fakeReviewRepo{}

	svc := service.NewReviewService(testLogger(), reviewRepo)

	_, err := svc.AddReview(context.Background(), 1, 1, 5, "great product")
	assert.ErrorIs(t, err, service.ErrNotPurchased)
}

func TestReviewService_AddReviewSuccess(t *testing.T) {
	reviewRepo := &fakeReviewRepo{delivered: map[string]bool{"1:1": true}}

	svc := service.NewReviewService(testLogger(), reviewRepo)

	review, err := svc.AddReview(context.Background(), 1, 1, 5, "great product")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)

	// второй отзыв на тот же товар — дубликат
	_, err = svc.AddReview(context.Background(), 1, 1, 4, "second thoughts")
	assert.ErrorIs(t, err, storage.ErrReviewExists)
}

func TestReviewService_AverageRating(t *testing.T) {
	reviewRepo := &fakeReviewRepo{
		delivered: map[string]bool{"1:1": true, "2:1": true},
	}
	_, err := reviewRepo.CreateReview(context.Background(), &models.Review{UserID: 1, ProductID: 1, Rating: 5})
	require.NoError(t, err)
	_, err = reviewRepo.CreateReview(context.Background(), &models.Review{UserID: 2, ProductID: 1, Rating: 2})
	require.NoError(t, err)

	svc := service.NewReviewService(testLogger(), reviewRepo)

	result, err := svc.ListByProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, result.Reviews, 2)
	assert.InDelta(t, 3.5, result.AverageRating, 0.001)
}

type fakeReviewRepo struct {
	reviews   []*models.Review
	delivered map[string]bool // ключ — userID:productID
}

var _ storage.ReviewStorage = (*fakeReviewRepo)(nil)

func (f *fakeReviewRepo) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	for _, r := range f.reviews {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			return nil, storage.ErrReviewExists
		}
	}
	review.ID = int64(len(f.reviews) + 1)
	f.reviews = append(f.reviews, review)
	return review, nil
}

func (f *fakeReviewRepo) GetReviewsByProductID(ctx context.Context, productID int64) ([]*models.Review, error) {
	var out []*models.Review
	for _, r := range f.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error) {
	if f.delivered == nil {
		return false, nil
	}
	return f.delivered[fmt.Sprintf("%d:%d", userID, productID)], nil
}

func TestCartService_AddItemInsufficientStock(t *testing.T) {
	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 2},
	)

	svc := service.NewCartService(testLogger(), newFakeCartRepo(), productRepo)

	err := svc.AddItem(context.Background(), 1, 1, 5)
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)
}

func TestCartService_GetCartTotal(t *testing.T) {
	cartRepo := newFakeCartRepo()
	cartRepo.items[1] = []*models.CartItem{
		{UserID: 1, ProductID: 1, Price: 100000, Quantity: 2},
		{UserID: 1, ProductID: 2, Price: 50000, Quantity: 3},
	}

	svc := service.NewCartService(testLogger(), cartRepo, newFakeProductRepo())

	cart, err := svc.GetCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(350000), cart.Total)
}

func TestAutoConfirmWorker_ConfirmsStaleOrders(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{
		ID: 1, UserID: 1, Status: models.StatusNew,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	orderRepo.orders[2] = &models.Order{
		ID: 2, UserID: 1, Status: models.StatusNew,
		CreatedAt: time.Now(),
	}
	orderRepo.orders[3] = &models.Order{
		ID: 3, UserID: 1, Status: models.StatusCancelRequested,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}

	worker := service.NewAutoConfirmWorker(testLogger(), orderRepo, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	worker.Run(ctx)

	assert.Equal(t, models.StatusConfirmed, orderRepo.orders[1].Status)
	// свежий заказ не трогаем
	assert.Equal(t, models.StatusNew, orderRepo.orders[2].Status)
	// заказ с заявкой на отмену не подтверждается
	assert.Equal(t, models.StatusCancelRequested, orderRepo.orders[3].Status)
}

func TestOrderService_PlaceOrderCommitError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Laptop Stand", Price: 100000, StockQuantity: 10},
	)

	svc := service.NewOrderService(testLogger(), db, newFakeOrderRepo(), productRepo,
		newFakeCartRepo(), &fakeCouponRepo{}, &fakePaymentRepo{}, 30*time.Minute)

	_, err := svc.PlaceOrder(context.Background(), 1, service.PlaceOrderInput{
		Items:           []service.OrderItemInput{{ProductID: 1, Quantity: 1}},
		ShippingAddress: "1 Vo Van Ngan, Thu Duc",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	assert.Error(t, err)
}

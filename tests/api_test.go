package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://localhost:8080"

// учетные данные из seed-миграции
const (
	customerEmail = "customer@ute-shop.local"
	adminEmail    = "admin@ute-shop.local"
	seedPassword  = "password"
)

// Envelope — единый формат ответа API
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

type TokenData struct {
	Token string `json:"token"`
}

type OrderData struct {
	ID          int64  `json:"id"`
	TotalAmount int64  `json:"total_amount"`
	Status      string `json:"status"`
}

func login(t *testing.T, email, password string) string {
	reqBody := []byte(`{"email": "` + email + `", "password": "` + password + `"}`)
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewBuffer(reqBody))
	require.NoError(t, err, "login request should not error")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 OK for valid login")

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)

	var data TokenData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token, "token should not be empty")
	return data.Token
}

func doAuthed(t *testing.T, method, path, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, baseURL+path, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{}).Do(req)
	require.NoError(t, err)
	return resp
}

// сценарий с успешной аутентификацией пользователя
func TestLogin(t *testing.T) {
	token := login(t, customerEmail, seedPassword)
	assert.NotEmpty(t, token, "token should be obtained")
}

// сценарий с неверным паролем
func TestLoginInvalid(t *testing.T) {
	reqBody := []byte(`{"email": "` + customerEmail + `", "password": "wrongpass"}`)
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 for wrong password")
}

// сценарий с ошибкой валидации при регистрации
func TestRegisterValidation(t *testing.T) {
	reqBody := []byte(`{"email": "not-an-email", "password": "123", "full_name": ""}`)
	resp, err := http.Post(baseURL+"/api/auth/register", "application/json", bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for invalid registration data")

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Errors, "validation errors should be listed")
}

// каталог доступен без авторизации
func TestListProducts(t *testing.T) {
	resp, err := http.Get(baseURL + "/api/products?page=1&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 OK for product list")

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.True(t, env.Success)
}

// корзина без токена недоступна
func TestGetCartUnauthorized(t *testing.T) {
	resp, err := http.Get(baseURL + "/api/cart")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 for missing token")
}

// сценарий оформления заказа: сумма считается по ценам из каталога
func TestPlaceOrder(t *testing.T) {
	token := login(t, customerEmail, seedPassword)

	// UTE T-Shirt из seed-данных, 150000 за штуку
	body := []byte(`{
		"items": [{"product_id": 2, "quantity": 2}],
		"shipping_address": "1 Vo Van Ngan, Thu Duc, HCMC",
		"payment_method": "cod"
	}`)
	resp := doAuthed(t, http.MethodPost, "/api/orders", token, body)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode, "expected 201 for placed order")

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)

	var order OrderData
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, int64(300000), order.TotalAmount, "total should be 2 x 150000")
	assert.Equal(t, "new", order.Status)
}

// сценарий с недопустимым способом оплаты
func TestPlaceOrderInvalidPaymentMethod(t *testing.T) {
	token := login(t, customerEmail, seedPassword)

	body := []byte(`{
		"items": [{"product_id": 1, "quantity": 1}],
		"shipping_address": "1 Vo Van Ngan, Thu Duc, HCMC",
		"payment_method": "cash_under_the_table"
	}`)
	resp := doAuthed(t, http.MethodPost, "/api/orders", token, body)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for unknown payment method")
}

// свежий заказ отменяется напрямую, в пределах окна
func TestPlaceAndCancelOrder(t *testing.T) {
	token := login(t, customerEmail, seedPassword)

	body := []byte(`{
		"items": [{"product_id": 4, "quantity": 1}],
		"shipping_address": "1 Vo Van Ngan, Thu Duc, HCMC",
		"payment_method": "momo"
	}`)
	resp := doAuthed(t, http.MethodPost, "/api/orders", token, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var order OrderData
	require.NoError(t, json.Unmarshal(env.Data, &order))

	cancelResp := doAuthed(t, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", order.ID), token, nil)
	defer cancelResp.Body.Close()
	assert.Equal(t, http.StatusOK, cancelResp.StatusCode, "expected 200 for direct cancel within window")
}

// отзыв без доставленного заказа не принимается
func TestAddReviewWithoutPurchase(t *testing.T) {
	token := login(t, customerEmail, seedPassword)

	body := []byte(`{"rating": 5, "comment": "looks nice on the photos"}`)
	resp := doAuthed(t, http.MethodPost, "/api/products/5/reviews", token, body)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for review without delivered order")
}

// администраторские маршруты закрыты для обычного пользователя
func TestAdminForbiddenForCustomer(t *testing.T) {
	token := login(t, customerEmail, seedPassword)

	resp := doAuthed(t, http.MethodGet, "/api/admin/orders", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "expected 403 for non-admin")
}

// админ видит список заказов
func TestAdminListOrders(t *testing.T) {
	token := login(t, adminEmail, seedPassword)

	resp := doAuthed(t, http.MethodGet, "/api/admin/orders?status=new", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 for admin order list")
}

// полный цикл работы с корзиной
func TestCartFlow(t *testing.T) {
	token := login(t, customerEmail, seedPassword)

	addBody := []byte(`{"product_id": 5, "quantity": 3}`)
	addResp := doAuthed(t, http.MethodPost, "/api/cart/items", token, addBody)
	defer addResp.Body.Close()
	require.Equal(t, http.StatusCreated, addResp.StatusCode)

	getResp := doAuthed(t, http.MethodGet, "/api/cart", token, nil)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	delResp := doAuthed(t, http.MethodDelete, "/api/cart/items/5", token, nil)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)
}

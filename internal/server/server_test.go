package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"p2p-exchange-go/internal/api"
	"p2p-exchange-go/internal/auth"
	"p2p-exchange-go/internal/bot"
	"p2p-exchange-go/internal/database"
	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/notify"

	"gopkg.in/telebot.v3"
)

const testBotToken = "123456:TEST-TOKEN"

type fakeBot struct {
	updates []telebot.Update
	setups  int
}

func (b *fakeBot) HandleUpdate(update telebot.Update) {
	b.updates = append(b.updates, update)
}

func (b *fakeBot) Setup() (*bot.SetupResult, error) {
	b.setups++
	return &bot.SetupResult{WebhookURL: "https://example.com/api/telegram/webhook"}, nil
}

type testServer struct {
	handler http.Handler
	db      *database.Service
	bot     *fakeBot
}

func setupTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "server.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	fake := &fakeBot{}
	srv := New(models.ServerConfig{Addr: ":0"}, Dependencies{
		Ledger:      api.NewLedgerService(db, api.Dependencies{Notifier: notify.NewService(db, nil)}),
		Auth:        auth.NewManager(db, models.AuthConfig{}, testBotToken),
		Bot:         fake,
		AdminIDs:    []int64{900},
		AdminAPIKey: "setup-key",
	})

	cleanup := func() {
		db.Close()
	}

	return &testServer{handler: srv.Handler(), db: db, bot: fake}, cleanup
}

// signedInitData builds Mini App launch data the way Telegram signs it
func signedInitData(telegramId int64, username string) string {
	values := url.Values{}
	values.Set("user", fmt.Sprintf(`{"id":%d,"username":%q}`, telegramId, username))
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))

	var pairs []string
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testBotToken))
	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(pairs, "\n")))

	values.Set("hash", hex.EncodeToString(h.Sum(nil)))
	return values.Encode()
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	ts.handler.ServeHTTP(recorder, req)
	return recorder
}

// login returns the session cookie and the user id of a fresh Telegram login
func (ts *testServer) login(t *testing.T, telegramId int64, username string) (*http.Cookie, string) {
	t.Helper()

	recorder := ts.do(t, http.MethodPost, "/api/auth/telegram", map[string]string{"initData": signedInitData(telegramId, username)}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected login status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var body struct {
		Ok   bool `json:"ok"`
		User struct {
			Id         string `json:"id"`
			TelegramId int64  `json:"telegramId"`
		} `json:"user"`
	}
	decodeBody(t, recorder, &body)
	if !body.Ok || body.User.TelegramId != telegramId {
		t.Fatalf("Unexpected login body %s", recorder.Body.String())
	}

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == auth.CookieName {
			return cookie, body.User.Id
		}
	}
	t.Fatal("Expected a session cookie")
	return nil, ""
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), dst); err != nil {
		t.Fatalf("Failed to decode %s: %v", recorder.Body.String(), err)
	}
}

func expectStatus(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, recorder.Code, recorder.Body.String())
	}
}

func TestHealth(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	expectStatus(t, ts.do(t, http.MethodGet, "/healthz", nil, nil), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/healthz", nil, nil), http.StatusOK)
}

func TestTelegramLogin(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	expectStatus(t, ts.do(t, http.MethodPost, "/api/auth/telegram", map[string]string{}, nil), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/auth/telegram", map[string]string{"initData": "user=%7B%7D&hash=abc"}, nil), http.StatusUnauthorized)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/auth/telegram", `{"initData":"x","extra":1}`, nil), http.StatusBadRequest)

	cookie, userId := ts.login(t, 77, "trader")
	if !cookie.HttpOnly {
		t.Error("Expected HttpOnly session cookie")
	}

	recorder := ts.do(t, http.MethodGet, "/me", nil, cookie)
	expectStatus(t, recorder, http.StatusOK)

	var me struct {
		User    models.User `json:"user"`
		IsAdmin bool        `json:"isAdmin"`
	}
	decodeBody(t, recorder, &me)
	if me.User.Id != userId || me.IsAdmin {
		t.Errorf("Unexpected /me body %s", recorder.Body.String())
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/auth/logout", nil, cookie), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/me", nil, cookie), http.StatusUnauthorized)
}

func TestRoutesRequireSession(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	for _, path := range []string{"/api/offers", "/offers", "/api/requests", "/api/transactions", "/api/wallets", "/api/notifications"} {
		recorder := ts.do(t, http.MethodGet, path, nil, nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for %s, got %d", path, recorder.Code)
		}
	}
}

type offerBody struct {
	Offer models.Offer `json:"offer"`
}

type requestBody struct {
	Request     models.Request     `json:"request"`
	Transaction models.Transaction `json:"transaction"`
}

func TestDealLifecycleOverHTTP(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	seller, sellerId := ts.login(t, 1, "seller")
	buyer, buyerId := ts.login(t, 2, "buyer")

	recorder := ts.do(t, http.MethodPost, "/api/offers", map[string]any{
		"type": "sell", "crypto": "usdt", "network": "trc20", "amount": "100", "currency": "rub", "rate": "95.5",
		"minAmount": "10", "maxAmount": "50",
	}, seller)
	expectStatus(t, recorder, http.StatusCreated)

	var created offerBody
	decodeBody(t, recorder, &created)
	offerId := created.Offer.Id
	if created.Offer.Type != models.OfferTypeSell || created.Offer.Crypto != "USDT" {
		t.Errorf("Expected normalized SELL USDT offer, got %+v", created.Offer)
	}

	recorder = ts.do(t, http.MethodPost, "/api/requests", map[string]any{"offerId": offerId, "amount": "30"}, buyer)
	expectStatus(t, recorder, http.StatusCreated)

	var requested requestBody
	decodeBody(t, recorder, &requested)
	requestId := requested.Request.Id

	recorder = ts.do(t, http.MethodGet, "/api/offers/"+offerId, nil, buyer)
	expectStatus(t, recorder, http.StatusOK)
	var fetched offerBody
	decodeBody(t, recorder, &fetched)
	if fetched.Offer.Remaining.String() != "70" {
		t.Errorf("Expected remaining 70, got %s", fetched.Offer.Remaining)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/requests/"+requestId+"/complete", nil, buyer), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/requests/"+requestId+"/accept", nil, buyer), http.StatusForbidden)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/requests/"+requestId+"/accept", nil, seller), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/requests/"+requestId+"/accept", nil, seller), http.StatusBadRequest)

	recorder = ts.do(t, http.MethodPost, "/api/requests/"+requestId+"/complete", nil, buyer)
	expectStatus(t, recorder, http.StatusOK)

	var completed requestBody
	decodeBody(t, recorder, &completed)
	if completed.Request.Status != models.RequestStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", completed.Request.Status)
	}
	if completed.Transaction.BuyerId != buyerId || completed.Transaction.SellerId != sellerId {
		t.Errorf("Expected buyer %s seller %s, got %+v", buyerId, sellerId, completed.Transaction)
	}

	recorder = ts.do(t, http.MethodGet, "/api/transactions", nil, seller)
	expectStatus(t, recorder, http.StatusOK)
	var txs struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	decodeBody(t, recorder, &txs)
	if len(txs.Transactions) != 1 {
		t.Errorf("Expected 1 transaction, got %d", len(txs.Transactions))
	}

	rating := map[string]any{"transactionId": completed.Transaction.Id, "score": 5, "comment": "fast"}
	expectStatus(t, ts.do(t, http.MethodPost, "/api/ratings", rating, buyer), http.StatusCreated)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/ratings", rating, buyer), http.StatusBadRequest)

	recorder = ts.do(t, http.MethodGet, "/api/users/"+sellerId+"/rating", nil, buyer)
	expectStatus(t, recorder, http.StatusOK)
	var summary struct {
		Rating models.RatingSummary `json:"rating"`
	}
	decodeBody(t, recorder, &summary)
	if summary.Rating.TotalDeals != 1 || summary.Rating.AverageRating != 5 {
		t.Errorf("Unexpected summary %+v", summary.Rating)
	}

	recorder = ts.do(t, http.MethodGet, "/api/ratings?userId="+sellerId, nil, buyer)
	expectStatus(t, recorder, http.StatusOK)

	recorder = ts.do(t, http.MethodGet, "/api/notifications?unread=1", nil, seller)
	expectStatus(t, recorder, http.StatusOK)
	var notes struct {
		Notifications []models.Notification `json:"notifications"`
	}
	decodeBody(t, recorder, &notes)
	if len(notes.Notifications) != 3 {
		t.Fatalf("Expected 3 unread notifications for the seller, got %d", len(notes.Notifications))
	}

	recorder = ts.do(t, http.MethodPatch, "/api/notifications", nil, seller)
	expectStatus(t, recorder, http.StatusOK)
	var marked struct {
		Updated int64 `json:"updated"`
	}
	decodeBody(t, recorder, &marked)
	if marked.Updated != 3 {
		t.Errorf("Expected 3 notifications marked read, got %d", marked.Updated)
	}

	recorder = ts.do(t, http.MethodGet, "/api/notifications?unread=1", nil, seller)
	expectStatus(t, recorder, http.StatusOK)
	decodeBody(t, recorder, &notes)
	if len(notes.Notifications) != 0 {
		t.Errorf("Expected no unread notifications, got %d", len(notes.Notifications))
	}
}

func TestLedgerErrorMapping(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	seller, _ := ts.login(t, 1, "seller")
	other, _ := ts.login(t, 3, "other")

	recorder := ts.do(t, http.MethodPost, "/api/offers", map[string]any{
		"type": "SELL", "crypto": "USDT", "network": "TRC20", "amount": "100", "currency": "RUB", "rate": "90",
	}, seller)
	expectStatus(t, recorder, http.StatusCreated)
	var created offerBody
	decodeBody(t, recorder, &created)
	offerId := created.Offer.Id

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		cookie *http.Cookie
		want   int
	}{
		{"self request", http.MethodPost, "/api/requests", map[string]any{"offerId": offerId, "amount": "10"}, seller, http.StatusBadRequest},
		{"over remaining", http.MethodPost, "/api/requests", map[string]any{"offerId": offerId, "amount": "101"}, other, http.StatusBadRequest},
		{"unknown offer", http.MethodPost, "/api/requests", map[string]any{"offerId": "missing", "amount": "10"}, other, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/requests", `{"offerId":"x","amount":"1","bogus":true}`, other, http.StatusBadRequest},
		{"negative amount offer", http.MethodPost, "/api/offers", map[string]any{"type": "SELL", "crypto": "USDT", "network": "TRC20", "amount": "-1", "currency": "RUB", "rate": "90"}, seller, http.StatusBadRequest},
		{"patch by other", http.MethodPatch, "/api/offers/" + offerId, map[string]any{"rate": "91"}, other, http.StatusForbidden},
		{"close by other", http.MethodDelete, "/api/offers/" + offerId, nil, other, http.StatusForbidden},
		{"get missing offer", http.MethodGet, "/api/offers/missing", nil, other, http.StatusNotFound},
		{"foreign offer requests", http.MethodGet, "/api/requests?offerId=" + offerId, nil, other, http.StatusForbidden},
		{"bad page", http.MethodGet, "/api/offers?page=abc", nil, other, http.StatusBadRequest},
		{"bad rate filter", http.MethodGet, "/api/offers?minRate=cheap", nil, other, http.StatusBadRequest},
		{"ratings without user", http.MethodGet, "/api/ratings", nil, other, http.StatusBadRequest},
		{"missing rating summary", http.MethodGet, "/api/users/missing/rating", nil, other, http.StatusNotFound},
		{"missing wallet", http.MethodDelete, "/api/wallets/missing", nil, other, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := ts.do(t, tt.method, tt.path, tt.body, tt.cookie)
			if recorder.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, recorder.Code, recorder.Body.String())
			}
			var body errorResponse
			decodeBody(t, recorder, &body)
			if body.Error == "" {
				t.Errorf("Expected an error message, got %s", recorder.Body.String())
			}
		})
	}

	expectStatus(t, ts.do(t, http.MethodDelete, "/api/offers/"+offerId, nil, seller), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/offers/"+offerId, nil, seller), http.StatusOK)
}

func TestWalletsOverHTTP(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	owner, _ := ts.login(t, 10, "owner")
	stranger, _ := ts.login(t, 11, "stranger")

	recorder := ts.do(t, http.MethodPost, "/api/wallets", map[string]any{"type": "card", "value": "4111", "isDefault": true}, owner)
	expectStatus(t, recorder, http.StatusCreated)
	var created struct {
		Wallet models.Wallet `json:"wallet"`
	}
	decodeBody(t, recorder, &created)

	expectStatus(t, ts.do(t, http.MethodPost, "/api/wallets", map[string]any{"type": "card"}, owner), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPatch, "/api/wallets/"+created.Wallet.Id, map[string]any{"label": "main"}, stranger), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodPatch, "/api/wallets/"+created.Wallet.Id, map[string]any{"label": "main"}, owner), http.StatusOK)

	recorder = ts.do(t, http.MethodGet, "/api/wallets", nil, owner)
	expectStatus(t, recorder, http.StatusOK)
	var listed struct {
		Wallets []models.Wallet `json:"wallets"`
	}
	decodeBody(t, recorder, &listed)
	if len(listed.Wallets) != 1 || listed.Wallets[0].Label == nil || *listed.Wallets[0].Label != "main" {
		t.Errorf("Unexpected wallets %s", recorder.Body.String())
	}

	expectStatus(t, ts.do(t, http.MethodDelete, "/api/wallets/"+created.Wallet.Id, nil, owner), http.StatusOK)
}

func TestAdminRoutes(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	user, _ := ts.login(t, 5, "user")
	admin, _ := ts.login(t, 900, "admin")

	expectStatus(t, ts.do(t, http.MethodGet, "/api/admin/stats", nil, user), http.StatusForbidden)

	recorder := ts.do(t, http.MethodGet, "/api/admin/stats", nil, admin)
	expectStatus(t, recorder, http.StatusOK)
	var stats struct {
		Stats models.Stats `json:"stats"`
	}
	decodeBody(t, recorder, &stats)
	if stats.Stats.Users != 2 {
		t.Errorf("Expected 2 users, got %d", stats.Stats.Users)
	}

	recorder = ts.do(t, http.MethodGet, "/api/admin/users?page=1&pageSize=1", nil, admin)
	expectStatus(t, recorder, http.StatusOK)
	var users struct {
		Users []models.User `json:"users"`
		Total int           `json:"total"`
	}
	decodeBody(t, recorder, &users)
	if len(users.Users) != 1 || users.Total != 2 {
		t.Errorf("Expected 1 of 2 users, got %s", recorder.Body.String())
	}
}

func TestTelegramWebhookAndSetup(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	expectStatus(t, ts.do(t, http.MethodPost, "/api/telegram/webhook", `{"update_id":7,"message":{"message_id":1,"text":"/start"}}`, nil), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/telegram/webhook", `not json`, nil), http.StatusOK)
	if len(ts.bot.updates) != 1 || ts.bot.updates[0].ID != 7 {
		t.Errorf("Expected one forwarded update with id 7, got %+v", ts.bot.updates)
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/telegram/setup", nil, nil), http.StatusUnauthorized)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/telegram/setup?key=wrong", nil, nil), http.StatusUnauthorized)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/telegram/setup?key=setup-key", nil, nil), http.StatusOK)
	if ts.bot.setups != 1 {
		t.Errorf("Expected one setup call, got %d", ts.bot.setups)
	}
}

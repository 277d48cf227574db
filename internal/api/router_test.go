package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/internal/infrastructure/lock"
	"ece-marketplace/internal/infrastructure/mysql"
	infraredis "ece-marketplace/internal/infrastructure/redis"
	"ece-marketplace/internal/infrastructure/sqlite"
	"ece-marketplace/internal/services"
	"ece-marketplace/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "s3cret"

type apiFixture struct {
	e     *echo.Echo
	repos domain.Repositories
	mr    *miniredis.Miniredis
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewNop()
	store := mysql.NewStore(db)
	repos := mysql.NewRepositories(store)
	cacheStore := infraredis.NewRedisCacheStore(client)
	events := infraredis.NewEventPublisher(client, "ece:")

	cache := services.NewCacheService(cacheStore, repos.Catalog, repos.Bids, store, "ece:", log)
	validator := services.NewBidValidator(cacheStore, "ece:")
	require.NoError(t, validator.LoadRules(ctx))
	locker := lock.NewLocalAuctionLocker()
	engine := services.NewAutoBidService(store, repos, locker, validator, events, events, cache, log)
	manager := services.NewAuctionManager(store, repos, locker, engine, validator, events, events, cache, log)

	e := NewRouter(Services{
		Ledger:         services.NewLedgerService(store, repos.Users, repos.Transactions, log),
		Orders:         services.NewOrderService(store, repos.Users, repos.Orders, log),
		AuctionManager: manager,
		Engine:         engine,
		Cache:          cache,
	}, RouterConfig{AdminToken: testAdminToken}, log)

	return &apiFixture{e: e, repos: repos, mr: mr}
}

func (f *apiFixture) user(t *testing.T, id, balance string) {
	t.Helper()
	require.NoError(t, f.repos.Users.CreateUser(context.Background(), &domain.UserAccount{
		ID:       id,
		Username: id,
		Balance:  decimal.RequireFromString(balance),
	}))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (f *apiFixture) do(t *testing.T, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func TestWalletEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.user(t, "alice", "100")

	code, env := f.do(t, http.MethodPost, "/api/v1/wallet", `{"userId":"alice","type":"DEPOSIT","amount":50}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.Equal(t, "Transaction processed successfully", env.Message)

	code, env = f.do(t, http.MethodPost, "/api/v1/wallet", `{"userId":"alice","type":"WITHDRAWAL","amount":"1000"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, "Insufficient balance", env.Error)

	code, env = f.do(t, http.MethodPost, "/api/v1/wallet", `{"userId":"alice","type":"DEPOSIT"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required fields: userId, type, amount", env.Error)

	code, env = f.do(t, http.MethodGet, "/api/v1/wallet?userId=alice", "")
	require.Equal(t, http.StatusOK, code)
	var wallet struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &wallet))
	assert.True(t, decimal.NewFromInt(150).Equal(wallet.Balance))

	code, env = f.do(t, http.MethodGet, "/api/v1/wallet", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User ID is required", env.Error)

	code, _ = f.do(t, http.MethodGet, "/api/v1/wallet?userId=ghost", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)
	body := `{"orderId":"ord_missing","action":"update_status","data":{"status":"IN_PROGRESS"}}`

	code, env := f.do(t, http.MethodPut, "/api/v1/admin/orders", body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized - Admin access required", env.Error)

	code, _ = f.do(t, http.MethodPut, "/api/v1/admin/orders", body, echo.HeaderAuthorization, "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodPut, "/api/v1/admin/orders", body, echo.HeaderAuthorization, "Bearer "+testAdminToken)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	f.user(t, "alice", "5000")

	code, env := f.do(t, http.MethodPost, "/api/v1/orders",
		`{"userId":"alice","projectType":"LANDING_PAGE","title":"Drop","description":"Spring drop","timeline":"STANDARD_1_MONTH"}`)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var order domain.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, domain.OrderPending, order.Status)

	code, env = f.do(t, http.MethodPost, "/api/v1/orders",
		`{"userId":"alice","projectType":"CUSTOM","title":"Big","description":"Too big","timeline":"RUSH_2_WEEKS"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "Insufficient ECE balance")

	code, _ = f.do(t, http.MethodPut, "/api/v1/orders?id="+order.ID, `{"action":"cancel","userId":"alice"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.do(t, http.MethodPut, "/api/v1/orders?id="+order.ID, `{"action":"cancel","userId":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuctionBiddingOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	end := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	code, env := f.do(t, http.MethodPost, "/api/v1/auctions",
		`{"sellerId":"seller","title":"Holo dragon","startingPrice":100,"bidIncrement":10,"endTime":"`+end+`"}`)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var auction domain.Auction
	require.NoError(t, json.Unmarshal(env.Data, &auction))

	base := "/api/v1/auctions/" + auction.ID

	code, env = f.do(t, http.MethodPost, base+"/bids", `{"userId":"bob","amount":0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "amount must be greater than 0", env.Error)

	code, env = f.do(t, http.MethodPost, base+"/bids", `{"amount":120}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: userId", env.Error)

	code, env = f.do(t, http.MethodPost, base+"/bids", `{"userId":"bob","amount":"120"}`)
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = f.do(t, http.MethodPost, base+"/auto-bid", `{"userId":"alice","maxBidAmount":200,"strategy":"yolo"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid value for strategy", env.Error)

	code, _ = f.do(t, http.MethodPost, base+"/auto-bid", `{"userId":"alice","maxBidAmount":200,"strategy":"aggressive"}`)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = f.do(t, http.MethodPost, base+"/auto-bid", `{"userId":"alice","maxBidAmount":300}`)
	assert.Equal(t, http.StatusConflict, code)

	code, env = f.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Auction      domain.Auction `json:"auction"`
		AutoBidRules int            `json:"autoBidRules"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "alice", detail.Auction.HighestBidderID)
	assert.Equal(t, 1, detail.AutoBidRules)

	code, env = f.do(t, http.MethodGet, base+"/bids/history", "")
	require.Equal(t, http.StatusOK, code)
	var history []domain.Bid
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.True(t, decimal.NewFromInt(130).Equal(history[0].Amount))

	code, _ = f.do(t, http.MethodPost, base+"/close", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodPost, base+"/bids", `{"userId":"bob","amount":500}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/auctions/auction_missing", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCatalogEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/leaderboards/weekly", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid leaderboard type", env.Error)

	code, _ = f.do(t, http.MethodGet, "/api/v1/sessions/alice", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = f.do(t, http.MethodPut, "/api/v1/sessions/alice", `{"data":{"deck":"dragons"}}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session stored", env.Message)

	code, _ = f.do(t, http.MethodGet, "/api/v1/sessions/alice", "")
	assert.Equal(t, http.StatusOK, code)

	code, env = f.do(t, http.MethodGet, "/api/v1/marketplace/listings?maxPrice=cheap", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid maxPrice", env.Error)

	code, _ = f.do(t, http.MethodGet, "/api/v1/cards/card_missing", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthReflectsCache(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"marketplace-api"`)

	f.mr.Close()
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	f := newAPIFixture(t)
	code, env := f.do(t, http.MethodGet, "/api/v1/nowhere", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

package localbitcoins

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/localbitcoins/crypto"
	"github.com/thrasher-corp/localbitcoins/request"
)

const (
	testAPIKey    = "abc"
	testAPISecret = "xyz"
)

func testClient(t *testing.T, srv *httptest.Server) *LocalBitcoins {
	t.Helper()
	l, err := New(testAPIKey, testAPISecret,
		WithHTTPClient(srv.Client()),
		WithLimiter(request.NewBasicRateLimit(0, 0)))
	require.NoError(t, err, "New must not error")
	require.NoError(t, l.SetAPIURL(srv.URL))
	return l
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New("", "")
	assert.ErrorIs(t, err, ErrCredentialsUnset)
	_, err = New("key", "")
	assert.ErrorIs(t, err, ErrCredentialsUnset)
	_, err = New("", "secret")
	assert.ErrorIs(t, err, ErrCredentialsUnset)

	l, err := New("key", "secret")
	require.NoError(t, err)
	assert.Equal(t, localbitcoinsAPIURL, l.APIURL())
	assert.NotNil(t, l.Requester)
}

func TestSetAPIURL(t *testing.T) {
	t.Parallel()
	l, err := New("key", "secret")
	require.NoError(t, err)

	assert.ErrorIs(t, l.SetAPIURL("://bad"), errInvalidAPIURL)
	assert.ErrorIs(t, l.SetAPIURL("ftp://example.com"), errInvalidAPIURL)

	require.NoError(t, l.SetAPIURL("https://example.com/"))
	assert.Equal(t, "https://example.com", l.APIURL(), "trailing slash should be trimmed")
}

func TestSignRequest(t *testing.T) {
	t.Parallel()
	l, err := New(testAPIKey, testAPISecret)
	require.NoError(t, err)

	headers := l.signRequest("1700000000000000", "/api/myself/", "")
	assert.Equal(t, testAPIKey, headers["Apiauth-Key"])
	assert.Equal(t, "1700000000000000", headers["Apiauth-Nonce"])
	assert.Equal(t,
		"368A70632C290980E8A52EFA83092588F60DA511EEA8CF9D9828B3388D920690",
		headers["Apiauth-Signature"])
	assert.Equal(t, "application/x-www-form-urlencoded", headers["Content-Type"])

	// Recomputing with identical inputs must yield the identical signature
	again := l.signRequest("1700000000000000", "/api/myself/", "")
	assert.Equal(t, headers["Apiauth-Signature"], again["Apiauth-Signature"])
}

func TestSignRequestNonceSensitivity(t *testing.T) {
	t.Parallel()
	l, err := New(testAPIKey, testAPISecret)
	require.NoError(t, err)

	first := l.signRequest("1700000000000000", "/api/myself/", "")
	second := l.signRequest("1700000000000001", "/api/myself/", "")
	assert.Equal(t,
		"5F13A4A1B8BD8C54E1763CA0E9B58B8101EF80F6E823ACCF3E287C6C72D5AFC0",
		second["Apiauth-Signature"])
	assert.NotEqual(t, first["Apiauth-Signature"], second["Apiauth-Signature"],
		"distinct nonces must produce distinct signatures")
}

func TestSignRequestWithParams(t *testing.T) {
	t.Parallel()
	l, err := New(testAPIKey, testAPISecret)
	require.NoError(t, err)

	headers := l.signRequest("1700000000000000", "/api/pincode/", "pincode=1234")
	assert.Equal(t,
		"8E4316D8D2C555D4B99F445B4E0BF2E9649ABB19854814F650BA7C17A9D9728C",
		headers["Apiauth-Signature"])
}

// The encoded params used in signing must be byte-identical to what is
// transmitted; the handler reconstructs the signature server-side from the
// received request and it must match the supplied header.
func TestSignatureMatchesTransmission(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		message := r.Header.Get("Apiauth-Nonce") + testAPIKey + r.URL.Path + string(body)
		expected := strings.ToUpper(crypto.HexEncodeToString(
			crypto.GetHMAC(crypto.HashSHA256, []byte(message), []byte(testAPISecret))))
		assert.Equal(t, expected, r.Header.Get("Apiauth-Signature"))

		w.Write([]byte(`{"data":{"pincode_ok":true}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	ok, err := l.CheckPincode(context.Background(), 1234)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetAccountInformation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/account_info/alice/":
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Empty(t, r.Header.Get("Apiauth-Key"), "public profile lookup must not be signed")
			assert.Empty(t, r.URL.RawQuery)
			w.Write([]byte(`{"data":{"username":"alice","feedback_score":100}}`))
		case "/api/myself/":
			assert.NotEmpty(t, r.Header.Get("Apiauth-Key"))
			assert.NotEmpty(t, r.Header.Get("Apiauth-Nonce"))
			assert.NotEmpty(t, r.Header.Get("Apiauth-Signature"))
			w.Write([]byte(`{"data":{"username":"bob"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	l := testClient(t, srv)
	info, err := l.GetAccountInformation(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, 100, info.FeedbackScore)

	self, err := l.GetAccountInformation(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, "bob", self.Username)
}

func TestSetAPIURLAffectsSubsequentCallsOnly(t *testing.T) {
	t.Parallel()
	handler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"data":{"username":"` + name + `"}}`))
		}
	}
	first := httptest.NewServer(handler("first"))
	defer first.Close()
	second := httptest.NewServer(handler("second"))
	defer second.Close()

	l := testClient(t, first)
	info, err := l.GetAccountInformation(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, "first", info.Username)

	require.NoError(t, l.SetAPIURL(second.URL))
	info, err = l.GetAccountInformation(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, "second", info.Username)
}

func TestTransportErrorPropagation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := testClient(t, srv)
	_, err := l.GetWalletInfo(context.Background())
	assert.ErrorIs(t, err, request.ErrUnsuccessfulHTTPStatus,
		"a transport failure must propagate from endpoint wrappers")

	err = l.ReleaseFunds(context.Background(), "12345")
	assert.ErrorIs(t, err, request.ErrUnsuccessfulHTTPStatus)
}

func TestAPIErrorEnvelope(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":{"message":"PIN code is wrong or missing.","error_code":9}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	_, err := l.CheckPincode(context.Background(), 9999)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 9, apiErr.Code)
	assert.Contains(t, apiErr.Error(), "PIN code is wrong")
}

func TestConcurrentCallsUniqueNonces(t *testing.T) {
	t.Parallel()
	var mtx sync.Mutex
	nonces := make(map[string]struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mtx.Lock()
		nonces[r.Header.Get("Apiauth-Nonce")] = struct{}{}
		mtx.Unlock()
		w.Write([]byte(`{"data":{"contact_list":[],"contact_count":0}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	const calls = 1000
	var wg sync.WaitGroup
	wg.Add(calls)
	for i := 0; i < calls; i++ {
		go func() {
			defer wg.Done()
			_, err := l.GetDashboardInfo(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, nonces, calls, "no two concurrent calls may share a nonce")
}

func TestWalletSend(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/api/wallet-send/":
			assert.Equal(t, "address=1BitcoinEaterAddressDontSendf59kuE&amount=0.01", string(body))
		case "/api/wallet-send-pin/":
			assert.Contains(t, string(body), "pincode=5555")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"message":"Money is being sent"}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	amount := decimal.RequireFromString("0.01")
	require.NoError(t, l.WalletSend(context.Background(),
		"1BitcoinEaterAddressDontSendf59kuE", amount, 0))
	require.NoError(t, l.WalletSend(context.Background(),
		"1BitcoinEaterAddressDontSendf59kuE", amount, 5555))
}

func TestWalletSendRefused(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"message":"Insufficient balance"}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	err := l.WalletSend(context.Background(), "addr", decimal.NewFromInt(1), 0)
	assert.ErrorContains(t, err, "Insufficient balance")
}

func TestGetWalletBalance(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"message":"OK","total":{"balance":"0.05","sendable":"0.04"},"receiving_address":"1abc"}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	bal, err := l.GetWalletBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, bal.Total.Balance.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, bal.Total.Sendable.Equal(decimal.RequireFromString("0.04")))
	assert.Equal(t, "1abc", bal.ReceivingAddress)
}

func TestGetTicker(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bitcoinaverage/ticker-all-currencies/", r.URL.Path)
		w.Write([]byte(`{"USD":{"avg_1h":"42000.00","volume_btc":"12.5","rates":{"last":"41950.10"}},"EUR":{"avg_1h":"39000.00","rates":{"last":"38950.00"}}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	tick, err := l.GetTicker(context.Background())
	require.NoError(t, err)
	require.Contains(t, tick, "USD")
	assert.True(t, tick["USD"].Rates.Last.Equal(decimal.RequireFromString("41950.10")))

	currencies, err := l.GetTradableCurrencies(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"USD", "EUR"}, currencies)
}

func TestGetOrderbook(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bitcoincharts/USD/orderbook.json", r.URL.Path)
		w.Write([]byte(`{"bids":[["41000.00","0.5"],["40900.00","1.2"]],"asks":[["42000.00","0.3"]]}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	ob, err := l.GetOrderbook(context.Background(), "USD")
	require.NoError(t, err)
	require.Len(t, ob.Bids, 2)
	require.Len(t, ob.Asks, 1)
	assert.True(t, ob.Bids[0].Price.Equal(decimal.RequireFromString("41000.00")))
	assert.True(t, ob.Asks[0].Amount.Equal(decimal.RequireFromString("0.3")))
}

func TestGetOrderbookBadLevel(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"bids":[["not-a-number","0.5"]],"asks":[]}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	_, err := l.GetOrderbook(context.Background(), "USD")
	assert.Error(t, err)
}

func TestGetMessages(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/contact_messages/12345/", r.URL.Path)
		w.Write([]byte(`{"data":{"message_list":[{"msg":"hello","sender":{"username":"alice"}}],"message_count":1}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	msgs, err := l.GetMessages(context.Background(), "12345")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Msg)
	assert.Equal(t, "alice", msgs[0].Sender.Username)
}

func TestSetFeedback(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feedback/alice/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "feedback=positive&msg=great+trade", string(body))
		w.Write([]byte(`{"data":{"message":"OK"}}`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	require.NoError(t, l.SetFeedback(context.Background(), "alice", FeedbackPositive, "great trade"))

	err := l.SetFeedback(context.Background(), "alice", "amazing", "")
	assert.ErrorIs(t, err, errInvalidFeedback)
}

func TestGetTrades(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bitcoincharts/USD/trades.json", r.URL.Path)
		assert.Equal(t, "max_tid=100", r.URL.RawQuery)
		w.Write([]byte(`[{"tid":99,"date":1700000000,"amount":"0.25","price":"41000.00"}]`))
	}))
	defer srv.Close()

	l := testClient(t, srv)
	trades, err := l.GetTrades(context.Background(), "USD",
		map[string][]string{"max_tid": {"100"}})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.EqualValues(t, 99, trades[0].TID)
	assert.True(t, trades[0].Amount.Equal(decimal.RequireFromString("0.25")))
}

func TestUnwrapEnvelope(t *testing.T) {
	t.Parallel()
	var out struct {
		Username string `json:"username"`
	}
	require.NoError(t, unwrapEnvelope([]byte(`{"data":{"username":"alice"}}`), &out))
	assert.Equal(t, "alice", out.Username)

	var list []NotificationInfo
	require.NoError(t, unwrapEnvelope([]byte(`{"data":[{"msg":"hi"}]}`), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "hi", list[0].Msg)

	err := unwrapEnvelope([]byte(`{"error":{"message":"nope","error_code":44}}`), &out)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 44, apiErr.Code)
	assert.Equal(t, "nope", apiErr.Message)

	// No envelope at all decodes as-is
	out.Username = ""
	require.NoError(t, unwrapEnvelope([]byte(`{"username":"raw"}`), &out))
	assert.Equal(t, "raw", out.Username)

	require.NoError(t, unwrapEnvelope(nil, &out))
	require.NoError(t, unwrapEnvelope([]byte(`{"data":{"x":1}}`), nil))

	// Scalar data values decode directly into result
	var s string
	require.NoError(t, unwrapEnvelope([]byte(`{"data":"ok \"done\""}`), &s))
	assert.Equal(t, `ok "done"`, s)

	var n int
	require.NoError(t, unwrapEnvelope([]byte(`{"data":42}`), &n))
	assert.Equal(t, 42, n)

	var b bool
	require.NoError(t, unwrapEnvelope([]byte(`{"data":true}`), &b))
	assert.True(t, b)

	s = "untouched"
	require.NoError(t, unwrapEnvelope([]byte(`{"data":null}`), &s))
	assert.Equal(t, "untouched", s)
}

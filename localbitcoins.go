package localbitcoins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/thrasher-corp/localbitcoins/crypto"
	"github.com/thrasher-corp/localbitcoins/request"
)

const (
	localbitcoinsAPIURL = "https://localbitcoins.com"

	clientName = "LocalBitcoins"

	// Feedback Values
	FeedbackTrust                = "trust"
	FeedbackPositive             = "positive"
	FeedbackNeutral              = "neutral"
	FeedbackBlock                = "block"
	FeedbackBlockWithoutFeedback = "block_without_feedback"
)

var (
	// ErrCredentialsUnset is returned when a client is constructed, or an
	// authenticated call attempted, without both an API key and secret
	ErrCredentialsUnset = errors.New("API key and secret must be set")

	errInvalidAPIURL   = errors.New("invalid API URL")
	errInvalidFeedback = errors.New("invalid feedback value")
)

var log = logrus.WithField("exchange", "localbitcoins")

// LocalBitcoins is the overarching type across the localbitcoins package.
// It is safe for concurrent use; the only shared mutable state is the nonce
// source held by the Requester and the base URL guarded by mtx.
type LocalBitcoins struct {
	Name      string
	Verbose   bool
	Requester *request.Requester

	creds credentials

	mtx    sync.RWMutex
	apiURL string
}

// credentials are immutable once the client is constructed. The secret is
// only ever fed to the HMAC; it must never appear in logs or errors.
type credentials struct {
	key    string
	secret string
}

// Option is a construction option for New
type Option func(*LocalBitcoins)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(l *LocalBitcoins) { l.Requester.HTTPClient = c }
}

// WithLimiter overrides the default rate limit policy
func WithLimiter(limiter request.Limiter) Option {
	return func(l *LocalBitcoins) { l.Requester.Limiter = limiter }
}

// WithVerbose enables request/response tracing
func WithVerbose() Option {
	return func(l *LocalBitcoins) { l.Verbose = true }
}

// New returns a LocalBitcoins client for the supplied credentials
func New(key, secret string, opts ...Option) (*LocalBitcoins, error) {
	if key == "" || secret == "" {
		return nil, ErrCredentialsUnset
	}

	l := &LocalBitcoins{
		Name:   clientName,
		apiURL: localbitcoinsAPIURL,
		creds:  credentials{key: key, secret: secret},
	}
	l.Requester = request.New(l.Name,
		&http.Client{Timeout: request.DefaultHTTPTimeout},
		request.WithLimiter(SetRateLimit()))

	for _, o := range opts {
		o(l)
	}

	return l, nil
}

// SetAPIURL overrides the base URL for all subsequent calls. Calls already
// dispatched keep the URL captured at dispatch time.
func (l *LocalBitcoins) SetAPIURL(apiURL string) error {
	u, err := url.Parse(apiURL)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidAPIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errInvalidAPIURL, apiURL)
	}

	l.mtx.Lock()
	l.apiURL = strings.TrimSuffix(u.String(), "/")
	l.mtx.Unlock()
	return nil
}

// APIURL returns the base URL currently in use
func (l *LocalBitcoins) APIURL() string {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.apiURL
}

// SendHTTPRequest sends an unauthenticated HTTP request
func (l *LocalBitcoins) SendHTTPRequest(ctx context.Context, path string, result interface{}, ep request.EndpointLimit) error {
	var raw json.RawMessage
	err := l.Requester.SendPayload(ctx, &request.Item{
		Method:   http.MethodGet,
		Path:     l.APIURL() + path,
		Result:   &raw,
		Verbose:  l.Verbose,
		Endpoint: ep,
	})
	if err != nil {
		return err
	}
	return unwrapEnvelope(raw, result)
}

// SendAuthenticatedHTTPRequest sends an authenticated HTTP request to
// localbitcoins. The params encoding used for signing is byte-identical to
// the one transmitted; any divergence breaks the signature server side.
func (l *LocalBitcoins) SendAuthenticatedHTTPRequest(ctx context.Context, method, epPath string, params url.Values, result interface{}) error {
	if l.creds.key == "" || l.creds.secret == "" {
		return fmt.Errorf("%s %w", l.Name, ErrCredentialsUnset)
	}

	n := l.Requester.GetNonce().String()
	path := "/api/" + epPath
	encoded := params.Encode()
	headers := l.signRequest(n, path, encoded)

	if l.Verbose {
		log.Debugf("sending `%s` request, path: `%s`, params: `%s`, nonce: `%s`",
			method,
			path,
			encoded,
			n)
	}

	item := &request.Item{
		Method:      method,
		Headers:     headers,
		Result:      new(json.RawMessage),
		AuthRequest: true,
		Verbose:     l.Verbose,
		Endpoint:    request.Auth,
	}

	if method == http.MethodGet {
		if encoded != "" {
			path += "?" + encoded
		}
	} else {
		item.Body = strings.NewReader(encoded)
	}
	item.Path = l.APIURL() + path

	if err := l.Requester.SendPayload(ctx, item); err != nil {
		return err
	}
	return unwrapEnvelope(*item.Result.(*json.RawMessage), result)
}

// signRequest assembles the Apiauth headers for a single request. The signed
// message is the plain concatenation nonce+key+path+encodedParams with no
// delimiters; concatenation order and the absence of separators are a wire
// compatibility requirement.
func (l *LocalBitcoins) signRequest(n, path, encodedParams string) map[string]string {
	message := n + l.creds.key + path + encodedParams
	hmac := crypto.GetHMAC(crypto.HashSHA256,
		[]byte(message),
		[]byte(l.creds.secret))
	return map[string]string{
		"Apiauth-Key":       l.creds.key,
		"Apiauth-Nonce":     n,
		"Apiauth-Signature": strings.ToUpper(crypto.HexEncodeToString(hmac)),
		"Content-Type":      "application/x-www-form-urlencoded",
	}
}

// APIError is an error returned on the error key of an otherwise successful
// response
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("localbitcoins API error %d: %s", e.Code, e.Message)
	}
	return "localbitcoins API error: " + e.Message
}

// unwrapEnvelope surfaces the error key of a response if present, otherwise
// decodes the data key into result. Responses without an envelope (public
// market data) decode as-is.
func unwrapEnvelope(raw json.RawMessage, result interface{}) error {
	if len(raw) == 0 {
		return nil
	}

	if msg, err := jsonparser.GetString(raw, "error", "message"); err == nil && msg != "" {
		code, _ := jsonparser.GetInt(raw, "error", "error_code")
		return &APIError{Code: int(code), Message: msg}
	}

	if result == nil {
		return nil
	}

	data, dataType, _, err := jsonparser.Get(raw, "data")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return json.Unmarshal(raw, result)
	}
	if err != nil {
		return err
	}

	switch dataType {
	case jsonparser.String:
		// jsonparser hands back the string contents without quotes, so
		// re-encode before decoding into result
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return err
		}
		quoted, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return json.Unmarshal(quoted, result)
	case jsonparser.Null:
		return nil
	default:
		return json.Unmarshal(data, result)
	}
}

// GetAccountInformation retrieves the public user information on a
// LocalBitcoins user, or the token owner when self is set. The response
// contains the same information that is found on an account's public profile
// page.
func (l *LocalBitcoins) GetAccountInformation(ctx context.Context, username string, self bool) (AccountInfo, error) {
	var resp AccountInfo
	if self {
		return resp, l.call(ctx, "myself", nil, nil, &resp)
	}
	return resp, l.call(ctx, "account_info", []string{username}, nil, &resp)
}

// Getads returns information on the token owner's advertisements, or on the
// specific ad IDs supplied
func (l *LocalBitcoins) Getads(ctx context.Context, args ...string) (AdData, error) {
	var resp AdData
	if len(args) == 0 {
		return resp, l.call(ctx, "ads", nil, nil, &resp)
	}
	params := url.Values{"ads": {strings.Join(args, ",")}}
	return resp, l.call(ctx, "ad_get", nil, params, &resp)
}

// CreateAd creates a new advertisement
func (l *LocalBitcoins) CreateAd(ctx context.Context, ad *AdCreate) error {
	return l.call(ctx, "ad_create", nil, ad.params(), nil)
}

// EditAd updates an existing advertisement
func (l *LocalBitcoins) EditAd(ctx context.Context, ad *AdEdit, adID string) error {
	return l.call(ctx, "ad_edit", []string{adID}, ad.params(), nil)
}

// UpdatePriceEquation updates the price equation of an advertisement. If
// there are problems with the new equation, the price and equation are not
// updated and the advertisement remains visible.
func (l *LocalBitcoins) UpdatePriceEquation(ctx context.Context, adID, equation string) error {
	params := url.Values{"price_equation": {equation}}
	return l.call(ctx, "ad_equation", []string{adID}, params, nil)
}

// DeleteAd deletes the advertisement by adID
func (l *LocalBitcoins) DeleteAd(ctx context.Context, adID string) error {
	return l.call(ctx, "ad_delete", []string{adID}, nil, nil)
}

// ReleaseFunds releases the Bitcoin trade specified by contactID. If the
// release was successful a message is returned on the data key.
func (l *LocalBitcoins) ReleaseFunds(ctx context.Context, contactID string) error {
	return l.call(ctx, "contact_release", []string{contactID}, nil, nil)
}

// ReleaseFundsByPin releases the Bitcoin trade specified by contactID if the
// current pincode is provided
func (l *LocalBitcoins) ReleaseFundsByPin(ctx context.Context, contactID string, pin int64) error {
	params := url.Values{"pincode": {strconv.FormatInt(pin, 10)}}
	return l.call(ctx, "contact_release_pin", []string{contactID}, params, nil)
}

// MarkAsPaid marks a trade as paid
func (l *LocalBitcoins) MarkAsPaid(ctx context.Context, contactID string) error {
	return l.call(ctx, "contact_mark_as_paid", []string{contactID}, nil, nil)
}

// GetMessages returns all chat messages from the trade
func (l *LocalBitcoins) GetMessages(ctx context.Context, contactID string) ([]Message, error) {
	var resp struct {
		MessageList []Message `json:"message_list"`
	}
	return resp.MessageList, l.call(ctx, "contact_messages", []string{contactID}, nil, &resp)
}

// SendMessage posts a message to the trade
func (l *LocalBitcoins) SendMessage(ctx context.Context, contactID, msg string) error {
	params := url.Values{"msg": {msg}}
	return l.call(ctx, "contact_message_post", []string{contactID}, params, nil)
}

// Dispute starts a dispute on the specified trade if the requirements for
// starting one have been fulfilled.
//
// topic - [optional] short description of the issue to customer support
func (l *LocalBitcoins) Dispute(ctx context.Context, topic, contactID string) error {
	params := url.Values{}
	if topic != "" {
		params.Set("topic", topic)
	}
	return l.call(ctx, "contact_dispute", []string{contactID}, params, nil)
}

// CancelTrade cancels the trade if the token owner is the Bitcoin buyer.
// Bitcoin sellers cannot cancel trades.
func (l *LocalBitcoins) CancelTrade(ctx context.Context, contactID string) error {
	return l.call(ctx, "contact_cancel", []string{contactID}, nil, nil)
}

// FundTrade attempts to fund an unfunded local trade from the token owner's
// wallet. Works only if the token owner is the Bitcoin seller in the trade.
func (l *LocalBitcoins) FundTrade(ctx context.Context, contactID string) error {
	return l.call(ctx, "contact_fund", []string{contactID}, nil, nil)
}

// ConfirmRealName creates or updates a real name confirmation
func (l *LocalBitcoins) ConfirmRealName(ctx context.Context, contactID string) error {
	return l.call(ctx, "contact_mark_realname", []string{contactID}, nil, nil)
}

// VerifyIdentity marks the identity of the trade partner as verified. The
// token owner must be the advertiser in the trade.
func (l *LocalBitcoins) VerifyIdentity(ctx context.Context, contactID string) error {
	return l.call(ctx, "contact_mark_identified", []string{contactID}, nil, nil)
}

// InitiateTrade attempts to start a Bitcoin trade from the specified
// advertisement ID
func (l *LocalBitcoins) InitiateTrade(ctx context.Context, adID string, amount decimal.Decimal) error {
	params := url.Values{"amount": {amount.String()}}
	return l.call(ctx, "contact_create", []string{adID}, params, nil)
}

// GetTradeInfo returns information about a single trade the token owner is
// part in
func (l *LocalBitcoins) GetTradeInfo(ctx context.Context, contactID string) (DashBoardInfo, error) {
	var resp DashBoardInfo
	return resp, l.call(ctx, "contact_info", []string{contactID}, nil, &resp)
}

// GetDashboardInfo returns a list of open trades on the data key
// contact_list. This mirrors the website's dashboard; all contacts where the
// token owner is participating are returned.
func (l *LocalBitcoins) GetDashboardInfo(ctx context.Context) ([]DashBoardInfo, error) {
	return l.dashboard(ctx, "dashboard")
}

// GetDashboardReleasedTrades returns a list of all released trades where the
// token owner is either a buyer or seller
func (l *LocalBitcoins) GetDashboardReleasedTrades(ctx context.Context) ([]DashBoardInfo, error) {
	return l.dashboard(ctx, "dashboard_released")
}

// GetDashboardCancelledTrades returns a list of all canceled trades where
// the token owner is either a buyer or seller
func (l *LocalBitcoins) GetDashboardCancelledTrades(ctx context.Context) ([]DashBoardInfo, error) {
	return l.dashboard(ctx, "dashboard_canceled")
}

// GetDashboardClosedTrades returns a list of all closed trades where the
// token owner is either a buyer or seller
func (l *LocalBitcoins) GetDashboardClosedTrades(ctx context.Context) ([]DashBoardInfo, error) {
	return l.dashboard(ctx, "dashboard_closed")
}

func (l *LocalBitcoins) dashboard(ctx context.Context, name string) ([]DashBoardInfo, error) {
	var resp struct {
		ContactList  []DashBoardInfo `json:"contact_list"`
		ContactCount int             `json:"contact_count"`
	}
	return resp.ContactList, l.call(ctx, name, nil, nil, &resp)
}

// SetFeedback gives feedback to a user. This is only possible when there is
// a trade between the token owner and the user that is canceled or released.
// The message is mandatory with block and cleared with
// block_without_feedback.
func (l *LocalBitcoins) SetFeedback(ctx context.Context, username, feedback, msg string) error {
	switch feedback {
	case FeedbackTrust, FeedbackPositive, FeedbackNeutral,
		FeedbackBlock, FeedbackBlockWithoutFeedback:
	default:
		return fmt.Errorf("%w: %q", errInvalidFeedback, feedback)
	}

	params := url.Values{"feedback": {feedback}}
	if msg != "" {
		params.Set("msg", msg)
	}
	return l.call(ctx, "feedback", []string{username}, params, nil)
}

// Logout expires the current access token immediately
func (l *LocalBitcoins) Logout(ctx context.Context) error {
	return l.call(ctx, "logout", nil, nil, nil)
}

// CreateNewInvoice creates a new merchant invoice
func (l *LocalBitcoins) CreateNewInvoice(ctx context.Context, currency, description string, amount decimal.Decimal, returnURL string) (Invoice, error) {
	params := url.Values{
		"currency":    {currency},
		"amount":      {amount.String()},
		"description": {description},
	}
	if returnURL != "" {
		params.Set("return_url", returnURL)
	}
	var resp struct {
		Invoice Invoice `json:"invoice"`
	}
	return resp.Invoice, l.call(ctx, "new_invoice", nil, params, &resp)
}

// GetNotifications returns recent notifications
func (l *LocalBitcoins) GetNotifications(ctx context.Context) ([]NotificationInfo, error) {
	var resp []NotificationInfo
	return resp, l.call(ctx, "notifications", nil, nil, &resp)
}

// MarkNotificationRead marks a specific notification as read
func (l *LocalBitcoins) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return l.call(ctx, "notification_read", []string{notificationID}, nil, nil)
}

// CheckPincode checks the given PIN code against the token owner's currently
// active PIN code
func (l *LocalBitcoins) CheckPincode(ctx context.Context, pin int) (bool, error) {
	var resp struct {
		PinOK bool `json:"pincode_ok"`
	}
	params := url.Values{"pincode": {strconv.Itoa(pin)}}
	err := l.call(ctx, "pincode", nil, params, &resp)
	if err != nil {
		return false, err
	}
	return resp.PinOK, nil
}

// VerifyUsername returns a list of real name verifiers for the user. A list
// is returned only when there is a trade with the user where the token owner
// is the seller.
func (l *LocalBitcoins) VerifyUsername(ctx context.Context, username string) (json.RawMessage, error) {
	return l.CallRaw(ctx, "real_name_verifiers", []string{username}, nil)
}

// GetWalletInfo gets information about the token owner's wallet balance
func (l *LocalBitcoins) GetWalletInfo(ctx context.Context) (WalletInfo, error) {
	var resp WalletInfo
	err := l.call(ctx, "wallet", nil, nil, &resp)
	if err != nil {
		return WalletInfo{}, err
	}
	if resp.Message != "OK" {
		return WalletInfo{}, errors.New("unable to fetch wallet info")
	}
	return resp, nil
}

// GetWalletBalance is the same as GetWalletInfo but only returns the
// message, receiving address and total fields. Use this when transactions
// are not needed.
func (l *LocalBitcoins) GetWalletBalance(ctx context.Context) (WalletBalanceInfo, error) {
	var resp WalletBalanceInfo
	err := l.call(ctx, "wallet_balance", nil, nil, &resp)
	if err != nil {
		return WalletBalanceInfo{}, err
	}
	if resp.Message != "OK" {
		return WalletBalanceInfo{}, errors.New("unable to fetch wallet balance")
	}
	return resp, nil
}

// WalletSend sends an amount of bitcoin from the token owner's wallet to
// address. A pin greater than zero routes through the pin protected
// endpoint. It is highly recommended to minimize the lifetime of access
// tokens with the money permission; use Logout to expire the current token
// instantly.
func (l *LocalBitcoins) WalletSend(ctx context.Context, address string, amount decimal.Decimal, pin int64) error {
	params := url.Values{
		"address": {address},
		"amount":  {amount.String()},
	}
	name := "wallet_send"
	if pin > 0 {
		params.Set("pincode", strconv.FormatInt(pin, 10))
		name = "wallet_send_pin"
	}

	var resp struct {
		Message string `json:"message"`
	}
	err := l.call(ctx, name, nil, params, &resp)
	if err != nil {
		return err
	}
	if resp.Message != "Money is being sent" {
		return errors.New(resp.Message)
	}
	return nil
}

// GetWalletAddress returns an unused receiving address from the token
// owner's wallet. Note that the API may keep returning the same unused
// address if requested repeatedly.
func (l *LocalBitcoins) GetWalletAddress(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
		Address string `json:"address"`
	}
	err := l.call(ctx, "wallet_addr", nil, nil, &resp)
	if err != nil {
		return "", err
	}
	if resp.Address == "" {
		return "", errors.New("unable to fetch wallet address")
	}
	return resp.Address, nil
}

// GetCountryCodes returns a list of valid and recognized countrycodes
func (l *LocalBitcoins) GetCountryCodes(ctx context.Context) ([]string, error) {
	var resp struct {
		CC []string `json:"cc_list"`
	}
	return resp.CC, l.call(ctx, "countrycodes", nil, nil, &resp)
}

// GetCurrencies returns a list of valid and recognized fiat currencies.
// Also contains a human readable name for every currency and a boolean that
// tells if the currency is an altcoin.
func (l *LocalBitcoins) GetCurrencies(ctx context.Context) (map[string]Currency, error) {
	var resp struct {
		Currencies map[string]Currency `json:"currencies"`
	}
	return resp.Currencies, l.call(ctx, "currencies", nil, nil, &resp)
}

// GetPaymentMethods returns a list of valid payment methods, with name and
// code plus possible limitations in currencies and bank name choices
func (l *LocalBitcoins) GetPaymentMethods(ctx context.Context) (map[string]PaymentMethod, error) {
	var resp struct {
		Methods map[string]PaymentMethod `json:"methods"`
	}
	return resp.Methods, l.call(ctx, "payment_methods", nil, nil, &resp)
}

// GetPaymentMethodsByCountry returns a list of valid payment methods
// filtered by countrycode
func (l *LocalBitcoins) GetPaymentMethodsByCountry(ctx context.Context, countryCode string) (map[string]PaymentMethod, error) {
	var resp struct {
		Methods map[string]PaymentMethod `json:"methods"`
	}
	return resp.Methods, l.call(ctx, "payment_methods_country", []string{countryCode}, nil, &resp)
}

// GetTicker returns volume and price statistics for every tradable currency
func (l *LocalBitcoins) GetTicker(ctx context.Context) (map[string]Ticker, error) {
	result := make(map[string]Ticker)
	return result, l.call(ctx, "ticker", nil, nil, &result)
}

// GetTradableCurrencies returns a list of tradable fiat currencies
func (l *LocalBitcoins) GetTradableCurrencies(ctx context.Context) ([]string, error) {
	resp, err := l.GetTicker(ctx)
	if err != nil {
		return nil, err
	}

	currencies := make([]string, 0, len(resp))
	for x := range resp {
		currencies = append(currencies, x)
	}
	return currencies, nil
}

// GetTrades returns all closed trades in online buy and online sell
// categories, updated every 15 minutes
func (l *LocalBitcoins) GetTrades(ctx context.Context, currency string, values url.Values) ([]Trade, error) {
	var result []Trade
	return result, l.call(ctx, "trades", []string{currency}, values, &result)
}

// GetOrderbook returns buy and sell bitcoin online advertisements for the
// given currency. Amount is the maximum amount available for the trade
// request; price is the hourly updated price based on the ad author's
// equation and commission.
func (l *LocalBitcoins) GetOrderbook(ctx context.Context, currency string) (Orderbook, error) {
	var resp struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}

	var ob Orderbook
	if err := l.call(ctx, "orderbook", []string{currency}, nil, &resp); err != nil {
		return ob, err
	}

	var err error
	if ob.Bids, err = parseLevels(resp.Bids); err != nil {
		return ob, err
	}
	if ob.Asks, err = parseLevels(resp.Asks); err != nil {
		return ob, err
	}
	return ob, nil
}

func parseLevels(raw [][2]string) ([]Price, error) {
	levels := make([]Price, 0, len(raw))
	for x := range raw {
		price, err := decimal.NewFromString(raw[x][0])
		if err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw[x][1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, Price{Price: price, Amount: amount})
	}
	return levels, nil
}

package localbitcoins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/thrasher-corp/localbitcoins/request"
)

var (
	errUnknownEndpoint     = errors.New("unknown endpoint")
	errPathArgumentCount   = errors.New("unexpected path argument count")
	errInvalidPathArgument = errors.New("invalid path argument")
)

// endpoint describes a single API operation. Authenticated paths are
// relative to /api/ (the prefix is applied during signing); unauthenticated
// paths are absolute. args is the number of path identifiers interpolated
// into the template.
type endpoint struct {
	method string
	path   string
	args   int
	auth   bool
	limit  request.EndpointLimit
}

// endpoints drives every public wrapper. Adding an operation is a table
// entry, not a new dispatch path.
var endpoints = map[string]endpoint{
	"myself":                  {http.MethodGet, "myself/", 0, true, request.Auth},
	"ads":                     {http.MethodGet, "ads/", 0, true, request.Auth},
	"ad_get":                  {http.MethodGet, "ad-get/", 0, true, request.Auth},
	"ad_edit":                 {http.MethodPost, "ad/%s/", 1, true, request.Auth},
	"ad_create":               {http.MethodPost, "ad-create/", 0, true, request.Auth},
	"ad_equation":             {http.MethodPost, "ad-equation/%s/", 1, true, request.Auth},
	"ad_delete":               {http.MethodPost, "ad-delete/%s/", 1, true, request.Auth},
	"contact_release":         {http.MethodPost, "contact_release/%s/", 1, true, request.Auth},
	"contact_release_pin":     {http.MethodPost, "contact_release_pin/%s/", 1, true, request.Auth},
	"contact_mark_as_paid":    {http.MethodPost, "contact_mark_as_paid/%s/", 1, true, request.Auth},
	"contact_messages":        {http.MethodGet, "contact_messages/%s/", 1, true, request.Auth},
	"contact_message_post":    {http.MethodPost, "contact_message_post/%s/", 1, true, request.Auth},
	"contact_dispute":         {http.MethodPost, "contact_dispute/%s/", 1, true, request.Auth},
	"contact_cancel":          {http.MethodPost, "contact_cancel/%s/", 1, true, request.Auth},
	"contact_fund":            {http.MethodPost, "contact_fund/%s/", 1, true, request.Auth},
	"contact_mark_realname":   {http.MethodPost, "contact_mark_realname/%s/", 1, true, request.Auth},
	"contact_mark_identified": {http.MethodPost, "contact_mark_identified/%s/", 1, true, request.Auth},
	"contact_create":          {http.MethodPost, "contact_create/%s/", 1, true, request.Auth},
	"contact_info":            {http.MethodGet, "contact_info/%s/", 1, true, request.Auth},
	"dashboard":               {http.MethodGet, "dashboard/", 0, true, request.Auth},
	"dashboard_released":      {http.MethodGet, "dashboard/released/", 0, true, request.Auth},
	"dashboard_canceled":      {http.MethodGet, "dashboard/canceled/", 0, true, request.Auth},
	"dashboard_closed":        {http.MethodGet, "dashboard/closed/", 0, true, request.Auth},
	"feedback":                {http.MethodPost, "feedback/%s/", 1, true, request.Auth},
	"logout":                  {http.MethodPost, "logout/", 0, true, request.Auth},
	"new_invoice":             {http.MethodPost, "merchant/new_invoice/", 0, true, request.Auth},
	"notifications":           {http.MethodGet, "notifications/", 0, true, request.Auth},
	"notification_read":       {http.MethodPost, "notifications/mark_as_read/%s/", 1, true, request.Auth},
	"pincode":                 {http.MethodPost, "pincode/", 0, true, request.Auth},
	"real_name_verifiers":     {http.MethodGet, "real_name_verifiers/%s/", 1, true, request.Auth},
	"wallet":                  {http.MethodGet, "wallet/", 0, true, request.Auth},
	"wallet_balance":          {http.MethodGet, "wallet-balance/", 0, true, request.Auth},
	"wallet_send":             {http.MethodPost, "wallet-send/", 0, true, request.Auth},
	"wallet_send_pin":         {http.MethodPost, "wallet-send-pin/", 0, true, request.Auth},
	"wallet_addr":             {http.MethodPost, "wallet-addr/", 0, true, request.Auth},

	"account_info":            {http.MethodGet, "/api/account_info/%s/", 1, false, request.UnAuth},
	"countrycodes":            {http.MethodGet, "/api/countrycodes/", 0, false, request.UnAuth},
	"currencies":              {http.MethodGet, "/api/currencies/", 0, false, request.UnAuth},
	"payment_methods":         {http.MethodGet, "/api/payment_methods/", 0, false, request.UnAuth},
	"payment_methods_country": {http.MethodGet, "/api/payment_methods/%s/", 1, false, request.UnAuth},
	"places":                  {http.MethodGet, "/api/places/", 0, false, request.UnAuth},
	"ticker":                  {http.MethodGet, "/bitcoinaverage/ticker-all-currencies/", 0, false, tickerLimiter},
	"trades":                  {http.MethodGet, "/bitcoincharts/%s/trades.json", 1, false, marketDataLimiter},
	"orderbook":               {http.MethodGet, "/bitcoincharts/%s/orderbook.json", 1, false, orderBookLimiter},
}

// call dispatches the named catalogue operation. Path identifiers are
// validated and escaped before substitution; violations fail before any
// signing or network traffic.
func (l *LocalBitcoins) call(ctx context.Context, name string, args []string, params url.Values, result interface{}) error {
	ep, ok := endpoints[name]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownEndpoint, name)
	}
	if len(args) != ep.args {
		return fmt.Errorf("%w: %q requires %d, got %d",
			errPathArgumentCount, name, ep.args, len(args))
	}

	path := ep.path
	if len(args) != 0 {
		escaped := make([]interface{}, len(args))
		for x := range args {
			if args[x] == "" || strings.Contains(args[x], "/") {
				return fmt.Errorf("%w: %q", errInvalidPathArgument, args[x])
			}
			escaped[x] = url.PathEscape(args[x])
		}
		path = fmt.Sprintf(ep.path, escaped...)
	}

	if ep.auth {
		return l.SendAuthenticatedHTTPRequest(ctx, ep.method, path, params, result)
	}

	if len(params) != 0 {
		path += "?" + params.Encode()
	}
	return l.SendHTTPRequest(ctx, path, result, ep.limit)
}

// CallRaw invokes a catalogue operation by name and returns the raw decoded
// payload, for endpoints without a typed wrapper
func (l *LocalBitcoins) CallRaw(ctx context.Context, name string, args []string, params url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	err := l.call(ctx, name, args, params, &raw)
	return raw, err
}

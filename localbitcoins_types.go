package localbitcoins

import "github.com/shopspring/decimal"

// AccountInfo holds public user information on a LocalBitcoins user
type AccountInfo struct {
	Username             string `json:"username"`
	CreatedAt            string `json:"created_at"`
	AgeText              string `json:"age_text"`
	TradingPartners      int    `json:"trading_partners_count"`
	FeedbacksUnconfirmed int    `json:"feedbacks_unconfirmed_count"`
	TradeVolumeText      string `json:"trade_volume_text"`
	HasCommonTrades      bool   `json:"has_common_trades"`
	ConfirmedTradesText  string `json:"confirmed_trade_count_text"`
	BlockedCount         int    `json:"blocked_count"`
	FeedbackScore        int    `json:"feedback_score"`
	FeedbackCount        int    `json:"feedback_count"`
	URL                  string `json:"url"`
	TrustedCount         int    `json:"trusted_count"`
	IdentityVerifiedAt   string `json:"identity_verified_at"`
}

// AdData is a list of the token owner's advertisements
type AdData struct {
	AdList []struct {
		Data    Ad `json:"data"`
		Actions struct {
			PublicView string `json:"public_view"`
			HTMLEdit   string `json:"html_edit"`
			ChangeForm string `json:"change_form"`
		} `json:"actions"`
	} `json:"ad_list"`
	AdCount int `json:"ad_count"`
}

// Ad is an individual advertisement
type Ad struct {
	AdID              int             `json:"ad_id"`
	Visible           bool            `json:"visible"`
	TradeType         string          `json:"trade_type"`
	OnlineProvider    string          `json:"online_provider"`
	Currency          string          `json:"currency"`
	CountryCode       string          `json:"countrycode"`
	City              string          `json:"city"`
	Location          string          `json:"location_string"`
	PriceEquation     string          `json:"price_equation"`
	TempPrice         decimal.Decimal `json:"temp_price"`
	TempPriceUSD      decimal.Decimal `json:"temp_price_usd"`
	MinAmount         string          `json:"min_amount"`
	MaxAmount         string          `json:"max_amount"`
	MaxAmountAvail    string          `json:"max_amount_available"`
	RequireFeedback   int             `json:"require_feedback_score"`
	RequireTradeVol   string          `json:"require_trade_volume"`
	SMSRequired       bool            `json:"sms_verification_required"`
	TrustedRequired   bool            `json:"trusted_required"`
	TrackMaxAmount    bool            `json:"track_max_amount"`
	CreatedAt         string          `json:"created_at"`
	AccountInfo       string          `json:"account_info"`
	BankName          string          `json:"bank_name"`
	Msg               string          `json:"msg"`
	ProfileForSearch  AccountInfo     `json:"profile"`
	PaymentWindowTime int             `json:"payment_window_minutes"`
}

// AdCreate holds the fields for creating a new advertisement; zero-value
// optional fields are omitted from the form body
type AdCreate struct {
	PriceEquation  string
	Latitude       string
	Longitude      string
	City           string
	Location       string
	CountryCode    string
	Currency       string
	AccountInfo    string
	BankName       string
	TradeType      string
	MinAmount      string
	MaxAmount      string
	Msg            string
	SMSRequired    bool
	TrackMaxAmount bool
}

// AdEdit holds the mutable fields of an existing advertisement
type AdEdit struct {
	PriceEquation  string
	Currency       string
	CountryCode    string
	City           string
	Location       string
	AccountInfo    string
	BankName       string
	MinAmount      string
	MaxAmount      string
	Msg            string
	Visible        bool
	SMSRequired    bool
	TrackMaxAmount bool
}

// DashBoardInfo holds the information about a single trade (contact)
type DashBoardInfo struct {
	Data struct {
		CreatedAt string `json:"created_at"`
		Buyer     struct {
			Username      string `json:"username"`
			FeedbackScore int    `json:"feedback_score"`
			TradeCount    string `json:"trade_count"`
			LastOnline    string `json:"last_online"`
			Name          string `json:"name"`
		} `json:"buyer"`
		Seller struct {
			Username      string `json:"username"`
			FeedbackScore int    `json:"feedback_score"`
			TradeCount    string `json:"trade_count"`
			LastOnline    string `json:"last_online"`
			Name          string `json:"name"`
		} `json:"seller"`
		ReferenceCode         string          `json:"reference_code"`
		Currency              string          `json:"currency"`
		Amount                decimal.Decimal `json:"amount"`
		AmountBTC             decimal.Decimal `json:"amount_btc"`
		FeeBTC                decimal.Decimal `json:"fee_btc"`
		ExchangeRateUpdatedAt string          `json:"exchange_rate_updated_at"`
		Advertisement         struct {
			ID         int    `json:"id"`
			TradeType  string `json:"trade_type"`
			Advertiser struct {
				Username string `json:"username"`
				Name     string `json:"name"`
			} `json:"advertiser"`
		} `json:"advertisement"`
		ContactID          int64  `json:"contact_id"`
		CanceledAt         string `json:"canceled_at"`
		EscrowedAt         string `json:"escrowed_at"`
		FundedAt           string `json:"funded_at"`
		PaymentCompletedAt string `json:"payment_completed_at"`
		DisputedAt         string `json:"disputed_at"`
		ClosedAt           string `json:"closed_at"`
		ReleasedAt         string `json:"released_at"`
		IsBuying           bool   `json:"is_buying"`
		IsSelling          bool   `json:"is_selling"`
	} `json:"data"`
	Actions struct {
		MarkAsPaidURL    string `json:"mark_as_paid_url"`
		AdvertisementURL string `json:"advertisement_public_view"`
		MessageURL       string `json:"messages_url"`
		MessagePostURL   string `json:"message_post_url"`
		ReleaseURL       string `json:"release_url"`
		CancelURL        string `json:"cancel_url"`
		DisputeURL       string `json:"dispute_url"`
		FundURL          string `json:"fund_url"`
	} `json:"actions"`
}

// Message is an individual chat message on a trade
type Message struct {
	Msg    string `json:"msg"`
	Sender struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Username   string `json:"username"`
		TradeCount string `json:"trade_count"`
		LastOnline string `json:"last_seen_on"`
	} `json:"sender"`
	CreatedAt      string `json:"created_at"`
	IsAdmin        bool   `json:"is_admin"`
	AttachmentName string `json:"attachment_name"`
	AttachmentType string `json:"attachment_type"`
	AttachmentURL  string `json:"attachment_url"`
}

// WalletInfo holds wallet information including recent transactions
type WalletInfo struct {
	Message string `json:"message"`
	Total   struct {
		Balance  decimal.Decimal `json:"balance"`
		Sendable decimal.Decimal `json:"sendable"`
	} `json:"total"`
	SentTransactions30d     []WalletTransaction `json:"sent_transactions_30d"`
	ReceivedTransactions30d []WalletTransaction `json:"received_transactions_30d"`
	ReceivingAddressCount   int                 `json:"receiving_address_count"`
	ReceivingAddressList    []WalletAddressList `json:"receiving_address_list"`
}

// WalletTransaction is an individual wallet transaction
type WalletTransaction struct {
	TxID        string          `json:"txid"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	TxType      int             `json:"tx_type"`
	CreatedAt   string          `json:"created_at"`
}

// WalletAddressList is an individual wallet receiving address
type WalletAddressList struct {
	Address  string          `json:"address"`
	Received decimal.Decimal `json:"received"`
}

// WalletBalanceInfo is the message, receiving address and total fields of
// the wallet
type WalletBalanceInfo struct {
	Message string `json:"message"`
	Total   struct {
		Balance  decimal.Decimal `json:"balance"`
		Sendable decimal.Decimal `json:"sendable"`
	} `json:"total"`
	ReceivingAddress string `json:"receiving_address"`
}

// NotificationInfo holds a single notification
type NotificationInfo struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	ContactID int64  `json:"contact_id"`
	Read      bool   `json:"read"`
	Msg       string `json:"msg"`
	URL       string `json:"url"`
}

// Invoice is a merchant invoice
type Invoice struct {
	ID          string          `json:"id"`
	Created     string          `json:"created"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	AmountBTC   decimal.Decimal `json:"amount_btc"`
	Description string          `json:"description"`
	State       string          `json:"state"`
	URL         string          `json:"url"`
	ReturnURL   string          `json:"return_url"`
}

// Currency is a recognized fiat currency
type Currency struct {
	Name    string `json:"name"`
	Altcoin bool   `json:"altcoin"`
}

// PaymentMethod is a valid payment method with possible limitations
type PaymentMethod struct {
	Name       string   `json:"name"`
	Code       string   `json:"code"`
	Currencies []string `json:"currencies"`
}

// Ticker holds volume and price statistics for a currency
type Ticker struct {
	Avg12h decimal.Decimal `json:"avg_12h"`
	Avg1h  decimal.Decimal `json:"avg_1h"`
	Avg24h decimal.Decimal `json:"avg_24h"`
	Rates  struct {
		Last decimal.Decimal `json:"last"`
	} `json:"rates"`
	VolumeBTC decimal.Decimal `json:"volume_btc"`
}

// Trade is an individual closed trade
type Trade struct {
	TID    int64           `json:"tid"`
	Date   int64           `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
}

// Orderbook is buy and sell bitcoin online advertisements for a currency
type Orderbook struct {
	Bids []Price `json:"bids"`
	Asks []Price `json:"asks"`
}

// Price is an individual orderbook level
type Price struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

package localbitcoins

import "net/url"

func (a *AdCreate) params() url.Values {
	if a == nil {
		return nil
	}
	v := url.Values{}
	setIfPresent(v, "price_equation", a.PriceEquation)
	setIfPresent(v, "lat", a.Latitude)
	setIfPresent(v, "lon", a.Longitude)
	setIfPresent(v, "city", a.City)
	setIfPresent(v, "location_string", a.Location)
	setIfPresent(v, "countrycode", a.CountryCode)
	setIfPresent(v, "currency", a.Currency)
	setIfPresent(v, "account_info", a.AccountInfo)
	setIfPresent(v, "bank_name", a.BankName)
	setIfPresent(v, "trade_type", a.TradeType)
	setIfPresent(v, "min_amount", a.MinAmount)
	setIfPresent(v, "max_amount", a.MaxAmount)
	setIfPresent(v, "msg", a.Msg)
	if a.SMSRequired {
		v.Set("sms_verification_required", "true")
	}
	if a.TrackMaxAmount {
		v.Set("track_max_amount", "true")
	}
	return v
}

func (a *AdEdit) params() url.Values {
	if a == nil {
		return nil
	}
	v := url.Values{}
	setIfPresent(v, "price_equation", a.PriceEquation)
	setIfPresent(v, "currency", a.Currency)
	setIfPresent(v, "countrycode", a.CountryCode)
	setIfPresent(v, "city", a.City)
	setIfPresent(v, "location_string", a.Location)
	setIfPresent(v, "account_info", a.AccountInfo)
	setIfPresent(v, "bank_name", a.BankName)
	setIfPresent(v, "min_amount", a.MinAmount)
	setIfPresent(v, "max_amount", a.MaxAmount)
	setIfPresent(v, "msg", a.Msg)
	if a.Visible {
		v.Set("visible", "true")
	}
	if a.SMSRequired {
		v.Set("sms_verification_required", "true")
	}
	if a.TrackMaxAmount {
		v.Set("track_max_amount", "true")
	}
	return v
}

func setIfPresent(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

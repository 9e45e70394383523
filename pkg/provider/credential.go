package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Credentials is the provider-specific payload captured from the OAuth
// consent flow: a refresh token plus whatever identifiers are needed to
// address the external account's data.
type Credentials interface {
	// AccountID returns the external account identifier used for
	// destination table naming and duplicate-account checks.
	AccountID() string
	Validate() error
}

// Account ids end up embedded in destination table names, which are
// interpolated into DDL unquoted. Restricting them to an identifier-safe
// charset keeps the generated DDL fixed and closes the injection path.
var accountIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidAccountID reports whether id is safe to use as part of a destination
// table name.
func ValidAccountID(id string) bool {
	return accountIDPattern.MatchString(id)
}

func checkAccountID(system, id string) error {
	if id == "" {
		return fmt.Errorf("%s: account id is empty", system)
	}
	if !ValidAccountID(id) {
		return fmt.Errorf("%s: account id may only contain letters, digits, underscores and hyphens", system)
	}
	return nil
}

type GoogleAdsCredentials struct {
	RefreshToken          string `json:"refreshToken"`
	GoogleAccountID       string `json:"googleAccountId"`
	GoogleLoginCustomerID string `json:"googleLoginCustomerId"`
}

func (c GoogleAdsCredentials) AccountID() string {
	return c.GoogleAccountID
}

func (c GoogleAdsCredentials) Validate() error {
	if c.RefreshToken == "" {
		return errors.New("google ads: refresh token is empty")
	}
	return checkAccountID("google ads", c.GoogleAccountID)
}

type GoogleAnalyticsCredentials struct {
	RefreshToken string `json:"refreshToken"`
	PropertyID   string `json:"propertyId"`
}

func (c GoogleAnalyticsCredentials) AccountID() string {
	return c.PropertyID
}

func (c GoogleAnalyticsCredentials) Validate() error {
	if c.RefreshToken == "" {
		return errors.New("google analytics: refresh token is empty")
	}
	return checkAccountID("google analytics", c.PropertyID)
}

type FacebookAdsCredentials struct {
	RefreshToken string `json:"refreshToken"`
	AdAccountID  string `json:"adAccountId"`
}

func (c FacebookAdsCredentials) AccountID() string {
	return c.AdAccountID
}

func (c FacebookAdsCredentials) Validate() error {
	if c.RefreshToken == "" {
		return errors.New("facebook ads: refresh token is empty")
	}
	return checkAccountID("facebook ads", c.AdAccountID)
}

type ShopifyCredentials struct {
	RefreshToken string `json:"refreshToken"`
	StoreID      string `json:"storeId"`
}

func (c ShopifyCredentials) AccountID() string {
	return c.StoreID
}

func (c ShopifyCredentials) Validate() error {
	if c.RefreshToken == "" {
		return errors.New("shopify: refresh token is empty")
	}
	return checkAccountID("shopify", c.StoreID)
}

type PipedriveCredentials struct {
	RefreshToken string `json:"refreshToken"`
	CompanyID    string `json:"companyId"`
}

func (c PipedriveCredentials) AccountID() string {
	return c.CompanyID
}

func (c PipedriveCredentials) Validate() error {
	if c.RefreshToken == "" {
		return errors.New("pipedrive: refresh token is empty")
	}
	return checkAccountID("pipedrive", c.CompanyID)
}

func parseInto[T Credentials](raw []byte) (Credentials, error) {
	var c T
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

package provider

import (
	"errors"
	"strings"
)

type Type string

const (
	GoogleAds       Type = "GoogleAds"
	GoogleAnalytics Type = "GoogleAnalytics"
	FacebookAds     Type = "FacebookAds"
	Shopify         Type = "Shopify"
	Pipedrive       Type = "Pipedrive"
)

var AllTypes = []Type{
	GoogleAds,
	GoogleAnalytics,
	FacebookAds,
	Shopify,
	Pipedrive,
}

func ParseType(str string) (Type, error) {
	switch strings.ToLower(str) {
	case "googleads", "google-ads":
		return GoogleAds, nil
	case "googleanalytics", "google-analytics":
		return GoogleAnalytics, nil
	case "facebookads", "facebook-ads":
		return FacebookAds, nil
	case "shopify":
		return Shopify, nil
	case "pipedrive":
		return Pipedrive, nil
	default:
		return "", errors.New("invalid provider")
	}
}

func ParseTypes(str []string) []Type {
	result := make([]Type, 0, len(str))
	for _, s := range str {
		t, err := ParseType(s)
		if err != nil {
			continue
		}
		result = append(result, t)
	}
	return result
}

func (t Type) String() string {
	return string(t)
}

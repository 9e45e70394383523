package provider

import "fmt"

// Descriptor captures everything that differs between providers so a single
// orchestration routine can serve all of them: the abbreviation used in
// destination table names, the destination schema variant tag, and how to
// decode the credential payload.
type Descriptor struct {
	Type         Type
	Abbreviation string
	TableType    string
	Parse        func(raw []byte) (Credentials, error)
}

var descriptors = map[Type]Descriptor{
	GoogleAds: {
		Type:         GoogleAds,
		Abbreviation: "gads",
		TableType:    "ad_performance",
		Parse:        parseInto[GoogleAdsCredentials],
	},
	GoogleAnalytics: {
		Type:         GoogleAnalytics,
		Abbreviation: "ga",
		TableType:    "analytics_events",
		Parse:        parseInto[GoogleAnalyticsCredentials],
	},
	FacebookAds: {
		Type:         FacebookAds,
		Abbreviation: "fbads",
		TableType:    "ad_performance",
		Parse:        parseInto[FacebookAdsCredentials],
	},
	Shopify: {
		Type:         Shopify,
		Abbreviation: "shfy",
		TableType:    "orders",
		Parse:        parseInto[ShopifyCredentials],
	},
	Pipedrive: {
		Type:         Pipedrive,
		Abbreviation: "crm",
		TableType:    "crm_activity",
		Parse:        parseInto[PipedriveCredentials],
	},
}

func GetDescriptor(t Type) (Descriptor, error) {
	d, ok := descriptors[t]
	if !ok {
		return Descriptor{}, fmt.Errorf("no descriptor for provider type %s", t)
	}
	return d, nil
}

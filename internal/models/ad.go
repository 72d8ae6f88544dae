package models

type AdType string

const (
	AdTaskBanner                 AdType = "taskBanner"
	AdTaskCompletionInterstitial AdType = "taskCompletionInterstitial"
	AdDashboardBanner            AdType = "dashboardBanner"
)

func (t AdType) Valid() bool {
	switch t {
	case AdTaskBanner, AdTaskCompletionInterstitial, AdDashboardBanner:
		return true
	}
	return false
}

type AdPlacement struct {
	ID        string `json:"id" yaml:"id"`
	AdType    AdType `json:"ad_type" yaml:"ad_type"`
	Content   string `json:"content" yaml:"content"`
	Frequency int    `json:"frequency" yaml:"frequency"`
}

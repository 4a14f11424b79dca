package entities

// FunnelStats is the host dashboard conversion funnel.
type FunnelStats struct {
	Views    int `json:"views"`
	Checkout int `json:"checkout"`
	Payment  int `json:"payment"`
	Success  int `json:"success"`

	CheckoutRate      float64 `json:"checkout_rate"`
	PaymentRate       float64 `json:"payment_rate"`
	SuccessRate       float64 `json:"success_rate"`
	OverallConversion float64 `json:"overall_conversion"`
}

// Insights is the behavioral summary generated from 30 days of funnel data.
type Insights struct {
	Title            string   `json:"title"`
	PersonalizedNote string   `json:"personalized_note"`
	TopAction        string   `json:"top_action"`
	Recommendations  []string `json:"all_recommendations"`
	Stats            struct {
		PeakPeriod       string `json:"peak_period"`
		TopSource        string `json:"top_source"`
		ConversionHealth string `json:"conversion_health"`
	} `json:"stats"`
}

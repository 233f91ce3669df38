package settings

import (
	"github.com/shopspring/decimal"
)

// UserSettings holds the budget calculator inputs and the alert recipient.
type UserSettings struct {
	AUDBudget          decimal.Decimal `json:"audBudget"`
	TransferFeePercent float64         `json:"transferFeePercent"`
	Email              string          `json:"email"`
}

// PriceAlert is a stored threshold rule. The id is opaque, stable and
// assigned by the client that owns the list.
type PriceAlert struct {
	ID           string          `json:"id"`
	BTCThreshold decimal.Decimal `json:"btcThreshold"`
	IsEnabled    bool            `json:"isEnabled"`
}

// SettingsAndAlerts is the persisted aggregate. It is always replaced
// wholesale; no per-field patching happens at this layer.
type SettingsAndAlerts struct {
	Settings UserSettings `json:"settings"`
	Alerts   []PriceAlert `json:"alerts"`
}

// Defaults returns the aggregate served when nothing has been persisted yet
// or when the store is unreadable.
func Defaults() SettingsAndAlerts {
	return SettingsAndAlerts{
		Settings: UserSettings{
			AUDBudget:          decimal.NewFromInt(500000),
			TransferFeePercent: 1.5,
			Email:              "",
		},
		Alerts: []PriceAlert{
			{ID: "alert-106k", BTCThreshold: decimal.NewFromInt(106000), IsEnabled: true},
			{ID: "alert-100k", BTCThreshold: decimal.NewFromInt(100000), IsEnabled: false},
			{ID: "alert-90k", BTCThreshold: decimal.NewFromInt(90000), IsEnabled: false},
		},
	}
}

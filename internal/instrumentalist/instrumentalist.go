package instrumentalist

import (
	"context"
	"strings"
	"time"

	instrumentalistDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/instrumentalist"
)

const (
	PayoutMethodMobileMoney = "mobile_money"
	PayoutMethodBank        = "bank"
	PayoutMethodCash        = "cash"
)

type Instrumentalist struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	Instrument            string     `json:"instrument,omitempty"`
	IsActive              bool       `json:"is_active"`
	PreferredPayoutMethod string     `json:"preferred_payout_method"`
	MobileMoneyNumber     *string    `json:"mobile_money_number,omitempty"`
	MobileMoneyProvider   *string    `json:"mobile_money_provider,omitempty"`
	MobileMoneyName       *string    `json:"mobile_money_name,omitempty"`
	BankAccountNumber     *string    `json:"bank_account_number,omitempty"`
	BankName              *string    `json:"bank_name,omitempty"`
	BankAccountName       *string    `json:"bank_account_name,omitempty"`
	RecipientCode         *string    `json:"recipient_code,omitempty"`
	RecipientRegisteredAt *time.Time `json:"recipient_registered_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Instrumentalist, error)
	Exists(ctx context.Context, id int64) (bool, error)
	SetRecipientCode(ctx context.Context, id int64, code string) error
	Create(ctx context.Context, i *Instrumentalist) error
}

// PayoutProfile is one of MobileMoneyProfile, BankProfile or CashProfile.
type PayoutProfile interface {
	Method() string
	// Missing lists the fields that must be filled before the profile can receive transfers.
	Missing() []string
	isPayoutProfile()
}

type MobileMoneyProfile struct {
	Provider string
	Number   string
	Name     string
}

func (MobileMoneyProfile) Method() string   { return PayoutMethodMobileMoney }
func (MobileMoneyProfile) isPayoutProfile() {}

func (p MobileMoneyProfile) Missing() []string {
	return missing(map[string]string{
		"mobile_money_provider": p.Provider,
		"mobile_money_number":   p.Number,
		"mobile_money_name":     p.Name,
	}, "mobile_money_provider", "mobile_money_number", "mobile_money_name")
}

type BankProfile struct {
	AccountNumber string
	BankName      string
	AccountName   string
}

func (BankProfile) Method() string   { return PayoutMethodBank }
func (BankProfile) isPayoutProfile() {}

func (p BankProfile) Missing() []string {
	return missing(map[string]string{
		"bank_account_number": p.AccountNumber,
		"bank_name":           p.BankName,
		"bank_account_name":   p.AccountName,
	}, "bank_account_number", "bank_name", "bank_account_name")
}

type CashProfile struct{}

func (CashProfile) Method() string    { return PayoutMethodCash }
func (CashProfile) Missing() []string { return nil }
func (CashProfile) isPayoutProfile()  {}

// PayoutProfile returns the payout destination selected by the preferred payout method.
func (i *Instrumentalist) PayoutProfile() PayoutProfile {
	switch strings.ToLower(strings.TrimSpace(i.PreferredPayoutMethod)) {
	case PayoutMethodMobileMoney:
		return MobileMoneyProfile{
			Provider: deref(i.MobileMoneyProvider),
			Number:   deref(i.MobileMoneyNumber),
			Name:     deref(i.MobileMoneyName),
		}
	case PayoutMethodBank, "bank_transfer":
		return BankProfile{
			AccountNumber: deref(i.BankAccountNumber),
			BankName:      deref(i.BankName),
			AccountName:   deref(i.BankAccountName),
		}
	default:
		return CashProfile{}
	}
}

func (i *Instrumentalist) HasRecipientCode() bool {
	return i.RecipientCode != nil && *i.RecipientCode != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func missing(values map[string]string, order ...string) []string {
	var out []string
	for _, field := range order {
		if values[field] == "" {
			out = append(out, field)
		}
	}
	return out
}

func ToDataModel(i *Instrumentalist) *instrumentalistDatamodel.Instrumentalist {
	return &instrumentalistDatamodel.Instrumentalist{
		ID:                    i.ID,
		Name:                  i.Name,
		Instrument:            i.Instrument,
		IsActive:              i.IsActive,
		PreferredPayoutMethod: i.PreferredPayoutMethod,
		MobileMoneyNumber:     i.MobileMoneyNumber,
		MobileMoneyProvider:   i.MobileMoneyProvider,
		MobileMoneyName:       i.MobileMoneyName,
		BankAccountNumber:     i.BankAccountNumber,
		BankName:              i.BankName,
		BankAccountName:       i.BankAccountName,
		RecipientCode:         i.RecipientCode,
		RecipientRegisteredAt: i.RecipientRegisteredAt,
		CreatedAt:             i.CreatedAt,
		UpdatedAt:             i.UpdatedAt,
	}
}

func FromDataModel(i *instrumentalistDatamodel.Instrumentalist) *Instrumentalist {
	return &Instrumentalist{
		ID:                    i.ID,
		Name:                  i.Name,
		Instrument:            i.Instrument,
		IsActive:              i.IsActive,
		PreferredPayoutMethod: i.PreferredPayoutMethod,
		MobileMoneyNumber:     i.MobileMoneyNumber,
		MobileMoneyProvider:   i.MobileMoneyProvider,
		MobileMoneyName:       i.MobileMoneyName,
		BankAccountNumber:     i.BankAccountNumber,
		BankName:              i.BankName,
		BankAccountName:       i.BankAccountName,
		RecipientCode:         i.RecipientCode,
		RecipientRegisteredAt: i.RecipientRegisteredAt,
		CreatedAt:             i.CreatedAt,
		UpdatedAt:             i.UpdatedAt,
	}
}

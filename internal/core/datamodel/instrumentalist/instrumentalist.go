package instrumentalist

import "time"

type Instrumentalist struct {
	ID                    int64      `gorm:"primaryKey"`
	Name                  string     `gorm:"column:name;not null"`
	Instrument            string     `gorm:"column:instrument"`
	IsActive              bool       `gorm:"column:is_active;not null"`
	PreferredPayoutMethod string     `gorm:"column:preferred_payout_method;not null"`
	MobileMoneyNumber     *string    `gorm:"column:mobile_money_number"`
	MobileMoneyProvider   *string    `gorm:"column:mobile_money_provider"`
	MobileMoneyName       *string    `gorm:"column:mobile_money_name"`
	BankAccountNumber     *string    `gorm:"column:bank_account_number"`
	BankName              *string    `gorm:"column:bank_name"`
	BankAccountName       *string    `gorm:"column:bank_account_name"`
	RecipientCode         *string    `gorm:"column:recipient_code"`
	RecipientRegisteredAt *time.Time `gorm:"column:recipient_registered_at"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Instrumentalist) TableName() string {
	return "instrumentalists"
}

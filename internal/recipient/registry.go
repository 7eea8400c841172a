package recipient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	gatewaytypes "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/instrumentalist-payouts/internal/instrumentalist"
	"golang.org/x/sync/singleflight"
)

const (
	TypeMobileMoney = "mobile_money"
	TypeBank        = "ghipss"
)

type Gateway interface {
	CreateRecipient(ctx context.Context, req gatewaytypes.RecipientRequest) (*gatewaytypes.RecipientData, error)
}

type CodeStore interface {
	SetRecipientCode(ctx context.Context, id int64, code string) error
}

type Config struct {
	Currency string
	// BankCodes maps a bank name, case-insensitively, to its gateway bank code.
	BankCodes map[string]string
}

// DefaultBankCodes are used for banks missing from the configured table.
var DefaultBankCodes = map[string]string{
	"absa bank ghana":       "030100",
	"cal bank":              "140100",
	"ecobank ghana":         "130100",
	"fidelity bank":         "240100",
	"gcb bank":              "040100",
	"stanbic bank":          "190100",
	"standard chartered":    "020100",
	"zenith bank ghana":     "120100",
	"republic bank ghana":   "110100",
	"access bank ghana":     "280100",
	"agricultural dev bank": "080100",
}

type Registry struct {
	gateway   Gateway
	store     CodeStore
	currency  string
	bankCodes map[string]string
	group     singleflight.Group
	logger    *slog.Logger
}

func NewRegistry(gateway Gateway, store CodeStore, config Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	bankCodes := make(map[string]string, len(DefaultBankCodes)+len(config.BankCodes))
	for name, code := range DefaultBankCodes {
		bankCodes[normalizeName(name)] = code
	}
	for name, code := range config.BankCodes {
		bankCodes[normalizeName(name)] = code
	}

	return &Registry{
		gateway:   gateway,
		store:     store,
		currency:  config.Currency,
		bankCodes: bankCodes,
		logger:    logger,
	}
}

// EnsureRecipient returns the instrumentalist's gateway recipient code, registering
// the payout profile with the gateway when no code is cached yet.
func (r *Registry) EnsureRecipient(ctx context.Context, i *instrumentalist.Instrumentalist) (string, error) {
	if i.HasRecipientCode() {
		return *i.RecipientCode, nil
	}

	v, err, shared := r.group.Do(strconv.FormatInt(i.ID, 10), func() (interface{}, error) {
		return r.register(ctx, i)
	})
	if err != nil {
		return "", err
	}

	code := v.(string)
	if shared {
		r.logger.DebugContext(ctx, "recipient registration shared", "instrumentalist_id", i.ID)
	}
	i.RecipientCode = &code
	return code, nil
}

func (r *Registry) register(ctx context.Context, i *instrumentalist.Instrumentalist) (string, error) {
	req, appErr := r.buildRequest(i.PayoutProfile())
	if appErr != nil {
		r.logger.WarnContext(ctx, "recipient profile not transferable",
			"instrumentalist_id", i.ID,
			"reason", appErr.Message)
		return "", appErr
	}

	data, err := r.gateway.CreateRecipient(ctx, req)
	if err != nil {
		message := err.Error()
		if gwErr, ok := errors.IsAppError(err); ok {
			message = gwErr.Message
		}
		r.logger.ErrorContext(ctx, "recipient registration failed",
			"instrumentalist_id", i.ID,
			"type", req.Type,
			"error", err)
		return "", registrationFailed(fmt.Sprintf("recipient registration failed: %s", message), http.StatusBadGateway).WithCause(err)
	}

	if err := r.store.SetRecipientCode(ctx, i.ID, data.RecipientCode); err != nil {
		r.logger.ErrorContext(ctx, "failed to persist recipient code",
			"instrumentalist_id", i.ID,
			"recipient_code", data.RecipientCode,
			"error", err)
		return "", registrationFailed("recipient registered but its code could not be saved", http.StatusInternalServerError).WithCause(err)
	}

	r.logger.InfoContext(ctx, "recipient registered",
		"instrumentalist_id", i.ID,
		"type", req.Type,
		"recipient_code", data.RecipientCode)

	return data.RecipientCode, nil
}

func (r *Registry) buildRequest(profile instrumentalist.PayoutProfile) (gatewaytypes.RecipientRequest, *errors.AppError) {
	if missing := profile.Missing(); len(missing) > 0 {
		return gatewaytypes.RecipientRequest{}, registrationFailed(
			fmt.Sprintf("payout profile is incomplete: missing %s", strings.Join(missing, ", ")),
			http.StatusUnprocessableEntity,
		).WithDetails(map[string]interface{}{"missing_fields": missing})
	}

	switch p := profile.(type) {
	case instrumentalist.MobileMoneyProfile:
		code, ok := ProviderCode(p.Provider)
		if !ok {
			return gatewaytypes.RecipientRequest{}, registrationFailed(
				fmt.Sprintf("unsupported mobile money provider %q", p.Provider),
				http.StatusUnprocessableEntity,
			)
		}
		return gatewaytypes.RecipientRequest{
			Type:          TypeMobileMoney,
			Name:          p.Name,
			AccountNumber: p.Number,
			BankCode:      code,
			Currency:      r.currency,
		}, nil
	case instrumentalist.BankProfile:
		code, ok := r.bankCodes[normalizeName(p.BankName)]
		if !ok {
			return gatewaytypes.RecipientRequest{}, registrationFailed(
				fmt.Sprintf("no gateway bank code for bank %q", p.BankName),
				http.StatusUnprocessableEntity,
			)
		}
		return gatewaytypes.RecipientRequest{
			Type:          TypeBank,
			Name:          p.AccountName,
			AccountNumber: p.AccountNumber,
			BankCode:      code,
			Currency:      r.currency,
		}, nil
	default:
		return gatewaytypes.RecipientRequest{}, registrationFailed(
			"cash payout profile cannot receive gateway transfers",
			http.StatusUnprocessableEntity,
		)
	}
}

// ProviderCode maps a mobile money provider name to its gateway bank code.
func ProviderCode(provider string) (string, bool) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(provider)))
	switch key {
	case "mtn", "mtnmomo", "mtnmobilemoney":
		return "MTN", true
	case "vod", "vodafone", "vodafonecash", "telecel", "telecelcash":
		return "VOD", true
	case "atl", "airteltigo", "airteltigomoney", "at", "atmoney":
		return "ATL", true
	}
	return "", false
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func registrationFailed(message string, status int) *errors.AppError {
	errType := errors.ErrorTypeExternal
	if status < http.StatusInternalServerError {
		errType = errors.ErrorTypeValidation
	}
	return &errors.AppError{
		Type:       errType,
		Code:       errors.ErrCodeRecipientRegistrationFailed,
		Message:    message,
		StatusCode: status,
	}
}

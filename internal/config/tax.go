package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TaxPolicy resolves the VAT rate applied to an order line. Family overrides
// are keyed by the slug of the article family.
type TaxPolicy struct {
	DefaultRate float64            `mapstructure:"defaultRate"`
	Families    map[string]float64 `mapstructure:"families"`
}

func DefaultTaxPolicy() TaxPolicy {
	return TaxPolicy{
		DefaultRate: 20,
		Families:    map[string]float64{},
	}
}

// RateFor returns the article override when set, then the family rate, then
// the default rate.
func (p TaxPolicy) RateFor(family string, override decimal.NullDecimal) decimal.Decimal {
	if override.Valid {
		return override.Decimal
	}
	if key := FamilyKey(family); key != "" {
		if rate, ok := p.Families[key]; ok {
			return decimal.NewFromFloat(rate).Round(2)
		}
	}
	return decimal.NewFromFloat(p.DefaultRate).Round(2)
}

// FamilyKey normalizes a family label ("Boissons chaudes") to its lookup key.
func FamilyKey(family string) string {
	family = strings.TrimSpace(family)
	if family == "" {
		return ""
	}
	return slug.Make(family)
}

type TaxPolicyHolder struct {
	current atomic.Value // holds TaxPolicy
}

func NewStaticTaxPolicyHolder(policy TaxPolicy) *TaxPolicyHolder {
	holder := &TaxPolicyHolder{}
	holder.current.Store(normalizeTaxPolicy(policy))
	return holder
}

func NewTaxPolicyHolder(cfg Config) (*TaxPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("tax")
	v.SetConfigType("yml")
	if cfg.Billing.TaxConfigPath != "" {
		v.AddConfigPath(cfg.Billing.TaxConfigPath)
	}
	v.AddConfigPath("/etc/gescom")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GESCOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		defaults := DefaultTaxPolicy()
		v.SetDefault("tax.defaultRate", defaults.DefaultRate)
		v.SetDefault("tax.families", defaults.Families)
	}

	var policy TaxPolicy
	if err := v.UnmarshalKey("tax", &policy); err != nil {
		return nil, err
	}
	if err := validateTaxPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticTaxPolicyHolder(policy)

	if fileFound {
		log := zap.L().Named("config.tax")
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated TaxPolicy
			if err := v.UnmarshalKey("tax", &updated); err != nil {
				log.Warn("tax policy reload failed", zap.Error(err))
				return
			}
			if err := validateTaxPolicy(updated); err != nil {
				log.Warn("invalid tax policy ignored", zap.Error(err))
				return
			}
			holder.current.Store(normalizeTaxPolicy(updated))
			log.Info("tax policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *TaxPolicyHolder) Get() TaxPolicy {
	return h.current.Load().(TaxPolicy)
}

func (h *TaxPolicyHolder) RateFor(family string, override decimal.NullDecimal) decimal.Decimal {
	return h.Get().RateFor(family, override)
}

func normalizeTaxPolicy(policy TaxPolicy) TaxPolicy {
	families := make(map[string]float64, len(policy.Families))
	for family, rate := range policy.Families {
		if key := FamilyKey(family); key != "" {
			families[key] = rate
		}
	}
	policy.Families = families
	return policy
}

func validateTaxPolicy(policy TaxPolicy) error {
	if policy.DefaultRate < 0 || policy.DefaultRate > 100 {
		return errors.New("tax.defaultRate must be between 0 and 100")
	}
	for family, rate := range policy.Families {
		if rate < 0 || rate > 100 {
			return fmt.Errorf("tax.families.%s must be between 0 and 100", family)
		}
	}
	return nil
}

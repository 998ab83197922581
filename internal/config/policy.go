package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy holds business rules that operators tune without a deploy.
type Policy struct {
	PlacementFee map[string]string  `mapstructure:"placementFee"`
	Reassignment ReassignmentPolicy `mapstructure:"reassignment"`
	Payment      PaymentPolicy      `mapstructure:"payment"`
}

type ReassignmentPolicy struct {
	ResponseWindow    time.Duration `mapstructure:"responseWindow"`
	AlternativesLimit int           `mapstructure:"alternativesLimit"`
}

type PaymentPolicy struct {
	AuthorizeDay       int           `mapstructure:"authorizeDay"`
	CaptureDay         int           `mapstructure:"captureDay"`
	MinCaptureDelay    time.Duration `mapstructure:"minCaptureDelay"`
	GatewayMaxAttempts int           `mapstructure:"gatewayMaxAttempts"`
	GatewayTimeout     time.Duration `mapstructure:"gatewayTimeout"`
}

func DefaultPolicy() Policy {
	return Policy{
		PlacementFee: map[string]string{},
		Reassignment: ReassignmentPolicy{
			ResponseWindow:    48 * time.Hour,
			AlternativesLimit: 5,
		},
		Payment: PaymentPolicy{
			AuthorizeDay:       25,
			CaptureDay:         1,
			MinCaptureDelay:    7 * 24 * time.Hour,
			GatewayMaxAttempts: 3,
			GatewayTimeout:     12 * time.Second,
		},
	}
}

// FeeTable resolves the placement fee tiers with overrides applied.
func (p Policy) FeeTable() (revenuesplit.FeeTable, error) {
	return revenuesplit.DefaultFeeTable().WithOverrides(p.PlacementFee)
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
	table   atomic.Value // holds revenuesplit.FeeTable
}

// NewStaticPolicyHolder wraps a fixed policy.
func NewStaticPolicyHolder(p Policy) (*PolicyHolder, error) {
	holder := &PolicyHolder{}
	if err := holder.store(p); err != nil {
		return nil, err
	}
	return holder, nil
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/nannyhub/config")
	v.AddConfigPath("/etc/nannyhub")
	v.AddConfigPath(".")

	return newPolicyHolder(v, log)
}

// NewPolicyHolderFromFile reads a specific policy file.
func NewPolicyHolderFromFile(path string, log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return newPolicyHolder(v, log)
}

func newPolicyHolder(v *viper.Viper, log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v.SetEnvPrefix("NANNYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setPolicyDefaults(v)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	if err := holder.store(cfg); err != nil {
		return nil, err
	}
	for size, tier := range cfg.PlacementFee {
		log.Info("placement fee tier override", zap.String("home_size", size), zap.String("tier", tier))
	}

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodePolicy(v)
			if err != nil {
				log.Warn("policy reload failed", zap.Error(err))
				return
			}
			if err := holder.store(updated); err != nil {
				log.Warn("invalid policy ignored", zap.Error(err))
				return
			}
			log.Info("policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

// FeeTable returns the validated fee table of the current policy.
func (h *PolicyHolder) FeeTable() revenuesplit.FeeTable {
	return h.table.Load().(revenuesplit.FeeTable)
}

func (h *PolicyHolder) store(p Policy) error {
	if err := validatePolicy(p); err != nil {
		return err
	}
	table, err := p.FeeTable()
	if err != nil {
		return err
	}
	if err := table.Validate(); err != nil {
		return err
	}
	h.current.Store(p)
	h.table.Store(table)
	return nil
}

func setPolicyDefaults(v *viper.Viper) {
	defaults := DefaultPolicy()
	v.SetDefault("policy.reassignment.responseWindow", defaults.Reassignment.ResponseWindow)
	v.SetDefault("policy.reassignment.alternativesLimit", defaults.Reassignment.AlternativesLimit)
	v.SetDefault("policy.payment.authorizeDay", defaults.Payment.AuthorizeDay)
	v.SetDefault("policy.payment.captureDay", defaults.Payment.CaptureDay)
	v.SetDefault("policy.payment.minCaptureDelay", defaults.Payment.MinCaptureDelay)
	v.SetDefault("policy.payment.gatewayMaxAttempts", defaults.Payment.GatewayMaxAttempts)
	v.SetDefault("policy.payment.gatewayTimeout", defaults.Payment.GatewayTimeout)
}

func decodePolicy(v *viper.Viper) (Policy, error) {
	var cfg Policy
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return Policy{}, err
	}
	if cfg.PlacementFee == nil {
		cfg.PlacementFee = map[string]string{}
	}
	return cfg, nil
}

func validatePolicy(p Policy) error {
	if p.Reassignment.ResponseWindow <= 0 {
		return errors.New("policy.reassignment.responseWindow must be positive")
	}
	if p.Reassignment.AlternativesLimit < 0 {
		return errors.New("policy.reassignment.alternativesLimit cannot be negative")
	}
	if p.Payment.AuthorizeDay < 1 || p.Payment.AuthorizeDay > 28 {
		return fmt.Errorf("policy.payment.authorizeDay %d out of range 1-28", p.Payment.AuthorizeDay)
	}
	if p.Payment.CaptureDay < 1 || p.Payment.CaptureDay > 28 {
		return fmt.Errorf("policy.payment.captureDay %d out of range 1-28", p.Payment.CaptureDay)
	}
	if p.Payment.MinCaptureDelay < 0 {
		return errors.New("policy.payment.minCaptureDelay cannot be negative")
	}
	if p.Payment.GatewayMaxAttempts < 1 {
		return errors.New("policy.payment.gatewayMaxAttempts must be at least 1")
	}
	if p.Payment.GatewayTimeout <= 0 {
		return errors.New("policy.payment.gatewayTimeout must be positive")
	}
	return nil
}

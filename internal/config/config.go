// Package config loads retailkit run configuration.
//
// Configuration is written in CUE. The embedded defaults.cue declares the
// schema and a default for every field; an optional user file is unified
// into it, so a user file only states what it changes:
//
//	generator: seed: 7
//	inventory: top_n: 3
//
// After CUE unification the decoded struct is checked again with
// validator tags for cross-field rules CUE does not express here
// (for example a promotion's end_day not preceding its start_day).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/go-playground/validator/v10"
)

//go:embed defaults.cue
var defaultsCUE []byte

// DateLayout is the layout of ref_date.
const DateLayout = "2006-01-02"

// Config is a fully resolved run configuration.
type Config struct {
	Generator    Generator    `json:"generator"`
	Promotions   []Promotion  `json:"promotions" validate:"dive"`
	Loyalty      Loyalty      `json:"loyalty"`
	Segmentation Segmentation `json:"segmentation"`
	Inventory    Inventory    `json:"inventory"`
	Notify       Notify       `json:"notify"`
}

// Generator controls synthetic data generation.
type Generator struct {
	Seed               uint64  `json:"seed"`
	RefDate            string  `json:"ref_date" validate:"required,datetime=2006-01-02"`
	Days               int     `json:"days" validate:"min=1,max=366"`
	Stores             int     `json:"stores" validate:"min=1"`
	Products           int     `json:"products" validate:"min=1"`
	Customers          int     `json:"customers" validate:"min=1"`
	TxPerDay           float64 `json:"tx_per_day" validate:"gt=0,lte=500"`
	MaxLines           int     `json:"max_lines" validate:"min=1"`
	PromoProbability   float64 `json:"promo_probability" validate:"gte=0,lte=1"`
	PromoQuantityBoost int     `json:"promo_quantity_boost" validate:"gte=0"`
	DefectRate         float64 `json:"defect_rate" validate:"gte=0,lte=1"`
	HistoryShare       float64 `json:"history_share" validate:"gte=0,lte=1"`
}

// Promotion is a promotion template. Days are offsets from the first day of
// the observation window.
type Promotion struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name"`
	StartDay int     `json:"start_day" validate:"gte=0"`
	EndDay   int     `json:"end_day" validate:"gtefield=StartDay"`
	Discount float64 `json:"discount" validate:"gte=0,lt=1"`
	Category string  `json:"category" validate:"required"`
}

// LoyaltyRule is one tier of the point schedule.
type LoyaltyRule struct {
	ID            int64   `json:"id" validate:"min=1"`
	Name          string  `json:"name"`
	PointsPerUnit float64 `json:"points_per_unit" validate:"gte=0"`
	MinSpend      float64 `json:"min_spend" validate:"gte=0"`
	BonusPoints   int64   `json:"bonus_points" validate:"gte=0"`
}

// Loyalty groups the rule-based schedule and the coins program.
type Loyalty struct {
	Rules []LoyaltyRule `json:"rules" validate:"min=1,dive"`
	Coins Coins         `json:"coins"`
}

// Coins parameterizes the earn/redeem program.
type Coins struct {
	EarnRate   float64 `json:"earn_rate" validate:"gte=0"`
	EarnCap    int64   `json:"earn_cap" validate:"gte=0"`
	RedeemRate float64 `json:"redeem_rate" validate:"gte=0,lte=1"`
}

// Segmentation holds RFM thresholds.
type Segmentation struct {
	AtRiskDays        int `json:"at_risk_days" validate:"min=1"`
	HighSpenderDecile int `json:"high_spender_decile" validate:"min=1,max=10"`
}

// Inventory holds stock-risk thresholds in days of cover.
type Inventory struct {
	TopN          int     `json:"top_n" validate:"min=1"`
	CriticalDays  float64 `json:"critical_days" validate:"gte=0"`
	WatchlistDays float64 `json:"watchlist_days" validate:"gtefield=CriticalDays"`
	OverstockDays float64 `json:"overstock_days" validate:"gtefield=WatchlistDays"`
}

// Notify configures simulated loyalty messages.
type Notify struct {
	RewardStep int64  `json:"reward_step" validate:"min=1"`
	Subject    string `json:"subject"`
}

// RefTime parses ref_date as a UTC midnight.
func (g Generator) RefTime() (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, g.RefDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ref_date %q: %w", g.RefDate, err)
	}
	return t, nil
}

// Error codes for configuration failures.
const (
	ErrCodeRead       = "E010" // config file unreadable
	ErrCodeCompile    = "E011" // CUE syntax error
	ErrCodeUnify      = "E012" // value conflicts with the schema
	ErrCodeIncomplete = "E013" // non-concrete value after defaults
	ErrCodeDecode     = "E014" // CUE value does not fit the Go struct
	ErrCodeInvalid    = "E015" // validator rule failed
)

// LoadError describes why a configuration could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	return Load("")
}

// Load resolves the configuration. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("read config: %v", err), Err: err}
		}
		data = b
	}
	return Parse(path, data)
}

// Parse resolves configuration from CUE source. name is used in error
// positions; data may be empty.
func Parse(name string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	root := ctx.CompileBytes(defaultsCUE, cue.Filename("defaults.cue"))
	if err := root.Err(); err != nil {
		return nil, cueLoadError(ErrCodeCompile, err)
	}
	v := root.LookupPath(cue.ParsePath("config"))

	if len(data) > 0 {
		user := ctx.CompileBytes(data, cue.Filename(name))
		if err := user.Err(); err != nil {
			return nil, cueLoadError(ErrCodeCompile, err)
		}
		v = v.Unify(user)
		if err := v.Validate(); err != nil {
			return nil, cueLoadError(ErrCodeUnify, err)
		}
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeIncomplete, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, cueLoadError(ErrCodeDecode, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate applies struct-tag rules to an already decoded configuration.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &LoadError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()),
				Err:     err,
			}
		}
		return &LoadError{Code: ErrCodeInvalid, Message: err.Error(), Err: err}
	}
	if _, err := cfg.Generator.RefTime(); err != nil {
		return &LoadError{Code: ErrCodeInvalid, Message: err.Error(), Err: err}
	}
	seen := make(map[string]bool, len(cfg.Promotions))
	for _, p := range cfg.Promotions {
		if seen[p.ID] {
			return &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("duplicate promotion id %q", p.ID)}
		}
		seen[p.ID] = true
	}
	return nil
}

func cueLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: cueerrors.Details(err, nil), Err: err}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Message = errs[0].Error()
		le.Pos = errs[0].Position()
	}
	return le
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/pricing"
)

type publicConfigResponse struct {
	AppName  string          `json:"appName"`
	Version  string          `json:"version"`
	Env      string          `json:"env"`
	Pricing  pricing.Policy  `json:"pricing"`
	Catalog  catalogSettings `json:"catalog"`
	Features map[string]bool `json:"features"`
}

type catalogSettings struct {
	PageSize int `json:"pageSize"`
}

// PublicConfig exposes the storefront settings the client renders against,
// including the totals policy so client-side previews match checkout.
func PublicConfig(cfg *config.Config, policy pricing.Policy) http.HandlerFunc {
	payload := publicConfigResponse{
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
		Env:     cfg.App.Env,
		Pricing: policy,
		Catalog: catalogSettings{PageSize: cfg.Catalog.PageSize},
		Features: map[string]bool{
			"payments":           cfg.Stripe.PaymentsEnabled(),
			"guestCartMerge":     cfg.FeatureFlags.MergeGuestCartOnLogin,
			"emailNotifications": cfg.FeatureFlags.EmailNotifications,
			"imageUpload":        cfg.FeatureFlags.ImageUpload,
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, payload)
	}
}

// StripeConfig returns the publishable key; the secret never leaves the server.
func StripeConfig(cfg config.StripeConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PublishableKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "stripe is not configured"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"publishableKey": cfg.PublishableKey})
	}
}

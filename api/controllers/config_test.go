package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/pricing"
)

func getJSON(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code < http.StatusBadRequest {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func TestPublicConfigExposesPricingPolicy(t *testing.T) {
	cfg := &config.Config{
		App:     config.AppConfig{Name: "Shopora", Env: "dev"},
		Catalog: config.CatalogConfig{PageSize: 12},
		Stripe:  config.StripeConfig{SecretKey: "sk_test"},
	}
	var envelope struct {
		Data struct {
			Pricing struct {
				FreeShippingThreshold string `json:"freeShippingThreshold"`
				FlatShippingFee       string `json:"flatShippingFee"`
				TaxRate               string `json:"taxRate"`
			} `json:"pricing"`
			Catalog  catalogSettings `json:"catalog"`
			Features map[string]bool `json:"features"`
		} `json:"data"`
	}

	require.Equal(t, http.StatusOK, getJSON(t, PublicConfig(cfg, pricing.DefaultPolicy()), "/api/config", &envelope))
	assert.Equal(t, "50", envelope.Data.Pricing.FreeShippingThreshold)
	assert.Equal(t, "10", envelope.Data.Pricing.FlatShippingFee)
	assert.Equal(t, "0.1", envelope.Data.Pricing.TaxRate)
	assert.Equal(t, 12, envelope.Data.Catalog.PageSize)
	assert.True(t, envelope.Data.Features["payments"])
}

func TestStripeConfigOnlyPublishesPublicKey(t *testing.T) {
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	code := getJSON(t, StripeConfig(config.StripeConfig{PublishableKey: "pk_test", SecretKey: "sk_test"}, nil), "/api/config/stripe", &envelope)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"publishableKey": "pk_test"}, envelope.Data)

	assert.Equal(t, http.StatusNotFound, getJSON(t, StripeConfig(config.StripeConfig{}, nil), "/api/config/stripe", nil))
}

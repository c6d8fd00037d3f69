package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapfix-server/config"
	"snapfix-server/models"
	"snapfix-server/services"
)

func TestNewOTPSender(t *testing.T) {
	otpConfig := func(env, provider, key string) *config.Config {
		return &config.Config{
			Server: config.ServerConfig{Env: env},
			OTP: config.OTPConfig{
				Provider:    provider,
				APIKey:      key,
				BaseURL:     "https://2factor.in/API/V1",
				CountryCode: "91",
			},
		}
	}
	log := zap.NewNop()

	sender, err := newOTPSender(otpConfig("production", models.OTPProviderTwoFactor, "key"), log)
	require.NoError(t, err)
	assert.IsType(t, &services.TwoFactorClient{}, sender)

	_, err = newOTPSender(otpConfig("production", models.OTPProviderTwoFactor, ""), log)
	assert.ErrorContains(t, err, "TWOFACTOR_API_KEY")

	sender, err = newOTPSender(otpConfig("development", models.OTPProviderTwoFactor, ""), log)
	require.NoError(t, err)
	assert.IsType(t, &services.LocalOTPSender{}, sender)

	sender, err = newOTPSender(otpConfig("development", models.OTPProviderLocal, ""), log)
	require.NoError(t, err)
	assert.IsType(t, &services.LocalOTPSender{}, sender)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"snapfix-server/models"
	"snapfix-server/utils"
)

// OTPChallenge is what a sender hands back for persisting with the session.
type OTPChallenge struct {
	Provider  string
	SessionID string
	CodeHash  string
}

// OTPSender delivers one-time passwords and checks submitted codes.
type OTPSender interface {
	Send(ctx context.Context, phone string) (*OTPChallenge, error)
	// Verify reports whether code answers session. A mismatch is (false, nil).
	Verify(ctx context.Context, session *models.OTPSession, code string) (bool, error)
}

// TwoFactorClient sends SMS OTPs through the 2Factor API.
type TwoFactorClient struct {
	baseURL     string
	apiKey      string
	countryCode string
	http        *http.Client
}

func NewTwoFactorClient(baseURL, apiKey, countryCode string, timeout time.Duration) *TwoFactorClient {
	return &TwoFactorClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		countryCode: countryCode,
		http:        &http.Client{Timeout: timeout},
	}
}

type twoFactorResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

func (c *TwoFactorClient) call(ctx context.Context, path string) (*twoFactorResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(c.apiKey)+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("2factor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, resp.StatusCode, fmt.Errorf("2factor returned %d", resp.StatusCode)
	}
	var body twoFactorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode 2factor response: %w", err)
	}
	return &body, resp.StatusCode, nil
}

func (c *TwoFactorClient) Send(ctx context.Context, phone string) (*OTPChallenge, error) {
	body, _, err := c.call(ctx, "/SMS/+"+c.countryCode+phone+"/AUTOGEN")
	if err != nil {
		return nil, err
	}
	if body.Status != "Success" || body.Details == "" {
		return nil, fmt.Errorf("2factor send failed: %s", body.Details)
	}
	return &OTPChallenge{Provider: models.OTPProviderTwoFactor, SessionID: body.Details}, nil
}

func (c *TwoFactorClient) Verify(ctx context.Context, session *models.OTPSession, code string) (bool, error) {
	body, _, err := c.call(ctx, "/SMS/VERIFY/"+url.PathEscape(session.SessionID)+"/"+url.PathEscape(code))
	if err != nil {
		return false, err
	}
	return body.Status == "Success", nil
}

// LocalOTPSender generates codes in process and logs them instead of sending
// an SMS. Only the bcrypt hash is stored.
type LocalOTPSender struct {
	log *zap.Logger
}

func NewLocalOTPSender(log *zap.Logger) *LocalOTPSender {
	return &LocalOTPSender{log: log.Named("otp")}
}

func (s *LocalOTPSender) Send(_ context.Context, phone string) (*OTPChallenge, error) {
	code, err := utils.RandomDigits(6)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}
	s.log.Info("📱 OTP generated", zap.String("phone", phone), zap.String("otp", code))
	return &OTPChallenge{Provider: models.OTPProviderLocal, CodeHash: hash}, nil
}

func (s *LocalOTPSender) Verify(_ context.Context, session *models.OTPSession, code string) (bool, error) {
	return utils.CheckPasswordHash(code, session.CodeHash), nil
}

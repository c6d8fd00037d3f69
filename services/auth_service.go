package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/types"
	"snapfix-server/utils"
)

const defaultWorkerCategory = "Electrician"

// AuthResult is returned by every successful login.
type AuthResult struct {
	Token  string
	User   *models.User
	Worker *models.Worker
	IsNew  bool
}

// AuthService handles OTP login for both roles and password login for workers.
type AuthService struct {
	store     repository.Store
	sender    OTPSender
	jwt       *JWTService
	otpExpiry time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewAuthService(store repository.Store, sender OTPSender, jwt *JWTService, otpExpiry time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		sender:    sender,
		jwt:       jwt,
		otpExpiry: otpExpiry,
		now:       time.Now,
		log:       log.Named("auth"),
	}
}

func (s *AuthService) JWT() *JWTService { return s.jwt }

// SendOTP replaces any outstanding session for (phone, purpose) with a new one.
func (s *AuthService) SendOTP(ctx context.Context, phone, purpose string) error {
	phone = utils.NormalizePhone(phone)
	if !utils.ValidatePhoneNumber(phone) {
		return types.NewValidationError("Please provide a valid 10-digit phone number")
	}

	if err := s.store.OTPs().DeleteForPhone(ctx, phone, purpose); err != nil {
		return types.NewInternalError("Error sending OTP", err)
	}

	challenge, err := s.sender.Send(ctx, phone)
	if err != nil {
		return types.NewUpstreamError("Error sending OTP", err)
	}

	session := &models.OTPSession{
		Phone:     phone,
		Purpose:   purpose,
		Provider:  challenge.Provider,
		SessionID: challenge.SessionID,
		CodeHash:  challenge.CodeHash,
		ExpiresAt: s.now().Add(s.otpExpiry),
	}
	if err := s.store.OTPs().Create(ctx, session); err != nil {
		return types.NewInternalError("Error sending OTP", err)
	}
	s.log.Info("otp sent", zap.String("purpose", purpose), zap.String("provider", challenge.Provider))
	return nil
}

// consumeOTP checks code against the newest live session and marks it used.
func (s *AuthService) consumeOTP(ctx context.Context, phone, code, purpose, invalidMessage string) error {
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return types.NewValidationError("Please provide phone and OTP")
	}

	session, err := s.store.OTPs().LatestActive(ctx, phone, purpose, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return types.NewValidationError(invalidMessage)
	}
	if err != nil {
		return types.NewInternalError("Error verifying OTP", err)
	}

	ok, err := s.sender.Verify(ctx, session, code)
	if err != nil {
		return types.NewUpstreamError("Error verifying OTP", err)
	}
	if !ok {
		return types.NewValidationError(invalidMessage)
	}
	if err := s.store.OTPs().MarkVerified(ctx, session.ID); err != nil {
		return types.NewInternalError("Error verifying OTP", err)
	}
	return nil
}

// VerifyCustomerOTP logs a customer in, creating the account on first use.
func (s *AuthService) VerifyCustomerOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	phone = utils.NormalizePhone(phone)
	if err := s.consumeOTP(ctx, phone, code, models.OTPPurposeCustomer, "Invalid or expired OTP"); err != nil {
		return nil, err
	}

	isNew := false
	user, err := s.store.Users().GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		user = &models.User{Phone: phone, Country: defaultCountry}
		err = s.store.Users().Create(ctx, user)
		if errors.Is(err, repository.ErrDuplicate) {
			user, err = s.store.Users().GetByPhone(ctx, phone)
		} else {
			isNew = err == nil
		}
	}
	if err != nil {
		return nil, types.NewInternalError("Error verifying OTP", err)
	}

	token, err := s.jwt.GenerateToken(types.Principal{ID: user.ID, Role: types.RoleCustomer})
	if err != nil {
		return nil, types.NewInternalError("Error verifying OTP", err)
	}
	s.log.Info("customer logged in", zap.Uint("user_id", user.ID), zap.Bool("new", isNew))
	return &AuthResult{Token: token, User: user, IsNew: isNew}, nil
}

func (s *AuthService) newWorkerCode() (string, error) {
	suffix, err := utils.RandomUppercase(4)
	if err != nil {
		return "", err
	}
	return "WRK" + strconv.FormatInt(s.now().UnixMilli(), 10) + suffix, nil
}

func (s *AuthService) newWorker(phone string) (*models.Worker, error) {
	code, err := s.newWorkerCode()
	if err != nil {
		return nil, err
	}
	return &models.Worker{
		WorkerCode:       code,
		Phone:            phone,
		AuthProvider:     models.AuthProviderOTP,
		ServiceCategory:  defaultWorkerCategory,
		ServicesProvided: pq.StringArray{defaultWorkerCategory},
		Availability:     true,
	}, nil
}

// VerifyWorkerOTP logs a worker in, creating a blank profile on first use.
func (s *AuthService) VerifyWorkerOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	phone = utils.NormalizePhone(phone)
	if err := s.consumeOTP(ctx, phone, code, models.OTPPurposeWorker, "Invalid OTP. Please request a new one."); err != nil {
		return nil, err
	}

	isNew := false
	worker, err := s.store.Workers().GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		worker, err = s.newWorker(phone)
		if err == nil {
			err = s.store.Workers().Create(ctx, worker)
			if errors.Is(err, repository.ErrDuplicate) {
				worker, err = s.store.Workers().GetByPhone(ctx, phone)
			} else {
				isNew = err == nil
			}
		}
	}
	if err != nil {
		return nil, types.NewInternalError("Error verifying OTP", err)
	}
	return s.workerResult(worker, isNew)
}

func (s *AuthService) workerResult(worker *models.Worker, isNew bool) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(types.Principal{ID: worker.ID, Role: types.RoleWorker})
	if err != nil {
		return nil, types.NewInternalError("Error generating token", err)
	}
	s.log.Info("worker logged in", zap.Uint("worker_id", worker.ID), zap.Bool("new", isNew))
	return &AuthResult{Token: token, Worker: worker, IsNew: isNew}, nil
}

// RegisterWorker creates a password-authenticated worker account.
func (s *AuthService) RegisterWorker(ctx context.Context, req models.WorkerRegisterRequest) (*AuthResult, error) {
	phone := utils.NormalizePhone(req.Phone)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !utils.ValidatePhoneNumber(phone) {
		return nil, types.NewValidationError("Please provide a valid 10-digit phone number")
	}
	if len(username) < 3 || len(username) > 30 {
		return nil, types.NewValidationError("Username must be between 3 and 30 characters")
	}
	if len(req.Password) < 6 {
		return nil, types.NewValidationError("Password must be at least 6 characters")
	}

	if _, err := s.store.Workers().GetByPhone(ctx, phone); err == nil {
		return nil, types.NewConflictError("A worker with this phone already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewInternalError("Error registering worker", err)
	}
	if _, err := s.store.Workers().GetByUsername(ctx, username); err == nil {
		return nil, types.NewConflictError("Username is already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewInternalError("Error registering worker", err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, types.NewInternalError("Error registering worker", err)
	}
	worker, err := s.newWorker(phone)
	if err != nil {
		return nil, types.NewInternalError("Error registering worker", err)
	}
	worker.Username = &username
	worker.PasswordHash = hash
	worker.AuthProvider = models.AuthProviderPassword
	worker.Name = strings.TrimSpace(req.Name)

	if err := s.store.Workers().Create(ctx, worker); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, types.NewConflictError("Phone or username already registered")
		}
		return nil, types.NewInternalError("Error registering worker", err)
	}
	return s.workerResult(worker, true)
}

// LoginWorker authenticates by username or phone plus password.
func (s *AuthService) LoginWorker(ctx context.Context, req models.WorkerLoginRequest) (*AuthResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(req.Phone)
	}
	if identifier == "" || req.Password == "" {
		return nil, types.NewValidationError("Please provide username or phone and password")
	}

	var (
		worker *models.Worker
		err    error
	)
	if phone := utils.NormalizePhone(identifier); utils.ValidatePhoneNumber(phone) {
		worker, err = s.store.Workers().GetByPhone(ctx, phone)
	} else {
		worker, err = s.store.Workers().GetByUsername(ctx, strings.ToLower(identifier))
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewUnauthorizedError("Invalid credentials")
	}
	if err != nil {
		return nil, types.NewInternalError("Error logging in", err)
	}
	if worker.PasswordHash == "" || !utils.CheckPasswordHash(req.Password, worker.PasswordHash) {
		return nil, types.NewUnauthorizedError("Invalid credentials")
	}
	return s.workerResult(worker, false)
}

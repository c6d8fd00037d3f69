package services

import (
	"context"
	"errors"
	"strings"

	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/types"
	"snapfix-server/utils"
)

const defaultCountry = "India"

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Profile(ctx context.Context, p types.Principal) (*models.User, error) {
	if !p.IsCustomer() {
		return nil, types.NewForbiddenError("Not authorized")
	}
	u, err := s.users.GetByID(ctx, p.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error fetching profile", err)
	}
	return u, nil
}

// UpdateProfile replaces the customer's profile fields and marks it complete.
func (s *UserService) UpdateProfile(ctx context.Context, p types.Principal, req models.CustomerProfileRequest) (*models.User, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" || req.Pincode == "" || strings.TrimSpace(req.City) == "" || strings.TrimSpace(req.State) == "" {
		return nil, types.NewValidationError("Please provide all required fields")
	}
	if !utils.ValidatePincode(req.Pincode) {
		return nil, types.NewValidationError("Invalid pincode. Must be 6 digits.")
	}

	u, err := s.Profile(ctx, p)
	if err != nil {
		return nil, err
	}
	u.FullName = fullName
	u.Pincode = req.Pincode
	u.City = strings.TrimSpace(req.City)
	u.State = strings.TrimSpace(req.State)
	u.Country = strings.TrimSpace(req.Country)
	if u.Country == "" {
		u.Country = defaultCountry
	}
	u.IsProfileComplete = true

	if err := s.users.Update(ctx, u); err != nil {
		return nil, types.NewInternalError("Error updating profile", err)
	}
	return u, nil
}

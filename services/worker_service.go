package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"snapfix-server/catalog"
	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/types"
	"snapfix-server/utils"
)

// PriceFlags marks prices close to the edges of a category's allowed band.
type PriceFlags struct {
	IsLowExtreme  bool         `json:"isLowExtreme"`
	IsHighExtreme bool         `json:"isHighExtreme"`
	AllowedRange  AllowedRange `json:"allowedRange"`
}

// WorkerProfile is the result of a worker profile update.
type WorkerProfile struct {
	Worker  *models.Worker `json:"worker"`
	Pricing PriceFlags     `json:"pricing"`
}

type WorkerService struct {
	store   repository.Store
	catalog *catalog.Catalog
	log     *zap.Logger
}

func NewWorkerService(store repository.Store, cat *catalog.Catalog, log *zap.Logger) *WorkerService {
	return &WorkerService{store: store, catalog: cat, log: log.Named("workers")}
}

// List returns available workers offering category, optionally in one pincode.
func (s *WorkerService) List(ctx context.Context, category, pincode string) ([]models.Worker, error) {
	category = strings.TrimSpace(category)
	pincode = strings.TrimSpace(pincode)
	if category == "" {
		return nil, types.NewValidationError("Please provide a service category")
	}
	if pincode != "" && !utils.ValidatePincode(pincode) {
		return nil, types.NewValidationError("Invalid pincode. Must be 6 digits.")
	}

	workers, err := s.store.Workers().List(ctx, repository.WorkerFilter{
		Category:      category,
		Pincode:       pincode,
		AvailableOnly: true,
	})
	if err != nil {
		return nil, types.NewInternalError("Error fetching workers", err)
	}
	return workers, nil
}

func (s *WorkerService) Get(ctx context.Context, id uint) (*models.Worker, error) {
	return getWorker(ctx, s.store.Workers().GetByID, id)
}

func getWorker(ctx context.Context, get func(context.Context, uint) (*models.Worker, error), id uint) (*models.Worker, error) {
	w, err := get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Worker not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error fetching worker", err)
	}
	return w, nil
}

// Profile returns the authenticated worker's own record.
func (s *WorkerService) Profile(ctx context.Context, p types.Principal) (*models.Worker, error) {
	if !p.IsWorker() {
		return nil, types.NewForbiddenError("Not authorized")
	}
	return s.Get(ctx, p.ID)
}

func formatRupees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// UpdateProfile applies a partial profile update under the worker row lock.
// Once the profile is complete its hourly rate must sit inside the primary
// category's band.
func (s *WorkerService) UpdateProfile(ctx context.Context, p types.Principal, req models.WorkerProfileRequest) (*WorkerProfile, error) {
	if !p.IsWorker() {
		return nil, types.NewForbiddenError("Not authorized")
	}

	var (
		w      *models.Worker
		bounds catalog.RateBounds
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		w, err = getWorker(ctx, tx.Workers().GetByIDForUpdate, p.ID)
		if err != nil {
			return err
		}
		bounds, err = s.applyProfile(w, req)
		if err != nil {
			return err
		}
		if err := tx.Workers().UpdateProfile(ctx, w); err != nil {
			return types.NewInternalError("Error updating worker profile", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	low, high := s.catalog.ExtremeFlags(w.PricePerHour, bounds)
	s.log.Info("worker profile updated",
		zap.Uint("worker_id", w.ID),
		zap.Bool("complete", w.IsProfileComplete),
		zap.Float64("price_per_hour", w.PricePerHour))
	return &WorkerProfile{
		Worker: w,
		Pricing: PriceFlags{
			IsLowExtreme:  low,
			IsHighExtreme: high,
			AllowedRange:  AllowedRange{Min: bounds.Min, Max: bounds.Max},
		},
	}, nil
}

// applyProfile copies the request onto w and checks the rate band.
func (s *WorkerService) applyProfile(w *models.Worker, req models.WorkerProfileRequest) (catalog.RateBounds, error) {
	if req.Name != nil {
		w.Name = strings.TrimSpace(*req.Name)
	}
	if req.IDProofNumber != nil {
		w.IDProofNumber = strings.TrimSpace(*req.IDProofNumber)
	}

	switch {
	case len(req.ServicesProvided) > 0:
		w.ServicesProvided = pq.StringArray(req.ServicesProvided)
		w.ServiceCategory = req.ServicesProvided[0]
	case req.ServiceCategory != nil && *req.ServiceCategory != "":
		w.ServiceCategory = *req.ServiceCategory
		w.ServicesProvided = pq.StringArray{*req.ServiceCategory}
	case len(w.ServicesProvided) == 0 && w.ServiceCategory != "":
		w.ServicesProvided = pq.StringArray{w.ServiceCategory}
	}

	if req.PricePerHour != nil {
		w.PricePerHour = *req.PricePerHour
	}
	if req.Experience != nil {
		w.Experience = *req.Experience
	}
	if req.Skills != nil {
		w.Skills = pq.StringArray(req.Skills)
	}
	if req.Availability != nil {
		w.Availability = *req.Availability
	}
	if req.Pincode != nil && *req.Pincode != "" {
		w.Location.Pincode = *req.Pincode
	}
	if req.City != nil && *req.City != "" {
		w.Location.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil && *req.State != "" {
		w.Location.State = strings.TrimSpace(*req.State)
	}
	if req.Latitude != nil {
		w.Location.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		w.Location.Longitude = req.Longitude
	}

	w.RefreshProfileCompleteness()

	bounds := s.catalog.RateBounds(w.ServiceCategory)
	if w.IsProfileComplete && (w.PricePerHour < bounds.Min || w.PricePerHour > bounds.Max) {
		return bounds, types.NewValidationError(fmt.Sprintf("Hourly rate must be between ₹%s and ₹%s for %s.",
			formatRupees(bounds.Min), formatRupees(bounds.Max), w.ServiceCategory))
	}
	return bounds, nil
}

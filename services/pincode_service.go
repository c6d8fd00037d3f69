package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/types"
	"snapfix-server/utils"
)

type PincodeSource string

const (
	PincodeSourceMemory    PincodeSource = "memory"
	PincodeSourceDatabase  PincodeSource = "database"
	PincodeSourceIndiaPost PincodeSource = "indiaPost"
)


type PincodeResult struct {
	Source PincodeSource      `json:"source"`
	Data   models.PincodeData `json:"data"`
}

// PincodeService resolves postal codes through memory, the persistent cache
// and finally the postal directory. The first tier holding a valid entry wins.
type PincodeService struct {
	cache     *MemoryPincodeCache
	repo      repository.PincodeRepository
	directory PostalDirectory
	ttl       time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewPincodeService(cache *MemoryPincodeCache, repo repository.PincodeRepository, directory PostalDirectory, ttl time.Duration, log *zap.Logger) *PincodeService {
	return &PincodeService{
		cache:     cache,
		repo:      repo,
		directory: directory,
		ttl:       ttl,
		now:       time.Now,
		log:       log.Named("pincode"),
	}
}

func (s *PincodeService) Resolve(ctx context.Context, raw string) (*PincodeResult, error) {
	pincode := strings.TrimSpace(raw)
	if !utils.ValidatePincode(pincode) {
		return nil, types.NewValidationError("Invalid pincode. Must be 6 digits.")
	}

	now := s.now()
	if data, ok := s.cache.Get(pincode, now); ok {
		return &PincodeResult{Source: PincodeSourceMemory, Data: data}, nil
	}

	entry, err := s.repo.GetActive(ctx, pincode, now)
	switch {
	case err == nil:
		data := entry.Data()
		s.cache.Set(data, now.Add(s.ttl))
		return &PincodeResult{Source: PincodeSourceDatabase, Data: data}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, types.NewInternalError("Server error in pincode lookup", err)
	}

	data, err := s.directory.Lookup(ctx, pincode)
	if err != nil {
		if errors.Is(err, ErrPincodeNotFound) {
			return nil, types.NewNotFoundError("Pincode not found.")
		}
		s.log.Warn("postal directory unavailable", zap.String("pincode", pincode), zap.Error(err))
		return nil, types.NewUpstreamError("Pincode lookup service unavailable", err)
	}

	expiresAt := now.Add(s.ttl)
	if err := s.repo.Upsert(ctx, &models.PincodeCache{
		Pincode:   data.Pincode,
		City:      data.City,
		State:     data.State,
		Country:   data.Country,
		ExpiresAt: expiresAt,
	}); err != nil {
		s.log.Warn("failed to persist pincode", zap.String("pincode", pincode), zap.Error(err))
	}
	s.cache.Set(*data, expiresAt)

	return &PincodeResult{Source: PincodeSourceIndiaPost, Data: *data}, nil
}

// PruneMemory drops expired entries from the process-local tier.
func (s *PincodeService) PruneMemory() int {
	return s.cache.PruneExpired(s.now())
}

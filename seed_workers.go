package main

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"snapfix-server/models"
	"snapfix-server/repository"
)

type sampleWorker struct {
	Name          string
	Phone         string
	Category      string
	PricePerHour  float64
	Rating        float64
	Ratings       int
	Experience    int
	City          string
	State         string
	Pincode       string
	Skills        []string
	CompletedJobs int
}

// Sample roster for demo environments. Rates sit inside each category's band.
var sampleWorkers = []sampleWorker{
	{"Rajesh Kumar", "9876543210", "Electrician", 300, 4.8, 127, 8, "Mumbai", "Maharashtra", "400001",
		[]string{"Wiring", "Fan Installation", "Switchboard Repair", "Inverter Setup"}, 245},
	{"Amit Sharma", "9876543211", "Electrician", 350, 4.9, 203, 12, "Delhi", "Delhi", "110001",
		[]string{"Industrial Wiring", "Solar Installation", "Home Automation"}, 389},
	{"Suresh Patel", "9876543212", "Electrician", 300, 4.6, 89, 5, "Bangalore", "Karnataka", "560001",
		[]string{"Basic Wiring", "Light Fixtures", "Socket Repairs"}, 156},
	{"Mohammed Rafi", "9876543213", "Plumbing", 320, 4.7, 145, 10, "Chennai", "Tamil Nadu", "600001",
		[]string{"Pipe Installation", "Leak Repairs", "Bathroom Fitting", "Water Heater"}, 298},
	{"Vikram Singh", "9876543214", "Plumbing", 300, 4.5, 78, 6, "Pune", "Maharashtra", "411001",
		[]string{"Drainage", "Tap Repairs", "Toilet Installation"}, 167},
	{"Prakash Yadav", "9876543215", "Plumbing", 310, 4.8, 156, 9, "Hyderabad", "Telangana", "500001",
		[]string{"Commercial Plumbing", "Pipe Fitting", "Water Tank Installation"}, 312},
	{"Ramesh Verma", "9876543216", "Painting", 250, 4.6, 112, 7, "Jaipur", "Rajasthan", "302001",
		[]string{"Interior Painting", "Exterior Painting", "Texture Work", "Wall Putty"}, 223},
	{"Santosh Kumar", "9876543217", "Painting", 280, 4.9, 189, 11, "Kolkata", "West Bengal", "700001",
		[]string{"Waterproofing", "Decorative Painting"}, 401},
	{"Dinesh Gupta", "9876543218", "Painting", 260, 4.4, 67, 4, "Ahmedabad", "Gujarat", "380001",
		[]string{"Basic Painting", "Touch-ups", "Color Consultation"}, 134},
	{"Anil Thakur", "9876543219", "Carpenter", 330, 4.7, 134, 9, "Bangalore", "Karnataka", "560001",
		[]string{"Furniture Making", "Door Repair", "Wardrobe Installation", "Modular Kitchen"}, 267},
	{"Ravi Sharma", "9876543221", "Carpenter", 300, 4.5, 92, 6, "Delhi", "Delhi", "110001",
		[]string{"Door Fitting", "Bed Repair", "Shelf Installation"}, 178},
}

// seedWorkers inserts the sample roster into an empty workers table.
func seedWorkers(ctx context.Context, store repository.Store, log *zap.Logger) (int, error) {
	count, err := store.Workers().Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count workers: %w", err)
	}
	if count > 0 {
		log.Info("🌱 Workers already present, skipping seed", zap.Int64("count", count))
		return 0, nil
	}

	for i, s := range sampleWorkers {
		w := &models.Worker{
			WorkerCode:       fmt.Sprintf("WRK%013d", 1700000000000+int64(i)),
			Phone:            s.Phone,
			AuthProvider:     models.AuthProviderOTP,
			Name:             s.Name,
			ServiceCategory:  s.Category,
			ServicesProvided: pq.StringArray{s.Category},
			Skills:           pq.StringArray(s.Skills),
			PricePerHour:     s.PricePerHour,
			Rating:           s.Rating,
			TotalRatings:     s.Ratings,
			TotalReviews:     s.Ratings,
			Experience:       s.Experience,
			Availability:     true,
			Location: models.WorkerLocation{
				Pincode: s.Pincode,
				City:    s.City,
				State:   s.State,
			},
			CompletedJobs: s.CompletedJobs,
		}
		w.RefreshProfileCompleteness()
		if err := store.Workers().Create(ctx, w); err != nil {
			return i, fmt.Errorf("seed worker %s: %w", s.Name, err)
		}
	}

	log.Info("🌱 Seeded sample workers", zap.Int("count", len(sampleWorkers)))
	return len(sampleWorkers), nil
}

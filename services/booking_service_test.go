package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapfix-server/catalog"
	"snapfix-server/models"
	"snapfix-server/repository/memstore"
	"snapfix-server/types"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[types.Principal][]string
}

func (n *recordingNotifier) Notify(to types.Principal, e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = map[types.Principal][]string{}
	}
	n.events[to] = append(n.events[to], e.Type)
}

func (n *recordingNotifier) sent(to types.Principal) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[to]
}

type memMedia struct {
	saved []string
}

func (m *memMedia) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.saved = append(m.saved, filename)
	return "/uploads/" + filename, nil
}

type lifecycleFixture struct {
	ctx      context.Context
	store    *memstore.Store
	notifier *recordingNotifier
	media    *memMedia
	bookings *BookingService
	payments *PaymentService
	feedback *FeedbackService
	customer types.Principal
	worker   types.Principal
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	user := &models.User{Phone: "9123456780", FullName: "Priya Nair", Country: "India"}
	require.NoError(t, store.Users().Create(ctx, user))
	w := &models.Worker{
		WorkerCode:       "WRK1700000000000ABCD",
		Phone:            "9876543210",
		Name:             "Rajesh Kumar",
		ServiceCategory:  "Electrician",
		ServicesProvided: pq.StringArray{"Electrician"},
		PricePerHour:     300,
		Availability:     true,
	}
	require.NoError(t, store.Workers().Create(ctx, w))

	notifier := &recordingNotifier{}
	media := &memMedia{}
	log := zap.NewNop()
	return &lifecycleFixture{
		ctx:      ctx,
		store:    store,
		notifier: notifier,
		media:    media,
		bookings: NewBookingService(store, catalog.Default(), media, notifier, log),
		payments: NewPaymentService(store, notifier, log),
		feedback: NewFeedbackService(store, notifier, log),
		customer: types.Principal{ID: user.ID, Role: types.RoleCustomer},
		worker:   types.Principal{ID: w.ID, Role: types.RoleWorker},
	}
}

func (f *lifecycleFixture) newBooking(t *testing.T) *models.Booking {
	t.Helper()
	b, err := f.bookings.Create(f.ctx, f.customer, NewBooking{
		WorkerID:        f.worker.ID,
		ServiceCategory: "Electrician",
		ProblemType:     "Fan Installation",
		Description:     "Ceiling fan in the bedroom",
		ScheduledDate:   time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		ScheduledTime:   "10:00 AM",
		Address: models.BookingAddress{
			Pincode: "400001", City: "Mumbai", State: "Maharashtra", FullAddress: "12 Marine Drive",
		},
	})
	require.NoError(t, err)
	return b
}

func image(name string, size int64) ImageUpload {
	return ImageUpload{
		Filename: name,
		Size:     size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("img")), nil
		},
	}
}

func TestCreateBooking(t *testing.T) {
	f := newLifecycleFixture(t)
	b := f.newBooking(t)

	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, models.WorkerStatusPending, b.WorkerStatus)
	assert.Equal(t, f.customer.ID, b.UserID)
	assert.Equal(t, []string{EventBookingCreated}, f.notifier.sent(f.worker))
}

func TestCreateBookingValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	base := NewBooking{WorkerID: f.worker.ID, ServiceCategory: "Electrician", ProblemType: "Wiring"}

	tooMany := base
	tooMany.Images = []ImageUpload{image("a.jpg", 10), image("b.jpg", 10), image("c.jpg", 10), image("d.jpg", 10)}
	_, err := f.bookings.Create(f.ctx, f.customer, tooMany)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	badExt := base
	badExt.Images = []ImageUpload{image("a.gif", 10)}
	_, err = f.bookings.Create(f.ctx, f.customer, badExt)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	unknownCategory := base
	unknownCategory.ServiceCategory = "Gardening"
	_, err = f.bookings.Create(f.ctx, f.customer, unknownCategory)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	missingWorker := base
	missingWorker.WorkerID = 999
	_, err = f.bookings.Create(f.ctx, f.customer, missingWorker)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	_, err = f.bookings.Create(f.ctx, f.worker, base)
	assert.Equal(t, types.KindForbidden, types.KindOf(err))

	w, err := f.store.Workers().GetByID(f.ctx, f.worker.ID)
	require.NoError(t, err)
	w.Availability = false
	require.NoError(t, f.store.Workers().UpdateProfile(f.ctx, w))
	_, err = f.bookings.Create(f.ctx, f.customer, base)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	assert.Empty(t, f.media.saved)
}

func TestCreateBookingStoresImages(t *testing.T) {
	f := newLifecycleFixture(t)
	b, err := f.bookings.Create(f.ctx, f.customer, NewBooking{
		WorkerID:        f.worker.ID,
		ServiceCategory: "Electrician",
		ProblemType:     "Switch Repair",
		Images:          []ImageUpload{image("front.jpg", 1024), image("back.PNG", 2048)},
	})
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"/uploads/front.jpg", "/uploads/back.PNG"}, b.Images)
}

func TestRespondOnlyOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	b := f.newBooking(t)

	got, err := f.bookings.Respond(f.ctx, f.worker, b.ID, models.WorkerStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusAccepted, got.Status)
	assert.Equal(t, models.WorkerStatusAccepted, got.WorkerStatus)

	_, err = f.bookings.Respond(f.ctx, f.worker, b.ID, models.WorkerStatusRejected)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))

	stored, err := f.store.Bookings().GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusAccepted, stored.Status)
}

func TestRespondReject(t *testing.T) {
	f := newLifecycleFixture(t)
	b := f.newBooking(t)

	got, err := f.bookings.Respond(f.ctx, f.worker, b.ID, models.WorkerStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, got.Status)

	_, err = f.bookings.Start(f.ctx, f.worker, b.ID)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))
	_, err = f.bookings.Cancel(f.ctx, f.customer, b.ID, models.BookingStatusCancelled)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))
}

func TestRespondValidationAndActor(t *testing.T) {
	f := newLifecycleFixture(t)
	b := f.newBooking(t)

	_, err := f.bookings.Respond(f.ctx, f.worker, b.ID, models.WorkerStatusPending)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	stranger := types.Principal{ID: f.worker.ID + 100, Role: types.RoleWorker}
	_, err = f.bookings.Respond(f.ctx, stranger, b.ID, models.WorkerStatusAccepted)
	assert.Equal(t, types.KindForbidden, types.KindOf(err))

	_, err = f.bookings.Respond(f.ctx, f.worker, 4242, models.WorkerStatusAccepted)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestStartRequiresAcceptance(t *testing.T) {
	f := newLifecycleFixture(t)
	b := f.newBooking(t)

	_, err := f.bookings.Start(f.ctx, f.worker, b.ID)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))

	_, err = f.bookings.Respond(f.ctx, f.worker, b.ID, models.WorkerStatusAccepted)
	require.NoError(t, err)
	got, err := f.bookings.Start(f.ctx, f.worker, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusInProgress, got.Status)

	_, err = f.bookings.Start(f.ctx, f.worker, b.ID)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))
}

func TestInitiateCompletionGuards(t *testing.T) {
	f := newLifecycleFixture(t)
	b := f.newBooking(t)

	_, err := f.bookings.InitiateCompletion(f.ctx, f.worker, b.ID)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))

	_, err = f.bookings.Respond(f.ctx, f.worker, b.ID, models.WorkerStatusAccepted)
	require.NoError(t, err)

	// Completion straight from Accepted is allowed.
	got, err := f.bookings.InitiateCompletion(f.ctx, f.worker, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, got.Status)
	require.NotNil(t, got.CompletionInitiatedBy)
	assert.Equal(t, models.CompletionByWorker, *got.CompletionInitiatedBy)

	w, err := f.store.Workers().GetByID(f.ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, w.CompletedJobs)

	_, err = f.bookings.InitiateCompletion(f.ctx, f.worker, b.ID)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))
	w, err = f.store.Workers().GetByID(f.ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, w.CompletedJobs)
}

func TestCancel(t *testing.T) {
	f := newLifecycleFixture(t)
	b := f.newBooking(t)

	_, err := f.bookings.Cancel(f.ctx, f.customer, b.ID, models.BookingStatusCompleted)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))

	_, err = f.bookings.Cancel(f.ctx, f.worker, b.ID, models.BookingStatusCancelled)
	assert.Equal(t, types.KindForbidden, types.KindOf(err))

	got, err := f.bookings.Cancel(f.ctx, f.customer, b.ID, models.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	_, err = f.bookings.Respond(f.ctx, f.worker, b.ID, models.WorkerStatusAccepted)
	assert.Equal(t, types.KindInvalidTransition, types.KindOf(err))
}

func TestReadsEnrichBookings(t *testing.T) {
	f := newLifecycleFixture(t)
	first := f.newBooking(t)
	second := f.newBooking(t)

	list, err := f.bookings.ListForCustomer(f.ctx, f.customer)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "Rajesh Kumar", list[0].Worker.Name)
	assert.False(t, list[0].HasPaid)

	pending, err := f.bookings.ListForWorker(f.ctx, f.worker, "Pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "Priya Nair", pending[0].Customer.FullName)

	_, err = f.bookings.ListForWorker(f.ctx, f.worker, "Unknown")
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	detail, err := f.bookings.Get(f.ctx, f.worker, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, detail.ID)

	_, err = f.bookings.Get(f.ctx, types.Principal{ID: 77, Role: types.RoleCustomer}, first.ID)
	assert.Equal(t, types.KindForbidden, types.KindOf(err))
}

func TestParseScheduledDate(t *testing.T) {
	d, err := ParseScheduledDate("2026-11-02")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Day())

	_, err = ParseScheduledDate("2026-11-02T09:30:00Z")
	require.NoError(t, err)

	_, err = ParseScheduledDate("next tuesday")
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

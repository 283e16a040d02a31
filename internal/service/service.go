package service

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/integrations/mercadopago"
	"github.com/Dan9191/studio-billing/internal/ledger"
	"github.com/Dan9191/studio-billing/internal/metrics"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// FeeStore persists fees
type FeeStore interface {
	CreateFee(ctx context.Context, fee *models.Fee) error
	CreateFeeIfAbsent(ctx context.Context, fee *models.Fee) (bool, error)
	GetFee(ctx context.Context, id int64) (*models.Fee, error)
	ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error)
	UpdateFee(ctx context.Context, fee *models.Fee) error
	DeleteFee(ctx context.Context, id int64) error
	ListPendingDue(ctx context.Context, before time.Time) ([]*models.Fee, error)
	MarkOverdue(ctx context.Context, ids []int64) ([]*models.Fee, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time, method string) (bool, error)
	SetNotes(ctx context.Context, id int64, notes string) error
	SetNotesIfUnpaid(ctx context.Context, id int64, notes string) error
}

// StudentStore reads the students fees belong to
type StudentStore interface {
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	ListActiveStudents(ctx context.Context) ([]*models.Student, error)
}

// NotificationStore persists user notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64, at time.Time) (*models.Notification, error)
}

// EntryStore persists administrative expenses and other revenue
type EntryStore interface {
	CreateEntry(ctx context.Context, e *models.Entry) error
	GetEntry(ctx context.Context, id int64) (*models.Entry, error)
	ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error)
	UpdateEntry(ctx context.Context, e *models.Entry) error
	DeleteEntry(ctx context.Context, id int64) error
}

// Store is everything the service needs from persistence
type Store interface {
	FeeStore
	StudentStore
	NotificationStore
	EntryStore
	Ping(ctx context.Context) error
}

// PaymentGateway is the payment processor as seen by billing
type PaymentGateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentEvent, error)
}

// Mailer sends billing emails
type Mailer interface {
	SendOverdueNotice(to, name string, period, dueDate time.Time, amount decimal.Decimal) error
	SendPaymentConfirmation(to, name string, period time.Time, amount decimal.Decimal, paidAt time.Time) error
}

// Service handles business logic
type Service struct {
	store   Store
	gateway PaymentGateway
	mailer  Mailer
	metrics *metrics.Metrics
	log     *logrus.Logger
	config  *config.Config
	loc     *time.Location
	now     func() time.Time

	background sync.WaitGroup
}

// Option customizes a Service
type Option func(*Service)

// WithMailer enables billing emails
func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

// WithMetrics records business metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces the wall clock, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService initializes a new service
func NewService(store Store, gateway PaymentGateway, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	loc, err := cfg.Location()
	if err != nil {
		log.Warnf("Falling back to UTC: %v", err)
		loc = time.UTC
	}
	s := &Service{
		store:   store,
		gateway: gateway,
		log:     log,
		config:  cfg,
		loc:     loc,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the studio time zone
func (s *Service) Today() time.Time {
	return ledger.Today(s.now(), s.loc)
}

// Ping checks that the store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Wait blocks until queued notifications are stored and queued emails have
// been handed to the SMTP server
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) sendMail(kind string, fn func(Mailer) error) {
	if s.mailer == nil {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := fn(s.mailer); err != nil {
			s.log.WithError(err).WithField("kind", kind).Warn("Failed to send billing email")
		}
	}()
}

// present applies the read-side overdue rule to a fee loaded from the store
func (s *Service) present(fee *models.Fee, today time.Time) *models.Fee {
	advanced := ledger.AdvanceIfOverdue(*fee, today)
	return &advanced
}

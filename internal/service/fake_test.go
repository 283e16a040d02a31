package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/integrations/mercadopago"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// fakeStore is an in-memory Store with the same write guards as the
// Postgres repository
type fakeStore struct {
	mu            sync.Mutex
	fees          map[int64]*models.Fee
	students      map[int64]*models.Student
	notifications []*models.Notification
	entries       map[int64]*models.Entry
	nextID        int64

	getErr      error
	notifyErr   error
	notifyBlock chan struct{} // when set, notification writes wait for it
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fees:     make(map[int64]*models.Fee),
		students: make(map[int64]*models.Student),
		entries:  make(map[int64]*models.Entry),
		nextID:   1000,
	}
}

func cloneFee(f *models.Fee) *models.Fee {
	c := *f
	if f.PaidAt != nil {
		paidAt := *f.PaidAt
		c.PaidAt = &paidAt
	}
	return &c
}

func (s *fakeStore) putFee(f *models.Fee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees[f.ID] = cloneFee(f)
}

func (s *fakeStore) fee(id int64) *models.Fee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFee(s.fees[id])
}

func (s *fakeStore) putStudent(st *models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

func (s *fakeStore) notificationsOf(kind models.NotificationKind) []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

func (s *fakeStore) CreateFee(ctx context.Context, fee *models.Fee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.fees {
		if f.StudentID == fee.StudentID && f.PeriodStart.Equal(fee.PeriodStart) {
			return models.ErrFeeExists
		}
	}
	s.nextID++
	fee.ID = s.nextID
	s.fees[fee.ID] = cloneFee(fee)
	return nil
}

func (s *fakeStore) CreateFeeIfAbsent(ctx context.Context, fee *models.Fee) (bool, error) {
	err := s.CreateFee(ctx, fee)
	if err == models.ErrFeeExists {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeStore) GetFee(ctx context.Context, id int64) (*models.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	f, ok := s.fees[id]
	if !ok {
		return nil, models.ErrFeeNotFound
	}
	return cloneFee(f), nil
}

func (s *fakeStore) ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Fee
	for _, f := range s.fees {
		if filter.Status != "" && !matchesStatus(f, filter) {
			continue
		}
		if filter.StudentID != 0 && f.StudentID != filter.StudentID {
			continue
		}
		if !filter.Month.IsZero() && !f.PeriodStart.Equal(models.MonthStart(filter.Month)) {
			continue
		}
		out = append(out, cloneFee(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// matchesStatus mirrors the repository's status predicate
func matchesStatus(f *models.Fee, filter models.FeeFilter) bool {
	if filter.AsOf.IsZero() {
		return f.Status == filter.Status
	}
	switch filter.Status {
	case models.FeeStatusPending:
		return f.Status == models.FeeStatusPending && !f.DueDate.Before(filter.AsOf)
	case models.FeeStatusOverdue:
		return f.Status == models.FeeStatusOverdue ||
			(f.Status == models.FeeStatusPending && f.DueDate.Before(filter.AsOf))
	default:
		return f.Status == filter.Status
	}
}

func (s *fakeStore) UpdateFee(ctx context.Context, fee *models.Fee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.fees[fee.ID]
	if !ok {
		return models.ErrFeeNotFound
	}
	if current.Status == models.FeeStatusPaid && fee.Status != models.FeeStatusPaid {
		return models.ErrPaidFeeImmutable
	}
	s.fees[fee.ID] = cloneFee(fee)
	return nil
}

func (s *fakeStore) DeleteFee(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fees[id]; !ok {
		return models.ErrFeeNotFound
	}
	delete(s.fees, id)
	return nil
}

func (s *fakeStore) ListPendingDue(ctx context.Context, before time.Time) ([]*models.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Fee
	for _, f := range s.fees {
		if f.Status == models.FeeStatusPending && f.DueDate.Before(before) {
			out = append(out, cloneFee(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) MarkOverdue(ctx context.Context, ids []int64) ([]*models.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Fee
	for _, id := range ids {
		f, ok := s.fees[id]
		if !ok || f.Status != models.FeeStatusPending {
			continue
		}
		f.Status = models.FeeStatusOverdue
		out = append(out, cloneFee(f))
	}
	return out, nil
}

func (s *fakeStore) MarkPaid(ctx context.Context, id int64, paidAt time.Time, method string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fees[id]
	if !ok || !f.Status.Outstanding() {
		return false, nil
	}
	f.Status = models.FeeStatusPaid
	f.PaidAt = &paidAt
	if method != "" {
		f.PaymentMethod = method
	}
	return true, nil
}

func (s *fakeStore) SetNotes(ctx context.Context, id int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fees[id]
	if !ok {
		return models.ErrFeeNotFound
	}
	f.Notes = notes
	return nil
}

func (s *fakeStore) SetNotesIfUnpaid(ctx context.Context, id int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.fees[id]; ok && f.Status != models.FeeStatusPaid {
		f.Notes = notes
	}
	return nil
}

func (s *fakeStore) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, models.ErrStudentNotFound
	}
	c := *st
	return &c, nil
}

func (s *fakeStore) ListActiveStudents(ctx context.Context) ([]*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Student
	for _, st := range s.students {
		if st.Active {
			c := *st
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if s.notifyBlock != nil {
		select {
		case <-s.notifyBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyErr != nil {
		return s.notifyErr
	}
	n.ID = int64(len(s.notifications) + 1)
	c := *n
	s.notifications = append(s.notifications, &c)
	return nil
}

func (s *fakeStore) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	return out, nil
}

func (s *fakeStore) MarkNotificationRead(ctx context.Context, id, userID int64, at time.Time) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			if !n.Read {
				n.Read = true
				n.ReadAt = &at
			}
			c := *n
			return &c, nil
		}
	}
	return nil, models.ErrNotificationNotFound
}

func cloneEntry(e *models.Entry) *models.Entry {
	c := *e
	if e.PaidAt != nil {
		paidAt := *e.PaidAt
		c.PaidAt = &paidAt
	}
	return &c
}

func (s *fakeStore) CreateEntry(ctx context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *fakeStore) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, models.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

func (s *fakeStore) ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if !filter.Month.IsZero() && !models.MonthStart(e.DueDate).Equal(models.MonthStart(filter.Month)) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeStore) UpdateEntry(ctx context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		return models.ErrEntryNotFound
	}
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *fakeStore) DeleteEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return models.ErrEntryNotFound
	}
	delete(s.entries, id)
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	payments map[string]*models.PaymentEvent
	requests []mercadopago.PreferenceRequest
	prefErr  error
	getErr   error
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	g.requests = append(g.requests, req)
	return &mercadopago.Preference{
		ID:               "pref-1",
		InitPoint:        "https://mp.test/checkout/pref-1",
		SandboxInitPoint: "https://sandbox.mp.test/checkout/pref-1",
	}, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*models.PaymentEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	c := *p
	return &c, nil
}

type sentMail struct {
	kind string
	to   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendOverdueNotice(to, name string, period, dueDate time.Time, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "overdue", to: to})
	return nil
}

func (m *fakeMailer) SendPaymentConfirmation(to, name string, period time.Time, amount decimal.Decimal, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "confirmation", to: to})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var (
	testNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	jan     = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc     *Service
	store   *fakeStore
	gateway *fakeGateway
	mailer  *fakeMailer
}

// notificationsOf waits for queued notifications and returns those of kind
func (f *fixture) notificationsOf(kind models.NotificationKind) []*models.Notification {
	f.svc.Wait()
	return f.store.notificationsOf(kind)
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFixture() *fixture {
	logger := discardLogger()

	cfg := &config.Config{
		Timezone:      "UTC",
		Currency:      "BRL",
		BillingDueDay: 10,
		AppBaseURL:    "http://studio.test",
		MPPublicKey:   "APP_USR-public",
		MPAccessToken: "APP_USR-token",
	}

	store := newFakeStore()
	store.putStudent(&models.Student{
		ID: 7, UserID: 70, Name: "Ana", Email: "ana@studio.test",
		MonthlyFee: decimal.NewFromInt(200), MonthlyDiscount: decimal.Zero, Active: true,
	})
	gateway := &fakeGateway{payments: make(map[string]*models.PaymentEvent)}
	mailer := &fakeMailer{}

	svc := NewService(store, gateway, logger, cfg,
		WithMailer(mailer),
		WithClock(func() time.Time { return testNow }),
	)
	return &fixture{svc: svc, store: store, gateway: gateway, mailer: mailer}
}

func pendingFee(id int64, final string, dueDate time.Time) *models.Fee {
	amount := decimal.RequireFromString(final)
	return &models.Fee{
		ID:             id,
		StudentID:      7,
		PeriodStart:    models.MonthStart(dueDate),
		AmountGross:    amount,
		AmountDiscount: decimal.Zero,
		AmountFinal:    amount,
		DueDate:        dueDate,
		Status:         models.FeeStatusPending,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

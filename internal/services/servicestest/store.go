// Package servicestest provides an in-memory transactional store that
// satisfies services.Tx for handler and engine tests.
package servicestest

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkupapp/linkup/internal/db"
	"github.com/linkupapp/linkup/internal/models"
)

type Payment struct {
	PaymentIntentID string
	ChargeID        string
	SellerID        uuid.UUID
	Status          models.PaymentStatus
	FailureReason   string
}

type Profile struct {
	ID                         uuid.UUID
	Tier                       models.PlatformTier
	StripeCustomerID           string
	PlatformSubscriptionID     string
	PlatformStatus             models.SubscriptionStatus
	PlatformPeriodEnd          time.Time
	VerifiedBadge              bool
	IdentityVerifiedAt         time.Time
	IdentitySessionID          string
	VerificationSubscriptionID string
	IdentityCheckPaid          bool
	ConnectedAccountID         string
	ChargesEnabled             bool
	PayoutsEnabled             bool
	Followers                  int64
}

// State is the full table contents. Tests seed it before processing and
// inspect it afterwards.
type State struct {
	Payments             map[string]Payment
	Profiles             map[uuid.UUID]Profile
	Services             map[uuid.UUID]models.Service
	Businesses           map[uuid.UUID]models.Business
	PassOfferings        map[uuid.UUID]models.PassOffering
	Channels             map[uuid.UUID]models.Channel
	Bookings             map[uuid.UUID]models.Booking
	Passes               map[string]models.Pass
	Memberships          map[string]models.Membership
	ChannelSubscriptions map[string]models.ChannelSubscription
	PaymentSplits        map[string]models.PaymentSplit
	Disputes             map[string]models.Dispute
	Payouts              map[string]models.Payout
	Notifications        map[string]models.Notification
	ProcessedEvents      map[string]time.Time
}

func NewState() State {
	return State{
		Payments:             map[string]Payment{},
		Profiles:             map[uuid.UUID]Profile{},
		Services:             map[uuid.UUID]models.Service{},
		Businesses:           map[uuid.UUID]models.Business{},
		PassOfferings:        map[uuid.UUID]models.PassOffering{},
		Channels:             map[uuid.UUID]models.Channel{},
		Bookings:             map[uuid.UUID]models.Booking{},
		Passes:               map[string]models.Pass{},
		Memberships:          map[string]models.Membership{},
		ChannelSubscriptions: map[string]models.ChannelSubscription{},
		PaymentSplits:        map[string]models.PaymentSplit{},
		Disputes:             map[string]models.Dispute{},
		Payouts:              map[string]models.Payout{},
		Notifications:        map[string]models.Notification{},
		ProcessedEvents:      map[string]time.Time{},
	}
}

func (s State) clone() State {
	return State{
		Payments:             maps.Clone(s.Payments),
		Profiles:             maps.Clone(s.Profiles),
		Services:             maps.Clone(s.Services),
		Businesses:           maps.Clone(s.Businesses),
		PassOfferings:        maps.Clone(s.PassOfferings),
		Channels:             maps.Clone(s.Channels),
		Bookings:             maps.Clone(s.Bookings),
		Passes:               maps.Clone(s.Passes),
		Memberships:          maps.Clone(s.Memberships),
		ChannelSubscriptions: maps.Clone(s.ChannelSubscriptions),
		PaymentSplits:        maps.Clone(s.PaymentSplits),
		Disputes:             maps.Clone(s.Disputes),
		Payouts:              maps.Clone(s.Payouts),
		Notifications:        maps.Clone(s.Notifications),
		ProcessedEvents:      maps.Clone(s.ProcessedEvents),
	}
}

// Store commits a transaction's copy of State only when the callback
// succeeds.
type Store struct {
	mu        sync.Mutex
	state     State
	ledgerErr error
	failures  map[string]error

	// Mutations counts successful writes across committed transactions.
	Mutations int
	Commits   int
	Rollbacks int
}

func NewStore(seed State) *Store {
	return &Store{state: seed.clone(), failures: map[string]error{}}
}

// Snapshot returns a copy of the committed state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// DropLedger makes every processed-event insert fail as if the table were
// missing.
func (s *Store) DropLedger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerErr = fmt.Errorf("%w: relation \"processed_webhook_events\" does not exist", db.ErrLedgerUnavailable)
}

// FailOn makes the named Tx method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Begin opens a transaction over a private copy of the committed state.
func (s *Store) Begin() *Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Tx{
		store:     s,
		state:     s.state.clone(),
		ledgerErr: s.ledgerErr,
		failures:  maps.Clone(s.failures),
	}
}

// WithinTransaction mirrors db.TxManager: commit on nil, discard otherwise,
// after-commit hooks only after a commit.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	tx := s.Begin()
	if err := fn(ctx, tx); err != nil {
		s.mu.Lock()
		s.Rollbacks++
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = tx.state
	s.Mutations += tx.mutations
	s.Commits++
	s.mu.Unlock()

	for _, hook := range tx.hooks {
		hook(context.WithoutCancel(ctx))
	}
	return nil
}

// Tx implements services.Tx and ledger.Recorder.
type Tx struct {
	store     *Store
	state     State
	ledgerErr error
	failures  map[string]error
	hooks     []func(ctx context.Context)
	mutations int
}

// State exposes the uncommitted state for direct handler tests.
func (t *Tx) State() State {
	return t.state
}

// Hooks returns the registered after-commit hooks.
func (t *Tx) Hooks() []func(ctx context.Context) {
	return t.hooks
}

func (t *Tx) AfterCommit(fn func(ctx context.Context)) {
	if fn != nil {
		t.hooks = append(t.hooks, fn)
	}
}

func (t *Tx) fail(method string) error {
	return t.failures[method]
}

func (t *Tx) wrote() {
	t.mutations++
}

func (t *Tx) InsertProcessedEvent(_ context.Context, eventID, _ string, receivedAt time.Time) error {
	if t.ledgerErr != nil {
		return t.ledgerErr
	}
	if err := t.fail("InsertProcessedEvent"); err != nil {
		return err
	}
	if _, ok := t.state.ProcessedEvents[eventID]; ok {
		return fmt.Errorf("%w: %s", db.ErrDuplicateEvent, eventID)
	}
	t.state.ProcessedEvents[eventID] = receivedAt
	return nil
}

func (t *Tx) MarkPaymentSucceeded(_ context.Context, paymentIntentID, chargeID string) (bool, error) {
	if err := t.fail("MarkPaymentSucceeded"); err != nil {
		return false, err
	}
	p, ok := t.state.Payments[paymentIntentID]
	if !ok {
		return false, nil
	}
	switch p.Status {
	case models.PaymentStatusPending, models.PaymentStatusFailed, models.PaymentStatusSucceeded:
	default:
		return false, nil
	}
	p.Status = models.PaymentStatusSucceeded
	p.FailureReason = ""
	if chargeID != "" {
		p.ChargeID = chargeID
	}
	t.state.Payments[paymentIntentID] = p
	t.wrote()
	return true, nil
}

func (t *Tx) MarkPaymentFailed(_ context.Context, paymentIntentID, reason string) (bool, error) {
	if err := t.fail("MarkPaymentFailed"); err != nil {
		return false, err
	}
	p, ok := t.state.Payments[paymentIntentID]
	if !ok || (p.Status != models.PaymentStatusPending && p.Status != models.PaymentStatusFailed) {
		return false, nil
	}
	p.Status = models.PaymentStatusFailed
	p.FailureReason = reason
	t.state.Payments[paymentIntentID] = p
	t.wrote()
	return true, nil
}

func (t *Tx) paymentByCharge(chargeID string) (Payment, bool) {
	for _, p := range t.state.Payments {
		if p.ChargeID == chargeID {
			return p, true
		}
	}
	return Payment{}, false
}

func (t *Tx) SetPaymentStatusByCharge(_ context.Context, chargeID string, status models.PaymentStatus) (bool, error) {
	if err := t.fail("SetPaymentStatusByCharge"); err != nil {
		return false, err
	}
	p, ok := t.paymentByCharge(chargeID)
	if !ok || p.Status == models.PaymentStatusDisputeLost {
		return false, nil
	}
	p.Status = status
	t.state.Payments[p.PaymentIntentID] = p
	t.wrote()
	return true, nil
}

func (t *Tx) FindSellerByCharge(_ context.Context, chargeID string) (uuid.UUID, error) {
	if err := t.fail("FindSellerByCharge"); err != nil {
		return uuid.Nil, err
	}
	p, ok := t.paymentByCharge(chargeID)
	if !ok || p.SellerID == uuid.Nil {
		return uuid.Nil, models.ErrNotFound
	}
	return p.SellerID, nil
}

func (t *Tx) MarkIdentityCheckPaid(_ context.Context, profileID uuid.UUID, _ string) (bool, error) {
	if err := t.fail("MarkIdentityCheckPaid"); err != nil {
		return false, err
	}
	p, ok := t.state.Profiles[profileID]
	if !ok {
		return false, nil
	}
	p.IdentityCheckPaid = true
	t.state.Profiles[profileID] = p
	t.wrote()
	return true, nil
}

func (t *Tx) ConfirmBooking(_ context.Context, bookingID uuid.UUID, paymentIntentID string) (bool, error) {
	if err := t.fail("ConfirmBooking"); err != nil {
		return false, err
	}
	b, ok := t.state.Bookings[bookingID]
	if !ok || b.Status == models.BookingStatusCancelled {
		return false, nil
	}
	b.Status = models.BookingStatusConfirmed
	if paymentIntentID != "" {
		b.StripePaymentIntentID = paymentIntentID
	}
	t.state.Bookings[bookingID] = b
	t.wrote()
	return true, nil
}

func (t *Tx) GetService(_ context.Context, serviceID uuid.UUID) (*models.Service, error) {
	if err := t.fail("GetService"); err != nil {
		return nil, err
	}
	v, ok := t.state.Services[serviceID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

func (t *Tx) GetBusiness(_ context.Context, businessID uuid.UUID) (*models.Business, error) {
	if err := t.fail("GetBusiness"); err != nil {
		return nil, err
	}
	v, ok := t.state.Businesses[businessID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

func (t *Tx) GetPassOffering(_ context.Context, offeringID uuid.UUID) (*models.PassOffering, error) {
	v, ok := t.state.PassOfferings[offeringID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

func (t *Tx) GetChannel(_ context.Context, channelID uuid.UUID) (*models.Channel, error) {
	v, ok := t.state.Channels[channelID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

func (t *Tx) GetFollowerCount(_ context.Context, profileID uuid.UUID) (int64, error) {
	p, ok := t.state.Profiles[profileID]
	if !ok {
		return 0, models.ErrNotFound
	}
	return p.Followers, nil
}

func (t *Tx) ProfileExists(_ context.Context, profileID uuid.UUID) (bool, error) {
	_, ok := t.state.Profiles[profileID]
	return ok, nil
}

func (t *Tx) CreateBooking(_ context.Context, booking *models.Booking) (bool, error) {
	if err := t.fail("CreateBooking"); err != nil {
		return false, err
	}
	for _, b := range t.state.Bookings {
		if b.StripeCheckoutSessionID == booking.StripeCheckoutSessionID {
			return false, nil
		}
	}
	booking.ID = uuid.New()
	t.state.Bookings[booking.ID] = *booking
	t.wrote()
	return true, nil
}

func (t *Tx) CreatePass(_ context.Context, pass *models.Pass) (bool, error) {
	if _, ok := t.state.Passes[pass.StripeCheckoutSessionID]; ok {
		return false, nil
	}
	pass.ID = uuid.New()
	pass.EntriesRemaining = pass.EntriesTotal
	t.state.Passes[pass.StripeCheckoutSessionID] = *pass
	t.wrote()
	return true, nil
}

func (t *Tx) UpsertMembership(_ context.Context, membership *models.Membership) (bool, error) {
	if err := t.fail("UpsertMembership"); err != nil {
		return false, err
	}
	existing, ok := t.state.Memberships[membership.StripeSubscriptionID]
	if ok && existing.Status == models.SubscriptionStatusCanceled {
		return false, nil
	}
	if ok {
		existing.SubscriptionPeriod = mergePeriod(existing.SubscriptionPeriod, membership.SubscriptionPeriod)
		membership.ID = existing.ID
		t.state.Memberships[membership.StripeSubscriptionID] = existing
		t.wrote()
		return false, nil
	}
	membership.ID = uuid.New()
	t.state.Memberships[membership.StripeSubscriptionID] = *membership
	t.wrote()
	return true, nil
}

func (t *Tx) UpsertChannelSubscription(_ context.Context, sub *models.ChannelSubscription) (bool, error) {
	existing, ok := t.state.ChannelSubscriptions[sub.StripeSubscriptionID]
	if ok && existing.Status == models.SubscriptionStatusCanceled {
		return false, nil
	}
	if ok {
		existing.SubscriptionPeriod = mergePeriod(existing.SubscriptionPeriod, sub.SubscriptionPeriod)
		sub.ID = existing.ID
		t.state.ChannelSubscriptions[sub.StripeSubscriptionID] = existing
		t.wrote()
		return false, nil
	}
	sub.ID = uuid.New()
	t.state.ChannelSubscriptions[sub.StripeSubscriptionID] = *sub
	t.wrote()
	return true, nil
}

func (t *Tx) ApplyPlatformUpgrade(_ context.Context, upgrade *models.PlatformUpgrade) (bool, error) {
	p, ok := t.state.Profiles[upgrade.ProfileID]
	if !ok {
		return false, nil
	}
	p.Tier = upgrade.Tier
	p.PlatformSubscriptionID = upgrade.StripeSubscriptionID
	p.PlatformStatus = upgrade.Status
	p.PlatformPeriodEnd = upgrade.CurrentPeriodEnd
	if upgrade.StripeCustomerID != "" {
		p.StripeCustomerID = upgrade.StripeCustomerID
	}
	t.state.Profiles[p.ID] = p
	t.wrote()
	return true, nil
}

func (t *Tx) InsertPaymentSplit(_ context.Context, split *models.PaymentSplit) (bool, error) {
	if _, ok := t.state.PaymentSplits[split.StripeInvoiceID]; ok {
		return false, nil
	}
	t.state.PaymentSplits[split.StripeInvoiceID] = *split
	t.wrote()
	return true, nil
}

func (t *Tx) UpdateMembershipPeriod(_ context.Context, period models.SubscriptionPeriod) (*models.Membership, error) {
	if err := t.fail("UpdateMembershipPeriod"); err != nil {
		return nil, err
	}
	m, ok := t.state.Memberships[period.StripeSubscriptionID]
	if !ok || reopens(m.Status, period.Status) {
		return nil, models.ErrNotFound
	}
	m.SubscriptionPeriod = mergePeriod(m.SubscriptionPeriod, period)
	t.state.Memberships[period.StripeSubscriptionID] = m
	t.wrote()
	return &m, nil
}

func (t *Tx) GetMembership(_ context.Context, subscriptionID string) (*models.Membership, error) {
	m, ok := t.state.Memberships[subscriptionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &m, nil
}

func (t *Tx) UpdateChannelSubscriptionPeriod(_ context.Context, period models.SubscriptionPeriod) (*models.ChannelSubscription, error) {
	sub, ok := t.state.ChannelSubscriptions[period.StripeSubscriptionID]
	if !ok || reopens(sub.Status, period.Status) {
		return nil, models.ErrNotFound
	}
	sub.SubscriptionPeriod = mergePeriod(sub.SubscriptionPeriod, period)
	t.state.ChannelSubscriptions[period.StripeSubscriptionID] = sub
	t.wrote()
	return &sub, nil
}

func (t *Tx) GetChannelSubscription(_ context.Context, subscriptionID string) (*models.ChannelSubscription, error) {
	sub, ok := t.state.ChannelSubscriptions[subscriptionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &sub, nil
}

func (t *Tx) profileBy(match func(Profile) bool) (Profile, bool) {
	for _, p := range t.state.Profiles {
		if match(p) {
			return p, true
		}
	}
	return Profile{}, false
}

func (t *Tx) UpdatePlatformSubscription(_ context.Context, period models.SubscriptionPeriod) (uuid.UUID, error) {
	p, ok := t.profileBy(func(p Profile) bool {
		return p.PlatformSubscriptionID != "" && p.PlatformSubscriptionID == period.StripeSubscriptionID
	})
	if !ok || reopens(p.PlatformStatus, period.Status) {
		return uuid.Nil, models.ErrNotFound
	}
	p.PlatformStatus = period.Status
	if !period.CurrentPeriodEnd.IsZero() {
		p.PlatformPeriodEnd = period.CurrentPeriodEnd
	}
	t.state.Profiles[p.ID] = p
	t.wrote()
	return p.ID, nil
}

func (t *Tx) DowngradePlatformTier(_ context.Context, subscriptionID string) (uuid.UUID, error) {
	p, ok := t.profileBy(func(p Profile) bool {
		return p.PlatformSubscriptionID != "" && p.PlatformSubscriptionID == subscriptionID
	})
	if !ok {
		return uuid.Nil, models.ErrNotFound
	}
	p.Tier = models.PlatformTierFree
	p.PlatformStatus = models.SubscriptionStatusCanceled
	t.state.Profiles[p.ID] = p
	t.wrote()
	return p.ID, nil
}

func (t *Tx) GetVerificationStateBySubscription(_ context.Context, subscriptionID string) (*models.VerificationState, error) {
	p, ok := t.profileBy(func(p Profile) bool {
		return p.VerificationSubscriptionID != "" && p.VerificationSubscriptionID == subscriptionID
	})
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.VerificationState{
		ProfileID:                  p.ID,
		VerifiedBadge:              p.VerifiedBadge,
		IdentityVerifiedAt:         p.IdentityVerifiedAt,
		VerificationSubscriptionID: p.VerificationSubscriptionID,
	}, nil
}

func (t *Tx) LinkVerificationSubscription(_ context.Context, profileID uuid.UUID, subscriptionID string) (bool, error) {
	p, ok := t.state.Profiles[profileID]
	if !ok {
		return false, nil
	}
	p.VerificationSubscriptionID = subscriptionID
	p.VerifiedBadge = !p.IdentityVerifiedAt.IsZero()
	t.state.Profiles[profileID] = p
	t.wrote()
	return true, nil
}

func (t *Tx) SetVerifiedBadge(_ context.Context, profileID uuid.UUID, badge bool) error {
	if p, ok := t.state.Profiles[profileID]; ok {
		p.VerifiedBadge = badge
		t.state.Profiles[profileID] = p
		t.wrote()
	}
	return nil
}

func (t *Tx) ClearVerification(_ context.Context, profileID uuid.UUID) error {
	if err := t.fail("ClearVerification"); err != nil {
		return err
	}
	if p, ok := t.state.Profiles[profileID]; ok {
		p.VerifiedBadge = false
		p.VerificationSubscriptionID = ""
		t.state.Profiles[profileID] = p
		t.wrote()
	}
	return nil
}

func (t *Tx) UpdateConnectedAccount(_ context.Context, accountID string, chargesEnabled, payoutsEnabled bool) (bool, error) {
	p, ok := t.profileBy(func(p Profile) bool { return p.ConnectedAccountID == accountID })
	if !ok || accountID == "" {
		return false, nil
	}
	p.ChargesEnabled = chargesEnabled
	p.PayoutsEnabled = payoutsEnabled
	t.state.Profiles[p.ID] = p
	t.wrote()
	return true, nil
}

func (t *Tx) FindProfileByConnectedAccount(_ context.Context, accountID string) (uuid.UUID, error) {
	p, ok := t.profileBy(func(p Profile) bool { return accountID != "" && p.ConnectedAccountID == accountID })
	if !ok {
		return uuid.Nil, models.ErrNotFound
	}
	return p.ID, nil
}

func (t *Tx) MarkIdentityVerified(_ context.Context, sessionID string, verifiedAt time.Time) (uuid.UUID, error) {
	p, ok := t.profileBy(func(p Profile) bool { return sessionID != "" && p.IdentitySessionID == sessionID })
	if !ok {
		return uuid.Nil, models.ErrNotFound
	}
	if p.IdentityVerifiedAt.IsZero() {
		p.IdentityVerifiedAt = verifiedAt
	}
	p.VerifiedBadge = p.VerifiedBadge || p.VerificationSubscriptionID != ""
	t.state.Profiles[p.ID] = p
	t.wrote()
	return p.ID, nil
}

func (t *Tx) UpsertDispute(_ context.Context, dispute *models.Dispute) (bool, error) {
	existing, existed := t.state.Disputes[dispute.StripeDisputeID]
	if existed && models.DisputeClosed(existing.Status) {
		return false, models.ErrDisputeClosed
	}
	t.state.Disputes[dispute.StripeDisputeID] = *dispute
	t.wrote()
	return !existed, nil
}

func (t *Tx) UpsertPayout(_ context.Context, payout *models.Payout) (bool, error) {
	_, existed := t.state.Payouts[payout.StripePayoutID]
	t.state.Payouts[payout.StripePayoutID] = *payout
	t.wrote()
	return !existed, nil
}

func (t *Tx) InsertNotification(_ context.Context, n *models.Notification) (bool, error) {
	if err := t.fail("InsertNotification"); err != nil {
		return false, err
	}
	if _, ok := t.state.Notifications[n.DedupKey]; ok {
		return false, nil
	}
	t.state.Notifications[n.DedupKey] = *n
	t.wrote()
	return true, nil
}

// reopens mirrors the SQL guard that keeps canceled subscriptions canceled.
func reopens(stored, next models.SubscriptionStatus) bool {
	return stored == models.SubscriptionStatusCanceled && next != models.SubscriptionStatusCanceled
}

func mergePeriod(existing, next models.SubscriptionPeriod) models.SubscriptionPeriod {
	merged := next
	if merged.CurrentPeriodStart.IsZero() {
		merged.CurrentPeriodStart = existing.CurrentPeriodStart
	}
	if merged.CurrentPeriodEnd.IsZero() {
		merged.CurrentPeriodEnd = existing.CurrentPeriodEnd
	}
	if merged.CanceledAt.IsZero() {
		merged.CanceledAt = existing.CanceledAt
	}
	return merged
}

// Package usecasetest содержит in-memory реализации репозиториев для тестов use case.
//
// Store хранит копии сущностей, поэтому изменения вне репозитория не видны
// другим читателям. Транзакции выполняются последовательно, при ошибке
// состояние откатывается к снимку, сделанному на входе в WithinTx.
package usecasetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gig-marketplace/internal/domain/entity"
	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

// PlatformID: системный аккаунт, который получает комиссию в тестах.
var PlatformID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type state struct {
	users         map[uuid.UUID]entity.User
	profiles      map[uuid.UUID]entity.Profile
	jobs          map[uuid.UUID]entity.Job
	offers        map[uuid.UUID]entity.Offer
	transactions  map[uuid.UUID]entity.Transaction
	wallets       map[uuid.UUID]int64
	rates         []valueobject.CommissionRate
	notifications map[uuid.UUID]entity.Notification
}

func (s state) clone() state {
	cp := state{
		users:         make(map[uuid.UUID]entity.User, len(s.users)),
		profiles:      make(map[uuid.UUID]entity.Profile, len(s.profiles)),
		jobs:          make(map[uuid.UUID]entity.Job, len(s.jobs)),
		offers:        make(map[uuid.UUID]entity.Offer, len(s.offers)),
		transactions:  make(map[uuid.UUID]entity.Transaction, len(s.transactions)),
		wallets:       make(map[uuid.UUID]int64, len(s.wallets)),
		rates:         append([]valueobject.CommissionRate(nil), s.rates...),
		notifications: make(map[uuid.UUID]entity.Notification, len(s.notifications)),
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.profiles {
		cp.profiles[k] = v
	}
	for k, v := range s.jobs {
		cp.jobs[k] = v
	}
	for k, v := range s.offers {
		cp.offers[k] = v
	}
	for k, v := range s.transactions {
		cp.transactions[k] = v
	}
	for k, v := range s.wallets {
		cp.wallets[k] = v
	}
	for k, v := range s.notifications {
		cp.notifications[k] = v
	}
	return cp
}

type txKey struct{}

var phoneSeq atomic.Int64

// Store: общее хранилище всех in-memory репозиториев.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	data   state
	faults map[string]error
}

func NewStore() *Store {
	s := &Store{
		data: state{
			users:         map[uuid.UUID]entity.User{},
			profiles:      map[uuid.UUID]entity.Profile{},
			jobs:          map[uuid.UUID]entity.Job{},
			offers:        map[uuid.UUID]entity.Offer{},
			transactions:  map[uuid.UUID]entity.Transaction{},
			wallets:       map[uuid.UUID]int64{},
			notifications: map[uuid.UUID]entity.Notification{},
		},
		faults: map[string]error{},
	}
	now := time.Now().UTC()
	s.data.users[PlatformID] = entity.User{ID: PlatformID, Phone: "+10000000000", Role: valueobject.RoleAdmin, RoleVersion: 1, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.data.rates = []valueobject.CommissionRate{{BasisPoints: 1000, Version: 1}}
	return s
}

// FailOn заставляет операцию с указанным именем (например "WalletRepository.Credit") вернуть err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	return s.faults[op]
}

func (s *Store) Transactor() repository.Transactor      { return txRunner{s} }
func (s *Store) Users() *UserRepository                 { return &UserRepository{s} }
func (s *Store) Profiles() *ProfileRepository           { return &ProfileRepository{s} }
func (s *Store) Jobs() *JobRepository                   { return &JobRepository{s} }
func (s *Store) Offers() *OfferRepository               { return &OfferRepository{s} }
func (s *Store) Transactions() *TransactionRepository   { return &TransactionRepository{s} }
func (s *Store) Wallets() *WalletRepository             { return &WalletRepository{s} }
func (s *Store) Commission() *CommissionRepository      { return &CommissionRepository{s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s} }

type txRunner struct{ s *Store }

func (t txRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	snapshot := t.s.data.clone()
	t.s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.mu.Lock()
		t.s.data = snapshot
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// --- сидирование и проверки ---

// AddUser создаёт пользователя с профилем. Фрилансеры создаются верифицированными.
func (s *Store) AddUser(role valueobject.Role) *entity.User {
	now := time.Now().UTC()
	user := entity.NewUser(fmt.Sprintf("+7700%07d", phoneSeq.Add(1)), role, now)
	profile := entity.NewProfile(user.ID, now)
	if role == valueobject.RoleFreelancer {
		profile.VerificationStatus = valueobject.VerificationApproved
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[user.ID] = *user
	s.data.profiles[user.ID] = *profile
	return user
}

func (s *Store) SetVerification(userID uuid.UUID, status valueobject.VerificationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.profiles[userID]
	p.VerificationStatus = status
	s.data.profiles[userID] = p
}

// AddJob создаёт задание клиента в указанном статусе.
func (s *Store) AddJob(clientID uuid.UUID, amount int64, status valueobject.JobStatus, freelancerID *uuid.UUID) *entity.Job {
	now := time.Now().UTC()
	job, err := entity.NewJob(entity.NewJobParams{
		ClientID:       clientID,
		Title:          "Уборка квартиры",
		Description:    "Генеральная уборка двухкомнатной квартиры",
		Category:       "cleaning",
		Amount:         amount,
		NumberOfPeople: 1,
		Address:        "Алматы, Абая 1",
	}, now)
	if err != nil {
		panic(err)
	}
	job.Status = status
	job.FreelancerID = freelancerID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.jobs[job.ID] = *job
	return job
}

// PutOffer сохраняет предложение как есть, например с заданным CreatedAt.
func (s *Store) PutOffer(offer *entity.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.offers[offer.ID] = *offer
}

func (s *Store) PutTransaction(tx *entity.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.transactions[tx.ID] = *tx
}

func (s *Store) SetBalance(userID uuid.UUID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.wallets[userID] = balance
}

func (s *Store) SetRate(bps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := int64(len(s.data.rates) + 1)
	s.data.rates = append(s.data.rates, valueobject.CommissionRate{BasisPoints: bps, Version: version})
}

func (s *Store) Balance(userID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.wallets[userID]
}

func (s *Store) Job(id uuid.UUID) *entity.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.data.jobs[id]
	if !ok {
		return nil
	}
	return &job
}

func (s *Store) Offer(id uuid.UUID) *entity.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.data.offers[id]
	if !ok {
		return nil
	}
	return &offer
}

func (s *Store) User(id uuid.UUID) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data.users[id]
	if !ok {
		return nil
	}
	return &user
}

func (s *Store) Profile(userID uuid.UUID) *entity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.profiles[userID]
	if !ok {
		return nil
	}
	return &p
}

// OffersByJob возвращает предложения задания в порядке создания.
func (s *Store) OffersByJob(jobID uuid.UUID) []entity.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []entity.Offer
	for _, o := range s.data.offers {
		if o.JobID == jobID {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

// TransactionsByType возвращает все проводки заданного типа.
func (s *Store) TransactionsByType(txType valueobject.TransactionType) []entity.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []entity.Transaction
	for _, t := range s.data.transactions {
		if t.Type == txType {
			result = append(result, t)
		}
	}
	return result
}

// --- репозитории ---

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Phone == user.Phone {
			return apperror.New(apperror.ErrCodeConflict, "пользователь с таким телефоном уже существует")
		}
	}
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if u := r.s.User(id); u != nil {
		return u, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Email != nil && *u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}

func (r *UserRepository) Lock(ctx context.Context, id uuid.UUID, mode repository.LockMode) (*entity.User, error) {
	return r.FindByID(ctx, id)
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role valueobject.Role, expectedVersion int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok || u.RoleVersion != expectedVersion {
		return false, nil
	}
	u.Role = role
	u.RoleVersion++
	u.UpdatedAt = time.Now().UTC()
	r.s.data.users[id] = u
	return true, nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.data.users[id]; ok {
		u.LastLoginAt = &at
		r.s.data.users[id] = u
	}
	return nil
}

type ProfileRepository struct{ s *Store }

func (r *ProfileRepository) Create(ctx context.Context, p *entity.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.profiles[p.UserID]; !ok {
		r.s.data.profiles[p.UserID] = *p
	}
	return nil
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	if p := r.s.Profile(userID); p != nil {
		return p, nil
	}
	return nil, apperror.ErrProfileNotFound
}

func (r *ProfileRepository) update(userID uuid.UUID, fn func(p *entity.Profile)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.profiles[userID]
	if !ok {
		return apperror.ErrProfileNotFound
	}
	fn(&p)
	r.s.data.profiles[userID] = p
	return nil
}

func (r *ProfileRepository) UpdateVerification(ctx context.Context, userID uuid.UUID, status valueobject.VerificationStatus, note *string) error {
	return r.update(userID, func(p *entity.Profile) {
		p.VerificationStatus = status
		p.VerificationNote = note
	})
}

func (r *ProfileRepository) AddFreelancerEarnings(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.update(userID, func(p *entity.Profile) {
		p.TotalJobs++
		p.CompletedJobs++
		p.TotalEarnings += amount
	})
}

func (r *ProfileRepository) AddClientSpending(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.update(userID, func(p *entity.Profile) { p.TotalSpent += amount })
}

func (r *ProfileRepository) IncrementJobsPosted(ctx context.Context, userID uuid.UUID) error {
	return r.update(userID, func(p *entity.Profile) { p.JobsPosted++ })
}

type JobRepository struct{ s *Store }

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("JobRepository.Create"); err != nil {
		return err
	}
	r.s.data.jobs[job.ID] = *job
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	if job := r.s.Job(id); job != nil {
		return job, nil
	}
	return nil, apperror.ErrJobNotFound
}

func (r *JobRepository) Lock(ctx context.Context, id uuid.UUID, mode repository.LockMode) (*entity.Job, error) {
	return r.FindByID(ctx, id)
}

func (r *JobRepository) Assign(ctx context.Context, id, freelancerID uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.data.jobs[id]
	if !ok || job.Status != valueobject.JobStatusOpen {
		return false, nil
	}
	job.Status = valueobject.JobStatusAssigned
	job.FreelancerID = &freelancerID
	job.AssignedAt = &at
	job.UpdatedAt = at
	r.s.data.jobs[id] = job
	return true, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus, at time.Time) (bool, error) {
	if err := from.CheckTransition(to); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("JobRepository.UpdateStatus"); err != nil {
		return false, err
	}
	job, ok := r.s.data.jobs[id]
	if !ok || job.Status != from {
		return false, nil
	}
	job.Status = to
	job.UpdatedAt = at
	switch to {
	case valueobject.JobStatusWorkDone:
		if from != valueobject.JobStatusWaitingForPayment {
			job.WorkDoneAt = &at
		}
	case valueobject.JobStatusCompleted:
		job.PaymentCompletedAt = &at
	case valueobject.JobStatusCancelled:
		job.CancelledAt = &at
	}
	r.s.data.jobs[id] = job
	return true, nil
}

func (r *JobRepository) DeleteOpen(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.data.jobs[id]
	if !ok || job.Status != valueobject.JobStatusOpen {
		return false, nil
	}
	delete(r.s.data.jobs, id)
	for oid, o := range r.s.data.offers {
		if o.JobID == id {
			delete(r.s.data.offers, oid)
		}
	}
	return true, nil
}

func (r *JobRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.data.jobs[id]
	if !ok {
		return apperror.ErrJobNotFound
	}
	job.IsActive = active
	job.UpdatedAt = at
	r.s.data.jobs[id] = job
	return nil
}

func (r *JobRepository) List(ctx context.Context, filter repository.JobFilter) ([]*entity.Job, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*entity.Job
	for _, j := range r.s.data.jobs {
		switch {
		case filter.Status != nil && j.Status != *filter.Status,
			filter.Category != "" && j.Category != filter.Category,
			filter.ClientID != nil && j.ClientID != *filter.ClientID,
			filter.FreelancerID != nil && (j.FreelancerID == nil || *j.FreelancerID != *filter.FreelancerID),
			filter.ActiveOnly && !j.IsActive:
			continue
		}
		job := j
		matched = append(matched, &job)
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *JobRepository) FindClientConflicts(ctx context.Context, clientID uuid.UUID) ([]entity.JobConflict, error) {
	return r.conflicts(func(j entity.Job) bool {
		return j.ClientID == clientID && j.Status == valueobject.JobStatusOpen && j.IsActive
	}), nil
}

func (r *JobRepository) FindFreelancerConflicts(ctx context.Context, freelancerID uuid.UUID) ([]entity.JobConflict, error) {
	return r.conflicts(func(j entity.Job) bool {
		if !j.IsAssignedTo(freelancerID) {
			return false
		}
		for _, s := range valueobject.FreelancerObligationStatuses {
			if j.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *JobRepository) conflicts(match func(entity.Job) bool) []entity.JobConflict {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var jobs []entity.Job
	for _, j := range r.s.data.jobs {
		if match(j) {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) })
	result := make([]entity.JobConflict, 0, len(jobs))
	for _, j := range jobs {
		result = append(result, entity.JobConflict{JobID: j.ID, Title: j.Title, Status: j.Status})
	}
	return result
}

type OfferRepository struct{ s *Store }

func (r *OfferRepository) active(jobID, freelancerID uuid.UUID) *entity.Offer {
	for _, o := range r.s.data.offers {
		if o.JobID == jobID && o.FreelancerID == freelancerID && o.Status.IsActive() {
			return &o
		}
	}
	return nil
}

func (r *OfferRepository) FindActiveForUpdate(ctx context.Context, jobID, freelancerID uuid.UUID) (*entity.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.active(jobID, freelancerID), nil
}

func (r *OfferRepository) Insert(ctx context.Context, offer *entity.Offer) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.active(offer.JobID, offer.FreelancerID) != nil {
		return false, nil
	}
	r.s.data.offers[offer.ID] = *offer
	return true, nil
}

func (r *OfferRepository) Revise(ctx context.Context, offer *entity.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.offers[offer.ID]
	if !ok || stored.Status != valueobject.OfferStatusPending {
		return apperror.AlreadyResolved(stored.Status)
	}
	stored.OfferedAmount = offer.OfferedAmount
	stored.Message = offer.Message
	stored.OfferType = offer.OfferType
	stored.UpdatedAt = offer.UpdatedAt
	r.s.data.offers[offer.ID] = stored
	return nil
}

func (r *OfferRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Offer, error) {
	if o := r.s.Offer(id); o != nil {
		return o, nil
	}
	return nil, apperror.ErrOfferNotFound
}

func (r *OfferRepository) Resolve(ctx context.Context, id uuid.UUID, from, to valueobject.OfferStatus, responseMessage *string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.offers[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if responseMessage != nil {
		o.ResponseMessage = responseMessage
	}
	if to == valueobject.OfferStatusAccepted || to == valueobject.OfferStatusRejected {
		o.RespondedAt = &at
	}
	o.UpdatedAt = at
	r.s.data.offers[id] = o
	return true, nil
}

func (r *OfferRepository) RejectPending(ctx context.Context, jobID, exceptID uuid.UUID, responseMessage string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, o := range r.s.data.offers {
		if o.JobID != jobID || id == exceptID || o.Status != valueobject.OfferStatusPending {
			continue
		}
		msg := responseMessage
		o.Status = valueobject.OfferStatusRejected
		o.ResponseMessage = &msg
		o.RespondedAt = &at
		o.UpdatedAt = at
		r.s.data.offers[id] = o
		n++
	}
	return n, nil
}

func (r *OfferRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entity.Offer, error) {
	offers := r.s.OffersByJob(jobID)
	result := make([]*entity.Offer, 0, len(offers))
	for i := len(offers) - 1; i >= 0; i-- {
		result = append(result, &offers[i])
	}
	return result, nil
}

func (r *OfferRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]*entity.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*entity.Offer
	for _, o := range r.s.data.offers {
		if o.FreelancerID == freelancerID {
			offer := o
			matched = append(matched, &offer)
		}
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })
	return page(matched, limit, offset), nil
}

type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("TransactionRepository.Create"); err != nil {
		return err
	}
	for _, t := range r.s.data.transactions {
		if t.Reference == tx.Reference {
			return apperror.New(apperror.ErrCodeConflict, "транзакция с таким reference уже существует").
				WithDetail("reference", tx.Reference)
		}
	}
	r.s.data.transactions[tx.ID] = *tx
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.data.transactions[id]; ok {
		return &t, nil
	}
	return nil, apperror.ErrTransactionNotFound
}

func (r *TransactionRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	return r.FindByID(ctx, id)
}

func (r *TransactionRepository) LockByReference(ctx context.Context, reference string) (*entity.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.transactions {
		if t.Reference == reference {
			return &t, nil
		}
	}
	return nil, apperror.ErrTransactionNotFound
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, failureReason *string, at time.Time) (bool, error) {
	if err := from.CheckTransition(to); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.transactions[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	if failureReason != nil {
		t.FailureReason = failureReason
	}
	if to == valueobject.TransactionStatusCompleted {
		t.CompletedAt = &at
	}
	r.s.data.transactions[id] = t
	return true, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*entity.Transaction
	for _, t := range r.s.data.transactions {
		switch {
		case filter.UserID != nil && t.UserID != *filter.UserID,
			filter.Type != nil && t.Type != *filter.Type,
			filter.Status != nil && t.Status != *filter.Status:
			continue
		}
		tx := t
		matched = append(matched, &tx)
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *TransactionRepository) ListStalePendingPayments(ctx context.Context, method valueobject.PaymentMethod, createdBefore time.Time, limit int) ([]*entity.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*entity.Transaction
	for _, t := range r.s.data.transactions {
		if t.Type != valueobject.TransactionTypePayment || t.Status != valueobject.TransactionStatusPending ||
			t.PaymentMethod == nil || *t.PaymentMethod != method || !t.CreatedAt.Before(createdBefore) {
			continue
		}
		tx := t
		matched = append(matched, &tx)
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.Before(matched[b].CreatedAt) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type WalletRepository struct{ s *Store }

func (r *WalletRepository) Get(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error) {
	return &entity.Wallet{UserID: userID, Balance: r.s.Balance(userID)}, nil
}

func (r *WalletRepository) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	if err := valueobject.ValidateAmount("amount", amount); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("WalletRepository.Credit"); err != nil {
		return err
	}
	r.s.data.wallets[userID] += amount
	return nil
}

func (r *WalletRepository) Debit(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	if err := valueobject.ValidateAmount("amount", amount); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.data.wallets[userID] < amount {
		return false, nil
	}
	r.s.data.wallets[userID] -= amount
	return true, nil
}

type CommissionRepository struct{ s *Store }

func (r *CommissionRepository) Current(ctx context.Context) (valueobject.CommissionRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.data.rates) == 0 {
		return valueobject.CommissionRate{}, apperror.New(apperror.ErrCodeNotFound, "ставка комиссии не настроена")
	}
	return r.s.data.rates[len(r.s.data.rates)-1], nil
}

func (r *CommissionRepository) Create(ctx context.Context, rate valueobject.CommissionRate, createdBy uuid.UUID) (valueobject.CommissionRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var last int64
	if n := len(r.s.data.rates); n > 0 {
		last = r.s.data.rates[n-1].Version
	}
	rate.Version = last + 1
	r.s.data.rates = append(r.s.data.rates, rate)
	return rate, nil
}

// ClearRates удаляет все версии ставки, имитируя пустую таблицу.
func (s *Store) ClearRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rates = nil
}

type NotificationRepository struct{ s *Store }

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.notifications[n.ID] = *n
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*entity.Notification
	for _, n := range r.s.data.notifications {
		if n.UserID == userID {
			item := n
			matched = append(matched, &item)
		}
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })
	return page(matched, limit, offset), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, n := range r.s.data.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.data.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	r.s.data.notifications[id] = n
	return true, nil
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

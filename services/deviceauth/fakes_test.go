package deviceauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	deviceRepo "trustlink/database/repository/device"
	"trustlink/models"
)

// In-memory collaborators for exercising the validators without Mongo or
// Redis. The stores keep the single-winner redemption semantics.

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*models.Device
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*models.Device)}
}

func (r *fakeDeviceRepo) GetByID(_ context.Context, deviceID string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDeviceRepo) ListByOwner(_ context.Context, ownerUserID string) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Device
	for _, d := range r.devices {
		if d.OwnerUserID == ownerUserID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) Create(_ context.Context, device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	device.Version = 1
	copied := *device
	r.devices[device.DeviceID] = &copied
	return nil
}

func (r *fakeDeviceRepo) RotatePublicKey(_ context.Context, deviceID string, version int64, publicKeyPEM string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	if !ok || d.Version != version {
		return deviceRepo.ErrVersionConflict
	}
	d.PublicKeyPEM = publicKeyPEM
	d.Version++
	return nil
}

func (r *fakeDeviceRepo) SetRequiresPassword(_ context.Context, deviceID string, required bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return fmt.Errorf("device with id %s not found", deviceID)
	}
	d.RequiresPassword = required
	return nil
}

func (r *fakeDeviceRepo) UpdateLastSignIn(_ context.Context, deviceID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return fmt.Errorf("device with id %s not found", deviceID)
	}
	d.LastSignInAt = at
	return nil
}

func (r *fakeDeviceRepo) Delete(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, deviceID)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) UpdateLastSignIn(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user with id %s not found", id)
	}
	u.LastSignInAt = at
	return nil
}

type fakeClientRepo struct {
	clients map[string]*models.Client
}

func newFakeClientRepo(clients ...*models.Client) *fakeClientRepo {
	r := &fakeClientRepo{clients: make(map[string]*models.Client)}
	for _, c := range clients {
		r.clients[c.ClientID] = c
	}
	return r
}

func (r *fakeClientRepo) GetByClientID(_ context.Context, clientID string) (*models.Client, error) {
	c, ok := r.clients[clientID]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

type memTransactionStore struct {
	mu   sync.Mutex
	next int
	txs  map[string]*models.AuthorizationTransaction
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{txs: make(map[string]*models.AuthorizationTransaction)}
}

func (s *memTransactionStore) Create(_ context.Context, tx *models.AuthorizationTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tx.Code = fmt.Sprintf("enroll-code-%d", s.next)
	copied := *tx
	s.txs[tx.Code] = &copied
	return nil
}

func (s *memTransactionStore) Redeem(_ context.Context, code string) (*models.AuthorizationTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[code]
	if !ok {
		return nil, nil
	}
	delete(s.txs, code)
	return tx, nil
}

type memChallengeStore struct {
	mu         sync.Mutex
	next       int
	challenges map[string]*models.DeviceGrantChallenge
}

func newMemChallengeStore() *memChallengeStore {
	return &memChallengeStore{challenges: make(map[string]*models.DeviceGrantChallenge)}
}

func (s *memChallengeStore) Create(_ context.Context, challenge *models.DeviceGrantChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	challenge.Code = fmt.Sprintf("login-code-%d", s.next)
	copied := *challenge
	s.challenges[challenge.Code] = &copied
	return nil
}

func (s *memChallengeStore) Redeem(_ context.Context, code string) (*models.DeviceGrantChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[code]
	if !ok {
		return nil, nil
	}
	delete(s.challenges, code)
	return challenge, nil
}

type fakeOTPVerifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func newFakeOTPVerifier() *fakeOTPVerifier {
	return &fakeOTPVerifier{codes: make(map[string]string)}
}

func (v *fakeOTPVerifier) issue(subjectID, deviceID, otp string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.codes[subjectID+":"+deviceID] = otp
}

func (v *fakeOTPVerifier) Verify(_ context.Context, subjectID, deviceID, otp string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := subjectID + ":" + deviceID
	stored, ok := v.codes[key]
	if !ok || stored != otp {
		return fmt.Errorf("OTP does not match")
	}
	delete(v.codes, key)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.LoginEventPayload
}

func (n *fakeNotifier) NotifyLoginEvent(_ context.Context, event models.LoginEventPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) recorded() []models.LoginEventPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.LoginEventPayload(nil), n.events...)
}

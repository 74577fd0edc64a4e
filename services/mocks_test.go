package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"ttnmanager/models"
	"ttnmanager/novaposhta"
	"ttnmanager/repository"
)

// MockDirectory is a testify mock of the Nova Poshta directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) SearchSettlements(ctx context.Context, cityName string, limit int) ([]novaposhta.SettlementGroup, error) {
	args := m.Called(ctx, cityName, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.SettlementGroup), args.Error(1)
}

func (m *MockDirectory) GetWarehouses(ctx context.Context, props novaposhta.GetWarehousesProps) ([]novaposhta.Warehouse, error) {
	args := m.Called(ctx, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.Warehouse), args.Error(1)
}

func (m *MockDirectory) GetCities(ctx context.Context, find string, limit int) ([]novaposhta.City, error) {
	args := m.Called(ctx, find, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.City), args.Error(1)
}

func (m *MockDirectory) SaveCounterparty(ctx context.Context, apiKey string, props novaposhta.SaveCounterpartyProps) ([]novaposhta.SavedCounterparty, error) {
	args := m.Called(ctx, apiKey, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.SavedCounterparty), args.Error(1)
}

func (m *MockDirectory) GetCounterparties(ctx context.Context, apiKey string, props novaposhta.GetCounterpartiesProps) ([]novaposhta.Counterparty, error) {
	args := m.Called(ctx, apiKey, props)
	if fn, ok := args.Get(0).(func(context.Context, string, novaposhta.GetCounterpartiesProps) []novaposhta.Counterparty); ok {
		return fn(ctx, apiKey, props), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.Counterparty), args.Error(1)
}

func (m *MockDirectory) GetCounterpartyAddresses(ctx context.Context, apiKey string, props novaposhta.RefPageProps) ([]novaposhta.CounterpartyAddress, error) {
	args := m.Called(ctx, apiKey, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.CounterpartyAddress), args.Error(1)
}

func (m *MockDirectory) GetCounterpartyContactPersons(ctx context.Context, apiKey string, props novaposhta.RefPageProps) ([]novaposhta.ContactPerson, error) {
	args := m.Called(ctx, apiKey, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.ContactPerson), args.Error(1)
}

func (m *MockDirectory) SaveContactPerson(ctx context.Context, apiKey string, props novaposhta.SaveContactPersonProps) ([]novaposhta.ContactPerson, error) {
	args := m.Called(ctx, apiKey, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.ContactPerson), args.Error(1)
}

func (m *MockDirectory) SaveAddress(ctx context.Context, apiKey string, props novaposhta.SaveAddressProps) ([]novaposhta.SavedAddress, error) {
	args := m.Called(ctx, apiKey, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.SavedAddress), args.Error(1)
}

func (m *MockDirectory) SaveInternetDocument(ctx context.Context, apiKey string, props novaposhta.DocumentProps) ([]novaposhta.SavedDocument, error) {
	args := m.Called(ctx, apiKey, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]novaposhta.SavedDocument), args.Error(1)
}

// memStore is an in-memory implementation of every repository interface.
type memStore struct {
	mu        sync.Mutex
	clients   map[string]*models.Client
	locations map[string]*models.ClientLocation
	senders   map[string]*models.Sender
	ttns      []*models.TTN
	keys      map[string]string
	refWrites int
	failTTN   error
}

func newMemStore() *memStore {
	return &memStore{
		clients:   map[string]*models.Client{},
		locations: map[string]*models.ClientLocation{},
		senders:   map[string]*models.Sender{},
		keys:      map[string]string{},
	}
}

func (s *memStore) store() *repository.Store {
	return &repository.Store{Clients: s, Senders: s, TTN: s, Settings: s}
}

func (s *memStore) InsertClient(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *memStore) CreateClientWithLocation(ctx context.Context, c *models.Client, loc *models.ClientLocation) error {
	if err := s.InsertClient(ctx, c); err != nil {
		return err
	}
	loc.ClientID = c.ID
	return s.InsertClientLocation(ctx, loc)
}

func (s *memStore) ListClients(_ context.Context, userID string) ([]*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Client
	for _, c := range s.clients {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) GetClient(_ context.Context, id, userID string) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) DeleteClient(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(s.clients, id)
	return true, nil
}

func (s *memStore) UpdateClientRefs(_ context.Context, id, userID, counterpartyRef, contactRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[id]; ok && c.UserID == userID {
		c.CounterpartyRef = counterpartyRef
		c.ContactRef = contactRef
		s.refWrites++
	}
	return nil
}

func (s *memStore) InsertClientLocation(_ context.Context, loc *models.ClientLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *loc
	s.locations[loc.ID] = &cp
	return nil
}

func (s *memStore) ListClientLocations(_ context.Context, clientIDs []string) ([]models.ClientLocation, error) {
	return nil, nil
}

func (s *memStore) GetClientLocation(_ context.Context, id, userID string) (*models.ClientLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[id]
	if !ok {
		return nil, nil
	}
	if c, ok := s.clients[loc.ClientID]; !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

func (s *memStore) DeleteClientLocation(_ context.Context, id, userID string) (bool, error) {
	return false, nil
}

func (s *memStore) UpsertSender(_ context.Context, sender *models.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.senders {
		if existing.UserID == sender.UserID && existing.SenderRef == sender.SenderRef &&
			existing.CityRef == sender.CityRef && existing.SenderAddressRef == sender.SenderAddressRef {
			sender.ID = existing.ID
			break
		}
	}
	if sender.ID == "" {
		sender.ID = "sender-" + sender.SenderAddressRef
	}
	cp := *sender
	s.senders[sender.ID] = &cp
	return nil
}

func (s *memStore) ListSenders(_ context.Context, userID string) ([]*models.Sender, error) {
	return nil, nil
}

func (s *memStore) GetSender(_ context.Context, id, userID string) (*models.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.senders[id]
	if !ok || sender.UserID != userID {
		return nil, nil
	}
	cp := *sender
	return &cp, nil
}

func (s *memStore) InsertTTN(_ context.Context, t *models.TTN) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTTN != nil {
		return s.failTTN
	}
	if t.ID == "" {
		t.ID = "ttn-1"
	}
	cp := *t
	s.ttns = append(s.ttns, &cp)
	return nil
}

func (s *memStore) ListTTN(_ context.Context, userID string) ([]*models.TTN, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.TTN(nil), s.ttns...), nil
}

func (s *memStore) GetAPIKey(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[userID], nil
}

func (s *memStore) SaveAPIKey(_ context.Context, userID, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[userID] = apiKey
	return nil
}

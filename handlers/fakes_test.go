package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ttnmanager/middleware"
	"ttnmanager/models"
	"ttnmanager/novaposhta"
	"ttnmanager/repository"
	"ttnmanager/services"
)

// fakeStore keeps rows in memory and implements every repository interface.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	clients   map[string]*models.Client
	locations map[string]*models.ClientLocation
	senders   map[string]*models.Sender
	ttns      []*models.TTN
	keys      map[string]string
	fail      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:   map[string]*models.Client{},
		locations: map[string]*models.ClientLocation{},
		senders:   map[string]*models.Sender{},
		keys:      map[string]string{},
	}
}

func (s *fakeStore) store() *repository.Store {
	return &repository.Store{Clients: s, Senders: s, TTN: s, Settings: s}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) InsertClient(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if c.ID == "" {
		c.ID = s.nextID("client")
	}
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *fakeStore) CreateClientWithLocation(ctx context.Context, c *models.Client, loc *models.ClientLocation) error {
	if err := s.InsertClient(ctx, c); err != nil {
		return err
	}
	loc.ClientID = c.ID
	return s.InsertClientLocation(ctx, loc)
}

func (s *fakeStore) ListClients(_ context.Context, userID string) ([]*models.Client, error) {
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

func (s *fakeStore) GetClient(_ context.Context, id, userID string) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) DeleteClient(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(s.clients, id)
	for lid, l := range s.locations {
		if l.ClientID == id {
			delete(s.locations, lid)
		}
	}
	return true, nil
}

func (s *fakeStore) UpdateClientRefs(_ context.Context, id, userID, counterpartyRef, contactRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[id]; ok && c.UserID == userID {
		c.CounterpartyRef, c.ContactRef = counterpartyRef, contactRef
	}
	return nil
}

func (s *fakeStore) InsertClientLocation(_ context.Context, loc *models.ClientLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if loc.ID == "" {
		loc.ID = s.nextID("loc")
	}
	cp := *loc
	s.locations[loc.ID] = &cp
	return nil
}

func (s *fakeStore) ListClientLocations(_ context.Context, clientIDs []string) ([]models.ClientLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(clientIDs))
	for _, id := range clientIDs {
		want[id] = true
	}
	var out []models.ClientLocation
	for _, l := range s.locations {
		if want[l.ClientID] {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeStore) GetClientLocation(_ context.Context, id, userID string) (*models.ClientLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return nil, nil
	}
	if c, ok := s.clients[l.ClientID]; !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *fakeStore) DeleteClientLocation(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return false, nil
	}
	if c, ok := s.clients[l.ClientID]; !ok || c.UserID != userID {
		return false, nil
	}
	delete(s.locations, id)
	return true, nil
}

func (s *fakeStore) UpsertSender(_ context.Context, sender *models.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sender.ID == "" {
		sender.ID = s.nextID("sender")
	}
	cp := *sender
	s.senders[sender.ID] = &cp
	return nil
}

func (s *fakeStore) ListSenders(_ context.Context, userID string) ([]*models.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Sender
	for _, sender := range s.senders {
		if sender.UserID == userID {
			cp := *sender
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) GetSender(_ context.Context, id, userID string) (*models.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.senders[id]
	if !ok || sender.UserID != userID {
		return nil, nil
	}
	cp := *sender
	return &cp, nil
}

func (s *fakeStore) InsertTTN(_ context.Context, t *models.TTN) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	t.ID = s.nextID("ttn")
	t.CreatedAt = time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	cp := *t
	s.ttns = append(s.ttns, &cp)
	return nil
}

func (s *fakeStore) ListTTN(_ context.Context, userID string) ([]*models.TTN, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.TTN
	for _, t := range s.ttns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) GetAPIKey(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[userID], nil
}

func (s *fakeStore) SaveAPIKey(_ context.Context, userID, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[userID] = apiKey
	return nil
}

// fakeNovaPoshta answers by "Model.method" with a canned JSON body and counts
// the calls it received.
type fakeNovaPoshta struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
	server    *httptest.Server
}

func newFakeNovaPoshta(t *testing.T, responses map[string]string) *fakeNovaPoshta {
	f := &fakeNovaPoshta{responses: responses, calls: map[string]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req struct {
			ModelName    string `json:"modelName"`
			CalledMethod string `json:"calledMethod"`
		}
		_ = json.Unmarshal(raw, &req)
		key := req.ModelName + "." + req.CalledMethod

		f.mu.Lock()
		f.calls[key]++
		body, ok := f.responses[key]
		f.mu.Unlock()

		if !ok {
			body = `{"success":true,"data":[]}`
		}
		if strings.HasPrefix(body, "status:") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeNovaPoshta) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeNovaPoshta) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// testEnv wires handlers the same way main does, against fakes.
type testEnv struct {
	store    *fakeStore
	np       *fakeNovaPoshta
	clients  *ClientHandler
	geo      *GeoHandler
	counter  *CounterpartyHandler
	senders  *SenderHandler
	settings *SettingsHandler
	ttn      *TTNHandler
}

func newTestEnv(t *testing.T, responses map[string]string) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := newFakeStore()
	np := newFakeNovaPoshta(t, responses)
	dir := novaposhta.NewClient(novaposhta.Config{BaseURL: np.server.URL, Timeout: 2 * time.Second}, logger, nil)

	keys := services.NewAPIKeys(store)
	prov := services.NewProvisioning(dir, store, store, nil, services.ProvisioningOptions{}, logger, nil)
	addresses := services.NewAddressResolver(dir, services.UseBranchRef, logger)

	return &testEnv{
		store:    store,
		np:       np,
		clients:  &ClientHandler{Repo: store, Logger: logger},
		geo:      &GeoHandler{Geo: services.NewGeography(dir, nil, 0, logger), PopularCities: []string{"Київ"}, Logger: logger},
		counter:  &CounterpartyHandler{Provisioning: prov, Keys: keys, Logger: logger},
		senders:  &SenderHandler{Repo: store, Provisioning: prov, Keys: keys, Logger: logger},
		settings: &SettingsHandler{Keys: keys, Logger: logger},
		ttn:      &TTNHandler{Shipments: services.NewShipments(dir, store.store(), prov, addresses, nil, logger, nil), Logger: logger},
	}
}

// request builds an authenticated request with optional chi URL params.
func request(method, target, body, userID string, params map[string]string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	ctx := r.Context()
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

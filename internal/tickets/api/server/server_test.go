package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sort"
	"testing"
	"time"

	"github.com/Leopold1975/tickets_control/internal/pkg/config"
	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/userrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/authservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/ticketservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/userservice"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string)                   {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Sync() error                   { return nil }

type memUserRepo struct {
	seq     int64
	users   map[int64]models.User
	tickets *memTicketRepo
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]models.User)} //nolint:exhaustruct
}

func (m *memUserRepo) CreateUser(_ context.Context, u models.User) (models.User, error) {
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return models.User{}, userrepo.ErrAlreadyExists
		}
	}

	m.seq++
	u.ID = m.seq
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u

	return u, nil
}

func (m *memUserRepo) GetUserByID(_ context.Context, id int64) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	return u, nil
}

func (m *memUserRepo) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}

	return models.User{}, userrepo.ErrNotFound
}

func (m *memUserRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}

	return models.User{}, userrepo.ErrNotFound
}

func (m *memUserRepo) ListUsers(_ context.Context, offset, limit int) ([]models.User, error) {
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}

	all = all[offset:]
	if limit != 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, nil
}

func (m *memUserRepo) UpdateUser(_ context.Context, u models.User) (models.User, error) {
	if _, ok := m.users[u.ID]; !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	m.users[u.ID] = u

	return u, nil
}

func (m *memUserRepo) DeleteUser(_ context.Context, id int64) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, userrepo.ErrNotFound
	}

	delete(m.users, id)

	// Тикеты владельца уходят каскадом, как по FK в схеме.
	if m.tickets != nil {
		for tid, t := range m.tickets.tickets {
			if t.OwnerID == id {
				delete(m.tickets.tickets, tid)
			}
		}
	}

	return u, nil
}

func (m *memUserRepo) CountUsers(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *memUserRepo) Shutdown(_ context.Context) error { return nil }

type memTicketRepo struct {
	seq     int64
	tickets map[int64]models.Ticket
	users   *memUserRepo
}

func (m *memTicketRepo) inScope(t models.Ticket, scope ticketrepo.Scope) bool {
	if scope.OwnerID != 0 {
		return t.OwnerID == scope.OwnerID
	}

	return t.SessionKey == scope.SessionKey
}

func (m *memTicketRepo) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	if t.OwnerID != 0 {
		if _, err := m.users.GetUserByID(ctx, t.OwnerID); err != nil {
			return models.Ticket{}, ticketrepo.ErrOwnerNotFound
		}
	}

	m.seq++
	t.ID = m.seq
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tickets[t.ID] = t

	return t, nil
}

func (m *memTicketRepo) GetTicket(_ context.Context, scope ticketrepo.Scope, id int64) (models.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok || !m.inScope(t, scope) {
		return models.Ticket{}, ticketrepo.ErrNotFound
	}

	return t, nil
}

func (m *memTicketRepo) ListTickets(_ context.Context, req ticketrepo.ListRequest) ([]models.Ticket, error) {
	all := make([]models.Ticket, 0, len(m.tickets))

	for _, t := range m.tickets {
		if m.inScope(t, req.Scope) {
			all = append(all, t)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if req.Offset >= len(all) {
		return nil, nil
	}

	all = all[req.Offset:]
	if req.Limit != 0 && req.Limit < len(all) {
		all = all[:req.Limit]
	}

	return all, nil
}

func (m *memTicketRepo) UpdateTicket(_ context.Context, scope ticketrepo.Scope, t models.Ticket) (models.Ticket, error) {
	existing, ok := m.tickets[t.ID]
	if !ok || !m.inScope(existing, scope) {
		return models.Ticket{}, ticketrepo.ErrNotFound
	}

	existing.Title = t.Title
	existing.Description = t.Description
	m.tickets[t.ID] = existing

	return existing, nil
}

func (m *memTicketRepo) DeleteTicket(_ context.Context, scope ticketrepo.Scope, id int64) error {
	t, ok := m.tickets[id]
	if !ok || !m.inScope(t, scope) {
		return ticketrepo.ErrNotFound
	}

	delete(m.tickets, id)

	return nil
}

func (m *memTicketRepo) Shutdown(_ context.Context) error { return nil }

type missCache struct{}

func (missCache) CacheTicket(context.Context, models.Ticket) error { return nil }

func (missCache) CacheSessionTickets(context.Context, string, []models.Ticket) error { return nil }

func (missCache) GetSessionTickets(context.Context, string) ([]models.Ticket, error) {
	return nil, ticketrepo.ErrNotFound
}

func (missCache) DeleteTicket(context.Context, string, int64) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *memUserRepo, *memTicketRepo) {
	t.Helper()

	lg := nopLogger{}
	users := newMemUserRepo()
	tickets := &memTicketRepo{tickets: make(map[int64]models.Ticket), users: users} //nolint:exhaustruct
	users.tickets = tickets

	us := userservice.New(users, lg)
	ts := ticketservice.New(tickets, missCache{}, lg)
	as := authservice.New(users, config.Auth{
		TTL:         time.Hour,
		RecoveryTTL: time.Minute,
		Secret:      "test_secret",
	}, lg)

	cfg := config.Server{ //nolint:exhaustruct
		Addr:         "127.0.0.1:0",
		IdleTimeout:  time.Minute,
		SessionTTL:   time.Hour,
		TemplatesDir: "../../../../web/templates",
	}

	s, err := New(cfg, us, ts, as, lg)
	require.NoError(t, err)

	srv := httptest.NewServer(s.serv.Handler)
	t.Cleanup(srv.Close)

	return srv, users, tickets
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{Jar: jar} //nolint:exhaustruct
}

func postJSON(t *testing.T, client *http.Client, url string, body interface{}) *http.Response {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := client.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	require.NoError(t, dec.Decode(v))
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Equal(t, "It worked!!", body["message"])
}

func TestCreateAndReadUser(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email":    "a@b.com",
		"username": "a",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created map[string]interface{}
	decodeBody(t, resp, &created)

	require.NotNil(t, created["id"])
	require.Equal(t, "a@b.com", created["email"])
	require.NotContains(t, created, "password")
	require.NotContains(t, created, "password_hash")

	getResp, err := client.Get(srv.URL + "/api/v1/users/1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var got map[string]interface{}
	decodeBody(t, getResp, &got)
	require.Equal(t, created["id"], got["id"])
	require.Equal(t, "a@b.com", got["email"])
	require.Equal(t, "a", got["username"])
}

func TestCreateUserConflict(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email": "a@b.com", "username": "a", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email": "other@b.com", "username": "a", "password": "pw123456",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateUserValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email": "not-an-email", "username": "", "password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var ve ValidationError
	decodeBody(t, resp, &ve)
	require.Len(t, ve.Fields, 3)
}

func TestUserNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/users/999")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginWrongPassword(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email": "a@b.com", "username": "a", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	form := url.Values{"username": {"a"}, "password": {"wrong"}}

	loginResp, err := client.PostForm(srv.URL+"/api/v1/auth/login/access-token", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, loginResp.StatusCode)
	require.Equal(t, "Bearer", loginResp.Header.Get("WWW-Authenticate"))
	loginResp.Body.Close()
}

func TestLoginMissingPassword(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	form := url.Values{"username": {"a"}, "password": {""}}

	resp, err := client.PostForm(srv.URL+"/api/v1/auth/login/access-token", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var ve ValidationError
	decodeBody(t, resp, &ve)
	require.Len(t, ve.Fields, 1)
	require.Equal(t, "password", ve.Fields[0].Field)
}

func TestLoginAndTestToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email": "a@b.com", "username": "a", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	form := url.Values{"username": {"a"}, "password": {"pw123456"}}

	loginResp, err := client.PostForm(srv.URL+"/api/v1/auth/login/access-token", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	var token TokenResponse
	decodeBody(t, loginResp, &token)
	require.Equal(t, "bearer", token.TokenType)
	require.NotEmpty(t, token.AccessToken)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/login/test-token", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	meResp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var me map[string]interface{}
	decodeBody(t, meResp, &me)
	require.Equal(t, "a", me["username"])
}

func TestTestTokenWithoutBearer(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/auth/login/test-token", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	resp.Body.Close()
}

func TestLoginInactiveUser(t *testing.T) {
	srv, users, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email": "a@b.com", "username": "a", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	u := users.users[1]
	u.Active = false
	users.users[1] = u

	form := url.Values{"username": {"a"}, "password": {"pw123456"}}

	loginResp, err := client.PostForm(srv.URL+"/api/v1/auth/login/access-token", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, loginResp.StatusCode)
	loginResp.Body.Close()
}

func TestSessionTicketFlow(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/tickets", map[string]string{
		"title": "first", "description": "desc",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created models.Ticket
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)

	listResp, err := client.Get(srv.URL + "/api/v1/tickets")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var tickets []models.Ticket
	decodeBody(t, listResp, &tickets)
	require.Len(t, tickets, 1)
	require.Equal(t, "first", tickets[0].Title)

	// Другая сессия (свежая кука) чужих тикетов не видит.
	stranger := newClient(t)

	strangerResp, err := stranger.Get(srv.URL + "/api/v1/tickets")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, strangerResp.StatusCode)

	var strangerTickets []models.Ticket
	decodeBody(t, strangerResp, &strangerTickets)
	require.Empty(t, strangerTickets)

	strangerGet, err := stranger.Get(srv.URL + "/api/v1/tickets/1")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, strangerGet.StatusCode)
	strangerGet.Body.Close()
}

func TestDeleteUserCascadesTickets(t *testing.T) {
	srv, users, tickets := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users", map[string]string{
		"email": "a@b.com", "username": "a", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, srv.URL+"/api/v1/users/1/tickets", map[string]string{
		"title": "owned",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	owned, err := tickets.ListTickets(context.Background(), ticketrepo.ListRequest{ //nolint:exhaustruct
		Scope: ticketrepo.Scope{OwnerID: 1}, //nolint:exhaustruct
	})
	require.NoError(t, err)
	require.Len(t, owned, 1)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/users/1", nil)
	require.NoError(t, err)

	delResp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	var deleted map[string]interface{}
	decodeBody(t, delResp, &deleted)
	require.Equal(t, "a", deleted["username"])

	require.Empty(t, users.users)

	// Тикеты владельца ушли вместе с ним.
	owned, err = tickets.ListTickets(context.Background(), ticketrepo.ListRequest{ //nolint:exhaustruct
		Scope: ticketrepo.Scope{OwnerID: 1}, //nolint:exhaustruct
	})
	require.NoError(t, err)
	require.Empty(t, owned)
}

func TestCreateTicketForUnknownUser(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp := postJSON(t, client, srv.URL+"/api/v1/users/42/tickets", map[string]string{
		"title": "orphan",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestBoardPage(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	found := false

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			found = true
		}
	}

	require.True(t, found, "board must set the anonymous session cookie")
	resp.Body.Close()
}

func TestBoardCreateFragment(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := newClient(t)

	// Первый заход выдаёт session-куку.
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	form := url.Values{"title": {"from board"}, "description": {""}}

	createResp, err := client.PostForm(srv.URL+"/", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, createResp.StatusCode)

	defer createResp.Body.Close()

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(createResp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "from board")
}

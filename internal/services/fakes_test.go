package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dating-backend/internal/models"
	"dating-backend/internal/pagination"
	"dating-backend/internal/repository"
)

// memStore is an in-memory implementation of every store interface
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	roles    map[string][]string
	photos   map[string]*models.Photo
	likes    map[[2]string]*models.Like
	messages map[string]*models.Message

	lastFilter repository.AccountFilter
	touched    map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*models.Account{},
		roles:    map[string][]string{},
		photos:   map[string]*models.Photo{},
		likes:    map[[2]string]*models.Like{},
		messages: map[string]*models.Message{},
		touched:  map[string]time.Time{},
	}
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
}

func (s *memStore) addAccount(a *models.Account) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
	return a
}

// accounts

type memAccounts struct{ *memStore }

func (s memAccounts) Create(_ context.Context, a *models.Account, roles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("create: %w", repository.ErrUniqueViolation)
		}
	}
	cp := *a
	s.accounts[a.ID] = &cp
	s.roles[a.ID] = append([]string(nil), roles...)
	return nil
}

func (s memAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("account")
	}
	cp := *a
	return &cp, nil
}

func (s memAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, notFound("account")
}

func (s memAccounts) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[id]
	return ok, nil
}

func (s memAccounts) UpdateProfile(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok {
		return notFound("account")
	}
	cur.Introduction, cur.LookingFor, cur.Interests = a.Introduction, a.LookingFor, a.Interests
	cur.City, cur.Country = a.City, a.Country
	return nil
}

func (s memAccounts) UpdatePushToken(_ context.Context, id string, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[id]
	if !ok {
		return notFound("account")
	}
	cur.PushToken = token
	return nil
}

func (s memAccounts) TouchLastActive(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.accounts[id]; ok {
		cur.LastActive = at
	}
	s.touched[id] = at
	return nil
}

func (s memAccounts) GetRoles(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string{}, s.roles[id]...)
	sort.Strings(out)
	return out, nil
}

func (s memAccounts) ReplaceRoles(_ context.Context, id string, roles []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[id] = append([]string{}, roles...)
	out := append([]string{}, roles...)
	sort.Strings(out)
	return out, nil
}

func (s memAccounts) ListWithRoles(_ context.Context) ([]*models.AccountRoles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.AccountRoles{}
	for _, a := range s.accounts {
		roles := append([]string{}, s.roles[a.ID]...)
		sort.Strings(roles)
		out = append(out, &models.AccountRoles{ID: a.ID, Username: a.Username, Roles: roles})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s memAccounts) Discover(f repository.AccountFilter) pagination.Source[*models.Account] {
	s.mu.Lock()
	s.lastFilter = f
	s.mu.Unlock()
	return &memDiscovery{store: s.memStore, filter: f}
}

type memDiscovery struct {
	store  *memStore
	filter repository.AccountFilter
}

func (d *memDiscovery) matches(a *models.Account) bool {
	f := d.filter
	if f.ExcludeID != "" && a.ID == f.ExcludeID {
		return false
	}
	if f.Gender != "" && a.Gender != f.Gender {
		return false
	}
	if f.RestrictIDs {
		found := false
		for _, id := range f.IDs {
			if id == a.ID {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if !f.BornFrom.IsZero() && a.DateOfBirth.Before(f.BornFrom) {
		return false
	}
	if !f.BornTo.IsZero() && a.DateOfBirth.After(f.BornTo) {
		return false
	}
	return true
}

func (d *memDiscovery) all() []*models.Account {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	var out []*models.Account
	for _, a := range d.store.accounts {
		if d.matches(a) {
			cp := *a
			cp.Photos = nil
			for _, p := range d.store.photos {
				if p.AccountID == a.ID && p.IsMain && p.IsApproved {
					cp.Photos = []*models.Photo{p}
				}
			}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if d.filter.Order == repository.OrderCreated {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out
}

func (d *memDiscovery) Count(context.Context) (int, error) { return len(d.all()), nil }

func (d *memDiscovery) Fetch(_ context.Context, limit, offset int) ([]*models.Account, error) {
	all := d.all()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// photos

type memPhotos struct{ *memStore }

func (s memPhotos) Create(_ context.Context, p *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.IsMain {
		for _, other := range s.photos {
			if other.AccountID == p.AccountID && other.IsMain {
				return fmt.Errorf("create photo: %w", repository.ErrUniqueViolation)
			}
		}
	}
	cp := *p
	s.photos[p.ID] = &cp
	return nil
}

func (s memPhotos) GetByID(_ context.Context, id string) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, notFound("photo")
	}
	cp := *p
	return &cp, nil
}

func (s memPhotos) ListByAccount(_ context.Context, accountID string, includeUnapproved bool) ([]*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Photo{}
	for _, p := range s.photos {
		if p.AccountID == accountID && (p.IsApproved || includeUnapproved) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memPhotos) HasMain(_ context.Context, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.photos {
		if p.AccountID == accountID && p.IsMain {
			return true, nil
		}
	}
	return false, nil
}

func (s memPhotos) SetMain(_ context.Context, accountID, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.photos[photoID]
	if !ok || target.AccountID != accountID {
		return notFound("photo")
	}
	for _, p := range s.photos {
		if p.AccountID == accountID {
			p.IsMain = false
		}
	}
	target.IsMain = true
	return nil
}

func (s memPhotos) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.photos[id]; !ok {
		return notFound("photo")
	}
	delete(s.photos, id)
	return nil
}

func (s memPhotos) Approve(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return notFound("photo")
	}
	p.IsApproved = true
	return nil
}

func (s memPhotos) ListUnapproved(_ context.Context) ([]*models.PhotoForModeration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.PhotoForModeration{}
	for _, p := range s.photos {
		if !p.IsApproved {
			out = append(out, &models.PhotoForModeration{
				ID: p.ID, Username: s.accounts[p.AccountID].Username, URL: p.URL,
			})
		}
	}
	return out, nil
}

// likes

type memLikes struct{ *memStore }

func (s memLikes) Create(_ context.Context, l *models.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{l.LikerID, l.LikeeID}
	if _, ok := s.likes[key]; ok {
		return fmt.Errorf("create like: %w", repository.ErrUniqueViolation)
	}
	cp := *l
	s.likes[key] = &cp
	return nil
}

func (s memLikes) LikersOf(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for k := range s.likes {
		if k[1] == id {
			out = append(out, k[0])
		}
	}
	return out, nil
}

func (s memLikes) LikeesOf(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for k := range s.likes {
		if k[0] == id {
			out = append(out, k[1])
		}
	}
	return out, nil
}

// messages

type memMessages struct{ *memStore }

func (s memMessages) Create(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s memMessages) GetByID(_ context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, notFound("message")
	}
	cp := *m
	return &cp, nil
}

func (s memMessages) view(m *models.Message) *models.MessageView {
	return &models.MessageView{
		ID:               m.ID,
		SenderID:         m.SenderID,
		SenderKnownAs:    s.accounts[m.SenderID].KnownAs,
		RecipientID:      m.RecipientID,
		RecipientKnownAs: s.accounts[m.RecipientID].KnownAs,
		Content:          m.Content,
		IsRead:           m.IsRead,
		DateRead:         m.DateRead,
		MessageSent:      m.MessageSent,
	}
}

func (s memMessages) GetView(_ context.Context, id string) (*models.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, notFound("message")
	}
	return s.view(m), nil
}

func (s memMessages) MarkRead(_ context.Context, id string, at time.Time) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, notFound("message")
	}
	m.IsRead = true
	if m.DateRead == nil {
		t := at
		m.DateRead = &t
	}
	cp := *m
	return &cp, nil
}

func (s memMessages) UpdateTombstones(_ context.Context, id string, mutate func(*models.Message) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return false, notFound("message")
	}
	cp := *m
	if err := mutate(&cp); err != nil {
		return false, err
	}
	if cp.SenderDeleted && cp.RecipientDeleted {
		delete(s.messages, id)
		return true, nil
	}
	*m = cp
	return false, nil
}

func (s memMessages) sorted(keep func(*models.Message) bool) []*models.MessageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.MessageView{}
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, s.view(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageSent.After(out[j].MessageSent) })
	return out
}

func (s memMessages) Mailbox(accountID string, container models.MessageContainer) pagination.Source[*models.MessageView] {
	keep := func(m *models.Message) bool {
		switch container {
		case models.ContainerInbox:
			return m.RecipientID == accountID && !m.RecipientDeleted
		case models.ContainerOutbox:
			return m.SenderID == accountID && !m.SenderDeleted
		default:
			return m.RecipientID == accountID && !m.RecipientDeleted && !m.IsRead
		}
	}
	return viewSource{items: func() []*models.MessageView { return s.sorted(keep) }}
}

func (s memMessages) Thread(_ context.Context, viewerID, otherID string) ([]*models.MessageView, error) {
	return s.sorted(func(m *models.Message) bool {
		return (m.SenderID == viewerID && m.RecipientID == otherID && !m.SenderDeleted) ||
			(m.SenderID == otherID && m.RecipientID == viewerID && !m.RecipientDeleted)
	}), nil
}

type viewSource struct {
	items func() []*models.MessageView
}

func (v viewSource) Count(context.Context) (int, error) { return len(v.items()), nil }

func (v viewSource) Fetch(_ context.Context, limit, offset int) ([]*models.MessageView, error) {
	all := v.items()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// collaborators

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]WSMessage
}

func (n *recordingNotifier) Notify(_ context.Context, accountID string, msg WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = map[string][]WSMessage{}
	}
	n.events[accountID] = append(n.events[accountID], msg)
}

func (n *recordingNotifier) count(accountID, eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events[accountID] {
		if e.Type == eventType {
			c++
		}
	}
	return c
}

type fakeMedia struct {
	deleted []string
	err     error
}

func (m *fakeMedia) PresignUpload(_ context.Context, key, _ string) (string, time.Duration, error) {
	return "https://upload.example/" + key + "?sig=x", 5 * time.Minute, m.err
}

func (m *fakeMedia) ObjectURL(key string) string {
	return "https://cdn.example/" + key
}

func (m *fakeMedia) DeleteObject(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, key)
	return nil
}

var testToday = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testToday }

func member(id, gender string, dob time.Time) *models.Account {
	return &models.Account{
		ID:          id,
		Username:    id,
		Gender:      gender,
		DateOfBirth: dob,
		KnownAs:     id,
		Created:     testToday.Add(-24 * time.Hour),
		LastActive:  testToday.Add(-time.Hour),
	}
}

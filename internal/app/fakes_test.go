package app

import (
	"context"
	"errors"
	"strings"

	"gopherai-rag/internal/model"
	"gopherai-rag/internal/rag"
	"gopherai-rag/internal/repository"
)

type memUsers struct {
	byID   map[uint]*model.User
	nextID uint
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint]*model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*model.User) bool) *model.User {
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == name }), nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (m *memUsers) GetByID(_ context.Context, id uint) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id }), nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uint, fullName, location, phone string) error {
	u, ok := m.byID[id]
	if !ok {
		return errors.New("missing user")
	}
	u.FullName, u.Location, u.PhoneNumber = fullName, location, phone
	return nil
}

type memSessions struct {
	sessions map[uint]*model.Session
	touched  []uint
}

func (m *memSessions) Create(_ context.Context, s *model.Session) error {
	s.ID = uint(len(m.sessions) + 1)
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessions) ListByUserID(_ context.Context, userID uint) ([]model.Session, error) {
	var out []model.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) GetByIDAndUserID(_ context.Context, id, userID uint) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok && s.UserID == userID {
		return s, nil
	}
	return nil, nil
}

func (m *memSessions) Touch(_ context.Context, id uint) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *memSessions) DeleteByIDAndUserID(_ context.Context, id, _ uint) error {
	delete(m.sessions, id)
	return nil
}

type memMessages struct {
	messages []model.Message
}

func (m *memMessages) GetByID(_ context.Context, id uint) (*model.Message, error) {
	for i := range m.messages {
		if m.messages[i].ID == id {
			cp := m.messages[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memMessages) ListBySessionID(_ context.Context, sessionID uint, limit int) ([]model.Message, error) {
	var out []model.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) ListRecentBySessionID(ctx context.Context, sessionID uint, limit int) ([]model.Message, error) {
	all, _ := m.ListBySessionID(ctx, sessionID, 0)
	return trimMessages(all, limit), nil
}

func (m *memMessages) DeleteBySessionID(_ context.Context, sessionID uint) error {
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.SessionID != sessionID {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

type memFiles struct {
	files  []model.MessageFile
	nextID uint
}

func (m *memFiles) Create(_ context.Context, f *model.MessageFile) error {
	m.nextID++
	f.ID = m.nextID
	m.files = append(m.files, *f)
	return nil
}

func (m *memFiles) GetByID(_ context.Context, id uint) (*model.MessageFile, error) {
	for i := range m.files {
		if m.files[i].ID == id {
			cp := m.files[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memFiles) ListByMessageIDs(_ context.Context, ids []uint) ([]model.MessageFile, error) {
	want := map[uint]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []model.MessageFile{}
	for _, f := range m.files {
		if want[f.MessageID] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFiles) Delete(_ context.Context, id uint) error {
	kept := m.files[:0]
	for _, f := range m.files {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	m.files = kept
	return nil
}

func (m *memFiles) DeleteBySessionID(_ context.Context, sessionID uint) error {
	kept := m.files[:0]
	for _, f := range m.files {
		if f.SessionID != sessionID {
			kept = append(kept, f)
		}
	}
	m.files = kept
	return nil
}

type recordingPublisher struct {
	published []model.Message
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, msg model.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

type memCache struct {
	history     map[uint][]model.Message
	invalidated []uint
}

func (c *memCache) GetHistory(_ context.Context, id uint) ([]model.Message, bool, error) {
	h, ok := c.history[id]
	return h, ok, nil
}

func (c *memCache) SetHistory(_ context.Context, id uint, msgs []model.Message) error {
	c.history[id] = msgs
	return nil
}

func (c *memCache) DeleteHistory(_ context.Context, id uint) error {
	delete(c.history, id)
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id uint) error {
	c.invalidated = append(c.invalidated, id)
	delete(c.history, id)
	return nil
}

type stubResponder struct {
	answer   string
	welcome  string
	err      error
	queries  []string
	history  [][]rag.Turn
	welcomes []rag.WelcomeRequest
}

func (r *stubResponder) Answer(_ context.Context, query string, history []rag.Turn) (string, error) {
	r.queries = append(r.queries, query)
	r.history = append(r.history, history)
	return r.answer, r.err
}

func (r *stubResponder) Welcome(_ context.Context, req rag.WelcomeRequest) (string, error) {
	r.welcomes = append(r.welcomes, req)
	return r.welcome, r.err
}

type memProducts struct {
	items []model.Product
}

func (m *memProducts) Create(_ context.Context, p *model.Product) error {
	p.ID = uint(len(m.items) + 1)
	m.items = append(m.items, *p)
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id uint) (*model.Product, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			cp := m.items[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memProducts) Update(_ context.Context, p *model.Product) error {
	for i := range m.items {
		if m.items[i].ID == p.ID {
			m.items[i] = *p
		}
	}
	return nil
}

func (m *memProducts) Delete(_ context.Context, id uint) (bool, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) List(_ context.Context, q repository.ProductQuery) ([]model.Product, int64, error) {
	start := (q.Page - 1) * q.Limit
	if start > len(m.items) {
		start = len(m.items)
	}
	end := start + q.Limit
	if end > len(m.items) {
		end = len(m.items)
	}
	return m.items[start:end], int64(len(m.items)), nil
}

func (m *memProducts) FindByName(_ context.Context, name string, partial bool) ([]model.Product, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var out []model.Product
	for _, p := range m.items {
		n := strings.ToLower(p.Name)
		if (partial && strings.Contains(n, name)) || (!partial && n == name) {
			out = append(out, p)
		}
	}
	return out, nil
}

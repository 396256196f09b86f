package contacts_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ignite/bulletin-sync/internal/domain"
)

type fakeSession struct{ uid int }

// memDirectory is an in-memory contact directory for unit testing.
type memDirectory struct {
	mu         sync.Mutex
	nextID     int
	contacts   map[string]*domain.ContactRecord // keyed by id
	categories map[string]string                // name -> id
	links      map[string]map[string]bool       // contact id -> category ids

	loginErr     error
	findErr      map[string]error // keyed by email
	createErr    map[string]error // keyed by email
	updateErr    map[string]error // keyed by id
	findCatErr   error
	createCatErr error
	attachErr    map[string]error // keyed by contact id

	creates      []domain.ContactFields
	updates      map[string][]domain.ContactFields
	catLookups   int
	catCreates   int
	attachCalls  []string
	sessionsSeen []domain.Session
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		nextID:     100,
		contacts:   make(map[string]*domain.ContactRecord),
		categories: make(map[string]string),
		links:      make(map[string]map[string]bool),
		findErr:    make(map[string]error),
		createErr:  make(map[string]error),
		updateErr:  make(map[string]error),
		attachErr:  make(map[string]error),
		updates:    make(map[string][]domain.ContactFields),
	}
}

func (m *memDirectory) seed(rec domain.ContactRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := rec
	m.contacts[cp.ID] = &cp
}

func (m *memDirectory) newID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func (m *memDirectory) Login(_ context.Context) (domain.Session, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return fakeSession{uid: 2}, nil
}

func (m *memDirectory) checkSession(sess domain.Session) error {
	m.sessionsSeen = append(m.sessionsSeen, sess)
	if _, ok := sess.(fakeSession); !ok {
		return errors.New("not logged in")
	}
	return nil
}

func (m *memDirectory) FindByEmail(_ context.Context, sess domain.Session, email string) (*domain.ContactRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sess); err != nil {
		return nil, err
	}
	if err := m.findErr[email]; err != nil {
		return nil, err
	}
	for _, c := range m.contacts {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDirectory) Create(_ context.Context, sess domain.Session, fields domain.ContactFields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sess); err != nil {
		return "", err
	}
	email, _ := fields[domain.FieldEmail].(string)
	if err := m.createErr[email]; err != nil {
		return "", err
	}
	m.creates = append(m.creates, fields)
	id := m.newID()
	rec := &domain.ContactRecord{ID: id, Email: email}
	apply(rec, fields)
	m.contacts[id] = rec
	return id, nil
}

func (m *memDirectory) Update(_ context.Context, sess domain.Session, id string, fields domain.ContactFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sess); err != nil {
		return err
	}
	if err := m.updateErr[id]; err != nil {
		return err
	}
	rec, ok := m.contacts[id]
	if !ok {
		return fmt.Errorf("contact %s not found", id)
	}
	m.updates[id] = append(m.updates[id], fields)
	apply(rec, fields)
	return nil
}

func (m *memDirectory) FindCategoryByName(_ context.Context, sess domain.Session, name string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sess); err != nil {
		return nil, err
	}
	m.catLookups++
	if m.findCatErr != nil {
		return nil, m.findCatErr
	}
	id, ok := m.categories[name]
	if !ok {
		return nil, nil
	}
	return &domain.Category{ID: id, Name: name}, nil
}

func (m *memDirectory) CreateCategory(_ context.Context, sess domain.Session, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sess); err != nil {
		return "", err
	}
	m.catCreates++
	if m.createCatErr != nil {
		return "", m.createCatErr
	}
	id := "cat-" + m.newID()
	m.categories[name] = id
	return id, nil
}

func (m *memDirectory) AttachCategory(_ context.Context, sess domain.Session, contactID, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sess); err != nil {
		return err
	}
	m.attachCalls = append(m.attachCalls, contactID)
	if err := m.attachErr[contactID]; err != nil {
		return err
	}
	if m.links[contactID] == nil {
		m.links[contactID] = make(map[string]bool)
	}
	m.links[contactID][categoryID] = true
	return nil
}

func (m *memDirectory) hasCategory(contactID, categoryID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[contactID][categoryID]
}

func (m *memDirectory) byEmail(email string) *domain.ContactRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if c.Email == email {
			cp := *c
			return &cp
		}
	}
	return nil
}

func apply(rec *domain.ContactRecord, fields domain.ContactFields) {
	for k, v := range fields {
		s := fmt.Sprint(v)
		switch k {
		case domain.FieldName:
			rec.Name = s
		case domain.FieldPhone:
			rec.Phone = s
		case domain.FieldCity:
			rec.City = s
		}
	}
}

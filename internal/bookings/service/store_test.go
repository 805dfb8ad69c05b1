package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	teamserrors "roombook/internal/teams/errors"
	userserrors "roombook/internal/users/errors"
	mongotx "roombook/pkg/db/mongo"
	"roombook/pkg/model"
)

// memStore keeps every entity the allocation engine reads or writes and
// enforces the same uniqueness rules as the booking indexes.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*model.Booking
	rooms    map[int64]*model.Room
	users    map[int64]*model.User
	teams    map[int64]*model.Team

	createErr    error
	occupancyErr error
}

func newMemStore() *memStore {
	return &memStore{
		bookings: map[int64]*model.Booking{},
		rooms:    map[int64]*model.Room{},
		users:    map[int64]*model.User{},
		teams:    map[int64]*model.Team{},
	}
}

func (m *memStore) addRoom(id int64, roomType model.RoomType, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[id] = &model.Room{ID: id, RoomType: roomType, Capacity: capacity}
}

func (m *memStore) addUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &model.User{ID: id, Name: "user", Age: 30, Gender: "O"}
}

func (m *memStore) addTeam(id int64, members ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[id] = &model.Team{ID: id, Name: "team", Members: members}
}

func (m *memStore) addMember(teamID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[teamID].Members = append(m.teams[teamID].Members, userID)
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// BookingRepository

func (m *memStore) NextID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID, nil
}

func (m *memStore) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}

	for _, b := range m.bookings {
		if b.Date != booking.Date || b.Slot != booking.Slot {
			continue
		}
		sameRoom := b.RoomID == booking.RoomID && b.Exclusive && booking.Exclusive
		sameUser := b.UserID != nil && booking.UserID != nil && *b.UserID == *booking.UserID
		sameTeam := b.TeamID != nil && booking.TeamID != nil && *b.TeamID == *booking.TeamID
		if sameRoom || sameUser || sameTeam {
			return bookingserrors.ErrSlotTaken
		}
	}

	if booking.ID == 0 {
		m.nextID++
		booking.ID = m.nextID
	}
	booking.CreatedAt = time.Now().UTC()
	stored := *booking
	m.bookings[booking.ID] = &stored
	return nil
}

func (m *memStore) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	found := *b
	return &found, nil
}

func (m *memStore) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bookings := make([]*model.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		found := *b
		bookings = append(bookings, &found)
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	if offset >= int64(len(bookings)) {
		return []*model.Booking{}, nil
	}
	bookings = bookings[offset:]
	if limit < len(bookings) {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.bookings)), nil
}

func (m *memStore) Delete(ctx context.Context, id int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	delete(m.bookings, id)
	return b, nil
}

func (m *memStore) ExistsForUser(ctx context.Context, userID int64, date, slot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.UserID != nil && *b.UserID == userID && b.Date == date && b.Slot == slot {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ExistsForTeam(ctx context.Context, teamID int64, date, slot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.TeamID != nil && *b.TeamID == teamID && b.Date == date && b.Slot == slot {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) OccupancyBySlot(ctx context.Context, date, slot string) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.occupancyErr != nil {
		return nil, m.occupancyErr
	}
	occupancy := map[int64]int{}
	for _, b := range m.bookings {
		if b.Date == date && b.Slot == slot {
			occupancy[b.RoomID]++
		}
	}
	return occupancy, nil
}

func (m *memStore) DeleteByRoom(ctx context.Context, roomID int64) (int64, error) {
	return 0, errors.New("not used")
}

func (m *memStore) ClearUser(ctx context.Context, userID int64) (int64, error) {
	return 0, errors.New("not used")
}

func (m *memStore) ClearTeam(ctx context.Context, teamID int64) (int64, error) {
	return 0, errors.New("not used")
}

func (m *memStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

// RoomReader, UserReader and TeamReader

type roomsView struct{ *memStore }

func (v roomsView) FindByType(ctx context.Context, roomType model.RoomType) ([]*model.Room, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rooms := []*model.Room{}
	for _, r := range v.rooms {
		if r.RoomType == roomType {
			room := *r
			rooms = append(rooms, &room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

type usersView struct{ *memStore }

func (v usersView) FindByID(ctx context.Context, id int64) (*model.User, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	u, ok := v.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	found := *u
	return &found, nil
}

type teamsView struct{ *memStore }

func (v teamsView) FindByID(ctx context.Context, id int64) (*model.Team, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.teams[id]
	if !ok {
		return nil, teamserrors.ErrNotFound
	}
	found := *t
	found.Members = append([]int64{}, t.Members...)
	return &found, nil
}

// memLockStore backs a real LockManager in tests.
type memLockStore struct {
	mu    sync.Mutex
	locks map[string]string
}

func (s *memLockStore) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = map[string]string{}
	}
	if _, held := s.locks[key]; held {
		return false, nil
	}
	s.locks[key] = owner
	return true, nil
}

func (s *memLockStore) Release(ctx context.Context, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] == owner {
		delete(s.locks, key)
	}
	return nil
}

type failingLocker struct {
	err error
}

func (l failingLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return l.err
}

type recordingPublisher struct {
	mu        sync.Mutex
	created   []int64
	cancelled []int64
	err       error
}

func (p *recordingPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, booking.ID)
	return p.err
}

func (p *recordingPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, booking.ID)
	return p.err
}

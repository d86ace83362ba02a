package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/dbx"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
	boardsrepo "github.com/dmitrijs2005/teamboard/internal/server/repositories/boards"
	invitesrepo "github.com/dmitrijs2005/teamboard/internal/server/repositories/invites"
	refreshtokensrepo "github.com/dmitrijs2005/teamboard/internal/server/repositories/refreshtokens"
	twofactorrepo "github.com/dmitrijs2005/teamboard/internal/server/repositories/twofactor"
	usersrepo "github.com/dmitrijs2005/teamboard/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// newTxDB returns a real database whose transactions carry no data; the
// fakes below hold the state. It lets concurrent callers run dbx.WithTx.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(16)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory stand-in for the Postgres schema. Conditional
// writes (delete by id, accept pending, unique pending invite) are atomic
// under mu, like their SQL counterparts.
type memStore struct {
	mu sync.Mutex

	seq       int
	users     map[string]*models.Credential
	refresh   map[string]*models.RefreshToken
	twofactor map[string]*models.TwoFactorRecord
	boards    map[string]*models.Board
	members   map[string][]models.Membership // by board id
	invites   map[string]*models.BoardInvite

	calls []string
	errs  map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*models.Credential{},
		refresh:   map[string]*models.RefreshToken{},
		twofactor: map[string]*models.TwoFactorRecord{},
		boards:    map[string]*models.Board{},
		members:   map[string][]models.Membership{},
		invites:   map[string]*models.BoardInvite{},
		errs:      map[string]error{},
	}
}

// enter records the call and returns an injected error for it, if any.
// Callers must hold mu.
func (s *memStore) enter(name string) error {
	s.calls = append(s.calls, name)
	return s.errs[name]
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) failOn(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[name] = err
}

func (s *memStore) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *memStore) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// seedUser stores a credential directly and returns its id.
func (s *memStore) seedUser(email string, hash []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("user")
	s.users[id] = &models.Credential{ID: id, Email: email, PasswordHash: hash, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return id
}

// seedBoard creates a board with adminID as its ADMIN.
func (s *memStore) seedBoard(title, adminID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("board")
	s.boards[id] = &models.Board{ID: id, Title: title, CreatedAt: time.Now()}
	s.members[id] = []models.Membership{{ID: s.nextID("m"), BoardID: id, UserID: adminID, Email: s.users[adminID].Email, Role: models.RoleAdmin}}
	return id
}

func (s *memStore) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refresh)
}

func (s *memStore) pendingInvites(email, boardID string) []models.BoardInvite {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BoardInvite
	for _, inv := range s.invites {
		if inv.Email == email && inv.BoardID == boardID && inv.IsPending {
			out = append(out, *inv)
		}
	}
	return out
}

func (s *memStore) memberRole(boardID, userID string) (models.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[boardID] {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// --- users ---

type fakeUsers struct{ s *memStore }

func (f fakeUsers) Create(ctx context.Context, u *models.Credential) (*models.Credential, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorConflict
		}
	}
	c := *u
	c.ID = f.s.nextID("user")
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	f.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (f fakeUsers) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("users.FindByEmail"); err != nil {
		return nil, err
	}
	for _, u := range f.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) FindByID(ctx context.Context, id string) (*models.Credential, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) Update(ctx context.Context, u *models.Credential) (*models.Credential, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("users.Update"); err != nil {
		return nil, err
	}
	stored, ok := f.s.users[u.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	stored.FirstName, stored.LastName, stored.UpdatedAt = u.FirstName, u.LastName, time.Now()
	c := *stored
	return &c, nil
}

// --- refresh tokens ---

type fakeRefresh struct{ s *memStore }

func (f fakeRefresh) Create(ctx context.Context, ownerID, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("refresh.Create"); err != nil {
		return err
	}
	id := f.s.nextID("rt")
	f.s.refresh[id] = &models.RefreshToken{ID: id, Token: token, OwnerID: ownerID, CreatedAt: time.Now()}
	return nil
}

func (f fakeRefresh) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("refresh.FindByToken"); err != nil {
		return nil, err
	}
	for _, rt := range f.s.refresh {
		if rt.Token == token {
			c := *rt
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeRefresh) DeleteByID(ctx context.Context, id string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("refresh.DeleteByID"); err != nil {
		return false, err
	}
	if _, ok := f.s.refresh[id]; !ok {
		return false, nil
	}
	delete(f.s.refresh, id)
	return true, nil
}

func (f fakeRefresh) DeleteByToken(ctx context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("refresh.DeleteByToken"); err != nil {
		return err
	}
	for id, rt := range f.s.refresh {
		if rt.Token == token {
			delete(f.s.refresh, id)
		}
	}
	return nil
}

// --- two-factor ---

type fakeTwoFactor struct{ s *memStore }

func (f fakeTwoFactor) Create(ctx context.Context, rec *models.TwoFactorRecord) (*models.TwoFactorRecord, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("twofactor.Create"); err != nil {
		return nil, err
	}
	c := *rec
	c.ID = f.s.nextID("tf")
	c.CreatedAt = time.Now()
	f.s.twofactor[c.ID] = &c
	out := c
	return &out, nil
}

func (f fakeTwoFactor) FindByToken(ctx context.Context, token string) (*models.TwoFactorRecord, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("twofactor.FindByToken"); err != nil {
		return nil, err
	}
	for _, r := range f.s.twofactor {
		if r.Token == token {
			c := *r
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeTwoFactor) DeleteByID(ctx context.Context, id string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("twofactor.DeleteByID"); err != nil {
		return false, err
	}
	if _, ok := f.s.twofactor[id]; !ok {
		return false, nil
	}
	delete(f.s.twofactor, id)
	return true, nil
}

// --- boards ---

type fakeBoards struct{ s *memStore }

func (f fakeBoards) IsMemberAdmin(ctx context.Context, boardID, userID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("boards.IsMemberAdmin"); err != nil {
		return false, err
	}
	for _, m := range f.s.members[boardID] {
		if m.UserID == userID && m.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeBoards) FindBoardByID(ctx context.Context, boardID, userID string) (*models.Board, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("boards.FindBoardByID"); err != nil {
		return nil, err
	}
	b, ok := f.s.boards[boardID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	member := false
	for _, m := range f.s.members[boardID] {
		if m.UserID == userID {
			member = true
		}
	}
	if !member {
		return nil, common.ErrorNotFound
	}
	c := *b
	c.Members = append([]models.Membership(nil), f.s.members[boardID]...)
	return &c, nil
}

func (f fakeBoards) FindMembershipByEmail(ctx context.Context, boardID, email string) (*models.Membership, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("boards.FindMembershipByEmail"); err != nil {
		return nil, err
	}
	for _, m := range f.s.members[boardID] {
		if m.Email == email {
			c := m
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeBoards) AddMember(ctx context.Context, boardID, userID string, role models.Role) (*models.Membership, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("boards.AddMember"); err != nil {
		return nil, err
	}
	if _, ok := f.s.boards[boardID]; !ok {
		return nil, common.ErrorNotFound
	}
	for _, m := range f.s.members[boardID] {
		if m.UserID == userID {
			return nil, common.ErrorConflict
		}
	}
	m := models.Membership{ID: f.s.nextID("m"), BoardID: boardID, UserID: userID, Role: role}
	if u, ok := f.s.users[userID]; ok {
		m.Email = u.Email
	}
	f.s.members[boardID] = append(f.s.members[boardID], m)
	return &m, nil
}

// --- invites ---

type fakeInvites struct{ s *memStore }

func (f fakeInvites) FindPendingOrExpired(ctx context.Context, email, boardID string) (*models.BoardInvite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("invites.FindPendingOrExpired"); err != nil {
		return nil, err
	}
	for _, inv := range f.s.invites {
		if inv.Email == email && inv.BoardID == boardID && inv.IsPending {
			c := *inv
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeInvites) Create(ctx context.Context, inv *models.BoardInvite) (*models.BoardInvite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("invites.Create"); err != nil {
		return nil, err
	}
	for _, existing := range f.s.invites {
		if existing.Email == inv.Email && existing.BoardID == inv.BoardID && existing.IsPending {
			return nil, common.ErrorConflict
		}
	}
	c := *inv
	c.ID = f.s.nextID("inv")
	c.IsPending = true
	f.s.invites[c.ID] = &c
	out := c
	return &out, nil
}

func (f fakeInvites) ExtendExpiry(ctx context.Context, id string, expireAt time.Time) (*models.BoardInvite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("invites.ExtendExpiry"); err != nil {
		return nil, err
	}
	inv, ok := f.s.invites[id]
	if !ok || !inv.IsPending {
		return nil, common.ErrorNotFound
	}
	inv.ExpireAt = expireAt
	c := *inv
	return &c, nil
}

func (f fakeInvites) SetAccepted(ctx context.Context, id string) (*models.BoardInvite, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.enter("invites.SetAccepted"); err != nil {
		return nil, err
	}
	inv, ok := f.s.invites[id]
	if !ok || !inv.IsPending {
		return nil, common.ErrorNotFound
	}
	inv.IsPending = false
	c := *inv
	return &c, nil
}

// --- manager ---

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return fakeUsers{m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return fakeRefresh{m.s} }
func (m *fakeRepoManager) TwoFactor(dbx.DBTX) twofactorrepo.Repository         { return fakeTwoFactor{m.s} }
func (m *fakeRepoManager) Boards(dbx.DBTX) boardsrepo.Repository               { return fakeBoards{m.s} }
func (m *fakeRepoManager) Invites(dbx.DBTX) invitesrepo.Repository             { return fakeInvites{m.s} }

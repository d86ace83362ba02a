package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
	"github.com/dmitrijs2005/teamboard/internal/server/services"
)

type fakeAuth struct {
	signup  func(services.SignupInput) (*models.TokenPair, error)
	login   func(email, password string) (*models.TokenPair, error)
	refresh func(token string) (*models.TokenPair, error)
	logout  func(token string) error
	me      func(userID string) (*models.Credential, error)
	update  func(userID, first, last string) (*models.Credential, error)
}

func (f *fakeAuth) Signup(_ context.Context, in services.SignupInput) (*models.TokenPair, error) {
	return f.signup(in)
}
func (f *fakeAuth) Login(_ context.Context, email, password string) (*models.TokenPair, error) {
	return f.login(email, password)
}
func (f *fakeAuth) Refresh(_ context.Context, token string) (*models.TokenPair, error) {
	return f.refresh(token)
}
func (f *fakeAuth) Logout(_ context.Context, token string) error { return f.logout(token) }
func (f *fakeAuth) Me(_ context.Context, userID string) (*models.Credential, error) {
	return f.me(userID)
}
func (f *fakeAuth) UpdateProfile(_ context.Context, userID, first, last string) (*models.Credential, error) {
	return f.update(userID, first, last)
}

type fakeTwoFactor struct {
	generate func(userID, email string, kind models.TwoFactorType) (*models.TwoFactorChallenge, error)
	validate func(userID, token, code string) error
}

func (f *fakeTwoFactor) Generate(_ context.Context, userID, email string, kind models.TwoFactorType, _ time.Time) (*models.TwoFactorChallenge, error) {
	return f.generate(userID, email, kind)
}
func (f *fakeTwoFactor) Validate(_ context.Context, userID, token, code string) error {
	return f.validate(userID, token, code)
}

type fakeInvites struct {
	invite func(requesterID, email, boardID string) (string, error)
	accept func(userID, token string) (*models.Board, error)
}

func (f *fakeInvites) InviteUserToBoard(_ context.Context, requesterID, email, boardID string) (string, error) {
	return f.invite(requesterID, email, boardID)
}
func (f *fakeInvites) AcceptInvite(_ context.Context, userID, token string) (*models.Board, error) {
	return f.accept(userID, token)
}

type sentMessage struct {
	template, recipient string
	vars                map[string]string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, template, recipient string, vars map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{template: template, recipient: recipient, vars: vars})
	return nil
}

// fakeScripter answers the token bucket script from an in-memory bucket.
type fakeScripter struct {
	mu      sync.Mutex
	buckets map[string]int64
	keys    []string
	err     error
}

func (f *fakeScripter) run(keys []string, args []any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	if f.buckets == nil {
		f.buckets = map[string]int64{}
	}
	key := keys[0]
	f.keys = append(f.keys, key)

	tokens, ok := f.buckets[key]
	if !ok {
		tokens = int64(args[1].(int))
	}
	if tokens == 0 {
		return redis.NewCmdResult([]any{int64(0), int64(0), int64(2500)}, nil)
	}
	tokens--
	f.buckets[key] = tokens
	return redis.NewCmdResult([]any{int64(1), tokens, int64(0)}, nil)
}

func (f *fakeScripter) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.run(keys, args)
}
func (f *fakeScripter) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.run(keys, args)
}
func (f *fakeScripter) EvalRO(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.run(keys, args)
}
func (f *fakeScripter) EvalShaRO(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.run(keys, args)
}
func (f *fakeScripter) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}
func (f *fakeScripter) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

type fixture struct {
	server    *Server
	issuer    *auth.Issuer
	auth      *fakeAuth
	twoFactor *fakeTwoFactor
	invites   *fakeInvites
	notifier  *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuer, err := auth.NewIssuer("http-test-secret")
	require.NoError(t, err)

	fail := func(name string) error {
		t.Errorf("unexpected call to %s", name)
		return common.ErrorInternal
	}

	f := &fixture{
		issuer: issuer,
		auth: &fakeAuth{
			signup:  func(services.SignupInput) (*models.TokenPair, error) { return nil, fail("Signup") },
			login:   func(string, string) (*models.TokenPair, error) { return nil, fail("Login") },
			refresh: func(string) (*models.TokenPair, error) { return nil, fail("Refresh") },
			logout:  func(string) error { return fail("Logout") },
			me:      func(string) (*models.Credential, error) { return nil, fail("Me") },
			update:  func(string, string, string) (*models.Credential, error) { return nil, fail("UpdateProfile") },
		},
		twoFactor: &fakeTwoFactor{
			generate: func(string, string, models.TwoFactorType) (*models.TwoFactorChallenge, error) {
				return nil, fail("Generate")
			},
			validate: func(string, string, string) error { return fail("Validate") },
		},
		invites: &fakeInvites{
			invite: func(string, string, string) (string, error) { return "", fail("InviteUserToBoard") },
			accept: func(string, string) (*models.Board, error) { return nil, fail("AcceptInvite") },
		},
		notifier: &fakeNotifier{},
	}
	f.server = NewServer("127.0.0.1:0", Deps{
		Auth:      f.auth,
		TwoFactor: f.twoFactor,
		Invites:   f.invites,
		Verifier:  issuer,
		Notifier:  f.notifier,
	}, logging.Nop{})
	return f
}

func (f *fixture) accessToken(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := f.issuer.Sign(userID, email, auth.PurposeAccess, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(method, target, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

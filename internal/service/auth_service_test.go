package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
)

// memUserStore реализует UserStore в памяти.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (m *memUserStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if sameNonEmpty(u.Username, user.Username) || sameNonEmpty(u.Email, user.Email) || sameNonEmpty(u.PhoneNumber, user.PhoneNumber) {
			return common.ErrAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserStore) FindByIdentifier(ctx context.Context, identifier string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.UsernameValue() == identifier || u.EmailValue() == identifier || u.PhoneValue() == identifier {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUserStore) ExistsByField(ctx context.Context, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if fieldValue(u, field) == value {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserStore) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

// put кладёт пользователя напрямую, минуя проверки.
func (m *memUserStore) put(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ID] = user
	return user
}

func sameNonEmpty(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}

// memOTPStore одна строка на пользователя, как в таблице otps.
type memOTPStore struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*models.OTP
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{byUser: make(map[uuid.UUID]*models.OTP)}
}

func (m *memOTPStore) Upsert(ctx context.Context, otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byUser[otp.UserID]
	if !ok {
		row = &models.OTP{ID: uuid.New(), UserID: otp.UserID}
		m.byUser[otp.UserID] = row
	}
	row.Value = otp.Value
	row.CreatedAt = otp.CreatedAt
	row.IsActive = true
	*otp = *row
	return nil
}

func (m *memOTPStore) GetActive(ctx context.Context, userID uuid.UUID, value string) (*models.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byUser[userID]
	if !ok || row.Value != value || !row.IsActive {
		return nil, repository.ErrOTPNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memOTPStore) Consume(ctx context.Context, otp *models.OTP) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byUser[otp.UserID]
	if !ok || row.ID != otp.ID || row.Value != otp.Value || !row.IsActive {
		return false, nil
	}
	row.IsActive = false
	return true, nil
}

func (m *memOTPStore) Deactivate(ctx context.Context, otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byUser[otp.UserID]
	if ok && row.ID == otp.ID && row.Value == otp.Value && row.CreatedAt.Equal(otp.CreatedAt) {
		row.IsActive = false
	}
	return nil
}

// reissueOnGetStore один раз вызывает afterGet сразу после GetActive,
// имитируя выдачу нового кода между чтением и гашением.
type reissueOnGetStore struct {
	*memOTPStore
	afterGet func()
}

func (s *reissueOnGetStore) GetActive(ctx context.Context, userID uuid.UUID, value string) (*models.OTP, error) {
	otp, err := s.memOTPStore.GetActive(ctx, userID, value)
	if hook := s.afterGet; hook != nil {
		s.afterGet = nil
		hook()
	}
	return otp, err
}

// failingUpsertStore не может выдать код.
type failingUpsertStore struct {
	*memOTPStore
	err error
}

func (s *failingUpsertStore) Upsert(ctx context.Context, otp *models.OTP) error {
	if s.err != nil {
		return s.err
	}
	return s.memOTPStore.Upsert(ctx, otp)
}

func (m *memOTPStore) get(userID uuid.UUID) models.OTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byUser[userID]
}

func (m *memOTPStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUser)
}

type memEventStore struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (m *memEventStore) Create(ctx context.Context, event *models.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = uuid.New()
	event.LoginTime = time.Now()
	m.events = append(m.events, *event)
	return nil
}

func (m *memEventStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SecurityEvent
	for _, e := range m.events {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type sentOTP struct {
	channel     string
	destination string
	code        string
}

// fakeNotifier запоминает отправленные коды.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (n *fakeNotifier) SendEmailOTP(ctx context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentOTP{ChannelEmail, email, code})
	return n.err
}

func (n *fakeNotifier) SendSMSOTP(ctx context.Context, phone, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentOTP{ChannelSMS, phone, code})
	return n.err
}

func (n *fakeNotifier) last(t *testing.T) sentOTP {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "код не отправлялся")
	return n.sent[len(n.sent)-1]
}

type authFixture struct {
	svc      *AuthService
	users    *memUserStore
	otps     *memOTPStore
	events   *memEventStore
	notifier *fakeNotifier
	tokens   *TokenManager
	hasher   *BcryptHasher
	clock    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    newMemUserStore(),
		otps:     newMemOTPStore(),
		events:   &memEventStore{},
		notifier: &fakeNotifier{},
		tokens:   NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour),
		hasher:   NewBcryptHasher(bcrypt.MinCost),
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.users, f.otps, f.events, f.hasher, f.tokens, f.notifier, AuthConfig{OTPTTL: 300 * time.Second})
	f.svc.now = func() time.Time { return f.clock }
	f.svc.dispatch = func(fn func()) { fn() }
	return f
}

func TestAuthService_SignUpEmailWithoutPassword(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.SignUp(context.Background(), SignUpInput{Email: "Alice@Example.COM"})
	require.NoError(t, err)

	assert.True(t, res.OTPSent)
	assert.Equal(t, "Alice@example.com", res.User.EmailValue())
	assert.Equal(t, "Alice@example.com", res.User.UsernameValue())
	assert.False(t, res.User.HasPassword())
	assert.Equal(t, 1, f.otps.count())

	sent := f.notifier.last(t)
	assert.Equal(t, ChannelEmail, sent.channel)
	assert.Equal(t, "Alice@example.com", sent.destination)
	assert.Equal(t, f.otps.get(res.User.ID).Value, sent.code)
}

func TestAuthService_SignUpPhoneOnlySendsSMS(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.SignUp(context.Background(), SignUpInput{PhoneNumber: "+79991234567"})
	require.NoError(t, err)

	assert.Equal(t, "+79991234567", res.User.UsernameValue())
	assert.Nil(t, res.User.Email)
	assert.Equal(t, ChannelSMS, f.notifier.last(t).channel)
}

func TestAuthService_SignUpValidation(t *testing.T) {
	tests := []struct {
		name string
		in   SignUpInput
	}{
		{"no contact", SignUpInput{Username: "someone"}},
		{"bad email", SignUpInput{Email: "not-an-email"}},
		{"bad phone", SignUpInput{PhoneNumber: "12ab"}},
		{"weak password", SignUpInput{Email: "a@b.com", Password: "short"}},
		{"bad username", SignUpInput{Email: "a@b.com", Username: "1x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.SignUp(context.Background(), tt.in)
			assert.True(t, apperror.IsValidation(err), "ожидалась ошибка валидации, получили %v", err)
			assert.Equal(t, 0, f.otps.count())
		})
	}
}

func TestAuthService_SignUpDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com", Password: "Secret123"})
	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_SignUpWithPasswordSkipsOTP(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.SignUp(context.Background(), SignUpInput{Email: "a@b.com", Password: "Secret123", Username: "alice"})
	require.NoError(t, err)

	assert.False(t, res.OTPSent)
	assert.Equal(t, "alice", res.User.UsernameValue())
	require.True(t, res.User.HasPassword())
	assert.NotEqual(t, "Secret123", *res.User.PasswordHash)
	assert.Equal(t, 0, f.otps.count())
	assert.Empty(t, f.notifier.sent)
}

func TestAuthService_ResolveUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	phoneUser := f.users.put(&models.User{
		Username:    models.StringPtr("bob"),
		PhoneNumber: models.StringPtr("+15551234567"),
		IsActive:    true,
	})

	t.Run("miss", func(t *testing.T) {
		_, err := f.svc.ResolveUser(ctx, "nobody")
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("phone match", func(t *testing.T) {
		res, err := f.svc.ResolveUser(ctx, "+15551234567")
		require.NoError(t, err)
		assert.Equal(t, phoneUser.ID, res.User.ID)
		assert.Equal(t, repository.FieldPhone, res.MatchedField)
	})

	t.Run("case sensitive", func(t *testing.T) {
		_, err := f.svc.ResolveUser(ctx, "BOB")
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := f.svc.ResolveUser(ctx, "")
		assert.True(t, apperror.HasCode(err, apperror.ErrCodeMissingInput))
	})

	t.Run("ambiguous", func(t *testing.T) {
		f.users.put(&models.User{
			Username: models.StringPtr("carol@x.io"),
			Email:    models.StringPtr("carol-real@x.io"),
		})
		f.users.put(&models.User{Email: models.StringPtr("carol@x.io")})

		_, err := f.svc.ResolveUser(ctx, "carol@x.io")
		assert.True(t, apperror.HasCode(err, apperror.ErrCodeConflict))
	})
}

func TestAuthService_SendOTPChannel(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.put(&models.User{
		Username:    models.StringPtr("dave"),
		Email:       models.StringPtr("dave@x.io"),
		PhoneNumber: models.StringPtr("+15550000001"),
	})
	f.users.put(&models.User{
		Username:    models.StringPtr("erin"),
		PhoneNumber: models.StringPtr("+15550000002"),
	})

	tests := []struct {
		identifier  string
		channel     string
		destination string
	}{
		{"dave@x.io", ChannelEmail, "dave@x.io"},
		{"+15550000001", ChannelSMS, "+15550000001"},
		{"dave", ChannelEmail, "dave@x.io"},
		{"erin", ChannelSMS, "+15550000002"},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			require.NoError(t, f.svc.SendOTP(ctx, tt.identifier))
			sent := f.notifier.last(t)
			assert.Equal(t, tt.channel, sent.channel)
			assert.Equal(t, tt.destination, sent.destination)
		})
	}
}

func TestAuthService_SendOTPDeliveryFailureIsNotSurfaced(t *testing.T) {
	f := newAuthFixture(t)
	f.notifier.err = errors.New("smtp down")
	f.users.put(&models.User{Email: models.StringPtr("a@b.com")})

	assert.NoError(t, f.svc.SendOTP(context.Background(), "a@b.com"))
}

func TestAuthService_SignUpThenVerifyOTPScenario(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com"})
	require.NoError(t, err)
	code := f.notifier.last(t).code

	pair, err := f.svc.LoginWithOTP(ctx, "a@b.com", code, map[string]string{"ip": "127.0.0.1", "user_agent": "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	claims, err := f.tokens.ParseAccess(pair.Access)
	require.NoError(t, err)
	user, err := f.svc.Me(ctx, claims.UserID)
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)

	events, err := f.svc.ListSecurityEvents(ctx, claims.UserID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "127.0.0.1", models.StringValue(events[0].IPAddress))

	_, err = f.svc.LoginWithOTP(ctx, "a@b.com", code, nil)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidCredential))
}

func TestAuthService_VerifyOTPExpiryBoundary(t *testing.T) {
	tests := []struct {
		age     time.Duration
		wantErr *apperror.AppError
	}{
		{299 * time.Second, nil},
		{300 * time.Second, apperror.ErrOTPExpired},
		{301 * time.Second, apperror.ErrOTPExpired},
	}

	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			f := newAuthFixture(t)
			ctx := context.Background()
			res, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com"})
			require.NoError(t, err)
			code := f.notifier.last(t).code

			f.clock = f.clock.Add(tt.age)
			err = f.svc.VerifyOTP(ctx, res.User, code)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.False(t, f.otps.get(res.User.ID).IsActive, "код должен быть погашен в любом случае")
		})
	}
}

func TestAuthService_VerifyOTPWrongValue(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com"})
	require.NoError(t, err)
	f.svc.generateOTP = func() (string, error) { return "123456", nil }
	require.NoError(t, f.svc.SendOTP(ctx, "a@b.com"))

	err = f.svc.VerifyOTP(ctx, res.User, "654321")
	assert.ErrorIs(t, err, apperror.ErrInvalidOTP)
	assert.True(t, f.otps.get(res.User.ID).IsActive)
	assert.Equal(t, 1, f.otps.count(), "повторная выдача перезаписывает строку")
}

func TestAuthService_ConcurrentVerifyConsumesOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com"})
	require.NoError(t, err)
	code := f.notifier.last(t).code

	const workers = 16
	var successes int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := f.svc.VerifyOTP(ctx, res.User, code); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "pw@b.com", Password: "Secret123"})
	require.NoError(t, err)
	_, err = f.svc.SignUp(ctx, SignUpInput{Email: "otp@b.com"})
	require.NoError(t, err)
	inactive := f.users.put(&models.User{Email: models.StringPtr("off@b.com"), IsActive: false})
	hash, err := f.hasher.Hash("Secret123")
	require.NoError(t, err)
	inactive.PasswordHash = &hash

	t.Run("password ok", func(t *testing.T) {
		pair, err := f.svc.Login(ctx, LoginInput{Identifier: "pw@b.com", Password: "Secret123"}, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access)
	})

	t.Run("password wins over otp", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Identifier: "pw@b.com", Password: "Wrong1234", OTP: "123456"}, nil)
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("user without password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Identifier: "otp@b.com", Password: "Secret123"}, nil)
		assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidCredential))
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Identifier: "off@b.com", Password: "Secret123"}, nil)
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("missing credential", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Identifier: "pw@b.com"}, nil)
		assert.ErrorIs(t, err, apperror.ErrMissingCredential)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Identifier: "ghost", Password: "Secret123"}, nil)
		assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	})

	t.Run("token endpoint requires password", func(t *testing.T) {
		_, err := f.svc.LoginWithPassword(ctx, "pw@b.com", "", nil)
		assert.ErrorIs(t, err, apperror.ErrMissingPassword)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrMissingRefreshToken)

	_, err = f.svc.Refresh(ctx, "garbage")
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidCredential))

	user := f.users.put(&models.User{Username: models.StringPtr("zed"), Email: models.StringPtr("z@b.com")})
	pair, err := f.tokens.IssuePair(user)
	require.NoError(t, err)

	access, err := f.svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	claims, err := f.tokens.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = f.svc.Refresh(ctx, pair.Access)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidCredential), "access токен не годится как refresh")
}

func TestAuthService_ExpiredCodeDoesNotDeactivateReissuedCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com"})
	require.NoError(t, err)
	stale := f.notifier.last(t).code

	f.clock = f.clock.Add(301 * time.Second)
	store := &reissueOnGetStore{memOTPStore: f.otps}
	store.afterGet = func() {
		f.svc.generateOTP = func() (string, error) { return "222222", nil }
		require.NoError(t, f.svc.SendOTP(ctx, "a@b.com"))
	}
	f.svc.otps = store

	err = f.svc.VerifyOTP(ctx, res.User, stale)
	assert.ErrorIs(t, err, apperror.ErrOTPExpired)

	fresh := f.otps.get(res.User.ID)
	assert.Equal(t, "222222", fresh.Value)
	assert.True(t, fresh.IsActive, "новый код не должен гаситься вместе со старым")
	assert.NoError(t, f.svc.VerifyOTP(ctx, res.User, "222222"))
}

func TestAuthService_LoginWithExpiredOTPIsInvalidCredential(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com"})
	require.NoError(t, err)
	code := f.notifier.last(t).code

	f.clock = f.clock.Add(300 * time.Second)
	_, err = f.svc.LoginWithOTP(ctx, "a@b.com", code, nil)

	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidCredential))
	assert.ErrorIs(t, err, apperror.ErrOTPExpired)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.HTTPStatus)
}

func TestAuthService_SignUpKeepsUserWhenOTPIssueFails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	store := &failingUpsertStore{memOTPStore: f.otps, err: errors.New("db down")}
	f.svc.otps = store

	res, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@b.com"})
	require.NoError(t, err)
	assert.False(t, res.OTPSent)
	assert.Zero(t, f.otps.count())

	store.err = nil
	require.NoError(t, f.svc.SendOTP(ctx, "a@b.com"))
	assert.NoError(t, f.svc.VerifyOTP(ctx, res.User, f.notifier.last(t).code))
}

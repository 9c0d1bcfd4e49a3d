package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/goroutine"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
	"github.com/ignatzorin/servicehub-backend/internal/validation"
)

// UserStore описывает зависимости AuthService от таблицы пользователей.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) ([]models.User, error)
	ExistsByField(ctx context.Context, field, value string) (bool, error)
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
}

// OTPStore хранилище одноразовых кодов.
type OTPStore interface {
	Upsert(ctx context.Context, otp *models.OTP) error
	GetActive(ctx context.Context, userID uuid.UUID, value string) (*models.OTP, error)
	Consume(ctx context.Context, otp *models.OTP) (bool, error)
	Deactivate(ctx context.Context, otp *models.OTP) error
}

// SecurityEventStore журнал входов.
type SecurityEventStore interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SecurityEvent, error)
}

// AuthConfig параметры аутентификации.
type AuthConfig struct {
	OTPTTL time.Duration
}

// AuthService инкапсулирует регистрацию, выдачу и проверку одноразовых кодов и вход.
type AuthService struct {
	users    UserStore
	otps     OTPStore
	events   SecurityEventStore
	hasher   PasswordHasher
	tokens   TokenSigner
	notifier Notifier
	cfg      AuthConfig

	generateOTP func() (string, error)
	now         func() time.Time
	dispatch    func(fn func())
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(
	users UserStore,
	otps OTPStore,
	events SecurityEventStore,
	hasher PasswordHasher,
	tokens TokenSigner,
	notifier Notifier,
	cfg AuthConfig,
) *AuthService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = models.DefaultOTPLifetime
	}
	return &AuthService{
		users:       users,
		otps:        otps,
		events:      events,
		hasher:      hasher,
		tokens:      tokens,
		notifier:    notifier,
		cfg:         cfg,
		generateOTP: GenerateOTP,
		now:         time.Now,
		dispatch:    goroutine.SafeGo,
	}
}

// SignUpInput данные регистрации. Обязателен email или номер телефона.
type SignUpInput struct {
	Email       string
	PhoneNumber string
	Password    string
	Username    string
}

// SignUpResult итог регистрации. OTPSent выставлен, если пароль не задан и код отправлен.
type SignUpResult struct {
	User    *models.User
	OTPSent bool
}

// LoginInput данные входа: identifier и пароль либо одноразовый код.
type LoginInput struct {
	Identifier string
	Password   string
	OTP        string
}

// Resolution найденный пользователь и поле, по которому совпал identifier.
type Resolution struct {
	User         *models.User
	MatchedField string
}

// SignUp создаёт пользователя. Без пароля сразу выдаёт и отправляет одноразовый код.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.PhoneNumber)
	if email == "" && phone == "" {
		return nil, apperror.ErrContactRequired
	}

	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, apperror.Validation(err)
		}
		email = validation.NormalizeEmail(email)
	}
	if phone != "" {
		if err := validation.ValidatePhone(phone); err != nil {
			return nil, apperror.Validation(err)
		}
	}

	username := strings.TrimSpace(in.Username)
	switch {
	case username != "":
		if err := validation.ValidateUsername(username); err != nil {
			return nil, apperror.Validation(err)
		}
	case email != "":
		username = email
	default:
		username = phone
	}

	for _, check := range []struct{ field, value, message string }{
		{repository.FieldUsername, username, "пользователь с таким именем уже существует"},
		{repository.FieldEmail, email, "пользователь с таким email уже существует"},
		{repository.FieldPhone, phone, "пользователь с таким номером телефона уже существует"},
	} {
		if check.value == "" {
			continue
		}
		exists, err := s.users.ExistsByField(ctx, check.field, check.value)
		if err != nil {
			return nil, fmt.Errorf("auth service: sign up %w", err)
		}
		if exists {
			return nil, apperror.New(apperror.ErrCodeValidation, check.message)
		}
	}

	user := &models.User{
		Username:    models.StringPtr(username),
		Email:       models.StringPtr(email),
		PhoneNumber: models.StringPtr(phone),
	}

	if in.Password != "" {
		if err := validation.ValidatePassword(in.Password); err != nil {
			return nil, apperror.Validation(err)
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
		}
		user.PasswordHash = &hash
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, apperror.ErrUserAlreadyExists.Message)
		}
		return nil, fmt.Errorf("auth service: sign up %w", err)
	}

	result := &SignUpResult{User: user}
	if !user.HasPassword() {
		channel := ChannelEmail
		if email == "" {
			channel = ChannelSMS
		}
		// пользователь уже создан: код можно запросить повторно через SendOTP
		if err := s.issueOTP(ctx, user, channel); err != nil {
			logger.WithFields(logrus.Fields{
				"user_id": user.ID,
				"error":   err.Error(),
			}).Warn("auth service: не удалось выдать код при регистрации")
			return result, nil
		}
		result.OTPSent = true
	}

	return result, nil
}

// ResolveUser ищет пользователя по точному совпадению identifier с username,
// email или phone_number (в этом порядке). Совпадение с разными пользователями
// по разным полям считается ошибкой.
func (s *AuthService) ResolveUser(ctx context.Context, identifier string) (*Resolution, error) {
	if identifier == "" {
		return nil, apperror.ErrMissingIdentifier
	}

	candidates, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("auth service: resolve user %w", err)
	}

	var found *Resolution
	for _, field := range []string{repository.FieldUsername, repository.FieldEmail, repository.FieldPhone} {
		for i := range candidates {
			user := &candidates[i]
			if fieldValue(user, field) != identifier {
				continue
			}
			if found == nil {
				found = &Resolution{User: user, MatchedField: field}
			} else if found.User.ID != user.ID {
				return nil, apperror.ErrAmbiguousIdentifier
			}
		}
	}

	if found == nil {
		return nil, apperror.ErrUserNotFound
	}
	return found, nil
}

// SendOTP выдаёт новый код и отправляет его по каналу, соответствующему identifier.
func (s *AuthService) SendOTP(ctx context.Context, identifier string) error {
	res, err := s.ResolveUser(ctx, identifier)
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, res.User, channelFor(res))
}

// VerifyOTP проверяет и гасит код пользователя. Истёкший код тоже гасится.
func (s *AuthService) VerifyOTP(ctx context.Context, user *models.User, candidate string) error {
	if candidate == "" {
		return apperror.ErrMissingOTP
	}

	otp, err := s.otps.GetActive(ctx, user.ID, candidate)
	if errors.Is(err, repository.ErrOTPNotFound) {
		return apperror.ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("auth service: verify otp %w", err)
	}

	if otp.IsExpired(s.now(), s.cfg.OTPTTL) {
		if err := s.otps.Deactivate(ctx, otp); err != nil {
			logger.WithFields(logrus.Fields{
				"user_id": user.ID,
				"error":   err.Error(),
			}).Warn("auth service: не удалось погасить истёкший код")
		}
		return apperror.ErrOTPExpired
	}

	consumed, err := s.otps.Consume(ctx, otp)
	if err != nil {
		return fmt.Errorf("auth service: consume otp %w", err)
	}
	if !consumed {
		return apperror.ErrInvalidOTP
	}
	return nil
}

// Login проверяет пароль (если передан) либо одноразовый код и выпускает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta map[string]string) (*TokenPair, error) {
	res, err := s.ResolveUser(ctx, in.Identifier)
	if err != nil {
		return nil, err
	}
	user := res.User

	switch {
	case in.Password != "":
		if !user.IsActive || !user.HasPassword() || !s.hasher.Verify(*user.PasswordHash, in.Password) {
			return nil, apperror.ErrInvalidCredentials
		}
	case in.OTP != "":
		if !user.IsActive {
			return nil, apperror.ErrInvalidCredentials
		}
		if err := s.VerifyOTP(ctx, user, in.OTP); err != nil {
			if errors.Is(err, apperror.ErrOTPExpired) {
				return nil, apperror.Wrap(err, apperror.ErrCodeInvalidCredential, apperror.ErrOTPExpired.Message)
			}
			return nil, err
		}
	default:
		return nil, apperror.ErrMissingCredential
	}

	return s.completeLogin(ctx, user, meta)
}

// LoginWithOTP вход только по одноразовому коду.
func (s *AuthService) LoginWithOTP(ctx context.Context, identifier, otp string, meta map[string]string) (*TokenPair, error) {
	if identifier == "" {
		return nil, apperror.ErrMissingIdentifier
	}
	if otp == "" {
		return nil, apperror.ErrMissingOTP
	}
	return s.Login(ctx, LoginInput{Identifier: identifier, OTP: otp}, meta)
}

// LoginWithPassword вход только по паролю.
func (s *AuthService) LoginWithPassword(ctx context.Context, identifier, password string, meta map[string]string) (*TokenPair, error) {
	if identifier == "" {
		return nil, apperror.ErrMissingIdentifier
	}
	if password == "" {
		return nil, apperror.ErrMissingPassword
	}
	return s.Login(ctx, LoginInput{Identifier: identifier, Password: password}, meta)
}

// Refresh выпускает новый access токен по refresh токену. Состояние не меняется.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	if refresh == "" {
		return "", apperror.ErrMissingRefreshToken
	}
	access, err := s.tokens.RefreshAccess(refresh)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeInvalidCredential, apperror.ErrInvalidRefreshToken.Message)
	}
	return access, nil
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: me %w", err)
	}
	return user, nil
}

// ListSecurityEvents возвращает последние входы пользователя.
func (s *AuthService) ListSecurityEvents(ctx context.Context, userID uuid.UUID, limit int) ([]models.SecurityEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.events.ListByUser(ctx, userID, limit)
}

func (s *AuthService) completeLogin(ctx context.Context, user *models.User, meta map[string]string) (*TokenPair, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue tokens %w", err)
	}

	event := &models.SecurityEvent{UserID: user.ID}
	if meta != nil {
		if ua, ok := meta["user_agent"]; ok {
			event.UserAgent = models.StringPtr(ua)
		}
		if ip, ok := meta["ip"]; ok {
			event.IPAddress = models.StringPtr(ip)
		}
	}
	if err := s.events.Create(ctx, event); err != nil {
		logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("auth service: не удалось записать событие входа")
	}

	// Логируем ошибку, но не прерываем вход
	if err := s.users.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("auth service: не удалось обновить last_login_at")
	}

	return pair, nil
}

func (s *AuthService) issueOTP(ctx context.Context, user *models.User, channel string) error {
	value, err := s.generateOTP()
	if err != nil {
		return fmt.Errorf("auth service: generate otp %w", err)
	}

	otp := &models.OTP{UserID: user.ID, Value: value, CreatedAt: s.now()}
	if err := s.otps.Upsert(ctx, otp); err != nil {
		return fmt.Errorf("auth service: issue otp %w", err)
	}

	s.deliver(ctx, user, channel, value)
	return nil
}

// deliver отправляет код в фоне. Ошибка доставки только логируется.
func (s *AuthService) deliver(ctx context.Context, user *models.User, channel, code string) {
	bg := context.WithoutCancel(ctx)
	userID := user.ID
	email, phone := user.EmailValue(), user.PhoneValue()

	s.dispatch(func() {
		var err error
		if channel == ChannelEmail {
			err = s.notifier.SendEmailOTP(bg, email, code)
		} else {
			err = s.notifier.SendSMSOTP(bg, phone, code)
		}
		if err != nil {
			logger.WithFields(logrus.Fields{
				"user_id": userID,
				"channel": channel,
				"error":   err.Error(),
			}).Warn("auth service: не удалось доставить код")
		}
	})
}

// channelFor email для совпадения по email, sms по телефону;
// при совпадении по username email, если он есть.
func channelFor(res *Resolution) string {
	switch res.MatchedField {
	case repository.FieldEmail:
		return ChannelEmail
	case repository.FieldPhone:
		return ChannelSMS
	}
	if res.User.EmailValue() != "" {
		return ChannelEmail
	}
	return ChannelSMS
}

func fieldValue(user *models.User, field string) string {
	switch field {
	case repository.FieldUsername:
		return user.UsernameValue()
	case repository.FieldEmail:
		return user.EmailValue()
	case repository.FieldPhone:
		return user.PhoneValue()
	}
	return ""
}

package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/repository"
	"github.com/ignatzorin/servicehub-backend/internal/repository/common"
	"github.com/ignatzorin/servicehub-backend/internal/storage"
)

// mockProviderStore переопределяет только методы, нужные тестам.
type mockProviderStore struct {
	mock.Mock
	ProviderStore
}

func (m *mockProviderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceProvider), args.Error(1)
}

func (m *mockProviderStore) EnsureOwner(ctx context.Context, userID uuid.UUID) (*models.Owner, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(*models.Owner), args.Error(1)
}

func (m *mockProviderStore) Create(ctx context.Context, sp *models.ServiceProvider) error {
	args := m.Called(ctx, sp)
	if args.Error(0) == nil {
		sp.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockProviderStore) Update(ctx context.Context, sp *models.ServiceProvider) error {
	return m.Called(ctx, sp).Error(0)
}

func (m *mockProviderStore) List(ctx context.Context, filter models.ProviderFilter) ([]models.ProviderShort, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.ProviderShort), args.Error(1)
}

func (m *mockProviderStore) ListTagsForProviders(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.Tag, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[uuid.UUID][]models.Tag), args.Error(1)
}

func (m *mockProviderStore) ListWorkTimes(ctx context.Context, providerID uuid.UUID) ([]models.WorkTime, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]models.WorkTime), args.Error(1)
}

func (m *mockProviderStore) CreateWorkTime(ctx context.Context, wt *models.WorkTime) error {
	return m.Called(ctx, wt).Error(0)
}

func (m *mockProviderStore) ListTags(ctx context.Context, providerID uuid.UUID) ([]models.Tag, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *mockProviderStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *mockProviderStore) ListImages(ctx context.Context, providerID uuid.UUID) ([]models.Image, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]models.Image), args.Error(1)
}

func (m *mockProviderStore) CreateImage(ctx context.Context, img *models.Image) error {
	return m.Called(ctx, img).Error(0)
}

func (m *mockProviderStore) SetImage(ctx context.Context, providerID uuid.UUID, kind string, path *string) error {
	return m.Called(ctx, providerID, kind, path).Error(0)
}

func (m *mockProviderStore) ListExperts(ctx context.Context, providerID uuid.UUID) ([]models.ProviderExpert, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).([]models.ProviderExpert), args.Error(1)
}

type mockLookups struct {
	mock.Mock
	ProviderLookups
}

func (m *mockLookups) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *mockLookups) EnsureTagKey(ctx context.Context, name string) (*models.TagKey, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(*models.TagKey), args.Error(1)
}

type fakeImageStore struct {
	saved   []string
	deleted []string
}

func (f *fakeImageStore) Save(ctx context.Context, providerID uuid.UUID, name string, r io.ReadSeeker) (*storage.StoredFile, error) {
	path := "providers/" + providerID.String() + "/" + name
	f.saved = append(f.saved, path)
	return &storage.StoredFile{Path: path, ContentType: "image/png", Size: 10}, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

type providerFixture struct {
	svc     *ProviderService
	store   *mockProviderStore
	lookups *mockLookups
	ratings *mockReviewStore
	images  *fakeImageStore
	cache   *CacheService
}

func newProviderFixture() *providerFixture {
	f := &providerFixture{
		store:   new(mockProviderStore),
		lookups: new(mockLookups),
		ratings: new(mockReviewStore),
		images:  &fakeImageStore{},
		cache:   NewCacheService(context.Background(), 0),
	}
	f.svc = NewProviderService(f.store, f.lookups, f.ratings, f.images, f.cache, time.Minute)
	return f
}

func TestProviderService_List_AttachesTagsAndClampsLimit(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	f.store.On("List", ctx, models.ProviderFilter{Limit: maxProviderPageSize, Query: "cafe"}).
		Return([]models.ProviderShort{{ID: a}, {ID: b}}, nil)
	f.store.On("ListTagsForProviders", ctx, []uuid.UUID{a, b}).
		Return(map[uuid.UUID][]models.Tag{a: {{KeyName: "wifi", Value: "yes"}}}, nil)

	items, err := f.svc.List(ctx, models.ProviderFilter{Limit: 1000, Offset: -5, Query: "  cafe "})

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "wifi", items[0].Tags[0].KeyName)
	assert.NotNil(t, items[1].Tags)
	assert.Empty(t, items[1].Tags)
}

func TestProviderService_Create_MakesCallerOwner(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	userID := uuid.New()
	owner := &models.Owner{ID: uuid.New(), UserID: userID}

	f.store.On("EnsureOwner", ctx, userID).Return(owner, nil)
	f.store.On("Create", ctx, mock.AnythingOfType("*models.ServiceProvider")).Return(nil)

	sp, err := f.svc.Create(ctx, Actor{UserID: userID}, ProviderInput{Name: " Шиномонтаж ", Location: "41.3,69.2"})

	require.NoError(t, err)
	assert.Equal(t, owner.ID, sp.OwnerID)
	assert.Equal(t, "Шиномонтаж", sp.Name)
}

func TestProviderService_Create_UnknownCategory(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	userID := uuid.New()

	f.store.On("EnsureOwner", ctx, userID).Return(&models.Owner{ID: uuid.New()}, nil)
	f.store.On("Create", ctx, mock.Anything).Return(common.ErrInvalidInput)

	_, err := f.svc.Create(ctx, Actor{UserID: userID}, ProviderInput{Name: "x"})
	assert.True(t, apperror.IsValidation(err))
}

func TestProviderService_Update_Authorization(t *testing.T) {
	owner := uuid.New()
	providerID := uuid.New()

	tests := []struct {
		name    string
		actor   Actor
		wantErr error
	}{
		{"owner", Actor{UserID: owner}, nil},
		{"staff", Actor{UserID: uuid.New(), IsStaff: true}, nil},
		{"stranger", Actor{UserID: uuid.New()}, apperror.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProviderFixture()
			ctx := context.Background()
			f.store.On("GetByID", ctx, providerID).Return(&models.ServiceProvider{ID: providerID, OwnerUserID: owner}, nil)
			f.store.On("Update", ctx, mock.Anything).Return(nil)

			_, err := f.svc.Update(ctx, tt.actor, providerID, ProviderInput{Name: "new"})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				f.store.AssertCalled(t, "Update", ctx, mock.Anything)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
				f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestProviderService_Get_CachesAndFillsUserRate(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	providerID, categoryID, viewer := uuid.New(), uuid.New(), uuid.New()
	avg := 4.0

	f.store.On("GetByID", ctx, providerID).Return(&models.ServiceProvider{ID: providerID, Name: "P", CategoryID: &categoryID}, nil).Once()
	f.lookups.On("GetCategory", ctx, categoryID).Return(&models.Category{ID: categoryID, Name: "Авто"}, nil).Once()
	f.store.On("ListWorkTimes", ctx, providerID).Return([]models.WorkTime{}, nil).Once()
	f.store.On("ListTags", ctx, providerID).Return([]models.Tag{}, nil).Once()
	f.store.On("ListImages", ctx, providerID).Return([]models.Image{}, nil).Once()
	f.store.On("ListExperts", ctx, providerID).Return([]models.ProviderExpert{}, nil).Once()
	f.ratings.On("ListReviews", ctx, providerID, true).Return([]models.Review{}, nil).Once()
	f.ratings.On("ListRates", ctx, providerID).Return([]models.Rate{{Score: 4}}, nil).Once()
	f.ratings.On("GetRatingSummary", ctx, providerID).Return(&models.RatingSummary{Average: &avg, Count: 1}, nil).Once()
	f.ratings.On("GetUserRate", ctx, providerID, viewer).Return(&models.Rate{Score: 4}, nil)

	anonymous, err := f.svc.Get(ctx, providerID, nil)
	require.NoError(t, err)
	assert.Nil(t, anonymous.UserRate)
	assert.Equal(t, "Авто", anonymous.Category.Name)
	assert.Equal(t, 1, anonymous.RateCount)

	personal, err := f.svc.Get(ctx, providerID, &viewer)
	require.NoError(t, err)
	require.NotNil(t, personal.UserRate)
	assert.Equal(t, 4, *personal.UserRate)

	again, err := f.svc.Get(ctx, providerID, nil)
	require.NoError(t, err)
	assert.Nil(t, again.UserRate, "user_rate не должен попадать в общий кеш")

	f.store.AssertExpectations(t)
}

func TestProviderService_Get_NotFound(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	id := uuid.New()
	f.store.On("GetByID", ctx, id).Return(nil, repository.ErrProviderNotFound)

	_, err := f.svc.Get(ctx, id, nil)
	assert.ErrorIs(t, err, apperror.ErrProviderNotFound)
}

func TestProviderService_CreateWorkTime(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	owner, providerID := uuid.New(), uuid.New()
	f.store.On("GetByID", ctx, providerID).Return(&models.ServiceProvider{ID: providerID, OwnerUserID: owner}, nil)
	f.store.On("CreateWorkTime", ctx, mock.AnythingOfType("*models.WorkTime")).Return(nil)

	wt, err := f.svc.CreateWorkTime(ctx, Actor{UserID: owner}, providerID, WorkTimeInput{WeekdayID: 1, TimeStart: "9:00", TimeEnd: "18:30"})
	require.NoError(t, err)
	assert.Equal(t, "09:00:00", wt.TimeStart)
	assert.Equal(t, "18:30:00", wt.TimeEnd)
	assert.True(t, wt.IsActive)

	_, err = f.svc.CreateWorkTime(ctx, Actor{UserID: owner}, providerID, WorkTimeInput{WeekdayID: 1, TimeStart: "18:00", TimeEnd: "09:00"})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.CreateWorkTime(ctx, Actor{UserID: owner}, providerID, WorkTimeInput{WeekdayID: 8, TimeStart: "09:00", TimeEnd: "10:00"})
	assert.ErrorIs(t, err, apperror.ErrWeekdayNotFound)
}

func TestProviderService_CreateTag_Duplicate(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	owner, providerID := uuid.New(), uuid.New()
	f.store.On("GetByID", ctx, providerID).Return(&models.ServiceProvider{ID: providerID, OwnerUserID: owner}, nil)
	f.lookups.On("EnsureTagKey", ctx, "wifi").Return(&models.TagKey{ID: uuid.New(), Name: "wifi"}, nil)
	f.store.On("CreateTag", ctx, mock.Anything).Return(common.ErrAlreadyExists)

	_, err := f.svc.CreateTag(ctx, Actor{UserID: owner}, providerID, TagInput{Key: "wifi", Value: "yes"})
	assert.ErrorIs(t, err, apperror.ErrTagExists)
}

func TestProviderService_UploadLogo(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	owner, providerID := uuid.New(), uuid.New()
	f.store.On("GetByID", ctx, providerID).Return(&models.ServiceProvider{ID: providerID, OwnerUserID: owner}, nil)
	f.store.On("CreateImage", ctx, mock.AnythingOfType("*models.Image")).Return(nil)
	f.store.On("SetImage", ctx, providerID, models.ImageKindLogo, mock.AnythingOfType("*string")).Return(nil)

	img, err := f.svc.UploadImage(ctx, Actor{UserID: owner}, providerID, models.ImageKindLogo, "logo.png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, models.ImageKindLogo, img.Kind)
	assert.Len(t, f.images.saved, 1)
	f.store.AssertCalled(t, "SetImage", ctx, providerID, models.ImageKindLogo, mock.AnythingOfType("*string"))

	_, err = f.svc.UploadImage(ctx, Actor{UserID: owner}, providerID, "banner", "logo.png", bytes.NewReader([]byte("x")))
	assert.True(t, apperror.IsValidation(err))
}

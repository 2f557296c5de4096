package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"promo-batch/internal/config"
	"promo-batch/internal/gateway"
	"promo-batch/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDiscountRepository is a mock implementation of repository.DiscountRepository.
type MockDiscountRepository struct {
	mock.Mock
}

func (m *MockDiscountRepository) CreateSet(ctx context.Context, set *model.DiscountSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockDiscountRepository) CreateItems(ctx context.Context, items []model.Discount) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockDiscountRepository) GetSet(ctx context.Context, id uuid.UUID) (*model.DiscountSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiscountSet), args.Error(1)
}

func (m *MockDiscountRepository) ListSets(ctx context.Context, shop string) ([]model.SetWithItems, error) {
	args := m.Called(ctx, shop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SetWithItems), args.Error(1)
}

func (m *MockDiscountRepository) GetItem(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Discount), args.Error(1)
}

func (m *MockDiscountRepository) ClaimPending(ctx context.Context, setID uuid.UUID, limit int) ([]model.Discount, error) {
	args := m.Called(ctx, setID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Discount), args.Error(1)
}

func (m *MockDiscountRepository) ReleaseClaims(ctx context.Context, itemIDs []uuid.UUID) error {
	args := m.Called(ctx, itemIDs)
	return args.Error(0)
}

func (m *MockDiscountRepository) ReleaseStaleClaims(ctx context.Context, setID uuid.UUID, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, setID, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDiscountRepository) MarkCreated(ctx context.Context, itemID uuid.UUID, remoteID string) error {
	args := m.Called(ctx, itemID, remoteID)
	return args.Error(0)
}

func (m *MockDiscountRepository) MarkFailed(ctx context.Context, itemID uuid.UUID, message string) error {
	args := m.Called(ctx, itemID, message)
	return args.Error(0)
}

func (m *MockDiscountRepository) CountByStatus(ctx context.Context, setID uuid.UUID) (model.StatusCounts, error) {
	args := m.Called(ctx, setID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.StatusCounts), args.Error(1)
}

func (m *MockDiscountRepository) ResetFailedToPending(ctx context.Context, setID uuid.UUID) (int64, error) {
	args := m.Called(ctx, setID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDiscountRepository) CreatedItems(ctx context.Context, setID uuid.UUID) ([]model.Discount, error) {
	args := m.Called(ctx, setID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Discount), args.Error(1)
}

func (m *MockDiscountRepository) DeleteSet(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDiscountRepository) DeleteItem(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockGateway is a mock implementation of gateway.DiscountGateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) FetchTemplate(ctx context.Context, ref string) (*gateway.Template, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Template), args.Error(1)
}

func (m *MockGateway) CreateCode(ctx context.Context, req gateway.CreateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DeleteCode(ctx context.Context, remoteID string) error {
	args := m.Called(ctx, remoteID)
	return args.Error(0)
}

func (m *MockGateway) ListTemplates(ctx context.Context, limit int) ([]gateway.Template, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.Template), args.Error(1)
}

func testBatchConfig() config.BatchConfig {
	return config.BatchConfig{
		Size:      5,
		PollDelay: 500 * time.Millisecond,
		ClaimTTL:  5 * time.Minute,
	}
}

func testTemplate() *gateway.Template {
	return &gateway.Template{
		Ref:       "tpl-1",
		Title:     "Summer Sale",
		Value:     gateway.Value{Kind: gateway.ValuePercentage, Percentage: 10},
		ItemScope: gateway.ItemScope{Kind: gateway.ItemsAll},
		Audience:  gateway.Audience{Kind: gateway.AudienceAll},
	}
}

func claimedItem(setID uuid.UUID, code string) model.Discount {
	return model.Discount{
		ID:          uuid.New(),
		Shop:        "test-shop",
		Code:        code,
		TemplateRef: "tpl-1",
		SetID:       &setID,
		Status:      model.StatusInProgress,
	}
}

func TestBatchService_Submit_Success(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(testTemplate(), nil)
	mockRepo.On("CreateSet", ctx, mock.AnythingOfType("*model.DiscountSet")).Return(nil)
	mockRepo.On("CreateItems", ctx, mock.AnythingOfType("[]model.Discount")).Return(nil)

	resp, err := service.Submit(ctx, &SubmitRequest{
		Shop:        "test-shop",
		SetName:     "Summer Batch",
		TemplateRef: "tpl-1",
		Codes:       []string{"CODE1", "CODE2", "CODE3"},
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEqual(t, uuid.Nil, resp.SetID)
	assert.Equal(t, 3, resp.TotalCodes)

	mockGateway.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestBatchService_Submit_DedupsAndNormalizesCodes(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	var persisted []model.Discount
	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(testTemplate(), nil)
	mockRepo.On("CreateSet", ctx, mock.AnythingOfType("*model.DiscountSet")).Return(nil)
	mockRepo.On("CreateItems", ctx, mock.AnythingOfType("[]model.Discount")).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).([]model.Discount)
		}).
		Return(nil)

	resp, err := service.Submit(ctx, &SubmitRequest{
		Shop:        "test-shop",
		TemplateRef: "tpl-1",
		Codes:       []string{" CODE1 ", "CODE1", "", "CODE2", "CODE1"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCodes)
	require.Len(t, persisted, 2)
	assert.Equal(t, "CODE1", persisted[0].Code)
	assert.Equal(t, "CODE2", persisted[1].Code)
	for _, item := range persisted {
		assert.Equal(t, model.StatusPending, item.Status)
		assert.Equal(t, "tpl-1", item.TemplateRef)
		require.NotNil(t, item.SetID)
		assert.Equal(t, resp.SetID, *item.SetID)
	}
}

func TestBatchService_Submit_EmptyCodeList(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	resp, err := service.Submit(ctx, &SubmitRequest{
		Shop:        "test-shop",
		TemplateRef: "tpl-1",
		Codes:       []string{"", "   "},
	})

	require.Error(t, err)
	assert.Equal(t, model.ErrEmptyCodeList, err)
	assert.Nil(t, resp)

	mockGateway.AssertNotCalled(t, "FetchTemplate")
	mockRepo.AssertNotCalled(t, "CreateSet")
}

func TestBatchService_Submit_TemplateNotFound(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	mockGateway.On("FetchTemplate", ctx, "missing").Return(nil, gateway.ErrTemplateNotFound)

	resp, err := service.Submit(ctx, &SubmitRequest{
		Shop:        "test-shop",
		TemplateRef: "missing",
		Codes:       []string{"CODE1"},
	})

	require.Error(t, err)
	assert.Equal(t, model.ErrTemplateNotFound, err)
	assert.Nil(t, resp)

	// Nothing is persisted when validation fails.
	mockRepo.AssertNotCalled(t, "CreateSet")
	mockRepo.AssertNotCalled(t, "CreateItems")
}

func TestBatchService_Submit_ItemInsertFailureCleansUp(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	duplicate := model.NewDomainError(model.ErrCodeDuplicateCode, `Discount code "CODE1" already exists for this shop`)

	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(testTemplate(), nil)
	mockRepo.On("CreateSet", ctx, mock.AnythingOfType("*model.DiscountSet")).Return(nil)
	mockRepo.On("CreateItems", ctx, mock.AnythingOfType("[]model.Discount")).Return(duplicate)
	mockRepo.On("DeleteSet", ctx, mock.AnythingOfType("uuid.UUID")).Return(int64(1), nil)

	resp, err := service.Submit(ctx, &SubmitRequest{
		Shop:        "test-shop",
		TemplateRef: "tpl-1",
		Codes:       []string{"CODE1"},
	})

	require.Error(t, err)
	assert.Equal(t, duplicate, err)
	assert.Nil(t, resp)

	mockRepo.AssertExpectations(t)
}

func TestBatchService_ProcessBatch_SetNotFound(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	mockRepo.On("GetSet", ctx, setID).Return(nil, nil)

	result, err := service.ProcessBatch(ctx, setID)

	require.Error(t, err)
	assert.Equal(t, model.ErrSetNotFound, err)
	assert.Nil(t, result)
}

func TestBatchService_ProcessBatch_HappyPath(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}

	items := []model.Discount{
		claimedItem(setID, "CODE1"),
		claimedItem(setID, "CODE2"),
	}

	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("ReleaseStaleClaims", ctx, setID, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	mockRepo.On("ClaimPending", ctx, setID, 5).Return(items, nil)
	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(testTemplate(), nil).Once()
	mockGateway.On("CreateCode", ctx, mock.MatchedBy(func(req gateway.CreateRequest) bool {
		return req.Code == "CODE1"
	})).Return("remote-1", nil)
	mockGateway.On("CreateCode", ctx, mock.MatchedBy(func(req gateway.CreateRequest) bool {
		return req.Code == "CODE2"
	})).Return("remote-2", nil)
	mockRepo.On("MarkCreated", ctx, items[0].ID, "remote-1").Return(nil)
	mockRepo.On("MarkCreated", ctx, items[1].ID, "remote-2").Return(nil)
	mockRepo.On("CountByStatus", ctx, setID).Return(model.StatusCounts{
		model.StatusCreated: 2,
		model.StatusPending: 3,
	}, nil)

	result, err := service.ProcessBatch(ctx, setID)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 3, result.Remaining)
	assert.False(t, result.Complete)
	assert.Equal(t, 500*time.Millisecond, result.RetryAfter)

	mockRepo.AssertExpectations(t)
	mockGateway.AssertExpectations(t)
}

func TestBatchService_ProcessBatch_ForcesSingleUseOnEveryRequest(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}
	item := claimedItem(setID, "CODE1")

	var sent gateway.CreateRequest
	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("ReleaseStaleClaims", ctx, setID, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	mockRepo.On("ClaimPending", ctx, setID, 5).Return([]model.Discount{item}, nil)
	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(testTemplate(), nil)
	mockGateway.On("CreateCode", ctx, mock.AnythingOfType("gateway.CreateRequest")).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(gateway.CreateRequest)
		}).
		Return("remote-1", nil)
	mockRepo.On("MarkCreated", ctx, item.ID, "remote-1").Return(nil)
	mockRepo.On("CountByStatus", ctx, setID).Return(model.StatusCounts{model.StatusCreated: 1}, nil)

	_, err := service.ProcessBatch(ctx, setID)

	require.NoError(t, err)
	assert.Equal(t, 1, sent.UsageLimit)
	assert.True(t, sent.OncePerCustomer)
	assert.Equal(t, gateway.ValuePercentage, sent.Value.Kind)
	assert.Equal(t, 10.0, sent.Value.Percentage)
	assert.Equal(t, gateway.ItemsAll, sent.ItemScope.Kind)
}

func TestBatchService_ProcessBatch_NoPendingItems(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}

	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("ReleaseStaleClaims", ctx, setID, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	mockRepo.On("ClaimPending", ctx, setID, 5).Return([]model.Discount{}, nil)
	mockRepo.On("CountByStatus", ctx, setID).Return(model.StatusCounts{
		model.StatusCreated: 10,
		model.StatusFailed:  2,
	}, nil)

	result, err := service.ProcessBatch(ctx, setID)

	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.Zero(t, result.Remaining)
	assert.True(t, result.Complete)
	assert.Zero(t, result.RetryAfter)
	assert.Equal(t, 10, result.Counts[model.StatusCreated])
	assert.Equal(t, 2, result.Counts[model.StatusFailed])

	// The template is never fetched when there is nothing to process.
	mockGateway.AssertNotCalled(t, "FetchTemplate")
}

func TestBatchService_ProcessBatch_RejectedItemDoesNotAbortBatch(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}

	items := []model.Discount{
		claimedItem(setID, "DUPLICATE1"),
		claimedItem(setID, "CODE2"),
	}

	rejection := &gateway.RejectedError{
		FieldErrors: []gateway.FieldError{{Field: "code", Message: "has already been taken"}},
	}

	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("ReleaseStaleClaims", ctx, setID, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	mockRepo.On("ClaimPending", ctx, setID, 5).Return(items, nil)
	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(testTemplate(), nil)
	mockGateway.On("CreateCode", ctx, mock.MatchedBy(func(req gateway.CreateRequest) bool {
		return req.Code == "DUPLICATE1"
	})).Return("", rejection)
	mockGateway.On("CreateCode", ctx, mock.MatchedBy(func(req gateway.CreateRequest) bool {
		return req.Code == "CODE2"
	})).Return("remote-2", nil)
	mockRepo.On("MarkFailed", ctx, items[0].ID, "code: has already been taken").Return(nil)
	mockRepo.On("MarkCreated", ctx, items[1].ID, "remote-2").Return(nil)
	mockRepo.On("CountByStatus", ctx, setID).Return(model.StatusCounts{
		model.StatusCreated: 1,
		model.StatusFailed:  1,
	}, nil)

	result, err := service.ProcessBatch(ctx, setID)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.True(t, result.Complete)

	mockRepo.AssertExpectations(t)
	mockGateway.AssertExpectations(t)
}

func TestBatchService_ProcessBatch_TransportErrorMarksFailed(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}
	item := claimedItem(setID, "CODE1")

	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("ReleaseStaleClaims", ctx, setID, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	mockRepo.On("ClaimPending", ctx, setID, 5).Return([]model.Discount{item}, nil)
	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(testTemplate(), nil)
	mockGateway.On("CreateCode", ctx, mock.AnythingOfType("gateway.CreateRequest")).
		Return("", errors.New("connection reset"))
	mockRepo.On("MarkFailed", ctx, item.ID, "connection reset").Return(nil)
	mockRepo.On("CountByStatus", ctx, setID).Return(model.StatusCounts{model.StatusFailed: 1}, nil)

	result, err := service.ProcessBatch(ctx, setID)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.True(t, result.Complete)

	mockRepo.AssertExpectations(t)
}

func TestBatchService_ProcessBatch_TemplateFetchFailureReleasesClaims(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}

	items := []model.Discount{
		claimedItem(setID, "CODE1"),
		claimedItem(setID, "CODE2"),
	}

	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("ReleaseStaleClaims", ctx, setID, mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	mockRepo.On("ClaimPending", ctx, setID, 5).Return(items, nil)
	mockGateway.On("FetchTemplate", ctx, "tpl-1").Return(nil, errors.New("gateway timeout"))
	mockRepo.On("ReleaseClaims", ctx, []uuid.UUID{items[0].ID, items[1].ID}).Return(nil)

	result, err := service.ProcessBatch(ctx, setID)

	require.Error(t, err)
	assert.Nil(t, result)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeTemplateFetch, domainErr.Code)

	// A template-fetch failure is batch-level: no item is marked FAILED.
	mockRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestBatchService_RetryFailed(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}

	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("ResetFailedToPending", ctx, setID).Return(int64(3), nil)
	mockRepo.On("CountByStatus", ctx, setID).Return(model.StatusCounts{
		model.StatusPending: 3,
		model.StatusCreated: 7,
	}, nil)

	resp, err := service.RetryFailed(ctx, setID)

	require.NoError(t, err)
	assert.Equal(t, 3, resp.PendingCount)

	mockRepo.AssertExpectations(t)
}

func TestBatchService_RetryFailed_SetNotFound(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	mockRepo.On("GetSet", ctx, setID).Return(nil, nil)

	resp, err := service.RetryFailed(ctx, setID)

	require.Error(t, err)
	assert.Equal(t, model.ErrSetNotFound, err)
	assert.Nil(t, resp)
}

func TestBatchService_DeleteSet_BestEffortRemoteDeletes(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	setID := uuid.New()
	set := &model.DiscountSet{ID: setID, Shop: "test-shop", TemplateRef: "tpl-1"}

	remote1 := "remote-1"
	remote2 := "remote-2"
	created := []model.Discount{
		{ID: uuid.New(), Code: "C1", Status: model.StatusCreated, RemoteID: &remote1},
		{ID: uuid.New(), Code: "C2", Status: model.StatusCreated, RemoteID: &remote2},
	}

	mockRepo.On("GetSet", ctx, setID).Return(set, nil)
	mockRepo.On("CreatedItems", ctx, setID).Return(created, nil)
	// The first remote deletion fails; the set is deleted regardless.
	mockGateway.On("DeleteCode", ctx, "remote-1").Return(errors.New("remote unavailable"))
	mockGateway.On("DeleteCode", ctx, "remote-2").Return(nil)
	mockRepo.On("DeleteSet", ctx, setID).Return(int64(1), nil)

	err := service.DeleteSet(ctx, setID)

	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockGateway.AssertExpectations(t)
}

func TestBatchService_DeleteItem(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	remoteID := "remote-9"

	tests := []struct {
		name         string
		item         *model.Discount
		expectRemote bool
	}{
		{
			name:         "Pending item needs no remote call",
			item:         &model.Discount{ID: uuid.New(), Code: "P1", Status: model.StatusPending},
			expectRemote: false,
		},
		{
			name:         "Failed item needs no remote call",
			item:         &model.Discount{ID: uuid.New(), Code: "F1", Status: model.StatusFailed},
			expectRemote: false,
		},
		{
			name:         "Created item is deleted remotely first",
			item:         &model.Discount{ID: uuid.New(), Code: "C1", Status: model.StatusCreated, RemoteID: &remoteID},
			expectRemote: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockDiscountRepository)
			mockGateway := new(MockGateway)

			service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

			mockRepo.On("GetItem", ctx, tt.item.ID).Return(tt.item, nil)
			if tt.expectRemote {
				mockGateway.On("DeleteCode", ctx, remoteID).Return(nil)
			}
			mockRepo.On("DeleteItem", ctx, tt.item.ID).Return(int64(1), nil)

			err := service.DeleteItem(ctx, tt.item.ID)

			require.NoError(t, err)
			if !tt.expectRemote {
				mockGateway.AssertNotCalled(t, "DeleteCode")
			}
			mockRepo.AssertExpectations(t)
			mockGateway.AssertExpectations(t)
		})
	}
}

func TestBatchService_DeleteItem_NotFound(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	itemID := uuid.New()
	mockRepo.On("GetItem", ctx, itemID).Return(nil, nil)

	err := service.DeleteItem(ctx, itemID)

	require.Error(t, err)
	assert.Equal(t, model.ErrItemNotFound, err)
}

func TestBatchService_ListSets_RequiresShop(t *testing.T) {
	logger := zerolog.Nop()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	sets, err := service.ListSets(context.Background(), "")

	require.Error(t, err)
	assert.Nil(t, sets)
	mockRepo.AssertNotCalled(t, "ListSets")
}

func TestBatchService_ListTemplates_DefaultsLimit(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockRepo := new(MockDiscountRepository)
	mockGateway := new(MockGateway)

	service := NewBatchService(mockRepo, mockGateway, testBatchConfig(), logger)

	mockGateway.On("ListTemplates", ctx, 10).Return([]gateway.Template{{Ref: "tpl-1"}}, nil)

	templates, err := service.ListTemplates(ctx, 0)

	require.NoError(t, err)
	assert.Len(t, templates, 1)
	mockGateway.AssertExpectations(t)
}

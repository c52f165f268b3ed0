package aiparse

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boq-cli/internal/model"
	"github.com/sells-group/boq-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(body string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: body}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}
}

func TestParse_Success(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"items":[
			{"description":"Cement 43 Grade","unit":"bag","quantity":100,"rate":450,"category":"MATERIAL","section":"Concrete Work"},
			{"description":"Mason wages","quantity":0,"rate":800,"category":"LABOUR"}
		]}`), nil).Once()

	result := New(client, "claude-haiku-4-5-20251001", 4096).Parse(ctx, "BOQ document text")

	require.Empty(t, result.Errors)
	require.Len(t, result.Items, 2)

	assert.Equal(t, model.CategoryMaterial, result.Items[0].Category)
	assert.Equal(t, "Concrete Work", result.Items[0].SectionName)
	assert.False(t, result.Items[0].IsReviewFlagged)

	// Zero quantity gets re-flagged even when the model did not mark it.
	assert.True(t, result.Items[1].IsReviewFlagged)
	assert.Equal(t, model.FlagReasonQuantityMissing, result.Items[1].FlagReason)
	assert.Equal(t, model.DefaultUnit, result.Items[1].Unit)

	assert.Equal(t, []string{"Concrete Work"}, result.Sections)
	assert.Equal(t, 2, result.TotalItems)
	assert.Equal(t, 1, result.FlaggedItems)
	client.AssertExpectations(t)
}

func TestParse_MarkdownFence(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.Anything).
		Return(textResponse("```json\n{\"items\":[{\"description\":\"Steel\",\"quantity\":2,\"rate\":64000,\"category\":\"MATERIAL\"}]}\n```"), nil).Once()

	result := New(client, "m", 4096).Parse(ctx, "text")

	require.Empty(t, result.Errors)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Steel", result.Items[0].Description)
}

func TestParse_UnknownCategoryDefaults(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.Anything).
		Return(textResponse(`{"items":[{"description":"Widget","quantity":1,"rate":10,"category":"GADGETS"}]}`), nil).Once()

	result := New(client, "m", 4096).Parse(ctx, "text")

	require.Len(t, result.Items, 1)
	assert.Equal(t, model.CategoryMaterial, result.Items[0].Category)
}

func TestParse_CollaboratorFlagPreserved(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.Anything).
		Return(textResponse(`{"items":[{"description":"Paint","quantity":10,"rate":300,"category":"MATERIAL","needs_review":true,"flag_reason":"Rate looks unusual"}]}`), nil).Once()

	result := New(client, "m", 4096).Parse(ctx, "text")

	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].IsReviewFlagged)
	assert.Equal(t, "Rate looks unusual", result.Items[0].FlagReason)
}

func TestParse_MalformedJSON(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.Anything).
		Return(textResponse("I could not find any line items."), nil).Once()

	result := New(client, "m", 4096).Parse(ctx, "text")

	assert.Empty(t, result.Items)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "malformed")
}

func TestParse_MissingDescriptionAbortsWhole(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.Anything).
		Return(textResponse(`{"items":[{"description":"Cement","quantity":1,"rate":1},{"description":"","quantity":2,"rate":2}]}`), nil).Once()

	result := New(client, "m", 4096).Parse(ctx, "text")

	assert.Empty(t, result.Items)
	assert.Len(t, result.Errors, 1)
}

func TestParse_TransportError(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.Anything).
		Return(nil, assert.AnError).Once()

	result := New(client, "m", 4096).Parse(ctx, "text")

	assert.Empty(t, result.Items)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.TotalItems)
}

func TestParse_EmptyText(t *testing.T) {
	client := &mockClient{}

	result := New(client, "m", 4096).Parse(context.Background(), "   ")

	assert.Empty(t, result.Items)
	assert.Len(t, result.Errors, 1)
	client.AssertNotCalled(t, "CreateMessage")
}

func TestParse_TruncatesInput(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	client.On("CreateMessage", ctx, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 && len(req.Messages[0].Content) < 2000
	})).Return(textResponse(`{"items":[]}`), nil).Once()

	long := strings.Repeat("x", 10000)
	result := New(client, "m", 4096, WithMaxChars(500)).Parse(ctx, long)

	assert.Empty(t, result.Errors)
	client.AssertExpectations(t)
}

package stage

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/mock"

	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/pkg/anthropic"
	"github.com/pteargryphon/creative-brief-generator/pkg/apify"
	"github.com/pteargryphon/creative-brief-generator/pkg/coda"
	"github.com/pteargryphon/creative-brief-generator/pkg/foreplay"
	"github.com/pteargryphon/creative-brief-generator/pkg/jina"
	"github.com/pteargryphon/creative-brief-generator/pkg/perplexity"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Model:   "claude-sonnet-4-5-20250929",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

// --- Jina Mock ---

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

func (m *mockJinaClient) Search(ctx context.Context, query string) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

// --- Perplexity Mock ---

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

// --- Foreplay Mock ---

type mockForeplayClient struct {
	mock.Mock
}

func (m *mockForeplayClient) SearchByKeyword(ctx context.Context, keyword string) ([]foreplay.Advertiser, error) {
	args := m.Called(ctx, keyword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]foreplay.Advertiser), args.Error(1)
}

func (m *mockForeplayClient) SearchByDomain(ctx context.Context, domain string) ([]foreplay.Advertiser, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]foreplay.Advertiser), args.Error(1)
}

// --- Apify Mock ---

type mockApifyClient struct {
	mock.Mock
}

func (m *mockApifyClient) RunSync(ctx context.Context, actorID string, input any, out any) error {
	args := m.Called(ctx, actorID, input, out)
	return args.Error(0)
}

func (m *mockApifyClient) SearchReddit(ctx context.Context, queries []string, maxItems int) ([]apify.RedditPost, error) {
	args := m.Called(ctx, queries, maxItems)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apify.RedditPost), args.Error(1)
}

// --- Coda Mock ---

type mockCodaClient struct {
	mock.Mock
}

func (m *mockCodaClient) CreateDoc(ctx context.Context, req coda.CreateDocRequest) (*coda.Doc, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coda.Doc), args.Error(1)
}

func (m *mockCodaClient) GetDoc(ctx context.Context, docID string) (*coda.Doc, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coda.Doc), args.Error(1)
}

func (m *mockCodaClient) InsertRows(ctx context.Context, docID, table string, rows []coda.Row) error {
	args := m.Called(ctx, docID, table, rows)
	return args.Error(0)
}

// --- Notion Mock ---

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotionClient) AppendBlocks(ctx context.Context, blockID string, blocks []notionapi.Block) error {
	args := m.Called(ctx, blockID, blocks)
	return args.Error(0)
}

// --- Publisher Mock ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Destination() string { return "mock" }

func (m *mockPublisher) Publish(ctx context.Context, brief model.Brief) (model.Publication, error) {
	args := m.Called(ctx, brief)
	return args.Get(0).(model.Publication), args.Error(1)
}

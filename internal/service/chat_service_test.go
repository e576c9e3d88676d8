package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"meslek-atlasi/internal/catalog"
	"meslek-atlasi/internal/config"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	users         repository.UserRepository
	conversations ConversationService
	searchLLM     *testutil.MockLLM
	chatLLM       *testutil.MockLLM
	publisher     *testutil.RecordingPublisher
	chat          ChatService
}

func newChatFixture(t *testing.T, professions *catalog.Catalog) *chatFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &chatFixture{
		users:     repository.NewUserRepository(db),
		searchLLM: new(testutil.MockLLM),
		chatLLM:   new(testutil.MockLLM),
		publisher: &testutil.RecordingPublisher{},
	}
	prompts := NewPrompts(config.LLMPromptConfig{})
	f.conversations = NewConversationService(repository.NewMessageRepository(db), f.publisher)
	f.chat = NewChatService(
		f.conversations,
		NewSearchService(f.searchLLM, prompts),
		NewAdvisorService(f.chatLLM, prompts),
		professions,
		prompts,
		f.publisher,
	)
	return f
}

func (f *chatFixture) newUser(t *testing.T) *model.User {
	t.Helper()
	u := &model.User{}
	require.NoError(t, f.users.Create(u))
	return u
}

func TestChatService_HandleTurn(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, catalog.New(testutil.SampleProfessions()))
	user := f.newUser(t)

	f.searchLLM.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Kullanıcı: I like drawing and math")
	})).Return(`[{"Meslek":"Grafik Tasarımcı"},{"Meslek":"Mimar"}]`, nil).Once()
	f.chatLLM.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Grafik Tasarımcı") && strings.Contains(p, "Mimar") &&
			strings.HasSuffix(p, "Kullanıcı: I like drawing and math")
	})).Return("Grafik tasarım ya da mimarlık sana uygun olabilir.", nil).Once()

	result, err := f.chat.HandleTurn(ctx, user, "I like drawing and math")
	require.NoError(t, err)

	assert.Equal(t, model.RoleUser, result.UserMessage.Role)
	assert.Equal(t, model.RoleModel, result.Reply.Role)
	assert.Equal(t, "Grafik tasarım ya da mimarlık sana uygun olabilir.", result.Reply.Content)
	assert.Greater(t, result.Reply.ID, result.UserMessage.ID)
	assert.LessOrEqual(t, len(result.Professions), MaxRelevantProfessions)

	history, err := f.conversations.History(ctx, user.ID, 0, repository.Ascending)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "I like drawing and math", history[0].Content)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, result.Reply.ID, history[1].ID)

	events := f.publisher.Published()
	require.Len(t, events, 1)
	turn, ok := events[0].(TurnEvent)
	require.True(t, ok)
	assert.Equal(t, EventChatTurn, turn.Type)
	assert.Equal(t, 2, turn.Professions)

	f.searchLLM.AssertExpectations(t)
	f.chatLLM.AssertExpectations(t)
}

func TestChatService_GenerationFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, catalog.New(testutil.SampleProfessions()))
	user := f.newUser(t)

	f.searchLLM.On("Generate", mock.Anything, mock.Anything).Return("[]", nil).Once()
	f.chatLLM.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model unavailable")).Once()

	_, err := f.chat.HandleTurn(ctx, user, "Doktor olmak istiyorum")
	require.Error(t, err)

	history, err := f.conversations.History(ctx, user.ID, 0, repository.Ascending)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "Doktor olmak istiyorum", history[0].Content)
	assert.Empty(t, f.publisher.Published())
}

func TestChatService_RetrievalFailureStillReplies(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, catalog.New(testutil.SampleProfessions()))
	user := f.newUser(t)

	f.searchLLM.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()
	f.chatLLM.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, defaultNoResultText)
	})).Return("Biraz daha anlatır mısın?", nil).Once()

	result, err := f.chat.HandleTurn(ctx, user, "Bilmiyorum")
	require.NoError(t, err)
	assert.Empty(t, result.Professions)
	assert.Equal(t, "Biraz daha anlatır mısın?", result.Reply.Content)
}

func TestChatService_EmptyCatalogSkipsRetrieval(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, catalog.Empty())
	user := f.newUser(t)

	f.chatLLM.On("Generate", mock.Anything, mock.Anything).Return("Merhaba!", nil).Once()

	_, err := f.chat.HandleTurn(ctx, user, "Merhaba")
	require.NoError(t, err)
	f.searchLLM.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestChatService_ContextWindow(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, catalog.New(testutil.SampleProfessions()))
	user := f.newUser(t)

	for _, c := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9"} {
		_, err := f.conversations.Append(ctx, user.ID, model.RoleUser, c)
		require.NoError(t, err)
	}

	var searchPrompt string
	f.searchLLM.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		searchPrompt = args.String(1)
	}).Return("[]", nil).Once()
	f.chatLLM.On("Generate", mock.Anything, mock.Anything).Return("ok", nil).Once()

	_, err := f.chat.HandleTurn(ctx, user, "latest")
	require.NoError(t, err)

	// 最近 8 条，新消息在前：latest, m9 ... m3
	assert.Contains(t, searchPrompt, "Kullanıcı: latest\nKullanıcı: m9\n")
	assert.Contains(t, searchPrompt, "Kullanıcı: m3\n")
	assert.NotContains(t, searchPrompt, "Kullanıcı: m2\n")
	assert.Less(t, strings.Index(searchPrompt, "latest"), strings.Index(searchPrompt, "m9"))
}

func TestChatService_RequiresIdentity(t *testing.T) {
	f := newChatFixture(t, catalog.Empty())

	_, err := f.chat.HandleTurn(context.Background(), nil, "Merhaba")
	assert.ErrorIs(t, err, ErrUserNotFound)
	f.chatLLM.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

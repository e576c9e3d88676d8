// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"meslek-atlasi/internal/model"
	"meslek-atlasi/pkg/database"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated in-memory sqlite database private to the test.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AutoMigrateModels()...))
	return db
}

// MockLLM is a testify mock implementing llm.Client.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []interface{}
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, _ string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return p.Err
}

func (p *RecordingPublisher) Close() error { return nil }

// Published returns a snapshot of the recorded events.
func (p *RecordingPublisher) Published() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interface{}(nil), p.Events...)
}

// SampleProfessions returns a small catalog fixture.
func SampleProfessions() []model.Profession {
	return []model.Profession{
		{"Meslek": "Grafik Tasarımcı", "Alan": "Sanat", "Maaş": "35000"},
		{"Meslek": "Yazılım Mühendisi", "Alan": "Teknoloji", "Maaş": "60000"},
		{"Meslek": "Mimar", "Alan": "Tasarım", "Maaş": "50000"},
		{"Meslek": "Aktüer", "Alan": "Matematik", "Maaş": "55000"},
		{"Meslek": "Öğretmen", "Alan": "Eğitim", "Maaş": "30000"},
		{"Meslek": "Veri Bilimci", "Alan": "Teknoloji", "Maaş": "65000"},
	}
}

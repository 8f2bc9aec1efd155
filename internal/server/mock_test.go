package server

import (
	"github.com/stretchr/testify/mock"

	"github.com/pteargryphon/creative-brief-generator/internal/job"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Submit(id, url string) error {
	args := m.Called(id, url)
	return args.Error(0)
}

func (m *mockExecutor) Cancel(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *mockExecutor) Stats() job.Stats {
	args := m.Called()
	return args.Get(0).(job.Stats)
}

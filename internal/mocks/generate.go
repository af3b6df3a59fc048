// Package mocks provides mock implementations for testing the scheduler.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the scheduler's collaborator interfaces. The mocks are generated using
// go:generate directives and provide a fluent API for setting up test
// expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	runner := mocks.NewMockJobRunner(ctrl)
//	runner.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(result, nil)
package mocks

// Generate mock for JobRunner interface from internal/core package.
// This creates MockJobRunner with methods for all JobRunner interface methods:
// Execute
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_runner_mock.go github.com/Rainking6693/autobolt-scheduler/internal/core JobRunner

// Generate mock for StateStore interface from internal/core package.
// This creates MockStateStore with methods for all StateStore interface methods:
// Save, Load
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=state_store_mock.go github.com/Rainking6693/autobolt-scheduler/internal/core StateStore

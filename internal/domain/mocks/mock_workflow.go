// Package mocks provides testify mocks for the domain interfaces.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	domain "deadwood.dev/pkg/deadwood/internal/domain"
	model "deadwood.dev/pkg/deadwood/internal/model"
)

// MockWorkflow is a mock type for the Workflow type.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a MockWorkflow and registers a cleanup that asserts
// its expectations.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mockWorkflow := &MockWorkflow{}
	mockWorkflow.Mock.Test(t)

	t.Cleanup(func() { mockWorkflow.AssertExpectations(t) })

	return mockWorkflow
}

// MockWorkflow_Expecter gives typed access to expectations.
type MockWorkflow_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockWorkflow) EXPECT() *MockWorkflow_Expecter {
	return &MockWorkflow_Expecter{mock: &_m.Mock}
}

// Analyze provides a mock function.
func (_m *MockWorkflow) Analyze(ctx context.Context, args domain.AnalyzeArgs) (model.Report, error) {
	ret := _m.Called(ctx, args)

	if fn, ok := ret.Get(0).(func(context.Context, domain.AnalyzeArgs) (model.Report, error)); ok {
		return fn(ctx, args)
	}

	var report model.Report
	if r, ok := ret.Get(0).(model.Report); ok {
		report = r
	}

	return report, ret.Error(1)
}

// MockWorkflow_Analyze_Call wraps an Analyze expectation.
type MockWorkflow_Analyze_Call struct {
	*mock.Call
}

// Analyze registers an Analyze expectation.
func (_e *MockWorkflow_Expecter) Analyze(ctx interface{}, args interface{}) *MockWorkflow_Analyze_Call {
	return &MockWorkflow_Analyze_Call{Call: _e.mock.On("Analyze", ctx, args)}
}

// Return sets the return values.
func (_c *MockWorkflow_Analyze_Call) Return(report model.Report, err error) *MockWorkflow_Analyze_Call {
	_c.Call.Return(report, err)
	return _c
}

// Run sets a function called with the arguments.
func (_c *MockWorkflow_Analyze_Call) Run(run func(ctx context.Context, args domain.AnalyzeArgs)) *MockWorkflow_Analyze_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(domain.AnalyzeArgs))
	})

	return _c
}

// RunAndReturn sets a function that computes the return values.
func (_c *MockWorkflow_Analyze_Call) RunAndReturn(run func(context.Context, domain.AnalyzeArgs) (model.Report, error)) *MockWorkflow_Analyze_Call {
	_c.Call.Return(run)
	return _c
}

// Watch provides a mock function.
func (_m *MockWorkflow) Watch(ctx context.Context, args domain.AnalyzeArgs) error {
	ret := _m.Called(ctx, args)

	if fn, ok := ret.Get(0).(func(context.Context, domain.AnalyzeArgs) error); ok {
		return fn(ctx, args)
	}

	return ret.Error(0)
}

// MockWorkflow_Watch_Call wraps a Watch expectation.
type MockWorkflow_Watch_Call struct {
	*mock.Call
}

// Watch registers a Watch expectation.
func (_e *MockWorkflow_Expecter) Watch(ctx interface{}, args interface{}) *MockWorkflow_Watch_Call {
	return &MockWorkflow_Watch_Call{Call: _e.mock.On("Watch", ctx, args)}
}

// Return sets the return value.
func (_c *MockWorkflow_Watch_Call) Return(err error) *MockWorkflow_Watch_Call {
	_c.Call.Return(err)
	return _c
}

// Run sets a function called with the arguments.
func (_c *MockWorkflow_Watch_Call) Run(run func(ctx context.Context, args domain.AnalyzeArgs)) *MockWorkflow_Watch_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(domain.AnalyzeArgs))
	})

	return _c
}

// RunAndReturn sets a function that computes the return value.
func (_c *MockWorkflow_Watch_Call) RunAndReturn(run func(context.Context, domain.AnalyzeArgs) error) *MockWorkflow_Watch_Call {
	_c.Call.Return(run)
	return _c
}

// View provides a mock function.
func (_m *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	ret := _m.Called(ctx, args)

	if fn, ok := ret.Get(0).(func(context.Context, domain.ViewArgs) error); ok {
		return fn(ctx, args)
	}

	return ret.Error(0)
}

// MockWorkflow_View_Call wraps a View expectation.
type MockWorkflow_View_Call struct {
	*mock.Call
}

// View registers a View expectation.
func (_e *MockWorkflow_Expecter) View(ctx interface{}, args interface{}) *MockWorkflow_View_Call {
	return &MockWorkflow_View_Call{Call: _e.mock.On("View", ctx, args)}
}

// Return sets the return value.
func (_c *MockWorkflow_View_Call) Return(err error) *MockWorkflow_View_Call {
	_c.Call.Return(err)
	return _c
}

// Run sets a function called with the arguments.
func (_c *MockWorkflow_View_Call) Run(run func(ctx context.Context, args domain.ViewArgs)) *MockWorkflow_View_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(domain.ViewArgs))
	})

	return _c
}

// RunAndReturn sets a function that computes the return value.
func (_c *MockWorkflow_View_Call) RunAndReturn(run func(context.Context, domain.ViewArgs) error) *MockWorkflow_View_Call {
	_c.Call.Return(run)
	return _c
}

var _ domain.Workflow = (*MockWorkflow)(nil)

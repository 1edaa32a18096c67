// Package mocks provides testify mocks for the controller interfaces.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	controller "deadwood.dev/pkg/deadwood/internal/controller"
	model "deadwood.dev/pkg/deadwood/internal/model"
)

// MockUI is a mock type for the UI type.
type MockUI struct {
	mock.Mock
}

// NewMockUI creates a MockUI and registers a cleanup that asserts its
// expectations.
func NewMockUI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUI {
	mockUI := &MockUI{}
	mockUI.Mock.Test(t)

	t.Cleanup(func() { mockUI.AssertExpectations(t) })

	return mockUI
}

// MockUI_Expecter gives typed access to expectations.
type MockUI_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter.
func (_m *MockUI) EXPECT() *MockUI_Expecter {
	return &MockUI_Expecter{mock: &_m.Mock}
}

// Start provides a mock function.
func (_m *MockUI) Start(ctx context.Context, options ...controller.StartOption) error {
	args := []interface{}{ctx}
	for _, option := range options {
		args = append(args, option)
	}

	ret := _m.Called(args...)

	if fn, ok := ret.Get(0).(func(context.Context, ...controller.StartOption) error); ok {
		return fn(ctx, options...)
	}

	return ret.Error(0)
}

// MockUI_Start_Call wraps a Start expectation.
type MockUI_Start_Call struct {
	*mock.Call
}

// Start registers a Start expectation. Options are matched individually.
func (_e *MockUI_Expecter) Start(ctx interface{}, options ...interface{}) *MockUI_Start_Call {
	return &MockUI_Start_Call{Call: _e.mock.On("Start", append([]interface{}{ctx}, options...)...)}
}

// Return sets the return value.
func (_c *MockUI_Start_Call) Return(err error) *MockUI_Start_Call {
	_c.Call.Return(err)
	return _c
}

// Run sets a function called with the arguments.
func (_c *MockUI_Start_Call) Run(run func(ctx context.Context, options ...controller.StartOption)) *MockUI_Start_Call {
	_c.Call.Run(func(args mock.Arguments) {
		options := make([]controller.StartOption, 0, len(args)-1)
		for _, arg := range args[1:] {
			if option, ok := arg.(controller.StartOption); ok {
				options = append(options, option)
			}
		}

		run(args[0].(context.Context), options...)
	})

	return _c
}

// Close provides a mock function.
func (_m *MockUI) Close(ctx context.Context) {
	_m.Called(ctx)
}

// MockUI_Close_Call wraps a Close expectation.
type MockUI_Close_Call struct {
	*mock.Call
}

// Close registers a Close expectation.
func (_e *MockUI_Expecter) Close(ctx interface{}) *MockUI_Close_Call {
	return &MockUI_Close_Call{Call: _e.mock.On("Close", ctx)}
}

// Return marks the call as returning.
func (_c *MockUI_Close_Call) Return() *MockUI_Close_Call {
	_c.Call.Return()
	return _c
}

// Wait provides a mock function.
func (_m *MockUI) Wait(ctx context.Context) {
	_m.Called(ctx)
}

// MockUI_Wait_Call wraps a Wait expectation.
type MockUI_Wait_Call struct {
	*mock.Call
}

// Wait registers a Wait expectation.
func (_e *MockUI_Expecter) Wait(ctx interface{}) *MockUI_Wait_Call {
	return &MockUI_Wait_Call{Call: _e.mock.On("Wait", ctx)}
}

// Return marks the call as returning.
func (_c *MockUI_Wait_Call) Return() *MockUI_Wait_Call {
	_c.Call.Return()
	return _c
}

// DisplayWorkspace provides a mock function.
func (_m *MockUI) DisplayWorkspace(ctx context.Context, workspace *model.Package) {
	_m.Called(ctx, workspace)
}

// MockUI_DisplayWorkspace_Call wraps a DisplayWorkspace expectation.
type MockUI_DisplayWorkspace_Call struct {
	*mock.Call
}

// DisplayWorkspace registers a DisplayWorkspace expectation.
func (_e *MockUI_Expecter) DisplayWorkspace(ctx interface{}, workspace interface{}) *MockUI_DisplayWorkspace_Call {
	return &MockUI_DisplayWorkspace_Call{Call: _e.mock.On("DisplayWorkspace", ctx, workspace)}
}

// Return marks the call as returning.
func (_c *MockUI_DisplayWorkspace_Call) Return() *MockUI_DisplayWorkspace_Call {
	_c.Call.Return()
	return _c
}

// Run sets a function called with the arguments.
func (_c *MockUI_DisplayWorkspace_Call) Run(run func(ctx context.Context, workspace *model.Package)) *MockUI_DisplayWorkspace_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(*model.Package))
	})

	return _c
}

// DisplayChanges provides a mock function.
func (_m *MockUI) DisplayChanges(ctx context.Context, paths []model.Path) {
	_m.Called(ctx, paths)
}

// MockUI_DisplayChanges_Call wraps a DisplayChanges expectation.
type MockUI_DisplayChanges_Call struct {
	*mock.Call
}

// DisplayChanges registers a DisplayChanges expectation.
func (_e *MockUI_Expecter) DisplayChanges(ctx interface{}, paths interface{}) *MockUI_DisplayChanges_Call {
	return &MockUI_DisplayChanges_Call{Call: _e.mock.On("DisplayChanges", ctx, paths)}
}

// Return marks the call as returning.
func (_c *MockUI_DisplayChanges_Call) Return() *MockUI_DisplayChanges_Call {
	_c.Call.Return()
	return _c
}

// DisplayReport provides a mock function.
func (_m *MockUI) DisplayReport(ctx context.Context, report model.Report) error {
	ret := _m.Called(ctx, report)

	if fn, ok := ret.Get(0).(func(context.Context, model.Report) error); ok {
		return fn(ctx, report)
	}

	return ret.Error(0)
}

// MockUI_DisplayReport_Call wraps a DisplayReport expectation.
type MockUI_DisplayReport_Call struct {
	*mock.Call
}

// DisplayReport registers a DisplayReport expectation.
func (_e *MockUI_Expecter) DisplayReport(ctx interface{}, report interface{}) *MockUI_DisplayReport_Call {
	return &MockUI_DisplayReport_Call{Call: _e.mock.On("DisplayReport", ctx, report)}
}

// Return sets the return value.
func (_c *MockUI_DisplayReport_Call) Return(err error) *MockUI_DisplayReport_Call {
	_c.Call.Return(err)
	return _c
}

// Run sets a function called with the arguments.
func (_c *MockUI_DisplayReport_Call) Run(run func(ctx context.Context, report model.Report)) *MockUI_DisplayReport_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(model.Report))
	})

	return _c
}

var _ controller.UI = (*MockUI)(nil)

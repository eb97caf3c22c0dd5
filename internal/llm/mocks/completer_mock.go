package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tatianab/text-quest/internal/llm"
)

// MockCompleter is a mock type for the llm.Completer type. NoCredential
// makes HasCredential report false.
type MockCompleter struct {
	mock.Mock
	NoCredential bool
}

// Complete provides a mock function with given fields: ctx, req
func (_m *MockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	ret := _m.Called(ctx, req)

	var r0 *llm.Response
	if rf, ok := ret.Get(0).(func(context.Context, llm.Request) *llm.Response); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*llm.Response)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, llm.Request) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *MockCompleter) HasCredential() bool { return !_m.NoCredential }

// NewMockCompleter creates a new instance of MockCompleter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCompleter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCompleter {
	m := &MockCompleter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ llm.Completer = (*MockCompleter)(nil)
var _ llm.Credentialed = (*MockCompleter)(nil)

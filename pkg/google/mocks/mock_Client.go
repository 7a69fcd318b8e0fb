// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/sells-group/review-compare/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// TextSearch provides a mock function with given fields: ctx, query, location
func (_m *MockClient) TextSearch(ctx context.Context, query string, location string) ([]google.Place, error) {
	ret := _m.Called(ctx, query, location)

	if len(ret) == 0 {
		panic("no return value specified for TextSearch")
	}

	var r0 []google.Place
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) ([]google.Place, error)); ok {
		return rf(ctx, query, location)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) []google.Place); ok {
		r0 = rf(ctx, query, location)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]google.Place)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, query, location)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// PlaceDetails provides a mock function with given fields: ctx, placeID, fields
func (_m *MockClient) PlaceDetails(ctx context.Context, placeID string, fields ...string) (*google.PlaceDetails, error) {
	_va := make([]interface{}, len(fields))
	for _i := range fields {
		_va[_i] = fields[_i]
	}
	var _ca []interface{}
	_ca = append(_ca, ctx, placeID)
	_ca = append(_ca, _va...)
	ret := _m.Called(_ca...)

	if len(ret) == 0 {
		panic("no return value specified for PlaceDetails")
	}

	var r0 *google.PlaceDetails
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, ...string) (*google.PlaceDetails, error)); ok {
		return rf(ctx, placeID, fields...)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, ...string) *google.PlaceDetails); ok {
		r0 = rf(ctx, placeID, fields...)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*google.PlaceDetails)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, ...string) error); ok {
		r1 = rf(ctx, placeID, fields...)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// PhotoURL provides a mock function with given fields: reference, maxWidth
func (_m *MockClient) PhotoURL(reference string, maxWidth int) (string, error) {
	ret := _m.Called(reference, maxWidth)

	if len(ret) == 0 {
		panic("no return value specified for PhotoURL")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(string, int) (string, error)); ok {
		return rf(reference, maxWidth)
	}
	if rf, ok := ret.Get(0).(func(string, int) string); ok {
		r0 = rf(reference, maxWidth)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(string, int) error); ok {
		r1 = rf(reference, maxWidth)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

package mocks

import (
	"context"

	"github.com/benmeehan/location-agent/pkg/consent"
	"github.com/benmeehan/location-agent/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockLocationSampler is a mock implementation of the LocationSampler interface
type MockLocationSampler struct {
	mock.Mock
}

func (m *MockLocationSampler) AcquireBestEffortLocation(ctx context.Context) (location.PositionSample, error) {
	args := m.Called(ctx)
	return args.Get(0).(location.PositionSample), args.Error(1)
}

// MockAddressLookup is a mock implementation of the AddressLookup interface
type MockAddressLookup struct {
	mock.Mock
}

func (m *MockAddressLookup) Lookup(ctx context.Context, sample location.PositionSample) (location.Address, error) {
	args := m.Called(ctx, sample)
	return args.Get(0).(location.Address), args.Error(1)
}

// MockConsentChecker is a mock implementation of the consent.Checker interface
type MockConsentChecker struct {
	mock.Mock
}

func (m *MockConsentChecker) Status() consent.Record {
	args := m.Called()
	return args.Get(0).(consent.Record)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ttnmanager/apperror"
	"ttnmanager/novaposhta"
)

func TestParseAddressMode(t *testing.T) {
	for in, want := range map[string]AddressMode{
		"":               ReuseExisting,
		"reuse_existing": ReuseExisting,
		" BRANCH_REF ":   UseBranchRef,
		"create_new":     CreateNew,
	} {
		got, err := ParseAddressMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAddressMode("geocode")
	assert.Error(t, err)
}

func TestResolveRecipient_ReuseExisting(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetCounterpartyAddresses", mock.Anything, testKey, novaposhta.RefPageProps{
		Ref:                  "cp-1",
		CounterpartyProperty: "Recipient",
	}).Return([]novaposhta.CounterpartyAddress{
		{Ref: "addr-lviv", CityRef: "city-lviv", Description: "Відділення №1"},
		{Ref: "addr-kyiv-1", CityRef: "city-kyiv", Description: "Відділення №1"},
		{Ref: "wh-kyiv-7", CityRef: "city-kyiv", Description: "Відділення №7"},
	}, nil)

	r := NewAddressResolver(dir, ReuseExisting, nil)

	tests := []struct {
		name   string
		branch Branch
		want   string
	}{
		{"matched by name in the same city", Branch{CityRef: "city-kyiv", Ref: "wh-kyiv-1", Name: " відділення №1 "}, "addr-kyiv-1"},
		{"matched by ref", Branch{CityRef: "city-kyiv", Ref: "wh-kyiv-7"}, "wh-kyiv-7"},
		{"other branch in the same city", Branch{CityRef: "city-kyiv", Ref: "wh-kyiv-45", Name: "Відділення №45"}, "wh-kyiv-45"},
		{"no address in the city", Branch{CityRef: "city-odesa", Ref: "wh-odesa-1", Name: "Відділення №1"}, "wh-odesa-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveRecipient(context.Background(), testKey, "cp-1", tt.branch, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Two sender rows for one counterparty in one city must ship from their own
// branches.
func TestResolveSender_TwoBranchesInOneCity(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetCounterpartyAddresses", mock.Anything, testKey, mock.Anything).
		Return([]novaposhta.CounterpartyAddress{{Ref: "addr-branch-1", CityRef: "city-kyiv", Description: "Відділення №1"}}, nil)

	r := NewAddressResolver(dir, ReuseExisting, nil)

	first, err := r.ResolveSender(context.Background(), testKey, "sender-1",
		Branch{CityRef: "city-kyiv", Ref: "wh-1", Name: "Відділення №1"})
	require.NoError(t, err)
	second, err := r.ResolveSender(context.Background(), testKey, "sender-1",
		Branch{CityRef: "city-kyiv", Ref: "wh-45", Name: "Відділення №45"})
	require.NoError(t, err)

	assert.Equal(t, "addr-branch-1", first)
	assert.Equal(t, "wh-45", second)
}

func TestResolveRecipient_ListingFailureFallsBack(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetCounterpartyAddresses", mock.Anything, testKey, mock.Anything).
		Return(nil, &novaposhta.TransportError{Err: errors.New("reset")})

	got, err := NewAddressResolver(dir, ReuseExisting, nil).
		ResolveRecipient(context.Background(), testKey, "cp-1", Branch{CityRef: "city-kyiv", Ref: "branch-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "branch-1", got)
}

func TestResolveRecipient_BranchRef(t *testing.T) {
	dir := new(MockDirectory)
	got, err := NewAddressResolver(dir, UseBranchRef, nil).
		ResolveRecipient(context.Background(), testKey, "cp-1", Branch{CityRef: "city-kyiv", Ref: "branch-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "branch-1", got)
	dir.AssertNotCalled(t, "GetCounterpartyAddresses", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveRecipient_CreateNew(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("SaveAddress", mock.Anything, testKey, novaposhta.SaveAddressProps{
		CounterpartyRef: "cp-1",
		StreetRef:       "street-1",
		BuildingNumber:  "12",
		Flat:            "4",
	}).Return([]novaposhta.SavedAddress{{Ref: "addr-new"}}, nil)

	r := NewAddressResolver(dir, CreateNew, nil)
	assert.True(t, r.RequiresStreet())

	kyiv := Branch{CityRef: "city-kyiv", Ref: "branch-1"}
	got, err := r.ResolveRecipient(context.Background(), testKey, "cp-1", kyiv,
		&StreetAddress{StreetRef: "street-1", BuildingNumber: "12", Flat: "4"})
	require.NoError(t, err)
	assert.Equal(t, "addr-new", got)

	_, err = r.ResolveRecipient(context.Background(), testKey, "cp-1", kyiv, &StreetAddress{StreetRef: "street-1"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestResolveSender(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetCounterpartyAddresses", mock.Anything, testKey, novaposhta.RefPageProps{
		Ref:                  "sender-1",
		CounterpartyProperty: "Sender",
	}).Return([]novaposhta.CounterpartyAddress{{Ref: "addr-s", CityRef: "city-kyiv", Description: "Відділення №3"}}, nil)

	branch := Branch{CityRef: "city-kyiv", Ref: "branch-s", Name: "Відділення №3"}
	got, err := NewAddressResolver(dir, ReuseExisting, nil).
		ResolveSender(context.Background(), testKey, "sender-1", branch)
	require.NoError(t, err)
	assert.Equal(t, "addr-s", got)

	got, err = NewAddressResolver(dir, CreateNew, nil).
		ResolveSender(context.Background(), testKey, "sender-1", branch)
	require.NoError(t, err)
	assert.Equal(t, "branch-s", got)
}
